// Package burst implements the two ends of a burst execution channel.
//
// A Controller lives on the harness side. It names every memory pool by a
// small integer slot derived from the pool's key, so a device that has
// already mapped a pool can reuse the mapping. A Server lives on the device
// side; it resolves slots through the controller's GetMemories callback and
// caches the answer until the slot is freed.
//
// One request is in flight at a time. Closing the controller closes the
// request channel, which stops the server goroutine.
package burst
