// Package operand holds the typed operand collections exchanged with a
// device under test.
//
// A Collection is nine independent index→buffer maps, one per element
// Kind. Golden data, inputs and results are all Collections; the harness
// moves them in and out of shared memory through the byte views that
// ForAll and Bytes expose.
//
// The kind set is closed. ForAll, ResizeLike, Filter, Bytes and Resize each
// contain a constant-index check against NumKinds that stops compiling if a
// kind is added without updating them.
package operand
