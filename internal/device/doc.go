// Package device defines the contract between the harness and a compute
// device under test.
//
// The contract is versioned. DeviceV1_0, DeviceV1_1 and DeviceV1_2 expose
// the support query and preparation calls of each interface version;
// PreparedModel and PreparedModelV1_2 expose the execution calls. Code that
// needs a newer capability asks for it with a type assertion instead of
// branching on a version number.
//
// Every call returns two things: an ErrorStatus produced by the device and
// an error produced by the transport. A non-nil error means the call never
// reached a verdict; the status is meaningless in that case.
//
// Asynchronous calls complete through one-shot callbacks
// (PreparedModelCallback, ExecutionCallback). The caller blocks on Wait
// exactly once; the device side calls Notify exactly once, typically from
// its own goroutine.
package device
