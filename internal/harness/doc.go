// Package harness runs golden examples against a device and reports every
// mismatch through testing.TB.
//
// # Flow
//
// For one model the harness:
//
//  1. asks the device which operations it supports and prepares the model
//     (package prepare); a device that declines a model it does not fully
//     support skips the test
//  2. walks the execution matrix for the interface version, one
//     Combination at a time
//  3. for every example, lays out shared memory (package planner), runs
//     the request (package executor), checks status, timing and shapes,
//     then copies the outputs back and compares them with the golden data
//     (package validate)
//
// # Execution Matrix
//
// A 1.0 or 1.1 device runs one combination: async, no timing, fully
// specified outputs. A 1.2 device runs async, sync and burst, each with and
// without timing. With dynamic output shapes the 1.2 matrix uses
// unspecified and insufficient outputs instead of fully specified ones.
//
// # Tolerance
//
// Float outputs pass when |golden-actual| <= atol + rtol*|golden|. The base
// tolerance comes from Config. A model that relaxes float32 to float16, or
// an example with float16 inputs, uses Config.RelaxedTolerance instead.
// The choice is made per example.
//
// # Usage
//
//	func TestAdd(t *testing.T) {
//	    harness.ExecuteV1_2(t, dev, createModel, isIgnored, examples, false,
//	        harness.WithLogger(logger),
//	        harness.WithRecorder(st),
//	    )
//	}
//
// Evaluate is the same core without testing.TB; it returns the outcomes
// for one combination.
package harness
