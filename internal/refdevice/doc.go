// Package refdevice is an in-process CPU device used to exercise the
// harness end to end.
//
// It runs ADD and MUL on float32, int32 and float16 tensors, and
// RANDOM_MULTINOMIAL with deterministic stratified sampling so that the
// observed class frequencies land within 1/samples of the softmax.
// Options inject the faults the harness must tell apart: unsupported
// operations, failed preparation, rejected dynamic shapes, failed launches,
// transport errors, wrong outputs and inconsistent timing.
package refdevice
