// Package validate checks what a device returned for one execution.
//
// CheckExecution judges the status, timing and reported shapes against the
// output mode. ApplyShapes and CopyBack move the device's output into a
// typed collection, and Compare and ExpectMultinomial check the values.
package validate
