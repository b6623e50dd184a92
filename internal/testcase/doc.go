// Package testcase loads golden test cases from YAML or CUE files.
//
// A file declares one model and the examples to run against it:
//
//	name: add_float32
//	dynamic_shape: true
//	model:
//	  operands:
//	    - {type: float32, dimensions: [2]}
//	    - {type: float32, dimensions: [2]}
//	    - {type: float32, dimensions: [0]}
//	  operations:
//	    - {type: ADD, inputs: [0, 1], outputs: [2]}
//	  inputs: [0, 1]
//	  outputs: [2]
//	examples:
//	  - inputs:
//	      - {index: 0, type: float32, dimensions: [2], values: [1, 2]}
//	      - {index: 1, type: float32, dimensions: [2], values: [3, 4]}
//	    outputs:
//	      - {index: 0, type: float32, dimensions: [2], values: [4, 6]}
//
// Buffer indexes are positions in the model's input or output list, not
// operand numbers. Files are validated strictly: unknown fields, unknown
// kinds and buffers whose dimensions do not match their values are all
// rejected before anything runs.
package testcase
