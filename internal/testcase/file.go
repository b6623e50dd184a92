package testcase

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/nnvts/internal/validate"
)

// File is the on-disk form of a test case. Field names are shared by the
// YAML and CUE encodings.
type File struct {
	Name           string              `json:"name" yaml:"name"`
	Description    string              `json:"description,omitempty" yaml:"description,omitempty"`
	DynamicShape   bool                `json:"dynamic_shape,omitempty" yaml:"dynamic_shape,omitempty"`
	IgnoredOutputs []int               `json:"ignored_outputs,omitempty" yaml:"ignored_outputs,omitempty"`
	Tolerance      *validate.Tolerance `json:"tolerance,omitempty" yaml:"tolerance,omitempty"`
	Model          ModelSpec           `json:"model" yaml:"model"`
	Examples       []ExampleSpec       `json:"examples" yaml:"examples"`
}

// ModelSpec declares the model graph.
type ModelSpec struct {
	Operands         []OperandSpec   `json:"operands" yaml:"operands"`
	Operations       []OperationSpec `json:"operations" yaml:"operations"`
	Inputs           []uint32        `json:"inputs" yaml:"inputs"`
	Outputs          []uint32        `json:"outputs" yaml:"outputs"`
	RelaxComputation bool            `json:"relax_computation,omitempty" yaml:"relax_computation,omitempty"`
}

// OperandSpec declares one model operand. Type is an operand kind name.
type OperandSpec struct {
	Type       string   `json:"type" yaml:"type"`
	Dimensions []uint32 `json:"dimensions,omitempty" yaml:"dimensions,omitempty"`
}

// OperationSpec declares one operation over operand numbers.
type OperationSpec struct {
	Type    string   `json:"type" yaml:"type"`
	Inputs  []uint32 `json:"inputs" yaml:"inputs"`
	Outputs []uint32 `json:"outputs" yaml:"outputs"`
}

// BufferSpec is one input or golden output value. Index is the position in
// the model's input or output list.
type BufferSpec struct {
	Index      int       `json:"index" yaml:"index"`
	Type       string    `json:"type" yaml:"type"`
	Dimensions []uint32  `json:"dimensions,omitempty" yaml:"dimensions,omitempty"`
	Values     []float64 `json:"values" yaml:"values"`
}

// ExampleSpec is one set of inputs with their golden outputs.
type ExampleSpec struct {
	Inputs               []BufferSpec `json:"inputs" yaml:"inputs"`
	Outputs              []BufferSpec `json:"outputs" yaml:"outputs"`
	MultinomialTolerance float32      `json:"multinomial_tolerance,omitempty" yaml:"multinomial_tolerance,omitempty"`
}

// Format is a test-case file encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatCUE  Format = "cue"
)

// FormatOf picks the encoding from a file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".cue":
		return FormatCUE, nil
	}
	return "", fmt.Errorf("%s: unsupported test case extension %q", path, filepath.Ext(path))
}

// Load reads, validates and converts one test-case file.
func Load(path string) (*TestCase, error) {
	f, err := Read(path)
	if err != nil {
		return nil, err
	}
	tc, err := Build(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	tc.Path = path
	return tc, nil
}

// Read decodes a test-case file without validating its contents.
func Read(path string) (*File, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read test case: %w", err)
	}
	switch format {
	case FormatCUE:
		return ParseCUE(path, data)
	default:
		f, err := ParseYAML(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return f, nil
	}
}

// ParseYAML decodes a YAML test case. Unknown fields are rejected.
func ParseYAML(data []byte) (*File, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("parse YAML: empty document")
		}
		return nil, fmt.Errorf("parse YAML: %w", err)
	}
	return &f, nil
}
