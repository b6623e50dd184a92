package testcase

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/nnvts/internal/device"
	"github.com/roach88/nnvts/internal/harness"
	"github.com/roach88/nnvts/internal/operand"
	"github.com/roach88/nnvts/internal/refdevice"
	"github.com/roach88/nnvts/internal/validate"
)

func TestFormatOf(t *testing.T) {
	for path, want := range map[string]Format{
		"a.yaml": FormatYAML,
		"a.YML":  FormatYAML,
		"b.cue":  FormatCUE,
	} {
		got, err := FormatOf(path)
		require.NoError(t, err, path)
		assert.Equal(t, want, got, path)
	}

	_, err := FormatOf("c.json")
	assert.ErrorContains(t, err, `unsupported test case extension ".json"`)
}

func TestRead_YAMLAndCUEAgree(t *testing.T) {
	fromYAML, err := Read("testdata/add.yaml")
	require.NoError(t, err)
	fromCUE, err := Read("testdata/add.cue")
	require.NoError(t, err)

	if diff := cmp.Diff(fromYAML, fromCUE); diff != "" {
		t.Errorf("YAML and CUE decode differently (-yaml +cue):\n%s", diff)
	}
}

func TestLoad_Add(t *testing.T) {
	tc, err := Load("testdata/add.yaml")
	require.NoError(t, err)

	assert.Equal(t, "add_float32", tc.Name)
	assert.Equal(t, "testdata/add.yaml", tc.Path)
	assert.True(t, tc.DynamicShape)
	require.Len(t, tc.Examples, 2)
	assert.Equal(t, []float32{1, 2}, tc.Examples[0].Inputs.Float32[0])
	assert.Equal(t, []float32{3, 4}, tc.Examples[0].Inputs.Float32[1])
	assert.Equal(t, []float32{4, 6}, tc.Examples[0].Golden.Float32[0])
	assert.Equal(t, []uint32{2}, tc.Examples[0].Golden.Dimensions[0])

	m := tc.Model()
	require.Len(t, m.Operands, 3)
	assert.Equal(t, device.LifetimeModelInput, m.Operands[0].Lifetime)
	assert.Equal(t, device.LifetimeModelInput, m.Operands[1].Lifetime)
	assert.Equal(t, device.LifetimeModelOutput, m.Operands[2].Lifetime)
	assert.False(t, m.Operands[2].FullySpecified())
	assert.Equal(t, []device.Operation{{Type: device.OpAdd, Inputs: []uint32{0, 1}, Outputs: []uint32{2}}}, m.Operations)

	cfg := tc.Config(device.V1_2)
	assert.Equal(t, validate.Tolerance{Atol: 0.001, Rtol: 0.001}, cfg.Tolerance)
	assert.Equal(t, validate.RelaxedTolerance(), cfg.RelaxedTolerance)
}

func TestModel_ReturnsACopy(t *testing.T) {
	tc, err := Load("testdata/add.cue")
	require.NoError(t, err)

	m := tc.Model()
	m.Operands[0].Dimensions[0] = 99
	m.Operations[0].Inputs = nil

	fresh := tc.Model()
	assert.Equal(t, []uint32{2}, fresh.Operands[0].Dimensions)
	assert.Equal(t, []uint32{0, 1}, fresh.Operations[0].Inputs)
}

func TestLoad_RunsOnReferenceDevice(t *testing.T) {
	for _, path := range []string{"testdata/add.yaml", "testdata/add.cue", "testdata/multinomial.yaml"} {
		t.Run(filepath.Base(path), func(t *testing.T) {
			tc, err := Load(path)
			require.NoError(t, err)

			report := harness.ExecuteV1_2(t, refdevice.New(), tc.Model, tc.IsIgnored, tc.Examples,
				tc.DynamicShape, harness.WithConfig(tc.Config(device.V1_2)))
			assert.True(t, report.Pass)
			assert.NotEmpty(t, report.Outcomes)
		})
	}
}

func TestLoad_Multinomial(t *testing.T) {
	tc, err := Load("testdata/multinomial.yaml")
	require.NoError(t, err)

	assert.True(t, tc.IsIgnored(0))
	assert.False(t, tc.IsIgnored(1))
	require.Len(t, tc.Examples, 1)
	assert.InDelta(t, 0.02, tc.Examples[0].MultinomialTolerance, 1e-7)
	assert.Equal(t, []int32{200}, tc.Examples[0].Inputs.Int32[1])
	assert.Empty(t, tc.Examples[0].Inputs.Dimensions[1])
	assert.Len(t, tc.Examples[0].Golden.Int32[0], 400)
}

func TestParseYAML_RejectsUnknownFields(t *testing.T) {
	_, err := ParseYAML([]byte("name: x\nbogus: 1\n"))
	assert.ErrorContains(t, err, "field bogus not found")

	_, err = ParseYAML(nil)
	assert.ErrorContains(t, err, "empty document")
}

// minimalCUE is the smallest test case the schema accepts, with the kind,
// operation and trailing fields substituted.
func minimalCUE(kind, op, extra string) []byte {
	return []byte(`
name: "k"
model: {
	operands: [{type: "` + kind + `"}]
	operations: [{type: "` + op + `", inputs: [0, 0], outputs: [0]}]
	inputs: [0]
	outputs: [0]
}
examples: [{inputs: [], outputs: []}]
` + extra + "\n")
}

func TestParseCUE_Schema(t *testing.T) {
	_, err := ParseCUE("ok.cue", minimalCUE("float32", "ADD", ""))
	require.NoError(t, err)

	tests := []struct {
		name string
		src  []byte
	}{
		{"unknown field", minimalCUE("float32", "ADD", "bogus: 1")},
		{"unknown kind", minimalCUE("float64", "ADD", "")},
		{"unknown operation", minimalCUE("float32", "SUB", "")},
		{"empty name", minimalCUE("float32", "ADD", `name: ""`)},
		{"negative tolerance", minimalCUE("float32", "ADD", "tolerance: {atol: -1, rtol: 0}")},
		{"multinomial tolerance above one", minimalCUE("float32", "ADD", "examples: [{multinomial_tolerance: 2}]")},
		{"no examples", []byte(`name: "k", model: {operands: [], operations: [{type: "ADD", inputs: [], outputs: []}], inputs: [], outputs: [0]}, examples: []`)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCUE("case.cue", tt.src)
			assert.Error(t, err)
		})
	}

	_, err = ParseCUE("case.cue", []byte("name: \n"))
	assert.ErrorContains(t, err, "compile CUE")
}

func TestParseCUE_EveryKindIsInSchema(t *testing.T) {
	for _, k := range operand.Kinds() {
		_, err := ParseCUE("kinds.cue", minimalCUE(k.String(), "ADD", ""))
		assert.NoError(t, err, k.String())
	}
}

func validFile() *File {
	return &File{
		Name: "ok",
		Model: ModelSpec{
			Operands: []OperandSpec{
				{Type: "int32", Dimensions: []uint32{2}},
				{Type: "int32", Dimensions: []uint32{2}},
				{Type: "int32", Dimensions: []uint32{2}},
			},
			Operations: []OperationSpec{{Type: "MUL", Inputs: []uint32{0, 1}, Outputs: []uint32{2}}},
			Inputs:     []uint32{0, 1},
			Outputs:    []uint32{2},
		},
		Examples: []ExampleSpec{{
			Inputs: []BufferSpec{
				{Index: 0, Type: "int32", Values: []float64{2, 3}},
				{Index: 1, Type: "int32", Values: []float64{4, 5}},
			},
			Outputs: []BufferSpec{{Index: 0, Type: "int32", Values: []float64{8, 15}}},
		}},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(f *File)
		fields []string
	}{
		{"valid", func(*File) {}, nil},
		{"missing name", func(f *File) { f.Name = "" }, []string{"name"}},
		{"negative tolerance", func(f *File) { f.Tolerance = &validate.Tolerance{Atol: -1} }, []string{"tolerance"}},
		{"unknown operand kind", func(f *File) { f.Model.Operands[0].Type = "int64" }, []string{"model.operands[0].type"}},
		{"no operations", func(f *File) { f.Model.Operations = nil }, []string{"model.operations"}},
		{"unknown operation", func(f *File) { f.Model.Operations[0].Type = "SUB" }, []string{"model.operations[0].type"}},
		{"operation index out of range", func(f *File) { f.Model.Operations[0].Outputs = []uint32{7} },
			[]string{"model.operations[0].outputs[0]"}},
		{"no outputs", func(f *File) { f.Model.Outputs = nil }, []string{"model.outputs", "examples[0].outputs[0].index"}},
		{"input index out of range", func(f *File) { f.Model.Inputs = []uint32{0, 9} }, []string{"model.inputs[1]"}},
		{"ignored output out of range", func(f *File) { f.IgnoredOutputs = []int{1} }, []string{"ignored_outputs[0]"}},
		{"no examples", func(f *File) { f.Examples = nil }, []string{"examples"}},
		{"buffer position out of range", func(f *File) { f.Examples[0].Inputs[1].Index = 2 }, []string{"examples[0].inputs[1].index"}},
		{"duplicate position", func(f *File) { f.Examples[0].Inputs[1].Index = 0 }, []string{"examples[0].inputs[1].index"}},
		{"kind differs from model", func(f *File) { f.Examples[0].Outputs[0].Type = "float32" }, []string{"examples[0].outputs[0].type"}},
		{"dims do not hold values", func(f *File) { f.Examples[0].Inputs[0].Dimensions = []uint32{3} }, []string{"examples[0].inputs[0]"}},
		{"model dims do not hold values", func(f *File) { f.Examples[0].Inputs[0].Values = []float64{1} }, []string{"examples[0].inputs[0]"}},
		{"non-integer value", func(f *File) { f.Examples[0].Inputs[0].Values[0] = 1.5 }, []string{"examples[0].inputs[0].values"}},
		{"value out of range", func(f *File) { f.Examples[0].Inputs[0].Values[0] = 1 << 40 }, []string{"examples[0].inputs[0].values"}},
		{"multinomial tolerance", func(f *File) { f.Examples[0].MultinomialTolerance = 1.5 }, []string{"examples[0].multinomial_tolerance"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := validFile()
			tt.mutate(f)

			var fields []string
			for _, err := range Validate(f) {
				var fe *FieldError
				require.ErrorAs(t, err, &fe)
				fields = append(fields, fe.Field)
			}
			assert.Equal(t, tt.fields, fields)
		})
	}
}

func TestCheckValues_Ranges(t *testing.T) {
	assert.NoError(t, checkValues(operand.Float32, []float64{1.5, -1e30}))
	assert.NoError(t, checkValues(operand.Quant8Asymm, []float64{0, 255}))
	assert.Error(t, checkValues(operand.Quant8Asymm, []float64{256}))
	assert.Error(t, checkValues(operand.Quant8Symm, []float64{-129}))
	assert.Error(t, checkValues(operand.Bool8, []float64{2}))
	assert.NoError(t, checkValues(operand.Quant16Asymm, []float64{65535}))

	err := checkValues(operand.Int32, []float64{0.5, 1, 3e9})
	require.Error(t, err)
	assert.Equal(t, 2, strings.Count(err.Error(), "\n")+1)
}

func TestBuild_EveryKind(t *testing.T) {
	f := validFile()
	var bufs []BufferSpec
	for i, k := range operand.Kinds() {
		bufs = append(bufs, BufferSpec{Index: i, Type: k.String(), Values: []float64{1}})
	}
	// Positions beyond the model's outputs are only reachable by bypassing
	// validation, so convert directly.
	c := collection(bufs)

	assert.Equal(t, []float32{1}, c.Float32[0])
	assert.Equal(t, []int32{1}, c.Int32[1])
	assert.Equal(t, []uint8{1}, c.Quant8Asymm[2])
	assert.Equal(t, []int16{1}, c.Quant16Symm[3])
	assert.Equal(t, float32(1), c.Float16[4][0].Float32())
	assert.Equal(t, []operand.Bool{1}, c.Bool8[5])
	assert.Equal(t, []int8{1}, c.Quant8SymmPerChannel[6])
	assert.Equal(t, []uint16{1}, c.Quant16Asymm[7])
	assert.Equal(t, []int8{1}, c.Quant8Symm[8])
	assert.Empty(t, c.Dimensions)

	tc, err := Build(f)
	require.NoError(t, err)
	assert.Equal(t, []int32{8, 15}, tc.Examples[0].Golden.Int32[0])
}

func TestBuild_JoinsAllErrors(t *testing.T) {
	f := validFile()
	f.Name = ""
	f.Examples[0].Inputs[0].Type = "nope"

	_, err := Build(f)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "name: is required")
	assert.Contains(t, err.Error(), `examples[0].inputs[0].type: unknown operand kind "nope"`)
}

func TestLoad_ReportsPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: bad\nmodel: {}\nexamples: []\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), path+": "), err.Error())
	assert.Contains(t, err.Error(), "model.operations: at least one operation is required")
}
