package testcase

import (
	_ "embed"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

//go:embed schema.cue
var schemaSource string

// ParseCUE evaluates a CUE test case against the #TestCase schema and
// decodes it. The schema is closed, so unknown fields are rejected.
func ParseCUE(filename string, data []byte) (*File, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile test case schema: %w", err)
	}

	value := ctx.CompileBytes(data, cue.Filename(filename))
	if err := value.Err(); err != nil {
		return nil, fmt.Errorf("compile CUE: %w", err)
	}

	tc := schema.LookupPath(cue.ParsePath("#TestCase")).Unify(value)
	if err := tc.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("check CUE against schema: %w", err)
	}

	var f File
	if err := tc.Decode(&f); err != nil {
		return nil, fmt.Errorf("decode CUE: %w", err)
	}
	return &f, nil
}
