package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/nnvts/internal/testcase"
)

// ValidationError is one problem found in a test-case file.
type ValidationError struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// FileResult is the validation outcome of one file.
type FileResult struct {
	Path     string            `json:"path"`
	Name     string            `json:"name,omitempty"`
	Valid    bool              `json:"valid"`
	Examples int               `json:"examples"`
	Digest   string            `json:"digest,omitempty"`
	Errors   []ValidationError `json:"errors,omitempty"`
}

// ValidationResult holds validation results for every file.
type ValidationResult struct {
	Valid bool         `json:"valid"`
	Files []FileResult `json:"files"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <path>...",
		Short: "Validate golden test-case files",
		Long: `Validate YAML and CUE test-case files without running them.

Each path may be a file or a directory; directories are searched for
.yaml, .yml and .cue files. Every file is decoded strictly and checked
for known operand kinds, consistent model indexes and buffers whose
dimensions match their values.

Exit codes:
  0 - All files valid
  1 - One or more files invalid
  2 - Command error (missing paths, no files)

Examples:
  nnvts validate ./testcases
  nnvts validate add.yaml mul.cue --format json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, paths []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	files, err := FindTestCaseFiles(paths)
	if err != nil {
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			return outputValidateError(formatter, loadErr.Code, loadErr.Message)
		}
		return outputValidateError(formatter, ErrCodeGeneric, err.Error())
	}
	formatter.VerboseLog("Found %d test-case file(s)", len(files))

	result := ValidationResult{Valid: true, Files: make([]FileResult, 0, len(files))}
	for _, path := range files {
		formatter.VerboseLog("Validating %s", path)
		fr := validateFile(path)
		result.Valid = result.Valid && fr.Valid
		result.Files = append(result.Files, fr)
	}

	if !result.Valid {
		return outputValidationErrors(formatter, result)
	}
	return outputValidateSuccess(formatter, result)
}

// validateFile reads, validates and builds one file, collecting every
// problem it can find.
func validateFile(path string) FileResult {
	fr := FileResult{Path: path}

	f, err := testcase.Read(path)
	if err != nil {
		fr.Errors = []ValidationError{{Message: err.Error(), Code: ErrCodeParseFailed}}
		return fr
	}
	fr.Name = f.Name
	fr.Examples = len(f.Examples)

	for _, err := range testcase.Validate(f) {
		var fe *testcase.FieldError
		if errors.As(err, &fe) {
			fr.Errors = append(fr.Errors, ValidationError{Field: fe.Field, Message: fe.Message, Code: ErrCodeInvalidField})
			continue
		}
		fr.Errors = append(fr.Errors, ValidationError{Message: err.Error(), Code: ErrCodeGeneric})
	}
	if len(fr.Errors) > 0 {
		return fr
	}

	tc, err := testcase.Build(f)
	if err != nil {
		fr.Errors = []ValidationError{{Field: "model", Message: err.Error(), Code: ErrCodeInvalidModel}}
		return fr
	}
	fr.Digest = tc.Digest
	fr.Valid = true
	return fr
}

// outputValidateSuccess outputs the all-valid result.
func outputValidateSuccess(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.JSON() {
		return formatter.Success(result)
	}

	for _, fr := range result.Files {
		formatter.Textf("✓ %s: %s (%d examples)", fr.Path, fr.Name, fr.Examples)
	}
	formatter.Textf("✓ All %d test cases valid", len(result.Files))
	return nil
}

// outputValidateError outputs a single command-level error.
func outputValidateError(formatter *OutputFormatter, code, message string) error {
	_ = formatter.Error(code, message, nil)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// outputValidationErrors outputs per-file results when any file failed.
func outputValidationErrors(formatter *OutputFormatter, result ValidationResult) error {
	var first *ValidationError
	invalid := 0
	for i := range result.Files {
		fr := &result.Files[i]
		if fr.Valid {
			continue
		}
		invalid++
		if first == nil {
			first = &fr.Errors[0]
		}
	}

	if formatter.JSON() {
		response := CLIResponse{
			Status: "error",
			Data:   result,
			Error: &CLIError{
				Code:    first.Code,
				Message: first.Message,
			},
		}

		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}
	} else {
		for _, fr := range result.Files {
			if fr.Valid {
				formatter.Textf("✓ %s: %s (%d examples)", fr.Path, fr.Name, fr.Examples)
				continue
			}
			formatter.Textf("✗ %s", fr.Path)
			for _, e := range fr.Errors {
				if e.Field != "" {
					formatter.Textf("    [%s] %s: %s", e.Code, e.Field, e.Message)
				} else {
					formatter.Textf("    [%s] %s", e.Code, e.Message)
				}
			}
		}
		formatter.Textf("%d of %d test cases invalid", invalid, len(result.Files))
	}

	// Validation failures = exit code 1 (test/validation failure)
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed in %d file(s)", invalid))
}
