package cli

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"github.com/roach88/nnvts/internal/testcase"
)

// LoadError represents an error that occurred while locating or reading
// input files.
type LoadError struct {
	Code    string
	Message string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// FindTestCaseFiles expands paths into test-case files. Directories are
// walked for .yaml, .yml and .cue files; files are taken as given. The
// result is sorted and free of duplicates.
func FindTestCaseFiles(paths []string) ([]string, error) {
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if os.IsNotExist(err) {
			return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("path not found: %s", p)}
		}
		if err != nil {
			return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing %s: %v", p, err)}
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}

		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			if _, ferr := testcase.FormatOf(path); ferr == nil {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, &LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}
		}
	}

	slices.Sort(files)
	files = slices.Compact(files)
	if len(files) == 0 {
		return nil, &LoadError{Code: ErrCodeNoFiles, Message: "no test-case files found"}
	}
	return files, nil
}

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No test-case files found
	ErrCodeParseFailed = "E004" // YAML or CUE decode failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeWriteFailed = "E007" // File write error

	// Test-case validation errors
	ErrCodeInvalidField = "E101" // Field failed validation
	ErrCodeInvalidModel = "E102" // Model graph is inconsistent

	// Results errors
	ErrCodeNoDatabase  = "E201" // Results database missing
	ErrCodeStoreFailed = "E202" // Results database query failed
	ErrCodeRunNotFound = "E203" // No run matches the ID
)
