package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "nnvts", cmd.Use)
	assert.Contains(t, cmd.Long, "go test")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := [][]string{
		{"validate"},
		{"results"},
		{"results", "list"},
		{"results", "show"},
		{"results", "export"},
	}

	for _, path := range commands {
		name := path[len(path)-1]
		t.Run(name, func(t *testing.T) {
			subCmd, _, err := cmd.Find(path)
			require.NoError(t, err, "Command %v should exist", path)
			require.NotNil(t, subCmd)
			assert.Equal(t, name, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	dbFlag := cmd.PersistentFlags().Lookup("db")
	require.NotNil(t, dbFlag)
	assert.Equal(t, DefaultDatabase, dbFlag.DefValue)
}

func TestResultsCommandFlags(t *testing.T) {
	cmd := NewRootCommand()

	listCmd, _, err := cmd.Find([]string{"results", "list"})
	require.NoError(t, err)
	for _, name := range []string{"name", "failed", "limit"} {
		assert.NotNil(t, listCmd.Flags().Lookup(name), "list should have --%s", name)
	}

	exportCmd, _, err := cmd.Find([]string{"results", "export"})
	require.NoError(t, err)
	outputFlag := exportCmd.Flags().Lookup("output")
	require.NotNil(t, outputFlag)
	assert.Equal(t, "o", outputFlag.Shorthand)
}

func TestInvalidFormatRejected(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"validate", "--format", "xml", "."})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "invalid format")
}

func TestNewLoggerLevel(t *testing.T) {
	buf := &bytes.Buffer{}
	newLogger(&RootOptions{}, buf).Debug("hidden")
	assert.Empty(t, buf.String())

	newLogger(&RootOptions{Verbose: true}, buf).Debug("shown", "k", 1)
	assert.Contains(t, buf.String(), "msg=shown k=1")
}
