package cmd

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckRequiresAllOrFiles(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	rootCmd.SetOut(io.Discard)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs([]string{"check", "--dir", t.TempDir(), "--out", t.TempDir()})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	err := rootCmd.Execute()
	assert.ErrorContains(t, err, "[all files] is required")
}
