package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a-delannoy/yaani/internal/transform"
)

func execute(args ...string) (string, string, error) {
	cmd := newRootCmd(transform.NewRegistry())
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestRootCmd(t *testing.T) {
	t.Run("help", func(t *testing.T) {
		stdout, _, err := execute("--help")
		require.NoError(t, err)
		assert.Contains(t, stdout, "--list")
		assert.Contains(t, stdout, "--host")
	})

	t.Run("unknown flag", func(t *testing.T) {
		_, _, err := execute("--frobnicate")
		assert.Error(t, err)
	})

	t.Run("invalid log level", func(t *testing.T) {
		_, _, err := execute("--log-level", "loud")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "log-level")
	})

	t.Run("no mode prints an empty mapping", func(t *testing.T) {
		stdout, _, err := execute()
		require.NoError(t, err)
		assert.Equal(t, "{}\n", stdout)
	})
}
