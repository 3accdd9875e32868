package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunReturnsStartupErrors(t *testing.T) {
	// A regular file where the data directory should be.
	blocker := filepath.Join(t.TempDir(), "data")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))
	t.Setenv("DB_PATH", filepath.Join(blocker, "app.db"))

	err := run(false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open database")
}

func TestGetEnvInt(t *testing.T) {
	t.Setenv("COLORGUESS_TEST_INT", "42")
	assert.Equal(t, 42, getEnvInt("COLORGUESS_TEST_INT", 7))
	t.Setenv("COLORGUESS_TEST_INT", "nope")
	assert.Equal(t, 7, getEnvInt("COLORGUESS_TEST_INT", 7))
}
