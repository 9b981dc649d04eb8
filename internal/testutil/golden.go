package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// UpdateGoldenEnv, when set, rewrites golden files instead of comparing.
const UpdateGoldenEnv = "GOLDEN_UPDATE"

// GoldenPath returns the location of the named golden file.
func GoldenPath(name string) string {
	return filepath.Join("testdata", name+".golden")
}

// Golden compares got with testdata/<name>.golden.
func Golden(t *testing.T, name string, got []byte) {
	t.Helper()
	path := GoldenPath(name)

	if os.Getenv(UpdateGoldenEnv) != "" {
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, got, 0644))
		return
	}

	want, err := os.ReadFile(path)
	require.NoError(t, err, "read golden file (run with %s=1 to create it)", UpdateGoldenEnv)
	assert.Equal(t, string(want), string(got), "output mismatch for %s", path)
}

// GoldenString is like Golden but takes a string.
func GoldenString(t *testing.T, name string, got string) {
	t.Helper()
	Golden(t, name, []byte(got))
}
