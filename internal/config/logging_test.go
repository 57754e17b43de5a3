package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupLogFile_KeepsNewest(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"scorelib-2024-01-01T00-00-00.000.log", "scorelib-2024-01-02T00-00-00.000.log", "other.log"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}

	f, err := SetupLogFile(dir, 2)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	logs, err := filepath.Glob(filepath.Join(dir, "scorelib-*.log"))
	require.NoError(t, err)
	assert.Len(t, logs, 2)
	assert.NotContains(t, logs, filepath.Join(dir, "scorelib-2024-01-01T00-00-00.000.log"))
	assert.FileExists(t, filepath.Join(dir, "other.log"))
}
