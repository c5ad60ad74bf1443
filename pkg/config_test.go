package pkg

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"cuisine/pkg/model"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()
	require.NoError(t, config.Validate())

	params := config.Params()
	require.Equal(t, 200, params.Trees)
	require.Equal(t, 0.2, params.TestRatio)
	require.Equal(t, uint64(42), params.Seed)
	require.Equal(t, ',', params.Load.Comma)
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cuisine.yaml")
	require.NoError(t, os.WriteFile(path, []byte("trees: 80\ntest_ratio: 0.3\ndelimiter: \";\"\nencoding: latin-1\n"), 0o600))

	config, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, 80, config.Trees)
	require.Equal(t, 0.3, config.TestRatio)
	require.Equal(t, uint64(model.DefaultSeed), config.Seed)
	require.Equal(t, "Dataset.csv", config.DataFile)

	opts := config.LoadOptions()
	require.Equal(t, ';', opts.Comma)
	require.Equal(t, "latin-1", opts.Encoding)
}

func TestLoadConfigErrors(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		content string
		invalid bool
	}{
		{name: "bad ratio", content: "test_ratio: 1.5\n", invalid: true},
		{name: "no trees", content: "trees: 0\n", invalid: true},
		{name: "long delimiter", content: "delimiter: \"::\"\n", invalid: true},
		{name: "not yaml", content: "trees: [1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name+".yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o600))
			_, err := LoadConfig(path)
			require.Error(t, err)
			require.Equal(t, tt.invalid, errors.Is(err, model.ErrInvalidParameter))
		})
	}

	_, err := LoadConfig(filepath.Join(dir, "missing.yaml"))
	require.True(t, errors.Is(err, os.ErrNotExist))
}
