package server

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/mwantia/memobox/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestConfigGenerate(t *testing.T) {
	dir := t.TempDir()

	cmd := NewConfigCommand()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetArgs([]string{"generate", "--output", dir})
	require.NoError(t, cmd.Execute())

	data, err := os.ReadFile(filepath.Join(dir, "config.yaml"))
	require.NoError(t, err)

	var cfg config.BaseConfig
	require.NoError(t, yaml.Unmarshal(data, &cfg))
	assert.Equal(t, config.GetDefault(), cfg)
	assert.Contains(t, out.String(), "Generated")
}

func TestConfigGenerate_KeepsExistingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: DEBUG\n"), 0644))

	cmd := NewConfigCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"generate", "--output", dir})
	require.NoError(t, cmd.Execute())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "log:\n  level: DEBUG\n", string(data))
}
