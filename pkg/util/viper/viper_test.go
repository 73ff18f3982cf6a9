package viper

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lk2023060901/serde-go/pkg/util/merr"
)

type compressionConfig struct {
	Enable  bool `mapstructure:"enable"`
	MinSize int  `mapstructure:"min-size"`
}

type frameConfig struct {
	Format      string            `mapstructure:"format"`
	Compression compressionConfig `mapstructure:"compression"`
}

func writeFile(t *testing.T, name, content string) string {
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadFile(t *testing.T) {
	yamlPath := writeFile(t, "codec.yml", "format: binary\ncompression:\n  enable: true\n  min-size: 32\n")
	jsonPath := writeFile(t, "codec.JSON", `{"format":"text","compression":{"min-size":8}}`)

	for path, want := range map[string]string{yamlPath: "binary", jsonPath: "text"} {
		var cfg frameConfig
		require.NoError(t, Load(path, &cfg))
		assert.Equal(t, want, cfg.Format)
	}

	c := New()
	require.NoError(t, c.LoadFile(yamlPath))
	var comp compressionConfig
	require.NoError(t, c.UnmarshalKey("compression", &comp))
	assert.True(t, comp.Enable)
	assert.Equal(t, 32, comp.MinSize)

	comp = compressionConfig{MinSize: 7}
	require.NoError(t, c.UnmarshalKey("encryption", &comp))
	assert.Equal(t, 7, comp.MinSize)
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	var cfg frameConfig

	err := Load(filepath.Join(dir, "missing.yaml"), &cfg)
	assert.ErrorIs(t, err, merr.ErrParameterInvalid)

	err = Load(writeFile(t, "codec.toml", "format = \"binary\"\n"), &cfg)
	assert.ErrorIs(t, err, merr.ErrParameterInvalid)

	err = Load(writeFile(t, "broken.json", `{"format":`), &cfg)
	assert.ErrorIs(t, err, merr.ErrParameterInvalid)

	err = Load(writeFile(t, "typed.yaml", "compression:\n  min-size: [1, 2]\n"), &cfg)
	assert.ErrorIs(t, err, merr.ErrParameterInvalid)

	var empty Config
	assert.ErrorIs(t, empty.Unmarshal(&cfg), merr.ErrParameterInvalid)
	assert.ErrorIs(t, New().UnmarshalKey("format", &cfg), merr.ErrParameterInvalid)
}

func TestEnvOverride(t *testing.T) {
	path := writeFile(t, "codec.yaml", "format: binary\ncompression:\n  min-size: 32\n")
	t.Setenv("SERDE_FORMAT", "text")
	t.Setenv("SERDE_COMPRESSION_MIN_SIZE", "64")

	var cfg frameConfig
	require.NoError(t, Load(path, &cfg))
	assert.Equal(t, "text", cfg.Format)
	assert.Equal(t, 64, cfg.Compression.MinSize)
}
