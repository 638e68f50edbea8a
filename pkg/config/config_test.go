package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/chazu/armature/pkg/config"
)

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, config.Default().Validate())
}

func TestParseOverridesDefaults(t *testing.T) {
	cfg, err := config.Parse([]byte(`
[editor]
joint_radius = 0.5

[keys]
grab = "T"

[files]
structure = "walker.yaml"
`))
	require.NoError(t, err)
	assert.Equal(t, float32(0.5), cfg.Editor.JointRadius)
	assert.Equal(t, float32(0.01), cfg.Editor.ExtendSpeed, "unset values keep defaults")
	assert.Equal(t, "T", cfg.Keys.Grab)
	assert.Equal(t, "R", cfg.Keys.Rotate)
	assert.Equal(t, "walker.yaml", cfg.Files.Structure)
}

func TestParseRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"negative radius", "[editor]\njoint_radius = -1\n", "joint_radius must be positive"},
		{"duplicate binding", "[keys]\ngrab = \"R\"\n", "bound to both grab and rotate"},
		{"empty binding", "[keys]\nsave = \"\"\n", "keys.save is empty"},
		{"bad encoding", "[log]\nencoding = \"xml\"\n", "log.encoding"},
		{"malformed", "[editor\n", "decode"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.Parse([]byte(tt.src))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadMissingFileGivesDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestEncodeRoundTrip(t *testing.T) {
	cfg := config.Default()
	cfg.Keys.Save = "F5"
	data, err := cfg.Encode()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "armature.toml")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	got, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestNewLogger(t *testing.T) {
	l, err := config.NewLogger(config.LogConfig{Level: "warn", Encoding: "json"}, false)
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, l.Core().Enabled(zapcore.WarnLevel))

	l, err = config.NewLogger(config.LogConfig{Level: "warn"}, true)
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zapcore.DebugLevel))

	_, err = config.NewLogger(config.LogConfig{Level: "loud"}, false)
	assert.Error(t, err)
}
