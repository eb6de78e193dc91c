package fd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 5, cfg.Queues)
	assert.Equal(t, TrailConfig{ExplicitCutoff: 10, FullCutoff: 1000, MaxHoles: 10, MinHoleWidth: 10}, cfg.Trail)
	assert.False(t, cfg.CheckInvariants)
}

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig([]byte(`
queues: 3
trail:
  explicit_cutoff: 4
  max_holes: 2
check_invariants: true
`))
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Queues)
	assert.Equal(t, 4, cfg.Trail.ExplicitCutoff)
	assert.Equal(t, 2, cfg.Trail.MaxHoles)
	assert.Equal(t, 1000, cfg.Trail.FullCutoff, "absent keys keep their defaults")
	assert.True(t, cfg.CheckInvariants)
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		msg    string
	}{
		{"no queues", func(c *Config) { c.Queues = 0 }, "queues"},
		{"negative explicit cutoff", func(c *Config) { c.Trail.ExplicitCutoff = -1 }, "explicit_cutoff"},
		{"full below explicit", func(c *Config) { c.Trail.FullCutoff = 5 }, "full_cutoff"},
		{"no holes", func(c *Config) { c.Trail.MaxHoles = 0 }, "max_holes"},
		{"zero hole width", func(c *Config) { c.Trail.MinHoleWidth = 0 }, "min_hole_width"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.ErrorIs(t, err, ErrInvalidConfig)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestParseConfigErrors(t *testing.T) {
	_, err := ParseConfig([]byte("queues: [1, 2"))
	assert.ErrorContains(t, err, "parsing store config")

	_, err = ParseConfig([]byte("queues: 0"))
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.yaml")
	require.NoError(t, os.WriteFile(path, []byte("queues: 2\n"), 0o644))
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Queues)

	s := NewStore(WithConfig(cfg))
	assert.Equal(t, 2, s.Config().Queues)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.ErrorContains(t, err, "reading store config")
}

func TestVersionInfo(t *testing.T) {
	info := GetVersionInfo("abc123", "2024-01-01")
	assert.Equal(t, Version, info.Version)
	assert.Equal(t, "abc123", info.GitCommit)
	assert.NotEmpty(t, info.GoVersion)
}
