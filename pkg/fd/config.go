package fd

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// TrailConfig holds the thresholds that drive the trail's mode switches.
type TrailConfig struct {
	// ExplicitCutoff is the number of distinct changes a level may list
	// explicitly before it switches to a hole list.
	ExplicitCutoff int `yaml:"explicit_cutoff"`
	// FullCutoff is the number of changes after which a level stops
	// tracking and treats every variable as changed.
	FullCutoff int `yaml:"full_cutoff"`
	// MaxHoles bounds the number of holes a level keeps.
	MaxHoles int `yaml:"max_holes"`
	// MinHoleWidth is the narrowest index range kept as a hole.
	MinHoleWidth int `yaml:"min_hole_width"`
}

// Config configures a Store.
type Config struct {
	// Queues is the number of propagation queues. Constraint queue indices
	// are clamped to [0, Queues-1].
	Queues int `yaml:"queues"`
	// Trail tunes change recording.
	Trail TrailConfig `yaml:"trail"`
	// CheckInvariants makes SetLevel and RemoveLevel verify the store after
	// every call. It is meant for tests.
	CheckInvariants bool `yaml:"check_invariants"`
}

// DefaultConfig returns the configuration NewStore uses when none is given.
func DefaultConfig() *Config {
	return &Config{
		Queues: 5,
		Trail: TrailConfig{
			ExplicitCutoff: 10,
			FullCutoff:     1000,
			MaxHoles:       10,
			MinHoleWidth:   10,
		},
	}
}

// Validate reports the first invalid setting, wrapped in ErrInvalidConfig.
func (c *Config) Validate() error {
	switch {
	case c.Queues < 1:
		return fmt.Errorf("%w: queues must be at least 1, got %d", ErrInvalidConfig, c.Queues)
	case c.Trail.ExplicitCutoff < 0:
		return fmt.Errorf("%w: trail.explicit_cutoff must not be negative, got %d", ErrInvalidConfig, c.Trail.ExplicitCutoff)
	case c.Trail.FullCutoff < c.Trail.ExplicitCutoff:
		return fmt.Errorf("%w: trail.full_cutoff %d is below trail.explicit_cutoff %d",
			ErrInvalidConfig, c.Trail.FullCutoff, c.Trail.ExplicitCutoff)
	case c.Trail.MaxHoles < 1:
		return fmt.Errorf("%w: trail.max_holes must be at least 1, got %d", ErrInvalidConfig, c.Trail.MaxHoles)
	case c.Trail.MinHoleWidth < 1:
		return fmt.Errorf("%w: trail.min_hole_width must be at least 1, got %d", ErrInvalidConfig, c.Trail.MinHoleWidth)
	}
	return nil
}

// ParseConfig decodes YAML on top of DefaultConfig, so absent keys keep
// their defaults.
func ParseConfig(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing store config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfig reads a YAML configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading store config: %w", err)
	}
	return ParseConfig(data)
}

// Option customizes a Store.
type Option func(*Store)

// WithConfig replaces the default configuration. A nil config is ignored.
func WithConfig(cfg *Config) Option {
	return func(s *Store) {
		if cfg != nil {
			s.cfg = *cfg
		}
	}
}

// WithLogger sets the logger. The store adds component=fd.store.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMonitor attaches a monitor that collects propagation statistics.
func WithMonitor(m *Monitor) Option {
	return func(s *Store) {
		s.monitor = m
	}
}
