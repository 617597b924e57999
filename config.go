package pool

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the runtime-mutable pool configuration from §3. Zero values
// are not valid on their own; use DefaultConfig and override individual
// fields, the same way the teacher's DefaultConnectionPoolConfig works.
type Config struct {
	// MaxActive is the hard cap on total connections. Must be >= 1.
	MaxActive int `json:"max_active" yaml:"max_active"`
	// MinActive is the number of warm connections to maintain. Must be
	// >= 0 and is clamped to MaxActive.
	MinActive int `json:"min_active" yaml:"min_active"`
	// MaxWaitTime bounds how long Borrow waits for a connection. Zero
	// disables the timeout (wait indefinitely).
	MaxWaitTime time.Duration `json:"max_wait_time" yaml:"max_wait_time"`
	// ValidationInterval is the validator's sweep period. Zero disables
	// the validator entirely.
	ValidationInterval time.Duration `json:"validation_interval" yaml:"validation_interval"`
	// MaxIdleTime is the idle-eviction threshold. Zero disables idle
	// eviction.
	MaxIdleTime time.Duration `json:"max_idle_time" yaml:"max_idle_time"`
	// MaxLifeTime is the age-eviction threshold. Zero disables life
	// eviction.
	MaxLifeTime time.Duration `json:"max_life_time" yaml:"max_life_time"`
	// TestOnBorrow drops a dead connection discovered during Borrow and
	// substitutes a fresh one.
	TestOnBorrow bool `json:"test_on_borrow" yaml:"test_on_borrow"`
	// TestOnReturn drops a dead connection discovered during Return.
	TestOnReturn bool `json:"test_on_return" yaml:"test_on_return"`
	// ResetConnections calls Conn.Reset (if implemented) on every borrow
	// that hands out an idle connection; freshly created connections are
	// not reset.
	ResetConnections bool `json:"reset_connections" yaml:"reset_connections"`
}

// DefaultConfig returns the defaults from §3's configuration table.
func DefaultConfig() Config {
	return Config{
		MaxActive:          2,
		MinActive:          0,
		MaxWaitTime:        5 * time.Second,
		ValidationInterval: 5 * time.Second,
		MaxIdleTime:        60 * time.Second,
		MaxLifeTime:        0,
		TestOnBorrow:       true,
		TestOnReturn:       true,
		ResetConnections:   false,
	}
}

func (c Config) validate() error {
	if c.MaxActive < 1 {
		return fmt.Errorf("%w: max_active must be >= 1, got %d", ErrInvalidConfig, c.MaxActive)
	}
	if c.MinActive < 0 {
		return fmt.Errorf("%w: min_active must be >= 0, got %d", ErrInvalidConfig, c.MinActive)
	}
	if c.MaxWaitTime < 0 {
		return fmt.Errorf("%w: max_wait_time must be >= 0, got %s", ErrInvalidConfig, c.MaxWaitTime)
	}
	if c.ValidationInterval < 0 {
		return fmt.Errorf("%w: validation_interval must be >= 0, got %s", ErrInvalidConfig, c.ValidationInterval)
	}
	if c.MaxIdleTime < 0 {
		return fmt.Errorf("%w: max_idle_time must be >= 0, got %s", ErrInvalidConfig, c.MaxIdleTime)
	}
	if c.MaxLifeTime < 0 {
		return fmt.Errorf("%w: max_life_time must be >= 0, got %s", ErrInvalidConfig, c.MaxLifeTime)
	}
	return nil
}

// LoadConfigYAML decodes a Config from YAML, starting from DefaultConfig so
// that an on-disk config only needs to mention the fields it overrides.
func LoadConfigYAML(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("pool: decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ToYAML encodes the configuration, e.g. for diagnostics or persisting an
// effective config alongside the pool's logs.
func (c Config) ToYAML() ([]byte, error) {
	out, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("pool: encode config: %w", err)
	}
	return out, nil
}
