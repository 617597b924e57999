package pool

import (
	"errors"
	"testing"
)

func TestDefaultConfigValidates(t *testing.T) {
	if err := DefaultConfig().validate(); err != nil {
		t.Errorf("DefaultConfig().validate() = %v, want nil", err)
	}
}

func TestConfigValidateRejectsOutOfRange(t *testing.T) {
	base := DefaultConfig()

	cases := []func(*Config){
		func(c *Config) { c.MaxActive = 0 },
		func(c *Config) { c.MinActive = -1 },
		func(c *Config) { c.MaxWaitTime = -1 },
		func(c *Config) { c.ValidationInterval = -1 },
		func(c *Config) { c.MaxIdleTime = -1 },
		func(c *Config) { c.MaxLifeTime = -1 },
	}

	for i, mutate := range cases {
		cfg := base
		mutate(&cfg)
		if err := cfg.validate(); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("case %d: validate() = %v, want ErrInvalidConfig", i, err)
		}
	}
}

func TestLoadConfigYAMLOverridesDefaults(t *testing.T) {
	yamlDoc := []byte("max_active: 10\nmin_active: 3\n")
	cfg, err := LoadConfigYAML(yamlDoc)
	if err != nil {
		t.Fatalf("LoadConfigYAML: %v", err)
	}
	if cfg.MaxActive != 10 {
		t.Errorf("MaxActive = %d, want 10", cfg.MaxActive)
	}
	if cfg.MinActive != 3 {
		t.Errorf("MinActive = %d, want 3", cfg.MinActive)
	}
	if cfg.MaxIdleTime != DefaultConfig().MaxIdleTime {
		t.Errorf("MaxIdleTime = %s, want unchanged default %s", cfg.MaxIdleTime, DefaultConfig().MaxIdleTime)
	}
}

func TestLoadConfigYAMLRejectsInvalid(t *testing.T) {
	if _, err := LoadConfigYAML([]byte("max_active: -1\n")); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("LoadConfigYAML error = %v, want ErrInvalidConfig", err)
	}
}

func TestConfigRoundTripsThroughYAML(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxActive = 7

	data, err := cfg.ToYAML()
	if err != nil {
		t.Fatalf("ToYAML: %v", err)
	}
	got, err := LoadConfigYAML(data)
	if err != nil {
		t.Fatalf("LoadConfigYAML: %v", err)
	}
	if got.MaxActive != cfg.MaxActive {
		t.Errorf("round-tripped MaxActive = %d, want %d", got.MaxActive, cfg.MaxActive)
	}
}
