package wydecoder

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the tunables of a [Session].
type Config struct {
	// Maximum number of decoded frames an engine keeps ready ahead of
	// the consumer.
	QueueCapacity int `yaml:"queue_capacity"`

	// Span of stream time the backward engine decodes per step before
	// handing the frames out in reverse order.
	ReverseWindow time.Duration `yaml:"reverse_window"`

	// Draws the fixed debug rectangle on every RGB frame.
	DebugOverlay bool `yaml:"debug_overlay"`

	// SVG color keyword used for the debug rectangle, e.g. "cyan".
	DebugOverlayColor string `yaml:"debug_overlay_color"`

	LogLevel string `yaml:"log_level"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		QueueCapacity:     16,
		ReverseWindow:     time.Second,
		DebugOverlay:      false,
		DebugOverlayColor: "cyan",
		LogLevel:          "info",
	}
}

// LoadConfig reads a YAML file on top of [DefaultConfig] and validates it.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks that the configuration values are usable.
func (c Config) Validate() error {
	if c.QueueCapacity < 1 {
		return fmt.Errorf("%w: queue_capacity must be at least 1, got %d", ErrInvalidConfig, c.QueueCapacity)
	}
	if c.ReverseWindow <= 0 {
		return fmt.Errorf("%w: reverse_window must be positive, got %v", ErrInvalidConfig, c.ReverseWindow)
	}
	if _, ok := lookupOverlayColor(c.DebugOverlayColor); !ok {
		return fmt.Errorf("%w: unknown debug_overlay_color %q", ErrInvalidConfig, c.DebugOverlayColor)
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}
