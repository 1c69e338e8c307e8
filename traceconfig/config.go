// Package traceconfig loads and validates the tunable knobs of the
// fueled spine and its merge batcher: the effort multiplier, the batcher
// chunk capacity, and the telemetry endpoints, from defaults, a YAML file,
// and the environment: the file overrides the defaults, and environment
// variables override both.
package traceconfig

import (
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"

	"github.com/Sumatoshi-tech/tracelib/pkg/safeconv"
)

// Sentinel errors for configuration validation.
var (
	ErrZeroEffort           = errors.New("spine effort must be at least 1")
	ErrInvalidChunkCapacity = errors.New("invalid batcher chunk capacity")
)

// Defaults applied by Load before any file or environment override.
const (
	// DefaultEffort is the spine effort multiplier: at effort 1 each
	// inserted batch pays eight units of merge fuel per update of its
	// layer's capacity.
	DefaultEffort = 1

	// DefaultChunkCapacity is the batcher chunk target in humanize
	// format (8 KiB).
	DefaultChunkCapacity = "8KiB"
)

// Config is the top-level configuration struct.
// Field tags use mapstructure for viper unmarshalling.
type Config struct {
	Spine     SpineConfig     `mapstructure:"spine"`
	Batcher   BatcherConfig   `mapstructure:"batcher"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// SpineConfig holds the spine maintenance knobs.
type SpineConfig struct {
	// Effort is the fuel multiplier applied per inserted batch.
	Effort uint `mapstructure:"effort"`
}

// BatcherConfig holds the merge-batcher sizing knobs.
type BatcherConfig struct {
	// ChunkCapacity is the target byte capacity of one sorted chunk, in
	// humanize format (e.g. "8KiB", "64KB").
	ChunkCapacity string `mapstructure:"chunk_capacity"`
}

// TelemetryConfig holds the exporter endpoints for tracemetrics.Init.
type TelemetryConfig struct {
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	OTLPInsecure bool   `mapstructure:"otlp_insecure"`
	LogJSON      bool   `mapstructure:"log_json"`
}

// Validate checks the configuration for contract violations.
func (c *Config) Validate() error {
	if c.Spine.Effort == 0 {
		return ErrZeroEffort
	}

	if _, err := c.Batcher.ChunkCapacityBytes(); err != nil {
		return err
	}

	return nil
}

// ChunkCapacityBytes parses ChunkCapacity into a byte count.
func (b *BatcherConfig) ChunkCapacityBytes() (int, error) {
	if b.ChunkCapacity == "" {
		return 0, nil
	}

	parsed, err := humanize.ParseBytes(b.ChunkCapacity)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %w", ErrInvalidChunkCapacity, b.ChunkCapacity, err)
	}

	return safeconv.SafeInt(parsed), nil
}
