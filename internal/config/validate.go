// internal/config/validate.go
package config

import (
	"fmt"

	"DAQ-Lab/DLPIO8/internal/globals"
	"DAQ-Lab/DLPIO8/internal/logger"
)

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	// ------------------------------------------------------------
	// DEVICE
	// ------------------------------------------------------------

	if cfg.Device.Port == "" {
		return fmt.Errorf("device.port is required")
	}
	if cfg.Device.BaudRate <= 0 {
		return fmt.Errorf("device.baud_rate must be > 0, got %d", cfg.Device.BaudRate)
	}
	if cfg.Device.ReadTimeout <= 0 {
		return fmt.Errorf("device.read_timeout must be > 0, got %s", cfg.Device.ReadTimeout)
	}

	// ------------------------------------------------------------
	// SAMPLING
	// ------------------------------------------------------------

	if cfg.Sampling.RateHz <= 0 {
		return fmt.Errorf("sampling.rate_hz must be > 0, got %v", cfg.Sampling.RateHz)
	}
	if len(cfg.Sampling.Channels) == 0 {
		return fmt.Errorf("sampling.channels: at least one channel required")
	}

	seen := make(map[int]bool)
	for _, ch := range cfg.Sampling.Channels {
		if !globals.ValidChannel(ch) {
			return fmt.Errorf(
				"sampling.channels: channel %d outside %d-%d",
				ch,
				globals.MIN_CHANNEL,
				globals.MAX_CHANNEL,
			)
		}
		if seen[ch] {
			return fmt.Errorf("sampling.channels: channel %d listed twice", ch)
		}
		seen[ch] = true
	}

	// ------------------------------------------------------------
	// CALIBRATION
	// ------------------------------------------------------------

	if cfg.Calibration.Apply && cfg.Calibration.Scale == 0 {
		return fmt.Errorf("calibration.scale must be non-zero when calibration.apply is set")
	}

	// ------------------------------------------------------------
	// LOGGING
	// ------------------------------------------------------------

	if _, err := logger.ParseLevel(cfg.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}

	// ------------------------------------------------------------
	// SINKS (OPT-IN)
	// ------------------------------------------------------------

	if cfg.Metrics.Enabled && cfg.Metrics.Addr == "" {
		return fmt.Errorf("metrics.addr is required when metrics are enabled")
	}

	if cfg.Redis.Enabled {
		if cfg.Redis.Addr == "" {
			return fmt.Errorf("redis.addr is required when redis is enabled")
		}
		if cfg.Redis.Channel == "" {
			return fmt.Errorf("redis.channel is required when redis is enabled")
		}
	}

	if cfg.Influx.Enabled {
		for name, v := range map[string]string{
			"url":         cfg.Influx.URL,
			"org":         cfg.Influx.Org,
			"bucket":      cfg.Influx.Bucket,
			"measurement": cfg.Influx.Measurement,
		} {
			if v == "" {
				return fmt.Errorf("influx.%s is required when influx is enabled", name)
			}
		}
	}

	return nil
}
