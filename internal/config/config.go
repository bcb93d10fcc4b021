// internal/config/config.go
package config

import (
	"os"
	"time"

	"DAQ-Lab/DLPIO8/internal/globals"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Device      DeviceConfig      `yaml:"device"`
	Calibration CalibrationConfig `yaml:"calibration"`
	Sampling    SamplingConfig    `yaml:"sampling"`
	Log         LogConfig         `yaml:"log"`
	Metrics     MetricsConfig     `yaml:"metrics"`
	Redis       RedisConfig       `yaml:"redis"`
	Influx      InfluxConfig      `yaml:"influx"`
}

// ---- DEVICE ----

type DeviceConfig struct {
	Port        string        `yaml:"port"`
	BaudRate    int           `yaml:"baud_rate"`
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// not validated: the session falls back to ASCII / degF with a warning
	OutputMode string `yaml:"output_mode"`
	TempUnit   string `yaml:"temp_unit"`
}

// ---- CALIBRATION ----

// Applied to voltage reads only when Apply is true
type CalibrationConfig struct {
	Offset float64 `yaml:"offset"`
	Scale  float64 `yaml:"scale"`
	Apply  bool    `yaml:"apply"`
}

// ---- SAMPLING ----

type SamplingConfig struct {
	RateHz   float64 `yaml:"rate_hz"`
	Channels []int   `yaml:"channels"`
	LogDir   string  `yaml:"log_dir"`
}

// ---- LOGGING ----

type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// ---- SINKS ----

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Channel  string `yaml:"channel"`
}

type InfluxConfig struct {
	Enabled     bool   `yaml:"enabled"`
	URL         string `yaml:"url"`
	Token       string `yaml:"token"`
	Org         string `yaml:"org"`
	Bucket      string `yaml:"bucket"`
	Measurement string `yaml:"measurement"`
}

// Default returns a config that runs a single channel at 1 Hz on /dev/ttyUSB0
func Default() *Config {
	return &Config{
		Device: DeviceConfig{
			Port:        "/dev/ttyUSB0",
			BaudRate:    globals.BAUD_RATE,
			ReadTimeout: 1 * time.Second,
			OutputMode:  "B",
			TempUnit:    "F",
		},
		Calibration: CalibrationConfig{
			Offset: 0.0,
			Scale:  1.0,
		},
		Sampling: SamplingConfig{
			RateHz:   1,
			Channels: []int{1},
			LogDir:   ".",
		},
		Log: LogConfig{
			Level: "info",
			File:  "DLPIO8.logs",
		},
		Metrics: MetricsConfig{
			Addr: ":9108",
		},
		Redis: RedisConfig{
			Addr:    "localhost:6379",
			Channel: "dlpio8_samples",
		},
		Influx: InfluxConfig{
			URL:         "http://localhost:8086",
			Measurement: "dlpio8",
		},
	}
}

// Load reads a YAML file on top of the defaults
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read config %s", path)
	}
	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config")
	}
	return cfg, nil
}
