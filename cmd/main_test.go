package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"DAQ-Lab/DLPIO8/internal/config"
	"DAQ-Lab/DLPIO8/internal/sampler"

	"go.uber.org/zap/zaptest"
)

func TestParseSampleArgs(t *testing.T) {
	var cfg config.SamplingConfig
	if err := parseSampleArgs([]string{"2.5", "1", "4", "8"}, &cfg); err != nil {
		t.Fatalf("parseSampleArgs err=%v", err)
	}
	if cfg.RateHz != 2.5 {
		t.Errorf("rate: got %v", cfg.RateHz)
	}
	if len(cfg.Channels) != 3 || cfg.Channels[0] != 1 || cfg.Channels[2] != 8 {
		t.Errorf("channels: got %v", cfg.Channels)
	}

	for _, args := range [][]string{{"fast", "1"}, {"10", "one"}} {
		if err := parseSampleArgs(args, &cfg); err == nil {
			t.Errorf("parseSampleArgs(%v) expected error", args)
		}
	}
}

func TestLoadConfigFlagOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dlpio8.yaml")
	if err := os.WriteFile(path, []byte("device:\n  port: /dev/ttyUSB3\nlog:\n  level: debug\n"), 0644); err != nil {
		t.Fatal(err)
	}

	configFlag, portFlag, logFileFlag, logLevelFlag = path, "", "", ""
	t.Cleanup(func() { configFlag, portFlag, logFileFlag, logLevelFlag = "", "", "", "" })

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig err=%v", err)
	}
	if cfg.Device.Port != "/dev/ttyUSB3" || cfg.Log.Level != "debug" {
		t.Errorf("file values lost: %+v %+v", cfg.Device, cfg.Log)
	}

	portFlag = "/dev/ttyACM0"
	logLevelFlag = "warn"
	cfg, err = loadConfig()
	if err != nil {
		t.Fatalf("loadConfig err=%v", err)
	}
	if cfg.Device.Port != "/dev/ttyACM0" || cfg.Log.Level != "warn" {
		t.Errorf("flags did not override: %+v %+v", cfg.Device, cfg.Log)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	configFlag = filepath.Join(t.TempDir(), "missing.yaml")
	t.Cleanup(func() { configFlag = "" })

	if _, err := loadConfig(); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestOpenSinksAlwaysPrintsReadout(t *testing.T) {
	cfg := config.Default()
	cfg.Sampling.LogDir = t.TempDir()

	var out bytes.Buffer
	sinks, cleanup, err := openSinks(context.Background(), cfg, &out, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("openSinks err=%v", err)
	}
	defer cleanup()

	if len(sinks) != 2 {
		t.Fatalf("got %d sinks want console + log file", len(sinks))
	}
	if _, ok := sinks[0].(*sampler.ConsoleSink); !ok {
		t.Errorf("first sink is %T, want *sampler.ConsoleSink", sinks[0])
	}

	sample := sampler.Sample{Readings: []sampler.Reading{{Channel: 1, Volts: 1.5}}}
	for _, sink := range sinks {
		if err := sink.Write(context.Background(), sample); err != nil {
			t.Fatalf("%T Write err=%v", sink, err)
		}
	}
	if !strings.Contains(out.String(), "Channel 1(V): 1.500") {
		t.Errorf("readout missing: %q", out.String())
	}

	s, _ := sampler.New(sampler.Config{RateHz: 1, Channels: []int{1}}, nil, nil, sinks...)
	if err := s.Close(); err != nil {
		t.Errorf("Close err=%v", err)
	}
}
