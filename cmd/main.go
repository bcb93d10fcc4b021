package main

import (
	"os"

	"DAQ-Lab/DLPIO8/internal/commander"
	"DAQ-Lab/DLPIO8/internal/config"
	"DAQ-Lab/DLPIO8/internal/dlpSerial"
	"DAQ-Lab/DLPIO8/internal/logger"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Global flags
	configFlag   string
	portFlag     string
	logFileFlag  string
	logLevelFlag string
)

var rootCmd = &cobra.Command{
	Use:   "dlpio8",
	Short: "DLP-IO8-G data acquisition over USB serial",
	Long: `dlpio8 drives a DLP-IO8-G 8 channel data acquisition module. It samples analog
voltages to a log file (and optionally redis, influx and prometheus), reads and
drives the digital lines, and has a terminal monitor for live readings.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "YAML config file")
	rootCmd.PersistentFlags().StringVarP(&portFlag, "port", "p", "", "Serial port device path (overrides config)")
	rootCmd.PersistentFlags().StringVar(&logFileFlag, "log-file", "", "Application log file (overrides config)")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "debug, info, warn or error (overrides config)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads --config when given and applies the global flag overrides on top
func loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if configFlag != "" {
		loaded, err := config.Load(configFlag)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if portFlag != "" {
		cfg.Device.Port = portFlag
	}
	if logFileFlag != "" {
		cfg.Log.File = logFileFlag
	}
	if logLevelFlag != "" {
		cfg.Log.Level = logLevelFlag
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	level, err := logger.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	return logger.NewLogger(cfg.Log.File, level)
}

func portOpener(cfg *config.Config, log *zap.Logger) commander.PortOpener {
	serialCfg := dlpSerial.Config{
		BaudRate:    cfg.Device.BaudRate,
		ReadTimeout: cfg.Device.ReadTimeout,
	}
	return func(portName string) (commander.SerialReaderWriter, error) {
		port, err := dlpSerial.Open(portName, serialCfg, log)
		if err != nil {
			return nil, err
		}
		return port, nil
	}
}

func newSession(cfg *config.Config, log *zap.Logger) *commander.Session {
	return commander.NewSession(
		cfg.Device.Port,
		portOpener(cfg, log),
		commander.WithReadTimeout(cfg.Device.ReadTimeout),
		commander.WithCalibration(commander.Calibration{
			Offset: cfg.Calibration.Offset,
			Scale:  cfg.Calibration.Scale,
			Apply:  cfg.Calibration.Apply,
		}),
		commander.WithLogger(log),
	)
}

func handshake(session *commander.Session, cfg *config.Config, portName string) error {
	_, err := session.Handshake(
		portName,
		commander.ParseOutputMode(cfg.Device.OutputMode),
		commander.ParseTempUnit(cfg.Device.TempUnit),
	)
	return err
}

// connect loads config, logger and a handshaken session for the one shot commands
func connect() (*commander.Session, *zap.Logger, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, nil, errors.Wrap(err, "invalid config")
	}
	log, err := newLogger(cfg)
	if err != nil {
		return nil, nil, err
	}

	session := newSession(cfg, log)
	if err := handshake(session, cfg, cfg.Device.Port); err != nil {
		log.Sync()
		return nil, nil, err
	}
	return session, log, nil
}
