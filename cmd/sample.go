package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"DAQ-Lab/DLPIO8/internal/config"
	"DAQ-Lab/DLPIO8/internal/globals"
	"DAQ-Lab/DLPIO8/internal/monitor"
	"DAQ-Lab/DLPIO8/internal/sampler"
	"DAQ-Lab/DLPIO8/internal/storage"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

var sampleCmd = &cobra.Command{
	Use:   "sample <rateHz> <channel>...",
	Short: "Sample analog channels at a fixed rate until interrupted",
	Long: `Sample reads the voltage of every listed channel (1-8) rateHz times per second and
writes one row per pass to logfile_MMDDYY_HHMM.txt. Rate and channels given here
override the config file. Stop with Ctrl+C.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runSample,
}

func init() {
	rootCmd.AddCommand(sampleCmd)
}

// parseSampleArgs turns "<rateHz> <channel>..." into the sampling config
func parseSampleArgs(args []string, cfg *config.SamplingConfig) error {
	rate, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return errors.Errorf("invalid rate %q", args[0])
	}

	channels := make([]int, 0, len(args)-1)
	for _, a := range args[1:] {
		ch, err := strconv.Atoi(a)
		if err != nil {
			return errors.Errorf("invalid channel %q", a)
		}
		channels = append(channels, ch)
	}

	cfg.RateHz = rate
	cfg.Channels = channels
	return nil
}

func runSample(cmd *cobra.Command, args []string) (err error) {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := parseSampleArgs(args, &cfg.Sampling); err != nil {
		return err
	}
	if err := config.Validate(cfg); err != nil {
		return errors.Wrap(err, "invalid config")
	}

	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	session := newSession(cfg, log)
	if err := handshake(session, cfg, cfg.Device.Port); err != nil {
		log.Error("Handshake failed", zap.Error(err))
		return err
	}
	defer func() {
		err = multierr.Append(err, session.Disconnect())
	}()

	sinks, cleanup, err := openSinks(ctx, cfg, cmd.OutOrStdout(), log)
	if err != nil {
		return err
	}
	defer cleanup()

	s, err := sampler.New(sampler.Config{
		Device:   globals.DEVICE_NAME,
		RateHz:   cfg.Sampling.RateHz,
		Channels: cfg.Sampling.Channels,
	}, session, log, sinks...)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, s.Close())
	}()

	if err := s.Run(ctx); err != nil {
		return err
	}
	log.Info("Data acquisition stopped")
	return nil
}

// openSinks opens the console readout, the data log file and every enabled sink. cleanup stops
// the metrics server, closing the sinks themselves is left to the sampler.
func openSinks(ctx context.Context, cfg *config.Config, console io.Writer, log *zap.Logger) ([]sampler.Sink, func(), error) {
	sinks := []sampler.Sink{sampler.NewConsoleSink(console)}
	var closeAll error
	cleanup := func() {}

	fail := func(err error) ([]sampler.Sink, func(), error) {
		for _, sink := range sinks {
			if c, ok := sink.(interface{ Close() error }); ok {
				closeAll = multierr.Append(closeAll, c.Close())
			}
		}
		if closeAll != nil {
			log.Warn("Error closing sinks", zap.Error(closeAll))
		}
		return nil, cleanup, err
	}

	logFile, err := sampler.OpenLogFile(cfg.Sampling.LogDir, time.Now(), cfg.Sampling.RateHz, cfg.Sampling.Channels)
	if err != nil {
		return fail(err)
	}
	log.Info("Writing samples", zap.String("path", logFile.Path()))
	sinks = append(sinks, logFile)

	if cfg.Redis.Enabled {
		publisher, err := storage.NewRedisPublisher(ctx, cfg.Redis, log)
		if err != nil {
			return fail(err)
		}
		sinks = append(sinks, publisher)
	}

	if cfg.Influx.Enabled {
		sinks = append(sinks, storage.NewInfluxWriter(cfg.Influx, log))
	}

	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		sinks = append(sinks, monitor.NewMetrics(reg))

		srv := monitor.StartMetricsServer(cfg.Metrics.Addr, reg, log)
		cleanup = func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Warn("Error stopping metrics server", zap.Error(err))
			}
		}
	}

	return sinks, cleanup, nil
}
