package sampler

import (
	"context"
	"io"
	"math"
	"time"

	"DAQ-Lab/DLPIO8/internal/commander"
	"DAQ-Lab/DLPIO8/internal/globals"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// VoltageReader is the part of the device session the sampler drives
type VoltageReader interface {
	GetVoltage(channel int) (float64, error)
}

// Sink consumes every sample the loop produces
type Sink interface {
	Write(ctx context.Context, sample Sample) error
}

type Config struct {
	Device   string
	RateHz   float64
	Channels []int
}

type Reading struct {
	Channel int
	Volts   float64
	Err     error
}

// Sample is one pass over the active channels
type Sample struct {
	Device   string
	At       time.Time
	Elapsed  time.Duration // since the loop started
	Duration time.Duration // time spent reading the channels
	Overrun  bool          // reads took longer than the period
	Readings []Reading
}

// Value returns NaN for a failed reading
func (r Reading) Value() float64 {
	if r.Err != nil {
		return math.NaN()
	}
	return r.Volts
}

type Sampler struct {
	cfg    Config
	period time.Duration
	reader VoltageReader
	sinks  []Sink
	logger *zap.Logger
}

func New(cfg Config, reader VoltageReader, logger *zap.Logger, sinks ...Sink) (*Sampler, error) {
	if cfg.RateHz <= 0 || math.IsInf(cfg.RateHz, 0) || math.IsNaN(cfg.RateHz) {
		return nil, errors.Errorf("sampler: rate must be > 0, got %v", cfg.RateHz)
	}
	if len(cfg.Channels) == 0 {
		return nil, errors.New("sampler: at least one channel required")
	}
	for _, ch := range cfg.Channels {
		if !globals.ValidChannel(ch) {
			return nil, errors.Errorf("sampler: channel %d outside %d-%d", ch, globals.MIN_CHANNEL, globals.MAX_CHANNEL)
		}
	}
	if cfg.Device == "" {
		cfg.Device = globals.DEVICE_NAME
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Sampler{
		cfg:    cfg,
		period: Period(cfg.RateHz),
		reader: reader,
		sinks:  sinks,
		logger: logger,
	}, nil
}

func Period(rateHz float64) time.Duration {
	return time.Duration(float64(time.Second) / rateHz)
}

func (s *Sampler) Period() time.Duration {
	return s.period
}

// Residual is how long to sleep after a cycle that took elapsed, never negative
func Residual(period, elapsed time.Duration) time.Duration {
	if elapsed >= period {
		return 0
	}
	return period - elapsed
}

// SampleOnce reads every active channel in order. Per-channel errors stay in the readings,
// only a session that can no longer be used aborts the pass.
func (s *Sampler) SampleOnce(start time.Time) (Sample, error) {
	t1 := time.Now()
	sample := Sample{
		Device:   s.cfg.Device,
		At:       t1,
		Elapsed:  t1.Sub(start),
		Readings: make([]Reading, 0, len(s.cfg.Channels)),
	}

	for _, ch := range s.cfg.Channels {
		volts, err := s.reader.GetVoltage(ch)
		if errors.Is(err, commander.ErrInvalidState) {
			return sample, errors.Wrapf(err, "sampler: channel %d", ch)
		}
		if err != nil {
			s.logger.Warn("Channel read failed", zap.Int("channel", ch), zap.Error(err))
		}
		sample.Readings = append(sample.Readings, Reading{Channel: ch, Volts: volts, Err: err})
	}

	sample.Duration = time.Since(t1)
	sample.Overrun = sample.Duration > s.period
	return sample, nil
}

// Run samples on a fixed period until ctx is cancelled. The period is best effort:
// each cycle sleeps only what is left of it after reading and dispatching.
func (s *Sampler) Run(ctx context.Context) error {
	start := time.Now()
	s.logger.Info("Beginning data acquisition",
		zap.Float64("rateHz", s.cfg.RateHz),
		zap.Ints("channels", s.cfg.Channels),
		zap.Duration("period", s.period),
	)

	for {
		if ctx.Err() != nil {
			return nil
		}

		t1 := time.Now()
		sample, err := s.SampleOnce(start)
		if err != nil {
			s.logger.Error("Stopping data acquisition", zap.Error(err))
			return err
		}
		if sample.Overrun {
			s.logger.Warn("Sample took longer than the period", zap.Duration("took", sample.Duration), zap.Duration("period", s.period))
		}

		s.dispatch(ctx, sample)

		wait := Residual(s.period, time.Since(t1))
		if wait == 0 {
			continue
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

func (s *Sampler) dispatch(ctx context.Context, sample Sample) {
	for _, sink := range s.sinks {
		if err := sink.Write(ctx, sample); err != nil {
			s.logger.Warn("Sink write failed", zap.Error(err))
		}
	}
}

// Close closes every sink that holds a resource
func (s *Sampler) Close() error {
	var err error
	for _, sink := range s.sinks {
		if c, ok := sink.(io.Closer); ok {
			err = multierr.Append(err, c.Close())
		}
	}
	return err
}
