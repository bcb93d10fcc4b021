package sampler

import (
	"bytes"
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"DAQ-Lab/DLPIO8/internal/commander"

	"go.uber.org/zap/zaptest"
)

type fakeReader struct {
	mu     sync.Mutex
	calls  []int
	volts  map[int]float64
	failCh int
	failBy error
}

func (f *fakeReader) GetVoltage(channel int) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, channel)
	if channel == f.failCh {
		return 0, f.failBy
	}
	return f.volts[channel], nil
}

// countingSink cancels the run after limit samples
type countingSink struct {
	mu      sync.Mutex
	samples []Sample
	limit   int
	cancel  context.CancelFunc
	closed  bool
}

func (c *countingSink) Write(_ context.Context, s Sample) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.samples = append(c.samples, s)
	if len(c.samples) >= c.limit && c.cancel != nil {
		c.cancel()
	}
	return nil
}

func (c *countingSink) Close() error {
	c.closed = true
	return nil
}

type failingSink struct{}

func (failingSink) Write(context.Context, Sample) error {
	return errors.New("sink unavailable")
}

func TestNew(t *testing.T) {
	reader := &fakeReader{}

	cases := []struct {
		name string
		cfg  Config
	}{
		{"zero rate", Config{RateHz: 0, Channels: []int{1}}},
		{"negative rate", Config{RateHz: -2, Channels: []int{1}}},
		{"no channels", Config{RateHz: 1}},
		{"channel 0", Config{RateHz: 1, Channels: []int{0}}},
		{"channel 9", Config{RateHz: 1, Channels: []int{1, 9}}},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if _, err := New(c.cfg, reader, nil); err == nil {
				t.Fatalf("expected error, got nil")
			}
		})
	}

	s, err := New(Config{RateHz: 4, Channels: []int{1, 2}}, reader, nil)
	if err != nil {
		t.Fatalf("New() err=%v", err)
	}
	if s.Period() != 250*time.Millisecond {
		t.Errorf("got period %v want 250ms", s.Period())
	}
}

func TestResidual(t *testing.T) {
	cases := []struct {
		period, elapsed, want time.Duration
	}{
		{100 * time.Millisecond, 30 * time.Millisecond, 70 * time.Millisecond},
		{100 * time.Millisecond, 0, 100 * time.Millisecond},
		{100 * time.Millisecond, 100 * time.Millisecond, 0},
		{100 * time.Millisecond, 250 * time.Millisecond, 0},
	}

	for _, c := range cases {
		if got := Residual(c.period, c.elapsed); got != c.want {
			t.Errorf("Residual(%v, %v) got %v want %v", c.period, c.elapsed, got, c.want)
		}
	}
}

func TestSampleOnce(t *testing.T) {
	reader := &fakeReader{
		volts:  map[int]float64{1: 1.5, 3: 2.5, 8: 4.0},
		failCh: 3,
		failBy: commander.ErrReadTimeout,
	}
	s, _ := New(Config{RateHz: 10, Channels: []int{8, 3, 1}}, reader, zaptest.NewLogger(t))

	sample, err := s.SampleOnce(time.Now())
	if err != nil {
		t.Fatalf("SampleOnce err=%v", err)
	}

	if len(reader.calls) != 3 || reader.calls[0] != 8 || reader.calls[1] != 3 || reader.calls[2] != 1 {
		t.Errorf("channels read in order %v want [8 3 1]", reader.calls)
	}
	if len(sample.Readings) != 3 {
		t.Fatalf("got %d readings want 3", len(sample.Readings))
	}
	if sample.Readings[0].Volts != 4.0 || sample.Readings[2].Volts != 1.5 {
		t.Errorf("got readings %+v", sample.Readings)
	}
	if !errors.Is(sample.Readings[1].Err, commander.ErrReadTimeout) || !math.IsNaN(sample.Readings[1].Value()) {
		t.Errorf("failed channel reading %+v", sample.Readings[1])
	}
	if sample.Device != "DLP-IO8-G" {
		t.Errorf("got device %q", sample.Device)
	}
}

func TestSampleOnceAbortsOnClosedSession(t *testing.T) {
	reader := &fakeReader{failCh: 2, failBy: commander.ErrInvalidState}
	s, _ := New(Config{RateHz: 10, Channels: []int{1, 2, 3}}, reader, zaptest.NewLogger(t))

	if _, err := s.SampleOnce(time.Now()); !errors.Is(err, commander.ErrInvalidState) {
		t.Fatalf("got err=%v want ErrInvalidState", err)
	}
	if len(reader.calls) != 2 {
		t.Errorf("got %d reads, channel 3 should not be read after abort", len(reader.calls))
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reader := &fakeReader{volts: map[int]float64{1: 3.3}}
	sink := &countingSink{limit: 3, cancel: cancel}
	s, _ := New(Config{RateHz: 500, Channels: []int{1}}, reader, zaptest.NewLogger(t), sink, failingSink{})

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run err=%v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.samples) != 3 {
		t.Fatalf("got %d samples want 3", len(sink.samples))
	}
	for i := 1; i < len(sink.samples); i++ {
		if sink.samples[i].Elapsed <= sink.samples[i-1].Elapsed {
			t.Errorf("elapsed not increasing: %v then %v", sink.samples[i-1].Elapsed, sink.samples[i].Elapsed)
		}
	}
}

func TestRunReturnsAbortError(t *testing.T) {
	reader := &fakeReader{failCh: 1, failBy: commander.ErrInvalidState}
	s, _ := New(Config{RateHz: 100, Channels: []int{1}}, reader, zaptest.NewLogger(t))

	if err := s.Run(context.Background()); !errors.Is(err, commander.ErrInvalidState) {
		t.Fatalf("got err=%v want ErrInvalidState", err)
	}
}

func TestCloseClosesSinks(t *testing.T) {
	sink := &countingSink{}
	s, _ := New(Config{RateHz: 1, Channels: []int{1}}, &fakeReader{}, nil, sink, failingSink{})

	if err := s.Close(); err != nil {
		t.Fatalf("Close err=%v", err)
	}
	if !sink.closed {
		t.Error("sink was not closed")
	}
}

func TestConsoleSinkReadout(t *testing.T) {
	var out bytes.Buffer
	sink := NewConsoleSink(&out)

	sample := Sample{Readings: []Reading{
		{Channel: 1, Volts: 2.5},
		{Channel: 4, Volts: 512.0 * 5.0 / 1023.0},
	}}
	if err := sink.Write(context.Background(), sample); err != nil {
		t.Fatalf("Write err=%v", err)
	}

	want := "Channel 1(V): 2.500\nChannel 4(V): 2.502\n\n"
	if out.String() != want {
		t.Errorf("got %q want %q", out.String(), want)
	}
}

func TestConsoleSinkFailedRead(t *testing.T) {
	var out bytes.Buffer
	sample := Sample{Readings: []Reading{
		{Channel: 2, Err: commander.ErrReadTimeout},
	}}
	NewConsoleSink(&out).Write(context.Background(), sample)

	want := "Channel 2(V): NaN (timed out waiting for device response)\n\n"
	if out.String() != want {
		t.Errorf("got %q want %q", out.String(), want)
	}
}
