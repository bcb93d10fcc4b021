package monitor

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"DAQ-Lab/DLPIO8/internal/commander"
	"DAQ-Lab/DLPIO8/internal/sampler"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Metrics observes every sample the sampler produces
type Metrics struct {
	SamplesTotal  prometheus.Counter
	OverrunsTotal prometheus.Counter
	ReadErrors    *prometheus.CounterVec
	ChannelVolts  *prometheus.GaugeVec
	CycleDuration prometheus.Histogram
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SamplesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dlpio8_samples_total",
			Help: "Sampling cycles completed",
		}),
		OverrunsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dlpio8_overruns_total",
			Help: "Sampling cycles whose reads took longer than the period",
		}),
		ReadErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dlpio8_read_errors_total",
				Help: "Failed channel reads",
			},
			[]string{"channel", "kind"},
		),
		ChannelVolts: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "dlpio8_channel_volts",
				Help: "Last voltage read on a channel",
			},
			[]string{"channel"},
		),
		CycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "dlpio8_cycle_duration_seconds",
			Help:    "Time spent reading all active channels",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		}),
	}

	reg.MustRegister(
		m.SamplesTotal,
		m.OverrunsTotal,
		m.ReadErrors,
		m.ChannelVolts,
		m.CycleDuration,
	)
	return m
}

func ErrorKind(err error) string {
	switch {
	case errors.Is(err, commander.ErrReadTimeout):
		return "timeout"
	case errors.Is(err, commander.ErrProtocolDecode):
		return "decode"
	case errors.Is(err, commander.ErrRange):
		return "range"
	}
	return "transport"
}

func (m *Metrics) Write(_ context.Context, sample sampler.Sample) error {
	m.SamplesTotal.Inc()
	m.CycleDuration.Observe(sample.Duration.Seconds())
	if sample.Overrun {
		m.OverrunsTotal.Inc()
	}

	for _, r := range sample.Readings {
		ch := strconv.Itoa(r.Channel)
		if r.Err != nil {
			m.ReadErrors.WithLabelValues(ch, ErrorKind(r.Err)).Inc()
			continue
		}
		m.ChannelVolts.WithLabelValues(ch).Set(r.Volts)
	}
	return nil
}

func NewHandler(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	return mux
}

// StartMetricsServer serves /metrics and /health in the background
func StartMetricsServer(addr string, gatherer prometheus.Gatherer, logger *zap.Logger) *http.Server {
	srv := &http.Server{
		Addr:              addr,
		Handler:           NewHandler(gatherer),
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("Starting metrics server", zap.String("addr", addr))
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server error", zap.Error(err))
		}
	}()
	return srv
}
