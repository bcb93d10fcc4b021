package storage

import (
	"context"
	"strconv"

	"DAQ-Lab/DLPIO8/internal/config"
	"DAQ-Lab/DLPIO8/internal/sampler"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// InfluxWriter writes one point per successful channel reading
type InfluxWriter struct {
	client      influxdb2.Client
	writeAPI    api.WriteAPIBlocking
	measurement string
	logger      *zap.Logger
}

func NewInfluxWriter(cfg config.InfluxConfig, logger *zap.Logger) *InfluxWriter {
	client := influxdb2.NewClient(cfg.URL, cfg.Token)

	logger.Info("Writing samples to influx", zap.String("url", cfg.URL), zap.String("bucket", cfg.Bucket))
	return &InfluxWriter{
		client:      client,
		writeAPI:    client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		measurement: cfg.Measurement,
		logger:      logger,
	}
}

// SamplePoints skips failed readings, there is no value to store for them
func SamplePoints(measurement string, sample sampler.Sample) []*write.Point {
	points := make([]*write.Point, 0, len(sample.Readings))
	for _, r := range sample.Readings {
		if r.Err != nil {
			continue
		}
		points = append(points, influxdb2.NewPoint(
			measurement,
			map[string]string{
				"device":  sample.Device,
				"channel": strconv.Itoa(r.Channel),
			},
			map[string]interface{}{
				"volts": r.Volts,
			},
			sample.At,
		))
	}
	return points
}

func (w *InfluxWriter) Write(ctx context.Context, sample sampler.Sample) error {
	points := SamplePoints(w.measurement, sample)
	if len(points) == 0 {
		return nil
	}
	if err := w.writeAPI.WritePoint(ctx, points...); err != nil {
		return errors.Wrap(err, "failed to write points to influx")
	}
	return nil
}

func (w *InfluxWriter) Close() error {
	w.client.Close()
	return nil
}
