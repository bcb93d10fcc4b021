package storage

import (
	"encoding/json"
	"time"

	"DAQ-Lab/DLPIO8/internal/sampler"
)

type samplePayload struct {
	Device         string           `json:"device"`
	At             time.Time        `json:"at"`
	ElapsedSeconds float64          `json:"elapsed_s"`
	Readings       []readingPayload `json:"readings"`
}

// failed readings carry the error instead of a NaN, which JSON cannot encode
type readingPayload struct {
	Channel int      `json:"channel"`
	Volts   *float64 `json:"volts,omitempty"`
	Error   string   `json:"error,omitempty"`
}

func EncodeSample(sample sampler.Sample) ([]byte, error) {
	p := samplePayload{
		Device:         sample.Device,
		At:             sample.At,
		ElapsedSeconds: sample.Elapsed.Seconds(),
		Readings:       make([]readingPayload, 0, len(sample.Readings)),
	}
	for _, r := range sample.Readings {
		rp := readingPayload{Channel: r.Channel}
		if r.Err != nil {
			rp.Error = r.Err.Error()
		} else {
			v := r.Volts
			rp.Volts = &v
		}
		p.Readings = append(p.Readings, rp)
	}
	return json.Marshal(p)
}
