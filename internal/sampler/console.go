package sampler

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
)

// ConsoleSink prints each sample as a live readout, one line per channel then a blank line
type ConsoleSink struct {
	w io.Writer
}

func NewConsoleSink(w io.Writer) *ConsoleSink {
	return &ConsoleSink{w: w}
}

func FormatReadout(sample Sample) string {
	var b strings.Builder
	for _, r := range sample.Readings {
		if r.Err != nil {
			fmt.Fprintf(&b, "Channel %d(V): NaN (%v)\n", r.Channel, r.Err)
			continue
		}
		fmt.Fprintf(&b, "Channel %d(V): %.3f\n", r.Channel, r.Volts)
	}
	b.WriteString("\n")
	return b.String()
}

func (c *ConsoleSink) Write(_ context.Context, sample Sample) error {
	if _, err := io.WriteString(c.w, FormatReadout(sample)); err != nil {
		return errors.Wrap(err, "failed to write console readout")
	}
	return nil
}
