package sampler

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"DAQ-Lab/DLPIO8/internal/globals"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

const LOG_FILE_TIME_FORMAT = "010206_1504"

// LogFile is the plain text data log: a header describing the run, then one row per sample
type LogFile struct {
	path string
	f    *os.File
	w    *bufio.Writer
}

func LogFileName(now time.Time) string {
	return "logfile_" + now.Format(LOG_FILE_TIME_FORMAT) + ".txt"
}

func OpenLogFile(dir string, now time.Time, rateHz float64, channels []int) (*LogFile, error) {
	path := filepath.Join(dir, LogFileName(now))
	f, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to setup logfile")
	}

	l := &LogFile{path: path, f: f, w: bufio.NewWriter(f)}
	if err := WriteHeader(l.w, now, rateHz, channels); err != nil {
		f.Close()
		return nil, err
	}
	if err := l.w.Flush(); err != nil {
		f.Close()
		return nil, errors.Wrap(err, "failed to write logfile header")
	}
	return l, nil
}

func (l *LogFile) Path() string {
	return l.path
}

func WriteHeader(w io.Writer, now time.Time, rateHz float64, channels []int) error {
	fmt.Fprintf(w, "Device: %s\n\n", globals.DEVICE_NAME)
	fmt.Fprintf(w, "%s\n\n", now.Format(time.ANSIC))
	fmt.Fprintf(w, "Sampling Frequency (Hz):\n")
	fmt.Fprintf(w, "%s\n\n", strconv.FormatFloat(rateHz, 'f', -1, 64))
	fmt.Fprintf(w, "Channels Active:\n")
	for _, ch := range channels {
		fmt.Fprintf(w, "%d ", ch)
	}
	fmt.Fprintf(w, "\n\n")
	fmt.Fprintf(w, "Time(s) ")
	for _, ch := range channels {
		fmt.Fprintf(w, "CH%d(V) ", ch)
	}
	_, err := fmt.Fprintf(w, "\n")
	return err
}

func WriteRow(w io.Writer, sample Sample) error {
	fmt.Fprintf(w, "%.3f", sample.Elapsed.Seconds())
	for _, r := range sample.Readings {
		fmt.Fprintf(w, " %.3f", r.Value())
	}
	_, err := fmt.Fprintf(w, "\n")
	return err
}

// Write appends the sample and flushes so a killed run keeps its data
func (l *LogFile) Write(_ context.Context, sample Sample) error {
	if err := WriteRow(l.w, sample); err != nil {
		return errors.Wrap(err, "failed to write logfile row")
	}
	return l.w.Flush()
}

func (l *LogFile) Close() error {
	return multierr.Combine(l.w.Flush(), l.f.Close())
}
