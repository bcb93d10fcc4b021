/**
Wrapper around the regular serial package for the DLP-IO8-G link

This wrapper should:
1. Be able to list all the available ports and open one at 8N1
2. Apply the read timeout and flush stale bytes after opening
3. Log every command written to the device
*/

package dlpSerial

import (
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
	"go.uber.org/zap"
)

const DATA_BITS = 8

type Config struct {
	BaudRate    int
	ReadTimeout time.Duration
}

type DlpSerial struct {
	serial.Port

	logger    *zap.Logger
	portName  string
	closeOnce sync.Once
	closeErr  error
}

func Open(portName string, cfg Config, logger *zap.Logger) (*DlpSerial, error) {
	mode := &serial.Mode{
		BaudRate: cfg.BaudRate,
		DataBits: DATA_BITS,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(portName, mode)
	if err != nil {
		logger.Error("Error opening serial port", zap.Error(err), zap.String("portName", portName))
		return nil, errors.Wrapf(err, "failed to open serial port %s", portName)
	}

	d := wrap(port, portName, logger)
	if err := d.configure(cfg); err != nil {
		d.Close()
		return nil, err
	}

	logger.Info("Opened serial port", zap.String("portName", portName), zap.Int("baudRate", cfg.BaudRate))
	return d, nil
}

func wrap(port serial.Port, portName string, logger *zap.Logger) *DlpSerial {
	return &DlpSerial{
		Port:     port,
		logger:   logger,
		portName: portName,
	}
}

// configure applies the read timeout and drops anything buffered on either side of the link
func (d *DlpSerial) configure(cfg Config) error {
	timeout := cfg.ReadTimeout
	if timeout <= 0 {
		timeout = serial.NoTimeout
	}
	if err := d.Port.SetReadTimeout(timeout); err != nil {
		return errors.Wrap(err, "failed to set read timeout")
	}
	if err := d.Port.ResetInputBuffer(); err != nil {
		return errors.Wrap(err, "failed to flush input buffer")
	}
	if err := d.Port.ResetOutputBuffer(); err != nil {
		return errors.Wrap(err, "failed to flush output buffer")
	}
	return nil
}

func (d *DlpSerial) Write(message []byte) (int, error) {
	n, err := d.Port.Write(message)

	if err != nil {
		d.logger.Error("Error while trying to send message", zap.Error(err), zap.String("portName", d.portName))
	} else {
		d.logger.Debug("Wrote message to serial port", zap.Int("bytesWritten", n), zap.String("bytes", fmt.Sprintf("% X", message)))
	}
	return n, err
}

// Close releases the port, later calls return the first result
func (d *DlpSerial) Close() error {
	d.closeOnce.Do(func() {
		d.closeErr = d.Port.Close()
		if d.closeErr != nil {
			d.logger.Warn("Error while closing serial port", zap.Error(d.closeErr), zap.String("portName", d.portName))
		} else {
			d.logger.Info("Closed serial port", zap.String("portName", d.portName))
		}
	})
	return d.closeErr
}

func (d *DlpSerial) Name() string {
	return d.portName
}

func ListPorts() ([]string, error) {
	return serial.GetPortsList()
}

type PortInfo struct {
	Name         string
	IsUSB        bool
	VID          string
	PID          string
	SerialNumber string
	Product      string
}

func ListDetailedPorts() ([]PortInfo, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, errors.Wrap(err, "failed to enumerate serial ports")
	}

	ports := make([]PortInfo, 0, len(details))
	for _, p := range details {
		ports = append(ports, PortInfo{
			Name:         p.Name,
			IsUSB:        p.IsUSB,
			VID:          p.VID,
			PID:          p.PID,
			SerialNumber: p.SerialNumber,
			Product:      p.Product,
		})
	}
	return ports, nil
}
