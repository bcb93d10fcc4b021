package commander

import (
	"fmt"
	"strings"

	"DAQ-Lab/DLPIO8/internal/globals"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

type OutputMode byte

const (
	OUTPUT_ASCII  OutputMode = 'A'
	OUTPUT_BINARY OutputMode = 'B'
)

func (m OutputMode) String() string {
	switch m {
	case OUTPUT_ASCII:
		return "ASCII"
	case OUTPUT_BINARY:
		return "Binary"
	}
	return fmt.Sprintf("invalid(%q)", rune(m))
}

type TempUnit byte

const (
	UNIT_FAHRENHEIT TempUnit = 'F'
	UNIT_CELSIUS    TempUnit = 'C'
)

func (u TempUnit) String() string {
	switch u {
	case UNIT_FAHRENHEIT:
		return "Fahrenheit"
	case UNIT_CELSIUS:
		return "Celsius"
	}
	return fmt.Sprintf("invalid(%q)", rune(u))
}

// ParseOutputMode accepts the single letter form or the spelled out name.
// Anything else comes back as an invalid mode and ChangeSettings falls back to ASCII.
func ParseOutputMode(s string) OutputMode {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "a", "ascii":
		return OUTPUT_ASCII
	case "b", "binary":
		return OUTPUT_BINARY
	}
	if len(s) == 1 {
		return OutputMode(s[0])
	}
	return 0
}

func ParseTempUnit(s string) TempUnit {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "f", "fahrenheit", "degf":
		return UNIT_FAHRENHEIT
	case "c", "celsius", "degc":
		return UNIT_CELSIUS
	}
	if len(s) == 1 {
		return TempUnit(s[0])
	}
	return 0
}

// Settings is what ChangeSettings actually sent to the device
type Settings struct {
	OutputMode OutputMode
	TempUnit   TempUnit
	Warnings   []string
}

// Connect opens the transport, one attempt only
func (s *Session) Connect(portName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireState("connect", STATE_UNOPENED); err != nil {
		return err
	}
	if portName != "" {
		s.portName = portName
	}

	s.logger.Info("Opening port", zap.String("portName", s.portName))
	conn, err := s.opener(s.portName)
	if err != nil || conn == nil {
		if err == nil {
			err = errors.New("opener returned no port")
		}
		s.logger.Error("Failed to open port", zap.Error(err), zap.String("portName", s.portName))
		return errors.Wrapf(ErrConnect, "%s: %v", s.portName, err)
	}

	if t, ok := conn.(readTimeouter); ok && s.readTimeout > 0 {
		if err := t.SetReadTimeout(s.readTimeout); err != nil {
			s.logger.Error("Failed to set read timeout", zap.Error(err))
			err = multierr.Append(err, conn.Close())
			return fmt.Errorf("%w: %s: set read timeout: %w", ErrConnect, s.portName, err)
		}
	}

	s.conn = conn
	s.state = STATE_CONNECTED
	s.logger.Info("Port open", zap.String("portName", s.portName))
	return nil
}

// CheckDevice pings the device and requires the identity byte back
func (s *Session) CheckDevice() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireState("check device", STATE_CONNECTED, STATE_VERIFIED, STATE_CONFIGURED); err != nil {
		return err
	}

	s.logger.Info("Checking device")
	res, err := s.transact(globals.CMD_PING, PING_RESPONSE_SIZE)
	if err != nil {
		s.logger.Error("Device check failed", zap.Error(err))
		return fmt.Errorf("%w: ping: %w", ErrHandshake, err)
	}
	if res[0] != globals.PING_RESPONSE {
		s.logger.Error("Device check failed", zap.String("response", fmt.Sprintf("0x%02X", res[0])))
		return errors.Wrapf(ErrHandshake, "ping answered 0x%02X, want 0x%02X", res[0], globals.PING_RESPONSE)
	}

	if s.state == STATE_CONNECTED {
		s.state = STATE_VERIFIED
	}
	s.logger.Info("Device check acknowledged")
	return nil
}

// ChangeSettings selects the response encoding and temperature units.
// Unknown values fall back to ASCII and Fahrenheit with a warning, they are not errors.
func (s *Session) ChangeSettings(mode OutputMode, unit TempUnit) (Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireState("change settings", STATE_VERIFIED, STATE_CONFIGURED); err != nil {
		return Settings{}, err
	}

	s.logger.Info("Applying settings", zap.Stringer("outputMode", mode), zap.Stringer("tempUnit", unit))
	applied := Settings{OutputMode: mode, TempUnit: unit}

	var modeCmd byte
	switch mode {
	case OUTPUT_ASCII:
		modeCmd = globals.CMD_RETURN_ASCII
	case OUTPUT_BINARY:
		modeCmd = globals.CMD_RETURN_BINARY
	default:
		msg := "Invalid input for returned output type, using default ASCII output"
		s.logger.Warn(msg, zap.Stringer("outputMode", mode))
		applied.Warnings = append(applied.Warnings, msg)
		applied.OutputMode = OUTPUT_ASCII
		modeCmd = globals.CMD_RETURN_ASCII
	}

	var unitCmd byte
	switch unit {
	case UNIT_FAHRENHEIT:
		unitCmd = globals.CMD_DEG_F
	case UNIT_CELSIUS:
		unitCmd = globals.CMD_DEG_C
	default:
		msg := "Invalid input for output temperature units, using default degF"
		s.logger.Warn(msg, zap.Stringer("tempUnit", unit))
		applied.Warnings = append(applied.Warnings, msg)
		applied.TempUnit = UNIT_FAHRENHEIT
		unitCmd = globals.CMD_DEG_F
	}

	if err := s.writeCommand(modeCmd); err != nil {
		return applied, err
	}
	// the device has switched mode even if the unit write fails
	s.outputMode = applied.OutputMode
	if err := s.writeCommand(unitCmd); err != nil {
		return applied, err
	}

	if applied.OutputMode == OUTPUT_ASCII {
		s.logger.Warn("ASCII output selected, channel reads still decode binary responses")
	}

	s.tempUnit = applied.TempUnit
	s.state = STATE_CONFIGURED
	s.logger.Info("Settings applied", zap.Stringer("outputMode", s.outputMode), zap.Stringer("tempUnit", s.tempUnit))
	return applied, nil
}

// Handshake runs connect, device check and settings in order. A failed device check closes the port.
func (s *Session) Handshake(portName string, mode OutputMode, unit TempUnit) (Settings, error) {
	if err := s.Connect(portName); err != nil {
		return Settings{}, err
	}
	if err := s.CheckDevice(); err != nil {
		s.Disconnect()
		return Settings{}, err
	}
	settings, err := s.ChangeSettings(mode, unit)
	if err != nil {
		s.Disconnect()
		return settings, err
	}
	return settings, nil
}

func (s *Session) Settings() (OutputMode, TempUnit) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outputMode, s.tempUnit
}

// Disconnect closes the transport exactly once, repeated calls are no-ops
func (s *Session) Disconnect() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.state
	s.state = STATE_CLOSED
	if s.conn == nil {
		return nil
	}

	err := s.conn.Close()
	s.conn = nil
	if err != nil {
		s.logger.Warn("Error closing port", zap.Error(err), zap.Stringer("previousState", prev))
		return errors.Wrap(err, "failed to close port")
	}
	s.logger.Info("Disconnected", zap.String("portName", s.portName))
	return nil
}
