package commander

import (
	"DAQ-Lab/DLPIO8/internal/globals"

	"go.uber.org/zap"
)

// GetVoltage reads a channel's analog input in volts. Calibration is only applied when enabled.
func (s *Session) GetVoltage(channel int) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireState("get voltage", STATE_VERIFIED, STATE_CONFIGURED); err != nil {
		return 0, err
	}

	cmd, err := channelCommand(globals.OP_VOLTS, channel)
	if err != nil {
		s.logger.Error("Channel number out of range", zap.Int("channel", channel))
		return 0, err
	}

	res, err := s.transact(cmd, ANALOG_RESPONSE_SIZE)
	if err != nil {
		s.logger.Error("Voltage read failed", zap.Int("channel", channel), zap.Error(err))
		return 0, err
	}

	return s.calibration.apply(DecodeVoltage(res[0], res[1])), nil
}

// GetTemperature returns the raw combined count.
// The transfer function to physical units is unknown, so no conversion is done here.
func (s *Session) GetTemperature(channel int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireState("get temperature", STATE_VERIFIED, STATE_CONFIGURED); err != nil {
		return 0, err
	}

	cmd, err := channelCommand(globals.OP_TEMP, channel)
	if err != nil {
		s.logger.Error("Channel number out of range", zap.Int("channel", channel))
		return 0, err
	}

	res, err := s.transact(cmd, ANALOG_RESPONSE_SIZE)
	if err != nil {
		s.logger.Error("Temperature read failed", zap.Int("channel", channel), zap.Error(err))
		return 0, err
	}

	return DecodeCount(res[0], res[1]), nil
}
