package commander

import (
	"DAQ-Lab/DLPIO8/internal/globals"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	LEVEL_LOW  = 0
	LEVEL_HIGH = 1
)

// SetDigitalOutput drives a channel high (1) or low (0). Bad arguments are rejected before anything is written.
func (s *Session) SetDigitalOutput(channel int, level int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireState("set digital output", STATE_VERIFIED, STATE_CONFIGURED); err != nil {
		return err
	}

	var op globals.Operation
	switch level {
	case LEVEL_HIGH:
		op = globals.OP_SET_HIGH
	case LEVEL_LOW:
		op = globals.OP_SET_LOW
	default:
		s.logger.Error("Digital output value out of range", zap.Int("channel", channel), zap.Int("level", level))
		return errors.Wrapf(ErrRange, "digital output level %d not 0 or 1", level)
	}

	cmd, err := channelCommand(op, channel)
	if err != nil {
		s.logger.Error("Channel number out of range", zap.Int("channel", channel))
		return err
	}

	if err := s.writeCommand(cmd); err != nil {
		return err
	}
	s.logger.Debug("Set digital output", zap.Int("channel", channel), zap.Int("level", level))
	return nil
}

// GetDigitalInput returns the response byte as the device sent it
func (s *Session) GetDigitalInput(channel int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireState("get digital input", STATE_VERIFIED, STATE_CONFIGURED); err != nil {
		return 0, err
	}

	cmd, err := channelCommand(globals.OP_DIGITAL_IN, channel)
	if err != nil {
		s.logger.Error("Channel number out of range", zap.Int("channel", channel))
		return 0, err
	}

	res, err := s.transact(cmd, DIGITAL_RESPONSE_SIZE)
	if err != nil {
		s.logger.Error("Digital input read failed", zap.Int("channel", channel), zap.Error(err))
		return 0, err
	}
	return int(res[0]), nil
}
