package commander

import (
	"io"

	"DAQ-Lab/DLPIO8/internal/globals"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	PING_RESPONSE_SIZE    = 1
	DIGITAL_RESPONSE_SIZE = 1
	ANALOG_RESPONSE_SIZE  = 2
)

// writeCommand sends a single command byte, mu must be held
func (s *Session) writeCommand(cmd byte) error {
	n, err := s.conn.Write([]byte{cmd})
	if err != nil {
		return errors.Wrapf(err, "failed to write command 0x%02X", cmd)
	}
	if n != 1 {
		return errors.Wrapf(io.ErrShortWrite, "failed to write command 0x%02X", cmd)
	}
	return nil
}

// readResponse reads exactly size bytes, mu must be held.
// A serial port with a read timeout returns (0, nil) once the timeout expires.
func (s *Session) readResponse(size int) ([]byte, error) {
	buf := make([]byte, size)
	got := 0

	for got < size {
		n, err := s.conn.Read(buf[got:])
		got += n
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, errors.Wrap(err, "failed to read response")
		}
		if n == 0 {
			if got == 0 {
				return nil, errors.Wrapf(ErrReadTimeout, "no response after %s", s.readTimeout)
			}
			break
		}
	}

	if got < size {
		s.logger.Warn("Short response from device", zap.Int("expected", size), zap.Int("received", got))
		return buf[:got], errors.Wrapf(ErrProtocolDecode, "expected %d bytes, got %d", size, got)
	}
	return buf, nil
}

// transact writes one command and reads its fixed size response, mu must be held
func (s *Session) transact(cmd byte, responseSize int) ([]byte, error) {
	if err := s.writeCommand(cmd); err != nil {
		return nil, err
	}
	if responseSize == 0 {
		return nil, nil
	}
	return s.readResponse(responseSize)
}

// channelCommand resolves the command byte for a channel operation, rejecting channels outside 1-8
func channelCommand(op globals.Operation, channel int) (byte, error) {
	if !globals.ValidChannel(channel) {
		return 0, errors.Wrapf(ErrRange, "channel %d outside %d-%d", channel, globals.MIN_CHANNEL, globals.MAX_CHANNEL)
	}
	cmd, err := globals.ByteFor(op, channel)
	if err != nil {
		return 0, errors.Wrapf(ErrRange, "%s on channel %d: %v", op, channel, err)
	}
	return cmd, nil
}

// DecodeCount combines the two analog response bytes, low byte first on the wire
func DecodeCount(low, high byte) int {
	return int(high)*256 + int(low)
}

// DecodeVoltage scales a 10 bit count onto the 0-5V input range
func DecodeVoltage(low, high byte) float64 {
	return float64(DecodeCount(low, high)) * globals.VOLTS_FULL_SCALE / globals.ADC_MAX_COUNT
}
