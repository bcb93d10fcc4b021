package commander

import (
	stderrors "errors"
	"io"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const DEFAULT_READ_TIMEOUT = 1 * time.Second

// sentinels carry no stack, call sites add context with errors.Wrap
var (
	ErrConnect        = stderrors.New("could not open device transport")
	ErrHandshake      = stderrors.New("device did not identify as a DLP-IO8-G")
	ErrRange          = stderrors.New("argument out of range")
	ErrReadTimeout    = stderrors.New("timed out waiting for device response")
	ErrProtocolDecode = stderrors.New("device response too short")
	ErrInvalidState   = stderrors.New("operation not valid in current session state")
)

// SerialReaderWriter is the byte stream the session drives, a go.bug.st/serial port in production
type SerialReaderWriter interface {
	io.Reader
	io.Writer
	io.Closer
}

type readTimeouter interface {
	SetReadTimeout(t time.Duration) error
}

type PortOpener func(portName string) (SerialReaderWriter, error)

type State int

const (
	STATE_UNOPENED State = iota
	STATE_CONNECTED
	STATE_VERIFIED
	STATE_CONFIGURED
	STATE_CLOSED
)

func (s State) String() string {
	switch s {
	case STATE_UNOPENED:
		return "Unopened"
	case STATE_CONNECTED:
		return "Connected"
	case STATE_VERIFIED:
		return "Verified"
	case STATE_CONFIGURED:
		return "Configured"
	case STATE_CLOSED:
		return "Closed"
	}
	return "Unknown"
}

// Calibration is fixed at construction. It only changes GetVoltage output when Apply is set.
type Calibration struct {
	Offset float64
	Scale  float64
	Apply  bool
}

var DefaultCalibration = Calibration{Offset: 0.0, Scale: 1.0}

func (c Calibration) apply(volts float64) float64 {
	if !c.Apply {
		return volts
	}
	return volts*c.Scale + c.Offset
}

// Session owns the transport to one DLP-IO8-G. Operations are serialized on the wire.
type Session struct {
	mu sync.Mutex

	portName    string
	opener      PortOpener
	logger      *zap.Logger
	readTimeout time.Duration
	calibration Calibration

	conn       SerialReaderWriter
	state      State
	outputMode OutputMode
	tempUnit   TempUnit
}

type Option func(*Session)

func WithCalibration(c Calibration) Option {
	return func(s *Session) {
		s.calibration = c
	}
}

func WithReadTimeout(d time.Duration) Option {
	return func(s *Session) {
		s.readTimeout = d
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(s *Session) {
		s.logger = logger
	}
}

func NewSession(portName string, opener PortOpener, opts ...Option) *Session {
	s := &Session{
		portName:    portName,
		opener:      opener,
		logger:      zap.NewNop(),
		readTimeout: DEFAULT_READ_TIMEOUT,
		calibration: DefaultCalibration,
		state:       STATE_UNOPENED,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) PortName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.portName
}

func (s *Session) Calibration() Calibration {
	return s.calibration
}

// requireState must be called with mu held
func (s *Session) requireState(op string, allowed ...State) error {
	for _, st := range allowed {
		if s.state == st {
			return nil
		}
	}
	s.logger.Warn("Rejected out of order operation", zap.String("operation", op), zap.Stringer("state", s.state))
	return errors.Wrapf(ErrInvalidState, "%s in state %s", op, s.state)
}
