package terminal

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"DAQ-Lab/DLPIO8/internal/globals"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type UIState int

const (
	VIEW_LIST_PORTS UIState = iota
	VIEW_LOADING
	VIEW_MONITOR
)

// Device is the part of the device session the monitor drives
type Device interface {
	GetVoltage(channel int) (float64, error)
	GetDigitalInput(channel int) (int, error)
	SetDigitalOutput(channel int, level int) error
	Disconnect() error
}

type PortLister func() ([]string, error)

// PortConnector opens the port and completes the device handshake
type PortConnector func(string) (Device, error)

type connectionSuccessMsg struct{ device Device }
type connectionErrorMsg struct{ err error }
type tickMsg time.Time
type readingsMsg [globals.MAX_CHANNEL]channelReading
type digitalMsg struct {
	channel int
	text    string
	err     error
}

// connectionGuard is shared by every copy of the model. It holds a connected device until the
// monitor view claims it, so a handshake that outlives the program still gets closed.
type connectionGuard struct {
	mu      sync.Mutex
	closed  bool
	pending Device
}

// adopt reports false once the program has quit, the caller then owns the device
func (g *connectionGuard) adopt(device Device) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return false
	}
	g.pending = device
	return true
}

func (g *connectionGuard) claim() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.pending = nil
}

// shutdown returns a device that connected but was never claimed
func (g *connectionGuard) shutdown() Device {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.closed = true
	pending := g.pending
	g.pending = nil
	return pending
}

func disconnectQuietly(device Device, logger *zap.Logger) {
	if device == nil {
		return
	}
	if err := device.Disconnect(); err != nil {
		logger.Warn("Error disconnecting", zap.Error(err))
	}
}

type channelReading struct {
	volts float64
	err   error
	valid bool
}

// defines the internal state of the TUI
type model struct {
	// global internal state
	uiState UIState
	cursor  int
	err     error
	logger  *zap.Logger

	// connect to port internal state
	potentialPorts []string
	portName       string
	connector      PortConnector
	device         Device
	guard          *connectionGuard

	// monitor internal state
	interval   time.Duration
	readings   [globals.MAX_CHANNEL]channelReading
	digital    [globals.MAX_CHANNEL]string
	status     string
	lastUpdate time.Time
}

func StartApplication(portLister PortLister, connector PortConnector, interval time.Duration, logger *zap.Logger) error {
	ports, err := portLister()
	if err != nil {
		return errors.Wrap(err, "unable to list serial ports")
	}

	m := initialModel(ports, connector, interval, logger)
	final, err := tea.NewProgram(m).Run()
	disconnectQuietly(m.guard.shutdown(), m.logger)
	if err != nil {
		m.logger.Error("Error running TUI program", zap.Error(err))
		return err
	}

	// the quit path disconnects, this covers a program killed from outside
	if m, ok := final.(model); ok && m.device != nil {
		m.device.Disconnect()
	}
	return nil
}

// TUI tries to use functional programming paradigms, so you return a new model everytime, rather
// then modify a pointer
func initialModel(ports []string, connector PortConnector, interval time.Duration, logger *zap.Logger) model {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = time.Second
	}

	return model{
		uiState:        VIEW_LIST_PORTS,
		potentialPorts: ports,
		connector:      connector,
		guard:          &connectionGuard{},
		interval:       interval,
		logger:         logger,
	}
}

func connectToPort(guard *connectionGuard, connector PortConnector, port string, logger *zap.Logger) tea.Cmd {
	return func() tea.Msg {
		device, err := connector(port)
		if err != nil {
			return connectionErrorMsg{err}
		}
		if !guard.adopt(device) {
			logger.Info("Closing connection made after quit", zap.String("portName", port))
			disconnectQuietly(device, logger)
			return nil
		}
		return connectionSuccessMsg{device}
	}
}

func readAllChannels(device Device) tea.Cmd {
	return func() tea.Msg {
		var readings readingsMsg
		for i := range readings {
			volts, err := device.GetVoltage(i + globals.MIN_CHANNEL)
			readings[i] = channelReading{volts: volts, err: err, valid: err == nil}
		}
		return readings
	}
}

func waitForTick(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func setOutput(device Device, channel, level int) tea.Cmd {
	return func() tea.Msg {
		if err := device.SetDigitalOutput(channel, level); err != nil {
			return digitalMsg{channel: channel, err: err}
		}
		return digitalMsg{channel: channel, text: fmt.Sprintf("out=%d", level)}
	}
}

func readInput(device Device, channel int) tea.Cmd {
	return func() tea.Msg {
		value, err := device.GetDigitalInput(channel)
		if err != nil {
			return digitalMsg{channel: channel, err: err}
		}
		return digitalMsg{channel: channel, text: fmt.Sprintf("in=%d", value)}
	}
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) View() string {
	s := ""
	if m.err != nil {
		s += errorStyle.Render(fmt.Sprintf("Error %v", m.err)) + "\n\n"
	}

	switch m.uiState {
	case VIEW_LIST_PORTS:
		s += headerStyle.Render("Select a port:") + "\n\n"
		if len(m.potentialPorts) == 0 {
			s += mutedStyle.Render("No serial ports found") + "\n"
		}
		for i, port := range m.potentialPorts {
			s += fmt.Sprintf("%s %s\n", renderCursor(i == m.cursor), renderItem(port, i == m.cursor))
		}
		s += "\n" + renderHint("↑/↓ move • enter connect • q quit")
	case VIEW_LOADING:
		s += fmt.Sprintf("Connecting to %s...\n", m.portName)
	case VIEW_MONITOR:
		s += m.monitorView()
	}

	return s
}

func (m model) monitorView() string {
	var b strings.Builder

	b.WriteString(headerStyle.Render(fmt.Sprintf("%s on %s", globals.DEVICE_NAME, m.portName)))
	b.WriteString("\n\n")

	for i, r := range m.readings {
		ch := i + globals.MIN_CHANNEL
		fmt.Fprintf(&b, "%s %s %s %s %s\n",
			renderCursor(i == m.cursor),
			renderItem(fmt.Sprintf("CH%d", ch), i == m.cursor),
			renderVolts(r),
			renderBar(r, globals.VOLTS_FULL_SCALE),
			warningStyle.Render(m.digital[i]),
		)
	}

	if !m.lastUpdate.IsZero() {
		b.WriteString("\n" + mutedStyle.Render("updated "+m.lastUpdate.Format("15:04:05.000")))
	}
	if m.status != "" {
		b.WriteString("\n" + m.status)
	}
	b.WriteString("\n" + renderHint("↑/↓ channel • h set high • l set low • d read input • q quit"))

	return containerStyle.Render(b.String())
}
