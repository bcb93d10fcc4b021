package terminal

import (
	"fmt"
	"time"

	"DAQ-Lab/DLPIO8/internal/globals"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
)

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			disconnectQuietly(m.guard.shutdown(), m.logger)
			if m.device != nil {
				if err := m.device.Disconnect(); err != nil {
					m.logger.Warn("Error disconnecting on quit", zap.Error(err))
				}
				m.device = nil
			}
			return m, tea.Quit
		}
	}

	switch m.uiState {
	case VIEW_LIST_PORTS:
		return m.updatePortSelection(msg)
	case VIEW_LOADING:
		return m.updateLoading(msg)
	case VIEW_MONITOR:
		return m.updateMonitor(msg)
	}

	return m, nil
}

func (m model) updatePortSelection(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "up":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down":
			if m.cursor < len(m.potentialPorts)-1 {
				m.cursor++
			}
		case "enter":
			if len(m.potentialPorts) == 0 {
				return m, nil
			}
			m.err = nil
			m.portName = m.potentialPorts[m.cursor]
			m.uiState = VIEW_LOADING
			return m, connectToPort(m.guard, m.connector, m.portName, m.logger)
		}
	}

	return m, nil
}

func (m model) updateLoading(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case connectionSuccessMsg:
		m.logger.Info("Connected from terminal", zap.String("portName", m.portName))
		m.guard.claim()
		m.device = msg.device
		m.cursor = 0
		m.uiState = VIEW_MONITOR
		return m, readAllChannels(m.device)
	case connectionErrorMsg:
		m.logger.Warn("Connection failed from terminal", zap.String("portName", m.portName), zap.Error(msg.err))
		m.err = msg.err
		m.uiState = VIEW_LIST_PORTS
		return m, nil
	}
	return m, nil
}

func (m model) updateMonitor(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		return m, readAllChannels(m.device)
	case readingsMsg:
		m.readings = msg
		m.lastUpdate = time.Now()
		return m, waitForTick(m.interval)
	case digitalMsg:
		idx := msg.channel - globals.MIN_CHANNEL
		if msg.err != nil {
			m.status = errorStyle.Render(fmt.Sprintf("CH%d: %v", msg.channel, msg.err))
			return m, nil
		}
		if idx >= 0 && idx < len(m.digital) {
			m.digital[idx] = msg.text
		}
		m.status = ""
		return m, nil
	case tea.KeyMsg:
		channel := m.cursor + globals.MIN_CHANNEL
		switch msg.String() {
		case "up":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down":
			if m.cursor < globals.MAX_CHANNEL-1 {
				m.cursor++
			}
		case "h":
			return m, setOutput(m.device, channel, 1)
		case "l":
			return m, setOutput(m.device, channel, 0)
		case "d":
			return m, readInput(m.device, channel)
		}
	}
	return m, nil
}
