// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Thermoquad/astrolabe/pkg/device"
	"github.com/Thermoquad/astrolabe/pkg/jy901"
)

//////////////////////////////////////////////////////////////
// Constants
//////////////////////////////////////////////////////////////

// Focus states
const (
	focusActionList = iota
	focusArgInput
)

//////////////////////////////////////////////////////////////
// Types
//////////////////////////////////////////////////////////////

// action is one device command offered in the control TUI
type action struct {
	name        string
	description string
	placeholder string // empty when the action takes no argument
	run         func(d *device.Device, arg string) (string, error)
}

// Implement list.Item interface
func (a action) Title() string       { return a.name }
func (a action) Description() string { return a.description }
func (a action) FilterValue() string { return a.name }

// pollStats counts register polls
type pollStats struct {
	polls     uint64
	failures  uint64
	startTime time.Time
}

func (s pollStats) rate() float64 {
	elapsed := time.Since(s.startTime).Seconds()
	if elapsed <= 0 {
		return 0
	}
	return float64(s.polls) / elapsed
}

// controlModel is the Bubble Tea model for the control TUI
type controlModel struct {
	connMgr  *connectionManager
	connInfo string

	actions    []action
	actionList list.Model
	argInput   textinput.Model
	focused    int

	sample        *jy901.Sample
	stats         pollStats
	errorLog      []errorLogEntry
	maxLogEntries int
	calibration   device.CalibrationState

	width          int
	height         int
	quitting       bool
	connectionLost bool
}

//////////////////////////////////////////////////////////////
// Messages
//////////////////////////////////////////////////////////////

type controlTickMsg time.Time

type pollMsg struct {
	sample *jy901.Sample
	err    error
}

type actionDoneMsg struct {
	result      string
	err         error
	calibration device.CalibrationState
}

type connectionLostMsg struct{}

type reconnectedMsg struct {
	connInfo string
}

//////////////////////////////////////////////////////////////
// Actions
//////////////////////////////////////////////////////////////

// splitArgs parses "<pin> <value>" style arguments
func splitArgs(arg string, n int) ([]string, error) {
	fields := strings.Fields(arg)
	if len(fields) != n {
		return nil, fmt.Errorf("expected %d arguments, got %d", n, len(fields))
	}
	return fields, nil
}

func calibrateAction(name string, mode jy901.CalibrationMode) action {
	return action{
		name:        name,
		description: "Enter calibration, 'Exit calibration' when done",
		run: func(d *device.Device, _ string) (string, error) {
			if err := d.Calibration().Enter(mode, 0); err != nil {
				return "", err
			}
			return fmt.Sprintf("Calibration mode %s", mode), nil
		},
	}
}

// controlActions lists the commands available in the control TUI
func controlActions() []action {
	return []action{
		{
			name:        "Output rate",
			description: "UART return rate (Hz, single, none)",
			placeholder: "10",
			run: func(d *device.Device, arg string) (string, error) {
				r, err := jy901.ParseRate(arg)
				if err != nil {
					return "", err
				}
				if err := d.SetReturnRate(r); err != nil {
					return "", err
				}
				return fmt.Sprintf("Output rate set to %s", r), nil
			},
		},
		{
			name:        "Output content",
			description: "Streamed blocks (default, mask or names)",
			placeholder: "default",
			run: func(d *device.Device, arg string) (string, error) {
				mask, err := parseContent(arg)
				if err != nil {
					return "", err
				}
				if err := d.SetReturnContent(mask); err != nil {
					return "", err
				}
				return fmt.Sprintf("Output content set to 0x%04X", mask), nil
			},
		},
		{
			name:        "LED",
			description: "Status LED on or off (saved)",
			placeholder: "on",
			run: func(d *device.Device, arg string) (string, error) {
				on, err := parseOnOff(arg)
				if err != nil {
					return "", err
				}
				if err := d.SetLED(on); err != nil {
					return "", err
				}
				return fmt.Sprintf("LED %s", strings.ToLower(arg)), nil
			},
		},
		calibrateAction("Calibrate gyro", jy901.CalibrationGyro),
		calibrateAction("Calibrate magnetometer", jy901.CalibrationMag),
		calibrateAction("Zero height", jy901.CalibrationHeight),
		{
			name:        "Exit calibration",
			description: "Return to normal operation",
			run: func(d *device.Device, _ string) (string, error) {
				if err := d.Calibration().Exit(); err != nil {
					return "", err
				}
				return "Calibration finished", nil
			},
		},
		{
			name:        "Pin mode",
			description: "<pin> <analog|input|high|low|pwm>",
			placeholder: "2 pwm",
			run: func(d *device.Device, arg string) (string, error) {
				f, err := splitArgs(arg, 2)
				if err != nil {
					return "", err
				}
				pin, err := parsePin(f[0])
				if err != nil {
					return "", err
				}
				mode, err := jy901.ParsePinMode(f[1])
				if err != nil {
					return "", err
				}
				if err := d.Pins().SetMode(pin, mode); err != nil {
					return "", err
				}
				return fmt.Sprintf("D%d mode set to %s", pin, mode), nil
			},
		},
		{
			name:        "PWM period",
			description: "<pin> <period us>",
			placeholder: "2 20000",
			run: func(d *device.Device, arg string) (string, error) {
				pin, v, err := pinValue(arg)
				if err != nil {
					return "", err
				}
				if err := d.Pins().SetPWMPeriod(pin, v); err != nil {
					return "", err
				}
				return fmt.Sprintf("D%d PWM period %d us", pin, v), nil
			},
		},
		{
			name:        "PWM width",
			description: "<pin> <high time us>",
			placeholder: "2 1500",
			run: func(d *device.Device, arg string) (string, error) {
				pin, v, err := pinValue(arg)
				if err != nil {
					return "", err
				}
				if err := d.Pins().SetPWMWidth(pin, v); err != nil {
					return "", err
				}
				return fmt.Sprintf("D%d PWM width %d us", pin, v), nil
			},
		},
		{
			name:        "PWM duty",
			description: "<pin> <0-1>, needs a period first",
			placeholder: "2 0.5",
			run: func(d *device.Device, arg string) (string, error) {
				f, err := splitArgs(arg, 2)
				if err != nil {
					return "", err
				}
				pin, err := parsePin(f[0])
				if err != nil {
					return "", err
				}
				duty, err := strconv.ParseFloat(f[1], 64)
				if err != nil {
					return "", fmt.Errorf("invalid duty %q", f[1])
				}
				if err := d.Pins().SetPWMPower(pin, duty); err != nil {
					return "", err
				}
				return fmt.Sprintf("D%d PWM duty %.2f", pin, duty), nil
			},
		},
		{
			name:        "Save",
			description: "Persist the current configuration",
			run: func(d *device.Device, _ string) (string, error) {
				if err := d.Save(); err != nil {
					return "", err
				}
				return "Configuration saved", nil
			},
		},
	}
}

func pinValue(arg string) (uint8, uint16, error) {
	f, err := splitArgs(arg, 2)
	if err != nil {
		return 0, 0, err
	}
	pin, err := parsePin(f[0])
	if err != nil {
		return 0, 0, err
	}
	v, err := strconv.ParseUint(f[1], 10, 16)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid value %q", f[1])
	}
	return pin, uint16(v), nil
}

//////////////////////////////////////////////////////////////
// Model Initialization
//////////////////////////////////////////////////////////////

func initialControlModel(connMgr *connectionManager, connInfo string) controlModel {
	ti := textinput.New()
	ti.CharLimit = 32
	ti.Width = 20

	actions := controlActions()
	items := make([]list.Item, len(actions))
	for i, a := range actions {
		items[i] = a
	}

	delegate := list.NewDefaultDelegate()
	delegate.ShowDescription = true
	delegate.SetHeight(2)
	actionList := list.New(items, delegate, 30, 10)
	actionList.Title = "Actions"
	actionList.SetShowStatusBar(false)
	actionList.SetShowHelp(false)
	actionList.SetFilteringEnabled(false)

	m := controlModel{
		connMgr:       connMgr,
		connInfo:      connInfo,
		actions:       actions,
		actionList:    actionList,
		argInput:      ti,
		focused:       focusActionList,
		stats:         pollStats{startTime: time.Now()},
		errorLog:      make([]errorLogEntry, 0),
		maxLogEntries: 100,
		width:         80,
		height:        24,
	}
	m.syncPlaceholder()
	return m
}

//////////////////////////////////////////////////////////////
// Bubble Tea Interface
//////////////////////////////////////////////////////////////

func (m controlModel) Init() tea.Cmd {
	return controlTickCmd()
}

func controlTickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return controlTickMsg(t)
	})
}

func (m controlModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateListSize()

	case controlTickMsg:
		return m, controlTickCmd()

	case pollMsg:
		m.stats.polls++
		if msg.err != nil {
			m.stats.failures++
			m.addLogEntry(fmt.Sprintf("Poll failed: %v", msg.err), true)
		} else {
			m.sample = msg.sample
		}

	case actionDoneMsg:
		m.calibration = msg.calibration
		if msg.err != nil {
			m.addLogEntry(msg.err.Error(), true)
		} else {
			m.addLogEntry(msg.result, false)
		}

	case connectionLostMsg:
		m.connectionLost = true
		m.addLogEntry("Connection lost - reconnecting...", true)

	case reconnectedMsg:
		m.connectionLost = false
		m.connInfo = msg.connInfo
		m.calibration = device.Idle
		m.addLogEntry("Reconnected", false)
	}

	return m, nil
}

func (m controlModel) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		m.quitting = true
		return m, tea.Quit

	case "q":
		if m.focused == focusActionList {
			m.quitting = true
			return m, tea.Quit
		}

	case "tab", "shift+tab":
		m.toggleFocus()
		return m, nil

	case "enter":
		return m.runSelected()
	}

	var cmd tea.Cmd
	if m.focused == focusArgInput {
		m.argInput, cmd = m.argInput.Update(msg)
		return m, cmd
	}

	m.actionList, cmd = m.actionList.Update(msg)
	m.syncPlaceholder()
	return m, cmd
}

func (m *controlModel) toggleFocus() {
	a := m.selectedAction()
	if m.focused == focusActionList && a != nil && a.placeholder != "" {
		m.focused = focusArgInput
		m.argInput.Focus()
		return
	}
	m.focused = focusActionList
	m.argInput.Blur()
}

// runSelected runs the selected action off the UI goroutine
func (m controlModel) runSelected() (tea.Model, tea.Cmd) {
	if m.connectionLost {
		m.addLogEntry("Cannot send command: connection lost", true)
		return m, nil
	}
	a := m.selectedAction()
	if a == nil {
		return m, nil
	}

	arg := strings.TrimSpace(m.argInput.Value())
	if arg == "" {
		arg = a.placeholder
	}
	if a.placeholder != "" {
		m.addLogEntry(fmt.Sprintf("%s: %s", a.name, arg), false)
	}

	cm := m.connMgr
	run := a.run
	return m, func() tea.Msg {
		var done actionDoneMsg
		done.err = cm.do(func(d *device.Device) error {
			var err error
			done.result, err = run(d, arg)
			done.calibration = d.Calibration().State()
			return err
		})
		return done
	}
}

func (m controlModel) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	focusedBoxStyle := boxStyle.BorderForeground(lipgloss.Color("12"))

	var s strings.Builder

	s.WriteString(titleStyle.Render("ASTROLABE CONTROL"))
	s.WriteString(" ")
	connStatus := m.connInfo
	if m.connectionLost {
		connStatus = warningStyle.Render("RECONNECTING...")
	}
	s.WriteString(headerStyle.Render(fmt.Sprintf("| %s | q=quit Tab=switch Enter=run", connStatus)))
	s.WriteString("\n\n")

	// Layout: left panel (actions) | right panel (argument and state)
	leftWidth := 34
	rightWidth := m.width - leftWidth - 6

	listStyle := boxStyle.Width(leftWidth)
	if m.focused == focusActionList {
		listStyle = focusedBoxStyle.Width(leftWidth)
	}
	actionPanel := listStyle.Render(m.actionList.View())

	controlStyle := boxStyle.Width(rightWidth)
	if m.focused == focusArgInput {
		controlStyle = focusedBoxStyle.Width(rightWidth)
	}
	controlPanel := controlStyle.Render(m.renderControlPanel())

	s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, actionPanel, " ", controlPanel))
	s.WriteString("\n\n")

	s.WriteString(m.renderStatisticsBar())
	s.WriteString("\n\n")

	s.WriteString(m.renderEventLog())

	return s.String()
}

//////////////////////////////////////////////////////////////
// View Helpers
//////////////////////////////////////////////////////////////

func (m controlModel) renderControlPanel() string {
	var s strings.Builder

	if a := m.selectedAction(); a != nil {
		s.WriteString(fmt.Sprintf("%s %s\n", statsLabelStyle.Render("Action:"), a.name))
		if a.placeholder != "" {
			s.WriteString(statsLabelStyle.Render("Argument: "))
			if m.focused == focusArgInput {
				s.WriteString(m.argInput.View())
			} else {
				val := m.argInput.Value()
				if val == "" {
					val = a.placeholder
				}
				s.WriteString(fmt.Sprintf("[%s]", val))
			}
			s.WriteString("\n")
		}
	}

	calStyle := statsValueStyle
	if m.calibration != device.Idle {
		calStyle = warningStyle
	}
	s.WriteString(fmt.Sprintf("%s %s\n\n", statsLabelStyle.Render("Calibration:"), calStyle.Render(m.calibration.String())))

	if m.sample == nil {
		s.WriteString(headerStyle.Render("Waiting for first sample..."))
	} else {
		s.WriteString(renderSample(m.sample))
	}
	return s.String()
}

func (m controlModel) renderStatisticsBar() string {
	var failPercent float64
	if m.stats.polls > 0 {
		failPercent = float64(m.stats.failures) * 100.0 / float64(m.stats.polls)
	}

	failures := statsValueStyle.Render("0.0%")
	if failPercent > 0 {
		failures = errorStyle.Render(fmt.Sprintf("%.1f%%", failPercent))
	}

	content := fmt.Sprintf("%s %s  %s %s  %s %s",
		statsLabelStyle.Render("Polls:"), statsValueStyle.Render(fmt.Sprintf("%d", m.stats.polls)),
		statsLabelStyle.Render("Failed:"), failures,
		statsLabelStyle.Render("Rate:"), statsValueStyle.Render(fmt.Sprintf("%.1f polls/s", m.stats.rate())),
	)

	return boxStyle.Width(m.width - 4).Render(content)
}

func (m controlModel) renderEventLog() string {
	var s strings.Builder
	s.WriteString(statsLabelStyle.Render("EVENTS"))
	s.WriteString("\n")

	logHeight := 8
	if len(m.errorLog) < logHeight {
		logHeight = len(m.errorLog)
	}
	startIdx := len(m.errorLog) - logHeight

	if len(m.errorLog) == 0 {
		s.WriteString(headerStyle.Render("  (no events yet)"))
	} else {
		for i := startIdx; i < len(m.errorLog); i++ {
			entry := m.errorLog[i]
			timestamp := entry.timestamp.Format("15:04:05.000")
			icon := "i"
			style := warningStyle
			if entry.isError {
				icon = "x"
				style = errorStyle
			}
			s.WriteString(fmt.Sprintf("%s %s %s\n",
				headerStyle.Render(timestamp),
				style.Render(icon),
				entry.message))
		}
	}

	return boxStyle.Width(m.width - 4).Render(s.String())
}

//////////////////////////////////////////////////////////////
// Helpers
//////////////////////////////////////////////////////////////

func (m *controlModel) addLogEntry(message string, isError bool) {
	entry := errorLogEntry{
		timestamp: time.Now(),
		message:   message,
		isError:   isError,
	}
	m.errorLog = append(m.errorLog, entry)

	if len(m.errorLog) > m.maxLogEntries {
		m.errorLog = m.errorLog[len(m.errorLog)-m.maxLogEntries:]
	}
}

func (m *controlModel) selectedAction() *action {
	idx := m.actionList.Index()
	if idx < 0 || idx >= len(m.actions) {
		return nil
	}
	return &m.actions[idx]
}

// syncPlaceholder shows the example argument of the selected action and
// clears an argument typed for a different one
func (m *controlModel) syncPlaceholder() {
	if a := m.selectedAction(); a != nil && m.argInput.Placeholder != a.placeholder {
		m.argInput.Placeholder = a.placeholder
		m.argInput.SetValue("")
	}
}

func (m *controlModel) updateListSize() {
	listHeight := m.height / 2
	if listHeight < 5 {
		listHeight = 5
	}
	m.actionList.SetSize(32, listHeight)
}
