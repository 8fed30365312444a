// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Thermoquad/astrolabe/pkg/jy901"
)

// Error log entry
type errorLogEntry struct {
	timestamp time.Time
	message   string
	isError   bool // true for errors, false for warnings
}

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("12")).
			Background(lipgloss.Color("235")).
			Padding(0, 1)

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	statsLabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("12")).
			Bold(true)

	statsValueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("11"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)
)

// TUI model
type model struct {
	connInfo      string
	statsInterval int
	showAll       bool
	stats         *jy901.Statistics
	errorLog      []errorLogEntry
	maxLogEntries int
	synchronized  bool
	invalidFrames int
	width         int
	height        int
	quitting      bool
	sample        *jy901.Sample
}

// Messages
type tickMsg time.Time
type frameMsg struct {
	frame            *jy901.Frame
	decodeErr        error
	validationErrors []jy901.ValidationError
}
type syncMsg struct {
	invalidFrames int
}

func initialModel(connInfo string, statsInterval int, showAll bool) model {
	return model{
		connInfo:      connInfo,
		statsInterval: statsInterval,
		showAll:       showAll,
		stats:         jy901.NewStatistics(),
		errorLog:      make([]errorLogEntry, 0),
		maxLogEntries: 100,
		width:         80,
		height:        24,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		tickCmd(),
		tea.EnterAltScreen,
	)
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "r":
			m.stats.Reset()
			m.addLogEntry("Statistics reset", false)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tickMsg:
		m.stats.CalculateRates()
		return m, tickCmd()

	case syncMsg:
		m.synchronized = true
		m.invalidFrames = msg.invalidFrames
		if msg.invalidFrames > 0 {
			m.addLogEntry(fmt.Sprintf("Synchronized after skipping %d invalid frames", msg.invalidFrames), false)
		} else {
			m.addLogEntry("Synchronized", false)
		}

	case frameMsg:
		if msg.decodeErr != nil {
			if m.synchronized {
				m.stats.Update(nil, msg.decodeErr, nil)
				m.addLogEntry(fmt.Sprintf("DECODE ERROR: %v", msg.decodeErr), true)
			}
		} else if msg.frame != nil {
			m.stats.Update(msg.frame, nil, msg.validationErrors)

			if m.sample == nil {
				m.sample = &jy901.Sample{}
			}
			m.sample.Timestamp = msg.frame.Timestamp
			_ = m.sample.Apply(msg.frame)

			frameType := jy901.FormatFrameType(msg.frame.Type)
			if len(msg.validationErrors) > 0 {
				for _, err := range msg.validationErrors {
					m.addLogEntry(fmt.Sprintf("%s: %s", frameType, err.Message), true)
				}
			} else if m.showAll {
				m.addLogEntry(fmt.Sprintf("%s (valid)", frameType), false)
			}
		}
	}

	return m, nil
}

func (m *model) addLogEntry(message string, isError bool) {
	entry := errorLogEntry{
		timestamp: time.Now(),
		message:   message,
		isError:   isError,
	}
	m.errorLog = append(m.errorLog, entry)

	// Keep only last N entries
	if len(m.errorLog) > m.maxLogEntries {
		m.errorLog = m.errorLog[len(m.errorLog)-m.maxLogEntries:]
	}
}

// labelled renders "Label: value" pairs separated by three spaces
func labelled(pairs ...string) string {
	parts := make([]string, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		parts = append(parts, statsLabelStyle.Render(pairs[i])+" "+statsValueStyle.Render(pairs[i+1]))
	}
	return strings.Join(parts, "   ") + "\n"
}

// renderSample renders the latest value of every block seen so far
func renderSample(s *jy901.Sample) string {
	var b strings.Builder
	if s.Time != nil {
		b.WriteString(labelled("Time:", s.Time.String()))
	}
	if s.Orientation != nil {
		roll, pitch, yaw := s.Orientation.Degrees()
		b.WriteString(labelled(
			"Roll:", fmt.Sprintf("%7.2f°", roll),
			"Pitch:", fmt.Sprintf("%7.2f°", pitch),
			"Yaw:", fmt.Sprintf("%7.2f°", yaw),
		))
	}
	if s.Acceleration != nil {
		a := s.Acceleration
		b.WriteString(labelled("Accel:", fmt.Sprintf("%7.3f %7.3f %7.3f m/s²", a.X, a.Y, a.Z)))
	}
	if s.AngularVelocity != nil {
		g := s.AngularVelocity
		b.WriteString(labelled("Gyro:", fmt.Sprintf("%7.2f %7.2f %7.2f °/s", g.X, g.Y, g.Z)))
	}
	if s.MagneticField != nil {
		h := s.MagneticField
		b.WriteString(labelled("Mag:", fmt.Sprintf("%6.0f %6.0f %6.0f", h.X, h.Y, h.Z)))
	}
	if s.Temperature != nil {
		b.WriteString(labelled("Temp:", fmt.Sprintf("%.2f°C", *s.Temperature)))
	}
	if s.PressureHeight != nil {
		b.WriteString(labelled(
			"Pressure:", fmt.Sprintf("%d Pa", s.PressureHeight.Pressure),
			"Height:", fmt.Sprintf("%.2f m", float64(s.PressureHeight.Height)/100),
		))
	}
	if s.Position != nil {
		lon, lat := s.Position.Degrees()
		b.WriteString(labelled("Lon:", fmt.Sprintf("%.6f°", lon), "Lat:", fmt.Sprintf("%.6f°", lat)))
	}
	if s.GPSAccuracy != nil {
		b.WriteString(labelled(
			"Satellites:", fmt.Sprintf("%d", s.GPSAccuracy.Satellites),
			"HDOP:", fmt.Sprintf("%.2f", s.GPSAccuracy.HDOP),
		))
	}
	if s.PinStatus != nil {
		p := s.PinStatus
		b.WriteString(labelled("Pins:", fmt.Sprintf("D0=%d D1=%d D2=%d D3=%d", p[0], p[1], p[2], p[3])))
	}
	if s.Quaternion != nil {
		q := s.Quaternion
		b.WriteString(labelled("Quaternion:", fmt.Sprintf("%.4f %.4f %.4f %.4f", q.Q0, q.Q1, q.Q2, q.Q3)))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func (m model) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	// Header
	var s strings.Builder
	s.WriteString(titleStyle.Render("ASTROLABE - ERROR DETECTION"))
	s.WriteString("\n")
	mode := "Errors only"
	if m.showAll {
		mode = "All frames"
	}
	s.WriteString(headerStyle.Render(fmt.Sprintf("%s | Mode: %s | 'r' reset | 'q' quit", m.connInfo, mode)))
	s.WriteString("\n\n")

	// Sync status
	if !m.synchronized {
		s.WriteString(warningStyle.Render("⏳ Waiting for synchronization..."))
		s.WriteString("\n\n")
	} else {
		s.WriteString(statsValueStyle.Render("✓ Synchronized"))
		if m.invalidFrames > 0 {
			s.WriteString(headerStyle.Render(fmt.Sprintf(" (skipped %d invalid frames)", m.invalidFrames)))
		}
		s.WriteString("\n\n")
	}

	// Statistics
	var validPercent, errorPercent float64
	totalErrors := m.stats.TotalErrors()
	if m.stats.TotalFrames > 0 {
		validPercent = float64(m.stats.ValidFrames) * 100.0 / float64(m.stats.TotalFrames)
		errorPercent = float64(totalErrors) * 100.0 / float64(m.stats.TotalFrames)
	}

	statsContent := strings.Builder{}
	statsContent.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s\n",
		statsLabelStyle.Render("Total:"), statsValueStyle.Render(fmt.Sprintf("%d", m.stats.TotalFrames)),
		statsLabelStyle.Render("Valid:"), statsValueStyle.Render(fmt.Sprintf("%d (%.1f%%)", m.stats.ValidFrames, validPercent)),
		statsLabelStyle.Render("Errors:"), errorStyle.Render(fmt.Sprintf("%d (%.1f%%)", totalErrors, errorPercent)),
	))

	if m.stats.ChecksumErrors > 0 || m.stats.DecodeErrors > 0 {
		statsContent.WriteString(fmt.Sprintf("%s %s   %s %s\n",
			statsLabelStyle.Render("Checksum Errors:"), errorStyle.Render(fmt.Sprintf("%d", m.stats.ChecksumErrors)),
			statsLabelStyle.Render("Decode Errors:"), errorStyle.Render(fmt.Sprintf("%d", m.stats.DecodeErrors)),
		))
	}

	if m.stats.AnomalousValues > 0 {
		statsContent.WriteString(fmt.Sprintf("%s %s (%s: %d, %s: %d, %s: %d, %s: %d)\n",
			statsLabelStyle.Render("Anomalous:"), warningStyle.Render(fmt.Sprintf("%d", m.stats.AnomalousValues)),
			headerStyle.Render("time"), m.stats.InvalidTimes,
			headerStyle.Render("temp"), m.stats.InvalidTemps,
			headerStyle.Render("quaternion"), m.stats.BadQuaternions,
			headerStyle.Render("range"), m.stats.OutOfRange,
		))
	}

	errorRate := statsValueStyle.Render(fmt.Sprintf("%.1f err/s", m.stats.ErrorRate))
	if m.stats.ErrorRate > 0 {
		errorRate = errorStyle.Render(fmt.Sprintf("%.1f err/s", m.stats.ErrorRate))
	}
	statsContent.WriteString(fmt.Sprintf("%s %s   %s %s",
		statsLabelStyle.Render("Frame Rate:"), statsValueStyle.Render(fmt.Sprintf("%.1f frames/s", m.stats.FrameRate)),
		statsLabelStyle.Render("Error Rate:"), errorRate,
	))

	s.WriteString(boxStyle.Render(statsContent.String()))
	s.WriteString("\n\n")

	// Telemetry section (only shown once a frame decoded)
	if m.sample != nil {
		s.WriteString(statsLabelStyle.Render("Latest Telemetry:"))
		s.WriteString("\n")
		s.WriteString(boxStyle.Render(renderSample(m.sample)))
		s.WriteString("\n\n")
	}

	// Error log
	s.WriteString(statsLabelStyle.Render("Recent Events:"))
	s.WriteString("\n")

	logHeight := m.height - 22 // Reserve space for header, stats and telemetry
	if logHeight < 5 {
		logHeight = 5
	}

	logContent := strings.Builder{}
	startIdx := len(m.errorLog) - logHeight
	if startIdx < 0 {
		startIdx = 0
	}

	if len(m.errorLog) == 0 {
		logContent.WriteString(headerStyle.Render("  (no events yet)"))
	} else {
		for i := startIdx; i < len(m.errorLog); i++ {
			entry := m.errorLog[i]
			timestamp := entry.timestamp.Format("01/02/06 15:04:05.000")
			if entry.isError {
				logContent.WriteString(fmt.Sprintf("%s %s\n",
					headerStyle.Render(timestamp),
					errorStyle.Render("✗ "+entry.message),
				))
			} else {
				logContent.WriteString(fmt.Sprintf("%s %s\n",
					headerStyle.Render(timestamp),
					warningStyle.Render("ℹ "+entry.message),
				))
			}
		}
	}

	s.WriteString(boxStyle.Width(m.width - 4).Render(logContent.String()))

	return s.String()
}
