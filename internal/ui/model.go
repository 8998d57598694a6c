// ABOUTME: Bubbletea model for player TUI
// ABOUTME: Renders connection, stream, decode and output state from player status samples
package ui

import (
	"fmt"
	"strings"

	"github.com/Resonate-Protocol/squeeze-go/internal/player"
	"github.com/Resonate-Protocol/squeeze-go/pkg/audio"
	"github.com/Resonate-Protocol/squeeze-go/pkg/slimproto"
	tea "github.com/charmbracelet/bubbletea"
)

// Model represents the TUI state
type Model struct {
	name   string
	status player.Status

	// Debug
	showDebug bool

	// Dimensions
	width  int
	height int
}

// StatusMsg carries a fresh player status sample
type StatusMsg struct {
	Status player.Status
}

// NewModel creates a new TUI model for the named player
func NewModel(name string) Model {
	return Model{name: name}
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case StatusMsg:
		m.status = msg.Status
	}

	return m, nil
}

// View renders the TUI
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString(m.renderPlayback())
	b.WriteString(m.renderBuffers())
	if m.showDebug {
		b.WriteString(m.renderDebug())
	}
	b.WriteString(m.renderHelp())
	return b.String()
}

// renderHeader renders connection status
func (m Model) renderHeader() string {
	connStatus := "Disconnected"
	switch m.status.Connection {
	case slimproto.Connecting:
		connStatus = "Connecting..."
	case slimproto.Handshaking:
		connStatus = fmt.Sprintf("Handshaking with %s", m.status.Controller)
	case slimproto.Active:
		connStatus = fmt.Sprintf("Connected to %s", m.status.Controller)
	}

	return fmt.Sprintf(`┌─ %-50s ┐
│ Status: %-45s │
├──────────────────────────────────────────────────────┤
`, truncate(m.name, 50), truncate(connStatus, 45))
}

// renderPlayback renders pipeline states, position and gain
func (m Model) renderPlayback() string {
	s := fmt.Sprintf("│ Stream: %-10s Decode: %-10s Output: %-8s│\n",
		m.status.Stream, m.status.Decode, m.status.Output)
	s += fmt.Sprintf("│ Elapsed: %-44s │\n", formatElapsed(m.status.Elapsed()))
	s += fmt.Sprintf("│ Gain:   L %-6s R %-6s%-27s │\n",
		formatGain(m.status.GainLeft), formatGain(m.status.GainRight), "")
	return s
}

// renderBuffers renders buffer fullness
func (m Model) renderBuffers() string {
	return fmt.Sprintf(`├──────────────────────────────────────────────────────┤
│ Stream: [%s] %3d%%%-23s │
│ Output: [%s] %3d%%%-23s │
│ Received: %-42d │
`,
		renderBar(m.status.StreamFull, m.status.StreamSize, 20), percent(m.status.StreamFull, m.status.StreamSize), "",
		renderBar(m.status.OutputFull, m.status.OutputSize, 20), percent(m.status.OutputFull, m.status.OutputSize), "",
		m.status.BytesRead)
}

// renderHelp renders keyboard shortcuts
func (m Model) renderHelp() string {
	return `│ d:Debug  q:Quit                                      │
└──────────────────────────────────────────────────────┘
`
}

// renderDebug renders raw counters
func (m Model) renderDebug() string {
	return fmt.Sprintf(`│ DEBUG:                                               │
│   Frames played: %-36d │
│   Sample rate:   %-36d │
│   Stream bytes:  %-36s │
│   Output bytes:  %-36s │
`, m.status.FramesPlayed, m.status.SampleRate,
		fmt.Sprintf("%d/%d", m.status.StreamFull, m.status.StreamSize),
		fmt.Sprintf("%d/%d", m.status.OutputFull, m.status.OutputSize))
}

// handleKey handles keyboard input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "d":
		m.showDebug = !m.showDebug
	}

	return m, nil
}

// Utility functions
func renderBar(value, max, width int) string {
	filled := 0
	if max > 0 {
		filled = (value * width) / max
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

func percent(value, max int) int {
	if max <= 0 {
		return 0
	}
	return value * 100 / max
}

func formatElapsed(seconds float64) string {
	total := int(seconds)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}

// formatGain renders a 16.16 gain as a multiplier
func formatGain(gain uint32) string {
	return fmt.Sprintf("%.2f", float64(gain)/audio.UnityGain)
}

func truncate(s string, length int) string {
	if len(s) <= length {
		return s
	}
	return s[:length-3] + "..."
}
