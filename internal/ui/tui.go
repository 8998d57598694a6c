// ABOUTME: TUI initialization and control
// ABOUTME: Wraps the bubbletea program and feeds it periodic status samples
package ui

import (
	"context"
	"time"

	"github.com/Resonate-Protocol/squeeze-go/internal/player"
	tea "github.com/charmbracelet/bubbletea"
)

// RefreshInterval is how often the status is sampled for display
const RefreshInterval = 250 * time.Millisecond

// Run creates the TUI program for the named player
func Run(name string) *tea.Program {
	return tea.NewProgram(NewModel(name), tea.WithAltScreen())
}

// Feed sends a status sample to p every RefreshInterval until ctx is done
func Feed(ctx context.Context, p *tea.Program, status func() player.Status) {
	ticker := time.NewTicker(RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Send(StatusMsg{Status: status()})
		}
	}
}
