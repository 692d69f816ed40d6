package cli

import (
	"errors"
	"fmt"
	"os"
	"runtime/debug"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/Warren2005/medical-microscopy/internal/adapters/driving/tui"
	"github.com/Warren2005/medical-microscopy/internal/core/ports/driving"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive terminal UI",
	Long: `Launch the interactive terminal interface.

Controls:
  ↑/k, ↓/j - Navigate results
  Enter    - Search / Inspect result
  Esc      - Back / New search
  +/-      - Vote on the selected result
  ?        - Toggle help
  q        - Quit`,
	RunE: runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, _ []string) error {
	if controller == nil {
		return errors.New("search controller not configured")
	}

	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Panic in TUI: %v\n%s\n", r, debug.Stack())
		}
	}()

	app := tui.NewApp(controller)
	p := tea.NewProgram(app, tea.WithAltScreen())

	// Forward controller snapshots into the bubbletea event loop.
	unsubscribe := controller.Subscribe(func(s driving.Snapshot) {
		p.Send(tui.SnapshotMsg(s))
	})
	defer unsubscribe()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
