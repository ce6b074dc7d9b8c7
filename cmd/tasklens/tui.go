package main

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/Jayphen/tasklens/internal/tasksource"
	"github.com/Jayphen/tasklens/internal/tui"
)

func newTUICmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Launch the terminal user interface",
		Long: `Launch the interactive TUI. Tasks reload every refresh_interval and
after each change.`,
		RunE: runTUI,
	}
}

func runTUI(cmd *cobra.Command, args []string) error {
	filter, err := cfg.TaskFilter()
	if err != nil {
		return err
	}

	return withSources(func(ms *tasksource.MultiSource) error {
		model := tui.NewModel(ms, tui.Options{
			Version: Version,
			Filter:  filter,
			Refresh: cfg.RefreshInterval,
		})
		p := tea.NewProgram(
			model,
			tea.WithAltScreen(),
			tea.WithContext(cmd.Context()),
		)

		if _, err := p.Run(); err != nil {
			return fmt.Errorf("error running TUI: %w", err)
		}
		return nil
	})
}
