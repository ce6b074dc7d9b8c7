package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/spf13/cobra"

	"github.com/Jayphen/tasklens/internal/tasksource"
	"github.com/Jayphen/tasklens/internal/tui"
	"github.com/Jayphen/tasklens/internal/types"
)

var (
	listJSON   bool
	listAll    bool
	listStates []string
	listDue    []string
)

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List tasks",
		Long: `List tasks from all sources, in progress first, then by due date and
priority. Without flags the filter from the config file is used.`,
		RunE: runList,
	}

	cmd.Flags().BoolVar(&listJSON, "json", false, "Output in JSON format")
	cmd.Flags().BoolVarP(&listAll, "all", "a", false, "Show every task, including completed ones")
	cmd.Flags().StringSliceVar(&listStates, "state", nil, "Filter by state (completed, uncompleted, in_progress, unknown)")
	cmd.Flags().StringSliceVar(&listDue, "due", nil, "Filter by due date (overdue, today, future, no_date)")

	return cmd
}

// listFilter combines the configured filter with the command line.
func listFilter() (types.Filter, error) {
	filter, err := cfg.TaskFilter()
	if err != nil {
		return filter, err
	}
	if listAll {
		filter = types.FullFilter()
	}
	if len(listStates) > 0 {
		filter.States = nil
		for _, s := range listStates {
			st, err := types.ParseFilterState(s)
			if err != nil {
				return filter, err
			}
			filter.States = append(filter.States, st)
		}
	}
	if len(listDue) > 0 {
		filter.Due = nil
		for _, d := range listDue {
			b, err := types.ParseDueBucket(d)
			if err != nil {
				return filter, err
			}
			filter.Due = append(filter.Due, b)
		}
	}
	return filter, nil
}

func runList(cmd *cobra.Command, args []string) error {
	filter, err := listFilter()
	if err != nil {
		return err
	}

	return withSources(func(ms *tasksource.MultiSource) error {
		tasks, err := ms.ListTasks(cmd.Context(), nil, &filter)
		if err != nil {
			return fmt.Errorf("failed to list tasks: %w", err)
		}
		tasksource.SortTasks(tasks)

		out := cmd.OutOrStdout()

		// Output
		if listJSON {
			if tasks == nil {
				tasks = []tasksource.Task{}
			}
			data, err := json.MarshalIndent(tasks, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to marshal JSON: %w", err)
			}
			fmt.Fprintln(out, string(data))
			return nil
		}

		// Pretty print
		if len(tasks) == 0 {
			fmt.Fprintln(out, "No tasks found")
			return nil
		}

		printTaskTable(out, tasks, time.Now())
		return nil
	})
}

// shortID abbreviates long ids; any unique prefix is accepted back.
func shortID(id string) string {
	if len(id) > 12 {
		return id[:8]
	}
	return id
}

func printTaskTable(out io.Writer, tasks []tasksource.Task, now time.Time) {
	// Header
	header := fmt.Sprintf("%-14s %-1s %-2s %-11s %-44s %s", "ID", "", "", "DUE", "TASK", "SOURCE")
	fmt.Fprintln(out, lipgloss.NewStyle().Bold(true).Foreground(tui.ColorGray).Render(header))
	fmt.Fprintln(out, strings.Repeat("-", 86))

	for _, t := range tasks {
		due := ""
		if t.Due != nil {
			due = t.Due.Format(types.DateLayout)
		}
		dueStyle := tui.DueFutureStyle
		switch types.BucketOf(t.Due, now) {
		case types.DueOverdue:
			dueStyle = tui.DueOverdueStyle
		case types.DueToday:
			dueStyle = tui.DueTodayStyle
		}
		if t.State == types.StateCompleted {
			dueStyle = tui.DimStyle
		}

		nameStyle := lipgloss.NewStyle()
		switch t.State.Category() {
		case types.FilterCompleted:
			nameStyle = tui.CompletedStyle
		case types.FilterInProgress:
			nameStyle = tui.InProgressStyle
		}

		fmt.Fprintf(out, "%s %s %s %s %s %s\n",
			padRight(shortID(t.ID), 14),
			tui.StateIndicator(t.State),
			tui.PriorityIndicator(t.Priority),
			padRight(dueStyle.Render(due), 11),
			padRight(nameStyle.Render(ansi.Truncate(t.Name(), 44, "…")), 44),
			tui.GetSourceStyle(t.SourceType).Render(t.Source),
		)
	}

	fmt.Fprintln(out)
	overdue := len(tasksource.Due(tasks, now))
	fmt.Fprintf(out, "Total: %d tasks, %d due today or overdue\n", len(tasks), overdue)
}

// padRight pads to a visible width; ANSI styled strings break %-Ns.
func padRight(s string, width int) string {
	if w := ansi.StringWidth(s); w < width {
		return s + strings.Repeat(" ", width-w)
	}
	return s
}
