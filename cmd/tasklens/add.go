package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Jayphen/tasklens/internal/tasksource"
	"github.com/Jayphen/tasklens/internal/types"
)

func newAddCmd() *cobra.Command {
	var project, due, priority, description, provider string

	cmd := &cobra.Command{
		Use:   "add <text>",
		Short: "Add a task",
		Long: `Add a task to a source. Without --provider the first source that
accepts new tasks is used; for a vault that is its daily note.

Examples:
  tasklens add Buy milk --due today
  tasklens add "Fix flaky test" --provider work --priority high`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := strings.TrimSpace(strings.Join(args, " "))
			if name == "" {
				return errors.New("task text cannot be empty")
			}

			patch := tasksource.TaskPatch{Name: types.SetValue(name)}
			if description != "" {
				patch.Description = types.SetValue(description)
			}
			if due != "" {
				d, err := types.ParseDueItem(due)
				if err != nil {
					return err
				}
				patch.Due = types.DuePatch(d)
			}
			if priority != "" {
				p, err := types.ParsePriority(priority)
				if err != nil {
					return err
				}
				patch.Priority = types.SetValue(p)
			}

			return withSources(func(ms *tasksource.MultiSource) error {
				var err error
				if provider != "" {
					err = ms.CreateTaskIn(cmd.Context(), provider, project, patch)
				} else {
					err = ms.CreateTask(cmd.Context(), project, patch)
				}
				if err != nil {
					return fmt.Errorf("failed to add task: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added: %s\n", name)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&project, "project", "p", "", "Project to add to (source specific, e.g. a note path)")
	cmd.Flags().StringVarP(&due, "due", "d", "", "Due date: today, tomorrow, weekend, next_week or YYYY-MM-DD")
	cmd.Flags().StringVar(&priority, "priority", "", "Priority: lowest, low, normal, medium, high, highest")
	cmd.Flags().StringVar(&description, "description", "", "Description")
	cmd.Flags().StringVar(&provider, "provider", "", "Name of the source to add to")

	return cmd
}
