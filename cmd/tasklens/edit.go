package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Jayphen/tasklens/internal/logging"
	"github.com/Jayphen/tasklens/internal/tasksource"
	"github.com/Jayphen/tasklens/internal/types"
)

// resolveTask lists every task and picks the one whose id starts with
// prefix. Patches are built from this read so the source can detect
// concurrent changes.
func resolveTask(ctx context.Context, ms *tasksource.MultiSource, prefix string) (tasksource.Task, error) {
	tasks, err := ms.ListTasks(ctx, nil, nil)
	if err != nil {
		return tasksource.Task{}, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasksource.FindByPrefix(tasks, prefix)
}

func applyPatch(ctx context.Context, ms *tasksource.MultiSource, patch tasksource.TaskPatch) error {
	errs := ms.UpdateTasks(ctx, []tasksource.TaskPatch{patch})
	if len(errs) == 0 {
		return nil
	}
	list := make([]error, len(errs))
	for i, e := range errs {
		list[i] = e
	}
	return errors.Join(list...)
}

// newStateCmd builds done, start and reopen.
func newStateCmd(use, short string, build func(*tasksource.Task) tasksource.TaskPatch) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Long:  short + ". Any unique prefix of the id shown by 'tasklens list' works.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logging.WithCommand(use)
			return withSources(func(ms *tasksource.MultiSource) error {
				t, err := resolveTask(cmd.Context(), ms, args[0])
				if err != nil {
					return err
				}
				patch := build(&t)
				if err := applyPatch(cmd.Context(), ms, patch); err != nil {
					return err
				}
				state, _ := patch.State.Value()
				log.WithField("task_id", t.ID).Info("state changed")
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", state, t.Name())
				return nil
			})
		},
	}
}

func newSetCmd() *cobra.Command {
	var name, description, due, priority, state string

	cmd := &cobra.Command{
		Use:   "set <id>",
		Short: "Change fields of a task",
		Long: `Change the name, description, due date, priority or state of a task.
Only the given flags are changed. An empty --description removes the
description and --due none removes the due date.

Examples:
  tasklens set 3f2a --due tomorrow --priority high
  tasklens set 3f2a --description ""`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch tasksource.TaskPatch
			flags := cmd.Flags()

			if flags.Changed("name") {
				if strings.TrimSpace(name) == "" {
					return errors.New("--name cannot be empty")
				}
				patch.Name = types.SetValue(name)
			}
			if flags.Changed("description") {
				if description == "" {
					patch.Description = types.ClearValue[string]()
				} else {
					patch.Description = types.SetValue(description)
				}
			}
			if flags.Changed("due") {
				d, err := types.ParseDueItem(due)
				if err != nil {
					return err
				}
				patch.Due = types.DuePatch(d)
			}
			if flags.Changed("priority") {
				p, err := types.ParsePriority(priority)
				if err != nil {
					return err
				}
				patch.Priority = types.SetValue(p)
			}
			if flags.Changed("state") {
				s, err := types.ParseState(state)
				if err != nil {
					return err
				}
				patch.State = types.SetValue(s)
			}
			if patch.IsEmpty() {
				return errors.New("nothing to change: pass at least one of --name, --description, --due, --priority, --state")
			}

			return withSources(func(ms *tasksource.MultiSource) error {
				t, err := resolveTask(cmd.Context(), ms, args[0])
				if err != nil {
					return err
				}
				patch.Task = &t
				if err := applyPatch(cmd.Context(), ms, patch); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Updated: %s\n", t.Name())
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "New task name")
	cmd.Flags().StringVar(&description, "description", "", "New description (empty to remove)")
	cmd.Flags().StringVar(&due, "due", "", "Due date: today, tomorrow, weekend, next_week, none or YYYY-MM-DD")
	cmd.Flags().StringVar(&priority, "priority", "", "Priority: lowest, low, normal, medium, high, highest")
	cmd.Flags().StringVar(&state, "state", "", "State: todo, in_progress, done")

	return cmd
}

func newRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete a task",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSources(func(ms *tasksource.MultiSource) error {
				t, err := resolveTask(cmd.Context(), ms, args[0])
				if err != nil {
					return err
				}
				if err := ms.DeleteTask(cmd.Context(), t); err != nil {
					return fmt.Errorf("failed to delete %q: %w", t.Name(), err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted: %s\n", t.Name())
				return nil
			})
		},
	}
}
