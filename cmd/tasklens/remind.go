package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Jayphen/tasklens/internal/logging"
	"github.com/Jayphen/tasklens/internal/notify"
	"github.com/Jayphen/tasklens/internal/tasksource"
	"github.com/Jayphen/tasklens/internal/types"
)

func newRemindCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "remind",
		Short: "Send a desktop notification for overdue and due tasks",
		Long: `Send an OS notification listing tasks that are overdue or due today.
Nothing is sent when no task is due. Meant to be run from cron or a
systemd timer.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSources(func(ms *tasksource.MultiSource) error {
				tasks, err := ms.ListTasks(cmd.Context(), nil, nil)
				if err != nil {
					return fmt.Errorf("failed to list tasks: %w", err)
				}
				r := buildReminder(tasks, time.Now())

				out := cmd.OutOrStdout()
				if r.Empty() {
					fmt.Fprintln(out, "Nothing due")
					return nil
				}
				if dryRun {
					fmt.Fprintln(out, r.Title())
					fmt.Fprintln(out, r.Body())
					return nil
				}
				if err := notify.SendReminder(cmd.Context(), r); err != nil {
					return fmt.Errorf("failed to send notification: %w", err)
				}
				logging.WithCommand("remind").
					WithFields(map[string]interface{}{"overdue": len(r.Overdue), "today": len(r.Today)}).
					Info("reminder sent")
				fmt.Fprintln(out, r.Title())
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "Print the notification instead of sending it")

	return cmd
}

// buildReminder splits the due tasks into overdue and today, in list order.
func buildReminder(tasks []tasksource.Task, now time.Time) notify.Reminder {
	due := tasksource.Due(tasks, now)
	tasksource.SortTasks(due)

	var r notify.Reminder
	for _, t := range due {
		if types.BucketOf(t.Due, now) == types.DueOverdue {
			r.Overdue = append(r.Overdue, t.Name())
		} else {
			r.Today = append(r.Today, t.Name())
		}
	}
	return r
}
