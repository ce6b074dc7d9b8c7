// Package notify sends OS-native notifications for due tasks.
package notify

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

// ErrUnsupported is returned on platforms without a notification command.
var ErrUnsupported = errors.New("notifications are not supported on " + runtime.GOOS)

// maxListed caps how many task names go into one notification body.
const maxListed = 5

// Reminder is one notification about tasks that need attention.
type Reminder struct {
	Overdue []string
	Today   []string
}

// Empty reports whether there is nothing to remind about.
func (r Reminder) Empty() bool {
	return len(r.Overdue) == 0 && len(r.Today) == 0
}

// Title summarizes the counts, e.g. "2 overdue, 1 due today".
func (r Reminder) Title() string {
	var parts []string
	if n := len(r.Overdue); n > 0 {
		parts = append(parts, fmt.Sprintf("%d overdue", n))
	}
	if n := len(r.Today); n > 0 {
		parts = append(parts, fmt.Sprintf("%d due today", n))
	}
	if len(parts) == 0 {
		return "Nothing due"
	}
	return "tasklens: " + strings.Join(parts, ", ")
}

// Body lists overdue tasks first, then today's, one per line.
func (r Reminder) Body() string {
	names := append(append([]string{}, r.Overdue...), r.Today...)
	if len(names) > maxListed {
		rest := len(names) - maxListed
		names = append(names[:maxListed], fmt.Sprintf("and %d more", rest))
	}
	return strings.Join(names, "\n")
}

// Command builds the platform's notification command:
// - macOS: osascript (native AppleScript)
// - Linux: notify-send (libnotify)
//
// It returns nil for other platforms.
func Command(ctx context.Context, goos, title, message string) *exec.Cmd {
	switch goos {
	case "darwin":
		script := fmt.Sprintf(`display notification "%s" with title "%s"`, escapeAppleScript(message), escapeAppleScript(title))
		return exec.CommandContext(ctx, "osascript", "-e", script)
	case "linux":
		return exec.CommandContext(ctx, "notify-send", title, message)
	default:
		return nil
	}
}

// Send shows the notification and waits for the command to finish, so it
// can be used right before the process exits.
func Send(ctx context.Context, title, message string) error {
	cmd := Command(ctx, runtime.GOOS, title, message)
	if cmd == nil {
		return ErrUnsupported
	}
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", cmd.Path, err, strings.TrimSpace(string(out)))
	}
	return nil
}

// SendReminder sends r unless it is empty.
func SendReminder(ctx context.Context, r Reminder) error {
	if r.Empty() {
		return nil
	}
	return Send(ctx, r.Title(), r.Body())
}

// escapeAppleScript escapes special characters for AppleScript strings.
func escapeAppleScript(s string) string {
	var b strings.Builder
	for _, ch := range s {
		switch ch {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(ch)
		}
	}
	return b.String()
}
