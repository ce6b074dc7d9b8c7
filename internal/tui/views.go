package tui

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/Jayphen/tasklens/internal/tasksource"
	"github.com/Jayphen/tasklens/internal/types"
)

// Layout constants
const (
	defaultRowWidth = 80
	minLeftWidth    = 56
	minRightWidth   = 32
	panelGap        = 2
	dueWidth        = 10
	// header, blank line, status bar and outer padding
	chromeHeight = 9
	// markdownCacheSize bounds the rendered description cache
	markdownCacheSize = 256
)

// markdownCache keeps glamour output per width and body. Renderers are
// expensive to build, so one is kept per wrap width.
type markdownCache struct {
	mu        sync.Mutex
	renderers map[int]*glamour.TermRenderer
	out       map[string]string
}

func newMarkdownCache() *markdownCache {
	return &markdownCache{
		renderers: make(map[int]*glamour.TermRenderer),
		out:       make(map[string]string),
	}
}

// render returns body as terminal markdown wrapped at width. On renderer
// failure the plain body is returned.
func (c *markdownCache) render(body string, width int) string {
	if width < 10 {
		width = 10
	}
	cacheKey := strconv.Itoa(width) + "\x00" + body

	c.mu.Lock()
	defer c.mu.Unlock()

	if out, ok := c.out[cacheKey]; ok {
		return out
	}

	r, ok := c.renderers[width]
	if !ok {
		var err error
		r, err = glamour.NewTermRenderer(
			glamour.WithStandardStyle("dark"),
			glamour.WithWordWrap(width),
			glamour.WithPreservedNewLines(),
		)
		if err != nil {
			return lipgloss.NewStyle().Width(width).Render(body)
		}
		c.renderers[width] = r
	}

	out, err := r.Render(body)
	if err != nil {
		return lipgloss.NewStyle().Width(width).Render(body)
	}
	out = strings.Trim(out, "\n")

	if len(c.out) >= markdownCacheSize {
		c.out = make(map[string]string)
	}
	c.out[cacheKey] = out
	return out
}

// renderHeader renders the application header.
func (m Model) renderHeader() string {
	title := TitleStyle.Render("tasklens")
	version := ""
	if m.opts.Version != "" {
		version = " " + SubtitleStyle.Render("v"+m.opts.Version)
	}
	subtitle := SubtitleStyle.Render(fmt.Sprintf("%d tasks, filter: %s", len(m.tasks), filterModes[m.filterIndex].name))

	return title + version + "\n" + subtitle
}

// renderConfirmDialog renders the delete confirmation dialog.
func (m Model) renderConfirmDialog() string {
	name := ""
	if t := m.selectedTask(); t != nil {
		name = ansi.Truncate(t.Name(), 40, "…")
	}
	msg := fmt.Sprintf("Delete %q? (y/n)", name)

	style := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorYellow).
		Padding(1, 2).
		Foreground(ColorYellow)

	return style.Render(msg)
}

// renderAddPrompt renders the new task input.
func (m Model) renderAddPrompt() string {
	var b strings.Builder

	style := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorCyan).
		Padding(1, 2)

	b.WriteString(lipgloss.NewStyle().Foreground(ColorCyan).Render("Add a task"))
	b.WriteString("\n\n")
	b.WriteString(DimStyle.Render("Name: "))
	b.WriteString(m.addInput.View())
	b.WriteString("\n")
	b.WriteString(DimStyle.Render("Enter to add, Esc to cancel"))

	return style.Render(b.String())
}

// renderMainContent lays the list and the detail side by side when the
// terminal is wide enough, stacked otherwise.
func (m Model) renderMainContent() string {
	listHeight := 0
	if m.height > 0 {
		listHeight = max(m.height-chromeHeight, 3)
	}

	if m.width >= minLeftWidth+minRightWidth+panelGap {
		rightWidth := max((m.width-panelGap)*2/5, minRightWidth)
		leftWidth := m.width - panelGap - rightWidth
		left := m.renderTaskList(leftWidth, listHeight)
		right := m.renderTaskDetail(rightWidth)
		if listHeight > 0 {
			right = truncateLines(right, listHeight, "")
		}
		return lipgloss.JoinHorizontal(lipgloss.Top, left, strings.Repeat(" ", panelGap), right)
	}

	list := m.renderTaskList(m.width, listHeight)
	detail := m.renderTaskDetail(m.width)
	if detail == "" {
		return list
	}
	return list + "\n" + detail
}

// renderTaskList renders the visible window of the task list.
func (m Model) renderTaskList(width, maxRows int) string {
	if m.loading && len(m.tasks) == 0 {
		return m.spinner.View() + " Loading tasks..."
	}

	if len(m.tasks) == 0 {
		style := lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorGray).
			Padding(1, 2).
			Foreground(ColorGray)
		return style.Render("No tasks match the filter")
	}

	if width <= 0 {
		width = defaultRowWidth
	}

	start, end := 0, len(m.tasks)
	if maxRows > 0 && len(m.tasks) > maxRows {
		start = min(max(m.selectedIndex-maxRows/2, 0), len(m.tasks)-maxRows)
		end = start + maxRows
	}

	rows := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		rows = append(rows, m.renderTaskRow(i, width))
	}
	return strings.Join(rows, "\n")
}

// renderTaskRow renders one task: selector, state, priority, due, name and
// source.
func (m Model) renderTaskRow(i, width int) string {
	t := m.tasks[i]
	selected := i == m.selectedIndex

	selector := "  "
	if selected {
		selector = SelectedStyle.Render(IndicatorSelected) + " "
	}

	nameStyle := lipgloss.NewStyle()
	switch t.State.Category() {
	case types.FilterCompleted:
		nameStyle = CompletedStyle
	case types.FilterInProgress:
		nameStyle = InProgressStyle
	}
	if selected {
		nameStyle = nameStyle.Bold(true)
	}

	due := padRight(m.renderDue(t.Due), dueWidth)
	source := GetSourceStyle(t.SourceType).Render(t.Source)

	fixed := selector + StateIndicator(t.State) + " " + PriorityIndicator(t.Priority) + " " + due + " "
	nameWidth := max(width-ansi.StringWidth(fixed)-ansi.StringWidth(source)-1, 10)
	name := ansi.Truncate(t.Name(), nameWidth, "…")

	return fixed + padRight(nameStyle.Render(name), nameWidth) + " " + source
}

// renderDue renders a due date relative to today, colored by bucket.
func (m Model) renderDue(due *time.Time) string {
	text := formatDue(due, m.now())
	switch types.BucketOf(due, m.now()) {
	case types.DueOverdue:
		return DueOverdueStyle.Render(text)
	case types.DueToday:
		return DueTodayStyle.Render(text)
	default:
		return DueFutureStyle.Render(text)
	}
}

// formatDue formats a due date as a short relative label.
func formatDue(due *time.Time, now time.Time) string {
	if due == nil {
		return ""
	}
	d := types.DateOf(*due)
	days := int(d.Sub(types.Today(now)).Hours() / 24)
	switch {
	case days == 0:
		return "today"
	case days == 1:
		return "tomorrow"
	case days == -1:
		return "yesterday"
	case days < 0:
		return fmt.Sprintf("%dd ago", -days)
	case days < 7:
		return d.Weekday().String()[:3]
	case d.Year() == now.Year():
		return d.Format("Jan 2")
	default:
		return d.Format(types.DateLayout)
	}
}

// padRight pads a string to the specified visible width.
func padRight(s string, width int) string {
	visibleWidth := ansi.StringWidth(s)
	if visibleWidth >= width {
		return s
	}
	return s + strings.Repeat(" ", width-visibleWidth)
}

func truncateLines(s string, maxLines int, suffix string) string {
	if maxLines <= 0 {
		return ""
	}
	lines := strings.Split(s, "\n")
	if len(lines) <= maxLines {
		return s
	}
	if suffix != "" {
		if maxLines == 1 {
			return suffix
		}
		lines = lines[:maxLines-1]
		lines = append(lines, suffix)
		return strings.Join(lines, "\n")
	}
	return strings.Join(lines[:maxLines], "\n")
}

// renderTaskDetail renders the detail panel for the selected task.
func (m Model) renderTaskDetail(width int) string {
	t := m.selectedTask()
	if t == nil {
		return ""
	}

	var b strings.Builder

	titleStyle := TitleStyle
	if t.State == types.StateCompleted {
		titleStyle = titleStyle.Foreground(ColorGray)
	}
	b.WriteString(titleStyle.Render(t.Name()))
	b.WriteString(" " + StateIndicator(t.State))
	b.WriteString("\n\n")

	b.WriteString(m.renderDetailRow("State:", t.State.String()))
	if t.Priority != types.PriorityNormal {
		b.WriteString(m.renderDetailRow("Priority:", PriorityIndicator(t.Priority)+" "+t.Priority.String()))
	}
	if t.Due != nil {
		b.WriteString(m.renderDetailRow("Due:", t.Due.Format(types.DateLayout)+" "+m.renderDue(t.Due)))
	}
	if t.CompletedAt != nil {
		b.WriteString(m.renderDetailRow("Completed:", t.CompletedAt.Format(types.DateLayout)))
	}
	if len(t.Labels) > 0 {
		b.WriteString(m.renderDetailRow("Labels:", strings.Join(t.Labels, ", ")))
	}
	if t.Project != "" {
		b.WriteString(m.renderDetailRow("Project:", t.Project))
	}
	if t.Place != "" {
		b.WriteString(m.renderDetailRow("Place:", DimStyle.Render(t.Place)))
	}
	b.WriteString(m.renderDetailRow("Source:", GetSourceStyle(t.SourceType).Render(t.Source)+DimStyle.Render(" ("+string(t.SourceType)+")")))
	if t.URL != "" {
		b.WriteString(m.renderDetailRow("Link:", DimStyle.Render(t.URL)))
	}
	b.WriteString(m.renderDetailRow("ID:", DimStyle.Render(t.ID)))

	if strings.TrimSpace(t.Description) != "" {
		wrap := defaultRowWidth - 6
		if width > 0 {
			wrap = width - 6
		}
		b.WriteString("\n")
		b.WriteString(m.md.render(t.Description, wrap))
	}

	// Wrap in box
	style := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorGray).
		Padding(0, 1).
		MarginTop(1)
	if width > 0 {
		style = style.Width(width - 2)
	}

	return style.Render(b.String())
}

// renderDetailRow renders a label: value row in the detail panel.
func (m Model) renderDetailRow(label, value string) string {
	labelStyle := DimStyle.Width(12)
	return labelStyle.Render(label) + value + "\n"
}

// counts returns how many listed tasks are overdue, due today and in
// progress.
func counts(tasks []tasksource.Task, now time.Time) (overdue, today, started int) {
	for _, t := range tasks {
		if t.State == types.StateInProgress {
			started++
		}
		if t.State == types.StateCompleted {
			continue
		}
		switch types.BucketOf(t.Due, now) {
		case types.DueOverdue:
			overdue++
		case types.DueToday:
			today++
		}
	}
	return overdue, today, started
}

// renderStatusBar renders the bottom status bar.
func (m Model) renderStatusBar() string {
	overdue, today, started := counts(m.tasks, m.now())

	var parts []string
	if overdue > 0 {
		parts = append(parts, DueOverdueStyle.Render(fmt.Sprintf("%d overdue", overdue)))
	}
	if today > 0 {
		parts = append(parts, DueTodayStyle.Render(fmt.Sprintf("%d today", today)))
	}
	if started > 0 {
		parts = append(parts, InProgressStyle.Render(fmt.Sprintf("%d in progress", started)))
	}
	summary := strings.Join(parts, DimStyle.Render(", "))
	if summary == "" {
		summary = DimStyle.Render("nothing due")
	}

	var help []string
	for _, k := range m.keys.shortHelp() {
		h := k.Help()
		help = append(help, HelpKeyStyle.Render(h.Key)+" "+h.Desc)
	}
	helpLine := DimStyle.Render(strings.Join(help, "  "))

	// Separator
	sep := lipgloss.NewStyle().
		Border(lipgloss.NormalBorder(), true, false, false, false).
		BorderForeground(ColorGray).
		PaddingTop(1)

	var b strings.Builder

	switch {
	case m.busy:
		b.WriteString(m.spinner.View() + " Saving...")
		b.WriteString("\n")
	case m.statusMessage != "" && !m.confirmDelete:
		b.WriteString(StatusMsgStyle.Render(m.statusMessage))
		b.WriteString("\n")
	}

	b.WriteString(summary)
	b.WriteString("\n")
	b.WriteString(helpLine)

	return sep.Render(b.String())
}
