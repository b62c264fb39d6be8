package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/shaneisley/taskslot/pkg/storage"
	"github.com/shaneisley/taskslot/pkg/tasks"
)

// Terminal renders the scheduling view as text
type Terminal struct {
	mu     sync.Mutex
	writer io.Writer
	quiet  bool

	submitEnabled bool
	progressStart time.Time
	calendarSrc   string
	now           func() time.Time
}

// NewTerminal creates a renderer writing to writer
func NewTerminal(writer io.Writer) *Terminal {
	return &Terminal{
		writer: writer,
		now:    time.Now,
	}
}

// SetQuiet suppresses progress and affordance output; tasks and messages are still shown
func (t *Terminal) SetQuiet(quiet bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.quiet = quiet
}

// RenderTasks prints the whole task list
func (t *Terminal) RenderTasks(list []tasks.Task) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(list) == 0 {
		return
	}

	width := 0
	for _, task := range list {
		if len(task.ID) > width {
			width = len(task.ID)
		}
	}

	var builder strings.Builder
	builder.WriteString("Tasks:\n")
	for _, task := range list {
		builder.WriteString("  [ ] ")
		builder.WriteString(task.ID)
		builder.WriteString(strings.Repeat(" ", width-len(task.ID)+2))
		builder.WriteString(task.Title)
		if task.Notes != "" {
			builder.WriteString(" (")
			builder.WriteString(task.Notes)
			builder.WriteString(")")
		}
		builder.WriteByte('\n')
	}
	fmt.Fprint(t.writer, builder.String())
}

// ShowEmptyState prints the empty-list indicator
func (t *Terminal) ShowEmptyState(visible bool) {
	if !visible {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintln(t.writer, "No pending tasks.")
}

// SetSubmitEnabled records whether scheduling is currently possible
func (t *Terminal) SetSubmitEnabled(enabled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.submitEnabled = enabled
}

// SubmitEnabled returns the last affordance state
func (t *Terminal) SubmitEnabled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.submitEnabled
}

// SetProgress prints a progress line when a submission starts and its duration when it ends
func (t *Terminal) SetProgress(active bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if active {
		t.progressStart = t.now()
		if !t.quiet {
			fmt.Fprintln(t.writer, "[taskslot] Scheduling...")
		}
		return
	}

	if t.progressStart.IsZero() {
		return
	}
	elapsed := t.now().Sub(t.progressStart)
	t.progressStart = time.Time{}
	if !t.quiet {
		fmt.Fprintf(t.writer, "[taskslot] Request finished in %s.\n", formatDuration(elapsed))
	}
}

// ShowMessage prints a notification
func (t *Terminal) ShowMessage(message string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.writer, "» %s\n", message)
}

// SetCalendarSource prints the calendar address when it changes
func (t *Terminal) SetCalendarSource(src string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if src == t.calendarSrc {
		if !t.quiet {
			fmt.Fprintln(t.writer, "[taskslot] Calendar refreshed.")
		}
		return
	}
	t.calendarSrc = src
	fmt.Fprintf(t.writer, "Calendar: %s\n", src)
}

// RenderHistory prints recorded submissions and their summary
func (t *Terminal) RenderHistory(submissions []storage.Submission, summary *storage.Summary) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(submissions) == 0 {
		fmt.Fprintln(t.writer, "No submissions recorded.")
		return
	}

	for _, sub := range submissions {
		status := "-"
		if sub.Status != 0 {
			status = fmt.Sprintf("%d", sub.Status)
		}
		fmt.Fprintf(t.writer, "%s  %-17s %-4s %d task(s) %s..%s  %s\n",
			sub.CreatedAt.Format("2006-01-02 15:04:05"), sub.Kind, status,
			sub.TaskCount, sub.StartDate, sub.EndDate, sub.Message)
	}

	if summary != nil && summary.Total > 0 {
		fmt.Fprintf(t.writer, "\nSubmission Statistics:\n")
		fmt.Fprintf(t.writer, "  Total: %d\n", summary.Total)
		fmt.Fprintf(t.writer, "  Succeeded: %d\n", summary.Succeeded)
		fmt.Fprintf(t.writer, "  Rejected: %d\n", summary.Rejected)
		fmt.Fprintf(t.writer, "  Server Failures: %d\n", summary.ServerFailures)
		fmt.Fprintf(t.writer, "  Network Failures: %d\n", summary.NetworkFailures)
		fmt.Fprintf(t.writer, "  Success Rate: %.0f%%\n", summary.SuccessRate*100)
	}
}

// formatDuration formats a duration in a human-readable way
func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "0s"
	}

	// Handle sub-second durations
	if d < time.Second {
		return fmt.Sprintf("%.1fs", float64(d)/float64(time.Second))
	}

	if d < time.Minute {
		seconds := float64(d) / float64(time.Second)
		if seconds == float64(int(seconds)) {
			return fmt.Sprintf("%.0fs", seconds)
		}
		formatted := fmt.Sprintf("%.2f", seconds)
		formatted = strings.TrimRight(formatted, "0")
		formatted = strings.TrimRight(formatted, ".")
		return formatted + "s"
	}

	minutes := d / time.Minute
	seconds := (d % time.Minute) / time.Second
	if seconds > 0 {
		return fmt.Sprintf("%dm%ds", minutes, seconds)
	}
	return fmt.Sprintf("%dm", minutes)
}
