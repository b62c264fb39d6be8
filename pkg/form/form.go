package form

import (
	"fmt"
	"strings"

	"github.com/shaneisley/taskslot/pkg/tasks"
)

// RangeSeparator separates the two dates of a date-range input
const RangeSeparator = " - "

// MalformedRangeError reports a date-range input that cannot be split into two dates
type MalformedRangeError struct {
	Input string
}

func (e *MalformedRangeError) Error() string {
	return fmt.Sprintf("invalid date range %q: expected \"<start>%s<end>\"", e.Input, RangeSeparator)
}

// Bindings exposes the user's current inputs independently of how they are rendered
type Bindings interface {
	SelectedTasks() []tasks.Selection
	DateRange() string
	// WorkingHours returns false when the user never changed the window
	WorkingHours() (tasks.WorkingHours, bool)
}

// Assembler turns bound inputs into a SchedulingRequest
type Assembler struct {
	DefaultHours        tasks.WorkingHours
	IncludeWorkingHours bool
}

// NewAssembler creates an assembler that always sends a 09:00-18:00 default window
func NewAssembler() *Assembler {
	return &Assembler{
		DefaultHours:        tasks.DefaultWorkingHours(),
		IncludeWorkingHours: true,
	}
}

// ParseDateRange splits "<start> - <end>" into trimmed start and end tokens
func ParseDateRange(input string) (start, end string, err error) {
	start, end, found := strings.Cut(input, RangeSeparator)
	if !found {
		return "", "", &MalformedRangeError{Input: input}
	}

	start = strings.TrimSpace(start)
	end = strings.TrimSpace(end)
	if start == "" || end == "" {
		return "", "", &MalformedRangeError{Input: input}
	}

	return start, end, nil
}

// Assemble reads the bindings and builds the request. It performs no I/O.
func (a *Assembler) Assemble(b Bindings) (tasks.SchedulingRequest, error) {
	start, end, err := ParseDateRange(b.DateRange())
	if err != nil {
		return tasks.SchedulingRequest{}, err
	}

	selections := append([]tasks.Selection(nil), b.SelectedTasks()...)
	for i := range selections {
		selections[i].Duration = strings.TrimSpace(selections[i].Duration)
	}

	req := tasks.SchedulingRequest{
		StartDate:  start,
		EndDate:    end,
		Selections: selections,
	}

	// A window the user changed is always sent; the default only when IncludeWorkingHours is set
	hours, changed := b.WorkingHours()
	if !changed {
		hours = a.DefaultHours
	}
	if changed || a.IncludeWorkingHours {
		req.WorkingHours = &hours
	}

	return req, nil
}
