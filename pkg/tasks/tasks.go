package tasks

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Payload keys understood by the /schedule endpoint
const (
	KeyStartDate    = "startDate"
	KeyEndDate      = "endDate"
	KeyTaskID       = "taskId"
	KeyTaskDuration = "taskDuration"
	KeyStartHour    = "startHour"
	KeyStartMin     = "startMin"
	KeyEndHour      = "endHour"
	KeyEndMin       = "endMin"
)

// Task is a pending unit of work owned by the backend
type Task struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Notes string `json:"notes,omitempty"`
}

// Selection is one checked task. An empty Duration lets the server pick its default.
type Selection struct {
	TaskID   string
	Duration string
}

// WorkingHours is the daily window tasks may be placed in. Every field is a two-digit string.
type WorkingHours struct {
	StartHour string
	StartMin  string
	EndHour   string
	EndMin    string
}

// DefaultWorkingHours returns the 09:00-18:00 window
func DefaultWorkingHours() WorkingHours {
	return WorkingHours{StartHour: "09", StartMin: "00", EndHour: "18", EndMin: "00"}
}

// NewWorkingHours builds a window from two "HH:MM" clock strings
func NewWorkingHours(start, end string) (WorkingHours, error) {
	startHour, startMin, err := ParseClock(start)
	if err != nil {
		return WorkingHours{}, fmt.Errorf("invalid start time: %w", err)
	}
	endHour, endMin, err := ParseClock(end)
	if err != nil {
		return WorkingHours{}, fmt.Errorf("invalid end time: %w", err)
	}
	return WorkingHours{StartHour: startHour, StartMin: startMin, EndHour: endHour, EndMin: endMin}, nil
}

// ParseClock splits "H:MM" or "HH:MM" into zero-padded hour and minute strings
func ParseClock(clock string) (hour, minute string, err error) {
	parts := strings.Split(strings.TrimSpace(clock), ":")
	if len(parts) != 2 {
		return "", "", fmt.Errorf("%q is not in HH:MM form", clock)
	}

	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return "", "", fmt.Errorf("%q has an invalid hour", clock)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return "", "", fmt.Errorf("%q has an invalid minute", clock)
	}

	return fmt.Sprintf("%02d", h), fmt.Sprintf("%02d", m), nil
}

// String renders the window as "HH:MM-HH:MM"
func (w WorkingHours) String() string {
	return w.StartHour + ":" + w.StartMin + "-" + w.EndHour + ":" + w.EndMin
}

// SchedulingRequest is built fresh for every submission attempt
type SchedulingRequest struct {
	StartDate    string
	EndDate      string
	WorkingHours *WorkingHours
	Selections   []Selection
}

// TaskIDs returns the selected identifiers in submission order
func (r SchedulingRequest) TaskIDs() []string {
	ids := make([]string, 0, len(r.Selections))
	for _, s := range r.Selections {
		ids = append(ids, s.TaskID)
	}
	return ids
}

// Values flattens the request into the URL-encoded form payload.
// taskDuration is only sent when at least one selection carries a duration, and is then
// sent once per taskId so positions stay aligned.
func (r SchedulingRequest) Values() url.Values {
	values := url.Values{}
	values.Set(KeyStartDate, r.StartDate)
	values.Set(KeyEndDate, r.EndDate)

	withDurations := false
	for _, s := range r.Selections {
		if s.Duration != "" {
			withDurations = true
			break
		}
	}

	for _, s := range r.Selections {
		values.Add(KeyTaskID, s.TaskID)
		if withDurations {
			values.Add(KeyTaskDuration, s.Duration)
		}
	}

	if r.WorkingHours != nil {
		values.Set(KeyStartHour, r.WorkingHours.StartHour)
		values.Set(KeyStartMin, r.WorkingHours.StartMin)
		values.Set(KeyEndHour, r.WorkingHours.EndHour)
		values.Set(KeyEndMin, r.WorkingHours.EndMin)
	}

	return values
}
