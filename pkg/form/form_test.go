package form

import (
	"errors"
	"testing"

	"github.com/shaneisley/taskslot/pkg/tasks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubBindings struct {
	selected  []tasks.Selection
	dateRange string
	hours     tasks.WorkingHours
	changed   bool
}

func (s stubBindings) SelectedTasks() []tasks.Selection {
	return s.selected
}

func (s stubBindings) DateRange() string {
	return s.dateRange
}

func (s stubBindings) WorkingHours() (tasks.WorkingHours, bool) {
	return s.hours, s.changed
}

func TestParseDateRange(t *testing.T) {
	tests := []struct {
		name  string
		input string
		start string
		end   string
		err   bool
	}{
		{name: "picker format", input: "2024-01-05 - 2024-01-09", start: "2024-01-05", end: "2024-01-09"},
		{name: "surrounding whitespace", input: "  2024-01-05 -  2024-01-09 ", start: "2024-01-05", end: "2024-01-09"},
		{name: "same day", input: "2024-03-01 - 2024-03-01", start: "2024-03-01", end: "2024-03-01"},
		{name: "missing separator", input: "2024-01-05", err: true},
		{name: "hyphen without spaces", input: "2024-01-05-2024-01-09", err: true},
		{name: "empty end", input: "2024-01-05 - ", err: true},
		{name: "empty input", input: "", err: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end, err := ParseDateRange(tt.input)
			if tt.err {
				var rangeErr *MalformedRangeError
				require.True(t, errors.As(err, &rangeErr))
				assert.Equal(t, tt.input, rangeErr.Input)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.start, start)
			assert.Equal(t, tt.end, end)
		})
	}
}

func TestAssembler_AssembleDefaults(t *testing.T) {
	// Given bindings with an untouched working-hours window
	b := stubBindings{
		selected:  []tasks.Selection{{TaskID: "t1", Duration: " 30 "}, {TaskID: "t2"}},
		dateRange: "2024-01-05 - 2024-01-09",
	}

	// When assembling
	req, err := NewAssembler().Assemble(b)

	// Then the default window should be applied and durations trimmed
	require.NoError(t, err)
	assert.Equal(t, "2024-01-05", req.StartDate)
	assert.Equal(t, "2024-01-09", req.EndDate)
	require.NotNil(t, req.WorkingHours)
	assert.Equal(t, tasks.DefaultWorkingHours(), *req.WorkingHours)
	assert.Equal(t, []tasks.Selection{{TaskID: "t1", Duration: "30"}, {TaskID: "t2"}}, req.Selections)
}

func TestAssembler_AssembleChangedHours(t *testing.T) {
	custom := tasks.WorkingHours{StartHour: "07", StartMin: "30", EndHour: "15", EndMin: "45"}
	b := stubBindings{
		selected:  []tasks.Selection{{TaskID: "t1"}},
		dateRange: "2024-01-05 - 2024-01-05",
		hours:     custom,
		changed:   true,
	}

	req, err := NewAssembler().Assemble(b)

	require.NoError(t, err)
	assert.Equal(t, custom, *req.WorkingHours)
	values := req.Values()
	assert.Equal(t, "07", values.Get(tasks.KeyStartHour))
	assert.Equal(t, "45", values.Get(tasks.KeyEndMin))
}

func TestAssembler_AssembleWithoutWorkingHours(t *testing.T) {
	a := NewAssembler()
	a.IncludeWorkingHours = false

	req, err := a.Assemble(stubBindings{dateRange: "2024-01-05 - 2024-01-06"})

	require.NoError(t, err)
	assert.Nil(t, req.WorkingHours)
}

func TestAssembler_ChangedHoursSentWithoutDefaults(t *testing.T) {
	a := NewAssembler()
	a.IncludeWorkingHours = false
	hours := tasks.WorkingHours{StartHour: "10", StartMin: "00", EndHour: "16", EndMin: "30"}

	req, err := a.Assemble(stubBindings{dateRange: "2024-01-05 - 2024-01-06", hours: hours, changed: true})

	require.NoError(t, err)
	require.NotNil(t, req.WorkingHours)
	assert.Equal(t, hours, *req.WorkingHours)
}

func TestAssembler_AssembleMalformedRange(t *testing.T) {
	req, err := NewAssembler().Assemble(stubBindings{dateRange: "tomorrow"})

	var rangeErr *MalformedRangeError
	assert.True(t, errors.As(err, &rangeErr))
	assert.Empty(t, req.StartDate)
	assert.Contains(t, err.Error(), "tomorrow")
}

func TestAssembler_DoesNotMutateBindings(t *testing.T) {
	selected := []tasks.Selection{{TaskID: "t1", Duration: " 15"}}

	_, err := NewAssembler().Assemble(stubBindings{selected: selected, dateRange: "a - b"})

	require.NoError(t, err)
	assert.Equal(t, " 15", selected[0].Duration)
}
