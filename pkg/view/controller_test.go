package view

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shaneisley/taskslot/pkg/client"
	"github.com/shaneisley/taskslot/pkg/form"
	"github.com/shaneisley/taskslot/pkg/tasks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRenderer struct {
	mu        sync.Mutex
	rendered  [][]tasks.Task
	empty     bool
	enabled   bool
	progress  bool
	messages  []string
	sources   []string
	enableLog []bool
}

func (r *fakeRenderer) RenderTasks(list []tasks.Task) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rendered = append(r.rendered, list)
}

func (r *fakeRenderer) ShowEmptyState(visible bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.empty = visible
}

func (r *fakeRenderer) SetSubmitEnabled(enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.enabled = enabled
	r.enableLog = append(r.enableLog, enabled)
}

func (r *fakeRenderer) SetProgress(active bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.progress = active
}

func (r *fakeRenderer) ShowMessage(message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, message)
}

func (r *fakeRenderer) SetCalendarSource(src string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources = append(r.sources, src)
}

type fakeSource struct {
	mu    sync.Mutex
	list  []tasks.Task
	err   error
	calls int
}

func (s *fakeSource) LoadTasks(ctx context.Context) ([]tasks.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.list, nil
}

func (s *fakeSource) loads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type fakeUsers struct {
	email string
	err   error
}

func (u fakeUsers) LoadUser(ctx context.Context) (client.User, error) {
	return client.User{Email: u.email}, u.err
}

// fakeSubmitter returns a fixed outcome and observes the controller while submitting
type fakeSubmitter struct {
	outcome  tasks.Outcome
	requests []tasks.SchedulingRequest
	during   func()
}

func (s *fakeSubmitter) Submit(ctx context.Context, req tasks.SchedulingRequest) tasks.Outcome {
	s.requests = append(s.requests, req)
	if s.during != nil {
		s.during()
	}
	return s.outcome
}

type fakeRecorder struct {
	outcomes []tasks.Outcome
}

func (r *fakeRecorder) RecordOutcome(outcome tasks.Outcome, req tasks.SchedulingRequest) error {
	r.outcomes = append(r.outcomes, outcome)
	return nil
}

type fakeBanner bool

func (b fakeBanner) Visible() bool { return bool(b) }

type bindings struct {
	ids       []string
	dateRange string
}

func (b bindings) SelectedTasks() []tasks.Selection {
	var out []tasks.Selection
	for _, id := range b.ids {
		out = append(out, tasks.Selection{TaskID: id})
	}
	return out
}

func (b bindings) DateRange() string { return b.dateRange }

func (b bindings) WorkingHours() (tasks.WorkingHours, bool) { return tasks.WorkingHours{}, false }

var _ form.Bindings = bindings{}

func sampleTasks() []tasks.Task {
	return []tasks.Task{{ID: "t1", Title: "Write report"}, {ID: "t2", Title: "Review PR"}}
}

func newTestController(source *fakeSource, submitter *fakeSubmitter) (*Controller, *fakeRenderer) {
	renderer := &fakeRenderer{}
	c := NewController(Deps{
		Renderer:  renderer,
		Tasks:     source,
		Users:     fakeUsers{email: "alice@example.com"},
		Submitter: submitter,
	})
	return c, renderer
}

func TestController_EmptyListDisablesSubmit(t *testing.T) {
	// Given a backend with no pending tasks
	c, renderer := newTestController(&fakeSource{list: []tasks.Task{}}, &fakeSubmitter{})

	// When the view loads
	require.NoError(t, c.Reload(context.Background()))

	// Then the empty state is shown and submit is disabled
	assert.True(t, renderer.empty)
	assert.False(t, renderer.enabled)
	assert.False(t, c.SubmitEnabled())
}

func TestController_SelectionEnablesSubmit(t *testing.T) {
	// Given a loaded list with no selection
	c, renderer := newTestController(&fakeSource{list: sampleTasks()}, &fakeSubmitter{})
	require.NoError(t, c.Reload(context.Background()))
	assert.False(t, renderer.empty)
	assert.False(t, c.SubmitEnabled())

	// When one task is selected
	c.SetSelection([]string{"t1"})

	// Then submit becomes enabled
	assert.True(t, c.SubmitEnabled())
	assert.True(t, renderer.enabled)

	// And selecting only unknown tasks disables it again
	c.SetSelection([]string{"nope"})
	assert.False(t, c.SubmitEnabled())
}

func TestController_SelectAll(t *testing.T) {
	c, _ := newTestController(&fakeSource{list: sampleTasks()}, &fakeSubmitter{})
	require.NoError(t, c.Reload(context.Background()))

	c.SelectAll()

	assert.True(t, c.SubmitEnabled())
}

func TestController_LoadFailureKeepsView(t *testing.T) {
	// Given a view showing two tasks
	source := &fakeSource{list: sampleTasks()}
	c, renderer := newTestController(source, &fakeSubmitter{})
	require.NoError(t, c.Reload(context.Background()))

	// When the next load fails
	source.err = &client.ServerError{Status: 503, StatusText: "Service Unavailable"}
	err := c.Reload(context.Background())

	// Then the previous list stays visible
	assert.Error(t, err)
	assert.Len(t, c.Tasks(), 2)
	assert.Len(t, renderer.rendered, 1)
}

func TestController_InitLoadsTasksCalendarAndBanner(t *testing.T) {
	renderer := &fakeRenderer{}
	c := NewController(Deps{
		Renderer: renderer,
		Tasks:    &fakeSource{list: sampleTasks()},
		Users:    fakeUsers{email: "alice@example.com"},
		Banner:   fakeBanner(true),
	})

	c.Init(context.Background())

	assert.Len(t, c.Tasks(), 2)
	assert.Equal(t, []string{InfoText}, renderer.messages)
	require.Len(t, renderer.sources, 1)
	assert.Equal(t, "https://calendar.google.com/calendar/embed?src=alice%40example.com&mode=WEEK", renderer.sources[0])
	assert.Equal(t, renderer.sources[0], c.CalendarSource())
}

func TestController_InitHidesDismissedBanner(t *testing.T) {
	renderer := &fakeRenderer{}
	c := NewController(Deps{
		Renderer: renderer,
		Tasks:    &fakeSource{list: sampleTasks()},
		Users:    fakeUsers{err: errors.New("offline")},
		Banner:   fakeBanner(false),
	})

	c.Init(context.Background())

	assert.Empty(t, renderer.messages)
	assert.Empty(t, renderer.sources)
	assert.Empty(t, c.CalendarSource())
}

func TestController_SubmitOutcomes(t *testing.T) {
	tests := []struct {
		name        string
		outcome     tasks.Outcome
		message     []string
		reloads     int
		calendarSet int
	}{
		{
			name:        "success",
			outcome:     tasks.Succeeded(200, "Scheduled 3 tasks"),
			message:     []string{"Scheduled 3 tasks"},
			reloads:     1,
			calendarSet: 1,
		},
		{
			name:        "success without message",
			outcome:     tasks.Succeeded(200, ""),
			reloads:     1,
			calendarSet: 1,
		},
		{
			name:    "rejected without message",
			outcome: tasks.Rejected(400, ""),
		},
		{
			name:        "validation rejected",
			outcome:     tasks.Rejected(400, "Select valid working hours"),
			message:     []string{"Select valid working hours"},
			reloads:     1,
			calendarSet: 1,
		},
		{
			name:        "client error",
			outcome:     tasks.Rejected(403, "Client error: Forbidden"),
			message:     []string{"Client error: Forbidden"},
			reloads:     1,
			calendarSet: 1,
		},
		{
			name:    "server failure",
			outcome: tasks.ServerFailed(500),
			message: []string{"Server error"},
		},
		{
			name:    "transport failure",
			outcome: tasks.TransportFailed(errors.New("connection refused")),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Given a loaded view with a selected task and a loaded calendar
			source := &fakeSource{list: sampleTasks()}
			var sawSubmitting bool
			var c *Controller
			submitter := &fakeSubmitter{outcome: tt.outcome}
			submitter.during = func() {
				sawSubmitting = c.State() == Submitting && !c.SubmitEnabled()
			}
			var renderer *fakeRenderer
			c, renderer = newTestController(source, submitter)
			require.NoError(t, c.Reload(context.Background()))
			require.NoError(t, c.LoadCalendar(context.Background()))
			loadsBefore := source.loads()
			sourcesBefore := len(renderer.sources)

			// When submitting
			outcome, err := c.Submit(context.Background(), bindings{ids: []string{"t1"}, dateRange: "2024-01-05 - 2024-01-09"})

			// Then the outcome is reconciled and the affordance is restored
			require.NoError(t, err)
			assert.Equal(t, tt.outcome, outcome)
			assert.True(t, sawSubmitting, "controller should be submitting while the request is in flight")
			assert.Equal(t, tt.message, renderer.messages)
			assert.Equal(t, tt.reloads, source.loads()-loadsBefore)
			assert.Equal(t, tt.calendarSet, len(renderer.sources)-sourcesBefore)
			assert.Equal(t, Idle, c.State())
			assert.True(t, c.SubmitEnabled())
			assert.False(t, renderer.progress)
		})
	}
}

func TestController_SubmitAssemblesRequest(t *testing.T) {
	submitter := &fakeSubmitter{outcome: tasks.Succeeded(200, "ok")}
	c, _ := newTestController(&fakeSource{list: sampleTasks()}, submitter)
	require.NoError(t, c.Reload(context.Background()))

	_, err := c.Submit(context.Background(), bindings{ids: []string{"t1", "t2"}, dateRange: " 2024-01-05 - 2024-01-09 "})

	require.NoError(t, err)
	require.Len(t, submitter.requests, 1)
	req := submitter.requests[0]
	assert.Equal(t, "2024-01-05", req.StartDate)
	assert.Equal(t, "2024-01-09", req.EndDate)
	assert.Equal(t, []string{"t1", "t2"}, req.TaskIDs())
	require.NotNil(t, req.WorkingHours)
	assert.Equal(t, tasks.DefaultWorkingHours(), *req.WorkingHours)
}

func TestController_SubmitMalformedRange(t *testing.T) {
	// Given a loaded view
	submitter := &fakeSubmitter{outcome: tasks.Succeeded(200, "ok")}
	c, renderer := newTestController(&fakeSource{list: sampleTasks()}, submitter)
	require.NoError(t, c.Reload(context.Background()))

	// When the date range has no separator
	_, err := c.Submit(context.Background(), bindings{ids: []string{"t1"}, dateRange: "2024-01-05"})

	// Then a validation message is shown and nothing is sent
	var rangeErr *form.MalformedRangeError
	require.True(t, errors.As(err, &rangeErr))
	require.Len(t, renderer.messages, 1)
	assert.Contains(t, renderer.messages[0], "invalid date range")
	assert.Empty(t, submitter.requests)
	assert.Equal(t, Idle, c.State())
	assert.True(t, c.SubmitEnabled())
	assert.False(t, renderer.progress)
}

func TestController_SubmitNothingSelected(t *testing.T) {
	submitter := &fakeSubmitter{}
	c, _ := newTestController(&fakeSource{list: sampleTasks()}, submitter)
	require.NoError(t, c.Reload(context.Background()))

	_, err := c.Submit(context.Background(), bindings{dateRange: "2024-01-05 - 2024-01-09"})

	assert.ErrorIs(t, err, ErrNothingSelected)
	assert.Empty(t, submitter.requests)
}

func TestController_SubmitEmptyList(t *testing.T) {
	submitter := &fakeSubmitter{}
	c, _ := newTestController(&fakeSource{list: []tasks.Task{}}, submitter)
	require.NoError(t, c.Reload(context.Background()))

	_, err := c.Submit(context.Background(), bindings{ids: []string{"t1"}, dateRange: "a - b"})

	assert.ErrorIs(t, err, ErrNothingSelected)
}

func TestController_SubmitRejectsConcurrentSubmission(t *testing.T) {
	// Given a submission that is still in flight
	var c *Controller
	var nestedErr error
	submitter := &fakeSubmitter{outcome: tasks.Succeeded(200, "ok")}
	submitter.during = func() {
		_, nestedErr = c.Submit(context.Background(), bindings{ids: []string{"t1"}, dateRange: "a - b"})
	}
	c, _ = newTestController(&fakeSource{list: sampleTasks()}, submitter)
	require.NoError(t, c.Reload(context.Background()))

	// When another submission starts meanwhile
	_, err := c.Submit(context.Background(), bindings{ids: []string{"t1"}, dateRange: "a - b"})

	// Then only the first one is sent
	require.NoError(t, err)
	assert.ErrorIs(t, nestedErr, ErrSubmitInProgress)
	assert.Len(t, submitter.requests, 1)
	assert.Equal(t, Idle, c.State())
}

func TestController_SuccessDropsScheduledSelection(t *testing.T) {
	// Given a backend that removes scheduled tasks
	source := &fakeSource{list: sampleTasks()}
	submitter := &fakeSubmitter{outcome: tasks.Succeeded(200, "1 tasks inserted")}
	submitter.during = func() {
		source.mu.Lock()
		source.list = []tasks.Task{{ID: "t2", Title: "Review PR"}}
		source.mu.Unlock()
	}
	c, renderer := newTestController(source, submitter)
	require.NoError(t, c.Reload(context.Background()))

	// When the only selected task gets scheduled
	_, err := c.Submit(context.Background(), bindings{ids: []string{"t1"}, dateRange: "a - b"})

	// Then the refreshed list no longer contains it and submit is disabled
	require.NoError(t, err)
	assert.Equal(t, []tasks.Task{{ID: "t2", Title: "Review PR"}}, c.Tasks())
	assert.False(t, c.SubmitEnabled())
	assert.False(t, renderer.enabled)
}

func TestController_RecordsOutcomes(t *testing.T) {
	recorder := &fakeRecorder{}
	renderer := &fakeRenderer{}
	c := NewController(Deps{
		Renderer:  renderer,
		Tasks:     &fakeSource{list: sampleTasks()},
		Submitter: &fakeSubmitter{outcome: tasks.ServerFailed(502)},
		Recorder:  recorder,
	})
	require.NoError(t, c.Reload(context.Background()))

	_, err := c.Submit(context.Background(), bindings{ids: []string{"t1"}, dateRange: "a - b"})

	require.NoError(t, err)
	assert.Equal(t, []tasks.Outcome{tasks.ServerFailed(502)}, recorder.outcomes)
}

func TestController_RefreshCalendarIdempotent(t *testing.T) {
	c, renderer := newTestController(&fakeSource{}, &fakeSubmitter{})
	require.NoError(t, c.LoadCalendar(context.Background()))

	first := c.RefreshCalendar()
	second := c.RefreshCalendar()

	assert.Equal(t, first, second)
	assert.Equal(t, []string{first, first, first}, renderer.sources)
}
