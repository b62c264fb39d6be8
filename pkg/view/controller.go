package view

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/shaneisley/taskslot/pkg/calendar"
	"github.com/shaneisley/taskslot/pkg/client"
	"github.com/shaneisley/taskslot/pkg/form"
	"github.com/shaneisley/taskslot/pkg/logging"
	"github.com/shaneisley/taskslot/pkg/tasks"
)

// InfoText is shown until the user dismisses the informational banner
const InfoText = "Select tasks, pick a date range and working hours, then schedule them into your calendar."

var (
	// ErrSubmitInProgress is returned when a submission is already running
	ErrSubmitInProgress = errors.New("a submission is already in progress")
	// ErrNothingSelected is returned when the submit affordance is disabled
	ErrNothingSelected = errors.New("select at least one task to schedule")
)

// State of the submit affordance
type State int

const (
	Idle State = iota
	Submitting
)

func (s State) String() string {
	if s == Submitting {
		return "submitting"
	}
	return "idle"
}

// Renderer is the typed view surface the controller drives
type Renderer interface {
	calendar.Sink
	RenderTasks(list []tasks.Task)
	ShowEmptyState(visible bool)
	SetSubmitEnabled(enabled bool)
	SetProgress(active bool)
	ShowMessage(message string)
}

// TaskSource loads the pending task list
type TaskSource interface {
	LoadTasks(ctx context.Context) ([]tasks.Task, error)
}

// UserSource loads the signed-in user
type UserSource interface {
	LoadUser(ctx context.Context) (client.User, error)
}

// Submitter sends a scheduling request and classifies the answer
type Submitter interface {
	Submit(ctx context.Context, req tasks.SchedulingRequest) tasks.Outcome
}

// Recorder keeps a history of outcomes
type Recorder interface {
	RecordOutcome(outcome tasks.Outcome, req tasks.SchedulingRequest) error
}

// BannerState reports whether the informational banner is still visible
type BannerState interface {
	Visible() bool
}

// Deps are the collaborators of a Controller
type Deps struct {
	Renderer  Renderer
	Tasks     TaskSource
	Users     UserSource
	Submitter Submitter
	Assembler *form.Assembler
	Recorder  Recorder
	Banner    BannerState
	Logger    *logging.Logger

	CalendarBaseURL string
	CalendarMode    string
}

// Controller reconciles the visible state with loaded tasks and scheduling outcomes.
// One controller is created per session.
type Controller struct {
	mu sync.Mutex

	renderer  Renderer
	source    TaskSource
	users     UserSource
	submitter Submitter
	assembler *form.Assembler
	recorder  Recorder
	banner    BannerState
	frame     *calendar.Frame
	logger    *logging.Logger

	state    State
	list     []tasks.Task
	selected map[string]bool
	enabled  bool
}

// NewController wires a controller from its collaborators
func NewController(deps Deps) *Controller {
	assembler := deps.Assembler
	if assembler == nil {
		assembler = form.NewAssembler()
	}
	logger := deps.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	return &Controller{
		renderer:  deps.Renderer,
		source:    deps.Tasks,
		users:     deps.Users,
		submitter: deps.Submitter,
		assembler: assembler,
		recorder:  deps.Recorder,
		banner:    deps.Banner,
		frame:     calendar.NewFrame(deps.CalendarBaseURL, deps.CalendarMode, deps.Renderer),
		logger:    logger.WithComponent("view"),
		selected:  make(map[string]bool),
	}
}

// Init loads the task list and the calendar, and shows the banner when it was never dismissed.
// Load failures are logged and leave the view unchanged.
func (c *Controller) Init(ctx context.Context) {
	if c.banner != nil && c.banner.Visible() {
		c.renderer.ShowMessage(InfoText)
	}
	_ = c.Reload(ctx)
	_ = c.LoadCalendar(ctx)
}

// Reload fetches the task list and replaces the visible one
func (c *Controller) Reload(ctx context.Context) error {
	list, err := c.source.LoadTasks(ctx)
	if err != nil {
		c.logger.LogError("load tasks", err)
		return err
	}
	c.ApplyTasks(list)
	return nil
}

// LoadCalendar points the calendar frame at the signed-in user
func (c *Controller) LoadCalendar(ctx context.Context) error {
	if c.users == nil {
		return nil
	}
	user, err := c.users.LoadUser(ctx)
	if err != nil {
		c.logger.LogError("load user", err)
		return err
	}
	c.frame.Load(user.Email)
	return nil
}

// RefreshCalendar forces the calendar frame to reload its current source
func (c *Controller) RefreshCalendar() string {
	return c.frame.Refresh()
}

// CalendarSource returns the current calendar frame source
func (c *Controller) CalendarSource() string {
	return c.frame.Source()
}

// ApplyTasks replaces the whole visible list. Selected tasks that are no longer listed
// are dropped from the selection.
func (c *Controller) ApplyTasks(list []tasks.Task) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.list = append([]tasks.Task(nil), list...)

	present := make(map[string]bool, len(list))
	for _, task := range list {
		present[task.ID] = true
	}
	for id := range c.selected {
		if !present[id] {
			delete(c.selected, id)
		}
	}

	c.renderer.RenderTasks(c.list)
	c.renderer.ShowEmptyState(len(c.list) == 0)
	c.updateAffordance()
	c.logger.Debug("tasks rendered", "count", len(c.list), "selected", len(c.selected))
}

// SetSelection replaces the set of checked tasks. Identifiers that are not listed are ignored.
func (c *Controller) SetSelection(ids []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setSelectionLocked(ids)
	c.updateAffordance()
}

// SelectAll checks every listed task
func (c *Controller) SelectAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	ids := make([]string, 0, len(c.list))
	for _, task := range c.list {
		ids = append(ids, task.ID)
	}
	c.setSelectionLocked(ids)
	c.updateAffordance()
}

func (c *Controller) setSelectionLocked(ids []string) {
	listed := make(map[string]bool, len(c.list))
	for _, task := range c.list {
		listed[task.ID] = true
	}

	c.selected = make(map[string]bool, len(ids))
	for _, id := range ids {
		if listed[id] {
			c.selected[id] = true
		}
	}
}

// updateAffordance must be called with mu held
func (c *Controller) updateAffordance() {
	enabled := c.state == Idle && len(c.list) > 0 && len(c.selected) > 0
	c.enabled = enabled
	c.renderer.SetSubmitEnabled(enabled)
}

// Tasks returns a copy of the visible list
func (c *Controller) Tasks() []tasks.Task {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]tasks.Task(nil), c.list...)
}

// State returns the current state of the submit affordance
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SubmitEnabled reports whether the submit affordance is enabled
func (c *Controller) SubmitEnabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enabled
}

// Submit assembles the bound inputs, sends them and reconciles the outcome.
// Input errors are shown to the user and returned without contacting the server.
func (c *Controller) Submit(ctx context.Context, b form.Bindings) (tasks.Outcome, error) {
	req, err := c.begin(b)
	if err != nil {
		return tasks.Outcome{}, err
	}
	defer c.finish()

	outcome := c.submitter.Submit(ctx, req)
	c.Reconcile(ctx, outcome, req)
	return outcome, nil
}

// begin moves Idle -> Submitting
func (c *Controller) begin(b form.Bindings) (tasks.SchedulingRequest, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == Submitting {
		return tasks.SchedulingRequest{}, ErrSubmitInProgress
	}

	selections := b.SelectedTasks()
	ids := make([]string, 0, len(selections))
	for _, s := range selections {
		ids = append(ids, s.TaskID)
	}
	c.setSelectionLocked(ids)
	c.updateAffordance()
	if !c.enabled {
		return tasks.SchedulingRequest{}, ErrNothingSelected
	}

	req, err := c.assembler.Assemble(b)
	if err != nil {
		c.logger.Warn("invalid scheduling input", "error", err.Error())
		c.renderer.ShowMessage(err.Error())
		return tasks.SchedulingRequest{}, fmt.Errorf("invalid scheduling input: %w", err)
	}

	c.state = Submitting
	c.renderer.SetProgress(true)
	c.updateAffordance()
	return req, nil
}

// finish moves Submitting -> Idle. It runs on every path out of Submit.
func (c *Controller) finish() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state = Idle
	c.renderer.SetProgress(false)
	c.updateAffordance()
}

// Reconcile applies an outcome to the view. Every success and every rejection carrying a
// message triggers one task reload and one calendar refresh; failures do not.
func (c *Controller) Reconcile(ctx context.Context, outcome tasks.Outcome, req tasks.SchedulingRequest) {
	c.logger.LogOutcome(outcome, len(req.Selections))

	if c.recorder != nil {
		if err := c.recorder.RecordOutcome(outcome, req); err != nil {
			c.logger.LogError("record outcome", err)
		}
	}

	if outcome.Displayable() || outcome.Kind == tasks.ServerFailure {
		c.renderer.ShowMessage(outcome.Message)
	}
	if outcome.Refreshes() {
		_ = c.Reload(ctx)
		c.frame.Refresh()
	}
}
