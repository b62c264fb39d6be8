package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/shaneisley/taskslot/pkg/devserver"
	"github.com/shaneisley/taskslot/pkg/form"
	"github.com/shaneisley/taskslot/pkg/logging"
	"github.com/shaneisley/taskslot/pkg/tasks"
	"github.com/shaneisley/taskslot/pkg/view"
	"github.com/spf13/cobra"
)

// OutcomeError is returned by schedule when the backend did not accept the request
type OutcomeError struct {
	Outcome tasks.Outcome
}

func (e *OutcomeError) Error() string {
	return "scheduling did not succeed: " + e.Outcome.String()
}

func (e *OutcomeError) Unwrap() error {
	return e.Outcome.Cause
}

// ScheduleConfig holds the flags of the schedule subcommand
type ScheduleConfig struct {
	Range string
	Tasks []string
	All   bool
	Start string
	End   string
}

// flagBindings exposes parsed schedule flags as form inputs
type flagBindings struct {
	selections []tasks.Selection
	dateRange  string
	hours      tasks.WorkingHours
	hoursSet   bool
}

func (b *flagBindings) SelectedTasks() []tasks.Selection {
	return b.selections
}

func (b *flagBindings) DateRange() string {
	return b.dateRange
}

func (b *flagBindings) WorkingHours() (tasks.WorkingHours, bool) {
	return b.hours, b.hoursSet
}

// tomorrowRange returns "<tomorrow> - <tomorrow>" in the local time zone
func tomorrowRange(now time.Time) string {
	tomorrow := now.AddDate(0, 0, 1).Format("2006-01-02")
	return tomorrow + form.RangeSeparator + tomorrow
}

// parseTaskFlag splits "ID" or "ID=MINUTES"
func parseTaskFlag(value string) (tasks.Selection, error) {
	id, minutes, hasDuration := strings.Cut(value, "=")
	id = strings.TrimSpace(id)
	if id == "" {
		return tasks.Selection{}, fmt.Errorf("invalid --task %q: missing task id", value)
	}
	if !hasDuration {
		return tasks.Selection{TaskID: id}, nil
	}

	minutes = strings.TrimSpace(minutes)
	if n, err := strconv.Atoi(minutes); err != nil || n <= 0 {
		return tasks.Selection{}, fmt.Errorf("invalid --task %q: duration must be a positive number of minutes", value)
	}
	return tasks.Selection{TaskID: id, Duration: minutes}, nil
}

// buildBindings resolves schedule flags against the loaded task list
func buildBindings(config ScheduleConfig, listed []tasks.Task, defaults tasks.WorkingHours, now time.Time) (*flagBindings, error) {
	if config.All && len(config.Tasks) > 0 {
		return nil, errors.New("--all cannot be combined with --task")
	}

	b := &flagBindings{dateRange: config.Range}
	if b.dateRange == "" {
		b.dateRange = tomorrowRange(now)
	}

	known := make(map[string]bool, len(listed))
	for _, task := range listed {
		known[task.ID] = true
	}

	if config.All {
		for _, task := range listed {
			b.selections = append(b.selections, tasks.Selection{TaskID: task.ID})
		}
	}
	for _, value := range config.Tasks {
		selection, err := parseTaskFlag(value)
		if err != nil {
			return nil, err
		}
		if !known[selection.TaskID] {
			return nil, fmt.Errorf("unknown task id %q", selection.TaskID)
		}
		b.selections = append(b.selections, selection)
	}

	if config.Start != "" || config.End != "" {
		start := defaults.StartHour + ":" + defaults.StartMin
		end := defaults.EndHour + ":" + defaults.EndMin
		if config.Start != "" {
			start = config.Start
		}
		if config.End != "" {
			end = config.End
		}
		hours, err := tasks.NewWorkingHours(start, end)
		if err != nil {
			return nil, err
		}
		b.hours = hours
		b.hoursSet = true
	}

	return b, nil
}

// createTasksCommand creates the tasks subcommand
func createTasksCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "tasks",
		Aliases: []string{"ls"},
		Short:   "List pending tasks",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a.openSession(cmd)
			if err != nil {
				return err
			}
			defer sess.Close()

			if err := sess.controller.Reload(cmd.Context()); err != nil {
				return fmt.Errorf("failed to load tasks: %w", err)
			}
			return nil
		},
	}
}

// createScheduleCommand creates the schedule subcommand
func createScheduleCommand(a *app) *cobra.Command {
	var config ScheduleConfig

	cmd := &cobra.Command{
		Use:   "schedule [--task ID[=MINUTES]]... [--all] [--range \"START - END\"]",
		Short: "Schedule selected tasks into free calendar time",
		Long: `Send the selected tasks to the scheduling backend, which places them into free time
of your calendar between the start and end dates and within the daily working hours.

Durations are given in minutes after the task id; tasks without one use the backend
default. The date range defaults to tomorrow.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a.openSession(cmd)
			if err != nil {
				return err
			}
			defer sess.Close()

			ctx := cmd.Context()
			sess.controller.Init(ctx)

			defaults, err := sess.cfg.DefaultWorkingHours()
			if err != nil {
				return err
			}
			bindings, err := buildBindings(config, sess.controller.Tasks(), defaults, time.Now())
			if err != nil {
				return err
			}

			outcome, err := sess.controller.Submit(ctx, bindings)
			if err != nil {
				return err
			}
			if outcome.Kind != tasks.Success {
				return &OutcomeError{Outcome: outcome}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&config.Range, "range", "r", "", "Date range \"YYYY-MM-DD - YYYY-MM-DD\" (default: tomorrow)")
	cmd.Flags().StringArrayVar(&config.Tasks, "task", nil, "Task to schedule as ID or ID=MINUTES (repeatable)")
	cmd.Flags().BoolVarP(&config.All, "all", "a", false, "Schedule every pending task")
	cmd.Flags().StringVar(&config.Start, "start", "", "Start of the working day \"HH:MM\" (default: work_start)")
	cmd.Flags().StringVar(&config.End, "end", "", "End of the working day \"HH:MM\" (default: work_end)")

	return cmd
}

// createCalendarCommand creates the calendar subcommand
func createCalendarCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "calendar",
		Short: "Print the embeddable calendar address of the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a.openSession(cmd)
			if err != nil {
				return err
			}
			defer sess.Close()

			if err := sess.controller.LoadCalendar(cmd.Context()); err != nil {
				return fmt.Errorf("failed to load user: %w", err)
			}
			return nil
		},
	}
}

// createInfoCommand creates the info subcommand
func createInfoCommand(a *app) *cobra.Command {
	var dismiss bool

	cmd := &cobra.Command{
		Use:   "info",
		Short: "Show or dismiss the usage banner",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a.openSession(cmd)
			if err != nil {
				return err
			}
			defer sess.Close()

			if dismiss {
				if err := sess.banner.Dismiss(); err != nil {
					return fmt.Errorf("failed to dismiss banner: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Banner dismissed.")
				return nil
			}

			if sess.banner.Visible() {
				sess.terminal.ShowMessage(view.InfoText)
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "Banner was dismissed.")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dismiss, "dismiss", false, "Hide the banner for future sessions")

	return cmd
}

// createHistoryCommand creates the history subcommand
func createHistoryCommand(a *app) *cobra.Command {
	var limit int
	var clearAll bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded scheduling outcomes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit <= 0 {
				return fmt.Errorf("invalid --limit %d: must be greater than 0", limit)
			}

			sess, err := a.openSession(cmd)
			if err != nil {
				return err
			}
			defer sess.Close()

			if clearAll {
				if err := sess.store.Clear(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "History cleared.")
				return nil
			}

			submissions, err := sess.store.Recent(limit)
			if err != nil {
				return err
			}
			summary, err := sess.store.Summarize()
			if err != nil {
				return err
			}
			sess.terminal.RenderHistory(submissions, summary)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of submissions to show")
	cmd.Flags().BoolVar(&clearAll, "clear", false, "Delete all recorded submissions")

	return cmd
}

// createDevServerCommand creates the devserver subcommand
func createDevServerCommand(a *app) *cobra.Command {
	var opts devserver.Options

	cmd := &cobra.Command{
		Use:   "devserver",
		Short: "Run an in-memory scheduling backend for local use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfiguration(cmd)
			if err != nil {
				return err
			}
			logger := newLogger(cfg, cmd.ErrOrStderr())
			opts.Logger = logger

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return runDevServer(ctx, devserver.New(opts), logger)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", ":8080", "Listen address")
	cmd.Flags().StringVar(&opts.Email, "email", devserver.DefaultEmail, "Address reported by /user")
	cmd.Flags().StringArrayVar(&opts.Titles, "task", nil, "Title of a seeded task (repeatable, default: sample tasks)")

	return cmd
}

// runDevServer serves until ctx is done, then shuts down gracefully
func runDevServer(ctx context.Context, srv *devserver.Server, logger *logging.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		logger.Info("shutting down devserver")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
