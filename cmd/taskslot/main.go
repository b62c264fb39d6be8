package main

import (
	"fmt"
	"io"
	"os"

	"github.com/shaneisley/taskslot/pkg/client"
	"github.com/shaneisley/taskslot/pkg/config"
	"github.com/shaneisley/taskslot/pkg/form"
	"github.com/shaneisley/taskslot/pkg/logging"
	"github.com/shaneisley/taskslot/pkg/storage"
	"github.com/shaneisley/taskslot/pkg/ui"
	"github.com/shaneisley/taskslot/pkg/view"
	"github.com/spf13/cobra"
)

// app holds the values bound to persistent flags
type app struct {
	flagConfig  config.Config
	configFile  string
	debugConfig bool
	quiet       bool
	// envFiles overrides the default .env search list when non-nil
	envFiles []string
}

// persistentFlags maps flag names to config keys
var persistentFlags = map[string]string{
	"server":        "server_url",
	"timeout":       "timeout",
	"state-dir":     "state_dir",
	"log-level":     "log_level",
	"log-format":    "log_format",
	"calendar-mode": "calendar_mode",
}

// createRootCommand builds the command tree
func createRootCommand() *cobra.Command {
	return newRootCommand(&app{})
}

func newRootCommand(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "taskslot",
		Short: "Schedule pending tasks into free calendar time",
		Long: `taskslot lists your pending tasks and asks the scheduling backend to place the
selected ones into free time of your calendar, within a date range and daily working hours.

Configuration precedence (highest to lowest):
1. CLI flags
2. Environment variables (TASKSLOT_*)
3. .env files (./.env, then the user config directory)
4. Configuration file
5. Default values

Configuration files are looked up in the following order:
1. File specified by --config flag
2. .taskslot.toml or taskslot.toml in current directory
3. .taskslot.toml or taskslot.toml in home directory

Environment variables:
- TASKSLOT_SERVER_URL: Base URL of the scheduling backend
- TASKSLOT_TIMEOUT: Request timeout (e.g., "10s")
- TASKSLOT_STATE_DIR: Directory holding the local database
- TASKSLOT_LOG_LEVEL: debug, info, warn or error
- TASKSLOT_LOG_FORMAT: text or json
- TASKSLOT_CALENDAR_BASE_URL: Embeddable calendar address
- TASKSLOT_CALENDAR_MODE: WEEK, MONTH or AGENDA
- TASKSLOT_WORK_START / TASKSLOT_WORK_END: Default working hours ("HH:MM")
- TASKSLOT_SEND_WORKING_HOURS: Send the default window when none is given ("true" or "false")

EXAMPLES:
  # List pending tasks
  taskslot tasks

  # Schedule two tasks over a week, one of them for 90 minutes
  taskslot schedule --task 3f2a=90 --task 7c1e --range "2024-01-08 - 2024-01-12"

  # Schedule everything tomorrow between 10:00 and 16:00
  taskslot schedule --all --start 10:00 --end 16:00

  # Run a local stand-in backend
  taskslot devserver --addr :8080`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "Configuration file path")
	flags.BoolVar(&a.debugConfig, "debug-config", false, "Show configuration resolution debug information")
	flags.BoolVarP(&a.quiet, "quiet", "q", false, "Only print tasks and messages")
	flags.StringVarP(&a.flagConfig.ServerURL, "server", "s", "", "Scheduling backend URL (default: http://localhost:8080)")
	flags.DurationVarP(&a.flagConfig.Timeout, "timeout", "t", 0, "Request timeout (default: 10s)")
	flags.StringVar(&a.flagConfig.StateDir, "state-dir", "", "Directory for the local database (default: user config dir)")
	flags.StringVar(&a.flagConfig.LogLevel, "log-level", "", "Log level: debug, info, warn, error (default: warn)")
	flags.StringVar(&a.flagConfig.LogFormat, "log-format", "", "Log format: text or json (default: text)")
	flags.StringVar(&a.flagConfig.CalendarMode, "calendar-mode", "", "Calendar view: WEEK, MONTH or AGENDA (default: WEEK)")

	rootCmd.AddCommand(
		createTasksCommand(a),
		createScheduleCommand(a),
		createCalendarCommand(a),
		createInfoCommand(a),
		createHistoryCommand(a),
		createDevServerCommand(a),
	)

	return rootCmd
}

// loadConfiguration loads configuration with full precedence support
func (a *app) loadConfiguration(cmd *cobra.Command) (*config.Config, error) {
	configPath := a.configFile
	if configPath == "" {
		cwd, _ := os.Getwd()
		if found := config.FindConfigFile(cwd); found != "" {
			configPath = found
		} else if homeDir, err := os.UserHomeDir(); err == nil {
			configPath = config.FindConfigFile(homeDir)
		}
	}

	var effectiveFlagConfig *config.Config
	explicitFields := make(map[string]bool)
	for flagName, key := range persistentFlags {
		if cmd.Flags().Changed(flagName) {
			explicitFields[key] = true
		}
	}
	if len(explicitFields) > 0 {
		effectiveFlagConfig = &a.flagConfig
	}

	envFiles := a.envFiles
	if envFiles == nil {
		envFiles = config.DefaultEnvFiles()
	}

	finalConfig, debugInfo, err := config.LoadWithPrecedenceAndExplicitFlags(configPath, envFiles, effectiveFlagConfig, explicitFields, a.debugConfig)
	if err != nil {
		return nil, err
	}

	if a.debugConfig && debugInfo != nil {
		debugInfo.PrintDebugInfo(cmd.ErrOrStderr())
		fmt.Fprintln(cmd.ErrOrStderr())
	}

	return finalConfig, nil
}

func newLogger(cfg *config.Config, w io.Writer) *logging.Logger {
	return logging.New("taskslot", logging.Options{
		Level:  logging.LogLevel(cfg.LogLevel),
		Format: cfg.LogFormat,
		Writer: w,
	})
}

// session is everything one command invocation needs to talk to the backend
type session struct {
	cfg        *config.Config
	logger     *logging.Logger
	client     *client.Client
	store      *storage.Store
	banner     *storage.Banner
	terminal   *ui.Terminal
	controller *view.Controller
}

// openSession loads configuration, opens the local store and wires the controller
func (a *app) openSession(cmd *cobra.Command) (*session, error) {
	cfg, err := a.loadConfiguration(cmd)
	if err != nil {
		return nil, err
	}

	stateDir, err := cfg.ResolveStateDir()
	if err != nil {
		return nil, err
	}
	store, err := storage.OpenInDir(stateDir)
	if err != nil {
		return nil, err
	}
	banner, err := storage.LoadBanner(store)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to read banner state: %w", err)
	}

	hours, err := cfg.DefaultWorkingHours()
	if err != nil {
		store.Close()
		return nil, err
	}
	assembler := form.NewAssembler()
	assembler.DefaultHours = hours
	assembler.IncludeWorkingHours = cfg.SendWorkingHours

	logger := newLogger(cfg, cmd.ErrOrStderr())
	terminal := ui.NewTerminal(cmd.OutOrStdout())
	terminal.SetQuiet(a.quiet)
	c := client.NewClient(cfg.ServerURL, cfg.Timeout)

	controller := view.NewController(view.Deps{
		Renderer:        terminal,
		Tasks:           c,
		Users:           c,
		Submitter:       c,
		Assembler:       assembler,
		Recorder:        store,
		Banner:          banner,
		Logger:          logger,
		CalendarBaseURL: cfg.CalendarBaseURL,
		CalendarMode:    cfg.CalendarMode,
	})

	logger.Debug("session opened", "server", cfg.ServerURL, "state_dir", stateDir)

	return &session{
		cfg:        cfg,
		logger:     logger,
		client:     c,
		store:      store,
		banner:     banner,
		terminal:   terminal,
		controller: controller,
	}, nil
}

func (s *session) Close() error {
	return s.store.Close()
}

func main() {
	if err := createRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
