package config

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/shaneisley/taskslot/pkg/tasks"
)

// Config holds the configuration for the taskslot client
type Config struct {
	ServerURL        string        `mapstructure:"server_url"`
	Timeout          time.Duration `mapstructure:"timeout"`
	StateDir         string        `mapstructure:"state_dir"`
	LogLevel         string        `mapstructure:"log_level"`
	LogFormat        string        `mapstructure:"log_format"`
	CalendarBaseURL  string        `mapstructure:"calendar_base_url"`
	CalendarMode     string        `mapstructure:"calendar_mode"`
	WorkStart        string        `mapstructure:"work_start"`
	WorkEnd          string        `mapstructure:"work_end"`
	SendWorkingHours bool          `mapstructure:"send_working_hours"`
}

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("invalid %s value '%v': %s", e.Field, e.Value, e.Message)
}

// ConfigSource represents where a configuration value came from
type ConfigSource int

const (
	SourceDefault ConfigSource = iota
	SourceConfigFile
	SourceDotEnv
	SourceEnvironment
	SourceCLIFlag
)

func (s ConfigSource) String() string {
	switch s {
	case SourceDefault:
		return "default"
	case SourceConfigFile:
		return "config file"
	case SourceDotEnv:
		return ".env file"
	case SourceEnvironment:
		return "environment variable"
	case SourceCLIFlag:
		return "CLI flag"
	default:
		return "unknown"
	}
}

// ConfigDebugInfo holds debugging information about configuration resolution
type ConfigDebugInfo struct {
	Sources map[string]ConfigSource
	Values  map[string]interface{}
}

// configKeys lists every key in display order
var configKeys = []string{
	"server_url", "timeout", "state_dir", "log_level", "log_format",
	"calendar_base_url", "calendar_mode", "work_start", "work_end", "send_working_hours",
}

// envMappings maps environment variables to config keys
var envMappings = map[string]string{
	"TASKSLOT_SERVER_URL":         "server_url",
	"TASKSLOT_TIMEOUT":            "timeout",
	"TASKSLOT_STATE_DIR":          "state_dir",
	"TASKSLOT_LOG_LEVEL":          "log_level",
	"TASKSLOT_LOG_FORMAT":         "log_format",
	"TASKSLOT_CALENDAR_BASE_URL":  "calendar_base_url",
	"TASKSLOT_CALENDAR_MODE":      "calendar_mode",
	"TASKSLOT_WORK_START":         "work_start",
	"TASKSLOT_WORK_END":           "work_end",
	"TASKSLOT_SEND_WORKING_HOURS": "send_working_hours",
}

var defaults = map[string]interface{}{
	"server_url":         "http://localhost:8080",
	"timeout":            10 * time.Second,
	"state_dir":          "",
	"log_level":          "warn",
	"log_format":         "text",
	"calendar_base_url":  "https://calendar.google.com/calendar/embed",
	"calendar_mode":      "WEEK",
	"work_start":         "09:00",
	"work_end":           "18:00",
	"send_working_hours": true,
}

// LoadFromFile loads configuration from a TOML file
func LoadFromFile(configFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(configFile)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

// LoadWithDefaults returns a configuration with default values
func LoadWithDefaults() *Config {
	v := viper.New()
	setDefaults(v)

	var config Config
	v.Unmarshal(&config)
	return &config
}

// LoadWithPrecedenceAndExplicitFlags loads configuration with full precedence support.
// Precedence: CLI flags > environment > .env files > config file > defaults.
func LoadWithPrecedenceAndExplicitFlags(configFile string, envFiles []string, flagConfig *Config, explicitFields map[string]bool, debug bool) (*Config, *ConfigDebugInfo, error) {
	var debugInfo *ConfigDebugInfo
	if debug {
		debugInfo = &ConfigDebugInfo{
			Sources: make(map[string]ConfigSource),
			Values:  make(map[string]interface{}),
		}
	}

	v := viper.New()

	setDefaults(v)
	if debug {
		recordDefaults(debugInfo)
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return nil, debugInfo, fmt.Errorf("failed to read config file: %w", err)
		}
		if debug {
			recordConfigFile(debugInfo, v)
		}
	}

	dotenv, err := readDotEnv(envFiles)
	if err != nil {
		return nil, debugInfo, err
	}

	v.SetEnvPrefix("TASKSLOT")
	for envVar, configKey := range envMappings {
		v.BindEnv(configKey, envVar)

		// .env values never override the real environment
		if _, set := os.LookupEnv(envVar); set {
			if debug {
				debugInfo.Sources[configKey] = SourceEnvironment
				debugInfo.Values[configKey] = os.Getenv(envVar)
			}
			continue
		}
		if value, ok := dotenv[envVar]; ok {
			v.Set(configKey, value)
			if debug {
				debugInfo.Sources[configKey] = SourceDotEnv
				debugInfo.Values[configKey] = value
			}
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, debugInfo, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if flagConfig != nil && explicitFields != nil {
		config = *config.MergeWithExplicitFlags(flagConfig, explicitFields)
		if debug {
			recordExplicitFlags(debugInfo, flagConfig, explicitFields)
		}
	}

	if err := config.Validate(); err != nil {
		return nil, debugInfo, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, debugInfo, nil
}

// readDotEnv merges the given .env files. Missing files are skipped and earlier files win.
func readDotEnv(files []string) (map[string]string, error) {
	merged := make(map[string]string)
	for _, file := range files {
		if _, err := os.Stat(file); err != nil {
			continue
		}
		values, err := godotenv.Read(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read env file %s: %w", file, err)
		}
		for key, value := range values {
			if _, exists := merged[key]; !exists {
				merged[key] = value
			}
		}
	}
	return merged, nil
}

// DefaultEnvFiles returns the .env files checked when no explicit list is given
func DefaultEnvFiles() []string {
	files := []string{".env"}
	if configDir, err := os.UserConfigDir(); err == nil {
		files = append(files, filepath.Join(configDir, "taskslot", ".env"))
	}
	return files
}

func setDefaults(v *viper.Viper) {
	for _, key := range configKeys {
		v.SetDefault(key, defaults[key])
	}
}

// MergeWithExplicitFlags merges configuration with explicitly set flag values
func (c *Config) MergeWithExplicitFlags(flags *Config, explicitFields map[string]bool) *Config {
	result := *c

	if explicitFields["server_url"] {
		result.ServerURL = flags.ServerURL
	}
	if explicitFields["timeout"] {
		result.Timeout = flags.Timeout
	}
	if explicitFields["state_dir"] {
		result.StateDir = flags.StateDir
	}
	if explicitFields["log_level"] {
		result.LogLevel = flags.LogLevel
	}
	if explicitFields["log_format"] {
		result.LogFormat = flags.LogFormat
	}
	if explicitFields["calendar_mode"] {
		result.CalendarMode = flags.CalendarMode
	}
	if explicitFields["work_start"] {
		result.WorkStart = flags.WorkStart
	}
	if explicitFields["work_end"] {
		result.WorkEnd = flags.WorkEnd
	}
	if explicitFields["send_working_hours"] {
		result.SendWorkingHours = flags.SendWorkingHours
	}

	return &result
}

// FindConfigFile searches for a configuration file in the given directory
func FindConfigFile(dir string) string {
	configNames := []string{".taskslot.toml", "taskslot.toml"}

	for _, name := range configNames {
		configPath := filepath.Join(dir, name)
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
	}

	return ""
}

// DefaultWorkingHours returns the configured default window
func (c *Config) DefaultWorkingHours() (tasks.WorkingHours, error) {
	return tasks.NewWorkingHours(c.WorkStart, c.WorkEnd)
}

// ResolveStateDir returns the state directory, defaulting to the user config directory
func (c *Config) ResolveStateDir() (string, error) {
	if c.StateDir != "" {
		return c.StateDir, nil
	}
	baseDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve default state dir: %w", err)
	}
	return filepath.Join(baseDir, "taskslot"), nil
}

// Validate validates the configuration and returns detailed error messages
func (c *Config) Validate() error {
	var errors []ValidationError

	if u, err := url.Parse(c.ServerURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errors = append(errors, ValidationError{
			Field:   "server_url",
			Value:   c.ServerURL,
			Message: "must be an absolute http or https URL",
		})
	}

	if c.Timeout <= 0 {
		errors = append(errors, ValidationError{
			Field:   "timeout",
			Value:   c.Timeout,
			Message: "must be greater than 0",
		})
	}
	if c.Timeout > 5*time.Minute {
		errors = append(errors, ValidationError{
			Field:   "timeout",
			Value:   c.Timeout,
			Message: "must be 5 minutes or less",
		})
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errors = append(errors, ValidationError{
			Field:   "log_level",
			Value:   c.LogLevel,
			Message: "must be one of debug, info, warn, error",
		})
	}

	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		errors = append(errors, ValidationError{
			Field:   "log_format",
			Value:   c.LogFormat,
			Message: "must be 'text' or 'json'",
		})
	}

	switch c.CalendarMode {
	case "WEEK", "MONTH", "AGENDA":
	default:
		errors = append(errors, ValidationError{
			Field:   "calendar_mode",
			Value:   c.CalendarMode,
			Message: "must be WEEK, MONTH or AGENDA",
		})
	}

	startHour, startMin, startErr := tasks.ParseClock(c.WorkStart)
	if startErr != nil {
		errors = append(errors, ValidationError{
			Field:   "work_start",
			Value:   c.WorkStart,
			Message: "must be a HH:MM time",
		})
	}
	endHour, endMin, endErr := tasks.ParseClock(c.WorkEnd)
	if endErr != nil {
		errors = append(errors, ValidationError{
			Field:   "work_end",
			Value:   c.WorkEnd,
			Message: "must be a HH:MM time",
		})
	}
	// Two-digit strings compare in clock order
	if startErr == nil && endErr == nil && endHour+endMin <= startHour+startMin {
		errors = append(errors, ValidationError{
			Field:   "work_end",
			Value:   c.WorkEnd,
			Message: "must be later than work_start",
		})
	}

	if len(errors) > 0 {
		var messages []string
		for _, err := range errors {
			messages = append(messages, err.Error())
		}
		return fmt.Errorf("validation errors:\n  - %s", strings.Join(messages, "\n  - "))
	}

	return nil
}

func recordDefaults(debug *ConfigDebugInfo) {
	for _, key := range configKeys {
		debug.Sources[key] = SourceDefault
		debug.Values[key] = defaults[key]
	}
}

func recordConfigFile(debug *ConfigDebugInfo, v *viper.Viper) {
	for _, key := range configKeys {
		if v.InConfig(key) {
			debug.Sources[key] = SourceConfigFile
			debug.Values[key] = v.Get(key)
		}
	}
}

func recordExplicitFlags(debug *ConfigDebugInfo, flags *Config, explicitFields map[string]bool) {
	values := map[string]interface{}{
		"server_url":         flags.ServerURL,
		"timeout":            flags.Timeout,
		"state_dir":          flags.StateDir,
		"log_level":          flags.LogLevel,
		"log_format":         flags.LogFormat,
		"calendar_mode":      flags.CalendarMode,
		"work_start":         flags.WorkStart,
		"work_end":           flags.WorkEnd,
		"send_working_hours": flags.SendWorkingHours,
	}
	for key, value := range values {
		if explicitFields[key] {
			debug.Sources[key] = SourceCLIFlag
			debug.Values[key] = value
		}
	}
}

// PrintDebugInfo prints configuration debug information
func (debug *ConfigDebugInfo) PrintDebugInfo(w io.Writer) {
	fmt.Fprintln(w, "Configuration Resolution Debug Info:")
	fmt.Fprintln(w, "===================================")

	for _, key := range configKeys {
		source := debug.Sources[key]
		value := debug.Values[key]
		fmt.Fprintf(w, "%-20s: %-40v (from %s)\n", key, value, source)
	}
}
