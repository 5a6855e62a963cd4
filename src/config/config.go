package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	EnvPathEnvVar       = "CROSSHAIR_OVERLAY"
	SettingsFileEnvVar  = "SETTINGS_FILE"
	DefaultSettingsFile = "crosshair_config.json"
	DefaultToggleHotkey = "Ctrl+Alt+X"
	DefaultCycleHotkey  = "Ctrl+Alt+C"
	DefaultLogLevel     = "info"
	DefaultStopTimeout  = 3 * time.Second
	DefaultControlPort  = 49560
)

type LoadOptions struct {
	SettingsPathOverride string
	// AutostartOverride wins over AUTOSTART when set.
	AutostartOverride *bool
}

// Config is the host configuration. The crosshair itself is configured by
// the settings document at SettingsPath.
type Config struct {
	EnableFileLogging bool
	LogLevel          string
	ToggleHotkey      string
	CycleHotkey       string
	SettingsPath      string
	Autostart         bool
	StopTimeout       time.Duration
	ControlPort       int
}

func Load() (*Config, error) {
	return LoadWithOptions(LoadOptions{})
}

func LoadWithOptions(opts LoadOptions) (*Config, error) {
	// Load configuration from sources in priority order:
	// 1) .env in the application (executable) directory
	// 2) If not found, use CROSSHAIR_OVERLAY env var as a path to a config file
	envPath := resolveEnvPath()
	dotenvValues := readDotenvValues(envPath)
	if envPath != "" {
		_ = godotenv.Load(envPath)
	}

	autostart := getEnvBool("AUTOSTART", true)
	if opts.AutostartOverride != nil {
		autostart = *opts.AutostartOverride
	}

	cfg := &Config{
		EnableFileLogging: getEnvBool("ENABLE_FILE_LOGGING", false),
		LogLevel:          strings.ToLower(getEnvWithDefault("LOG_LEVEL", DefaultLogLevel)),
		ToggleHotkey:      getEnvWithDefault("TOGGLE_HOTKEY", DefaultToggleHotkey),
		CycleHotkey:       getEnvWithDefault("CYCLE_HOTKEY", DefaultCycleHotkey),
		SettingsPath:      resolveSettingsPath(opts, dotenvValues),
		Autostart:         autostart,
		StopTimeout:       getEnvMillis("STOP_TIMEOUT_MS", DefaultStopTimeout),
		ControlPort:       getEnvInt("SINGLEINSTANCE_PORT", DefaultControlPort),
	}

	return cfg, nil
}

func resolveEnvPath() string {
	execPath, err := os.Executable()
	if err != nil {
		return ""
	}

	execDir := filepath.Dir(execPath)
	exeEnv := filepath.Join(execDir, ".env")
	if _, err := os.Stat(exeEnv); err == nil {
		return exeEnv
	}

	if alt := os.Getenv(EnvPathEnvVar); alt != "" {
		if _, err := os.Stat(alt); err == nil {
			return alt
		}
	}

	return ""
}

func readDotenvValues(envPath string) map[string]string {
	if envPath == "" {
		return map[string]string{}
	}

	values, err := godotenv.Read(envPath)
	if err != nil {
		return map[string]string{}
	}

	return values
}

// resolveSettingsPath prefers the override, then the .env file, then the
// process environment, then crosshair_config.json beside the executable.
// Relative paths are resolved against the executable directory.
func resolveSettingsPath(opts LoadOptions, dotenvValues map[string]string) string {
	path := DefaultSettingsFile

	if envPath := strings.TrimSpace(os.Getenv(SettingsFileEnvVar)); envPath != "" {
		path = envPath
	}

	if dotenvPath := strings.TrimSpace(dotenvValues[SettingsFileEnvVar]); dotenvPath != "" {
		path = dotenvPath
	}

	if overridePath := strings.TrimSpace(opts.SettingsPathOverride); overridePath != "" {
		return overridePath
	}

	if filepath.IsAbs(path) {
		return path
	}
	if execPath, err := os.Executable(); err == nil {
		return filepath.Join(filepath.Dir(execPath), path)
	}
	return path
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return defaultValue
	}
	return v
}

func getEnvInt(key string, defaultValue int) int {
	if n, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key))); err == nil && n > 0 {
		return n
	}
	return defaultValue
}

func getEnvMillis(key string, defaultValue time.Duration) time.Duration {
	if n := getEnvInt(key, 0); n > 0 {
		return time.Duration(n) * time.Millisecond
	}
	return defaultValue
}
