package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/rainsave/rainsave/internal/cli"
	"github.com/rainsave/rainsave/internal/types"
	"github.com/rainsave/rainsave/pkg/utils"
)

const (
	// sectionName is the config file section holding all controller settings.
	sectionName = "rainmachine"

	// envPrefix is the prefix for environment variable overrides, e.g.
	// RAINSAVE_HOST overrides the "host" key.
	envPrefix = "RAINSAVE_"
)

// Keys that may appear multiple times; occurrences are joined with newlines.
var multiValueKeys = map[string]bool{
	"age_recipient": true,
}

// Config holds the resolved settings for one rainsave run.
type Config struct {
	// Controller connection
	Host           string
	Port           int
	User           string
	Password       string
	VerifyTLS      bool
	TimeoutSeconds int

	// Run mode
	Backup  bool
	Restore bool
	File    string

	// Snapshot storage
	BackupPath string
	MaxBackups int

	// Snapshot encryption
	EncryptBackup    bool
	AgeRecipients    []string
	AgeRecipientFile string
	AgeIdentityFile  string

	// Logging
	DebugLevel types.LogLevel
	UseColor   bool
	LogPath    string

	// Metrics
	MetricsEnabled bool
	MetricsPath    string

	ConfigPath string

	// raw configuration map
	raw map[string]string
}

// LoadConfig reads the configuration file and resolves defaults. A missing
// file is not an error: every setting has a default or can be supplied via
// flags, matching the behavior of a fresh install.
func LoadConfig(configPath string) (*Config, error) {
	cfg := &Config{
		ConfigPath: configPath,
		raw:        make(map[string]string),
	}

	if utils.FileExists(configPath) {
		rawValues, err := parseSectionFile(configPath, sectionName)
		if err != nil {
			return nil, err
		}
		cfg.raw = rawValues
	}

	// Environment variables take precedence over file values.
	cfg.loadEnvOverrides()

	if err := cfg.parse(); err != nil {
		return nil, fmt.Errorf("error parsing configuration: %w", err)
	}

	return cfg, nil
}

// loadEnvOverrides checks for RAINSAVE_* environment variables and overrides
// config file values.
func (c *Config) loadEnvOverrides() {
	envKeys := []string{
		"host", "port", "user", "password",
		"backup", "restore", "file",
		"verify_tls", "timeout_seconds",
		"backup_path", "max_backups",
		"encrypt_backup", "age_recipient", "age_recipient_file", "age_identity_file",
		"debug_level", "use_color", "log_path",
		"metrics_enabled", "metrics_path",
	}

	for _, key := range envKeys {
		envName := envPrefix + strings.ToUpper(key)
		if envValue := os.Getenv(envName); envValue != "" {
			c.raw[key] = envValue
		}
	}
}

// parse interprets the raw configuration values.
func (c *Config) parse() error {
	c.Host = strings.TrimSpace(c.getString("host", "localhost"))
	c.Port = c.getInt("port", 443)
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	c.User = c.getString("user", "admin")
	c.Password = c.getString("password", "admin")
	c.VerifyTLS = c.getBool("verify_tls", true)
	c.TimeoutSeconds = c.getInt("timeout_seconds", 15)
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 15
	}

	c.Backup = c.getBool("backup", true)
	c.Restore = c.getBool("restore", false)
	c.File = strings.TrimSpace(c.getString("file", ""))

	c.BackupPath = strings.TrimSpace(c.getString("backup_path", ""))
	c.MaxBackups = c.getInt("max_backups", 0)
	if c.MaxBackups < 0 {
		c.MaxBackups = 0
	}

	c.EncryptBackup = c.getBool("encrypt_backup", false)
	c.AgeRecipients = c.getStringSlice("age_recipient", nil)
	c.AgeRecipientFile = strings.TrimSpace(c.getString("age_recipient_file", ""))
	c.AgeIdentityFile = strings.TrimSpace(c.getString("age_identity_file", ""))

	c.DebugLevel = c.getLogLevel("debug_level", types.LogLevelInfo)
	c.UseColor = c.getBool("use_color", true)
	c.LogPath = strings.TrimSpace(c.getString("log_path", ""))

	c.MetricsEnabled = c.getBool("metrics_enabled", false)
	c.MetricsPath = strings.TrimSpace(c.getString("metrics_path", ""))

	return nil
}

// ApplyArgs merges command-line flags over the file/env configuration.
// Flags win only when explicitly provided.
func (c *Config) ApplyArgs(args *cli.Args) {
	if args == nil {
		return
	}
	if args.HostSet {
		c.Host = strings.TrimSpace(args.Host)
	}
	if args.PasswordSet {
		c.Password = args.Password
	}
	if args.FileSet {
		c.File = strings.TrimSpace(args.File)
	}
	if args.BackupSet {
		c.Backup = args.Backup
		// -b alone selects backup mode; a config restore=true default
		// must not linger once the user asked for a backup.
		if args.Backup && !args.RestoreSet {
			c.Restore = false
		}
	}
	if args.RestoreSet {
		c.Restore = args.Restore
		if args.Restore && !args.BackupSet {
			c.Backup = false
		}
	}
	if args.Insecure {
		c.VerifyTLS = false
	}
	if args.LogLevel != types.LogLevelNone {
		c.DebugLevel = args.LogLevel
	}
}

// Validate checks the mandatory invariants after file, env and flag merging.
func (c *Config) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("missing configuration setting: host")
	}
	if c.Password == "" {
		return fmt.Errorf("missing configuration setting: password")
	}
	if c.Backup && c.Restore {
		return fmt.Errorf("backup and restore are mutually exclusive; choose one")
	}
	if !c.Backup && !c.Restore {
		return fmt.Errorf("nothing to do: enable exactly one of backup or restore")
	}
	if c.MetricsEnabled && c.MetricsPath == "" {
		return fmt.Errorf("metrics_enabled requires metrics_path")
	}
	return nil
}

// Typed getter helpers

func (c *Config) getString(key, defaultValue string) string {
	if val, ok := c.raw[key]; ok {
		return val
	}
	return defaultValue
}

func (c *Config) getBool(key string, defaultValue bool) bool {
	if val, ok := c.raw[key]; ok {
		return utils.ParseBool(val)
	}
	return defaultValue
}

func (c *Config) getInt(key string, defaultValue int) int {
	if val, ok := c.raw[key]; ok {
		if intVal, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func (c *Config) getLogLevel(key string, defaultValue types.LogLevel) types.LogLevel {
	if val, ok := c.raw[key]; ok {
		if intVal, err := strconv.Atoi(val); err == nil {
			return types.LogLevel(intVal)
		}
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "debug":
			return types.LogLevelDebug
		case "info":
			return types.LogLevelInfo
		case "warning":
			return types.LogLevelWarning
		case "error":
			return types.LogLevelError
		case "critical":
			return types.LogLevelCritical
		}
	}
	return defaultValue
}

func (c *Config) getStringSlice(key string, defaultValue []string) []string {
	val, ok := c.raw[key]
	if !ok {
		return defaultValue
	}
	val = strings.TrimSpace(val)
	if val == "" {
		return []string{}
	}

	parts := strings.FieldsFunc(val, func(r rune) bool {
		switch r {
		case ',', '\n':
			return true
		default:
			return false
		}
	})

	var result []string
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, utils.TrimQuotes(trimmed))
		}
	}

	if len(result) == 0 {
		return []string{}
	}
	return result
}

// Get returns a raw value from the configuration.
func (c *Config) Get(key string) (string, bool) {
	val, ok := c.raw[key]
	return val, ok
}

// Set stores a raw value in the configuration.
func (c *Config) Set(key, value string) {
	c.raw[key] = value
}

// parseSectionFile reads one named [section] of an INI-style config file.
// Keys outside the section are ignored; unknown sections are skipped so the
// same file can carry settings for other tools.
func parseSectionFile(path, section string) (map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open config file: %w", err)
	}
	defer file.Close()

	raw := make(map[string]string)
	inSection := false
	scanner := bufio.NewScanner(file)

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		trimmed := strings.TrimSpace(line)
		if utils.IsComment(trimmed) {
			continue
		}

		if strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]") {
			name := strings.TrimSpace(trimmed[1 : len(trimmed)-1])
			inSection = strings.EqualFold(name, section)
			continue
		}
		if !inSection {
			continue
		}

		key, value, ok := utils.SplitKeyValue(line)
		if !ok {
			continue
		}
		key = strings.ToLower(key)

		if multiValueKeys[key] {
			if existing, ok := raw[key]; ok && existing != "" {
				raw[key] = existing + "\n" + value
			} else {
				raw[key] = value
			}
		} else {
			raw[key] = value
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}
	return raw, nil
}
