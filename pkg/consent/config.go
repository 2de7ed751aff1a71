package consent

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
)

// NormalizePolicy selects which runs receive the configured style
type NormalizePolicy string

const (
	// PolicyInserted styles only the runs changed by substitution or clause replacement
	PolicyInserted NormalizePolicy = "inserted"
	// PolicyDocument styles every run of the finished document
	PolicyDocument NormalizePolicy = "document"
)

// Config contains the deployment options of the generator
type Config struct {
	// LogLevel controls the verbosity of logging (debug, info, warn, error, off)
	LogLevel string
	// Workers is the number of records built concurrently. 1 builds sequentially.
	Workers int
	// Normalize chooses the format normalization policy
	Normalize NormalizePolicy
	// CopyFooter repopulates the output footers from a separately opened copy of the template
	CopyFooter bool
	// Headers extends substitution to header and footer parts
	Headers bool
	// MergeRuns joins identically formatted runs before substitution
	MergeRuns bool
	// RulesFile is an optional YAML file with style, clauses and extra redactions
	RulesFile string
	// Sheet names the worksheet to read; empty means the first one
	Sheet string
	// Output is the default archive path of the CLI
	Output string
	// Addr is the listen address of the upload server
	Addr string
}

var (
	globalConfig      *Config
	globalConfigMutex sync.RWMutex
	configOnce        sync.Once
)

func init() {
	configOnce.Do(func() {
		globalConfig = ConfigFromEnvironment()
	})
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		LogLevel:   "info",
		Workers:    1,
		Normalize:  PolicyInserted,
		CopyFooter: false,
		Headers:    false,
		MergeRuns:  true,
		Output:     "consentimientos_generados.zip",
		Addr:       ":8080",
	}
}

// ConfigFromEnvironment creates a configuration from environment variables
func ConfigFromEnvironment() *Config {
	config := DefaultConfig()

	// CONSENT_LOG_LEVEL
	if val := os.Getenv("CONSENT_LOG_LEVEL"); val != "" {
		config.LogLevel = strings.ToLower(strings.TrimSpace(val))
	}

	// CONSENT_WORKERS
	if val := os.Getenv("CONSENT_WORKERS"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			config.Workers = n
		}
	}

	// CONSENT_NORMALIZE
	if val := os.Getenv("CONSENT_NORMALIZE"); val != "" {
		config.Normalize = NormalizePolicy(strings.ToLower(strings.TrimSpace(val)))
	}

	if val := os.Getenv("CONSENT_COPY_FOOTER"); val != "" {
		config.CopyFooter = parseBool(val)
	}
	if val := os.Getenv("CONSENT_HEADERS"); val != "" {
		config.Headers = parseBool(val)
	}
	if val := os.Getenv("CONSENT_MERGE_RUNS"); val != "" {
		config.MergeRuns = parseBool(val)
	}

	if val := os.Getenv("CONSENT_RULES"); val != "" {
		config.RulesFile = val
	}
	if val := os.Getenv("CONSENT_SHEET"); val != "" {
		config.Sheet = val
	}
	if val := os.Getenv("CONSENT_OUTPUT"); val != "" {
		config.Output = val
	}
	if val := os.Getenv("CONSENT_ADDR"); val != "" {
		config.Addr = val
	}

	return config
}

// NewConfigWithDefaults creates a new configuration with defaults applied to unset fields
func NewConfigWithDefaults(overrides *Config) *Config {
	defaults := DefaultConfig()

	if overrides == nil {
		return defaults
	}

	config := *overrides

	if config.LogLevel == "" {
		config.LogLevel = defaults.LogLevel
	}
	if config.Workers == 0 {
		config.Workers = defaults.Workers
	}
	if config.Normalize == "" {
		config.Normalize = defaults.Normalize
	}
	if config.Output == "" {
		config.Output = defaults.Output
	}
	if config.Addr == "" {
		config.Addr = defaults.Addr
	}

	return &config
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	verr := &ValidationError{}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
		"off":   true,
	}
	if !validLogLevels[c.LogLevel] {
		verr.add("LogLevel", "invalid log level: "+c.LogLevel)
	}

	if c.Workers <= 0 {
		verr.add("Workers", fmt.Sprintf("must be positive, got %d", c.Workers))
	}

	switch c.Normalize {
	case PolicyInserted, PolicyDocument:
	default:
		verr.add("Normalize", fmt.Sprintf("unknown policy %q (want %q or %q)", c.Normalize, PolicyInserted, PolicyDocument))
	}

	if c.Output != "" && !strings.HasSuffix(strings.ToLower(c.Output), ".zip") {
		verr.add("Output", "archive path must end in .zip")
	}

	return verr.err()
}

// GetGlobalConfig returns a copy of the global configuration
func GetGlobalConfig() *Config {
	globalConfigMutex.RLock()
	defer globalConfigMutex.RUnlock()

	if globalConfig == nil {
		return DefaultConfig()
	}

	configCopy := *globalConfig
	return &configCopy
}

// SetGlobalConfig sets the global configuration
func SetGlobalConfig(config *Config) error {
	if config == nil {
		return errors.New("config cannot be nil")
	}

	globalConfigMutex.Lock()
	globalConfig = config
	globalConfigMutex.Unlock()

	// outside the lock: the logger reads the config back
	UpdateLoggerFromConfig()
	return nil
}

// parseBool parses a boolean value from a string
func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "1" || s == "yes" || s == "on"
}
