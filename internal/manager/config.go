package manager

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// DefaultConfigFile is used when no --config flag is given.
const DefaultConfigFile = "sysdash.config"

const (
	defaultPort               = 5000
	defaultPollInterval       = 5
	defaultRateLimitPerMinute = 600
)

var validate = validator.New()

var controlChars = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F\x7F]`)

// Config is the on-disk process configuration. It only covers process-level
// settings; what gets collected is fixed.
type Config struct {
	Port                int    `json:"port" validate:"min=1,max=65535"`
	BindAddress         string `json:"bind_address" validate:"omitempty,ip"`
	PollIntervalSeconds int    `json:"poll_interval_seconds" validate:"min=1,max=3600"`
	RootPath            string `json:"root_path"`
	// TrayEnabled starts the notification area icon (Windows only).
	TrayEnabled bool `json:"tray_enabled"`
	// NvidiaSMIPath overrides the nvidia-smi lookup; empty means PATH.
	NvidiaSMIPath string `json:"nvidia_smi_path"`
	NVMLEnabled   bool   `json:"nvml_enabled"`
	VerboseHTTP   bool   `json:"verbose_http"`
	AllowIFrame   bool   `json:"allow_iframe"`
	// RateLimitPerMinute caps requests per client IP; 0 disables limiting.
	RateLimitPerMinute int  `json:"rate_limit_per_minute" validate:"min=0,max=100000"`
	DiscoverExternalIP bool `json:"discover_external_ip"`
}

// DefaultConfig returns the settings written when no config file exists.
func DefaultConfig() *Config {
	return &Config{
		Port:                defaultPort,
		BindAddress:         "0.0.0.0",
		PollIntervalSeconds: defaultPollInterval,
		TrayEnabled:         runtime.GOOS == "windows",
		NVMLEnabled:         true,
		RateLimitPerMinute:  defaultRateLimitPerMinute,
	}
}

// PollInterval is the pause between the end of one collection and the start
// of the next.
func (c *Config) PollInterval() time.Duration {
	if c == nil || c.PollIntervalSeconds <= 0 {
		return defaultPollInterval * time.Second
	}
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.BindAddress, c.Port)
}

// Validate checks field ranges and reports every failing field at once.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fmt.Sprintf("%s: failed %q (value %v)", fe.Field(), fe.Tag(), fe.Value()))
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}

// normalize cleans free-form string fields before validation.
func (c *Config) normalize() {
	c.BindAddress = strings.TrimSpace(c.BindAddress)
	c.NvidiaSMIPath = sanitizePath(c.NvidiaSMIPath)
	c.RootPath = sanitizePath(c.RootPath)
}

// sanitizePath strips control characters and cleans the path without
// removing separators, so absolute paths survive.
func sanitizePath(input string) string {
	cleaned := strings.TrimSpace(controlChars.ReplaceAllString(input, ""))
	if cleaned == "" {
		return ""
	}
	return filepath.Clean(cleaned)
}

// LoadConfig reads the JSON config at path. A missing file is bootstrapped
// with DefaultConfig rooted at the file's directory; created reports that.
// Fields absent from the file keep their defaults.
func LoadConfig(path string) (cfg *Config, created bool, err error) {
	path = strings.TrimSpace(path)
	if path == "" {
		path = DefaultConfigFile
	}

	if !fileExists(path) {
		cfg = DefaultConfig()
		if err := bootstrapDefaultConfig(cfg, path); err != nil {
			return nil, false, err
		}
		return cfg, true, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false, fmt.Errorf("read configuration %s: %w", path, err)
	}
	cfg = DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, false, fmt.Errorf("parse configuration %s: %w", path, err)
	}
	cfg.normalize()
	if cfg.RootPath == "" {
		cfg.RootPath = configDir(path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, false, err
	}
	return cfg, false, nil
}

func bootstrapDefaultConfig(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to ensure config directory: %w", err)
	}
	cfg.RootPath = configDir(path)
	return cfg.Save(path)
}

// Save writes the config as indented JSON.
func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal configuration: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write configuration: %w", err)
	}
	return nil
}

func configDir(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Dir(path)
	}
	return filepath.Dir(abs)
}

func fileExists(filename string) bool {
	info, err := os.Stat(filename)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
