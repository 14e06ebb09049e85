// Package config holds the settings for a kudzu-context run.
//
// Values are layered: defaults, an optional YAML or JSON file, a .env file
// and KUDZU_* environment variables, settings saved in the store, and
// finally command-line flags. Each layer only overrides what it sets.
package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	TransportSSH  = "ssh"
	TransportHTTP = "http"

	// MinLineBudget fits the header plus one section with one bullet.
	MinLineBudget = 8
)

// Config is passed explicitly into the pipeline; nothing below the CLI reads
// the environment.
type Config struct {
	Host              string
	APIURL            string
	Transport         string
	SSHTimeout        time.Duration
	RequestTimeout    time.Duration
	TraceLimit        int
	ProjectTraceLimit int
	LineBudget        int
	StateDir          string
	// ProjectsFile defaults to projects.json inside StateDir when empty.
	ProjectsFile string
	// ProjectGlobs filters project names; empty selects every project.
	ProjectGlobs []string
}

// Default returns the built-in settings.
func Default() Config {
	stateDir := ".kudzu"
	if home, err := os.UserHomeDir(); err == nil {
		stateDir = filepath.Join(home, ".kudzu")
	}
	return Config{
		Host:              "titan",
		APIURL:            "http://localhost:4000",
		Transport:         TransportSSH,
		SSHTimeout:        10 * time.Second,
		RequestTimeout:    15 * time.Second,
		TraceLimit:        50,
		ProjectTraceLimit: 20,
		LineBudget:        180,
		StateDir:          stateDir,
	}
}

// ProjectsPath resolves the projects.json location.
func (c Config) ProjectsPath() string {
	if c.ProjectsFile != "" {
		return c.ProjectsFile
	}
	return filepath.Join(c.StateDir, "projects.json")
}

// DBPath is the sqlite file holding cached ids and saved settings.
func (c Config) DBPath() string {
	return filepath.Join(c.StateDir, "kudzu-context.db")
}

// Setting keys accepted by Set, the store layer and `config set`.
const (
	KeyHost              = "host"
	KeyURL               = "url"
	KeyTransport         = "transport"
	KeySSHTimeout        = "ssh_timeout"
	KeyRequestTimeout    = "request_timeout"
	KeyTraceLimit        = "trace_limit"
	KeyProjectTraceLimit = "project_trace_limit"
	KeyLineBudget        = "line_budget"
	KeyStateDir          = "state_dir"
	KeyProjectsFile      = "projects_file"
	KeyProjectGlobs      = "project_globs"
)

// Keys lists every setting key in a stable order.
func Keys() []string {
	keys := []string{
		KeyHost, KeyURL, KeyTransport, KeySSHTimeout, KeyRequestTimeout,
		KeyTraceLimit, KeyProjectTraceLimit, KeyLineBudget, KeyStateDir,
		KeyProjectsFile, KeyProjectGlobs,
	}
	sort.Strings(keys)
	return keys
}

// Set applies one setting given as text. Durations use Go syntax ("10s");
// project globs are comma separated.
func (c *Config) Set(key, value string) error {
	value = strings.TrimSpace(value)
	switch key {
	case KeyHost:
		c.Host = value
	case KeyURL:
		c.APIURL = strings.TrimRight(value, "/")
	case KeyTransport:
		c.Transport = strings.ToLower(value)
	case KeySSHTimeout:
		return setDuration(&c.SSHTimeout, key, value)
	case KeyRequestTimeout:
		return setDuration(&c.RequestTimeout, key, value)
	case KeyTraceLimit:
		return setInt(&c.TraceLimit, key, value)
	case KeyProjectTraceLimit:
		return setInt(&c.ProjectTraceLimit, key, value)
	case KeyLineBudget:
		return setInt(&c.LineBudget, key, value)
	case KeyStateDir:
		c.StateDir = value
	case KeyProjectsFile:
		c.ProjectsFile = value
	case KeyProjectGlobs:
		c.ProjectGlobs = splitList(value)
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}
	return nil
}

// Get returns a setting as text, in the form Set accepts.
func (c Config) Get(key string) (string, error) {
	switch key {
	case KeyHost:
		return c.Host, nil
	case KeyURL:
		return c.APIURL, nil
	case KeyTransport:
		return c.Transport, nil
	case KeySSHTimeout:
		return c.SSHTimeout.String(), nil
	case KeyRequestTimeout:
		return c.RequestTimeout.String(), nil
	case KeyTraceLimit:
		return strconv.Itoa(c.TraceLimit), nil
	case KeyProjectTraceLimit:
		return strconv.Itoa(c.ProjectTraceLimit), nil
	case KeyLineBudget:
		return strconv.Itoa(c.LineBudget), nil
	case KeyStateDir:
		return c.StateDir, nil
	case KeyProjectsFile:
		return c.ProjectsPath(), nil
	case KeyProjectGlobs:
		return strings.Join(c.ProjectGlobs, ","), nil
	}
	return "", fmt.Errorf("unknown config key: %s", key)
}

func setDuration(dst *time.Duration, key, value string) error {
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	*dst = d
	return nil
}

func setInt(dst *int, key, value string) error {
	n, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	*dst = n
	return nil
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// fileConfig mirrors the on-disk layout. Pointers tell unset from zero.
type fileConfig struct {
	Host              *string  `json:"host" yaml:"host"`
	URL               *string  `json:"url" yaml:"url"`
	Transport         *string  `json:"transport" yaml:"transport"`
	SSHTimeout        *string  `json:"ssh_timeout" yaml:"ssh_timeout"`
	RequestTimeout    *string  `json:"request_timeout" yaml:"request_timeout"`
	TraceLimit        *int     `json:"trace_limit" yaml:"trace_limit"`
	ProjectTraceLimit *int     `json:"project_trace_limit" yaml:"project_trace_limit"`
	LineBudget        *int     `json:"line_budget" yaml:"line_budget"`
	StateDir          *string  `json:"state_dir" yaml:"state_dir"`
	ProjectsFile      *string  `json:"projects_file" yaml:"projects_file"`
	ProjectGlobs      []string `json:"project_globs" yaml:"project_globs"`
}

// LoadFile overlays settings from a JSON or YAML file.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path) // #nosec G304
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var fc fileConfig
	ext := strings.ToLower(filepath.Ext(path))

	switch ext {
	case ".json":
		if err := json.Unmarshal(data, &fc); err != nil {
			return fmt.Errorf("failed to unmarshal JSON config: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return fmt.Errorf("failed to unmarshal YAML config: %w", err)
		}
	default:
		return fmt.Errorf("unsupported config format: %s (use .json or .yaml)", ext)
	}

	return c.apply(fc)
}

func (c *Config) apply(fc fileConfig) error {
	strs := []struct {
		key string
		val *string
	}{
		{KeyHost, fc.Host},
		{KeyURL, fc.URL},
		{KeyTransport, fc.Transport},
		{KeySSHTimeout, fc.SSHTimeout},
		{KeyRequestTimeout, fc.RequestTimeout},
		{KeyStateDir, fc.StateDir},
		{KeyProjectsFile, fc.ProjectsFile},
	}
	for _, s := range strs {
		if s.val == nil {
			continue
		}
		if err := c.Set(s.key, *s.val); err != nil {
			return err
		}
	}

	if fc.TraceLimit != nil {
		c.TraceLimit = *fc.TraceLimit
	}
	if fc.ProjectTraceLimit != nil {
		c.ProjectTraceLimit = *fc.ProjectTraceLimit
	}
	if fc.LineBudget != nil {
		c.LineBudget = *fc.LineBudget
	}
	if fc.ProjectGlobs != nil {
		c.ProjectGlobs = fc.ProjectGlobs
	}
	return nil
}

// ValidationResult represents the outcome of a validation pass.
type ValidationResult struct {
	Valid    bool
	Warnings []string
	Errors   []string
}

// Validate checks the settings before any network activity.
func (c Config) Validate() ValidationResult {
	res := ValidationResult{
		Valid:    true,
		Warnings: []string{},
		Errors:   []string{},
	}
	fail := func(msg string) {
		res.Valid = false
		res.Errors = append(res.Errors, msg)
	}

	switch c.Transport {
	case TransportSSH:
		if c.Host == "" {
			fail("Host is required for the ssh transport")
		}
		if c.SSHTimeout <= 0 {
			fail("SSH timeout must be positive")
		}
	case TransportHTTP:
	default:
		fail(fmt.Sprintf("Unknown transport %q (use ssh or http)", c.Transport))
	}

	if u, err := url.Parse(c.APIURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		fail(fmt.Sprintf("API URL %q must be an absolute http(s) URL", c.APIURL))
	}
	if c.RequestTimeout <= 0 {
		fail("Request timeout must be positive")
	}
	if c.TraceLimit <= 0 {
		fail("Trace limit must be positive")
	}
	if c.ProjectTraceLimit <= 0 {
		fail("Project trace limit must be positive")
	}

	if c.LineBudget < MinLineBudget {
		fail(fmt.Sprintf("Line budget must be at least %d", MinLineBudget))
	} else if c.LineBudget < 40 {
		res.Warnings = append(res.Warnings, "Line budget is very small; most sections will be cut to one bullet")
	}

	if c.StateDir == "" {
		res.Warnings = append(res.Warnings, "No state directory; hologram ids will not be cached")
	}

	return res
}
