package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

// EnvVars maps environment variables to setting keys.
var EnvVars = map[string]string{
	"KUDZU_HOST":                KeyHost,
	"KUDZU_URL":                 KeyURL,
	"KUDZU_TRANSPORT":           KeyTransport,
	"KUDZU_SSH_TIMEOUT":         KeySSHTimeout,
	"KUDZU_REQUEST_TIMEOUT":     KeyRequestTimeout,
	"KUDZU_TRACE_LIMIT":         KeyTraceLimit,
	"KUDZU_PROJECT_TRACE_LIMIT": KeyProjectTraceLimit,
	"KUDZU_LINE_BUDGET":         KeyLineBudget,
	"KUDZU_STATE_DIR":           KeyStateDir,
	"KUDZU_PROJECTS_FILE":       KeyProjectsFile,
	"KUDZU_PROJECT_GLOBS":       KeyProjectGlobs,
}

// ApplyEnv loads envFile (or ./.env when empty) into the process environment
// and then overlays every KUDZU_* variable that is set. Variables already in
// the environment take precedence over the file. A missing ./.env is fine; a
// missing explicit file is an error.
func (c *Config) ApplyEnv(envFile string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return fmt.Errorf("failed to load env file: %w", err)
		}
	} else if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	for _, name := range sortedEnvVars() {
		value, ok := os.LookupEnv(name)
		if !ok {
			continue
		}
		if err := c.Set(EnvVars[name], value); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

func sortedEnvVars() []string {
	names := make([]string, 0, len(EnvVars))
	for _, key := range Keys() {
		for name, k := range EnvVars {
			if k == key {
				names = append(names, name)
			}
		}
	}
	return names
}

// Getter reads saved settings, typically the store.
type Getter interface {
	GetConfig(key string) (string, error)
}

// ApplyStore overlays settings saved with `config set`. The state directory
// is skipped since the store already lives there. Read failures and empty
// values leave the current setting alone; bad values are reported.
func (c *Config) ApplyStore(g Getter) error {
	if g == nil {
		return nil
	}
	for _, key := range Keys() {
		if key == KeyStateDir {
			continue
		}
		value, err := g.GetConfig(key)
		if err != nil || value == "" {
			continue
		}
		if err := c.Set(key, value); err != nil {
			return fmt.Errorf("stored setting: %w", err)
		}
	}
	return nil
}
