package cli

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/felixgeelhaar/kudzu-context/internal/config"
	"github.com/felixgeelhaar/kudzu-context/internal/kudzu"
	"github.com/felixgeelhaar/kudzu-context/internal/observe"
	"github.com/felixgeelhaar/kudzu-context/internal/store"
	"github.com/spf13/cobra"
)

func newObserver() *observe.Observer {
	return observe.New(observe.Options{Out: os.Stderr, Verbose: verbose, JSON: jsonLogs})
}

// loadConfig layers defaults, the config file, the environment, stored
// settings and flags. The returned store is nil when it cannot be opened.
func loadConfig(cmd *cobra.Command, obs *observe.Observer) (config.Config, store.Storage, error) {
	cfg := config.Default()

	if configPath != "" {
		if err := cfg.LoadFile(configPath); err != nil {
			return cfg, nil, err
		}
	}
	if err := cfg.ApplyEnv(envFile); err != nil {
		return cfg, nil, err
	}
	if cmd.Flags().Changed("state-dir") {
		cfg.StateDir = stateDir
	}

	var s store.Storage
	if cfg.StateDir != "" {
		st, err := store.NewSQLiteStore(cfg.DBPath())
		if err != nil {
			obs.Log().Debug().Err(err).Msg("store unavailable, continuing without it")
		} else {
			s = st
			if err := cfg.ApplyStore(st); err != nil {
				return cfg, s, err
			}
		}
	}

	if err := applyFlags(cmd, &cfg); err != nil {
		return cfg, s, err
	}

	res := cfg.Validate()
	for _, w := range res.Warnings {
		obs.Log().Warn().Msg(w)
	}
	if !res.Valid {
		obs.Log().Error().Str("errors", strings.Join(res.Errors, ", ")).Msg("Invalid configuration")
		return cfg, s, fmt.Errorf("invalid configuration: %s", strings.Join(res.Errors, "; "))
	}
	return cfg, s, nil
}

func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	values := map[string]string{
		"host":      hostFlag,
		"url":       urlFlag,
		"transport": transportFlag,
		"budget":    strconv.Itoa(budgetFlag),
	}
	keys := map[string]string{
		"host":      config.KeyHost,
		"url":       config.KeyURL,
		"transport": config.KeyTransport,
		"budget":    config.KeyLineBudget,
	}
	for _, name := range []string{"host", "url", "transport", "budget"} {
		if !cmd.Flags().Changed(name) {
			continue
		}
		if err := cfg.Set(keys[name], values[name]); err != nil {
			return fmt.Errorf("--%s: %w", name, err)
		}
	}
	return nil
}

func newClient(cfg config.Config) (*kudzu.Client, error) {
	switch cfg.Transport {
	case config.TransportHTTP:
		return kudzu.NewClient(kudzu.NewHTTPTransport(cfg.APIURL, cfg.RequestTimeout)), nil
	default:
		t, err := kudzu.NewSSHTransport(cfg.Host, cfg.APIURL, cfg.SSHTimeout, cfg.RequestTimeout)
		if err != nil {
			return nil, err
		}
		return kudzu.NewClient(t), nil
	}
}

// setup wires everything a pipeline command needs.
func setup(cmd *cobra.Command) (*Runner, func(), error) {
	obs := newObserver()
	cfg, s, err := loadConfig(cmd, obs)
	cleanup := func() {
		if s != nil {
			_ = s.Close()
		}
		_ = obs.Close()
	}
	pending.probe = Probe(cfg)
	if err != nil {
		return nil, cleanup, err
	}

	client, err := newClient(cfg)
	if err != nil {
		return nil, cleanup, err
	}
	return NewRunner(obs, s, client, cfg), cleanup, nil
}
