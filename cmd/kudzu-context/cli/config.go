package cli

import (
	"fmt"

	"github.com/felixgeelhaar/kudzu-context/internal/config"
	"github.com/felixgeelhaar/kudzu-context/internal/store"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage saved settings",
}

var configSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Save a setting",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		// Reject values the next run could not parse.
		check := config.Default()
		if err := check.Set(key, value); err != nil {
			return err
		}
		if key == config.KeyStateDir {
			return fmt.Errorf("%s cannot be saved in the store; use --state-dir or KUDZU_STATE_DIR", key)
		}

		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		if err := s.SetConfig(key, value); err != nil {
			return fmt.Errorf("failed to set config: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Configuration saved: %s\n", key)
		return nil
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get [key]",
	Short: "Show the effective value of a setting",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		obs := newObserver()
		cfg, s, err := loadConfig(cmd, obs)
		if s != nil {
			defer s.Close()
		}
		if err != nil {
			return err
		}

		val, err := cfg.Get(args[0])
		if err != nil {
			return err
		}
		if val == "" {
			val = "(not set)"
		}
		fmt.Fprintln(cmd.OutOrStdout(), val)
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		saved, err := s.ListConfig()
		if err != nil {
			return err
		}
		for _, key := range config.Keys() {
			if v, ok := saved[key]; ok {
				fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", key, v)
			}
		}
		return nil
	},
}

// openStore opens the store in the state directory without the rest of the
// configuration layers, which may themselves depend on saved settings.
func openStore(cmd *cobra.Command) (store.Storage, error) {
	cfg := config.Default()
	if err := cfg.ApplyEnv(envFile); err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("state-dir") {
		cfg.StateDir = stateDir
	}
	s, err := store.NewSQLiteStore(cfg.DBPath())
	if err != nil {
		return nil, fmt.Errorf("failed to init store: %w", err)
	}
	return s, nil
}

func init() {
	RootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configListCmd)
}
