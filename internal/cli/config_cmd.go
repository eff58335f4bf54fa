// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config_cmd.go - Configuration inspection and editing commands.

package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/treeshell/internal/config"
)

func (a *app) newConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change configuration",
		Long: `Show or change configuration values. Keys use dot notation, for example
shell.prompt or server.addr. Run "treeshell config keys" for the full list.`,
	}
	cmd.AddCommand(
		a.newConfigShowCommand(),
		a.newConfigGetCommand(),
		a.newConfigSetCommand(),
		a.newConfigPathCommand(),
		newConfigKeysCommand(),
	)
	return cmd
}

func (a *app) newConfigShowCommand() *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			if jsonOut {
				safe := a.cfg.Clone()
				if safe.Server.AuthToken != "" {
					safe.Server.AuthToken = "[REDACTED]"
				}
				return NewJSONResponse("config show", safe).Print(out)
			}
			fmt.Fprint(out, a.cfg.String())
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, jsonFlagName, false, "output as JSON")
	return cmd
}

func (a *app) newConfigGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Print one configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := a.cfg.Get(args[0])
			if err != nil {
				return NewNotFoundError("config key", args[0])
			}
			if args[0] == "server.auth_token" && value != "" {
				value = "[REDACTED]"
			}
			if list, ok := value.([]string); ok {
				value = strings.Join(list, ",")
			}
			fmt.Fprintln(cmd.OutOrStdout(), value)
			return nil
		},
	}
}

func (a *app) newConfigSetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Change one configuration value and save",
		Long: `Change one configuration value and save the config file. List values
such as server.cors_origins take a comma-separated string.`,
		Example: `  treeshell config set shell.prompt "tree:%s$ "
  treeshell config set server.cors_origins https://a.example,https://b.example`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := a.settingsPath()
			if err != nil {
				return &configError{err: err}
			}

			// Edit the file contents, not the env-overridden view.
			cfg := config.Default()
			if _, err := os.Stat(path); err == nil {
				cfg = &config.Config{}
				if err := config.LoadTOML(cfg, path); err != nil {
					return &configError{err: err}
				}
			}

			if err := cfg.Set(args[0], args[1]); err != nil {
				return NewValidationError(args[0], args[1], err.Error())
			}
			if err := cfg.Validate(); err != nil {
				return &configError{err: err}
			}
			if err := config.SaveTOML(cfg, path); err != nil {
				return &configError{err: err}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Set %s in %s\n", args[0], path)
			return nil
		},
	}
}

func (a *app) newConfigPathCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "path",
		Short:       "Print the config file location",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipSetupAnnotation: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := a.settingsPath()
			if err != nil {
				return &configError{err: err}
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
}

func newConfigKeysCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "keys",
		Short:       "List every configuration key",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipSetupAnnotation: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, key := range config.GetAllKeys() {
				fmt.Fprintln(cmd.OutOrStdout(), key)
			}
			return nil
		},
	}
}

// settingsPath is the --config flag or the default config location.
func (a *app) settingsPath() (string, error) {
	if a.configPath != "" {
		return a.configPath, nil
	}
	return config.ConfigPath()
}
