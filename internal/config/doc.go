// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for treeshell.
//
// Configuration is TOML with sensible defaults, environment variable
// overrides, and validation.
//
// # Key Types
//
//   - Config: Main configuration structure with all settings
//   - ShellConfig: prompt, welcome message and history
//   - TreeConfig: where the namespace description lives
//   - ServerConfig: HTTP API listener, sessions and limits
//   - LogConfig: log level and format
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Command-line flags (applied by the CLI)
//   - Environment variables (TREESHELL_*)
//   - ~/.treeshell/config.toml
//   - Built-in defaults
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    return err
//	}
//	prompt := fmt.Sprintf(cfg.Shell.Prompt, cwd)
package config
