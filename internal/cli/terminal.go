// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// terminal.go - Terminal detection for the treeshell CLI.
//
// Interactive terminals get line editing and colours, piped input and output
// get neither. NO_COLOR and FORCE_COLOR are honoured.

package cli

import (
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// =============================================================================
// TTY DETECTION
// =============================================================================

// IsTTY returns true if stdin is a terminal.
func IsTTY() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// IsStdoutTTY returns true if stdout is a terminal.
func IsStdoutTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// =============================================================================
// TERMINAL WIDTH DETECTION
// =============================================================================

const (
	// DefaultTerminalWidth is the fallback width when detection fails
	DefaultTerminalWidth = 80

	// MinTerminalWidth is the narrowest width used for layout
	MinTerminalWidth = 40
)

// GetTerminalWidth returns the current terminal width, or
// DefaultTerminalWidth when stdout is not a terminal.
func GetTerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return DefaultTerminalWidth
	}
	if width < MinTerminalWidth {
		return MinTerminalWidth
	}
	return width
}

// =============================================================================
// COLOR OUTPUT CONTROL
// =============================================================================

var (
	colorsEnabled   bool
	colorsDecided   bool
	colorsEnabledMu sync.Mutex
)

// ColorsEnabled returns true if coloured output should be used. Until
// ConfigureColors is called the decision follows NO_COLOR, FORCE_COLOR and
// whether stdout is a terminal. See https://no-color.org/.
func ColorsEnabled() bool {
	colorsEnabledMu.Lock()
	defer colorsEnabledMu.Unlock()
	if !colorsDecided {
		colorsEnabled = detectColors()
		colorsDecided = true
	}
	return colorsEnabled
}

func detectColors() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if os.Getenv("FORCE_COLOR") != "" {
		return true
	}
	return IsStdoutTTY()
}

// ConfigureColors applies a colour mode (auto, always or never) to every
// style in this package.
func ConfigureColors(mode string) {
	var enabled bool
	switch strings.ToLower(mode) {
	case "always":
		enabled = true
	case "never":
		enabled = false
	default:
		enabled = detectColors()
	}
	ForceColorsEnabled(enabled)
}

// ForceColorsEnabled overrides colour detection.
func ForceColorsEnabled(enabled bool) {
	colorsEnabledMu.Lock()
	colorsEnabled = enabled
	colorsDecided = true
	colorsEnabledMu.Unlock()

	lipgloss.SetColorProfile(GetColorProfile())
}

// GetColorProfile returns the termenv profile to render with: Ascii when
// colours are off, otherwise whatever the terminal supports.
func GetColorProfile() termenv.Profile {
	if !ColorsEnabled() {
		return termenv.Ascii
	}
	profile := termenv.ColorProfile()
	if profile == termenv.Ascii {
		// forced colours on a non-terminal
		return termenv.ANSI256
	}
	return profile
}
