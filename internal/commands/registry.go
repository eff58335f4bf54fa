// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"go.uber.org/zap"

	"github.com/jeranaias/treeshell/internal/session"
)

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

// HandlerFunc executes one sub-command. args excludes the command name.
type HandlerFunc func(ctx *Context, args []string) Result

// Command is an entry in the command table.
type Command struct {
	// Name is what the user types (e.g., "ls")
	Name string

	// Usage shows argument syntax (e.g., "ls [file]")
	Usage string

	// Description is shown by help
	Description string

	// Handler executes the command
	Handler HandlerFunc
}

// =============================================================================
// COMMAND REGISTRY
// =============================================================================

// Registry is the command table shared by the dispatcher and the completer.
// Commands keep their registration order.
type Registry struct {
	commands map[string]*Command
	order    []*Command
}

// NewRegistry creates a registry holding the built-in commands.
func NewRegistry() *Registry {
	r := &Registry{
		commands: make(map[string]*Command),
	}
	r.registerBuiltins()
	return r
}

// Register adds a command, replacing any command of the same name in place.
func (r *Registry) Register(cmd *Command) {
	if old, ok := r.commands[cmd.Name]; ok {
		for i, c := range r.order {
			if c == old {
				r.order[i] = cmd
			}
		}
	} else {
		r.order = append(r.order, cmd)
	}
	r.commands[cmd.Name] = cmd
}

// Get retrieves a command by name.
func (r *Registry) Get(name string) *Command {
	return r.commands[name]
}

// All returns the commands in registration order.
func (r *Registry) All() []*Command {
	out := make([]*Command, len(r.order))
	copy(out, r.order)
	return out
}

// Names returns the command names in registration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.order))
	for i, c := range r.order {
		names[i] = c.Name
	}
	return names
}

// =============================================================================
// BUILT-IN COMMANDS
// =============================================================================

func (r *Registry) registerBuiltins() {
	r.Register(&Command{
		Name:        "cd",
		Usage:       "cd [dir]",
		Description: "change current working directory",
		Handler:     handleCd,
	})

	r.Register(&Command{
		Name:        "help",
		Usage:       "help",
		Description: "show this list",
		Handler:     handleHelp,
	})

	r.Register(&Command{
		Name:        "ls",
		Usage:       "ls [file]",
		Description: "list directory content",
		Handler:     handleLs,
	})

	r.Register(&Command{
		Name:        "open",
		Usage:       openUsage,
		Description: "open a file",
		Handler:     handleOpen,
	})

	r.Register(&Command{
		Name:        "welcome",
		Usage:       "welcome",
		Description: "show the welcome message",
		Handler:     handleWelcome,
	})
}

// =============================================================================
// COMMAND CONTEXT
// =============================================================================

// Context carries what a handler may touch. Handlers mutate only Session.
type Context struct {
	// Session is the shell state the command runs against
	Session *session.Session

	// Registry is the table the command was found in
	Registry *Registry

	// Welcome is the configured welcome message, possibly empty
	Welcome string

	// Opener receives navigation targets from "open"
	Opener Opener

	// Logger for handler diagnostics
	Logger *zap.Logger
}

// Opener is the host collaborator that acts on a leaf's target.
type Opener interface {
	Open(target string) error
}

// OpenerFunc adapts a function to the Opener interface.
type OpenerFunc func(target string) error

// Open calls f(target).
func (f OpenerFunc) Open(target string) error {
	return f(target)
}
