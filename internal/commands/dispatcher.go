// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"go.uber.org/zap"

	"github.com/jeranaias/treeshell/internal/session"
)

// =============================================================================
// DISPATCHER
// =============================================================================

// Dispatcher runs command lines against a session.
//
// A Dispatcher holds no per-session state and may be shared by any number of
// sessions, as long as each session is used by one goroutine at a time.
type Dispatcher struct {
	registry *Registry
	welcome  string
	opener   Opener
	logger   *zap.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithRegistry replaces the built-in command table.
func WithRegistry(r *Registry) Option {
	return func(d *Dispatcher) { d.registry = r }
}

// WithWelcome sets the message printed by "welcome".
func WithWelcome(msg string) Option {
	return func(d *Dispatcher) { d.welcome = msg }
}

// WithOpener sets the collaborator that receives "open" targets.
func WithOpener(o Opener) Option {
	return func(d *Dispatcher) { d.opener = o }
}

// WithLogger sets the logger. A nil logger discards output.
func WithLogger(l *zap.Logger) Option {
	return func(d *Dispatcher) { d.logger = l }
}

// NewDispatcher creates a dispatcher over the built-in commands.
func NewDispatcher(opts ...Option) *Dispatcher {
	d := &Dispatcher{}
	for _, opt := range opts {
		opt(d)
	}
	if d.registry == nil {
		d.registry = NewRegistry()
	}
	if d.logger == nil {
		d.logger = zap.NewNop()
	}
	return d
}

// Registry returns the command table.
func (d *Dispatcher) Registry() *Registry {
	return d.registry
}

// Welcome returns the configured welcome message.
func (d *Dispatcher) Welcome() string {
	return d.welcome
}

// Run executes every sub-command of line in order. A failing sub-command does
// not stop the ones after it. Empty sub-commands produce no Result.
func (d *Dispatcher) Run(sess *session.Session, line string) []Result {
	var results []Result
	for _, sub := range SplitChained(line) {
		if res, ok := d.Exec(sess, sub); ok {
			results = append(results, res)
		}
	}
	return results
}

// Exec executes a single sub-command. It returns false for an empty one.
func (d *Dispatcher) Exec(sess *session.Session, sub string) (Result, bool) {
	tokens := Tokenize(sub)
	if len(tokens) == 0 {
		return Result{}, false
	}
	name, args := tokens[0], tokens[1:]

	var res Result
	if cmd := d.registry.Get(name); cmd != nil {
		res = cmd.Handler(d.context(sess), args)
	} else {
		res = Result{
			Command: name,
			Args:    args,
			Err:     &CommandError{Command: name, Err: ErrCommandNotFound},
		}
	}

	d.logger.Debug("command executed",
		zap.String("session", sess.ID()),
		zap.String("command", name),
		zap.Strings("args", args),
		zap.String("cwd", sess.Prompt()),
		zap.Error(res.Err),
	)
	return res, true
}

func (d *Dispatcher) context(sess *session.Session) *Context {
	return &Context{
		Session:  sess,
		Registry: d.registry,
		Welcome:  d.welcome,
		Opener:   d.opener,
		Logger:   d.logger,
	}
}
