// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// shell.go - Interactive shell over the namespace tree.

package cli

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"

	"github.com/peterh/liner"
	"go.uber.org/zap"

	"github.com/jeranaias/treeshell/internal/commands"
	"github.com/jeranaias/treeshell/internal/namespace"
	"github.com/jeranaias/treeshell/internal/session"
	"github.com/jeranaias/treeshell/internal/util"
)

// LineReader supplies input lines to the shell.
type LineReader interface {
	// Prompt shows prompt and returns the next line. io.EOF ends the shell.
	Prompt(prompt string) (string, error)
	AppendHistory(line string)
}

// =============================================================================
// SHELL
// =============================================================================

// Shell is one interactive session driven by a LineReader.
type Shell struct {
	source     *namespace.Source
	dispatcher *commands.Dispatcher
	completer  *commands.Completer
	prompt     string
	out        io.Writer
	logger     *zap.Logger

	sess     *session.Session
	reloaded atomic.Bool
}

// NewShell starts a shell at the home directory of the source's tree.
// promptTemplate must contain one %s for the current path.
func NewShell(source *namespace.Source, dispatcher *commands.Dispatcher, promptTemplate string, out io.Writer, logger *zap.Logger) *Shell {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Shell{
		source:     source,
		dispatcher: dispatcher,
		completer:  commands.NewCompleter(dispatcher.Registry()),
		prompt:     promptTemplate,
		out:        out,
		logger:     logger,
		sess:       session.New(source.Tree()),
	}
}

// Session returns the current session.
func (s *Shell) Session() *session.Session {
	return s.sess
}

// PromptText renders the prompt for the current directory.
func (s *Shell) PromptText() string {
	return fmt.Sprintf(s.prompt, s.sess.Prompt())
}

// Complete is a liner.WordCompleter for the current session.
func (s *Shell) Complete(line string, pos int) (string, []string, string) {
	return s.completer.LineCompleter(s.sess)(line, pos)
}

// Execute runs one line and prints its results.
func (s *Shell) Execute(line string) []commands.Result {
	results := s.dispatcher.Run(s.sess, line)
	printResults(s.out, results)
	return results
}

// Welcome prints the welcome message, if any.
func (s *Shell) Welcome() {
	s.Execute("welcome")
}

// TreeReloaded marks the tree as replaced. The shell moves to the new tree
// before its next prompt.
func (s *Shell) TreeReloaded(*namespace.Tree) {
	s.reloaded.Store(true)
}

// switchTree moves to the source's current tree, keeping the working
// directory when it still exists.
func (s *Shell) switchTree() {
	path := s.sess.Prompt()
	next := session.New(s.source.Tree())
	if n, err := next.Resolve(path); err == nil && n.IsDir() && n.Accessible() {
		next.Chdir(n)
	}
	s.sess = next
	fmt.Fprintln(s.out, RenderConditional(WarningStyle, "(tree reloaded)"))
	s.logger.Debug("shell switched tree", zap.String("cwd", next.Prompt()))
}

// Run reads and executes lines until the reader reports EOF, the user
// aborts with Ctrl+C, or ctx is cancelled.
func (s *Shell) Run(ctx context.Context, in LineReader) error {
	for {
		if ctx.Err() != nil {
			return nil
		}
		if s.reloaded.Swap(false) {
			s.switchTree()
		}

		line, err := s.prompt(ctx, in)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
				return nil
			}
			return fmt.Errorf("failed to read input: %w", err)
		}

		if strings.TrimSpace(line) == "" {
			continue
		}
		in.AppendHistory(line)
		s.Execute(line)
	}
}

type promptResult struct {
	line string
	err  error
}

// prompt reads one line from in, returning early with ctx's error when ctx
// ends first. A Prompt call blocked on the terminal is then abandoned; it
// holds no shell state and the process is on its way out.
func (s *Shell) prompt(ctx context.Context, in LineReader) (string, error) {
	text := s.PromptText()
	done := make(chan promptResult, 1)
	go func() {
		line, err := in.Prompt(text)
		done <- promptResult{line: line, err: err}
	}()

	select {
	case r := <-done:
		return r.line, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// =============================================================================
// LINE EDITOR
// =============================================================================

// lineEditor provides line editing, tab completion and persistent history
// on a terminal.
type lineEditor struct {
	state        *liner.State
	historyFile  string
	historyLimit int
}

// newLineEditor creates a liner-backed reader completing through complete.
func newLineEditor(historyFile string, historyLimit int, complete liner.WordCompleter) *lineEditor {
	state := liner.NewLiner()
	state.SetCtrlCAborts(true)
	state.SetTabCompletionStyle(liner.TabPrints)
	state.SetWordCompleter(complete)

	e := &lineEditor{state: state, historyFile: historyFile, historyLimit: historyLimit}
	e.LoadHistory()
	return e
}

func (e *lineEditor) Prompt(prompt string) (string, error) {
	return e.state.Prompt(prompt)
}

func (e *lineEditor) AppendHistory(line string) {
	e.state.AppendHistory(line)
}

// LoadHistory loads command history from file.
func (e *lineEditor) LoadHistory() {
	if e.historyFile == "" {
		return
	}
	if f, err := os.Open(e.historyFile); err == nil {
		e.state.ReadHistory(f)
		f.Close()
	}
}

// SaveHistory writes the newest historyLimit lines with owner-only
// permissions.
func (e *lineEditor) SaveHistory() error {
	if e.historyFile == "" {
		return nil
	}
	var buf bytes.Buffer
	if _, err := e.state.WriteHistory(&buf); err != nil {
		return fmt.Errorf("failed to collect history: %w", err)
	}
	data := trimHistory(buf.Bytes(), e.historyLimit)
	return util.AtomicWriteFileWithDir(e.historyFile, data, 0600, 0700)
}

// Close saves history and restores the terminal.
func (e *lineEditor) Close() error {
	err := e.SaveHistory()
	if cerr := e.state.Close(); err == nil {
		err = cerr
	}
	return err
}

// trimHistory keeps the last limit lines of a history file. A limit of 0
// keeps everything.
func trimHistory(data []byte, limit int) []byte {
	if limit <= 0 {
		return data
	}
	lines := bytes.SplitAfter(data, []byte("\n"))
	if n := len(lines); n > 0 && len(lines[n-1]) == 0 {
		lines = lines[:n-1]
	}
	if len(lines) <= limit {
		return data
	}
	return bytes.Join(lines[len(lines)-limit:], nil)
}

// scanReader reads lines from a non-terminal input without prompting.
type scanReader struct {
	scanner *bufio.Scanner
}

func newScanReader(r io.Reader) *scanReader {
	return &scanReader{scanner: bufio.NewScanner(r)}
}

func (r *scanReader) Prompt(string) (string, error) {
	if r.scanner.Scan() {
		return r.scanner.Text(), nil
	}
	if err := r.scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

func (r *scanReader) AppendHistory(string) {}
