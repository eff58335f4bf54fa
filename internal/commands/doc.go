// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package commands provides the shell's command language.
//
// This package tokenizes command lines, dispatches them against a session
// and computes tab completions, all from one command table.
//
// # Key Types
//
//   - Registry: the command table shared by dispatch and completion
//   - Dispatcher: runs "&&"-chained lines against a session
//   - Result: outcome of one sub-command
//   - CommandError: a failed sub-command, formatted for the user
//   - Completer: tab completion for command names and paths
//
// # Built-in Commands
//
//   - cd [dir]: change the current directory (default "~")
//   - help: show the command list
//   - ls [file]: list a directory or name a leaf (default ".")
//   - open <path>: enter and list a directory, or open a leaf's target
//   - welcome: show the welcome message
//
// # Usage
//
// Run a line:
//
//	d := commands.NewDispatcher(commands.WithWelcome(msg))
//	for _, res := range d.Run(sess, "cd posts && ls") {
//	    for _, line := range res.Lines() {
//	        fmt.Println(line)
//	    }
//	}
//
// Get completions:
//
//	c := commands.NewCompleter(d.Registry())
//	candidates, suffix := c.Complete(sess, "ls post")
//	// candidates: ["posts/"], suffix: "post"
package commands
