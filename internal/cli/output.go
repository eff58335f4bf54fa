// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"

	"github.com/jeranaias/treeshell/internal/commands"
)

// printResults writes results the way a terminal shows them: the error line
// first, then free text or the opened target, then one listed entry per
// line.
func printResults(w io.Writer, results []commands.Result) {
	for _, res := range results {
		if res.Err != nil {
			fmt.Fprintln(w, RenderConditional(ErrorStyle, res.Err.Error()))
		}
		if res.Text != "" {
			fmt.Fprintln(w, res.Text)
		}
		if res.Navigate != "" && res.Err == nil {
			fmt.Fprintf(w, "%s %s\n", RenderConditional(DimStyle, "Opening"), res.Navigate)
		}
		for _, e := range res.Entries {
			style := LeafStyle
			if e.Dir {
				style = DirStyle
			}
			fmt.Fprintln(w, RenderConditional(style, e.Name))
		}
	}
}

func newResultData(res commands.Result) ResultData {
	data := ResultData{
		Command:  res.Command,
		Args:     res.Args,
		Lines:    res.Lines(),
		Navigate: res.Navigate,
	}
	if data.Args == nil {
		data.Args = []string{}
	}
	if data.Lines == nil {
		data.Lines = []string{}
	}
	for _, e := range res.Entries {
		data.Entries = append(data.Entries, EntryData{Name: e.Name, Path: e.Path, Target: e.Target, Dir: e.Dir})
	}
	if res.Err != nil {
		data.Error = res.Err.Error()
	}
	return data
}

// anyFailed reports whether a sub-command failed.
func anyFailed(results []commands.Result) bool {
	for _, res := range results {
		if res.Failed() {
			return true
		}
	}
	return false
}
