// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// json_output.go - Machine-readable output for scripted use.

package cli

import (
	"encoding/json"
	"io"
	"time"
)

// JSONResponse is the envelope of every --json output.
type JSONResponse struct {
	// Success indicates whether the command completed successfully
	Success bool `json:"success"`

	// Data contains the command-specific response data
	Data any `json:"data"`

	// Error contains the error message if Success is false, null otherwise
	Error *string `json:"error"`

	// Timestamp is the RFC3339 time the response was generated
	Timestamp string `json:"timestamp"`

	Command string `json:"command,omitempty"`
}

// NewJSONResponse creates a new successful JSON response.
func NewJSONResponse(command string, data any) *JSONResponse {
	return &JSONResponse{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Command:   command,
	}
}

// Print writes the response as indented JSON.
func (r *JSONResponse) Print(w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(r)
}

// =============================================================================
// COMMAND-SPECIFIC DATA STRUCTURES
// =============================================================================

// ResultData is one sub-command in the output of run --json.
type ResultData struct {
	Command  string      `json:"command"`
	Args     []string    `json:"args"`
	Lines    []string    `json:"lines"`
	Entries  []EntryData `json:"entries,omitempty"`
	Navigate string      `json:"navigate,omitempty"`
	Error    string      `json:"error,omitempty"`
}

// EntryData is one listed node.
type EntryData struct {
	Name   string `json:"name"`
	Path   string `json:"path"`
	Target string `json:"target,omitempty"`
	Dir    bool   `json:"dir"`
}

// RunData is the output of run --json.
type RunData struct {
	Line    string       `json:"line"`
	Results []ResultData `json:"results"`
	Cwd     string       `json:"cwd"`
}

// TreeNodeData is one node in the output of tree --json.
type TreeNodeData struct {
	Path       string `json:"path"`
	Depth      int    `json:"depth"`
	Dir        bool   `json:"dir"`
	Accessible bool   `json:"accessible"`
	Home       bool   `json:"home,omitempty"`
	Target     string `json:"target,omitempty"`
}

// VersionData is the output of version --json.
type VersionData struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}
