// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/jeranaias/treeshell/internal/session"
	"github.com/jeranaias/treeshell/internal/storage"
)

// =============================================================================
// MARKDOWN EXPORTER
// =============================================================================

// MarkdownExporter exports transcripts as Markdown.
type MarkdownExporter struct {
	options *Options
	now     func() time.Time
}

// NewMarkdownExporter creates a new Markdown exporter.
func NewMarkdownExporter(opts *Options) *MarkdownExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &MarkdownExporter{options: opts, now: time.Now}
}

// Export converts a transcript to Markdown.
func (e *MarkdownExporter) Export(t *Transcript) ([]byte, error) {
	if err := t.validate(); err != nil {
		return nil, err
	}

	var sb strings.Builder
	first := t.Entries[0].CreatedAt
	last := t.Entries[len(t.Entries)-1].CreatedAt

	if e.options.IncludeMetadata {
		sb.WriteString("---\n")
		fmt.Fprintf(&sb, "session: %s\n", escapeYAML(t.SessionID))
		fmt.Fprintf(&sb, "started: %s\n", first.Format(time.RFC3339))
		fmt.Fprintf(&sb, "ended: %s\n", last.Format(time.RFC3339))
		fmt.Fprintf(&sb, "lines: %d\n", len(t.Entries))
		fmt.Fprintf(&sb, "failures: %d\n", t.Failures())
		fmt.Fprintf(&sb, "exported: %s\n", e.now().Format(time.RFC3339))
		sb.WriteString("generator: treeshell\n")
		sb.WriteString("---\n\n")
	}

	fmt.Fprintf(&sb, "# Session %s\n\n", escapeMarkdown(t.SessionID))

	if e.options.IncludeMetadata {
		sb.WriteString("## Session Information\n\n")
		fmt.Fprintf(&sb, "- **Started**: %s\n", formatTimestamp(first))
		fmt.Fprintf(&sb, "- **Duration**: %s\n", session.FormatDuration(span(t)))
		fmt.Fprintf(&sb, "- **Lines**: %d\n", len(t.Entries))
		fmt.Fprintf(&sb, "- **Failures**: %d\n", t.Failures())
		sb.WriteString("\n---\n\n")
	}

	sb.WriteString("## Transcript\n\n")
	for i := range t.Entries {
		e.writeEntry(&sb, &t.Entries[i])
	}

	sb.WriteString("---\n\n")
	fmt.Fprintf(&sb, "*Exported from treeshell on %s*\n", e.now().Format("January 2, 2006 at 3:04 PM"))

	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for Markdown.
func (e *MarkdownExporter) FileExtension() string {
	return ".md"
}

// MimeType returns the MIME type for Markdown.
func (e *MarkdownExporter) MimeType() string {
	return "text/markdown"
}

// =============================================================================
// FORMATTING HELPERS
// =============================================================================

func (e *MarkdownExporter) writeEntry(sb *strings.Builder, entry *storage.Entry) {
	heading := fmt.Sprintf("### %d. %s", entry.Seq, inlineCode("$ "+entry.Line))
	if entry.Failed {
		heading += " [FAIL]"
	}
	if e.options.IncludeTimestamps {
		heading += fmt.Sprintf(" <sub>%s</sub>", formatShortTimestamp(entry.CreatedAt))
	}
	sb.WriteString(heading + "\n\n")

	if entry.Cwd != "" {
		fmt.Fprintf(sb, "Directory: %s\n\n", inlineCode(entry.Cwd))
	}

	if len(entry.Output) == 0 {
		sb.WriteString("*(no output)*\n\n")
		return
	}
	f := fence(entry.Output)
	sb.WriteString(f + "text\n")
	for _, line := range entry.Output {
		sb.WriteString(line + "\n")
	}
	sb.WriteString(f + "\n\n")
}

// fence returns a code fence longer than any backtick run in lines.
func fence(lines []string) string {
	longest := 0
	for _, line := range lines {
		longest = max(longest, longestRun(line, '`'))
	}
	return strings.Repeat("`", max(3, longest+1))
}

// inlineCode wraps s in enough backticks to hold the ones it contains.
func inlineCode(s string) string {
	ticks := strings.Repeat("`", longestRun(s, '`')+1)
	if strings.HasPrefix(s, "`") || strings.HasSuffix(s, "`") {
		return ticks + " " + s + " " + ticks
	}
	return ticks + s + ticks
}

func longestRun(s string, c rune) int {
	longest, run := 0, 0
	for _, r := range s {
		if r == c {
			run++
			longest = max(longest, run)
		} else {
			run = 0
		}
	}
	return longest
}

// =============================================================================
// ESCAPING HELPERS
// =============================================================================

// escapeMarkdown escapes characters that would break formatting in headings.
func escapeMarkdown(s string) string {
	for _, c := range []string{"\\", "#", "*", "_", "[", "]", "`"} {
		s = strings.ReplaceAll(s, c, "\\"+c)
	}
	return s
}

// escapeYAML quotes values containing YAML special characters.
func escapeYAML(s string) string {
	if strings.ContainsAny(s, ":#|>@`\"'[]{}!%&*\n\r\\") || strings.HasPrefix(s, " ") || strings.HasSuffix(s, " ") {
		s = strings.ReplaceAll(s, "\\", "\\\\")
		s = strings.ReplaceAll(s, "\"", "\\\"")
		s = strings.ReplaceAll(s, "\n", "\\n")
		s = strings.ReplaceAll(s, "\r", "\\r")
		return fmt.Sprintf("\"%s\"", s)
	}
	return s
}
