// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/jeranaias/treeshell/internal/session"
	"github.com/jeranaias/treeshell/internal/storage"
)

// =============================================================================
// HTML EXPORTER
// =============================================================================

// HTMLExporter exports transcripts as a standalone HTML page with embedded
// CSS.
type HTMLExporter struct {
	options *Options
	now     func() time.Time
}

// NewHTMLExporter creates a new HTML exporter.
func NewHTMLExporter(opts *Options) *HTMLExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &HTMLExporter{options: opts, now: time.Now}
}

// Export converts a transcript to HTML.
func (e *HTMLExporter) Export(t *Transcript) ([]byte, error) {
	if err := t.validate(); err != nil {
		return nil, err
	}

	var sb strings.Builder
	title := html.EscapeString("Session " + t.SessionID)

	sb.WriteString("<!DOCTYPE html>\n")
	sb.WriteString("<html lang=\"en\">\n")
	sb.WriteString("<head>\n")
	sb.WriteString("    <meta charset=\"UTF-8\">\n")
	sb.WriteString("    <meta name=\"viewport\" content=\"width=device-width, initial-scale=1.0\">\n")
	fmt.Fprintf(&sb, "    <title>%s</title>\n", title)
	sb.WriteString("    <meta name=\"generator\" content=\"treeshell\">\n")
	fmt.Fprintf(&sb, "    <meta name=\"date\" content=\"%s\">\n", t.Entries[0].CreatedAt.Format(time.RFC3339))
	sb.WriteString(htmlCSS)
	sb.WriteString("</head>\n")
	fmt.Fprintf(&sb, "<body class=\"%s-theme\">\n", e.theme())
	sb.WriteString("    <div class=\"container\">\n")

	if e.options.IncludeMetadata {
		e.renderHeader(&sb, t, title)
	}

	sb.WriteString("        <main class=\"transcript\">\n")
	for i := range t.Entries {
		e.renderEntry(&sb, &t.Entries[i])
	}
	sb.WriteString("        </main>\n")

	sb.WriteString("        <footer class=\"footer\">\n")
	fmt.Fprintf(&sb, "            <p>Exported from <strong>treeshell</strong> on %s</p>\n",
		e.now().Format("January 2, 2006 at 3:04 PM"))
	sb.WriteString("        </footer>\n")
	sb.WriteString("    </div>\n")
	sb.WriteString(htmlScript)
	sb.WriteString("</body>\n")
	sb.WriteString("</html>\n")

	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for HTML.
func (e *HTMLExporter) FileExtension() string {
	return ".html"
}

// MimeType returns the MIME type for HTML.
func (e *HTMLExporter) MimeType() string {
	return "text/html"
}

func (e *HTMLExporter) theme() string {
	if e.options.Theme == "light" {
		return "light"
	}
	return "dark"
}

// =============================================================================
// RENDERING FUNCTIONS
// =============================================================================

func (e *HTMLExporter) renderHeader(sb *strings.Builder, t *Transcript, title string) {
	sb.WriteString("        <header class=\"header\">\n")
	fmt.Fprintf(sb, "            <h1>%s</h1>\n", title)
	sb.WriteString("            <div class=\"metadata\">\n")
	fmt.Fprintf(sb, "                <span class=\"meta-item\"><strong>Started:</strong> %s</span>\n", formatTimestamp(t.Entries[0].CreatedAt))
	fmt.Fprintf(sb, "                <span class=\"meta-item\"><strong>Duration:</strong> %s</span>\n", session.FormatDuration(span(t)))
	fmt.Fprintf(sb, "                <span class=\"meta-item\"><strong>Lines:</strong> %d</span>\n", len(t.Entries))
	fmt.Fprintf(sb, "                <span class=\"meta-item\"><strong>Failures:</strong> %d</span>\n", t.Failures())
	sb.WriteString("                <button class=\"theme-toggle\" onclick=\"toggleTheme()\" title=\"Toggle theme\">[Theme]</button>\n")
	sb.WriteString("            </div>\n")
	sb.WriteString("        </header>\n")
}

func (e *HTMLExporter) renderEntry(sb *strings.Builder, entry *storage.Entry) {
	class := "entry"
	if entry.Failed {
		class += " failed"
	}
	fmt.Fprintf(sb, "            <div class=\"%s\" id=\"line-%d\">\n", class, entry.Seq)

	sb.WriteString("                <div class=\"command\">\n")
	fmt.Fprintf(sb, "                    <span class=\"cwd\">%s</span>\n", html.EscapeString(entry.Cwd))
	fmt.Fprintf(sb, "                    <span class=\"line\">$ %s</span>\n", html.EscapeString(entry.Line))
	if e.options.IncludeTimestamps {
		fmt.Fprintf(sb, "                    <span class=\"timestamp\">%s</span>\n", formatShortTimestamp(entry.CreatedAt))
	}
	sb.WriteString("                </div>\n")

	if len(entry.Output) > 0 {
		escaped := make([]string, len(entry.Output))
		for i, line := range entry.Output {
			escaped[i] = html.EscapeString(line)
		}
		fmt.Fprintf(sb, "                <pre class=\"output\">%s</pre>\n", strings.Join(escaped, "\n"))
	}

	sb.WriteString("            </div>\n")
}

// =============================================================================
// EMBEDDED CSS AND JAVASCRIPT
// =============================================================================

const htmlCSS = `    <style>
        * { margin: 0; padding: 0; box-sizing: border-box; }

        :root {
            --font-sans: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, Arial, sans-serif;
            --font-mono: "SF Mono", "Monaco", "Inconsolata", "Fira Code", monospace;
        }

        /* Dark theme (default) */
        .dark-theme {
            --bg-primary: #1a1b26;
            --bg-secondary: #24283b;
            --text-primary: #c0caf5;
            --text-muted: #565f89;
            --border-color: #414868;
            --accent-blue: #7aa2f7;
            --accent-green: #9ece6a;
            --accent-red: #f7768e;
        }

        /* Light theme */
        .light-theme {
            --bg-primary: #ffffff;
            --bg-secondary: #f5f5f7;
            --text-primary: #1d1d1f;
            --text-muted: #86868b;
            --border-color: #d2d2d7;
            --accent-blue: #0066cc;
            --accent-green: #28a745;
            --accent-red: #d73a49;
        }

        body {
            font-family: var(--font-sans);
            background: var(--bg-primary);
            color: var(--text-primary);
            padding: 20px;
            line-height: 1.5;
        }

        .container { max-width: 960px; margin: 0 auto; }

        .header, .transcript, .footer {
            background: var(--bg-secondary);
            border: 1px solid var(--border-color);
            border-radius: 8px;
            padding: 24px;
            margin-bottom: 20px;
        }

        .metadata { display: flex; flex-wrap: wrap; gap: 16px; margin-top: 12px; color: var(--text-muted); }

        .theme-toggle {
            margin-left: auto;
            background: none;
            border: 1px solid var(--border-color);
            color: var(--text-primary);
            border-radius: 4px;
            padding: 2px 8px;
            cursor: pointer;
        }

        .entry { border-left: 3px solid var(--accent-green); padding: 8px 16px; margin-bottom: 12px; }
        .entry.failed { border-left-color: var(--accent-red); }

        .command { font-family: var(--font-mono); display: flex; gap: 12px; }
        .cwd { color: var(--accent-blue); }
        .timestamp { margin-left: auto; color: var(--text-muted); }

        .output {
            font-family: var(--font-mono);
            background: var(--bg-primary);
            padding: 8px 12px;
            margin-top: 6px;
            border-radius: 4px;
            white-space: pre-wrap;
        }

        .footer { text-align: center; color: var(--text-muted); font-size: 0.9em; }

        @media print {
            .theme-toggle { display: none; }
            .entry { page-break-inside: avoid; }
        }
    </style>
`

const htmlScript = `    <script>
        function toggleTheme() {
            const body = document.body;
            const next = body.classList.contains('dark-theme') ? 'light' : 'dark';
            body.classList.remove('dark-theme', 'light-theme');
            body.classList.add(next + '-theme');
            localStorage.setItem('theme', next);
        }

        document.addEventListener('DOMContentLoaded', function() {
            const savedTheme = localStorage.getItem('theme');
            if (savedTheme === 'dark' || savedTheme === 'light') {
                document.body.classList.remove('dark-theme', 'light-theme');
                document.body.classList.add(savedTheme + '-theme');
            }
        });
    </script>
`
