// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"strings"
)

// ChainMarker separates sub-commands on one line. It cannot be escaped, so a
// path containing "&&" is not expressible.
const ChainMarker = "&&"

// =============================================================================
// TOKENIZER
// =============================================================================

// Tokenize splits a sub-command into words.
//
// Words are separated by runs of spaces. A space directly preceded by a
// backslash does not end a word, and each backslash-space pair in a word
// collapses to a single space:
//
//	Tokenize(`  ls  file\ name `) // ["ls", "file name"]
func Tokenize(line string) []string {
	var tokens []string
	begin, n := 0, len(line)

	for begin < n {
		// skip separators
		for begin < n && line[begin] == ' ' {
			begin++
		}
		if begin == n {
			break
		}

		// scan to the first unescaped space
		end := begin + 1
		for end < n && (line[end] != ' ' || line[end-1] == '\\') {
			end++
		}

		tokens = append(tokens, unescapeSpaces(line[begin:end]))
		begin = end
	}

	return tokens
}

// SplitChained splits a line on the chain marker. Each piece keeps its
// surrounding spaces; Tokenize discards them.
func SplitChained(line string) []string {
	return strings.Split(line, ChainMarker)
}

// =============================================================================
// ESCAPING
// =============================================================================

// EscapeSpaces prefixes every space in s with a backslash so the result
// tokenizes back to s.
func EscapeSpaces(s string) string {
	return strings.ReplaceAll(s, " ", `\ `)
}

func unescapeSpaces(s string) string {
	return strings.ReplaceAll(s, `\ `, " ")
}

// EndsWithUnescapedSpace reports whether s ends in a space that would
// separate words, i.e. one not preceded by a backslash.
func EndsWithUnescapedSpace(s string) bool {
	return strings.HasSuffix(s, " ") && !strings.HasSuffix(s, `\ `)
}
