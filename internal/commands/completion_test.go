// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/treeshell/internal/namespace"
	"github.com/jeranaias/treeshell/internal/session"
)

// =============================================================================
// COMPLETION TESTS
// =============================================================================

func TestComplete(t *testing.T) {
	tests := []struct {
		name       string
		line       string
		want       []string
		wantSuffix string
	}{
		{name: "empty line", line: "", want: []string{"cd", "help", "ls", "open", "welcome"}},
		{name: "only space", line: " ", want: []string{"cd ", "help ", "ls ", "open ", "welcome "}},
		{name: "unique command", line: "l", want: []string{"ls "}, wantSuffix: "l"},
		{name: "full command", line: "cd", want: []string{"cd "}, wantSuffix: "cd"},
		{name: "leading spaces", line: "  o", want: []string{"open "}, wantSuffix: "o"},
		{name: "unknown command", line: "x", want: nil, wantSuffix: "x"},
		{name: "fresh argument", line: "ls ", want: homeListing},
		{name: "unique path", line: "ls post", want: []string{"posts/"}, wantSuffix: "post"},
		{name: "directory contents", line: "ls posts/", want: []string{"a", "b"}},
		{name: "nested prefix", line: "cd posts/b", want: []string{"b"}, wantSuffix: "b"},
		{name: "escaped candidate", line: "ls my", want: []string{`my\ docs/`}, wantSuffix: "my"},
		{name: "escaped fragment", line: `ls my\ d`, want: []string{`my\ docs/`}, wantSuffix: `my\ d`},
		{name: "inside escaped dir", line: `ls my\ docs/`, want: []string{"x"}},
		{name: "root", line: "ls /", want: []string{"home/", "etc/", "readme"}},
		{name: "root prefix", line: "cd /e", want: []string{"etc/"}, wantSuffix: "e"},
		{name: "home marker", line: "ls ~/po", want: []string{"posts/"}, wantSuffix: "po"},
		{name: "parent segments", line: "ls ../../r", want: []string{"readme"}, wantSuffix: "r"},
		{name: "ignores access", line: "ls s", want: []string{"secret/"}, wantSuffix: "s"},
		{name: "no match", line: "ls zz", want: nil, wantSuffix: "zz"},
		{name: "missing parent", line: "ls nope/x", want: nil},
		{name: "leaf parent", line: "ls index.html/x", want: nil},
		{name: "any command", line: "frob po", want: []string{"posts/"}, wantSuffix: "po"},
		{name: "last of chain", line: "cd posts && l", want: []string{"ls "}, wantSuffix: "l"},
		{name: "path in chain", line: "cd etc && ls i", want: []string{"index.html"}, wantSuffix: "i"},
		{name: "empty after chain", line: "ls &&", want: []string{"cd", "help", "ls", "open", "welcome"}},
	}

	c := NewCompleter(nil)
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, suffix := c.Complete(newSession(), tc.line)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, tc.wantSuffix, suffix)
		})
	}
}

func TestComplete_FollowsCursor(t *testing.T) {
	d := NewDispatcher()
	c := NewCompleter(d.Registry())
	sess := newSession()

	require.NoError(t, d.Run(sess, "cd posts")[0].Err)
	got, suffix := c.Complete(sess, "ls ")
	assert.Equal(t, []string{"a", "b"}, got)
	assert.Empty(t, suffix)
}

func TestComplete_DoesNotMoveCursor(t *testing.T) {
	c := NewCompleter(nil)
	sess := newSession()
	before := sess.Cwd()

	c.Complete(sess, "cd posts && ls ")
	assert.Same(t, before, sess.Cwd())
}

func TestComplete_Deterministic(t *testing.T) {
	c := NewCompleter(nil)
	sess := newSession()

	first, firstSuffix := c.Complete(sess, "ls p")
	for i := 0; i < 5; i++ {
		got, suffix := c.Complete(sess, "ls p")
		assert.Equal(t, first, got)
		assert.Equal(t, firstSuffix, suffix)
	}
}

func TestComplete_CustomCommands(t *testing.T) {
	r := NewRegistry()
	r.Register(&Command{Name: "links", Usage: "links", Description: "list links"})

	got, suffix := NewCompleter(r).Complete(newSession(), "l")
	assert.Equal(t, []string{"ls", "links"}, got)
	assert.Equal(t, "l", suffix)
}

// =============================================================================
// LINE COMPLETER TESTS
// =============================================================================

func TestLineCompleter(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		pos      int
		wantHead string
		want     []string
		wantTail string
	}{
		{name: "command", line: "l", pos: 1, wantHead: "", want: []string{"ls "}},
		{name: "path", line: "ls post", pos: 7, wantHead: "ls ", want: []string{"posts/"}},
		{name: "escaped path", line: `ls my\ d`, pos: 8, wantHead: "ls ", want: []string{`my\ docs/`}},
		{name: "fresh argument", line: "cd ", pos: 3, wantHead: "cd ", want: homeListing},
		{name: "chain", line: "cd posts && ls p", pos: 16, wantHead: "cd posts && ls ", want: []string{"posts/"}},
		{name: "cursor in middle", line: "ls post && help", pos: 7, wantHead: "ls ", want: []string{"posts/"}, wantTail: " && help"},
		{name: "no match", line: "ls zz", pos: 5, wantHead: "ls zz", want: nil},
		{name: "position past end", line: "l", pos: 9, wantHead: "", want: []string{"ls "}},
	}

	complete := NewCompleter(nil).LineCompleter(newSession())
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			head, got, tail := complete(tc.line, tc.pos)
			assert.Equal(t, tc.wantHead, head)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, tc.wantTail, tail)
		})
	}
}

func TestLineCompleter_RunePositions(t *testing.T) {
	tree := namespace.MustBuild(namespace.Dir("",
		namespace.Dir("café", namespace.Leaf("menu", "/menu")),
	))
	complete := NewCompleter(nil).LineCompleter(session.New(tree))

	line := "ls café/m"
	head, got, tail := complete(line, len([]rune(line)))
	assert.Equal(t, "ls café/", head)
	assert.Equal(t, []string{"menu"}, got)
	assert.Empty(t, tail)

	line = "ls café/m && help"
	head, got, tail = complete(line, len([]rune("ls café/m")))
	assert.Equal(t, "ls café/", head)
	assert.Equal(t, []string{"menu"}, got)
	assert.Equal(t, " && help", tail)
}

func TestCommonPrefix(t *testing.T) {
	tests := []struct {
		input []string
		want  string
	}{
		{nil, ""},
		{[]string{"posts/"}, "posts/"},
		{[]string{"post-a", "post-b"}, "post-"},
		{[]string{"abc", "xyz"}, ""},
		{[]string{"cd ", "cd "}, "cd "},
		{[]string{"index.html", "index"}, "index"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, CommonPrefix(tc.input), "input %v", tc.input)
	}
}
