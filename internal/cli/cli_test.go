// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/peterh/liner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/treeshell/internal/commands"
	"github.com/jeranaias/treeshell/internal/config"
	"github.com/jeranaias/treeshell/internal/namespace"
	"github.com/jeranaias/treeshell/internal/storage"
)

// =============================================================================
// HELPERS
// =============================================================================

// setupCLI isolates a test from the user's config and terminal.
func setupCLI(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("NO_COLOR", "1")
	ForceColorsEnabled(false)
	return home
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append([]string{"--log-level", "error"}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

// fakeReader replays lines and records the prompts it was shown.
type fakeReader struct {
	lines   []string
	prompts []string
	history []string
	err     error
}

func (r *fakeReader) Prompt(prompt string) (string, error) {
	r.prompts = append(r.prompts, prompt)
	if len(r.lines) == 0 {
		if r.err != nil {
			return "", r.err
		}
		return "", io.EOF
	}
	line := r.lines[0]
	r.lines = r.lines[1:]
	return line, nil
}

func (r *fakeReader) AppendHistory(line string) {
	r.history = append(r.history, line)
}

func newTestShell(t *testing.T) (*Shell, *namespace.Source, *bytes.Buffer) {
	t.Helper()
	ForceColorsEnabled(false)
	source := namespace.NewSource(namespace.MustBuild(namespace.DefaultDescription()))
	var out bytes.Buffer
	d := commands.NewDispatcher()
	return NewShell(source, d, config.DefaultPrompt, &out, nil), source, &out
}

// =============================================================================
// RUN COMMAND
// =============================================================================

func TestRun_List(t *testing.T) {
	setupCLI(t)

	out, err := execute(t, "", "run", "ls")
	require.NoError(t, err)
	assert.Equal(t, "posts/\nprojects/\nindex.html\nabout.html\n", out)
}

func TestRun_Chained(t *testing.T) {
	setupCLI(t)

	out, err := execute(t, "", "run", "cd posts && ls")
	require.NoError(t, err)
	assert.Equal(t, "2015-01-05-why\n2015-07-05-ssh\n", out)

	// separate arguments are joined into one line
	out, err = execute(t, "", "run", "cd", "projects", "&&", "ls")
	require.NoError(t, err)
	assert.Contains(t, out, "pseudocode.js")
}

func TestRun_FailureSetsExitCode(t *testing.T) {
	setupCLI(t)

	out, err := execute(t, "", "run", "cd nowhere && ls posts")
	require.Error(t, err)
	assert.Equal(t, ExitGeneralError, GetExitCode(err))
	assert.Contains(t, out, "cd: nowhere: No such file or directory")
	assert.Contains(t, out, "2015-01-05-why", "later commands still run")

	var display bytes.Buffer
	DisplayError(&display, err)
	assert.Empty(t, display.String(), "command output already reported the failure")
}

func TestRun_Open(t *testing.T) {
	setupCLI(t)

	out, err := execute(t, "", "run", "open about.html")
	require.NoError(t, err)
	assert.Equal(t, "Opening /about.html\n", out)
}

func TestRun_JSON(t *testing.T) {
	setupCLI(t)

	out, err := execute(t, "", "run", "--json", "cd projects && open PaperClub")
	require.NoError(t, err)

	var resp struct {
		Success bool    `json:"success"`
		Command string  `json:"command"`
		Data    RunData `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	assert.True(t, resp.Success)
	assert.Equal(t, "run", resp.Command)
	assert.Equal(t, "/home/tatetian/projects/", resp.Data.Cwd)
	require.Len(t, resp.Data.Results, 2)
	assert.Equal(t, "cd", resp.Data.Results[0].Command)
	assert.Equal(t, "https://github.com/tatetian/PaperClub", resp.Data.Results[1].Navigate)
}

func TestRun_JSONFailure(t *testing.T) {
	setupCLI(t)

	out, err := execute(t, "", "run", "--json", "ls /home")
	require.Error(t, err)
	assert.Equal(t, ExitGeneralError, GetExitCode(err))
	assert.Contains(t, out, `"success": false`)
	assert.Contains(t, out, "ls: /home: Permission denied")
}

func TestRun_Cwd(t *testing.T) {
	setupCLI(t)

	out, err := execute(t, "", "run", "--cwd", "/home/tatetian/posts", "ls")
	require.NoError(t, err)
	assert.Contains(t, out, "2015-07-05-ssh")

	_, err = execute(t, "", "run", "--cwd", "/missing", "ls")
	require.Error(t, err)
	assert.Equal(t, ExitUsageError, GetExitCode(err))
	assert.EqualError(t, err, "cd: /missing: No such file or directory")

	_, err = execute(t, "", "run", "--cwd", "/home/tatetian/index.html", "ls")
	assert.EqualError(t, err, "cd: /home/tatetian/index.html: Not a directory")
}

func TestRun_CwdIsTakenLiterally(t *testing.T) {
	setupCLI(t)
	path := filepath.Join(t.TempDir(), "tree.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"name": "",
		"nodes": [
			{"name": "x", "nodes": []},
			{"name": "x && y", "nodes": [
				{"name": "inner", "target": "/inner"}
			]}
		]
	}`), 0644))

	out, err := execute(t, "", "--tree", path, "run", "--cwd", "/x && y", "ls")
	require.NoError(t, err)
	assert.Equal(t, "inner\n", out)
}

func TestRun_RequiresLine(t *testing.T) {
	setupCLI(t)

	_, err := execute(t, "", "run")
	require.Error(t, err)
}

func TestRun_TreeFile(t *testing.T) {
	setupCLI(t)
	path := filepath.Join(t.TempDir(), "tree.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"name": "",
		"nodes": [
			{"name": "docs", "home": true, "nodes": [
				{"name": "guide", "target": "/guide"}
			]}
		]
	}`), 0644))

	out, err := execute(t, "", "--tree", path, "run", "ls && open guide")
	require.NoError(t, err)
	assert.Equal(t, "guide\nOpening /guide\n", out)
}

func TestRun_BadTreeFile(t *testing.T) {
	setupCLI(t)
	path := filepath.Join(t.TempDir(), "tree.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	_, err := execute(t, "", "--tree", path, "run", "ls")
	require.Error(t, err)
	assert.Equal(t, ExitTreeError, GetExitCode(err))

	_, err = execute(t, "", "--tree", filepath.Join(t.TempDir(), "missing.json"), "run", "ls")
	assert.Equal(t, ExitTreeError, GetExitCode(err))
}

// =============================================================================
// SHELL
// =============================================================================

func TestShellCommand_Stdin(t *testing.T) {
	setupCLI(t)

	out, err := execute(t, "ls\n\ncd posts\nls\n")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "Welcome!"), out)
	assert.Contains(t, out, "projects/")
	assert.Contains(t, out, "2015-01-05-why")
}

func TestShell_PromptFollowsCwd(t *testing.T) {
	sh, _, _ := newTestShell(t)
	r := &fakeReader{lines: []string{"cd posts", "   ", "cd ../projects"}}

	require.NoError(t, sh.Run(context.Background(), r))
	assert.Equal(t, []string{
		"shell:/home/tatetian> ",
		"shell:/home/tatetian/posts> ",
		"shell:/home/tatetian/posts> ",
		"shell:/home/tatetian/projects> ",
	}, r.prompts)
	assert.Equal(t, []string{"cd posts", "cd ../projects"}, r.history, "blank lines are not recorded")
}

func TestShell_Output(t *testing.T) {
	sh, _, out := newTestShell(t)

	results := sh.Execute("cd secret && open index.html")
	require.Len(t, results, 2)
	assert.Equal(t, "cd: secret: No such file or directory\nOpening /index.html\n", out.String())
}

func TestShell_Welcome(t *testing.T) {
	source := namespace.NewSource(namespace.MustBuild(namespace.DefaultDescription()))
	var out bytes.Buffer
	d := commands.NewDispatcher(commands.WithWelcome("hello there"))
	sh := NewShell(source, d, config.DefaultPrompt, &out, nil)

	sh.Welcome()
	assert.Equal(t, "hello there\n", out.String())
}

func TestShell_RunStops(t *testing.T) {
	sh, _, _ := newTestShell(t)

	err := sh.Run(context.Background(), &fakeReader{err: liner.ErrPromptAborted})
	assert.NoError(t, err)

	boom := errors.New("terminal gone")
	err = sh.Run(context.Background(), &fakeReader{err: boom})
	assert.ErrorIs(t, err, boom)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := &fakeReader{lines: []string{"ls"}}
	require.NoError(t, sh.Run(ctx, r))
	assert.Empty(t, r.prompts)
}

// blockingReader never delivers a line until released.
type blockingReader struct {
	prompted chan struct{}
	release  chan struct{}
}

func (r *blockingReader) Prompt(string) (string, error) {
	close(r.prompted)
	<-r.release
	return "", io.EOF
}

func (r *blockingReader) AppendHistory(string) {}

func TestShell_RunStopsWhileWaitingForInput(t *testing.T) {
	sh, _, _ := newTestShell(t)
	r := &blockingReader{prompted: make(chan struct{}), release: make(chan struct{})}
	defer close(r.release)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sh.Run(ctx, r) }()

	<-r.prompted
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("shell kept waiting for input after cancellation")
	}
}

func TestShell_TreeReloaded(t *testing.T) {
	sh, source, out := newTestShell(t)
	sh.Execute("cd posts")
	before := sh.Session()

	source.Swap(namespace.MustBuild(namespace.DefaultDescription()))
	sh.TreeReloaded(source.Tree())

	r := &fakeReader{lines: []string{"pwd"}}
	require.NoError(t, sh.Run(context.Background(), r))
	assert.NotSame(t, before, sh.Session())
	assert.Same(t, source.Tree(), sh.Session().Tree())
	assert.Equal(t, "shell:/home/tatetian/posts> ", r.prompts[0], "working directory survives the reload")
	assert.Contains(t, out.String(), "(tree reloaded)")
}

func TestShell_TreeReloadedLosesCwd(t *testing.T) {
	sh, source, _ := newTestShell(t)
	sh.Execute("cd posts")

	source.Swap(namespace.MustBuild(namespace.Dir("",
		namespace.Dir("elsewhere").AsHome(),
	)))
	sh.TreeReloaded(source.Tree())

	r := &fakeReader{}
	require.NoError(t, sh.Run(context.Background(), r))
	assert.Equal(t, "shell:/elsewhere> ", r.prompts[0])
}

func TestShell_Complete(t *testing.T) {
	sh, _, _ := newTestShell(t)

	head, candidates, tail := sh.Complete("cd pro", 6)
	assert.Equal(t, "cd ", head)
	assert.Equal(t, []string{"projects/"}, candidates)
	assert.Empty(t, tail)

	sh.Execute("cd projects")
	_, candidates, _ = sh.Complete("open P", 6)
	assert.Equal(t, []string{"PaperClub"}, candidates, "completion follows the working directory")
}

func TestTrimHistory(t *testing.T) {
	data := []byte("a\nb\nc\nd\n")

	assert.Equal(t, "c\nd\n", string(trimHistory(data, 2)))
	assert.Equal(t, "a\nb\nc\nd\n", string(trimHistory(data, 10)))
	assert.Equal(t, "a\nb\nc\nd\n", string(trimHistory(data, 0)))
}

func TestScanReader(t *testing.T) {
	r := newScanReader(strings.NewReader("ls\ncd posts"))

	line, err := r.Prompt("ignored> ")
	require.NoError(t, err)
	assert.Equal(t, "ls", line)

	line, err = r.Prompt("ignored> ")
	require.NoError(t, err)
	assert.Equal(t, "cd posts", line)

	_, err = r.Prompt("ignored> ")
	assert.ErrorIs(t, err, io.EOF)
}

// =============================================================================
// TREE COMMAND
// =============================================================================

func TestTreeCommand(t *testing.T) {
	setupCLI(t)

	out, err := execute(t, "", "tree")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 11)
	assert.True(t, strings.HasPrefix(lines[0], "/"))
	assert.Contains(t, lines[0], "(denied)")
	assert.Contains(t, lines[2], "(home)")
	assert.Contains(t, out, "https://github.com/tatetian/pseudocode.js")
}

func TestTreeCommand_JSON(t *testing.T) {
	setupCLI(t)

	out, err := execute(t, "", "tree", "--json", "--home")
	require.NoError(t, err)

	var resp struct {
		Data []TreeNodeData `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data, 11)
	assert.Equal(t, TreeNodeData{Path: "~/", Depth: 2, Dir: true, Accessible: true, Home: true}, resp.Data[2])
	assert.Equal(t, "~/posts/2015-01-05-why", resp.Data[4].Path)
	assert.Equal(t, "/posts/2015-01-05-why/", resp.Data[4].Target)
}

func TestPrintTree_Truncates(t *testing.T) {
	ForceColorsEnabled(false)
	nodes := []TreeNodeData{
		{Path: "/", Dir: true, Accessible: true},
		{Path: "/a/very/long/path/that/does/not/fit", Accessible: true, Target: "/t"},
	}

	var out bytes.Buffer
	printTree(&out, nodes, 40)
	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "/", lines[0])
	assert.Equal(t, "...that/does/not/fit  /t", lines[1])
}

// =============================================================================
// CONFIG COMMANDS
// =============================================================================

func TestConfigPath(t *testing.T) {
	home := setupCLI(t)

	out, err := execute(t, "", "config", "path")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".treeshell", "config.toml")+"\n", out)

	out, err = execute(t, "", "--config", "/tmp/x.toml", "config", "path")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/x.toml\n", out)
}

func TestConfigSetAndGet(t *testing.T) {
	home := setupCLI(t)

	_, err := execute(t, "", "config", "set", "shell.prompt", "tree:%s$ ")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(home, ".treeshell", "config.toml"))

	out, err := execute(t, "", "config", "get", "shell.prompt")
	require.NoError(t, err)
	assert.Equal(t, "tree:%s$ \n", out)

	_, err = execute(t, "", "config", "set", "server.cors_origins", "https://a.example, https://b.example")
	require.NoError(t, err)
	out, err = execute(t, "", "config", "get", "server.cors_origins")
	require.NoError(t, err)
	assert.Equal(t, "https://a.example,https://b.example\n", out)

	// the saved prompt reaches the shell
	out, err = execute(t, "", "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, `prompt = "tree:%s$ "`)
}

func TestConfigSet_Invalid(t *testing.T) {
	setupCLI(t)

	_, err := execute(t, "", "config", "set", "shell.prompt", "no verb")
	require.Error(t, err)
	assert.Equal(t, ExitConfigError, GetExitCode(err))

	_, err = execute(t, "", "config", "set", "server.max_sessions", "many")
	require.Error(t, err)
	assert.Equal(t, ExitUsageError, GetExitCode(err))
}

func TestConfigGet_Unknown(t *testing.T) {
	setupCLI(t)

	_, err := execute(t, "", "config", "get", "shell.nope")
	require.Error(t, err)
	assert.Equal(t, ExitNotFoundError, GetExitCode(err))
}

func TestConfigShow_RedactsToken(t *testing.T) {
	setupCLI(t)
	t.Setenv("TREESHELL_AUTH_TOKEN", "s3cret")

	out, err := execute(t, "", "config", "show", "--json")
	require.NoError(t, err)
	assert.NotContains(t, out, "s3cret")
	assert.Contains(t, out, "[REDACTED]")

	out, err = execute(t, "", "config", "get", "server.auth_token")
	require.NoError(t, err)
	assert.Equal(t, "[REDACTED]\n", out)
}

func TestConfigKeys(t *testing.T) {
	setupCLI(t)

	out, err := execute(t, "", "config", "keys")
	require.NoError(t, err)
	assert.Equal(t, strings.Join(config.GetAllKeys(), "\n")+"\n", out)
}

func TestBrokenConfig(t *testing.T) {
	setupCLI(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[shell\n"), 0600))

	_, err := execute(t, "", "--config", path, "run", "ls")
	require.Error(t, err)
	assert.Equal(t, ExitConfigError, GetExitCode(err))

	// version needs no config
	_, err = execute(t, "", "--config", path, "version")
	assert.NoError(t, err)
}

func TestUnknownFlag(t *testing.T) {
	setupCLI(t)

	_, err := execute(t, "", "run", "--bogus", "ls")
	require.Error(t, err)
	assert.Equal(t, ExitUsageError, GetExitCode(err))
}

// =============================================================================
// TRANSCRIPTS COMMAND
// =============================================================================

func TestTranscriptsCommand(t *testing.T) {
	home := setupCLI(t)
	ctx := context.Background()

	store, err := storage.Open(filepath.Join(home, ".treeshell", "transcripts.db"))
	require.NoError(t, err)
	_, err = store.Append(ctx, storage.Entry{SessionID: "sess_1", Line: "ls", Output: []string{"posts/"}, Cwd: "/home/tatetian/"})
	require.NoError(t, err)
	_, err = store.Append(ctx, storage.Entry{SessionID: "sess_1", Line: "cd x", Output: []string{"cd: x: No such file or directory"}, Failed: true})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	out, err := execute(t, "", "transcripts")
	require.NoError(t, err)
	assert.Contains(t, out, "sess_1")
	assert.Contains(t, out, "2 line(s)")

	out, err = execute(t, "", "transcripts", "sess_1")
	require.NoError(t, err)
	assert.Contains(t, out, "[1] /home/tatetian/ $ ls\n  posts/\n")
	assert.Contains(t, out, "[2]  $ cd x\n  cd: x: No such file or directory\n")

	out, err = execute(t, "", "transcripts", "sess_1", "--limit", "1", "--json")
	require.NoError(t, err)
	var resp struct {
		Data []storage.Entry `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, 2, resp.Data[0].Seq)

	_, err = execute(t, "", "transcripts", "sess_missing")
	assert.Equal(t, ExitNotFoundError, GetExitCode(err))

	out, err = execute(t, "", "transcripts", "export", "sess_1")
	require.NoError(t, err)
	assert.Contains(t, out, "# Session sess\\_1")
	assert.Contains(t, out, "### 2. `$ cd x` [FAIL]")

	dir := t.TempDir()
	out, err = execute(t, "", "transcripts", "export", "sess_1", "--format", "html", "-o", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Exported 2 line(s) to "+dir)
	matches, _ := filepath.Glob(filepath.Join(dir, "transcript_sess_1_*.html"))
	assert.Len(t, matches, 1)

	_, err = execute(t, "", "transcripts", "export", "sess_1", "--format", "pdf")
	assert.Equal(t, ExitUsageError, GetExitCode(err))

	out, err = execute(t, "", "transcripts", "prune", "--older-than", "1ns")
	require.NoError(t, err)
	assert.Equal(t, "Removed 2 line(s)\n", out)

	out, err = execute(t, "", "transcripts")
	require.NoError(t, err)
	assert.Contains(t, out, "No transcripts recorded.")
}

func TestTranscriptsPrune_Invalid(t *testing.T) {
	setupCLI(t)

	_, err := execute(t, "", "transcripts", "prune", "--older-than", "0s")
	require.Error(t, err)
	assert.Equal(t, ExitUsageError, GetExitCode(err))
}

// =============================================================================
// VERSION AND ERRORS
// =============================================================================

func TestVersionCommand(t *testing.T) {
	setupCLI(t)

	out, err := execute(t, "", "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "treeshell "+Version+"\n"))
	assert.Contains(t, out, "Commit:")

	out, err = execute(t, "", "version", "--json")
	require.NoError(t, err)
	var resp struct {
		Success bool        `json:"success"`
		Data    VersionData `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, Version, resp.Data.Version)
}

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"plain", errors.New("x"), ExitGeneralError},
		{"exit error", &ExitError{Code: 42}, 42},
		{"validation", NewValidationError("f", "v", "bad"), ExitUsageError},
		{"not found", NewNotFoundError("thing", "id"), ExitNotFoundError},
		{"config", &configError{err: errors.New("x")}, ExitConfigError},
		{"config validation", config.ValidateErrors{{Field: "a", Message: "b"}}, ExitConfigError},
		{"tree", fmt.Errorf("wrapped: %w", &treeError{err: errors.New("x")}), ExitTreeError},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, GetExitCode(tc.err))
		})
	}
}

func TestDisplayError(t *testing.T) {
	ForceColorsEnabled(false)

	var out bytes.Buffer
	DisplayError(&out, NewNotFoundError("config key", "x"))
	assert.Equal(t, "[ERROR] config key not found: x\n", out.String())

	out.Reset()
	DisplayError(&out, nil)
	DisplayError(&out, &ExitError{Code: 1, Silent: true})
	assert.Empty(t, out.String())
}
