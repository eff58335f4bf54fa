// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - Root command and shared setup for treeshell.

package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jeranaias/treeshell/internal/commands"
	"github.com/jeranaias/treeshell/internal/config"
	"github.com/jeranaias/treeshell/internal/namespace"
	"github.com/jeranaias/treeshell/internal/util"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

const (
	rootUse   = "treeshell"
	rootShort = "A tiny shell over a read-only namespace tree"
	rootLong  = `treeshell browses a fixed tree of directories and leaves with the
commands cd, ls, open, help and welcome, joined with "&&".

Without a subcommand it starts the interactive shell. The tree comes from a
JSON or TOML description file (--tree) or the built-in layout.`

	configFlagName    = "config"
	treeFlagName      = "tree"
	logLevelFlagName  = "log-level"
	logFormatFlagName = "log-format"
	jsonFlagName      = "json"

	// skipSetupAnnotation marks commands that run without config or logger
	skipSetupAnnotation = "treeshell/skip-setup"
)

// app holds what every subcommand shares after setup.
type app struct {
	configPath string
	treePath   string
	logLevel   string
	logFormat  string

	cfg    *config.Config
	logger *zap.Logger
}

// Execute runs the treeshell command line and reports any error on stderr.
// Use GetExitCode on the result to pick the process exit status.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := NewRootCommand().ExecuteContext(ctx)
	DisplayError(os.Stderr, err)
	return err
}

// NewRootCommand builds the treeshell command tree.
func NewRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           rootUse,
		Short:         rootShort,
		Long:          rootLong,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Annotations[skipSetupAnnotation] != "" {
				return nil
			}
			return a.setup()
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.logger != nil {
				a.logger.Sync()
			}
		},
		RunE: a.runShell,
	}
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &ExitError{Code: ExitUsageError, Err: err}
	})

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, configFlagName, "", "config file (default ~/.treeshell/config.toml)")
	flags.StringVar(&a.treePath, treeFlagName, "", "tree description file (.json or .toml)")
	flags.StringVar(&a.logLevel, logLevelFlagName, "", "log level: debug, info, warn, error")
	flags.StringVar(&a.logFormat, logFormatFlagName, "", "log format: console or json")

	root.AddCommand(
		a.newShellCommand(),
		a.newRunCommand(),
		a.newTreeCommand(),
		a.newServeCommand(),
		a.newConfigCommand(),
		a.newTranscriptsCommand(),
		newVersionCommand(),
	)
	return root
}

// setup loads the configuration, applies flag overrides and builds the
// logger.
func (a *app) setup() error {
	var (
		cfg *config.Config
		err error
	)
	if a.configPath != "" {
		cfg, err = config.LoadFromPath(a.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return &configError{err: err}
	}

	if a.treePath != "" {
		cfg.Tree.File = a.treePath
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if a.logFormat != "" {
		cfg.Log.Format = a.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return &configError{err: fmt.Errorf("invalid config: %w", err)}
	}

	logger, err := util.NewLogger(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return &configError{err: err}
	}

	ConfigureColors(cfg.Shell.Color)
	a.cfg = cfg
	a.logger = logger
	return nil
}

// loadTree builds the configured tree, or the built-in one when no file is
// set.
func (a *app) loadTree() (*namespace.Tree, error) {
	if a.cfg.Tree.File == "" {
		t, err := namespace.Build(namespace.DefaultDescription())
		if err != nil {
			return nil, &treeError{err: err}
		}
		return t, nil
	}
	t, err := namespace.LoadTree(a.cfg.Tree.File)
	if err != nil {
		return nil, &treeError{err: err}
	}
	a.logger.Debug("tree loaded", zap.String("path", a.cfg.Tree.File), zap.Int("nodes", t.Size()))
	return t, nil
}

// newDispatcher builds the dispatcher shared by every front end. Opened
// targets are reported in results rather than launched.
func (a *app) newDispatcher() *commands.Dispatcher {
	return commands.NewDispatcher(
		commands.WithWelcome(a.cfg.Shell.Welcome),
		commands.WithLogger(a.logger),
	)
}

// =============================================================================
// SHELL COMMAND
// =============================================================================

func (a *app) newShellCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Start the interactive shell (default)",
		Long: `Start the interactive shell. Tab completes command names and paths,
Up/Down browse history, Ctrl+D or Ctrl+C quits.`,
		Args: cobra.NoArgs,
		RunE: a.runShell,
	}
}

func (a *app) runShell(cmd *cobra.Command, _ []string) error {
	tree, err := a.loadTree()
	if err != nil {
		return err
	}
	source := namespace.NewSource(tree)
	out := cmd.OutOrStdout()
	sh := NewShell(source, a.newDispatcher(), a.cfg.Shell.Prompt, out, a.logger)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	group, groupCtx := errgroup.WithContext(ctx)
	if a.cfg.Tree.Watch && a.cfg.Tree.File != "" {
		w, err := namespace.NewWatcher(a.cfg.Tree.File, source, a.logger)
		if err != nil {
			return err
		}
		w.OnReload = sh.TreeReloaded
		group.Go(func() error { return w.Run(groupCtx) })
	}

	var reader LineReader
	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); ok && f == os.Stdin && IsTTY() {
		editor := newLineEditor(a.cfg.Shell.HistoryFile, a.cfg.Shell.HistoryLimit, sh.Complete)
		defer func() {
			if err := editor.Close(); err != nil {
				a.logger.Warn("failed to save history", zap.Error(err))
			}
		}()
		reader = editor
	} else {
		reader = newScanReader(in)
	}

	sh.Welcome()
	group.Go(func() error {
		defer cancel()
		return sh.Run(groupCtx, reader)
	})
	return group.Wait()
}

// =============================================================================
// RUN COMMAND
// =============================================================================

func (a *app) newRunCommand() *cobra.Command {
	var (
		jsonOut bool
		cwd     string
	)
	cmd := &cobra.Command{
		Use:   "run <line...>",
		Short: "Run one command line and exit",
		Long: `Run one command line non-interactively. The arguments are joined with
spaces, so quote "&&" or pass the whole line as one argument.
The exit status is 1 when any sub-command failed.`,
		Example: `  treeshell run ls
  treeshell run "cd posts && ls"
  treeshell run --cwd /home/user/posts ls`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tree, err := a.loadTree()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			sh := NewShell(namespace.NewSource(tree), a.newDispatcher(), a.cfg.Shell.Prompt, out, a.logger)

			if cwd != "" {
				if err := commands.ChangeDir(sh.Session(), cwd); err != nil {
					return &ExitError{Code: ExitUsageError, Err: &commands.CommandError{Command: "cd", Arg: cwd, Err: err}}
				}
			}

			line := strings.Join(args, " ")
			var results []commands.Result
			if jsonOut {
				results = sh.dispatcher.Run(sh.Session(), line)
				data := RunData{
					Line:    line,
					Results: make([]ResultData, 0, len(results)),
					Cwd:     tree.FullPath(sh.Session().Cwd(), false),
				}
				for _, res := range results {
					data.Results = append(data.Results, newResultData(res))
				}
				resp := NewJSONResponse("run", data)
				resp.Success = !anyFailed(results)
				if err := resp.Print(out); err != nil {
					return err
				}
			} else {
				results = sh.Execute(line)
			}

			if anyFailed(results) {
				return &ExitError{Code: ExitGeneralError, Silent: true}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, jsonFlagName, false, "output results as JSON")
	cmd.Flags().StringVar(&cwd, "cwd", "", "directory to start in (default: home)")
	return cmd
}

// =============================================================================
// TREE COMMAND
// =============================================================================

func (a *app) newTreeCommand() *cobra.Command {
	var (
		jsonOut  bool
		fromHome bool
	)
	cmd := &cobra.Command{
		Use:   "tree",
		Short: "Print every node of the tree",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tree, err := a.loadTree()
			if err != nil {
				return err
			}
			nodes := collectTree(tree, fromHome)
			out := cmd.OutOrStdout()
			if jsonOut {
				return NewJSONResponse("tree", nodes).Print(out)
			}
			printTree(out, nodes, GetTerminalWidth())
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, jsonFlagName, false, "output as JSON")
	cmd.Flags().BoolVar(&fromHome, "home", false, "render paths under the home directory from ~")
	return cmd
}

func collectTree(tree *namespace.Tree, fromHome bool) []TreeNodeData {
	var nodes []TreeNodeData
	tree.Walk(func(n *namespace.Node, depth int) error {
		nodes = append(nodes, TreeNodeData{
			Path:       tree.FullPath(n, fromHome),
			Depth:      depth,
			Dir:        n.IsDir(),
			Accessible: n.Accessible(),
			Home:       n.IsHome(),
			Target:     n.Target(),
		})
		return nil
	})
	return nodes
}

// printTree prints one node per line with targets aligned in a second
// column. Paths wider than half the terminal keep their most specific part.
func printTree(w io.Writer, nodes []TreeNodeData, width int) {
	col := 0
	for _, n := range nodes {
		col = max(col, util.StringWidth(n.Path))
	}
	col = min(col, width/2)

	for _, n := range nodes {
		path := util.TruncateLeft(n.Path, col)
		style := LeafStyle
		if n.Dir {
			style = DirStyle
		}

		var notes []string
		if n.Home {
			notes = append(notes, "(home)")
		}
		if !n.Accessible {
			notes = append(notes, "(denied)")
		}

		line := RenderConditional(style, util.PadRight(path, col))
		if n.Target != "" {
			line += "  " + util.TruncateWidth(n.Target, max(width-col-2, 8))
		}
		if len(notes) > 0 {
			line += "  " + RenderConditional(DimStyle, strings.Join(notes, " "))
		}
		fmt.Fprintln(w, strings.TrimRight(line, " "))
	}
}

// =============================================================================
// VERSION COMMAND
// =============================================================================

func newVersionCommand() *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:         "version",
		Short:       "Print version information",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipSetupAnnotation: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			data := VersionData{
				Version:   Version,
				GitCommit: GitCommit,
				BuildDate: BuildDate,
				GoVersion: runtime.Version(),
				Platform:  runtime.GOOS + "/" + runtime.GOARCH,
			}
			out := cmd.OutOrStdout()
			if jsonOut {
				return NewJSONResponse("version", data).Print(out)
			}
			fmt.Fprintln(out, RenderConditional(TitleStyle, "treeshell "+data.Version))
			fmt.Fprintf(out, "  %s%s\n", RenderLabel("Commit:"), data.GitCommit)
			fmt.Fprintf(out, "  %s%s\n", RenderLabel("Built:"), data.BuildDate)
			fmt.Fprintf(out, "  %s%s\n", RenderLabel("Go:"), data.GoVersion)
			fmt.Fprintf(out, "  %s%s\n", RenderLabel("OS/Arch:"), data.Platform)
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, jsonFlagName, false, "output as JSON")
	return cmd
}
