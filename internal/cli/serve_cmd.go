// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// serve_cmd.go - HTTP API command.

package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jeranaias/treeshell/internal/namespace"
	"github.com/jeranaias/treeshell/internal/server"
	"github.com/jeranaias/treeshell/internal/session"
)

func (a *app) newServeCommand() *cobra.Command {
	var (
		addr          string
		noTranscripts bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve shell sessions over HTTP",
		Long: `Serve the tree over a JSON HTTP API. Each client creates a session and
runs command lines in it; sessions expire after server.session_timeout_secs
of inactivity.`,
		Example: `  treeshell serve
  treeshell serve --addr :9000 --no-transcripts`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr != "" {
				a.cfg.Server.Addr = addr
			}
			tree, err := a.loadTree()
			if err != nil {
				return err
			}
			source := namespace.NewSource(tree)

			sessCfg := session.DefaultConfig()
			sessCfg.Timeout = a.cfg.Server.SessionTimeout()
			sessCfg.MaxSessions = a.cfg.Server.MaxSessions
			manager := session.NewManager(sessCfg, source.Tree)

			// Leave the interface nil rather than holding a nil store.
			var transcripts server.Transcripts
			if !noTranscripts && a.cfg.Server.TranscriptDB != "" {
				store, err := a.openTranscripts()
				if err != nil {
					return err
				}
				defer store.Close()
				transcripts = store
			}

			// Clients follow the navigate field of open results themselves.
			dispatcher := a.newDispatcher()
			srv := server.New(server.Options{
				Addr:        a.cfg.Server.Addr,
				AuthToken:   a.cfg.Server.AuthToken,
				CORSOrigins: a.cfg.Server.CORSOrigins,
				RateLimit:   a.cfg.Server.RateLimit,
				RateBurst:   a.cfg.Server.RateBurst,
				Version:     Version,
			}, manager, dispatcher, transcripts, a.logger)

			group, ctx := errgroup.WithContext(cmd.Context())
			if a.cfg.Tree.Watch && a.cfg.Tree.File != "" {
				w, err := namespace.NewWatcher(a.cfg.Tree.File, source, a.logger)
				if err != nil {
					return err
				}
				group.Go(func() error { return w.Run(ctx) })
			}
			group.Go(func() error {
				return srv.Run(ctx, func(bound string) {
					a.logger.Info("serving",
						zap.String("addr", bound),
						zap.Int("nodes", tree.Size()),
						zap.Bool("transcripts", transcripts != nil),
						zap.Bool("auth", a.cfg.Server.AuthToken != ""),
					)
					fmt.Fprintf(cmd.OutOrStdout(), "treeshell listening on http://%s\n", bound)
				})
			})
			return group.Wait()
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	cmd.Flags().BoolVar(&noTranscripts, "no-transcripts", false, "do not record session transcripts")
	return cmd
}
