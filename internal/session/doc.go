// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session provides the mutable state of a shell over a shared tree.
//
// # Key Types
//
//   - Session: the current-location cursor of one shell
//   - Manager: live sessions of a multi-user host, with idle timeout
//   - Status: snapshot of a managed session
//
// # Usage
//
// A single interactive shell owns its Session directly:
//
//	sess := session.New(tree)
//	node, err := sess.Resolve("~/posts")
//
// A server shares one tree between many sessions and serialises access to
// each of them:
//
//	mgr := session.NewManager(session.DefaultConfig(), source.Tree)
//	go mgr.Run(ctx)
//	sess, _ := mgr.Create()
//	err := mgr.With(sess.ID(), func(s *session.Session) error { ... })
package session
