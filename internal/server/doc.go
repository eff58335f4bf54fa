// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package server exposes treeshell sessions over a JSON HTTP API.
//
// Every client creates its own session and drives it with command lines,
// exactly as the interactive shell would. All sessions share one read-only
// tree; each keeps its own working directory.
//
// # Endpoints
//
//   - GET    /health                      - Health check
//   - POST   /v1/sessions                 - Create a session
//   - GET    /v1/sessions/{id}            - Session status
//   - DELETE /v1/sessions/{id}            - Close a session
//   - POST   /v1/sessions/{id}/run        - Run a command line
//   - POST   /v1/sessions/{id}/complete   - Complete a partial line
//   - GET    /v1/sessions/{id}/history    - Recorded transcript
//
// # Middleware
//
//   - Panic recovery and security headers
//   - Request logging (zap)
//   - CORS for configured origins
//   - Bearer token authentication with constant-time comparison
//   - Per-IP rate limiting (golang.org/x/time/rate)
//
// # Usage
//
//	srv := server.New(server.Options{Addr: ":8080"}, manager, dispatcher, store, logger)
//	if err := srv.Run(ctx, nil); err != nil {
//		return err
//	}
package server
