// Copyright 2026 The Tailcast Authors
// SPDX-License-Identifier: Apache-2.0

// Package service provides shared server and client infrastructure for
// Tailcast binaries.
//
// The daemon is a standalone Go binary with an HTTP surface (viewer
// page, health, line ingestion, websocket subscribers) and a Unix
// socket admin API. This package extracts the scaffolding both
// surfaces need:
//
//   - HTTP server: listener lifecycle, readiness signaling, graceful
//     shutdown with a drain timeout. The caller provides the
//     http.Handler (routing, key verification, payload processing).
//   - Socket server: CBOR request-response Unix socket server with
//     action dispatch, connection timeouts, and graceful shutdown.
//   - Socket client: one connection per call, used by the CLI to talk
//     to a running daemon.
//   - API keys: HMAC-derived ingest keys binding a client ID to the
//     daemon's shared secret.
//
// Binaries compose these utilities in their own main() function rather
// than subclassing a framework. The package provides building blocks,
// not a runtime.
//
// # Authentication
//
// The admin socket has no caller authentication: it is a local Unix
// socket, and filesystem permissions on the socket path are the access
// boundary. The HTTP ingest endpoint optionally requires an API key
// (see [IssueAPIKey]); the websocket subscriber endpoint is open, per
// the deployment model of a trusted-network log viewer.
package service
