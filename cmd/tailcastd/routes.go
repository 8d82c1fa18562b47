// Copyright 2026 The Tailcast Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/tailcast/tailcast/lib/service"
)

// maxIngestBodyBytes caps one POST /ingest body. Large enough for
// generous batches; a producer with more to say makes more requests.
const maxIngestBodyBytes = 4 << 20

//go:embed viewer.html
var viewerHTML []byte

// routes assembles the daemon's HTTP surface.
func (d *Daemon) routes() http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)

	router.Group(func(r chi.Router) {
		r.Use(d.accessLog)
		r.Get("/", d.handleViewer)
		r.Get("/health", d.handleHealth)
		r.Post("/ingest", d.handleIngest)
	})

	// The websocket route skips the access logger: its request lasts
	// the whole subscription, and the connection lifecycle is already
	// logged as client connected/disconnected lines.
	router.Get("/ws/logs", d.handleLogStream)

	return router
}

// accessLog emits one line per completed request through the root
// logger, which carries it into the stream itself. The filter's rules
// decide which of these lines subscribers see; the defaults suppress
// /health and favicon noise.
func (d *Daemon) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		wrapped := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := d.clock.Now()
		next.ServeHTTP(wrapped, r)
		d.logger.Info(fmt.Sprintf("%s %s %d", r.Method, r.URL.Path, wrapped.Status()),
			"remote", r.RemoteAddr,
			"bytes", wrapped.BytesWritten(),
			"duration", d.clock.Now().Sub(start).String())
	})
}

// handleViewer serves the embedded live viewer page.
func (d *Daemon) handleViewer(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(viewerHTML)
}

// handleHealth answers monitoring probes. The body shape is part of
// the external interface; deployments pattern-match on it.
func (d *Daemon) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"healthy"}` + "\n"))
}

type ingestResponse struct {
	Accepted int `json:"accepted"`
}

// handleIngest accepts newline-separated pre-formatted lines and
// submits each to the pipeline. When ingest.secret is configured the
// caller must present a bearer API key issued from it.
func (d *Daemon) handleIngest(w http.ResponseWriter, r *http.Request) {
	if d.config.Ingest.Secret != "" {
		key, ok := bearerToken(r)
		if !ok {
			writeJSONError(w, http.StatusUnauthorized, "missing API key")
			return
		}
		if _, err := service.VerifyAPIKey([]byte(d.config.Ingest.Secret), key); err != nil {
			writeJSONError(w, http.StatusUnauthorized, "invalid API key")
			return
		}
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxIngestBodyBytes))
	if err != nil {
		writeJSONError(w, http.StatusRequestEntityTooLarge, "body too large")
		return
	}

	accepted, err := d.ingestLines(bytes.NewReader(body))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest,
			fmt.Sprintf("line exceeds %d bytes", d.config.Ingest.MaxLineBytes))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(ingestResponse{Accepted: accepted})
}

// bearerToken extracts the Authorization bearer credential.
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// writeJSONError writes an error response in the {"error": ...} shape
// producer scripts match on.
func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
