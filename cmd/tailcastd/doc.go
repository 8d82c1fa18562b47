// Copyright 2026 The Tailcast Authors
// SPDX-License-Identifier: Apache-2.0

// Tailcastd is the log streaming daemon. It collects formatted log
// lines from local producers (its own HTTP access and application
// logs, POST /ingest, an optional plaintext TCP listener, and
// optionally standard input) and broadcasts every line to all
// connected websocket subscribers in real time.
//
// Data flow:
//
//	producers → filter → queue → broadcaster → websocket subscribers
//	                                         ↘ backlog (replay for new subscribers)
//	                                         ↘ archive (compressed segments on disk)
//
// The filter suppresses lines matching configured substrings (health
// checks, favicon noise) before they enter the queue. The queue is a
// fixed-capacity buffer between producers and the broadcaster:
// producers never block, and when the queue is full the newest line
// is dropped and counted. The broadcaster delivers each line to all
// subscribers concurrently and waits for the whole batch before
// taking the next line; a failed or panicking subscriber send never
// disturbs the others and never removes the subscriber.
//
// A browser viewer page is served at "/", a health probe at
// "/health", and operational counters over the CBOR admin socket
// ("status" and "rules" actions, used by the tailcast CLI).
package main
