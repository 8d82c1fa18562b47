// Copyright 2026 The Tailcast Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec is the single place Tailcast configures CBOR.
//
// The format boundary runs between the daemon's two faces: everything
// external speaks JSON (health endpoint, ingest responses, websocket
// frames, CLI output), everything internal speaks CBOR (the admin
// socket between CLI and daemon). Internal traffic gets CBOR for the
// self-delimiting framing: a socket carries a sequence of values with
// no length prefixes or newline conventions on top.
//
// [Marshal] and [Unmarshal] work on buffers; [NewEncoder] and
// [NewDecoder] wrap connections. All four share one mode pair, so a
// value encodes identically no matter which package touches it, and
// encoding is deterministic (RFC 8949 §4.2 core profile).
//
// Tag discipline: a type serialized only over the socket carries
// `cbor` tags; a type that also crosses a JSON surface carries `json`
// tags alone, which fxamacker/cbor reads as a fallback. A field never
// carries both, since the tag names the contract and doubling up
// hides which one a type is under.
package codec
