// Copyright 2026 The Tailcast Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bufio"
	"context"
	"io"
	"net"
	"strings"
	"sync"

	"github.com/tailcast/tailcast/lib/netutil"
)

// serveTCPIngest accepts raw producers on the plaintext listener and
// scans each connection line by line into the pipeline. Blocks until
// ctx is cancelled and open connections finish.
func (d *Daemon) serveTCPIngest(ctx context.Context, listener net.Listener) {
	// Close the listener when ctx ends to unblock Accept.
	go func() {
		<-ctx.Done()
		listener.Close()
	}()

	var connections sync.WaitGroup
	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil || netutil.IsExpectedCloseError(err) {
				break
			}
			d.logger.Warn("tcp ingest accept failed", "error", err)
			continue
		}
		connections.Add(1)
		go func() {
			defer connections.Done()
			defer conn.Close()
			d.ingestConnection(ctx, conn)
		}()
	}
	connections.Wait()
}

// ingestConnection drains one producer connection. The producer gets
// no acknowledgements; it writes lines and hangs up.
func (d *Daemon) ingestConnection(ctx context.Context, conn net.Conn) {
	// Close on cancel to unblock the scanner read.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	_, err := d.ingestLines(conn)
	if err != nil && ctx.Err() == nil && !netutil.IsExpectedCloseError(err) {
		d.logger.Debug("tcp ingest connection failed",
			"remote", conn.RemoteAddr().String(),
			"error", err)
	}
}

// ingestLines scans newline-separated lines from reader into the
// pipeline until EOF or a read error. Blank lines are skipped and a
// trailing carriage return is stripped. Returns the number of lines
// submitted.
func (d *Daemon) ingestLines(reader io.Reader) (int, error) {
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(nil, d.config.Ingest.MaxLineBytes)
	submitted := 0
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			continue
		}
		d.pipeline.Submit(line)
		submitted++
	}
	return submitted, scanner.Err()
}
