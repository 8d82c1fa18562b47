// Copyright 2026 The Tailcast Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tailcast/tailcast/archive"
	"github.com/tailcast/tailcast/lib/clock"
	"github.com/tailcast/tailcast/lib/process"
	"github.com/tailcast/tailcast/lib/service"
	"github.com/tailcast/tailcast/lib/version"
	"github.com/tailcast/tailcast/stream"
)

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

func run() error {
	configPath := flag.String("config", "",
		"path to the YAML config file (built-in defaults apply when unset)")
	readStdin := flag.Bool("stdin", false,
		"ingest newline-separated lines from standard input")
	showVersion := flag.Bool("version", false,
		"print version information and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("tailcastd %s\n", version.Info())
		return nil
	}

	config := DefaultConfig()
	if *configPath != "" {
		loaded, err := LoadConfig(*configPath)
		if err != nil {
			return err
		}
		config = loaded
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stderrHandler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	daemon, err := newDaemon(config, clock.Real(), stderrHandler)
	if err != nil {
		return err
	}

	// Route default-logger usage through the daemon's handler chain so
	// any stray slog call lands in the stream like everything else.
	slog.SetDefault(daemon.logger)

	var stdin io.Reader
	if *readStdin {
		stdin = os.Stdin
	}
	return daemon.serve(ctx, stdin)
}

// Daemon holds the runtime state shared between the HTTP handlers,
// the broadcaster, the ingest sources, and the admin socket. Created
// once by newDaemon and torn down when serve returns.
type Daemon struct {
	config Config
	clock  clock.Clock

	// logger fans out to stderr and to the live stream. Every line it
	// emits at Info or above is broadcast to subscribers.
	logger *slog.Logger

	filter      *stream.Filter
	queue       *stream.Queue
	registry    *stream.Registry
	backlog     *stream.Backlog
	pipeline    *stream.Pipeline
	broadcaster *stream.Broadcaster

	// archiveWriter is nil when archiving is disabled.
	archiveWriter *archive.Writer

	upgrader      websocket.Upgrader
	subscriberIDs atomic.Uint64

	// shutdown is closed when serve begins tearing down. Websocket
	// read loops watch it so graceful HTTP shutdown is not held open
	// by long-lived subscriber connections.
	shutdown chan struct{}

	startedAt time.Time
}

// newDaemon assembles the stream pipeline and handler chain from
// config. stderrHandler receives every record the daemon logs; records
// at Info and above additionally enter the stream itself.
func newDaemon(config Config, clk clock.Clock, stderrHandler slog.Handler) (*Daemon, error) {
	filter := stream.NewFilter(config.Filter.Rules)
	queue := stream.NewQueue(config.Queue.Capacity)
	registry := stream.NewRegistry()
	backlog := stream.NewBacklog(config.Backlog.Lines)
	pipeline := stream.NewPipeline(filter, queue)

	var archiveWriter *archive.Writer
	if config.Archive.Directory != "" {
		compression, err := archive.ParseCompression(config.Archive.Compression)
		if err != nil {
			return nil, err
		}
		writer, err := archive.NewWriter(archive.Config{
			Directory:       config.Archive.Directory,
			MaxSegmentBytes: config.Archive.MaxSegmentBytes,
			Compression:     compression,
			Clock:           clk,
		})
		if err != nil {
			return nil, fmt.Errorf("opening archive: %w", err)
		}
		archiveWriter = writer
	}

	// The broadcaster logs to stderr only. Giving it the stream-fanout
	// logger would feed its own delivery diagnostics back into the
	// stream it delivers.
	broadcasterConfig := stream.BroadcasterConfig{
		Queue:    queue,
		Registry: registry,
		Backlog:  backlog,
		Logger:   slog.New(stderrHandler),
	}
	if archiveWriter != nil {
		broadcasterConfig.Sink = archiveWriter
	}

	lineHandler := stream.NewLineHandler(pipeline, clk, slog.LevelInfo)

	daemon := &Daemon{
		config:        config,
		clock:         clk,
		logger:        slog.New(fanoutHandler{stderrHandler, lineHandler}),
		filter:        filter,
		queue:         queue,
		registry:      registry,
		backlog:       backlog,
		pipeline:      pipeline,
		broadcaster:   stream.NewBroadcaster(broadcasterConfig),
		archiveWriter: archiveWriter,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// Subscribers are unauthenticated; the stream is an
			// operator surface, so any origin may connect.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		shutdown:  make(chan struct{}),
		startedAt: clk.Now(),
	}
	return daemon, nil
}

// serve runs the daemon until ctx is cancelled: the broadcaster, the
// HTTP surface, the admin socket, and the optional TCP and stdin
// ingest sources. A non-nil stdin is consumed as one more line source.
func (d *Daemon) serve(ctx context.Context, stdin io.Reader) error {
	broadcastDone := make(chan struct{})
	go func() {
		d.broadcaster.Run(ctx)
		close(broadcastDone)
	}()

	httpServer := service.NewHTTPServer(service.HTTPServerConfig{
		Address: d.config.Listen,
		Handler: d.routes(),
		Logger:  d.logger,
	})
	httpDone := make(chan error, 1)
	go func() {
		httpDone <- httpServer.Serve(ctx)
	}()

	select {
	case <-httpServer.Ready():
	case err := <-httpDone:
		return fmt.Errorf("http server failed to start: %w", err)
	case <-ctx.Done():
		return ctx.Err()
	}

	socketServer := service.NewSocketServer(d.config.SocketPath, d.logger)
	d.registerActions(socketServer)
	socketDone := make(chan error, 1)
	go func() {
		socketDone <- socketServer.Serve(ctx)
	}()

	var tcpDone chan struct{}
	if d.config.Ingest.TCPListen != "" {
		listener, err := net.Listen("tcp", d.config.Ingest.TCPListen)
		if err != nil {
			return fmt.Errorf("tcp ingest listen on %s: %w", d.config.Ingest.TCPListen, err)
		}
		d.logger.Info("tcp ingest listening", "address", listener.Addr().String())
		tcpDone = make(chan struct{})
		go func() {
			d.serveTCPIngest(ctx, listener)
			close(tcpDone)
		}()
	}

	if stdin != nil {
		// A blocking read on stdin cannot be interrupted; process
		// exit reclaims this goroutine if the pipe never closes.
		go func() {
			submitted, err := d.ingestLines(stdin)
			if err != nil {
				d.logger.Warn("stdin ingest failed", "error", err)
				return
			}
			d.logger.Info("stdin ingest finished", "lines", submitted)
		}()
	}

	d.logger.Info("ready to accept requests",
		"listen", httpServer.Addr().String(),
		"viewer", fmt.Sprintf("http://%s/", httpServer.Addr()),
		"socket", d.config.SocketPath,
		"queue_capacity", d.config.Queue.Capacity,
		"backlog_lines", d.config.Backlog.Lines,
		"archive", d.config.Archive.Directory != "",
	)

	// Wait for shutdown signal.
	<-ctx.Done()
	d.logger.Info("shutting down")

	// Unblock subscriber read loops so graceful HTTP shutdown is not
	// held open by websocket connections.
	close(d.shutdown)

	if err := <-httpDone; err != nil {
		d.logger.Error("http server error", "error", err)
	}
	if err := <-socketDone; err != nil {
		d.logger.Error("socket server error", "error", err)
	}
	if tcpDone != nil {
		<-tcpDone
	}

	// The broadcaster drains queued lines on cancellation; wait for it
	// before sealing the archive so the final lines are on disk.
	<-broadcastDone
	if d.archiveWriter != nil {
		if err := d.archiveWriter.Close(); err != nil {
			d.logger.Error("closing archive", "error", err)
		}
	}

	return nil
}

// fanoutHandler is a slog.Handler that sends each record to multiple
// underlying handlers. A record is enabled if any sub-handler is
// enabled for that level.
type fanoutHandler []slog.Handler

func (handlers fanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (handlers fanoutHandler) Handle(ctx context.Context, record slog.Record) error {
	for _, handler := range handlers {
		if handler.Enabled(ctx, record.Level) {
			if err := handler.Handle(ctx, record); err != nil {
				return err
			}
		}
	}
	return nil
}

func (handlers fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	derived := make(fanoutHandler, len(handlers))
	for index, handler := range handlers {
		derived[index] = handler.WithAttrs(attrs)
	}
	return derived
}

func (handlers fanoutHandler) WithGroup(name string) slog.Handler {
	derived := make(fanoutHandler, len(handlers))
	for index, handler := range handlers {
		derived[index] = handler.WithGroup(name)
	}
	return derived
}
