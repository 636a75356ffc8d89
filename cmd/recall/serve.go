package main

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/soheilhy/cmux"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"go.klb.dev/recall/internal/clip"
	"go.klb.dev/recall/internal/grpcservice"
	"go.klb.dev/recall/internal/httpapi"
	"go.klb.dev/recall/internal/ipc"
	"go.klb.dev/recall/internal/logging"
	"go.klb.dev/recall/internal/notify"
	"go.klb.dev/recall/internal/query"
	"go.klb.dev/recall/internal/store"
	"go.klb.dev/recall/internal/tlsconf"
	"go.klb.dev/recall/internal/watcher"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the clipboard history daemon",
		Long: `Starts the recall daemon. It watches the clipboard, stores every new
entry in a SQLite database and serves the history over gRPC and HTTP.

The local IPC socket is always unauthenticated and restricted to the
current user. With --addr the daemon also listens on TCP; that listener
uses TLS keyed from --token, and every request must carry the token.
--addr is refused without --token.

Precedence (lowest → highest): defaults → config file → RECALL_* env vars → flags`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(cmd *cobra.Command, _ []string) error { return runServe(cmd.Context(), v) },
	}

	f := cmd.Flags()
	f.String("data-dir", defaultDataDir(), "directory for the database and log file")
	f.String("db", "", "database path (default <data-dir>/recall.db)")
	f.String("log-file", "", "append-only log file (default <data-dir>/recall.log)")
	f.Duration("poll-interval", watcher.DefaultPollInterval, "clipboard poll interval when change notifications are unavailable")
	f.String("addr", "", "TCP listen address, e.g. 0.0.0.0:8752 (empty = IPC only)")
	f.String("token", "", "shared secret for the TCP listener, required with --addr (also keys its TLS)")
	f.Bool("no-ipc", false, "do not listen on the local IPC socket")
	f.Bool("no-watch", false, "serve existing history without watching the clipboard")
	f.String("source", defaultSource(), "name for this host in logs")
	addLoggingFlags(cmd)
	addConfigFlag(cmd)

	return cmd
}

func runServe(parent context.Context, v *viper.Viper) error {
	dataDir := v.GetString("data-dir")
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return fmt.Errorf("data dir: %w", err)
	}
	dbPath := orDefault(v.GetString("db"), filepath.Join(dataDir, "recall.db"))
	logPath := orDefault(v.GetString("log-file"), filepath.Join(dataDir, "recall.log"))

	sink, sinkErr := logging.OpenFileSink(logPath, slog.LevelInfo)
	if sinkErr == nil {
		defer sink.Close()
		setupLogging(v, sink)
	} else {
		setupLogging(v)
		slog.Warn("log file unavailable", "path", logPath, "err", sinkErr)
	}

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := v.GetString("addr")
	token := v.GetString("token")
	noIPC := v.GetBool("no-ipc")
	noWatch := v.GetBool("no-watch")
	if err := checkTCPAuth(addr, token); err != nil {
		return err
	}
	interval := v.GetDuration("poll-interval")
	if interval <= 0 {
		interval = watcher.DefaultPollInterval
	}

	st, err := store.Open(ctx, dbPath)
	if err != nil {
		return err
	}
	defer st.Close()

	backend := clip.New()
	defer backend.Close()

	h := notify.New()
	defer h.Close()

	svc := query.NewService(st, backend)

	strategyName := "disabled"
	var strategy watcher.Strategy
	if !noWatch {
		strategy = watcher.SelectStrategy(backend, clip.NewListener(), interval)
		strategyName = strategy.Name()
	}

	slog.Info("recall daemon starting",
		"version", Version,
		"source", v.GetString("source"),
		"db", dbPath,
		"clipboard", backend.Name(),
		"strategy", strategyName,
		"addr", addr,
		"ipc", !noIPC,
	)

	g, gctx := errgroup.WithContext(ctx)

	if strategy != nil {
		w := watcher.New(strategy, watcher.DefaultQueueSize)
		d := watcher.NewDispatcher(w.Queue(), st, h)
		g.Go(func() error { return w.Run(gctx) })
		g.Go(func() error { return d.Run(gctx) })
	}

	opts := grpcservice.Options{
		Version:   Version,
		Strategy:  strategyName,
		Clipboard: backend.Name(),
		Database:  dbPath,
		StartedAt: time.Now(),
		Counter:   st,
	}

	listening := 0
	if !noIPC {
		ln, err := ipc.Listen()
		if err != nil {
			slog.Warn("IPC socket unavailable", "path", ipc.SocketPath(), "err", err)
		} else {
			slog.Info("IPC socket listening", "path", ipc.SocketPath())
			serveListener(gctx, g, "ipc", ln, svc, h, opts)
			listening++
		}
	}

	if addr != "" {
		pair, err := tlsconf.Derive(token)
		if err != nil {
			return fmt.Errorf("tls: %w", err)
		}
		ln, err := net.Listen("tcp", addr)
		if err != nil {
			return fmt.Errorf("listen %s: %w", addr, err)
		}
		slog.Info("listening", "addr", ln.Addr())
		tcpOpts := opts
		tcpOpts.Token = token
		serveListener(gctx, g, "tcp", tls.NewListener(ln, pair.Server), svc, h, tcpOpts)
		listening++
	}

	if listening == 0 {
		slog.Warn("no listeners; history is recorded but cannot be queried")
	}

	// Closing the hub ends open Watch and SSE streams so the servers can
	// drain.
	g.Go(func() error {
		<-gctx.Done()
		h.Close()
		return nil
	})

	err = g.Wait()
	slog.Info("recall daemon stopped")
	return err
}

// serveListener splits ln into gRPC and HTTP/1.1 traffic and serves both
// until ctx is done.
func serveListener(ctx context.Context, g *errgroup.Group, name string, ln net.Listener, svc *query.Service, h *notify.Hub, opts grpcservice.Options) {
	m := cmux.New(ln)
	grpcL := m.MatchWithWriters(cmux.HTTP2MatchHeaderFieldPrefixSendSettings("content-type", "application/grpc"))
	httpL := m.Match(cmux.Any())

	grpcSrv := grpc.NewServer(grpcservice.ServerOptions()...)
	grpcservice.Register(grpcSrv, grpcservice.New(svc, h, opts))

	httpSrv := &http.Server{
		Handler:           httpapi.NewRouter(&httpapi.Deps{Query: svc, Hub: h, Token: opts.Token}),
		ReadHeaderTimeout: 10 * time.Second,
		Protocols:         new(http.Protocols),
	}
	httpSrv.Protocols.SetHTTP1(true)
	httpSrv.Protocols.SetUnencryptedHTTP2(true)

	log := slog.With("listener", name)

	g.Go(func() error { return serveErr(ctx, "grpc", grpcSrv.Serve(grpcL)) })
	g.Go(func() error { return serveErr(ctx, "http", httpSrv.Serve(httpL)) })
	g.Go(func() error { return serveErr(ctx, "mux", m.Serve()) })
	g.Go(func() error {
		<-ctx.Done()
		log.Debug("listener shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			log.Warn("http shutdown", "err", err)
		}
		grpcSrv.Stop()
		m.Close()
		return nil
	})
}

// checkTCPAuth rejects a TCP listener that would accept unauthenticated
// clients.
func checkTCPAuth(addr, token string) error {
	if addr != "" && token == "" {
		return errors.New("--addr requires --token")
	}
	return nil
}

// serveErr drops the errors servers return once shutdown has begun.
func serveErr(ctx context.Context, what string, err error) error {
	if err == nil || ctx.Err() != nil {
		return nil
	}
	return fmt.Errorf("%s: %w", what, err)
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
