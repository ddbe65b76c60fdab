package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ffbot/ffbot-core/agent"
	"github.com/ffbot/ffbot-core/config"
	"github.com/ffbot/ffbot-core/ipc"
	"github.com/ffbot/ffbot-core/outcome"
	"github.com/ffbot/ffbot-core/rules"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Listen for game servers on the unix socket",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			slog.SetDefault(newLogger(os.Stdout, cfg.Log))
			return serve(cmd.Context(), cfg)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	slog.Info("starting ffbot", "socket", cfg.Socket.Path)

	engine, err := loadEngine(cfg.Planner.DoctrineFile)
	if err != nil {
		return err
	}

	sinks, ws, closeFiles, err := outcomeSinks(cfg.Outcome)
	if err != nil {
		return err
	}
	defer closeFiles()
	router := outcome.NewRouter(cfg.Outcome.BufferSize, sinks)

	// Unix sockets leave behind a file on unclean shutdown; remove it so we can rebind.
	if err := os.RemoveAll(cfg.Socket.Path); err != nil {
		return fmt.Errorf("clean up socket %s: %w", cfg.Socket.Path, err)
	}
	listener, err := net.Listen("unix", cfg.Socket.Path)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", cfg.Socket.Path, err)
	}
	defer os.Remove(cfg.Socket.Path)
	slog.Info("listening on domain socket", "path", cfg.Socket.Path)

	opts := agent.DefaultOptions()
	opts.Costs = cfg.Nav.Costs()
	opts.ThreatPerEnemy = cfg.Nav.ThreatPerEnemy
	opts.Planner = cfg.Planner
	opts.Executor = cfg.Executor
	opts.MeshDir = cfg.Data.MeshDir
	opts.ClassFile = cfg.Data.ClassFile
	opts.Store = router
	opts.Engine = engine

	conns := newConnSet()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		for {
			conn, err := listener.Accept()
			if err != nil {
				if gctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("accept: %w", err)
			}
			c := ipc.NewConnection(conn, nil)
			a := agent.New(opts)
			a.Register(c)
			slog.Info("new connection accepted", "session", a.Session)
			conns.run(c)
		}
	})

	var srv *http.Server
	if ws != nil {
		mux := http.NewServeMux()
		mux.Handle("/outcomes", ws)
		srv = &http.Server{Addr: cfg.Outcome.WebSocketAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		g.Go(func() error {
			slog.Info("serving task outcomes", "addr", srv.Addr)
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("outcome server: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		reloadOnHangup(gctx, engine, cfg.Planner.DoctrineFile)
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down")
		listener.Close()
		conns.closeAll()
		if srv != nil {
			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(sctx)
		}
		return nil
	})

	err = g.Wait()
	conns.wait()

	cctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if cerr := router.Close(cctx); cerr != nil {
		slog.Error("closing outcome sinks", "error", cerr)
	}
	stats := router.Stats()
	slog.Info("stopped", "published", stats.Published, "dropped", stats.Dropped)
	return err
}

const (
	sinkJSON      = "json"
	sinkWebSocket = "websocket"
)

func outcomeSinks(oc config.OutcomeConfig) ([]outcome.NamedSink, *outcome.WebSocketSink, func(), error) {
	var (
		sinks []outcome.NamedSink
		ws    *outcome.WebSocketSink
	)
	closeFiles := func() {}
	if oc.JSONPath != "" {
		f, err := os.OpenFile(oc.JSONPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("open outcome log: %w", err)
		}
		closeFiles = func() { f.Close() }
		sinks = append(sinks, outcome.NamedSink{Name: sinkJSON, Sink: outcome.NewJSONSink(f, oc.FlushInterval)})
	}
	if oc.WebSocketAddr != "" {
		ws = outcome.NewWebSocketSink()
		sinks = append(sinks, outcome.NamedSink{Name: sinkWebSocket, Sink: ws})
	}
	return sinks, ws, closeFiles, nil
}

// reloadOnHangup recompiles the doctrine on SIGHUP. A doctrine that fails to
// load or compile leaves the running rules in place.
func reloadOnHangup(ctx context.Context, engine *rules.Engine, path string) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
		}
		if path == "" {
			slog.Warn("SIGHUP ignored, no doctrine file configured")
			continue
		}
		d, err := rules.LoadDoctrine(path)
		if err != nil {
			slog.Warn("doctrine reload failed", "path", path, "error", err)
			continue
		}
		if err := engine.Swap(rules.CompileDoctrine(d)); err != nil {
			slog.Warn("doctrine rejected, keeping previous rules", "path", path, "error", err)
			continue
		}
		slog.Info("doctrine reloaded", "name", d.Name)
	}
}

// connSet tracks live connections so shutdown can close them and wait for
// their read loops.
type connSet struct {
	mu     sync.Mutex
	conns  map[*ipc.Connection]struct{}
	closed bool
	wg     sync.WaitGroup
}

func newConnSet() *connSet {
	return &connSet{conns: make(map[*ipc.Connection]struct{})}
}

func (s *connSet) run(c *ipc.Connection) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		c.Close()
		return
	}
	s.conns[c] = struct{}{}
	s.mu.Unlock()
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		c.ReadLoop()
		s.mu.Lock()
		delete(s.conns, c)
		s.mu.Unlock()
	}()
}

func (s *connSet) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for c := range s.conns {
		c.Close()
	}
}

func (s *connSet) wait() { s.wg.Wait() }
