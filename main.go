package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nstehr/saltbot/saltbot-core/agent"
	"github.com/nstehr/saltbot/saltbot-core/config"
	"github.com/nstehr/saltbot/saltbot-core/ipc"
	"github.com/nstehr/saltbot/saltbot-core/rules"
	"github.com/nstehr/saltbot/saltbot-core/trace"
)

const banner = `
 ___  __ _| | |_| |__   ___ | |_
/ __|/ _' | | __| '_ \ / _ \| __|
\__ \ (_| | | |_| |_) | (_) | |_
|___/\__,_|_|\__|_.__/ \___/ \__|

Scripted Protoss Sidecar`

// server holds what every connection shares.
type server struct {
	cfg       config.Config
	validator *ipc.Validator
	recorder  *trace.Recorder
	ctx       context.Context
}

func main() {
	configPath := flag.String("config", "saltbot.yaml", "path to YAML config")
	profile := flag.String("profile", "", "agent profile (mine-minerals, build-order, macro)")
	socketPath := flag.String("socket", "", "unix socket path")
	transport := flag.String("transport", "", "transport: unix or websocket")
	listenAddr := flag.String("listen", "", "websocket listen address")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if *profile != "" {
		cfg.Profile = *profile
	}
	if *socketPath != "" {
		cfg.SocketPath = *socketPath
	}
	if *transport != "" {
		cfg.Transport = *transport
	}
	if *listenAddr != "" {
		cfg.ListenAddr = *listenAddr
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	level, _ := config.ParseLevel(cfg.LogLevel)
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	fmt.Println(banner)

	slog.Info("starting saltbot", "profile", cfg.Profile, "transport", cfg.Transport)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &server{cfg: cfg, ctx: ctx}
	if cfg.ValidateMessages {
		srv.validator, err = ipc.NewValidator()
		if err != nil {
			slog.Error("failed to build message schemas", "error", err)
			os.Exit(1)
		}
	}
	srv.recorder, err = openRecorder(cfg)
	if err != nil {
		slog.Error("failed to open trace recorder", "error", err)
		os.Exit(1)
	}
	if srv.recorder != nil {
		defer srv.recorder.Close()
	}

	switch cfg.Transport {
	case config.TransportWebsocket:
		err = srv.serveWebsocket(ctx)
	default:
		err = srv.serveUnix(ctx)
	}
	if err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
	slog.Info("shutting down")
}

func openRecorder(cfg config.Config) (*trace.Recorder, error) {
	if cfg.TraceDir == "" && cfg.IndexPath == "" {
		return nil, nil
	}
	var idx *trace.Index
	if cfg.IndexPath != "" {
		var err error
		idx, err = trace.OpenIndex(cfg.IndexPath)
		if err != nil {
			return nil, err
		}
	}
	slog.Info("recording episodes", "traceDir", cfg.TraceDir, "index", cfg.IndexPath)
	return trace.NewRecorder(cfg.TraceDir, idx), nil
}

func (s *server) serveUnix(ctx context.Context) error {
	path := s.cfg.SocketPath

	// Unix sockets leave behind a file on unclean shutdown; remove it so we can rebind.
	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("clean up socket %s: %w", path, err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", path, err)
	}
	defer os.Remove(path)

	slog.Info("listening on domain socket", "path", path)

	go func() {
		<-ctx.Done()
		listener.Close()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				slog.Error("failed to accept connection", "error", err)
				continue
			}
		}
		slog.Info("new connection accepted")
		go s.handle(ipc.NewFramedTransport(conn))
	}
}

func (s *server) serveWebsocket(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle("/ws", ipc.WebsocketHandler(s.handle))
	hs := &http.Server{
		Addr:              s.cfg.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = hs.Shutdown(shutdownCtx)
	}()

	slog.Info("listening for websocket hosts", "addr", s.cfg.ListenAddr, "path", "/ws")
	if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// handle runs one host session until the transport closes. Each session gets
// its own engine so a hello override never leaks into other players.
func (s *server) handle(t ipc.Transport) {
	p, err := s.cfg.AgentProfile()
	if err != nil {
		slog.Error("profile unavailable", "error", err)
		t.Close()
		return
	}
	engine, err := rules.NewEngine(p, s.cfg.AgentRegistry())
	if err != nil {
		slog.Error("failed to build rule engine", "error", err)
		t.Close()
		return
	}

	c := ipc.NewConnection(t, nil)
	a := agent.New(s.ctx, c, engine)
	a.Validator = s.validator
	a.StepDelay = s.cfg.StepDelay
	a.Profiles = func(name string) (rules.Profile, error) {
		cfg := s.cfg
		cfg.Profile = name
		return cfg.AgentProfile()
	}
	if s.recorder != nil {
		a.Recorder = s.recorder
	}
	a.Register()
	c.ReadLoop()

	a.EndEpisode("disconnected")
}
