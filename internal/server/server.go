// Package server runs the zeroframe gateway: a websocket bridge to ZeroNet, the COMMS
// command subscription in front of it, push forwarding and the HTTP health endpoint.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	comms "github.com/nats-io/nats.go"

	"github.com/morezero/zeroframe/internal/config"
	"github.com/morezero/zeroframe/pkg/acl"
	"github.com/morezero/zeroframe/pkg/bridge"
	"github.com/morezero/zeroframe/pkg/commsutil"
	"github.com/morezero/zeroframe/pkg/db"
	"github.com/morezero/zeroframe/pkg/dispatcher"
	"github.com/morezero/zeroframe/pkg/events"
	"github.com/morezero/zeroframe/pkg/reply"
)

const logPrefix = "server:server"

// upstreamState reports whether the ZeroNet connection is alive.
type upstreamState interface {
	Connected() bool
}

// commsState reports the COMMS connection status.
type commsState interface {
	Status() comms.Status
}

// pinger checks the optional mirror database.
type pinger interface {
	Ping(ctx context.Context) error
}

// Server is the zeroframe gateway orchestrator.
type Server struct {
	cfg        *config.Config
	upstream   upstreamState
	comms      commsState
	db         pinger
	policy     *acl.Policy
	started    time.Time
	httpServer *http.Server
}

// HealthOutput is the /health response body.
type HealthOutput struct {
	Status    string          `json:"status"`
	Timestamp string          `json:"timestamp"`
	Uptime    string          `json:"uptime"`
	Policy    string          `json:"policy,omitempty"`
	Checks    map[string]bool `json:"checks"`
}

// Run starts the gateway, blocks until a shutdown signal or loss of the ZeroNet
// connection, then cleans up.
func Run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("%s - failed to load config: %w", logPrefix, err)
	}
	SetupLogging(cfg.LogLevel)

	if err := cfg.ValidateForServe(); err != nil {
		return err
	}

	slog.Info(fmt.Sprintf("%s - Starting zeroframe-gateway", logPrefix))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := &Server{cfg: cfg, started: time.Now()}

	// Step 1: Load the command policy
	policy, err := acl.LoadPolicy(cfg.ACLFile)
	if err != nil {
		return fmt.Errorf("%s - failed to load ACL policy: %w", logPrefix, err)
	}
	s.policy = policy

	// Step 2: Connect to ZeroNet
	ws, err := dialZeroNet(ctx, cfg)
	if err != nil {
		return err
	}
	defer ws.Close()
	s.upstream = ws

	// Step 3: Connect to COMMS
	nc, err := commsutil.Connect(cfg.COMMSURL, cfg.COMMSName)
	if err != nil {
		return fmt.Errorf("%s - failed to connect to COMMS: %w", logPrefix, err)
	}
	defer nc.Close()
	s.comms = nc

	// Step 4: Optional mirror database
	if cfg.RunMigrations {
		pool, err := openMirror(ctx, cfg)
		if err != nil {
			return err
		}
		defer pool.Close()
		s.db = pool
	}

	// Step 5: Dispatcher and command subscription
	disp := dispatcher.NewDispatcher(dispatcher.NewDispatcherParams{
		Upstream: ws,
		Policy:   policy,
		Config:   cfg.DispatcherConfig(),
	})
	subject := cfg.CommandSubjectName()
	sub, err := dispatcher.Subscribe(ctx, nc, subject, disp)
	if err != nil {
		return fmt.Errorf("%s - failed to subscribe: %w", logPrefix, err)
	}
	defer sub.Unsubscribe()

	// Step 6: Republish host pushes
	publisher := events.NewCommsPublisher(nc, &events.CommsPublisherOpts{SubjectPrefix: cfg.EventPrefix})
	ForwardPushes(ctx, ws, publisher, cfg.Site, cfg.Pushes())

	// Step 7: HTTP health server
	s.httpServer = &http.Server{Addr: cfg.HTTPListenAddr(), Handler: s.routes(), ReadHeaderTimeout: 10 * time.Second}
	go func() {
		slog.Info(fmt.Sprintf("%s - HTTP health server listening on %s", logPrefix, s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			slog.Error(fmt.Sprintf("%s - HTTP server error: %v", logPrefix, err))
		}
	}()

	slog.Info(fmt.Sprintf("%s - Gateway is ready on %s", logPrefix, subject))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	var runErr error
	select {
	case sig := <-sigCh:
		slog.Info(fmt.Sprintf("%s - Received signal %s, shutting down", logPrefix, sig))
	case <-ws.Done():
		runErr = fmt.Errorf("%s - ZeroNet connection lost", logPrefix)
		slog.Error(runErr.Error())
	}

	// Graceful shutdown
	_ = sub.Unsubscribe()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = s.httpServer.Shutdown(shutdownCtx)
	if err := nc.Drain(); err != nil {
		slog.Warn(fmt.Sprintf("%s - COMMS drain: %v", logPrefix, err))
	}

	slog.Info(fmt.Sprintf("%s - Shutdown complete", logPrefix))
	return runErr
}

// SetupLogging installs the default slog text handler at level.
func SetupLogging(level string) {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))
}

func dialZeroNet(ctx context.Context, cfg *config.Config) (*bridge.WSBridge, error) {
	key := cfg.WrapperKey
	if key == "" {
		discoverCtx, cancel := context.WithTimeout(ctx, cfg.HandshakeTimeout)
		defer cancel()
		var err error
		key, err = bridge.DiscoverWrapperKey(discoverCtx, nil, cfg.UIURL, cfg.Site)
		if err != nil {
			return nil, fmt.Errorf("%s - failed to discover wrapper key: %w", logPrefix, err)
		}
		slog.Info(fmt.Sprintf("%s - Discovered wrapper key for %s", logPrefix, cfg.Site))
	}

	dialCtx, cancel := context.WithTimeout(ctx, cfg.HandshakeTimeout)
	defer cancel()
	ws, err := bridge.DialWS(dialCtx, bridge.WSOptions{
		URL:              cfg.UIURL + "/Websocket",
		WrapperKey:       key,
		HandshakeTimeout: cfg.HandshakeTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("%s - failed to connect to ZeroNet: %w", logPrefix, err)
	}
	slog.Info(fmt.Sprintf("%s - Connected to ZeroNet at %s", logPrefix, cfg.UIURL))
	return ws, nil
}

func openMirror(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("%s - failed to connect to database: %w", logPrefix, err)
	}
	migrationSQL, err := db.LoadMigrationFiles(cfg.MigrationPath)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("%s - failed to load migrations: %w", logPrefix, err)
	}
	if err := db.RunMigrations(ctx, pool, migrationSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%s - failed to run migrations: %w", logPrefix, err)
	}
	return pool, nil
}

// ForwardPushes republishes the named host-initiated commands received on b.
func ForwardPushes(ctx context.Context, b bridge.Bridge, pub events.EventPublisher, site string, cmds []string) {
	for _, cmd := range cmds {
		b.OnCommand(cmd, func(cmd string, params reply.Reply) {
			if err := pub.PublishPush(ctx, events.NewPushEvent(site, cmd, params)); err != nil {
				slog.Warn(fmt.Sprintf("%s - failed to forward %s: %v", logPrefix, cmd, err))
			}
		})
		slog.Info(fmt.Sprintf("%s - Forwarding %s pushes", logPrefix, cmd))
	}
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/ready", s.handleReady)
	return mux
}

// Health checks every dependency the gateway holds.
func (s *Server) Health(ctx context.Context) *HealthOutput {
	checks := map[string]bool{
		"zeronet": s.upstream != nil && s.upstream.Connected(),
		"comms":   s.comms != nil && s.comms.Status() == comms.CONNECTED,
	}
	if s.db != nil {
		checks["database"] = s.db.Ping(ctx) == nil
	}

	status := "healthy"
	for _, ok := range checks {
		if !ok {
			status = "unhealthy"
		}
	}

	out := &HealthOutput{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
	}
	if !s.started.IsZero() {
		out.Uptime = time.Since(s.started).Round(time.Second).String()
	}
	if s.policy != nil {
		out.Policy = s.policy.Name
	}
	return out
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.HealthCheckTimeout)
	defer cancel()
	h := s.Health(ctx)
	w.Header().Set("Content-Type", "application/json")
	if h.Status != "healthy" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(h)
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if s.upstream == nil || !s.upstream.Connected() {
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "not ready"})
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ready"})
}
