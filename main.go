// Command openworld serves the open world over HTTP, WebSocket and MCP.
//
// Commands:
//  1. "server" (default) runs the REST API, WebSocket hub and an /mcp HTTP endpoint
//  2. "stdio-mcp" runs an MCP stdio server and starts an internal HTTP API if none is available
//  3. "demo" plays the scripted walkthrough against a fresh world and prints every event
//
// Settings come from an optional settings file, OPENWORLD_* environment
// variables and command line flags, in increasing order of precedence.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"
	"github.com/wricardo/mcp-training/openworld/api"
	"github.com/wricardo/mcp-training/openworld/game/config"
	"github.com/wricardo/mcp-training/openworld/game/service"
	"github.com/wricardo/mcp-training/openworld/game/session"
	"github.com/wricardo/mcp-training/openworld/logging"
	"github.com/wricardo/mcp-training/openworld/transport/mcp"
	"github.com/wricardo/mcp-training/openworld/transport/websocket"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Open World Server"
)

func main() {
	// A missing .env is fine
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Warning: error loading .env file: %v\n", err)
	}

	if err := newApp().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", AppName, err)
		os.Exit(1)
	}
}

// newApp builds the command tree. Flags declared on the root are visible
// to every subcommand.
func newApp() *cli.Command {
	return &cli.Command{
		Name:           "openworld",
		Usage:          AppName,
		Version:        Version,
		DefaultCommand: "server",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "settings file (json, yaml or toml)", Sources: cli.EnvVars("OPENWORLD_CONFIG")},
			&cli.StringFlag{Name: "host", Usage: "HTTP server host"},
			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Usage: "HTTP server port"},
			&cli.StringFlag{Name: "scenario-dir", Usage: "directory containing scenario files"},
			&cli.StringFlag{Name: "sessions-dir", Usage: "directory for file session persistence"},
			&cli.StringFlag{Name: "persistence", Usage: "session store: file, sqlite or postgres"},
			&cli.StringFlag{Name: "dsn", Usage: "database DSN for sqlite or postgres persistence"},
			&cli.StringFlag{Name: "log-level", Usage: "trace, debug, info, warn or error"},
			&cli.BoolFlag{Name: "debug", Usage: "shorthand for --log-level debug"},
		},
		Commands: []*cli.Command{
			{
				Name:    "server",
				Aliases: []string{"http"},
				Usage:   "run the HTTP server with REST API, WebSocket and MCP endpoint",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "ngrok", Usage: "expose the server through an ngrok tunnel", Sources: cli.EnvVars("NGROK_ENABLED")},
					&cli.StringFlag{Name: "ngrok-auth", Usage: "ngrok auth token", Sources: cli.EnvVars("NGROK_AUTHTOKEN", "NGROK_AUTH_TOKEN")},
					&cli.StringFlag{Name: "ngrok-domain", Usage: "custom ngrok domain", Sources: cli.EnvVars("NGROK_DOMAIN")},
				},
				Action: runServerCommand,
			},
			{
				Name:    "stdio-mcp",
				Aliases: []string{"mcp-stdio", "mcp"},
				Usage:   "run an MCP stdio server backed by an external or internal HTTP API",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "api-url", Value: "http://localhost:8080", Usage: "external API to reuse when reachable"},
				},
				Action: runStdioCommand,
			},
			{
				Name:  "demo",
				Usage: "play the scripted walkthrough and print every event",
				Flags: []cli.Flag{
					&cli.Int64Flag{Name: "seed", Usage: "random seed, 0 picks one from the clock"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return runDemo(os.Stdout, cmd.Int64("seed"))
				},
			},
		},
	}
}

// loadSettings layers command line flags over the settings file and environment
func loadSettings(cmd *cli.Command) (*config.Settings, error) {
	settings, err := config.LoadSettings(cmd.String("config"))
	if err != nil {
		return nil, err
	}

	if cmd.IsSet("host") {
		settings.Host = cmd.String("host")
	}
	if cmd.IsSet("port") {
		settings.Port = cmd.Int("port")
	}
	if cmd.IsSet("scenario-dir") {
		settings.ScenarioDir = cmd.String("scenario-dir")
	}
	if cmd.IsSet("sessions-dir") {
		settings.SessionsDir = cmd.String("sessions-dir")
	}
	if cmd.IsSet("persistence") {
		settings.Persistence = cmd.String("persistence")
	}
	if cmd.IsSet("dsn") {
		settings.DSN = cmd.String("dsn")
	}
	if cmd.IsSet("log-level") {
		settings.LogLevel = cmd.String("log-level")
	}
	if cmd.Bool("debug") {
		settings.LogLevel = "debug"
	}
	if cmd.IsSet("ngrok-domain") {
		settings.NgrokDomain = cmd.String("ngrok-domain")
	}

	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return settings, nil
}

func runServerCommand(ctx context.Context, cmd *cli.Command) error {
	settings, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	logger := logging.Stderr(settings.LogLevel)
	logger.Info().Str("version", Version).Msgf("Starting %s", AppName)

	svcs, err := initializeServices(settings, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	defer svcs.shutdown()

	tunnel := ngrokOptions{
		enabled:   cmd.Bool("ngrok"),
		authToken: cmd.String("ngrok-auth"),
		domain:    settings.NgrokDomain,
	}
	return runHTTPServer(ctx, settings, svcs.world, tunnel, logger)
}

func runStdioCommand(ctx context.Context, cmd *cli.Command) error {
	settings, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	// stdout carries the MCP protocol
	logger := logging.Stderr(settings.LogLevel)

	svcs, err := initializeServices(settings, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	defer svcs.shutdown()

	return runStdioMCPWithInternalServer(svcs.world, cmd.String("api-url"), logger)
}

// ngrokOptions configures the optional public tunnel
type ngrokOptions struct {
	enabled   bool
	authToken string
	domain    string
}

// newRouter mounts the REST API, the WebSocket hub and the /mcp endpoint
func newRouter(worldService service.WorldService, hub *websocket.Hub, mcpClient *mcp.Client, logger zerolog.Logger) http.Handler {
	router := http.NewServeMux()
	router.Handle("/", api.NewServer(worldService, hub, logger))

	router.HandleFunc("/mcp", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := mcpClient.GetMCPServer().HandleMessage(r.Context(), body)

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(response); err != nil {
			logger.Error().Err(err).Msg("failed to write MCP response")
		}
	})

	return router
}

// runHTTPServer serves until ctx is cancelled or a shutdown signal arrives
func runHTTPServer(ctx context.Context, settings *config.Settings, worldService service.WorldService, tunnel ngrokOptions, logger zerolog.Logger) error {
	hub := websocket.NewHub(logger)
	go hub.Run()

	addr := settings.Addr()
	mcpClient := mcp.NewClient("http://" + localAddr(addr))
	router := newRouter(worldService, hub, mcpClient, logger)

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	serveErr := make(chan error, 1)

	wg.Add(1)
	go func() {
		defer wg.Done()

		logger.Info().
			Str("addr", addr).
			Str("websocket", "/ws?session=<session_id>").
			Str("mcp", "/mcp").
			Msg("HTTP server listening")

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
	}()

	if tunnel.enabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			serveNgrok(ctx, tunnel, router, logger)
		}()
	}

	var err error
	select {
	case <-ctx.Done():
		logger.Info().Msg("Shutting down...")
	case err = <-serveErr:
		logger.Error().Err(err).Msg("HTTP server failed")
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if shutdownErr := httpServer.Shutdown(shutdownCtx); shutdownErr != nil {
		logger.Error().Err(shutdownErr).Msg("HTTP server shutdown error")
	}

	wg.Wait()
	logger.Info().Msg("Server stopped")
	return err
}

// serveNgrok exposes handler through an ngrok tunnel until ctx is done
func serveNgrok(ctx context.Context, opts ngrokOptions, handler http.Handler, logger zerolog.Logger) {
	if opts.authToken == "" {
		logger.Warn().Msg("ngrok enabled but no auth token provided (use --ngrok-auth or NGROK_AUTHTOKEN)")
		return
	}

	var endpoint ngrokConfig.Tunnel
	if opts.domain != "" {
		endpoint = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(opts.domain))
	} else {
		endpoint = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, endpoint, ngrok.WithAuthtoken(opts.authToken))
	if err != nil {
		logger.Error().Err(err).Msg("failed to start ngrok tunnel")
		return
	}

	go func() {
		<-ctx.Done()
		if err := tun.Close(); err != nil {
			logger.Warn().Err(err).Msg("failed to close ngrok tunnel")
		}
	}()

	logger.Info().Str("url", tun.URL()).Msg("ngrok tunnel established")
	if err := http.Serve(tun, handler); err != nil && err != http.ErrServerClosed {
		logger.Debug().Err(err).Msg("ngrok tunnel closed")
	}
}

// localAddr turns a listen address with an empty host into a dialable one
func localAddr(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil || host == "" || host == "0.0.0.0" {
		return net.JoinHostPort("localhost", port)
	}
	return addr
}

// services groups everything main starts and must stop
type services struct {
	world       service.WorldService
	sessions    *session.Manager
	persistence session.SessionPersistence
	cancel      context.CancelFunc
	logger      zerolog.Logger
}

// shutdown stops background routines and flushes sessions to storage
func (s *services) shutdown() {
	s.cancel()
	if err := s.sessions.SaveAllSessions(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to save sessions on shutdown")
	}
}

// initializeServices wires scenarios, the session store and the world
// service, then starts the cleanup and storage sync routines.
func initializeServices(settings *config.Settings, logger zerolog.Logger) (*services, error) {
	scenarios, err := config.NewManager(settings.ScenarioDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create scenario manager: %w", err)
	}
	if settings.DefaultScenario != "" {
		if err := scenarios.SetDefault(settings.DefaultScenario); err != nil {
			logger.Warn().Err(err).Str("scenario", settings.DefaultScenario).Msg("default scenario unavailable, keeping fallback")
		}
	}

	persistence, err := openPersistence(settings, scenarios, logger)
	if err != nil {
		return nil, err
	}

	sessions := session.NewManagerWithPersistence(persistence, logger)
	if err := sessions.LoadPersistedSessions(); err != nil {
		logger.Warn().Err(err).Msg("failed to load persisted sessions")
	}

	ctx, cancel := context.WithCancel(context.Background())
	go sessionCleanupRoutine(ctx, sessions, settings.CleanupEvery, settings.SessionMaxAge, logger)
	go storageSyncRoutine(ctx, sessions, persistence, 5*time.Second, logger)

	return &services{
		world:       service.NewWorldService(sessions, scenarios, logger),
		sessions:    sessions,
		persistence: persistence,
		cancel:      cancel,
		logger:      logger,
	}, nil
}

// openPersistence selects the session store named by settings
func openPersistence(settings *config.Settings, scenarios service.ScenarioManager, logger zerolog.Logger) (session.SessionPersistence, error) {
	switch settings.Persistence {
	case config.DriverSQLite, config.DriverPostgres:
		db, err := session.OpenDatabase(settings.Persistence, settings.DSN, logger)
		if err != nil {
			return nil, err
		}
		store, err := session.NewSQLPersistence(db, scenarios)
		if err != nil {
			return nil, fmt.Errorf("failed to create session persistence: %w", err)
		}
		return store, nil
	default:
		store, err := session.NewFilePersistence(settings.SessionsDir, scenarios)
		if err != nil {
			return nil, fmt.Errorf("failed to create session persistence: %w", err)
		}
		logger.Info().Str("dir", settings.SessionsDir).Msg("using file session store")
		return store, nil
	}
}

// sessionCleanupRoutine periodically removes sessions that have not been
// accessed within maxAge. A zero interval disables cleanup.
func sessionCleanupRoutine(ctx context.Context, manager *session.Manager, every, maxAge time.Duration, logger zerolog.Logger) {
	if every <= 0 || maxAge <= 0 {
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := manager.CleanupExpiredSessions(maxAge); removed > 0 {
				logger.Info().Int("removed", removed).Msg("cleaned up expired sessions")
			}
		}
	}
}

// storageSyncRoutine drops sessions from memory once their stored copy
// has been deleted out of band.
func storageSyncRoutine(ctx context.Context, manager *session.Manager, persistence session.SessionPersistence, every time.Duration, logger zerolog.Logger) {
	if persistence == nil {
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pruneOrphanedSessions(manager, persistence, logger)
		}
	}
}

func pruneOrphanedSessions(manager *session.Manager, persistence session.SessionPersistence, logger zerolog.Logger) int {
	pruned := 0
	for _, sess := range manager.List() {
		if persistence.Exists(sess.ID) {
			continue
		}
		if err := manager.DeleteFromMemory(sess.ID); err == nil {
			pruned++
			logger.Debug().Str("session", sess.ID).Msg("pruned session deleted from storage")
		}
	}
	return pruned
}

// runStdioMCPWithInternalServer runs an MCP stdio server. It reuses the API
// at externalURL when it answers; otherwise it starts an internal HTTP API
// on a random loopback port.
func runStdioMCPWithInternalServer(worldService service.WorldService, externalURL string, logger zerolog.Logger) error {
	baseURL := externalURL

	probe := &http.Client{Timeout: 2 * time.Second}
	resp, err := probe.Get(externalURL + "/healthz")
	if err == nil && resp.StatusCode < 500 {
		resp.Body.Close()
		logger.Info().Str("url", externalURL).Msg("using external API server for MCP")
	} else {
		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return fmt.Errorf("failed to get available port: %w", err)
		}

		hub := websocket.NewHub(logger)
		go hub.Run()

		httpServer := &http.Server{Handler: api.NewServer(worldService, hub, logger)}
		go func() {
			if err := httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
				logger.Error().Err(err).Msg("internal HTTP server error")
			}
		}()
		defer httpServer.Close()

		baseURL = "http://" + listener.Addr().String()
		logger.Info().Str("url", baseURL).Msg("started internal API server for MCP stdio")
	}

	mcpClient := mcp.NewClient(baseURL)
	logger.Info().Msg("MCP stdio server ready")

	if err := server.ServeStdio(mcpClient.GetMCPServer()); err != nil {
		return fmt.Errorf("MCP stdio server error: %w", err)
	}
	return nil
}
