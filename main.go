// Command robotgrid starts the robot grid motion server.
//
// It supports two modes:
//  1. "server" (default) – runs the HTTP server exposing REST API, WebSocket, and an /mcp HTTP endpoint
//  2. "stdio-mcp" – runs an MCP stdio server and spins up an internal HTTP API if none is available
//
// Flags control host/port, config locations, debug logging, version output,
// and optional ngrok tunneling for easy external access during development.
package main

import (
	"context"
	"encoding/json"
	"flag"
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
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"

	"github.com/maca/robotgrid/api"
	"github.com/maca/robotgrid/config"
	"github.com/maca/robotgrid/logger"
	robotconfig "github.com/maca/robotgrid/robot/config"
	"github.com/maca/robotgrid/robot/engine"
	"github.com/maca/robotgrid/robot/keymap"
	"github.com/maca/robotgrid/robot/service"
	"github.com/maca/robotgrid/robot/session"
	"github.com/maca/robotgrid/transport/mcp"
	"github.com/maca/robotgrid/transport/websocket"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Robot Grid Server"
)

// Configuration flags control how the server starts and which services are enabled.
var (
	configPath   = flag.String("config", ".", "Directory containing the server config.yaml")
	port         = flag.Int("port", 0, "HTTP server port (overrides config file)")
	host         = flag.String("host", "", "HTTP server host (overrides config file)")
	debug        = flag.Bool("debug", false, "Enable debug logging")
	version      = flag.Bool("version", false, "Show version information")
	ngrokEnabled = flag.Bool("ngrok", false, "Enable ngrok tunnel")
	ngrokAuth    = flag.String("ngrok-auth", "", "Ngrok auth token (or use NGROK_AUTHTOKEN env var)")
	ngrokDomain  = flag.String("ngrok-domain", "", "Custom ngrok domain (optional)")
)

func init() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS] [MODE]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "%s v%s\n\n", AppName, Version)
		fmt.Fprintf(os.Stderr, "Available modes:\n")
		fmt.Fprintf(os.Stderr, "  server, http     Run HTTP server with API, WebSocket, and MCP endpoint (default)\n")
		fmt.Fprintf(os.Stderr, "  stdio-mcp        Run MCP stdio server with internal HTTP server\n")
		fmt.Fprintf(os.Stderr, "  mcp-stdio        Alias for stdio-mcp\n")
		fmt.Fprintf(os.Stderr, "  mcp              Alias for stdio-mcp\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s                    # Run HTTP server on default port 8080\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -port 9090         # Run HTTP server on port 9090\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s stdio-mcp          # Run MCP stdio server\n", os.Args[0])
	}
}

// main parses flags, initializes services, and starts the selected mode.
func main() {
	// Load .env file if it exists (ignore error if not found)
	if err := godotenv.Load(); err == nil {
		fmt.Fprintln(os.Stderr, "Loaded environment variables from .env file")
	}

	flag.Parse()

	// Show version if requested
	if *version {
		fmt.Printf("%s v%s\n", AppName, Version)
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Explicit flags win over the config file.
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *host != "" {
		cfg.Server.Host = *host
	}
	if *debug {
		cfg.Server.Debug = true
	}

	logger.Init(cfg.Server.Debug)
	defer logger.Sync()

	// Determine mode from command
	args := flag.Args()
	mode := "server" // default
	if len(args) > 0 {
		mode = args[0]
	}

	logger.Log.Infow("starting", "app", AppName, "version", Version, "mode", mode)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	motionService, sessionManager, hub, err := initializeServices(ctx, cfg)
	if err != nil {
		logger.Log.Fatalw("failed to initialize services", "error", err)
	}
	defer sessionManager.StopAll()

	switch mode {
	case "stdio-mcp", "mcp-stdio", "mcp":
		runStdioMCP(motionService, hub, cfg)

	case "server", "http":
		runHTTPServer(ctx, cancel, motionService, hub, cfg)

	default:
		logger.Log.Fatalf("unknown mode: %s (use 'server' or 'stdio-mcp')", mode)
	}
}

// initializeServices wires the config manager, keymap, session manager,
// motion service, and WebSocket hub. Session snapshots flow from the
// runners through the manager's change callback into the hub.
func initializeServices(ctx context.Context, cfg *config.Config) (service.MotionService, *session.Manager, *websocket.Hub, error) {
	configManager := robotconfig.NewManager(cfg.Robot.ConfigDir)

	keys := keymap.Default()
	if cfg.Robot.KeymapFile != "" {
		loaded, err := keymap.Load(cfg.Robot.KeymapFile)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to load keymap %s: %w", cfg.Robot.KeymapFile, err)
		}
		keys = loaded
	}

	// The hub is created after the service, so the callback closes over
	// the variable rather than the value.
	var hub *websocket.Hub
	sessionManager := session.NewManager(ctx, func(sessionID string, snap engine.Snapshot) {
		if hub != nil {
			hub.BroadcastSnapshot(sessionID, snap)
		}
	})

	motionService := service.NewMotionService(sessionManager, configManager, keys)

	hub = websocket.NewHub(motionService)
	go hub.Run()

	return motionService, sessionManager, hub, nil
}

// runHTTPServer starts the HTTP server with REST API, WebSocket hub, and an /mcp proxy endpoint.
// If ngrok is enabled (via flag or environment), it also provisions a public tunnel.
func runHTTPServer(ctx context.Context, cancel context.CancelFunc, motionService service.MotionService, hub *websocket.Hub, cfg *config.Config) {
	apiServer := api.NewServer(motionService, hub, cfg.Server.StaticDir)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)

	// Create MCP client for the /mcp endpoint
	baseURL := fmt.Sprintf("http://%s", addr)
	mcpClient := mcp.NewClient(baseURL)

	mainRouter := http.NewServeMux()
	mainRouter.Handle("/", apiServer)
	mainRouter.HandleFunc("/mcp", func(w http.ResponseWriter, r *http.Request) {
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
		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Write(responseData)
	})

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      mainRouter,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Handle shutdown signals
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()

		logger.Log.Infow("HTTP server listening", "addr", addr)
		logger.Log.Infof("REST API: http://%s/api", addr)
		logger.Log.Infof("WebSocket: ws://%s/ws?session=<session_id>", addr)
		logger.Log.Infof("MCP endpoint: http://%s/mcp", addr)

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatalw("HTTP server failed", "error", err)
		}
	}()

	// Check if ngrok should be enabled (from flag or environment)
	ngrokShouldRun := *ngrokEnabled
	if !ngrokShouldRun {
		if envEnabled := os.Getenv("NGROK_ENABLED"); envEnabled == "true" || envEnabled == "1" {
			ngrokShouldRun = true
		}
	}

	if ngrokShouldRun {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runNgrokTunnel(ctx, mainRouter)
		}()
	}

	// Wait for shutdown signal
	sig := <-stop
	logger.Log.Infow("shutting down", "signal", sig.String())
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Log.Warnw("HTTP server shutdown error", "error", err)
	}

	wg.Wait()
	logger.Log.Info("server stopped")
}

// runNgrokTunnel establishes a public tunnel and serves the router through it.
// The auth token and domain come from flags or the NGROK_* environment variables.
func runNgrokTunnel(ctx context.Context, handler http.Handler) {
	authToken := *ngrokAuth
	if authToken == "" {
		authToken = os.Getenv("NGROK_AUTHTOKEN")
		if authToken == "" {
			authToken = os.Getenv("NGROK_AUTH_TOKEN")
		}
	}

	if authToken == "" {
		logger.Log.Warn("ngrok enabled but no auth token provided (use --ngrok-auth, NGROK_AUTHTOKEN, or NGROK_AUTH_TOKEN env var)")
		return
	}

	logger.Log.Info("starting ngrok tunnel")

	domain := *ngrokDomain
	if domain == "" {
		domain = os.Getenv("NGROK_DOMAIN")
	}

	var tunnel ngrokConfig.Tunnel
	if domain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(domain))
		logger.Log.Infow("using custom ngrok domain", "domain", domain)
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx,
		tunnel,
		ngrok.WithAuthtoken(authToken),
	)
	if err != nil {
		logger.Log.Warnw("failed to start ngrok tunnel", "error", err)
		return
	}
	defer func() {
		if err := tun.Close(); err != nil {
			logger.Log.Warnw("failed to close ngrok tunnel", "error", err)
		}
	}()

	ngrokURL := tun.URL()
	logger.Log.Infow("ngrok tunnel established", "url", ngrokURL)
	logger.Log.Infof("  REST API (ngrok): %s/api", ngrokURL)
	logger.Log.Infof("  WebSocket (ngrok): %s/ws?session=<session_id>", ngrokURL)
	logger.Log.Infof("  MCP endpoint (ngrok): %s/mcp", ngrokURL)

	if err := http.Serve(tun, handler); err != nil && err != http.ErrServerClosed {
		logger.Log.Warnw("ngrok server error", "error", err)
	}
	logger.Log.Info("ngrok tunnel closed")
}

// runStdioMCP runs an MCP stdio server.
// It tries to reuse an external API at the configured address; if unavailable, it
// starts a minimal internal HTTP API bound to a random loopback port and targets that.
func runStdioMCP(motionService service.MotionService, hub *websocket.Hub, cfg *config.Config) {
	var baseURL string

	externalURL := fmt.Sprintf("http://%s:%d", cfg.Server.Host, cfg.Server.Port)
	logger.Log.Infow("checking for external API server", "url", externalURL)

	testClient := &http.Client{Timeout: 2 * time.Second}
	resp, err := testClient.Get(externalURL + "/api/health")
	if err == nil && resp.StatusCode < 500 {
		resp.Body.Close()
		logger.Log.Infow("external API server found, using it for MCP", "url", externalURL)
		baseURL = externalURL
	} else {
		logger.Log.Info("no external API server found, starting internal HTTP server")

		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			logger.Log.Fatalw("failed to get available port", "error", err)
		}

		internalPort := listener.Addr().(*net.TCPAddr).Port
		internalAddr := fmt.Sprintf("127.0.0.1:%d", internalPort)

		logger.Log.Infow("starting internal HTTP server for MCP stdio", "addr", internalAddr)

		apiServer := api.NewServer(motionService, hub, cfg.Server.StaticDir)
		httpServer := &http.Server{Handler: apiServer}

		go func() {
			if err := httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
				logger.Log.Warnw("internal HTTP server error", "error", err)
			}
		}()

		// Give the listener a moment before the first MCP request lands.
		time.Sleep(100 * time.Millisecond)

		baseURL = fmt.Sprintf("http://%s", internalAddr)
	}

	mcpClient := mcp.NewClient(baseURL)

	logger.Log.Info("MCP stdio server ready")

	if err := server.ServeStdio(mcpClient.GetMCPServer()); err != nil {
		logger.Log.Fatalw("MCP stdio server error", "error", err)
	}
}
