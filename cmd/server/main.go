// Package main provides the server entry point.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	apihttp "github.com/cadenza-player/cadenza/internal/api/http"
	"github.com/cadenza-player/cadenza/internal/app/library"
	"github.com/cadenza-player/cadenza/internal/app/player"
	"github.com/cadenza-player/cadenza/internal/app/remote"
	"github.com/cadenza-player/cadenza/internal/infra/config"
	"github.com/cadenza-player/cadenza/internal/infra/engine"
	"github.com/cadenza-player/cadenza/internal/infra/logger"
	"github.com/cadenza-player/cadenza/internal/infra/scanner"
	"github.com/cadenza-player/cadenza/internal/infra/store"
)

var (
	app        = kingpin.New("cadenza-server", "cadenza music player daemon")
	configPath = app.Flag("config", "Path to config file").Default("config/cadenza.yaml").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: stdout)").String()

	// scan command
	scanCmd = app.Command("scan", "Scan the library once and exit")
)

func init() {
	// start command (default) - no need to store the command
	app.Command("start", "Start the daemon (default)").Default()
}

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	// Parse command
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	// Initialize logger
	loggerConfig := logger.Config{
		Output: "stdout",
		Level:  "info",
	}
	// Override with command-line flags if specified
	if *verbose {
		loggerConfig.Level = "debug"
	}
	if *logfile != "" {
		loggerConfig.Output = *logfile
	}
	if err := logger.Init(loggerConfig); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}

	// Load config
	zlog.Info().Msgf("Loading config from %s", *configPath)
	cfg, err := config.Load(*configPath)
	if err != nil {
		zlog.Fatal().Msgf("Failed to load config: %v", err)
	}

	// The config file may raise the log level; flags win when given.
	if !*verbose && cfg.Log.Level != "" {
		loggerConfig.Level = cfg.Log.Level
		if err := logger.Init(loggerConfig); err != nil {
			zlog.Fatal().Msgf("Failed to initialize logger: %v", err)
		}
	}

	if command == scanCmd.FullCommand() {
		if err := runScan(cfg); err != nil {
			zlog.Error().Msgf("Scan error: %v", err)
			os.Exit(1)
		}
		return
	}

	// Run server (defer ensures cleanup is called)
	if err := run(cfg); err != nil {
		zlog.Error().Msgf("Server error: %v", err)
		os.Exit(1)
	}
}

// run executes the main server logic. Using a separate function ensures
// defer statements are executed even when returning with an error.
func run(cfg *config.Config) error {
	ctx := context.Background()

	// Open the library database
	db, err := store.Open(cfg.Library.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	// Create the media scanner from configured sources
	sc, err := scanner.FromConfig(cfg.Library.Sources)
	if err != nil {
		return fmt.Errorf("invalid library sources: %w", err)
	}

	// Create the playback controller on the wall-clock engine
	eng := engine.NewClockEngine()
	ctrl := player.NewController(eng, player.Config{
		ProgressInterval: cfg.Player.ProgressInterval(),
		RestartThreshold: cfg.Player.RestartThreshold(),
	})
	defer ctrl.Close()

	// Create the library manager and wire the play-count hook
	mgr := library.NewManager(db, sc, ctrl)
	ctrl.SetTrackStartedFunc(mgr.OnTrackStarted)

	// Warm the caches from whatever the database already holds
	if err := mgr.Refresh(ctx); err != nil {
		return fmt.Errorf("failed to load library: %w", err)
	}

	// Create remote catalog providers (optional)
	var chain *remote.Chain
	if len(cfg.Remote.Providers) > 0 {
		chain, err = remote.NewChainFromConfig(ctx, cfg.Remote.Providers)
		if err != nil {
			return fmt.Errorf("failed to create remote providers: %w", err)
		}
	}

	// Build the HTTP API
	var searcher apihttp.RemoteSearcher
	if chain != nil {
		searcher = chain
	}
	handler := apihttp.New(mgr, ctrl, searcher)

	// Create server with h2c (HTTP/2 cleartext) support
	serverAddr := cfg.Server.Addr
	server := &http.Server{
		Addr:    serverAddr,
		Handler: h2c.NewHandler(handler.Router(), &http2.Server{}),
	}

	// Channel to capture server startup errors
	serverErrCh := make(chan error, 1)
	serverStartedCh := make(chan struct{})

	// Kick off an initial scan in the background
	if runID, err := mgr.StartScan(); err != nil {
		zlog.Warn().Msgf("Initial scan not started: %v", err)
	} else {
		zlog.Info().Msgf("Initial scan started: run_id=%s", runID)
	}

	// Start server
	go func() {
		zlog.Info().Msgf("Starting server: addr=%s", serverAddr)
		// Signal that we're about to start listening
		close(serverStartedCh)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- err
		}
	}()

	// Wait for server to start listening
	<-serverStartedCh

	// Wait for shutdown signal or server error
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		zlog.Info().Msg("Received shutdown signal...")
	case err := <-serverErrCh:
		return fmt.Errorf("server error: %w", err)
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zlog.Error().Msgf("Failed to shutdown server: %v", err)
	}

	zlog.Info().Msg("Server stopped")
	return nil
}

// runScan performs a single foreground library scan.
func runScan(cfg *config.Config) error {
	db, err := store.Open(cfg.Library.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	sc, err := scanner.FromConfig(cfg.Library.Sources)
	if err != nil {
		return fmt.Errorf("invalid library sources: %w", err)
	}

	mgr := library.NewManager(db, sc, nil)
	result, err := mgr.Scan(context.Background())
	if err != nil {
		return err
	}

	fmt.Printf("Scanned %d songs (run %s)\n", result.Scanned, result.RunID)
	return nil
}
