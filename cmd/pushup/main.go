package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/banshee-data/pushup.report/internal/api"
	"github.com/banshee-data/pushup.report/internal/auth"
	"github.com/banshee-data/pushup.report/internal/config"
	"github.com/banshee-data/pushup.report/internal/db"
	"github.com/banshee-data/pushup.report/internal/framemux"
	"github.com/banshee-data/pushup.report/internal/httputil"
	"github.com/banshee-data/pushup.report/internal/pose"
	"github.com/banshee-data/pushup.report/internal/session"
	"github.com/banshee-data/pushup.report/internal/units"
	"github.com/banshee-data/pushup.report/internal/version"
)

var (
	listen     = flag.String("listen", ":8080", "Listen address")
	dbPath     = flag.String("db", "pushup.db", "Path to the sqlite database")
	configPath = flag.String("config", "", "Tuning config JSON (defaults to "+config.DefaultConfigPath+" when present)")
	port       = flag.String("port", "", "Serial device of the pose estimator")
	baud       = flag.Int("baud", framemux.DefaultBaudRate, "Estimator serial baud rate")
	replay     = flag.String("replay", "", "NDJSON frame file to replay instead of a device")
	unitsFlag  = flag.String("units", units.Degrees, "Default angle units ("+units.GetValidUnitsString()+")")
	authMode   = flag.String("auth", "local", "Identity provider: local or remote")
	authURL    = flag.String("auth-url", auth.DefaultIdentityToolkitURL, "Identity toolkit base URL (remote auth)")
	authKey    = flag.String("auth-api-key", os.Getenv("PUSHUP_AUTH_API_KEY"), "Identity toolkit API key (remote auth)")
	assetsHost = flag.String("echarts-assets", "", "Host prefix for echarts javascript (default CDN)")
	autostart  = flag.Bool("autostart", false, "Start an anonymous session at boot")
	showVer    = flag.Bool("version", false, "Print version and exit")
)

// loadConfig reads the tuning file. With no explicit path the checked-in
// defaults are used when present, otherwise built-in defaults apply.
func loadConfig(path string) (*config.TuningConfig, error) {
	if path != "" {
		return config.LoadTuningConfig(path)
	}
	if _, err := os.Stat(config.DefaultConfigPath); err == nil {
		return config.LoadTuningConfig(config.DefaultConfigPath)
	}
	return config.EmptyTuningConfig(), nil
}

// openEstimator picks the frame source: a serial device, a replay file, or
// none when frames only arrive over HTTP.
func openEstimator(cfg *config.TuningConfig, portPath, replayPath string, baudRate int) (framemux.Interface, error) {
	switch {
	case portPath != "" && replayPath != "":
		return nil, errors.New("-port and -replay are mutually exclusive")
	case portPath != "":
		return framemux.NewRealMux(portPath, framemux.PortOptions{BaudRate: baudRate})
	case replayPath != "":
		lines, err := framemux.ReadReplayFile(replayPath)
		if err != nil {
			return nil, err
		}
		return framemux.NewReplayMux(lines, cfg.GetReplayInterval(), nil)
	default:
		return framemux.NewDisabledMux(), nil
	}
}

func newAuthProvider(mode, baseURL, apiKey string, database *db.DB, cfg *config.TuningConfig) (auth.Provider, error) {
	switch mode {
	case "local":
		return auth.NewLocalProvider(database, cfg.GetTokenTTL()), nil
	case "remote":
		if apiKey == "" {
			return nil, errors.New("remote auth requires -auth-api-key or PUSHUP_AUTH_API_KEY")
		}
		client := httputil.NewStandardClient(&http.Client{Timeout: 10 * time.Second})
		return auth.NewRemoteProvider(client, baseURL, apiKey), nil
	default:
		return nil, fmt.Errorf("unknown auth provider %q (want local or remote)", mode)
	}
}

func newController(cfg *config.TuningConfig, estimator framemux.Interface, database *db.DB) (*session.Controller, error) {
	detector, err := session.ParseDetector(cfg.GetDetector())
	if err != nil {
		return nil, err
	}
	camera, err := pose.ParseCamera(cfg.GetCamera())
	if err != nil {
		return nil, err
	}
	opts := session.Options{
		Thresholds:  cfg.RepThresholds(),
		Detector:    detector,
		Camera:      camera,
		SampleEvery: cfg.GetAngleSampleEvery(),
		Commands:    estimator,
	}
	if database != nil {
		opts.Recorder = database
	}
	return session.New(opts), nil
}

// Main
func main() {
	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		fs := flag.NewFlagSet("migrate", flag.ExitOnError)
		path := fs.String("db", "pushup.db", "Path to the sqlite database")
		_ = fs.Parse(os.Args[2:])
		if err := db.RunMigrateCommand(fs.Args(), *path, os.Stdout); err != nil {
			log.Fatalf("migrate: %v", err)
		}
		return
	}

	flag.Parse()

	if *showVer {
		fmt.Println(version.String())
		return
	}
	if *listen == "" {
		log.Fatal("Listen address is required")
	}
	if !units.IsValid(*unitsFlag) {
		log.Fatalf("invalid -units %q; must be one of: %s", *unitsFlag, units.GetValidUnitsString())
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	estimator, err := openEstimator(cfg, *port, *replay, *baud)
	if err != nil {
		log.Fatalf("failed to open estimator: %v", err)
	}
	defer estimator.Close()

	if err := estimator.Initialize(cfg.GetDetector(), cfg.GetCamera()); err != nil {
		log.Fatalf("failed to initialize estimator: %v", err)
	} else {
		log.Printf("initialized estimator (detector=%s camera=%s)", cfg.GetDetector(), cfg.GetCamera())
	}

	database, err := db.NewDB(*dbPath)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	provider, err := newAuthProvider(*authMode, *authURL, *authKey, database, cfg)
	if err != nil {
		log.Fatalf("failed to configure auth: %v", err)
	}

	ctrl, err := newController(cfg, estimator, database)
	if err != nil {
		log.Fatalf("invalid session config: %v", err)
	}

	// Create a wait group for the HTTP server, estimator monitor, and frame feed routines
	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *autostart {
		if _, err := ctrl.Start(ctx, ""); err != nil {
			log.Fatalf("failed to start session: %v", err)
		}
	}

	// run the monitor routine to manage IO on the estimator port
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := estimator.Monitor(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("failed to monitor estimator: %v", err)
		}
		log.Print("monitor routine terminated")
	}()

	// subscribe to estimator lines and feed them to the session
	wg.Add(1)
	go func() {
		defer wg.Done()
		id, lines := estimator.Subscribe()
		defer estimator.Unsubscribe(id)
		ctrl.Feed(ctx, lines)
		log.Print("feed routine terminated")
	}()

	// HTTP server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()

		apiServer := api.NewServer(ctrl, auth.NewService(provider), database, cfg, *unitsFlag)
		apiServer.ChartAssetsHost = *assetsHost

		mux := http.NewServeMux()
		mux.Handle("/api/", apiServer.Router())
		estimator.AttachAdminRoutes(mux)
		if err := database.AttachAdminRoutes(mux); err != nil {
			log.Printf("failed to attach db admin routes: %v", err)
		}

		server := &http.Server{
			Addr:    *listen,
			Handler: api.LoggingMiddleware(mux),
		}

		// Start server in a goroutine so it doesn't block
		go func() {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()
		log.Printf("%s listening on %s", version.String(), *listen)

		// Wait for context cancellation to shut down server
		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		// Create a shutdown context with a shorter timeout
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
			// Force close the server if graceful shutdown fails
			if err := server.Close(); err != nil {
				log.Printf("HTTP server force close error: %v", err)
			}
		}

		log.Printf("HTTP server routine stopped")
	}()

	// Wait for all goroutines to finish
	wg.Wait()

	if ctrl.Running() {
		if res, err := ctrl.Stop(context.Background()); err != nil {
			log.Printf("failed to finish workout: %v", err)
		} else {
			log.Printf("finished workout %s with %d reps", res.Workout.ID, res.Reps)
		}
	}
	log.Printf("Graceful shutdown complete")
}
