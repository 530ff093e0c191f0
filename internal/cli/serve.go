package cli

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lazypower/caffeine/internal/catalog"
	"github.com/lazypower/caffeine/internal/config"
	"github.com/lazypower/caffeine/internal/engine"
	"github.com/lazypower/caffeine/internal/intake"
	"github.com/lazypower/caffeine/internal/logging"
	"github.com/lazypower/caffeine/internal/server"
	"github.com/lazypower/caffeine/internal/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

var (
	serveDB       string
	serveHalfLife float64
	servePort     int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server and live level sampler",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveDB, "db", "", "Journal intakes to this SQLite file (default in-memory only)")
	serveCmd.Flags().Float64Var(&serveHalfLife, "half-life", 0, "Caffeine half-life in hours (overrides $CAFFEINE_HALF_LIFE_HOURS)")
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Listen port (overrides $CAFFEINE_PORT)")
}

// loadConfig reads .env and CAFFEINE_* variables, then applies serve flags.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	// A missing .env is normal.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return cfg, fmt.Errorf("load config: %w", err)
	}
	if cmd.Flags().Changed("db") {
		cfg.Database.Path = serveDB
	}
	if cmd.Flags().Changed("half-life") {
		cfg.Model.HalfLifeHours = serveHalfLife
	}
	if cmd.Flags().Changed("port") {
		cfg.Server.Port = servePort
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func loadCatalog(cfg config.Config) (*catalog.Catalog, error) {
	if cfg.Drinks == "" {
		return catalog.Default(), nil
	}
	return catalog.LoadFile(cfg.Drinks)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)
	if err != nil {
		return err
	}

	drinks, err := loadCatalog(cfg)
	if err != nil {
		return fmt.Errorf("load drinks: %w", err)
	}

	// Cancelled on shutdown so open level streams and the catalog watcher return.
	baseCtx, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()

	if cfg.Drinks != "" {
		if err := catalog.Watch(baseCtx, cfg.Drinks, drinks, logger); err != nil {
			logger.WithError(err).Warn("catalog hot reload disabled")
		}
	}

	intakes := intake.NewStore(nil)
	intakes.SetLogger(logger)

	if cfg.Database.Path != "" {
		db, err := store.Open(cfg.Database.Path)
		if err != nil {
			return fmt.Errorf("open journal: %w", err)
		}
		defer db.Close()

		n, err := intakes.AttachJournal(db, engine.Significant(cfg.Model.HalfLifeHours))
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "  journal: %s (%d intakes restored)\n", db.Path, n)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	tracker, err := engine.NewTracker(intakes, engine.Options{
		HalfLifeHours:  cfg.Model.HalfLifeHours,
		SampleInterval: cfg.Model.SampleInterval,
		Logger:         logger,
		Registerer:     reg,
	})
	if err != nil {
		return fmt.Errorf("create tracker: %w", err)
	}
	tracker.Start()
	defer tracker.Stop()

	srv := server.New(tracker, drinks, reg, VersionString())
	addr := cfg.ListenAddr()

	httpServer := &http.Server{
		Addr:        addr,
		Handler:     srv,
		BaseContext: func(net.Listener) context.Context { return baseCtx },
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		fmt.Fprintf(os.Stderr, "caffeine serving on %s\n", addr)
		fmt.Fprintf(os.Stderr, "  half-life: %gh, sampling every %s\n", cfg.Model.HalfLifeHours, cfg.Model.SampleInterval)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-done:
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}
	fmt.Fprintln(os.Stderr, "\nshutting down...")
	cancelBase()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return httpServer.Shutdown(ctx)
}
