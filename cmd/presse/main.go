// Command presse serves the article-extraction engine over HTTP.
package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hazyhaar/presse"
	"github.com/hazyhaar/presse/api"
	"github.com/hazyhaar/presse/browser"
	"github.com/hazyhaar/presse/dbopen"
	"github.com/hazyhaar/presse/fetch"
	"github.com/hazyhaar/presse/ocr"
	"github.com/hazyhaar/presse/recipe"
)

func main() {
	configPath := flag.String("config", env("CONFIG_PATH", ""), "path to YAML config")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	var lvl slog.Level
	switch cfg.Log.Level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Recipe store.
	db, err := dbopen.Open(cfg.DBPath, dbopen.WithMkdirAll(), dbopen.WithSchema(recipe.Schema))
	if err != nil {
		return err
	}
	defer db.Close()
	store := recipe.NewStore(db)

	// Static catalog, optional.
	var catalog *recipe.Catalog
	if cfg.Catalog != "" {
		catalog = recipe.NewCatalog(cfg.Catalog, logger)
		if err := catalog.Load(); err != nil {
			return err
		}
		logger.Info("catalog loaded", "path", cfg.Catalog, "sites", catalog.Len())
	}

	// Headless browser, optional.
	var mgr *browser.Manager
	if cfg.Browser.Enabled {
		mgr = browser.NewManager(browser.Config{
			RemoteURL:  cfg.Browser.Remote,
			PoolSize:   cfg.Browser.PoolSize,
			NavTimeout: cfg.Browser.NavTimeout,
			Logger:     logger,
		})
		if err := mgr.Start(ctx); err != nil {
			return err
		}
		defer mgr.Close()
		logger.Info("browser started", "pool", cfg.Browser.PoolSize)
	}

	// OCR backend, optional.
	var ocrClient *ocr.Client
	if cfg.OCR.BaseURL != "" {
		ocrClient = ocr.NewClient(ocr.ClientConfig{
			BaseURL: cfg.OCR.BaseURL,
			Timeout: cfg.OCR.Timeout,
			RPS:     cfg.OCR.RPS,
			Logger:  logger,
		})
	}

	svc := presse.New(presse.Config{
		Store:   store,
		Catalog: catalog,
		Fetcher: fetch.New(fetch.Config{
			Timeout:   cfg.Fetch.Timeout,
			MaxBytes:  cfg.Fetch.MaxBytes,
			UserAgent: cfg.Fetch.UserAgent,
		}),
		Browser: mgr,
		OCR:     ocrClient,
		Logger:  logger,
	})

	handler := api.NewServer(api.Config{
		Extractor: svc,
		Store:     store,
		RPS:       cfg.API.RPS,
		Burst:     cfg.API.Burst,
		Logger:    logger,
	})

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("server starting", "addr", cfg.Listen)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", "error", err)
	}
	logger.Info("server stopped")
	return nil
}
