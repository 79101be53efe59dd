package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/interiorcollage/collage/internal/asset"
	"github.com/interiorcollage/collage/internal/catalog"
	"github.com/interiorcollage/collage/internal/config"
	"github.com/interiorcollage/collage/internal/db"
	"github.com/interiorcollage/collage/internal/engine"
	"github.com/interiorcollage/collage/internal/export"
	"github.com/interiorcollage/collage/internal/log"
	mw "github.com/interiorcollage/collage/internal/middleware"
	"github.com/interiorcollage/collage/internal/session"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	log.Init(log.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, File: cfg.LogFile})
	defer log.Close()

	editorCfg, err := config.LoadEditor(cfg.EditorConfig)
	if err != nil {
		slog.Error("load editor config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, closeStore, err := openCatalog(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("connect to database", "error", err, "database_url", db.Redact(cfg.DatabaseURL))
		os.Exit(1)
	}
	defer closeStore()

	catalogService := catalog.NewService(store, cfg.DatabaseURL, log.WithComponent("catalog"))
	catalogHandler := catalog.NewHandler(catalogService)

	fetcher := asset.NewFetcher(cfg.ProxyTimeout)
	loader := asset.NewLoader(catalogService, fetcher)
	assetHandler := asset.NewHandler(loader, fetcher)

	engineLog := log.WithComponent("engine")
	newEditor := func() *engine.Editor {
		opts := editorCfg.Options()
		opts.Logger = engineLog
		return engine.NewEditor(opts)
	}
	sessions := session.NewManager(newEditor, session.NewTokens(cfg.SessionSecret, 24*time.Hour),
		cfg.SessionIdle, log.WithComponent("session"))
	go sessions.Run(ctx)

	sessionHandler := session.NewHandler(sessions, loader, cfg.Origins())
	exportHandler := export.NewHandler(sessions)

	r := mux.NewRouter()

	// Global middleware
	r.Use(mw.Recovery)
	r.Use(mw.Logger)
	r.Use(mw.CORS(cfg.Origins()))

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()

	// Catalog
	api.HandleFunc("/products", catalogHandler.Products).Methods("GET", "OPTIONS")
	api.HandleFunc("/categories", catalogHandler.Categories).Methods("GET", "OPTIONS")
	api.HandleFunc("/debug/db-info", catalogHandler.DBInfo).Methods("GET")

	// Images
	api.HandleFunc("/image/{id}", assetHandler.Image).Methods("GET", "OPTIONS")
	api.HandleFunc("/proxy", assetHandler.Proxy).Methods("GET", "OPTIONS")

	// Editor sessions
	api.HandleFunc("/sessions/{id}/bitmaps/{ref}", sessionHandler.Bitmap).Methods("GET", "OPTIONS")
	api.HandleFunc("/sessions/{id}/export", exportHandler.Export).Methods("GET", "OPTIONS")
	r.HandleFunc("/ws/session", sessionHandler.ServeWS)

	// Front end
	if info, err := os.Stat(cfg.StaticDir); err == nil && info.IsDir() {
		r.PathPrefix("/").Handler(http.FileServer(http.Dir(cfg.StaticDir))).Methods("GET")
	} else {
		slog.Warn("static directory not found, front end not served", "dir", cfg.StaticDir)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down server")
		sessions.Shutdown()
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		srv.Shutdown(shutdownCtx)
	}()

	slog.Info("server starting", "addr", addr, "database_url", db.Redact(cfg.DatabaseURL))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

// openCatalog connects the product store named by databaseURL.
func openCatalog(ctx context.Context, databaseURL string) (catalog.Store, func(), error) {
	driver, dsn, err := db.Parse(databaseURL)
	if err != nil {
		return nil, nil, err
	}

	switch driver {
	case db.Postgres:
		pool, err := db.NewPool(ctx, dsn)
		if err != nil {
			return nil, nil, err
		}
		return catalog.NewPGStore(pool), pool.Close, nil
	default:
		conn, err := db.OpenSQLite(ctx, dsn)
		if err != nil {
			return nil, nil, err
		}
		return catalog.NewSQLiteStore(conn), func() { conn.Close() }, nil
	}
}
