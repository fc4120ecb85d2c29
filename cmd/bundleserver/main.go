// Package main runs the bundle distribution server.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	app "github.com/Ablestor/bundle-electron-updates-server/internal/app"
	ftpbackend "github.com/Ablestor/bundle-electron-updates-server/internal/app/backend/ftp"
	githubbackend "github.com/Ablestor/bundle-electron-updates-server/internal/app/backend/github"
	localbackend "github.com/Ablestor/bundle-electron-updates-server/internal/app/backend/local"
	"github.com/Ablestor/bundle-electron-updates-server/internal/app/domain/asset"
	"github.com/Ablestor/bundle-electron-updates-server/internal/app/httpapi"
	"github.com/Ablestor/bundle-electron-updates-server/internal/app/services/distribution"
	"github.com/Ablestor/bundle-electron-updates-server/internal/app/storage/postgres"
	"github.com/Ablestor/bundle-electron-updates-server/internal/config"
	"github.com/Ablestor/bundle-electron-updates-server/internal/platform/migrations"
	"github.com/Ablestor/bundle-electron-updates-server/pkg/logger"
)

func main() {
	configPath := flag.String("config", "", "path to server.yaml (optional)")
	flag.Parse()

	// A missing .env is fine; the environment may be set by the deployment.
	_ = godotenv.Load()

	var (
		cfg *config.Config
		err error
	)
	if *configPath != "" {
		cfg, err = config.LoadFromPath(*configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.LoggingConfig{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	}).WithComponent("bundleserver")

	stores, closeDB, err := buildStores(cfg, log)
	if err != nil {
		log.WithError(err).Error("storage init failed")
		os.Exit(1)
	}
	defer closeDB()

	application := app.New(stores, buildBackends(cfg), log)
	handler := httpapi.NewHandler(application, log.WithComponent("httpapi"))

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Infof("listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			log.WithError(err).Error("server error")
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.WithError(err).Warn("shutdown did not complete cleanly")
	}
}

// buildStores opens postgres when a DSN is configured and falls back to the
// in-memory store otherwise.
func buildStores(cfg *config.Config, log *logger.Logger) (app.Stores, func(), error) {
	if cfg.Database.DSN == "" {
		log.Warn("no database configured; using in-memory storage")
		return app.Stores{}, func() {}, nil
	}

	db, err := sql.Open("postgres", cfg.Database.DSN)
	if err != nil {
		return app.Stores{}, nil, fmt.Errorf("open database: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return app.Stores{}, nil, fmt.Errorf("ping database: %w", err)
	}
	if err := migrations.Apply(ctx, db); err != nil {
		db.Close()
		return app.Stores{}, nil, fmt.Errorf("apply migrations: %w", err)
	}

	store := postgres.New(db)
	return app.Stores{Assets: store, Manifests: store}, func() { db.Close() }, nil
}

// buildBackends wires every distribution backend the configuration enables.
func buildBackends(cfg *config.Config) map[asset.Backend]distribution.Backend {
	backends := make(map[asset.Backend]distribution.Backend)

	if cfg.Storage.LocalPath != "" {
		backends[asset.BackendLocal] = localbackend.New(cfg.Storage.LocalPath, cfg.Storage.PublicBaseURL)
	}
	if cfg.GitHub.Owner != "" && cfg.GitHub.Repo != "" {
		backends[asset.BackendGitHub] = githubbackend.New(githubbackend.Config{
			Owner:   cfg.GitHub.Owner,
			Repo:    cfg.GitHub.Repo,
			Token:   cfg.GitHub.Token,
			APIBase: cfg.GitHub.APIBase,
		}, nil)
	}
	if cfg.FTP.Host != "" {
		backends[asset.BackendFTP] = ftpbackend.New(ftpbackend.Config{
			Host:     cfg.FTP.Host,
			Port:     cfg.FTP.Port,
			User:     cfg.FTP.User,
			Password: cfg.FTP.Password,
			BasePath: cfg.FTP.BasePath,
		})
	}
	if cfg.FTP.NASHost != "" {
		backends[asset.BackendNAS] = ftpbackend.New(ftpbackend.Config{
			Host:     cfg.FTP.NASHost,
			Port:     cfg.FTP.Port,
			User:     cfg.FTP.User,
			Password: cfg.FTP.Password,
			BasePath: cfg.FTP.BasePath,
		})
	}

	return backends
}
