// Package main is the entry point for the OncoSafeRx phenotype HTTP server.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/oncosaferx/phenotype-server/internal/api"
	"github.com/oncosaferx/phenotype-server/internal/config"
	"github.com/oncosaferx/phenotype-server/internal/database"
	"github.com/oncosaferx/phenotype-server/internal/guidelines"
	"github.com/oncosaferx/phenotype-server/internal/history"
	"github.com/oncosaferx/phenotype-server/internal/phenotype"
	"github.com/oncosaferx/phenotype-server/internal/repository"
	"github.com/oncosaferx/phenotype-server/pkg/external"
)

func main() {
	logger := logrus.New()

	// Load configuration
	configManager, err := config.NewManager()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}
	if err := configManager.Validate(); err != nil {
		logger.WithError(err).Fatal("Configuration validation failed")
	}

	cfg := configManager.GetConfig()
	configureLogger(logger, cfg.Logging.Level, cfg.Logging.Format)

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, gracefully shutting down...")
		cancel()
	}()

	deps := api.Dependencies{
		Engine:     phenotype.NewEngine(logger),
		Guidelines: guidelines.NewService(logger, 0, cfg.Cache.DefaultTTL),
	}

	// Report persistence is optional; without a database host the server
	// still maps phenotypes but skips report storage.
	if cfg.Database.Host != "" {
		migrator, err := database.NewMigrationRunner(configManager.GetDatabaseURL(), cfg.Database.MigrationsPath, logger)
		if err != nil {
			logger.WithError(err).Fatal("Failed to create migration runner")
		}
		if err := migrator.Up(); err != nil {
			logger.WithError(err).Fatal("Failed to run migrations")
		}
		migrator.Close()

		db, err := database.NewConnection(ctx, cfg.Database, logger)
		if err != nil {
			logger.WithError(err).Fatal("Failed to connect to database")
		}
		defer db.Close()

		deps.DB = db
		deps.Reports = repository.NewReportRepository(db.Pool, logger)
	}

	reviewStore, err := history.Open(cfg.History, configManager.GetDatabaseConnectionString(), logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to open review store")
	}
	defer reviewStore.Close()
	deps.Reviews = reviewStore

	externalClient, err := external.NewResilientClient(cfg.ExternalAPI, cfg.Cache, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create external API client")
	}
	defer externalClient.Close()
	deps.External = externalClient

	logger.WithFields(logrus.Fields{
		"host": cfg.Server.Host,
		"port": cfg.Server.Port,
	}).Info("Starting OncoSafeRx Phenotype Server")

	server := api.NewServer(cfg, deps, logger)
	if err := server.Start(ctx); err != nil {
		logger.WithError(err).Fatal("Server failed")
	}

	logger.Info("Server stopped")
}

func configureLogger(logger *logrus.Logger, level, format string) {
	if parsed, err := logrus.ParseLevel(level); err == nil {
		logger.SetLevel(parsed)
	}
	if format == "text" {
		logger.SetFormatter(&logrus.TextFormatter{})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
}
