package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"saavnrelay/internal/config"
	"saavnrelay/internal/reporting"
	"saavnrelay/internal/server"

	"github.com/sirupsen/logrus"
)

var version = "dev"

func main() {
	configPath := os.Getenv("SAAVNRELAY_CONFIG")
	if configPath == "" {
		configPath = "./config.toml"
	}

	// Initialize basic logger for startup
	bootLogger := logrus.New()
	bootLogger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	// Load configuration
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		bootLogger.WithError(err).Fatal("Error loading configuration")
	}

	logger, logFile, err := newLogger(cfg.Logging, os.Stdout)
	if err != nil {
		bootLogger.WithError(err).Fatal("Error configuring logger")
	}
	defer logFile.Close()

	reporter, err := reporting.New(cfg.Reporting, "saavnrelay@"+version)
	if err != nil {
		logger.WithError(err).Warn("Error reporting disabled")
	}

	relayServer, err := server.NewRelayServer(cfg, configPath, logger, reporter)
	if err != nil {
		logger.WithError(err).Fatal("Error creating relay server")
	}

	// Handle graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		errCh <- relayServer.Start()
	}()

	select {
	case <-c:
		logger.Info("Received shutdown signal")
	case err := <-errCh:
		if err != nil {
			logger.WithError(err).Error("Server stopped unexpectedly")
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()

	if err := relayServer.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Error during shutdown")
	}
}
