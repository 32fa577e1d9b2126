package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"saavnrelay/internal/config"
	"saavnrelay/internal/downloader"
	"saavnrelay/internal/metadata"
	"saavnrelay/internal/ngrok"
	"saavnrelay/internal/relay"
	"saavnrelay/internal/reporting"
	"saavnrelay/internal/saavn"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// RelayServer serves the search and download relay over HTTP
type RelayServer struct {
	config       *config.Config
	configPath   string
	logger       *logrus.Logger
	relay        *relay.Service
	reporter     *reporting.Reporter
	ngrokService *ngrok.Service
	watcher      *fsnotify.Watcher
	httpServer   *http.Server
	upstreamURL  string
	tempDir      string
}

// NewRelayServer wires the upstream client, downloader and enricher into a
// server. configPath is watched for log level changes when enabled.
func NewRelayServer(cfg *config.Config, configPath string, logger *logrus.Logger, reporter *reporting.Reporter) (*RelayServer, error) {
	client := saavn.NewClient(saavn.Options{
		BaseURL:         cfg.Upstream.BaseURL,
		RequestTimeout:  cfg.RequestTimeout(),
		DownloadTimeout: cfg.DownloadTimeout(),
		UserAgent:       cfg.Upstream.UserAgent,
	}, logger)

	store, err := downloader.NewDownloader(client, cfg.Downloads.TempDir, cfg.Downloads.MaxSizeMB<<20, logger)
	if err != nil {
		return nil, err
	}

	service := relay.NewService(relay.Options{
		Upstream:       client,
		Store:          store,
		Enricher:       metadata.NewEnricher(client, client, logger),
		Inspector:      metadata.NewInspector(logger),
		DefaultQuality: downloader.Quality(cfg.Downloads.DefaultQuality),
		Logger:         logger,
	})

	ngrokSvc, err := ngrok.NewService(&cfg.Ngrok, logger)
	if err != nil {
		logger.WithError(err).Warn("Ngrok service not available")
		ngrokSvc = nil
	}

	return &RelayServer{
		config:       cfg,
		configPath:   configPath,
		logger:       logger,
		relay:        service,
		reporter:     reporter,
		ngrokService: ngrokSvc,
		upstreamURL:  client.BaseURL(),
		tempDir:      store.TempDir(),
	}, nil
}

// Handler returns the routed handler wrapped in the middleware chain
func (ms *RelayServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", ms.handleHome)
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir(ms.config.Server.StaticDir))))
	mux.HandleFunc("/api/search", ms.requireGET(ms.handleSearch))
	mux.HandleFunc("/api/download", ms.requireGET(ms.handleDownload))
	mux.HandleFunc("/health", ms.handleHealthCheck)

	var handler http.Handler = mux
	handler = ms.corsMiddleware(handler)
	handler = ms.requestLoggingMiddleware(handler)
	handler = ms.reporter.Middleware(handler)
	handler = ms.panicRecoveryMiddleware(handler)
	return handler
}

// Start runs the HTTP server until Shutdown is called
func (ms *RelayServer) Start() error {
	if ms.config.Server.WatchConfig && ms.configPath != "" {
		if err := ms.startConfigWatcher(); err != nil {
			ms.logger.WithError(err).Warn("Could not start config watcher")
		}
	}

	ms.httpServer = &http.Server{
		Addr:         ms.config.GetAddress(),
		Handler:      ms.Handler(),
		ReadTimeout:  time.Duration(ms.config.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(ms.config.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(ms.config.Server.IdleTimeout) * time.Second,
	}

	localAddress := fmt.Sprintf("http://%s", ms.config.GetAddress())
	ms.logger.WithFields(logrus.Fields{
		"address":  localAddress,
		"upstream": ms.upstreamURL,
		"temp_dir": ms.tempDir,
	}).Info("saavnrelay server starting")

	if ms.ngrokService != nil {
		if err := ms.ngrokService.StartTunnel(context.Background(), localAddress); err != nil {
			ms.logger.WithError(err).Warn("Could not start ngrok tunnel")
		}
	}

	if err := ms.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the HTTP server, watcher and tunnel
func (ms *RelayServer) Shutdown(ctx context.Context) error {
	ms.logger.Info("Shutting down relay server...")

	ms.stopConfigWatcher()

	if err := ms.ngrokService.Stop(); err != nil {
		ms.logger.WithError(err).Warn("Error stopping ngrok tunnel")
	}

	var err error
	if ms.httpServer != nil {
		err = ms.httpServer.Shutdown(ctx)
	}

	ms.reporter.Flush(2 * time.Second)
	ms.logger.Info("Relay server shutdown complete")
	return err
}
