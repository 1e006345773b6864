package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"carddash/internal/analyzer"
	"carddash/internal/config"
	"carddash/internal/events"
	apphttp "carddash/internal/http"
	"carddash/internal/log"
	"carddash/internal/session"
)

func main() {
	_ = godotenv.Load()

	logger := log.New(log.DefaultConfig())
	log.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Invalid configuration", log.FieldError, err.Error())
		os.Exit(1)
	}

	client := analyzer.NewClient(cfg.AnalyzerBaseURL, cfg.AnalyzerTimeout)

	var publisher session.EventPublisher
	var eventsClient *events.Client
	if cfg.AMQPURL != "" {
		ec, err := events.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			// The dashboard works without a broker; log and continue.
			logger.Warn("Event publishing disabled",
				log.FieldComponent, log.ComponentEvents,
				log.FieldError, err.Error())
		} else {
			publisher = ec
			eventsClient = ec
			defer eventsClient.Close()
			logger.Info("Event publishing enabled",
				"exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}

	sessions := session.NewManager(client, publisher, logger)
	if cfg.DefaultStatementYear != 0 {
		sessions.SetDefaultYear(cfg.DefaultStatementYear)
	}

	srv := apphttp.NewServer(":"+cfg.Port, sessions, client, logger, apphttp.Options{
		MaxUploadBytes:  cfg.MaxUploadBytes,
		CacheSize:       cfg.CacheSize,
		CacheTTL:        cfg.CacheTTL,
		CleanupInterval: cfg.CleanupInterval,
	})

	// Configure server timeouts and limits. Uploads and analyses can take
	// a while, so the write timeout tracks the analyzer timeout.
	srv.ReadTimeout = 30 * time.Second
	srv.WriteTimeout = cfg.AnalyzerTimeout + 30*time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	// Graceful shutdown handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err.Error())
		}
		cancel()
	}()

	logger.Info("Starting carddash server",
		"port", cfg.Port, "analyzer", cfg.AnalyzerBaseURL)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", log.FieldError, err.Error(), "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
