package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"chatwoot-assignment-balancer/pkg/balancer"
	"chatwoot-assignment-balancer/pkg/chatwoot"
	"chatwoot-assignment-balancer/pkg/config"
	"chatwoot-assignment-balancer/pkg/handlers"
	"chatwoot-assignment-balancer/pkg/metrics"
	"chatwoot-assignment-balancer/pkg/server"
	"chatwoot-assignment-balancer/pkg/workflow"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Setup logger
	logger := logrus.New()
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	}
	logger.SetFormatter(&logrus.JSONFormatter{})

	if cfg.Domain == "" || cfg.AccountID == "" || cfg.APIToken == "" {
		logger.Fatal("CHATWOOT_DOMAIN, CHATWOOT_ACCOUNT_ID and CHATWOOT_TOKEN must be set")
	}

	logger.WithFields(logrus.Fields{
		"instance_id":       cfg.InstanceID,
		"auto_assign":       cfg.Assignment.AutoAssignPriorities,
		"statuses_for_load": cfg.Assignment.StatusesForLoad,
		"verify_tls":        cfg.Assignment.VerifyTLS,
	}).Info("Starting assignment balancer service")

	// Initialize metrics
	m := metrics.NewMetrics()

	// Wire components
	client := chatwoot.NewClient(cfg, logger, m)
	bal := balancer.NewBalancer(client, cfg, logger, m)
	wf := workflow.NewWorkflow(client, bal, cfg, logger, m)
	handler := handlers.NewHandler(wf, cfg, logger)

	srv := server.NewHTTPServer(cfg, handler, logger)

	go func() {
		logger.WithField("addr", srv.Addr).Info("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("HTTP server failed")
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	<-sigCh
	logger.Info("Received shutdown signal")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Failed to shutdown HTTP server gracefully")
	}

	logger.Info("Assignment balancer shutdown complete")
}
