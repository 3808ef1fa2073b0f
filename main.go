package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"docscan/backend"
	"docscan/bedrock"
	"docscan/config"
	"docscan/handler"
	"docscan/logging"
	"docscan/manager"
	"docscan/prompt"
	"docscan/scan"
)

// version is set via ldflags at build time
var version = "dev"

func main() {
	config.ParseArgs()
	if config.CliArgs.Version {
		fmt.Println(version)
		return
	}

	if config.CliArgs.Debug {
		logging.InitLogger(logrus.DebugLevel)
	} else {
		logging.InitLogger(logrus.InfoLevel)
	}
	log := logging.GetLogger()

	if err := run(); err != nil {
		log.Fatalf("%v", err)
	}
}

func run() error {
	log := logging.GetLogger()

	if err := config.LoadEnvFile(config.CliArgs.EnvFile); err != nil {
		return err
	}
	cfg, err := config.LoadConfig(config.CliArgs.ConfigFile)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	model, err := bedrock.NewClient(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initializing Bedrock client: %w", err)
	}

	cm := manager.NewConcurrencyManager(cfg.Limits.Pools, cfg.Limits.DefaultSize, cfg.Limits.QueueTimeout)
	defer cm.Shutdown()

	svc := scan.NewService(model, prompt.NewBuilder(cfg.Prompt), cm, cfg.Image)
	fetcher := backend.NewBackendClient(cfg.Logo.Timeout, cfg.Logo.MaxBytes)
	httpHandler := handler.NewHTTPHandler(svc, fetcher, cfg)

	server := &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           httpHandler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("Starting server on %s (model %s, region %s)", cfg.ListenAddress, cfg.Model.ID, cfg.AWS.Region)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed to start: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Infoln("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
