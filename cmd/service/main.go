package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/mvukovic/liftlog/internal"
	"github.com/mvukovic/liftlog/internal/config"
	"github.com/mvukovic/liftlog/internal/logging"
)

func main() {
	env := flag.String("env", "development", "environment: development or production")
	configPath := flag.String("config", "config.toml", "path to the toml config file")
	logFormatJSON := flag.Bool("json-log", false, "use json log formatter")
	tracingEnabled := flag.Bool("tracing", false, "enable otel tracing")
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load(*env, *configPath)
	if err != nil {
		log.Fatalf("load config: %s", err)
	}

	secrets, err := config.LoadSecrets(ctx)
	if err != nil {
		log.Fatalf("load secrets: %s", err)
	}

	logging.Setup(logging.LoggerSetupParams{
		LogFileName:   cfg.LogsPath,
		LogToStdout:   cfg.LogToStdout,
		LogLevel:      cfg.LogLevel,
		LogFormatJSON: *logFormatJSON,
		Environment:   cfg.Environment,
		SentryEnabled: cfg.SentryEnabled,
		SentryDSN:     secrets.SentryDSN,
	})

	if secrets.CoachAPIKey == "" {
		log.Errorf("coach api key not set, use LIFTLOG_COACH_API_KEY env var to set it")
	}
	if secrets.ExerciseCatalogKey == "" {
		log.Errorf("exercise catalog api key not set, use LIFTLOG_EXERCISE_CATALOG_KEY env var to set it")
	}

	chOsInterrupt := make(chan os.Signal, 1)
	signal.Notify(chOsInterrupt, os.Interrupt, syscall.SIGTERM)

	server, err := internal.NewServer(ctx, internal.NewServerParams{
		Config:         cfg,
		Secrets:        secrets,
		TracingEnabled: *tracingEnabled,
	})
	if err != nil {
		log.Fatalf("new server: %s", err)
	}

	server.Serve(cfg.Host, cfg.Port)

	receivedSig := <-chOsInterrupt
	log.Warnf("signal [%s] received, shutting down ...", receivedSig)
	cancel()

	server.GracefulShutdown()
}
