package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/rahulpatani/smartinbox/internal/api"
	"github.com/rahulpatani/smartinbox/internal/classify"
	"github.com/rahulpatani/smartinbox/internal/config"
	"github.com/rahulpatani/smartinbox/internal/draft"
	"github.com/rahulpatani/smartinbox/internal/mail"
	"github.com/rahulpatani/smartinbox/internal/notify"
	"github.com/rahulpatani/smartinbox/internal/pipeline"
	"github.com/rahulpatani/smartinbox/internal/store"
	"github.com/rahulpatani/smartinbox/internal/syncer"
	"github.com/rahulpatani/smartinbox/pkg/retry"
	"github.com/rahulpatani/smartinbox/pkg/types"
)

var (
	version     = "dev"
	showVersion = flag.Bool("version", false, "Show version information")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("smartinbox version %s\n", version)
		os.Exit(0)
	}

	// Optional .env next to the binary
	godotenv.Load() //nolint:errcheck

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}
	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Fatal("Invalid configuration")
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	logger.Info("Starting SmartInbox")

	st, err := store.Open(cfg.DBPath, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to open store")
	}
	defer st.Close()

	// Seed accounts configured via environment; the OAuth exchange flow
	// upserts the rest at runtime.
	for i := range cfg.Accounts {
		account := cfg.Accounts[i].Account()
		if err := st.UpsertAccount(&account); err != nil {
			logger.WithError(err).WithField("account", account.Email).Warn("Failed to seed account")
		}
	}

	slackURL := cfg.SlackWebhookURL
	if !cfg.SlackConfigured() {
		slackURL = ""
	}
	webhookURL := cfg.WebhookSiteURL
	if !cfg.WebhookConfigured() {
		webhookURL = ""
	}
	geminiKey := cfg.GeminiAPIKey
	if !cfg.GeminiConfigured() {
		geminiKey = ""
	}

	classifier := classify.New(cfg.ClassifierURL, logger)
	notifier := notify.NewSlackNotifier(slackURL, logger)
	webhook := notify.NewWebhookTrigger(webhookURL, logger)
	drafts := draft.NewService(draft.NewGenerator(geminiKey, cfg.GeminiModel, logger), st, logger)

	pl, err := pipeline.New(st, classifier, notifier, webhook, drafts, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create pipeline")
	}

	manager := syncer.NewManager(syncer.ManagerConfig{
		Accounts: st,
		Dial: func(account *types.Account) (syncer.Mailbox, error) {
			client := mail.NewClient(account, logger)
			if err := client.Connect(); err != nil {
				return nil, err
			}
			return client, nil
		},
		Ingestor: pl,
		Parse:    mail.ParseMessage,
		Lookback: cfg.Lookback(),
		Retrier: retry.Retrier{
			Attempts: cfg.FetchRetryAttempts,
			Delay:    cfg.FetchRetryDelay,
		},
	}, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := manager.StartAll(ctx); err != nil {
		logger.WithError(err).Error("Failed to start sessions")
	}

	server := api.NewServer(ctx, st, manager, pl, drafts, logger)
	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: server.Handler(),
	}

	errChan := make(chan error, 1)
	go func() {
		logger.WithField("addr", cfg.HTTPAddr).Info("HTTP API listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.WithField("signal", sig).Info("Received shutdown signal")
	case err := <-errChan:
		logger.WithError(err).Error("HTTP server error")
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	httpServer.Shutdown(shutdownCtx) //nolint:errcheck

	manager.Wait()
	logger.Info("Shutting down SmartInbox")
}
