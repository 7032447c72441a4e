// Command esign-server runs the e-sign integration endpoints: the OAuth
// handshake, the revoke route and the notification callback.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	esign "github.com/goliatone/go-esign"
	"github.com/goliatone/go-esign/adapters/echohttp"
	"github.com/goliatone/go-esign/adapters/gocommand"
	"github.com/goliatone/go-esign/adapters/gologger"
	"github.com/goliatone/go-esign/core"
	"github.com/joho/godotenv"
)

const shutdownGrace = 15 * time.Second

func main() {
	boot := gologger.New(core.DefaultLogLevel, core.DefaultLogFormat, os.Stderr).GetLogger("esign-server")
	if err := godotenv.Load(); err != nil {
		boot.Debug("no .env file loaded", "reason", err.Error())
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Stdout); err != nil {
		boot.Error("esign-server stopped", "error", err)
		os.Exit(1)
	}
}

// loadConfig merges defaults with ESIGN_* environment variables, e.g.
// ESIGN_OAUTH__CLIENT_ID or ESIGN_DATABASE__DRIVER.
func loadConfig(ctx context.Context) (core.Config, error) {
	cfg, err := core.LoadConfig(ctx,
		core.NewEnvConfigProvider(core.DefaultEnvPrefix),
		core.GoOptionsResolver{},
		core.Config{},
	)
	if err != nil {
		return core.Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func run(ctx context.Context, out io.Writer) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	root := gologger.New(cfg.Log.Level, cfg.Log.Format, out)
	logger := root.GetLogger("esign-server")

	dbConfig := newDatabaseConfig(cfg.Database)
	client, err := openPersistence(ctx, dbConfig)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := client.Close(); closeErr != nil {
			logger.Error("close database failed", "error", closeErr)
		}
	}()

	tokenStore, factory, err := buildTokenStore(cfg, client, root.GetLogger("tokens"))
	if err != nil {
		return err
	}
	archive, archiveKind, err := buildArchive(ctx, cfg.S3, factory, root.GetLogger("archive"))
	if err != nil {
		return err
	}

	integration, err := esign.New(cfg, esign.Dependencies{
		TokenStore:     tokenStore,
		Archive:        archive,
		LoggerProvider: root,
	})
	if err != nil {
		return fmt.Errorf("integration setup: %w", err)
	}

	commands := integration.Commands()
	queries := integration.Queries()
	subscriptions, err := gocommand.RegisterHandlers(gocommand.NewRegistryAdapter(nil), gocommand.Handlers{
		ExchangeCode:      commands.ExchangeCode,
		Revoke:            commands.Revoke,
		CreateEnvelope:    commands.CreateEnvelope,
		CreateEmbedded:    commands.CreateEmbedded,
		ProcessWebhook:    commands.ProcessWebhook,
		AuthorizationURL:  queries.AuthorizationURL,
		ConnectionStatus:  queries.ConnectionStatus,
		ListStatusChanges: queries.ListStatusChanges,
	})
	if err != nil {
		return fmt.Errorf("register handlers: %w", err)
	}
	defer subscriptions.Unsubscribe()

	server := echohttp.NewServer(root.Slog("http.access"))
	server.RegisterRouter(echohttp.NewRoutes(integration.Tokens(), integration.Webhooks(),
		echohttp.WithMaxPayloadBytes(cfg.Webhook.MaxPayloadBytes),
		echohttp.WithLogger(root.GetLogger("http")),
	))

	logger.Info("starting server",
		"address", cfg.HTTP.Address,
		"environment", cfg.Environment,
		"db_driver", dbConfig.driver,
		"archive", archiveKind,
		"tokens_encrypted", cfg.Tokens.EncryptionKey != "",
	)
	return server.Run(ctx, cfg.HTTP.Address, shutdownGrace)
}
