package main

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/goliatone/go-esign/core"
	"github.com/goliatone/go-esign/migrations"
	"github.com/goliatone/go-esign/security"
	s3store "github.com/goliatone/go-esign/store/s3"
	sqlstore "github.com/goliatone/go-esign/store/sql"
	"github.com/goliatone/go-esign/webhooks"
	persistence "github.com/goliatone/go-persistence-bun"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/schema"
)

// databaseConfig adapts core.DatabaseConfig to the persistence client.
type databaseConfig struct {
	driver string
	dsn    string
	debug  bool
}

func newDatabaseConfig(cfg core.DatabaseConfig) databaseConfig {
	return databaseConfig{driver: cfg.Driver, dsn: cfg.DSN, debug: cfg.Debug}
}

func (c databaseConfig) GetDebug() bool                { return c.debug }
func (c databaseConfig) GetDriver() string             { return c.driver }
func (c databaseConfig) GetServer() string             { return c.dsn }
func (c databaseConfig) GetPingTimeout() time.Duration { return 5 * time.Second }
func (c databaseConfig) GetOtelIdentifier() string     { return "go-esign" }

func (c databaseConfig) migrationDialect() string {
	if c.driver == core.DriverPostgres {
		return migrations.DialectPostgres
	}
	return migrations.DialectSQLite
}

func (c databaseConfig) dialect() schema.Dialect {
	if c.driver == core.DriverPostgres {
		return pgdialect.New()
	}
	return sqlitedialect.New()
}

// openPersistence opens the database and applies the embedded migrations for
// its dialect.
func openPersistence(ctx context.Context, cfg databaseConfig) (*persistence.Client, error) {
	sqlDB, err := sql.Open(cfg.driver, cfg.dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if cfg.driver == core.DriverSQLite {
		sqlDB.SetMaxOpenConns(1)
	}
	client, err := persistence.New(cfg, sqlDB, cfg.dialect())
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("new persistence client: %w", err)
	}

	target := cfg.migrationDialect()
	if _, err := migrations.Register(ctx, func(_ context.Context, dialect string, _ string, fsys fs.FS) error {
		if dialect == target {
			client.RegisterSQLMigrations(fsys)
		}
		return nil
	}, migrations.WithValidationTargets(target)); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("register migrations: %w", err)
	}
	if err := client.Migrate(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}
	return client, nil
}

// buildTokenStore returns the settings store, sealed when an encryption key
// is configured and fronted by a short lived cache.
func buildTokenStore(cfg core.Config, client *persistence.Client, logger core.Logger) (core.TokenStore, *sqlstore.RepositoryFactory, error) {
	opts := sqlstore.FactoryOptions{
		TokenKeyPrefix: cfg.Tokens.KeyPrefix,
		Logger:         logger,
	}
	if key := strings.TrimSpace(cfg.Tokens.EncryptionKey); key != "" {
		var cipherOpts []security.Option
		if cfg.Tokens.KeyID != "" {
			cipherOpts = append(cipherOpts, security.WithKeyID(cfg.Tokens.KeyID))
		}
		if previous := cfg.Tokens.PreviousKey; previous != "" {
			cipherOpts = append(cipherOpts, security.WithPreviousKey(cfg.Tokens.PreviousKeyID, []byte(previous)))
		}
		tokenCipher, err := security.NewTokenCipherFromString(key, cipherOpts...)
		if err != nil {
			return nil, nil, fmt.Errorf("token cipher: %w", err)
		}
		opts.Secrets = tokenCipher
	}

	factory, err := sqlstore.NewRepositoryFactoryFromPersistence(client, opts)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Tokens.DisableCache {
		return factory.TokenStore(), factory, nil
	}

	cacheConfig := repositorycache.DefaultConfig()
	cacheConfig.TTL = cfg.Tokens.CacheTTL
	cacheConfig.EarlyRefresh = nil
	cacheService, err := repositorycache.NewCacheService(cacheConfig)
	if err != nil {
		return nil, nil, fmt.Errorf("token cache: %w", err)
	}
	cached, err := sqlstore.NewCachedTokenStore(factory.TokenStore(), cacheService, cfg.Tokens.KeyPrefix)
	if err != nil {
		return nil, nil, err
	}
	return cached, factory, nil
}

// buildArchive prefers S3 when a bucket is configured and falls back to the
// database otherwise.
func buildArchive(ctx context.Context, cfg core.S3Config, factory *sqlstore.RepositoryFactory, logger core.Logger) (webhooks.Archive, string, error) {
	if cfg.Bucket == "" {
		return factory.WebhookArchive(), "sql", nil
	}
	archive, err := s3store.New(ctx, s3store.Config{
		Bucket:          cfg.Bucket,
		Region:          cfg.Region,
		Endpoint:        cfg.Endpoint,
		AccessKeyID:     cfg.AccessKeyID,
		SecretAccessKey: cfg.SecretAccessKey,
		Timeout:         cfg.Timeout,
	}, logger)
	if err != nil {
		return nil, "", err
	}
	return archive, "s3", nil
}
