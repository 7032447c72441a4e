package sqlstore

import (
	"fmt"

	"github.com/goliatone/go-esign/core"
	persistence "github.com/goliatone/go-persistence-bun"
	"github.com/uptrace/bun"
)

type FactoryOptions struct {
	TokenKeyPrefix string
	Secrets        core.SecretProvider
	Logger         core.Logger
}

type RepositoryFactory struct {
	db *bun.DB

	tokenStore     *SettingsTokenStore
	webhookArchive *WebhookArchive
}

func NewRepositoryFactoryFromPersistence(client *persistence.Client, opts FactoryOptions) (*RepositoryFactory, error) {
	return newRepositoryFactory(client, opts)
}

func NewRepositoryFactoryFromDB(db *bun.DB, opts FactoryOptions) (*RepositoryFactory, error) {
	return newRepositoryFactory(db, opts)
}

func newRepositoryFactory(candidate any, opts FactoryOptions) (*RepositoryFactory, error) {
	db, err := resolveBunDB(candidate)
	if err != nil {
		return nil, err
	}
	tokenStore, err := NewSettingsTokenStore(db, opts.TokenKeyPrefix, opts.Secrets)
	if err != nil {
		return nil, err
	}
	webhookArchive, err := NewWebhookArchive(db, opts.Logger)
	if err != nil {
		return nil, err
	}
	return &RepositoryFactory{
		db:             db,
		tokenStore:     tokenStore,
		webhookArchive: webhookArchive,
	}, nil
}

func (f *RepositoryFactory) DB() *bun.DB {
	if f == nil {
		return nil
	}
	return f.db
}

func (f *RepositoryFactory) TokenStore() *SettingsTokenStore {
	if f == nil {
		return nil
	}
	return f.tokenStore
}

func (f *RepositoryFactory) WebhookArchive() *WebhookArchive {
	if f == nil {
		return nil
	}
	return f.webhookArchive
}

func resolveBunDB(candidate any) (*bun.DB, error) {
	switch typed := candidate.(type) {
	case nil:
		return nil, fmt.Errorf("sqlstore: persistence client is required")
	case *bun.DB:
		if typed == nil {
			return nil, fmt.Errorf("sqlstore: bun db is required")
		}
		return typed, nil
	case interface{ DB() *bun.DB }:
		db := typed.DB()
		if db == nil {
			return nil, fmt.Errorf("sqlstore: persistence client returned nil bun db")
		}
		return db, nil
	default:
		return nil, fmt.Errorf("sqlstore: unsupported persistence client type %T", candidate)
	}
}
