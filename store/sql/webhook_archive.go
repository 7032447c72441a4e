package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-esign/core"
	glog "github.com/goliatone/go-logger/glog"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// WebhookArchive stores raw notification payloads keyed by storage key. A
// repeated key overwrites the payload in place.
type WebhookArchive struct {
	db     *bun.DB
	repo   repository.Repository[*webhookEventRecord]
	logger core.Logger
	now    func() time.Time
}

func NewWebhookArchive(db *bun.DB, logger core.Logger) (*WebhookArchive, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*webhookEventRecord](db, webhookEventHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid webhook event repository wiring: %w", err)
		}
	}
	return &WebhookArchive{
		db:     db,
		repo:   repo,
		logger: glog.Ensure(logger),
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

func (a *WebhookArchive) Put(ctx context.Context, key string, payload []byte) bool {
	if err := a.put(ctx, key, payload); err != nil {
		if a != nil && a.logger != nil {
			a.logger.Error("webhook archive write failed", "storage_key", key, "error", err)
		}
		return false
	}
	return true
}

func (a *WebhookArchive) put(ctx context.Context, key string, payload []byte) error {
	if a == nil || a.db == nil {
		return fmt.Errorf("sqlstore: webhook archive is not configured")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("sqlstore: storage key is required")
	}
	now := a.now()
	record := &webhookEventRecord{
		ID:         uuid.NewString(),
		StorageKey: key,
		Payload:    append([]byte(nil), payload...),
		Writes:     1,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	_, err := a.repo.Create(ctx, record)
	if err == nil {
		return nil
	}
	if !isUniqueViolation(err) {
		return err
	}
	_, err = a.db.NewUpdate().
		Model((*webhookEventRecord)(nil)).
		Set("payload = ?", record.Payload).
		Set("writes = writes + 1").
		Set("updated_at = ?", now).
		Where("storage_key = ?", key).
		Exec(ctx)
	return err
}

// Get returns the stored payload and the number of writes for key.
func (a *WebhookArchive) Get(ctx context.Context, key string) ([]byte, int, error) {
	if a == nil || a.db == nil {
		return nil, 0, fmt.Errorf("sqlstore: webhook archive is not configured")
	}
	record := &webhookEventRecord{}
	err := a.db.NewSelect().
		Model(record).
		Where("?TableAlias.storage_key = ?", strings.TrimSpace(key)).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, 0, fmt.Errorf("sqlstore: webhook payload not found for key %q", key)
		}
		return nil, 0, err
	}
	return record.Payload, record.Writes, nil
}

// ListByEnvelope returns the storage keys recorded for one envelope in
// write order.
func (a *WebhookArchive) ListByEnvelope(ctx context.Context, prefix string, envelopeID string) ([]string, error) {
	if a == nil || a.repo == nil {
		return nil, fmt.Errorf("sqlstore: webhook archive is not configured")
	}
	pattern := strings.Trim(strings.TrimSpace(prefix), "/")
	if pattern != "" {
		pattern += "/"
	}
	pattern += strings.TrimSpace(envelopeID) + "/webhooks/%"
	records, _, err := a.repo.List(ctx,
		repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("?TableAlias.storage_key LIKE ?", pattern)
		}),
		repository.OrderBy("created_at ASC"),
	)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(records))
	for _, record := range records {
		if record != nil {
			keys = append(keys, record.StorageKey)
		}
	}
	return keys, nil
}
