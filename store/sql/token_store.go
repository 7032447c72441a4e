package sqlstore

import (
	"context"
	"database/sql"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-esign/core"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

const (
	settingAccessToken  = "access_token"
	settingRefreshToken = "refresh_token"
	settingExpiresAt    = "expires_at"
)

// SettingsTokenStore keeps the token record as three rows of the settings
// table, named <prefix>access_token, <prefix>refresh_token and
// <prefix>expires_at. When secrets is set, token values are encrypted at
// rest and stored base64 encoded.
type SettingsTokenStore struct {
	db      *bun.DB
	repo    repository.Repository[*settingRecord]
	prefix  string
	secrets core.SecretProvider
	now     func() time.Time
}

func NewSettingsTokenStore(db *bun.DB, prefix string, secrets core.SecretProvider) (*SettingsTokenStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*settingRecord](db, settingHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid settings repository wiring: %w", err)
		}
	}
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = core.DefaultTokenKeyPrefix
	}
	return &SettingsTokenStore{
		db:      db,
		repo:    repo,
		prefix:  prefix,
		secrets: secrets,
		now:     func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *SettingsTokenStore) Load(ctx context.Context) (core.TokenRecord, bool, error) {
	if s == nil || s.repo == nil {
		return core.TokenRecord{}, false, fmt.Errorf("sqlstore: settings token store is not configured")
	}
	records, _, err := s.repo.List(ctx,
		repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("?TableAlias.name IN (?)", bun.In(s.names()))
		}),
	)
	if err != nil {
		return core.TokenRecord{}, false, err
	}
	values := make(map[string]string, len(records))
	for _, record := range records {
		if record == nil {
			continue
		}
		values[strings.TrimPrefix(record.Name, s.prefix)] = record.Value
	}

	out := core.TokenRecord{}
	if out.AccessToken, err = s.reveal(ctx, values[settingAccessToken]); err != nil {
		return core.TokenRecord{}, false, err
	}
	if out.RefreshToken, err = s.reveal(ctx, values[settingRefreshToken]); err != nil {
		return core.TokenRecord{}, false, err
	}
	if raw := strings.TrimSpace(values[settingExpiresAt]); raw != "" {
		expiresAt, parseErr := time.Parse(time.RFC3339Nano, raw)
		if parseErr != nil {
			return core.TokenRecord{}, false, fmt.Errorf("sqlstore: invalid stored expiry %q: %w", raw, parseErr)
		}
		out.ExpiresAt = expiresAt.UTC()
	}
	if out.IsZero() {
		return core.TokenRecord{}, false, nil
	}
	return out, true, nil
}

// Save writes all three settings in one transaction, so readers see either
// the previous record or the new one.
func (s *SettingsTokenStore) Save(ctx context.Context, record core.TokenRecord) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: settings token store is not configured")
	}
	if record.IsZero() {
		return s.Clear(ctx)
	}
	accessToken, err := s.conceal(ctx, record.AccessToken)
	if err != nil {
		return err
	}
	refreshToken, err := s.conceal(ctx, record.RefreshToken)
	if err != nil {
		return err
	}
	expiresAt := ""
	if !record.ExpiresAt.IsZero() {
		expiresAt = record.ExpiresAt.UTC().Format(time.RFC3339Nano)
	}
	values := []struct {
		name  string
		value string
	}{
		{s.prefix + settingAccessToken, accessToken},
		{s.prefix + settingRefreshToken, refreshToken},
		{s.prefix + settingExpiresAt, expiresAt},
	}

	now := s.now()
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for _, entry := range values {
			if err := s.upsert(ctx, tx, entry.name, entry.value, now); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *SettingsTokenStore) Clear(ctx context.Context) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: settings token store is not configured")
	}
	_, err := s.db.NewDelete().
		Model((*settingRecord)(nil)).
		Where("name IN (?)", bun.In(s.names())).
		Exec(ctx)
	return err
}

func (s *SettingsTokenStore) upsert(ctx context.Context, tx bun.Tx, name string, value string, now time.Time) error {
	result, err := tx.NewUpdate().
		Model((*settingRecord)(nil)).
		Set("value = ?", value).
		Set("updated_at = ?", now).
		Where("name = ?", name).
		Exec(ctx)
	if err != nil {
		return err
	}
	if affected, affectedErr := result.RowsAffected(); affectedErr == nil && affected > 0 {
		return nil
	}
	_, err = s.repo.CreateTx(ctx, tx, &settingRecord{
		ID:        uuid.NewString(),
		Name:      name,
		Value:     value,
		CreatedAt: now,
		UpdatedAt: now,
	})
	return err
}

func (s *SettingsTokenStore) names() []string {
	return []string{
		s.prefix + settingAccessToken,
		s.prefix + settingRefreshToken,
		s.prefix + settingExpiresAt,
	}
}

func (s *SettingsTokenStore) conceal(ctx context.Context, value string) (string, error) {
	if value == "" || s.secrets == nil {
		return value, nil
	}
	ciphertext, err := s.secrets.Encrypt(ctx, []byte(value))
	if err != nil {
		return "", fmt.Errorf("sqlstore: encrypt token: %w", err)
	}
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

func (s *SettingsTokenStore) reveal(ctx context.Context, value string) (string, error) {
	if value == "" || s.secrets == nil {
		return value, nil
	}
	ciphertext, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return "", fmt.Errorf("sqlstore: decode stored token: %w", err)
	}
	plaintext, err := s.secrets.Decrypt(ctx, ciphertext)
	if err != nil {
		return "", fmt.Errorf("sqlstore: decrypt token: %w", err)
	}
	return string(plaintext), nil
}

// Setting reads one raw settings row. It reports sql.ErrNoRows as not found.
func (s *SettingsTokenStore) Setting(ctx context.Context, name string) (string, bool, error) {
	if s == nil || s.db == nil {
		return "", false, fmt.Errorf("sqlstore: settings token store is not configured")
	}
	record := &settingRecord{}
	err := s.db.NewSelect().
		Model(record).
		Where("?TableAlias.name = ?", strings.TrimSpace(name)).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", false, nil
		}
		return "", false, err
	}
	return record.Value, true, nil
}
