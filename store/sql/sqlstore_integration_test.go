package sqlstore_test

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-esign/core"
	esignmigrations "github.com/goliatone/go-esign/migrations"
	"github.com/goliatone/go-esign/security"
	sqlstore "github.com/goliatone/go-esign/store/sql"
	"github.com/goliatone/go-esign/webhooks"
	persistence "github.com/goliatone/go-persistence-bun"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

type testPersistenceConfig struct {
	driver string
	server string
}

func (c testPersistenceConfig) GetDebug() bool {
	return false
}

func (c testPersistenceConfig) GetDriver() string {
	return c.driver
}

func (c testPersistenceConfig) GetServer() string {
	return c.server
}

func (c testPersistenceConfig) GetPingTimeout() time.Duration {
	return time.Second
}

func (c testPersistenceConfig) GetOtelIdentifier() string {
	return "go-esign-tests"
}

func TestMigrationSmokeApplySQLite(t *testing.T) {
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	for _, table := range []string{"esign_settings", "esign_webhook_events"} {
		var tableName string
		if err := client.DB().NewRaw(
			"SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?",
			table,
		).Scan(context.Background(), &tableName); err != nil {
			t.Fatalf("query sqlite master: %v", err)
		}
		if tableName != table {
			t.Fatalf("expected %s table, got %q", table, tableName)
		}
	}
}

func TestSettingsTokenStore_RoundTripAndClear(t *testing.T) {
	ctx := context.Background()
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	factory, err := sqlstore.NewRepositoryFactoryFromPersistence(client, sqlstore.FactoryOptions{})
	if err != nil {
		t.Fatalf("new repository factory: %v", err)
	}
	store := factory.TokenStore()

	if _, found, err := store.Load(ctx); err != nil || found {
		t.Fatalf("expected empty store, got found=%t err=%v", found, err)
	}

	expiresAt := time.Date(2024, 1, 1, 11, 0, 0, 0, time.UTC)
	if err := store.Save(ctx, core.TokenRecord{AccessToken: "A1", RefreshToken: "R1", ExpiresAt: expiresAt}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.Save(ctx, core.TokenRecord{AccessToken: "A2", RefreshToken: "R2", ExpiresAt: expiresAt.Add(time.Hour)}); err != nil {
		t.Fatalf("save update: %v", err)
	}
	record, found, err := store.Load(ctx)
	if err != nil || !found {
		t.Fatalf("load: found=%t err=%v", found, err)
	}
	if record.AccessToken != "A2" || record.RefreshToken != "R2" || !record.ExpiresAt.Equal(expiresAt.Add(time.Hour)) {
		t.Fatalf("unexpected record %#v", record)
	}

	var rows int
	if err := client.DB().NewRaw("SELECT COUNT(*) FROM esign_settings").Scan(ctx, &rows); err != nil {
		t.Fatalf("count settings: %v", err)
	}
	if rows != 3 {
		t.Fatalf("expected three settings rows, got %d", rows)
	}
	raw, ok, err := store.Setting(ctx, "docusign_access_token")
	if err != nil || !ok || raw != "A2" {
		t.Fatalf("expected default key prefix, got %q ok=%t err=%v", raw, ok, err)
	}

	if err := store.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if err := store.Clear(ctx); err != nil {
		t.Fatalf("second clear: %v", err)
	}
	if _, found, err := store.Load(ctx); err != nil || found {
		t.Fatalf("expected cleared store, got found=%t err=%v", found, err)
	}
}

func TestSettingsTokenStore_EncryptsAtRest(t *testing.T) {
	ctx := context.Background()
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	tokenCipher, err := security.NewTokenCipherFromString("integration-key")
	if err != nil {
		t.Fatalf("new cipher: %v", err)
	}
	store, err := sqlstore.NewSettingsTokenStore(client.DB(), "acme_", tokenCipher)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if err := store.Save(ctx, core.TokenRecord{AccessToken: "secret-access", RefreshToken: "secret-refresh", ExpiresAt: time.Now().UTC().Add(time.Hour)}); err != nil {
		t.Fatalf("save: %v", err)
	}
	raw, ok, err := store.Setting(ctx, "acme_access_token")
	if err != nil || !ok {
		t.Fatalf("read raw setting: ok=%t err=%v", ok, err)
	}
	if strings.Contains(raw, "secret-access") {
		t.Fatalf("expected access token encrypted at rest, got %q", raw)
	}
	record, found, err := store.Load(ctx)
	if err != nil || !found {
		t.Fatalf("load: found=%t err=%v", found, err)
	}
	if record.AccessToken != "secret-access" || record.RefreshToken != "secret-refresh" {
		t.Fatalf("unexpected decrypted record %#v", record)
	}

	otherCipher, err := security.NewTokenCipherFromString("other-key")
	if err != nil {
		t.Fatalf("new cipher: %v", err)
	}
	wrongKey, err := sqlstore.NewSettingsTokenStore(client.DB(), "acme_", otherCipher)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if _, _, err := wrongKey.Load(ctx); err == nil {
		t.Fatalf("expected decrypt failure under a different key")
	}
}

func TestSettingsTokenStore_ConcurrentSavesStayConsistent(t *testing.T) {
	ctx := context.Background()
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	store, err := sqlstore.NewSettingsTokenStore(client.DB(), "", nil)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	var wg sync.WaitGroup
	for index := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			suffix := fmt.Sprint(index)
			_ = store.Save(ctx, core.TokenRecord{AccessToken: "A" + suffix, RefreshToken: "R" + suffix, ExpiresAt: time.Unix(int64(index), 0).UTC()})
		}()
	}
	wg.Wait()

	record, found, err := store.Load(ctx)
	if err != nil || !found {
		t.Fatalf("load: found=%t err=%v", found, err)
	}
	suffix := strings.TrimPrefix(record.AccessToken, "A")
	if record.RefreshToken != "R"+suffix || fmt.Sprint(record.ExpiresAt.Unix()) != suffix {
		t.Fatalf("expected fields from a single save, got %#v", record)
	}
}

func TestWebhookArchive_OverwritesSameKey(t *testing.T) {
	ctx := context.Background()
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	factory, err := sqlstore.NewRepositoryFactoryFromDB(client.DB(), sqlstore.FactoryOptions{})
	if err != nil {
		t.Fatalf("new repository factory: %v", err)
	}
	archive := factory.WebhookArchive()
	key := webhooks.StorageKey("envelopes", "E1", "2024-01-01T10:00:00Z", nil)

	if !archive.Put(ctx, key, []byte("<first/>")) {
		t.Fatalf("expected first put to succeed")
	}
	if !archive.Put(ctx, key, []byte("<second/>")) {
		t.Fatalf("expected redelivery put to succeed")
	}
	payload, writes, err := archive.Get(ctx, key)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(payload) != "<second/>" || writes != 2 {
		t.Fatalf("expected overwritten payload with two writes, got %q writes=%d", payload, writes)
	}

	other := webhooks.StorageKey("envelopes", "E1", "2024-01-01T11:00:00Z", nil)
	if !archive.Put(ctx, other, []byte("<third/>")) {
		t.Fatalf("expected put to succeed")
	}
	keys, err := archive.ListByEnvelope(ctx, "envelopes", "E1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(keys) != 2 {
		t.Fatalf("expected two keys for envelope, got %v", keys)
	}
	if archive.Put(ctx, "  ", []byte("x")) {
		t.Fatalf("expected empty key rejected")
	}
}

func TestWebhookArchive_DrivesPipeline(t *testing.T) {
	ctx := context.Background()
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	archive, err := sqlstore.NewWebhookArchive(client.DB(), nil)
	if err != nil {
		t.Fatalf("new archive: %v", err)
	}
	pipeline, err := webhooks.NewPipeline(core.DefaultConfig(), archive)
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}
	payload := []byte(`<DocuSignEnvelopeInformation><EnvelopeStatus><EnvelopeID>E9</EnvelopeID><Status>Sent</Status><TimeGenerated>2024-01-01T10:00:00Z</TimeGenerated></EnvelopeStatus></DocuSignEnvelopeInformation>`)
	result, err := pipeline.Process(ctx, payload)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	stored, _, err := archive.Get(ctx, result.StorageKey)
	if err != nil {
		t.Fatalf("get stored payload: %v", err)
	}
	if string(stored) != string(payload) {
		t.Fatalf("expected byte identical payload")
	}
}

func newSQLiteClient(t *testing.T) (*persistence.Client, func()) {
	t.Helper()

	dsn := fmt.Sprintf(
		"file:esign-test-%d?mode=memory&cache=shared&_foreign_keys=on",
		time.Now().UnixNano(),
	)
	sqlDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		t.Fatalf("open sqlite db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	cfg := testPersistenceConfig{
		driver: "sqlite3",
		server: dsn,
	}
	client, err := persistence.New(cfg, sqlDB, sqlitedialect.New())
	if err != nil {
		_ = sqlDB.Close()
		t.Fatalf("new persistence client: %v", err)
	}

	ctx := context.Background()
	_, err = esignmigrations.Register(ctx, func(_ context.Context, dialect string, _ string, fsys fs.FS) error {
		if dialect != esignmigrations.DialectSQLite {
			return nil
		}
		client.RegisterSQLMigrations(fsys)
		return nil
	}, esignmigrations.WithValidationTargets(esignmigrations.DialectSQLite))
	if err != nil {
		_ = client.Close()
		t.Fatalf("register migrations: %v", err)
	}
	if err := client.Migrate(ctx); err != nil {
		_ = client.Close()
		t.Fatalf("migrate: %v", err)
	}

	return client, func() {
		_ = client.Close()
	}
}
