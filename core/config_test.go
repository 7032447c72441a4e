package core

import (
	"context"
	"testing"
	"time"
)

type fixedConfigProvider struct {
	cfg Config
}

func (p *fixedConfigProvider) Load(context.Context, Config) (Config, error) {
	return p.cfg, nil
}

func TestConfigNormalized_EnvironmentHosts(t *testing.T) {
	prod := Config{ServiceName: "esign"}.Normalized()
	if prod.OAuth.AuthBaseURL != ProductionAuthBaseURL || prod.API.BaseURL != ProductionAPIBaseURL {
		t.Fatalf("unexpected production hosts %q %q", prod.OAuth.AuthBaseURL, prod.API.BaseURL)
	}
	if prod.Environment != EnvironmentProduction {
		t.Fatalf("expected production default, got %q", prod.Environment)
	}

	sandbox := Config{ServiceName: "esign", Environment: " Sandbox "}.Normalized()
	if sandbox.OAuth.AuthBaseURL != SandboxAuthBaseURL || sandbox.API.BaseURL != SandboxAPIBaseURL {
		t.Fatalf("unexpected sandbox hosts %q %q", sandbox.OAuth.AuthBaseURL, sandbox.API.BaseURL)
	}

	explicit := Config{ServiceName: "esign", API: APIConfig{BaseURL: "https://eu.docusign.net/restapi/"}}.Normalized()
	if explicit.API.BaseURL != "https://eu.docusign.net/restapi" {
		t.Fatalf("expected explicit base url kept without trailing slash, got %q", explicit.API.BaseURL)
	}
}

func TestConfigNormalized_FillsDefaults(t *testing.T) {
	cfg := Config{ServiceName: "esign", Webhook: WebhookConfig{StoragePrefix: "/audit/"}}.Normalized()
	if cfg.Webhook.StoragePrefix != "audit" {
		t.Fatalf("expected trimmed storage prefix, got %q", cfg.Webhook.StoragePrefix)
	}
	if cfg.OAuth.RefreshMargin != DefaultRefreshMargin {
		t.Fatalf("expected default refresh margin, got %s", cfg.OAuth.RefreshMargin)
	}
	if cfg.Tokens.KeyPrefix != DefaultTokenKeyPrefix {
		t.Fatalf("expected default key prefix, got %q", cfg.Tokens.KeyPrefix)
	}
	if len(cfg.OAuth.Scopes) != 2 {
		t.Fatalf("expected default scopes, got %#v", cfg.OAuth.Scopes)
	}
}

func TestConfigValidate(t *testing.T) {
	if err := (Config{}).Validate(); err == nil {
		t.Fatalf("expected service name error")
	}
	if err := (Config{ServiceName: "esign", Environment: "staging"}).Validate(); err == nil {
		t.Fatalf("expected environment error")
	}
	cfg := Config{ServiceName: "esign", OAuth: OAuthConfig{CallbackURL: "/relative"}}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected absolute url error")
	}
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestConfigValidateIntegration(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.ValidateIntegration(); err == nil {
		t.Fatalf("expected missing client id error")
	}
	cfg.OAuth.ClientID = "client"
	cfg.OAuth.ClientSecret = "secret"
	cfg.OAuth.CallbackURL = "https://app.example/docusign/oauth/callback"
	cfg.API.AccountID = "acc_1"
	if err := cfg.ValidateIntegration(); err != nil {
		t.Fatalf("expected complete integration config, got %v", err)
	}
}

func TestLoadConfig_RuntimeOverridesLoaded(t *testing.T) {
	provider := NewCfgxConfigProvider(StaticRawConfigLoader{Values: map[string]any{
		"service_name": "from-config",
		"environment":  "sandbox",
		"oauth": map[string]any{
			"client_id": "cfg-client",
		},
		"api": map[string]any{
			"account_id": "cfg-account",
		},
	}})

	cfg, err := LoadConfig(context.Background(), provider, nil, Config{
		OAuth: OAuthConfig{ClientID: "runtime-client"},
	})
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.ServiceName != "from-config" {
		t.Fatalf("expected loaded service name, got %q", cfg.ServiceName)
	}
	if cfg.OAuth.ClientID != "runtime-client" {
		t.Fatalf("expected runtime override, got %q", cfg.OAuth.ClientID)
	}
	if cfg.API.AccountID != "cfg-account" {
		t.Fatalf("expected loaded account id, got %q", cfg.API.AccountID)
	}
	if cfg.API.BaseURL != SandboxAPIBaseURL {
		t.Fatalf("expected sandbox api base url, got %q", cfg.API.BaseURL)
	}
}

func TestLoadConfig_ProviderError(t *testing.T) {
	_, err := LoadConfig(context.Background(), &fixedConfigProvider{cfg: Config{}}, nil, Config{Environment: "moon"})
	if err == nil {
		t.Fatalf("expected validation error for invalid environment")
	}
	if TextCode(err) == "" {
		t.Fatalf("expected mapped error envelope, got %T", err)
	}
}

func TestConfigNormalized_StorageSections(t *testing.T) {
	cfg := Config{
		ServiceName: "esign",
		OAuth:       OAuthConfig{Scopes: []string{"signature,extended impersonation"}},
		Database:    DatabaseConfig{Driver: "SQLite"},
		Log:         LogConfig{Level: " Warning "},
	}.Normalized()
	if len(cfg.OAuth.Scopes) != 3 || cfg.OAuth.Scopes[2] != "impersonation" {
		t.Fatalf("expected split scopes, got %#v", cfg.OAuth.Scopes)
	}
	if cfg.Database.Driver != DriverSQLite || cfg.Database.DSN != DefaultSQLiteDSN {
		t.Fatalf("expected sqlite defaults, got %+v", cfg.Database)
	}
	if cfg.Log.Level != "warn" || cfg.Log.Format != DefaultLogFormat {
		t.Fatalf("unexpected log section %+v", cfg.Log)
	}
	if cfg.Tokens.CacheTTL != DefaultTokenCacheTTL {
		t.Fatalf("expected default cache ttl, got %s", cfg.Tokens.CacheTTL)
	}

	pg := Config{ServiceName: "esign", Database: DatabaseConfig{Driver: "postgresql", DSN: "postgres://db/esign"}}.Normalized()
	if pg.Database.Driver != DriverPostgres {
		t.Fatalf("expected postgres alias normalized, got %q", pg.Database.Driver)
	}
}

func TestConfigValidate_StorageSections(t *testing.T) {
	base := DefaultConfig()
	cases := map[string]func(*Config){
		"postgres without dsn": func(c *Config) { c.Database.Driver = DriverPostgres },
		"unknown driver":       func(c *Config) { c.Database.Driver = "oracle" },
		"negative cache ttl":   func(c *Config) { c.Tokens.CacheTTL = -time.Second },
		"orphan previous key":  func(c *Config) { c.Tokens.PreviousKey = "old" },
		"relative s3 endpoint": func(c *Config) { c.S3.Endpoint = "minio:9000" },
		"unknown log level":    func(c *Config) { c.Log.Level = "loud" },
		"unknown log format":   func(c *Config) { c.Log.Format = "xml" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := base
			mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestEnvConfigProvider_LoadsPrefixedSections(t *testing.T) {
	t.Setenv("ESIGN_TEST_OAUTH__CLIENT_ID", "client")
	t.Setenv("ESIGN_TEST_DATABASE__DRIVER", "postgres")
	t.Setenv("ESIGN_TEST_DATABASE__DSN", "postgres://db/esign")
	t.Setenv("ESIGN_TEST_TOKENS__DISABLE_CACHE", "true")

	cfg, err := LoadConfig(context.Background(), NewEnvConfigProvider("ESIGN_TEST_"), GoOptionsResolver{}, Config{})
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.OAuth.ClientID != "client" || cfg.Database.Driver != DriverPostgres || cfg.Database.DSN != "postgres://db/esign" {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if !cfg.Tokens.DisableCache {
		t.Fatalf("expected cache disabled")
	}
	if cfg.Webhook.StoragePrefix != DefaultWebhookStoragePrefix {
		t.Fatalf("expected defaults kept, got %q", cfg.Webhook.StoragePrefix)
	}
}
