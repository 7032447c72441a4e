package core

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

const (
	EnvironmentProduction = "production"
	EnvironmentSandbox    = "sandbox"

	ProductionAuthBaseURL = "https://account.docusign.com"
	ProductionAPIBaseURL  = "https://na4.docusign.net/restapi"
	SandboxAuthBaseURL    = "https://account-d.docusign.com"
	SandboxAPIBaseURL     = "https://demo.docusign.net/restapi"

	DefaultTokenKeyPrefix       = "docusign_"
	DefaultWebhookStoragePrefix = "envelopes"
	DefaultRefreshMargin        = 5 * time.Minute
	DefaultRequestTimeout       = 30 * time.Second
	DefaultMaxPayloadBytes      = 32 << 20 // 32 MiB, documents may be inlined
	DefaultTokenCacheTTL        = 30 * time.Second

	DriverSQLite     = "sqlite3"
	DriverPostgres   = "postgres"
	DefaultSQLiteDSN = "file:esign.db?cache=shared&_foreign_keys=on"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

type OAuthConfig struct {
	ClientID       string        `koanf:"client_id" mapstructure:"client_id"`
	ClientSecret   string        `koanf:"client_secret" mapstructure:"client_secret"`
	AuthBaseURL    string        `koanf:"auth_base_url" mapstructure:"auth_base_url"`
	CallbackURL    string        `koanf:"callback_url" mapstructure:"callback_url"`
	Scopes         []string      `koanf:"scopes" mapstructure:"scopes"`
	RefreshMargin  time.Duration `koanf:"refresh_margin" mapstructure:"refresh_margin"`
	RequestTimeout time.Duration `koanf:"request_timeout" mapstructure:"request_timeout"`
}

type APIConfig struct {
	BaseURL          string        `koanf:"base_url" mapstructure:"base_url"`
	AccountID        string        `koanf:"account_id" mapstructure:"account_id"`
	DefaultReturnURL string        `koanf:"default_return_url" mapstructure:"default_return_url"`
	RequestTimeout   time.Duration `koanf:"request_timeout" mapstructure:"request_timeout"`
}

type WebhookConfig struct {
	CallbackURL     string `koanf:"callback_url" mapstructure:"callback_url"`
	StoragePrefix   string `koanf:"storage_prefix" mapstructure:"storage_prefix"`
	MaxPayloadBytes int64  `koanf:"max_payload_bytes" mapstructure:"max_payload_bytes"`
	HMACSecret      string `koanf:"hmac_secret" mapstructure:"hmac_secret"`
}

// TokensConfig controls token persistence. PreviousKey stays readable after
// a key rotation until every record has been rewritten.
type TokensConfig struct {
	KeyPrefix     string        `koanf:"key_prefix" mapstructure:"key_prefix"`
	EncryptionKey string        `koanf:"encryption_key" mapstructure:"encryption_key"`
	KeyID         string        `koanf:"key_id" mapstructure:"key_id"`
	PreviousKey   string        `koanf:"previous_key" mapstructure:"previous_key"`
	PreviousKeyID string        `koanf:"previous_key_id" mapstructure:"previous_key_id"`
	CacheTTL      time.Duration `koanf:"cache_ttl" mapstructure:"cache_ttl"`
	DisableCache  bool          `koanf:"disable_cache" mapstructure:"disable_cache"`
}

type HTTPConfig struct {
	Address string `koanf:"address" mapstructure:"address"`
}

type DatabaseConfig struct {
	Driver string `koanf:"driver" mapstructure:"driver"`
	DSN    string `koanf:"dsn" mapstructure:"dsn"`
	Debug  bool   `koanf:"debug" mapstructure:"debug"`
}

// S3Config selects the S3 webhook archive when Bucket is set.
type S3Config struct {
	Bucket          string        `koanf:"bucket" mapstructure:"bucket"`
	Region          string        `koanf:"region" mapstructure:"region"`
	Endpoint        string        `koanf:"endpoint" mapstructure:"endpoint"`
	AccessKeyID     string        `koanf:"access_key_id" mapstructure:"access_key_id"`
	SecretAccessKey string        `koanf:"secret_access_key" mapstructure:"secret_access_key"`
	Timeout         time.Duration `koanf:"timeout" mapstructure:"timeout"`
}

type LogConfig struct {
	Level  string `koanf:"level" mapstructure:"level"`
	Format string `koanf:"format" mapstructure:"format"`
}

// Config is the explicit integration configuration handed to every
// constructor. There is no process-wide integration instance.
type Config struct {
	ServiceName string         `koanf:"service_name" mapstructure:"service_name"`
	Environment string         `koanf:"environment" mapstructure:"environment"`
	OAuth       OAuthConfig    `koanf:"oauth" mapstructure:"oauth"`
	API         APIConfig      `koanf:"api" mapstructure:"api"`
	Webhook     WebhookConfig  `koanf:"webhook" mapstructure:"webhook"`
	Tokens      TokensConfig   `koanf:"tokens" mapstructure:"tokens"`
	HTTP        HTTPConfig     `koanf:"http" mapstructure:"http"`
	Database    DatabaseConfig `koanf:"database" mapstructure:"database"`
	S3          S3Config       `koanf:"s3" mapstructure:"s3"`
	Log         LogConfig      `koanf:"log" mapstructure:"log"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName: "esign",
		Environment: EnvironmentProduction,
		OAuth: OAuthConfig{
			Scopes:         []string{"signature", "extended"},
			RefreshMargin:  DefaultRefreshMargin,
			RequestTimeout: DefaultRequestTimeout,
		},
		API: APIConfig{
			RequestTimeout: DefaultRequestTimeout,
		},
		Webhook: WebhookConfig{
			StoragePrefix:   DefaultWebhookStoragePrefix,
			MaxPayloadBytes: DefaultMaxPayloadBytes,
		},
		Tokens: TokensConfig{
			KeyPrefix: DefaultTokenKeyPrefix,
			CacheTTL:  DefaultTokenCacheTTL,
		},
		HTTP: HTTPConfig{
			Address: ":8080",
		},
		Database: DatabaseConfig{
			Driver: DriverSQLite,
		},
		Log: LogConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}

// Normalized fills provider hosts from the environment when they are not set
// explicitly and trims string fields.
func (c Config) Normalized() Config {
	out := c
	out.ServiceName = strings.TrimSpace(out.ServiceName)
	out.Environment = strings.ToLower(strings.TrimSpace(out.Environment))
	if out.Environment == "" {
		out.Environment = EnvironmentProduction
	}
	out.OAuth.ClientID = strings.TrimSpace(out.OAuth.ClientID)
	out.OAuth.ClientSecret = strings.TrimSpace(out.OAuth.ClientSecret)
	out.OAuth.CallbackURL = strings.TrimSpace(out.OAuth.CallbackURL)
	out.OAuth.AuthBaseURL = strings.TrimRight(strings.TrimSpace(out.OAuth.AuthBaseURL), "/")
	out.API.BaseURL = strings.TrimRight(strings.TrimSpace(out.API.BaseURL), "/")
	out.API.AccountID = strings.TrimSpace(out.API.AccountID)
	out.API.DefaultReturnURL = strings.TrimSpace(out.API.DefaultReturnURL)
	out.Webhook.CallbackURL = strings.TrimSpace(out.Webhook.CallbackURL)
	out.Webhook.StoragePrefix = strings.Trim(strings.TrimSpace(out.Webhook.StoragePrefix), "/")

	if out.OAuth.AuthBaseURL == "" {
		out.OAuth.AuthBaseURL = ProductionAuthBaseURL
		if out.Environment == EnvironmentSandbox {
			out.OAuth.AuthBaseURL = SandboxAuthBaseURL
		}
	}
	if out.API.BaseURL == "" {
		out.API.BaseURL = ProductionAPIBaseURL
		if out.Environment == EnvironmentSandbox {
			out.API.BaseURL = SandboxAPIBaseURL
		}
	}
	out.OAuth.Scopes = splitList(out.OAuth.Scopes)
	if len(out.OAuth.Scopes) == 0 {
		out.OAuth.Scopes = []string{"signature", "extended"}
	}
	if out.OAuth.RefreshMargin <= 0 {
		out.OAuth.RefreshMargin = DefaultRefreshMargin
	}
	if out.OAuth.RequestTimeout <= 0 {
		out.OAuth.RequestTimeout = DefaultRequestTimeout
	}
	if out.API.RequestTimeout <= 0 {
		out.API.RequestTimeout = DefaultRequestTimeout
	}
	if out.Webhook.StoragePrefix == "" {
		out.Webhook.StoragePrefix = DefaultWebhookStoragePrefix
	}
	if out.Webhook.MaxPayloadBytes <= 0 {
		out.Webhook.MaxPayloadBytes = DefaultMaxPayloadBytes
	}
	if strings.TrimSpace(out.Tokens.KeyPrefix) == "" {
		out.Tokens.KeyPrefix = DefaultTokenKeyPrefix
	}
	out.Tokens.KeyID = strings.TrimSpace(out.Tokens.KeyID)
	out.Tokens.PreviousKeyID = strings.TrimSpace(out.Tokens.PreviousKeyID)
	if out.Tokens.CacheTTL <= 0 {
		out.Tokens.CacheTTL = DefaultTokenCacheTTL
	}

	out.Database.Driver = normalizeDriver(out.Database.Driver)
	out.Database.DSN = strings.TrimSpace(out.Database.DSN)
	if out.Database.Driver == DriverSQLite && out.Database.DSN == "" {
		out.Database.DSN = DefaultSQLiteDSN
	}

	out.S3.Bucket = strings.TrimSpace(out.S3.Bucket)
	out.S3.Region = strings.TrimSpace(out.S3.Region)
	out.S3.Endpoint = strings.TrimSpace(out.S3.Endpoint)

	out.Log.Level = strings.ToLower(strings.TrimSpace(out.Log.Level))
	switch out.Log.Level {
	case "":
		out.Log.Level = DefaultLogLevel
	case "warning":
		out.Log.Level = "warn"
	}
	out.Log.Format = strings.ToLower(strings.TrimSpace(out.Log.Format))
	if out.Log.Format == "" {
		out.Log.Format = DefaultLogFormat
	}
	return out
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	switch strings.ToLower(strings.TrimSpace(c.Environment)) {
	case "", EnvironmentProduction, EnvironmentSandbox:
	default:
		return fmt.Errorf("core: environment %q is invalid", c.Environment)
	}
	for field, value := range map[string]string{
		"oauth.auth_base_url":    c.OAuth.AuthBaseURL,
		"oauth.callback_url":     c.OAuth.CallbackURL,
		"api.base_url":           c.API.BaseURL,
		"api.default_return_url": c.API.DefaultReturnURL,
		"webhook.callback_url":   c.Webhook.CallbackURL,
	} {
		if strings.TrimSpace(value) == "" {
			continue
		}
		parsed, err := url.Parse(strings.TrimSpace(value))
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("core: %s must be an absolute url", field)
		}
	}

	switch normalizeDriver(c.Database.Driver) {
	case DriverSQLite:
	case DriverPostgres:
		if strings.TrimSpace(c.Database.DSN) == "" {
			return fmt.Errorf("core: database.dsn is required for postgres")
		}
	default:
		return fmt.Errorf("core: database.driver %q is invalid", c.Database.Driver)
	}
	if c.Tokens.CacheTTL < 0 {
		return fmt.Errorf("core: tokens.cache_ttl must be positive")
	}
	if strings.TrimSpace(c.Tokens.PreviousKey) != "" && strings.TrimSpace(c.Tokens.EncryptionKey) == "" {
		return fmt.Errorf("core: tokens.previous_key requires tokens.encryption_key")
	}
	if c.S3.Timeout < 0 {
		return fmt.Errorf("core: s3.timeout must be positive")
	}
	if endpoint := strings.TrimSpace(c.S3.Endpoint); endpoint != "" {
		parsed, err := url.Parse(endpoint)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("core: s3.endpoint must be an absolute url")
		}
	}
	switch strings.ToLower(strings.TrimSpace(c.Log.Level)) {
	case "", "trace", "debug", "info", "warn", "warning", "error", "fatal":
	default:
		return fmt.Errorf("core: log.level %q is invalid", c.Log.Level)
	}
	switch strings.ToLower(strings.TrimSpace(c.Log.Format)) {
	case "", "json", "console", "pretty":
	default:
		return fmt.Errorf("core: log.format %q is invalid", c.Log.Format)
	}
	return nil
}

func normalizeDriver(driver string) string {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", "sqlite", DriverSQLite:
		return DriverSQLite
	case "postgresql", "pg", DriverPostgres:
		return DriverPostgres
	default:
		return strings.ToLower(strings.TrimSpace(driver))
	}
}

// splitList accepts comma or space separated entries, which is how list
// values arrive from environment variables.
func splitList(values []string) []string {
	var out []string
	for _, value := range values {
		out = append(out, strings.FieldsFunc(value, func(r rune) bool { return r == ',' || r == ' ' })...)
	}
	return out
}

// ValidateIntegration checks the fields a live integration needs on top of
// Validate.
func (c Config) ValidateIntegration() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(c.OAuth.ClientID) == "" {
		return fmt.Errorf("core: oauth.client_id is required")
	}
	if strings.TrimSpace(c.OAuth.ClientSecret) == "" {
		return fmt.Errorf("core: oauth.client_secret is required")
	}
	if strings.TrimSpace(c.OAuth.CallbackURL) == "" {
		return fmt.Errorf("core: oauth.callback_url is required")
	}
	if strings.TrimSpace(c.API.AccountID) == "" {
		return fmt.Errorf("core: api.account_id is required")
	}
	return nil
}
