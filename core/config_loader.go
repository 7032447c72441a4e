package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-config/cfgx"
	goconfig "github.com/goliatone/go-config/config"
	opts "github.com/goliatone/go-options"
)

const (
	DefaultEnvPrefix    = "ESIGN_"
	DefaultEnvDelimiter = "__"
)

type ConfigProvider interface {
	Load(ctx context.Context, defaults Config) (Config, error)
}

type RawConfigLoader interface {
	LoadRaw(ctx context.Context) (map[string]any, error)
}

type OptionsResolver interface {
	Resolve(defaults Config, loaded Config, runtime Config) (Config, error)
}

// StaticRawConfigLoader returns a copy of Values on every load.
type StaticRawConfigLoader struct {
	Values map[string]any
}

func (l StaticRawConfigLoader) LoadRaw(context.Context) (map[string]any, error) {
	if len(l.Values) == 0 {
		return map[string]any{}, nil
	}
	out := make(map[string]any, len(l.Values))
	for key, value := range l.Values {
		out[key] = value
	}
	return out, nil
}

type CfgxConfigProvider struct {
	Loader RawConfigLoader
}

func NewCfgxConfigProvider(loader RawConfigLoader) *CfgxConfigProvider {
	return &CfgxConfigProvider{Loader: loader}
}

func (p *CfgxConfigProvider) Load(ctx context.Context, defaults Config) (Config, error) {
	if p == nil {
		return defaults, nil
	}
	loader := p.Loader
	if loader == nil {
		loader = StaticRawConfigLoader{}
	}
	raw, err := loader.LoadRaw(ctx)
	if err != nil {
		return Config{}, err
	}
	cfg, err := cfgx.Build[Config](raw,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// EnvConfigProvider reads Prefix-ed environment variables through go-config.
// Delimiter separates sections, so ESIGN_OAUTH__CLIENT_ID sets
// oauth.client_id.
type EnvConfigProvider struct {
	Prefix    string
	Delimiter string
}

func NewEnvConfigProvider(prefix string) *EnvConfigProvider {
	return &EnvConfigProvider{Prefix: prefix, Delimiter: DefaultEnvDelimiter}
}

func (p *EnvConfigProvider) Load(ctx context.Context, defaults Config) (Config, error) {
	prefix, delimiter := DefaultEnvPrefix, DefaultEnvDelimiter
	if p != nil {
		if strings.TrimSpace(p.Prefix) != "" {
			prefix = p.Prefix
		}
		if strings.TrimSpace(p.Delimiter) != "" {
			delimiter = p.Delimiter
		}
	}
	container := goconfig.New(defaults).
		WithConfigPath("").
		WithProvider(goconfig.EnvProvider[Config](prefix, delimiter))
	if err := container.Load(ctx); err != nil {
		return Config{}, err
	}
	return container.Raw(), nil
}

type GoOptionsResolver struct{}

func (GoOptionsResolver) Resolve(defaults Config, loaded Config, runtime Config) (Config, error) {
	stack, err := opts.NewStack(
		opts.NewLayer(
			opts.NewScope("defaults", 0),
			configToLayerMap(defaults, true),
			opts.WithSnapshotID[map[string]any]("defaults"),
		),
		opts.NewLayer(
			opts.NewScope("config", 10),
			configToLayerMap(loaded, false),
			opts.WithSnapshotID[map[string]any]("config"),
		),
		opts.NewLayer(
			opts.NewScope("runtime", 20),
			configToLayerMap(runtime, false),
			opts.WithSnapshotID[map[string]any]("runtime"),
		),
	)
	if err != nil {
		return Config{}, fmt.Errorf("core: options stack build failed: %w", err)
	}
	merged, err := stack.Merge()
	if err != nil {
		return Config{}, fmt.Errorf("core: options merge failed: %w", err)
	}
	resolved, err := cfgx.Build[Config](merged.Value,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	resolved = resolved.Normalized()
	if err := resolved.Validate(); err != nil {
		return Config{}, err
	}
	return resolved, nil
}

// LoadConfig resolves defaults < provider-loaded config < runtime overrides.
func LoadConfig(ctx context.Context, provider ConfigProvider, resolver OptionsResolver, runtime Config) (Config, error) {
	if provider == nil {
		provider = NewCfgxConfigProvider(nil)
	}
	if resolver == nil {
		resolver = GoOptionsResolver{}
	}
	defaults := DefaultConfig()
	loaded, err := provider.Load(ctx, defaults)
	if err != nil {
		return Config{}, MapError(err)
	}
	resolved, err := resolver.Resolve(defaults, loaded, runtime)
	if err != nil {
		return Config{}, MapError(err)
	}
	return resolved, nil
}

func configToLayerMap(cfg Config, includeZero bool) map[string]any {
	layer := map[string]any{}
	setString(layer, "service_name", cfg.ServiceName, includeZero)
	setString(layer, "environment", cfg.Environment, includeZero)

	oauth := map[string]any{}
	setString(oauth, "client_id", cfg.OAuth.ClientID, includeZero)
	setString(oauth, "client_secret", cfg.OAuth.ClientSecret, includeZero)
	setString(oauth, "auth_base_url", cfg.OAuth.AuthBaseURL, includeZero)
	setString(oauth, "callback_url", cfg.OAuth.CallbackURL, includeZero)
	if includeZero || len(cfg.OAuth.Scopes) > 0 {
		oauth["scopes"] = append([]string(nil), cfg.OAuth.Scopes...)
	}
	if includeZero || cfg.OAuth.RefreshMargin > 0 {
		oauth["refresh_margin"] = cfg.OAuth.RefreshMargin
	}
	if includeZero || cfg.OAuth.RequestTimeout > 0 {
		oauth["request_timeout"] = cfg.OAuth.RequestTimeout
	}
	setSection(layer, "oauth", oauth)

	api := map[string]any{}
	setString(api, "base_url", cfg.API.BaseURL, includeZero)
	setString(api, "account_id", cfg.API.AccountID, includeZero)
	setString(api, "default_return_url", cfg.API.DefaultReturnURL, includeZero)
	if includeZero || cfg.API.RequestTimeout > 0 {
		api["request_timeout"] = cfg.API.RequestTimeout
	}
	setSection(layer, "api", api)

	webhook := map[string]any{}
	setString(webhook, "callback_url", cfg.Webhook.CallbackURL, includeZero)
	setString(webhook, "storage_prefix", cfg.Webhook.StoragePrefix, includeZero)
	setString(webhook, "hmac_secret", cfg.Webhook.HMACSecret, includeZero)
	if includeZero || cfg.Webhook.MaxPayloadBytes > 0 {
		webhook["max_payload_bytes"] = cfg.Webhook.MaxPayloadBytes
	}
	setSection(layer, "webhook", webhook)

	tokens := map[string]any{}
	setString(tokens, "key_prefix", cfg.Tokens.KeyPrefix, includeZero)
	setString(tokens, "encryption_key", cfg.Tokens.EncryptionKey, includeZero)
	setString(tokens, "key_id", cfg.Tokens.KeyID, includeZero)
	setString(tokens, "previous_key", cfg.Tokens.PreviousKey, includeZero)
	setString(tokens, "previous_key_id", cfg.Tokens.PreviousKeyID, includeZero)
	if includeZero || cfg.Tokens.CacheTTL > 0 {
		tokens["cache_ttl"] = cfg.Tokens.CacheTTL
	}
	setBool(tokens, "disable_cache", cfg.Tokens.DisableCache, includeZero)
	setSection(layer, "tokens", tokens)

	httpSection := map[string]any{}
	setString(httpSection, "address", cfg.HTTP.Address, includeZero)
	setSection(layer, "http", httpSection)

	database := map[string]any{}
	setString(database, "driver", cfg.Database.Driver, includeZero)
	setString(database, "dsn", cfg.Database.DSN, includeZero)
	setBool(database, "debug", cfg.Database.Debug, includeZero)
	setSection(layer, "database", database)

	s3 := map[string]any{}
	setString(s3, "bucket", cfg.S3.Bucket, includeZero)
	setString(s3, "region", cfg.S3.Region, includeZero)
	setString(s3, "endpoint", cfg.S3.Endpoint, includeZero)
	setString(s3, "access_key_id", cfg.S3.AccessKeyID, includeZero)
	setString(s3, "secret_access_key", cfg.S3.SecretAccessKey, includeZero)
	if includeZero || cfg.S3.Timeout > 0 {
		s3["timeout"] = cfg.S3.Timeout
	}
	setSection(layer, "s3", s3)

	logSection := map[string]any{}
	setString(logSection, "level", cfg.Log.Level, includeZero)
	setString(logSection, "format", cfg.Log.Format, includeZero)
	setSection(layer, "log", logSection)
	return layer
}

func setString(layer map[string]any, key string, value string, includeZero bool) {
	if includeZero || strings.TrimSpace(value) != "" {
		layer[key] = value
	}
}

func setBool(layer map[string]any, key string, value bool, includeZero bool) {
	if includeZero || value {
		layer[key] = value
	}
}

func setSection(layer map[string]any, key string, section map[string]any) {
	if len(section) > 0 {
		layer[key] = section
	}
}
