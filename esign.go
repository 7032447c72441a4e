package esign

import (
	"github.com/goliatone/go-esign/auth"
	"github.com/goliatone/go-esign/command"
	"github.com/goliatone/go-esign/core"
	"github.com/goliatone/go-esign/envelopes"
	"github.com/goliatone/go-esign/query"
	"github.com/goliatone/go-esign/webhooks"
)

type Config = core.Config

type TokenRecord = core.TokenRecord

type TokenStore = core.TokenStore

func DefaultConfig() Config {
	return core.DefaultConfig()
}

// Dependencies are the collaborators New wires together. Nil stores fall
// back to in-memory implementations.
type Dependencies struct {
	TokenStore     core.TokenStore
	Archive        webhooks.Archive
	Records        webhooks.RecordFinder
	HTTPClient     core.HTTPDoer
	Logger         core.Logger
	LoggerProvider core.LoggerProvider
	Metrics        core.MetricsRecorder
}

type Commands struct {
	ExchangeCode   *command.ExchangeCodeCommand
	Revoke         *command.RevokeCommand
	CreateEnvelope *command.CreateEnvelopeCommand
	CreateEmbedded *command.CreateEmbeddedEnvelopeCommand
	ProcessWebhook *command.ProcessWebhookCommand
}

type Queries struct {
	AuthorizationURL  *query.AuthorizationURLQuery
	ConnectionStatus  *query.ConnectionStatusQuery
	ListStatusChanges *query.ListStatusChangesQuery
}

// Integration is one configured e-sign connection. Several may coexist in a
// process, each with its own config and stores.
type Integration struct {
	tokens    *auth.TokenManager
	envelopes *envelopes.Builder
	webhooks  *webhooks.Pipeline
	commands  Commands
	queries   Queries
}

func New(cfg Config, deps Dependencies) (*Integration, error) {
	cfg = cfg.Normalized()
	if err := cfg.ValidateIntegration(); err != nil {
		return nil, core.MapError(err)
	}

	store := deps.TokenStore
	if store == nil {
		store = core.NewMemoryTokenStore()
	}
	archive := deps.Archive
	if archive == nil {
		archive = webhooks.NewMemoryArchive()
	}

	tokens, err := auth.NewTokenManager(cfg, store,
		auth.WithHTTPClient(deps.HTTPClient),
		auth.WithLogger(deps.Logger),
		auth.WithLoggerProvider(deps.LoggerProvider),
		auth.WithMetricsRecorder(deps.Metrics),
	)
	if err != nil {
		return nil, err
	}
	builder, err := envelopes.NewBuilder(cfg, tokens, tokens.Subscription(),
		envelopes.WithHTTPClient(deps.HTTPClient),
		envelopes.WithLogger(deps.Logger),
		envelopes.WithLoggerProvider(deps.LoggerProvider),
		envelopes.WithMetricsRecorder(deps.Metrics),
	)
	if err != nil {
		return nil, err
	}
	pipeline, err := webhooks.NewPipeline(cfg, archive,
		webhooks.WithRecordFinder(deps.Records),
		webhooks.WithLogger(deps.Logger),
		webhooks.WithLoggerProvider(deps.LoggerProvider),
		webhooks.WithMetricsRecorder(deps.Metrics),
	)
	if err != nil {
		return nil, err
	}

	return &Integration{
		tokens:    tokens,
		envelopes: builder,
		webhooks:  pipeline,
		commands: Commands{
			ExchangeCode:   command.NewExchangeCodeCommand(tokens),
			Revoke:         command.NewRevokeCommand(tokens),
			CreateEnvelope: command.NewCreateEnvelopeCommand(builder),
			CreateEmbedded: command.NewCreateEmbeddedEnvelopeCommand(builder),
			ProcessWebhook: command.NewProcessWebhookCommand(pipeline),
		},
		queries: Queries{
			AuthorizationURL:  query.NewAuthorizationURLQuery(tokens),
			ConnectionStatus:  query.NewConnectionStatusQuery(tokens),
			ListStatusChanges: query.NewListStatusChangesQuery(builder),
		},
	}, nil
}

func (i *Integration) Tokens() *auth.TokenManager {
	if i == nil {
		return nil
	}
	return i.tokens
}

func (i *Integration) Envelopes() *envelopes.Builder {
	if i == nil {
		return nil
	}
	return i.envelopes
}

func (i *Integration) Webhooks() *webhooks.Pipeline {
	if i == nil {
		return nil
	}
	return i.webhooks
}

func (i *Integration) Commands() Commands {
	if i == nil {
		return Commands{}
	}
	return i.commands
}

func (i *Integration) Queries() Queries {
	if i == nil {
		return Queries{}
	}
	return i.queries
}
