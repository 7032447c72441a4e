package gocommand

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-command"
	commanddispatcher "github.com/goliatone/go-command/dispatcher"
	"github.com/goliatone/go-command/runner"
	"github.com/goliatone/go-esign/auth"
	esigncommand "github.com/goliatone/go-esign/command"
	"github.com/goliatone/go-esign/envelopes"
	esignquery "github.com/goliatone/go-esign/query"
)

// ValidateMessageContract enforces Type() plus optional Validate() contract.
func ValidateMessageContract(msg any) error {
	if err := command.ValidateMessage(msg); err != nil {
		return err
	}
	m, ok := msg.(command.Message)
	if !ok {
		return fmt.Errorf("gocommand: message must implement Type() string")
	}
	if strings.TrimSpace(m.Type()) == "" {
		return fmt.Errorf("gocommand: message type is required")
	}
	return nil
}

type RegistryAdapter struct {
	registry *command.Registry
}

func NewRegistryAdapter(registry *command.Registry) *RegistryAdapter {
	if registry == nil {
		registry = command.NewRegistry()
	}
	return &RegistryAdapter{registry: registry}
}

func (a *RegistryAdapter) Registry() *command.Registry {
	if a == nil {
		return nil
	}
	return a.registry
}

func (a *RegistryAdapter) RegisterCommand(cmd any) error {
	if a == nil || a.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	return a.registry.RegisterCommand(cmd)
}

func (a *RegistryAdapter) AddResolver(key string, resolver command.Resolver) error {
	if a == nil || a.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	return a.registry.AddResolver(strings.TrimSpace(key), resolver)
}

func (a *RegistryAdapter) HasResolver(key string) bool {
	if a == nil || a.registry == nil {
		return false
	}
	return a.registry.HasResolver(strings.TrimSpace(key))
}

func (a *RegistryAdapter) Initialize() error {
	if a == nil || a.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	return a.registry.Initialize()
}

func Dispatch[T any](ctx context.Context, msg T) error {
	return commanddispatcher.Dispatch(ctx, msg)
}

func Query[T any, R any](ctx context.Context, msg T) (R, error) {
	return commanddispatcher.Query[T, R](ctx, msg)
}

func RegisterAndSubscribe[T any](
	adapter *RegistryAdapter,
	cmd command.Commander[T],
	runnerOpts ...runner.Option,
) (commanddispatcher.Subscription, error) {
	if adapter == nil || adapter.registry == nil {
		return nil, fmt.Errorf("gocommand: registry is not configured")
	}
	if cmd == nil {
		return nil, fmt.Errorf("gocommand: command is required")
	}
	subscription := commanddispatcher.SubscribeCommand(cmd, runnerOpts...)
	if err := adapter.RegisterCommand(cmd); err != nil {
		if subscription != nil {
			subscription.Unsubscribe()
		}
		return nil, err
	}
	return subscription, nil
}

func RegisterAndSubscribeQuery[T any, R any](
	adapter *RegistryAdapter,
	qry command.Querier[T, R],
	runnerOpts ...runner.Option,
) (commanddispatcher.Subscription, error) {
	if adapter == nil || adapter.registry == nil {
		return nil, fmt.Errorf("gocommand: registry is not configured")
	}
	if qry == nil {
		return nil, fmt.Errorf("gocommand: query is required")
	}
	subscription := commanddispatcher.SubscribeQuery(qry, runnerOpts...)
	if err := adapter.RegisterCommand(qry); err != nil {
		if subscription != nil {
			subscription.Unsubscribe()
		}
		return nil, err
	}
	return subscription, nil
}

// Handlers groups the integration's command and query handlers. Nil fields
// are skipped.
type Handlers struct {
	ExchangeCode      *esigncommand.ExchangeCodeCommand
	Revoke            *esigncommand.RevokeCommand
	CreateEnvelope    *esigncommand.CreateEnvelopeCommand
	CreateEmbedded    *esigncommand.CreateEmbeddedEnvelopeCommand
	ProcessWebhook    *esigncommand.ProcessWebhookCommand
	AuthorizationURL  *esignquery.AuthorizationURLQuery
	ConnectionStatus  *esignquery.ConnectionStatusQuery
	ListStatusChanges *esignquery.ListStatusChangesQuery
}

// Subscriptions releases dispatcher subscriptions made by RegisterHandlers.
type Subscriptions []commanddispatcher.Subscription

func (s Subscriptions) Unsubscribe() {
	for _, subscription := range s {
		if subscription != nil {
			subscription.Unsubscribe()
		}
	}
}

// RegisterHandlers registers every configured handler and subscribes it to
// the dispatcher. On error the subscriptions made so far are released.
func RegisterHandlers(adapter *RegistryAdapter, handlers Handlers, runnerOpts ...runner.Option) (Subscriptions, error) {
	var subs Subscriptions
	add := func(sub commanddispatcher.Subscription, err error) error {
		if err != nil {
			subs.Unsubscribe()
			return err
		}
		subs = append(subs, sub)
		return nil
	}

	if handlers.ExchangeCode != nil {
		if err := add(RegisterAndSubscribe[esigncommand.ExchangeCodeMessage](adapter, handlers.ExchangeCode, runnerOpts...)); err != nil {
			return nil, err
		}
	}
	if handlers.Revoke != nil {
		if err := add(RegisterAndSubscribe[esigncommand.RevokeMessage](adapter, handlers.Revoke, runnerOpts...)); err != nil {
			return nil, err
		}
	}
	if handlers.CreateEnvelope != nil {
		if err := add(RegisterAndSubscribe[esigncommand.CreateEnvelopeMessage](adapter, handlers.CreateEnvelope, runnerOpts...)); err != nil {
			return nil, err
		}
	}
	if handlers.CreateEmbedded != nil {
		if err := add(RegisterAndSubscribe[esigncommand.CreateEmbeddedEnvelopeMessage](adapter, handlers.CreateEmbedded, runnerOpts...)); err != nil {
			return nil, err
		}
	}
	if handlers.ProcessWebhook != nil {
		if err := add(RegisterAndSubscribe[esigncommand.ProcessWebhookMessage](adapter, handlers.ProcessWebhook, runnerOpts...)); err != nil {
			return nil, err
		}
	}
	if handlers.AuthorizationURL != nil {
		if err := add(RegisterAndSubscribeQuery[esignquery.AuthorizationURLMessage, esignquery.AuthorizationRedirect](adapter, handlers.AuthorizationURL, runnerOpts...)); err != nil {
			return nil, err
		}
	}
	if handlers.ConnectionStatus != nil {
		if err := add(RegisterAndSubscribeQuery[esignquery.ConnectionStatusMessage, auth.ConnectionStatus](adapter, handlers.ConnectionStatus, runnerOpts...)); err != nil {
			return nil, err
		}
	}
	if handlers.ListStatusChanges != nil {
		if err := add(RegisterAndSubscribeQuery[esignquery.ListStatusChangesMessage, []envelopes.EnvelopeStatusChange](adapter, handlers.ListStatusChanges, runnerOpts...)); err != nil {
			return nil, err
		}
	}
	return subs, nil
}
