package command

import (
	"context"

	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-esign/core"
	"github.com/goliatone/go-esign/envelopes"
	"github.com/goliatone/go-esign/webhooks"
)

type TokenService interface {
	ExchangeCode(ctx context.Context, code string) (core.TokenRecord, error)
	Revoke(ctx context.Context) error
}

type EnvelopeService interface {
	CreateFromTemplate(ctx context.Context, templateID string, signers []envelopes.SignerRole) (envelopes.EnvelopeSummary, error)
	CreateEmbedded(ctx context.Context, templateID string, signers []envelopes.SignerRole, redirectURL string) (envelopes.RedirectTarget, error)
}

type WebhookProcessor interface {
	Handle(ctx context.Context, req webhooks.Request) (webhooks.Result, error)
}

type ExchangeCodeCommand struct {
	service TokenService
}

func NewExchangeCodeCommand(service TokenService) *ExchangeCodeCommand {
	return &ExchangeCodeCommand{service: service}
}

// Execute stores the connection expiry, never the tokens themselves.
func (c *ExchangeCodeCommand) Execute(ctx context.Context, msg ExchangeCodeMessage) error {
	if c == nil || c.service == nil {
		return core.NewInternalError("command: token service is required", nil)
	}
	record, err := c.service.ExchangeCode(ctx, msg.Code)
	if err != nil {
		return err
	}
	storeResult(ctx, record.ExpiresAt)
	return nil
}

type RevokeCommand struct {
	service TokenService
}

func NewRevokeCommand(service TokenService) *RevokeCommand {
	return &RevokeCommand{service: service}
}

func (c *RevokeCommand) Execute(ctx context.Context, _ RevokeMessage) error {
	if c == nil || c.service == nil {
		return core.NewInternalError("command: token service is required", nil)
	}
	return c.service.Revoke(ctx)
}

type CreateEnvelopeCommand struct {
	service EnvelopeService
}

func NewCreateEnvelopeCommand(service EnvelopeService) *CreateEnvelopeCommand {
	return &CreateEnvelopeCommand{service: service}
}

func (c *CreateEnvelopeCommand) Execute(ctx context.Context, msg CreateEnvelopeMessage) error {
	if c == nil || c.service == nil {
		return core.NewInternalError("command: envelope service is required", nil)
	}
	out, err := c.service.CreateFromTemplate(ctx, msg.TemplateID, msg.Signers)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type CreateEmbeddedEnvelopeCommand struct {
	service EnvelopeService
}

func NewCreateEmbeddedEnvelopeCommand(service EnvelopeService) *CreateEmbeddedEnvelopeCommand {
	return &CreateEmbeddedEnvelopeCommand{service: service}
}

// Execute stores the target even when only the view step failed, so callers
// can still reference the created envelope.
func (c *CreateEmbeddedEnvelopeCommand) Execute(ctx context.Context, msg CreateEmbeddedEnvelopeMessage) error {
	if c == nil || c.service == nil {
		return core.NewInternalError("command: envelope service is required", nil)
	}
	out, err := c.service.CreateEmbedded(ctx, msg.TemplateID, msg.Signers, msg.RedirectURL)
	if out.EnvelopeID != "" || err == nil {
		storeResult(ctx, out)
	}
	return err
}

type ProcessWebhookCommand struct {
	processor WebhookProcessor
}

func NewProcessWebhookCommand(processor WebhookProcessor) *ProcessWebhookCommand {
	return &ProcessWebhookCommand{processor: processor}
}

// Execute always stores the pipeline result; its StatusCode is the response
// the provider should see.
func (c *ProcessWebhookCommand) Execute(ctx context.Context, msg ProcessWebhookMessage) error {
	if c == nil || c.processor == nil {
		return core.NewInternalError("command: webhook processor is required", nil)
	}
	out, err := c.processor.Handle(ctx, webhooks.Request{Body: msg.Payload, Headers: msg.Headers})
	storeResult(ctx, out)
	return err
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
