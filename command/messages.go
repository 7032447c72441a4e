package command

import (
	"strings"

	"github.com/goliatone/go-esign/core"
	"github.com/goliatone/go-esign/envelopes"
)

const (
	TypeExchangeCode           = "esign.command.oauth.exchange_code"
	TypeRevoke                 = "esign.command.oauth.revoke"
	TypeCreateEnvelope         = "esign.command.envelope.create"
	TypeCreateEmbeddedEnvelope = "esign.command.envelope.create_embedded"
	TypeProcessWebhook         = "esign.command.webhook.process"
)

type ExchangeCodeMessage struct {
	Code string
}

func (ExchangeCodeMessage) Type() string { return TypeExchangeCode }

func (m ExchangeCodeMessage) Validate() error {
	if strings.TrimSpace(m.Code) == "" {
		return core.NewFieldValidationError("command", "code", "authorization code is required")
	}
	return nil
}

type RevokeMessage struct{}

func (RevokeMessage) Type() string { return TypeRevoke }

func (RevokeMessage) Validate() error { return nil }

type CreateEnvelopeMessage struct {
	TemplateID string
	Signers    []envelopes.SignerRole
}

func (CreateEnvelopeMessage) Type() string { return TypeCreateEnvelope }

func (m CreateEnvelopeMessage) Validate() error {
	return validateEnvelopeRequest(m.TemplateID, m.Signers)
}

type CreateEmbeddedEnvelopeMessage struct {
	TemplateID  string
	Signers     []envelopes.SignerRole
	RedirectURL string
}

func (CreateEmbeddedEnvelopeMessage) Type() string { return TypeCreateEmbeddedEnvelope }

func (m CreateEmbeddedEnvelopeMessage) Validate() error {
	return validateEnvelopeRequest(m.TemplateID, m.Signers)
}

type ProcessWebhookMessage struct {
	Payload []byte
	Headers map[string]string
}

func (ProcessWebhookMessage) Type() string { return TypeProcessWebhook }

// Validate accepts empty payloads; the pipeline reports them as malformed.
func (ProcessWebhookMessage) Validate() error { return nil }

func validateEnvelopeRequest(templateID string, signers []envelopes.SignerRole) error {
	if strings.TrimSpace(templateID) == "" {
		return core.NewFieldValidationError("command", "template_id", "template id is required")
	}
	if len(signers) == 0 {
		return core.NewFieldValidationError("command", "signers", "at least one signer is required")
	}
	for _, signer := range signers {
		if strings.TrimSpace(signer.Email) == "" {
			return core.NewFieldValidationError("command", "signers.email", "signer email is required")
		}
	}
	return nil
}
