package command

import (
	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-esign/auth"
	"github.com/goliatone/go-esign/envelopes"
	"github.com/goliatone/go-esign/webhooks"
)

var (
	_ gocmd.Commander[ExchangeCodeMessage]           = (*ExchangeCodeCommand)(nil)
	_ gocmd.Commander[RevokeMessage]                 = (*RevokeCommand)(nil)
	_ gocmd.Commander[CreateEnvelopeMessage]         = (*CreateEnvelopeCommand)(nil)
	_ gocmd.Commander[CreateEmbeddedEnvelopeMessage] = (*CreateEmbeddedEnvelopeCommand)(nil)
	_ gocmd.Commander[ProcessWebhookMessage]         = (*ProcessWebhookCommand)(nil)

	_ TokenService     = (*auth.TokenManager)(nil)
	_ EnvelopeService  = (*envelopes.Builder)(nil)
	_ WebhookProcessor = (*webhooks.Pipeline)(nil)
)
