package envelopes

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goliatone/go-esign/core"
	"github.com/goliatone/go-esign/transport"
)

// Builder creates envelopes from templates and embedded signing views.
type Builder struct {
	cfg          core.Config
	tokens       core.TokenSource
	subscription core.NotificationSubscription
	emailSubject string

	rest           *transport.RESTClient
	httpClient     core.HTTPDoer
	logger         core.Logger
	loggerProvider core.LoggerProvider
	metrics        core.MetricsRecorder
	observer       *core.Observer
	now            func() time.Time
}

func NewBuilder(cfg core.Config, tokens core.TokenSource, subscription core.NotificationSubscription, opts ...Option) (*Builder, error) {
	cfg = cfg.Normalized()
	if err := cfg.Validate(); err != nil {
		return nil, core.MapError(err)
	}
	if strings.TrimSpace(cfg.API.AccountID) == "" {
		return nil, core.NewBadInputError("envelopes: api.account_id is required")
	}
	if tokens == nil {
		return nil, core.NewBadInputError("envelopes: token source is required")
	}

	builder := &Builder{
		cfg:          cfg,
		tokens:       tokens,
		subscription: subscription.Clone(),
		metrics:      core.NopMetricsRecorder{},
		now:          func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(builder)
		}
	}
	builder.observer = core.NewObserver(cfg.ServiceName+".envelopes", builder.loggerProvider, builder.logger, builder.metrics)
	if builder.rest == nil {
		builder.rest = transport.NewRESTClient(cfg.API.BaseURL, tokens, builder.httpClient)
		builder.rest.Timeout = cfg.API.RequestTimeout
	}
	return builder, nil
}

// CreateFromTemplate sends a template envelope to signers in order. It does
// not retry provider failures.
func (b *Builder) CreateFromTemplate(ctx context.Context, templateID string, signers []SignerRole) (summary EnvelopeSummary, err error) {
	startedAt := b.now()
	defer func() {
		b.observer.Observe(ctx, startedAt, "create_envelope", err, map[string]any{
			"template_id": templateID,
			"envelope_id": summary.EnvelopeID,
			"signers":     len(signers),
		})
	}()

	templateID = strings.TrimSpace(templateID)
	if err := validateRequest(templateID, signers); err != nil {
		return EnvelopeSummary{}, err
	}
	subscription := b.subscription.Clone()
	definition := EnvelopeDefinition{
		Status:            StatusSent,
		TemplateID:        templateID,
		EmailSubject:      strings.TrimSpace(b.emailSubject),
		TemplateRoles:     append([]SignerRole(nil), signers...),
		EventNotification: &subscription,
	}
	if err := b.rest.DoJSON(ctx, transport.Request{
		Method: http.MethodPost,
		Path:   b.envelopesPath(),
		JSON:   definition,
	}, &summary); err != nil {
		return EnvelopeSummary{}, notConnected(err)
	}
	if strings.TrimSpace(summary.EnvelopeID) == "" {
		return EnvelopeSummary{}, core.NewProviderError("envelopes: create response missing envelope id", http.StatusBadGateway, "", nil)
	}
	return summary, nil
}

// CreateEmbedded creates the envelope then requests a signing view for
// signers[0]. redirectURL falls back to api.default_return_url.
func (b *Builder) CreateEmbedded(ctx context.Context, templateID string, signers []SignerRole, redirectURL string) (target RedirectTarget, err error) {
	startedAt := b.now()
	defer func() {
		b.observer.Observe(ctx, startedAt, "create_embedded_envelope", err, map[string]any{
			"template_id": templateID,
			"envelope_id": target.EnvelopeID,
		})
	}()

	if err := validateRequest(strings.TrimSpace(templateID), signers); err != nil {
		return RedirectTarget{}, err
	}
	summary, err := b.CreateFromTemplate(ctx, templateID, signers)
	if err != nil {
		return RedirectTarget{}, err
	}

	returnURL := strings.TrimSpace(redirectURL)
	if returnURL == "" {
		returnURL = b.cfg.API.DefaultReturnURL
	}
	primary := signers[0]
	view := RecipientViewRequest{
		ReturnURL:            returnURL,
		AuthenticationMethod: AuthMethodEmail,
		ClientUserID:         primary.ClientUserID,
		RecipientID:          primary.RecipientID,
		Email:                primary.Email,
		UserName:             primary.Name,
	}
	response := recipientViewResponse{}
	if err := b.rest.DoJSON(ctx, transport.Request{
		Method: http.MethodPost,
		Path:   b.envelopesPath() + "/" + url.PathEscape(summary.EnvelopeID) + "/views/recipient",
		JSON:   view,
	}, &response); err != nil {
		return RedirectTarget{EnvelopeID: summary.EnvelopeID}, notConnected(err)
	}
	if strings.TrimSpace(response.URL) == "" {
		return RedirectTarget{EnvelopeID: summary.EnvelopeID}, core.NewProviderError("envelopes: recipient view response missing url", http.StatusBadGateway, "", nil)
	}
	return RedirectTarget{EnvelopeID: summary.EnvelopeID, URL: response.URL}, nil
}

// ListStatusChanges returns envelopes whose status changed since from.
func (b *Builder) ListStatusChanges(ctx context.Context, from time.Time) (changes []EnvelopeStatusChange, err error) {
	startedAt := b.now()
	defer func() {
		b.observer.Observe(ctx, startedAt, "list_status_changes", err, map[string]any{"count": len(changes)})
	}()

	if from.IsZero() {
		from = b.now()
	}
	response := statusChangesResponse{}
	if err := b.rest.DoJSON(ctx, transport.Request{
		Method: http.MethodGet,
		Path:   b.envelopesPath(),
		Query:  map[string]string{"from_date": from.UTC().Format(dateParamLayout)},
	}, &response); err != nil {
		return nil, notConnected(err)
	}
	if response.Envelopes == nil {
		return []EnvelopeStatusChange{}, nil
	}
	return response.Envelopes, nil
}

func (b *Builder) envelopesPath() string {
	return fmt.Sprintf(envelopesPathTmpl, url.PathEscape(b.cfg.API.AccountID))
}

func validateRequest(templateID string, signers []SignerRole) error {
	if len(signers) == 0 {
		return core.NewBadInputError("envelopes: at least one signer is required")
	}
	if templateID == "" {
		return core.NewBadInputError("envelopes: template id is required")
	}
	for index, signer := range signers {
		if strings.TrimSpace(signer.Email) == "" {
			return core.NewBadInputError(fmt.Sprintf("envelopes: signer %d email is required", index))
		}
	}
	return nil
}

func notConnected(err error) error {
	if core.IsUnauthorized(err) {
		return core.NewUnauthorizedError(core.MessageNotConnected, err)
	}
	return err
}
