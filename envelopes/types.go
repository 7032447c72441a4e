package envelopes

import (
	"time"

	"github.com/goliatone/go-esign/core"
)

const (
	StatusSent        = "sent"
	AuthMethodEmail   = "email"
	dateParamLayout   = time.RFC3339
	envelopesPathTmpl = "/v2.1/accounts/%s/envelopes"
)

// SignerRole fills one template role. Order inside a request is significant:
// the first signer is the embedded recipient. ClientUserID is set only for
// embedded signing.
type SignerRole struct {
	RecipientID  string         `json:"recipientId,omitempty"`
	Email        string         `json:"email"`
	Name         string         `json:"name"`
	RoleName     string         `json:"roleName,omitempty"`
	RoutingOrder string         `json:"routingOrder,omitempty"`
	ClientUserID string         `json:"clientUserId,omitempty"`
	Tabs         map[string]any `json:"tabs,omitempty"`
}

// EnvelopeDefinition is the create-envelope request body.
type EnvelopeDefinition struct {
	Status            string                         `json:"status"`
	TemplateID        string                         `json:"templateId"`
	EmailSubject      string                         `json:"emailSubject,omitempty"`
	TemplateRoles     []SignerRole                   `json:"templateRoles"`
	EventNotification *core.NotificationSubscription `json:"eventNotification,omitempty"`
}

type EnvelopeSummary struct {
	EnvelopeID     string `json:"envelopeId"`
	Status         string `json:"status"`
	StatusDateTime string `json:"statusDateTime,omitempty"`
	URI            string `json:"uri,omitempty"`
}

type RecipientViewRequest struct {
	ReturnURL            string `json:"returnUrl"`
	AuthenticationMethod string `json:"authenticationMethod"`
	ClientUserID         string `json:"clientUserId,omitempty"`
	RecipientID          string `json:"recipientId,omitempty"`
	Email                string `json:"email"`
	UserName             string `json:"userName"`
}

// RedirectTarget is a single-use signing URL.
type RedirectTarget struct {
	EnvelopeID string `json:"envelope_id"`
	URL        string `json:"url"`
}

type EnvelopeStatusChange struct {
	EnvelopeID            string `json:"envelopeId"`
	Status                string `json:"status"`
	EmailSubject          string `json:"emailSubject,omitempty"`
	StatusChangedDateTime string `json:"statusChangedDateTime,omitempty"`
	CompletedDateTime     string `json:"completedDateTime,omitempty"`
}

type statusChangesResponse struct {
	ResultSetSize string                 `json:"resultSetSize"`
	Envelopes     []EnvelopeStatusChange `json:"envelopes"`
}

type recipientViewResponse struct {
	URL string `json:"url"`
}
