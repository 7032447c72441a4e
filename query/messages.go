package query

import (
	"time"

	"github.com/goliatone/go-esign/core"
)

const (
	TypeAuthorizationURL  = "esign.query.oauth.authorization_url"
	TypeConnectionStatus  = "esign.query.oauth.status"
	TypeListStatusChanges = "esign.query.envelope.status_changes"
)

// AuthorizationURLMessage asks for a consent URL. An empty State gets a
// generated one.
type AuthorizationURLMessage struct {
	State string
}

func (AuthorizationURLMessage) Type() string { return TypeAuthorizationURL }

func (AuthorizationURLMessage) Validate() error { return nil }

type ConnectionStatusMessage struct{}

func (ConnectionStatusMessage) Type() string { return TypeConnectionStatus }

func (ConnectionStatusMessage) Validate() error { return nil }

type ListStatusChangesMessage struct {
	From time.Time
}

func (ListStatusChangesMessage) Type() string { return TypeListStatusChanges }

func (m ListStatusChangesMessage) Validate() error {
	if m.From.IsZero() {
		return core.NewFieldValidationError("query", "from", "from date is required")
	}
	return nil
}
