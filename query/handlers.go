package query

import (
	"context"
	"time"

	"github.com/goliatone/go-esign/auth"
	"github.com/goliatone/go-esign/core"
	"github.com/goliatone/go-esign/envelopes"
)

type AuthorizationRedirect struct {
	URL   string `json:"url"`
	State string `json:"state"`
}

type ConsentURLProvider interface {
	AuthorizationURL(state string) string
}

type ConnectionStatusReader interface {
	Status(ctx context.Context) (auth.ConnectionStatus, error)
}

type StatusChangeLister interface {
	ListStatusChanges(ctx context.Context, from time.Time) ([]envelopes.EnvelopeStatusChange, error)
}

type AuthorizationURLQuery struct {
	provider      ConsentURLProvider
	generateState func() (string, error)
}

func NewAuthorizationURLQuery(provider ConsentURLProvider) *AuthorizationURLQuery {
	return &AuthorizationURLQuery{provider: provider, generateState: auth.GenerateState}
}

func (q *AuthorizationURLQuery) Query(_ context.Context, msg AuthorizationURLMessage) (AuthorizationRedirect, error) {
	if q == nil || q.provider == nil {
		return AuthorizationRedirect{}, core.NewInternalError("query: consent url provider is required", nil)
	}
	state := msg.State
	if state == "" && q.generateState != nil {
		generated, err := q.generateState()
		if err != nil {
			return AuthorizationRedirect{}, err
		}
		state = generated
	}
	return AuthorizationRedirect{URL: q.provider.AuthorizationURL(state), State: state}, nil
}

type ConnectionStatusQuery struct {
	reader ConnectionStatusReader
}

func NewConnectionStatusQuery(reader ConnectionStatusReader) *ConnectionStatusQuery {
	return &ConnectionStatusQuery{reader: reader}
}

func (q *ConnectionStatusQuery) Query(ctx context.Context, _ ConnectionStatusMessage) (auth.ConnectionStatus, error) {
	if q == nil || q.reader == nil {
		return auth.ConnectionStatus{}, core.NewInternalError("query: connection status reader is required", nil)
	}
	return q.reader.Status(ctx)
}

type ListStatusChangesQuery struct {
	lister StatusChangeLister
}

func NewListStatusChangesQuery(lister StatusChangeLister) *ListStatusChangesQuery {
	return &ListStatusChangesQuery{lister: lister}
}

func (q *ListStatusChangesQuery) Query(ctx context.Context, msg ListStatusChangesMessage) ([]envelopes.EnvelopeStatusChange, error) {
	if q == nil || q.lister == nil {
		return nil, core.NewInternalError("query: status change lister is required", nil)
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return q.lister.ListStatusChanges(ctx, msg.From)
}
