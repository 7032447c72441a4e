package query

import (
	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-esign/auth"
	"github.com/goliatone/go-esign/envelopes"
)

var (
	_ gocmd.Querier[AuthorizationURLMessage, AuthorizationRedirect]             = (*AuthorizationURLQuery)(nil)
	_ gocmd.Querier[ConnectionStatusMessage, auth.ConnectionStatus]             = (*ConnectionStatusQuery)(nil)
	_ gocmd.Querier[ListStatusChangesMessage, []envelopes.EnvelopeStatusChange] = (*ListStatusChangesQuery)(nil)

	_ ConsentURLProvider     = (*auth.TokenManager)(nil)
	_ ConnectionStatusReader = (*auth.TokenManager)(nil)
	_ StatusChangeLister     = (*envelopes.Builder)(nil)
)
