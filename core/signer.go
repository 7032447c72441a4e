package core

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// Signer attaches credentials to an outbound provider request.
type Signer interface {
	Sign(ctx context.Context, req *http.Request, token string) error
}

type BearerTokenSigner struct{}

func (BearerTokenSigner) Sign(_ context.Context, req *http.Request, token string) error {
	if req == nil {
		return fmt.Errorf("core: http request is required")
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("core: access token is required for bearer signing")
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return nil
}
