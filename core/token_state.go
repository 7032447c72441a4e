package core

import (
	"strings"
	"time"
)

// TokenState captures access/refresh lifecycle state derived from a stored
// TokenRecord.
type TokenState struct {
	ExpiresAt       *time.Time
	HasAccessToken  bool
	HasRefreshToken bool
	IsExpired       bool
	IsExpiringSoon  bool
}

// Connected reports whether a record exists at all. An expired record with a
// refresh token is still connected.
func (s TokenState) Connected() bool {
	return s.HasAccessToken
}

// ResolveTokenState evaluates expiry flags for a record. margin is the safety
// window inside which a token counts as expiring soon.
func ResolveTokenState(now time.Time, record TokenRecord, margin time.Duration) TokenState {
	if now.IsZero() {
		now = time.Now().UTC()
	} else {
		now = now.UTC()
	}
	if margin <= 0 {
		margin = DefaultRefreshMargin
	}

	state := TokenState{
		HasAccessToken:  strings.TrimSpace(record.AccessToken) != "",
		HasRefreshToken: strings.TrimSpace(record.RefreshToken) != "",
	}
	if record.ExpiresAt.IsZero() {
		// an access token without an expiry cannot be trusted
		state.IsExpired = state.HasAccessToken
		return state
	}
	expiresAt := record.ExpiresAt.UTC()
	state.ExpiresAt = &expiresAt
	if !expiresAt.After(now) {
		state.IsExpired = true
		return state
	}
	state.IsExpiringSoon = !expiresAt.After(now.Add(margin))
	return state
}

// ShouldRefresh returns true when the access token must be renewed before it
// is handed out.
func ShouldRefresh(state TokenState) bool {
	if !state.HasAccessToken {
		return false
	}
	return state.IsExpired || state.IsExpiringSoon
}

// ExpiresAtFromSeconds converts a token endpoint expires_in value. Non
// positive values yield the zero time.
func ExpiresAtFromSeconds(now time.Time, expiresIn int64) time.Time {
	if expiresIn <= 0 {
		return time.Time{}
	}
	if now.IsZero() {
		now = time.Now()
	}
	return now.UTC().Add(time.Duration(expiresIn) * time.Second)
}
