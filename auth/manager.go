package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/goliatone/go-esign/core"
)

const (
	defaultTokenTTL  = time.Hour
	refreshFlightKey = "refresh"
)

// ConnectionStatus is a read-only view of the stored authorization.
type ConnectionStatus struct {
	Connected   bool      `json:"connected"`
	Expired     bool      `json:"expired"`
	Refreshable bool      `json:"refreshable"`
	ExpiresAt   time.Time `json:"expires_at,omitzero"`
}

// TokenManager keeps the integration authorized. Refresh attempts are
// serialized per manager so concurrent callers never burn the same refresh
// token twice.
type TokenManager struct {
	cfg          core.Config
	store        core.TokenStore
	exchanger    TokenExchanger
	subscription core.NotificationSubscription

	httpClient     core.HTTPDoer
	logger         core.Logger
	loggerProvider core.LoggerProvider
	metrics        core.MetricsRecorder
	observer       *core.Observer
	now            func() time.Time
	defaultTTL     time.Duration

	refreshGroup singleflight.Group

	// writeMu orders store writes. epoch moves on every exchange and revoke
	// so an in-flight refresh never overwrites a newer decision.
	writeMu sync.Mutex
	epoch   uint64
}

func NewTokenManager(cfg core.Config, store core.TokenStore, opts ...Option) (*TokenManager, error) {
	cfg = cfg.Normalized()
	if err := cfg.Validate(); err != nil {
		return nil, core.MapError(err)
	}
	if strings.TrimSpace(cfg.OAuth.ClientID) == "" {
		return nil, core.NewBadInputError("auth: oauth.client_id is required")
	}
	if store == nil {
		return nil, core.NewBadInputError("auth: token store is required")
	}

	manager := &TokenManager{
		cfg:        cfg,
		store:      store,
		metrics:    core.NopMetricsRecorder{},
		now:        func() time.Time { return time.Now().UTC() },
		defaultTTL: defaultTokenTTL,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(manager)
		}
	}
	manager.observer = core.NewObserver(cfg.ServiceName+".auth", manager.loggerProvider, manager.logger, manager.metrics)

	if manager.exchanger == nil {
		client, err := NewTokenClient(TokenClientConfig{
			TokenURL:       cfg.OAuth.AuthBaseURL + tokenEndpointPath,
			ClientID:       cfg.OAuth.ClientID,
			ClientSecret:   cfg.OAuth.ClientSecret,
			RequestTimeout: cfg.OAuth.RequestTimeout,
			HTTPClient:     manager.httpClient,
		})
		if err != nil {
			return nil, core.MapError(err)
		}
		manager.exchanger = client
	}

	manager.subscription = core.BuildNotificationSubscription(cfg.Webhook.CallbackURL)
	return manager, nil
}

func (m *TokenManager) Config() core.Config {
	return m.cfg
}

// Subscription returns the notification block built at construction time.
func (m *TokenManager) Subscription() core.NotificationSubscription {
	return m.subscription.Clone()
}

// AuthorizationURL returns the consent screen URL. state is optional.
func (m *TokenManager) AuthorizationURL(state string) string {
	values := url.Values{}
	values.Set("response_type", "code")
	values.Set("scope", strings.Join(m.cfg.OAuth.Scopes, " "))
	values.Set("client_id", m.cfg.OAuth.ClientID)
	if callback := m.cfg.OAuth.CallbackURL; callback != "" {
		values.Set("redirect_uri", callback)
	}
	if state = strings.TrimSpace(state); state != "" {
		values.Set("state", state)
	}
	return m.cfg.OAuth.AuthBaseURL + consentEndpointPath + "?" + values.Encode()
}

// ExchangeCode trades an authorization code for tokens and persists them.
func (m *TokenManager) ExchangeCode(ctx context.Context, code string) (record core.TokenRecord, err error) {
	startedAt := m.now()
	defer func() {
		m.observer.Observe(ctx, startedAt, "exchange_code", err, nil)
	}()

	code = strings.TrimSpace(code)
	if code == "" {
		return core.TokenRecord{}, core.NewBadInputError("auth: authorization code is required")
	}
	response, err := m.exchanger.ExchangeCode(ctx, code, m.cfg.OAuth.CallbackURL)
	if err != nil {
		return core.TokenRecord{}, core.MapError(err)
	}
	record = m.recordFromResponse(core.TokenRecord{}, response)

	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	m.epoch++
	if err := m.store.Save(ctx, record); err != nil {
		return core.TokenRecord{}, core.NewInternalError("auth: persist token record failed", err)
	}
	return record, nil
}

// CurrentToken returns a bearer token valid for immediate use, refreshing an
// expired one first. Not connected and failed refreshes both yield
// ESIGN_UNAUTHORIZED.
func (m *TokenManager) CurrentToken(ctx context.Context) (string, error) {
	record, ok, err := m.store.Load(ctx)
	if err != nil {
		return "", core.NewInternalError("auth: read token record failed", err)
	}
	if !ok || strings.TrimSpace(record.AccessToken) == "" {
		return "", core.NewUnauthorizedError(core.MessageNotConnected, nil)
	}
	state := core.ResolveTokenState(m.now(), record, m.cfg.OAuth.RefreshMargin)
	if !core.ShouldRefresh(state) {
		return record.AccessToken, nil
	}
	return m.refresh(ctx)
}

// EnsureConnected fails fast with "integration not connected" when no usable
// token exists.
func (m *TokenManager) EnsureConnected(ctx context.Context) (string, error) {
	token, err := m.CurrentToken(ctx)
	if err != nil {
		if core.IsUnauthorized(err) {
			return "", core.NewUnauthorizedError(core.MessageNotConnected, err)
		}
		return "", err
	}
	return token, nil
}

// Revoke forgets all token fields. Revoking twice is a no-op success.
func (m *TokenManager) Revoke(ctx context.Context) (err error) {
	startedAt := m.now()
	defer func() {
		m.observer.Observe(ctx, startedAt, "revoke", err, nil)
	}()

	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	m.epoch++
	if err := m.store.Clear(ctx); err != nil {
		return core.NewInternalError("auth: clear token record failed", err)
	}
	return nil
}

func (m *TokenManager) Status(ctx context.Context) (ConnectionStatus, error) {
	record, ok, err := m.store.Load(ctx)
	if err != nil {
		return ConnectionStatus{}, core.NewInternalError("auth: read token record failed", err)
	}
	if !ok {
		return ConnectionStatus{}, nil
	}
	state := core.ResolveTokenState(m.now(), record, m.cfg.OAuth.RefreshMargin)
	status := ConnectionStatus{
		Connected:   state.Connected(),
		Expired:     state.IsExpired,
		Refreshable: state.HasRefreshToken,
	}
	if state.ExpiresAt != nil {
		status.ExpiresAt = *state.ExpiresAt
	}
	return status, nil
}

func (m *TokenManager) refresh(ctx context.Context) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	// the shared flight must outlive any single waiter
	flightCtx := context.WithoutCancel(ctx)
	resultCh := m.refreshGroup.DoChan(refreshFlightKey, func() (any, error) {
		return m.refreshOnce(flightCtx)
	})
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case result := <-resultCh:
		if result.Err != nil {
			return "", result.Err
		}
		token, _ := result.Val.(string)
		return token, nil
	}
}

func (m *TokenManager) refreshOnce(ctx context.Context) (token string, err error) {
	startedAt := m.now()
	defer func() {
		m.observer.Observe(ctx, startedAt, "refresh", err, nil)
	}()

	epoch := m.currentEpoch()
	// a previous flight may already have stored a fresh record
	record, ok, err := m.store.Load(ctx)
	if err != nil {
		return "", core.NewInternalError("auth: read token record failed", err)
	}
	if !ok || strings.TrimSpace(record.AccessToken) == "" {
		return "", core.NewUnauthorizedError(core.MessageNotConnected, nil)
	}
	if !core.ShouldRefresh(core.ResolveTokenState(m.now(), record, m.cfg.OAuth.RefreshMargin)) {
		return record.AccessToken, nil
	}
	if strings.TrimSpace(record.RefreshToken) == "" {
		m.clearStale(ctx, epoch, "missing refresh token")
		return "", core.NewUnauthorizedError("auth: access token expired and no refresh token is stored", nil)
	}

	response, err := m.exchanger.Refresh(ctx, record.RefreshToken)
	if err != nil {
		m.clearStale(ctx, epoch, err.Error())
		return "", core.NewUnauthorizedError("auth: token refresh failed", err)
	}
	next := m.recordFromResponse(record, response)

	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	if m.epoch != epoch {
		m.observer.Warn(ctx, "refreshed token discarded", map[string]any{"reason": "record replaced during refresh"})
		current, ok, loadErr := m.store.Load(ctx)
		if loadErr == nil && ok && strings.TrimSpace(current.AccessToken) != "" &&
			!core.ShouldRefresh(core.ResolveTokenState(m.now(), current, m.cfg.OAuth.RefreshMargin)) {
			return current.AccessToken, nil
		}
		return "", core.NewUnauthorizedError(core.MessageNotConnected, nil)
	}
	if err := m.store.Save(ctx, next); err != nil {
		return "", core.NewInternalError("auth: persist refreshed token failed", err)
	}
	return next.AccessToken, nil
}

func (m *TokenManager) currentEpoch() uint64 {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	return m.epoch
}

// clearStale drops the record a failed refresh started from. A record
// written by a later exchange or revoke is left alone.
func (m *TokenManager) clearStale(ctx context.Context, epoch uint64, reason string) {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	if m.epoch != epoch {
		return
	}
	if err := m.store.Clear(ctx); err != nil {
		m.observer.Error(ctx, "clear stale token record failed", map[string]any{
			"error":  err.Error(),
			"reason": reason,
		})
		return
	}
	m.observer.Warn(ctx, "stale token record cleared", map[string]any{"reason": reason})
}

func (m *TokenManager) recordFromResponse(previous core.TokenRecord, response TokenResponse) core.TokenRecord {
	now := m.now()
	expiresAt := core.ExpiresAtFromSeconds(now, response.ExpiresIn)
	if expiresAt.IsZero() {
		expiresAt = now.UTC().Add(m.defaultTTL)
	}
	refreshToken := strings.TrimSpace(response.RefreshToken)
	if refreshToken == "" {
		refreshToken = previous.RefreshToken
	}
	return core.TokenRecord{
		AccessToken:  strings.TrimSpace(response.AccessToken),
		RefreshToken: refreshToken,
		ExpiresAt:    expiresAt,
	}
}

// GenerateState returns a random URL safe value for the consent round trip.
func GenerateState() (string, error) {
	raw := make([]byte, 24)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("auth: generate oauth state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

var (
	_ core.TokenSource = (*TokenManager)(nil)
	_ TokenExchanger   = (*TokenClient)(nil)
)
