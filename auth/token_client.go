package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-esign/core"
)

const (
	tokenEndpointPath         = "/oauth/token"
	consentEndpointPath       = "/oauth/auth"
	maxTokenResponseBodyBytes = 1 << 20 // 1 MiB
)

// TokenResponse is the decoded body of a successful token endpoint call.
type TokenResponse struct {
	AccessToken  string
	TokenType    string
	RefreshToken string
	Scope        string
	ExpiresIn    int64
}

// TokenExchanger talks to the provider token endpoint.
type TokenExchanger interface {
	ExchangeCode(ctx context.Context, code string, redirectURI string) (TokenResponse, error)
	Refresh(ctx context.Context, refreshToken string) (TokenResponse, error)
}

type TokenClientConfig struct {
	TokenURL       string
	ClientID       string
	ClientSecret   string
	RequestTimeout time.Duration
	HTTPClient     core.HTTPDoer
}

// TokenClient posts form encoded grants with HTTP basic client
// authentication.
type TokenClient struct {
	cfg        TokenClientConfig
	httpClient core.HTTPDoer
}

type tokenEndpointPayload struct {
	AccessToken      string
	TokenType        string
	RefreshToken     string
	Scope            string
	ExpiresIn        int64
	ErrorCode        string
	ErrorDescription string
}

func NewTokenClient(cfg TokenClientConfig) (*TokenClient, error) {
	cfg.TokenURL = strings.TrimSpace(cfg.TokenURL)
	cfg.ClientID = strings.TrimSpace(cfg.ClientID)
	cfg.ClientSecret = strings.TrimSpace(cfg.ClientSecret)
	if cfg.TokenURL == "" {
		return nil, fmt.Errorf("auth: token url is required")
	}
	if cfg.ClientID == "" {
		return nil, fmt.Errorf("auth: client id is required")
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = core.DefaultRequestTimeout
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.RequestTimeout}
	}
	return &TokenClient{cfg: cfg, httpClient: httpClient}, nil
}

func (c *TokenClient) ExchangeCode(ctx context.Context, code string, redirectURI string) (TokenResponse, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return TokenResponse{}, core.NewBadInputError("auth: authorization code is required")
	}
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	if redirectURI = strings.TrimSpace(redirectURI); redirectURI != "" {
		form.Set("redirect_uri", redirectURI)
	}
	return c.fetchToken(ctx, form)
}

func (c *TokenClient) Refresh(ctx context.Context, refreshToken string) (TokenResponse, error) {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return TokenResponse{}, core.NewBadInputError("auth: refresh token is required")
	}
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)
	return c.fetchToken(ctx, form)
}

func (c *TokenClient) fetchToken(ctx context.Context, form url.Values) (TokenResponse, error) {
	if c == nil || c.httpClient == nil {
		return TokenResponse{}, fmt.Errorf("auth: token client is not configured")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	requestCtx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(
		requestCtx,
		http.MethodPost,
		c.cfg.TokenURL,
		strings.NewReader(form.Encode()),
	)
	if err != nil {
		return TokenResponse{}, err
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.SetBasicAuth(c.cfg.ClientID, c.cfg.ClientSecret)

	response, err := c.httpClient.Do(httpReq)
	if err != nil {
		return TokenResponse{}, core.NewProviderError("token request failed", 0, "", err)
	}
	defer response.Body.Close()

	body, readErr := io.ReadAll(io.LimitReader(response.Body, maxTokenResponseBodyBytes+1))
	if readErr != nil {
		return TokenResponse{}, core.NewProviderError("read token response failed", response.StatusCode, "", readErr)
	}
	if int64(len(body)) > maxTokenResponseBodyBytes {
		return TokenResponse{}, core.NewProviderError(
			fmt.Sprintf("token response exceeds %d bytes", maxTokenResponseBodyBytes),
			response.StatusCode, "", nil,
		)
	}

	payload, parseErr := parseTokenPayload(body, response.Header.Get("Content-Type"))
	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		return TokenResponse{}, core.NewProviderError(describeTokenError(payload), response.StatusCode, payload.ErrorCode, parseErr)
	}
	if parseErr != nil {
		return TokenResponse{}, core.NewProviderError("decode token response failed", response.StatusCode, "", parseErr)
	}
	if payload.ErrorCode != "" {
		return TokenResponse{}, core.NewProviderError(describeTokenError(payload), http.StatusBadGateway, payload.ErrorCode, nil)
	}
	if payload.AccessToken == "" {
		return TokenResponse{}, core.NewProviderError("token endpoint response missing access token", response.StatusCode, "", nil)
	}
	return TokenResponse{
		AccessToken:  payload.AccessToken,
		TokenType:    normalizeTokenType(payload.TokenType),
		RefreshToken: payload.RefreshToken,
		Scope:        payload.Scope,
		ExpiresIn:    payload.ExpiresIn,
	}, nil
}

func describeTokenError(payload tokenEndpointPayload) string {
	if payload.ErrorDescription != "" {
		return payload.ErrorDescription
	}
	if payload.ErrorCode != "" {
		return payload.ErrorCode
	}
	return "token endpoint error"
}

func parseTokenPayload(body []byte, contentType string) (tokenEndpointPayload, error) {
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	if strings.Contains(contentType, "json") {
		return parseTokenPayloadJSON(body)
	}
	if strings.Contains(contentType, "x-www-form-urlencoded") || strings.Contains(contentType, "text/plain") {
		return parseTokenPayloadForm(body)
	}
	if payload, err := parseTokenPayloadJSON(body); err == nil {
		return payload, nil
	}
	return parseTokenPayloadForm(body)
}

func parseTokenPayloadJSON(body []byte) (tokenEndpointPayload, error) {
	if strings.TrimSpace(string(body)) == "" {
		return tokenEndpointPayload{}, fmt.Errorf("empty payload")
	}
	decoder := json.NewDecoder(strings.NewReader(string(body)))
	decoder.UseNumber()
	var decoded map[string]any
	if err := decoder.Decode(&decoded); err != nil {
		return tokenEndpointPayload{}, err
	}
	return tokenEndpointPayload{
		AccessToken:      readAnyString(decoded["access_token"]),
		TokenType:        readAnyString(decoded["token_type"]),
		RefreshToken:     readAnyString(decoded["refresh_token"]),
		Scope:            readAnyString(decoded["scope"]),
		ExpiresIn:        readAnyInt64(decoded["expires_in"]),
		ErrorCode:        readAnyString(decoded["error"]),
		ErrorDescription: readAnyString(decoded["error_description"]),
	}, nil
}

func parseTokenPayloadForm(body []byte) (tokenEndpointPayload, error) {
	if strings.TrimSpace(string(body)) == "" {
		return tokenEndpointPayload{}, fmt.Errorf("empty payload")
	}
	values, err := url.ParseQuery(string(body))
	if err != nil {
		return tokenEndpointPayload{}, err
	}
	expiresIn, _ := strconv.ParseInt(strings.TrimSpace(values.Get("expires_in")), 10, 64)
	return tokenEndpointPayload{
		AccessToken:      strings.TrimSpace(values.Get("access_token")),
		TokenType:        strings.TrimSpace(values.Get("token_type")),
		RefreshToken:     strings.TrimSpace(values.Get("refresh_token")),
		Scope:            strings.TrimSpace(values.Get("scope")),
		ExpiresIn:        expiresIn,
		ErrorCode:        strings.TrimSpace(values.Get("error")),
		ErrorDescription: strings.TrimSpace(values.Get("error_description")),
	}, nil
}

func normalizeTokenType(value string) string {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if normalized == "" {
		return "bearer"
	}
	return normalized
}

func readAnyString(value any) string {
	switch typed := value.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(typed)
	case json.Number:
		return typed.String()
	default:
		return strings.TrimSpace(fmt.Sprint(value))
	}
}

func readAnyInt64(value any) int64 {
	switch typed := value.(type) {
	case float64:
		return int64(typed)
	case json.Number:
		if parsed, err := typed.Int64(); err == nil {
			return parsed
		}
		if parsed, err := typed.Float64(); err == nil {
			return int64(parsed)
		}
	case string:
		if parsed, err := strconv.ParseInt(strings.TrimSpace(typed), 10, 64); err == nil {
			return parsed
		}
	}
	return 0
}
