package echohttp

import (
	"io"
	"net/http"
	"strings"

	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-esign/auth"
	"github.com/goliatone/go-esign/command"
	"github.com/goliatone/go-esign/core"
	"github.com/goliatone/go-esign/query"
	"github.com/goliatone/go-esign/webhooks"
	glog "github.com/goliatone/go-logger/glog"
	"github.com/labstack/echo/v4"
)

const (
	DefaultBasePath    = "/docusign"
	MessageConnected   = "Docusign has been connected!"
	MessageRevoked     = "Docusign has been disconnected!"
	MessageMissingCode = "authorization code is required"
)

// TokenManager is the token surface the routes drive.
type TokenManager interface {
	command.TokenService
	query.ConsentURLProvider
	query.ConnectionStatusReader
}

type StatusResponse struct {
	Message  string `json:"message"`
	Success  bool   `json:"success"`
	TextCode string `json:"text_code,omitempty"`
}

type Option func(*Routes)

func WithBasePath(path string) Option {
	return func(r *Routes) {
		path = "/" + strings.Trim(strings.TrimSpace(path), "/")
		if path != "/" {
			r.basePath = path
		}
	}
}

func WithMaxPayloadBytes(limit int64) Option {
	return func(r *Routes) {
		if limit > 0 {
			r.maxPayloadBytes = limit
		}
	}
}

func WithLogger(logger core.Logger) Option {
	return func(r *Routes) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// Routes exposes the OAuth handshake and the inbound notification endpoint.
type Routes struct {
	basePath        string
	maxPayloadBytes int64
	logger          core.Logger

	exchange     *command.ExchangeCodeCommand
	revoke       *command.RevokeCommand
	processHook  *command.ProcessWebhookCommand
	authorizeURL *query.AuthorizationURLQuery
	status       *query.ConnectionStatusQuery
}

func NewRoutes(tokens TokenManager, processor command.WebhookProcessor, opts ...Option) *Routes {
	routes := &Routes{
		basePath:        DefaultBasePath,
		maxPayloadBytes: core.DefaultMaxPayloadBytes,
		logger:          glog.Nop(),
		exchange:        command.NewExchangeCodeCommand(tokens),
		revoke:          command.NewRevokeCommand(tokens),
		processHook:     command.NewProcessWebhookCommand(processor),
		authorizeURL:    query.NewAuthorizationURLQuery(tokens),
		status:          query.NewConnectionStatusQuery(tokens),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(routes)
		}
	}
	return routes
}

func (r *Routes) RegisterRoutes(e *echo.Echo) {
	group := e.Group(r.basePath)
	group.GET("/oauth", r.handleAuthorize)
	group.GET("/oauth/callback", r.handleOAuthCallback)
	group.POST("/revoke", r.handleRevoke)
	group.GET("/revoke", r.handleRevoke)
	group.GET("/status", r.handleStatus)
	group.POST("/callback", r.handleWebhook)
}

func (r *Routes) handleAuthorize(c echo.Context) error {
	redirect, err := r.authorizeURL.Query(c.Request().Context(), query.AuthorizationURLMessage{})
	if err != nil {
		return r.fail(c, err)
	}
	return c.Redirect(http.StatusFound, redirect.URL)
}

func (r *Routes) handleOAuthCallback(c echo.Context) error {
	msg := command.ExchangeCodeMessage{Code: strings.TrimSpace(c.QueryParam("code"))}
	if err := msg.Validate(); err != nil {
		return c.JSON(http.StatusBadRequest, StatusResponse{Message: MessageMissingCode, TextCode: core.ErrorBadInput})
	}
	if err := r.exchange.Execute(c.Request().Context(), msg); err != nil {
		return r.fail(c, err)
	}
	return c.JSON(http.StatusOK, StatusResponse{Message: MessageConnected, Success: true})
}

func (r *Routes) handleRevoke(c echo.Context) error {
	if err := r.revoke.Execute(c.Request().Context(), command.RevokeMessage{}); err != nil {
		return r.fail(c, err)
	}
	return c.JSON(http.StatusOK, StatusResponse{Message: MessageRevoked, Success: true})
}

func (r *Routes) handleStatus(c echo.Context) error {
	status, err := r.status.Query(c.Request().Context(), query.ConnectionStatusMessage{})
	if err != nil {
		return r.fail(c, err)
	}
	return c.JSON(http.StatusOK, status)
}

func (r *Routes) handleWebhook(c echo.Context) error {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, r.maxPayloadBytes+1))
	if err != nil {
		return r.fail(c, core.NewMalformedNotificationError(err))
	}

	collector := gocmd.NewResult[webhooks.Result]()
	ctx := gocmd.ContextWithResult(c.Request().Context(), collector)
	execErr := r.processHook.Execute(ctx, command.ProcessWebhookMessage{
		Payload: body,
		Headers: webhooks.HeadersFromHTTP(c.Request().Header),
	})
	result, _ := collector.Load()
	if execErr != nil {
		if result.StatusCode == 0 {
			return r.fail(c, execErr)
		}
		mapped := core.MapError(execErr)
		r.logger.Warn("webhook rejected", "status_code", result.StatusCode, "text_code", mapped.TextCode, "envelope_id", result.EnvelopeID)
		return c.JSON(result.StatusCode, StatusResponse{Message: mapped.Message, TextCode: mapped.TextCode})
	}
	return c.JSON(http.StatusOK, result)
}

func (r *Routes) fail(c echo.Context, err error) error {
	mapped := core.MapError(err)
	status := mapped.Code
	if status < http.StatusBadRequest {
		status = http.StatusInternalServerError
	}
	if status >= http.StatusInternalServerError {
		r.logger.Error("request failed", "path", c.Path(), "error", err)
	}
	return c.JSON(status, StatusResponse{Message: mapped.Message, TextCode: mapped.TextCode})
}

var _ TokenManager = (*auth.TokenManager)(nil)
