package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-esign/core"
)

const defaultResponseBodyLimit int64 = 10 << 20 // 10 MiB

// Request describes one API call. JSON, when set, is encoded as the body and
// wins over Body.
type Request struct {
	Method               string
	Path                 string
	Query                map[string]string
	Headers              map[string]string
	Body                 []byte
	JSON                 any
	Timeout              time.Duration
	MaxResponseBodyBytes int64
}

type Response struct {
	StatusCode int
	Headers    map[string]string
	Body       []byte
	Duration   time.Duration
}

// RESTClient issues authenticated JSON calls against the signature REST API.
// Every call asks Tokens for a bearer token first, so a disconnected
// integration fails before any network traffic.
type RESTClient struct {
	Client               core.HTTPDoer
	BaseURL              string
	Tokens               core.TokenSource
	Signer               core.Signer
	DefaultHeaders       map[string]string
	Timeout              time.Duration
	MaxResponseBodyBytes int64
}

func NewRESTClient(baseURL string, tokens core.TokenSource, client core.HTTPDoer) *RESTClient {
	if client == nil {
		client = &http.Client{Timeout: core.DefaultRequestTimeout}
	}
	return &RESTClient{
		Client:  client,
		BaseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		Tokens:  tokens,
		Signer:  core.BearerTokenSigner{},
		DefaultHeaders: map[string]string{
			"Accept": "application/json",
		},
		MaxResponseBodyBytes: defaultResponseBodyLimit,
	}
}

func (c *RESTClient) Do(ctx context.Context, req Request) (Response, error) {
	if c == nil || c.Client == nil {
		return Response{}, transportError(
			"transport: rest client requires an http client",
			goerrors.CategoryInternal,
			http.StatusInternalServerError,
			nil,
		)
	}
	if c.Tokens == nil {
		return Response{}, transportError(
			"transport: rest client requires a token source",
			goerrors.CategoryInternal,
			http.StatusInternalServerError,
			nil,
		)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	token, err := c.Tokens.CurrentToken(ctx)
	if err != nil {
		return Response{}, err
	}

	method := strings.TrimSpace(strings.ToUpper(req.Method))
	if method == "" {
		method = http.MethodGet
	}
	target, err := c.resolveURL(req.Path, req.Query)
	if err != nil {
		return Response{}, err
	}

	body := req.Body
	if req.JSON != nil {
		body, err = json.Marshal(req.JSON)
		if err != nil {
			return Response{}, transportWrapError(
				err,
				goerrors.CategoryBadInput,
				"transport: encode request body",
				http.StatusBadRequest,
				map[string]any{"method": method, "path": req.Path},
			)
		}
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = c.Timeout
	}
	requestCtx := ctx
	cancel := func() {}
	if timeout > 0 {
		requestCtx, cancel = context.WithTimeout(ctx, timeout)
	}
	defer cancel()

	httpReq, err := http.NewRequestWithContext(requestCtx, method, target, bytes.NewReader(body))
	if err != nil {
		return Response{}, transportWrapError(
			err,
			goerrors.CategoryBadInput,
			"transport: create http request",
			http.StatusBadRequest,
			map[string]any{"method": method, "url": target},
		)
	}
	for key, value := range c.DefaultHeaders {
		if strings.TrimSpace(key) != "" {
			httpReq.Header.Set(strings.TrimSpace(key), strings.TrimSpace(value))
		}
	}
	if req.JSON != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	for key, value := range req.Headers {
		if strings.TrimSpace(key) != "" {
			httpReq.Header.Set(strings.TrimSpace(key), strings.TrimSpace(value))
		}
	}

	signer := c.Signer
	if signer == nil {
		signer = core.BearerTokenSigner{}
	}
	if err := signer.Sign(ctx, httpReq, token); err != nil {
		return Response{}, core.NewUnauthorizedError("", err)
	}

	startedAt := time.Now()
	httpRes, err := c.Client.Do(httpReq)
	if err != nil {
		return Response{}, core.NewProviderError("transport: execute http request", 0, "", err)
	}
	defer httpRes.Body.Close()

	limit := resolveResponseBodyLimit(req.MaxResponseBodyBytes, c.MaxResponseBodyBytes)
	payload, err := io.ReadAll(io.LimitReader(httpRes.Body, limit+1))
	if err != nil {
		return Response{}, transportWrapError(
			err,
			goerrors.CategoryExternal,
			"transport: read response body",
			http.StatusBadGateway,
			map[string]any{"status_code": httpRes.StatusCode},
		)
	}
	if int64(len(payload)) > limit {
		return Response{}, transportError(
			fmt.Sprintf("transport: response body exceeds limit of %d bytes", limit),
			goerrors.CategoryExternal,
			http.StatusBadGateway,
			map[string]any{
				"status_code":      httpRes.StatusCode,
				"response_limit_b": limit,
			},
		)
	}

	response := Response{
		StatusCode: httpRes.StatusCode,
		Headers:    flattenHeaders(httpRes.Header),
		Body:       payload,
		Duration:   time.Since(startedAt),
	}
	if httpRes.StatusCode < http.StatusOK || httpRes.StatusCode >= http.StatusMultipleChoices {
		return response, DecodeProviderError(httpRes.StatusCode, payload)
	}
	return response, nil
}

// DoJSON runs Do and decodes a successful body into out when out is non nil.
func (c *RESTClient) DoJSON(ctx context.Context, req Request, out any) error {
	response, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(response.Body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(response.Body, out); err != nil {
		return core.NewProviderError("transport: decode response body", response.StatusCode, "", err)
	}
	return nil
}

func (c *RESTClient) resolveURL(path string, query map[string]string) (string, error) {
	path = strings.TrimSpace(path)
	raw := path
	if !strings.HasPrefix(path, "http://") && !strings.HasPrefix(path, "https://") {
		if c.BaseURL == "" {
			return "", transportError(
				"transport: base url is required for relative paths",
				goerrors.CategoryBadInput,
				http.StatusBadRequest,
				map[string]any{"path": path},
			)
		}
		raw = c.BaseURL + "/" + strings.TrimLeft(path, "/")
	}
	parsedURL, err := url.Parse(raw)
	if err != nil {
		return "", transportWrapError(
			err,
			goerrors.CategoryBadInput,
			"transport: invalid request url",
			http.StatusBadRequest,
			map[string]any{"url": raw},
		)
	}
	values := parsedURL.Query()
	for key, value := range query {
		if strings.TrimSpace(key) == "" {
			continue
		}
		values.Set(strings.TrimSpace(key), strings.TrimSpace(value))
	}
	parsedURL.RawQuery = values.Encode()
	return parsedURL.String(), nil
}

func flattenHeaders(headers http.Header) map[string]string {
	if len(headers) == 0 {
		return map[string]string{}
	}
	flat := make(map[string]string, len(headers))
	for key, values := range headers {
		flat[key] = strings.Join(values, ",")
	}
	return flat
}

func resolveResponseBodyLimit(requestLimit int64, clientLimit int64) int64 {
	if requestLimit > 0 {
		return requestLimit
	}
	if clientLimit > 0 {
		return clientLimit
	}
	return defaultResponseBodyLimit
}
