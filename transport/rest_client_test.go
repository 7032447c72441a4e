package transport

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-esign/core"
)

func staticToken(token string) core.TokenSource {
	return core.TokenSourceFunc(func(context.Context) (string, error) {
		return token, nil
	})
}

func TestRESTClient_SignsAndEncodesJSON(t *testing.T) {
	var received map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok_1" {
			t.Errorf("expected bearer header, got %q", got)
		}
		if got := r.Header.Get("Content-Type"); got != "application/json" {
			t.Errorf("expected json content type, got %q", got)
		}
		if r.URL.Path != "/restapi/v2.1/accounts/acc/envelopes" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &received)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"envelopeId":"E1","status":"sent"}`)
	}))
	defer server.Close()

	client := NewRESTClient(server.URL+"/restapi/", staticToken("tok_1"), server.Client())
	var out struct {
		EnvelopeID string `json:"envelopeId"`
	}
	err := client.DoJSON(context.Background(), Request{
		Method: http.MethodPost,
		Path:   "/v2.1/accounts/acc/envelopes",
		JSON:   map[string]any{"status": "sent"},
	}, &out)
	if err != nil {
		t.Fatalf("do json: %v", err)
	}
	if out.EnvelopeID != "E1" {
		t.Fatalf("unexpected decoded body %#v", out)
	}
	if received["status"] != "sent" {
		t.Fatalf("unexpected request body %#v", received)
	}
}

func TestRESTClient_QueryParameters(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("from_date"); got != "2024-01-01T00:00:00Z" {
			t.Errorf("unexpected from_date %q", got)
		}
		_, _ = io.WriteString(w, `{}`)
	}))
	defer server.Close()

	client := NewRESTClient(server.URL, staticToken("tok"), server.Client())
	if _, err := client.Do(context.Background(), Request{
		Path:  "envelopes",
		Query: map[string]string{"from_date": "2024-01-01T00:00:00Z"},
	}); err != nil {
		t.Fatalf("do: %v", err)
	}
}

func TestRESTClient_UnauthorizedSkipsNetwork(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer server.Close()

	tokens := core.TokenSourceFunc(func(context.Context) (string, error) {
		return "", core.NewUnauthorizedError("", nil)
	})
	client := NewRESTClient(server.URL, tokens, server.Client())
	_, err := client.Do(context.Background(), Request{Path: "/anything"})
	if !core.IsUnauthorized(err) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if calls != 0 {
		t.Fatalf("expected no network call, got %d", calls)
	}
}

func TestRESTClient_DecodesProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"errorCode":"TEMPLATE_ID_INVALID","message":"Invalid template ID."}`)
	}))
	defer server.Close()

	client := NewRESTClient(server.URL, staticToken("tok"), server.Client())
	response, err := client.Do(context.Background(), Request{Method: http.MethodPost, Path: "/envelopes"})
	if !core.IsProviderError(err) {
		t.Fatalf("expected provider error, got %v", err)
	}
	if response.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected status on response, got %d", response.StatusCode)
	}

	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected go-errors envelope, got %T", err)
	}
	if rich.Message != "TEMPLATE_ID_INVALID: Invalid template ID." {
		t.Fatalf("expected provider message, got %q", rich.Message)
	}
	if rich.Code != http.StatusBadRequest {
		t.Fatalf("expected upstream code, got %d", rich.Code)
	}
	if rich.Metadata["provider_error_code"] != "TEMPLATE_ID_INVALID" {
		t.Fatalf("unexpected metadata %#v", rich.Metadata)
	}
}

func TestRESTClient_ResponseLimitReturnsRichError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("12345"))
	}))
	defer server.Close()

	client := NewRESTClient(server.URL, staticToken("tok"), server.Client())
	client.MaxResponseBodyBytes = 4

	_, err := client.Do(context.Background(), Request{Method: http.MethodGet, Path: "/"})
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected go-errors envelope, got %T", err)
	}
	if rich.Category != goerrors.CategoryExternal || rich.TextCode != core.ErrorProvider {
		t.Fatalf("unexpected envelope %q/%q", rich.Category, rich.TextCode)
	}
	if rich.Code != http.StatusBadGateway {
		t.Fatalf("expected %d code, got %d", http.StatusBadGateway, rich.Code)
	}
}

func TestRESTClient_NilReturnsRichError(t *testing.T) {
	var client *RESTClient
	_, err := client.Do(context.Background(), Request{})
	if core.TextCode(err) != core.ErrorInternal {
		t.Fatalf("expected internal text code, got %q", core.TextCode(err))
	}
}

func TestDecodeProviderError_NonJSONBody(t *testing.T) {
	err := DecodeProviderError(http.StatusServiceUnavailable, []byte("upstream unavailable"))
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected go-errors envelope, got %T", err)
	}
	if rich.Message != "upstream unavailable" || rich.Code != http.StatusServiceUnavailable {
		t.Fatalf("unexpected envelope %q/%d", rich.Message, rich.Code)
	}

	err = DecodeProviderError(http.StatusInternalServerError, nil)
	if !goerrors.As(err, &rich) || rich.Message != http.StatusText(http.StatusInternalServerError) {
		t.Fatalf("expected status text fallback, got %v", err)
	}
}
