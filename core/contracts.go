package core

import (
	"context"
	"net/http"
	"strings"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger

type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

type SecretProvider interface {
	Encrypt(ctx context.Context, plaintext []byte) ([]byte, error)
	Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error)
}

// TokenRecord is the persisted OAuth state of the integration. An empty
// AccessToken means "not connected".
type TokenRecord struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

func (r TokenRecord) IsZero() bool {
	return strings.TrimSpace(r.AccessToken) == "" &&
		strings.TrimSpace(r.RefreshToken) == "" &&
		r.ExpiresAt.IsZero()
}

// TokenStore persists a single TokenRecord across restarts. Save replaces the
// full record atomically and Clear is idempotent.
type TokenStore interface {
	Load(ctx context.Context) (TokenRecord, bool, error)
	Save(ctx context.Context, record TokenRecord) error
	Clear(ctx context.Context) error
}

// TokenSource yields a bearer token valid for immediate use.
type TokenSource interface {
	CurrentToken(ctx context.Context) (string, error)
}

type TokenSourceFunc func(ctx context.Context) (string, error)

func (f TokenSourceFunc) CurrentToken(ctx context.Context) (string, error) {
	return f(ctx)
}
