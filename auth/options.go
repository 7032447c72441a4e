package auth

import (
	"time"

	"github.com/goliatone/go-esign/core"
)

type Option func(*TokenManager)

func WithHTTPClient(client core.HTTPDoer) Option {
	return func(m *TokenManager) {
		if client != nil {
			m.httpClient = client
		}
	}
}

// WithTokenExchanger replaces the token endpoint client entirely.
func WithTokenExchanger(exchanger TokenExchanger) Option {
	return func(m *TokenManager) {
		if exchanger != nil {
			m.exchanger = exchanger
		}
	}
}

func WithLogger(logger core.Logger) Option {
	return func(m *TokenManager) {
		m.logger = logger
	}
}

func WithLoggerProvider(provider core.LoggerProvider) Option {
	return func(m *TokenManager) {
		m.loggerProvider = provider
	}
}

func WithMetricsRecorder(recorder core.MetricsRecorder) Option {
	return func(m *TokenManager) {
		if recorder != nil {
			m.metrics = recorder
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(m *TokenManager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithDefaultTokenTTL sets the lifetime assumed when the token endpoint omits
// expires_in.
func WithDefaultTokenTTL(ttl time.Duration) Option {
	return func(m *TokenManager) {
		if ttl > 0 {
			m.defaultTTL = ttl
		}
	}
}
