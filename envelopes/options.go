package envelopes

import (
	"time"

	"github.com/goliatone/go-esign/core"
	"github.com/goliatone/go-esign/transport"
)

type Option func(*Builder)

func WithHTTPClient(client core.HTTPDoer) Option {
	return func(b *Builder) {
		if client != nil {
			b.httpClient = client
		}
	}
}

// WithRESTClient overrides the API client. Its token source is used as is.
func WithRESTClient(client *transport.RESTClient) Option {
	return func(b *Builder) {
		if client != nil {
			b.rest = client
		}
	}
}

func WithLogger(logger core.Logger) Option {
	return func(b *Builder) {
		b.logger = logger
	}
}

func WithLoggerProvider(provider core.LoggerProvider) Option {
	return func(b *Builder) {
		b.loggerProvider = provider
	}
}

func WithMetricsRecorder(recorder core.MetricsRecorder) Option {
	return func(b *Builder) {
		if recorder != nil {
			b.metrics = recorder
		}
	}
}

func WithEmailSubject(subject string) Option {
	return func(b *Builder) {
		b.emailSubject = subject
	}
}

func WithClock(now func() time.Time) Option {
	return func(b *Builder) {
		if now != nil {
			b.now = now
		}
	}
}
