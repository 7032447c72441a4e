package webhooks

import (
	"time"

	"github.com/goliatone/go-esign/core"
)

type Option func(*Pipeline)

func WithVerifier(verifier Verifier) Option {
	return func(p *Pipeline) {
		p.verifier = verifier
	}
}

func WithRecordFinder(finder RecordFinder) Option {
	return func(p *Pipeline) {
		if finder != nil {
			p.finder = finder
		}
	}
}

func WithLogger(logger core.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

func WithLoggerProvider(provider core.LoggerProvider) Option {
	return func(p *Pipeline) {
		p.loggerProvider = provider
	}
}

func WithMetricsRecorder(recorder core.MetricsRecorder) Option {
	return func(p *Pipeline) {
		if recorder != nil {
			p.metrics = recorder
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}
