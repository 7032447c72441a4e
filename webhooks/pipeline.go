package webhooks

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/goliatone/go-esign/core"
)

// Result describes how one notification was handled. Fatal is set only when
// the audit record could not be stored.
type Result struct {
	EnvelopeID          string `json:"envelope_id,omitempty"`
	Status              string `json:"status,omitempty"`
	StorageKey          string `json:"storage_key,omitempty"`
	Stored              bool   `json:"stored"`
	CompletionTriggered bool   `json:"completion_triggered"`
	StatusCode          int    `json:"-"`
	Fatal               bool   `json:"-"`
}

// Pipeline processes inbound envelope notifications. It holds no locks, so
// slow archive writes or completion effects never block other deliveries.
type Pipeline struct {
	archive         Archive
	finder          RecordFinder
	verifier        Verifier
	prefix          string
	maxPayloadBytes int64

	logger         core.Logger
	loggerProvider core.LoggerProvider
	metrics        core.MetricsRecorder
	observer       *core.Observer
	now            func() time.Time
}

func NewPipeline(cfg core.Config, archive Archive, opts ...Option) (*Pipeline, error) {
	if archive == nil {
		return nil, core.NewBadInputError("webhooks: archive is required")
	}
	cfg = cfg.Normalized()
	pipeline := &Pipeline{
		archive:         archive,
		finder:          noRecords{},
		prefix:          cfg.Webhook.StoragePrefix,
		maxPayloadBytes: cfg.Webhook.MaxPayloadBytes,
		metrics:         core.NopMetricsRecorder{},
		now:             func() time.Time { return time.Now().UTC() },
	}
	if verifier := NewHMACVerifier(cfg.Webhook.HMACSecret); verifier != nil {
		pipeline.verifier = verifier
	}
	for _, opt := range opts {
		if opt != nil {
			opt(pipeline)
		}
	}
	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "esign"
	}
	pipeline.observer = core.NewObserver(serviceName+".webhooks", pipeline.loggerProvider, pipeline.logger, pipeline.metrics)
	return pipeline, nil
}

// Process handles a raw payload without transport headers.
func (p *Pipeline) Process(ctx context.Context, payload []byte) (Result, error) {
	return p.Handle(ctx, Request{Body: payload})
}

func (p *Pipeline) Handle(ctx context.Context, req Request) (result Result, err error) {
	startedAt := p.now()
	defer func() {
		p.observer.Observe(ctx, startedAt, "process_webhook", err, map[string]any{
			"envelope_id":          result.EnvelopeID,
			"envelope_status":      result.Status,
			"stored":               result.Stored,
			"completion_triggered": result.CompletionTriggered,
		})
	}()

	if p.maxPayloadBytes > 0 && int64(len(req.Body)) > p.maxPayloadBytes {
		return Result{StatusCode: http.StatusRequestEntityTooLarge},
			core.NewMalformedNotificationError(fmt.Errorf("webhooks: payload exceeds %d bytes", p.maxPayloadBytes))
	}
	if p.verifier != nil {
		if verifyErr := p.verifier.Verify(ctx, req); verifyErr != nil {
			return Result{StatusCode: http.StatusUnauthorized}, core.NewSignatureInvalidError(verifyErr)
		}
	}

	event, parseErr := ParseEvent(req.Body)
	if parseErr != nil {
		return Result{StatusCode: http.StatusBadRequest}, core.NewMalformedNotificationError(parseErr)
	}
	result = Result{
		EnvelopeID: event.EnvelopeID,
		Status:     event.Status,
		StatusCode: http.StatusOK,
	}

	if event.EnvelopeID != "" {
		result.StorageKey = StorageKey(p.prefix, event.EnvelopeID, event.GeneratedAt, req.Body)
		if !p.archive.Put(ctx, result.StorageKey, req.Body) {
			p.observer.Alert(ctx, "webhook audit record could not be stored", map[string]any{
				"envelope_id":     event.EnvelopeID,
				"envelope_status": event.Status,
				"storage_key":     result.StorageKey,
			})
			result.StatusCode = http.StatusInternalServerError
			result.Fatal = true
			return result, core.NewStorageFailureError(result.StorageKey)
		}
		result.Stored = true
	}

	if !IsCompletion(event.Status) || event.EnvelopeID == "" {
		return result, nil
	}

	record, found, findErr := p.finder.FindByEnvelopeID(ctx, event.EnvelopeID)
	if findErr != nil {
		result.StatusCode = http.StatusInternalServerError
		return result, core.NewCompletionFailedError(event.EnvelopeID, findErr)
	}
	if !found || record == nil {
		p.observer.Info(ctx, "no record for completed envelope", map[string]any{
			"envelope_id": event.EnvelopeID,
		})
		return result, nil
	}
	if completeErr := record.OnCompleted(ctx); completeErr != nil {
		result.StatusCode = http.StatusInternalServerError
		return result, core.NewCompletionFailedError(event.EnvelopeID, completeErr)
	}
	result.CompletionTriggered = true
	return result, nil
}

// HeadersFromHTTP flattens request headers for Handle.
func HeadersFromHTTP(headers http.Header) map[string]string {
	flat := make(map[string]string, len(headers))
	for key, values := range headers {
		flat[key] = strings.Join(values, ",")
	}
	return flat
}
