package webhooks

import (
	"context"
	"fmt"
	"sync"

	"github.com/goliatone/go-esign/core"
)

func notification(envelopeID string, status string, generatedAt string) []byte {
	return []byte(fmt.Sprintf(`<?xml version="1.0" encoding="utf-8"?>
<DocuSignEnvelopeInformation xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance" xmlns="http://www.docusign.net/API/3.0">
  <EnvelopeStatus>
    <RecipientStatuses>
      <RecipientStatus>
        <Type>Signer</Type>
        <Email>first@example.com</Email>
        <UserName>First</UserName>
        <RecipientId>1</RecipientId>
        <Status>%s</Status>
      </RecipientStatus>
    </RecipientStatuses>
    <TimeGenerated>%s</TimeGenerated>
    <EnvelopeID>%s</EnvelopeID>
    <Status>%s</Status>
  </EnvelopeStatus>
</DocuSignEnvelopeInformation>`, status, generatedAt, envelopeID, status))
}

type stubRecord struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (r *stubRecord) OnCompleted(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	return r.err
}

func (r *stubRecord) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

type stubFinder struct {
	records map[string]*stubRecord
	err     error
	lookups int
}

func (f *stubFinder) FindByEnvelopeID(_ context.Context, envelopeID string) (Record, bool, error) {
	f.lookups++
	if f.err != nil {
		return nil, false, f.err
	}
	record, ok := f.records[envelopeID]
	if !ok {
		return nil, false, nil
	}
	return record, true, nil
}

type capturedLog struct {
	level  string
	msg    string
	fields map[string]any
}

type captureLogger struct {
	mu      *sync.Mutex
	records *[]capturedLog
	fields  map[string]any
}

func newCaptureLogger() *captureLogger {
	records := []capturedLog{}
	return &captureLogger{mu: &sync.Mutex{}, records: &records, fields: map[string]any{}}
}

func (l *captureLogger) Trace(msg string, args ...any) { l.record("trace", msg, args...) }
func (l *captureLogger) Debug(msg string, args ...any) { l.record("debug", msg, args...) }
func (l *captureLogger) Info(msg string, args ...any)  { l.record("info", msg, args...) }
func (l *captureLogger) Warn(msg string, args ...any)  { l.record("warn", msg, args...) }
func (l *captureLogger) Error(msg string, args ...any) { l.record("error", msg, args...) }
func (l *captureLogger) Fatal(msg string, args ...any) { l.record("fatal", msg, args...) }

func (l *captureLogger) WithContext(context.Context) core.Logger { return l }

func (l *captureLogger) record(level string, msg string, args ...any) {
	fields := map[string]any{}
	for index := 0; index+1 < len(args); index += 2 {
		if key, ok := args[index].(string); ok {
			fields[key] = args[index+1]
		}
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	*l.records = append(*l.records, capturedLog{level: level, msg: msg, fields: fields})
}

func (l *captureLogger) snapshot() []capturedLog {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]capturedLog(nil), *l.records...)
}
