package webhooks

import (
	"testing"
	"time"
)

func TestParseEvent(t *testing.T) {
	event, err := ParseEvent(notification("E1", "Delivered", "2024-01-01T10:00:00.123Z"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if event.EnvelopeID != "E1" || event.Status != "Delivered" || event.GeneratedAt != "2024-01-01T10:00:00.123Z" {
		t.Fatalf("unexpected event %#v", event)
	}
	if len(event.Recipients) != 1 || event.Recipients[0].Email != "first@example.com" {
		t.Fatalf("unexpected recipients %#v", event.Recipients)
	}
	generated, ok := event.GeneratedTime()
	if !ok || !generated.Equal(time.Date(2024, 1, 1, 10, 0, 0, 123000000, time.UTC)) {
		t.Fatalf("unexpected generated time %s", generated)
	}
}

func TestParseEvent_ZonelessTimestamp(t *testing.T) {
	event, err := ParseEvent(notification("E1", "Sent", "2024-01-01T10:00:00.1234567"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if _, ok := event.GeneratedTime(); !ok {
		t.Fatalf("expected zoneless timestamp parsed")
	}
}

func TestParseEvent_MissingFields(t *testing.T) {
	event, err := ParseEvent([]byte(`<DocuSignEnvelopeInformation><EnvelopeStatus></EnvelopeStatus></DocuSignEnvelopeInformation>`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if event.EnvelopeID != "" || event.Status != "" {
		t.Fatalf("expected empty identifiers, got %#v", event)
	}
}

func TestParseEvent_DeclaredLatin1Encoding(t *testing.T) {
	payload := []byte("<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?>\n" +
		"<DocuSignEnvelopeInformation><EnvelopeStatus>" +
		"<RecipientStatuses><RecipientStatus><UserName>Ren\xe9e</UserName><Status>Completed</Status></RecipientStatus></RecipientStatuses>" +
		"<TimeGenerated>2024-01-01T10:00:00Z</TimeGenerated><EnvelopeID>E1</EnvelopeID><Status>Completed</Status>" +
		"</EnvelopeStatus></DocuSignEnvelopeInformation>")

	event, err := ParseEvent(payload)
	if err != nil {
		t.Fatalf("parse latin-1 notification: %v", err)
	}
	if event.EnvelopeID != "E1" || event.Status != StatusCompleted {
		t.Fatalf("unexpected event %#v", event)
	}
	if len(event.Recipients) != 1 || event.Recipients[0].UserName != "Renée" {
		t.Fatalf("expected transcoded recipient name, got %#v", event.Recipients)
	}
}

func TestParseEvent_UnknownEncodingIsMalformed(t *testing.T) {
	payload := []byte(`<?xml version="1.0" encoding="x-unknown-9"?><DocuSignEnvelopeInformation/>`)
	if _, err := ParseEvent(payload); err == nil {
		t.Fatalf("expected unknown encoding to fail")
	}
}

func TestIsCompletion(t *testing.T) {
	tests := map[string]bool{
		"Completed": true,
		"Signed":    true,
		"completed": false,
		"Sent":      false,
		"Voided":    false,
		"":          false,
	}
	for status, expected := range tests {
		if got := IsCompletion(status); got != expected {
			t.Fatalf("IsCompletion(%q) = %t", status, got)
		}
	}
	if !IsTerminal("Voided") || IsTerminal("Delivered") {
		t.Fatalf("unexpected terminal classification")
	}
}
