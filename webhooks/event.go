package webhooks

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	"golang.org/x/net/html/charset"
)

const (
	StatusSent      = "Sent"
	StatusDelivered = "Delivered"
	StatusCompleted = "Completed"
	StatusSigned    = "Signed"
	StatusDeclined  = "Declined"
	StatusVoided    = "Voided"
)

// Event is the identifying part of one notification.
type Event struct {
	EnvelopeID  string
	Status      string
	GeneratedAt string
	Recipients  []RecipientStatus
}

type RecipientStatus struct {
	RecipientID string
	Email       string
	UserName    string
	Status      string
}

type envelopeInformation struct {
	EnvelopeStatus envelopeStatusXML `xml:"EnvelopeStatus"`
}

type envelopeStatusXML struct {
	EnvelopeID        string               `xml:"EnvelopeID"`
	Status            string               `xml:"Status"`
	TimeGenerated     string               `xml:"TimeGenerated"`
	RecipientStatuses []recipientStatusXML `xml:"RecipientStatuses>RecipientStatus"`
}

type recipientStatusXML struct {
	RecipientID string `xml:"RecipientId"`
	Email       string `xml:"Email"`
	UserName    string `xml:"UserName"`
	Status      string `xml:"Status"`
}

// ParseEvent decodes an EnvelopeStatus notification document. Any decode
// failure is returned, never panics.
func ParseEvent(payload []byte) (Event, error) {
	if len(bytes.TrimSpace(payload)) == 0 {
		return Event{}, fmt.Errorf("webhooks: empty payload")
	}
	decoded := envelopeInformation{}
	decoder := xml.NewDecoder(bytes.NewReader(payload))
	decoder.CharsetReader = charset.NewReaderLabel
	if err := decoder.Decode(&decoded); err != nil {
		return Event{}, fmt.Errorf("webhooks: decode notification: %w", err)
	}
	status := decoded.EnvelopeStatus
	event := Event{
		EnvelopeID:  strings.TrimSpace(status.EnvelopeID),
		Status:      strings.TrimSpace(status.Status),
		GeneratedAt: strings.TrimSpace(status.TimeGenerated),
	}
	for _, recipient := range status.RecipientStatuses {
		event.Recipients = append(event.Recipients, RecipientStatus{
			RecipientID: strings.TrimSpace(recipient.RecipientID),
			Email:       strings.TrimSpace(recipient.Email),
			UserName:    strings.TrimSpace(recipient.UserName),
			Status:      strings.TrimSpace(recipient.Status),
		})
	}
	return event, nil
}

// GeneratedTime parses GeneratedAt. The provider omits the zone on some
// accounts, so a zoneless layout is tried too.
func (e Event) GeneratedTime() (time.Time, bool) {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.9999999"} {
		if parsed, err := time.Parse(layout, e.GeneratedAt); err == nil {
			return parsed.UTC(), true
		}
	}
	return time.Time{}, false
}

// IsCompletion reports the two terminal success statuses. Matching is exact.
func IsCompletion(status string) bool {
	return status == StatusCompleted || status == StatusSigned
}

func IsTerminal(status string) bool {
	switch status {
	case StatusCompleted, StatusSigned, StatusDeclined, StatusVoided:
		return true
	default:
		return false
	}
}
