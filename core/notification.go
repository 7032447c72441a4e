package core

import "strings"

// Envelope level status codes, as the provider spells them in event
// subscriptions.
const (
	EnvelopeEventSent      = "sent"
	EnvelopeEventDelivered = "delivered"
	EnvelopeEventCompleted = "completed"
	EnvelopeEventDeclined  = "declined"
	EnvelopeEventVoided    = "voided"
)

// Recipient level status codes.
const (
	RecipientEventSent      = "Sent"
	RecipientEventDelivered = "Delivered"
	RecipientEventCompleted = "Completed"
	RecipientEventDeclined  = "Declined"
)

type EnvelopeEvent struct {
	EnvelopeEventStatusCode string `json:"envelopeEventStatusCode"`
}

type RecipientEvent struct {
	RecipientEventStatusCode string `json:"recipientEventStatusCode"`
}

// NotificationSubscription is the eventNotification block attached to every
// envelope. The provider expects the flags as "true"/"false" strings.
type NotificationSubscription struct {
	URL                            string           `json:"url"`
	LoggingEnabled                 bool             `json:"loggingEnabled,string"`
	RequireAcknowledgment          bool             `json:"requireAcknowledgment,string"`
	IncludeDocuments               bool             `json:"includeDocuments,string"`
	IncludeEnvelopeVoidReason      bool             `json:"includeEnvelopeVoidReason,string"`
	IncludeDocumentFields          bool             `json:"includeDocumentFields,string"`
	IncludeCertificateOfCompletion bool             `json:"includeCertificateOfCompletion,string"`
	EnvelopeEvents                 []EnvelopeEvent  `json:"envelopeEvents"`
	RecipientEvents                []RecipientEvent `json:"recipientEvents"`
}

func SubscribedEnvelopeEvents() []string {
	return []string{
		EnvelopeEventSent,
		EnvelopeEventDelivered,
		EnvelopeEventCompleted,
		EnvelopeEventDeclined,
		EnvelopeEventVoided,
	}
}

func SubscribedRecipientEvents() []string {
	return []string{
		RecipientEventSent,
		RecipientEventDelivered,
		RecipientEventCompleted,
		RecipientEventDeclined,
	}
}

// BuildNotificationSubscription is pure construction over the fixed event set.
func BuildNotificationSubscription(callbackURL string) NotificationSubscription {
	envelopeCodes := SubscribedEnvelopeEvents()
	recipientCodes := SubscribedRecipientEvents()
	subscription := NotificationSubscription{
		URL:                            strings.TrimSpace(callbackURL),
		LoggingEnabled:                 true,
		RequireAcknowledgment:          true,
		IncludeDocuments:               true,
		IncludeEnvelopeVoidReason:      true,
		IncludeDocumentFields:          true,
		IncludeCertificateOfCompletion: true,
		EnvelopeEvents:                 make([]EnvelopeEvent, 0, len(envelopeCodes)),
		RecipientEvents:                make([]RecipientEvent, 0, len(recipientCodes)),
	}
	for _, code := range envelopeCodes {
		subscription.EnvelopeEvents = append(subscription.EnvelopeEvents, EnvelopeEvent{EnvelopeEventStatusCode: code})
	}
	for _, code := range recipientCodes {
		subscription.RecipientEvents = append(subscription.RecipientEvents, RecipientEvent{RecipientEventStatusCode: code})
	}
	return subscription
}

// Clone returns a copy that shares no slices with the receiver.
func (s NotificationSubscription) Clone() NotificationSubscription {
	out := s
	out.EnvelopeEvents = append([]EnvelopeEvent(nil), s.EnvelopeEvents...)
	out.RecipientEvents = append([]RecipientEvent(nil), s.RecipientEvents...)
	return out
}
