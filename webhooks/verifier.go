package webhooks

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strings"
)

const (
	SignatureHeaderPrefix = "X-DocuSign-Signature-"
	maxSignatureHeaders   = 10
)

// Request is one inbound delivery.
type Request struct {
	Body    []byte
	Headers map[string]string
}

type Verifier interface {
	Verify(ctx context.Context, req Request) error
}

// HMACVerifier checks the Connect HMAC headers. Any of the numbered signature
// headers may carry a match, since the provider signs with every active key.
type HMACVerifier struct {
	Secret []byte
}

func NewHMACVerifier(secret string) *HMACVerifier {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil
	}
	return &HMACVerifier{Secret: []byte(secret)}
}

func (v *HMACVerifier) Verify(_ context.Context, req Request) error {
	if v == nil || len(v.Secret) == 0 {
		return nil
	}
	expected := Sign(v.Secret, req.Body)
	found := false
	for index := 1; index <= maxSignatureHeaders; index++ {
		provided := headerValue(req.Headers, fmt.Sprintf("%s%d", SignatureHeaderPrefix, index))
		if provided == "" {
			continue
		}
		found = true
		if hmac.Equal([]byte(provided), []byte(expected)) {
			return nil
		}
	}
	if !found {
		return fmt.Errorf("webhooks: signature header is missing")
	}
	return fmt.Errorf("webhooks: signature mismatch")
}

// Sign returns base64(HMAC-SHA256(secret, body)).
func Sign(secret []byte, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	_, _ = mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func headerValue(headers map[string]string, key string) string {
	if len(headers) == 0 {
		return ""
	}
	for existing, value := range headers {
		if strings.EqualFold(strings.TrimSpace(existing), strings.TrimSpace(key)) {
			return strings.TrimSpace(value)
		}
	}
	return ""
}
