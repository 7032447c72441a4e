package transport

import (
	"encoding/json"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-esign/core"
)

// providerErrorBody is the error document the signature API returns on 4xx
// and 5xx responses.
type providerErrorBody struct {
	ErrorCode string `json:"errorCode"`
	Message   string `json:"message"`
}

func transportError(
	message string,
	category goerrors.Category,
	code int,
	metadata map[string]any,
) error {
	err := goerrors.New(message, category).
		WithCode(code).
		WithTextCode(transportTextCode(category))
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

func transportWrapError(
	source error,
	category goerrors.Category,
	message string,
	code int,
	metadata map[string]any,
) error {
	if source == nil {
		return transportError(message, category, code, metadata)
	}
	err := goerrors.Wrap(source, category, message).
		WithCode(code).
		WithTextCode(transportTextCode(category))
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

func transportTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return core.ErrorBadInput
	case goerrors.CategoryAuth:
		return core.ErrorUnauthorized
	case goerrors.CategoryExternal:
		return core.ErrorProvider
	default:
		return core.ErrorInternal
	}
}

// DecodeProviderError turns a non 2xx response into ESIGN_PROVIDER_ERROR
// carrying the provider's own message.
func DecodeProviderError(status int, body []byte) error {
	decoded := providerErrorBody{}
	_ = json.Unmarshal(body, &decoded)
	message := strings.TrimSpace(decoded.Message)
	code := strings.TrimSpace(decoded.ErrorCode)
	switch {
	case message != "" && code != "":
		message = code + ": " + message
	case message == "" && code != "":
		message = code
	case message == "":
		message = strings.TrimSpace(string(body))
		if len(message) > 512 {
			message = message[:512]
		}
		if message == "" {
			message = http.StatusText(status)
		}
	}
	return core.NewProviderError(message, status, code, nil)
}
