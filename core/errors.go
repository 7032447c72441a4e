package core

import (
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	ErrorUnauthorized          = "ESIGN_UNAUTHORIZED"
	ErrorProvider              = "ESIGN_PROVIDER_ERROR"
	ErrorMalformedNotification = "ESIGN_MALFORMED_NOTIFICATION"
	ErrorStorageFailure        = "ESIGN_STORAGE_FAILURE"
	ErrorCompletionFailed      = "ESIGN_COMPLETION_FAILED"
	ErrorSignatureInvalid      = "ESIGN_SIGNATURE_INVALID"
	ErrorBadInput              = "ESIGN_BAD_INPUT"
	ErrorInternal              = "ESIGN_INTERNAL"
)

const MessageNotConnected = "integration not connected"

type ErrorMapper func(err error) *goerrors.Error

// NewUnauthorizedError reports that no usable token exists. Callers treat it
// as "not yet connected", never as a crash.
func NewUnauthorizedError(message string, source error) *goerrors.Error {
	if strings.TrimSpace(message) == "" {
		message = MessageNotConnected
	}
	return newError(source, message, goerrors.CategoryAuth, http.StatusUnauthorized, ErrorUnauthorized)
}

// NewProviderError carries the remote API's own message. status is the
// upstream HTTP status, 0 when the request never got a response.
func NewProviderError(message string, status int, providerCode string, source error) *goerrors.Error {
	message = strings.TrimSpace(message)
	if message == "" {
		message = "provider request failed"
	}
	code := status
	if code < http.StatusBadRequest {
		code = http.StatusBadGateway
	}
	err := newError(source, message, goerrors.CategoryExternal, code, ErrorProvider)
	metadata := map[string]any{"provider_status": status}
	if providerCode = strings.TrimSpace(providerCode); providerCode != "" {
		metadata["provider_error_code"] = providerCode
	}
	return err.WithMetadata(metadata)
}

func NewMalformedNotificationError(source error) *goerrors.Error {
	return newError(source, "webhook payload could not be parsed", goerrors.CategoryBadInput, http.StatusBadRequest, ErrorMalformedNotification)
}

func NewStorageFailureError(key string) *goerrors.Error {
	return newError(nil, "webhook payload could not be stored", goerrors.CategoryInternal, http.StatusInternalServerError, ErrorStorageFailure).
		WithSeverity(goerrors.SeverityCritical).
		WithMetadata(map[string]any{"storage_key": key})
}

func NewCompletionFailedError(envelopeID string, source error) *goerrors.Error {
	return newError(source, "envelope completion handler failed", goerrors.CategoryOperation, http.StatusInternalServerError, ErrorCompletionFailed).
		WithMetadata(map[string]any{"envelope_id": envelopeID})
}

func NewSignatureInvalidError(source error) *goerrors.Error {
	return newError(source, "webhook signature verification failed", goerrors.CategoryAuth, http.StatusUnauthorized, ErrorSignatureInvalid)
}

func NewBadInputError(message string) *goerrors.Error {
	return newError(nil, message, goerrors.CategoryBadInput, http.StatusBadRequest, ErrorBadInput)
}

// NewFieldValidationError reports one invalid message field. scope prefixes
// the message, e.g. "command" or "query".
func NewFieldValidationError(scope string, field string, message string) *goerrors.Error {
	return goerrors.NewValidation(scope+": validation failed", goerrors.FieldError{
		Field:   field,
		Message: message,
	}).
		WithCode(http.StatusBadRequest).
		WithTextCode(ErrorBadInput).
		WithSeverity(goerrors.SeverityError)
}

func NewInternalError(message string, source error) *goerrors.Error {
	return newError(source, message, goerrors.CategoryInternal, http.StatusInternalServerError, ErrorInternal)
}

func newError(source error, message string, category goerrors.Category, code int, textCode string) *goerrors.Error {
	var err *goerrors.Error
	if source != nil {
		err = goerrors.Wrap(source, category, message)
	} else {
		err = goerrors.New(message, category)
	}
	return err.WithCode(code).WithTextCode(textCode)
}

// TextCode returns the text code of a go-errors envelope, empty otherwise.
func TextCode(err error) string {
	if err == nil {
		return ""
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) && richErr != nil {
		return strings.TrimSpace(richErr.TextCode)
	}
	return ""
}

func IsUnauthorized(err error) bool { return TextCode(err) == ErrorUnauthorized }

func IsProviderError(err error) bool { return TextCode(err) == ErrorProvider }

func IsMalformedNotification(err error) bool { return TextCode(err) == ErrorMalformedNotification }

func IsStorageFailure(err error) bool { return TextCode(err) == ErrorStorageFailure }

func IsBadInput(err error) bool { return TextCode(err) == ErrorBadInput }

// MapError converts any error into an envelope with an HTTP code and a text
// code, keeping existing envelopes intact.
func MapError(err error) *goerrors.Error {
	if err == nil {
		return nil
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) && richErr != nil {
		return ensureErrorEnvelope(richErr)
	}
	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "required"), strings.Contains(msg, "invalid"), strings.Contains(msg, "must be"):
		return ensureErrorEnvelope(goerrors.Wrap(err, goerrors.CategoryBadInput, err.Error()))
	}
	return ensureErrorEnvelope(goerrors.MapToError(err, goerrors.DefaultErrorMappers()))
}

func ensureErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = httpStatusForCategory(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return ErrorBadInput
	case goerrors.CategoryAuth:
		return ErrorUnauthorized
	case goerrors.CategoryExternal:
		return ErrorProvider
	default:
		return ErrorInternal
	}
}

func httpStatusForCategory(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryConflict:
		return http.StatusConflict
	case goerrors.CategoryRateLimit:
		return http.StatusTooManyRequests
	case goerrors.CategoryExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
