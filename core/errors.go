package core

import (
	"errors"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// Stable text codes attached to every error envelope leaving the module.
const (
	SMSErrorBadInput           = "SMS_BAD_INPUT"
	SMSErrorProviderNotFound   = "SMS_PROVIDER_NOT_FOUND"
	SMSErrorVerificationFailed = "SMS_VERIFICATION_FAILED"
	SMSErrorParseFailed        = "SMS_PARSE_ERROR"
	SMSErrorRateLimited        = "SMS_RATE_LIMITED"
	SMSErrorSendFailed         = "SMS_SEND_FAILED"
	SMSErrorInternal           = "SMS_INTERNAL_ERROR"
)

// ErrProviderNotFound marks a provider key with no registered handler.
var ErrProviderNotFound = errors.New("core: provider not found")

type SMSErrorKind string

const (
	SMSErrorKindHTTP       SMSErrorKind = "http"
	SMSErrorKindAuth       SMSErrorKind = "auth"
	SMSErrorKindInvalid    SMSErrorKind = "invalid"
	SMSErrorKindProvider   SMSErrorKind = "provider"
	SMSErrorKindUnexpected SMSErrorKind = "unexpected"
)

// SMSError is the vendor-facing failure taxonomy shared by webhook handlers
// and send clients. Its Error string is wire-visible (it flows into webhook
// response bodies), so the rendering is stable and carries no package prefix.
type SMSError struct {
	Kind    SMSErrorKind
	Message string
	Cause   error
}

func (e *SMSError) Error() string {
	if e == nil {
		return "unexpected: nil error"
	}
	switch e.Kind {
	case SMSErrorKindHTTP:
		return "http error: " + e.Message
	case SMSErrorKindAuth:
		return "authentication error: " + e.Message
	case SMSErrorKindInvalid:
		return "invalid request: " + e.Message
	case SMSErrorKindProvider:
		return "provider error: " + e.Message
	default:
		return "unexpected: " + e.Message
	}
}

func (e *SMSError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func NewHTTPError(message string) *SMSError {
	return &SMSError{Kind: SMSErrorKindHTTP, Message: message}
}

func NewAuthError(message string) *SMSError {
	return &SMSError{Kind: SMSErrorKindAuth, Message: message}
}

func NewInvalidError(message string) *SMSError {
	return &SMSError{Kind: SMSErrorKindInvalid, Message: message}
}

func NewProviderError(message string) *SMSError {
	return &SMSError{Kind: SMSErrorKindProvider, Message: message}
}

func NewUnexpectedError(message string) *SMSError {
	return &SMSError{Kind: SMSErrorKindUnexpected, Message: message}
}

func WrapSMSError(kind SMSErrorKind, cause error, message string) *SMSError {
	return &SMSError{Kind: kind, Message: message, Cause: cause}
}

func (e *SMSError) ToServiceError() *goerrors.Error {
	category := goerrors.CategoryOperation
	switch e.kind() {
	case SMSErrorKindAuth:
		category = goerrors.CategoryAuth
	case SMSErrorKindInvalid:
		category = goerrors.CategoryBadInput
	case SMSErrorKindUnexpected:
		category = goerrors.CategoryInternal
	}
	return ensureSMSErrorEnvelope(
		goerrors.New(e.Error(), category).
			WithTextCode(SMSErrorSendFailed).
			WithMetadata(map[string]any{"kind": string(e.kind())}),
	)
}

func (e *SMSError) kind() SMSErrorKind {
	if e == nil || e.Kind == "" {
		return SMSErrorKindUnexpected
	}
	return e.Kind
}

// VerificationError is the dispatch-level wrapper for a failed handler
// verification. Reason is the handler error's rendered message.
type VerificationError struct {
	Reason string
	Cause  error
}

func (e *VerificationError) Error() string {
	if e == nil {
		return "core: verification failed"
	}
	return "core: verification failed: " + e.Reason
}

func (e *VerificationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// ParseError is the dispatch-level wrapper for a failed handler parse. Reason
// is the underlying cause's rendered message.
type ParseError struct {
	Reason string
	Cause  error
}

func (e *ParseError) Error() string {
	if e == nil {
		return "core: parse failed"
	}
	return "core: parse failed: " + e.Reason
}

func (e *ParseError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func smsErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureSMSErrorEnvelope(richErr)
	}

	var smsErr *SMSError
	if errors.As(err, &smsErr) {
		return smsErr.ToServiceError()
	}
	var verificationErr *VerificationError
	if errors.As(err, &verificationErr) {
		return ensureSMSErrorEnvelope(
			goerrors.New(verificationErr.Error(), goerrors.CategoryAuth).
				WithTextCode(SMSErrorVerificationFailed),
		)
	}
	var parseErr *ParseError
	if errors.As(err, &parseErr) {
		return ensureSMSErrorEnvelope(
			goerrors.New(parseErr.Error(), goerrors.CategoryBadInput).
				WithTextCode(SMSErrorParseFailed),
		)
	}
	if errors.Is(err, ErrProviderNotFound) {
		return ensureSMSErrorEnvelope(
			goerrors.New(err.Error(), goerrors.CategoryNotFound).
				WithTextCode(SMSErrorProviderNotFound),
		)
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "throttl"), strings.Contains(msg, "rate limit"):
		return newSMSServiceError(err.Error(), goerrors.CategoryRateLimit, SMSErrorRateLimited)
	case strings.Contains(msg, "required"), strings.Contains(msg, "invalid"), strings.Contains(msg, "mismatch"):
		return newSMSServiceError(err.Error(), goerrors.CategoryBadInput, SMSErrorBadInput)
	}

	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureSMSErrorEnvelope(mapped)
}

func newSMSServiceError(message string, category goerrors.Category, textCode string) *goerrors.Error {
	return ensureSMSErrorEnvelope(
		goerrors.New(message, category).
			WithTextCode(textCode),
	)
}

func ensureSMSErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = smsHTTPStatus(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultSMSTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultSMSTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return SMSErrorBadInput
	case goerrors.CategoryNotFound:
		return SMSErrorProviderNotFound
	case goerrors.CategoryAuth, goerrors.CategoryAuthz:
		return SMSErrorVerificationFailed
	case goerrors.CategoryRateLimit:
		return SMSErrorRateLimited
	case goerrors.CategoryOperation:
		return SMSErrorSendFailed
	default:
		return SMSErrorInternal
	}
}

func smsHTTPStatus(category goerrors.Category) int {
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
	default:
		return http.StatusInternalServerError
	}
}
