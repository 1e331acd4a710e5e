package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure so callers can branch on it instead of matching messages.
type Kind string

const (
	KindValidation            Kind = "VALIDATION"
	KindSessionNotFound       Kind = "SESSION_NOT_FOUND"
	KindSessionConflict       Kind = "SESSION_CONFLICT"
	KindScannerProcessFailure Kind = "SCANNER_PROCESS_FAILURE"
	KindScannerReportMissing  Kind = "SCANNER_REPORT_MISSING"
	KindScannerReportInvalid  Kind = "SCANNER_REPORT_INVALID"
	KindRiskRejected          Kind = "RISK_REJECTED"
	KindUpstreamTimeout       Kind = "UPSTREAM_TIMEOUT"
	KindUpstreamUnavailable   Kind = "UPSTREAM_UNAVAILABLE"
	KindUpstreamRejected      Kind = "UPSTREAM_REJECTED"
	KindInternal              Kind = "INTERNAL"
)

var defaultCodes = map[Kind]int{
	KindValidation:            http.StatusBadRequest,
	KindSessionNotFound:       http.StatusNotFound,
	KindSessionConflict:       http.StatusConflict,
	KindScannerProcessFailure: http.StatusBadGateway,
	KindScannerReportMissing:  http.StatusBadGateway,
	KindScannerReportInvalid:  http.StatusBadGateway,
	KindRiskRejected:          http.StatusBadRequest,
	KindUpstreamTimeout:       http.StatusGatewayTimeout,
	KindUpstreamUnavailable:   http.StatusServiceUnavailable,
	KindUpstreamRejected:      http.StatusBadGateway,
	KindInternal:              http.StatusInternalServerError,
}

// Error is the domain error carried from every component up to the HTTP boundary.
type Error struct {
	Kind    Kind
	Code    int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New builds an error of the given kind with the kind's default status code.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Code: codeFor(kind), Message: message}
}

// Wrap is New with an underlying cause.
func Wrap(kind Kind, err error, message string) *Error {
	return &Error{Kind: kind, Code: codeFor(kind), Message: message, Err: err}
}

func codeFor(kind Kind) int {
	if code, ok := defaultCodes[kind]; ok {
		return code
	}
	return http.StatusInternalServerError
}

func Validation(message string) *Error {
	return New(KindValidation, message)
}

func InvalidSessionID(id string, err error) *Error {
	return Wrap(KindValidation, err, fmt.Sprintf("invalid session id %q", id))
}

func SessionNotFound(id string) *Error {
	return New(KindSessionNotFound, fmt.Sprintf("session %s not found", id))
}

func SessionConflict(id, reason string) *Error {
	return New(KindSessionConflict, fmt.Sprintf("session %s: %s", id, reason))
}

func ScannerProcessFailure(err error) *Error {
	return Wrap(KindScannerProcessFailure, err, "security scanner failed")
}

// ScannerReportMissing carries no path; messages reach clients verbatim.
func ScannerReportMissing() *Error {
	return New(KindScannerReportMissing, "security scanner produced no report")
}

func ScannerReportInvalid(err error) *Error {
	return Wrap(KindScannerReportInvalid, err, "security scanner produced an unreadable report")
}

// RiskRejected describes a rejection by the security gate. It is a business
// outcome sent alongside the report, never returned as an error.
func RiskRejected() *Error {
	return New(KindRiskRejected, "Rejected file")
}

func UpstreamTimeout(err error) *Error {
	return Wrap(KindUpstreamTimeout, err, "AI service too slow, retry with a smaller document")
}

func UpstreamUnavailable(err error) *Error {
	return Wrap(KindUpstreamUnavailable, err, "AI service is not reachable")
}

// UpstreamRejected keeps the collaborator's own status and message.
func UpstreamRejected(status int, detail string) *Error {
	if status < 400 || status > 599 {
		status = http.StatusBadGateway
	}
	return &Error{Kind: KindUpstreamRejected, Code: status, Message: detail}
}

func Internal(err error) *Error {
	return Wrap(KindInternal, err, "internal server error")
}

// As extracts the domain error from a chain.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// KindOf reports the kind of err, or KindInternal for anything unclassified.
func KindOf(err error) Kind {
	if appErr, ok := As(err); ok {
		return appErr.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
