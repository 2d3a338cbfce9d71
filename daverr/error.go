// Package daverr defines the closed set of error conditions surfaced by the
// davsync packages. Every failure crossing a package boundary is an *Error
// carrying one Kind plus the fields needed to act on it; transport and codec
// internals never leak their own error types to callers.
package daverr

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/samber/mo"
)

// Kind discriminates the error variants.
type Kind int

const (
	KindNetworkFailure Kind = iota
	KindInvalidResponse
	KindParsingError
	KindAuthenticationRequired
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindConflict
	KindPreconditionFailed
	KindServerError
	KindUnsupportedOperation
	KindInvalidData
	KindSyncTokenExpired
)

func (k Kind) String() string {
	switch k {
	case KindNetworkFailure:
		return "network failure"
	case KindInvalidResponse:
		return "invalid response"
	case KindParsingError:
		return "parsing error"
	case KindAuthenticationRequired:
		return "authentication required"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not found"
	case KindConflict:
		return "conflict"
	case KindPreconditionFailed:
		return "precondition failed"
	case KindServerError:
		return "server error"
	case KindUnsupportedOperation:
		return "unsupported operation"
	case KindInvalidData:
		return "invalid data"
	case KindSyncTokenExpired:
		return "sync token expired"
	default:
		return fmt.Sprintf("unknown kind %d", int(k))
	}
}

// maxBodySnippet bounds how much of a response body an InvalidResponse keeps.
const maxBodySnippet = 512

// Error is the one error value exchanged between davsync packages. Only the
// fields meaningful for its Kind are populated.
type Error struct {
	Kind    Kind
	Status  int    // HTTP status, for InvalidResponse and ServerError
	Message string
	ETag    mo.Option[string] // server-reported ETag, for PreconditionFailed
	Cause   error             // underlying transport error, for NetworkFailure
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	if e.Status != 0 {
		fmt.Fprintf(&b, " (status %d)", e.Status)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Cause }

// Is implements the errors.Is contract using Equal, so
// errors.Is(err, daverr.SyncTokenExpired()) works as expected.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return Equal(e, t)
}

// Equal compares two errors by variant. Two NetworkFailure values are equal
// regardless of their causes: the cause comes from the injected transport and
// is not comparable, and retry logic only needs to know that a network error
// occurred. All other kinds compare by their carried fields.
func Equal(a, b *Error) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Kind != b.Kind {
		return false
	}
	if a.Kind == KindNetworkFailure {
		return true
	}
	return a.Status == b.Status && a.Message == b.Message && a.ETag == b.ETag
}

// IsKind reports whether err is a *Error of the given kind, regardless of its
// carried fields.
func IsKind(err error, k Kind) bool {
	e, ok := err.(*Error)
	return ok && e.Kind == k
}

func NetworkFailure(cause error) *Error {
	return &Error{Kind: KindNetworkFailure, Cause: cause}
}

func InvalidResponse(status int, body string) *Error {
	if len(body) > maxBodySnippet {
		cut := maxBodySnippet
		// Back off to a rune boundary so the snippet stays valid UTF-8.
		for cut > 0 && !utf8.RuneStart(body[cut]) {
			cut--
		}
		body = body[:cut]
	}
	return &Error{Kind: KindInvalidResponse, Status: status, Message: body}
}

func Parsing(format string, args ...any) *Error {
	return &Error{Kind: KindParsingError, Message: fmt.Sprintf(format, args...)}
}

func AuthenticationRequired() *Error {
	return &Error{Kind: KindAuthenticationRequired}
}

func Unauthorized() *Error { return &Error{Kind: KindUnauthorized} }

func Forbidden() *Error { return &Error{Kind: KindForbidden} }

func NotFound() *Error { return &Error{Kind: KindNotFound} }

func Conflict(message string) *Error {
	return &Error{Kind: KindConflict, Message: message}
}

func PreconditionFailed(etag mo.Option[string]) *Error {
	return &Error{Kind: KindPreconditionFailed, ETag: etag}
}

func Server(status int, message string) *Error {
	return &Error{Kind: KindServerError, Status: status, Message: message}
}

func Unsupported(message string) *Error {
	return &Error{Kind: KindUnsupportedOperation, Message: message}
}

func InvalidData(message string) *Error {
	return &Error{Kind: KindInvalidData, Message: message}
}

func SyncTokenExpired() *Error { return &Error{Kind: KindSyncTokenExpired} }

// FromStatus maps a non-success HTTP status to its error variant.
// credentialed tells the 401 case apart: a 401 with no credentials ever
// supplied means the caller must authenticate, a 401 with credentials means
// they were rejected. Returns nil for 2xx and 207.
func FromStatus(status int, body string, credentialed bool) *Error {
	switch {
	case status >= 200 && status < 300, status == 207:
		return nil
	case status == 401:
		if !credentialed {
			return AuthenticationRequired()
		}
		return Unauthorized()
	case status == 403:
		return Forbidden()
	case status == 404:
		return NotFound()
	case status == 409:
		return Conflict(strings.TrimSpace(body))
	case status == 412:
		return PreconditionFailed(mo.None[string]())
	case status >= 500:
		return Server(status, strings.TrimSpace(body))
	default:
		return InvalidResponse(status, body)
	}
}
