package domain

import (
	"errors"
	"fmt"
)

// ErrNoSources is returned when a run is started without any source.
var ErrNoSources = errors.New("no sources configured")

// ErrNoRuns is returned by repositories that hold no finished run yet.
var ErrNoRuns = errors.New("no aggregation run stored")

// FetchErrorKind classifies fetch failures.
type FetchErrorKind string

const (
	FetchTimeout           FetchErrorKind = "timeout"
	FetchHTTPStatus        FetchErrorKind = "http_status"
	FetchConnectionRefused FetchErrorKind = "connection_refused"
	FetchBodyTooLarge      FetchErrorKind = "body_too_large"
)

// FetchError is returned by the fetcher for any failed request. Code is the
// HTTP status for FetchHTTPStatus and the byte cap for FetchBodyTooLarge.
type FetchError struct {
	Kind FetchErrorKind
	Code int
	URL  string
	Err  error
}

func (e *FetchError) Error() string {
	switch e.Kind {
	case FetchHTTPStatus:
		return fmt.Sprintf("fetch %s: http status %d", e.URL, e.Code)
	case FetchBodyTooLarge:
		return fmt.Sprintf("fetch %s: body exceeds %d bytes", e.URL, e.Code)
	default:
		if e.Err != nil {
			return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Kind, e.Err)
		}
		return fmt.Sprintf("fetch %s: %s", e.URL, e.Kind)
	}
}

func (e *FetchError) Unwrap() error { return e.Err }

// Transient reports whether a retry could succeed.
func (e *FetchError) Transient() bool {
	switch e.Kind {
	case FetchHTTPStatus:
		return e.Code == 429 || e.Code >= 500
	case FetchBodyTooLarge:
		return false
	default:
		return true
	}
}

// ExtractErrorKind classifies extraction failures.
type ExtractErrorKind string

const UnparseablePayload ExtractErrorKind = "unparseable_payload"

// ExtractError means the payload structure could not be read at all.
// A payload that parses but yields zero usable rows is not an error.
type ExtractError struct {
	Kind   ExtractErrorKind
	Parser ParserKind
	Reason string
	Err    error
}

func (e *ExtractError) Error() string {
	msg := fmt.Sprintf("extract %s: %s: %s", e.Parser, e.Kind, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ExtractError) Unwrap() error { return e.Err }

// Unparseable builds an ExtractError of kind UnparseablePayload.
func Unparseable(parser ParserKind, reason string, err error) *ExtractError {
	return &ExtractError{Kind: UnparseablePayload, Parser: parser, Reason: reason, Err: err}
}
