package relay

import (
	"errors"
	"fmt"
)

// Kind classifies pipeline failures
type Kind int

const (
	KindUnknown Kind = iota
	// KindValidation is a malformed or missing caller input
	KindValidation
	// KindUpstream is a third-party API, network or upstream payload failure
	KindUpstream
	// KindEnrichment is a contained metadata failure; it never fails a request
	KindEnrichment
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindUpstream:
		return "upstream"
	case KindEnrichment:
		return "enrichment"
	default:
		return "unknown"
	}
}

// Caller-facing messages
const (
	MsgQueryRequired      = "Query parameter 'query' is required"
	MsgSongIDRequired     = "Song ID is required"
	MsgNoDownloadURLs     = "No download URLs available"
	MsgQualityUnavailable = "Failed to get download URL for specified quality"
	MsgUpstreamFailed     = "Failed to fetch data from the API"
	MsgUpstreamMalformed  = "Upstream returned malformed song data"
)

// Error is a classified pipeline failure. Message is safe to show to callers;
// Err holds the underlying cause for logs.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ValidationError builds a KindValidation error
func ValidationError(message string, cause error) *Error {
	return &Error{Kind: KindValidation, Message: message, Err: cause}
}

// UpstreamError builds a KindUpstream error
func UpstreamError(message string, cause error) *Error {
	return &Error{Kind: KindUpstream, Message: message, Err: cause}
}

// EnrichmentFailure builds a KindEnrichment error
func EnrichmentFailure(cause error) *Error {
	return &Error{Kind: KindEnrichment, Message: "Failed to add metadata to the file", Err: cause}
}

// KindOf returns the kind of err, or KindUnknown for unclassified errors
func KindOf(err error) Kind {
	var relayErr *Error
	if errors.As(err, &relayErr) {
		return relayErr.Kind
	}
	return KindUnknown
}
