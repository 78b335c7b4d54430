package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means an account, device or collection is absent.
	ErrNotFound = errors.New("not found")
	// ErrClientProtocol marks malformed or unresolvable inbound protocol payloads.
	ErrClientProtocol = errors.New("client protocol error")
	// ErrUpstreamUnavailable is recorded when a forwarded request fails. It
	// never reaches the speaker; the dispatcher falls back instead.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	// ErrStorage wraps filesystem failures on read or write.
	ErrStorage = errors.New("storage error")
)

// Protocol error codes returned in the XML error body.
const (
	CodeMissingField      = "MISSING_FIELD"
	CodeMalformedXML      = "MALFORMED_XML"
	CodeMalformedPayload  = "MALFORMED_PAYLOAD"
	CodeInvalidSource     = "INVALID_SOURCE"
	CodeSlotOutOfRange    = "SLOT_OUT_OF_RANGE"
	CodeInvalidIdentifier = "INVALID_IDENTIFIER"
)

// ProtocolError is a client-side protocol failure. It always maps to HTTP 400.
type ProtocolError struct {
	Code    string
	Message string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *ProtocolError) Unwrap() error { return ErrClientProtocol }

func NewMissingFieldError(field string) *ProtocolError {
	return &ProtocolError{Code: CodeMissingField, Message: fmt.Sprintf("missing required field %q", field)}
}

func NewMalformedXMLError(err error) *ProtocolError {
	return &ProtocolError{Code: CodeMalformedXML, Message: fmt.Sprintf("malformed xml: %v", err)}
}

func NewMalformedPayloadError(what string, err error) *ProtocolError {
	return &ProtocolError{Code: CodeMalformedPayload, Message: fmt.Sprintf("malformed %s: %v", what, err)}
}

func NewInvalidSourceError(ref string) *ProtocolError {
	return &ProtocolError{Code: CodeInvalidSource, Message: fmt.Sprintf("invalid source %s", ref)}
}

func NewSlotOutOfRangeError(slot, size int) *ProtocolError {
	return &ProtocolError{
		Code:    CodeSlotOutOfRange,
		Message: fmt.Sprintf("preset slot %d outside 1..%d", slot, size),
	}
}

func NewInvalidIdentifierError(kind, value string) *ProtocolError {
	return &ProtocolError{Code: CodeInvalidIdentifier, Message: fmt.Sprintf("invalid %s %q", kind, value)}
}
