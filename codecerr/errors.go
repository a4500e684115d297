// Package codecerr provides the structured error type shared by the call-data
// codec, the argument builder and the return-value decoder.
//
// Errors are categorized by Phase (where the error occurred) and Kind (what
// went wrong). Sentinels such as ErrCannotParse match any error of the same
// kind through errors.Is, regardless of tag or detail:
//
//	if errors.Is(err, codecerr.ErrCannotParse) { ... }
//
// Decode-phase errors are fatal: the operation that produced them returned no
// partial result and retrying with the same input cannot succeed.
package codecerr

import (
	"errors"
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred.
type Phase string

const (
	PhaseParse  Phase = "parse"  // literal text to typed value
	PhaseEncode Phase = "encode" // typed value to bytes
	PhaseDecode Phase = "decode" // bytes to typed value
)

// Kind categorizes the error.
type Kind string

const (
	KindCannotParse          Kind = "cannot_parse"
	KindMalformedInteger     Kind = "malformed_integer"
	KindTruncatedText        Kind = "truncated_text"
	KindTruncatedFixedBytes  Kind = "truncated_fixed_bytes"
	KindTruncatedBuffer      Kind = "truncated_buffer"
	KindInvalidUTF8          Kind = "invalid_utf8"
	KindInvalidAddressLength Kind = "invalid_address_length"
	KindUnknownTag           Kind = "unknown_tag"
	KindInvalidEnvelope      Kind = "invalid_envelope"
	KindTypeMismatch         Kind = "type_mismatch"
)

// Sentinels for errors.Is. They carry no phase so they match any phase.
var (
	ErrCannotParse          = &Error{Kind: KindCannotParse}
	ErrMalformedInteger     = &Error{Kind: KindMalformedInteger}
	ErrTruncatedText        = &Error{Kind: KindTruncatedText}
	ErrTruncatedFixedBytes  = &Error{Kind: KindTruncatedFixedBytes}
	ErrTruncatedBuffer      = &Error{Kind: KindTruncatedBuffer}
	ErrInvalidUTF8          = &Error{Kind: KindInvalidUTF8}
	ErrInvalidAddressLength = &Error{Kind: KindInvalidAddressLength}
	ErrUnknownTag           = &Error{Kind: KindUnknownTag}
	ErrInvalidEnvelope      = &Error{Kind: KindInvalidEnvelope}
	ErrTypeMismatch         = &Error{Kind: KindTypeMismatch}
)

// Error is the structured error type used throughout the codec.
type Error struct {
	Cause  error
	Phase  Phase
	Kind   Kind
	Tag    string // type tag being processed, if any
	Offset int    // byte offset into the decoded buffer, -1 when not applicable
	Detail string
}

// Error implements the error interface.
func (e *Error) Error() string {
	// cannot_parse keeps the short form callers print to users.
	if e.Kind == KindCannotParse && e.Detail == "" {
		if e.Cause != nil {
			return "cannot parse " + e.Tag + " (caused by: " + e.Cause.Error() + ")"
		}
		return "cannot parse " + e.Tag
	}
	// Errors rebuilt from a peer carry the peer's rendering verbatim.
	if e.Phase == "" && e.Tag == "" && e.Cause == nil && e.Detail != "" {
		return e.Detail
	}

	var b strings.Builder
	if e.Phase != "" {
		b.WriteByte('[')
		b.WriteString(string(e.Phase))
		b.WriteString("] ")
	}
	b.WriteString(string(e.Kind))

	if e.Tag != "" {
		b.WriteString(" ")
		b.WriteString(e.Tag)
	}
	if e.Offset >= 0 && e.Phase == PhaseDecode {
		fmt.Fprintf(&b, " at offset %d", e.Offset)
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}
	return b.String()
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error. A target without a phase
// matches on kind alone.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Phase != "" && t.Phase != e.Phase {
		return false
	}
	return e.Kind == t.Kind
}

// Fatal reports whether the error aborts the containing operation.
func (e *Error) Fatal() bool {
	return e.Phase == PhaseDecode
}

// Builder provides structured error construction.
type Builder struct {
	err Error
}

// New creates a new error builder.
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase:  phase,
			Kind:   kind,
			Offset: -1,
		},
	}
}

// Tag sets the type tag.
func (b *Builder) Tag(tag string) *Builder {
	b.err.Tag = tag
	return b
}

// Offset sets the byte offset.
func (b *Builder) Offset(off int) *Builder {
	b.err.Offset = off
	return b
}

// Cause sets the underlying error.
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message.
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error.
func (b *Builder) Build() *Error {
	e := b.err
	return &e
}

// CannotParse creates the error returned when literal text does not match
// the grammar of tag.
func CannotParse(tag string) *Error {
	return &Error{
		Phase:  PhaseParse,
		Kind:   KindCannotParse,
		Tag:    tag,
		Offset: -1,
	}
}

// CannotParseCause is CannotParse with an underlying reason attached.
func CannotParseCause(tag string, cause error) *Error {
	e := CannotParse(tag)
	e.Cause = cause
	return e
}

// UnknownTag creates the strict-mode error for a tag outside the vocabulary.
func UnknownTag(phase Phase, tag string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnknownTag,
		Tag:    tag,
		Offset: -1,
		Detail: "tag is not part of the vocabulary",
	}
}

// TypeMismatch creates the encode error for a Go value that does not belong
// to tag.
func TypeMismatch(tag string, v any) *Error {
	return &Error{
		Phase:  PhaseEncode,
		Kind:   KindTypeMismatch,
		Tag:    tag,
		Offset: -1,
		Detail: fmt.Sprintf("unexpected Go type %T", v),
	}
}

// Truncated creates a decode error for a buffer that ended early.
func Truncated(kind Kind, offset, need, have int) *Error {
	return &Error{
		Phase:  PhaseDecode,
		Kind:   kind,
		Offset: offset,
		Detail: fmt.Sprintf("need %d bytes, %d remaining", need, have),
	}
}

// InvalidUTF8 creates an invalid UTF-8 error.
func InvalidUTF8(offset int, data []byte) *Error {
	preview := data
	if len(preview) > 32 {
		preview = preview[:32]
	}
	return &Error{
		Phase:  PhaseDecode,
		Kind:   KindInvalidUTF8,
		Offset: offset,
		Detail: fmt.Sprintf("invalid UTF-8 sequence: %x", preview),
	}
}

// KindOf returns the kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// WithTag returns err with its tag set when err is an *Error without one.
// Other errors are returned unchanged.
func WithTag(err error, tag string) error {
	e, ok := err.(*Error)
	if !ok || e.Tag != "" {
		return err
	}
	c := *e
	c.Tag = tag
	return &c
}

// Remote rebuilds an error received from a peer. Unknown kinds are kept as-is
// so transport kinds (timeout, unavailable) survive the round trip.
func Remote(kind, msg string) *Error {
	return &Error{
		Kind:   Kind(kind),
		Offset: -1,
		Detail: msg,
	}
}
