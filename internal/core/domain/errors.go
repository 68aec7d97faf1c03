package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound             = errors.New("not found")
	ErrInvalidInput         = errors.New("invalid input")
	ErrTemporary            = errors.New("temporary failure")
	ErrQuotaExhausted       = errors.New("quota exhausted")
	ErrMalformedResponse    = errors.New("malformed model response")
	ErrSizeLimit            = errors.New("file exceeds size limit")
	ErrIngestionTimeout     = errors.New("remote processing timed out")
	ErrProcessingFailed     = errors.New("remote processing failed")
	ErrConfirmationRequired = errors.New("confirmation required")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

// ParseError reports a model response that could not be decoded into the
// expected shape. Head and Tail hold short snippets of the raw text so that a
// response cut off by the output limit can be told apart from bad content.
type ParseError struct {
	Stage     string
	Length    int
	Head      string
	Tail      string
	Truncated bool
	Err       error
}

const parseSnippetLen = 120

func NewParseError(stage string, raw []byte, truncated bool, err error) *ParseError {
	text := string(raw)
	head, tail := text, ""
	if len(text) > parseSnippetLen {
		head = text[:parseSnippetLen]
		tail = text[len(text)-parseSnippetLen:]
	}
	return &ParseError{
		Stage:     stage,
		Length:    len(raw),
		Head:      head,
		Tail:      tail,
		Truncated: truncated,
		Err:       err,
	}
}

func (e *ParseError) Error() string {
	reason := "malformed content"
	if e.Truncated {
		reason = "truncated output"
	}
	return fmt.Sprintf("parse %s response (%s, %d bytes, head=%q, tail=%q): %v",
		e.Stage, reason, e.Length, e.Head, e.Tail, e.Err)
}

func (e *ParseError) Unwrap() []error {
	return []error{ErrMalformedResponse, e.Err}
}
