package api

import (
	"errors"
	"net/http"

	"github.com/RichardoC/chatd/internal/db"
	"github.com/RichardoC/chatd/internal/llm"
)

// Kind classifies a request failure; each kind maps to one HTTP status.
type Kind int

const (
	KindInternal Kind = iota
	KindInvalidInput
	KindNotFound
	KindMethodNotAllowed
	KindModelUnavailable
	KindGateway
)

func (k Kind) Status() int {
	switch k {
	case KindInvalidInput:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindMethodNotAllowed:
		return http.StatusMethodNotAllowed
	default:
		return http.StatusInternalServerError
	}
}

func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid_input"
	case KindNotFound:
		return "not_found"
	case KindMethodNotAllowed:
		return "method_not_allowed"
	case KindModelUnavailable:
		return "model_unavailable"
	case KindGateway:
		return "gateway_error"
	default:
		return "internal"
	}
}

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func invalidInput(message string, err error) *Error {
	return &Error{Kind: KindInvalidInput, Message: message, Err: err}
}

func notFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

func methodNotAllowed(method string) *Error {
	return &Error{Kind: KindMethodNotAllowed, Message: method + " request required"}
}

// classify maps any error reaching the handler boundary onto a Kind.
func classify(err error) *Error {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}

	var gwErr *llm.Error
	if errors.As(err, &gwErr) {
		kind := KindGateway
		if gwErr.Kind == llm.KindModelUnavailable {
			kind = KindModelUnavailable
		}
		return &Error{Kind: kind, Message: gwErr.Error(), Err: err}
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return invalidInput("Request body too large", err)
	}

	if errors.Is(err, db.ErrNotFound) {
		return &Error{Kind: KindNotFound, Message: "Session not found", Err: err}
	}

	return &Error{Kind: KindInternal, Message: err.Error(), Err: err}
}
