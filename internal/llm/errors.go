package llm

import "fmt"

type Kind int

const (
	// KindGateway covers transport and backend failures.
	KindGateway Kind = iota
	// KindModelUnavailable means the backend does not have the model.
	KindModelUnavailable
)

type Error struct {
	Kind  Kind
	Model string
	Err   error
}

func (e *Error) Error() string {
	if e.Kind == KindModelUnavailable {
		return fmt.Sprintf("Please install the model first in Ollama (model %q)", e.Model)
	}
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}
