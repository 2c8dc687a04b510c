package api

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/RichardoC/chatd/internal/db"
	"github.com/RichardoC/chatd/internal/llm"
	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		kind    Kind
		status  int
		message string
	}{
		{"invalid input", invalidInput("No input provided", nil), KindInvalidInput, http.StatusBadRequest, "No input provided"},
		{"store not found", fmt.Errorf("lookup: %w", db.ErrNotFound), KindNotFound, http.StatusNotFound, "Session not found"},
		{"method", methodNotAllowed(http.MethodDelete), KindMethodNotAllowed, http.StatusMethodNotAllowed, "DELETE request required"},
		{
			"model unavailable",
			&llm.Error{Kind: llm.KindModelUnavailable, Model: "llama3", Err: errors.New("not found")},
			KindModelUnavailable, http.StatusInternalServerError,
			`Please install the model first in Ollama (model "llama3")`,
		},
		{
			"gateway",
			fmt.Errorf("chat: %w", &llm.Error{Kind: llm.KindGateway, Err: errors.New("EOF")}),
			KindGateway, http.StatusInternalServerError, "EOF",
		},
		{"too large", &http.MaxBytesError{Limit: 10}, KindInvalidInput, http.StatusBadRequest, "Request body too large"},
		{"unexpected", errors.New("disk full"), KindInternal, http.StatusInternalServerError, "disk full"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			e := classify(tc.err)
			assert.Equal(t, tc.kind, e.Kind)
			assert.Equal(t, tc.status, e.Kind.Status())
			assert.Equal(t, tc.message, e.Message)
		})
	}
}
