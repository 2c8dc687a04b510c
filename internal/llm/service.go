package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"
)

const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
)

// Gateway sends a single prompt to a named model and returns the generated text.
type Gateway interface {
	Chat(ctx context.Context, model, prompt string) (string, error)
}

type Options struct {
	Provider string
	BaseURL  string
	Token    string
	Model    string
	// Timeout bounds a single generation; zero means no limit.
	Timeout time.Duration
}

type Service struct {
	llm     llms.Model
	timeout time.Duration
}

func New(opts Options) (*Service, error) {
	var (
		model llms.Model
		err   error
	)

	switch opts.Provider {
	case ProviderOllama, "":
		ollamaOpts := []ollama.Option{ollama.WithModel(opts.Model)}
		if opts.BaseURL != "" {
			ollamaOpts = append(ollamaOpts, ollama.WithServerURL(opts.BaseURL))
		}
		model, err = ollama.New(ollamaOpts...)
	case ProviderOpenAI:
		token := opts.Token
		if token == "" {
			// local OpenAI-compatible servers ignore the key but the client requires one
			token = "ollama"
		}
		openaiOpts := []openai.Option{openai.WithToken(token), openai.WithModel(opts.Model)}
		if opts.BaseURL != "" {
			openaiOpts = append(openaiOpts, openai.WithBaseURL(opts.BaseURL))
		}
		model, err = openai.New(openaiOpts...)
	default:
		return nil, fmt.Errorf("unsupported llm provider %q", opts.Provider)
	}
	if err != nil {
		return nil, err
	}

	return NewWithModel(model, opts.Timeout), nil
}

// NewWithModel wraps an already constructed langchaingo model.
func NewWithModel(model llms.Model, timeout time.Duration) *Service {
	return &Service{llm: model, timeout: timeout}
}

// Chat sends prompt as the only message of the conversation. Prior history
// is never included.
func (s *Service) Chat(ctx context.Context, model, prompt string) (string, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	messages := []llms.MessageContent{
		llms.TextParts(schema.ChatMessageTypeHuman, prompt),
	}

	var opts []llms.CallOption
	if model != "" {
		opts = append(opts, llms.WithModel(model))
	}

	resp, err := s.llm.GenerateContent(ctx, messages, opts...)
	if err != nil {
		return "", classify(model, err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", &Error{Kind: KindGateway, Model: model, Err: errors.New("model returned no choices")}
	}

	return resp.Choices[0].Content, nil
}

func classify(model string, err error) error {
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "not found") && (strings.Contains(msg, "model") || strings.Contains(msg, "pull")) {
		return &Error{Kind: KindModelUnavailable, Model: model, Err: err}
	}
	return &Error{Kind: KindGateway, Model: model, Err: err}
}
