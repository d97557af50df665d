package completion

import (
	"context"
	"strings"

	"meeting-assistant/internal/config"

	"github.com/pkg/errors"
)

// MaxTokens caps every completion the assistant asks for.
const MaxTokens = 150

var ErrEmptyCompletion = errors.New("completion returned no text")

// Completer produces a text completion for a prompt.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// CompleterFunc adapts a function to Completer.
type CompleterFunc func(ctx context.Context, prompt string) (string, error)

func (f CompleterFunc) Complete(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// New builds the completer named by cfg.CompletionProvider.
func New(ctx context.Context, cfg *config.Config) (Completer, error) {
	switch strings.ToLower(cfg.CompletionProvider) {
	case "", "openai":
		return NewOpenAI(OpenAIConfig{
			BaseURL: cfg.OpenAIBaseURL,
			APIKey:  cfg.OpenAIAPIKey,
			Model:   cfg.OpenAIModel,
		}), nil
	case "gemini":
		return NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	case "ollama":
		return NewOllama(cfg.OllamaHost, cfg.OllamaModel)
	default:
		return nil, errors.Errorf("unsupported COMPLETION_PROVIDER %q", cfg.CompletionProvider)
	}
}
