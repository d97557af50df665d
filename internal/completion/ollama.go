package completion

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
	"github.com/pkg/errors"
)

type Ollama struct {
	client *api.Client
	model  string
}

func NewOllama(host, model string) (*Ollama, error) {
	if model == "" {
		return nil, errors.New("model name is required")
	}
	baseURL, err := url.Parse(host)
	if err != nil {
		return nil, errors.Wrap(err, "invalid OLLAMA_HOST")
	}
	client := api.NewClient(baseURL, &http.Client{Timeout: 120 * time.Second})
	return &Ollama{client: client, model: model}, nil
}

func (o *Ollama) Complete(ctx context.Context, prompt string) (string, error) {
	stream := false
	req := &api.GenerateRequest{
		Model:  o.model,
		Prompt: prompt,
		Stream: &stream,
		Options: map[string]interface{}{
			"num_predict": MaxTokens,
		},
	}

	var sb strings.Builder
	err := o.client.Generate(ctx, req, func(resp api.GenerateResponse) error {
		sb.WriteString(resp.Response)
		return nil
	})
	if err != nil {
		return "", errors.Wrap(err, "ollama generate")
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", ErrEmptyCompletion
	}
	return text, nil
}
