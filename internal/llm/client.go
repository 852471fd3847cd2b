package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"vault-rag/internal/apperr"
	"vault-rag/internal/config"
)

const (
	temperature = 0.7
	maxTokens   = 1000
)

// Generator is the generation backend contract: a blocking call and a
// streaming variant that hands out tokens as they arrive.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	GenerateStream(ctx context.Context, prompt string, emit func(token string) error) error
}

// Client drives a chat model through langchaingo. The openai-compatible
// provider covers Groq and OpenRouter style endpoints; ollama is the local
// fallback.
type Client struct {
	model llms.Model
}

func NewClient(cfg config.LLMConfig) (*Client, error) {
	switch cfg.Provider {
	case "openai", "":
		model, err := openai.New(
			openai.WithBaseURL(cfg.BaseURL),
			openai.WithToken(strings.TrimPrefix(cfg.Key, "Bearer ")),
			openai.WithModel(cfg.Model),
		)
		if err != nil {
			return nil, fmt.Errorf("initializing chat model: %w", err)
		}
		return &Client{model: model}, nil
	case "ollama":
		model, err := ollama.New(
			ollama.WithServerURL(cfg.BaseURL),
			ollama.WithModel(cfg.Model),
		)
		if err != nil {
			return nil, fmt.Errorf("initializing ollama chat model: %w", err)
		}
		return &Client{model: model}, nil
	default:
		return nil, apperr.Validation("unknown chat provider: %s", cfg.Provider)
	}
}

func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	out, err := llms.GenerateFromSinglePrompt(ctx, c.model, prompt,
		llms.WithTemperature(temperature),
		llms.WithMaxTokens(maxTokens),
	)
	if err != nil {
		return "", apperr.Upstream("generation", err)
	}
	return out, nil
}

// GenerateStream forwards each token to emit as soon as the model produces
// it. An emit error (caller gone) cancels the generation.
func (c *Client) GenerateStream(ctx context.Context, prompt string, emit func(token string) error) error {
	_, err := llms.GenerateFromSinglePrompt(ctx, c.model, prompt,
		llms.WithTemperature(temperature),
		llms.WithMaxTokens(maxTokens),
		llms.WithStreamingFunc(func(ctx context.Context, chunk []byte) error {
			return emit(string(chunk))
		}),
	)
	if err != nil {
		log.Debug().Err(err).Msg("generation stream ended with error")
		return apperr.Upstream("generation", err)
	}
	return nil
}
