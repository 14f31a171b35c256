package ai

import (
	"context"
	"fmt"

	"lms-video-platform/internal/config"

	"github.com/google/generative-ai-go/genai"
	openai "github.com/sashabaranov/go-openai"
	"google.golang.org/api/option"
)

// EmbeddingClient produces fixed-length embedding vectors for transcript
// segments and search queries. Default provider is Google Generative AI
// (text-embedding-004); OpenAI is supported as an alternative.
type EmbeddingClient struct {
	provider string
	dim      int

	googleModel string
	google      *genai.Client

	openaiModel string
	openai      *openai.Client
}

func NewEmbeddingClient(ctx context.Context, cfg *config.Config) (*EmbeddingClient, error) {
	ec := &EmbeddingClient{
		provider:    cfg.EmbeddingsProvider,
		dim:         cfg.VectorDimensions,
		googleModel: cfg.GoogleEmbeddingsModel,
		openaiModel: cfg.OpenAIEmbeddingsModel,
	}

	switch cfg.EmbeddingsProvider {
	case "google", "":
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("missing GEMINI_API_KEY for embeddings")
		}
		client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.GeminiAPIKey))
		if err != nil {
			return nil, err
		}
		ec.google = client

	case "openai":
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("missing OPENAI_API_KEY for embeddings")
		}
		ec.openai = openai.NewClient(cfg.OpenAIAPIKey)

	default:
		return nil, fmt.Errorf("unknown embeddings provider: %s", cfg.EmbeddingsProvider)
	}

	return ec, nil
}

// Embed returns the embedding vector for the given text.
func (ec *EmbeddingClient) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("cannot embed empty text")
	}

	switch {
	case ec.google != nil:
		model := ec.google.EmbeddingModel(ec.googleModel)
		resp, err := model.EmbedContent(ctx, genai.Text(text))
		if err != nil {
			return nil, err
		}
		if resp.Embedding == nil {
			return nil, fmt.Errorf("no embedding returned")
		}
		return resp.Embedding.Values, nil

	case ec.openai != nil:
		resp, err := ec.openai.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Model: openai.EmbeddingModel(ec.openaiModel),
			Input: []string{text},
		})
		if err != nil {
			return nil, err
		}
		if len(resp.Data) == 0 {
			return nil, fmt.Errorf("no embedding data returned")
		}
		return resp.Data[0].Embedding, nil

	default:
		return nil, fmt.Errorf("embedding client not initialized")
	}
}

// Dimension returns the configured embedding vector length.
func (ec *EmbeddingClient) Dimension() int {
	return ec.dim
}

func (ec *EmbeddingClient) Close() error {
	if ec.google != nil {
		return ec.google.Close()
	}
	return nil
}
