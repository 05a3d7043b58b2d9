package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"google.golang.org/genai"

	"github.com/nhattan2005/AI-Job-Board-sub001/internal/errs"
	"github.com/nhattan2005/AI-Job-Board-sub001/internal/models"
)

// embedInputLimit is the rough character budget for a single embedding call.
// Longer texts are chunked and mean-pooled.
const embedInputLimit = 8000

// Embedder produces tagged embedding vectors for arbitrary text.
type Embedder interface {
	GenerateEmbedding(ctx context.Context, text string) (models.EmbeddingVector, error)
	EmbedModel() string
}

// TextGenerator is the generative side of the AI adapter.
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string, temperature float32) (string, error)
	GenerateConversation(ctx context.Context, system string, history []models.Turn, temperature float32) (string, error)
}

type GeminiService interface {
	Embedder
	TextGenerator
}

type geminiService struct {
	client     *genai.Client
	modelName  string
	embedModel string
	chunker    TextChunker
}

func NewGeminiService(ctx context.Context, apiKey, model, embedModel string) (GeminiService, error) {
	if apiKey == "" {
		return nil, errs.New(errs.KindAccessDenied, "gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &geminiService{
		client:     client,
		modelName:  model,
		embedModel: embedModel,
		chunker:    NewTextChunker(),
	}, nil
}

func (g *geminiService) EmbedModel() string {
	return g.embedModel
}

// GenerateEmbedding implements Embedder. Texts over the input budget are
// chunked and the chunk vectors averaged into a single vector.
func (g *geminiService) GenerateEmbedding(ctx context.Context, text string) (models.EmbeddingVector, error) {
	if len(text) <= embedInputLimit {
		values, err := g.embedOnce(ctx, text)
		if err != nil {
			return models.EmbeddingVector{}, err
		}
		return models.EmbeddingVector{Values: values, Model: g.embedModel}, nil
	}

	chunks := g.chunker.ChunkText(text, embedInputLimit)
	log.Printf("📄 Text exceeds embedding budget, mean-pooling %d chunks", len(chunks))

	var pooled []float32
	embedded := 0
	for _, chunk := range chunks {
		values, err := g.embedOnce(ctx, chunk)
		if err != nil {
			return models.EmbeddingVector{}, err
		}
		if pooled == nil {
			pooled = make([]float32, len(values))
		}
		if len(values) != len(pooled) {
			log.Printf("⚠️  Chunk embedding dimension mismatch: got %d, want %d", len(values), len(pooled))
			continue
		}
		for i, v := range values {
			pooled[i] += v
		}
		embedded++
	}

	if embedded == 0 {
		return models.EmbeddingVector{}, errs.New(errs.KindInternal, "no chunks could be embedded")
	}
	for i := range pooled {
		pooled[i] /= float32(embedded)
	}

	return models.EmbeddingVector{Values: pooled, Model: g.embedModel}, nil
}

func (g *geminiService) embedOnce(ctx context.Context, text string) ([]float32, error) {
	result, err := g.client.Models.EmbedContent(ctx, g.embedModel, genai.Text(text), nil)
	if err != nil {
		return nil, classifyGenAIError("failed to generate embedding", err)
	}

	if result == nil || len(result.Embeddings) == 0 {
		return nil, errs.New(errs.KindInternal, "empty embedding result")
	}

	return result.Embeddings[0].Values, nil
}

// GenerateText implements TextGenerator.
func (g *geminiService) GenerateText(ctx context.Context, prompt string, temperature float32) (string, error) {
	config := &genai.GenerateContentConfig{
		Temperature:     &temperature,
		MaxOutputTokens: 4096,
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.modelName, genai.Text(prompt), config)
	if err != nil {
		return "", classifyGenAIError("failed to generate text", err)
	}

	return extractResponseText(resp)
}

// GenerateConversation implements TextGenerator. The transcript is replayed
// as alternating user/model contents so the model keeps conversational state.
func (g *geminiService) GenerateConversation(ctx context.Context, system string, history []models.Turn, temperature float32) (string, error) {
	config := &genai.GenerateContentConfig{
		Temperature:     &temperature,
		MaxOutputTokens: 4096,
	}
	if system != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: system}},
		}
	}

	contents := make([]*genai.Content, 0, len(history))
	for _, turn := range history {
		role := genai.RoleUser
		if turn.Role == models.RoleInterviewer {
			role = genai.RoleModel
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: turn.Text}},
		})
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.modelName, contents, config)
	if err != nil {
		return "", classifyGenAIError("failed to generate conversation turn", err)
	}

	return extractResponseText(resp)
}

func extractResponseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", errs.New(errs.KindInternal, "no response generated (nil response)")
	}

	text := resp.Text()
	if text == "" {
		return "", errs.New(errs.KindInternal, "no text content in response")
	}

	return text, nil
}

// classifyGenAIError folds Gemini API failures into the error taxonomy so
// handlers can tell retryable rate limits apart from fatal credential issues.
func classifyGenAIError(message string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return errs.Wrap(errs.KindUpstreamTimeout, message, err)
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case 429:
			return errs.Wrap(errs.KindQuotaExceeded, message, err)
		case 401, 403:
			return errs.Wrap(errs.KindAccessDenied, message, err)
		}
	}

	return fmt.Errorf("%s: %w", message, err)
}
