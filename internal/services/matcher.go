package services

import (
	"context"
	"log"
	"math"
	"strings"

	"github.com/nhattan2005/AI-Job-Board-sub001/internal/errs"
	"github.com/nhattan2005/AI-Job-Board-sub001/internal/models"
)

// MatcherService scores how well a CV fits a job description on a 0-100 scale.
type MatcherService interface {
	ComputeMatchScore(ctx context.Context, jobText, cvText string) (float64, error)
	ComputeMatchScoreForJob(ctx context.Context, job *models.Job, cvText string) (float64, error)
}

type matcherService struct {
	embedder     Embedder
	vectorStore  JobVectorStore
	expectedDims int
}

func NewMatcherService(embedder Embedder, vectorStore JobVectorStore, expectedDims int) MatcherService {
	return &matcherService{
		embedder:     embedder,
		vectorStore:  vectorStore,
		expectedDims: expectedDims,
	}
}

// ComputeMatchScore implements MatcherService.
func (m *matcherService) ComputeMatchScore(ctx context.Context, jobText, cvText string) (float64, error) {
	jobText = strings.TrimSpace(jobText)
	cvText = strings.TrimSpace(cvText)
	if jobText == "" {
		return 0, errs.New(errs.KindInvalidInput, "job description must not be empty")
	}
	if cvText == "" {
		return 0, errs.New(errs.KindInvalidInput, "cv text must not be empty")
	}

	jobVec, err := m.embedder.GenerateEmbedding(ctx, jobText)
	if err != nil {
		return 0, err
	}

	cvVec, err := m.embedder.GenerateEmbedding(ctx, cvText)
	if err != nil {
		return 0, err
	}

	return m.score(jobVec, cvVec), nil
}

// ComputeMatchScoreForJob implements MatcherService. For posted jobs the job
// vector is served from the qdrant cache when one exists for the current
// embedding model; the CV is always embedded fresh.
func (m *matcherService) ComputeMatchScoreForJob(ctx context.Context, job *models.Job, cvText string) (float64, error) {
	cvText = strings.TrimSpace(cvText)
	if cvText == "" {
		return 0, errs.New(errs.KindInvalidInput, "cv text must not be empty")
	}

	jobVec, err := m.jobVector(ctx, job)
	if err != nil {
		return 0, err
	}

	cvVec, err := m.embedder.GenerateEmbedding(ctx, cvText)
	if err != nil {
		return 0, err
	}

	return m.score(jobVec, cvVec), nil
}

func (m *matcherService) jobVector(ctx context.Context, job *models.Job) (models.EmbeddingVector, error) {
	if m.vectorStore != nil {
		cached, found, err := m.vectorStore.FetchJobVector(ctx, job.ID, m.embedder.EmbedModel())
		if err != nil {
			log.Printf("⚠️  Job vector cache lookup failed for %s: %v", job.ID, err)
		} else if found {
			return cached, nil
		}
	}

	vec, err := m.embedder.GenerateEmbedding(ctx, job.MatchText())
	if err != nil {
		return models.EmbeddingVector{}, err
	}

	if m.vectorStore != nil {
		if err := m.vectorStore.StoreJobVector(ctx, job.ID, job.Title, vec); err != nil {
			log.Printf("⚠️  Failed to cache job vector for %s: %v", job.ID, err)
		}
	}

	return vec, nil
}

// score turns two embedding vectors into a 0-100 match percentage.
// Dimension and model-tag discrepancies are data-quality signals, not hard
// failures: they are logged and the comparison proceeds.
func (m *matcherService) score(a, b models.EmbeddingVector) float64 {
	if m.expectedDims > 0 {
		if a.Dimensions() != m.expectedDims {
			log.Printf("⚠️  Job embedding has %d dimensions, expected %d", a.Dimensions(), m.expectedDims)
		}
		if b.Dimensions() != m.expectedDims {
			log.Printf("⚠️  CV embedding has %d dimensions, expected %d", b.Dimensions(), m.expectedDims)
		}
	}
	if a.Model != "" && b.Model != "" && a.Model != b.Model {
		log.Printf("⚠️  Comparing embeddings from different models: %s vs %s", a.Model, b.Model)
	}

	return MatchScore(a.Values, b.Values)
}

// MatchScore rescales cosine similarity to [0, 100], rounded to two decimals.
// Negative similarity clamps to 0: anti-correlated texts are simply a
// non-match, not a negative one.
func MatchScore(a, b []float32) float64 {
	return math.Round(math.Max(0, CosineSimilarity(a, b))*100*100) / 100
}

// CosineSimilarity returns dot(a,b) / (|a|*|b|), or 0 when either vector has
// zero magnitude. Vectors of unequal length are compared over the shorter
// prefix.
func CosineSimilarity(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}

	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
	}
	for _, v := range a {
		normA += float64(v) * float64(v)
	}
	for _, v := range b {
		normB += float64(v) * float64(v)
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
