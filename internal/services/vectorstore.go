package services

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strconv"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"github.com/nhattan2005/AI-Job-Board-sub001/internal/models"
)

// JobVectorStore caches job-description embeddings so repeated match
// requests against the same posting do not re-embed it. Vectors are keyed
// by (job id, embedding model): a vector produced by a different model is
// never returned.
type JobVectorStore interface {
	InitCollection() error
	StoreJobVector(ctx context.Context, jobID uuid.UUID, title string, vector models.EmbeddingVector) error
	FetchJobVector(ctx context.Context, jobID uuid.UUID, model string) (models.EmbeddingVector, bool, error)
	DeleteJobVectors(ctx context.Context, jobID uuid.UUID) error
}

type jobVectorStore struct {
	client         *qdrant.Client
	collectionName string
	vectorSize     uint64
}

func NewJobVectorStore(urlStr, apiKey, collectionName string, vectorSize int) (JobVectorStore, error) {
	// Parse URL to extract host, port, and TLS usage
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return nil, fmt.Errorf("invalid Qdrant URL: %w", err)
	}

	host := parsed.Hostname()
	useTLS := parsed.Scheme == "https"

	// For gRPC client, use port 6334 by default (gRPC port)
	port := 6334
	if p := parsed.Port(); p != "" {
		if v, err := strconv.Atoi(p); err == nil {
			port = v
		}
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: apiKey,
		UseTLS: useTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	return &jobVectorStore{
		client:         client,
		collectionName: collectionName,
		vectorSize:     uint64(vectorSize),
	}, nil
}

// InitCollection implements JobVectorStore.
func (s *jobVectorStore) InitCollection() error {
	ctx := context.Background()

	exists, err := s.client.CollectionExists(ctx, s.collectionName)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}

	if exists {
		log.Println("✅ Collection already exists")
		return nil
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.collectionName,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     s.vectorSize,
			Distance: qdrant.Distance_Cosine,
		}),
	})

	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	log.Printf("✅ Qdrant collection '%s' created successfully\n", s.collectionName)
	return nil
}

// pointID derives a stable point id from the job id and the embedding model,
// so re-storing the same pair overwrites instead of duplicating.
func pointID(jobID uuid.UUID, model string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(jobID.String()+"|"+model)).String()
}

// StoreJobVector implements JobVectorStore.
func (s *jobVectorStore) StoreJobVector(ctx context.Context, jobID uuid.UUID, title string, vector models.EmbeddingVector) error {
	point := &qdrant.PointStruct{
		Id:      qdrant.NewID(pointID(jobID, vector.Model)),
		Vectors: qdrant.NewVectors(vector.Values...),
		Payload: qdrant.NewValueMap(map[string]interface{}{
			"job_id": jobID.String(),
			"model":  vector.Model,
			"title":  title,
		}),
	}

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collectionName,
		Points:         []*qdrant.PointStruct{point},
	})
	if err != nil {
		return fmt.Errorf("failed to upsert job vector: %w", err)
	}

	return nil
}

// FetchJobVector implements JobVectorStore. The second return value is false
// on a cache miss.
func (s *jobVectorStore) FetchJobVector(ctx context.Context, jobID uuid.UUID, model string) (models.EmbeddingVector, bool, error) {
	points, err := s.client.Get(ctx, &qdrant.GetPoints{
		CollectionName: s.collectionName,
		Ids:            []*qdrant.PointId{qdrant.NewID(pointID(jobID, model))},
		WithVectors:    qdrant.NewWithVectors(true),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return models.EmbeddingVector{}, false, fmt.Errorf("failed to fetch job vector: %w", err)
	}

	if len(points) == 0 {
		return models.EmbeddingVector{}, false, nil
	}

	point := points[0]

	// The point id encodes the model, but verify the payload tag anyway.
	if payloadModel, ok := point.Payload["model"]; ok {
		if val, ok := payloadModel.GetKind().(*qdrant.Value_StringValue); ok && val.StringValue != model {
			log.Printf("⚠️  Cached vector for job %s was produced by model %s, want %s. Ignoring.", jobID, val.StringValue, model)
			return models.EmbeddingVector{}, false, nil
		}
	}

	vectors := point.GetVectors()
	if vectors == nil || vectors.GetVector() == nil {
		return models.EmbeddingVector{}, false, nil
	}

	return models.EmbeddingVector{
		Values: vectors.GetVector().GetData(),
		Model:  model,
	}, true, nil
}

// DeleteJobVectors implements JobVectorStore.
func (s *jobVectorStore) DeleteJobVectors(ctx context.Context, jobID uuid.UUID) error {
	filter := &qdrant.Filter{
		Must: []*qdrant.Condition{
			qdrant.NewMatch("job_id", jobID.String()),
		},
	}

	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.collectionName,
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Filter{
				Filter: filter,
			},
		},
	})

	if err != nil {
		return fmt.Errorf("failed to delete job vectors: %w", err)
	}

	return nil
}
