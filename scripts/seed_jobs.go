package main

import (
	"context"
	"log"

	"github.com/nhattan2005/AI-Job-Board-sub001/internal/config"
	"github.com/nhattan2005/AI-Job-Board-sub001/internal/models"
	"github.com/nhattan2005/AI-Job-Board-sub001/internal/repositories"
	"github.com/nhattan2005/AI-Job-Board-sub001/internal/services"
)

// Seeds a few sample jobs and warms the qdrant vector cache for them, so a
// fresh environment has postings to match and interview against.
func main() {
	log.Println("🚀 Starting job seeding...")

	cfg := config.Load()

	db, err := config.InitDatabase(cfg)
	if err != nil {
		log.Fatalf("❌ Failed to initialize database: %v", err)
	}
	jobRepo := repositories.NewJobRepository(db)

	ctx := context.Background()

	geminiService, err := services.NewGeminiService(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model, cfg.Gemini.EmbedModel)
	if err != nil {
		log.Fatalf("❌ Failed to initialize Gemini: %v", err)
	}

	vectorStore, err := services.NewJobVectorStore(
		cfg.Qdrant.URL,
		cfg.Qdrant.APIKey,
		cfg.Qdrant.Collection,
		cfg.Gemini.EmbedDimensions,
	)
	if err != nil {
		log.Fatalf("❌ Failed to initialize Qdrant: %v", err)
	}

	if err := vectorStore.InitCollection(); err != nil {
		log.Fatalf("❌ Failed to initialize collection: %v", err)
	}

	jobs := []models.Job{
		{
			Title:       "Backend Engineer (Go)",
			Description: "Design and build REST APIs in Go. Work with PostgreSQL, Redis, Docker and Kubernetes. Experience with gRPC and message queues such as Kafka is a plus.",
			Company:     "Acme Logistics",
			Location:    "Ho Chi Minh City",
		},
		{
			Title:       "Frontend Developer",
			Description: "Build and maintain our React and TypeScript single-page application. Strong CSS skills and experience with state management libraries required.",
			Company:     "Brightly",
			Location:    "Remote",
		},
		{
			Title:       "Data Engineer",
			Description: "Own our batch and streaming pipelines on Spark and Kafka. Solid SQL, Python and AWS experience expected. Airflow knowledge is a bonus.",
			Company:     "Northwind Analytics",
			Location:    "Hanoi",
		},
	}

	successCount := 0
	failCount := 0

	for i := range jobs {
		job := &jobs[i]
		log.Printf("\n📄 Seeding: %s @ %s", job.Title, job.Company)

		if err := jobRepo.Create(job); err != nil {
			log.Printf("❌ Failed to create job: %v", err)
			failCount++
			continue
		}

		vec, err := geminiService.GenerateEmbedding(ctx, job.MatchText())
		if err != nil {
			log.Printf("⚠️  Failed to embed job %s: %v", job.ID, err)
			failCount++
			continue
		}

		if err := vectorStore.StoreJobVector(ctx, job.ID, job.Title, vec); err != nil {
			log.Printf("⚠️  Failed to cache vector for job %s: %v", job.ID, err)
			failCount++
			continue
		}

		log.Printf("✅ Seeded job %s", job.ID)
		successCount++
	}

	log.Printf("\n🏁 Seeding finished: %d succeeded, %d failed", successCount, failCount)
}
