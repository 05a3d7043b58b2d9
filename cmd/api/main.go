package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/nhattan2005/AI-Job-Board-sub001/internal/config"
	"github.com/nhattan2005/AI-Job-Board-sub001/internal/errs"
	"github.com/nhattan2005/AI-Job-Board-sub001/internal/handlers"
	"github.com/nhattan2005/AI-Job-Board-sub001/internal/repositories"
	"github.com/nhattan2005/AI-Job-Board-sub001/internal/services"
)

func main() {
	// Load configuration
	cfg := config.Load()
	log.Println("✅ Config loaded successfully")

	// Initialize database
	db, err := config.InitDatabase(cfg)
	if err != nil {
		log.Fatalf("❌ Failed to initialize database: %v", err)
	}

	// Initialize repositories
	jobRepo := repositories.NewJobRepository(db)
	sessionRepo := repositories.NewSessionRepository(db)
	log.Println("✅ Repositories initialized successfully")

	// Initialize services
	storageService := services.NewStorageService(cfg.Storage.UploadPath)
	if err := storageService.EnsureUploadDir(); err != nil {
		log.Fatalf("❌ Failed to create upload directory: %v", err)
	}

	extractor := services.NewTextExtractor()
	log.Println("✅ Services initialized successfully")

	// Initialize Gemini AI
	ctx := context.Background()
	geminiService, err := services.NewGeminiService(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model, cfg.Gemini.EmbedModel)
	if err != nil {
		log.Fatalf("❌ Failed to initialize Gemini AI: %v", err)
	}
	log.Println("✅ Gemini AI initialized successfully")

	// Initialize job vector store
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
		log.Fatalf("❌ Failed to initialize Qdrant collection: %v", err)
	}
	log.Println("✅ Qdrant initialized successfully")

	// Initialize core services
	matcher := services.NewMatcherService(geminiService, vectorStore, cfg.Gemini.EmbedDimensions)
	tailor := services.NewTailoringService(geminiService)
	interviews := services.NewInterviewService(sessionRepo, geminiService, services.InterviewOptions{
		MaxQuestions:        cfg.Interview.MaxQuestions,
		StartCooldown:       cfg.Interview.StartCooldown,
		GenerateTimeout:     cfg.Interview.GenerateTimeout,
		ContinuationTimeout: cfg.Interview.ContinuationTimeout,
	})
	log.Println("✅ Core services initialized")

	// Start session janitor
	janitor := services.NewSessionJanitor(sessionRepo, cfg.Interview.IdleSessionTTL, cfg.Interview.SweepInterval)
	janitor.Start()

	// Initialize handlers
	aiHandler := handlers.NewAIHandler(jobRepo, storageService, extractor, matcher, tailor, cfg.Storage.MaxFileSize)
	interviewHandler := handlers.NewInterviewHandler(interviews, jobRepo, storageService, extractor, cfg.Storage.MaxFileSize)
	log.Println("✅ Handlers initialized")

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "AI Job Board API",
		ReadTimeout:  90 * time.Second,
		WriteTimeout: 90 * time.Second,
		BodyLimit:    int(cfg.Storage.MaxFileSize),
		ErrorHandler: errorHandler,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
		TimeFormat: "2006-01-02 15:04:05",
	}))

	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-User-ID",
	}))

	// Routes
	api := app.Group("/api")

	// Health check
	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now(),
		})
	})

	ai := api.Group("/ai")
	ai.Post("/match", aiHandler.HandleMatch)
	ai.Post("/tailor-cv", aiHandler.HandleTailorCV)

	interview := api.Group("/mock-interview")
	interview.Post("/start", interviewHandler.HandleStart)
	interview.Post("/start-practice", interviewHandler.HandleStartPractice)
	interview.Post("/chat", interviewHandler.HandleChat)
	interview.Post("/end", interviewHandler.HandleEnd)
	interview.Get("/session/:id", interviewHandler.HandleGetSession)

	// Root route
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "AI Job Board API",
			"version": "1.0.0",
			"endpoints": []string{
				"POST /api/ai/match",
				"POST /api/ai/tailor-cv",
				"POST /api/mock-interview/start",
				"POST /api/mock-interview/start-practice",
				"POST /api/mock-interview/chat",
				"POST /api/mock-interview/end",
				"GET /api/mock-interview/session/:id",
			},
		})
	})

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("\n🛑 Shutting down server...")
		janitor.Stop()
		if err := app.Shutdown(); err != nil {
			log.Printf("❌ Server forced to shutdown: %v", err)
		}
	}()

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	log.Printf("🚀 Server starting on %s\n", addr)

	if err := app.Listen(addr); err != nil {
		log.Fatalf("❌ Failed to start server: %v", err)
	}
}

// errorHandler maps classified errors to their HTTP status and a structured
// JSON body. Unclassified errors never leak details to the client.
func errorHandler(c *fiber.Ctx, err error) error {
	var appErr *errs.Error
	if errors.As(err, &appErr) {
		return c.Status(errs.HTTPStatus(appErr.Kind)).JSON(fiber.Map{
			"error":   appErr.Message,
			"code":    string(appErr.Kind),
			"details": detailsOf(appErr),
		})
	}

	code := fiber.StatusInternalServerError
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		code = fiberErr.Code
		return c.Status(code).JSON(fiber.Map{
			"error": fiberErr.Message,
			"code":  code,
		})
	}

	log.Printf("❌ Unhandled error: %v", err)
	return c.Status(code).JSON(fiber.Map{
		"error": "internal server error",
		"code":  code,
	})
}

func detailsOf(appErr *errs.Error) string {
	if appErr.Err != nil {
		return appErr.Err.Error()
	}
	return ""
}
