package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/aswithabukka/LLM-AI-Teaching-Assistant-RAG/internal/config"
	"github.com/aswithabukka/LLM-AI-Teaching-Assistant-RAG/internal/repository"
	"github.com/aswithabukka/LLM-AI-Teaching-Assistant-RAG/internal/service"
)

func SetupRouter(cfg *config.Config, db *gorm.DB, historyCache *service.HistoryCache) *gin.Engine {
	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())

	// Health check endpoints
	r.GET("/health", healthCheck)
	r.GET("/ready", readinessCheck)
	r.GET("/live", livenessCheck)

	// Root endpoint
	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"service":      "Course QA Service",
			"version":      "1.0.0",
			"status":       "running",
			"health_check": "/health",
		})
	})

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	documentRepo := repository.NewDocumentRepository(db)
	chatRepo := repository.NewChatRepository(db)

	// Initialize provider clients
	embeddingSvc := service.NewEmbeddingService(
		cfg.EmbeddingAPIKey,
		cfg.EmbeddingBaseURL,
		cfg.EmbeddingModel,
		cfg.EmbeddingDimensions,
	)
	llmSvc := service.NewLLMService(cfg.LLMAPIKey, cfg.LLMBaseURL, cfg.LLMModel)
	rerankerSvc := service.NewRerankerService(cfg.RerankAPIKey, cfg.RerankBaseURL, cfg.RerankModel)

	// Initialize pipeline
	vectorIndex := service.NewPgVectorIndex(db, cfg.EmbeddingDimensions)
	retriever := service.NewRetriever(embeddingSvc, vectorIndex, documentRepo, cfg.TopKRetrieval)
	synthesizer := service.NewAnswerSynthesizer(llmSvc)
	chatSvc := service.NewChatService(
		chatRepo, documentRepo, retriever, rerankerSvc, synthesizer,
		historyCache, cfg.TopKRetrieval, cfg.TopNRerank,
	)
	documentSvc := service.NewDocumentService(
		documentRepo, service.NewTextExtractor(),
		service.NewChunker(cfg.ChunkSize, cfg.ChunkOverlap),
		embeddingSvc, vectorIndex, cfg.StoragePath,
	)
	quizSvc := service.NewQuizService(documentRepo, llmSvc)

	// Initialize handlers
	questionHandler := NewQuestionHandler(chatSvc)
	chatHandler := NewChatHandler(chatRepo)
	courseHandler := NewCourseHandler(courseRepo)
	documentHandler := NewDocumentHandler(documentSvc, documentRepo, courseRepo, cfg.MaxUploadSize)
	quizHandler := NewQuizHandler(quizSvc)

	// API v1
	v1 := r.Group("/v1")
	v1.Use(AuthRequired(userRepo))
	{
		v1.POST("/questions/ask", questionHandler.Ask)

		sessions := v1.Group("/chat-sessions")
		{
			sessions.GET("", chatHandler.ListSessions)
			sessions.GET("/:id/messages", chatHandler.ListMessages)
			sessions.DELETE("/:id", chatHandler.DeleteSession)
		}

		courses := v1.Group("/courses")
		{
			courses.GET("", courseHandler.List)
			courses.POST("", courseHandler.Create)
			courses.GET("/:id", courseHandler.Get)
			courses.PUT("/:id", courseHandler.Update)
			courses.DELETE("/:id", courseHandler.Delete)
			courses.POST("/:id/documents", documentHandler.Upload)
			courses.GET("/:id/documents", documentHandler.ListByCourse)
		}

		documents := v1.Group("/documents")
		{
			documents.GET("/:id", documentHandler.Get)
			documents.GET("/:id/pages", documentHandler.GetPages)
			documents.DELETE("/:id", documentHandler.Delete)
			documents.POST("/:id/reprocess", documentHandler.Reprocess)
		}

		v1.POST("/quiz/generate", quizHandler.Generate)

		v1.GET("/vector-stats", func(c *gin.Context) {
			stats, err := vectorIndex.Stats(c.Request.Context())
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusOK, stats)
		})
	}

	return r
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "course-qa",
	})
}

func readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
	})
}

func livenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "alive",
	})
}
