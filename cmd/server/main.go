package main

import (
	"log"

	"github.com/joho/godotenv"

	"github.com/aswithabukka/LLM-AI-Teaching-Assistant-RAG/internal/config"
	"github.com/aswithabukka/LLM-AI-Teaching-Assistant-RAG/internal/database"
	"github.com/aswithabukka/LLM-AI-Teaching-Assistant-RAG/internal/handler"
	"github.com/aswithabukka/LLM-AI-Teaching-Assistant-RAG/internal/service"
)

func main() {
	// Load .env file if exists
	godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize database
	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Run migrations
	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Optional chat-history cache
	historyCache, err := service.NewHistoryCacheFromURL(cfg.RedisURL)
	if err != nil {
		log.Printf("Chat-history cache disabled: %v", err)
	}

	// Setup router
	r := handler.SetupRouter(cfg, db, historyCache)

	// Start server
	addr := cfg.Host + ":" + cfg.Port
	log.Printf("Course QA Service starting on %s", addr)
	if err := r.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
