package database

import (
	"github.com/aswithabukka/LLM-AI-Teaching-Assistant-RAG/internal/config"
	"github.com/aswithabukka/LLM-AI-Teaching-Assistant-RAG/internal/model"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func Connect(cfg *config.Config) (*gorm.DB, error) {
	logLevel := logger.Warn
	if cfg.IsDevelopment() {
		logLevel = logger.Info
	}

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, err
	}

	return db, nil
}

func AutoMigrate(db *gorm.DB) error {
	// The pgvector extension must exist before the vector column migrates.
	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
		return err
	}

	return db.AutoMigrate(
		&model.User{},
		&model.Course{},
		&model.Document{},
		&model.DocumentPage{},
		&model.DocumentChunk{},
		&model.VectorRecord{},
		&model.ChatSession{},
		&model.ChatMessage{},
		&model.Citation{},
	)
}
