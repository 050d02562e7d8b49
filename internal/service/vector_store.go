package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/aswithabukka/LLM-AI-Teaching-Assistant-RAG/internal/model"
)

// VectorEntry is one (id, vector, metadata) triple written to the index.
type VectorEntry struct {
	ID         string
	Embedding  pgvector.Vector
	CourseID   uuid.UUID
	DocumentID uuid.UUID
	ChunkIndex int
	PageNumber *int
	Content    string
	Source     string
}

// VectorHit is one nearest-neighbor result with its metadata.
type VectorHit struct {
	ID         string
	Score      float64
	Content    string
	PageNumber *int
	Source     string
	DocumentID uuid.UUID
}

// VectorFilter restricts queries and deletes to a metadata subset.
type VectorFilter struct {
	CourseID   *uuid.UUID
	DocumentID *uuid.UUID
}

type VectorIndexStats struct {
	VectorCount int64 `json:"vector_count"`
	Dimension   int   `json:"dimension"`
}

// VectorIndex is the pluggable nearest-neighbor store. Implementations must
// make Upsert idempotent by vector id so a retried indexing task cannot
// duplicate vectors.
type VectorIndex interface {
	EnsureReady(ctx context.Context) error
	Upsert(ctx context.Context, entries []VectorEntry) error
	Delete(ctx context.Context, ids []string) error
	DeleteByFilter(ctx context.Context, filter VectorFilter) error
	Query(ctx context.Context, vector pgvector.Vector, topK int, filter VectorFilter) ([]VectorHit, error)
	Stats(ctx context.Context) (VectorIndexStats, error)
}

// PgVectorIndex stores vectors in a postgres table with a pgvector column and
// answers queries with cosine distance. Initialization is deferred until the
// first operation that needs the table.
type PgVectorIndex struct {
	db        *gorm.DB
	dimension int

	mu    sync.Mutex
	ready bool
}

func NewPgVectorIndex(db *gorm.DB, dimension int) *PgVectorIndex {
	if dimension == 0 {
		dimension = 1536
	}
	return &PgVectorIndex{db: db, dimension: dimension}
}

// EnsureReady is idempotent and cheap after the first success.
func (s *PgVectorIndex) EnsureReady(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ready {
		return nil
	}

	if err := s.db.WithContext(ctx).Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
		return fmt.Errorf("enable pgvector extension: %w", err)
	}
	if err := s.db.WithContext(ctx).AutoMigrate(&model.VectorRecord{}); err != nil {
		return fmt.Errorf("migrate vector table: %w", err)
	}

	s.ready = true
	return nil
}

func (s *PgVectorIndex) Upsert(ctx context.Context, entries []VectorEntry) error {
	if len(entries) == 0 {
		return nil
	}
	if err := s.EnsureReady(ctx); err != nil {
		return err
	}

	records := make([]model.VectorRecord, len(entries))
	for i, e := range entries {
		records[i] = model.VectorRecord{
			VectorID:   e.ID,
			CourseID:   e.CourseID,
			DocumentID: e.DocumentID,
			ChunkIndex: e.ChunkIndex,
			PageNumber: e.PageNumber,
			Content:    e.Content,
			Source:     e.Source,
			Embedding:  e.Embedding,
		}
	}

	// Existing ids are skipped, which keeps re-indexing idempotent.
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&records).Error
}

func (s *PgVectorIndex) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := s.EnsureReady(ctx); err != nil {
		return err
	}
	return s.db.WithContext(ctx).
		Where("vector_id IN ?", ids).
		Delete(&model.VectorRecord{}).Error
}

func (s *PgVectorIndex) DeleteByFilter(ctx context.Context, filter VectorFilter) error {
	if filter.CourseID == nil && filter.DocumentID == nil {
		return fmt.Errorf("refusing to delete without a filter")
	}
	if err := s.EnsureReady(ctx); err != nil {
		return err
	}

	query := s.db.WithContext(ctx)
	if filter.CourseID != nil {
		query = query.Where("course_id = ?", *filter.CourseID)
	}
	if filter.DocumentID != nil {
		query = query.Where("document_id = ?", *filter.DocumentID)
	}
	return query.Delete(&model.VectorRecord{}).Error
}

func (s *PgVectorIndex) Query(ctx context.Context, vector pgvector.Vector, topK int, filter VectorFilter) ([]VectorHit, error) {
	if topK <= 0 {
		topK = 5
	}
	if err := s.EnsureReady(ctx); err != nil {
		return nil, err
	}

	var results []struct {
		model.VectorRecord
		Distance float64 `gorm:"column:distance"`
	}

	query := s.db.WithContext(ctx).
		Table("vector_records").
		Select("*, embedding <=> ? AS distance", vector).
		Order("distance ASC").
		Limit(topK)
	if filter.CourseID != nil {
		query = query.Where("course_id = ?", *filter.CourseID)
	}
	if filter.DocumentID != nil {
		query = query.Where("document_id = ?", *filter.DocumentID)
	}

	if err := query.Find(&results).Error; err != nil {
		return nil, fmt.Errorf("vector query failed: %w", err)
	}

	hits := make([]VectorHit, 0, len(results))
	for _, r := range results {
		hits = append(hits, VectorHit{
			ID:         r.VectorID,
			Score:      1 - r.Distance, // cosine distance to similarity
			Content:    r.Content,
			PageNumber: r.PageNumber,
			Source:     r.Source,
			DocumentID: r.DocumentID,
		})
	}
	return hits, nil
}

func (s *PgVectorIndex) Stats(ctx context.Context) (VectorIndexStats, error) {
	if err := s.EnsureReady(ctx); err != nil {
		return VectorIndexStats{}, err
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&model.VectorRecord{}).Count(&count).Error; err != nil {
		return VectorIndexStats{}, err
	}
	return VectorIndexStats{VectorCount: count, Dimension: s.dimension}, nil
}
