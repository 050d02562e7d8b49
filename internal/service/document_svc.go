package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/aswithabukka/LLM-AI-Teaching-Assistant-RAG/internal/model"
)

var ErrUnsupportedFileType = errors.New("unsupported file type")

// DocumentStore is the slice of the document repository the processing
// pipeline needs.
type DocumentStore interface {
	Create(ctx context.Context, doc *model.Document) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Document, error)
	Update(ctx context.Context, doc *model.Document) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.DocumentStatus, errorMsg string) error
	Delete(ctx context.Context, id uuid.UUID) error
	SavePages(ctx context.Context, pages []model.DocumentPage) error
	DeletePages(ctx context.Context, documentID uuid.UUID) error
	SaveChunks(ctx context.Context, chunks []model.DocumentChunk) error
	DeleteChunks(ctx context.Context, documentID uuid.UUID) error
}

// DocumentService owns document upload, background processing and deletion.
// Processing runs as a detached goroutine so uploads return immediately.
type DocumentService struct {
	store       DocumentStore
	extractor   PageExtractor
	chunker     *Chunker
	embedder    Embedder
	index       VectorIndex
	storagePath string
}

func NewDocumentService(
	store DocumentStore,
	extractor PageExtractor,
	chunker *Chunker,
	embedder Embedder,
	index VectorIndex,
	storagePath string,
) *DocumentService {
	return &DocumentService{
		store:       store,
		extractor:   extractor,
		chunker:     chunker,
		embedder:    embedder,
		index:       index,
		storagePath: storagePath,
	}
}

// Upload stores the file under <storage>/<course>/<doc>/<name>, creates the
// pending document row and kicks off processing in the background.
func (s *DocumentService) Upload(ctx context.Context, courseID uuid.UUID, header *multipart.FileHeader) (*model.Document, error) {
	fileType := strings.TrimPrefix(strings.ToLower(filepath.Ext(header.Filename)), ".")
	if !s.extractor.Supports(fileType) {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFileType, fileType)
	}

	doc := &model.Document{
		CourseID:         courseID,
		FileName:         filepath.Base(header.Filename),
		OriginalFileName: header.Filename,
		FileType:         fileType,
		FileSize:         header.Size,
		Status:           model.DocumentStatusPending,
	}
	doc.ID = uuid.New()

	dir := filepath.Join(s.storagePath, courseID.String(), doc.ID.String())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	doc.StoragePath = filepath.Join(dir, doc.FileName)

	if err := s.saveUpload(header, doc.StoragePath); err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, doc); err != nil {
		os.Remove(doc.StoragePath)
		return nil, fmt.Errorf("create document: %w", err)
	}

	go s.runProcessing(doc.ID)
	return doc, nil
}

func (s *DocumentService) saveUpload(header *multipart.FileHeader, dst string) error {
	src, err := header.Open()
	if err != nil {
		return fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, src); err != nil {
		return fmt.Errorf("write %s: %w", dst, err)
	}
	return nil
}

// Reprocess re-runs extraction and indexing for an existing document.
func (s *DocumentService) Reprocess(ctx context.Context, documentID uuid.UUID) error {
	doc, err := s.store.FindByID(ctx, documentID)
	if err != nil {
		return err
	}
	go s.runProcessing(doc.ID)
	return nil
}

func (s *DocumentService) runProcessing(documentID uuid.UUID) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	if err := s.Process(ctx, documentID); err != nil {
		log.Printf("document %s processing failed: %v", documentID, err)
	}
}

// Process runs the full pipeline for one document: extract pages, chunk,
// purge the document's previous chunks and vectors, persist the new chunks
// and index their embeddings. Zero extracted chunks marks the document
// failed; unavailable embeddings leave it completed but unindexed, where
// keyword fallback retrieval still serves it.
func (s *DocumentService) Process(ctx context.Context, documentID uuid.UUID) error {
	doc, err := s.store.FindByID(ctx, documentID)
	if err != nil {
		return fmt.Errorf("load document: %w", err)
	}
	if err := s.store.UpdateStatus(ctx, doc.ID, model.DocumentStatusProcessing, ""); err != nil {
		return fmt.Errorf("mark processing: %w", err)
	}

	pages, err := s.extractor.Extract(ctx, doc.StoragePath, doc.FileType)
	if err != nil {
		s.markFailed(ctx, doc.ID, fmt.Sprintf("page extraction failed: %v", err))
		return err
	}

	if err := s.store.DeletePages(ctx, doc.ID); err != nil {
		return fmt.Errorf("purge pages: %w", err)
	}
	pageRows := make([]model.DocumentPage, 0, len(pages))
	for _, p := range pages {
		pageRows = append(pageRows, model.DocumentPage{
			DocumentID: doc.ID,
			PageNumber: p.PageNumber,
			Text:       p.Text,
		})
	}
	if err := s.store.SavePages(ctx, pageRows); err != nil {
		return fmt.Errorf("save pages: %w", err)
	}

	drafts := s.chunker.Split(pages)
	if len(drafts) == 0 {
		s.markFailed(ctx, doc.ID, "no text content could be extracted from the document")
		return nil
	}

	if err := s.store.DeleteChunks(ctx, doc.ID); err != nil {
		return fmt.Errorf("purge chunks: %w", err)
	}
	docID := doc.ID
	if err := s.index.DeleteByFilter(ctx, VectorFilter{DocumentID: &docID}); err != nil {
		log.Printf("document %s: vector purge failed: %v", doc.ID, err)
	}

	chunks := make([]model.DocumentChunk, 0, len(drafts))
	for _, d := range drafts {
		chunks = append(chunks, model.DocumentChunk{
			DocumentID: doc.ID,
			ChunkIndex: d.ChunkIndex,
			Content:    d.Content,
			PageNumber: d.PageNumber,
			VectorID:   fmt.Sprintf("chunk_%s_%d", doc.ID, d.ChunkIndex),
		})
	}
	if err := s.store.SaveChunks(ctx, chunks); err != nil {
		return fmt.Errorf("save chunks: %w", err)
	}

	indexed := s.indexChunks(ctx, doc, chunks)

	doc.Status = model.DocumentStatusCompleted
	doc.IsProcessed = true
	doc.IsIndexed = indexed
	doc.PageCount = len(pages)
	doc.ProcessingError = ""
	now := time.Now()
	doc.ProcessedAt = &now
	if err := s.store.Update(ctx, doc); err != nil {
		return fmt.Errorf("mark completed: %w", err)
	}
	log.Printf("document %s processed: %d pages, %d chunks, indexed=%t",
		doc.ID, len(pages), len(chunks), indexed)
	return nil
}

func (s *DocumentService) indexChunks(ctx context.Context, doc *model.Document, chunks []model.DocumentChunk) bool {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	vectors := s.embedder.Embed(ctx, texts)
	if len(vectors) != len(chunks) {
		log.Printf("document %s: embeddings unavailable, leaving unindexed", doc.ID)
		return false
	}

	entries := make([]VectorEntry, len(chunks))
	for i, c := range chunks {
		entries[i] = VectorEntry{
			ID:         c.VectorID,
			Embedding:  vectors[i],
			CourseID:   doc.CourseID,
			DocumentID: doc.ID,
			ChunkIndex: c.ChunkIndex,
			PageNumber: c.PageNumber,
			Content:    c.Content,
			Source:     doc.OriginalFileName,
		}
	}
	if err := s.index.Upsert(ctx, entries); err != nil {
		log.Printf("document %s: vector upsert failed: %v", doc.ID, err)
		return false
	}
	return true
}

func (s *DocumentService) markFailed(ctx context.Context, documentID uuid.UUID, reason string) {
	if err := s.store.UpdateStatus(ctx, documentID, model.DocumentStatusFailed, reason); err != nil {
		log.Printf("document %s: could not record failure: %v", documentID, err)
	}
}

// Delete removes the document's chunks, pages, vectors, stored file and row.
func (s *DocumentService) Delete(ctx context.Context, documentID uuid.UUID) error {
	doc, err := s.store.FindByID(ctx, documentID)
	if err != nil {
		return err
	}
	if err := s.store.DeleteChunks(ctx, doc.ID); err != nil {
		return fmt.Errorf("delete chunks: %w", err)
	}
	if err := s.store.DeletePages(ctx, doc.ID); err != nil {
		return fmt.Errorf("delete pages: %w", err)
	}
	docID := doc.ID
	if err := s.index.DeleteByFilter(ctx, VectorFilter{DocumentID: &docID}); err != nil {
		log.Printf("document %s: vector cleanup failed: %v", doc.ID, err)
	}
	if doc.StoragePath != "" {
		if err := os.Remove(doc.StoragePath); err != nil && !os.IsNotExist(err) {
			log.Printf("document %s: could not remove stored file: %v", doc.ID, err)
		}
	}
	return s.store.Delete(ctx, doc.ID)
}
