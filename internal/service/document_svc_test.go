package service

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"

	"github.com/aswithabukka/LLM-AI-Teaching-Assistant-RAG/internal/model"
)

type fakeDocStore struct {
	mu     sync.Mutex
	docs   map[uuid.UUID]*model.Document
	pages  map[uuid.UUID][]model.DocumentPage
	chunks map[uuid.UUID][]model.DocumentChunk

	chunkPurges int
	pagePurges  int
	deleted     []uuid.UUID
}

func newFakeDocStore() *fakeDocStore {
	return &fakeDocStore{
		docs:   make(map[uuid.UUID]*model.Document),
		pages:  make(map[uuid.UUID][]model.DocumentPage),
		chunks: make(map[uuid.UUID][]model.DocumentChunk),
	}
}

func (f *fakeDocStore) Create(ctx context.Context, doc *model.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if doc.ID == uuid.Nil {
		doc.ID = uuid.New()
	}
	copied := *doc
	f.docs[doc.ID] = &copied
	return nil
}

func (f *fakeDocStore) FindByID(ctx context.Context, id uuid.UUID) (*model.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *doc
	return &copied, nil
}

func (f *fakeDocStore) Update(ctx context.Context, doc *model.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *doc
	f.docs[doc.ID] = &copied
	return nil
}

func (f *fakeDocStore) UpdateStatus(ctx context.Context, id uuid.UUID, status model.DocumentStatus, errorMsg string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	doc.Status = status
	doc.ProcessingError = errorMsg
	return nil
}

func (f *fakeDocStore) Delete(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.docs, id)
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeDocStore) SavePages(ctx context.Context, pages []model.DocumentPage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range pages {
		f.pages[p.DocumentID] = append(f.pages[p.DocumentID], p)
	}
	return nil
}

func (f *fakeDocStore) DeletePages(ctx context.Context, documentID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pagePurges++
	delete(f.pages, documentID)
	return nil
}

func (f *fakeDocStore) SaveChunks(ctx context.Context, chunks []model.DocumentChunk) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range chunks {
		f.chunks[c.DocumentID] = append(f.chunks[c.DocumentID], c)
	}
	return nil
}

func (f *fakeDocStore) DeleteChunks(ctx context.Context, documentID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chunkPurges++
	delete(f.chunks, documentID)
	return nil
}

func (f *fakeDocStore) doc(id uuid.UUID) model.Document {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.docs[id]
}

type recordingIndex struct {
	mu       sync.Mutex
	entries  map[string]VectorEntry
	purges   []VectorFilter
	upserts  int
	upsertOK bool
}

func newRecordingIndex() *recordingIndex {
	return &recordingIndex{entries: make(map[string]VectorEntry), upsertOK: true}
}

func (r *recordingIndex) EnsureReady(ctx context.Context) error { return nil }

// Upsert skips already-present ids, matching the on-conflict-do-nothing
// behavior of the real index.
func (r *recordingIndex) Upsert(ctx context.Context, entries []VectorEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.upsertOK {
		return fmt.Errorf("upsert unavailable")
	}
	r.upserts++
	for _, e := range entries {
		if _, exists := r.entries[e.ID]; exists {
			continue
		}
		r.entries[e.ID] = e
	}
	return nil
}

func (r *recordingIndex) Delete(ctx context.Context, ids []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range ids {
		delete(r.entries, id)
	}
	return nil
}

func (r *recordingIndex) DeleteByFilter(ctx context.Context, filter VectorFilter) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.purges = append(r.purges, filter)
	for id, e := range r.entries {
		if filter.DocumentID != nil && e.DocumentID == *filter.DocumentID {
			delete(r.entries, id)
		}
	}
	return nil
}

func (r *recordingIndex) Query(ctx context.Context, v pgvector.Vector, topK int, filter VectorFilter) ([]VectorHit, error) {
	return nil, nil
}

func (r *recordingIndex) Stats(ctx context.Context) (VectorIndexStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return VectorIndexStats{VectorCount: int64(len(r.entries))}, nil
}

func seedDocument(t *testing.T, store *fakeDocStore, content string) *model.Document {
	t.Helper()
	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	doc := &model.Document{
		CourseID:         uuid.New(),
		FileName:         "notes.txt",
		OriginalFileName: "notes.txt",
		StoragePath:      path,
		FileType:         "txt",
		Status:           model.DocumentStatusPending,
	}
	doc.ID = uuid.New()
	if err := store.Create(context.Background(), doc); err != nil {
		t.Fatal(err)
	}
	return doc
}

func newDocService(store *fakeDocStore, embedder Embedder, index VectorIndex, storage string) *DocumentService {
	return NewDocumentService(store, NewTextExtractor(), NewChunker(1000, 200), embedder, index, storage)
}

func TestProcessExtractsChunksAndIndexes(t *testing.T) {
	t.Parallel()
	store := newFakeDocStore()
	index := newRecordingIndex()
	doc := seedDocument(t, store, "First page about networks.\fSecond page about routing.")

	svc := newDocService(store, &fakeEmbedder{available: true}, index, t.TempDir())
	if err := svc.Process(context.Background(), doc.ID); err != nil {
		t.Fatalf("Process: %v", err)
	}

	got := store.doc(doc.ID)
	if got.Status != model.DocumentStatusCompleted || !got.IsProcessed || !got.IsIndexed {
		t.Errorf("unexpected document state: %+v", got)
	}
	if got.PageCount != 2 {
		t.Errorf("expected 2 pages, got %d", got.PageCount)
	}
	if got.ProcessedAt == nil {
		t.Error("expected processed_at to be set")
	}

	chunks := store.chunks[doc.ID]
	if len(chunks) != 2 {
		t.Fatalf("expected one chunk per page, got %d", len(chunks))
	}
	for i, c := range chunks {
		want := fmt.Sprintf("chunk_%s_%d", doc.ID, i)
		if c.VectorID != want {
			t.Errorf("chunk %d vector id = %q, want %q", i, c.VectorID, want)
		}
	}
	if len(index.entries) != 2 {
		t.Errorf("expected 2 indexed vectors, got %d", len(index.entries))
	}
	if len(index.purges) != 1 {
		t.Errorf("expected one vector purge before indexing, got %d", len(index.purges))
	}
}

func TestProcessEmptyDocumentMarksFailed(t *testing.T) {
	t.Parallel()
	store := newFakeDocStore()
	doc := seedDocument(t, store, "   \n\t  ")

	svc := newDocService(store, &fakeEmbedder{available: true}, newRecordingIndex(), t.TempDir())
	if err := svc.Process(context.Background(), doc.ID); err != nil {
		t.Fatalf("Process: %v", err)
	}

	got := store.doc(doc.ID)
	if got.Status != model.DocumentStatusFailed {
		t.Errorf("expected failed status, got %s", got.Status)
	}
	if got.ProcessingError == "" {
		t.Error("expected a stored processing error")
	}
}

func TestProcessWithoutEmbeddingsCompletesUnindexed(t *testing.T) {
	t.Parallel()
	store := newFakeDocStore()
	doc := seedDocument(t, store, "Content served by keyword fallback only.")

	svc := newDocService(store, &fakeEmbedder{available: false}, newRecordingIndex(), t.TempDir())
	if err := svc.Process(context.Background(), doc.ID); err != nil {
		t.Fatalf("Process: %v", err)
	}

	got := store.doc(doc.ID)
	if got.Status != model.DocumentStatusCompleted || !got.IsProcessed {
		t.Errorf("expected completed document, got %+v", got)
	}
	if got.IsIndexed {
		t.Error("document must not be marked indexed without embeddings")
	}
	if len(store.chunks[doc.ID]) == 0 {
		t.Error("chunks must still be persisted for fallback retrieval")
	}
}

func TestProcessTwiceDoesNotDuplicate(t *testing.T) {
	t.Parallel()
	store := newFakeDocStore()
	index := newRecordingIndex()
	doc := seedDocument(t, store, "Stable content across runs.")

	svc := newDocService(store, &fakeEmbedder{available: true}, index, t.TempDir())
	for i := 0; i < 2; i++ {
		if err := svc.Process(context.Background(), doc.ID); err != nil {
			t.Fatalf("Process run %d: %v", i, err)
		}
	}

	if n := len(store.chunks[doc.ID]); n != 1 {
		t.Errorf("expected 1 chunk after reprocessing, got %d", n)
	}
	if n := len(index.entries); n != 1 {
		t.Errorf("expected 1 vector after reprocessing, got %d", n)
	}
	if store.chunkPurges != 2 || len(index.purges) != 2 {
		t.Errorf("each run must purge before writing: %d chunk purges, %d vector purges",
			store.chunkPurges, len(index.purges))
	}
}

func TestDeleteRemovesAllArtifacts(t *testing.T) {
	t.Parallel()
	store := newFakeDocStore()
	index := newRecordingIndex()
	doc := seedDocument(t, store, "To be deleted.")

	svc := newDocService(store, &fakeEmbedder{available: true}, index, t.TempDir())
	if err := svc.Process(context.Background(), doc.ID); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if err := svc.Delete(context.Background(), doc.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if _, err := os.Stat(doc.StoragePath); !os.IsNotExist(err) {
		t.Error("stored file must be removed")
	}
	if len(store.chunks[doc.ID]) != 0 || len(store.pages[doc.ID]) != 0 {
		t.Error("chunks and pages must be removed")
	}
	if len(index.entries) != 0 {
		t.Error("vectors must be removed")
	}
	if _, err := store.FindByID(context.Background(), doc.ID); err == nil {
		t.Error("document row must be removed")
	}
}

func uploadHeader(t *testing.T, filename, content string) *multipart.FileHeader {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	w.Close()

	req, err := http.NewRequest(http.MethodPost, "/", &body)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	if err := req.ParseMultipartForm(1 << 20); err != nil {
		t.Fatal(err)
	}
	return req.MultipartForm.File["file"][0]
}

func TestUploadStoresFileAndCreatesPendingDocument(t *testing.T) {
	t.Parallel()
	store := newFakeDocStore()
	storage := t.TempDir()
	svc := newDocService(store, &fakeEmbedder{available: true}, newRecordingIndex(), storage)

	courseID := uuid.New()
	doc, err := svc.Upload(context.Background(), courseID, uploadHeader(t, "lecture.txt", "Lecture notes."))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	if doc.Status != model.DocumentStatusPending {
		t.Errorf("expected pending status, got %s", doc.Status)
	}
	wantPath := filepath.Join(storage, courseID.String(), doc.ID.String(), "lecture.txt")
	if doc.StoragePath != wantPath {
		t.Errorf("storage path = %q, want %q", doc.StoragePath, wantPath)
	}
	raw, err := os.ReadFile(doc.StoragePath)
	if err != nil {
		t.Fatalf("stored file unreadable: %v", err)
	}
	if string(raw) != "Lecture notes." {
		t.Errorf("stored content = %q", raw)
	}
}

func TestUploadRejectsUnsupportedFileType(t *testing.T) {
	t.Parallel()
	svc := newDocService(newFakeDocStore(), &fakeEmbedder{available: true}, newRecordingIndex(), t.TempDir())

	_, err := svc.Upload(context.Background(), uuid.New(), uploadHeader(t, "image.png", "binary"))
	if err == nil {
		t.Fatal("expected unsupported file type error")
	}
}
