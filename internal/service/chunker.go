package service

import (
	"strings"
)

// Page is one page of extracted document text, the chunker's input unit.
type Page struct {
	PageNumber int
	Text       string
}

// ChunkDraft is a chunk before it has been persisted or assigned a vector id.
type ChunkDraft struct {
	Content    string
	PageNumber *int
	ChunkIndex int
}

// Chunker splits page text into bounded, overlapping segments. Chunks never
// span pages, so every chunk keeps an unambiguous page reference.
type Chunker struct {
	chunkSize    int
	chunkOverlap int
}

func NewChunker(chunkSize, chunkOverlap int) *Chunker {
	if chunkSize <= 0 {
		chunkSize = 1000
	}
	if chunkOverlap < 0 {
		chunkOverlap = 0
	}
	return &Chunker{chunkSize: chunkSize, chunkOverlap: chunkOverlap}
}

// Split chunks each page independently. The chunk index increments across the
// whole document. A document whose pages are all empty yields zero chunks,
// which callers must treat as a processing failure.
//
// Window sizes count characters, not bytes, so a forced cut can never land
// inside a multi-byte sequence.
func (c *Chunker) Split(pages []Page) []ChunkDraft {
	var chunks []ChunkDraft

	for _, page := range pages {
		if strings.TrimSpace(page.Text) == "" {
			continue
		}

		text := []rune(page.Text)
		pageNum := page.PageNumber

		if len(text) <= c.chunkSize {
			content := strings.TrimSpace(page.Text)
			chunks = append(chunks, ChunkDraft{
				Content:    content,
				PageNumber: intPtr(pageNum),
				ChunkIndex: len(chunks),
			})
			continue
		}

		start := 0
		for start < len(text) {
			end := start + c.chunkSize
			if end < len(text) {
				// Scan backward for a sentence boundary so we avoid cutting
				// mid-sentence, but never past the window midpoint.
				for i := end - 1; i > start+c.chunkSize/2; i-- {
					if isSentenceEnd(text[i]) && (i+1 == len(text) || isWhitespace(text[i+1])) {
						end = i + 1
						break
					}
				}
			} else {
				end = len(text)
			}

			if content := strings.TrimSpace(string(text[start:end])); content != "" {
				chunks = append(chunks, ChunkDraft{
					Content:    content,
					PageNumber: intPtr(pageNum),
					ChunkIndex: len(chunks),
				})
			}

			if end >= len(text) {
				break
			}

			next := end - c.chunkOverlap
			if next <= start {
				// Degenerate overlap configuration; force progress.
				adv := c.chunkSize / 2
				if adv < 1 {
					adv = 1
				}
				next = start + adv
			}
			start = next
		}
	}

	return chunks
}

func isSentenceEnd(r rune) bool {
	return r == '.' || r == '!' || r == '?' || r == '\n'
}

func isWhitespace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}

func intPtr(v int) *int {
	return &v
}
