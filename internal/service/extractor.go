package service

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// PageExtractor turns a stored file into per-page text. Implementations for
// binary formats (PDF, DOCX) plug in here; the built-in extractor covers
// plain-text formats.
type PageExtractor interface {
	Extract(ctx context.Context, path, fileType string) ([]Page, error)
	Supports(fileType string) bool
}

// TextExtractor reads plain-text and markdown files. Form feeds mark page
// breaks; a file without them is a single page.
type TextExtractor struct{}

func NewTextExtractor() *TextExtractor {
	return &TextExtractor{}
}

func (e *TextExtractor) Supports(fileType string) bool {
	switch strings.ToLower(fileType) {
	case "txt", "text", "md", "markdown":
		return true
	}
	return false
}

func (e *TextExtractor) Extract(ctx context.Context, path, fileType string) ([]Page, error) {
	if !e.Supports(fileType) {
		return nil, fmt.Errorf("unsupported file type %q", fileType)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var pages []Page
	for i, part := range strings.Split(string(raw), "\f") {
		text := strings.TrimSpace(part)
		if text == "" {
			continue
		}
		pages = append(pages, Page{PageNumber: i + 1, Text: text})
	}
	return pages, nil
}
