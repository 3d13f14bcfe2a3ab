// Package extractor picks the slide text extractor matching a document's
// extension.
package extractor

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/kirillkom/slidedeck-ingest/internal/core/domain"
	"github.com/kirillkom/slidedeck-ingest/internal/core/ports"
	"github.com/kirillkom/slidedeck-ingest/internal/infrastructure/extractor/pdf"
	"github.com/kirillkom/slidedeck-ingest/internal/infrastructure/extractor/pptx"
)

type Registry struct {
	byExt map[string]ports.SlideExtractor
}

// NewRegistry returns a registry for .pptx and .pdf decks.
func NewRegistry() *Registry {
	return &Registry{byExt: map[string]ports.SlideExtractor{
		".pptx": pptx.NewExtractor(),
		".pdf":  pdf.NewExtractor(),
	}}
}

func (r *Registry) Register(ext string, extractor ports.SlideExtractor) {
	r.byExt[normalizeExt(ext)] = extractor
}

func (r *Registry) Extract(ctx context.Context, documentPath string) ([]domain.SlideRecord, error) {
	ext := normalizeExt(filepath.Ext(documentPath))
	extractor, ok := r.byExt[ext]
	if !ok {
		return nil, domain.WrapError(domain.ErrParse, "select extractor", fmt.Errorf("unsupported document type %q", ext))
	}
	return extractor.Extract(ctx, documentPath)
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
