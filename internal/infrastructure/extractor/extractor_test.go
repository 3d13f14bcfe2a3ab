package extractor

import (
	"context"
	"testing"

	"github.com/kirillkom/slidedeck-ingest/internal/core/domain"
)

type stubExtractor struct {
	path string
}

func (s *stubExtractor) Extract(_ context.Context, documentPath string) ([]domain.SlideRecord, error) {
	s.path = documentPath
	return []domain.SlideRecord{{SlideNumber: 1, TextBlocks: []string{"x"}}}, nil
}

func TestRegistryDispatchesByExtensionCaseInsensitively(t *testing.T) {
	reg := NewRegistry()
	stub := &stubExtractor{}
	reg.Register("PPTX", stub)

	records, err := reg.Extract(context.Background(), "/tmp/work/Deck.PPTX")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if stub.path != "/tmp/work/Deck.PPTX" || len(records) != 1 {
		t.Fatalf("expected stub to handle deck, got path=%q records=%d", stub.path, len(records))
	}
}

func TestRegistryRejectsUnknownExtension(t *testing.T) {
	_, err := NewRegistry().Extract(context.Background(), "/tmp/work/notes.key")
	if !domain.IsKind(err, domain.ErrParse) {
		t.Fatalf("expected ErrParse, got %v", err)
	}
}
