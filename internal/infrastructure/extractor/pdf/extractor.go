// Package pdf extracts per-page text from PDF slide decks, one page per slide.
package pdf

import (
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/kirillkom/slidedeck-ingest/internal/core/domain"
)

type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

func (e *Extractor) Extract(ctx context.Context, documentPath string) (records []domain.SlideRecord, err error) {
	// The parser panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			records = nil
			err = domain.WrapError(domain.ErrParse, "extract pdf slides", fmt.Errorf("parser panic: %v", r))
		}
	}()

	f, reader, err := pdf.Open(documentPath)
	if err != nil {
		return nil, domain.WrapError(domain.ErrParse, "open pdf", err)
	}
	defer f.Close()

	total := reader.NumPage()
	records = make([]domain.SlideRecord, 0, total)
	for i := 1; i <= total; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		blocks, err := pageBlocks(reader.Page(i))
		if err != nil {
			return nil, domain.WrapError(domain.ErrParse, fmt.Sprintf("read pdf page %d", i), err)
		}
		records = append(records, domain.SlideRecord{SlideNumber: i, TextBlocks: blocks})
	}
	return records, nil
}

// pageBlocks returns one trimmed block per non-blank text row, top to bottom.
func pageBlocks(page pdf.Page) ([]string, error) {
	blocks := []string{}
	if page.V.IsNull() {
		return blocks, nil
	}
	rows, err := page.GetTextByRow()
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		var sb strings.Builder
		for _, word := range row.Content {
			sb.WriteString(word.S)
		}
		if text := strings.TrimSpace(sb.String()); text != "" {
			blocks = append(blocks, text)
		}
	}
	return blocks, nil
}
