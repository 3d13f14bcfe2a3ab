package usecase

import (
	"slices"

	"github.com/kirillkom/slidedeck-ingest/internal/core/domain"
)

// ReconcileSlides aligns extracted slide text with rendered page images.
//
// Images are ordered by creation time, ties keeping the renderer's listing
// order, and the i-th image is bound to the i-th record. This relies on the
// render order assumption: pages are rendered in slide order, so creation
// times grow with slide number. Only count divergence is detectable; an
// out-of-order render with equal counts silently misaligns.
func ReconcileSlides(records []domain.SlideRecord, images []domain.RenderedImage) ([]domain.OrderedSlide, error) {
	if len(records) != len(images) {
		return nil, &domain.CountMismatchError{Slides: len(records), Images: len(images)}
	}

	sorted := slices.Clone(images)
	slices.SortStableFunc(sorted, func(a, b domain.RenderedImage) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})

	out := make([]domain.OrderedSlide, 0, len(records))
	for i, record := range records {
		out = append(out, domain.OrderedSlide{
			SlideNumber: record.SlideNumber,
			TextBlocks:  record.TextBlocks,
			ImagePath:   sorted[i].Path,
		})
	}
	return out, nil
}
