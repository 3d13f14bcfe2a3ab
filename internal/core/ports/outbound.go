package ports

import (
	"context"
	"io"
	"time"

	"github.com/kirillkom/slidedeck-ingest/internal/core/domain"
)

// SlideExtractor turns a staged document into per-slide text in document order.
type SlideExtractor interface {
	Extract(ctx context.Context, documentPath string) ([]domain.SlideRecord, error)
}

// SlideRenderer converts a staged document into page images written under
// outputDir. The returned order carries no meaning.
type SlideRenderer interface {
	Render(ctx context.Context, documentPath, outputDir string) ([]domain.RenderedImage, error)
}

// ObjectStore uploads objects into a named bucket.
type ObjectStore interface {
	Upload(ctx context.Context, bucket, key, contentType string, data io.Reader) error
	PublicURL(bucket, key string) string
}

// PresentationRepository inserts presentation and slide rows.
type PresentationRepository interface {
	InsertPresentation(ctx context.Context, p *domain.Presentation) error
	InsertSlide(ctx context.Context, s *domain.Slide) error
}

// WorkingArea is per-upload scratch space owned by exactly one upload.
type WorkingArea interface {
	Dir() string
	Stage(filename string, body io.Reader) (string, error)
	Remove() error
}

// WorkingAreaProvider allocates a WorkingArea for (userID, presentationID).
type WorkingAreaProvider interface {
	Acquire(userID, presentationID string) (WorkingArea, error)
}

// IngestEventPublisher announces committed uploads.
type IngestEventPublisher interface {
	PublishPresentationIngested(ctx context.Context, result domain.UploadResult) error
}

// UploadRecorder observes workflow outcomes.
type UploadRecorder interface {
	StartUpload()
	FinishUpload(duration time.Duration, slides int, err error)
}
