package ports

import (
	"context"
	"io"

	"github.com/kirillkom/slidedeck-ingest/internal/core/domain"
)

// PresentationUploader is the inbound contract for the upload workflow.
type PresentationUploader interface {
	Upload(ctx context.Context, filename string, body io.Reader) (*domain.UploadResult, error)
}
