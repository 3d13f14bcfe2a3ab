package usecase

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/kirillkom/slidedeck-ingest/internal/core/domain"
	"github.com/kirillkom/slidedeck-ingest/internal/core/ports"
)

const renderedPagesDir = "pages"

type Buckets struct {
	Documents string
	Images    string
}

type UploadPresentationUseCase struct {
	workspace ports.WorkingAreaProvider
	extractor ports.SlideExtractor
	renderer  ports.SlideRenderer
	store     ports.ObjectStore
	repo      ports.PresentationRepository
	buckets   Buckets
	imageExt  string

	events   ports.IngestEventPublisher
	recorder ports.UploadRecorder
	logger   *slog.Logger
	newID    func() string
}

type UploadOption func(*UploadPresentationUseCase)

func WithEventPublisher(events ports.IngestEventPublisher) UploadOption {
	return func(uc *UploadPresentationUseCase) { uc.events = events }
}

func WithRecorder(recorder ports.UploadRecorder) UploadOption {
	return func(uc *UploadPresentationUseCase) { uc.recorder = recorder }
}

func WithLogger(logger *slog.Logger) UploadOption {
	return func(uc *UploadPresentationUseCase) { uc.logger = logger }
}

// WithImageExtension sets the extension used in slide image keys.
func WithImageExtension(ext string) UploadOption {
	return func(uc *UploadPresentationUseCase) {
		if ext = strings.TrimPrefix(strings.TrimSpace(ext), "."); ext != "" {
			uc.imageExt = ext
		}
	}
}

func NewUploadPresentationUseCase(
	workspace ports.WorkingAreaProvider,
	extractor ports.SlideExtractor,
	renderer ports.SlideRenderer,
	store ports.ObjectStore,
	repo ports.PresentationRepository,
	buckets Buckets,
	opts ...UploadOption,
) *UploadPresentationUseCase {
	uc := &UploadPresentationUseCase{
		workspace: workspace,
		extractor: extractor,
		renderer:  renderer,
		store:     store,
		repo:      repo,
		buckets:   buckets,
		imageExt:  "jpg",
		logger:    slog.Default(),
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// Upload runs the whole ingest workflow for one document. Remote writes
// that happened before a late failure are not rolled back.
func (uc *UploadPresentationUseCase) Upload(ctx context.Context, filename string, body io.Reader) (result *domain.UploadResult, err error) {
	start := time.Now()
	slides := 0
	if uc.recorder != nil {
		uc.recorder.StartUpload()
		defer func() {
			uc.recorder.FinishUpload(time.Since(start), slides, err)
		}()
	}

	title := strings.TrimSpace(filename)
	filename = sanitizeFilename(filename)
	if title == "" {
		title = filename
	}
	format, err := deckFormat(filename)
	if err != nil {
		return nil, err
	}

	userID := uc.newID()
	presentationID := uc.newID()
	logger := uc.logger.With("user_id", userID, "presentation_id", presentationID)

	area, err := uc.workspace.Acquire(userID, presentationID)
	if err != nil {
		return nil, domain.WrapError(domain.ErrStaging, "acquire working area", err)
	}
	defer func() {
		if rmErr := area.Remove(); rmErr != nil {
			logger.Error("workarea_cleanup_failed", "dir", area.Dir(), "error", rmErr)
		}
	}()

	result, err = uc.run(ctx, logger, area, title, filename, format, userID, presentationID, body)
	if err != nil {
		logger.Error("upload_failed", "filename", filename, "error", err)
		return nil, err
	}
	slides = result.SlideCount

	logger.Info("upload_completed", "slides", result.SlideCount, "duration_ms", time.Since(start).Milliseconds())
	uc.publish(ctx, logger, *result)
	return result, nil
}

func (uc *UploadPresentationUseCase) run(
	ctx context.Context,
	logger *slog.Logger,
	area ports.WorkingArea,
	title, filename string,
	format domain.DeckFormat,
	userID, presentationID string,
	body io.Reader,
) (*domain.UploadResult, error) {
	documentPath, err := area.Stage(filename, body)
	if err != nil {
		return nil, domain.WrapError(domain.ErrStaging, "stage upload", err)
	}
	logger.Debug("upload_staged", "path", documentPath)

	documentKey := fmt.Sprintf("%s/%s.%s", userID, presentationID, format)
	if err := uc.storeFile(ctx, uc.buckets.Documents, documentKey, documentPath); err != nil {
		return nil, fmt.Errorf("store document: %w", err)
	}

	records, images, err := uc.extractAndRender(ctx, documentPath, filepath.Join(area.Dir(), renderedPagesDir))
	if err != nil {
		return nil, err
	}
	logger.Info("slides_rendered", "records", len(records), "images", len(images))

	ordered, err := ReconcileSlides(records, images)
	if err != nil {
		return nil, fmt.Errorf("reconcile slides: %w", err)
	}
	logger.Debug("slides_reconciled", "slides", len(ordered))

	presentation := &domain.Presentation{
		ID:          presentationID,
		UserID:      userID,
		Title:       title,
		StoragePath: documentKey,
		TotalSlides: len(ordered),
	}
	if err := uc.repo.InsertPresentation(ctx, presentation); err != nil {
		return nil, fmt.Errorf("insert presentation: %w", err)
	}

	for _, slide := range ordered {
		if err := uc.persistSlide(ctx, userID, presentationID, slide); err != nil {
			return nil, fmt.Errorf("persist slide %d: %w", slide.SlideNumber, err)
		}
	}

	return &domain.UploadResult{
		PresentationID: presentationID,
		UserID:         userID,
		SlideCount:     len(ordered),
	}, nil
}

// extractAndRender runs the two independent stages concurrently; both must
// finish before reconciliation.
func (uc *UploadPresentationUseCase) extractAndRender(ctx context.Context, documentPath, outputDir string) ([]domain.SlideRecord, []domain.RenderedImage, error) {
	var (
		records []domain.SlideRecord
		images  []domain.RenderedImage
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		out, err := uc.extractor.Extract(gctx, documentPath)
		if err != nil {
			return fmt.Errorf("extract slide text: %w", err)
		}
		records = out
		return nil
	})
	g.Go(func() error {
		out, err := uc.renderer.Render(gctx, documentPath, outputDir)
		if err != nil {
			return fmt.Errorf("render slides: %w", err)
		}
		images = out
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return records, images, nil
}

func (uc *UploadPresentationUseCase) persistSlide(ctx context.Context, userID, presentationID string, slide domain.OrderedSlide) error {
	imageKey := fmt.Sprintf("%s/%s/slide_%d.%s", userID, presentationID, slide.SlideNumber, uc.imageExt)
	if err := uc.storeFile(ctx, uc.buckets.Images, imageKey, slide.ImagePath); err != nil {
		return fmt.Errorf("store image: %w", err)
	}

	text := slide.TextBlocks
	if text == nil {
		text = []string{}
	}
	row := &domain.Slide{
		PresentationID: presentationID,
		UserID:         userID,
		SlideNumber:    slide.SlideNumber,
		ImageURL:       uc.store.PublicURL(uc.buckets.Images, imageKey),
		ExtractedText:  text,
	}
	if err := uc.repo.InsertSlide(ctx, row); err != nil {
		return fmt.Errorf("insert slide: %w", err)
	}
	return nil
}

func (uc *UploadPresentationUseCase) storeFile(ctx context.Context, bucket, key, localPath string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return domain.WrapError(domain.ErrStaging, "open "+filepath.Base(localPath), err)
	}
	defer f.Close()

	return uc.store.Upload(ctx, bucket, key, contentTypeFor(key), f)
}

func (uc *UploadPresentationUseCase) publish(ctx context.Context, logger *slog.Logger, result domain.UploadResult) {
	if uc.events == nil {
		return
	}
	if err := uc.events.PublishPresentationIngested(ctx, result); err != nil {
		logger.Warn("ingest_event_publish_failed", "error", err)
	}
}

func deckFormat(filename string) (domain.DeckFormat, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pptx":
		return domain.FormatPPTX, nil
	case ".pdf":
		return domain.FormatPDF, nil
	default:
		return "", domain.WrapError(domain.ErrInvalidInput, "detect deck format",
			fmt.Errorf("unsupported file type %q", filepath.Ext(filename)))
	}
}

func contentTypeFor(key string) string {
	switch strings.ToLower(path.Ext(key)) {
	case ".pptx":
		return "application/vnd.openxmlformats-officedocument.presentationml.presentation"
	case ".pdf":
		return "application/pdf"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	default:
		return "application/octet-stream"
	}
}

func sanitizeFilename(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" || base == "." || base == ".." {
		return "presentation.pptx"
	}
	return base
}
