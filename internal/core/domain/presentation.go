package domain

import "time"

// Presentation is the persisted record of one successful upload.
type Presentation struct {
	ID          string `json:"id"`
	UserID      string `json:"user_id"`
	Title       string `json:"title"`
	StoragePath string `json:"ppt_path"`
	TotalSlides int    `json:"total_slides"`
}

// Slide is one persisted row per OrderedSlide.
type Slide struct {
	PresentationID string   `json:"presentation_id"`
	UserID         string   `json:"user_id"`
	SlideNumber    int      `json:"slide_number"`
	ImageURL       string   `json:"image_url"`
	ExtractedText  []string `json:"extracted_text"`
}

// SlideRecord is the text extracted from one slide, numbered 1..N in
// document order.
type SlideRecord struct {
	SlideNumber int      `json:"slide_number"`
	TextBlocks  []string `json:"text_blocks"`
}

// RenderedImage is a page image produced by the renderer. The renderer
// assigns no reliable slide number; CreatedAt is the only ordering signal.
type RenderedImage struct {
	Path      string
	CreatedAt time.Time
}

// OrderedSlide binds a SlideRecord to the rendered image aligned with it.
type OrderedSlide struct {
	SlideNumber int
	TextBlocks  []string
	ImagePath   string
}

// UploadResult is returned to the caller after the whole workflow commits.
type UploadResult struct {
	PresentationID string `json:"presentation_id"`
	UserID         string `json:"user_id"`
	SlideCount     int    `json:"slides"`
}

// DeckFormat identifies how a slide document is parsed and rendered.
type DeckFormat string

const (
	FormatPPTX DeckFormat = "pptx"
	FormatPDF  DeckFormat = "pdf"
)
