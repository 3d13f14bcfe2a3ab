package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/kirillkom/slidedeck-ingest/internal/core/domain"
)

// PresentationRepository writes presentations and slides. Rows are
// immutable once inserted; there is no update or delete path.
type PresentationRepository struct {
	db *sql.DB
}

func NewPresentationRepository(db *sql.DB) *PresentationRepository {
	return &PresentationRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *PresentationRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across replicas starting together.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026101901)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS presentations (
	id UUID PRIMARY KEY,
	user_id UUID NOT NULL,
	title TEXT NOT NULL,
	ppt_path TEXT NOT NULL,
	total_slides INTEGER NOT NULL CHECK (total_slides >= 0),
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS slides (
	presentation_id UUID NOT NULL REFERENCES presentations(id),
	user_id UUID NOT NULL,
	slide_number INTEGER NOT NULL CHECK (slide_number > 0),
	image_url TEXT NOT NULL,
	extracted_text JSONB NOT NULL DEFAULT '[]'::jsonb,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (presentation_id, slide_number)
);

CREATE INDEX IF NOT EXISTS idx_presentations_user_id ON presentations(user_id);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *PresentationRepository) InsertPresentation(ctx context.Context, p *domain.Presentation) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO presentations (id, user_id, title, ppt_path, total_slides)
VALUES ($1,$2,$3,$4,$5)
`, p.ID, p.UserID, p.Title, p.StoragePath, p.TotalSlides)
	if err != nil {
		return domain.WrapError(domain.ErrDB, "insert presentation", err)
	}
	return nil
}

func (r *PresentationRepository) InsertSlide(ctx context.Context, s *domain.Slide) error {
	text := s.ExtractedText
	if text == nil {
		text = []string{}
	}
	textJSON, err := json.Marshal(text)
	if err != nil {
		return fmt.Errorf("marshal extracted text: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO slides (presentation_id, user_id, slide_number, image_url, extracted_text)
VALUES ($1,$2,$3,$4,$5)
`, s.PresentationID, s.UserID, s.SlideNumber, s.ImageURL, textJSON)
	if err != nil {
		return domain.WrapError(domain.ErrDB, "insert slide", err)
	}
	return nil
}
