package supabase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/kirillkom/slidedeck-ingest/internal/core/domain"
	"github.com/kirillkom/slidedeck-ingest/internal/infrastructure/resilience"
)

type HTTPStatusError struct {
	Operation  string
	StatusCode int
	Status     string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	if e == nil {
		return "supabase status error"
	}
	if strings.TrimSpace(e.Body) == "" {
		return fmt.Sprintf("supabase %s status: %s", e.Operation, e.Status)
	}
	return fmt.Sprintf("supabase %s status: %s: %s", e.Operation, e.Status, strings.TrimSpace(e.Body))
}

// isBreakerFailure keeps client-side rejections (auth, duplicate key, bad
// bucket) from tripping the breaker.
func isBreakerFailure(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode >= http.StatusInternalServerError ||
			statusErr.StatusCode == http.StatusTooManyRequests
	}
	return true
}

func wrapStorageError(err error) error {
	if err == nil {
		return nil
	}
	if resilience.IsCircuitOpen(err) {
		return domain.WrapError(domain.ErrTemporary, "supabase storage", err)
	}
	return domain.WrapError(domain.ErrStorage, "supabase storage", err)
}
