package convertapi

import (
	"context"
	"errors"
	"fmt"
	"io"
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
		return "convertapi status error"
	}
	if strings.TrimSpace(e.Body) == "" {
		return fmt.Sprintf("convertapi %s status: %s", e.Operation, e.Status)
	}
	return fmt.Sprintf("convertapi %s status: %s: %s", e.Operation, e.Status, strings.TrimSpace(e.Body))
}

func formatHTTPError(operation string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	return &HTTPStatusError{
		Operation:  operation,
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Body:       string(body),
	}
}

// isBreakerFailure counts service-side trouble only. A malformed or
// unsupported deck is the caller's problem and must not open the circuit.
func isBreakerFailure(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		switch statusErr.StatusCode {
		case http.StatusTooManyRequests, http.StatusRequestTimeout:
			return true
		}
		return statusErr.StatusCode >= http.StatusInternalServerError
	}
	return true
}

func wrapRenderError(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return domain.WrapError(domain.ErrRenderTimeout, "convertapi render", err)
	}
	if resilience.IsCircuitOpen(err) {
		return domain.WrapError(domain.ErrTemporary, "convertapi render", err)
	}
	return domain.WrapError(domain.ErrRender, "convertapi render", err)
}
