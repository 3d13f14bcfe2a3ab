package httpadapter

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kirillkom/slidedeck-ingest/internal/config"
	"github.com/kirillkom/slidedeck-ingest/internal/core/domain"
)

func TestUploadMapsDomainErrorsToStatus(t *testing.T) {
	cause := errors.New("boom")
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"invalid input", domain.WrapError(domain.ErrInvalidInput, "detect deck format", cause), http.StatusBadRequest},
		{"parse", domain.WrapError(domain.ErrParse, "open deck", cause), http.StatusUnprocessableEntity},
		{"count mismatch", fmt.Errorf("reconcile slides: %w", &domain.CountMismatchError{Slides: 3, Images: 2}), http.StatusUnprocessableEntity},
		{"render timeout", domain.WrapError(domain.ErrRenderTimeout, "convert", cause), http.StatusGatewayTimeout},
		{"render", domain.WrapError(domain.ErrRender, "convert", cause), http.StatusBadGateway},
		{"storage", domain.WrapError(domain.ErrStorage, "upload object", cause), http.StatusBadGateway},
		{"db", domain.WrapError(domain.ErrDB, "insert slide", cause), http.StatusBadGateway},
		{"temporary", domain.WrapError(domain.ErrTemporary, "upload object", cause), http.StatusServiceUnavailable},
		{"staging", domain.WrapError(domain.ErrStaging, "stage upload", cause), http.StatusInternalServerError},
		{"unknown", cause, http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			handler := NewRouter(config.Config{}, &uploaderFake{err: tc.err}, nil).Handler()

			body, contentType := multipartUpload(t, "file", "deck.pptx", []byte("x"))
			req := httptest.NewRequest(http.MethodPost, "/upload-ppt/", body)
			req.Header.Set("Content-Type", contentType)
			res := httptest.NewRecorder()
			handler.ServeHTTP(res, req)

			if res.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, res.Code)
			}
			var resp map[string]string
			if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
				t.Fatalf("decode error response: %v", err)
			}
			if resp["status"] != "error" || resp["error"] != tc.err.Error() {
				t.Fatalf("unexpected error body %v", resp)
			}
		})
	}
}
