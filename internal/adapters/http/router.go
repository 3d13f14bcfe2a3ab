package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/kirillkom/slidedeck-ingest/internal/config"
	"github.com/kirillkom/slidedeck-ingest/internal/core/ports"
	"github.com/kirillkom/slidedeck-ingest/internal/observability/metrics"
)

const (
	serviceName           = "slidedeck-api"
	backpressureQueueWait = 250 * time.Millisecond
)

type Router struct {
	cfg      config.Config
	uploader ports.PresentationUploader
	metrics  *metrics.HTTPServerMetrics
}

func NewRouter(cfg config.Config, uploader ports.PresentationUploader, httpMetrics *metrics.HTTPServerMetrics) *Router {
	return &Router{
		cfg:      cfg,
		uploader: uploader,
		metrics:  httpMetrics,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", rt.health)
	mux.HandleFunc("/healthz", rt.health)
	mux.HandleFunc("/upload-ppt", rt.uploadPresentation)
	mux.HandleFunc("/upload-ppt/", rt.uploadPresentation)

	var handler http.Handler = mux
	handler = backpressureMiddleware(handler, rt.cfg.APIMaxInFlight, backpressureQueueWait)
	handler = rateLimitMiddleware(handler, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(serviceName, handler)
		outer := http.NewServeMux()
		outer.Handle("/metrics", rt.metrics.Handler())
		outer.Handle("/", handler)
		handler = outer
	}
	return requestIDMiddleware(accessLogMiddleware(handler))
}

func (rt *Router) health(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && r.URL.Path != "/healthz" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "PPT service running"})
}

type uploadResponse struct {
	Status         string `json:"status"`
	PresentationID string `json:"presentation_id"`
	Slides         int    `json:"slides"`
}

func (rt *Router) uploadPresentation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if rt.cfg.UploadMaxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, rt.cfg.UploadMaxBytes)
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "upload exceeds size limit")
			return
		}
		writeError(w, http.StatusBadRequest, "multipart field 'file' is required")
		return
	}
	defer file.Close()

	// An upload that has started runs to completion even if the client goes away.
	result, err := rt.uploader.Upload(context.WithoutCancel(r.Context()), fileHeader.Filename, file)
	if err != nil {
		writeError(w, mapErrorToHTTPStatus(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, uploadResponse{
		Status:         "success",
		PresentationID: result.PresentationID,
		Slides:         result.SlideCount,
	})
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"status": "error", "error": message})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
