package convertapi

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kirillkom/slidedeck-ingest/internal/core/domain"
	"github.com/kirillkom/slidedeck-ingest/internal/infrastructure/resilience"
)

const DefaultBaseURL = "https://v2.convertapi.com"

// Client renders slide documents into page images through ConvertAPI.
type Client struct {
	baseURL       string
	secret        string
	format        string
	renderTimeout time.Duration
	httpClient    *http.Client
	executor      *resilience.Executor
}

type Options struct {
	// Format is the target image extension, jpg by default.
	Format string
	// RenderTimeout bounds one conversion call; zero means unbounded.
	RenderTimeout      time.Duration
	HTTPClient         *http.Client
	ResilienceExecutor *resilience.Executor
}

func New(baseURL, secret string) *Client {
	return NewWithOptions(baseURL, secret, Options{})
}

func NewWithOptions(baseURL, secret string, options Options) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	format := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(options.Format), "."))
	if format == "" {
		format = "jpg"
	}
	httpClient := options.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		baseURL:       strings.TrimRight(baseURL, "/"),
		secret:        secret,
		format:        format,
		renderTimeout: options.RenderTimeout,
		httpClient:    httpClient,
		executor:      options.ResilienceExecutor,
	}
}

type convertResponse struct {
	ConversionCost int             `json:"ConversionCost"`
	Files          []convertedFile `json:"Files"`
}

type convertedFile struct {
	FileName string `json:"FileName"`
	FileExt  string `json:"FileExt"`
	FileSize int64  `json:"FileSize"`
	FileData string `json:"FileData"`
	URL      string `json:"Url"`
}

// Render converts documentPath and saves the pages into outputDir. Images
// come back in the order the service returned them, each stamped with the
// time it was written; callers order them by CreatedAt.
func (c *Client) Render(ctx context.Context, documentPath, outputDir string) ([]domain.RenderedImage, error) {
	if c.renderTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.renderTimeout)
		defer cancel()
	}

	var response convertResponse
	call := func(ctx context.Context) error {
		out, err := c.convert(ctx, documentPath)
		if err != nil {
			return err
		}
		response = out
		return nil
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, "convertapi.convert", call, isBreakerFailure)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return nil, wrapRenderError(ctx, err)
	}

	images, err := c.saveFiles(ctx, response.Files, outputDir)
	if err != nil {
		return nil, wrapRenderError(ctx, err)
	}
	return images, nil
}

func (c *Client) convert(ctx context.Context, documentPath string) (convertResponse, error) {
	from := strings.TrimPrefix(strings.ToLower(filepath.Ext(documentPath)), ".")
	if from == "" {
		return convertResponse{}, fmt.Errorf("document %q has no extension", filepath.Base(documentPath))
	}

	body, contentType, err := buildMultipart(documentPath)
	if err != nil {
		return convertResponse{}, err
	}

	endpoint := fmt.Sprintf("%s/convert/%s/to/%s", c.baseURL, from, c.format)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return convertResponse{}, fmt.Errorf("create convert request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	if c.secret != "" {
		req.Header.Set("Authorization", "Bearer "+c.secret)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return convertResponse{}, fmt.Errorf("convertapi request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return convertResponse{}, formatHTTPError("convert", resp)
	}

	var out convertResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return convertResponse{}, fmt.Errorf("decode convert response: %w", err)
	}
	if len(out.Files) == 0 {
		return convertResponse{}, fmt.Errorf("convert response contains no files")
	}
	return out, nil
}

func buildMultipart(documentPath string) (*bytes.Buffer, string, error) {
	f, err := os.Open(documentPath)
	if err != nil {
		return nil, "", fmt.Errorf("open document: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("File", filepath.Base(documentPath))
	if err != nil {
		return nil, "", fmt.Errorf("create multipart file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, "", fmt.Errorf("copy document into request: %w", err)
	}
	if err := writer.WriteField("StoreFile", "false"); err != nil {
		return nil, "", fmt.Errorf("write multipart field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart writer: %w", err)
	}
	return &buf, writer.FormDataContentType(), nil
}

// saveFiles writes pages one at a time in response order and returns them in
// that order. Pages written within one clock tick share a modification time,
// so CreatedAt is kept non-decreasing along the write order and ties resolve
// to it under a stable sort.
func (c *Client) saveFiles(ctx context.Context, files []convertedFile, outputDir string) ([]domain.RenderedImage, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	images := make([]domain.RenderedImage, 0, len(files))
	var last time.Time
	for i, file := range files {
		name := filepath.Base(file.FileName)
		if name == "." || name == "/" || name == "" {
			name = fmt.Sprintf("page-%d.%s", i+1, c.format)
		}
		path := filepath.Join(outputDir, name)

		data, err := c.fileBytes(ctx, file)
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", name, err)
		}
		// O_EXCL: two pages with one name would silently drop a slide.
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err != nil {
			return nil, fmt.Errorf("create %s: %w", name, err)
		}
		if _, err := f.Write(data); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("write %s: %w", name, err)
		}
		info, err := f.Stat()
		if closeErr := f.Close(); err == nil {
			err = closeErr
		}
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", name, err)
		}

		createdAt := info.ModTime()
		if createdAt.Before(last) {
			createdAt = last
		}
		last = createdAt
		images = append(images, domain.RenderedImage{Path: path, CreatedAt: createdAt})
	}
	return images, nil
}

func (c *Client) fileBytes(ctx context.Context, file convertedFile) ([]byte, error) {
	if file.FileData != "" {
		data, err := base64.StdEncoding.DecodeString(file.FileData)
		if err != nil {
			return nil, fmt.Errorf("decode file data: %w", err)
		}
		return data, nil
	}
	if file.URL == "" {
		return nil, fmt.Errorf("file has neither data nor url")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, file.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("create download request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("convertapi download: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, formatHTTPError("download", resp)
	}
	return io.ReadAll(resp.Body)
}
