package parser

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"policy-rag/internal/config"
)

const defaultDoclingTimeout = 120 * time.Second

// DoclingClient talks to the docling parsing service, which converts
// PDF and office documents to markdown with page markers.
type DoclingClient struct {
	baseURL string
	client  *http.Client
}

func NewDoclingClient(cfg *config.ParserConfig) *DoclingClient {
	timeout := defaultDoclingTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	return &DoclingClient{
		baseURL: strings.TrimRight(cfg.DoclingURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

type doclingResponse struct {
	Markdown  string `json:"markdown"`
	PageCount int    `json:"page_count"`
}

// Parse uploads the file and returns the service's markdown rendition.
func (c *DoclingClient) Parse(ctx context.Context, filePath string) (*Result, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filepath.Base(filePath))
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/parse", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling docling: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("docling returned %d: %s", resp.StatusCode, string(data))
	}

	var parsed doclingResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decoding docling response: %w", err)
	}
	if strings.TrimSpace(parsed.Markdown) == "" {
		return nil, fmt.Errorf("docling returned empty markdown for %s", filePath)
	}
	return &Result{Markdown: parsed.Markdown, PageCount: parsed.PageCount}, nil
}
