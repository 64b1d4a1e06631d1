// Package parser turns uploaded documents into markdown with page
// markers. The preferred path is the docling parsing service; local
// extractors cover the simpler formats and act as a fallback when the
// service is not configured or unreachable.
package parser

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"policy-rag/internal/config"
)

// Result is one fully parsed document: markdown where each page starts
// with a "--- PAGE N ---" marker line.
type Result struct {
	Markdown  string
	PageCount int
}

type Parser struct {
	docling *DoclingClient
}

func New(cfg *config.ParserConfig) *Parser {
	p := &Parser{}
	if cfg != nil && cfg.DoclingURL != "" {
		p.docling = NewDoclingClient(cfg)
	}
	return p
}

// ParseFile extracts a document into page-marked markdown. Rich formats
// go through docling when it is configured; a docling failure degrades
// to the local extractor rather than failing the upload.
func (p *Parser) ParseFile(ctx context.Context, filePath string) (*Result, error) {
	ext := strings.ToLower(filepath.Ext(filePath))

	if p.docling != nil && doclingFormats[ext] {
		res, err := p.docling.Parse(ctx, filePath)
		if err == nil {
			return res, nil
		}
		log.Warn().Err(err).Str("file", filePath).Msg("docling parse failed, using local extractor")
	}

	switch ext {
	case ".pdf":
		return parsePDF(filePath)
	case ".docx":
		return parseDOCX(filePath)
	case ".pptx":
		return parsePPTX(filePath)
	case ".xlsx":
		return parseXLSX(filePath)
	case ".ods":
		return parseODS(filePath)
	case ".txt", ".md":
		return parseText(filePath)
	default:
		return nil, fmt.Errorf("unsupported file format: %s", ext)
	}
}

var doclingFormats = map[string]bool{
	".pdf":  true,
	".docx": true,
	".pptx": true,
}

// joinPages assembles per-page text into one marked-up document. Empty
// pages keep their marker so page numbering stays aligned with the
// source document.
func joinPages(pages []string) *Result {
	var b strings.Builder
	for i, page := range pages {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "--- PAGE %d ---\n\n%s", i+1, strings.TrimSpace(page))
	}
	return &Result{Markdown: b.String(), PageCount: len(pages)}
}
