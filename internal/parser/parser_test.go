package parser

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"policy-rag/internal/config"
	"policy-rag/internal/models"
)

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestParseFileText(t *testing.T) {
	path := writeTempFile(t, "notes.txt", "The policy covers water damage.\nThe deductible is $500.")

	p := New(nil)
	res, err := p.ParseFile(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, 1, res.PageCount)
	assert.Contains(t, res.Markdown, "--- PAGE 1 ---")
	assert.Contains(t, res.Markdown, "The deductible is $500.")
}

func TestParseFileUnsupported(t *testing.T) {
	path := writeTempFile(t, "image.png", "not really an image")

	p := New(nil)
	_, err := p.ParseFile(context.Background(), path)
	assert.ErrorContains(t, err, "unsupported file format")
}

func TestJoinPagesMarkersMatchExtraction(t *testing.T) {
	res := joinPages([]string{"first page", "", "third page"})
	assert.Equal(t, 3, res.PageCount)

	// every marker must be recognizable downstream
	markerRe := regexp.MustCompile(models.PageMarkerRegex)
	matches := markerRe.FindAllStringSubmatch(res.Markdown, -1)
	require.Len(t, matches, 3)
	assert.Equal(t, "1", matches[0][1])
	assert.Equal(t, "3", matches[2][1])
}

func TestSheetMarkdownIsPipeTable(t *testing.T) {
	out := sheetMarkdown("Premiums", [][]string{
		{"Coverage", "Annual Premium"},
		{"Dwelling", "$1,200"},
		{"Flood", "$480", "optional"},
	})

	assert.Contains(t, out, "## Sheet: Premiums")
	assert.Contains(t, out, "| Coverage | Annual Premium |  |")
	assert.Contains(t, out, "| --- | --- | --- |")
	assert.Contains(t, out, "| Flood | $480 | optional |")
}

func TestDoclingClientParse(t *testing.T) {
	var gotPath, gotField string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		file, header, err := r.FormFile("file")
		if err == nil {
			file.Close()
			gotField = header.Filename
		}
		json.NewEncoder(w).Encode(map[string]any{
			"markdown":   "--- PAGE 1 ---\n\n# Policy\n\nDeductible: $500.",
			"page_count": 1,
		})
	}))
	defer server.Close()

	client := NewDoclingClient(&config.ParserConfig{DoclingURL: server.URL})
	path := writeTempFile(t, "policy.pdf", "%PDF-1.4 fake")

	res, err := client.Parse(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "/parse", gotPath)
	assert.Equal(t, "policy.pdf", gotField)
	assert.Equal(t, 1, res.PageCount)
	assert.Contains(t, res.Markdown, "Deductible: $500.")
}

func TestDoclingClientServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "conversion failed", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewDoclingClient(&config.ParserConfig{DoclingURL: server.URL})
	path := writeTempFile(t, "policy.pdf", "%PDF-1.4 fake")

	_, err := client.Parse(context.Background(), path)
	assert.ErrorContains(t, err, "docling returned 500")
}

func TestPlainText(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"heading", "# Coverage Summary", "Coverage Summary"},
		{"emphasis", "the deductible is **$500** per *claim*", "the deductible is $500 per claim"},
		{"plain", "already plain text", "already plain text"},
		{"table", "| Coverage | Limit |\n| --- | --- |\n| Flood | $50,000 |", "Coverage Limit Flood $50,000"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, PlainText(tc.in))
		})
	}
}
