package chunker

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"policy-rag/internal/models"
)

// Engine splits extracted document markdown into retrieval-sized chunks.
// Detected tables are carried whole as single chunks; the remaining text
// is split recursively on a prioritized separator list with a fixed
// overlap between consecutive chunks.
type Engine struct {
	chunkSize    int
	chunkOverlap int
}

// separators in priority order. The trailing " " is the hard fallback;
// content that not even a space can split is emitted oversized as-is.
var separators = []string{"\n\n", "\n", ". ", " "}

var (
	pageMarkerRe  = regexp.MustCompile(models.PageMarkerRegex)
	placeholderRe = regexp.MustCompile(models.TablePlaceholderRegex)
	tableRowRe    = regexp.MustCompile(`^\s*\|.*\|\s*$`)
)

const (
	defaultChunkSize    = 1000
	defaultChunkOverlap = 200
)

func New(chunkSize, chunkOverlap int) *Engine {
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		chunkOverlap = defaultChunkOverlap
		if chunkOverlap >= chunkSize {
			chunkOverlap = chunkSize / 2
		}
	}
	return &Engine{chunkSize: chunkSize, chunkOverlap: chunkOverlap}
}

// ChunkDocument chunks one document's extracted markdown into a new
// chunk-version set. Prior versions are untouched; the caller promotes
// the new version once the chunks are stored.
func (e *Engine) ChunkDocument(docID, tenantID string, version int, markdown string) ([]models.Chunk, error) {
	if strings.TrimSpace(markdown) == "" {
		return nil, fmt.Errorf("document %s: no extracted text to chunk", docID)
	}

	var chunks []models.Chunk
	position := 0
	for _, page := range splitPages(markdown) {
		body, tables := extractTables(page.text)
		for _, seg := range splitAtPlaceholders(body) {
			if seg.tableIndex >= 0 {
				table := tables[seg.tableIndex]
				chunks = append(chunks, models.Chunk{
					DocumentID: docID,
					TenantID:   tenantID,
					Version:    version,
					Position:   position,
					PageNumber: page.number,
					Type:       models.ChunkTypeTable,
					Content:    table,
					Summary:    summarizeTable(table),
				})
				position++
				continue
			}
			for _, text := range e.splitText(seg.text) {
				chunks = append(chunks, models.Chunk{
					DocumentID: docID,
					TenantID:   tenantID,
					Version:    version,
					Position:   position,
					PageNumber: page.number,
					Type:       models.ChunkTypeText,
					Content:    text,
				})
				position++
			}
		}
	}
	return chunks, nil
}

// DocumentInput is one document in a batch (re)chunking run.
type DocumentInput struct {
	DocumentID string
	TenantID   string
	Version    int
	Markdown   string
}

// BatchResult reports the outcome for one document of a batch run.
type BatchResult struct {
	DocumentID string
	Chunks     []models.Chunk
	Err        error
}

// ChunkBatch chunks a batch of documents. A failure on one document is
// reported in its result and logged; it never aborts the rest, so the
// failed document simply stays at its previous chunk version.
func (e *Engine) ChunkBatch(docs []DocumentInput) []BatchResult {
	results := make([]BatchResult, 0, len(docs))
	for _, doc := range docs {
		chunks, err := e.ChunkDocument(doc.DocumentID, doc.TenantID, doc.Version, doc.Markdown)
		if err != nil {
			log.Error().Err(err).Str("document_id", doc.DocumentID).Msg("Chunking failed, document keeps its previous chunk version")
		}
		results = append(results, BatchResult{DocumentID: doc.DocumentID, Chunks: chunks, Err: err})
	}
	return results
}

type page struct {
	number int
	text   string
}

// splitPages cuts the markdown at "--- PAGE N ---" markers and attributes
// the text after each marker to that page. Text before the first marker,
// or a document without markers, maps to page 1.
func splitPages(markdown string) []page {
	matches := pageMarkerRe.FindAllStringSubmatchIndex(markdown, -1)
	if len(matches) == 0 {
		return []page{{number: 1, text: markdown}}
	}

	var pages []page
	if lead := markdown[:matches[0][0]]; strings.TrimSpace(lead) != "" {
		pages = append(pages, page{number: 1, text: lead})
	}
	for i, m := range matches {
		num, _ := strconv.Atoi(markdown[m[2]:m[3]])
		end := len(markdown)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		pages = append(pages, page{number: num, text: markdown[m[1]:end]})
	}
	return pages
}

// extractTables pulls contiguous markdown-table blocks out of the text,
// replacing each with a placeholder token. A block counts as a table when
// at least two consecutive lines are pipe-delimited rows. Tables are
// returned verbatim and are never split afterwards, whatever their size.
func extractTables(text string) (string, []string) {
	lines := strings.Split(text, "\n")
	var (
		out    []string
		tables []string
	)
	i := 0
	for i < len(lines) {
		if !tableRowRe.MatchString(lines[i]) {
			out = append(out, lines[i])
			i++
			continue
		}
		j := i
		for j < len(lines) && tableRowRe.MatchString(lines[j]) {
			j++
		}
		if j-i < 2 {
			// lone pipe line, not a table
			out = append(out, lines[i])
			i++
			continue
		}
		tables = append(tables, strings.Join(lines[i:j], "\n"))
		out = append(out, fmt.Sprintf(models.TablePlaceholderFormat, len(tables)-1))
		i = j
	}
	return strings.Join(out, "\n"), tables
}

type segment struct {
	text       string
	tableIndex int // -1 for plain text
}

// splitAtPlaceholders cuts the text at table placeholders so that each
// table re-enters the output as its own chunk at the right position.
func splitAtPlaceholders(text string) []segment {
	matches := placeholderRe.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return []segment{{text: text, tableIndex: -1}}
	}

	var segments []segment
	prev := 0
	for _, m := range matches {
		if before := text[prev:m[0]]; strings.TrimSpace(before) != "" {
			segments = append(segments, segment{text: before, tableIndex: -1})
		}
		idx, _ := strconv.Atoi(text[m[2]:m[3]])
		segments = append(segments, segment{tableIndex: idx})
		prev = m[1]
	}
	if rest := text[prev:]; strings.TrimSpace(rest) != "" {
		segments = append(segments, segment{text: rest, tableIndex: -1})
	}
	return segments
}

// splitText splits plain text into chunks of at most chunkSize characters
// with chunkOverlap characters repeated between consecutive chunks. The
// packing budget leaves room for the overlap seed so seeded chunks still
// fit the target size.
func (e *Engine) splitText(text string) []string {
	pieces := split(text, e.contentBudget(), separators)
	return e.merge(pieces)
}

func (e *Engine) contentBudget() int {
	return e.chunkSize - e.chunkOverlap
}

// split recursively cuts text on the separator list. Each resulting piece
// fits chunkSize unless no remaining separator occurs in it, in which
// case the piece survives oversized rather than being truncated.
func split(text string, size int, seps []string) []string {
	if len(text) <= size {
		return []string{text}
	}
	if len(seps) == 0 {
		return []string{text}
	}
	parts := strings.Split(text, seps[0])
	if len(parts) == 1 {
		return split(text, size, seps[1:])
	}

	var pieces []string
	for i, part := range parts {
		if i < len(parts)-1 {
			part += seps[0]
		}
		if len(part) > size {
			pieces = append(pieces, split(part, size, seps[1:])...)
			continue
		}
		pieces = append(pieces, part)
	}
	return pieces
}

// merge packs split pieces back into chunks up to chunkSize, seeding each
// new chunk with the overlap suffix of the previous one. Oversized
// unsplittable pieces stand alone without an overlap seed so the overlap
// never compounds the size violation.
func (e *Engine) merge(pieces []string) []string {
	var (
		chunks []string
		cur    strings.Builder
		seeded bool // cur holds only the overlap seed so far
	)
	flush := func() {
		if cur.Len() == 0 || seeded {
			cur.Reset()
			seeded = false
			return
		}
		if s := cur.String(); strings.TrimSpace(s) != "" {
			chunks = append(chunks, s)
		}
		cur.Reset()
		seeded = false
	}

	budget := e.contentBudget()
	limit := budget // first chunk carries no overlap seed
	for _, piece := range pieces {
		if piece == "" {
			continue
		}
		if len(piece) > budget {
			// oversized unsplittable piece, or one too big to share a
			// chunk with its overlap seed
			flush()
			if strings.TrimSpace(piece) != "" {
				chunks = append(chunks, piece)
			}
			limit = budget
			continue
		}
		if cur.Len() > 0 && !seeded && cur.Len()+len(piece) > limit {
			if s := cur.String(); strings.TrimSpace(s) != "" {
				chunks = append(chunks, s)
				tail := overlapTail(s, e.chunkOverlap)
				cur.Reset()
				cur.WriteString(tail)
				seeded = true
				limit = e.chunkSize
			} else {
				cur.Reset()
				limit = budget
			}
		}
		cur.WriteString(piece)
		seeded = false
	}
	flush()
	return chunks
}

func overlapTail(s string, overlap int) string {
	if overlap <= 0 || len(s) <= overlap {
		return ""
	}
	return s[len(s)-overlap:]
}

// Overlap reports the configured overlap length, letting callers strip it
// when reconstructing a document from consecutive text chunks.
func (e *Engine) Overlap() int {
	return e.chunkOverlap
}
