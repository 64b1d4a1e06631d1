package parser

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
	"github.com/tealeg/xlsx"
	"github.com/xuri/excelize/v2"
)

func parsePDF(filePath string) (*Result, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, err
	}

	reader, err := pdf.NewReader(f, stat.Size())
	if err != nil {
		return nil, err
	}

	numPages := reader.NumPage()
	pages := make([]string, 0, numPages)
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("extracting page %d: %w", i, err)
		}
		pages = append(pages, pageText)
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("pdf has no pages: %s", filePath)
	}
	return joinPages(pages), nil
}

func parseDOCX(filePath string) (*Result, error) {
	r, err := docx.ReadDocxFile(filePath)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	// DOCX carries no page boundaries, the whole body is one page
	content := r.Editable().GetContent()
	var b strings.Builder
	for _, p := range strings.Split(content, "\n") {
		if strings.TrimSpace(p) == "" {
			continue
		}
		b.WriteString(p)
		b.WriteString("\n\n")
	}
	return joinPages([]string{b.String()}), nil
}

// parsePPTX treats each slide as a page.
func parsePPTX(filePath string) (*Result, error) {
	f, err := zip.OpenReader(filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var slideNames []string
	slides := make(map[string]string)
	for _, file := range f.File {
		if !strings.HasPrefix(file.Name, "ppt/slides/slide") || !strings.HasSuffix(file.Name, ".xml") {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			continue
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			continue
		}
		slideNames = append(slideNames, file.Name)
		slides[file.Name] = extractTextFromXML(string(data))
	}
	if len(slideNames) == 0 {
		return nil, fmt.Errorf("pptx has no slides: %s", filePath)
	}

	// archive order is arbitrary, slide file names are not
	sort.Strings(slideNames)
	pages := make([]string, 0, len(slideNames))
	for _, name := range slideNames {
		pages = append(pages, slides[name])
	}
	return joinPages(pages), nil
}

// parseXLSX renders each sheet as a markdown table on its own page, so
// downstream table handling treats spreadsheet data the same way as
// tables inside documents.
func parseXLSX(filePath string) (*Result, error) {
	f, err := xlsx.OpenFile(filePath)
	if err != nil {
		return nil, err
	}

	var pages []string
	for _, sheet := range f.Sheets {
		var rows [][]string
		for _, row := range sheet.Rows {
			cells := make([]string, 0, len(row.Cells))
			for _, cell := range row.Cells {
				cells = append(cells, cell.String())
			}
			rows = append(rows, cells)
		}
		pages = append(pages, sheetMarkdown(sheet.Name, rows))
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("xlsx has no sheets: %s", filePath)
	}
	return joinPages(pages), nil
}

func parseODS(filePath string) (*Result, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var pages []string
	for _, sheetName := range f.GetSheetList() {
		rows, err := f.GetRows(sheetName)
		if err != nil {
			continue
		}
		pages = append(pages, sheetMarkdown(sheetName, rows))
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("spreadsheet has no sheets: %s", filePath)
	}
	return joinPages(pages), nil
}

func parseText(filePath string) (*Result, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	return joinPages([]string{string(data)}), nil
}

// sheetMarkdown renders a sheet as a heading plus a pipe table. The
// first row is used as the header row.
func sheetMarkdown(name string, rows [][]string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## Sheet: %s\n\n", name)

	width := 0
	for _, row := range rows {
		if len(row) > width {
			width = len(row)
		}
	}
	if width == 0 {
		return b.String()
	}

	for i, row := range rows {
		b.WriteString("|")
		for c := 0; c < width; c++ {
			val := ""
			if c < len(row) {
				val = strings.TrimSpace(row[c])
			}
			b.WriteString(" " + val + " |")
		}
		b.WriteString("\n")
		if i == 0 {
			b.WriteString("|" + strings.Repeat(" --- |", width) + "\n")
		}
	}
	return b.String()
}

func extractTextFromXML(xmlContent string) string {
	var text strings.Builder
	parts := strings.Split(xmlContent, "<a:t>")
	for i, part := range parts {
		if i == 0 {
			continue
		}
		if endIdx := strings.Index(part, "</a:t>"); endIdx >= 0 {
			text.WriteString(part[:endIdx] + " ")
		}
	}
	return text.String()
}
