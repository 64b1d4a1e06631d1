package chunker

import (
	"fmt"
	"strings"
)

// summarizeTable builds a short rule-based description of a markdown
// table. The summary is what gets embedded for retrieval; it stays cheap
// on purpose because ingestion cannot afford an LLM call per table.
func summarizeTable(table string) string {
	rows := parseTableRows(table)
	if len(rows) == 0 {
		return "Table"
	}

	header := rows[0]
	dataRows := rows[1:]
	// drop the markdown separator row (|---|---|) if present
	if len(dataRows) > 0 && isSeparatorRow(dataRows[0]) {
		dataRows = dataRows[1:]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Table with %d columns and %d rows.", len(header), len(dataRows))
	if cols := joinNonEmpty(header, 8); cols != "" {
		fmt.Fprintf(&b, " Columns: %s.", cols)
	}
	if len(dataRows) > 0 {
		first := make([]string, 0, len(dataRows))
		for _, row := range dataRows {
			if len(row) > 0 {
				first = append(first, row[0])
			}
		}
		if vals := joinNonEmpty(first, 10); vals != "" {
			fmt.Fprintf(&b, " Row labels: %s.", vals)
		}
	}
	return b.String()
}

func parseTableRows(table string) [][]string {
	var rows [][]string
	for _, line := range strings.Split(table, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "|") {
			continue
		}
		line = strings.Trim(line, "|")
		cells := strings.Split(line, "|")
		for i := range cells {
			cells[i] = strings.TrimSpace(cells[i])
		}
		rows = append(rows, cells)
	}
	return rows
}

func isSeparatorRow(cells []string) bool {
	for _, c := range cells {
		if c == "" {
			continue
		}
		if strings.Trim(c, "-: ") != "" {
			return false
		}
	}
	return true
}

func joinNonEmpty(values []string, limit int) string {
	var kept []string
	for _, v := range values {
		if v == "" {
			continue
		}
		kept = append(kept, v)
		if len(kept) == limit {
			break
		}
	}
	return strings.Join(kept, ", ")
}
