package usecase

import (
	"fmt"
	"strings"

	"prospect-video-generator/internal/domain"
	"prospect-video-generator/internal/domain/model"
)

// DefaultPreviewRows is the number of rows returned alongside an upload.
const DefaultPreviewRows = 5

// ParseCSV splits text into a header list and rows keyed by header.
// Blank lines are skipped; the first remaining line is the header. Fields are
// split on commas and trimmed. Quoted fields are not supported: a comma always
// separates. Short rows are padded with "" and extra fields are dropped.
func ParseCSV(text string) (*model.CSVData, error) {
	lines := make([]string, 0, strings.Count(text, "\n")+1)
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: no non-blank lines", domain.ErrParse)
	}

	headers := splitFields(lines[0])
	rows := make([]map[string]string, 0, len(lines)-1)
	for _, line := range lines[1:] {
		values := splitFields(line)
		row := make(map[string]string, len(headers))
		for i, h := range headers {
			if i < len(values) {
				row[h] = values[i]
			} else {
				row[h] = ""
			}
		}
		rows = append(rows, row)
	}
	return &model.CSVData{Headers: headers, Rows: rows}, nil
}

func splitFields(line string) []string {
	parts := strings.Split(line, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// PreviewRows returns at most n leading rows.
func PreviewRows(data *model.CSVData, n int) []map[string]string {
	if data == nil || n <= 0 {
		return []map[string]string{}
	}
	if len(data.Rows) < n {
		n = len(data.Rows)
	}
	return data.Rows[:n]
}
