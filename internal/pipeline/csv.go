// Package pipeline turns an uploaded payout file into gateway requests and
// dispatches them one at a time, reporting progress after every row.
package pipeline

import "strings"

// ParseCSV splits text into lines (LF or CRLF) and each line on commas,
// trimming every cell. Quoting is not supported: a comma inside a field is a
// separator. Empty or whitespace-only input yields nil.
func ParseCSV(text string) [][]string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	lines := strings.Split(text, "\n")
	records := make([][]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSuffix(line, "\r")
		cells := strings.Split(line, ",")
		for i := range cells {
			cells[i] = strings.TrimSpace(cells[i])
		}
		records = append(records, cells)
	}
	return records
}
