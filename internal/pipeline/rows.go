package pipeline

import (
	"strings"
	"time"
)

// TemplateHeader is the column layout of a payout file.
var TemplateHeader = []string{"employee_id", "amount", "currency", "date", "note"}

// Row is one data line of a payout file. Missing cells are empty strings.
type Row struct {
	Line       int
	EmployeeID string
	Amount     string
	Currency   string
	Date       string
	Note       string
}

// RowsFromCSV converts parsed records into rows. When skipHeader is set the
// first record is dropped without being inspected.
func RowsFromCSV(records [][]string, skipHeader bool) []Row {
	start := 0
	if skipHeader {
		start = 1
	}
	if len(records) <= start {
		return nil
	}

	rows := make([]Row, 0, len(records)-start)
	for i := start; i < len(records); i++ {
		rec := records[i]
		rows = append(rows, Row{
			Line:       i + 1,
			EmployeeID: cell(rec, 0),
			Amount:     cell(rec, 1),
			Currency:   cell(rec, 2),
			Date:       cell(rec, 3),
			Note:       cell(rec, 4),
		})
	}
	return rows
}

// ParseRows is ParseCSV followed by RowsFromCSV with the header skipped.
func ParseRows(text string) []Row {
	return RowsFromCSV(ParseCSV(text), true)
}

func cell(rec []string, i int) string {
	if i < len(rec) {
		return rec[i]
	}
	return ""
}

// Template returns a downloadable example payout file dated today.
func Template(today time.Time) string {
	var b strings.Builder
	b.WriteString(strings.Join(TemplateHeader, ","))
	b.WriteString("\n")
	b.WriteString(strings.Join([]string{"emp_XXXX", "100000", "XAF", today.Format(time.DateOnly), "September salary"}, ","))
	b.WriteString("\n")
	return b.String()
}
