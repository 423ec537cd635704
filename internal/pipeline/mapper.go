package pipeline

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/staffdesk/hradmin/internal/domain/employee"
	"github.com/staffdesk/hradmin/internal/domain/payout"
)

// Mapper resolves rows against a directory snapshot into gateway requests.
type Mapper struct {
	directory     employee.Directory
	medium        payout.Medium
	defaultDate   string
	strictAmounts bool
	now           func() time.Time
}

type MapperOption func(*Mapper)

// WithStrictAmounts rejects non-numeric, non-finite and non-positive amounts
// before dispatch instead of passing NaN through to the gateway.
func WithStrictAmounts(strict bool) MapperOption {
	return func(m *Mapper) {
		m.strictAmounts = strict
	}
}

func WithClock(now func() time.Time) MapperOption {
	return func(m *Mapper) {
		m.now = now
	}
}

func NewMapper(directory employee.Directory, medium payout.Medium, defaultDate string, opts ...MapperOption) *Mapper {
	m := &Mapper{
		directory:   directory,
		medium:      medium,
		defaultDate: defaultDate,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Map resolves row (the index-th data row of its batch). The returned result
// always carries the row's identity; when the request is nil the result is a
// rejection and nothing must be sent.
func (m *Mapper) Map(row Row, index int) (*payout.Request, payout.RowResult) {
	date := row.Date
	if date == "" {
		date = m.defaultDate
	}

	result := payout.RowResult{
		Line:       row.Line,
		EmployeeID: row.EmployeeID,
		Amount:     row.Amount,
		Currency:   row.Currency,
		Date:       date,
	}

	if row.EmployeeID == "" {
		return nil, reject(result, payout.ReasonMissingEmployeeID, "employee id is empty")
	}
	entry, ok := m.directory.Lookup(row.EmployeeID)
	if !ok {
		return nil, reject(result, payout.ReasonEmployeeNotFound, "employee not found")
	}

	amount := parseAmount(row.Amount)
	if m.strictAmounts && !validAmount(amount) {
		return nil, reject(result, payout.ReasonInvalidAmount, "amount "+strconv.Quote(row.Amount)+" is not a positive number")
	}

	note := row.Note
	if note == "" {
		note = "Payout on " + date
	}

	result.ExternalID = payout.NewBatchToken(m.now(), row.EmployeeID, index)
	return &payout.Request{
		Amount:     amount,
		Phone:      entry.Phone,
		Medium:     m.medium,
		Name:       entry.DisplayName,
		Email:      entry.Email,
		UserID:     row.EmployeeID,
		ExternalID: result.ExternalID,
		Message:    note,
		Currency:   row.Currency,
	}, result
}

// ManualInput is a payout entered by hand rather than read from a file.
type ManualInput struct {
	EmployeeID string
	Amount     string
	Currency   string
	Medium     string
	Date       string
	Note       string
}

// MapManual applies the row rules to a single hand-entered payout. The
// medium comes from the input instead of the mapper.
func (m *Mapper) MapManual(in ManualInput) (*payout.Request, payout.RowResult) {
	row := Row{
		Line:       1,
		EmployeeID: strings.TrimSpace(in.EmployeeID),
		Amount:     strings.TrimSpace(in.Amount),
		Currency:   strings.TrimSpace(in.Currency),
		Date:       strings.TrimSpace(in.Date),
		Note:       strings.TrimSpace(in.Note),
	}

	medium, err := payout.ParseMedium(in.Medium)
	if err != nil {
		date := row.Date
		if date == "" {
			date = m.defaultDate
		}
		return nil, reject(payout.RowResult{
			Line:       row.Line,
			EmployeeID: row.EmployeeID,
			Amount:     row.Amount,
			Currency:   row.Currency,
			Date:       date,
		}, payout.ReasonInvalidMedium, err.Error())
	}

	req, result := m.Map(row, 0)
	if req == nil {
		return nil, result
	}

	req.Medium = medium
	req.ExternalID = payout.NewManualToken(m.now(), row.EmployeeID)
	result.ExternalID = req.ExternalID
	return req, result
}

func parseAmount(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

func validAmount(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v > 0
}

func reject(r payout.RowResult, reason payout.Reason, detail string) payout.RowResult {
	r.Outcome = payout.OutcomeRejected
	r.Reason = reason
	r.Detail = detail
	return r
}
