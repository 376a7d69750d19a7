package transactions

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/angelmondragon/moneypilot-backend/pkg/errors"
)

var (
	dateColumns        = []string{"Date", "Posted", "posted_at"}
	amountColumns      = []string{"Amount", "amount"}
	descriptionColumns = []string{"Description", "Payee", "Memo"}

	dateLayouts = []string{"2006-01-02", time.RFC3339, "01/02/2006"}
)

// CSVRow is one parsed bank line.
type CSVRow struct {
	Line        int
	PostedAt    time.Time
	Amount      decimal.Decimal
	Description string
}

type columnIndex struct {
	date, amount int
	description  []int
}

// ParseCSV reads a header-driven bank export. Any malformed row fails the
// whole file with a validation error naming the line.
func ParseCSV(r io.Reader) ([]CSVRow, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "csv is empty")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read csv header")
	}
	cols, err := indexColumns(header)
	if err != nil {
		return nil, err
	}

	var rows []CSVRow
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			line := 0
			if errors.As(err, &parseErr) {
				line = parseErr.Line
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read csv row").
				WithDetails(map[string]any{"line": line})
		}
		line, _ := reader.FieldPos(0)
		if blankRecord(record) {
			continue
		}
		row, err := parseRecord(record, cols, line)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func indexColumns(header []string) (columnIndex, error) {
	positions := map[string]int{}
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		if _, seen := positions[name]; !seen {
			positions[name] = i
		}
	}
	lookup := func(names []string) int {
		for _, name := range names {
			if idx, ok := positions[name]; ok {
				return idx
			}
		}
		return -1
	}

	cols := columnIndex{date: lookup(dateColumns), amount: lookup(amountColumns)}
	for _, name := range descriptionColumns {
		if idx, ok := positions[name]; ok {
			cols.description = append(cols.description, idx)
		}
	}
	var missing []string
	if cols.date < 0 {
		missing = append(missing, strings.Join(dateColumns, "|"))
	}
	if cols.amount < 0 {
		missing = append(missing, strings.Join(amountColumns, "|"))
	}
	if len(missing) > 0 {
		return columnIndex{}, pkgerrors.New(pkgerrors.CodeValidation, "csv header is missing required columns").
			WithDetails(map[string]any{"missing": missing})
	}
	return cols, nil
}

func parseRecord(record []string, cols columnIndex, line int) (CSVRow, error) {
	rawDate := field(record, cols.date)
	postedAt, err := parseDate(rawDate)
	if err != nil {
		return CSVRow{}, rowError(line, "date", rawDate)
	}
	rawAmount := field(record, cols.amount)
	amount, err := parseAmount(rawAmount)
	if err != nil {
		return CSVRow{}, rowError(line, "amount", rawAmount)
	}

	var desc string
	for _, idx := range cols.description {
		if v := field(record, idx); v != "" {
			desc = v
			break
		}
	}
	return CSVRow{Line: line, PostedAt: postedAt, Amount: amount, Description: desc}, nil
}

func parseDate(value string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", value)
}

func parseAmount(value string) (decimal.Decimal, error) {
	cleaned := strings.NewReplacer("$", "", ",", "", " ", "").Replace(value)
	if cleaned == "" {
		return decimal.Zero, fmt.Errorf("empty amount")
	}
	return decimal.NewFromString(cleaned)
}

func rowError(line int, column, value string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("line %d: invalid %s %q", line, column, value)).
		WithDetails(map[string]any{"line": line, "column": column, "value": value})
}

func field(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

func blankRecord(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
