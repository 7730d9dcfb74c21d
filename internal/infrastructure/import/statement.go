package csvimport

import (
	"errors"
	"io"
	"time"

	"github.com/shopspring/decimal"

	"github.com/realestate/backend/internal/domain/financing"
)

// Statement columns
const (
	ColBankName      = "bank_name"
	ColReference     = "reference"
	ColCodeOperation = "code_operation"
	ColOperationDate = "operation_date"
	ColAmount        = "amount"
)

// RequiredColumns must all appear in the header row
var RequiredColumns = []string{ColBankName, ColReference, ColCodeOperation, ColOperationDate, ColAmount}

var dateLayouts = []string{"2006-01-02", "02/01/2006"}

// Statement is the parsed content of a bank statement file
type Statement struct {
	SubPayments []financing.SubPayment
	Errors      []RowError
}

// Total sums the amounts of the parsed sub-payments
func (s *Statement) Total() decimal.Decimal {
	total := decimal.Zero
	for _, sp := range s.SubPayments {
		total = total.Add(sp.Amount)
	}
	return total
}

// HasErrors reports whether any row failed to parse
func (s *Statement) HasErrors() bool {
	return len(s.Errors) > 0
}

// ParseStatement reads a bank statement. File-level problems are returned as
// errors; per-row problems are collected in Statement.Errors so the caller can
// report them all at once. maxRows <= 0 disables the row limit.
func ParseStatement(r io.Reader, maxRows int) (*Statement, error) {
	p, err := NewCSVParser(r)
	if err != nil {
		return nil, err
	}
	if err := p.ParseHeader(); err != nil {
		return nil, err
	}
	if missing := p.MissingHeaders(RequiredColumns); len(missing) > 0 {
		return nil, &MissingColumnsError{Columns: missing}
	}

	st := &Statement{}
	index := 0
	for {
		row, err := p.ReadRow()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			index++
			st.Errors = append(st.Errors, RowError{Row: index, Code: ErrCodeMalformedRow, Message: err.Error()})
			continue
		}
		if row.IsEmpty() {
			continue
		}
		index++
		if maxRows > 0 && index > maxRows {
			return nil, ErrTooManyRows
		}

		sp, rowErrs := parseRow(index, row)
		if len(rowErrs) > 0 {
			st.Errors = append(st.Errors, rowErrs...)
			continue
		}
		st.SubPayments = append(st.SubPayments, sp)
	}

	if index == 0 {
		return nil, ErrNoDataRows
	}
	return st, nil
}

func parseRow(index int, row *Row) (financing.SubPayment, []RowError) {
	var errs []RowError
	required := func(col string) string {
		v := row.Get(col)
		if v == "" {
			errs = append(errs, RowError{Row: index, Column: col, Code: ErrCodeRequiredField, Message: col + " is required"})
		}
		return v
	}

	sp := financing.SubPayment{
		BankName:      required(ColBankName),
		Reference:     required(ColReference),
		CodeOperation: required(ColCodeOperation),
		FileIndex:     index,
	}

	if raw := required(ColOperationDate); raw != "" {
		d, ok := parseDate(raw)
		if !ok {
			errs = append(errs, RowError{Row: index, Column: ColOperationDate, Code: ErrCodeInvalidFormat,
				Message: "operation_date must be YYYY-MM-DD or DD/MM/YYYY", Value: raw})
		}
		sp.OperationDate = d
	}

	if raw := required(ColAmount); raw != "" {
		amount, err := decimal.NewFromString(raw)
		switch {
		case err != nil:
			errs = append(errs, RowError{Row: index, Column: ColAmount, Code: ErrCodeInvalidFormat,
				Message: "amount must be a decimal number", Value: raw})
		case !amount.IsPositive():
			errs = append(errs, RowError{Row: index, Column: ColAmount, Code: ErrCodeInvalidRange,
				Message: "amount must be greater than zero", Value: raw})
		default:
			sp.Amount = amount.Round(2)
		}
	}
	return sp, errs
}

func parseDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if d, err := time.Parse(layout, s); err == nil {
			return d, true
		}
	}
	return time.Time{}, false
}
