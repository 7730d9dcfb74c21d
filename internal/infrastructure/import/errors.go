package csvimport

import (
	"errors"
	"fmt"
)

// Row error codes
const (
	ErrCodeRequiredField = "REQUIRED"
	ErrCodeInvalidFormat = "INVALID_FORMAT"
	ErrCodeInvalidRange  = "NOT_POSITIVE"
	ErrCodeMalformedRow  = "MALFORMED_ROW"
)

var (
	ErrEmptyFile       = errors.New("CSV file is empty")
	ErrInvalidEncoding = errors.New("CSV file is not valid UTF-8")
	ErrMissingHeader   = errors.New("CSV file missing header row")
	ErrNoDataRows      = errors.New("CSV file contains no data rows")
	ErrTooManyRows     = errors.New("CSV file exceeds the maximum number of rows")
)

// MissingColumnsError lists required header columns absent from the file
type MissingColumnsError struct {
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("CSV file is missing required columns: %v", e.Columns)
}

// RowError is a problem with one cell or line of the file. Row is the
// 1-based data row, matching the sub-payment file index.
type RowError struct {
	Row     int    `json:"row"`
	Column  string `json:"column,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Value   string `json:"value,omitempty"`
}

func (e RowError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("row %d, column '%s': %s", e.Row, e.Column, e.Message)
	}
	return fmt.Sprintf("row %d: %s", e.Row, e.Message)
}
