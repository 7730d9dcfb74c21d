// Package csvimport reads bank statement CSV files into auto-approved
// batch sub-payments.
package csvimport

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// CSVParser reads a header row and then maps each record by column name
type CSVParser struct {
	reader    *csv.Reader
	headers   []string
	headerMap map[string]int
	line      int
}

// ParserOption configures a CSVParser
type ParserOption func(*csv.Reader)

// WithDelimiter sets the field delimiter (default is comma)
func WithDelimiter(d rune) ParserOption {
	return func(r *csv.Reader) { r.Comma = d }
}

// NewCSVParser strips a UTF-8 BOM, checks the leading bytes are valid UTF-8
// and prepares a lenient csv reader.
func NewCSVParser(r io.Reader, opts ...ParserOption) (*CSVParser, error) {
	br := bufio.NewReader(r)

	head, err := br.Peek(peekSize)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	truncated := len(head) == peekSize
	if len(head) >= 3 && head[0] == 0xEF && head[1] == 0xBB && head[2] == 0xBF {
		_, _ = br.Discard(3)
		head = head[3:]
	}
	if len(strings.TrimSpace(string(head))) == 0 {
		return nil, ErrEmptyFile
	}
	if !validUTF8Prefix(head, truncated) {
		return nil, ErrInvalidEncoding
	}

	cr := csv.NewReader(br)
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1
	for _, opt := range opts {
		opt(cr)
	}
	return &CSVParser{reader: cr, headerMap: map[string]int{}}, nil
}

const peekSize = 4096

// validUTF8Prefix tolerates a multi-byte rune cut off by the peek window
func validUTF8Prefix(b []byte, truncated bool) bool {
	if utf8.Valid(b) {
		return true
	}
	if !truncated {
		return false
	}
	for i := 1; i < utf8.UTFMax && i < len(b); i++ {
		if utf8.Valid(b[:len(b)-i]) {
			return true
		}
	}
	return false
}

// ParseHeader reads the header row. Names are trimmed and lowercased.
func (p *CSVParser) ParseHeader() error {
	record, err := p.reader.Read()
	if errors.Is(err, io.EOF) {
		return ErrMissingHeader
	}
	if err != nil {
		return fmt.Errorf("failed to read header: %w", err)
	}
	p.line = 1
	p.headers = make([]string, len(record))
	for i, h := range record {
		name := strings.ToLower(strings.TrimSpace(h))
		p.headers[i] = name
		if name != "" {
			p.headerMap[name] = i
		}
	}
	if len(p.headerMap) == 0 {
		return ErrMissingHeader
	}
	return nil
}

// MissingHeaders returns the required columns the header lacks
func (p *CSVParser) MissingHeaders(required []string) []string {
	var missing []string
	for _, h := range required {
		if _, ok := p.headerMap[h]; !ok {
			missing = append(missing, h)
		}
	}
	return missing
}

// Row is one data record keyed by header name
type Row struct {
	Line int
	Data map[string]string
}

// Get returns the trimmed value of column, or ""
func (r *Row) Get(column string) string {
	return r.Data[column]
}

// IsEmpty reports whether every cell is blank
func (r *Row) IsEmpty() bool {
	for _, v := range r.Data {
		if v != "" {
			return false
		}
	}
	return true
}

// ReadRow returns the next record, or io.EOF
func (p *CSVParser) ReadRow() (*Row, error) {
	record, err := p.reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, io.EOF
	}
	p.line++
	if err != nil {
		return nil, fmt.Errorf("error reading line %d: %w", p.line, err)
	}

	row := &Row{Line: p.line, Data: make(map[string]string, len(p.headers))}
	for i, h := range p.headers {
		if h == "" {
			continue
		}
		if i < len(record) {
			row.Data[h] = strings.TrimSpace(record[i])
		} else {
			row.Data[h] = ""
		}
	}
	return row, nil
}
