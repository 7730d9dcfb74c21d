package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// JSONColumn stores any JSON-serialisable value in a jsonb column
type JSONColumn[T any] struct {
	Data T
}

// NewJSONColumn wraps v for persistence
func NewJSONColumn[T any](v T) JSONColumn[T] {
	return JSONColumn[T]{Data: v}
}

// Value implements driver.Valuer
func (c JSONColumn[T]) Value() (driver.Value, error) {
	b, err := json.Marshal(c.Data)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner
func (c *JSONColumn[T]) Scan(value any) error {
	var zero T
	if value == nil {
		c.Data = zero
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("unsupported type for JSONColumn: %T", value)
	}
	if len(bytes) == 0 {
		c.Data = zero
		return nil
	}
	return json.Unmarshal(bytes, &c.Data)
}
