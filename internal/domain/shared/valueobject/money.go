package valueobject

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Currency is an ISO 4217 code accepted for sale financing
type Currency string

const (
	PEN Currency = "PEN" // Peruvian Sol
	USD Currency = "USD" // US Dollar
)

// DefaultCurrency is used when a sale does not state one
const DefaultCurrency = PEN

// MoneyPlaces is the number of fractional digits kept for every amount
const MoneyPlaces int32 = 2

// ParseCurrency validates and normalizes a currency code
func ParseCurrency(code string) (Currency, error) {
	switch c := Currency(strings.ToUpper(strings.TrimSpace(code))); c {
	case PEN, USD:
		return c, nil
	case "":
		return "", errors.New("currency cannot be empty")
	default:
		return "", fmt.Errorf("unsupported currency: %s", code)
	}
}

// IsValid reports whether the currency is supported
func (c Currency) IsValid() bool {
	return c == PEN || c == USD
}

// Money is an immutable amount in a currency, kept at two fractional digits
type Money struct {
	amount   decimal.Decimal
	currency Currency
}

// NewMoney creates Money rounded half-up to two places
func NewMoney(amount decimal.Decimal, currency Currency) (Money, error) {
	if !currency.IsValid() {
		return Money{}, fmt.Errorf("unsupported currency: %q", currency)
	}
	return Money{amount: amount.Round(MoneyPlaces), currency: currency}, nil
}

// NewMoneyFromString parses a decimal string into Money
func NewMoneyFromString(amount string, currency Currency) (Money, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return Money{}, fmt.Errorf("invalid amount string: %w", err)
	}
	return NewMoney(d, currency)
}

// Zero returns a zero amount in the currency
func Zero(currency Currency) Money {
	return Money{amount: decimal.Zero, currency: currency}
}

func (m Money) Amount() decimal.Decimal { return m.amount }
func (m Money) Currency() Currency      { return m.currency }
func (m Money) IsZero() bool            { return m.amount.IsZero() }
func (m Money) IsPositive() bool        { return m.amount.IsPositive() }
func (m Money) IsNegative() bool        { return m.amount.IsNegative() }

// Add returns the sum; currencies must match
func (m Money) Add(other Money) (Money, error) {
	if m.currency != other.currency {
		return Money{}, fmt.Errorf("cannot add money with different currencies: %s and %s", m.currency, other.currency)
	}
	return Money{amount: m.amount.Add(other.amount), currency: m.currency}, nil
}

// Subtract returns the difference; currencies must match
func (m Money) Subtract(other Money) (Money, error) {
	if m.currency != other.currency {
		return Money{}, fmt.Errorf("cannot subtract money with different currencies: %s and %s", m.currency, other.currency)
	}
	return Money{amount: m.amount.Sub(other.amount), currency: m.currency}, nil
}

// Equals compares amount and currency
func (m Money) Equals(other Money) bool {
	return m.currency == other.currency && m.amount.Equal(other.amount)
}

// Split divides the amount into n parts. Every part except the last is the
// even share truncated to two places; the last part absorbs the remainder,
// so the parts always sum to the original amount.
func (m Money) Split(n int) ([]Money, error) {
	if n <= 0 {
		return nil, errors.New("parts must be positive")
	}
	base := m.amount.Div(decimal.NewFromInt(int64(n))).Truncate(MoneyPlaces)
	last := m.amount.Sub(base.Mul(decimal.NewFromInt(int64(n - 1))))

	parts := make([]Money, n)
	for i := 0; i < n-1; i++ {
		parts[i] = Money{amount: base, currency: m.currency}
	}
	parts[n-1] = Money{amount: last, currency: m.currency}
	return parts, nil
}

// String returns "123.45 PEN"
func (m Money) String() string {
	return fmt.Sprintf("%s %s", m.amount.StringFixed(MoneyPlaces), m.currency)
}

// MarshalJSON implements json.Marshaler
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Amount   string   `json:"amount"`
		Currency Currency `json:"currency"`
	}{
		Amount:   m.amount.StringFixed(MoneyPlaces),
		Currency: m.currency,
	})
}

// RoundMoney rounds a raw decimal half-up to two places
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyPlaces)
}
