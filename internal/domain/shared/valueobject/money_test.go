package valueobject

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCurrency(t *testing.T) {
	tests := []struct {
		in      string
		want    Currency
		wantErr bool
	}{
		{"PEN", PEN, false},
		{" usd ", USD, false},
		{"", "", true},
		{"CNY", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseCurrency(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewMoney_RoundsToTwoPlaces(t *testing.T) {
	m, err := NewMoney(decimal.RequireFromString("10.005"), PEN)
	require.NoError(t, err)
	assert.Equal(t, "10.01", m.Amount().StringFixed(2))

	_, err = NewMoney(decimal.NewFromInt(1), "EUR")
	assert.Error(t, err)
}

func TestMoney_AddSubtract(t *testing.T) {
	a, _ := NewMoneyFromString("100.50", USD)
	b, _ := NewMoneyFromString("0.50", USD)

	sum, err := a.Add(b)
	require.NoError(t, err)
	assert.True(t, sum.Amount().Equal(decimal.NewFromInt(101)))

	diff, err := a.Subtract(b)
	require.NoError(t, err)
	assert.True(t, diff.Amount().Equal(decimal.NewFromInt(100)))

	pen, _ := NewMoneyFromString("1", PEN)
	_, err = a.Add(pen)
	assert.Error(t, err)
	_, err = a.Subtract(pen)
	assert.Error(t, err)
}

func TestMoney_Split(t *testing.T) {
	t.Run("remainder goes to last part", func(t *testing.T) {
		m, _ := NewMoneyFromString("100.00", PEN)
		parts, err := m.Split(3)
		require.NoError(t, err)
		require.Len(t, parts, 3)
		assert.Equal(t, "33.33", parts[0].Amount().StringFixed(2))
		assert.Equal(t, "33.33", parts[1].Amount().StringFixed(2))
		assert.Equal(t, "33.34", parts[2].Amount().StringFixed(2))
	})

	t.Run("parts sum to original", func(t *testing.T) {
		for _, s := range []string{"1000.00", "12345.67", "0.05", "99999.99"} {
			for n := 1; n <= 37; n++ {
				m, _ := NewMoneyFromString(s, USD)
				parts, err := m.Split(n)
				require.NoError(t, err)
				total := Zero(USD)
				for _, p := range parts {
					total, _ = total.Add(p)
				}
				assert.True(t, total.Equals(m), "%s / %d", s, n)
			}
		}
	})

	t.Run("rejects non-positive parts", func(t *testing.T) {
		m, _ := NewMoneyFromString("10", PEN)
		_, err := m.Split(0)
		assert.Error(t, err)
	})
}

func TestMoney_JSON(t *testing.T) {
	m, _ := NewMoneyFromString("42.1", PEN)
	data, err := json.Marshal(m)
	require.NoError(t, err)
	assert.JSONEq(t, `{"amount":"42.10","currency":"PEN"}`, string(data))
	assert.Equal(t, "42.10 PEN", m.String())
}
