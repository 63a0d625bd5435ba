package importer

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDecimal(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"10", "10"},
		{"10,5", "10.5"},
		{"10.5", "10.5"},
		{"1.234,56", "1234.56"},
		{"1,234.56", "1234.56"},
		{"R$ 1.234,56", "1234.56"},
		{"R$ 38,50", "38.5"},
		{"US$ 12.00", "12"},
		{"1.234.567", "1234567"},
		{"1,234,567", "1234567"},
		{"-3,20", "-3.2"},
		{"(3,20)", "-3.2"},
		{"R$ -0,01", "-0.01"},
		{" 150 ", "150"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDecimal(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestParseDecimalInvalid(t *testing.T) {
	for _, in := range []string{"", "R$", "abc", "1,2x"} {
		t.Run(in, func(t *testing.T) {
			_, err := ParseDecimal(in)
			assert.True(t, errors.Is(err, ErrInvalidNumber))
		})
	}
}

func TestParseDate(t *testing.T) {
	br, ok := ParseDate("15/01/2024")
	require.True(t, ok)
	iso, ok := ParseDate("2024-01-15")
	require.True(t, ok)
	assert.Equal(t, br, iso)
	assert.Equal(t, "2024-01-15", br.String())

	tests := []struct {
		in   string
		want string
	}{
		{"15-01-2024", "2024-01-15"},
		{"2024/01/15", "2024-01-15"},
		{"2024-01-15 00:00:00", "2024-01-15"},
		{"2024-01-15T10:30:00Z", "2024-01-15"},
		{" 01/02/2023 ", "2023-02-01"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			d, ok := ParseDate(tt.in)
			require.True(t, ok)
			assert.Equal(t, tt.want, d.String())
		})
	}

	for _, in := range []string{"", "jan 2024", "31/02/2024", "2024-13-01"} {
		_, ok := ParseDate(in)
		assert.False(t, ok, in)
	}
}
