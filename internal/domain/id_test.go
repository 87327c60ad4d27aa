package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuoteID_String(t *testing.T) {
	assert.Equal(t, "42", QuoteID(42).String())
	assert.True(t, QuoteID(1).Valid())
	assert.False(t, QuoteID(0).Valid())
}

func TestParseQuoteID(t *testing.T) {
	tests := []struct {
		input    string
		expected QuoteID
	}{
		{"7", 7},
		{" 12 ", 12},
		{"12.", 12},
		{"#12", 12},
		{"quote 12", 12},
		{"number 3", 3},
		{"one", 1},
		{"twelve", 12},
		{"forty two", 42},
		{"forty-two", 42},
		{"ninety nine", 99},
		{"one hundred", 100},
		{"a hundred", 100},
		{"one hundred and five", 105},
		{"two thousand three hundred", 2300},
		{"for", 4},
		{"to", 2},
		{"Quote Number Seven.", 7},
		{"one hundred twenty five", 125},
		{"2 thousand", 2000},
		{"a thousand and one", 1001},
		{"two hundred thousand", 200000},
		// Digits read one at a time are joined, not added.
		{"one two three", 123},
		{"1 2", 12},
		{"four two", 42},
		{"one zero", 10},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			id, err := ParseQuoteID(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, id)
		})
	}
}

func TestParseQuoteID_Invalid(t *testing.T) {
	tests := []string{
		"",
		"   ",
		"quote",
		"zero",
		"0",
		"banana",
		"twelve bananas",
		"five twenty",
		"twelve twelve",
		"hundred hundred",
		"forty two hundred",
		"twenty ten",
		"12 3",
		"thousand",
		"one thousand two thousand",
		"zero zero",
		"99999999999999999999999",
		"9 9 9 9 9 9 9 9 9 9 9 9 9 9 9 9 9 9 9 9 9",
	}

	for _, input := range tests {
		t.Run(input, func(t *testing.T) {
			_, err := ParseQuoteID(input)
			require.Error(t, err)
			assert.True(t, IsValidation(err))
		})
	}
}

func TestParseQuoteID_RoundTrip(t *testing.T) {
	for _, id := range []QuoteID{1, 9, 10, 99, 1234} {
		parsed, err := ParseQuoteID(id.String())
		require.NoError(t, err)
		assert.Equal(t, id, parsed)
	}
}
