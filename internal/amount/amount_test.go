package amount

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	cases := []struct {
		in       string
		currency string
		want     int64
	}{
		{"65.00", "KES", 6500},
		{"1,250.5", "KES", 125050},
		{" 40 ", "kes", 4000},
		{"-12.34", "USD", -1234},
		{"1000", "JPY", 1000},
		{"0", "USD", 0},
		{"92233720368547758.07", "USD", 9223372036854775807},
	}
	for _, c := range cases {
		got, err := Parse(c.in, c.currency)
		require.NoError(t, err, c.in)
		assert.Equal(t, c.want, got, c.in)
	}
}

func TestParseRejects(t *testing.T) {
	for _, c := range []struct{ in, currency string }{
		{"abc", "USD"},
		{"", "USD"},
		{"1.005", "USD"},
		{"1.5", "JPY"},
		{"10", "XXX1"},
		{"100000000000000000", "KES"},
		{"-100000000000000000", "KES"},
		{"92233720368547758.08", "USD"},
	} {
		_, err := Parse(c.in, c.currency)
		assert.Error(t, err, "%s %s", c.in, c.currency)
	}
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "$1,234.56", Format(123456, "USD"))
	assert.Equal(t, "-$10.50", Format(-1050, "usd"))
	assert.Equal(t, "$0.00", Format(0, "USD"))
}

func TestMajor(t *testing.T) {
	assert.Equal(t, "12.30", Major(1230, "KES"))
	assert.Equal(t, "-0.05", Major(-5, "USD"))
	assert.Equal(t, "700", Major(700, "JPY"))
}
