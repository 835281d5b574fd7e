package allocator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrefix(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"simple", "Documents", "DOC"},
		{"lowercase", "pharmacy", "PHA"},
		{"exact length", "Lab", "LAB"},
		{"short name padded", "ER", "ERX"},
		{"single char padded", "x", "XXX"},
		{"internal space skipped", "C T Scan", "CTS"},
		{"leading space trimmed", "  Billing", "BIL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Prefix(tt.in))
		})
	}
}

func TestDatePartition(t *testing.T) {
	when := time.Date(2025, 1, 1, 23, 59, 59, 0, time.UTC)
	assert.Equal(t, "20250101", DatePartition(when))

	when = time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "20251231", DatePartition(when))
}

func TestNumber(t *testing.T) {
	when := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)

	assert.Equal(t, "DOC20250101007", Number("Documents", when, 7))
	assert.Equal(t, "DOC20250101001", Number("Documents", when, 1))
	assert.Equal(t, "DOC20250101123", Number("Documents", when, 123))
	assert.Equal(t, "ERX20250101001", Number("ER", when, 1))
}

func TestParse(t *testing.T) {
	parsed, err := Parse("DOC20250101007")
	require.NoError(t, err)
	assert.Equal(t, "DOC", parsed.Prefix)
	assert.Equal(t, "20250101", parsed.DatePart)
	assert.Equal(t, 7, parsed.Sequence)
}

func TestParse_RoundTrip(t *testing.T) {
	when := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	number := Number("Pharmacy", when, 42)

	parsed, err := Parse(number)
	require.NoError(t, err)
	assert.Equal(t, "PHA", parsed.Prefix)
	assert.Equal(t, "20250615", parsed.DatePart)
	assert.Equal(t, 42, parsed.Sequence)
	assert.Equal(t, number, Format(parsed.Prefix, parsed.DatePart, parsed.Sequence))
}

func TestParse_Malformed(t *testing.T) {
	for _, number := range []string{
		"",
		"DOC",
		"DOC20250101",     // missing sequence
		"DOC2025010100",   // too short
		"DOC202501010007", // too long
		"DOC20251301007",  // month 13
		"DOC20250101abc",  // non-numeric sequence
	} {
		_, err := Parse(number)
		assert.Error(t, err, "expected %q to be rejected", number)
	}
}
