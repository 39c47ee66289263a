package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeDate(t *testing.T) {
	tests := []struct {
		raw  string
		want string
		ok   bool
	}{
		{"01/15/2024", "2024-01-15", true},
		{"1/5/2024", "2024-01-05", true},
		{"01-15-2024", "2024-01-15", true},
		{"2024-01-15", "2024-01-15", true},
		{"2024/01/15", "2024-01-15", true},
		{"Jan 15, 2024", "2024-01-15", true},
		{"January 15, 2024", "2024-01-15", true},
		{"15 Jan 2024", "2024-01-15", true},
		{"15 January 2024", "2024-01-15", true},
		{"01/15/24", "2024-01-15", true},
		{"  01/15/2024  ", "2024-01-15", true},
		{"", "", false},
		{"not a date", "", false},
		{"13/45/2024", "", false},
		{"2024", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := NormalizeDate(tt.raw)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeDateTwoDigitYearCentury(t *testing.T) {
	got, ok := NormalizeDate("06/30/99")
	assert.True(t, ok)
	assert.Equal(t, "1999-06-30", got)

	got, ok = NormalizeDate("06/30/01")
	assert.True(t, ok)
	assert.Equal(t, "2001-06-30", got)
}
