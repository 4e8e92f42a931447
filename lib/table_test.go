package lib

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeTableNumber(t *testing.T) {
	const placeholder = "AUTO-ASSIGNED"

	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"spaces and punctuation stripped", "t a b!12", "TAB12"},
		{"already clean", "T-04", "T-04"},
		{"lowercase uppercased", "patio-3", "PATIO-3"},
		{"empty becomes placeholder", "", placeholder},
		{"all invalid becomes placeholder", "!!! ???", placeholder},
		{"non ascii dropped", "tábla 7", "TBLA7"},
		{"truncated to 15", "abcdefghijklmnopqrstuvwxyz", "ABCDEFGHIJKLMNO"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SanitizeTableNumber(tt.raw, 15, placeholder)
			assert.Equal(t, tt.want, got)
			assert.LessOrEqual(t, len(got), 15)
		})
	}
}

func TestNormalizeTableNumberEmpty(t *testing.T) {
	assert.Equal(t, "", NormalizeTableNumber("   ", 15))
	assert.Equal(t, "ABC", NormalizeTableNumber("abc", 0))
}
