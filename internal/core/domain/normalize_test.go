package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePartNumber(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"PS11752778", "PS11752778"},
		{"ps11752778", "PS11752778"},
		{" ps-117 527 78 ", "PS11752778"},
		{"W10321304", "W10321304"},
		{"---", ""},
		{"", ""},
		{"PS１２", "PS"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizePartNumber(tt.in), tt.in)
	}
}

func TestNormalizeModelNumber(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"WDT780SAEM1", "WDT780SAEM"},
		{"wdt780saem", "WDT780SAEM"},
		{"MODEL123-4", "MODEL123"},
		{"MODEL123_02", "MODEL123"},
		{"WRS325SDHZ", "WRS325SDHZ"},
		{"WRS325SDHZ01", "WRS325SDHZ01"},
		{"-4", "4"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeModelNumber(tt.in), tt.in)
	}
}

func TestCanonicalModelNumber(t *testing.T) {
	assert.Equal(t, "WDT780SAEM1", CanonicalModelNumber("wdt-780 saem1"))
	assert.Equal(t, NormalizeModelNumber("WDT780SAEM1"), NormalizeModelNumber("WDT780SAEM"))
	assert.NotEqual(t, CanonicalModelNumber("WDT780SAEM1"), CanonicalModelNumber("WDT780SAEM"))
}
