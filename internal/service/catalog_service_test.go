package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBumpTrailingChar(t *testing.T) {
	tests := []struct {
		sku  string
		want string
	}{
		{"SHIRT-1", "SHIRT-2"},
		{"SHIRT-8", "SHIRT-9"},
		{"SHIRT-9", "SHIRT-91"},
		{"SHIRT-A", "SHIRT-B"},
		{"SHIRT-Y", "SHIRT-Z"},
		{"SHIRT-Z", "SHIRT-Z1"},
		{"SHIRT-0", "SHIRT-1"},
		{"shirt-a", "shirt-a1"}, // lowercase letters are not bumped
		{"SKU!", "SKU!1"},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, bumpTrailingChar(tt.sku), "sku %q", tt.sku)
	}
}

func TestRandomSKUSuffix(t *testing.T) {
	for _, n := range []int{1, 2, 5} {
		suffix := randomSKUSuffix(n)
		assert.Len(t, suffix, n)
		for _, c := range suffix {
			ok := (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
			assert.True(t, ok, "unexpected character %q", c)
		}
	}
}
