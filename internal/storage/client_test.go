package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyFromURL(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{
			"public storage url",
			"https://cdn.example.com/storage/v1/object/public/product-images/1714989000-shirt.jpg",
			"1714989000-shirt.jpg",
		},
		{
			"bare key path",
			"https://cdn.example.com/shirt.png",
			"shirt.png",
		},
		{
			"query string ignored",
			"https://cdn.example.com/product-images/shirt.png?t=12345",
			"shirt.png",
		},
		{
			"trailing slash trimmed",
			"https://cdn.example.com/product-images/shirt.png/",
			"shirt.png",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := KeyFromURL(tt.url)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestKeyFromURLNoKey(t *testing.T) {
	for _, u := range []string{"https://cdn.example.com/", "https://cdn.example.com"} {
		_, err := KeyFromURL(u)
		assert.Error(t, err, "url %q", u)
	}
}
