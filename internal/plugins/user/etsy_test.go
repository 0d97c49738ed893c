package user

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEtsyPlugin_CanHandle(t *testing.T) {
	plugin := NewEtsyPlugin()

	tests := []struct {
		name     string
		url      string
		expected bool
	}{
		{name: "shop page", url: "https://www.etsy.com/shop/KeyCraft", expected: true},
		{name: "shop without www", url: "https://etsy.com/shop/KeyCraft?ref=x", expected: true},
		{name: "shop feed", url: "https://www.etsy.com/shop/KeyCraft/rss", expected: false},
		{name: "listing page", url: "https://www.etsy.com/listing/123/keycaps", expected: false},
		{name: "other host", url: "https://example.com/shop/KeyCraft", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, plugin.CanHandle(tt.url))
		})
	}
}

func TestEtsyPlugin_ResolveSource(t *testing.T) {
	plugin := NewEtsyPlugin()

	info, err := plugin.ResolveSource(context.Background(), "https://etsy.com/shop/KeyCraft/items", nil)
	require.NoError(t, err)
	assert.Equal(t, "https://www.etsy.com/shop/KeyCraft/rss", info.FeedURL)
	assert.Equal(t, "Etsy - KeyCraft", info.Title)
	assert.Equal(t, "KeyCraft", info.Metadata["shop"])

	_, err = plugin.ResolveSource(context.Background(), "https://www.etsy.com/listing/1", nil)
	assert.Error(t, err)
}
