package plugins

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubPlugin handles every URL with the given prefix and maps it to
// prefix + "/feed.atom".
type stubPlugin struct {
	name     string
	prefix   string
	priority int
	err      error
	client   *http.Client
}

func (p *stubPlugin) Name() string  { return p.name }
func (p *stubPlugin) Priority() int { return p.priority }

func (p *stubPlugin) CanHandle(url string) bool {
	return strings.HasPrefix(url, p.prefix)
}

func (p *stubPlugin) ResolveSource(_ context.Context, url string, client *http.Client) (*SourceInfo, error) {
	p.client = client
	if p.err != nil {
		return nil, p.err
	}
	return &SourceInfo{
		OriginalURL: url,
		FeedURL:     p.prefix + "/feed.atom",
		Title:       p.name,
		Metadata:    map[string]string{"plugin": p.name},
	}, nil
}

func TestFindPlugin(t *testing.T) {
	generic := &stubPlugin{name: "generic", prefix: "https://", priority: 1}
	shop := &stubPlugin{name: "shop", prefix: "https://shop.test", priority: 50}
	other := &stubPlugin{name: "other", prefix: "https://other.test", priority: 100}

	r := NewRegistry(time.Second)
	r.Register(generic)
	r.Register(shop)
	r.Register(other)

	tests := []struct {
		url  string
		want Plugin
	}{
		{"https://shop.test/collections/all", shop},
		{"https://other.test", other},
		{"https://unknown.test", generic},
		{"ftp://shop.test", nil},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			got := r.FindPlugin(tt.url)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			assert.Equal(t, tt.want.Name(), got.Name())
		})
	}
}

func TestResolveSourceUsesPluginAndClient(t *testing.T) {
	shop := &stubPlugin{name: "shop", prefix: "https://shop.test", priority: 10}
	r := NewRegistry(3 * time.Second)
	r.Register(shop)

	info, err := r.ResolveSource(context.Background(), "https://shop.test/collections/bags")
	require.NoError(t, err)
	assert.Equal(t, "https://shop.test/collections/bags", info.OriginalURL)
	assert.Equal(t, "https://shop.test/feed.atom", info.FeedURL)
	assert.Equal(t, "shop", info.Metadata["plugin"])

	require.NotNil(t, shop.client)
	assert.Equal(t, 3*time.Second, shop.client.Timeout)
}

func TestResolveSourcePassesThroughUnmatched(t *testing.T) {
	r := NewRegistry(time.Second)

	info, err := r.ResolveSource(context.Background(), "https://merchant.test/products.xml")
	require.NoError(t, err)
	assert.Equal(t, info.OriginalURL, info.FeedURL)
	assert.Empty(t, info.Title)
	assert.NotNil(t, info.Metadata)
}

func TestResolveSourcePropagatesPluginError(t *testing.T) {
	boom := errors.New("storefront offline")
	r := NewRegistry(time.Second)
	r.Register(&stubPlugin{name: "down", prefix: "https://down.test", err: boom})

	_, err := r.ResolveSource(context.Background(), "https://down.test")
	assert.ErrorIs(t, err, boom)
}

func TestListPluginsReturnsCopy(t *testing.T) {
	r := NewRegistry(time.Second)
	r.Register(&stubPlugin{name: "a"})
	r.Register(&stubPlugin{name: "b"})

	list := r.ListPlugins()
	require.Len(t, list, 2)
	list[0] = nil

	assert.NotNil(t, r.ListPlugins()[0])
}
