package user

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/pders01/shelf/internal/plugins"
)

// ShopifyPlugin maps Shopify storefronts to their collection Atom feeds.
// "https://acme.myshopify.com" becomes ".../collections/all.atom" and a
// collection page becomes that collection's feed.
type ShopifyPlugin struct{}

func NewShopifyPlugin() *ShopifyPlugin {
	return &ShopifyPlugin{}
}

func (p *ShopifyPlugin) Name() string {
	return "shopify"
}

func (p *ShopifyPlugin) CanHandle(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	if strings.HasSuffix(u.Path, ".atom") {
		return false
	}
	return strings.HasSuffix(strings.ToLower(u.Hostname()), ".myshopify.com")
}

func (p *ShopifyPlugin) Priority() int {
	return 50
}

func (p *ShopifyPlugin) ResolveSource(_ context.Context, rawURL string, _ *http.Client) (*plugins.SourceInfo, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}

	collection := "all"
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) >= 2 && parts[0] == "collections" && parts[1] != "" {
		collection = parts[1]
	}

	shop := strings.TrimSuffix(strings.ToLower(u.Hostname()), ".myshopify.com")
	feed := url.URL{Scheme: u.Scheme, Host: u.Host, Path: "/collections/" + collection + ".atom"}

	return &plugins.SourceInfo{
		OriginalURL: rawURL,
		FeedURL:     feed.String(),
		Title:       shop,
		Metadata: map[string]string{
			"plugin":     "shopify",
			"shop":       shop,
			"collection": collection,
		},
	}, nil
}
