package user

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/pders01/shelf/internal/plugins"
)

// EtsyPlugin maps Etsy shop pages to the shop's RSS listing feed.
type EtsyPlugin struct{}

func NewEtsyPlugin() *EtsyPlugin {
	return &EtsyPlugin{}
}

func (p *EtsyPlugin) Name() string {
	return "etsy"
}

func (p *EtsyPlugin) CanHandle(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	return host == "etsy.com" && shopName(u.Path) != "" && !strings.HasSuffix(u.Path, "/rss")
}

func (p *EtsyPlugin) Priority() int {
	return 50
}

func (p *EtsyPlugin) ResolveSource(_ context.Context, rawURL string, _ *http.Client) (*plugins.SourceInfo, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	shop := shopName(u.Path)
	if shop == "" {
		return nil, fmt.Errorf("no Etsy shop in %s", rawURL)
	}

	return &plugins.SourceInfo{
		OriginalURL: rawURL,
		FeedURL:     "https://www.etsy.com/shop/" + shop + "/rss",
		Title:       "Etsy - " + shop,
		Metadata: map[string]string{
			"plugin": "etsy",
			"shop":   shop,
		},
	}, nil
}

func shopName(path string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) >= 2 && parts[0] == "shop" {
		return parts[1]
	}
	return ""
}
