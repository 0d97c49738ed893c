// Package plugins turns storefront URLs into the product feed URLs behind
// them, so that a user can paste a shop's address instead of hunting for
// its feed.
package plugins

import (
	"context"
	"net/http"
	"time"
)

// SourceInfo is what a plugin learned about a storefront URL.
type SourceInfo struct {
	// OriginalURL is the URL that was entered.
	OriginalURL string
	// FeedURL is the product feed to import.
	FeedURL string
	// Title is used when the feed itself carries no title.
	Title    string
	Metadata map[string]string
}

// Plugin handles the storefronts of one platform.
type Plugin interface {
	Name() string

	CanHandle(url string) bool

	// ResolveSource maps url to its product feed. It may issue requests
	// with client.
	ResolveSource(ctx context.Context, url string, client *http.Client) (*SourceInfo, error)

	// Priority breaks ties when several plugins handle a URL; higher wins.
	Priority() int
}

type Registry struct {
	plugins []Plugin
	client  *http.Client
}

func NewRegistry(timeout time.Duration) *Registry {
	return &Registry{
		plugins: make([]Plugin, 0),
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

func (r *Registry) Register(plugin Plugin) {
	r.plugins = append(r.plugins, plugin)
}

// FindPlugin returns the highest priority plugin that handles url, or nil.
func (r *Registry) FindPlugin(url string) Plugin {
	var bestPlugin Plugin
	highestPriority := -1

	for _, plugin := range r.plugins {
		if plugin.CanHandle(url) && plugin.Priority() > highestPriority {
			bestPlugin = plugin
			highestPriority = plugin.Priority()
		}
	}

	return bestPlugin
}

// ResolveSource runs the best plugin for url. Without one, url is its own
// feed.
func (r *Registry) ResolveSource(ctx context.Context, url string) (*SourceInfo, error) {
	plugin := r.FindPlugin(url)
	if plugin == nil {
		return &SourceInfo{
			OriginalURL: url,
			FeedURL:     url,
			Metadata:    make(map[string]string),
		}, nil
	}

	return plugin.ResolveSource(ctx, url, r.client)
}

// ListPlugins returns a copy of the registered plugins.
func (r *Registry) ListPlugins() []Plugin {
	return append([]Plugin(nil), r.plugins...)
}
