// Package user holds the storefront plugins shipped with shelf.
package user

import "github.com/pders01/shelf/internal/plugins"

// RegisterAll adds every bundled plugin to r.
func RegisterAll(r *plugins.Registry) {
	r.Register(NewShopifyPlugin())
	r.Register(NewEtsyPlugin())
}
