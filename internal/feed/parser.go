package feed

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mmcdole/gofeed"
	ext "github.com/mmcdole/gofeed/extensions"

	"github.com/pders01/shelf/internal/storage"
)

// Namespace prefixes for product fields: Google Merchant feeds
// (xmlns:g="http://base.google.com/ns/1.0") and Shopify collection feeds
// (xmlns:s="http://jadedpixel.com/-/spec/shopify").
const (
	merchantPrefix = "g"
	shopifyPrefix  = "s"
)

// attributeFields are simple g: elements copied into Product.Attributes.
var attributeFields = []string{"color", "size", "material", "gender", "condition", "age_group", "pattern"}

// Parsed is the result of parsing one merchant feed.
type Parsed struct {
	Title    string
	Products []*storage.Product
}

type Parser struct {
	parser *gofeed.Parser
	now    func() time.Time
}

func NewParser() *Parser {
	return &Parser{
		parser: gofeed.NewParser(),
		now:    time.Now,
	}
}

// Parse reads an RSS or Atom product feed. Items without a title are
// skipped; every other field is optional.
func (p *Parser) Parse(reader io.Reader, sourceID string) (*Parsed, error) {
	feed, err := p.parser.Parse(reader)
	if err != nil {
		return nil, fmt.Errorf("parsing feed: %w", err)
	}

	out := &Parsed{
		Title:    strings.TrimSpace(feed.Title),
		Products: make([]*storage.Product, 0, len(feed.Items)),
	}
	seen := make(map[string]bool, len(feed.Items))
	for _, item := range feed.Items {
		product := p.product(item, sourceID, out.Title)
		if product == nil || seen[product.ID] {
			continue
		}
		seen[product.ID] = true
		out.Products = append(out.Products, product)
	}
	return out, nil
}

func (p *Parser) product(item *gofeed.Item, sourceID, store string) *storage.Product {
	g := namespaceFields(item, merchantPrefix)
	shop := namespaceFields(item, shopifyPrefix)

	title := firstNonEmpty(g.value("title"), item.Title)
	if title == "" {
		return nil
	}

	sku := firstNonEmpty(g.value("id"), g.value("mpn"), shop.variant("sku"))
	product := &storage.Product{
		ID:          generateID(sourceID, firstNonEmpty(sku, item.GUID), item.Link),
		SourceID:    sourceID,
		SKU:         sku,
		Title:       title,
		Description: firstNonEmpty(g.value("description"), item.Description, item.Content),
		URL:         firstNonEmpty(g.value("link"), item.Link),
		ImageURL:    imageURL(item, g),
		Brand:       firstNonEmpty(g.value("brand"), shop.value("vendor")),
		Store:       firstNonEmpty(g.value("store"), store),
		Category:    category(item, g, shop),
		Price:       parsePrice(firstNonEmpty(g.value("sale_price"), g.value("price"), shop.variant("price"))),
		Rating:      parseRating(firstNonEmpty(g.value("rating"), g.value("product_rating"))),
		InStock:     inStock(g.value("availability")),
		Attributes:  map[string]string{},
		Specs:       map[string]string{},
		Updated:     p.now(),
	}
	if item.UpdatedParsed != nil {
		product.Updated = *item.UpdatedParsed
	} else if item.PublishedParsed != nil {
		product.Updated = *item.PublishedParsed
	}

	for _, field := range attributeFields {
		if v := g.value(field); v != "" {
			product.Attributes[field] = v
		}
	}
	for _, detail := range g.all("product_detail") {
		name := attributeKey(childValue(detail, "attribute_name"))
		value := strings.TrimSpace(childValue(detail, "attribute_value"))
		if name == "" || value == "" {
			continue
		}
		if strings.Contains(strings.ToLower(childValue(detail, "section_name")), "spec") {
			product.Specs[name] = value
		} else {
			product.Attributes[name] = value
		}
	}
	return product
}

// namespace holds the extension elements of one prefix on an item.
type namespace map[string][]ext.Extension

func namespaceFields(item *gofeed.Item, prefix string) namespace {
	if item.Extensions == nil {
		return nil
	}
	return namespace(item.Extensions[prefix])
}

func (m namespace) value(name string) string {
	for _, e := range m[name] {
		if v := strings.TrimSpace(e.Value); v != "" {
			return v
		}
	}
	return ""
}

func (m namespace) all(name string) []ext.Extension {
	return m[name]
}

// variant reads a field of the first variant that has it.
func (m namespace) variant(name string) string {
	for _, v := range m["variant"] {
		if value := childValue(v, name); value != "" {
			return value
		}
	}
	return ""
}

func childValue(e ext.Extension, name string) string {
	for _, c := range e.Children[name] {
		if v := strings.TrimSpace(c.Value); v != "" {
			return v
		}
	}
	return ""
}

func imageURL(item *gofeed.Item, g namespace) string {
	if v := g.value("image_link"); v != "" {
		return v
	}
	if item.Image != nil && item.Image.URL != "" {
		return item.Image.URL
	}
	for _, enclosure := range item.Enclosures {
		if enclosure.URL != "" && strings.HasPrefix(enclosure.Type, "image/") {
			return enclosure.URL
		}
	}
	return ""
}

// category takes the most specific segment of a "A > B > C" product type.
func category(item *gofeed.Item, g, shop namespace) string {
	raw := firstNonEmpty(g.value("product_type"), g.value("google_product_category"), shop.value("type"))
	if raw == "" && len(item.Categories) > 0 {
		raw = item.Categories[0]
	}
	parts := strings.Split(raw, ">")
	return strings.TrimSpace(parts[len(parts)-1])
}

// parsePrice turns "12.99 USD" or "USD 12.99" into whole currency units,
// rounding half away from zero. Unparseable prices become 0.
func parsePrice(raw string) int {
	for _, field := range strings.Fields(raw) {
		field = strings.TrimLeft(field, "$€£")
		field = strings.ReplaceAll(field, ",", "")
		if f, err := strconv.ParseFloat(field, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
			if f < 0 {
				return 0
			}
			return int(math.Round(f))
		}
	}
	return 0
}

// parseRating accepts "4", "4.4" or "4/5" and clamps to 0..5.
func parseRating(raw string) int {
	raw = strings.TrimSpace(raw)
	if i := strings.IndexByte(raw, '/'); i >= 0 {
		raw = raw[:i]
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) {
		return 0
	}
	r := int(math.Round(f))
	return max(0, min(5, r))
}

// inStock treats a missing availability as in stock.
func inStock(raw string) bool {
	switch strings.ToLower(strings.ReplaceAll(strings.TrimSpace(raw), "_", " ")) {
	case "out of stock", "discontinued", "preorder", "backorder":
		return false
	default:
		return true
	}
}

// attributeKey normalizes "Screen Size" to "screen_size".
func attributeKey(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.Join(strings.Fields(name), "_")
}

// generateID keys a product by its merchant id or GUID. Items with neither
// get a name-based UUID from their link so re-imports stay stable, or a
// random one as a last resort.
func generateID(sourceID, key, link string) string {
	switch {
	case key != "":
		return fmt.Sprintf("%s:%s", sourceID, key)
	case link != "":
		return fmt.Sprintf("%s:%s", sourceID, uuid.NewSHA1(uuid.NameSpaceURL, []byte(link)))
	default:
		return fmt.Sprintf("%s:%s", sourceID, uuid.NewString())
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
