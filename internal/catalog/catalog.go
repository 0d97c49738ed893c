// Package catalog answers product queries: full-text matching through a
// bleve index, filtering by the facet selection and a fresh facet
// aggregation for every result set.
package catalog

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/pders01/shelf/internal/debuglog"
	"github.com/pders01/shelf/internal/facet"
	"github.com/pders01/shelf/internal/storage"
)

// Sort orders.
const (
	SortRelevance = "relevance"
	SortTitle     = "title"
	SortPriceAsc  = "price_asc"
	SortPriceDesc = "price_desc"
	SortRating    = "rating"
)

// DefaultPageSize is used when a request does not name one.
const DefaultPageSize = 40

// minTextLen is the shortest text query that reaches the index.
const minTextLen = 2

// Request is one catalog query.
type Request struct {
	Text     string
	Selected facet.Selected
	Sort     string
	Page     int
	PageSize int
}

// Sanitize clamps paging and fills in the default sort.
func (r *Request) Sanitize() {
	r.Page = clamp(r.Page, 0, 1000)
	if r.PageSize == 0 {
		r.PageSize = DefaultPageSize
	}
	r.PageSize = clamp(r.PageSize, 1, 500)
	switch r.Sort {
	case SortRelevance, SortTitle, SortPriceAsc, SortPriceDesc, SortRating:
	default:
		r.Sort = ""
	}
	if r.Sort == "" {
		if strings.TrimSpace(r.Text) != "" {
			r.Sort = SortRelevance
		} else {
			r.Sort = SortTitle
		}
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Result is one page of products plus the facets of the whole match set.
type Result struct {
	Products []*storage.Product
	Total    int
	Page     int
	PageSize int
	Facets   []facet.Facet
}

// Pages returns the number of pages for the result.
func (r *Result) Pages() int {
	if r.PageSize <= 0 || r.Total == 0 {
		return 1
	}
	return (r.Total + r.PageSize - 1) / r.PageSize
}

// Catalog keeps an in-memory snapshot of the store for filtering and
// aggregation and mirrors it into the text index.
type Catalog struct {
	store  *storage.Store
	index  *Index
	schema *Schema

	mu       sync.RWMutex
	products map[string]*storage.Product
}

// New returns a catalog over store. Call Load before querying.
func New(store *storage.Store, index *Index, schema *Schema) *Catalog {
	return &Catalog{
		store:    store,
		index:    index,
		schema:   schema,
		products: make(map[string]*storage.Product),
	}
}

// Schema returns the facet schema.
func (c *Catalog) Schema() *Schema { return c.schema }

// Load reads every product from the store and rebuilds the index.
func (c *Catalog) Load() error {
	products, err := c.store.GetAllProducts()
	if err != nil {
		return fmt.Errorf("loading products: %w", err)
	}
	c.mu.Lock()
	c.products = make(map[string]*storage.Product, len(products))
	for _, p := range products {
		c.products[p.ID] = p
	}
	c.mu.Unlock()

	if err := c.index.Reindex(products); err != nil {
		return fmt.Errorf("rebuilding index: %w", err)
	}
	debuglog.Infof("catalog loaded %d products", len(products))
	return nil
}

// OnProductsUpdated folds freshly imported products into the snapshot and
// the index. products is the full set for src: earlier products of the
// same source that are missing from it are dropped.
func (c *Catalog) OnProductsUpdated(src *storage.Source, products []*storage.Product) {
	fresh := make(map[string]bool, len(products))
	for _, p := range products {
		fresh[p.ID] = true
	}

	var stale []string
	c.mu.Lock()
	if src != nil {
		for id, p := range c.products {
			if p.SourceID == src.ID && !fresh[id] {
				stale = append(stale, id)
				delete(c.products, id)
			}
		}
	}
	for _, p := range products {
		c.products[p.ID] = p
	}
	c.mu.Unlock()

	if err := c.index.Delete(stale); err != nil {
		debuglog.Errorf("removing stale products: %v", err)
	}
	if err := c.index.Update(products); err != nil {
		debuglog.Errorf("indexing products: %v", err)
	}
	if src != nil {
		debuglog.Debugf("catalog: %d products from %s", len(products), src.URL)
	}
}

// OnSourceDeleted drops every product of the source.
func (c *Catalog) OnSourceDeleted(sourceID string) {
	c.mu.Lock()
	for id, p := range c.products {
		if p.SourceID == sourceID {
			delete(c.products, id)
		}
	}
	c.mu.Unlock()
	if err := c.index.DeleteSource(sourceID); err != nil {
		debuglog.Errorf("removing source %s from index: %v", sourceID, err)
	}
}

// DocCount reports the number of indexed documents.
func (c *Catalog) DocCount() (int, error) {
	return c.index.DocCount()
}

// Len reports the number of products in the snapshot.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.products)
}

// Product returns one product from the snapshot.
func (c *Catalog) Product(id string) (*storage.Product, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.products[id]
	return p, ok
}

// Query runs req against the snapshot. Checkbox facets are counted with
// every filter except their own, so that picking one brand still shows
// how many products the other brands would add.
func (c *Catalog) Query(req Request) (*Result, error) {
	req.Sanitize()

	base, scores, err := c.base(req.Text)
	if err != nil {
		return nil, err
	}
	filters := c.filters(req.Selected)

	matched := make([]*storage.Product, 0, len(base))
	for _, p := range base {
		if filters.match(p, "") {
			matched = append(matched, p)
		}
	}
	sortProducts(matched, req.Sort, scores)

	res := &Result{
		Total:    len(matched),
		Page:     req.Page,
		PageSize: req.PageSize,
		Facets:   c.aggregate(base, filters, req.Selected),
	}
	start := req.Page * req.PageSize
	if start < len(matched) {
		end := start + req.PageSize
		if end > len(matched) {
			end = len(matched)
		}
		res.Products = matched[start:end]
	}
	return res, nil
}

// base returns the products the text query matches, or every product.
func (c *Catalog) base(text string) ([]*storage.Product, map[string]float64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if len(strings.TrimSpace(text)) < minTextLen {
		out := make([]*storage.Product, 0, len(c.products))
		for _, p := range c.products {
			out = append(out, p)
		}
		return out, nil, nil
	}

	hits, err := c.index.Match(text, len(c.products)+1)
	if err != nil {
		return nil, nil, fmt.Errorf("searching %q: %w", text, err)
	}
	out := make([]*storage.Product, 0, len(hits))
	scores := make(map[string]float64, len(hits))
	for _, h := range hits {
		if p, ok := c.products[h.ID]; ok {
			out = append(out, p)
			scores[h.ID] = h.Score
		}
	}
	return out, scores, nil
}

func sortProducts(products []*storage.Product, order string, scores map[string]float64) {
	byTitle := func(a, b *storage.Product) bool {
		ta, tb := strings.ToLower(a.Title), strings.ToLower(b.Title)
		if ta != tb {
			return ta < tb
		}
		return a.ID < b.ID
	}
	sort.SliceStable(products, func(i, j int) bool {
		a, b := products[i], products[j]
		switch order {
		case SortRelevance:
			if scores[a.ID] != scores[b.ID] {
				return scores[a.ID] > scores[b.ID]
			}
		case SortPriceAsc:
			if a.Price != b.Price {
				return a.Price < b.Price
			}
		case SortPriceDesc:
			if a.Price != b.Price {
				return a.Price > b.Price
			}
		case SortRating:
			if a.Rating != b.Rating {
				return a.Rating > b.Rating
			}
		}
		return byTitle(a, b)
	})
}

// filter is one applied selection resolved against a product field.
type filter struct {
	key   string
	field string
	kind  facet.Kind
	set   facet.Set
	lo    *int
	hi    *int
	min   int
}

type filterList []filter

// match reports whether p passes every filter except the one for skip.
func (fl filterList) match(p *storage.Product, skip string) bool {
	for _, f := range fl {
		if f.key == skip {
			continue
		}
		if !f.match(p) {
			return false
		}
	}
	return true
}

func (f filter) match(p *storage.Product) bool {
	switch f.kind {
	case facet.Range:
		v, ok := numberValue(p, f.field)
		if !ok {
			return false
		}
		if f.lo != nil && v < *f.lo {
			return false
		}
		if f.hi != nil && v > *f.hi {
			return false
		}
		return true
	case facet.MinSelect:
		v, ok := numberValue(p, f.field)
		return ok && v >= f.min
	default:
		v, ok := textValue(p, f.field)
		return ok && f.set.Has(v)
	}
}

// filters resolves the selection. Keys the schema does not know and that
// are not attr./spec. keys cannot be evaluated and are ignored.
func (c *Catalog) filters(sel facet.Selected) filterList {
	var out filterList
	for _, key := range sel.Keys() {
		v := sel[key]
		kind := facet.Passthrough
		field := key
		if def, ok := c.schema.Def(key); ok {
			kind = def.FacetKind()
			field = def.Field
		} else if !facet.IsDynamicKey(key) {
			continue
		}
		f := filter{key: key, field: field, kind: kind}
		switch kind {
		case facet.Range:
			r := facet.RangeOf(v)
			if r.IsZero() {
				continue
			}
			f.lo, f.hi = r.Min, r.Max
		case facet.MinSelect:
			n := facet.NumberOf(v)
			if n.IsZero() {
				continue
			}
			f.min = *n.Value
		default:
			s := facet.SetOf(v)
			if s.IsZero() {
				continue
			}
			f.set = s
		}
		out = append(out, f)
	}
	return out
}

// aggregate builds the facet list for a result set.
func (c *Catalog) aggregate(base []*storage.Product, filters filterList, sel facet.Selected) []facet.Facet {
	var out []facet.Facet
	for _, def := range c.schema.Facets {
		if def.Hidden {
			continue
		}
		if f, ok := aggregateOne(def.Key, def.Label, def.FacetKind(), def.Field, def.Options, base, filters, sel); ok {
			out = append(out, f)
		}
	}
	if c.schema.Dynamic {
		for _, key := range dynamicKeys(base, c.schema.MaxDynamic, sel) {
			if _, declared := c.schema.Def(key); declared {
				continue
			}
			if f, ok := aggregateOne(key, dynamicLabel(key), facet.Passthrough, key, nil, base, filters, sel); ok {
				out = append(out, f)
			}
		}
	}
	return out
}

func aggregateOne(key, label string, kind facet.Kind, field string, fixed []OptionDef,
	base []*storage.Product, filters filterList, sel facet.Selected) (facet.Facet, bool) {
	f := facet.Facet{Key: key, Label: label, Kind: kind}

	var candidates []*storage.Product
	for _, p := range base {
		if filters.match(p, key) {
			candidates = append(candidates, p)
		}
	}

	switch kind {
	case facet.Range:
		lo, hi, ok := numberBounds(candidates, field)
		if !ok {
			if lo, hi, ok = numberBounds(base, field); !ok {
				return f, false
			}
		}
		f.Min, f.Max = lo, hi
		return f, true

	case facet.MinSelect:
		for _, o := range fixed {
			threshold, err := strconv.Atoi(o.Value)
			if err != nil {
				continue
			}
			n := 0
			for _, p := range candidates {
				if v, ok := numberValue(p, field); ok && v >= threshold {
					n++
				}
			}
			f.Options = append(f.Options, facet.Option{Value: o.Value, Label: o.Label, Count: n, HasCount: true})
		}
		return f, len(f.Options) > 0

	default:
		counts := make(map[string]int)
		for _, p := range candidates {
			if v, ok := textValue(p, field); ok {
				counts[v]++
			}
		}
		// Selected values stay visible even when nothing matches them.
		for v := range facet.SetOf(sel[key]) {
			if _, ok := counts[v]; !ok {
				counts[v] = 0
			}
		}
		if len(counts) == 0 {
			return f, false
		}
		for v, n := range counts {
			f.Options = append(f.Options, facet.Option{Value: v, Count: n, HasCount: true})
		}
		sort.Slice(f.Options, func(i, j int) bool {
			if f.Options[i].Count != f.Options[j].Count {
				return f.Options[i].Count > f.Options[j].Count
			}
			return f.Options[i].Value < f.Options[j].Value
		})
		return f, true
	}
}

func numberBounds(products []*storage.Product, field string) (lo, hi int, ok bool) {
	for _, p := range products {
		v, has := numberValue(p, field)
		if !has {
			continue
		}
		if !ok || v < lo {
			lo = v
		}
		if !ok || v > hi {
			hi = v
		}
		ok = true
	}
	return lo, hi, ok
}

// dynamicKeys lists the most common attribute and spec names in products.
// Keys already selected are always included.
func dynamicKeys(products []*storage.Product, limit int, sel facet.Selected) []string {
	freq := make(map[string]int)
	for _, p := range products {
		for name := range p.Attributes {
			freq[facet.AttrPrefix+name]++
		}
		for name := range p.Specs {
			freq[facet.SpecPrefix+name]++
		}
	}
	keys := make([]string, 0, len(freq))
	for k := range freq {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if freq[keys[i]] != freq[keys[j]] {
			return freq[keys[i]] > freq[keys[j]]
		}
		return keys[i] < keys[j]
	})
	if limit > 0 && len(keys) > limit {
		keys = keys[:limit]
	}
	for _, k := range sel.Keys() {
		if facet.IsDynamicKey(k) && freq[k] > 0 && !contains(keys, k) {
			keys = append(keys, k)
		}
	}
	return keys
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
