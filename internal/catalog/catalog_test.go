package catalog

import (
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pders01/shelf/internal/facet"
	"github.com/pders01/shelf/internal/storage"
)

func testProducts() []*storage.Product {
	return []*storage.Product{
		{
			ID: "p1", SourceID: "a", Title: "Mechanical Keyboard", Brand: "Acme", Category: "keyboards",
			Price: 120, Rating: 4, InStock: true, Attributes: map[string]string{"colour": "black"},
		},
		{
			ID: "p2", SourceID: "a", Title: "Wireless Keyboard", Brand: "Globex", Category: "keyboards",
			Price: 60, Rating: 3, Attributes: map[string]string{"colour": "white"},
		},
		{
			ID: "p3", SourceID: "a", Title: "Arc Mouse", Brand: "Globex", Category: "mice",
			Price: 45, Rating: 5, InStock: true, Attributes: map[string]string{"colour": "black"},
		},
		{
			ID: "p4", SourceID: "b", Title: "USB Hub", Brand: "Initech", Category: "accessories",
			Price: 25, Rating: 2, InStock: true, Specs: map[string]string{"ports": "4"},
		},
		{
			ID: "p5", SourceID: "a", Title: "Gaming Mouse", Brand: "Acme", Category: "mice",
			Price: 80, Rating: 4, Attributes: map[string]string{"colour": "red"},
		},
	}
}

func newTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	store, err := storage.NewStore(filepath.Join(t.TempDir(), "shelf.db"), time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.SaveProducts(testProducts()))

	idx, err := OpenIndex("")
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })

	schema, err := DefaultSchema()
	require.NoError(t, err)

	c := New(store, idx, schema)
	require.NoError(t, c.Load())
	return c
}

func ids(products []*storage.Product) []string {
	out := make([]string, 0, len(products))
	for _, p := range products {
		out = append(out, p.ID)
	}
	return out
}

func sortedIDs(products []*storage.Product) []string {
	out := ids(products)
	sort.Strings(out)
	return out
}

func findFacet(t *testing.T, res *Result, key string) facet.Facet {
	t.Helper()
	f, ok := facet.Find(res.Facets, key)
	require.True(t, ok, "facet %s missing", key)
	return f
}

func counts(f facet.Facet) map[string]int {
	out := make(map[string]int, len(f.Options))
	for _, o := range f.Options {
		out[o.Value] = o.Count
	}
	return out
}

func TestQueryAllSortedByTitle(t *testing.T) {
	c := newTestCatalog(t)
	res, err := c.Query(Request{})
	require.NoError(t, err)

	assert.Equal(t, 5, res.Total)
	assert.Equal(t, []string{"p3", "p5", "p1", "p4", "p2"}, ids(res.Products))
	assert.Equal(t, DefaultPageSize, res.PageSize)
}

func TestCheckboxFacetsAreDisjunctive(t *testing.T) {
	c := newTestCatalog(t)
	res, err := c.Query(Request{Selected: facet.Selected{"brand": facet.NewSet("Acme")}})
	require.NoError(t, err)

	assert.Equal(t, []string{"p1", "p5"}, sortedIDs(res.Products))

	brand := findFacet(t, res, "brand")
	assert.Equal(t, map[string]int{"Acme": 2, "Globex": 2, "Initech": 1}, counts(brand))

	category := findFacet(t, res, "category")
	assert.Equal(t, map[string]int{"keyboards": 1, "mice": 1}, counts(category))
}

func TestMultipleValuesOfOneFacetAreOred(t *testing.T) {
	c := newTestCatalog(t)
	res, err := c.Query(Request{Selected: facet.Selected{"brand": facet.NewSet("Acme", "Initech")}})
	require.NoError(t, err)
	assert.Equal(t, []string{"p1", "p4", "p5"}, sortedIDs(res.Products))
}

func TestRangeFilterAndBounds(t *testing.T) {
	c := newTestCatalog(t)
	res, err := c.Query(Request{Selected: facet.Selected{"price": facet.RangeValue{Min: facet.Int(50)}}})
	require.NoError(t, err)

	assert.Equal(t, []string{"p1", "p2", "p5"}, sortedIDs(res.Products))

	price := findFacet(t, res, "price")
	assert.Equal(t, facet.Range, price.Kind)
	assert.Equal(t, 25, price.Min)
	assert.Equal(t, 120, price.Max)
}

func TestRangeBoundsFollowOtherFilters(t *testing.T) {
	c := newTestCatalog(t)
	res, err := c.Query(Request{Selected: facet.Selected{"category": facet.NewSet("mice")}})
	require.NoError(t, err)

	price := findFacet(t, res, "price")
	assert.Equal(t, 45, price.Min)
	assert.Equal(t, 80, price.Max)
}

func TestMinSelectCountsAtOrAbove(t *testing.T) {
	c := newTestCatalog(t)
	res, err := c.Query(Request{Selected: facet.Selected{"rating": facet.Number{Value: facet.Int(4)}}})
	require.NoError(t, err)

	assert.Equal(t, []string{"p1", "p3", "p5"}, sortedIDs(res.Products))
	rating := findFacet(t, res, "rating")
	assert.Equal(t, map[string]int{"4": 3, "3": 4, "2": 5}, counts(rating))
	assert.Equal(t, "★★★★ & up", rating.Options[0].Label)
}

func TestTextQuery(t *testing.T) {
	c := newTestCatalog(t)
	res, err := c.Query(Request{Text: "keyboard"})
	require.NoError(t, err)

	assert.Equal(t, []string{"p1", "p2"}, sortedIDs(res.Products))
	assert.Equal(t, SortRelevance, func() string { r := Request{Text: "keyboard"}; r.Sanitize(); return r.Sort }())
}

func TestTextQueryCombinesWithFilters(t *testing.T) {
	c := newTestCatalog(t)
	res, err := c.Query(Request{Text: "mouse", Selected: facet.Selected{"brand": facet.NewSet("Acme")}})
	require.NoError(t, err)
	assert.Equal(t, []string{"p5"}, ids(res.Products))

	brand := findFacet(t, res, "brand")
	assert.Equal(t, map[string]int{"Acme": 1, "Globex": 1}, counts(brand))
}

func TestDynamicFacetsDiscovered(t *testing.T) {
	c := newTestCatalog(t)
	res, err := c.Query(Request{})
	require.NoError(t, err)

	colour := findFacet(t, res, "attr.colour")
	assert.Equal(t, facet.Passthrough, colour.EffectiveKind())
	assert.Equal(t, "Colour", colour.Label)
	assert.Equal(t, map[string]int{"black": 2, "white": 1, "red": 1}, counts(colour))

	ports := findFacet(t, res, "spec.ports")
	assert.Equal(t, map[string]int{"4": 1}, counts(ports))
}

func TestDynamicFilter(t *testing.T) {
	c := newTestCatalog(t)
	res, err := c.Query(Request{Selected: facet.Selected{"attr.colour": facet.NewSet("black")}})
	require.NoError(t, err)
	assert.Equal(t, []string{"p1", "p3"}, sortedIDs(res.Products))
}

func TestSelectedValueWithoutMatchesStaysListed(t *testing.T) {
	c := newTestCatalog(t)
	res, err := c.Query(Request{Selected: facet.Selected{"brand": facet.NewSet("Nope")}})
	require.NoError(t, err)

	assert.Zero(t, res.Total)
	brand := findFacet(t, res, "brand")
	n, ok := counts(brand)["Nope"]
	assert.True(t, ok)
	assert.Zero(t, n)
}

func TestUnknownKeysAreIgnored(t *testing.T) {
	c := newTestCatalog(t)
	res, err := c.Query(Request{Selected: facet.Selected{
		"colour": facet.Raw{V: "blue"},
		"price":  facet.RangeValue{},
	}})
	require.NoError(t, err)
	assert.Equal(t, 5, res.Total)
}

func TestPaging(t *testing.T) {
	c := newTestCatalog(t)
	res, err := c.Query(Request{Page: 1, PageSize: 2})
	require.NoError(t, err)

	assert.Equal(t, []string{"p1", "p4"}, ids(res.Products))
	assert.Equal(t, 3, res.Pages())

	res, err = c.Query(Request{Page: 9, PageSize: 2})
	require.NoError(t, err)
	assert.Empty(t, res.Products)
	assert.Equal(t, 5, res.Total)
}

func TestSortByPrice(t *testing.T) {
	c := newTestCatalog(t)
	res, err := c.Query(Request{Sort: SortPriceDesc})
	require.NoError(t, err)
	assert.Equal(t, []string{"p1", "p5", "p2", "p3", "p4"}, ids(res.Products))
}

func TestSourceDeletion(t *testing.T) {
	c := newTestCatalog(t)
	c.OnSourceDeleted("b")

	assert.Equal(t, 4, c.Len())
	n, err := c.DocCount()
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	res, err := c.Query(Request{Text: "hub"})
	require.NoError(t, err)
	assert.Zero(t, res.Total)
}

func TestProductsUpdated(t *testing.T) {
	c := newTestCatalog(t)
	c.OnProductsUpdated(&storage.Source{ID: "c", URL: "https://c.example.com/feed"}, []*storage.Product{
		{ID: "p6", SourceID: "c", Title: "Trackball", Brand: "Acme", Category: "mice", Price: 70},
	})

	res, err := c.Query(Request{Text: "trackball"})
	require.NoError(t, err)
	assert.Equal(t, []string{"p6"}, ids(res.Products))
}

func TestProductsUpdatedReplacesSource(t *testing.T) {
	c := newTestCatalog(t)
	c.OnProductsUpdated(&storage.Source{ID: "b"}, []*storage.Product{
		{ID: "p7", SourceID: "b", Title: "USB-C Dock", Brand: "Initech", Category: "accessories", Price: 90},
	})

	_, ok := c.Product("p4")
	assert.False(t, ok, "p4 vanished from source b")
	assert.Equal(t, 5, c.Len())

	res, err := c.Query(Request{Text: "hub"})
	require.NoError(t, err)
	assert.Zero(t, res.Total)

	res, err = c.Query(Request{Text: "dock"})
	require.NoError(t, err)
	assert.Equal(t, []string{"p7"}, ids(res.Products))
}

func TestSchemaOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "facets.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
dynamic = false

[[facets]]
key = "brand"
label = "Maker"
kind = "checkbox"
order = 5

[[facets]]
key = "sku"
label = "SKU"
kind = "checkbox"
order = 99
`), 0o600))

	s, err := LoadSchema(path)
	require.NoError(t, err)
	require.NoError(t, s.Validate())

	assert.False(t, s.Dynamic)
	assert.Equal(t, "brand", s.Facets[0].Key)
	assert.Equal(t, "Maker", s.Facets[0].Label)
	assert.Equal(t, "brand", s.Facets[0].Field)
	def, ok := s.Def("sku")
	assert.True(t, ok)
	assert.Equal(t, "sku", def.Field)
}

func TestSchemaMissingOverrideFile(t *testing.T) {
	s, err := LoadSchema(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.True(t, s.Dynamic)
	assert.Equal(t, 8, s.MaxDynamic)
}

func TestSchemaValidate(t *testing.T) {
	tests := []struct {
		name string
		defs []FacetDef
	}{
		{"unknown kind", []FacetDef{{Key: "x", Kind: "slider", Field: "price"}}},
		{"range on text", []FacetDef{{Key: "x", Kind: "range", Field: "brand"}}},
		{"min option not a number", []FacetDef{{Key: "x", Kind: "min", Field: "rating", Options: []OptionDef{{Value: "four"}}}}},
		{"duplicate", []FacetDef{{Key: "x", Field: "brand"}, {Key: "x", Field: "brand"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &Schema{Facets: tt.defs}
			assert.Error(t, s.Validate())
		})
	}

	s, err := DefaultSchema()
	require.NoError(t, err)
	assert.NoError(t, s.Validate())
}

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"usb", "hub", "c3"}, tokenize("USB-Hub, a c3!"))
	assert.Empty(t, tokenize("a"))
}

func TestDynamicLabel(t *testing.T) {
	assert.Equal(t, "Screen size", dynamicLabel("spec.screen_size"))
	assert.Equal(t, "Colour", dynamicLabel("attr.colour"))
}
