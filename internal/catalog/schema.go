package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/pelletier/go-toml/v2"
	"github.com/pders01/shelf/internal/facet"
	"github.com/pders01/shelf/internal/storage"
)

//go:embed facets.toml
var facetsTOML []byte

// FacetDef describes one facet in the schema file.
type FacetDef struct {
	Key     string      `toml:"key"`
	Label   string      `toml:"label"`
	Kind    string      `toml:"kind"`
	Field   string      `toml:"field"`
	Order   int         `toml:"order"`
	Hidden  bool        `toml:"hidden"`
	Options []OptionDef `toml:"options,omitempty"`
}

// OptionDef is a fixed option, used by "min" facets.
type OptionDef struct {
	Value string `toml:"value"`
	Label string `toml:"label"`
}

type schemaFile struct {
	Dynamic    *bool      `toml:"dynamic"`
	MaxDynamic *int       `toml:"max_dynamic"`
	Facets     []FacetDef `toml:"facets"`
}

// Schema is the ordered set of facets the catalog aggregates.
type Schema struct {
	Facets []FacetDef
	// Dynamic enables discovery of attr.* and spec.* facets from product
	// data, at most MaxDynamic of them.
	Dynamic    bool
	MaxDynamic int
}

// DefaultSchema parses the embedded facets.toml.
func DefaultSchema() (*Schema, error) {
	var file schemaFile
	if err := toml.Unmarshal(facetsTOML, &file); err != nil {
		return nil, fmt.Errorf("parsing facets.toml: %w", err)
	}
	s := &Schema{}
	s.merge(file)
	return s, nil
}

// LoadSchema returns the embedded schema merged with the file at path, if
// one exists. Entries override built-ins by key.
func LoadSchema(path string) (*Schema, error) {
	s, err := DefaultSchema()
	if err != nil {
		return nil, err
	}
	if path == "" {
		return s, nil
	}
	if strings.HasPrefix(path, "~/") {
		if home, herr := os.UserHomeDir(); herr == nil {
			path = filepath.Join(home, path[2:])
		}
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var file schemaFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	s.merge(file)
	return s, nil
}

func (s *Schema) merge(file schemaFile) {
	if file.Dynamic != nil {
		s.Dynamic = *file.Dynamic
	}
	if file.MaxDynamic != nil {
		s.MaxDynamic = *file.MaxDynamic
	}
	for _, def := range file.Facets {
		if def.Key == "" {
			continue
		}
		if def.Field == "" {
			def.Field = def.Key
		}
		replaced := false
		for i := range s.Facets {
			if s.Facets[i].Key == def.Key {
				s.Facets[i] = def
				replaced = true
				break
			}
		}
		if !replaced {
			s.Facets = append(s.Facets, def)
		}
	}
	sort.SliceStable(s.Facets, func(i, j int) bool {
		return s.Facets[i].Order < s.Facets[j].Order
	})
}

// Def returns the definition for key.
func (s *Schema) Def(key string) (FacetDef, bool) {
	for _, d := range s.Facets {
		if d.Key == key {
			return d, true
		}
	}
	return FacetDef{}, false
}

// FacetKind resolves the declared kind, applying the dynamic key rule.
func (d FacetDef) FacetKind() facet.Kind {
	k, ok := facet.ParseKind(d.Kind)
	if !ok {
		k = facet.Checkbox
	}
	return facet.KindForKey(d.Key, k)
}

// Validate reports schema entries that cannot be aggregated.
func (s *Schema) Validate() error {
	seen := make(map[string]bool, len(s.Facets))
	for _, d := range s.Facets {
		if seen[d.Key] {
			return fmt.Errorf("facet %q declared twice", d.Key)
		}
		seen[d.Key] = true
		if _, ok := facet.ParseKind(d.Kind); !ok {
			return fmt.Errorf("facet %q: unknown kind %q", d.Key, d.Kind)
		}
		kind := d.FacetKind()
		if kind == facet.Range || kind == facet.MinSelect {
			if !isNumericField(d.Field) {
				return fmt.Errorf("facet %q: field %q is not numeric", d.Key, d.Field)
			}
		}
		if kind == facet.MinSelect {
			for _, o := range d.Options {
				if _, err := strconv.Atoi(o.Value); err != nil {
					return fmt.Errorf("facet %q: option %q is not a number", d.Key, o.Value)
				}
			}
		}
	}
	return nil
}

func isNumericField(field string) bool {
	return field == "price" || field == "rating"
}

// textValue returns the string a checkbox facet groups products by.
func textValue(p *storage.Product, field string) (string, bool) {
	var v string
	switch {
	case strings.HasPrefix(field, facet.AttrPrefix):
		v = p.Attributes[strings.TrimPrefix(field, facet.AttrPrefix)]
	case strings.HasPrefix(field, facet.SpecPrefix):
		v = p.Specs[strings.TrimPrefix(field, facet.SpecPrefix)]
	case field == "brand":
		v = p.Brand
	case field == "store":
		v = p.Store
	case field == "category":
		v = p.Category
	case field == "availability":
		v = p.Availability()
	case field == "sku":
		v = p.SKU
	default:
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

// numberValue returns the value a range or min facet measures.
func numberValue(p *storage.Product, field string) (int, bool) {
	switch field {
	case "price":
		return p.Price, true
	case "rating":
		return p.Rating, p.Rating > 0
	default:
		return 0, false
	}
}

// dynamicLabel turns "screen_size" into "Screen size".
func dynamicLabel(key string) string {
	name := key
	if i := strings.IndexByte(key, '.'); i >= 0 {
		name = key[i+1:]
	}
	name = strings.NewReplacer("_", " ", "-", " ").Replace(name)
	r := []rune(name)
	if len(r) == 0 {
		return key
	}
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
