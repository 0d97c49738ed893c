package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	bleveQuery "github.com/blevesearch/bleve/v2/search/query"
	"github.com/pders01/shelf/internal/debuglog"
	"github.com/pders01/shelf/internal/storage"
)

// Index is the full-text side of the catalog. Filtering and facet counts
// happen in memory; bleve only answers "which products match this text".
type Index struct {
	idx bleve.Index
}

// Hit is one text match.
type Hit struct {
	ID    string
	Score float64
}

// OpenIndex opens or creates the bleve index at path. An empty path gives
// an in-memory index.
func OpenIndex(path string) (*Index, error) {
	if path == "" {
		idx, err := bleve.NewMemOnly(buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("creating memory index: %w", err)
		}
		return &Index{idx: idx}, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}
	idx, err := bleve.Open(path)
	if err != nil {
		idx, err = bleve.New(path, buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("creating index: %w", err)
		}
	}
	return &Index{idx: idx}, nil
}

func buildIndexMapping() mapping.IndexMapping {
	im := bleve.NewIndexMapping()
	im.DefaultAnalyzer = standard.Name

	dm := bleve.NewDocumentMapping()

	title := bleve.NewTextFieldMapping()
	title.Analyzer = standard.Name
	title.Store = true
	title.IncludeTermVectors = true

	desc := bleve.NewTextFieldMapping()
	desc.Analyzer = standard.Name
	desc.Store = false

	brand := bleve.NewTextFieldMapping()
	brand.Analyzer = standard.Name

	category := bleve.NewTextFieldMapping()
	category.Analyzer = standard.Name

	attrs := bleve.NewTextFieldMapping()
	attrs.Analyzer = standard.Name

	sourceID := bleve.NewTextFieldMapping()
	sourceID.Analyzer = keyword.Name
	sourceID.Store = true

	dm.AddFieldMappingsAt("title", title)
	dm.AddFieldMappingsAt("description", desc)
	dm.AddFieldMappingsAt("brand", brand)
	dm.AddFieldMappingsAt("category", category)
	dm.AddFieldMappingsAt("attributes", attrs)
	dm.AddFieldMappingsAt("source_id", sourceID)

	im.DefaultMapping = dm
	return im
}

func productDoc(p *storage.Product) map[string]any {
	var attrs []string
	for k, v := range p.Attributes {
		attrs = append(attrs, k+" "+v)
	}
	for k, v := range p.Specs {
		attrs = append(attrs, k+" "+v)
	}
	return map[string]any{
		"title":       p.Title,
		"description": p.Description,
		"brand":       p.Brand,
		"category":    p.Category,
		"attributes":  strings.Join(attrs, " "),
		"source_id":   p.SourceID,
	}
}

// Reindex replaces the index contents with products.
func (x *Index) Reindex(products []*storage.Product) error {
	ids, err := x.allIDs()
	if err != nil {
		return err
	}
	batch := x.idx.NewBatch()
	for _, id := range ids {
		batch.Delete(id)
	}
	for _, p := range products {
		if err := batch.Index(p.ID, productDoc(p)); err != nil {
			return fmt.Errorf("indexing %s: %w", p.ID, err)
		}
	}
	return x.idx.Batch(batch)
}

// Update indexes products, replacing earlier versions.
func (x *Index) Update(products []*storage.Product) error {
	batch := x.idx.NewBatch()
	for _, p := range products {
		if err := batch.Index(p.ID, productDoc(p)); err != nil {
			return fmt.Errorf("indexing %s: %w", p.ID, err)
		}
	}
	return x.idx.Batch(batch)
}

// Delete removes documents by product ID.
func (x *Index) Delete(ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	batch := x.idx.NewBatch()
	for _, id := range ids {
		batch.Delete(id)
	}
	return x.idx.Batch(batch)
}

// DeleteSource removes every document imported from sourceID.
func (x *Index) DeleteSource(sourceID string) error {
	tq := bleve.NewTermQuery(sourceID)
	tq.SetField("source_id")

	size := 1000
	for {
		req := bleve.NewSearchRequestOptions(tq, size, 0, false)
		res, err := x.idx.Search(req)
		if err != nil {
			return err
		}
		if len(res.Hits) == 0 {
			return nil
		}
		batch := x.idx.NewBatch()
		for _, h := range res.Hits {
			batch.Delete(h.ID)
		}
		if err := x.idx.Batch(batch); err != nil {
			return err
		}
		if len(res.Hits) < size {
			return nil
		}
	}
}

// Match returns up to limit products matching text, best first. Title
// matches weigh most, then brand and category, then everything else;
// prefixes count slightly less than whole terms.
func (x *Index) Match(text string, limit int) ([]Hit, error) {
	tokens := tokenize(text)
	if len(tokens) == 0 {
		return nil, nil
	}
	boosts := []struct {
		field string
		boost float64
	}{
		{"title", 4.0},
		{"brand", 2.5},
		{"category", 2.0},
		{"attributes", 1.2},
		{"description", 1.0},
	}

	var perToken []bleveQuery.Query
	for _, tok := range tokens {
		var qs []bleveQuery.Query
		for _, f := range boosts {
			qm := bleve.NewMatchQuery(tok)
			qm.SetField(f.field)
			qm.SetBoost(f.boost)
			qp := bleve.NewPrefixQuery(tok)
			qp.SetField(f.field)
			qp.SetBoost(f.boost * 0.9)
			qs = append(qs, qm, qp)
		}
		perToken = append(perToken, bleve.NewDisjunctionQuery(qs...))
	}
	// Every token has to match somewhere.
	q := bleve.NewConjunctionQuery(perToken...)
	req := bleve.NewSearchRequestOptions(q, limit, 0, false)
	res, err := x.idx.Search(req)
	if err != nil {
		return nil, err
	}
	hits := make([]Hit, 0, len(res.Hits))
	for _, h := range res.Hits {
		hits = append(hits, Hit{ID: h.ID, Score: h.Score})
	}
	debuglog.Debugf("index match %q: %d hits of %d", text, len(hits), res.Total)
	return hits, nil
}

// DocCount reports the number of indexed documents.
func (x *Index) DocCount() (int, error) {
	n, err := x.idx.DocCount()
	return int(n), err
}

func (x *Index) Close() error {
	return x.idx.Close()
}

func (x *Index) allIDs() ([]string, error) {
	n, err := x.idx.DocCount()
	if err != nil || n == 0 {
		return nil, err
	}
	req := bleve.NewSearchRequestOptions(bleve.NewMatchAllQuery(), int(n), 0, false)
	res, err := x.idx.Search(req)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(res.Hits))
	for _, h := range res.Hits {
		ids = append(ids, h.ID)
	}
	return ids, nil
}

// tokenize lowercases text and splits it on anything that is not a letter
// or digit. Single characters are dropped.
func tokenize(text string) []string {
	var terms []string
	var current strings.Builder
	flush := func() {
		if current.Len() > 1 {
			terms = append(terms, current.String())
		}
		current.Reset()
	}
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			current.WriteRune(unicode.ToLower(r))
		} else {
			flush()
		}
	}
	flush()
	return terms
}
