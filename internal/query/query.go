// Package query converts catalog requests to and from URL query strings,
// used for the --filters flag and the permalink shown in the status bar.
//
// Filters use one parameter per facet:
//
//	str=brand:Acme||Globex
//	rng=price:10-90     (either bound may be empty)
//	num=rating:4
package query

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/gorilla/schema"
	"github.com/pders01/shelf/internal/catalog"
	"github.com/pders01/shelf/internal/debuglog"
	"github.com/pders01/shelf/internal/facet"
)

const (
	strParam = "str"
	rngParam = "rng"
	numParam = "num"

	valueSep = "||"
)

type params struct {
	Text     string `schema:"q,omitempty"`
	Sort     string `schema:"sort,omitempty"`
	Page     int    `schema:"page,omitempty"`
	PageSize int    `schema:"size,omitempty"`
}

var (
	decoder = schema.NewDecoder()
	encoder = schema.NewEncoder()

	rangePattern = regexp.MustCompile(`^(-?\d+)?-(-?\d*)$`)
)

func init() {
	decoder.IgnoreUnknownKeys(true)
}

// Encode renders req as query values. Empty selections and opaque values
// are left out.
func Encode(req catalog.Request) url.Values {
	values := url.Values{}
	p := params{Text: req.Text, Sort: req.Sort, Page: req.Page, PageSize: req.PageSize}
	if err := encoder.Encode(p, values); err != nil {
		debuglog.Warnf("encoding query base fields: %v", err)
		values = url.Values{}
	}

	for _, key := range req.Selected.Keys() {
		switch v := req.Selected[key].(type) {
		case facet.Set:
			if v.IsZero() {
				continue
			}
			values.Add(strParam, key+":"+strings.Join(v.Values(), valueSep))
		case facet.RangeValue:
			if v.IsZero() {
				continue
			}
			values.Add(rngParam, key+":"+bound(v.Min)+"-"+bound(v.Max))
		case facet.Number:
			if v.IsZero() {
				continue
			}
			values.Add(numParam, key+":"+strconv.Itoa(*v.Value))
		}
	}
	return values
}

func bound(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

// String is Encode followed by url.Values.Encode.
func String(req catalog.Request) string {
	return Encode(req).Encode()
}

// Decode parses query values. Malformed filter entries are skipped; only
// a broken base field is an error.
func Decode(values url.Values) (catalog.Request, error) {
	var p params
	if err := decoder.Decode(&p, values); err != nil {
		return catalog.Request{}, fmt.Errorf("decoding query: %w", err)
	}
	req := catalog.Request{
		Text:     p.Text,
		Sort:     p.Sort,
		Page:     p.Page,
		PageSize: p.PageSize,
		Selected: facet.Selected{},
	}

	for _, v := range values[strParam] {
		key, value, ok := split(v)
		if !ok {
			continue
		}
		set := facet.SetOf(req.Selected[key])
		for _, item := range strings.Split(value, valueSep) {
			if item = strings.TrimSpace(item); item != "" && !set.Has(item) {
				set = set.Toggle(item)
			}
		}
		req.Selected = req.Selected.With(key, set)
	}

	for _, v := range values[rngParam] {
		key, value, ok := split(v)
		if !ok {
			continue
		}
		m := rangePattern.FindStringSubmatch(value)
		if m == nil {
			continue
		}
		var r facet.RangeValue
		if n, err := strconv.Atoi(m[1]); err == nil {
			r.Min = facet.Int(n)
		}
		if n, err := strconv.Atoi(m[2]); err == nil {
			r.Max = facet.Int(n)
		}
		req.Selected = req.Selected.With(key, r)
	}

	for _, v := range values[numParam] {
		key, value, ok := split(v)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(value)
		if err != nil {
			continue
		}
		req.Selected = req.Selected.With(key, facet.Number{Value: facet.Int(n)})
	}
	return req, nil
}

// Parse decodes a raw query string; a leading "?" is allowed.
func Parse(raw string) (catalog.Request, error) {
	values, err := url.ParseQuery(strings.TrimPrefix(strings.TrimSpace(raw), "?"))
	if err != nil {
		return catalog.Request{}, fmt.Errorf("parsing query: %w", err)
	}
	return Decode(values)
}

func split(v string) (key, value string, ok bool) {
	key, value, ok = strings.Cut(v, ":")
	key, value = strings.TrimSpace(key), strings.TrimSpace(value)
	return key, value, ok && key != "" && value != ""
}
