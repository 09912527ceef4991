package entity

import (
	"strconv"
	"strings"

	"github.com/tarancss/eosapi/lib/query"
)

// Transform maps a stored document to its wire record: only whitelisted fields, _id renamed to id, numeric-as-string
// fields turned into numbers and absent fields omitted. Array fields the projection did not drop are returned as []
// when absent. Joined children go through the child kind's Transform with the related part of the projection.
func Transform(k Kind, doc Document, p query.Projection) Record {
	return transform(k, doc, p, false)
}

// transform resolves the relation of k only at the top level. Inside a join the relation of the child kind was never
// looked up, so it is returned as stored and never defaulted.
func transform(k Kind, doc Document, p query.Projection, nested bool) Record {
	if doc == nil {
		return nil
	}

	rel, hasRel := k.Relation()
	out := make(Record, len(doc))

	for _, f := range k.Whitelist() {
		unresolved := nested && hasRel && f == rel.Field && rel.Strategy.Joined()

		src := f
		if f == "id" {
			src = query.IDField
		}

		v, ok := doc[src]
		if !ok || v == nil {
			if isArray(k, f) && p.Selects(f) && !unresolved {
				out[f] = []interface{}{}
			}

			continue
		}

		switch {
		case unresolved:
			out[f] = v
		case hasRel && f == rel.Field && rel.Strategy.Joined():
			out[f] = transformChildren(rel, v, p)
		case isNumeric(k, f):
			out[f] = Number(v)
		default:
			out[f] = v
		}
	}

	return out
}

// TransformAll applies Transform to every document.
func TransformAll(k Kind, docs []Document, p query.Projection) []Record {
	out := make([]Record, 0, len(docs))
	for _, d := range docs {
		out = append(out, Transform(k, d, p))
	}

	return out
}

func transformChildren(rel Relation, v interface{}, p query.Projection) interface{} {
	items, ok := v.([]interface{})
	if !ok {
		return v
	}

	child, ok := Lookup(rel.Child)
	if !ok {
		return v
	}

	_, related := query.Split(p, rel.Field)
	out := make([]interface{}, len(items))

	for i, it := range items {
		switch t := it.(type) {
		case map[string]interface{}:
			out[i] = transform(child, Document(t), related, true)
		case Document:
			out[i] = transform(child, t, related, true)
		default:
			// dangling keys keep their slot as null; unresolved keys are returned as stored
			out[i] = t
		}
	}

	return out
}

func isArray(k Kind, f string) bool {
	for _, a := range k.Arrays() {
		if a == f {
			return true
		}
	}

	return false
}

func isNumeric(k Kind, f string) bool {
	for _, n := range k.NumericStrings() {
		if n == f {
			return true
		}
	}

	return false
}

// Number converts a numeric-as-string value to float64 using its leading number ("1000.0000 EOS" is 1000). Numbers
// are widened to float64 and values with no leading number are returned unchanged.
func Number(v interface{}) interface{} {
	switch t := v.(type) {
	case float64:
		return t
	case float32:
		return float64(t)
	case int64:
		return float64(t)
	case int32:
		return float64(t)
	case int:
		return float64(t)
	case string:
		if f, ok := leadingFloat(t); ok {
			return f
		}
	}

	return v
}

func leadingFloat(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if fs := strings.Fields(s); len(fs) > 0 {
		s = fs[0]
	}

	// longest prefix that parses
	for end := len(s); end > 0; end-- {
		if f, err := strconv.ParseFloat(s[:end], 64); err == nil {
			return f, true
		}
	}

	return 0, false
}
