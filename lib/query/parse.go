package query

import (
	"math"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/tarancss/eosapi/lib/util"
)

// Reserved parameter names.
const (
	ParamFilter  = "filter"
	ParamSort    = "sort"
	ParamSkip    = "skip"
	ParamLimit   = "limit"
	ParamFields  = "fields"
	ParamPage    = "page"
	ParamPerPage = "perPage"
)

// Options bound the paging of a descriptor.
type Options struct {
	DefaultLimit int64
	MaxLimit     int64 // 0 means no maximum
	// Ignore lists non-reserved parameters that are not field filters (for example path-level options).
	Ignore []string
}

// ListOptions are the paging bounds of user-facing list endpoints.
var ListOptions = Options{DefaultLimit: 30, MaxLimit: 100} //nolint:gochecknoglobals,gomnd // documented defaults

// operators in the order they are tried at a given position: two-character tokens first.
var operators = []struct {
	tok string
	op  Op
}{
	{"!=", Ne},
	{">=", Gte},
	{"<=", Lte},
	{"=", Eq},
	{">", Gt},
	{"<", Lt},
}

// Parse builds a Descriptor from the query parameters of a request. Any malformed parameter fails the whole parse
// with an *Error naming it.
func Parse(values url.Values, opts Options) (*Descriptor, error) {
	d := &Descriptor{Limit: opts.DefaultLimit}

	var err error

	if d.Skip, d.Limit, err = parsePaging(values, opts); err != nil {
		return nil, err
	}

	if d.Sort, err = parseSort(values.Get(ParamSort)); err != nil {
		return nil, err
	}

	if d.Projection, err = ParseProjection(values); err != nil {
		return nil, err
	}

	var raw Expr

	if f := values.Get(ParamFilter); f != "" {
		if raw, err = ParseFilter(f); err != nil {
			return nil, err
		}
	}

	preds, err := parsePredicates(values, opts.Ignore)
	if err != nil {
		return nil, err
	}

	adhoc := make([]Expr, 0, len(preds)+1)
	for _, p := range preds {
		adhoc = append(adhoc, p)
	}

	d.Filter = AllOf(append(adhoc, raw)...)

	return d, nil
}

func reserved(key string) bool {
	switch key {
	case ParamFilter, ParamSort, ParamSkip, ParamLimit, ParamFields, ParamPage, ParamPerPage:
		return true
	}

	return false
}

func parseNonNegative(param, raw string) (int64, error) {
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n < 0 {
		return 0, invalid(param, "must be a non-negative integer")
	}

	return n, nil
}

func parsePaging(values url.Values, opts Options) (skip, limit int64, err error) {
	limit = opts.DefaultLimit

	var page, perPage int64

	if v := values.Get(ParamPerPage); v != "" {
		if perPage, err = parseNonNegative(ParamPerPage, v); err != nil {
			return 0, 0, err
		}

		if perPage == 0 {
			return 0, 0, invalid(ParamPerPage, "must be greater than 0")
		}

		limit = perPage
	}

	if v := values.Get(ParamPage); v != "" {
		if page, err = parseNonNegative(ParamPage, v); err != nil {
			return 0, 0, err
		}

		if page == 0 {
			return 0, 0, invalid(ParamPage, "must be greater than 0")
		}

		if limit > 0 && page-1 > math.MaxInt64/limit {
			return 0, 0, invalid(ParamPage, "is too large")
		}

		skip = (page - 1) * limit
	}

	if v := values.Get(ParamSkip); v != "" {
		if skip, err = parseNonNegative(ParamSkip, v); err != nil {
			return 0, 0, err
		}
	}

	param := ParamPerPage

	if v := values.Get(ParamLimit); v != "" {
		param = ParamLimit

		if limit, err = parseNonNegative(ParamLimit, v); err != nil {
			return 0, 0, err
		}

		if limit == 0 {
			return 0, 0, invalid(ParamLimit, "must be greater than 0")
		}
	}

	if opts.MaxLimit > 0 && limit > opts.MaxLimit {
		return 0, 0, invalid(param, "must be less than or equal to %d", opts.MaxLimit)
	}

	return skip, limit, nil
}

func identity(path string) (prefix string, ok bool) {
	if path == IDField || path == "id" {
		return "", true
	}

	if strings.HasSuffix(path, "."+IDField) {
		return strings.TrimSuffix(path, "."+IDField), true
	}

	return "", false
}

func parseSort(raw string) ([]SortKey, error) {
	if raw == "" {
		return nil, nil
	}

	var keys []SortKey

	seen := map[string]bool{}

	for _, tok := range strings.Split(raw, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}

		k := SortKey{Field: tok}

		switch tok[0] {
		case '-':
			k.Desc = true
			k.Field = tok[1:]
		case '+':
			k.Field = tok[1:]
		}

		if k.Field == "id" {
			k.Field = IDField
		}

		if !ValidField(k.Field) {
			return nil, invalid(ParamSort, "bad field %q", k.Field)
		}

		if seen[k.Field] {
			continue
		}

		seen[k.Field] = true
		keys = append(keys, k)
	}

	return keys, nil
}

// ParseProjection parses the fields parameter alone. It is what single entity lookups use.
func ParseProjection(values url.Values) (Projection, error) {
	var p Projection

	raw := values.Get(ParamFields)
	if raw == "" {
		return p, nil
	}

	rootID := false

	for _, tok := range strings.Split(raw, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}

		mode := Include
		path := tok

		if tok[0] == '-' {
			mode = Exclude
			path = tok[1:]
		}

		if path == "id" {
			path = IDField
		}

		if !ValidField(path) {
			return p, invalid(ParamFields, "bad field %q", path)
		}

		if prefix, ok := identity(path); ok {
			if mode == Exclude {
				if !p.ExcludesID(prefix) {
					p.ExcludeIDs = append(p.ExcludeIDs, prefix)
				}

				continue
			}

			if prefix == "" {
				// the root identity is always returned unless excluded
				rootID = true

				continue
			}
		}

		if p.Mode != None && p.Mode != mode {
			return Projection{}, invalid(ParamFields, "cannot mix inclusion and exclusion of fields")
		}

		p.Mode = mode
		p.Fields = appendPath(p.Fields, path)
	}

	if rootID && p.Mode == None && len(p.ExcludeIDs) == 0 {
		// only the root identity was asked for
		p.Mode = Include
		p.Fields = []string{IDField}
	}

	return p, nil
}

// appendPath adds path unless it or an ancestor is already present, and drops descendants it covers.
func appendPath(paths []string, path string) []string {
	out := paths[:0:0]

	for _, p := range paths {
		if Under(path, p) {
			return paths
		}

		if !Under(p, path) {
			out = append(out, p)
		}
	}

	return append(out, path)
}

// AppendPath is appendPath for other packages building projections.
func AppendPath(paths []string, path string) []string {
	return appendPath(paths, path)
}

func parsePredicates(values url.Values, ignore []string) ([]*Predicate, error) {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	var preds []*Predicate

	for _, k := range keys {
		if reserved(k) || util.In(ignore, k) {
			continue
		}

		for _, v := range values[k] {
			tok := k
			if v != "" {
				tok = k + "=" + v
			}

			p, err := parseToken(tok)
			if err != nil {
				return nil, err
			}

			preds = append(preds, p)
		}
	}

	sortPredicates(preds)

	return preds, nil
}

// parseToken reads one field<op>value token. The first operator character decides the split, and at that position
// two-character operators win over one-character ones.
func parseToken(tok string) (*Predicate, error) {
	pos := strings.IndexAny(tok, "!=<>")

	// a leading ! with no operator after it is a does-not-exist test
	if pos == 0 && tok[0] == '!' && !strings.ContainsAny(tok[1:], "!=<>") {
		return fieldPredicate(tok, tok[1:], NotExists, nil)
	}

	for pos >= 0 {
		for _, o := range operators {
			if strings.HasPrefix(tok[pos:], o.tok) {
				return opPredicate(tok, tok[:pos], o.op, tok[pos+len(o.tok):])
			}
		}

		// a lone ! is not an operator, keep scanning
		next := strings.IndexAny(tok[pos+1:], "!=<>")
		if next < 0 {
			break
		}

		pos += next + 1
	}

	return fieldPredicate(tok, tok, Exists, nil)
}

func fieldPredicate(param, field string, op Op, v interface{}) (*Predicate, error) {
	if field == "id" {
		field = IDField
	}

	if !ValidField(field) {
		return nil, invalid(param, "bad field %q", field)
	}

	return &Predicate{Field: field, Op: op, Value: v}, nil
}

func opPredicate(param, field string, op Op, raw string) (*Predicate, error) {
	if raw == "" {
		return nil, invalid(param, "missing value")
	}

	if op == Eq || op == Ne {
		pat, ok, err := parsePattern(param, raw)
		if err != nil {
			return nil, err
		}

		switch {
		case ok && op == Eq:
			return fieldPredicate(param, field, Regex, *pat)
		case ok:
			return fieldPredicate(param, field, NotRegex, *pat)
		case strings.Contains(raw, ",") && op == Eq:
			return fieldPredicate(param, field, In, coerceList(raw))
		case strings.Contains(raw, ","):
			return fieldPredicate(param, field, Nin, coerceList(raw))
		}
	}

	return fieldPredicate(param, field, op, Coerce(raw))
}
