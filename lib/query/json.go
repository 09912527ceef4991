package query

import (
	"bytes"
	"encoding/json"
	"sort"
)

// ParseFilter parses the JSON filter parameter into the typed tree. Supported forms are $and, $or and $nor arrays,
// field: scalar (equality) and field: {operator: value} with $eq, $ne, $gt, $gte, $lt, $lte, $in, $nin, $exists,
// $regex (+ $options) and $not: {$regex}. Anything else is rejected.
func ParseFilter(raw string) (Expr, error) {
	dec := json.NewDecoder(bytes.NewBufferString(raw))
	dec.UseNumber()

	var doc map[string]interface{}
	if err := dec.Decode(&doc); err != nil {
		return nil, invalid(ParamFilter, "not a JSON object")
	}

	return filterObject(doc)
}

func sortedKeys(m map[string]interface{}) []string {
	ks := make([]string, 0, len(m))
	for k := range m {
		ks = append(ks, k)
	}

	sort.Strings(ks)

	return ks
}

func filterObject(doc map[string]interface{}) (Expr, error) {
	var es []Expr

	for _, k := range sortedKeys(doc) {
		v := doc[k]

		switch k {
		case "$and", "$or", "$nor":
			subs, err := filterList(k, v)
			if err != nil {
				return nil, err
			}

			switch k {
			case "$and":
				es = append(es, And(subs))
			case "$or":
				es = append(es, Or(subs))
			default:
				es = append(es, Nor(subs))
			}
		default:
			if k == "id" {
				k = IDField
			}

			if !ValidField(k) {
				return nil, invalid(ParamFilter, "bad field %q", k)
			}

			ps, err := fieldOperators(k, v)
			if err != nil {
				return nil, err
			}

			es = append(es, ps...)
		}
	}

	if len(es) == 0 {
		return nil, nil
	}

	if len(es) == 1 {
		return es[0], nil
	}

	return And(es), nil
}

func filterList(op string, v interface{}) ([]Expr, error) {
	items, ok := v.([]interface{})
	if !ok || len(items) == 0 {
		return nil, invalid(ParamFilter, "%s needs a non-empty array", op)
	}

	subs := make([]Expr, 0, len(items))

	for _, it := range items {
		m, ok := it.(map[string]interface{})
		if !ok {
			return nil, invalid(ParamFilter, "%s items must be objects", op)
		}

		e, err := filterObject(m)
		if err != nil {
			return nil, err
		}

		if e != nil {
			subs = append(subs, e)
		}
	}

	if len(subs) == 0 {
		return nil, invalid(ParamFilter, "%s has no conditions", op)
	}

	return subs, nil
}

var jsonOps = map[string]Op{
	"$eq":  Eq,
	"$ne":  Ne,
	"$gt":  Gt,
	"$gte": Gte,
	"$lt":  Lt,
	"$lte": Lte,
	"$in":  In,
	"$nin": Nin,
}

func fieldOperators(field string, v interface{}) ([]Expr, error) {
	m, ok := v.(map[string]interface{})
	if !ok {
		val, err := jsonValue(v)
		if err != nil {
			return nil, err
		}

		return []Expr{&Predicate{Field: field, Op: Eq, Value: val}}, nil
	}

	var out []Expr

	for _, k := range sortedKeys(m) {
		arg := m[k]

		switch k {
		case "$exists":
			b, ok := arg.(bool)
			if !ok {
				return nil, invalid(ParamFilter, "$exists of %q must be a boolean", field)
			}

			op := Exists
			if !b {
				op = NotExists
			}

			out = append(out, &Predicate{Field: field, Op: op})
		case "$regex":
			pat, err := jsonPattern(field, arg, m["$options"])
			if err != nil {
				return nil, err
			}

			out = append(out, &Predicate{Field: field, Op: Regex, Value: pat})
		case "$options":
			if _, ok := m["$regex"]; !ok {
				return nil, invalid(ParamFilter, "$options of %q without $regex", field)
			}
		case "$not":
			inner, ok := arg.(map[string]interface{})
			if !ok {
				return nil, invalid(ParamFilter, "$not of %q must be an object", field)
			}

			re, ok := inner["$regex"]
			if !ok {
				return nil, invalid(ParamFilter, "$not of %q supports $regex only", field)
			}

			pat, err := jsonPattern(field, re, inner["$options"])
			if err != nil {
				return nil, err
			}

			out = append(out, &Predicate{Field: field, Op: NotRegex, Value: pat})
		default:
			op, ok := jsonOps[k]
			if !ok {
				return nil, invalid(ParamFilter, "unsupported operator %s", k)
			}

			val, err := jsonOperand(op, arg)
			if err != nil {
				return nil, err
			}

			out = append(out, &Predicate{Field: field, Op: op, Value: val})
		}
	}

	return out, nil
}

func jsonOperand(op Op, arg interface{}) (interface{}, error) {
	if op != In && op != Nin {
		return jsonValue(arg)
	}

	items, ok := arg.([]interface{})
	if !ok {
		return nil, invalid(ParamFilter, "$%s needs an array", op)
	}

	vs := make([]interface{}, 0, len(items))

	for _, it := range items {
		v, err := jsonValue(it)
		if err != nil {
			return nil, err
		}

		vs = append(vs, v)
	}

	return vs, nil
}

// jsonValue converts a decoded JSON scalar. Numbers become int64 or float64 and date-looking strings time.Time.
// Objects are refused so operators cannot be smuggled in values.
func jsonValue(v interface{}) (interface{}, error) {
	switch t := v.(type) {
	case nil, bool:
		return t, nil
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return n, nil
		}

		f, err := t.Float64()
		if err != nil {
			return nil, invalid(ParamFilter, "bad number %s", t)
		}

		return f, nil
	case string:
		if d, ok := parseDate(t); ok {
			return d, nil
		}

		return t, nil
	}

	return nil, invalid(ParamFilter, "unsupported value %v", v)
}

func jsonPattern(field string, re, opts interface{}) (Pattern, error) {
	src, ok := re.(string)
	if !ok {
		return Pattern{}, invalid(ParamFilter, "$regex of %q must be a string", field)
	}

	flags := ""

	if opts != nil {
		if flags, ok = opts.(string); !ok {
			return Pattern{}, invalid(ParamFilter, "$options of %q must be a string", field)
		}
	}

	p, _, err := parsePattern(ParamFilter, "/"+src+"/"+flags)
	if err != nil || p == nil {
		return Pattern{}, invalid(ParamFilter, "bad regular expression for %q", field)
	}

	return *p, nil
}
