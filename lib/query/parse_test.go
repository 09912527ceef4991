package query

import (
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustValues(t *testing.T, raw string) url.Values {
	t.Helper()

	v, err := url.ParseQuery(raw)
	require.NoError(t, err)

	return v
}

func TestParsePredicates(t *testing.T) {
	cases := []struct {
		name, query string
		exp         Expr
	}{
		{"eq_string", "name=inita", &Predicate{Field: "name", Op: Eq, Value: "inita"}},
		{"eq_int", "block_num=42", &Predicate{Field: "block_num", Op: Eq, Value: int64(42)}},
		{"eq_leading_zero", "block_num=0042", &Predicate{Field: "block_num", Op: Eq, Value: "0042"}},
		{"eq_float", "eos_balance=10.5", &Predicate{Field: "eos_balance", Op: Eq, Value: 10.5}},
		{"eq_bool", "active=true", &Predicate{Field: "active", Op: Eq, Value: true}},
		{"eq_null", "abi=null", &Predicate{Field: "abi", Op: Eq, Value: nil}},
		{"ne", "name!=inita", &Predicate{Field: "name", Op: Ne, Value: "inita"}},
		{"gt", "block_num>10", &Predicate{Field: "block_num", Op: Gt, Value: int64(10)}},
		{"gte", "block_num>=10", &Predicate{Field: "block_num", Op: Gte, Value: int64(10)}},
		{"lt", "block_num<10", &Predicate{Field: "block_num", Op: Lt, Value: int64(10)}},
		{"lte", "block_num<=10", &Predicate{Field: "block_num", Op: Lte, Value: int64(10)}},
		{"in", "name=inita,initb", &Predicate{Field: "name", Op: In, Value: []interface{}{"inita", "initb"}}},
		{"nin", "block_num!=1,2", &Predicate{Field: "block_num", Op: Nin, Value: []interface{}{int64(1), int64(2)}}},
		{"exists", "abi", &Predicate{Field: "abi", Op: Exists}},
		{"not_exists", "!abi", &Predicate{Field: "abi", Op: NotExists}},
		{"regex", "name=/^init/i", &Predicate{Field: "name", Op: Regex, Value: Pattern{Source: "^init", Flags: "i"}}},
		{"not_regex", "name!=/^init/", &Predicate{Field: "name", Op: NotRegex, Value: Pattern{Source: "^init"}}},
		{"regex_unicode", "name=/abc/u", &Predicate{Field: "name", Op: Regex, Value: Pattern{Source: "abc", Flags: "u"}}},
		{"regex_lookahead", "name=/(?=a)b/", &Predicate{Field: "name", Op: Regex, Value: Pattern{Source: "(?=a)b"}}},
		{"regex_backref", `name=/(a)\1/`, &Predicate{Field: "name", Op: Regex, Value: Pattern{Source: `(a)\1`}}},
		{"cast_string", "name=string(42)", &Predicate{Field: "name", Op: Eq, Value: "42"}},
		{"dotted", "transactions.block_id=abc", &Predicate{Field: "transactions.block_id", Op: Eq, Value: "abc"}},
		{"id_alias", "id=5a0000000000000000000000", &Predicate{Field: "_id", Op: Eq, Value: "5a0000000000000000000000"}},
		{"date", "timestamp>2018-01-02", &Predicate{Field: "timestamp", Op: Gt,
			Value: time.Date(2018, 1, 2, 0, 0, 0, 0, time.UTC)}},
		{"two", "block_num>10&block_num<20", And{
			&Predicate{Field: "block_num", Op: Gt, Value: int64(10)},
			&Predicate{Field: "block_num", Op: Lt, Value: int64(20)},
		}},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			d, err := Parse(mustValues(t, c.query), ListOptions)
			require.NoError(t, err)
			assert.Equal(t, c.exp, d.Filter)
		})
	}
}

func TestParseDefaults(t *testing.T) {
	d, err := Parse(url.Values{}, ListOptions)
	require.NoError(t, err)
	assert.Nil(t, d.Filter)
	assert.Nil(t, d.Sort)
	assert.Equal(t, int64(0), d.Skip)
	assert.Equal(t, int64(30), d.Limit)
	assert.True(t, d.Projection.Empty())
}

func TestParsePaging(t *testing.T) {
	cases := []struct {
		name, query string
		skip, limit int64
		param       string // offending parameter, empty when valid
	}{
		{"skip_limit", "skip=20&limit=10", 20, 10, ""},
		{"max", "limit=100", 0, 100, ""},
		{"over_max", "limit=101", 0, 0, "limit"},
		{"zero_limit", "limit=0", 0, 0, "limit"},
		{"negative_skip", "skip=-1", 0, 0, "skip"},
		{"bad_skip", "skip=ten", 0, 0, "skip"},
		{"page", "page=3&perPage=20", 40, 20, ""},
		{"page_default", "page=2", 30, 30, ""},
		{"per_page_over_max", "perPage=200", 0, 0, "perPage"},
		{"skip_wins", "page=3&skip=5", 5, 30, ""},
		{"page_overflow", "page=922337203685477581&perPage=100", 0, 0, "page"},
		{"page_last", "page=92233720368547759&perPage=100", 9223372036854775800, 100, ""},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			d, err := Parse(mustValues(t, c.query), ListOptions)
			if c.param != "" {
				var qe *Error
				require.ErrorAs(t, err, &qe)
				assert.Equal(t, c.param, qe.Param)
				assert.True(t, errors.Is(err, ErrInvalidQuery))

				return
			}

			require.NoError(t, err)
			assert.Equal(t, c.skip, d.Skip)
			assert.Equal(t, c.limit, d.Limit)
		})
	}
}

func TestParseSort(t *testing.T) {
	d, err := Parse(mustValues(t, "sort=block_num,-timestamp,+producer_account_id,-id,block_num"), ListOptions)
	require.NoError(t, err)
	assert.Equal(t, []SortKey{
		{Field: "block_num"},
		{Field: "timestamp", Desc: true},
		{Field: "producer_account_id"},
		{Field: "_id", Desc: true},
	}, d.Sort)

	_, err = Parse(mustValues(t, "sort=$where"), ListOptions)
	assert.ErrorIs(t, err, ErrInvalidQuery)
}

func TestParseProjection(t *testing.T) {
	cases := []struct {
		name, fields string
		exp          Projection
		fail         bool
	}{
		{"include", "name,eos_balance", Projection{Mode: Include, Fields: []string{"name", "eos_balance"}}, false},
		{"exclude", "-abi,-createdAt", Projection{Mode: Exclude, Fields: []string{"abi", "createdAt"}}, false},
		{"include_drop_id", "name,-_id", Projection{Mode: Include, Fields: []string{"name"}, ExcludeIDs: []string{""}}, false},
		{"include_drop_id_alias", "-id,name", Projection{Mode: Include, Fields: []string{"name"}, ExcludeIDs: []string{""}}, false},
		{"exclude_drop_id", "-abi,-_id", Projection{Mode: Exclude, Fields: []string{"abi"}, ExcludeIDs: []string{""}}, false},
		{"only_drop_id", "-_id", Projection{ExcludeIDs: []string{""}}, false},
		{"only_id", "_id", Projection{Mode: Include, Fields: []string{"_id"}}, false},
		{"related", "block_num,transactions.transaction_id,-transactions._id", Projection{
			Mode: Include, Fields: []string{"block_num", "transactions.transaction_id"}, ExcludeIDs: []string{"transactions"},
		}, false},
		{"ancestor_wins", "transactions.block_id,transactions", Projection{Mode: Include, Fields: []string{"transactions"}}, false},
		{"mixed", "name,-email", Projection{}, true},
		{"mixed_related", "-transactions.block_id,block_num", Projection{}, true},
		{"bad_field", "name,$where", Projection{}, true},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			p, err := ParseProjection(url.Values{"fields": {c.fields}})
			if c.fail {
				var qe *Error
				require.ErrorAs(t, err, &qe)
				assert.Equal(t, ParamFields, qe.Param)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, c.exp, p)
		})
	}
}

func TestParseInvalid(t *testing.T) {
	cases := []struct{ name, query, param string }{
		{"operator_field", "$where=1", "$where=1"},
		{"bad_regex", "name=/(/", "name=/(/"},
		{"bad_regex_flag", "name=/abc/q", "name=/abc/q"},
		{"bad_regex_bracket", "name=/[a/i", "name=/[a/i"},
		{"bad_filter_json", "filter={", "filter"},
		{"filter_operator", `filter={"name":{"$where":"x"}}`, "filter"},
		{"filter_field", `filter={"$where":"x"}`, "filter"},
		{"filter_value_object", `filter={"name":{"$eq":{"$gt":1}}}`, "filter"},
		{"missing_value", "name<", "name<"},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := Parse(mustValues(t, c.query), ListOptions)

			var qe *Error
			require.ErrorAs(t, err, &qe)
			assert.Equal(t, c.param, qe.Param)
		})
	}
}

func TestParseFilterMerged(t *testing.T) {
	q := url.Values{
		"filter":   {`{"$or":[{"name":"inita"},{"eos_balance":{"$gte":100,"$lt":200.5}}]}`},
		"producer": {"inita"},
	}

	d, err := Parse(q, ListOptions)
	require.NoError(t, err)
	assert.Equal(t, And{
		&Predicate{Field: "producer", Op: Eq, Value: "inita"},
		Or{
			&Predicate{Field: "name", Op: Eq, Value: "inita"},
			And{
				&Predicate{Field: "eos_balance", Op: Gte, Value: int64(100)},
				&Predicate{Field: "eos_balance", Op: Lt, Value: 200.5},
			},
		},
	}, d.Filter)
}

func TestParseFilterOperators(t *testing.T) {
	e, err := ParseFilter(`{"abi":{"$exists":false},"name":{"$not":{"$regex":"^x","$options":"i"}},` +
		`"block_num":{"$in":[1,2]},"timestamp":{"$lte":"2018-01-02T03:04:05Z"}}`)
	require.NoError(t, err)
	assert.Equal(t, And{
		&Predicate{Field: "abi", Op: NotExists},
		&Predicate{Field: "block_num", Op: In, Value: []interface{}{int64(1), int64(2)}},
		&Predicate{Field: "name", Op: NotRegex, Value: Pattern{Source: "^x", Flags: "i"}},
		&Predicate{Field: "timestamp", Op: Lte, Value: time.Date(2018, 1, 2, 3, 4, 5, 0, time.UTC)},
	}, e)
}

func TestParseIdempotent(t *testing.T) {
	q := "name=/^init/&eos_balance>=1&sort=-eos_balance&fields=name,eos_balance&limit=5"

	a, err := Parse(mustValues(t, q), ListOptions)
	require.NoError(t, err)

	b, err := Parse(mustValues(t, q), ListOptions)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}
