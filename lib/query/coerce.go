package query

import (
	"errors"
	"regexp"
	"regexp/syntax"
	"strconv"
	"strings"
	"time"
)

var (
	fieldRe   = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z0-9_]+)*$`)
	integerRe = regexp.MustCompile(`^-?(0|[1-9][0-9]*)$`)
	decimalRe = regexp.MustCompile(`^-?(0|[1-9][0-9]*)\.[0-9]+$`)
	dateRe    = regexp.MustCompile(`^[0-9]{4}-[0-9]{2}-[0-9]{2}`)
	regexRe   = regexp.MustCompile(`^/(.+)/([a-z]*)$`)
	castRe    = regexp.MustCompile(`^(string|date)\((.*)\)$`)
)

// dateLayouts are tried in order on date-looking values.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ValidField reports whether path is a plain dotted field path. Operator names ($...) never are.
func ValidField(path string) bool {
	return fieldRe.MatchString(path)
}

// Coerce converts a raw query value to its typed form: bool, nil, int64, float64, time.Time or string. Explicit
// string(...) and date(...) casts override detection.
func Coerce(raw string) interface{} {
	if m := castRe.FindStringSubmatch(raw); m != nil {
		if m[1] == "string" {
			return m[2]
		}

		if t, ok := parseDate(m[2]); ok {
			return t
		}

		return m[2]
	}

	switch raw {
	case "true":
		return true
	case "false":
		return false
	case "null":
		return nil
	}

	if integerRe.MatchString(raw) {
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return n
		}
	}

	if decimalRe.MatchString(raw) {
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			return f
		}
	}

	if t, ok := parseDate(raw); ok {
		return t
	}

	return raw
}

func parseDate(s string) (time.Time, bool) {
	if !dateRe.MatchString(s) {
		return time.Time{}, false
	}

	for _, l := range dateLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return t.UTC(), true
		}
	}

	return time.Time{}, false
}

// patternFlags are the regular expression options storage understands.
const patternFlags = "imsxu"

// parsePattern recognises /pattern/flags values. Source and flags are passed to storage unchanged, so constructs RE2
// lacks (lookarounds, backreferences) are accepted. Unknown flags and patterns that cannot be balanced are an error.
func parsePattern(param, raw string) (*Pattern, bool, error) {
	m := regexRe.FindStringSubmatch(raw)
	if m == nil {
		return nil, false, nil
	}

	for _, f := range m[2] {
		if !strings.ContainsRune(patternFlags, f) {
			return nil, true, invalid(param, "unknown regular expression flag %q in %s", f, raw)
		}
	}

	if malformed(m[1]) {
		return nil, true, invalid(param, "bad regular expression %s", raw)
	}

	return &Pattern{Source: m[1], Flags: m[2]}, true, nil
}

// malformed reports syntax errors shared by every regular expression dialect.
func malformed(src string) bool {
	_, err := syntax.Parse(src, syntax.Perl)

	var se *syntax.Error
	if !errors.As(err, &se) {
		return false
	}

	switch se.Code {
	case syntax.ErrMissingParen, syntax.ErrUnexpectedParen, syntax.ErrMissingBracket, syntax.ErrTrailingBackslash,
		syntax.ErrMissingRepeatArgument:
		return true
	}

	return false
}

func coerceList(raw string) []interface{} {
	parts := strings.Split(raw, ",")
	vs := make([]interface{}, 0, len(parts))

	for _, p := range parts {
		vs = append(vs, Coerce(p))
	}

	return vs
}
