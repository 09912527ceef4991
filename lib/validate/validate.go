// Package validate checks JSON request bodies against JSON schemas.
package validate

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/xeipuuv/gojsonschema"

	"github.com/tarancss/eosapi/lib/apierror"
)

// root is the field gojsonschema reports for the document itself.
const root = "(root)"

// Schema is a compiled body schema.
type Schema struct {
	name   string
	schema *gojsonschema.Schema
}

// Compile compiles a JSON schema.
func Compile(name, src string) (*Schema, error) {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		return nil, fmt.Errorf("invalid json schema %s: %w", name, err)
	}

	return &Schema{name: name, schema: s}, nil
}

// MustCompile is Compile for the package schemas.
func MustCompile(name, src string) *Schema {
	s, err := Compile(name, src)
	if err != nil {
		panic(err)
	}

	return s
}

// Body validates body against s and decodes it into v. Violations are returned as an *apierror.Error listing every
// offending field.
func Body(s *Schema, body []byte, v interface{}) error {
	if !json.Valid(body) {
		return apierror.Validation(apierror.Field("body", "body must be a valid JSON object"))
	}

	result, err := s.schema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return apierror.Validation(apierror.Field("body", err.Error()))
	}

	if !result.Valid() {
		return apierror.Validation(fieldErrors(result.Errors())...)
	}

	if v == nil {
		return nil
	}

	if err = json.Unmarshal(body, v); err != nil {
		return apierror.Validation(apierror.Field("body", err.Error()))
	}

	return nil
}

// fieldErrors groups the schema violations per field, fields sorted by name.
func fieldErrors(errs []gojsonschema.ResultError) []apierror.FieldError {
	byField := map[string][]string{}

	for _, e := range errs {
		f := fieldOf(e)
		byField[f] = append(byField[f], fmt.Sprintf("%q %s", f, e.Description()))
	}

	out := make([]apierror.FieldError, 0, len(byField))
	for f, msgs := range byField {
		out = append(out, apierror.FieldError{Field: f, Location: apierror.LocationBody, Messages: msgs})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Field < out[j].Field })

	return out
}

// fieldOf names the field of a violation: required errors are reported on the parent object.
func fieldOf(e gojsonschema.ResultError) string {
	f := e.Field()

	if e.Type() == "required" {
		if p, ok := e.Details()["property"].(string); ok {
			if f == root {
				return p
			}

			return f + "." + p
		}
	}

	if f == root {
		return "body"
	}

	return f
}
