package server

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"
	"sync"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// FieldError describes one payload or path problem.
type FieldError struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

// ValidationError collects every FieldError found in one request. Err, when
// set, is the sentinel the failure maps to.
type ValidationError struct {
	Fields []FieldError
	Err    error
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", strings.Join(f.Loc, "."), f.Msg))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return e.Err }

func invalid(typ, msg string, loc ...string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Loc: loc, Msg: msg, Type: typ}}}
}

// payloadSchema pairs a compiled JSON schema with the keys that must be
// present and the keys holding booleans. Presence is checked here rather
// than with the schema's "required" keyword so each missing key gets its
// own location.
type payloadSchema struct {
	schema   *jsonschema.Schema
	required []string
	bools    []string
}

type schemas struct {
	create *payloadSchema
	update *payloadSchema
}

var loadSchemas = sync.OnceValues(func() (*schemas, error) {
	create, err := compileSchema("create.json", []string{"title"}, []string{"completed"})
	if err != nil {
		return nil, err
	}
	update, err := compileSchema("update.json", nil, []string{"completed"})
	if err != nil {
		return nil, err
	}
	return &schemas{create: create, update: update}, nil
})

func compileSchema(name string, required, bools []string) (*payloadSchema, error) {
	data, err := schemaFS.ReadFile("schemas/" + name)
	if err != nil {
		return nil, fmt.Errorf("reading schema %s: %w", name, err)
	}

	url := "mem://todos/schemas/" + name
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(url, bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("loading schema %s: %w", name, err)
	}
	schema, err := compiler.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compiling schema %s: %w", name, err)
	}
	return &payloadSchema{schema: schema, required: required, bools: bools}, nil
}

// coerce rewrites boolean fields given as 0/1 or as words such as "yes" and
// "off" into JSON booleans. It reports whether doc changed. Values that do
// not coerce are left for the schema to reject.
func (ps *payloadSchema) coerce(doc any) bool {
	obj, ok := doc.(map[string]any)
	if !ok {
		return false
	}
	changed := false
	for _, key := range ps.bools {
		v, present := obj[key]
		if !present {
			continue
		}
		if _, isBool := v.(bool); isBool {
			continue
		}
		if b, ok := coerceBool(v); ok {
			obj[key] = b
			changed = true
		}
	}
	return changed
}

// coerceBool accepts the lax boolean forms: the numbers 0 and 1 and the
// strings 0/1, f/t, n/y, no/yes, off/on, false/true in any case.
func coerceBool(v any) (bool, bool) {
	switch x := v.(type) {
	case bool:
		return x, true
	case float64:
		switch x {
		case 0:
			return false, true
		case 1:
			return true, true
		}
	case string:
		switch strings.ToLower(x) {
		case "0", "f", "n", "no", "off", "false":
			return false, true
		case "1", "t", "y", "yes", "on", "true":
			return true, true
		}
	}
	return false, false
}

// check validates a decoded JSON document and returns every problem found,
// sorted by location.
func (ps *payloadSchema) check(doc any) []FieldError {
	var fields []FieldError

	if err := ps.schema.Validate(doc); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			fields = collectSchemaErrors(fields, ve)
		} else {
			fields = append(fields, FieldError{Loc: []string{"body"}, Msg: err.Error(), Type: "value_error"})
		}
	}

	if obj, ok := doc.(map[string]any); ok {
		for _, key := range ps.required {
			if _, present := obj[key]; !present {
				fields = append(fields, FieldError{Loc: []string{"body", key}, Msg: "Field required", Type: "missing"})
			}
		}
	}

	slices.SortStableFunc(fields, func(a, b FieldError) int {
		return strings.Compare(strings.Join(a.Loc, "/"), strings.Join(b.Loc, "/"))
	})
	return fields
}

func collectSchemaErrors(fields []FieldError, err *jsonschema.ValidationError) []FieldError {
	if err == nil {
		return fields
	}
	if len(err.Causes) == 0 {
		return append(fields, FieldError{
			Loc:  append([]string{"body"}, pointerSegments(err.InstanceLocation)...),
			Msg:  err.Message,
			Type: errorType(err.KeywordLocation),
		})
	}
	for _, cause := range err.Causes {
		fields = collectSchemaErrors(fields, cause)
	}
	return fields
}

// pointerSegments splits a JSON pointer into unescaped reference tokens.
func pointerSegments(ptr string) []string {
	ptr = strings.TrimPrefix(ptr, "#")
	ptr = strings.TrimPrefix(ptr, "/")
	if ptr == "" {
		return nil
	}
	segs := strings.Split(ptr, "/")
	for i, s := range segs {
		s = strings.ReplaceAll(s, "~1", "/")
		segs[i] = strings.ReplaceAll(s, "~0", "~")
	}
	return segs
}

// errorType maps the failing schema keyword to an error type name.
func errorType(keywordLocation string) string {
	segs := pointerSegments(keywordLocation)
	if len(segs) == 0 {
		return "value_error"
	}
	switch kw := segs[len(segs)-1]; kw {
	case "type":
		return "type_error"
	case "minLength":
		return "string_too_short"
	default:
		return kw
	}
}

// decodeBody reads the request body, validates it against ps and decodes it
// into dst. Any failure is returned as a *ValidationError.
func decodeBody(w http.ResponseWriter, r *http.Request, ps *payloadSchema, dst any) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return invalid("too_long", fmt.Sprintf("Request body exceeds %d bytes", tooLarge.Limit), "body")
		}
		return invalid("body_read", "Request body could not be read", "body")
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return invalid("missing", "Field required", "body")
	}

	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return invalid("json_invalid", "JSON decode error: "+err.Error(), "body")
	}
	if ps.coerce(doc) {
		if body, err = json.Marshal(doc); err != nil {
			return fmt.Errorf("re-encoding body: %w", err)
		}
	}
	if fields := ps.check(doc); len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return invalid("json_invalid", "JSON decode error: "+err.Error(), "body")
	}
	return nil
}
