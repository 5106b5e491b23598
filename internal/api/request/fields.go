// Package request decodes the JSON object envelope of API requests.
package request

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/palacemc/palace-web/internal/api/apierr"
	"github.com/palacemc/palace-web/internal/validation"
)

// MaxBodyBytes bounds request bodies
const MaxBodyBytes = 10 << 10

// Fields is a decoded request object. Numbers are kept as json.Number so
// 64-bit integers survive exactly.
type Fields map[string]any

type contextKey struct{}

// Decode reads the body of r as a JSON object. An empty body is an empty
// object.
func Decode(w http.ResponseWriter, r *http.Request) (Fields, error) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, apierr.New(http.StatusRequestEntityTooLarge, "")
		}
		return nil, apierr.New(http.StatusBadRequest, "")
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return Fields{}, nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, apierr.New(http.StatusBadRequest, fmt.Sprintf("Payload syntax error: %s", err))
	}
	if dec.More() {
		return nil, apierr.New(http.StatusBadRequest, "Payload syntax error: unexpected data after top-level value")
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, apierr.New(http.StatusBadRequest, apierr.MessageNotObject)
	}
	return Fields(obj), nil
}

// WithFields stores decoded fields on ctx
func WithFields(ctx context.Context, f Fields) context.Context {
	return context.WithValue(ctx, contextKey{}, f)
}

// FromContext returns the fields decoded for the request, empty if none
func FromContext(ctx context.Context) Fields {
	if f, ok := ctx.Value(contextKey{}).(Fields); ok {
		return f
	}
	return Fields{}
}

// Get returns the raw value of key, nil when absent
func (f Fields) Get(key string) any {
	return f[key]
}

// Or returns the value of key, falling back to alt when it is null
func (f Fields) Or(key, alt string) any {
	if v := f[key]; !validation.IsNull(v) {
		return v
	}
	return f[alt]
}

// String returns a required non-empty string field
func (f Fields) String(key string) (string, error) {
	v := f[key]
	if validation.IsNull(v) {
		return "", validation.Errorf("String '%s' is required", key)
	}
	s, ok := validation.String(v)
	if !ok {
		return "", validation.Errorf("Key '%s' must be a non-empty string", key)
	}
	return s, nil
}

// Text returns a string field, empty when absent or not a string
func (f Fields) Text(key string) string {
	s, _ := f[key].(string)
	return s
}

// Flag coerces a field to a boolean. An absent field is def; a present
// field, null included, is judged by its truthiness.
func (f Fields) Flag(key string, def bool) bool {
	v, ok := f[key]
	if !ok {
		return def
	}
	return validation.Truthy(v)
}

// Object returns a required object field
func (f Fields) Object(key string) (Fields, error) {
	obj, ok := f[key].(map[string]any)
	if !ok {
		return nil, validation.Errorf("Key '%s' must be an object", key)
	}
	return Fields(obj), nil
}
