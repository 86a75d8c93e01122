package ingress

import (
	"errors"

	"github.com/tidwall/gjson"
)

// ErrInvalidJSON is returned when the input is not valid JSON.
var ErrInvalidJSON = errors.New("invalid JSON")

// Inspector examines raw bytes and returns a View for field queries.
type Inspector interface {
	Inspect(raw []byte) (View, error)
}

// View provides format-agnostic field access to a raw envelope.
type View interface {
	// HasField reports whether path exists.
	HasField(path string) bool

	// GetString returns the string value at path. It reports false when the
	// path is missing or does not hold a string.
	GetString(path string) (string, bool)

	// GetBytes returns the raw encoded value at path, or false if missing.
	GetBytes(path string) ([]byte, bool)
}

// JSONInspector returns an Inspector backed by gjson. Paths use gjson
// syntax, e.g. "meta.kind" or "detail-type".
func JSONInspector() Inspector {
	return jsonInspector{}
}

type jsonInspector struct{}

func (jsonInspector) Inspect(raw []byte) (View, error) {
	if !gjson.ValidBytes(raw) {
		return nil, ErrInvalidJSON
	}
	return jsonView(raw), nil
}

type jsonView []byte

func (v jsonView) get(path string) (gjson.Result, bool) {
	r := gjson.GetBytes(v, path)
	return r, r.Exists()
}

func (v jsonView) HasField(path string) bool {
	_, ok := v.get(path)
	return ok
}

func (v jsonView) GetString(path string) (string, bool) {
	r, ok := v.get(path)
	if !ok || r.Type != gjson.String {
		return "", false
	}
	return r.Str, true
}

func (v jsonView) GetBytes(path string) ([]byte, bool) {
	r, ok := v.get(path)
	if !ok {
		return nil, false
	}
	return []byte(r.Raw), true
}
