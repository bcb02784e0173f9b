// Package schema publishes JSON Schemas for the brandlink wire types.
package schema

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/invopop/jsonschema"

	"github.com/i2y/brandlink/api"
)

// Reflector inlines all definitions to avoid $ref.
var Reflector = &jsonschema.Reflector{
	DoNotReference: true,
}

// Generate creates a JSON Schema from a Go type.
//
// Example:
//
//	s, err := schema.Generate[api.Metadata]()
func Generate[T any]() (json.RawMessage, error) {
	var zero T
	return json.Marshal(Reflector.Reflect(&zero))
}

// MustGenerate is like Generate but panics on error.
func MustGenerate[T any]() json.RawMessage {
	s, err := Generate[T]()
	if err != nil {
		panic(err)
	}
	return s
}

var documents = map[string]func() (json.RawMessage, error){
	"metadata":   Generate[api.Metadata],
	"response":   Generate[api.Response],
	"impression": Generate[api.Impression],
}

// Names lists the documents available through For, sorted.
func Names() []string {
	names := make([]string, 0, len(documents))
	for name := range documents {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// For returns the schema of the named wire document.
func For(name string) (json.RawMessage, error) {
	gen, ok := documents[name]
	if !ok {
		return nil, fmt.Errorf("unknown schema %q (available: %v)", name, Names())
	}
	return gen()
}

// Metadata returns the schema of the trailing metadata object.
func Metadata() json.RawMessage {
	return MustGenerate[api.Metadata]()
}
