// Package schema holds the JSON Schemas that incoming dashboard documents are checked against
// before anything is decoded into the domain types.
package schema

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/MrSnakeDoc/dashsync/internal/domain"
)

const definitions = `{
  "bookmark": {
    "type": "object",
    "required": ["title", "url"],
    "properties": {
      "id": {"type": "integer"},
      "title": {"type": "string"},
      "url": {"type": "string"},
      "createdAt": {"type": "string"}
    }
  },
  "note": {
    "type": "object",
    "required": ["title"],
    "properties": {
      "id": {"type": "integer"},
      "title": {"type": "string"},
      "content": {"type": "string"}
    }
  },
  "todo": {
    "type": "object",
    "required": ["text"],
    "properties": {
      "id": {"type": "integer"},
      "text": {"type": "string"},
      "completed": {"type": "boolean"}
    }
  },
  "settings": {
    "type": "object",
    "properties": {
      "theme": {"type": "string"},
      "font": {"type": "string"}
    }
  }
}`

// Document matches an export file, a combined snapshot and the data server document:
// an object whose collections, when present, are arrays.
var Document = mustCompile("document.json", `{
  "type": "object",
  "$defs": `+definitions+`,
  "properties": {
    "bookmarks": {"type": "array", "items": {"$ref": "#/$defs/bookmark"}},
    "notes": {"type": "array", "items": {"$ref": "#/$defs/note"}},
    "todos": {"type": "array", "items": {"$ref": "#/$defs/todo"}},
    "settings": {"$ref": "#/$defs/settings"},
    "version": {"type": "string"}
  }
}`)

// Collections validate a single-collection import, which must be a JSON array.
var Collections = map[domain.Kind]*jsonschema.Schema{
	domain.KindBookmarks: mustCompile("bookmarks.json", collection("bookmark")),
	domain.KindNotes:     mustCompile("notes.json", collection("note")),
	domain.KindTodos:     mustCompile("todos.json", collection("todo")),
}

func collection(def string) string {
	return `{"type": "array", "$defs": ` + definitions + `, "items": {"$ref": "#/$defs/` + def + `"}}`
}

func mustCompile(name, src string) *jsonschema.Schema {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(src))
	if err != nil {
		panic(fmt.Sprintf("schema %s: %v", name, err))
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(name, doc); err != nil {
		panic(fmt.Sprintf("schema %s: %v", name, err))
	}
	return c.MustCompile(name)
}

// Validate checks data against s. Malformed JSON and schema violations are both
// reported as validation errors.
func Validate(op string, s *jsonschema.Schema, data []byte) error {
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return domain.Validation(op, fmt.Errorf("malformed json: %w", err))
	}
	if err := s.Validate(inst); err != nil {
		return domain.Validation(op, err)
	}
	return nil
}

// ValidateKind checks a single-collection document for kind.
func ValidateKind(op string, kind domain.Kind, data []byte) error {
	s, ok := Collections[kind]
	if !ok {
		return domain.Validation(op, fmt.Errorf("unknown collection %q", kind))
	}
	return Validate(op, s, data)
}
