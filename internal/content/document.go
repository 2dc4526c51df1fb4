package content

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Reserved top-level keys.
const (
	KeyWorkflowStage = "workflow_stage"
	KeyLifecycle     = "lifecycle"
	KeyComments      = "comments"
)

// ErrNotObject reports content that is not a JSON object.
var ErrNotObject = errors.New("content is not a JSON object")

// Document is a decoded content value. Values stay raw so keys owned by
// someone else round-trip byte for byte.
type Document map[string]json.RawMessage

// Parse decodes raw content. Blank content is an empty document. Anything that
// is not a JSON object yields an empty document together with an error so the
// caller can log it.
func Parse(raw string) (Document, error) {
	if strings.TrimSpace(raw) == "" {
		return Document{}, nil
	}
	var doc Document
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrNotObject, err)
	}
	if doc == nil {
		return Document{}, ErrNotObject
	}
	return doc, nil
}

// ParseLenient is Parse without the error.
func ParseLenient(raw string) Document {
	doc, _ := Parse(raw)
	return doc
}

// Clone returns a shallow copy; raw values are immutable by convention.
func (d Document) Clone() Document {
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// Serialize encodes the document with sorted keys.
func (d Document) Serialize() (string, error) {
	if d == nil {
		d = Document{}
	}
	data, err := json.Marshal(map[string]json.RawMessage(d))
	if err != nil {
		return "", fmt.Errorf("encode content: %w", err)
	}
	return string(data), nil
}

// Has reports whether key is present.
func (d Document) Has(key string) bool {
	_, ok := d[key]
	return ok
}

// Decode unmarshals the value stored under key into v. A missing key leaves v
// untouched and returns false.
func (d Document) Decode(key string, v any) (bool, error) {
	raw, ok := d[key]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return true, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

// Stage returns the persisted workflow stage, if it is a non-empty string.
func (d Document) Stage() (string, bool) {
	var stage string
	if ok, err := d.Decode(KeyWorkflowStage, &stage); !ok || err != nil {
		return "", false
	}
	stage = strings.TrimSpace(stage)
	return stage, stage != ""
}

// Lifecycle returns the lifecycle sub-object. Malformed values read as absent.
func (d Document) Lifecycle() (Lifecycle, bool) {
	var lc Lifecycle
	if ok, err := d.Decode(KeyLifecycle, &lc); !ok || err != nil {
		return Lifecycle{}, false
	}
	return lc, true
}

// Comments returns a copy of the comment map. Malformed values read as empty.
func (d Document) Comments() Comments {
	var c Comments
	if ok, err := d.Decode(KeyComments, &c); !ok || err != nil {
		return Comments{}
	}
	return c.Clone()
}

func changedKeys(before, after Document) []string {
	var keys []string
	for k, v := range after {
		if old, ok := before[k]; !ok || !bytes.Equal(old, v) {
			keys = append(keys, k)
		}
	}
	return keys
}
