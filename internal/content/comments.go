package content

import (
	"slices"
	"strings"
)

// Comments maps blob ids to ordered free-text notes.
type Comments map[string][]string

// Clone deep-copies the map.
func (c Comments) Clone() Comments {
	out := make(Comments, len(c))
	for k, v := range c {
		notes := make([]string, len(v))
		copy(notes, v)
		out[k] = notes
	}
	return out
}

// Append returns a copy with text appended under blobID. Blank text or a blank
// id returns an unchanged copy.
func (c Comments) Append(blobID, text string) Comments {
	out := c.Clone()
	text = strings.TrimSpace(text)
	if blobID == "" || text == "" {
		return out
	}
	out[blobID] = append(out[blobID], text)
	return out
}

// Migrate returns a copy where the notes of every old id are removed and
// appended, in order, after any notes newID already has.
func (c Comments) Migrate(oldIDs []string, newID string) Comments {
	out := c.Clone()
	if newID == "" {
		return out
	}
	for _, old := range oldIDs {
		if old == newID {
			continue
		}
		notes, ok := out[old]
		if !ok {
			continue
		}
		delete(out, old)
		if len(notes) > 0 {
			out[newID] = append(out[newID], notes...)
		}
	}
	return out
}

// For returns the notes attached to blobID.
func (c Comments) For(blobID string) []string {
	return append([]string(nil), c[blobID]...)
}

// Equal compares two comment maps.
func (c Comments) Equal(other Comments) bool {
	if len(c) != len(other) {
		return false
	}
	for k, v := range c {
		ov, ok := other[k]
		if !ok || !slices.Equal(v, ov) {
			return false
		}
	}
	return true
}
