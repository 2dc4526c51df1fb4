package content

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Patch mutates the owner's key(s) of a document. Patches always receive the
// latest known document, so they should derive new values from it rather than
// from a captured snapshot.
type Patch func(Document) error

// Merge applies patches to raw and returns the new serialization. Unparseable
// raw content is treated as an empty document. Reserved keys touched by the
// patches are validated before anything is returned.
func Merge(raw string, patches ...Patch) (string, error) {
	merged, _, err := MergeKeys(raw, patches...)
	return merged, err
}

// MergeKeys is Merge that also reports which top-level keys the patches
// changed.
func MergeKeys(raw string, patches ...Patch) (string, []string, error) {
	before := ParseLenient(raw)
	doc := before.Clone()
	for _, patch := range patches {
		if patch == nil {
			continue
		}
		if err := patch(doc); err != nil {
			return "", nil, err
		}
	}
	changed := changedKeys(before, doc)
	if err := validateKeys(doc, changed); err != nil {
		return "", nil, err
	}
	merged, err := doc.Serialize()
	if err != nil {
		return "", nil, err
	}
	return merged, changed, nil
}

// Set stores v under key.
func Set(key string, v any) Patch {
	return func(doc Document) error {
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encode %s: %w", key, err)
		}
		doc[key] = data
		return nil
	}
}

// SetStage overlays workflow_stage.
func SetStage(stage string) Patch {
	return Set(KeyWorkflowStage, strings.TrimSpace(stage))
}

// SetLifecycle replaces the lifecycle sub-object wholesale. The cursor is
// clamped into range first.
func SetLifecycle(lc Lifecycle) Patch {
	return func(doc Document) error {
		return Set(KeyLifecycle, lc.Clamp())(doc)
	}
}

// StepLifecycle moves the persisted cursor by delta, clamped at both ends.
func StepLifecycle(delta int) Patch {
	return func(doc Document) error {
		lc, ok := doc.Lifecycle()
		if !ok || len(lc.Steps) == 0 {
			return nil
		}
		return Set(KeyLifecycle, lc.Move(delta))(doc)
	}
}

// AppendComment appends text to the comments of blobID.
func AppendComment(blobID, text string) Patch {
	return func(doc Document) error {
		return Set(KeyComments, doc.Comments().Append(blobID, text))(doc)
	}
}

// MigrateComments re-keys the comments of every old blob id onto newID.
func MigrateComments(oldIDs []string, newID string) Patch {
	return func(doc Document) error {
		current := doc.Comments()
		migrated := current.Migrate(oldIDs, newID)
		if migrated.Equal(current) {
			return nil
		}
		return Set(KeyComments, migrated)(doc)
	}
}
