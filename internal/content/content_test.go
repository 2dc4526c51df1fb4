package content_test

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"

	"techxfer/internal/content"
)

func decode(t *testing.T, raw string) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		t.Fatalf("decode %q: %v", raw, err)
	}
	return out
}

func TestMergeFromEmptyContent(t *testing.T) {
	got, err := content.Merge("", content.SetStage("preparation"))
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	want := map[string]any{"workflow_stage": "preparation"}
	if !reflect.DeepEqual(decode(t, got), want) {
		t.Fatalf("unexpected content: %s", got)
	}
}

func TestMergeTreatsCorruptContentAsEmpty(t *testing.T) {
	if _, err := content.Parse("{not json"); !errors.Is(err, content.ErrNotObject) {
		t.Fatalf("expected ErrNotObject, got %v", err)
	}
	if _, err := content.Parse(`["array"]`); !errors.Is(err, content.ErrNotObject) {
		t.Fatalf("expected ErrNotObject for array, got %v", err)
	}
	got, err := content.Merge("{not json", content.SetStage("ingestion"))
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if got != `{"workflow_stage":"ingestion"}` {
		t.Fatalf("unexpected content: %s", got)
	}
}

func TestMergePreservesForeignKeys(t *testing.T) {
	raw := `{"agent_summary":{"score":0.93,"notes":["a"]},"workflow_stage":"ingestion"}`
	got, err := content.Merge(raw, content.SetStage("preparation"))
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	doc := decode(t, got)
	if doc["workflow_stage"] != "preparation" {
		t.Fatalf("stage not updated: %s", got)
	}
	if !strings.Contains(got, `"agent_summary":{"score":0.93,"notes":["a"]}`) {
		t.Fatalf("agent key not preserved byte for byte: %s", got)
	}
}

func TestSequentialOwnersKeepUnion(t *testing.T) {
	raw := `{"extra":1}`
	steps := []content.Patch{
		content.SetStage("preparation"),
		content.AppendComment("b1", "check torque"),
		content.SetLifecycle(content.Lifecycle{Steps: []string{"A", "B"}, CurrentStep: 1}),
		content.AppendComment("b1", "second"),
		content.SetStage("verification"),
	}
	for _, patch := range steps {
		next, err := content.Merge(raw, patch)
		if err != nil {
			t.Fatalf("Merge: %v", err)
		}
		raw = next
	}
	doc := content.ParseLenient(raw)
	if stage, _ := doc.Stage(); stage != "verification" {
		t.Fatalf("unexpected stage %q", stage)
	}
	if lc, ok := doc.Lifecycle(); !ok || lc.CurrentStep != 1 || len(lc.Steps) != 2 {
		t.Fatalf("unexpected lifecycle %+v", lc)
	}
	if notes := doc.Comments().For("b1"); !reflect.DeepEqual(notes, []string{"check torque", "second"}) {
		t.Fatalf("unexpected comments %v", notes)
	}
	if !doc.Has("extra") {
		t.Fatal("foreign key dropped")
	}
}

func TestMigrateCommentsMovesNotes(t *testing.T) {
	got, err := content.Merge(`{"comments":{"b1":["note"]}}`, content.MigrateComments([]string{"b1"}, "b2"))
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	want := map[string]any{"comments": map[string]any{"b2": []any{"note"}}}
	if !reflect.DeepEqual(decode(t, got), want) {
		t.Fatalf("unexpected content: %s", got)
	}
}

func TestMigrateCommentsAppendsAfterExistingNotes(t *testing.T) {
	c := content.Comments{"old1": {"a"}, "old2": {"b"}, "new": {"n"}, "other": {"o"}}
	got := c.Migrate([]string{"old1", "old2"}, "new")
	want := content.Comments{"new": {"n", "a", "b"}, "other": {"o"}}
	if !got.Equal(want) {
		t.Fatalf("got %v want %v", got, want)
	}
	if _, ok := c["old1"]; !ok {
		t.Fatal("Migrate must not mutate the receiver")
	}
}

func TestAppendCommentIgnoresBlankText(t *testing.T) {
	c := content.Comments{}.Append("b1", "   ")
	if len(c) != 0 {
		t.Fatalf("expected no comment, got %v", c)
	}
	c = c.Append("b1", "  trimmed  ")
	if got := c.For("b1"); len(got) != 1 || got[0] != "trimmed" {
		t.Fatalf("unexpected notes %v", got)
	}
}

func TestLifecycleNavigationClamps(t *testing.T) {
	lc := content.Lifecycle{Steps: []string{"a", "b", "c"}}
	if lc.Prev().CurrentStep != 0 {
		t.Fatal("prev at start must stay at 0")
	}
	lc = lc.Next().Next().Next().Next()
	if lc.CurrentStep != 2 {
		t.Fatalf("expected cursor clamped to 2, got %d", lc.CurrentStep)
	}
	if got := (content.Lifecycle{Steps: []string{"a"}, CurrentStep: 9}).Clamp().CurrentStep; got != 0 {
		t.Fatalf("expected clamp to 0, got %d", got)
	}
	empty := content.Lifecycle{}
	if empty.Next().CurrentStep != 0 || empty.Prev().CurrentStep != 0 {
		t.Fatal("navigation on empty lifecycle must be a no-op")
	}
	for delta := -5; delta <= 5; delta++ {
		moved := (content.Lifecycle{Steps: []string{"x", "y"}, CurrentStep: 1}).Move(delta)
		if moved.CurrentStep < 0 || moved.CurrentStep > 1 {
			t.Fatalf("delta %d escaped range: %d", delta, moved.CurrentStep)
		}
	}
}

func TestStepLifecyclePatch(t *testing.T) {
	raw := `{"lifecycle":{"steps":["a","b"],"currentStep":0}}`
	got, err := content.Merge(raw, content.StepLifecycle(1))
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	lc, _ := content.ParseLenient(got).Lifecycle()
	if lc.CurrentStep != 1 {
		t.Fatalf("expected step 1, got %d", lc.CurrentStep)
	}
	unchanged, err := content.Merge(`{"x":1}`, content.StepLifecycle(1))
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if unchanged != `{"x":1}` {
		t.Fatalf("expected no lifecycle key added, got %s", unchanged)
	}
}

func TestMergeRejectsInvalidReservedValue(t *testing.T) {
	if _, err := content.Merge("{}", content.SetStage("shipping")); err == nil {
		t.Fatal("expected schema error for unknown stage")
	}
	if _, err := content.Merge("{}", content.Set(content.KeyComments, map[string]int{"b1": 1})); err == nil {
		t.Fatal("expected schema error for malformed comments")
	}
}

func TestMergeIgnoresUntouchedMalformedKeys(t *testing.T) {
	raw := `{"lifecycle":"broken"}`
	if err := content.Validate(raw); err == nil {
		t.Fatal("expected full validation to flag the broken lifecycle")
	}
	if _, err := content.Merge(raw, content.SetStage("preparation")); err != nil {
		t.Fatalf("unrelated write must not fail: %v", err)
	}
}

func TestDigestIgnoresKeyOrder(t *testing.T) {
	a, err := content.Digest(`{"b":1,"a":[1,2]}`)
	if err != nil {
		t.Fatalf("Digest: %v", err)
	}
	b, err := content.Digest(`{ "a": [1, 2], "b": 1 }`)
	if err != nil {
		t.Fatalf("Digest: %v", err)
	}
	if a != b {
		t.Fatalf("expected equal digests, got %s vs %s", a, b)
	}
	if len(a) != 64 {
		t.Fatalf("expected hex sha256, got %q", a)
	}
}
