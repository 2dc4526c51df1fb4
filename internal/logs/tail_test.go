package logs_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"techxfer/internal/logs"
)

func TestLastLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "techxfer.log")
	if err := os.WriteFile(path, []byte("a\nb\nc\n"), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	tests := []struct {
		limit int
		want  []string
	}{
		{limit: 2, want: []string{"b", "c"}},
		{limit: 3, want: []string{"a", "b", "c"}},
		{limit: 10, want: []string{"a", "b", "c"}},
		{limit: 0, want: []string{}},
	}
	for _, tc := range tests {
		lines, offset, err := logs.Last(path, tc.limit)
		if err != nil {
			t.Fatalf("Last(%d): %v", tc.limit, err)
		}
		if !slices.Equal(lines, tc.want) && !(len(lines) == 0 && len(tc.want) == 0) {
			t.Fatalf("Last(%d) = %#v, want %#v", tc.limit, lines, tc.want)
		}
		if offset != 6 {
			t.Fatalf("Last(%d) offset = %d, want 6", tc.limit, offset)
		}
	}
}

func TestLastMissingFile(t *testing.T) {
	lines, offset, err := logs.Last(filepath.Join(t.TempDir(), "missing.log"), 5)
	if err != nil || lines != nil || offset != 0 {
		t.Fatalf("expected empty result, got %v %d %v", lines, offset, err)
	}
}

type collector struct {
	mu    sync.Mutex
	lines []string
}

func (c *collector) add(line string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = append(c.lines, line)
}

func (c *collector) snapshot() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.lines)
}

func waitFor(t *testing.T, fn func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met within 5s")
}

func appendLog(t *testing.T, path, text string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open append: %v", err)
	}
	defer f.Close()
	if _, err := f.WriteString(text); err != nil {
		t.Fatalf("append log: %v", err)
	}
}

func TestFollowEmitsAppendedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "techxfer.log")
	if err := os.WriteFile(path, []byte("start\n"), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}
	_, offset, err := logs.Last(path, 1)
	if err != nil {
		t.Fatalf("last: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	got := &collector{}
	done := make(chan error, 1)
	go func() { done <- logs.Follow(ctx, path, offset, 10*time.Millisecond, got.add) }()

	appendLog(t, path, "later\npart")
	waitFor(t, func() bool { return len(got.snapshot()) == 1 })
	appendLog(t, path, "ial\n")
	waitFor(t, func() bool { return len(got.snapshot()) == 2 })

	// Rotation replaces the file with a shorter one.
	if err := os.WriteFile(path, []byte("fresh\n"), 0o644); err != nil {
		t.Fatalf("rotate log: %v", err)
	}
	waitFor(t, func() bool { return len(got.snapshot()) == 3 })

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if want := []string{"later", "partial", "fresh"}; !slices.Equal(got.snapshot(), want) {
		t.Fatalf("lines = %#v, want %#v", got.snapshot(), want)
	}
}
