package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"techxfer/internal/session"
)

func TestDownloadWritesBlobToDirectory(t *testing.T) {
	env := setupCLITestEnv(t)
	env.store.AddSession(session.Session{ID: "s1"})
	env.store.AddBlob("s1", "BOM.csv", "text/csv", []byte("Part,Qty\nP1,2\n"))
	dir := t.TempDir()

	out, _, err := runCLI(t, []string{"download", "s1", "BOM.csv", "--output", dir}, env.configPath)
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	requireContains(t, out, "Saved BOM.csv (14 bytes)")

	data, err := os.ReadFile(filepath.Join(dir, "BOM.csv"))
	if err != nil {
		t.Fatalf("read download: %v", err)
	}
	if string(data) != "Part,Qty\nP1,2\n" {
		t.Fatalf("unexpected contents %q", data)
	}

	if _, _, err := runCLI(t, []string{"download", "s1", "missing.csv"}, env.configPath); err == nil {
		t.Fatal("expected error for unknown file")
	}
}

func TestLogsShowsTrailingLines(t *testing.T) {
	env := setupCLITestEnv(t)
	if err := os.MkdirAll(env.cfg.Paths.LogDir, 0o755); err != nil {
		t.Fatalf("mkdir log dir: %v", err)
	}
	writeFile(t, env.cfg.Paths.LogDir, "techxfer.log", "one session=s1\ntwo session=s2\nthree session=s1\n")

	out, _, err := runCLI(t, []string{"logs", "-n", "2"}, env.configPath)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	if strings.Contains(out, "one") || !strings.Contains(out, "two") || !strings.Contains(out, "three") {
		t.Fatalf("unexpected tail %q", out)
	}

	out, _, err = runCLI(t, []string{"logs", "--grep", "s1"}, env.configPath)
	if err != nil {
		t.Fatalf("logs --grep: %v", err)
	}
	if strings.Contains(out, "two") || !strings.Contains(out, "one") {
		t.Fatalf("unexpected filtered output %q", out)
	}
}
