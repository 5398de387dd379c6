package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func testRoot(t *testing.T, files map[string]string) *FS {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		full := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	src, err := NewFS(root)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return src
}

func TestListMarkdown_RecursiveWithSlugs(t *testing.T) {
	src := testRoot(t, map[string]string{
		"soul/origin.md":        "# Origin",
		"soul/forks/ava/alt.md": "# Alt",
		"soul/notes.txt":        "not markdown",
	})

	files, err := src.ListMarkdown("soul")
	if err != nil {
		t.Fatalf("ListMarkdown: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("files = %v, want 2", files)
	}

	bySlug := map[string]File{}
	for _, f := range files {
		bySlug[f.Slug] = f
	}
	if f, ok := bySlug["forks/ava/alt"]; !ok || f.SourcePath != "forks/ava/alt.md" {
		t.Errorf("nested file = %+v", f)
	}
	if _, ok := bySlug["origin"]; !ok {
		t.Errorf("missing top-level slug: %v", bySlug)
	}
}

func TestListMarkdown_MissingDirIsEmpty(t *testing.T) {
	src := testRoot(t, nil)
	files, err := src.ListMarkdown("memory")
	if err != nil {
		t.Fatalf("ListMarkdown: %v", err)
	}
	if len(files) != 0 {
		t.Errorf("files = %v, want empty", files)
	}
}

func TestRead(t *testing.T) {
	src := testRoot(t, map[string]string{"soul/origin.md": "# Origin\nbody\n"})
	data, err := src.Read("soul/origin.md")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(data) != "# Origin\nbody\n" {
		t.Errorf("data = %q", data)
	}
}

func TestRead_TraversalRejected(t *testing.T) {
	src := testRoot(t, nil)
	if _, err := src.Read("../escape.md"); err == nil {
		t.Fatal("expected traversal to be rejected")
	}
	if _, err := src.Read("/etc/passwd"); err == nil {
		t.Fatal("expected absolute path to be rejected")
	}
}

func TestDirExists(t *testing.T) {
	src := testRoot(t, map[string]string{"soul/origin.md": "x"})
	if !src.DirExists("soul") {
		t.Error("soul should exist")
	}
	if src.DirExists("memory") {
		t.Error("memory should not exist")
	}
}
