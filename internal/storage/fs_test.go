package storage

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func tempSpace(t *testing.T) *FS {
	t.Helper()
	s, err := NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return s
}

func TestWriteAndRead(t *testing.T) {
	s := tempSpace(t)
	content := []byte("# Run\n\n## Status\n[!checkbox:habit-status:false]\n")
	if err := s.Write("Habits/Run.md", content); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("Habits/Run.md")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("content mismatch: got %q", got)
	}
}

func TestExists(t *testing.T) {
	s := tempSpace(t)
	_ = s.Write("Goals/Marathon.md", []byte("# Marathon\n"))
	for path, want := range map[string]bool{"Goals/Marathon.md": true, "Goals/Other.md": false} {
		got, err := s.Exists(path)
		if err != nil {
			t.Fatalf("Exists(%q): %v", path, err)
		}
		if got != want {
			t.Errorf("Exists(%q) = %v, want %v", path, got, want)
		}
	}
	if _, err := s.Exists("../x.md"); err == nil {
		t.Error("expected error for path outside the space")
	}
}

func TestDelete(t *testing.T) {
	s := tempSpace(t)
	_ = s.Write("Someday Maybe/Boat.md", []byte("bye"))
	if err := s.Delete("Someday Maybe/Boat.md"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Read("Someday Maybe/Boat.md"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("read after delete: %v", err)
	}
}

func TestMove(t *testing.T) {
	s := tempSpace(t)
	_ = s.Write("Someday Maybe/Kitchen.md", []byte("data"))
	if err := s.Move("Someday Maybe/Kitchen.md", "Projects/Kitchen/README.md"); err != nil {
		t.Fatalf("Move: %v", err)
	}
	got, err := s.Read("Projects/Kitchen/README.md")
	if err != nil {
		t.Fatalf("Read after move: %v", err)
	}
	if string(got) != "data" {
		t.Errorf("content = %q", got)
	}
	if ok, _ := s.Exists("Someday Maybe/Kitchen.md"); ok {
		t.Error("old path should not exist")
	}
}

func TestList(t *testing.T) {
	s := tempSpace(t)
	_ = s.Write("Habits/Run.md", []byte("a"))
	_ = s.Write("Projects/Kitchen/README.md", []byte("b"))
	_ = s.Write("readme.txt", []byte("not md"))
	_ = s.Write(".git/notes.md", []byte("hidden dir"))
	_ = s.Write("Habits/.draft.md", []byte("hidden file"))

	items, err := s.List("")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	var paths []string
	for _, it := range items {
		paths = append(paths, it.Path)
		if len(it.Checksum) != 64 {
			t.Errorf("%s checksum = %q", it.Path, it.Checksum)
		}
	}
	if diff := cmp.Diff([]string{"Habits/Run.md", "Projects/Kitchen/README.md"}, paths); diff != "" {
		t.Errorf("paths (-want +got):\n%s", diff)
	}
}

func TestMkdir(t *testing.T) {
	s := tempSpace(t)
	if err := s.Mkdir("Someday Maybe"); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}
	if err := s.Mkdir("Someday Maybe"); err != nil {
		t.Fatalf("Mkdir existing: %v", err)
	}
	info, err := os.Stat(filepath.Join(s.Root(), "Someday Maybe"))
	if err != nil || !info.IsDir() {
		t.Fatalf("stat = %v, %v", info, err)
	}
	if err := s.Mkdir("../outside"); err == nil {
		t.Error("Mkdir escaped the space root")
	}
}

func TestTraversalBlocked(t *testing.T) {
	s := tempSpace(t)

	cases := []string{
		"../../etc/passwd",
		"../outside.md",
		"/etc/shadow",
	}
	for _, p := range cases {
		if _, err := s.Read(p); err == nil {
			t.Errorf("expected error for path %q", p)
		}
		if err := s.Write(p, []byte("x")); err == nil {
			t.Errorf("expected error for write to %q", p)
		}
	}
}

func TestAtomicWriteLeavesNoTempFiles(t *testing.T) {
	s := tempSpace(t)
	_ = s.Write("Goals/G.md", []byte("original content"))

	updated := []byte("updated content")
	if err := s.Write("Goals/G.md", updated); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, _ := s.Read("Goals/G.md")
	if string(got) != string(updated) {
		t.Errorf("expected updated content, got %q", got)
	}

	matches, _ := filepath.Glob(filepath.Join(s.Root(), "Goals", TempPattern))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestNewFS_NonExistentDir(t *testing.T) {
	_, err := NewFS(filepath.Join(t.TempDir(), "missing"))
	if err == nil {
		t.Error("expected error for non-existent dir")
	}
}

func TestNewFS_FileNotDir(t *testing.T) {
	f, _ := os.CreateTemp(t.TempDir(), "gtdspace-test-*")
	_ = f.Close()
	if _, err := NewFS(f.Name()); err == nil {
		t.Error("expected error when root is a file")
	}
}
