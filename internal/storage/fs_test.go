package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/planboard/internal/checksum"
)

func tempInbox(t *testing.T) *FS {
	t.Helper()
	dir := t.TempDir()
	fs, err := NewFS(dir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func TestWriteAndRead(t *testing.T) {
	s := tempInbox(t)
	content := []byte("BEGIN:VCALENDAR\r\nEND:VCALENDAR\r\n")
	if err := s.Write("p1/team.ics", content); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("p1/team.ics")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("content mismatch: got %q", got)
	}
}

func TestList_ProjectDirsOnly(t *testing.T) {
	s := tempInbox(t)
	_ = s.Write("p1/a.ics", []byte("a"))
	_ = s.Write("p1/nested/b.ICS", []byte("b"))
	_ = s.Write("p2/c.ics", []byte("c"))
	_ = s.Write("loose.ics", []byte("root level"))
	_ = s.Write("p1/readme.txt", []byte("not ics"))
	_ = s.Write("p1/.hidden/d.ics", []byte("hidden"))

	items, err := s.List("")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	got := map[string]File{}
	for _, f := range items {
		got[f.Path] = f
	}
	if len(got) != 3 {
		t.Fatalf("files = %v, want 3", items)
	}
	if f := got["p1/nested/b.ICS"]; f.ProjectID != "p1" {
		t.Errorf("nested project = %q", f.ProjectID)
	}
	if f := got["p2/c.ics"]; f.ProjectID != "p2" || f.Checksum != checksum.Sum([]byte("c")) {
		t.Errorf("p2 file = %+v", f)
	}
}

func TestProjectOf(t *testing.T) {
	cases := map[string]string{
		"p1/a.ics":   "p1",
		"p1/x/a.ics": "p1",
		"a.ics":      "",
	}
	for in, want := range cases {
		if got := ProjectOf(in); got != want {
			t.Errorf("ProjectOf(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestTraversalBlocked(t *testing.T) {
	s := tempInbox(t)

	cases := []string{
		"../../etc/passwd",
		"../outside.ics",
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

func TestAtomicWriteLeavesNoTemp(t *testing.T) {
	s := tempInbox(t)
	_ = s.Write("p1/atomic.ics", []byte("original"))
	if err := s.Write("p1/atomic.ics", []byte("updated")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, _ := s.Read("p1/atomic.ics")
	if string(got) != "updated" {
		t.Errorf("expected updated content, got %q", got)
	}
	matches, _ := filepath.Glob(filepath.Join(s.Root(), "p1", ".planboard-tmp-*"))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestNewFS_NonExistentDir(t *testing.T) {
	if _, err := NewFS(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("expected error for non-existent dir")
	}
}

func TestNewFS_FileNotDir(t *testing.T) {
	f, _ := os.CreateTemp("", "planboard-test-*")
	_ = f.Close()
	defer os.Remove(f.Name())
	if _, err := NewFS(f.Name()); err == nil {
		t.Error("expected error when root is a file")
	}
}
