// Package storage defines the ICS inbox file-system abstraction. The inbox
// is a directory with one sub-directory per project holding .ics files.
package storage

import "time"

// File describes one calendar file in the inbox.
type File struct {
	// Path is relative to the inbox root, e.g. "p1/team.ics".
	Path      string
	ProjectID string
	Checksum  string
	UpdatedAt time.Time
}

// Provider is the interface for inbox file operations.
type Provider interface {
	// Root returns the absolute inbox directory.
	Root() string
	// List returns every .ics file under dir (relative to the inbox root).
	List(dir string) ([]File, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path.
	Write(path string, content []byte) error
}

// ProjectOf returns the project directory of an inbox path, or "" when the
// file sits directly in the root.
func ProjectOf(path string) string {
	for i := 0; i < len(path); i++ {
		if path[i] == '/' || path[i] == '\\' {
			return path[:i]
		}
	}
	return ""
}
