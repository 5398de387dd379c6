// Package storage defines the disk content source for seed articles.
package storage

// File identifies one markdown file under a section directory.
type File struct {
	// Slug is the /-delimited relative path without the .md suffix.
	Slug string
	// SourcePath is the relative path including the .md suffix.
	SourcePath string
}

// Source is the interface for reading seed content from disk.
type Source interface {
	// ListMarkdown returns every .md file under dir (relative to the content
	// root), recursively. A missing directory yields an empty list.
	ListMarkdown(dir string) ([]File, error)
	// Read returns the raw bytes of the file at path (relative to the root).
	Read(path string) ([]byte, error)
	// DirExists reports whether dir exists under the content root.
	DirExists(dir string) bool
}
