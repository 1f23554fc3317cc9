// Package storage defines the space file-system abstraction.
package storage

import "github.com/starford/gtdspace/internal/models"

// Provider is the interface for space file operations. Paths are relative
// to the space root and use forward slashes.
type Provider interface {
	// List returns metadata for every .md file under dir.
	List(dir string) ([]models.DocumentMetadata, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Exists reports whether a file exists at path.
	Exists(path string) (bool, error)
	// Write atomically writes content to path.
	Write(path string, content []byte) error
	// Delete removes the file at path.
	Delete(path string) error
	// Move renames oldPath to newPath.
	Move(oldPath, newPath string) error
	// Mkdir creates dir and any missing parents.
	Mkdir(dir string) error
}
