// Package storage defines the vault file-system abstraction.
package storage

import "github.com/starford/vaultlens/internal/models"

// Provider is the interface for vault file operations.
type Provider interface {
	// List returns metadata for every .md file under dir (relative to vault root).
	List(dir string) ([]models.NoteMetadata, error)
	// Read returns the raw bytes of the file at path (relative to vault root).
	Read(path string) ([]byte, error)
	// Write atomically writes content to path (relative to vault root).
	Write(path string, content []byte) error
	// Delete removes the file at path (relative to vault root).
	Delete(path string) error
	// Stat returns the modification time of the file at path.
	Stat(path string) (models.NoteMetadata, error)
	// Exists reports whether a file exists at path.
	Exists(path string) bool
}
