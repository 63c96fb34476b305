// Package storage defines the rooted file-system abstraction used for the
// script source tree and for every deploy destination.
package storage

import "github.com/frytempura/tempura/internal/models"

// Provider is the interface for file operations under a fixed root.
// All paths are relative to that root; operations never reach outside it.
type Provider interface {
	// Root returns the absolute root directory.
	Root() string
	// List walks dir (relative to root) and returns metadata for every
	// regular file found. Dotfiles and dot-directories are skipped.
	List(dir string) ([]models.FileMeta, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path, creating parent directories.
	Write(path string, content []byte) error
	// Checksum returns the SHA-256 digest of the file at path, or "" with a
	// nil error when the file does not exist.
	Checksum(path string) (string, error)
}

// Verify *FS satisfies Provider at compile time.
var _ Provider = (*FS)(nil)

