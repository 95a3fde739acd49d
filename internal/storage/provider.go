// Package storage defines the vault file-system abstraction.
package storage

// FileInfo is lightweight metadata for one vault file.
type FileInfo struct {
	Path     string // vault-relative, forward slashes
	Checksum string
}

// Provider is the interface for read-only vault access. The audit tool
// never mutates the corpus it inspects; the only write path is the
// report file, handled by WriteAtomic.
type Provider interface {
	// List walks dir (relative to the vault root) and returns metadata
	// for every file with the configured extension.
	List(dir string) ([]FileInfo, error)
	// Read returns the raw bytes of the file at path (relative to root).
	Read(path string) ([]byte, error)
	// Root returns the absolute vault root path.
	Root() string
}
