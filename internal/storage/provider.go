// Package storage defines the file-system abstraction behind the todo document.
package storage

// Provider is the interface for todo file operations. Paths are relative to
// the provider root.
type Provider interface {
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically replaces the file at path with content.
	Write(path string, content []byte) error
	// Touch creates an empty file at path unless one already exists.
	Touch(path string) error
	// Abs resolves path to an absolute path under the root.
	Abs(path string) (string, error)
}
