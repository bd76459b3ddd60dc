package backend

import (
	"context"

	"expenses/internal/storage"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the opened repository and its cleanup function
type BackendResult struct {
	Repository *storage.Repository
	Cleanup    CleanupFunc
}

// Factory creates storage backends based on configuration
type Factory interface {
	// CreateBackend opens the configured backend and wraps it in a repository
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	// Backend type
	Type BackendType

	// Key the collection document is stored under
	StorageKey string

	// File backend: one JSON document per key
	DataDirectory string

	// SQLite backend: key-value table
	SQLiteDBPath string
}

// BackendType represents the type of backend
type BackendType string

const (
	MemoryBackend BackendType = "memory"
	FileBackend   BackendType = "file"
	SQLiteBackend BackendType = "sqlite"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, FileBackend, SQLiteBackend:
		return true
	default:
		return false
	}
}
