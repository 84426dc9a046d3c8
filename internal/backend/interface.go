package backend

import (
	"context"

	"caja/internal/legacy"
	"caja/internal/services"
	"caja/internal/storage"
	"caja/internal/store"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult bundles the ledger store with the optional collaborators
// the factory wired around it.
type BackendResult struct {
	Store store.Store
	// SQLite is set only for the sqlite backend.
	SQLite *storage.SQLiteRepository
	// Publisher is nil when AMQP is not configured or unreachable.
	Publisher services.ChangePublisher
	// Legacy is never nil; legacy.Empty when no cache path is configured.
	Legacy  legacy.Cache
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	SQLiteDBPath string
	LegacyDBPath string

	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
