package index

import (
	"time"

	"github.com/starford/gittodo/internal/models"
)

// TodoIndex defines the interface for todo indexing operations.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with mocks.
type TodoIndex interface {
	Replace(sum string, entries []models.Entry) error
	Checksum() (string, error)
	Count() (int, error)
	Search(query string, limit int) ([]SearchResult, error)
	Upcoming(now time.Time, limit int) ([]models.Entry, error)
	Close() error
}

// Verify *DB satisfies TodoIndex at compile time.
var _ TodoIndex = (*DB)(nil)
