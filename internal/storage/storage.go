// Package storage defines the persistence interface for text records.
package storage

import (
	"context"

	"github.com/hyperjump/omoide/internal/models"
)

// Storage defines durable persistence of (text, vector, timestamp) records.
// Records are append-only; ids are monotonically increasing and never reused.
type Storage interface {
	// Insert writes a record and its vector as one transactional unit and
	// returns the assigned id. A dimension mismatch fails with DimensionError
	// and writes nothing.
	Insert(ctx context.Context, text string, vector []float32) (int64, error)

	// Get returns the record for id, or (nil, nil) when the id is unknown.
	// Absence is a normal outcome, not an error.
	Get(ctx context.Context, id int64) (*models.TextRecord, error)

	// Scan visits every record in id order. Used for index rebuild; the scan is
	// finite and restartable. Returning an error from fn stops the scan.
	Scan(ctx context.Context, fn func(*models.TextRecord) error) error

	// Delete removes the record for id. Deleting an unknown id is a no-op.
	Delete(ctx context.Context, id int64) error

	// Count returns the number of stored records.
	Count(ctx context.Context) (int64, error)

	Close() error
}
