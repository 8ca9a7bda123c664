// Package store persists transaction records. Inserts are idempotent on the
// (sender, body, timestamp) triple of the source message.
package store

import (
	"context"
	"errors"

	"github.com/insightdelivered/sms-transaction-parser/internal/models"
)

// ErrNotFound is returned by Get for an unknown ID.
var ErrNotFound = errors.New("store: record not found")

// Store is the storage collaborator used by the pipeline.
type Store interface {
	// Insert stores rec unless a record with the same sender, body and
	// timestamp exists. It reports whether a row was written.
	Insert(ctx context.Context, rec models.TransactionRecord) (bool, error)
	// MarkExcluded flags records so they no longer count towards totals.
	MarkExcluded(ctx context.Context, ids ...string) error
	// Range returns records with from <= timestamp <= to, oldest first.
	// A non-positive to means no upper bound.
	Range(ctx context.Context, from, to int64) ([]models.TransactionRecord, error)
	// Get returns one record by ID.
	Get(ctx context.Context, id string) (models.TransactionRecord, error)
}
