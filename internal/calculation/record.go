package calculation

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Record is a persisted calculation. ID and OwnerID never change after
// creation, and Result always matches Operands under Operation.
type Record struct {
	ID        uuid.UUID
	OwnerID   uuid.UUID
	Operation OperationType
	Operands  []float64
	Result    float64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Clone returns a deep copy so callers never share the operand slice.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	c := *r
	c.Operands = append([]float64(nil), r.Operands...)
	return &c
}

// Store persists records. Implementations live under internal/storage.
//
// Get and Update return ErrNotFound for unknown ids. Update runs fn on the
// current record and persists the result as one atomic step; if fn returns an
// error nothing is written and that error is returned as is.
type Store interface {
	Put(ctx context.Context, rec *Record) error
	Get(ctx context.Context, id uuid.UUID) (*Record, error)
	Update(ctx context.Context, id uuid.UUID, fn func(*Record) error) (*Record, error)
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*Record, error)
}

// Lifecycle event types.
const (
	EventCreated = "calculation.created"
	EventUpdated = "calculation.updated"
	EventDeleted = "calculation.deleted"
)

// Publisher announces lifecycle events after a write has been committed.
type Publisher interface {
	Publish(ctx context.Context, eventType string, rec *Record) error
}
