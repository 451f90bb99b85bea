package calculation

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service manages the lifecycle of calculation records for their owners.
// A record owned by someone else is indistinguishable from a missing one.
type Service struct {
	store     Store
	publisher Publisher
	logger    *zap.Logger
	now       func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithPublisher sets where lifecycle events go. Without it events are dropped.
func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(store Store, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		store:  store,
		logger: logger,
		now: func() time.Time {
			return time.Now().UTC().Truncate(time.Microsecond)
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create validates and evaluates a new calculation and stores it for ownerID.
func (s *Service) Create(ctx context.Context, ownerID uuid.UUID, rawOperation string, rawOperands any) (*Record, error) {
	req, err := Validate(rawOperation, rawOperands)
	if err != nil {
		return nil, err
	}

	result, err := evaluate(req)
	if err != nil {
		return nil, err
	}

	now := s.now()
	rec := &Record{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		Operation: req.Operation(),
		Operands:  req.Operands(),
		Result:    result,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.store.Put(ctx, rec); err != nil {
		return nil, err
	}

	s.publish(ctx, EventCreated, rec)
	return rec, nil
}

// Read returns the record if it exists and belongs to ownerID.
func (s *Service) Read(ctx context.Context, ownerID, id uuid.UUID) (*Record, error) {
	rec, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.OwnerID != ownerID {
		return nil, ErrNotFound
	}
	return rec, nil
}

// Update replaces the operands of an owned record and recomputes the result
// with the record's existing operation. A nil rawOperands leaves the record
// untouched and returns it as stored.
func (s *Service) Update(ctx context.Context, ownerID, id uuid.UUID, rawOperands any) (*Record, error) {
	if rawOperands == nil {
		return s.Read(ctx, ownerID, id)
	}

	rec, err := s.store.Update(ctx, id, func(cur *Record) error {
		if cur.OwnerID != ownerID {
			return ErrNotFound
		}

		req, err := Validate(cur.Operation.String(), rawOperands)
		if err != nil {
			return err
		}

		result, err := evaluate(req)
		if err != nil {
			return err
		}

		cur.Operands = req.Operands()
		cur.Result = result
		cur.UpdatedAt = s.now()
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, EventUpdated, rec)
	return rec, nil
}

// Delete removes an owned record.
func (s *Service) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	rec, err := s.Read(ctx, ownerID, id)
	if err != nil {
		return err
	}

	deleted, err := s.store.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrNotFound
	}

	s.publish(ctx, EventDeleted, rec)
	return nil
}

// List returns every record of ownerID, newest first.
func (s *Service) List(ctx context.Context, ownerID uuid.UUID) ([]*Record, error) {
	return s.store.ListByOwner(ctx, ownerID)
}

// evaluate rejects results that overflow float64; they cannot be stored or
// encoded as JSON.
func evaluate(req Request) (float64, error) {
	result := Evaluate(req)
	if math.IsInf(result, 0) || math.IsNaN(result) {
		return 0, fmt.Errorf("%w: result of %s is out of range", ErrMalformedInput, req.Operation())
	}
	return result, nil
}

func (s *Service) publish(ctx context.Context, eventType string, rec *Record) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, eventType, rec); err != nil {
		s.logger.Warn("failed to publish calculation event",
			zap.String("event", eventType),
			zap.String("calculation_id", rec.ID.String()),
			zap.Error(err),
		)
	}
}
