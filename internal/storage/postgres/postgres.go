// Package postgres stores calculations and users in PostgreSQL through the
// pgx database/sql driver. The schema is managed with goose migrations
// embedded in the binary.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"go-chi-calculations/internal/auth"
	"go-chi-calculations/internal/calculation"
	"go-chi-calculations/internal/dbx"
	"go-chi-calculations/internal/storage/postgres/migrations"
)

var (
	_ calculation.Store = (*Store)(nil)
	_ auth.UserStore    = (*Store)(nil)
)

type Store struct {
	db *sql.DB
}

// Open connects to dsn, applies pending migrations and returns the store.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	if err := RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration error: %w", err)
	}

	return New(db), nil
}

// New wraps an already migrated database.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}

	return goose.UpContext(ctx, db, ".")
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

const selectCalculation = `SELECT id::text, user_id::text, type, inputs::text, result, created_at, updated_at FROM calculations`

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *Store) Put(ctx context.Context, rec *calculation.Record) error {
	inputs, err := json.Marshal(rec.Operands)
	if err != nil {
		return fmt.Errorf("encode inputs: %w", err)
	}

	query :=
		`INSERT INTO calculations (id, user_id, type, inputs, result, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err = s.db.ExecContext(ctx, query,
		rec.ID.String(), rec.OwnerID.String(), rec.Operation.String(), string(inputs),
		rec.Result, rec.CreatedAt, rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id uuid.UUID) (*calculation.Record, error) {
	return getCalculation(ctx, s.db, selectCalculation+` WHERE id = $1`, id)
}

// Update locks the row with SELECT ... FOR UPDATE for the duration of fn.
func (s *Store) Update(ctx context.Context, id uuid.UUID, fn func(*calculation.Record) error) (*calculation.Record, error) {
	var updated *calculation.Record

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		rec, err := getCalculation(ctx, tx, selectCalculation+` WHERE id = $1 FOR UPDATE`, id)
		if err != nil {
			return err
		}

		if err := fn(rec); err != nil {
			return err
		}

		inputs, err := json.Marshal(rec.Operands)
		if err != nil {
			return fmt.Errorf("encode inputs: %w", err)
		}

		query :=
			`UPDATE calculations SET inputs = $1, result = $2, updated_at = $3
			 WHERE id = $4`

		if _, err := tx.ExecContext(ctx, query, string(inputs), rec.Result, rec.UpdatedAt, id.String()); err != nil {
			return fmt.Errorf("db error: %w", err)
		}

		updated = rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *Store) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM calculations WHERE id = $1`, id.String())
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return n > 0, nil
}

func (s *Store) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*calculation.Record, error) {
	rows, err := s.db.QueryContext(ctx,
		selectCalculation+` WHERE user_id = $1 ORDER BY created_at DESC, id`,
		ownerID.String())
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	out := make([]*calculation.Record, 0)
	for rows.Next() {
		rec, err := scanCalculation(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

func getCalculation(ctx context.Context, db dbx.DBTX, query string, id uuid.UUID) (*calculation.Record, error) {
	rec, err := scanCalculation(db.QueryRowContext(ctx, query, id.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, calculation.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return rec, nil
}

func scanCalculation(row rowScanner) (*calculation.Record, error) {
	var (
		rec                       calculation.Record
		id, owner, opName, inputs string
		created, updated          time.Time
	)

	if err := row.Scan(&id, &owner, &opName, &inputs, &rec.Result, &created, &updated); err != nil {
		return nil, err
	}

	var err error
	if rec.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("bad calculation id %q: %w", id, err)
	}
	if rec.OwnerID, err = uuid.Parse(owner); err != nil {
		return nil, fmt.Errorf("bad owner id %q: %w", owner, err)
	}
	if rec.Operation, err = calculation.Resolve(opName); err != nil {
		return nil, fmt.Errorf("bad calculation type %q", opName)
	}
	if err := json.Unmarshal([]byte(inputs), &rec.Operands); err != nil {
		return nil, fmt.Errorf("bad inputs: %w", err)
	}
	rec.CreatedAt = created.UTC()
	rec.UpdatedAt = updated.UTC()
	return &rec, nil
}
