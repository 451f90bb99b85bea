// Package sqlite stores calculations and users in a SQLite file using the
// pure Go modernc driver.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"go-chi-calculations/internal/auth"
	"go-chi-calculations/internal/calculation"
	"go-chi-calculations/internal/dbx"
)

var (
	_ calculation.Store = (*Store)(nil)
	_ auth.UserStore    = (*Store)(nil)
)

type Store struct {
	db *sql.DB
}

// New opens (creating if needed) the database at dbPath and applies the schema.
func New(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One writer at a time; this also serialises Update transactions.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

const calculationColumns = `id, user_id, type, inputs, result, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *Store) Put(ctx context.Context, rec *calculation.Record) error {
	inputs, err := json.Marshal(rec.Operands)
	if err != nil {
		return fmt.Errorf("failed to encode inputs: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO calculations (`+calculationColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID.String(), rec.OwnerID.String(), rec.Operation.String(), string(inputs),
		rec.Result, rec.CreatedAt.UnixNano(), rec.UpdatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert calculation: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id uuid.UUID) (*calculation.Record, error) {
	return getCalculation(ctx, s.db, id)
}

func getCalculation(ctx context.Context, db dbx.DBTX, id uuid.UUID) (*calculation.Record, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+calculationColumns+` FROM calculations WHERE id = ?`,
		id.String(),
	)
	rec, err := scanCalculation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, calculation.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get calculation: %w", err)
	}
	return rec, nil
}

func (s *Store) Update(ctx context.Context, id uuid.UUID, fn func(*calculation.Record) error) (*calculation.Record, error) {
	var updated *calculation.Record

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		rec, err := getCalculation(ctx, tx, id)
		if err != nil {
			return err
		}

		if err := fn(rec); err != nil {
			return err
		}

		inputs, err := json.Marshal(rec.Operands)
		if err != nil {
			return fmt.Errorf("failed to encode inputs: %w", err)
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE calculations SET inputs = ?, result = ?, updated_at = ? WHERE id = ?`,
			string(inputs), rec.Result, rec.UpdatedAt.UnixNano(), id.String(),
		)
		if err != nil {
			return fmt.Errorf("failed to update calculation: %w", err)
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
	res, err := s.db.ExecContext(ctx, `DELETE FROM calculations WHERE id = ?`, id.String())
	if err != nil {
		return false, fmt.Errorf("failed to delete calculation: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to delete calculation: %w", err)
	}
	return n > 0, nil
}

func (s *Store) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*calculation.Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+calculationColumns+` FROM calculations WHERE user_id = ? ORDER BY created_at DESC, id`,
		ownerID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list calculations: %w", err)
	}
	defer rows.Close()

	out := make([]*calculation.Record, 0)
	for rows.Next() {
		rec, err := scanCalculation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan calculation: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate calculations: %w", err)
	}
	return out, nil
}

func scanCalculation(row rowScanner) (*calculation.Record, error) {
	var (
		id, owner, opName, inputs string
		created, updated          int64
		rec                       calculation.Record
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
	rec.CreatedAt = time.Unix(0, created).UTC()
	rec.UpdatedAt = time.Unix(0, updated).UTC()
	return &rec, nil
}
