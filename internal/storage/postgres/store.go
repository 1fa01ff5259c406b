package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/idlerpg/internal/save"
)

// SaveStore persists characters and halls as JSONB documents.
type SaveStore struct {
	db *pgxpool.Pool
}

// NewSaveStore creates a SaveStore backed by the given pool.
//
// Precondition: db must be a valid, open connection pool with migrations applied.
func NewSaveStore(db *pgxpool.Pool) *SaveStore {
	return &SaveStore{db: db}
}

// LoadChar returns the character stored under id.
//
// Postcondition: Returns an error wrapping save.ErrNotFound if no row exists.
func (s *SaveStore) LoadChar(ctx context.Context, id string) (save.CharData, error) {
	var out save.CharData
	if err := s.load(ctx, "characters", id, &out); err != nil {
		return save.CharData{}, fmt.Errorf("loading character %q: %w", id, err)
	}
	return out, nil
}

// SaveChar upserts the character under id.
func (s *SaveStore) SaveChar(ctx context.Context, data save.CharData, id string) error {
	if err := s.upsert(ctx, "characters", id, data); err != nil {
		return fmt.Errorf("saving character %q: %w", id, err)
	}
	return nil
}

// DeleteChar removes the character stored under id.
//
// Postcondition: Returns an error wrapping save.ErrNotFound if no row existed.
func (s *SaveStore) DeleteChar(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM characters WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting character %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("deleting character %q: %w", id, save.ErrNotFound)
	}
	return nil
}

// LoadHall returns the hall stored under id.
func (s *SaveStore) LoadHall(ctx context.Context, id string) (save.HallData, error) {
	var out save.HallData
	if err := s.load(ctx, "halls", id, &out); err != nil {
		return save.HallData{}, fmt.Errorf("loading hall %q: %w", id, err)
	}
	return out, nil
}

// SaveHall upserts the hall under id.
func (s *SaveStore) SaveHall(ctx context.Context, data save.HallData, id string) error {
	if err := s.upsert(ctx, "halls", id, data); err != nil {
		return fmt.Errorf("saving hall %q: %w", id, err)
	}
	return nil
}

// ClearAll removes every character and hall in one transaction.
func (s *SaveStore) ClearAll(ctx context.Context) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning clear: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM characters`); err != nil {
		return fmt.Errorf("clearing characters: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM halls`); err != nil {
		return fmt.Errorf("clearing halls: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing clear: %w", err)
	}
	return nil
}

// table is always one of the fixed names above, never user input.
func (s *SaveStore) load(ctx context.Context, table, id string, out any) error {
	var raw []byte
	err := s.db.QueryRow(ctx, `SELECT data FROM `+table+` WHERE id = $1`, id).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return save.ErrNotFound
		}
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decoding row: %w", err)
	}
	return nil
}

func (s *SaveStore) upsert(ctx context.Context, table, id string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding row: %w", err)
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO `+table+` (id, data, updated_at)
		VALUES ($1, $2::jsonb, NOW())
		ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data, updated_at = NOW()`,
		id, string(raw),
	)
	return err
}
