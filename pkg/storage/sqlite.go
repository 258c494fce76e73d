package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/verdant-systems/terrarium/pkg/sim"
	"github.com/verdant-systems/terrarium/pkg/species"
	"github.com/verdant-systems/terrarium/pkg/world"
)

// SQLiteStore persists save state in a single sqlite database. One row per
// save for species and environment, one row per turn for history.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path and ensures the schema.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, errors.New("sqlite path is required")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS save_species (
			save_id TEXT PRIMARY KEY,
			payload BLOB NOT NULL
		);
		CREATE TABLE IF NOT EXISTS save_environment (
			save_id TEXT PRIMARY KEY,
			payload BLOB NOT NULL
		);
		CREATE TABLE IF NOT EXISTS turn_history (
			turn_id TEXT PRIMARY KEY,
			save_id TEXT NOT NULL,
			round INTEGER NOT NULL,
			payload BLOB NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_turn_history_save
			ON turn_history (save_id, round);
	`)
	return err
}

func (s *SQLiteStore) All(ctx context.Context, saveID string) ([]*species.Species, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM save_species WHERE save_id = ?`, saveID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var list []*species.Species
	if err := json.Unmarshal(payload, &list); err != nil {
		return nil, fmt.Errorf("decode species for save %s: %w", saveID, err)
	}
	return list, nil
}

func (s *SQLiteStore) SaveAll(ctx context.Context, saveID string, list []*species.Species) error {
	payload, err := json.Marshal(list)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO save_species (save_id, payload) VALUES (?, ?)
		ON CONFLICT(save_id) DO UPDATE SET payload = excluded.payload
	`, saveID, payload)
	return err
}

func (s *SQLiteStore) Snapshot(ctx context.Context, saveID string) (*world.Snapshot, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM save_environment WHERE save_id = ?`, saveID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var snap world.Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot for save %s: %w", saveID, err)
	}
	return &snap, nil
}

func (s *SQLiteStore) SaveSnapshot(ctx context.Context, saveID string, snap *world.Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO save_environment (save_id, payload) VALUES (?, ?)
		ON CONFLICT(save_id) DO UPDATE SET payload = excluded.payload
	`, saveID, payload)
	return err
}

// CommitTurn writes species, map, and history row in a single transaction
// so an interrupted turn never leaves partial state.
func (s *SQLiteStore) CommitTurn(ctx context.Context, commit TurnCommit) error {
	report := commit.Report
	reportPayload, err := json.Marshal(report)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	rollback := func(err error) error {
		_ = tx.Rollback()
		return err
	}

	if commit.Species != nil {
		payload, err := json.Marshal(commit.Species)
		if err != nil {
			return rollback(err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO save_species (save_id, payload) VALUES (?, ?)
			ON CONFLICT(save_id) DO UPDATE SET payload = excluded.payload
		`, report.SaveID, payload); err != nil {
			return rollback(err)
		}
	}
	if commit.Snapshot != nil {
		payload, err := json.Marshal(commit.Snapshot)
		if err != nil {
			return rollback(err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO save_environment (save_id, payload) VALUES (?, ?)
			ON CONFLICT(save_id) DO UPDATE SET payload = excluded.payload
		`, report.SaveID, payload); err != nil {
			return rollback(err)
		}
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO turn_history (turn_id, save_id, round, payload)
		VALUES (?, ?, ?, ?)
	`, report.TurnID, report.SaveID, report.Round, reportPayload); err != nil {
		return rollback(err)
	}
	return tx.Commit()
}

func (s *SQLiteStore) Turns(ctx context.Context, saveID string) ([]*sim.TurnReport, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT payload FROM turn_history WHERE save_id = ? ORDER BY round ASC
	`, saveID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reports []*sim.TurnReport
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var report sim.TurnReport
		if err := json.Unmarshal(payload, &report); err != nil {
			return nil, fmt.Errorf("decode turn for save %s: %w", saveID, err)
		}
		reports = append(reports, &report)
	}
	return reports, rows.Err()
}
