// Package ledger persists daily energy records.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	core "github.com/kilianp07/vbattery/core/ledger"
)

// SQLiteStore persists ledger records in a SQLite database. Days are keyed by
// their calendar date in the store's location.
type SQLiteStore struct {
	db  *sql.DB
	loc *time.Location
}

// NewSQLiteStore opens or creates the database and ensures schema.
func NewSQLiteStore(path string, loc *time.Location) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	schema := `CREATE TABLE IF NOT EXISTS energy_ledger (
        day TEXT PRIMARY KEY,
        injected REAL,
        consumed REAL,
        discharged REAL,
        grid REAL
    );`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, err
	}
	if loc == nil {
		loc = time.UTC
	}
	return &SQLiteStore{db: db, loc: loc}, nil
}

// Put inserts or replaces the records in one transaction.
func (s *SQLiteStore) Put(ctx context.Context, recs []core.Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	for _, r := range recs {
		_, err := tx.ExecContext(ctx, `INSERT INTO energy_ledger (day, injected, consumed, discharged, grid)
        VALUES (?, ?, ?, ?, ?)
        ON CONFLICT(day) DO UPDATE SET
            injected = excluded.injected,
            consumed = excluded.consumed,
            discharged = excluded.discharged,
            grid = excluded.grid`,
			core.Day(r.Day, s.loc).Format(core.DayLayout), r.InjectedWh, r.ConsumedWh, r.DischargedWh, r.GridWh)
		if err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// Query returns records in the range [start,end] compared by calendar day.
func (s *SQLiteStore) Query(ctx context.Context, start, end time.Time) ([]core.Record, error) {
	from := core.Day(start, s.loc).Format(core.DayLayout)
	to := core.Day(end, s.loc).Format(core.DayLayout)
	rows, err := s.db.QueryContext(ctx, `SELECT day, injected, consumed, discharged, grid
        FROM energy_ledger WHERE day >= ? AND day <= ? ORDER BY day`, from, to)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var res []core.Record
	for rows.Next() {
		var day string
		var r core.Record
		if err := rows.Scan(&day, &r.InjectedWh, &r.ConsumedWh, &r.DischargedWh, &r.GridWh); err != nil {
			return nil, err
		}
		r.Day, err = time.ParseInLocation(core.DayLayout, day, s.loc)
		if err != nil {
			return nil, fmt.Errorf("parse day %q: %w", day, err)
		}
		res = append(res, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error { return s.db.Close() }
