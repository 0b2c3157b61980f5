// Package ledger persists stash reports: a SQLite table of every leg for
// lookups, and a compressed JSONL audit trail.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/gravitas-games/logistics/internal/inventory"
	"github.com/gravitas-games/logistics/internal/stash"
)

// tsLayout keeps timestamps fixed-width so they sort as text.
const tsLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLite stores one row per run and one row per leg.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens or creates the ledger database at path.
func OpenSQLite(path string) (*SQLite, error) {
	if path == "" {
		return nil, fmt.Errorf("empty ledger path")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLite{db: db}, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			unit TEXT NOT NULL,
			source TEXT NOT NULL,
			started_at TEXT NOT NULL,
			finished_at TEXT NOT NULL,
			no_inventory INTEGER NOT NULL,
			aborted INTEGER NOT NULL,
			indexed_items INTEGER NOT NULL,
			overflow_container TEXT,
			overflow_inventory TEXT
		);`,
		`CREATE TABLE IF NOT EXISTS legs (
			run_id TEXT NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
			seq INTEGER NOT NULL,
			item TEXT NOT NULL,
			source TEXT NOT NULL,
			container TEXT NOT NULL,
			inventory TEXT NOT NULL,
			overflow INTEGER NOT NULL,
			amount INTEGER NOT NULL,
			state TEXT NOT NULL,
			PRIMARY KEY (run_id, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS legs_state ON legs(state);`,
		`CREATE INDEX IF NOT EXISTS runs_unit ON runs(unit, finished_at);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (l *SQLite) Close() error { return l.db.Close() }

// Record writes a report and its legs in one transaction.
func (l *SQLite) Record(ctx context.Context, r stash.Report) error {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("ledger: begin: %w", err)
	}
	defer tx.Rollback()

	var ofContainer, ofInventory sql.NullString
	if r.Overflow != nil {
		ofContainer = sql.NullString{String: string(r.Overflow.Container), Valid: true}
		ofInventory = sql.NullString{String: string(r.Overflow.Inventory), Valid: true}
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs(run_id, unit, source, started_at, finished_at, no_inventory, aborted, indexed_items, overflow_container, overflow_inventory)
		 VALUES(?,?,?,?,?,?,?,?,?,?)`,
		r.RunID, string(r.Unit), string(r.Source),
		r.StartedAt.UTC().Format(tsLayout), r.FinishedAt.UTC().Format(tsLayout),
		boolInt(r.NoInventory), boolInt(r.Aborted), r.IndexedItems, ofContainer, ofInventory,
	)
	if err != nil {
		return fmt.Errorf("ledger: insert run %s: %w", r.RunID, err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO legs(run_id, seq, item, source, container, inventory, overflow, amount, state)
		 VALUES(?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("ledger: prepare legs: %w", err)
	}
	defer stmt.Close()
	for i, leg := range r.Legs {
		if _, err := stmt.ExecContext(ctx,
			r.RunID, i, string(leg.Item), string(leg.Source),
			string(leg.Destination.Container), string(leg.Destination.Inventory),
			boolInt(leg.Overflow), leg.Amount, leg.State.String(),
		); err != nil {
			return fmt.Errorf("ledger: insert leg %d of %s: %w", i, r.RunID, err)
		}
	}
	return tx.Commit()
}

// LostLeg is a leg whose items could be neither delivered nor restored.
type LostLeg struct {
	RunID      string
	Unit       stash.EntityID
	FinishedAt time.Time
	Leg        stash.Leg
}

// LostLegs returns the most recent lost legs, newest first.
func (l *SQLite) LostLegs(ctx context.Context, limit int) ([]LostLeg, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := l.db.QueryContext(ctx,
		`SELECT r.run_id, r.unit, r.finished_at, g.item, g.source, g.container, g.inventory, g.overflow, g.amount, g.state
		 FROM legs g JOIN runs r ON r.run_id = g.run_id
		 WHERE g.state = ?
		 ORDER BY r.finished_at DESC, g.seq ASC
		 LIMIT ?`, stash.LegLost.String(), limit)
	if err != nil {
		return nil, fmt.Errorf("ledger: query lost legs: %w", err)
	}
	defer rows.Close()

	var out []LostLeg
	for rows.Next() {
		var (
			ll       LostLeg
			unit     string
			finished string
			leg      legRow
		)
		if err := rows.Scan(&ll.RunID, &unit, &finished, &leg.item, &leg.source, &leg.container, &leg.inventory, &leg.overflow, &leg.amount, &leg.state); err != nil {
			return nil, err
		}
		ll.Unit = stash.EntityID(unit)
		if ll.FinishedAt, err = time.Parse(tsLayout, finished); err != nil {
			return nil, fmt.Errorf("ledger: bad finished_at %q: %w", finished, err)
		}
		if ll.Leg, err = leg.toLeg(); err != nil {
			return nil, err
		}
		out = append(out, ll)
	}
	return out, rows.Err()
}

// ErrRunNotFound is returned by Run for unknown run ids.
var ErrRunNotFound = errors.New("ledger: run not found")

// Run loads a stored report by id.
func (l *SQLite) Run(ctx context.Context, runID string) (stash.Report, error) {
	var (
		r                     stash.Report
		unit, source          string
		started, finished     string
		noInv, aborted        int
		ofContainer, ofInvent sql.NullString
	)
	err := l.db.QueryRowContext(ctx,
		`SELECT run_id, unit, source, started_at, finished_at, no_inventory, aborted, indexed_items, overflow_container, overflow_inventory
		 FROM runs WHERE run_id = ?`, runID,
	).Scan(&r.RunID, &unit, &source, &started, &finished, &noInv, &aborted, &r.IndexedItems, &ofContainer, &ofInvent)
	if errors.Is(err, sql.ErrNoRows) {
		return stash.Report{}, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return stash.Report{}, fmt.Errorf("ledger: load run %s: %w", runID, err)
	}
	r.Unit = stash.EntityID(unit)
	r.Source = stash.InventoryID(source)
	r.NoInventory = noInv != 0
	r.Aborted = aborted != 0
	if r.StartedAt, err = time.Parse(tsLayout, started); err != nil {
		return stash.Report{}, err
	}
	if r.FinishedAt, err = time.Parse(tsLayout, finished); err != nil {
		return stash.Report{}, err
	}
	if ofContainer.Valid {
		r.Overflow = &stash.Destination{
			Container: stash.EntityID(ofContainer.String),
			Inventory: stash.InventoryID(ofInvent.String),
		}
	}

	rows, err := l.db.QueryContext(ctx,
		`SELECT item, source, container, inventory, overflow, amount, state
		 FROM legs WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return stash.Report{}, fmt.Errorf("ledger: load legs of %s: %w", runID, err)
	}
	defer rows.Close()
	r.Legs = make([]stash.Leg, 0)
	for rows.Next() {
		var row legRow
		if err := rows.Scan(&row.item, &row.source, &row.container, &row.inventory, &row.overflow, &row.amount, &row.state); err != nil {
			return stash.Report{}, err
		}
		leg, err := row.toLeg()
		if err != nil {
			return stash.Report{}, err
		}
		r.Legs = append(r.Legs, leg)
	}
	return r, rows.Err()
}

type legRow struct {
	item      string
	source    string
	container string
	inventory string
	overflow  int
	amount    int
	state     string
}

func (row legRow) toLeg() (stash.Leg, error) {
	var state stash.LegState
	if err := state.UnmarshalText([]byte(row.state)); err != nil {
		return stash.Leg{}, err
	}
	return stash.Leg{
		Item:   inventory.ItemID(row.item),
		Source: stash.InventoryID(row.source),
		Destination: stash.Destination{
			Container: stash.EntityID(row.container),
			Inventory: stash.InventoryID(row.inventory),
		},
		Overflow: row.overflow != 0,
		Amount:   row.amount,
		State:    state,
	}, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
