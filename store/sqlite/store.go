// Package sqlite keeps distribution records in a local SQLite file, for
// single-host deployments.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/krazyTry/honorary-quote-fee/distribution"
)

// Store implements distribution.RecordStore on SQLite.
type Store struct {
	db *sql.DB
}

var _ distribution.RecordStore = (*Store)(nil)

// Open opens (or creates) the database at path and runs migrations.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One writer at a time; SQLite serialises writes anyway.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS distribution_records (
			pool        TEXT PRIMARY KEY,
			version     INTEGER NOT NULL,
			day         INTEGER NOT NULL,
			day_open    INTEGER NOT NULL,
			page_cursor INTEGER NOT NULL,
			record      BLOB NOT NULL,
			updated_at  INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS payout_journal (
			id               TEXT PRIMARY KEY,
			pool             TEXT NOT NULL REFERENCES distribution_records (pool),
			version          INTEGER NOT NULL,
			day              INTEGER NOT NULL,
			kind             TEXT NOT NULL,
			vesting_contract TEXT,
			destination      TEXT NOT NULL,
			amount           TEXT NOT NULL,
			created_at       INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_payout_journal_pool_day ON payout_journal(pool, day)`,
		`CREATE TABLE IF NOT EXISTS pending_commits (
			pool              TEXT PRIMARY KEY REFERENCES distribution_records (pool),
			signature         TEXT NOT NULL,
			last_valid_height INTEGER NOT NULL,
			expected_version  INTEGER NOT NULL,
			payload           BLOB NOT NULL,
			created_at        INTEGER NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:40], err)
		}
	}
	return nil
}

func (s *Store) Get(ctx context.Context, pool solanago.PublicKey) (distribution.Record, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT record FROM distribution_records WHERE pool = ?`, pool.String()).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return distribution.Record{}, fmt.Errorf("%w: %s", distribution.ErrPolicyNotFound, pool)
	}
	if err != nil {
		return distribution.Record{}, fmt.Errorf("sqlite: get record %s: %w", pool, err)
	}
	return distribution.DecodeRecord(data)
}

func (s *Store) Create(ctx context.Context, rec distribution.Record) error {
	data, err := distribution.EncodeRecord(rec)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO distribution_records (pool, version, day, day_open, page_cursor, record, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.Pool().String(), int64(rec.Version), int64(rec.Progress.Day),
		rec.Progress.DayOpen, int64(rec.Progress.PageCursor), data, time.Now().Unix())
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return distribution.ErrPolicyExists
		}
		return fmt.Errorf("sqlite: create record %s: %w", rec.Pool(), err)
	}
	return nil
}

func (s *Store) CompareAndSwap(ctx context.Context, c distribution.Commit) error {
	data, err := distribution.EncodeRecord(c.Next)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin swap: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	now := time.Now().Unix()
	res, err := tx.ExecContext(ctx,
		`UPDATE distribution_records
		 SET version = ?, day = ?, day_open = ?, page_cursor = ?, record = ?, updated_at = ?
		 WHERE pool = ? AND version = ?`,
		int64(c.Next.Version), int64(c.Next.Progress.Day), c.Next.Progress.DayOpen,
		int64(c.Next.Progress.PageCursor), data, now, c.Pool().String(), int64(c.ExpectedVersion))
	if err != nil {
		return fmt.Errorf("sqlite: swap record %s: %w", c.Pool(), err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		var stored int64
		err := tx.QueryRowContext(ctx, `SELECT version FROM distribution_records WHERE pool = ?`, c.Pool().String()).Scan(&stored)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: %s", distribution.ErrPolicyNotFound, c.Pool())
		}
		if err != nil {
			return err
		}
		return fmt.Errorf("%w: stored %d, expected %d", distribution.ErrVersionConflict, stored, c.ExpectedVersion)
	}

	for _, t := range c.Transfers {
		var contract any
		if !t.VestingContract.IsZero() {
			contract = t.VestingContract.String()
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO payout_journal (id, pool, version, day, kind, vesting_contract, destination, amount, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			uuid.NewString(), c.Pool().String(), int64(c.Next.Version), int64(c.Next.Progress.Day),
			t.Kind.String(), contract, t.Destination.String(), fmt.Sprint(t.Amount), now); err != nil {
			return fmt.Errorf("sqlite: journal transfer to %s: %w", t.Destination, err)
		}
	}
	return tx.Commit()
}

// PutPending records a commit whose transaction is about to be submitted.
func (s *Store) PutPending(ctx context.Context, p distribution.PendingCommit) error {
	data, err := distribution.EncodePendingCommit(p)
	if err != nil {
		return err
	}
	pool := p.Commit.Pool()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO pending_commits (pool, signature, last_valid_height, expected_version, payload, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		pool.String(), p.Signature.String(), int64(p.LastValidBlockHeight), int64(p.Commit.ExpectedVersion), data, time.Now().Unix())
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("%w: %s", distribution.ErrCommitPending, pool)
		}
		return fmt.Errorf("sqlite: put pending commit %s: %w", pool, err)
	}
	return nil
}

func (s *Store) Pending(ctx context.Context, pool solanago.PublicKey) (distribution.PendingCommit, bool, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM pending_commits WHERE pool = ?`, pool.String()).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return distribution.PendingCommit{}, false, nil
	}
	if err != nil {
		return distribution.PendingCommit{}, false, fmt.Errorf("sqlite: get pending commit %s: %w", pool, err)
	}
	p, err := distribution.DecodePendingCommit(data)
	if err != nil {
		return distribution.PendingCommit{}, false, err
	}
	return p, true, nil
}

func (s *Store) DeletePending(ctx context.Context, pool solanago.PublicKey) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM pending_commits WHERE pool = ?`, pool.String()); err != nil {
		return fmt.Errorf("sqlite: delete pending commit %s: %w", pool, err)
	}
	return nil
}

// DayTotals sums the journalled transfers of one day by kind.
func (s *Store) DayTotals(ctx context.Context, pool solanago.PublicKey, day uint64) (map[string]uint64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT kind, amount FROM payout_journal WHERE pool = ? AND day = ?`, pool.String(), int64(day))
	if err != nil {
		return nil, fmt.Errorf("sqlite: day totals: %w", err)
	}
	defer rows.Close()

	totals := make(map[string]uint64)
	for rows.Next() {
		var kind, amount string
		if err := rows.Scan(&kind, &amount); err != nil {
			return nil, err
		}
		var v uint64
		if _, err := fmt.Sscan(amount, &v); err != nil {
			return nil, fmt.Errorf("sqlite: amount %q: %w", amount, err)
		}
		if totals[kind]+v < totals[kind] {
			return nil, distribution.ErrArithmeticOverflow
		}
		totals[kind] += v
	}
	return totals, rows.Err()
}
