package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/krazyTry/honorary-quote-fee/distribution"
)

// RecordStore implements distribution.RecordStore using PostgreSQL. The
// record itself is stored in its binary encoding; the day and cursor columns
// are copies for queries.
type RecordStore struct {
	pool *pgxpool.Pool
}

var _ distribution.RecordStore = (*RecordStore)(nil)

func NewRecordStore(pool *pgxpool.Pool) *RecordStore {
	return &RecordStore{pool: pool}
}

func (s *RecordStore) Get(ctx context.Context, pool solanago.PublicKey) (distribution.Record, error) {
	var data []byte
	err := s.pool.QueryRow(ctx, `SELECT record FROM distribution_records WHERE pool = $1`, pool.String()).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return distribution.Record{}, fmt.Errorf("%w: %s", distribution.ErrPolicyNotFound, pool)
		}
		return distribution.Record{}, fmt.Errorf("postgres: get record %s: %w", pool, err)
	}
	return distribution.DecodeRecord(data)
}

func (s *RecordStore) Create(ctx context.Context, rec distribution.Record) error {
	data, err := distribution.EncodeRecord(rec)
	if err != nil {
		return err
	}
	const query = `
		INSERT INTO distribution_records (pool, version, day, day_open, page_cursor, record)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err = s.pool.Exec(ctx, query,
		rec.Pool().String(), int64(rec.Version), int64(rec.Progress.Day),
		rec.Progress.DayOpen, int64(rec.Progress.PageCursor), data)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return distribution.ErrPolicyExists
		}
		return fmt.Errorf("postgres: create record %s: %w", rec.Pool(), err)
	}
	return nil
}

// CompareAndSwap replaces the record and journals the commit's transfers in
// one transaction.
func (s *RecordStore) CompareAndSwap(ctx context.Context, c distribution.Commit) error {
	data, err := distribution.EncodeRecord(c.Next)
	if err != nil {
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin swap: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const update = `
		UPDATE distribution_records
		SET version = $2, day = $3, day_open = $4, page_cursor = $5, record = $6, updated_at = NOW()
		WHERE pool = $1 AND version = $7`
	tag, err := tx.Exec(ctx, update,
		c.Pool().String(), int64(c.Next.Version), int64(c.Next.Progress.Day),
		c.Next.Progress.DayOpen, int64(c.Next.Progress.PageCursor), data, int64(c.ExpectedVersion))
	if err != nil {
		return fmt.Errorf("postgres: swap record %s: %w", c.Pool(), err)
	}
	if tag.RowsAffected() == 0 {
		return s.swapMiss(ctx, tx, c)
	}

	const journal = `
		INSERT INTO payout_journal (id, pool, version, day, kind, vesting_contract, destination, amount)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8::numeric)`
	for _, t := range c.Transfers {
		var contract *string
		if !t.VestingContract.IsZero() {
			v := t.VestingContract.String()
			contract = &v
		}
		if _, err := tx.Exec(ctx, journal,
			uuid.New(), c.Pool().String(), int64(c.Next.Version), int64(c.Next.Progress.Day),
			t.Kind.String(), contract, t.Destination.String(), strconv.FormatUint(t.Amount, 10)); err != nil {
			return fmt.Errorf("postgres: journal transfer to %s: %w", t.Destination, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit swap %s: %w", c.Pool(), err)
	}
	return nil
}

func (s *RecordStore) swapMiss(ctx context.Context, tx pgx.Tx, c distribution.Commit) error {
	var stored int64
	err := tx.QueryRow(ctx, `SELECT version FROM distribution_records WHERE pool = $1`, c.Pool().String()).Scan(&stored)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %s", distribution.ErrPolicyNotFound, c.Pool())
	}
	if err != nil {
		return fmt.Errorf("postgres: read version %s: %w", c.Pool(), err)
	}
	return fmt.Errorf("%w: stored %d, expected %d", distribution.ErrVersionConflict, stored, c.ExpectedVersion)
}

// Payout is one journalled transfer.
type Payout struct {
	ID              uuid.UUID
	Pool            string
	Version         uint64
	Day             uint64
	Kind            string
	VestingContract string
	Destination     string
	Amount          uint64
	CreatedAt       time.Time
}

// Payouts lists the transfers journalled for a pool's day, oldest first.
func (s *RecordStore) Payouts(ctx context.Context, pool solanago.PublicKey, day uint64) ([]Payout, error) {
	const query = `
		SELECT id, pool, version, day, kind, COALESCE(vesting_contract, ''), destination, amount::text, created_at
		FROM payout_journal
		WHERE pool = $1 AND day = $2
		ORDER BY version, created_at`
	rows, err := s.pool.Query(ctx, query, pool.String(), int64(day))
	if err != nil {
		return nil, fmt.Errorf("postgres: list payouts: %w", err)
	}
	defer rows.Close()

	var out []Payout
	for rows.Next() {
		var (
			p               Payout
			version, dayNum int64
			amount          string
		)
		if err := rows.Scan(&p.ID, &p.Pool, &version, &dayNum, &p.Kind, &p.VestingContract, &p.Destination, &amount, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan payout: %w", err)
		}
		if p.Amount, err = strconv.ParseUint(amount, 10, 64); err != nil {
			return nil, fmt.Errorf("postgres: payout amount %q: %w", amount, err)
		}
		p.Version, p.Day = uint64(version), uint64(dayNum)
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list payouts rows: %w", err)
	}
	return out, nil
}

// PutPending records a commit whose transaction is about to be submitted.
func (s *RecordStore) PutPending(ctx context.Context, p distribution.PendingCommit) error {
	data, err := distribution.EncodePendingCommit(p)
	if err != nil {
		return err
	}
	pool := p.Commit.Pool()
	const query = `
		INSERT INTO pending_commits (pool, signature, last_valid_height, expected_version, payload)
		VALUES ($1, $2, $3, $4, $5)`
	_, err = s.pool.Exec(ctx, query,
		pool.String(), p.Signature.String(), int64(p.LastValidBlockHeight), int64(p.Commit.ExpectedVersion), data)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("%w: %s", distribution.ErrCommitPending, pool)
		}
		return fmt.Errorf("postgres: put pending commit %s: %w", pool, err)
	}
	return nil
}

func (s *RecordStore) Pending(ctx context.Context, pool solanago.PublicKey) (distribution.PendingCommit, bool, error) {
	var data []byte
	err := s.pool.QueryRow(ctx, `SELECT payload FROM pending_commits WHERE pool = $1`, pool.String()).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return distribution.PendingCommit{}, false, nil
	}
	if err != nil {
		return distribution.PendingCommit{}, false, fmt.Errorf("postgres: get pending commit %s: %w", pool, err)
	}
	p, err := distribution.DecodePendingCommit(data)
	if err != nil {
		return distribution.PendingCommit{}, false, err
	}
	return p, true, nil
}

func (s *RecordStore) DeletePending(ctx context.Context, pool solanago.PublicKey) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM pending_commits WHERE pool = $1`, pool.String()); err != nil {
		return fmt.Errorf("postgres: delete pending commit %s: %w", pool, err)
	}
	return nil
}
