// Package onchain is the production distribution.Ledger: each commit is one
// Solana transaction carrying the fee claim and every transfer, followed by
// a compare-and-swap of the record in a Store. The signed transaction is
// written to the Store as a pending commit before it is submitted and is
// reconciled against the cluster before the pool is read or written again.
package onchain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/krazyTry/honorary-quote-fee/decimal_math"
	"github.com/krazyTry/honorary-quote-fee/distribution"
	hqfsolana "github.com/krazyTry/honorary-quote-fee/solana"
)

// DefaultMaxTransfers keeps a commit inside one transaction alongside the
// claim instruction.
const DefaultMaxTransfers = 12

var ErrCommitTooLarge = errors.New("commit does not fit in one transaction")

// ClaimBuilder builds the fee claim instruction for a record.
type ClaimBuilder interface {
	ClaimInstruction(ctx context.Context, rec distribution.Record) (solanago.Instruction, error)
	Signers() []solanago.PrivateKey
}

// Submitter signs, submits and tracks transactions. *solana.Sender
// implements it.
type Submitter interface {
	SignTransaction(ctx context.Context, instructions []solanago.Instruction, payer solanago.PrivateKey, signers ...solanago.PrivateKey) (*solanago.Transaction, uint64, error)
	Submit(ctx context.Context, tx *solanago.Transaction) error
	Status(ctx context.Context, sig solanago.Signature, lastValidBlockHeight uint64) (hqfsolana.TxStatus, error)
}

var _ Submitter = (*hqfsolana.Sender)(nil)

// Store keeps records and at most one pending commit per pool.
// PutPending fails with distribution.ErrCommitPending when one exists.
type Store interface {
	distribution.RecordStore
	PutPending(ctx context.Context, p distribution.PendingCommit) error
	Pending(ctx context.Context, pool solanago.PublicKey) (distribution.PendingCommit, bool, error)
	DeletePending(ctx context.Context, pool solanago.PublicKey) error
}

type MintInfo struct {
	Program  solanago.PublicKey
	Decimals uint8
}

type MintReader interface {
	Mint(ctx context.Context, mint solanago.PublicKey) (MintInfo, error)
}

type Ledger struct {
	store        Store
	submitter    Submitter
	claims       ClaimBuilder
	mints        MintReader
	payer        solanago.PrivateKey
	treasury     solanago.PrivateKey
	maxTransfers int
	logger       *slog.Logger
}

var _ distribution.Ledger = (*Ledger)(nil)

type Option func(*Ledger)

func WithMaxTransfers(n int) Option {
	return func(l *Ledger) {
		if n > 0 {
			l.maxTransfers = n
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewLedger returns a ledger paying fees from payer. treasury is the owner
// of every honorary quote treasury it will move tokens out of.
func NewLedger(store Store, submitter Submitter, claims ClaimBuilder, mints MintReader, payer, treasury solanago.PrivateKey, opts ...Option) *Ledger {
	l := &Ledger{
		store:        store,
		submitter:    submitter,
		claims:       claims,
		mints:        mints,
		payer:        payer,
		treasury:     treasury,
		maxTransfers: DefaultMaxTransfers,
		logger:       slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load settles any commit left in flight for pool before reading its record.
func (l *Ledger) Load(ctx context.Context, pool solanago.PublicKey) (distribution.Record, error) {
	if err := l.reconcile(ctx, pool); err != nil {
		return distribution.Record{}, err
	}
	return l.store.Get(ctx, pool)
}

func (l *Ledger) Create(ctx context.Context, rec distribution.Record) error {
	return l.store.Create(ctx, rec)
}

// Apply sends the commit's transaction and then stores the next record.
// The store is checked first so a stale commit never reaches the chain, and
// the signed transaction is recorded as pending before it is submitted. A
// failed submit leaves the pending commit for the next Load or Apply to
// settle.
func (l *Ledger) Apply(ctx context.Context, c distribution.Commit) error {
	if err := l.reconcile(ctx, c.Pool()); err != nil {
		return err
	}
	cur, err := l.store.Get(ctx, c.Pool())
	if err != nil {
		return err
	}
	if cur.Version != c.ExpectedVersion {
		return fmt.Errorf("%w: stored %d, expected %d", distribution.ErrVersionConflict, cur.Version, c.ExpectedVersion)
	}

	ixs, signers, err := l.instructions(ctx, c)
	if err != nil {
		return err
	}
	if len(ixs) == 0 {
		if err := l.store.CompareAndSwap(ctx, c); err != nil {
			return err
		}
		l.logCommit(ctx, c, "")
		return nil
	}

	tx, lastValid, err := l.submitter.SignTransaction(ctx, ixs, l.payer, signers...)
	if err != nil {
		return fmt.Errorf("sign commit for pool %s: %w", c.Pool(), err)
	}
	p := distribution.PendingCommit{Commit: c, Signature: tx.Signatures[0], LastValidBlockHeight: lastValid}
	if err := l.store.PutPending(ctx, p); err != nil {
		return fmt.Errorf("record pending commit for pool %s: %w", c.Pool(), err)
	}
	if err := l.submitter.Submit(ctx, tx); err != nil {
		l.logger.Warn("commit submit failed, left pending",
			slog.String("pool", c.Pool().String()),
			slog.String("signature", p.Signature.String()),
			slog.Uint64("last_valid_block_height", lastValid),
			slog.Any("error", err))
		return fmt.Errorf("send commit for pool %s: %w", c.Pool(), err)
	}
	return l.finalize(ctx, p)
}

// reconcile settles the pool's pending commit, if any. A landed commit has
// its record stored; a failed or expired one is dropped. A commit that may
// still land blocks the pool with distribution.ErrCommitPending.
func (l *Ledger) reconcile(ctx context.Context, pool solanago.PublicKey) error {
	p, ok, err := l.store.Pending(ctx, pool)
	if err != nil || !ok {
		return err
	}
	status, err := l.submitter.Status(ctx, p.Signature, p.LastValidBlockHeight)
	if err != nil {
		return fmt.Errorf("status of pending commit %s: %w", p.Signature, err)
	}
	switch status {
	case hqfsolana.TxLanded:
		return l.finalize(ctx, p)
	case hqfsolana.TxFailed, hqfsolana.TxExpired:
		l.logger.Warn("dropping pending commit",
			slog.String("pool", pool.String()),
			slog.String("signature", p.Signature.String()),
			slog.String("status", status.String()))
		return l.store.DeletePending(ctx, pool)
	default:
		return fmt.Errorf("%w: %s for pool %s", distribution.ErrCommitPending, p.Signature, pool)
	}
}

// finalize stores the record of a commit whose transaction landed and drops
// its pending entry. A record already at the commit's next version was
// stored by an earlier finalize.
func (l *Ledger) finalize(ctx context.Context, p distribution.PendingCommit) error {
	c := p.Commit
	sig := p.Signature.String()
	if err := l.store.CompareAndSwap(ctx, c); err != nil {
		cur, gerr := l.store.Get(ctx, c.Pool())
		if !errors.Is(err, distribution.ErrVersionConflict) || gerr != nil || cur.Version != c.Next.Version {
			l.logger.Error("commit landed but record was not stored",
				slog.String("pool", c.Pool().String()),
				slog.String("signature", sig),
				slog.Uint64("version", c.Next.Version),
				slog.Any("error", err))
			return fmt.Errorf("store record after %s: %w", sig, err)
		}
	}
	if err := l.store.DeletePending(ctx, c.Pool()); err != nil {
		return fmt.Errorf("clear pending commit %s: %w", sig, err)
	}
	l.logCommit(ctx, c, sig)
	return nil
}

func (l *Ledger) logCommit(ctx context.Context, c distribution.Commit, sig string) {
	attrs := []slog.Attr{
		slog.String("pool", c.Pool().String()),
		slog.String("signature", sig),
		slog.Int("transfers", len(c.Transfers)),
		slog.Bool("claimed", c.Claim != nil),
	}
	if total, err := c.TotalTransferred(); err == nil && total > 0 {
		// The mint is cached by the time a commit with transfers was sent.
		if mint, err := l.mints.Mint(ctx, c.Next.Policy.QuoteMint); err == nil {
			attrs = append(attrs, slog.String("transferred", decimal_math.ToUIAmount(total, mint.Decimals).String()))
		}
	}
	l.logger.LogAttrs(ctx, slog.LevelDebug, "commit applied", attrs...)
}

func (l *Ledger) instructions(ctx context.Context, c distribution.Commit) ([]solanago.Instruction, []solanago.PrivateKey, error) {
	if len(c.Transfers) > l.maxTransfers {
		return nil, nil, fmt.Errorf("%w: %d transfers, limit %d", ErrCommitTooLarge, len(c.Transfers), l.maxTransfers)
	}

	var (
		ixs     []solanago.Instruction
		signers []solanago.PrivateKey
	)
	if c.Claim != nil {
		ix, err := l.claims.ClaimInstruction(ctx, c.Next)
		if err != nil {
			return nil, nil, fmt.Errorf("build claim: %w", err)
		}
		ixs = append(ixs, ix)
		signers = append(signers, l.claims.Signers()...)
	}
	if len(c.Transfers) == 0 {
		return ixs, signers, nil
	}

	quote := c.Next.Policy.QuoteMint
	mint, err := l.mints.Mint(ctx, quote)
	if err != nil {
		return nil, nil, fmt.Errorf("quote mint %s: %w", quote, err)
	}
	owner := c.Next.Honorary.Owner
	if !owner.Equals(l.treasury.PublicKey()) {
		return nil, nil, fmt.Errorf("%w: treasury owner %s is not the signer %s", distribution.ErrAccountMismatch, owner, l.treasury.PublicKey())
	}
	treasury := c.Next.Honorary.QuoteTreasury
	for _, t := range c.Transfers {
		if !t.Source.Equals(treasury) {
			return nil, nil, fmt.Errorf("%w: transfer source %s is not the quote treasury", distribution.ErrAccountMismatch, t.Source)
		}
		ixs = append(ixs, hqfsolana.TransferCheckedInstruction(mint.Program, t.Source, quote, t.Destination, owner, t.Amount, mint.Decimals))
	}
	return ixs, append(signers, l.treasury), nil
}

// RPCMints reads mints over RPC and caches them; decimals and program never
// change for a mint.
type RPCMints struct {
	client     *rpc.Client
	commitment rpc.CommitmentType

	mu    sync.Mutex
	cache map[solanago.PublicKey]MintInfo
}

func NewRPCMints(client *rpc.Client, commitment rpc.CommitmentType) *RPCMints {
	return &RPCMints{client: client, commitment: commitment, cache: make(map[solanago.PublicKey]MintInfo)}
}

func (m *RPCMints) Mint(ctx context.Context, mint solanago.PublicKey) (MintInfo, error) {
	m.mu.Lock()
	info, ok := m.cache[mint]
	m.mu.Unlock()
	if ok {
		return info, nil
	}
	tok, _, err := hqfsolana.GetMint(ctx, m.client, mint, m.commitment)
	if err != nil {
		return MintInfo{}, err
	}
	info = MintInfo{Program: tok.Owner, Decimals: tok.Decimals}
	m.mu.Lock()
	m.cache[mint] = info
	m.mu.Unlock()
	return info, nil
}
