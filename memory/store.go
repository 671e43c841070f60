package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"

	"github.com/krazyTry/honorary-quote-fee/distribution"
)

// Store is a RecordStore kept in a map. Records and pending commits are
// stored in their encoded form so every write goes through the same codec as
// the durable stores.
type Store struct {
	mu      sync.Mutex
	records map[solana.PublicKey][]byte
	pending map[solana.PublicKey][]byte
}

var _ distribution.RecordStore = (*Store)(nil)

func NewStore() *Store {
	return &Store{
		records: make(map[solana.PublicKey][]byte),
		pending: make(map[solana.PublicKey][]byte),
	}
}

func (s *Store) Get(_ context.Context, pool solana.PublicKey) (distribution.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.get(pool)
}

func (s *Store) get(pool solana.PublicKey) (distribution.Record, error) {
	data, ok := s.records[pool]
	if !ok {
		return distribution.Record{}, fmt.Errorf("%w: %s", distribution.ErrPolicyNotFound, pool)
	}
	return distribution.DecodeRecord(data)
}

func (s *Store) Create(_ context.Context, rec distribution.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[rec.Pool()]; ok {
		return distribution.ErrPolicyExists
	}
	data, err := distribution.EncodeRecord(rec)
	if err != nil {
		return err
	}
	s.records[rec.Pool()] = data
	return nil
}

func (s *Store) CompareAndSwap(_ context.Context, c distribution.Commit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.swap(c)
}

func (s *Store) swap(c distribution.Commit) error {
	cur, err := s.get(c.Pool())
	if err != nil {
		return err
	}
	if cur.Version != c.ExpectedVersion {
		return fmt.Errorf("%w: stored %d, expected %d", distribution.ErrVersionConflict, cur.Version, c.ExpectedVersion)
	}
	data, err := distribution.EncodeRecord(c.Next)
	if err != nil {
		return err
	}
	s.records[c.Pool()] = data
	return nil
}

func (s *Store) PutPending(_ context.Context, p distribution.PendingCommit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	pool := p.Commit.Pool()
	if _, ok := s.pending[pool]; ok {
		return fmt.Errorf("%w: %s", distribution.ErrCommitPending, pool)
	}
	data, err := distribution.EncodePendingCommit(p)
	if err != nil {
		return err
	}
	s.pending[pool] = data
	return nil
}

func (s *Store) Pending(_ context.Context, pool solana.PublicKey) (distribution.PendingCommit, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.pending[pool]
	if !ok {
		return distribution.PendingCommit{}, false, nil
	}
	p, err := distribution.DecodePendingCommit(data)
	if err != nil {
		return distribution.PendingCommit{}, false, err
	}
	return p, true, nil
}

func (s *Store) DeletePending(_ context.Context, pool solana.PublicKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, pool)
	return nil
}
