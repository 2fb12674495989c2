package transferlog

import (
	"bytes"
	"context"
	"math/big"
	"sync"
)

type MemoryStore struct {
	mu      sync.Mutex
	records map[[32]byte]Record
	order   [][32]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[[32]byte]Record)}
}

func (s *MemoryStore) Upsert(_ context.Context, r Record) (bool, error) {
	if err := r.Validate(); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.records[r.ID]
	if ok {
		if !recordEqual(existing, r) {
			return false, ErrRecordMismatch
		}
		return false, nil
	}

	s.records[r.ID] = cloneRecord(r)
	s.order = append(s.order, r.ID)
	return true, nil
}

func (s *MemoryStore) Get(_ context.Context, id [32]byte) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	return cloneRecord(r), nil
}

func (s *MemoryStore) ListByDirection(_ context.Context, dir Direction, limit int) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		return nil, nil
	}
	out := make([]Record, 0, limit)
	for _, id := range s.order {
		r := s.records[id]
		if r.Direction != dir {
			continue
		}
		out = append(out, cloneRecord(r))
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func cloneRecord(r Record) Record {
	if r.Ref != nil {
		r.Ref = new(big.Int).Set(r.Ref)
	}
	if r.Amount != nil {
		r.Amount = new(big.Int).Set(r.Amount)
	}
	if r.Data != nil {
		r.Data = append([]byte(nil), r.Data...)
	}
	return r
}

// recordEqual compares the identifying content, ignoring CreatedAt, which
// is assigned by whichever side observed the event first.
func recordEqual(a, b Record) bool {
	return a.Direction == b.Direction &&
		a.Token == b.Token &&
		a.From == b.From &&
		a.To == b.To &&
		a.Ref.Cmp(b.Ref) == 0 &&
		a.Amount.Cmp(b.Amount) == 0 &&
		bytes.Equal(a.Data, b.Data)
}
