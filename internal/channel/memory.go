package channel

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// SubmittedTicket is an outbox entry retained for inspection.
type SubmittedTicket struct {
	SequenceNumber *big.Int
	Ticket         Ticket
}

// Memory is an in-process inbox/outbox pair: it assigns monotonically
// increasing sequence numbers to submitted tickets and can deliver inbound
// calls under a declared origin.
type Memory struct {
	mu      sync.Mutex
	nextSeq uint64
	tickets []SubmittedTicket

	// deliverMu serializes inbound deliveries so the active origin is
	// unambiguous for the duration of each one.
	deliverMu sync.Mutex
	origin    common.Address
	originSet bool
}

func NewMemory() *Memory {
	return &Memory{nextSeq: 1}
}

func (m *Memory) Submit(_ context.Context, t Ticket) (*big.Int, error) {
	if t.Deposit == nil || t.Deposit.Sign() < 0 {
		return nil, fmt.Errorf("%w: Deposit must be >= 0", ErrInvalidTicket)
	}
	if t.CallValue == nil || t.CallValue.Sign() < 0 {
		return nil, fmt.Errorf("%w: CallValue must be >= 0", ErrInvalidTicket)
	}
	if t.MaxSubmissionCost == nil || t.MaxSubmissionCost.Sign() < 0 {
		return nil, fmt.Errorf("%w: MaxSubmissionCost must be >= 0", ErrInvalidTicket)
	}
	if t.GasPriceBid == nil || t.GasPriceBid.Sign() < 0 {
		return nil, fmt.Errorf("%w: GasPriceBid must be >= 0", ErrInvalidTicket)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	seq := new(big.Int).SetUint64(m.nextSeq)
	m.nextSeq++

	t.Data = append([]byte(nil), t.Data...)
	m.tickets = append(m.tickets, SubmittedTicket{SequenceNumber: seq, Ticket: t})
	return new(big.Int).Set(seq), nil
}

// Tickets returns a copy of all submitted tickets in sequence order.
func (m *Memory) Tickets() []SubmittedTicket {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SubmittedTicket, len(m.tickets))
	copy(out, m.tickets)
	return out
}

// AuthenticatedOrigin reports the origin of the delivery in progress.
// Outside a delivery there is no authenticated origin.
func (m *Memory) AuthenticatedOrigin(_ context.Context) (common.Address, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.originSet {
		return common.Address{}, false, nil
	}
	return m.origin, true, nil
}

// DeliverFrom runs fn as an inbound call attested to originate from origin.
// The origin is visible through AuthenticatedOrigin only for the duration
// of fn.
func (m *Memory) DeliverFrom(ctx context.Context, origin common.Address, fn func(ctx context.Context) error) error {
	if fn == nil {
		return fmt.Errorf("%w: nil delivery", ErrInvalidTicket)
	}
	m.deliverMu.Lock()
	defer m.deliverMu.Unlock()

	m.mu.Lock()
	m.origin = origin
	m.originSet = true
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.origin = common.Address{}
		m.originSet = false
		m.mu.Unlock()
	}()

	return fn(ctx)
}
