package gateway

import (
	"context"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// OutboundEvent is emitted once per deposit and never mutated.
type OutboundEvent struct {
	Token          common.Address
	From           common.Address
	To             common.Address
	SequenceNumber *big.Int
	Amount         *big.Int
	Data           []byte
}

// InboundEvent is emitted once per withdrawal finalization.
type InboundEvent struct {
	Token      common.Address
	From       common.Address
	To         common.Address
	ExitNumber *big.Int
	Amount     *big.Int
	Data       []byte
}

// Recorder receives transfer events. Recording cannot fail a transition;
// fallible sinks handle their own errors.
type Recorder interface {
	RecordOutbound(ctx context.Context, ev OutboundEvent)
	RecordInbound(ctx context.Context, ev InboundEvent)
}

// LogRecorder writes events to a structured logger.
type LogRecorder struct {
	log *slog.Logger
}

func NewLogRecorder(log *slog.Logger) *LogRecorder {
	return &LogRecorder{log: log}
}

func (r *LogRecorder) RecordOutbound(ctx context.Context, ev OutboundEvent) {
	if r == nil || r.log == nil {
		return
	}
	r.log.InfoContext(ctx, "outbound transfer initiated",
		"token", ev.Token,
		"from", ev.From,
		"to", ev.To,
		"seq", ev.SequenceNumber,
		"amount", ev.Amount,
	)
}

func (r *LogRecorder) RecordInbound(ctx context.Context, ev InboundEvent) {
	if r == nil || r.log == nil {
		return
	}
	r.log.InfoContext(ctx, "inbound transfer finalized",
		"token", ev.Token,
		"from", ev.From,
		"to", ev.To,
		"exitNum", ev.ExitNumber,
		"amount", ev.Amount,
	)
}

// MultiRecorder fans events out to every recorder in order.
type MultiRecorder []Recorder

func (m MultiRecorder) RecordOutbound(ctx context.Context, ev OutboundEvent) {
	for _, r := range m {
		if r != nil {
			r.RecordOutbound(ctx, ev)
		}
	}
}

func (m MultiRecorder) RecordInbound(ctx context.Context, ev InboundEvent) {
	for _, r := range m {
		if r != nil {
			r.RecordInbound(ctx, ev)
		}
	}
}
