// Package events defines the versioned JSON envelopes the gateway publishes
// for its transfer events, and the mapping into transfer-log records.
package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/basebridge/gateway-l1/internal/gateway"
	"github.com/basebridge/gateway-l1/internal/transferlog"
)

const (
	TypeOutbound = "gateway.outbound.v1"
	TypeInbound  = "gateway.inbound.v1"

	DefaultTopic = "gateway.transfers.v1"
)

var ErrInvalidEnvelope = errors.New("events: invalid envelope")

// Envelope is one published transfer event. Ref carries the channel
// sequence number for outbound events and the exit number for inbound ones.
type Envelope struct {
	Type      string         `json:"type"`
	Token     common.Address `json:"token"`
	From      common.Address `json:"from"`
	To        common.Address `json:"to"`
	Ref       *hexutil.Big   `json:"ref"`
	Amount    *hexutil.Big   `json:"amount"`
	Data      hexutil.Bytes  `json:"data,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}

func FromOutbound(ev gateway.OutboundEvent, at time.Time) Envelope {
	return Envelope{
		Type:      TypeOutbound,
		Token:     ev.Token,
		From:      ev.From,
		To:        ev.To,
		Ref:       (*hexutil.Big)(ev.SequenceNumber),
		Amount:    (*hexutil.Big)(ev.Amount),
		Data:      hexutil.Bytes(ev.Data),
		CreatedAt: at.UTC(),
	}
}

func FromInbound(ev gateway.InboundEvent, at time.Time) Envelope {
	return Envelope{
		Type:      TypeInbound,
		Token:     ev.Token,
		From:      ev.From,
		To:        ev.To,
		Ref:       (*hexutil.Big)(ev.ExitNumber),
		Amount:    (*hexutil.Big)(ev.Amount),
		Data:      hexutil.Bytes(ev.Data),
		CreatedAt: at.UTC(),
	}
}

func (e Envelope) Validate() error {
	if e.Type != TypeOutbound && e.Type != TypeInbound {
		return fmt.Errorf("%w: type %q", ErrInvalidEnvelope, e.Type)
	}
	if e.Ref == nil {
		return fmt.Errorf("%w: missing ref", ErrInvalidEnvelope)
	}
	if e.Amount == nil {
		return fmt.Errorf("%w: missing amount", ErrInvalidEnvelope)
	}
	return nil
}

func (e Envelope) Marshal() ([]byte, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}
	b, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("events: marshal envelope: %w", err)
	}
	return b, nil
}

func Decode(b []byte) (Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(b, &e); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrInvalidEnvelope, err)
	}
	if err := e.Validate(); err != nil {
		return Envelope{}, err
	}
	return e, nil
}

// Record maps the envelope into its transfer-log record.
func (e Envelope) Record() (transferlog.Record, error) {
	if err := e.Validate(); err != nil {
		return transferlog.Record{}, err
	}

	dir := transferlog.DirectionOutbound
	if e.Type == TypeInbound {
		dir = transferlog.DirectionInbound
	}
	ref := (*big.Int)(e.Ref)
	amount := (*big.Int)(e.Amount)

	id, err := transferlog.RecordID(dir, e.Token, e.From, e.To, ref, amount)
	if err != nil {
		return transferlog.Record{}, err
	}
	return transferlog.Record{
		ID:        id,
		Direction: dir,
		Token:     e.Token,
		From:      e.From,
		To:        e.To,
		Ref:       ref,
		Amount:    amount,
		Data:      e.Data,
		CreatedAt: e.CreatedAt,
	}, nil
}
