// Package channel models the cross-domain messaging subsystem: the outbox
// the gateway submits retryable tickets to, and the oracle attesting the
// secondary-chain origin of inbound calls.
package channel

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

var (
	ErrInvalidTicket = errors.New("channel: invalid ticket")
	ErrNoOrigin      = errors.New("channel: no authenticated origin")
)

// Ticket is a retryable cross-domain message submission. CallValue is the
// native value forwarded to the secondary-chain call (always zero for token
// deposits); Deposit is the full value attached to fund submission and
// execution.
type Ticket struct {
	Destination       common.Address
	CallValue         *big.Int
	MaxSubmissionCost *big.Int
	ExcessFeeRefund   common.Address
	CallValueRefund   common.Address
	GasLimit          uint64
	GasPriceBid       *big.Int
	Data              []byte
	Deposit           *big.Int
}

// Outbox accepts outbound tickets and assigns sequence numbers in
// submission order. Delivery is eventual and outside the caller's control.
type Outbox interface {
	Submit(ctx context.Context, t Ticket) (*big.Int, error)
}

// OriginOracle reports the attested secondary-chain origin of the call
// currently being delivered, if any. Implementations must answer from
// current messaging-subsystem state on every call, never from a cache.
type OriginOracle interface {
	AuthenticatedOrigin(ctx context.Context) (common.Address, bool, error)
}
