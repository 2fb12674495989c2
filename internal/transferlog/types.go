// Package transferlog indexes the gateway's transfer events for off-chain
// consumers. Records are append-only; the keccak-derived record ID makes
// re-ingestion of the same event idempotent.
package transferlog

import (
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/sha3"
)

var (
	ErrInvalidRecord  = errors.New("transferlog: invalid record")
	ErrNotFound       = errors.New("transferlog: not found")
	ErrRecordMismatch = errors.New("transferlog: record mismatch")
	ErrInvalidConfig  = errors.New("transferlog: invalid config")
)

type Direction uint8

const (
	DirectionUnknown Direction = iota
	DirectionOutbound
	DirectionInbound
)

func (d Direction) String() string {
	switch d {
	case DirectionOutbound:
		return "outbound"
	case DirectionInbound:
		return "inbound"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(d))
	}
}

// Record is one indexed transfer. Ref is the channel sequence number for
// outbound records and the counterpart exit number for inbound ones.
type Record struct {
	ID        [32]byte
	Direction Direction
	Token     common.Address
	From      common.Address
	To        common.Address
	Ref       *big.Int
	Amount    *big.Int
	Data      []byte
	CreatedAt time.Time
}

// Validate checks the fields required for indexing.
func (r Record) Validate() error {
	if r.Direction != DirectionOutbound && r.Direction != DirectionInbound {
		return fmt.Errorf("%w: direction %s", ErrInvalidRecord, r.Direction)
	}
	if r.Ref == nil || r.Ref.Sign() < 0 {
		return fmt.Errorf("%w: ref must be >= 0", ErrInvalidRecord)
	}
	if r.Amount == nil || r.Amount.Sign() < 0 {
		return fmt.Errorf("%w: amount must be >= 0", ErrInvalidRecord)
	}
	return nil
}

const recordIDPrefixV1 = "transfer"

// RecordID computes the canonical record id:
//
//	keccak256("transfer" || direction || token || from || to || ref256 || amount256)
//
// where ref256/amount256 are 32-byte big-endian encodings.
func RecordID(dir Direction, token, from, to common.Address, ref, amount *big.Int) ([32]byte, error) {
	var out [32]byte
	if ref == nil || ref.Sign() < 0 || ref.BitLen() > 256 {
		return out, fmt.Errorf("%w: ref out of range", ErrInvalidRecord)
	}
	if amount == nil || amount.Sign() < 0 || amount.BitLen() > 256 {
		return out, fmt.Errorf("%w: amount out of range", ErrInvalidRecord)
	}

	h := sha3.NewLegacyKeccak256()
	_, _ = h.Write([]byte(recordIDPrefixV1))
	_, _ = h.Write([]byte{byte(dir)})
	_, _ = h.Write(token[:])
	_, _ = h.Write(from[:])
	_, _ = h.Write(to[:])
	_, _ = h.Write(ref.FillBytes(make([]byte, 32)))
	_, _ = h.Write(amount.FillBytes(make([]byte, 32)))

	copy(out[:], h.Sum(nil))
	return out, nil
}
