// Package gateway implements the base-chain side of the two-layer token
// bridge: it escrows tokens on deposit, composes the retryable message that
// credits the counterpart chain, and releases escrow when an authenticated
// withdrawal message arrives.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/basebridge/gateway-l1/internal/channel"
	"github.com/basebridge/gateway-l1/internal/erc20"
	"github.com/basebridge/gateway-l1/internal/gatewayabi"
)

var (
	ErrInvalidConfig      = errors.New("gateway: invalid config")
	ErrAlreadyInitialized = errors.New("gateway: already initialized")
	ErrNotInitialized     = errors.New("gateway: not initialized")
	ErrUnauthorized       = errors.New("gateway: unauthorized")
	ErrTransferFailed     = errors.New("gateway: token transfer failed")
)

// Gateway is the escrow ledger plus outbound composer plus inbound handler.
// Every entry point runs to completion atomically: any failure before the
// token mutation leaves no state change, and event recording happens only
// after all fallible steps succeed.
type Gateway struct {
	// addr is the gateway's own identity in the token ledgers; escrowed
	// balances are held under it.
	addr common.Address

	cell configCell

	bank    erc20.Bank
	outbox  channel.Outbox
	origin  channel.OriginOracle
	builder CalldataBuilder
	rec     Recorder

	log *slog.Logger
}

func New(addr common.Address, bank erc20.Bank, outbox channel.Outbox, origin channel.OriginOracle, builder CalldataBuilder, rec Recorder, log *slog.Logger) (*Gateway, error) {
	if (addr == common.Address{}) {
		return nil, fmt.Errorf("%w: zero gateway address", ErrInvalidConfig)
	}
	if bank == nil || outbox == nil || origin == nil || builder == nil {
		return nil, fmt.Errorf("%w: nil dependency", ErrInvalidConfig)
	}
	if rec == nil {
		rec = MultiRecorder(nil)
	}
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	return &Gateway{
		addr:    addr,
		bank:    bank,
		outbox:  outbox,
		origin:  origin,
		builder: builder,
		rec:     rec,
		log:     log,
	}, nil
}

// Address returns the gateway's escrow identity.
func (g *Gateway) Address() common.Address {
	return g.addr
}

// Initialize fixes the counterpart, router, and channel addresses. It
// succeeds at most once; a second call fails without touching the first
// configuration.
func (g *Gateway) Initialize(cfg Config) error {
	if err := g.cell.put(cfg); err != nil {
		return err
	}
	g.log.Info("gateway initialized",
		"counterpart", cfg.Counterpart,
		"router", cfg.Router,
		"channel", cfg.Channel,
	)
	return nil
}

// Config returns the fixed configuration and whether initialization has
// happened.
func (g *Gateway) Config() (Config, bool) {
	return g.cell.get()
}

// DepositParams are the deposit entry point's inputs. Data is the
// router-encoded payload; Value is the attached fee budget funding the
// outbound message.
type DepositParams struct {
	Token       common.Address
	To          common.Address
	Amount      *big.Int
	GasLimit    uint64
	GasPriceBid *big.Int
	Data        []byte
	Value       *big.Int
}

// OutboundTransfer escrows a deposit and enqueues the cross-domain credit
// message. Only the configured router may call it. The amount is not
// validated here: the token contract is the authority on transferability,
// so a zero-amount deposit it accepts goes through as a no-op escrow.
// Returns the ABI-encoded sequence number assigned by the channel.
func (g *Gateway) OutboundTransfer(ctx context.Context, caller common.Address, p DepositParams) ([]byte, error) {
	cfg, ok := g.cell.get()
	if !ok {
		return nil, ErrNotInitialized
	}
	if caller != cfg.Router {
		return nil, fmt.Errorf("%w: deposit caller %s is not the router", ErrUnauthorized, caller)
	}
	if p.Value == nil || p.Value.Sign() < 0 {
		return nil, fmt.Errorf("%w: attached value must be >= 0", ErrInvalidConfig)
	}

	payload, err := gatewayabi.DecodeRouterPayload(p.Data)
	if err != nil {
		return nil, err
	}

	token, err := g.bank.Token(p.Token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}
	if err := token.TransferFrom(ctx, g.addr, payload.Sender, g.addr, p.Amount); err != nil {
		return nil, fmt.Errorf("%w: escrow %s of %s from %s: %v", ErrTransferFailed, p.Amount, p.Token, payload.Sender, err)
	}

	calldata, err := g.builder.BuildFinalizeCalldata(ctx, p.Token, payload.Sender, p.To, p.Amount, payload.ExtraData)
	if err != nil {
		return nil, err
	}

	// Deposits never forward native value to the secondary-chain call; the
	// sender takes both refunds.
	seqNum, err := g.outbox.Submit(ctx, channel.Ticket{
		Destination:       cfg.Counterpart,
		CallValue:         big.NewInt(0),
		MaxSubmissionCost: payload.MaxSubmissionCost,
		ExcessFeeRefund:   payload.Sender,
		CallValueRefund:   payload.Sender,
		GasLimit:          p.GasLimit,
		GasPriceBid:       p.GasPriceBid,
		Data:              calldata,
		Deposit:           p.Value,
	})
	if err != nil {
		return nil, err
	}

	g.rec.RecordOutbound(ctx, OutboundEvent{
		Token:          p.Token,
		From:           payload.Sender,
		To:             p.To,
		SequenceNumber: seqNum,
		Amount:         p.Amount,
		Data:           payload.ExtraData,
	})

	return gatewayabi.EncodeDepositResult(seqNum)
}

// FinalizeParams are the withdrawal entry point's inputs as recorded on the
// secondary chain. Data carries the exit number and pass-through bytes.
type FinalizeParams struct {
	Token  common.Address
	From   common.Address
	To     common.Address
	Amount *big.Int
	Data   []byte
}

// FinalizeInboundTransfer releases escrow to the recipient. Only a call
// whose attested origin is the configured counterpart may finalize; the
// oracle is consulted fresh on every call, which is the sole barrier
// against forged withdrawals.
func (g *Gateway) FinalizeInboundTransfer(ctx context.Context, p FinalizeParams) error {
	cfg, ok := g.cell.get()
	if !ok {
		return ErrNotInitialized
	}

	origin, ok, err := g.origin.AuthenticatedOrigin(ctx)
	if err != nil {
		return fmt.Errorf("gateway: read authenticated origin: %w", err)
	}
	if !ok || origin != cfg.Counterpart {
		return fmt.Errorf("%w: inbound origin is not the counterpart", ErrUnauthorized)
	}

	payload, err := gatewayabi.DecodeWithdrawalPayload(p.Data)
	if err != nil {
		return err
	}

	token, err := g.bank.Token(p.Token)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}
	if err := token.Transfer(ctx, g.addr, p.To, p.Amount); err != nil {
		return fmt.Errorf("%w: release %s of %s to %s: %v", ErrTransferFailed, p.Amount, p.Token, p.To, err)
	}

	g.rec.RecordInbound(ctx, InboundEvent{
		Token:      p.Token,
		From:       p.From,
		To:         p.To,
		ExitNumber: payload.ExitNum,
		Amount:     p.Amount,
		Data:       payload.ExtraData,
	})

	return nil
}
