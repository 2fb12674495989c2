package events

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/basebridge/gateway-l1/internal/queue"
	"github.com/basebridge/gateway-l1/internal/transferlog"
)

type IndexerConfig struct {
	// AckTimeout bounds each message commit. Defaults to 5s.
	AckTimeout time.Duration
}

// Indexer consumes published transfer envelopes and mirrors them into the
// transfer log. Malformed payloads and record mismatches are acked and
// dropped; store failures leave the message unacked for redelivery.
type Indexer struct {
	cfg      IndexerConfig
	store    transferlog.Store
	consumer queue.Consumer
	log      *slog.Logger
}

func NewIndexer(cfg IndexerConfig, store transferlog.Store, consumer queue.Consumer, log *slog.Logger) (*Indexer, error) {
	if store == nil || consumer == nil {
		return nil, fmt.Errorf("%w: nil dependency", ErrInvalidConfig)
	}
	if cfg.AckTimeout <= 0 {
		cfg.AckTimeout = 5 * time.Second
	}
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	return &Indexer{cfg: cfg, store: store, consumer: consumer, log: log}, nil
}

// Run processes messages until the context is canceled or the consumer's
// message channel closes. It returns the first consume error observed.
func (ix *Indexer) Run(ctx context.Context) error {
	msgCh := ix.consumer.Messages()
	errCh := ix.consumer.Errors()

	var firstErr error
	for {
		select {
		case <-ctx.Done():
			return firstErr
		case err, ok := <-errCh:
			if !ok {
				errCh = nil
				continue
			}
			if err != nil {
				ix.log.Error("indexer consume error", "err", err)
				if firstErr == nil {
					firstErr = err
				}
			}
		case msg, ok := <-msgCh:
			if !ok {
				return firstErr
			}
			ix.handle(ctx, msg)
		}
	}
}

func (ix *Indexer) handle(ctx context.Context, msg queue.Message) {
	env, err := Decode(msg.Value)
	if err != nil {
		ix.log.Error("drop malformed envelope", "err", err)
		ix.ack(ctx, msg)
		return
	}

	rec, err := env.Record()
	if err != nil {
		ix.log.Error("drop unmappable envelope", "err", err, "type", env.Type)
		ix.ack(ctx, msg)
		return
	}

	inserted, err := ix.store.Upsert(ctx, rec)
	if err != nil {
		if errors.Is(err, transferlog.ErrRecordMismatch) {
			ix.log.Error("drop conflicting record", "err", err, "id", fmt.Sprintf("%x", rec.ID))
			ix.ack(ctx, msg)
			return
		}
		ix.log.Error("persist transfer record", "err", err, "id", fmt.Sprintf("%x", rec.ID))
		return
	}

	if inserted {
		ix.log.Info("transfer record indexed",
			"type", env.Type,
			"token", env.Token,
			"amount", env.Amount,
		)
	}
	ix.ack(ctx, msg)
}

func (ix *Indexer) ack(ctx context.Context, msg queue.Message) {
	ackCtx, cancel := context.WithTimeout(ctx, ix.cfg.AckTimeout)
	defer cancel()
	if err := msg.Ack(ackCtx); err != nil {
		ix.log.Error("ack message", "err", err)
	}
}
