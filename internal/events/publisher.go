package events

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/basebridge/gateway-l1/internal/gateway"
	"github.com/basebridge/gateway-l1/internal/queue"
)

var ErrInvalidConfig = errors.New("events: invalid config")

// Publisher implements gateway.Recorder over a queue producer. Publish
// failures are logged, never surfaced: event emission cannot fail a
// gateway transition.
type Publisher struct {
	prod  queue.Producer
	topic string
	log   *slog.Logger
	now   func() time.Time
}

func NewPublisher(prod queue.Producer, topic string, log *slog.Logger) (*Publisher, error) {
	if prod == nil {
		return nil, fmt.Errorf("%w: nil producer", ErrInvalidConfig)
	}
	if strings.TrimSpace(topic) == "" {
		topic = DefaultTopic
	}
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	return &Publisher{prod: prod, topic: topic, log: log, now: func() time.Time { return time.Now().UTC() }}, nil
}

func (p *Publisher) RecordOutbound(ctx context.Context, ev gateway.OutboundEvent) {
	p.publish(ctx, FromOutbound(ev, p.now()))
}

func (p *Publisher) RecordInbound(ctx context.Context, ev gateway.InboundEvent) {
	p.publish(ctx, FromInbound(ev, p.now()))
}

func (p *Publisher) publish(ctx context.Context, env Envelope) {
	b, err := env.Marshal()
	if err != nil {
		p.log.ErrorContext(ctx, "drop transfer event", "type", env.Type, "err", err)
		return
	}
	if err := p.prod.Publish(ctx, p.topic, b); err != nil {
		p.log.ErrorContext(ctx, "publish transfer event", "type", env.Type, "topic", p.topic, "err", err)
	}
}
