package events

import (
	"bytes"
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/basebridge/gateway-l1/internal/gateway"
	"github.com/basebridge/gateway-l1/internal/queue"
	"github.com/basebridge/gateway-l1/internal/transferlog"
)

func TestIndexerValidation(t *testing.T) {
	t.Parallel()

	if _, err := NewIndexer(IndexerConfig{}, nil, nil, nil); err == nil {
		t.Fatalf("expected error for nil dependencies")
	}
}

func TestIndexerConsumesEnvelopes(t *testing.T) {
	t.Parallel()

	outEnv := FromOutbound(gateway.OutboundEvent{
		Token:          common.HexToAddress("0x11"),
		From:           common.HexToAddress("0xa1"),
		To:             common.HexToAddress("0xb2"),
		SequenceNumber: big.NewInt(1),
		Amount:         big.NewInt(250),
	}, time.Now())
	inEnv := FromInbound(gateway.InboundEvent{
		Token:      common.HexToAddress("0x11"),
		From:       common.HexToAddress("0xb2"),
		To:         common.HexToAddress("0xa1"),
		ExitNumber: big.NewInt(4),
		Amount:     big.NewInt(100),
	}, time.Now())

	var input bytes.Buffer
	for _, env := range []Envelope{outEnv, inEnv} {
		b, err := env.Marshal()
		if err != nil {
			t.Fatalf("Marshal: %v", err)
		}
		input.Write(b)
		input.WriteByte('\n')
	}
	// A malformed line is dropped without stopping the run.
	input.WriteString("{not json}\n")

	consumer, err := queue.NewConsumer(context.Background(), queue.ConsumerConfig{
		Driver: queue.DriverStdio,
		Reader: &input,
	})
	if err != nil {
		t.Fatalf("NewConsumer: %v", err)
	}
	defer consumer.Close()

	store := transferlog.NewMemoryStore()
	ix, err := NewIndexer(IndexerConfig{}, store, consumer, nil)
	if err != nil {
		t.Fatalf("NewIndexer: %v", err)
	}
	if err := ix.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	outs, err := store.ListByDirection(context.Background(), transferlog.DirectionOutbound, 10)
	if err != nil {
		t.Fatalf("ListByDirection outbound: %v", err)
	}
	if len(outs) != 1 {
		t.Fatalf("expected one outbound record, got %d", len(outs))
	}
	if outs[0].Amount.Cmp(big.NewInt(250)) != 0 {
		t.Fatalf("outbound amount mismatch: got %s", outs[0].Amount)
	}

	ins, err := store.ListByDirection(context.Background(), transferlog.DirectionInbound, 10)
	if err != nil {
		t.Fatalf("ListByDirection inbound: %v", err)
	}
	if len(ins) != 1 {
		t.Fatalf("expected one inbound record, got %d", len(ins))
	}
	if ins[0].Ref.Cmp(big.NewInt(4)) != 0 {
		t.Fatalf("inbound ref mismatch: got %s", ins[0].Ref)
	}
}

func TestIndexerIdempotentRedelivery(t *testing.T) {
	t.Parallel()

	env := FromOutbound(gateway.OutboundEvent{
		Token:          common.HexToAddress("0x11"),
		From:           common.HexToAddress("0xa1"),
		To:             common.HexToAddress("0xb2"),
		SequenceNumber: big.NewInt(9),
		Amount:         big.NewInt(42),
	}, time.Now())
	b, err := env.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var input bytes.Buffer
	input.Write(b)
	input.WriteByte('\n')
	input.Write(b)
	input.WriteByte('\n')

	consumer, err := queue.NewConsumer(context.Background(), queue.ConsumerConfig{
		Driver: queue.DriverStdio,
		Reader: &input,
	})
	if err != nil {
		t.Fatalf("NewConsumer: %v", err)
	}
	defer consumer.Close()

	store := transferlog.NewMemoryStore()
	ix, err := NewIndexer(IndexerConfig{}, store, consumer, nil)
	if err != nil {
		t.Fatalf("NewIndexer: %v", err)
	}
	if err := ix.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	outs, err := store.ListByDirection(context.Background(), transferlog.DirectionOutbound, 10)
	if err != nil {
		t.Fatalf("ListByDirection: %v", err)
	}
	if len(outs) != 1 {
		t.Fatalf("expected deduped record, got %d", len(outs))
	}
}
