package queue

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestSplitCommaList(t *testing.T) {
	t.Parallel()

	got := SplitCommaList(" a, ,b,,c ")
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("len: got %d want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("item %d: got %q want %q", i, got[i], want[i])
		}
	}
	if SplitCommaList("  ") != nil {
		t.Fatalf("blank input should yield nil")
	}
}

func TestNewConsumer_UnsupportedDriver(t *testing.T) {
	t.Parallel()

	_, err := NewConsumer(context.Background(), ConsumerConfig{Driver: "amqp"})
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("err: got %v want ErrInvalidConfig", err)
	}
}

func TestKafkaConsumer_RequiresBrokersGroupTopics(t *testing.T) {
	t.Parallel()

	cases := []ConsumerConfig{
		{Driver: DriverKafka},
		{Driver: DriverKafka, Brokers: []string{"b:9092"}},
		{Driver: DriverKafka, Brokers: []string{"b:9092"}, Group: "g"},
	}
	for i, cfg := range cases {
		if _, err := NewConsumer(context.Background(), cfg); !errors.Is(err, ErrInvalidConfig) {
			t.Fatalf("case %d: got %v want ErrInvalidConfig", i, err)
		}
	}
}

func TestStdioRoundTrip(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	prod, err := NewProducer(ProducerConfig{Driver: DriverStdio, Writer: &out})
	if err != nil {
		t.Fatalf("NewProducer: %v", err)
	}
	if err := prod.Publish(context.Background(), "ignored", []byte(`{"a":1}`)); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if err := prod.Publish(context.Background(), "ignored", []byte(`{"b":2}`)); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	cons, err := NewConsumer(context.Background(), ConsumerConfig{
		Driver: DriverStdio,
		Reader: strings.NewReader(out.String()),
	})
	if err != nil {
		t.Fatalf("NewConsumer: %v", err)
	}
	defer cons.Close()

	var got [][]byte
	timeout := time.After(5 * time.Second)
	for len(got) < 2 {
		select {
		case msg, ok := <-cons.Messages():
			if !ok {
				t.Fatalf("messages channel closed early, got %d", len(got))
			}
			if err := msg.Ack(context.Background()); err != nil {
				t.Fatalf("Ack: %v", err)
			}
			got = append(got, msg.Value)
		case err := <-cons.Errors():
			if err != nil {
				t.Fatalf("consumer error: %v", err)
			}
		case <-timeout:
			t.Fatalf("timed out waiting for messages, got %d", len(got))
		}
	}

	if string(got[0]) != `{"a":1}` || string(got[1]) != `{"b":2}` {
		t.Fatalf("messages: %q %q", got[0], got[1])
	}
}

func TestStdioConsumer_LineTooLong(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("x", 64) + "\n"
	cons, err := NewConsumer(context.Background(), ConsumerConfig{
		Driver:       DriverStdio,
		Reader:       strings.NewReader(long),
		MaxLineBytes: 16,
	})
	if err != nil {
		t.Fatalf("NewConsumer: %v", err)
	}
	defer cons.Close()

	select {
	case err := <-cons.Errors():
		if err == nil {
			t.Fatalf("expected scanner error")
		}
	case msg := <-cons.Messages():
		t.Fatalf("unexpected message: %q", msg.Value)
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for error")
	}
}
