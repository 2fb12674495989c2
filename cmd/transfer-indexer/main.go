package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/basebridge/gateway-l1/internal/events"
	"github.com/basebridge/gateway-l1/internal/queue"
	"github.com/basebridge/gateway-l1/internal/transferlog"
	transferpg "github.com/basebridge/gateway-l1/internal/transferlog/postgres"
)

func main() {
	var (
		postgresDSN = flag.String("postgres-dsn", "", "Postgres DSN (required for --store-driver=postgres)")
		storeDriver = flag.String("store-driver", "postgres", "store driver: postgres|memory")

		queueDriver   = flag.String("queue-driver", queue.DriverKafka, "queue driver: kafka|stdio")
		queueBrokers  = flag.String("queue-brokers", "", "comma-separated queue brokers (required for kafka)")
		queueGroup    = flag.String("queue-group", "transfer-indexer", "queue consumer group")
		queueTopic    = flag.String("queue-topic", events.DefaultTopic, "transfer event topic")
		queueMaxBytes = flag.Int("queue-max-bytes", 10<<20, "max kafka message size to consume")
		maxLineBytes  = flag.Int("max-line-bytes", 1<<20, "max stdin line bytes for stdio driver")
		ackTimeout    = flag.Duration("queue-ack-timeout", 5*time.Second, "queue message ack timeout")
	)
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if *queueMaxBytes <= 0 || *maxLineBytes <= 0 {
		fmt.Fprintln(os.Stderr, "error: --queue-max-bytes and --max-line-bytes must be > 0")
		os.Exit(2)
	}
	if *ackTimeout <= 0 {
		fmt.Fprintln(os.Stderr, "error: --queue-ack-timeout must be > 0")
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var store transferlog.Store
	switch strings.ToLower(strings.TrimSpace(*storeDriver)) {
	case "postgres":
		if strings.TrimSpace(*postgresDSN) == "" {
			fmt.Fprintln(os.Stderr, "error: --postgres-dsn is required when --store-driver=postgres")
			os.Exit(2)
		}
		pool, err := pgxpool.New(ctx, *postgresDSN)
		if err != nil {
			log.Error("init pgx pool", "err", err)
			os.Exit(2)
		}
		defer pool.Close()

		pgStore, err := transferpg.New(pool)
		if err != nil {
			log.Error("init transfer store", "err", err)
			os.Exit(2)
		}
		if err := pgStore.EnsureSchema(ctx); err != nil {
			log.Error("ensure transfer schema", "err", err)
			os.Exit(2)
		}
		store = pgStore
	case "memory":
		store = transferlog.NewMemoryStore()
	default:
		fmt.Fprintf(os.Stderr, "error: unsupported --store-driver %q\n", *storeDriver)
		os.Exit(2)
	}

	consumer, err := queue.NewConsumer(ctx, queue.ConsumerConfig{
		Driver:       *queueDriver,
		Brokers:      queue.SplitCommaList(*queueBrokers),
		Group:        *queueGroup,
		Topics:       []string{*queueTopic},
		MaxBytes:     *queueMaxBytes,
		MaxLineBytes: *maxLineBytes,
	})
	if err != nil {
		log.Error("init queue consumer", "err", err)
		os.Exit(2)
	}
	defer func() { _ = consumer.Close() }()

	indexer, err := events.NewIndexer(events.IndexerConfig{AckTimeout: *ackTimeout}, store, consumer, log)
	if err != nil {
		log.Error("init indexer", "err", err)
		os.Exit(2)
	}

	log.Info("transfer-indexer started",
		"queue_driver", *queueDriver,
		"topic", *queueTopic,
		"group", *queueGroup,
		"store_driver", *storeDriver,
	)

	if err := indexer.Run(ctx); err != nil {
		log.Error("transfer-indexer exited with error", "err", err)
		os.Exit(1)
	}
}
