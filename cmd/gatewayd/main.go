package main

import (
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/basebridge/gateway-l1/internal/blobstore"
	"github.com/basebridge/gateway-l1/internal/channel"
	"github.com/basebridge/gateway-l1/internal/erc20"
	"github.com/basebridge/gateway-l1/internal/events"
	"github.com/basebridge/gateway-l1/internal/gateway"
	"github.com/basebridge/gateway-l1/internal/gateway/httpapi"
	"github.com/basebridge/gateway-l1/internal/queue"
	"github.com/basebridge/gateway-l1/internal/secrets"
	transferpg "github.com/basebridge/gateway-l1/internal/transferlog/postgres"
)

func main() {
	var (
		listenAddr = flag.String("listen", "127.0.0.1:8080", "HTTP listen address")

		gatewayAddr     = flag.String("gateway-address", "", "gateway escrow address (required)")
		counterpartAddr = flag.String("counterpart", "", "counterpart gateway address on the secondary chain (required)")
		routerAddr      = flag.String("router", "", "router address (required)")
		channelAddr     = flag.String("channel-address", "", "cross-domain channel address (required)")

		authTokenRef = flag.String("auth-token-ref", "", "bearer token reference (literal, env:NAME, or aws:SECRET_ID); empty disables auth")
		devnet       = flag.Bool("devnet", false, "expose devnet token endpoints")

		seedToken    = flag.String("seed-token", "", "register a token at this address on startup")
		seedName     = flag.String("seed-token-name", "Devnet Coin", "seeded token name")
		seedSymbol   = flag.String("seed-token-symbol", "DEV", "seeded token symbol")
		seedDecimals = flag.Uint("seed-token-decimals", 18, "seeded token decimals")
		seedMintTo   = flag.String("seed-mint-to", "", "mint seeded supply to this address")
		seedMint     = flag.String("seed-mint-amount", "0", "seeded supply amount")

		rpcURL = flag.String("rpc-url", "", "EVM RPC URL for token metadata probing; empty probes the in-memory bank")

		postgresDSN = flag.String("postgres-dsn", "", "Postgres DSN for the transfer log; empty disables persistence")

		queueDriver  = flag.String("queue-driver", queue.DriverKafka, "queue driver for event publishing (kafka|stdio)")
		queueBrokers = flag.String("queue-brokers", "", "queue brokers (comma-separated); empty disables publishing")
		queueTopic   = flag.String("queue-topic", events.DefaultTopic, "queue topic for transfer events")

		artifactDriver = flag.String("artifact-driver", "", "calldata archive driver (s3|memory); empty disables archiving")
		artifactBucket = flag.String("artifact-bucket", "", "S3 bucket for the calldata archive")
		artifactPrefix = flag.String("artifact-prefix", "gateway", "key prefix for the calldata archive")

		readHeaderTimeout = flag.Duration("read-header-timeout", 5*time.Second, "http.Server ReadHeaderTimeout")
		readTimeout       = flag.Duration("read-timeout", 10*time.Second, "http.Server ReadTimeout")
		writeTimeout      = flag.Duration("write-timeout", 10*time.Second, "http.Server WriteTimeout")
		idleTimeout       = flag.Duration("idle-timeout", 60*time.Second, "http.Server IdleTimeout")
	)
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	addrFlags := []struct {
		name  string
		value string
	}{
		{"--gateway-address", *gatewayAddr},
		{"--counterpart", *counterpartAddr},
		{"--router", *routerAddr},
		{"--channel-address", *channelAddr},
	}
	for _, f := range addrFlags {
		if !common.IsHexAddress(strings.TrimSpace(f.value)) {
			fmt.Fprintf(os.Stderr, "error: %s must be a valid hex address\n", f.name)
			os.Exit(2)
		}
	}
	if *listenAddr == "" {
		fmt.Fprintln(os.Stderr, "error: --listen must be non-empty")
		os.Exit(2)
	}
	if *readHeaderTimeout <= 0 || *readTimeout <= 0 || *writeTimeout <= 0 || *idleTimeout <= 0 {
		fmt.Fprintln(os.Stderr, "error: timeouts must be > 0")
		os.Exit(2)
	}
	if *seedDecimals > 255 {
		fmt.Fprintln(os.Stderr, "error: --seed-token-decimals must fit uint8")
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	authToken := ""
	if strings.TrimSpace(*authTokenRef) != "" {
		tok, err := secrets.Resolve(ctx, *authTokenRef)
		if err != nil {
			log.Error("resolve auth token", "err", err)
			os.Exit(2)
		}
		authToken = tok
	}

	bank := erc20.NewMemoryBank()
	if strings.TrimSpace(*seedToken) != "" {
		if !common.IsHexAddress(strings.TrimSpace(*seedToken)) {
			fmt.Fprintln(os.Stderr, "error: --seed-token must be a valid hex address")
			os.Exit(2)
		}
		tok := erc20.NewMemoryTokenWithMetadata(erc20.Metadata{
			Name:     *seedName,
			Symbol:   *seedSymbol,
			Decimals: uint8(*seedDecimals),
		})
		if err := bank.Register(common.HexToAddress(strings.TrimSpace(*seedToken)), tok); err != nil {
			log.Error("register seed token", "err", err)
			os.Exit(2)
		}
		amount, ok := new(big.Int).SetString(strings.TrimSpace(*seedMint), 10)
		if !ok || amount.Sign() < 0 {
			fmt.Fprintln(os.Stderr, "error: --seed-mint-amount must be a non-negative decimal")
			os.Exit(2)
		}
		if amount.Sign() > 0 {
			if !common.IsHexAddress(strings.TrimSpace(*seedMintTo)) {
				fmt.Fprintln(os.Stderr, "error: --seed-mint-to must be a valid hex address when minting")
				os.Exit(2)
			}
			if err := tok.Mint(common.HexToAddress(strings.TrimSpace(*seedMintTo)), amount); err != nil {
				log.Error("mint seed supply", "err", err)
				os.Exit(2)
			}
		}
		log.Info("seed token registered", "token", *seedToken, "symbol", *seedSymbol)
	}

	var prober erc20.StaticCaller
	if strings.TrimSpace(*rpcURL) != "" {
		client, err := ethclient.DialContext(ctx, strings.TrimSpace(*rpcURL))
		if err != nil {
			log.Error("dial rpc", "err", err)
			os.Exit(2)
		}
		defer client.Close()
		prober, err = erc20.NewRPCCaller(client)
		if err != nil {
			log.Error("init rpc caller", "err", err)
			os.Exit(2)
		}
	} else {
		caller, err := erc20.NewBankCaller(bank)
		if err != nil {
			log.Error("init bank caller", "err", err)
			os.Exit(2)
		}
		prober = caller
	}

	builder, err := gateway.NewStandardBuilder(prober)
	if err != nil {
		log.Error("init calldata builder", "err", err)
		os.Exit(2)
	}

	recorders := gateway.MultiRecorder{gateway.NewLogRecorder(log)}

	if strings.TrimSpace(*postgresDSN) != "" {
		pool, err := pgxpool.New(ctx, *postgresDSN)
		if err != nil {
			log.Error("init pgx pool", "err", err)
			os.Exit(2)
		}
		defer pool.Close()

		store, err := transferpg.New(pool)
		if err != nil {
			log.Error("init transfer store", "err", err)
			os.Exit(2)
		}
		if err := store.EnsureSchema(ctx); err != nil {
			log.Error("ensure transfer schema", "err", err)
			os.Exit(2)
		}
		recorders = append(recorders, &storeRecorder{store: store, log: log})
		log.Info("transfer log persistence enabled")
	}

	if strings.TrimSpace(*queueBrokers) != "" {
		producer, err := queue.NewProducer(queue.ProducerConfig{
			Driver:  *queueDriver,
			Brokers: queue.SplitCommaList(*queueBrokers),
		})
		if err != nil {
			log.Error("init queue producer", "err", err)
			os.Exit(2)
		}
		defer producer.Close()

		publisher, err := events.NewPublisher(producer, *queueTopic, log)
		if err != nil {
			log.Error("init event publisher", "err", err)
			os.Exit(2)
		}
		recorders = append(recorders, publisher)
		log.Info("event publishing enabled", "driver", *queueDriver, "topic", *queueTopic)
	}

	if strings.TrimSpace(*artifactDriver) != "" {
		cfg := blobstore.Config{
			Driver: *artifactDriver,
			Prefix: *artifactPrefix,
			Bucket: *artifactBucket,
		}
		if strings.TrimSpace(*artifactDriver) == blobstore.DriverS3 {
			awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
			if err != nil {
				log.Error("load aws config", "err", err)
				os.Exit(2)
			}
			cfg.S3Client = s3.NewFromConfig(awsCfg)
		}
		store, err := blobstore.New(cfg)
		if err != nil {
			log.Error("init calldata archive", "err", err)
			os.Exit(2)
		}
		recorders = append(recorders, &archiveRecorder{store: store, log: log})
		log.Info("calldata archive enabled", "driver", *artifactDriver, "bucket", *artifactBucket)
	}

	ch := channel.NewMemory()
	gw, err := gateway.New(
		common.HexToAddress(strings.TrimSpace(*gatewayAddr)),
		bank, ch, ch, builder, recorders, log,
	)
	if err != nil {
		log.Error("init gateway", "err", err)
		os.Exit(2)
	}
	if err := gw.Initialize(gateway.Config{
		Counterpart: common.HexToAddress(strings.TrimSpace(*counterpartAddr)),
		Router:      common.HexToAddress(strings.TrimSpace(*routerAddr)),
		Channel:     common.HexToAddress(strings.TrimSpace(*channelAddr)),
	}); err != nil {
		log.Error("initialize gateway", "err", err)
		os.Exit(2)
	}

	handler, err := httpapi.NewHandler(gw, ch, bank, httpapi.Config{
		AuthToken: authToken,
		Devnet:    *devnet,
	})
	if err != nil {
		log.Error("init http handler", "err", err)
		os.Exit(2)
	}

	srv := &http.Server{
		Addr:              *listenAddr,
		Handler:           handler,
		ReadHeaderTimeout: *readHeaderTimeout,
		ReadTimeout:       *readTimeout,
		WriteTimeout:      *writeTimeout,
		IdleTimeout:       *idleTimeout,
		MaxHeaderBytes:    1 << 20,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("gatewayd listening", "addr", *listenAddr, "gateway", *gatewayAddr, "router", *routerAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown", "reason", ctx.Err())
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			log.Error("server error", "err", err)
			os.Exit(1)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

// storeRecorder mirrors transfer events into the durable transfer log.
type storeRecorder struct {
	store *transferpg.Store
	log   *slog.Logger
}

func (r *storeRecorder) RecordOutbound(ctx context.Context, ev gateway.OutboundEvent) {
	r.upsert(ctx, events.FromOutbound(ev, time.Now()))
}

func (r *storeRecorder) RecordInbound(ctx context.Context, ev gateway.InboundEvent) {
	r.upsert(ctx, events.FromInbound(ev, time.Now()))
}

func (r *storeRecorder) upsert(ctx context.Context, env events.Envelope) {
	rec, err := env.Record()
	if err != nil {
		r.log.Error("build transfer record", "err", err)
		return
	}
	if _, err := r.store.Upsert(ctx, rec); err != nil {
		r.log.Error("persist transfer record", "err", err, "type", env.Type)
	}
}

// archiveRecorder writes each event envelope to the blob archive, keyed
// by record ID so retried deliveries overwrite identical content.
type archiveRecorder struct {
	store blobstore.Store
	log   *slog.Logger
}

func (r *archiveRecorder) RecordOutbound(ctx context.Context, ev gateway.OutboundEvent) {
	r.put(ctx, events.FromOutbound(ev, time.Now()), "outbound")
}

func (r *archiveRecorder) RecordInbound(ctx context.Context, ev gateway.InboundEvent) {
	r.put(ctx, events.FromInbound(ev, time.Now()), "inbound")
}

func (r *archiveRecorder) put(ctx context.Context, env events.Envelope, kind string) {
	rec, err := env.Record()
	if err != nil {
		r.log.Error("build archive record", "err", err)
		return
	}
	payload, err := env.Marshal()
	if err != nil {
		r.log.Error("marshal archive envelope", "err", err)
		return
	}
	key := kind + "/" + hex.EncodeToString(rec.ID[:]) + ".json"
	if err := r.store.Put(ctx, key, payload, "application/json"); err != nil {
		r.log.Error("archive transfer envelope", "err", err, "key", key)
	}
}
