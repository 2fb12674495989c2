// Package postgres persists transfer records in PostgreSQL. Fixed-width
// protocol values (ids, refs, amounts) are stored as length-checked BYTEA
// so no precision is lost on uint256 amounts.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/basebridge/gateway-l1/internal/transferlog"
)

var ErrInvalidConfig = errors.New("transferlog/postgres: invalid config")

type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("%w: nil pool", ErrInvalidConfig)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) EnsureSchema(ctx context.Context) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("%w: nil store", ErrInvalidConfig)
	}
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("transferlog/postgres: ensure schema: %w", err)
	}
	return nil
}

func (s *Store) Upsert(ctx context.Context, r transferlog.Record) (bool, error) {
	if s == nil || s.pool == nil {
		return false, fmt.Errorf("%w: nil store", ErrInvalidConfig)
	}
	if err := r.Validate(); err != nil {
		return false, err
	}

	createdAt := r.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	tag, err := s.pool.Exec(ctx, `
		INSERT INTO transfer_records (
			record_id,
			direction,
			token,
			sender,
			recipient,
			ref,
			amount,
			extra_data,
			created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (record_id) DO NOTHING
	`,
		r.ID[:],
		int16(r.Direction),
		r.Token[:],
		r.From[:],
		r.To[:],
		r.Ref.FillBytes(make([]byte, 32)),
		r.Amount.FillBytes(make([]byte, 32)),
		normBytes(r.Data),
		createdAt,
	)
	if err != nil {
		return false, fmt.Errorf("transferlog/postgres: insert record: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return true, nil
	}

	existing, err := s.Get(ctx, r.ID)
	if err != nil {
		return false, err
	}
	if !sameRecord(existing, r) {
		return false, transferlog.ErrRecordMismatch
	}
	return false, nil
}

func (s *Store) Get(ctx context.Context, id [32]byte) (transferlog.Record, error) {
	if s == nil || s.pool == nil {
		return transferlog.Record{}, fmt.Errorf("%w: nil store", ErrInvalidConfig)
	}

	row := s.pool.QueryRow(ctx, `
		SELECT record_id, direction, token, sender, recipient, ref, amount, extra_data, created_at
		FROM transfer_records
		WHERE record_id = $1
	`, id[:])

	r, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return transferlog.Record{}, transferlog.ErrNotFound
		}
		return transferlog.Record{}, err
	}
	return r, nil
}

func (s *Store) ListByDirection(ctx context.Context, dir transferlog.Direction, limit int) ([]transferlog.Record, error) {
	if s == nil || s.pool == nil {
		return nil, fmt.Errorf("%w: nil store", ErrInvalidConfig)
	}
	if limit <= 0 {
		return nil, nil
	}

	rows, err := s.pool.Query(ctx, `
		SELECT record_id, direction, token, sender, recipient, ref, amount, extra_data, created_at
		FROM transfer_records
		WHERE direction = $1
		ORDER BY created_at ASC, record_id ASC
		LIMIT $2
	`, int16(dir), limit)
	if err != nil {
		return nil, fmt.Errorf("transferlog/postgres: list records: %w", err)
	}
	defer rows.Close()

	var out []transferlog.Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("transferlog/postgres: iterate records: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (transferlog.Record, error) {
	var (
		idRaw     []byte
		direction int16
		tokenRaw  []byte
		fromRaw   []byte
		toRaw     []byte
		refRaw    []byte
		amountRaw []byte
		data      []byte
		createdAt time.Time
	)
	if err := row.Scan(&idRaw, &direction, &tokenRaw, &fromRaw, &toRaw, &refRaw, &amountRaw, &data, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return transferlog.Record{}, err
		}
		return transferlog.Record{}, fmt.Errorf("transferlog/postgres: scan record: %w", err)
	}

	id, err := to32(idRaw)
	if err != nil {
		return transferlog.Record{}, err
	}
	token, err := toAddress(tokenRaw)
	if err != nil {
		return transferlog.Record{}, err
	}
	from, err := toAddress(fromRaw)
	if err != nil {
		return transferlog.Record{}, err
	}
	to, err := toAddress(toRaw)
	if err != nil {
		return transferlog.Record{}, err
	}

	return transferlog.Record{
		ID:        id,
		Direction: transferlog.Direction(direction),
		Token:     token,
		From:      from,
		To:        to,
		Ref:       new(big.Int).SetBytes(refRaw),
		Amount:    new(big.Int).SetBytes(amountRaw),
		Data:      data,
		CreatedAt: createdAt.UTC(),
	}, nil
}

func sameRecord(a, b transferlog.Record) bool {
	return a.Direction == b.Direction &&
		a.Token == b.Token &&
		a.From == b.From &&
		a.To == b.To &&
		a.Ref.Cmp(b.Ref) == 0 &&
		a.Amount.Cmp(b.Amount) == 0 &&
		string(normBytes(a.Data)) == string(normBytes(b.Data))
}

func normBytes(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}

func to32(b []byte) ([32]byte, error) {
	var out [32]byte
	if len(b) != 32 {
		return out, fmt.Errorf("transferlog/postgres: expected 32 bytes, got %d", len(b))
	}
	copy(out[:], b)
	return out, nil
}

func toAddress(b []byte) (common.Address, error) {
	var out common.Address
	if len(b) != 20 {
		return out, fmt.Errorf("transferlog/postgres: expected 20 bytes, got %d", len(b))
	}
	copy(out[:], b)
	return out, nil
}
