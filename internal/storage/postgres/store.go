package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"ccauth/internal/model"
)

// Schema creates the tables used by Store.
const Schema = `
CREATE TABLE IF NOT EXISTS decoded_events (
	transaction_hash TEXT NOT NULL,
	log_index TEXT NOT NULL,
	contract_address TEXT NOT NULL,
	event_name TEXT NOT NULL,
	block_number NUMERIC,
	block_hash TEXT,
	params JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (transaction_hash, log_index)
);
CREATE TABLE IF NOT EXISTS sender_nonces (
	sender TEXT PRIMARY KEY,
	next_nonce NUMERIC NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// ErrMissingEventKey is returned for events without a transaction hash or
// log index, which together form the decoded_events primary key.
var ErrMissingEventKey = errors.New("decoded event missing transaction hash or log index")

// Store provides Postgres persistence for decoded events and sender nonces.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates missing tables.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, Schema)
	return err
}

// PutDecodedEvents inserts or updates decoded events keyed by transaction
// hash and log index. The batch is rejected whole if any event lacks either.
func (s *Store) PutDecodedEvents(ctx context.Context, events []model.DecodedEvent) error {
	if len(events) == 0 {
		return nil
	}
	for i, event := range events {
		if event.TransactionHash == "" || event.LogIndex == "" {
			return fmt.Errorf("%w: event %d (%s)", ErrMissingEventKey, i, event.Name)
		}
	}
	batch := &pgx.Batch{}
	for _, event := range events {
		params, err := json.Marshal(event.Events)
		if err != nil {
			return fmt.Errorf("marshal %s params: %w", event.Name, err)
		}
		batch.Queue(`
			INSERT INTO decoded_events (
				transaction_hash, log_index, contract_address, event_name,
				block_number, block_hash, params, created_at, updated_at
			) VALUES ($1, $2, $3, $4, NULLIF($5, '')::numeric, $6, $7::jsonb, now(), now())
			ON CONFLICT (transaction_hash, log_index)
			DO UPDATE SET
				contract_address = EXCLUDED.contract_address,
				event_name = EXCLUDED.event_name,
				block_number = EXCLUDED.block_number,
				block_hash = EXCLUDED.block_hash,
				params = EXCLUDED.params,
				updated_at = now()
		`,
			event.TransactionHash,
			event.LogIndex,
			strings.ToLower(event.Address),
			event.Name,
			event.BlockNumber,
			event.BlockHash,
			string(params),
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range events {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// Next returns the next nonce for sender and advances the stored counter.
// The first nonce for a sender is 0.
func (s *Store) Next(ctx context.Context, sender common.Address) (*big.Int, error) {
	var next string
	row := s.pool.QueryRow(ctx, `
		INSERT INTO sender_nonces (sender, next_nonce, updated_at)
		VALUES ($1, 1, now())
		ON CONFLICT (sender) DO UPDATE
		SET next_nonce = sender_nonces.next_nonce + 1, updated_at = now()
		RETURNING (next_nonce - 1)::text
	`, strings.ToLower(sender.Hex()))
	if err := row.Scan(&next); err != nil {
		return nil, fmt.Errorf("allocate nonce: %w", err)
	}
	n, ok := new(big.Int).SetString(next, 10)
	if !ok {
		return nil, fmt.Errorf("invalid stored nonce %q", next)
	}
	return n, nil
}
