package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"vaultScope/internal/model"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// Store provides Postgres persistence for the address book, request logs,
// watched pool events and watcher progress.
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

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// ApplyMigrations executes every .sql file in dir in name order. The
// scripts are expected to be idempotent.
func (s *Store) ApplyMigrations(ctx context.Context, dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read migrations dir: %w", err)
	}
	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && filepath.Ext(entry.Name()) == ".sql" {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)

	for _, file := range files {
		sql, err := os.ReadFile(filepath.Join(dir, file))
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", file, err)
		}
		if _, err := s.pool.Exec(ctx, string(sql)); err != nil {
			return nil, fmt.Errorf("apply migration %s: %w", file, err)
		}
	}
	return files, nil
}

// UpsertContract stores an address book entry.
func (s *Store) UpsertContract(ctx context.Context, contract model.Contract) error {
	if contract.Name == "" || contract.Address == "" {
		return fmt.Errorf("contract name and address are required")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO contracts (contract, address, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (contract) DO UPDATE
		SET address = EXCLUDED.address, updated_at = now()
	`, contract.Name, contract.Address)
	return err
}

// GetContract looks an address up by name.
func (s *Store) GetContract(ctx context.Context, name string) (model.Contract, error) {
	contract := model.Contract{Name: name}
	row := s.pool.QueryRow(ctx, `SELECT address FROM contracts WHERE contract=$1`, name)
	if err := row.Scan(&contract.Address); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Contract{}, fmt.Errorf("contract %q: %w", name, ErrNotFound)
		}
		return model.Contract{}, err
	}
	return contract, nil
}

// ListContracts returns the address book ordered by name.
func (s *Store) ListContracts(ctx context.Context) ([]model.Contract, error) {
	rows, err := s.pool.Query(ctx, `SELECT contract, address FROM contracts ORDER BY contract`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Contract, error) {
		var c model.Contract
		err := row.Scan(&c.Name, &c.Address)
		return c, err
	})
}

// InsertLog appends a request log row, assigning an id and timestamp when
// they are unset.
func (s *Store) InsertLog(ctx context.Context, entry *model.RequestLog) error {
	if entry == nil {
		return fmt.Errorf("log entry is nil")
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO logs (id, source, log, input, data, timestamp)
		VALUES ($1::text::uuid, $2, $3, $4, $5, $6)
	`, entry.ID, entry.Source, entry.Log, nullJSON(entry.Input), nullJSON(entry.Data), entry.Timestamp)
	return err
}

// RecentLogs returns the newest log rows for a source.
func (s *Store) RecentLogs(ctx context.Context, source string, limit int) ([]model.RequestLog, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id::text, source, log, COALESCE(input, 'null'::jsonb), COALESCE(data, 'null'::jsonb), timestamp
		FROM logs WHERE source=$1 ORDER BY timestamp DESC LIMIT $2
	`, source, limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.RequestLog, error) {
		var l model.RequestLog
		var input, data []byte
		err := row.Scan(&l.ID, &l.Source, &l.Log, &input, &data, &l.Timestamp)
		l.Input, l.Data = input, data
		return l, err
	})
}

// PutEvents inserts pool events, ignoring ones already stored.
func (s *Store) PutEvents(ctx context.Context, events []model.PoolEvent) error {
	if len(events) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, ev := range events {
		batch.Queue(`
			INSERT INTO pool_events (
				pool_address, event_name, block_number, block_hash, tx_hash, log_index, block_ts,
				sender, owner, recipient, amount, amount0, amount1, sqrt_price_x96, liquidity,
				tick, tick_lower, tick_upper
			) VALUES (
				$1, $2, $3, $4, $5, $6, NULLIF($7::bigint, 0),
				NULLIF($8::text, ''), NULLIF($9::text, ''), NULLIF($10::text, ''),
				NULLIF($11::text, '')::numeric, $12::text::numeric, $13::text::numeric,
				NULLIF($14::text, '')::numeric, NULLIF($15::text, '')::numeric,
				$16, $17, $18
			)
			ON CONFLICT (tx_hash, log_index) DO NOTHING
		`,
			ev.Pool,
			ev.Name,
			int64(ev.BlockNumber),
			ev.BlockHash,
			ev.TxHash,
			int64(ev.LogIndex),
			int64(ev.Timestamp),
			ev.Sender,
			ev.Owner,
			ev.Recipient,
			ev.Amount,
			orZero(ev.Amount0),
			orZero(ev.Amount1),
			ev.SqrtPriceX96,
			ev.Liquidity,
			ev.Tick,
			ev.TickLower,
			ev.TickUpper,
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

// CountEvents returns the number of stored events for a pool.
func (s *Store) CountEvents(ctx context.Context, pool string) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx, `SELECT count(*) FROM pool_events WHERE pool_address=$1`, pool).Scan(&n)
	return n, err
}

// LoadCheckpoint returns the last processed block for a watcher.
func (s *Store) LoadCheckpoint(ctx context.Context, name string) (uint64, bool, error) {
	if name == "" {
		return 0, false, fmt.Errorf("state name required")
	}
	var block int64
	row := s.pool.QueryRow(ctx, `SELECT last_block FROM watcher_state WHERE name=$1`, name)
	if err := row.Scan(&block); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return uint64(block), true, nil
}

// SaveCheckpoint upserts the last processed block for a watcher.
func (s *Store) SaveCheckpoint(ctx context.Context, name string, block uint64) error {
	if name == "" {
		return fmt.Errorf("state name required")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO watcher_state (name, last_block, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE
		SET last_block = EXCLUDED.last_block, updated_at = now()
	`, name, int64(block))
	return err
}

func nullJSON(raw []byte) interface{} {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}

func orZero(v string) string {
	if v == "" {
		return "0"
	}
	return v
}
