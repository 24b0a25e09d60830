package dlq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kocayinsec/network-automation-sender/dispatchlog"
	"github.com/kocayinsec/network-automation-sender/model"
)

// Postgres is a durable dead-letter sink for deployments that need dead
// letters to survive a process restart, grounded on the pack's pgxpool
// connection-and-query idiom. It wraps an in-memory ring buffer for the
// hot read path (List/Len/Dropped) and persists every Add asynchronously
// so a slow database never blocks the dispatch loop.
type Postgres struct {
	pool  *pgxpool.Pool
	cache *Memory
	log   dispatchlog.Logger
}

// ConnectPostgres opens a pooled connection to url and ensures the
// dead_letters table exists.
func ConnectPostgres(ctx context.Context, url string, cacheCapacity int, log dispatchlog.Logger) (*Postgres, error) {
	if log == nil {
		log = dispatchlog.Nop{}
	}
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("dlq: parse postgres url: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("dlq: connect: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("dlq: ping: %w", err)
	}
	if _, err := pool.Exec(ctx, createTableSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("dlq: create table: %w", err)
	}
	return &Postgres{pool: pool, cache: NewMemory(cacheCapacity), log: log}, nil
}

const createTableSQL = `
CREATE TABLE IF NOT EXISTS dead_letters (
	descriptor_id UUID PRIMARY KEY,
	outcome       TEXT NOT NULL,
	attempts      INT NOT NULL,
	last_error    TEXT NOT NULL,
	descriptor    JSONB NOT NULL,
	recorded_at   TIMESTAMPTZ NOT NULL
)`

// Add implements Sink: it updates the in-memory cache immediately for fast
// status reporting, then persists to Postgres on a background goroutine so
// a slow or unreachable database never blocks the dispatch worker calling
// Add.
func (p *Postgres) Add(rec Record) {
	p.cache.Add(rec)

	payload, err := json.Marshal(rec.Descriptor)
	if err != nil {
		p.log.Error("dlq: marshal descriptor for persistence", "descriptor_id", rec.Descriptor.ID, "error", err)
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if _, err := p.pool.Exec(ctx,
			`INSERT INTO dead_letters (descriptor_id, outcome, attempts, last_error, descriptor, recorded_at)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 ON CONFLICT (descriptor_id) DO UPDATE SET
				outcome = EXCLUDED.outcome,
				attempts = EXCLUDED.attempts,
				last_error = EXCLUDED.last_error,
				recorded_at = EXCLUDED.recorded_at`,
			rec.Descriptor.ID, string(rec.Outcome), rec.Attempts, rec.LastError, payload, rec.RecordedAt,
		); err != nil {
			p.log.Error("dlq: persist dead letter", "descriptor_id", rec.Descriptor.ID, "error", err)
		}
	}()
}

// List implements Sink from the in-memory cache. A full historical query
// against Postgres is available via Query for operator tooling.
func (p *Postgres) List() []Record { return p.cache.List() }

// Len implements Sink.
func (p *Postgres) Len() int { return p.cache.Len() }

// Dropped implements Sink.
func (p *Postgres) Dropped() int64 { return p.cache.Dropped() }

// Query runs an ad-hoc read against the durable table, for operator
// tooling that needs history beyond the in-memory cache's capacity.
func (p *Postgres) Query(ctx context.Context, limit int) ([]Record, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT descriptor, outcome, attempts, last_error, recorded_at
		 FROM dead_letters ORDER BY recorded_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			payload    []byte
			outcome    string
			attempts   int
			lastError  string
			recordedAt time.Time
		)
		if err := rows.Scan(&payload, &outcome, &attempts, &lastError, &recordedAt); err != nil {
			return nil, err
		}
		var descriptor model.RequestDescriptor
		if err := json.Unmarshal(payload, &descriptor); err != nil {
			return nil, err
		}
		out = append(out, Record{
			Descriptor: descriptor,
			Outcome:    model.OutcomeKind(outcome),
			Attempts:   attempts,
			LastError:  lastError,
			RecordedAt: recordedAt,
		})
	}
	return out, rows.Err()
}

// Close releases the underlying connection pool.
func (p *Postgres) Close() { p.pool.Close() }

var _ Sink = (*Postgres)(nil)
