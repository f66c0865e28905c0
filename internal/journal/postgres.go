package journal

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS momentum_trades (
	id             UUID PRIMARY KEY,
	product_id     TEXT NOT NULL,
	side           TEXT NOT NULL,
	order_id       TEXT NOT NULL,
	price          NUMERIC NOT NULL,
	size           NUMERIC NOT NULL,
	executed_value NUMERIC NOT NULL,
	fees           NUMERIC NOT NULL,
	profit         NUMERIC,
	transferred    NUMERIC,
	executed_at    TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS momentum_trades_product_time ON momentum_trades (product_id, executed_at);
`

const insertTrade = `
INSERT INTO momentum_trades (id, product_id, side, order_id, price, size, executed_value, fees, profit, transferred, executed_at)
VALUES ($1, $2, $3, $4, $5::numeric, $6::numeric, $7::numeric, $8::numeric, $9::numeric, $10::numeric, $11)`

// PostgresJournal writes records to postgres
type PostgresJournal struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects with dsn and ensures the schema exists
func OpenPostgres(ctx context.Context, dsn string) (*PostgresJournal, error) {
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse config: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}

	j := NewPostgresJournal(pool)
	if err := j.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return j, nil
}

// NewPostgresJournal wraps an existing pool
func NewPostgresJournal(pool *pgxpool.Pool) *PostgresJournal {
	return &PostgresJournal{pool: pool}
}

// EnsureSchema creates the trades table if missing
func (p *PostgresJournal) EnsureSchema(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("postgres: ensure schema: %w", err)
	}
	return nil
}

// Record inserts rec
func (p *PostgresJournal) Record(ctx context.Context, rec TradeRecord) error {
	rec = stamp(rec)
	_, err := p.pool.Exec(ctx, insertTrade, insertArgs(rec)...)
	if err != nil {
		return fmt.Errorf("postgres: insert trade %s: %w", rec.OrderID, err)
	}
	return nil
}

func insertArgs(rec TradeRecord) []interface{} {
	var profit, transferred *string
	if rec.Side == "sell" {
		p, t := rec.Profit.String(), rec.Transferred.String()
		profit, transferred = &p, &t
	}
	return []interface{}{
		rec.ID, rec.ProductID, rec.Side, rec.OrderID,
		rec.Price.String(), rec.Size.String(), rec.ExecutedValue.String(), rec.Fees.String(),
		profit, transferred, rec.ExecutedAt,
	}
}

// Close releases the pool
func (p *PostgresJournal) Close() error {
	p.pool.Close()
	return nil
}
