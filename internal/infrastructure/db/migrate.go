package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Migrate creates the holdings table. Enriched holdings are never stored.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`create table if not exists holdings (
			id text primary key,
			user_id text not null,
			coin_id text not null check (coin_id = lower(coin_id) and coin_id <> ''),
			quantity double precision not null check (quantity > 0),
			buy_price double precision not null check (buy_price > 0),
			added_at timestamptz not null default now()
		);`,
		`create index if not exists holdings_user_added_idx on holdings(user_id, added_at);`,
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
