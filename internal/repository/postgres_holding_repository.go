package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"portfolio-backend/internal/domain"
	"portfolio-backend/internal/infrastructure/logging"
)

// HoldingsChannel is the Postgres notification channel carrying the user id
// whose holdings changed.
const HoldingsChannel = "holdings_changed"

// PostgresHoldingRepository stores holdings in Postgres and turns
// LISTEN/NOTIFY events into change notifications, so every instance sees
// mutations made through any other.
type PostgresHoldingRepository struct {
	pool   *pgxpool.Pool
	subs   *subscribers
	logger *logging.Logger
}

func NewPostgresHoldingRepository(pool *pgxpool.Pool, logger *logging.Logger) *PostgresHoldingRepository {
	return &PostgresHoldingRepository{
		pool:   pool,
		subs:   newSubscribers(),
		logger: logger,
	}
}

func (r *PostgresHoldingRepository) ListHoldings(ctx context.Context, userID string) ([]domain.Holding, error) {
	rows, err := r.pool.Query(ctx, `
		select id, user_id, coin_id, quantity, buy_price, added_at
		from holdings
		where user_id = $1
		order by added_at, id
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	holdings := make([]domain.Holding, 0)
	for rows.Next() {
		var h domain.Holding
		if err := rows.Scan(&h.ID, &h.UserID, &h.CoinID, &h.Quantity, &h.BuyPrice, &h.AddedAt); err != nil {
			return nil, err
		}
		h.AddedAt = h.AddedAt.UTC()
		holdings = append(holdings, h)
	}
	return holdings, rows.Err()
}

func (r *PostgresHoldingRepository) AddHolding(ctx context.Context, h domain.Holding) (domain.Holding, error) {
	if h.ID == "" {
		h.ID = uuid.NewString()
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return domain.Holding{}, err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		insert into holdings(id, user_id, coin_id, quantity, buy_price, added_at)
		values ($1,$2,$3,$4,$5,$6)
	`, h.ID, h.UserID, h.CoinID, h.Quantity, h.BuyPrice, h.AddedAt); err != nil {
		return domain.Holding{}, err
	}
	if _, err := tx.Exec(ctx, `select pg_notify($1, $2)`, HoldingsChannel, h.UserID); err != nil {
		return domain.Holding{}, err
	}
	return h, tx.Commit(ctx)
}

func (r *PostgresHoldingRepository) DeleteHolding(ctx context.Context, userID, id string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `delete from holdings where id = $1 and user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrHoldingNotFound
	}
	if _, err := tx.Exec(ctx, `select pg_notify($1, $2)`, HoldingsChannel, userID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Subscribe only receives events while Listen is running.
func (r *PostgresHoldingRepository) Subscribe(ctx context.Context, userID string, fn func()) (func(), error) {
	return r.subs.add(ctx, userID, fn), nil
}

// Listen holds one pooled connection on LISTEN and dispatches notifications
// to subscribers until ctx is done, reconnecting after failures.
func (r *PostgresHoldingRepository) Listen(ctx context.Context) {
	const retryDelay = 5 * time.Second
	for {
		err := r.listenOnce(ctx)
		if ctx.Err() != nil {
			return
		}
		r.logger.Warn().Err(err).Dur("retry_in", retryDelay).Msg("holdings listener stopped")

		select {
		case <-ctx.Done():
			return
		case <-time.After(retryDelay):
		}
	}
}

func (r *PostgresHoldingRepository) listenOnce(ctx context.Context) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire listener connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "listen "+HoldingsChannel); err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	r.logger.Info().Str("channel", HoldingsChannel).Msg("listening for holdings changes")

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return err
		}
		if n.Payload == "" {
			r.logger.Warn().Msg("holdings notification without user id")
			continue
		}
		r.subs.notify(n.Payload)
	}
}

var _ domain.HoldingStore = (*PostgresHoldingRepository)(nil)
