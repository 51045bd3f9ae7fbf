// Package repository реализует журнал сделок поверх PostgreSQL.
package repository

import (
	"context"
	"database/sql"
	"fmt"

	"crossarb/internal/models"
)

// OutcomeRepository хранит итоги сделок в таблице trade_outcomes
type OutcomeRepository struct {
	db *sql.DB
}

// NewOutcomeRepository создает репозиторий журнала сделок
func NewOutcomeRepository(db *sql.DB) *OutcomeRepository {
	return &OutcomeRepository{db: db}
}

// Record сохраняет итог сделки
// ID, присвоенный базой, записывается обратно в outcome
func (r *OutcomeRepository) Record(ctx context.Context, outcome *models.TradeOutcome) error {
	query := `
		INSERT INTO trade_outcomes (
			sell_venue, sell_order_id, sell_price, sell_status,
			buy_venue, buy_order_id, buy_price, buy_status,
			realized_spread, slippage, quantity, profit, executed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id`

	err := r.db.QueryRowContext(ctx, query,
		outcome.SellLeg.Venue, outcome.SellLeg.OrderID, outcome.SellLeg.FilledPrice, outcome.SellLeg.Status,
		outcome.BuyLeg.Venue, outcome.BuyLeg.OrderID, outcome.BuyLeg.FilledPrice, outcome.BuyLeg.Status,
		outcome.RealizedSpread, outcome.Slippage, outcome.Quantity, outcome.Profit, outcome.ExecutedAt,
	).Scan(&outcome.ID)

	if err != nil {
		return fmt.Errorf("failed to record trade outcome: %w", err)
	}

	return nil
}

// GetRecent возвращает последние сделки, новые первыми
func (r *OutcomeRepository) GetRecent(ctx context.Context, limit int) ([]*models.TradeOutcome, error) {
	query := `
		SELECT id,
		       sell_venue, sell_order_id, sell_price, sell_status,
		       buy_venue, buy_order_id, buy_price, buy_status,
		       realized_spread, slippage, quantity, profit, executed_at
		FROM trade_outcomes
		ORDER BY executed_at DESC
		LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query trade outcomes: %w", err)
	}
	defer rows.Close()

	var outcomes []*models.TradeOutcome
	for rows.Next() {
		o := &models.TradeOutcome{}
		err := rows.Scan(&o.ID,
			&o.SellLeg.Venue, &o.SellLeg.OrderID, &o.SellLeg.FilledPrice, &o.SellLeg.Status,
			&o.BuyLeg.Venue, &o.BuyLeg.OrderID, &o.BuyLeg.FilledPrice, &o.BuyLeg.Status,
			&o.RealizedSpread, &o.Slippage, &o.Quantity, &o.Profit, &o.ExecutedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trade outcome: %w", err)
		}

		o.SellLeg.Side = models.SideSell
		o.BuyLeg.Side = models.SideBuy
		outcomes = append(outcomes, o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return outcomes, nil
}

// TotalProfit возвращает суммарную прибыль по журналу
func (r *OutcomeRepository) TotalProfit(ctx context.Context) (float64, error) {
	var total sql.NullFloat64

	query := `SELECT SUM(profit) FROM trade_outcomes`
	if err := r.db.QueryRowContext(ctx, query).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to sum profit: %w", err)
	}

	return total.Float64, nil
}

// EnsureSchema создает таблицу журнала, если её нет
// Вызывается один раз при старте
func (r *OutcomeRepository) EnsureSchema(ctx context.Context) error {
	schema := `
		CREATE TABLE IF NOT EXISTS trade_outcomes (
			id              BIGSERIAL PRIMARY KEY,
			sell_venue      TEXT NOT NULL,
			sell_order_id   TEXT NOT NULL,
			sell_price      DOUBLE PRECISION NOT NULL,
			sell_status     TEXT NOT NULL,
			buy_venue       TEXT NOT NULL,
			buy_order_id    TEXT NOT NULL,
			buy_price       DOUBLE PRECISION NOT NULL,
			buy_status      TEXT NOT NULL,
			realized_spread DOUBLE PRECISION NOT NULL,
			slippage        DOUBLE PRECISION NOT NULL,
			quantity        DOUBLE PRECISION NOT NULL,
			profit          DOUBLE PRECISION NOT NULL,
			executed_at     TIMESTAMPTZ NOT NULL
		)`

	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}

	return nil
}
