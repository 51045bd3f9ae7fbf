// Package models содержит общие типы данных торгового ядра.
package models

import "time"

// Стороны сделки
const (
	SideSell = "sell"
	SideBuy  = "buy"
)

// Статусы ноги сделки
const (
	LegStatusPending = "pending" // ордер размещён, исполнение не подтверждено
	LegStatusFilled  = "filled"  // исполнение подтверждено биржей
	LegStatusFailed  = "failed"  // размещение или верификация не удались
)

// LegResult - результат одной ноги арбитражной сделки
type LegResult struct {
	Venue       string  `json:"venue"`        // биржа, на которой размещена нога
	Side        string  `json:"side"`         // sell или buy
	OrderID     string  `json:"order_id"`     // ID ордера на бирже (пустой, если размещение не удалось)
	FilledPrice float64 `json:"filled_price"` // фактическая цена исполнения
	Status      string  `json:"status"`
}

// TradeOutcome - итог завершённой арбитражной сделки
//
// RealizedSpread считается по фактическим ценам исполнения обеих ног,
// Slippage - как отклонение реализованного спреда от порога входа.
type TradeOutcome struct {
	ID             int64     `json:"id"`
	SellLeg        LegResult `json:"sell_leg"`
	BuyLeg         LegResult `json:"buy_leg"`
	RealizedSpread float64   `json:"realized_spread"`
	Slippage       float64   `json:"slippage"`
	Quantity       float64   `json:"quantity"`
	Profit         float64   `json:"profit"` // RealizedSpread * Quantity
	ExecutedAt     time.Time `json:"executed_at"`
}
