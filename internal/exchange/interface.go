// Package exchange предоставляет унифицированный интерфейс для работы с биржами.
package exchange

import "context"

// Gateway определяет минимальный набор операций биржи, необходимый
// торговому ядру: балансы, лучшая цена, размещение рыночного ордера
// и опрос его статуса. Транспортные детали (подпись запросов, rate
// limiting, пулы соединений) скрыты за реализациями.
type Gateway interface {
	// Name возвращает идентификатор биржи
	Name() string

	// Connect сохраняет учётные данные и проверяет доступность API
	Connect(ctx context.Context, apiKey, secret, passphrase string) error

	// GetBalance возвращает доступный остаток по активу
	GetBalance(ctx context.Context, asset string) (float64, error)

	// GetBestAsk возвращает лучшую цену продажи (для оценки стоимости покупки)
	GetBestAsk(ctx context.Context, symbol string) (float64, error)

	// PlaceMarketOrder размещает рыночный ордер и возвращает его ID
	PlaceMarketOrder(ctx context.Context, symbol, side string, qty float64) (string, error)

	// GetOrderStatus возвращает текущий статус ордера
	GetOrderStatus(ctx context.Context, symbol, orderID string) (*OrderStatus, error)

	// Close закрывает соединения с биржей
	Close() error
}

// OrderStatus содержит состояние ордера на бирже
type OrderStatus struct {
	ID          string  `json:"id"`
	Status      string  `json:"status"`
	FilledPrice float64 `json:"filled_price"` // средняя цена исполнения
	FilledQty   float64 `json:"filled_qty"`
}

// GatewayError представляет ошибку от биржи
type GatewayError struct {
	Venue    string
	Code     string
	Message  string
	Original error
}

func (e *GatewayError) Error() string {
	return e.Venue + ": " + e.Message
}

// Unwrap возвращает оригинальную ошибку для поддержки errors.Is() и errors.As()
func (e *GatewayError) Unwrap() error {
	return e.Original
}

// Side constants for orders
const (
	SideBuy  = "buy"
	SideSell = "sell"
)

// Order status constants
const (
	OrderStatusPending   = "pending" // размещён, исполнение не завершено
	OrderStatusFilled    = "filled"
	OrderStatusCancelled = "cancelled"
	OrderStatusRejected  = "rejected"
)

// Venue identifiers
const (
	VenueBinance = "binance"
	VenueOKX     = "okx"
)
