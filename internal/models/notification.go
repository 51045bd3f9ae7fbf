package models

import "time"

// Notification представляет уведомление о событии торгового ядра
type Notification struct {
	Timestamp time.Time              `json:"timestamp"`
	Type      string                 `json:"type"`
	Severity  string                 `json:"severity"`
	Message   string                 `json:"message"`
	Meta      map[string]interface{} `json:"meta,omitempty"` // дополнительные данные
}

// Типы уведомлений
const (
	NotificationTypeTrade      = "TRADE"       // завершённая сделка
	NotificationTypeBalance    = "BALANCE"     // недостаток средств на одной из бирж
	NotificationTypeGateway    = "GATEWAY"     // ошибка API биржи
	NotificationTypeVerifyFail = "VERIFY_FAIL" // нога не подтвердилась за отведённые попытки
	NotificationTypeSlippage   = "SLIPPAGE"    // превышение допустимого проскальзывания
	NotificationTypeHalt       = "HALT"        // торговля остановлена риск-контролем
	NotificationTypeRebalance  = "REBALANCE"   // перевод средств между биржами
)

// Уровни важности
const (
	SeverityInfo  = "info"
	SeverityWarn  = "warn"
	SeverityError = "error"
)
