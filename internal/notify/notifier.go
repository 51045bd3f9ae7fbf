// Package notify доставляет уведомления оператору по email и Telegram.
package notify

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"crossarb/internal/models"
)

// Channel - один канал доставки уведомлений
type Channel interface {
	Name() string
	Send(n models.Notification) error
}

// Notifier рассылает уведомления по всем каналам асинхронно
//
// Доставка не должна задерживать торговый цикл: уведомления уходят
// в фоновых горутинах, ошибка одного канала не мешает остальным и
// только логируется.
type Notifier struct {
	channels []Channel
	logger   *zap.Logger
	wg       sync.WaitGroup
}

// NewNotifier создает notifier с заданными каналами
// Пустой список каналов допустим: уведомления только логируются
func NewNotifier(channels []Channel, logger *zap.Logger) *Notifier {
	return &Notifier{
		channels: channels,
		logger:   logger,
	}
}

// Alert отправляет уведомление по всем каналам
func (nt *Notifier) Alert(n models.Notification) {
	if n.Timestamp.IsZero() {
		n.Timestamp = time.Now()
	}

	nt.logger.Info("Уведомление",
		zap.String("type", n.Type),
		zap.String("severity", n.Severity),
		zap.String("message", n.Message))

	for _, ch := range nt.channels {
		nt.wg.Add(1)
		go func(c Channel) {
			defer nt.wg.Done()
			if err := c.Send(n); err != nil {
				nt.logger.Warn("Не удалось доставить уведомление",
					zap.String("channel", c.Name()),
					zap.Error(err))
			}
		}(ch)
	}
}

// ReportTrade формирует и отправляет отчёт о завершённой сделке
func (nt *Notifier) ReportTrade(outcome *models.TradeOutcome) {
	msg := fmt.Sprintf(
		"Trade #%d: sold %.8f @ %.2f on %s, bought @ %.2f on %s; spread %.2f, slippage %.2f, profit %.8f",
		outcome.ID,
		outcome.Quantity,
		outcome.SellLeg.FilledPrice, outcome.SellLeg.Venue,
		outcome.BuyLeg.FilledPrice, outcome.BuyLeg.Venue,
		outcome.RealizedSpread,
		outcome.Slippage,
		outcome.Profit)

	nt.Alert(models.Notification{
		Timestamp: outcome.ExecutedAt,
		Type:      models.NotificationTypeTrade,
		Severity:  models.SeverityInfo,
		Message:   msg,
		Meta: map[string]interface{}{
			"trade_id": outcome.ID,
			"profit":   outcome.Profit,
		},
	})
}

// Close дожидается доставки всех отправленных уведомлений
func (nt *Notifier) Close() {
	nt.wg.Wait()
}
