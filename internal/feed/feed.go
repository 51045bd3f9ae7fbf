// Package feed реализует WebSocket источники рыночных цен.
//
// Каждый источник держит собственное соединение с биржей и публикует
// тики в общий канал. Обрыв соединения или некорректное сообщение не
// останавливают поток: источник переподключается и продолжает работу,
// пока не отменён контекст.
package feed

import (
	"context"
	"time"
)

// Tick - одно обновление цены от биржи
type Tick struct {
	Venue string    // идентификатор биржи
	Price float64   // последняя цена сделки
	At    time.Time // момент получения тика
}

// Source - источник тиков одной биржи
type Source interface {
	// Venue возвращает идентификатор биржи
	Venue() string

	// Run ведёт поток тиков до отмены контекста.
	// Блокирующий вызов; ошибки соединения обрабатываются внутри
	// через переподключение.
	Run(ctx context.Context, out chan<- Tick)
}

// Параметры переподключения WebSocket
const (
	reconnectDelay    = 1 * time.Second
	maxReconnectDelay = 30 * time.Second
	handshakeTimeout  = 10 * time.Second
	readTimeout       = 60 * time.Second
)

// nextDelay удваивает задержку переподключения до максимума
func nextDelay(current time.Duration) time.Duration {
	next := current * 2
	if next > maxReconnectDelay {
		return maxReconnectDelay
	}
	return next
}

// sleepCtx ждёт d или отмены контекста
func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
