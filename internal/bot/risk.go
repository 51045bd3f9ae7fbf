package bot

import (
	"sync"
	"time"
)

// RiskGuard ограничивает частоту сделок и совокупный убыток
//
// Cooldown защищает от серии входов по одной и той же рыночной
// ситуации. MaxLoss - аварийный стоп: при достижении совокупного
// убытка торговля останавливается до ручного перезапуска.
type RiskGuard struct {
	cooldown time.Duration
	maxLoss  float64

	mu        sync.Mutex
	lastTrade time.Time
	totalPnL  float64
	halted    bool
}

// NewRiskGuard создает риск-контроль
// maxLoss задаётся положительным числом (предел убытка)
func NewRiskGuard(cooldown time.Duration, maxLoss float64) *RiskGuard {
	return &RiskGuard{
		cooldown: cooldown,
		maxLoss:  maxLoss,
	}
}

// Allow проверяет, разрешена ли новая сделка в момент now
func (rg *RiskGuard) Allow(now time.Time) bool {
	rg.mu.Lock()
	defer rg.mu.Unlock()

	if rg.halted {
		return false
	}

	if !rg.lastTrade.IsZero() && now.Sub(rg.lastTrade) < rg.cooldown {
		return false
	}

	return true
}

// RecordTrade учитывает завершённую сделку
// Возвращает true, если торговля остановлена этой сделкой
func (rg *RiskGuard) RecordTrade(now time.Time, profit float64) bool {
	rg.mu.Lock()
	defer rg.mu.Unlock()

	rg.lastTrade = now
	rg.totalPnL += profit

	if rg.maxLoss > 0 && rg.totalPnL <= -rg.maxLoss {
		rg.halted = true
	}

	return rg.halted
}

// RecordAttempt учитывает неудавшуюся попытку сделки
// Cooldown действует и на неё: биржа могла отклонить ордер из-за
// рыночной ситуации, которая не изменится за миллисекунды
func (rg *RiskGuard) RecordAttempt(now time.Time) {
	rg.mu.Lock()
	rg.lastTrade = now
	rg.mu.Unlock()
}

// Halted возвращает true, если торговля остановлена
func (rg *RiskGuard) Halted() bool {
	rg.mu.Lock()
	defer rg.mu.Unlock()
	return rg.halted
}

// TotalPnL возвращает накопленный результат
func (rg *RiskGuard) TotalPnL() float64 {
	rg.mu.Lock()
	defer rg.mu.Unlock()
	return rg.totalPnL
}

// Reset снимает остановку и обнуляет накопленный результат
func (rg *RiskGuard) Reset() {
	rg.mu.Lock()
	rg.halted = false
	rg.totalPnL = 0
	rg.lastTrade = time.Time{}
	rg.mu.Unlock()
}
