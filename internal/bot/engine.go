package bot

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"crossarb/internal/feed"
	"crossarb/internal/models"
)

// Engine связывает поток тиков, детектор спреда и исполнитель сделок
//
// На каждый тик: обновление цен, снимок, проверка детектором. Найденная
// возможность исполняется в отдельной горутине; пока сделка в работе,
// новые возможности отбрасываются, а не ставятся в очередь. Цены
// возможности актуальны только в момент обнаружения, исполнять её
// после завершения текущей сделки бессмысленно.
type Engine struct {
	prices   *PriceBook
	detector *SpreadDetector
	executor *TradeExecutor
	risk     *RiskGuard
	alerter  Alerter
	clock    Clock
	logger   *zap.Logger

	wg sync.WaitGroup
}

// NewEngine создает торговый движок
func NewEngine(prices *PriceBook, detector *SpreadDetector, executor *TradeExecutor, risk *RiskGuard, alerter Alerter, logger *zap.Logger) *Engine {
	return &Engine{
		prices:   prices,
		detector: detector,
		executor: executor,
		risk:     risk,
		alerter:  alerter,
		clock:    realClock{},
		logger:   logger,
	}
}

// SetClock подменяет часы (используется в тестах)
func (e *Engine) SetClock(c Clock) {
	e.clock = c
}

// Run обрабатывает тики до закрытия канала или отмены контекста
//
// Блокирующий вызов. Перед возвратом дожидается завершения активной
// сделки: прерывать её на полпути нельзя.
func (e *Engine) Run(ctx context.Context, ticks <-chan feed.Tick) {
	defer e.wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return
		case tick, ok := <-ticks:
			if !ok {
				return
			}
			e.onTick(ctx, tick)
		}
	}
}

// onTick обрабатывает одно обновление цены
func (e *Engine) onTick(ctx context.Context, tick feed.Tick) {
	e.prices.Update(tick.Venue, tick.Price, tick.At)
	RecordTick(tick.Venue)

	snapshot := e.prices.Snapshot()
	opp := e.detector.Check(snapshot, e.clock.Now())
	if opp == nil {
		return
	}

	SpreadCurrent.Set(opp.Spread)
	OpportunitiesTotal.Inc()

	// Одна сделка за раз. Захват до проверки риска: занятый исполнитель
	// сам по себе причина отбросить возможность
	if !e.executor.TryAcquire() {
		RecordOpportunityDropped("busy")
		e.logger.Debug("Возможность отброшена: сделка в работе",
			zap.Float64("spread", opp.Spread))
		return
	}

	if !e.risk.Allow(e.clock.Now()) {
		e.executor.Release()
		reason := "cooldown"
		if e.risk.Halted() {
			reason = "halted"
		}
		RecordOpportunityDropped(reason)
		e.logger.Debug("Возможность отброшена риск-контролем",
			zap.Float64("spread", opp.Spread),
			zap.String("reason", reason))
		return
	}

	e.logger.Info("Обнаружена возможность",
		zap.String("sell_venue", opp.SellVenue),
		zap.String("buy_venue", opp.BuyVenue),
		zap.Float64("spread", opp.Spread))

	// Сделка исполняется вне контекста цикла тиков: отмена при shutdown
	// не должна обрывать её между ногами. Run дожидается завершения через wg
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer e.executor.Release()
		e.execute(context.WithoutCancel(ctx), opp)
	}()
}

// execute проводит сделку и учитывает её результат в риск-контроле
func (e *Engine) execute(ctx context.Context, opp *Opportunity) {
	outcome, err := e.executor.Execute(ctx, opp)
	now := e.clock.Now()

	if err != nil {
		e.risk.RecordAttempt(now)
		return
	}

	if halted := e.risk.RecordTrade(now, outcome.Profit); halted {
		e.logger.Error("Торговля остановлена: достигнут предел убытка",
			zap.Float64("total_pnl", e.risk.TotalPnL()))

		e.alerter.Alert(models.Notification{
			Timestamp: now,
			Type:      models.NotificationTypeHalt,
			Severity:  models.SeverityError,
			Message:   fmt.Sprintf("trading halted: cumulative PnL %.2f reached loss limit", e.risk.TotalPnL()),
			Meta: map[string]interface{}{
				"total_pnl": e.risk.TotalPnL(),
			},
		})
	}
}
