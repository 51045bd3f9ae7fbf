package bot

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"crossarb/internal/exchange"
	"crossarb/internal/models"
	"crossarb/pkg/retry"
	"crossarb/pkg/utils"
)

// ============================================================================
// Вспомогательные интерфейсы и ошибки
// ============================================================================

// Alerter доставляет уведомления о событиях сделки
type Alerter interface {
	Alert(n models.Notification)
	ReportTrade(outcome *models.TradeOutcome)
}

// Journal записывает итоги сделок в долговременное хранилище
type Journal interface {
	Record(ctx context.Context, outcome *models.TradeOutcome) error
}

// Clock абстрагирует время для тестируемости retry-циклов
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

// realClock - системные часы
type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// InsufficientBalanceError - на бирже не хватает средств для ноги сделки
type InsufficientBalanceError struct {
	Venue     string
	Asset     string
	Required  float64
	Available float64
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance on %s: need %.8f %s, have %.8f",
		e.Venue, e.Required, e.Asset, e.Available)
}

// VerificationError - ордер не подтвердился за отведённые попытки
type VerificationError struct {
	Venue    string
	Side     string
	OrderID  string
	Attempts int
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("order %s (%s %s) not confirmed after %d attempts",
		e.OrderID, e.Side, e.Venue, e.Attempts)
}

// ============================================================================
// Конфигурация и конструктор
// ============================================================================

// ExecutorConfig - параметры исполнителя сделок
type ExecutorConfig struct {
	Symbol     string
	BaseAsset  string
	QuoteAsset string

	Quantity        float64
	SpreadThreshold float64
	MaxSlippage     float64

	VerifyAttempts int
	VerifyDelay    time.Duration
	OrderTimeout   time.Duration
}

// TradeExecutor проводит двухстороннюю арбитражную сделку
//
// Ноги размещаются последовательно: сначала продажа на дорогой бирже,
// после её подтверждения - покупка на дешёвой. Хеджирование зависшей
// ноги не выполняется: при сбое второй ноги сделка фиксируется как
// прерванная с фактическими статусами обеих ног, решение остаётся
// за оператором.
type TradeExecutor struct {
	cfg      ExecutorConfig
	gateways map[string]exchange.Gateway
	alerter  Alerter
	journal  Journal // может быть nil
	clock    Clock
	logger   *zap.Logger

	state State
	busy  int32 // 0 - свободен, 1 - сделка в работе

	tradeSeq int64 // счётчик сделок для ID
}

// NewTradeExecutor создает исполнитель сделок
func NewTradeExecutor(cfg ExecutorConfig, gateways map[string]exchange.Gateway, alerter Alerter, journal Journal, logger *zap.Logger) *TradeExecutor {
	return &TradeExecutor{
		cfg:      cfg,
		gateways: gateways,
		alerter:  alerter,
		journal:  journal,
		clock:    realClock{},
		logger:   logger,
		state:    StateIdle,
	}
}

// SetClock подменяет часы (используется в тестах)
func (te *TradeExecutor) SetClock(c Clock) {
	te.clock = c
}

// ============================================================================
// Занятость исполнителя
// ============================================================================

// TryAcquire атомарно захватывает исполнитель для одной сделки
// Возвращает false, если сделка уже в работе
func (te *TradeExecutor) TryAcquire() bool {
	if atomic.CompareAndSwapInt32(&te.busy, 0, 1) {
		ExecutionInFlight.Set(1)
		return true
	}
	return false
}

// Release освобождает исполнитель
func (te *TradeExecutor) Release() {
	ExecutionInFlight.Set(0)
	atomic.StoreInt32(&te.busy, 0)
}

// IsBusy возвращает true, если сделка в работе
func (te *TradeExecutor) IsBusy() bool {
	return atomic.LoadInt32(&te.busy) == 1
}

// State возвращает текущее состояние исполнителя
func (te *TradeExecutor) State() State {
	return te.state
}

// setState выполняет переход состояния с проверкой допустимости
func (te *TradeExecutor) setState(to State) {
	if !CanTransition(te.state, to) {
		// Недопустимый переход - ошибка программирования, фиксируем громко
		te.logger.Error("Недопустимый переход состояния",
			zap.String("from", te.state.String()),
			zap.String("to", to.String()))
	}
	te.logger.Debug("Переход состояния",
		zap.String("from", te.state.String()),
		zap.String("to", to.String()))
	te.state = to
}

// ============================================================================
// Исполнение сделки
// ============================================================================

// Execute проводит сделку по обнаруженной возможности
//
// Вызывающий обязан предварительно захватить исполнитель через
// TryAcquire и освободить его после возврата. Возвращает итог сделки
// и ошибку, из-за которой сделка была прервана (nil при успехе).
func (te *TradeExecutor) Execute(ctx context.Context, opp *Opportunity) (*models.TradeOutcome, error) {
	started := te.clock.Now()
	tradeID := atomic.AddInt64(&te.tradeSeq, 1)

	log := te.logger.With(
		zap.Int64("trade_id", tradeID),
		zap.String("sell_venue", opp.SellVenue),
		zap.String("buy_venue", opp.BuyVenue),
		zap.Float64("spread", opp.Spread))

	log.Info("Начало сделки",
		zap.Float64("sell_price", opp.SellPrice),
		zap.Float64("buy_price", opp.BuyPrice),
		zap.Float64("quantity", te.cfg.Quantity))

	outcome := &models.TradeOutcome{
		ID:       tradeID,
		Quantity: te.cfg.Quantity,
		SellLeg: models.LegResult{
			Venue:  opp.SellVenue,
			Side:   models.SideSell,
			Status: models.LegStatusPending,
		},
		BuyLeg: models.LegResult{
			Venue:  opp.BuyVenue,
			Side:   models.SideBuy,
			Status: models.LegStatusPending,
		},
		ExecutedAt: started,
	}

	err := te.run(ctx, opp, outcome, log)

	elapsed := te.clock.Now().Sub(started).Seconds()
	if err != nil {
		te.setState(StateAborted)
		te.setState(StateIdle)
		RecordTradeAborted(elapsed)

		log.Warn("Сделка прервана", zap.Error(err))
		return outcome, err
	}

	te.setState(StateCompleted)
	te.setState(StateIdle)
	RecordTradeCompleted(outcome.Profit, outcome.Slippage, elapsed)

	log.Info("Сделка завершена",
		zap.Float64("realized_spread", outcome.RealizedSpread),
		zap.Float64("slippage", outcome.Slippage),
		zap.Float64("profit", outcome.Profit))

	return outcome, nil
}

// run ведёт сделку через все стадии до первой ошибки
func (te *TradeExecutor) run(ctx context.Context, opp *Opportunity, outcome *models.TradeOutcome, log *zap.Logger) error {
	// --- Preflight: проверка балансов ---
	te.setState(StatePreflightChecking)

	if err := te.preflight(ctx, opp); err != nil {
		outcome.SellLeg.Status = models.LegStatusFailed
		outcome.BuyLeg.Status = models.LegStatusFailed
		te.alertPreflight(err)
		return err
	}

	// --- Размещение и подтверждение ног: сначала продажа, потом покупка ---
	te.setState(StateLegsPlacing)

	sellGW := te.gateways[opp.SellVenue]
	sellID, err := te.placeOrder(ctx, sellGW, models.SideSell)
	if err != nil {
		outcome.SellLeg.Status = models.LegStatusFailed
		outcome.BuyLeg.Status = models.LegStatusFailed
		te.alertGateway(opp.SellVenue, models.SideSell, err)
		return err
	}
	outcome.SellLeg.OrderID = sellID

	te.setState(StateLegsVerifying)

	sellStatus, err := te.verifyOrder(ctx, sellGW, models.SideSell, sellID, log)
	if err != nil {
		outcome.SellLeg.Status = models.LegStatusFailed
		outcome.BuyLeg.Status = models.LegStatusFailed
		te.alertVerifyFail(opp.SellVenue, models.SideSell, sellID, err)
		return err
	}
	outcome.SellLeg.Status = models.LegStatusFilled
	outcome.SellLeg.FilledPrice = sellStatus.FilledPrice

	// Вторая нога. Продажа уже исполнена: её статус не откатывается
	te.setState(StateLegsPlacing)

	buyGW := te.gateways[opp.BuyVenue]
	buyID, err := te.placeOrder(ctx, buyGW, models.SideBuy)
	if err != nil {
		outcome.BuyLeg.Status = models.LegStatusFailed
		te.alertGateway(opp.BuyVenue, models.SideBuy, err)
		return err
	}
	outcome.BuyLeg.OrderID = buyID

	te.setState(StateLegsVerifying)

	buyStatus, err := te.verifyOrder(ctx, buyGW, models.SideBuy, buyID, log)
	if err != nil {
		outcome.BuyLeg.Status = models.LegStatusFailed
		te.alertVerifyFail(opp.BuyVenue, models.SideBuy, buyID, err)
		return err
	}
	outcome.BuyLeg.Status = models.LegStatusFilled
	outcome.BuyLeg.FilledPrice = buyStatus.FilledPrice

	// --- Сверка итогов ---
	te.setState(StateReconciling)
	te.reconcile(ctx, outcome, log)

	return nil
}

// preflight проверяет достаточность средств на обеих биржах
//
// Для продажи нужен базовый актив, для покупки - котируемый в объёме
// qty * актуальный best ask биржи покупки. Цена из возможности не
// используется: к моменту входа она могла устареть.
func (te *TradeExecutor) preflight(ctx context.Context, opp *Opportunity) error {
	sellGW := te.gateways[opp.SellVenue]
	buyGW := te.gateways[opp.BuyVenue]

	baseBal, err := sellGW.GetBalance(ctx, te.cfg.BaseAsset)
	if err != nil {
		return fmt.Errorf("preflight %s: %w", opp.SellVenue, err)
	}
	if baseBal < te.cfg.Quantity {
		return &InsufficientBalanceError{
			Venue:     opp.SellVenue,
			Asset:     te.cfg.BaseAsset,
			Required:  te.cfg.Quantity,
			Available: baseBal,
		}
	}

	quoteBal, err := buyGW.GetBalance(ctx, te.cfg.QuoteAsset)
	if err != nil {
		return fmt.Errorf("preflight %s: %w", opp.BuyVenue, err)
	}

	ask, err := buyGW.GetBestAsk(ctx, te.cfg.Symbol)
	if err != nil {
		return fmt.Errorf("preflight %s: %w", opp.BuyVenue, err)
	}

	quoteNeeded := te.cfg.Quantity * ask
	if quoteBal < quoteNeeded {
		return &InsufficientBalanceError{
			Venue:     opp.BuyVenue,
			Asset:     te.cfg.QuoteAsset,
			Required:  quoteNeeded,
			Available: quoteBal,
		}
	}

	return nil
}

// placeOrder размещает рыночный ордер с таймаутом на запрос
func (te *TradeExecutor) placeOrder(ctx context.Context, gw exchange.Gateway, side string) (string, error) {
	orderCtx, cancel := context.WithTimeout(ctx, te.cfg.OrderTimeout)
	defer cancel()

	return gw.PlaceMarketOrder(orderCtx, te.cfg.Symbol, side, te.cfg.Quantity)
}

// verifyOrder опрашивает статус ордера до подтверждения исполнения
//
// Количество попыток и пауза между ними ограничены конфигурацией,
// поэтому общее время ожидания предсказуемо. Ордер в статусе
// cancelled/rejected считается неудачей немедленно.
func (te *TradeExecutor) verifyOrder(ctx context.Context, gw exchange.Gateway, side, orderID string, log *zap.Logger) (*exchange.OrderStatus, error) {
	var final *exchange.OrderStatus

	err := retry.Do(ctx, func() error {
		stCtx, cancel := context.WithTimeout(ctx, te.cfg.OrderTimeout)
		st, err := gw.GetOrderStatus(stCtx, te.cfg.Symbol, orderID)
		cancel()

		if err != nil {
			return err
		}

		switch st.Status {
		case exchange.OrderStatusFilled:
			final = st
			return nil
		case exchange.OrderStatusCancelled, exchange.OrderStatusRejected:
			final = st
			return nil
		default:
			return &VerificationError{
				Venue:    gw.Name(),
				Side:     side,
				OrderID:  orderID,
				Attempts: te.cfg.VerifyAttempts,
			}
		}
	}, retry.Config{
		Attempts: te.cfg.VerifyAttempts,
		Delay:    te.cfg.VerifyDelay,
		Sleep:    te.clock.Sleep,
		OnRetry: func(attempt int, err error) {
			log.Debug("Ордер не подтверждён, повторный опрос",
				zap.String("order_id", orderID),
				zap.Int("attempt", attempt))
		},
	})

	if err != nil {
		return nil, err
	}

	if final.Status != exchange.OrderStatusFilled {
		return nil, fmt.Errorf("order %s on %s ended as %s", orderID, gw.Name(), final.Status)
	}

	return final, nil
}

// reconcile считает итоги сделки и фиксирует их
func (te *TradeExecutor) reconcile(ctx context.Context, outcome *models.TradeOutcome, log *zap.Logger) {
	outcome.RealizedSpread = outcome.SellLeg.FilledPrice - outcome.BuyLeg.FilledPrice
	outcome.Slippage = outcome.RealizedSpread - te.cfg.SpreadThreshold
	outcome.Profit = utils.RoundTo(outcome.RealizedSpread*outcome.Quantity, 8)

	if utils.Abs(outcome.Slippage) > te.cfg.MaxSlippage {
		te.alerter.Alert(models.Notification{
			Timestamp: te.clock.Now(),
			Type:      models.NotificationTypeSlippage,
			Severity:  models.SeverityWarn,
			Message: fmt.Sprintf("slippage %.2f exceeds limit %.2f",
				outcome.Slippage, te.cfg.MaxSlippage),
			Meta: map[string]interface{}{
				"realized_spread": outcome.RealizedSpread,
				"slippage":        outcome.Slippage,
			},
		})
	}

	te.alerter.ReportTrade(outcome)

	if te.journal != nil {
		if err := te.journal.Record(ctx, outcome); err != nil {
			// Журнал не критичен для торговли, сделка уже завершена
			log.Error("Не удалось записать сделку в журнал", zap.Error(err))
		}
	}
}

// ============================================================================
// Уведомления об ошибках
// ============================================================================

func (te *TradeExecutor) alertPreflight(err error) {
	n := models.Notification{
		Timestamp: te.clock.Now(),
		Severity:  models.SeverityWarn,
		Message:   err.Error(),
	}

	var balErr *InsufficientBalanceError
	if errors.As(err, &balErr) {
		n.Type = models.NotificationTypeBalance
	} else {
		n.Type = models.NotificationTypeGateway
		n.Severity = models.SeverityError
	}

	te.alerter.Alert(n)
}

func (te *TradeExecutor) alertGateway(venue, side string, err error) {
	te.alerter.Alert(models.Notification{
		Timestamp: te.clock.Now(),
		Type:      models.NotificationTypeGateway,
		Severity:  models.SeverityError,
		Message:   fmt.Sprintf("%s leg on %s failed: %v", side, venue, err),
		Meta: map[string]interface{}{
			"venue": venue,
			"side":  side,
		},
	})
}

func (te *TradeExecutor) alertVerifyFail(venue, side, orderID string, err error) {
	te.alerter.Alert(models.Notification{
		Timestamp: te.clock.Now(),
		Type:      models.NotificationTypeVerifyFail,
		Severity:  models.SeverityError,
		Message:   fmt.Sprintf("%s leg on %s (order %s) not confirmed: %v", side, venue, orderID, err),
		Meta: map[string]interface{}{
			"venue":    venue,
			"side":     side,
			"order_id": orderID,
		},
	})
}
