package bot

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"crossarb/internal/exchange"
	"crossarb/internal/feed"
	"crossarb/internal/models"
)

type engineEnv struct {
	engine   *Engine
	executor *TradeExecutor
	sellGW   *fakeGateway
	buyGW    *fakeGateway
	alerter  *fakeAlerter
	risk     *RiskGuard
	clock    *fakeClock
}

func newEngineEnv(t *testing.T, cooldown time.Duration, maxLoss float64) *engineEnv {
	t.Helper()

	sellGW := newFakeGateway("binance", map[string]float64{"BTC": 1.0, "USDT": 10000}, 50100)
	buyGW := newFakeGateway("okx", map[string]float64{"BTC": 1.0, "USDT": 10000}, 50080)
	alerter := &fakeAlerter{}
	clock := newFakeClock()

	executor := NewTradeExecutor(executorConfig(), map[string]exchange.Gateway{
		"binance": sellGW,
		"okx":     buyGW,
	}, alerter, nil, zap.NewNop())
	executor.SetClock(clock)

	risk := NewRiskGuard(cooldown, maxLoss)

	engine := NewEngine(NewPriceBook(), NewSpreadDetector("binance", "okx", 10.0),
		executor, risk, alerter, zap.NewNop())
	engine.SetClock(clock)

	return &engineEnv{
		engine:   engine,
		executor: executor,
		sellGW:   sellGW,
		buyGW:    buyGW,
		alerter:  alerter,
		risk:     risk,
		clock:    clock,
	}
}

func tickOf(venue string, price float64) feed.Tick {
	return feed.Tick{Venue: venue, Price: price, At: time.Now()}
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal(msg)
}

func (e *engineEnv) reportCount() int {
	e.alerter.mu.Lock()
	defer e.alerter.mu.Unlock()
	return len(e.alerter.reports)
}

// Один тик без цены второй биржи возможности не даёт
func TestEngineNoOpportunityWithSingleVenue(t *testing.T) {
	env := newEngineEnv(t, 0, 100)

	env.engine.onTick(context.Background(), tickOf("binance", 50100))

	if env.executor.IsBusy() {
		t.Error("Сделка не должна начинаться без цен обеих бирж")
	}
	if env.reportCount() != 0 {
		t.Error("Отчётов быть не должно")
	}
}

func TestEngineExecutesOnOpportunity(t *testing.T) {
	env := newEngineEnv(t, 0, 100)
	ctx := context.Background()

	env.engine.onTick(ctx, tickOf("binance", 50100))
	env.engine.onTick(ctx, tickOf("okx", 50080))

	waitFor(t, func() bool { return env.reportCount() == 1 },
		"Сделка по обнаруженной возможности не завершилась")
}

// Пока сделка в работе, новые возможности отбрасываются, а не копятся
func TestEngineDropsOpportunityWhileBusy(t *testing.T) {
	env := newEngineEnv(t, 0, 100)
	ctx := context.Background()

	// Первая сделка зависает на размещении продажи
	placing := make(chan struct{})
	proceed := make(chan struct{})
	var once bool
	env.sellGW.placeHook = func() {
		if !once {
			once = true
			close(placing)
			<-proceed
		}
	}

	env.engine.onTick(ctx, tickOf("binance", 50100))
	env.engine.onTick(ctx, tickOf("okx", 50080))

	<-placing

	// Новые возможности на фоне активной сделки
	env.engine.onTick(ctx, tickOf("binance", 50150))
	env.engine.onTick(ctx, tickOf("okx", 50070))

	close(proceed)

	waitFor(t, func() bool { return !env.executor.IsBusy() },
		"Исполнитель не освободился")

	// Время на случай, если отброшенная возможность всё же запустила сделку
	time.Sleep(20 * time.Millisecond)

	if got := env.reportCount(); got != 1 {
		t.Errorf("Завершено сделок = %d, ожидалась 1 (остальные отброшены)", got)
	}
}

func TestEngineRespectsCooldown(t *testing.T) {
	env := newEngineEnv(t, 60*time.Second, 100)
	ctx := context.Background()

	droppedBefore := testutil.ToFloat64(OpportunitiesDropped.WithLabelValues("cooldown"))

	env.engine.onTick(ctx, tickOf("binance", 50100))
	env.engine.onTick(ctx, tickOf("okx", 50080))

	waitFor(t, func() bool { return env.reportCount() == 1 },
		"Первая сделка не завершилась")

	// Следующая возможность сразу после сделки: cooldown ещё действует
	env.engine.onTick(ctx, tickOf("binance", 50150))

	time.Sleep(20 * time.Millisecond)
	if got := env.reportCount(); got != 1 {
		t.Errorf("Завершено сделок = %d, cooldown должен был заблокировать вторую", got)
	}
	if env.executor.IsBusy() {
		t.Error("Исполнитель должен быть освобождён после отказа риск-контроля")
	}

	// Отказ риск-контроля учитывается в метрике с причиной
	droppedAfter := testutil.ToFloat64(OpportunitiesDropped.WithLabelValues("cooldown"))
	if droppedAfter-droppedBefore != 1 {
		t.Errorf("Отброшено по cooldown = %v, ожидалась 1", droppedAfter-droppedBefore)
	}
}

// Отмена контекста цикла тиков (shutdown) не обрывает начатую сделку:
// обе ноги доводятся до конца, отчёт отправляется
func TestEngineFinishesTradeAfterCancel(t *testing.T) {
	env := newEngineEnv(t, 0, 100)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Контекст отменяется в момент размещения первой ноги
	env.sellGW.placeHook = func() { cancel() }

	env.engine.onTick(ctx, tickOf("binance", 50100))
	env.engine.onTick(ctx, tickOf("okx", 50080))

	waitFor(t, func() bool { return env.reportCount() == 1 },
		"Сделка не завершилась после отмены контекста")

	env.alerter.mu.Lock()
	outcome := env.alerter.reports[0]
	env.alerter.mu.Unlock()

	if outcome.SellLeg.Status != models.LegStatusFilled || outcome.BuyLeg.Status != models.LegStatusFilled {
		t.Errorf("Ноги = %s/%s, обе должны быть filled",
			outcome.SellLeg.Status, outcome.BuyLeg.Status)
	}
}
