package bot

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Метрики Prometheus торгового ядра

var (
	// TicksTotal - количество принятых тиков по биржам
	TicksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "crossarb",
		Subsystem: "feed",
		Name:      "ticks_total",
		Help:      "Total number of price ticks received per venue",
	}, []string{"venue"})

	// OpportunitiesTotal - количество обнаруженных возможностей
	OpportunitiesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "crossarb",
		Subsystem: "detector",
		Name:      "opportunities_total",
		Help:      "Total number of spread opportunities detected",
	})

	// OpportunitiesDropped - отброшенные возможности по причинам:
	// busy (сделка в работе), cooldown, halted
	OpportunitiesDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "crossarb",
		Subsystem: "detector",
		Name:      "opportunities_dropped_total",
		Help:      "Opportunities dropped without execution by reason",
	}, []string{"reason"})

	// SpreadCurrent - текущий спред между биржами
	SpreadCurrent = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "crossarb",
		Subsystem: "detector",
		Name:      "spread_current",
		Help:      "Current price spread between venues in quote currency",
	})

	// TradesTotal - завершённые сделки по результату
	TradesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "crossarb",
		Subsystem: "executor",
		Name:      "trades_total",
		Help:      "Total number of trade executions by result",
	}, []string{"result"})

	// ExecutionInFlight - признак активной сделки (0 или 1)
	ExecutionInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "crossarb",
		Subsystem: "executor",
		Name:      "execution_in_flight",
		Help:      "Whether a trade execution is currently in progress",
	})

	// TradeDuration - длительность исполнения сделки
	TradeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "crossarb",
		Subsystem: "executor",
		Name:      "trade_duration_seconds",
		Help:      "Trade execution duration from preflight to terminal state",
		Buckets:   prometheus.DefBuckets,
	})

	// ProfitTotal - накопленная прибыль
	// Gauge, а не Counter: сделка может закрыться в минус
	ProfitTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "crossarb",
		Subsystem: "executor",
		Name:      "profit_total",
		Help:      "Cumulative realized profit in quote currency",
	})

	// SlippageLast - проскальзывание последней сделки
	SlippageLast = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "crossarb",
		Subsystem: "executor",
		Name:      "slippage_last",
		Help:      "Slippage of the most recent trade in quote currency",
	})
)

// Вспомогательные функции для записи метрик

// RecordTick учитывает принятый тик
func RecordTick(venue string) {
	TicksTotal.WithLabelValues(venue).Inc()
}

// RecordOpportunityDropped учитывает отброшенную возможность
func RecordOpportunityDropped(reason string) {
	OpportunitiesDropped.WithLabelValues(reason).Inc()
}

// RecordTradeCompleted учитывает успешную сделку
func RecordTradeCompleted(profit, slippage float64, durationSeconds float64) {
	TradesTotal.WithLabelValues("completed").Inc()
	TradeDuration.Observe(durationSeconds)
	ProfitTotal.Add(profit)
	SlippageLast.Set(slippage)
}

// RecordTradeAborted учитывает прерванную сделку
func RecordTradeAborted(durationSeconds float64) {
	TradesTotal.WithLabelValues("aborted").Inc()
	TradeDuration.Observe(durationSeconds)
}
