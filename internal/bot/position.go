package bot

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"crossarb/internal/exchange"
	"crossarb/internal/models"
)

// Balances - остатки базового и котируемого актива на одной бирже
type Balances struct {
	Base  float64
	Quote float64
}

// Rebalancer отслеживает распределение средств между биржами
//
// После серии сделок базовый актив скапливается на дешёвой бирже,
// котируемый - на дорогой. Rebalancer периодически опрашивает балансы
// и уведомляет оператора о перекосе; переводы между биржами выполняются
// вручную.
type Rebalancer struct {
	gateways   map[string]exchange.Gateway
	baseAsset  string
	quoteAsset string
	minBase    float64 // порог базового актива для торговли одной ногой
	alerter    Alerter
	logger     *zap.Logger
}

// NewRebalancer создает монитор распределения средств
func NewRebalancer(gateways map[string]exchange.Gateway, baseAsset, quoteAsset string, minBase float64, alerter Alerter, logger *zap.Logger) *Rebalancer {
	return &Rebalancer{
		gateways:   gateways,
		baseAsset:  baseAsset,
		quoteAsset: quoteAsset,
		minBase:    minBase,
		alerter:    alerter,
		logger:     logger,
	}
}

// Sync опрашивает балансы всех бирж
func (r *Rebalancer) Sync(ctx context.Context) (map[string]Balances, error) {
	result := make(map[string]Balances, len(r.gateways))

	for venue, gw := range r.gateways {
		base, err := gw.GetBalance(ctx, r.baseAsset)
		if err != nil {
			return nil, fmt.Errorf("sync %s: %w", venue, err)
		}

		quote, err := gw.GetBalance(ctx, r.quoteAsset)
		if err != nil {
			return nil, fmt.Errorf("sync %s: %w", venue, err)
		}

		result[venue] = Balances{Base: base, Quote: quote}
	}

	return result, nil
}

// Transfer - рекомендуемый перевод базового актива между биржами
type Transfer struct {
	From   string
	To     string
	Amount float64
}

// PlanTransfer рассчитывает перевод, выравнивающий базовый актив
//
// Возвращает nil, если перекоса нет или перевод не восстановит
// торгуемость обеих бирж.
func (r *Rebalancer) PlanTransfer(balances map[string]Balances) *Transfer {
	var richVenue, poorVenue string
	var richBase, poorBase float64
	first := true

	for venue, bal := range balances {
		if first {
			richVenue, poorVenue = venue, venue
			richBase, poorBase = bal.Base, bal.Base
			first = false
			continue
		}
		if bal.Base > richBase {
			richVenue, richBase = venue, bal.Base
		}
		if bal.Base < poorBase {
			poorVenue, poorBase = venue, bal.Base
		}
	}

	if poorBase >= r.minBase {
		return nil
	}

	amount := (richBase - poorBase) / 2
	if amount <= 0 || richBase-amount < r.minBase {
		return nil
	}

	return &Transfer{From: richVenue, To: poorVenue, Amount: amount}
}

// CheckSkew проверяет достаточность базового актива на каждой бирже
//
// Биржа без базового актива не может быть стороной продажи, то есть
// половина возможностей становится неисполнимой. Об этом уведомляем.
func (r *Rebalancer) CheckSkew(balances map[string]Balances, now time.Time) {
	for venue, bal := range balances {
		if bal.Base >= r.minBase {
			continue
		}

		r.logger.Warn("Недостаточно базового актива для продажи",
			zap.String("venue", venue),
			zap.Float64("base", bal.Base),
			zap.Float64("required", r.minBase))

		msg := fmt.Sprintf("venue %s holds %.8f %s, below tradable %.8f; manual rebalance needed",
			venue, bal.Base, r.baseAsset, r.minBase)

		meta := map[string]interface{}{
			"venue": venue,
			"base":  bal.Base,
		}

		if tr := r.PlanTransfer(balances); tr != nil {
			msg += fmt.Sprintf("; suggested transfer: %.8f %s from %s to %s",
				tr.Amount, r.baseAsset, tr.From, tr.To)
			meta["transfer_from"] = tr.From
			meta["transfer_to"] = tr.To
			meta["transfer_amount"] = tr.Amount
		}

		r.alerter.Alert(models.Notification{
			Timestamp: now,
			Type:      models.NotificationTypeRebalance,
			Severity:  models.SeverityWarn,
			Message:   msg,
			Meta:      meta,
		})
	}
}

// Run периодически выполняет Sync и CheckSkew до отмены контекста
func (r *Rebalancer) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			balances, err := r.Sync(ctx)
			if err != nil {
				r.logger.Warn("Не удалось опросить балансы", zap.Error(err))
				continue
			}
			r.CheckSkew(balances, now)
		}
	}
}
