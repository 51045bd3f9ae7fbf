package bot

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"crossarb/internal/exchange"
	"crossarb/internal/models"
)

func newRebalancerEnv(binanceBTC, okxBTC float64) (*Rebalancer, *fakeAlerter) {
	gateways := map[string]exchange.Gateway{
		"binance": newFakeGateway("binance", map[string]float64{"BTC": binanceBTC, "USDT": 1000}, 50000),
		"okx":     newFakeGateway("okx", map[string]float64{"BTC": okxBTC, "USDT": 1000}, 50000),
	}
	alerter := &fakeAlerter{}
	r := NewRebalancer(gateways, "BTC", "USDT", 0.001, alerter, zap.NewNop())
	return r, alerter
}

func TestRebalancerSync(t *testing.T) {
	r, _ := newRebalancerEnv(0.5, 0.25)

	balances, err := r.Sync(context.Background())
	if err != nil {
		t.Fatalf("Sync() error = %v", err)
	}

	if balances["binance"].Base != 0.5 {
		t.Errorf("binance BTC = %v, ожидалось 0.5", balances["binance"].Base)
	}
	if balances["okx"].Base != 0.25 {
		t.Errorf("okx BTC = %v, ожидалось 0.25", balances["okx"].Base)
	}
	if balances["okx"].Quote != 1000 {
		t.Errorf("okx USDT = %v, ожидалось 1000", balances["okx"].Quote)
	}
}

func TestCheckSkewAlertsOnDepletedVenue(t *testing.T) {
	r, alerter := newRebalancerEnv(0.5, 0)

	balances, _ := r.Sync(context.Background())
	r.CheckSkew(balances, time.Now())

	alerts := alerter.alertsOfType(models.NotificationTypeRebalance)
	if len(alerts) != 1 {
		t.Fatalf("Уведомлений REBALANCE = %d, ожидалось 1", len(alerts))
	}
	if alerts[0].Meta["venue"] != "okx" {
		t.Errorf("Уведомление указывает на %v, ожидалась okx", alerts[0].Meta["venue"])
	}
}

func TestCheckSkewSilentWhenBalanced(t *testing.T) {
	r, alerter := newRebalancerEnv(0.5, 0.5)

	balances, _ := r.Sync(context.Background())
	r.CheckSkew(balances, time.Now())

	if got := alerter.alertsOfType(models.NotificationTypeRebalance); len(got) != 0 {
		t.Errorf("Уведомлений = %d, при сбалансированных остатках их быть не должно", len(got))
	}
}

func TestPlanTransfer(t *testing.T) {
	tests := []struct {
		name       string
		binanceBTC float64
		okxBTC     float64
		want       *Transfer
	}{
		{
			name:       "перекос в сторону binance",
			binanceBTC: 0.5,
			okxBTC:     0,
			want:       &Transfer{From: "binance", To: "okx", Amount: 0.25},
		},
		{
			name:       "обе биржи торгуемы",
			binanceBTC: 0.5,
			okxBTC:     0.5,
			want:       nil,
		},
		{
			name:       "перевод не восстановит торгуемость",
			binanceBTC: 0.0005,
			okxBTC:     0,
			want:       nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := newRebalancerEnv(tt.binanceBTC, tt.okxBTC)
			balances, _ := r.Sync(context.Background())

			got := r.PlanTransfer(balances)

			if tt.want == nil {
				if got != nil {
					t.Fatalf("PlanTransfer() = %+v, ожидался nil", got)
				}
				return
			}
			if got == nil {
				t.Fatal("PlanTransfer() = nil, ожидался перевод")
			}
			if got.From != tt.want.From || got.To != tt.want.To {
				t.Errorf("Направление = %s->%s, ожидалось %s->%s", got.From, got.To, tt.want.From, tt.want.To)
			}
			if got.Amount != tt.want.Amount {
				t.Errorf("Amount = %v, ожидалось %v", got.Amount, tt.want.Amount)
			}
		})
	}
}
