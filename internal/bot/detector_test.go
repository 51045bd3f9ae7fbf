package bot

import (
	"testing"
	"time"
)

func snapshotOf(prices map[string]float64) map[string]Quote {
	s := make(map[string]Quote, len(prices))
	at := time.Now()
	for venue, p := range prices {
		s[venue] = Quote{Price: p, UpdatedAt: at}
	}
	return s
}

func TestSpreadDetectorCheck(t *testing.T) {
	tests := []struct {
		name      string
		threshold float64
		prices    map[string]float64
		want      *Opportunity // nil - возможности нет
	}{
		{
			name:      "спред выше порога, продажа на binance",
			threshold: 10.0,
			prices:    map[string]float64{"binance": 50100, "okx": 50080},
			want: &Opportunity{
				SellVenue: "binance",
				BuyVenue:  "okx",
				SellPrice: 50100,
				BuyPrice:  50080,
				Spread:    20,
			},
		},
		{
			name:      "спред выше порога, продажа на okx",
			threshold: 10.0,
			prices:    map[string]float64{"binance": 50080, "okx": 50100},
			want: &Opportunity{
				SellVenue: "okx",
				BuyVenue:  "binance",
				SellPrice: 50100,
				BuyPrice:  50080,
				Spread:    20,
			},
		},
		{
			name:      "спред ровно на пороге считается возможностью",
			threshold: 10.0,
			prices:    map[string]float64{"binance": 50010, "okx": 50000},
			want: &Opportunity{
				SellVenue: "binance",
				BuyVenue:  "okx",
				SellPrice: 50010,
				BuyPrice:  50000,
				Spread:    10,
			},
		},
		{
			name:      "спред ниже порога",
			threshold: 10.0,
			prices:    map[string]float64{"binance": 50005, "okx": 50000},
			want:      nil,
		},
		{
			name:      "равные цены",
			threshold: 10.0,
			prices:    map[string]float64{"binance": 50000, "okx": 50000},
			want:      nil,
		},
		{
			name:      "нет цены одной биржи",
			threshold: 10.0,
			prices:    map[string]float64{"binance": 50100},
			want:      nil,
		},
		{
			name:      "нет цен вообще",
			threshold: 10.0,
			prices:    map[string]float64{},
			want:      nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewSpreadDetector("binance", "okx", tt.threshold)
			got := d.Check(snapshotOf(tt.prices), time.Now())

			if tt.want == nil {
				if got != nil {
					t.Fatalf("Check() = %+v, ожидался nil", got)
				}
				return
			}

			if got == nil {
				t.Fatal("Check() = nil, ожидалась возможность")
			}
			if got.SellVenue != tt.want.SellVenue {
				t.Errorf("SellVenue = %s, ожидалось %s", got.SellVenue, tt.want.SellVenue)
			}
			if got.BuyVenue != tt.want.BuyVenue {
				t.Errorf("BuyVenue = %s, ожидалось %s", got.BuyVenue, tt.want.BuyVenue)
			}
			if got.SellPrice != tt.want.SellPrice {
				t.Errorf("SellPrice = %v, ожидалось %v", got.SellPrice, tt.want.SellPrice)
			}
			if got.BuyPrice != tt.want.BuyPrice {
				t.Errorf("BuyPrice = %v, ожидалось %v", got.BuyPrice, tt.want.BuyPrice)
			}
			if got.Spread != tt.want.Spread {
				t.Errorf("Spread = %v, ожидалось %v", got.Spread, tt.want.Spread)
			}
		})
	}
}

// Детектор не хранит состояния: повторный вызов с тем же снимком
// даёт тот же результат.
func TestSpreadDetectorStateless(t *testing.T) {
	d := NewSpreadDetector("binance", "okx", 10.0)
	snap := snapshotOf(map[string]float64{"binance": 50100, "okx": 50080})

	first := d.Check(snap, time.Now())
	second := d.Check(snap, time.Now())

	if first == nil || second == nil {
		t.Fatal("Обе проверки должны найти возможность")
	}
	if first.Spread != second.Spread || first.SellVenue != second.SellVenue {
		t.Error("Повторная проверка того же снимка дала другой результат")
	}
}
