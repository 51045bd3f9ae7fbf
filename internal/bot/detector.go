package bot

import "time"

// Opportunity - обнаруженная арбитражная возможность
//
// SellVenue - биржа с более высокой ценой (там продаём),
// BuyVenue - биржа с более низкой ценой (там покупаем).
type Opportunity struct {
	SellVenue  string
	BuyVenue   string
	SellPrice  float64
	BuyPrice   float64
	Spread     float64 // SellPrice - BuyPrice, всегда >= порога
	DetectedAt time.Time
}

// SpreadDetector сравнивает цены двух бирж и находит спред выше порога
//
// Детектор не имеет состояния между вызовами: каждое решение
// принимается только по переданному снимку цен.
type SpreadDetector struct {
	venueA    string
	venueB    string
	threshold float64
}

// NewSpreadDetector создает детектор для пары бирж
func NewSpreadDetector(venueA, venueB string, threshold float64) *SpreadDetector {
	return &SpreadDetector{
		venueA:    venueA,
		venueB:    venueB,
		threshold: threshold,
	}
}

// Check ищет возможность в снимке цен
//
// Возвращает nil, если цены хотя бы одной биржи ещё нет или спред
// ниже порога. Равенство цен возможностью не считается, спред ровно
// на пороге - считается.
func (d *SpreadDetector) Check(snapshot map[string]Quote, now time.Time) *Opportunity {
	qa, okA := snapshot[d.venueA]
	qb, okB := snapshot[d.venueB]
	if !okA || !okB {
		return nil
	}

	var opp Opportunity
	if qa.Price > qb.Price {
		opp = Opportunity{
			SellVenue: d.venueA,
			BuyVenue:  d.venueB,
			SellPrice: qa.Price,
			BuyPrice:  qb.Price,
		}
	} else if qb.Price > qa.Price {
		opp = Opportunity{
			SellVenue: d.venueB,
			BuyVenue:  d.venueA,
			SellPrice: qb.Price,
			BuyPrice:  qa.Price,
		}
	} else {
		return nil
	}

	opp.Spread = opp.SellPrice - opp.BuyPrice
	if opp.Spread < d.threshold {
		return nil
	}

	opp.DetectedAt = now
	return &opp
}

// Threshold возвращает порог спреда детектора
func (d *SpreadDetector) Threshold() float64 {
	return d.threshold
}
