// Package bot содержит торговое ядро: агрегацию цен, детектор спреда,
// исполнение двухсторонних сделок и оркестрацию.
package bot

import (
	"sync"
	"time"
)

// Quote - последняя известная цена одной биржи
type Quote struct {
	Price     float64
	UpdatedAt time.Time
}

// PriceBook хранит последние цены по биржам
//
// Писатели (потоки цен) перезаписывают котировку своей биржи, читатель
// (детектор) получает согласованный снимок всех бирж. Цена и её метка
// времени никогда не расходятся: обе пишутся и читаются под одним lock'ом.
type PriceBook struct {
	mu     sync.RWMutex
	quotes map[string]Quote
}

// NewPriceBook создает пустое хранилище цен
func NewPriceBook() *PriceBook {
	return &PriceBook{
		quotes: make(map[string]Quote),
	}
}

// Update перезаписывает котировку биржи (last-write-wins)
func (pb *PriceBook) Update(venue string, price float64, at time.Time) {
	pb.mu.Lock()
	pb.quotes[venue] = Quote{Price: price, UpdatedAt: at}
	pb.mu.Unlock()
}

// Get возвращает котировку биржи
func (pb *PriceBook) Get(venue string) (Quote, bool) {
	pb.mu.RLock()
	defer pb.mu.RUnlock()

	q, ok := pb.quotes[venue]
	return q, ok
}

// Snapshot возвращает копию всех котировок на момент вызова
//
// Копия не изменяется последующими обновлениями, поэтому детектор
// работает с зафиксированной картиной рынка.
func (pb *PriceBook) Snapshot() map[string]Quote {
	pb.mu.RLock()
	defer pb.mu.RUnlock()

	snapshot := make(map[string]Quote, len(pb.quotes))
	for venue, q := range pb.quotes {
		snapshot[venue] = q
	}
	return snapshot
}
