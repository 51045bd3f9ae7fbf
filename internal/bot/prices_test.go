package bot

import (
	"sync"
	"testing"
	"time"
)

func TestPriceBookUpdateAndGet(t *testing.T) {
	pb := NewPriceBook()

	if _, ok := pb.Get("binance"); ok {
		t.Error("Пустое хранилище не должно возвращать котировку")
	}

	at := time.Now()
	pb.Update("binance", 50000, at)

	q, ok := pb.Get("binance")
	if !ok {
		t.Fatal("Котировка должна быть доступна после Update")
	}
	if q.Price != 50000 {
		t.Errorf("Цена = %v, ожидалось 50000", q.Price)
	}
	if !q.UpdatedAt.Equal(at) {
		t.Errorf("UpdatedAt = %v, ожидалось %v", q.UpdatedAt, at)
	}
}

func TestPriceBookLastWriteWins(t *testing.T) {
	pb := NewPriceBook()

	pb.Update("okx", 50000, time.Now())
	pb.Update("okx", 50100, time.Now())

	q, _ := pb.Get("okx")
	if q.Price != 50100 {
		t.Errorf("Цена = %v, ожидалась последняя запись 50100", q.Price)
	}
}

func TestPriceBookSnapshotIsolation(t *testing.T) {
	pb := NewPriceBook()
	pb.Update("binance", 50000, time.Now())

	snapshot := pb.Snapshot()

	// Обновление после снимка не должно менять снимок
	pb.Update("binance", 60000, time.Now())

	if snapshot["binance"].Price != 50000 {
		t.Errorf("Снимок изменился после Update: %v", snapshot["binance"].Price)
	}
}

// TestPriceBookConcurrentConsistency проверяет, что при параллельных
// записях читатель никогда не видит «рваную» котировку: цена и метка
// времени закодированы согласованно, расхождение означает гонку.
func TestPriceBookConcurrentConsistency(t *testing.T) {
	pb := NewPriceBook()
	base := time.Unix(1700000000, 0)

	const writes = 1000
	venues := []string{"binance", "okx"}

	var writers sync.WaitGroup
	for _, venue := range venues {
		writers.Add(1)
		go func(v string) {
			defer writers.Done()
			for i := 1; i <= writes; i++ {
				// Цена i соответствует метке base+i секунд
				pb.Update(v, float64(i), base.Add(time.Duration(i)*time.Second))
			}
		}(venue)
	}

	stop := make(chan struct{})
	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		lastSeen := map[string]float64{}
		for {
			select {
			case <-stop:
				return
			default:
			}

			snapshot := pb.Snapshot()
			for v, q := range snapshot {
				wantAt := base.Add(time.Duration(q.Price) * time.Second)
				if !q.UpdatedAt.Equal(wantAt) {
					t.Errorf("Рваная котировка %s: цена %v, метка %v", v, q.Price, q.UpdatedAt)
					return
				}
				if q.Price < lastSeen[v] {
					t.Errorf("Котировка %s откатилась: %v после %v", v, q.Price, lastSeen[v])
					return
				}
				lastSeen[v] = q.Price
			}
		}
	}()

	writers.Wait()
	close(stop)
	<-readerDone
}
