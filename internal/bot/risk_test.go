package bot

import (
	"testing"
	"time"
)

func TestRiskGuardCooldown(t *testing.T) {
	rg := NewRiskGuard(60*time.Second, 100)
	now := time.Unix(1700000000, 0)

	if !rg.Allow(now) {
		t.Fatal("Первая сделка должна быть разрешена")
	}

	rg.RecordTrade(now, 0.02)

	if rg.Allow(now.Add(30 * time.Second)) {
		t.Error("Сделка внутри cooldown должна быть запрещена")
	}
	if !rg.Allow(now.Add(60 * time.Second)) {
		t.Error("Сделка после cooldown должна быть разрешена")
	}
}

func TestRiskGuardCooldownAfterFailedAttempt(t *testing.T) {
	rg := NewRiskGuard(60*time.Second, 100)
	now := time.Unix(1700000000, 0)

	rg.RecordAttempt(now)

	if rg.Allow(now.Add(time.Second)) {
		t.Error("Cooldown должен действовать и после неудачной попытки")
	}
}

func TestRiskGuardMaxLossHalt(t *testing.T) {
	rg := NewRiskGuard(0, 100)
	now := time.Unix(1700000000, 0)

	if halted := rg.RecordTrade(now, -60); halted {
		t.Error("Убыток 60 не должен останавливать торговлю при пределе 100")
	}

	if halted := rg.RecordTrade(now.Add(time.Minute), -40); !halted {
		t.Error("Совокупный убыток 100 должен остановить торговлю")
	}

	if !rg.Halted() {
		t.Error("Halted() = false после остановки")
	}
	if rg.Allow(now.Add(time.Hour)) {
		t.Error("После остановки сделки запрещены независимо от времени")
	}
}

func TestRiskGuardProfitOffsetsLoss(t *testing.T) {
	rg := NewRiskGuard(0, 100)
	now := time.Unix(1700000000, 0)

	rg.RecordTrade(now, -80)
	rg.RecordTrade(now, 50)
	rg.RecordTrade(now, -60)

	// Итог -90, предел не достигнут
	if rg.Halted() {
		t.Errorf("Торговля остановлена при PnL %v, предел 100", rg.TotalPnL())
	}
}

func TestRiskGuardReset(t *testing.T) {
	rg := NewRiskGuard(60*time.Second, 100)
	now := time.Unix(1700000000, 0)

	rg.RecordTrade(now, -150)
	if !rg.Halted() {
		t.Fatal("Ожидалась остановка")
	}

	rg.Reset()

	if rg.Halted() {
		t.Error("Reset должен снимать остановку")
	}
	if rg.TotalPnL() != 0 {
		t.Errorf("TotalPnL после Reset = %v, ожидалось 0", rg.TotalPnL())
	}
	if !rg.Allow(now) {
		t.Error("После Reset сделки должны быть разрешены сразу")
	}
}
