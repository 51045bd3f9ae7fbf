package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

// noSleep подменяет паузы в тестах
func noSleep(recorded *[]time.Duration) func(ctx context.Context, d time.Duration) error {
	return func(ctx context.Context, d time.Duration) error {
		*recorded = append(*recorded, d)
		return nil
	}
}

func TestDoSucceedsFirstAttempt(t *testing.T) {
	var sleeps []time.Duration
	calls := 0

	err := Do(context.Background(), func() error {
		calls++
		return nil
	}, Config{Attempts: 3, Delay: time.Second, Sleep: noSleep(&sleeps)})

	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if calls != 1 {
		t.Errorf("Вызовов = %d, ожидался 1", calls)
	}
	if len(sleeps) != 0 {
		t.Errorf("Пауз = %d, ожидалось 0", len(sleeps))
	}
}

func TestDoSucceedsAfterRetries(t *testing.T) {
	var sleeps []time.Duration
	calls := 0

	err := Do(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("временная ошибка")
		}
		return nil
	}, Config{Attempts: 3, Delay: time.Second, Sleep: noSleep(&sleeps)})

	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if calls != 3 {
		t.Errorf("Вызовов = %d, ожидалось 3", calls)
	}
	if len(sleeps) != 2 {
		t.Errorf("Пауз = %d, ожидалось 2", len(sleeps))
	}
}

func TestDoExhaustsAttempts(t *testing.T) {
	var sleeps []time.Duration
	calls := 0
	wantErr := errors.New("постоянная ошибка")

	err := Do(context.Background(), func() error {
		calls++
		return wantErr
	}, Config{Attempts: 3, Delay: time.Second, Sleep: noSleep(&sleeps)})

	if !errors.Is(err, wantErr) {
		t.Fatalf("Do() error = %v, ожидалась последняя ошибка операции", err)
	}
	if calls != 3 {
		t.Errorf("Вызовов = %d, ожидалось 3", calls)
	}
	// После последней попытки паузы нет
	if len(sleeps) != 2 {
		t.Errorf("Пауз = %d, ожидалось 2", len(sleeps))
	}
}

func TestDoOnRetryCallback(t *testing.T) {
	var sleeps []time.Duration
	var retries []int

	Do(context.Background(), func() error {
		return errors.New("ошибка")
	}, Config{
		Attempts: 3,
		Delay:    time.Second,
		Sleep:    noSleep(&sleeps),
		OnRetry: func(attempt int, err error) {
			retries = append(retries, attempt)
		},
	})

	if len(retries) != 2 || retries[0] != 1 || retries[1] != 2 {
		t.Errorf("OnRetry вызван с %v, ожидалось [1 2]", retries)
	}
}

func TestDoCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := Do(ctx, func() error {
		calls++
		return errors.New("ошибка")
	}, FixedDelay(3, time.Second))

	if err == nil {
		t.Fatal("Ожидалась ошибка при отменённом контексте")
	}
	if calls != 0 {
		t.Errorf("Вызовов = %d, операция не должна запускаться при отменённом контексте", calls)
	}
}

func TestDoCancelDuringSleep(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	opErr := errors.New("ошибка операции")

	err := Do(ctx, func() error {
		calls++
		cancel() // отмена после первой попытки
		return opErr
	}, FixedDelay(5, 10*time.Millisecond))

	// Возвращается ошибка операции, а не контекста
	if !errors.Is(err, opErr) {
		t.Errorf("Do() error = %v, ожидалась ошибка операции", err)
	}
	if calls != 1 {
		t.Errorf("Вызовов = %d, ожидался 1", calls)
	}
}

func TestDoAtLeastOneAttempt(t *testing.T) {
	calls := 0
	Do(context.Background(), func() error {
		calls++
		return nil
	}, Config{Attempts: 0})

	if calls != 1 {
		t.Errorf("Вызовов = %d, минимум одна попытка обязательна", calls)
	}
}
