package retry

import (
	"context"
	"time"
)

// Config конфигурация для retry логики
//
// Задержка между попытками фиксированная (Delay), без экспоненциального
// роста: используется для опроса статуса ордера, где важна предсказуемая
// верхняя граница времени ожидания (Attempts * Delay).
type Config struct {
	// Attempts - максимальное количество попыток (включая первую)
	Attempts int

	// Delay - пауза между попытками
	Delay time.Duration

	// Sleep - функция ожидания; по умолчанию реальный сон через таймер.
	// Подменяется в тестах, чтобы retry-цикл шёл без wall-clock задержек.
	Sleep func(ctx context.Context, d time.Duration) error

	// OnRetry - callback перед каждой повторной попыткой (для логирования)
	OnRetry func(attempt int, err error)
}

// FixedDelay возвращает конфигурацию с фиксированной задержкой
func FixedDelay(attempts int, delay time.Duration) Config {
	return Config{
		Attempts: attempts,
		Delay:    delay,
	}
}

// validate проверяет и устанавливает значения по умолчанию
func (c *Config) validate() {
	if c.Attempts < 1 {
		c.Attempts = 1
	}
	if c.Delay < 0 {
		c.Delay = 0
	}
	if c.Sleep == nil {
		c.Sleep = sleepContext
	}
}

// sleepContext ждёт d или отмены контекста
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Do выполняет операцию с повторными попытками
//
// Возвращает:
//   - nil: операция успешна
//   - error: все попытки неудачны, возвращается последняя ошибка
//
// Пример:
//
//	err := retry.Do(ctx, func() error {
//	    return gateway.GetOrderStatus(...)
//	}, retry.FixedDelay(3, time.Second))
func Do(ctx context.Context, operation func() error, cfg Config) error {
	cfg.validate()

	var lastErr error

	for attempt := 0; attempt < cfg.Attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return lastErr
			}
			return err
		}

		lastErr = operation()
		if lastErr == nil {
			return nil
		}

		// Последняя попытка - без паузы
		if attempt == cfg.Attempts-1 {
			break
		}

		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt+1, lastErr)
		}

		if err := cfg.Sleep(ctx, cfg.Delay); err != nil {
			return lastErr
		}
	}

	return lastErr
}
