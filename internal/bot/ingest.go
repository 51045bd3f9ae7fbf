package bot

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"crossarb/internal/feed"
)

// FeedIngestor сводит тики всех источников в общий канал
//
// Каждый источник работает в собственной горутине и переживает обрывы
// соединения самостоятельно. Ingestor лишь запускает их и закрывает
// выходной канал, когда все источники завершились.
type FeedIngestor struct {
	sources []feed.Source
	logger  *zap.Logger
}

// NewFeedIngestor создает ingestor для набора источников
func NewFeedIngestor(sources []feed.Source, logger *zap.Logger) *FeedIngestor {
	return &FeedIngestor{
		sources: sources,
		logger:  logger,
	}
}

// Start запускает все источники и возвращает канал тиков
//
// Канал закрывается после остановки всех источников (отмена контекста).
// Буфер сглаживает всплески обновлений, пока детектор занят.
func (fi *FeedIngestor) Start(ctx context.Context) <-chan feed.Tick {
	out := make(chan feed.Tick, 256)

	var wg sync.WaitGroup
	for _, src := range fi.sources {
		wg.Add(1)
		go func(s feed.Source) {
			defer wg.Done()
			fi.logger.Info("Запуск источника цен", zap.String("venue", s.Venue()))
			s.Run(ctx, out)
			fi.logger.Info("Источник цен остановлен", zap.String("venue", s.Venue()))
		}(src)
	}

	go func() {
		wg.Wait()
		close(out)
	}()

	return out
}
