package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"crossarb/internal/bot"
	"crossarb/internal/config"
	"crossarb/internal/exchange"
	"crossarb/internal/feed"
	"crossarb/internal/notify"
	"crossarb/internal/repository"
	"crossarb/pkg/utils"
)

func main() {
	// .env опционален: в проде переменные приходят из окружения
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.InitLogger(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Запуск арбитражного бота",
		zap.String("symbol", cfg.Trading.Symbol),
		zap.Float64("spread_threshold", cfg.Trading.SpreadThreshold),
		zap.Float64("quantity", cfg.Trading.Quantity))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// --- Журнал сделок (опционален) ---
	var journal bot.Journal
	if cfg.Journal.Enabled {
		db, err := sql.Open("postgres", cfg.Journal.DSN())
		if err != nil {
			logger.Fatal("Не удалось открыть базу данных", zap.Error(err))
		}
		defer db.Close()

		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)

		if err := db.PingContext(ctx); err != nil {
			logger.Fatal("База данных недоступна",
				zap.String("dsn", cfg.Journal.DSNWithoutPassword()),
				zap.Error(err))
		}

		repo := repository.NewOutcomeRepository(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			logger.Fatal("Не удалось подготовить схему журнала", zap.Error(err))
		}

		journal = repo
		logger.Info("Журнал сделок подключен", zap.String("db", cfg.Journal.Name))
	}

	// --- Шлюзы бирж ---
	binanceGW := exchange.NewBinance(cfg.Binance.Sandbox)
	if err := binanceGW.Connect(ctx, cfg.Binance.APIKey, cfg.Binance.APISecret, ""); err != nil {
		logger.Fatal("Не удалось подключиться к Binance", zap.Error(err))
	}
	defer binanceGW.Close()

	okxGW := exchange.NewOKX(cfg.OKX.Sandbox)
	if err := okxGW.Connect(ctx, cfg.OKX.APIKey, cfg.OKX.APISecret, cfg.OKX.Passphrase); err != nil {
		logger.Fatal("Не удалось подключиться к OKX", zap.Error(err))
	}
	defer okxGW.Close()

	gateways := map[string]exchange.Gateway{
		exchange.VenueBinance: binanceGW,
		exchange.VenueOKX:     okxGW,
	}

	// --- Уведомления ---
	var channels []notify.Channel
	if cfg.Notify.SMTPServer != "" && len(cfg.Notify.Recipients) > 0 {
		channels = append(channels, notify.NewEmailChannel(
			cfg.Notify.SMTPServer, cfg.Notify.SMTPPort,
			cfg.Notify.Email, cfg.Notify.EmailPassword,
			cfg.Notify.Recipients))
	}
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		channels = append(channels, notify.NewTelegramChannel(
			cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID))
	}

	notifier := notify.NewNotifier(channels, logger.Named("notify"))
	defer notifier.Close()

	logger.Info("Каналы уведомлений настроены", zap.Int("count", len(channels)))

	// --- Торговое ядро ---
	prices := bot.NewPriceBook()

	detector := bot.NewSpreadDetector(
		exchange.VenueBinance, exchange.VenueOKX,
		cfg.Trading.SpreadThreshold)

	executor := bot.NewTradeExecutor(bot.ExecutorConfig{
		Symbol:     cfg.Trading.Symbol,
		BaseAsset:  cfg.Trading.BaseAsset,
		QuoteAsset: cfg.Trading.QuoteAsset,

		Quantity:        cfg.Trading.Quantity,
		SpreadThreshold: cfg.Trading.SpreadThreshold,
		MaxSlippage:     cfg.Trading.MaxSlippage,

		VerifyAttempts: cfg.Trading.VerifyAttempts,
		VerifyDelay:    cfg.Trading.VerifyDelay,
		OrderTimeout:   cfg.Trading.OrderTimeout,
	}, gateways, notifier, journal, logger.Named("executor"))

	risk := bot.NewRiskGuard(cfg.Trading.TradeCooldown, cfg.Trading.MaxLoss)

	engine := bot.NewEngine(prices, detector, executor, risk, notifier, logger.Named("engine"))

	// --- Источники цен ---
	sources := []feed.Source{
		feed.NewBinanceSource(cfg.Feeds.BinanceWSURL, cfg.Trading.Symbol, logger.Named("feed")),
		feed.NewOKXSource(cfg.Feeds.OKXWSURL, cfg.Trading.Symbol, logger.Named("feed")),
	}

	ingestor := bot.NewFeedIngestor(sources, logger.Named("ingest"))
	ticks := ingestor.Start(ctx)

	// --- Мониторинг балансов ---
	rebalancer := bot.NewRebalancer(gateways,
		cfg.Trading.BaseAsset, cfg.Trading.QuoteAsset,
		cfg.Trading.Quantity,
		notifier, logger.Named("rebalancer"))
	go rebalancer.Run(ctx, 5*time.Minute)

	// --- HTTP: метрики и health check ---
	router := mux.NewRouter()
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"status":"ok","halted":%t}`, risk.Halted())
	}).Methods(http.MethodGet)

	monitorServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Monitor.Host, cfg.Monitor.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("HTTP сервер мониторинга запущен", zap.String("addr", monitorServer.Addr))
		if err := monitorServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Ошибка HTTP сервера", zap.Error(err))
		}
	}()

	// --- Основной цикл ---
	engineDone := make(chan struct{})
	go func() {
		defer close(engineDone)
		engine.Run(ctx, ticks)
	}()

	// Graceful shutdown по SIGINT/SIGTERM
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info("Получен сигнал остановки", zap.String("signal", sig.String()))
	case <-engineDone:
		logger.Warn("Торговый цикл завершился самостоятельно")
	}

	cancel()

	// Даём движку завершить активную сделку
	select {
	case <-engineDone:
	case <-time.After(30 * time.Second):
		logger.Warn("Таймаут ожидания завершения торгового цикла")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := monitorServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Ошибка остановки HTTP сервера", zap.Error(err))
	}

	logger.Info("Бот остановлен")
}
