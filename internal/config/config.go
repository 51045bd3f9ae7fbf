package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config содержит всю конфигурацию приложения
type Config struct {
	Trading  TradingConfig
	Feeds    FeedsConfig
	Binance  VenueConfig
	OKX      VenueConfig
	Notify   NotifyConfig
	Journal  JournalConfig
	Monitor  MonitorConfig
	Logging  LoggingConfig
}

// TradingConfig - торговые параметры ядра
type TradingConfig struct {
	Symbol     string  // торгуемый инструмент (BTC/USDT)
	BaseAsset  string  // актив, который продаём на дорогой бирже
	QuoteAsset string  // валюта котировки для покупки на дешёвой

	Quantity        float64 // объём одной сделки в базовом активе
	SpreadThreshold float64 // порог спреда для входа, в валюте котировки
	MaxSlippage     float64 // максимально допустимое проскальзывание

	// Верификация исполнения ордеров
	VerifyAttempts int           // попыток опроса статуса ордера
	VerifyDelay    time.Duration // пауза между попытками
	OrderTimeout   time.Duration // таймаут одного запроса к бирже

	// Риск-контроль
	TradeCooldown time.Duration // минимальный интервал между сделками
	MaxLoss       float64       // совокупный убыток, при котором торговля останавливается
}

// FeedsConfig - WebSocket источники цен
type FeedsConfig struct {
	BinanceWSURL string
	OKXWSURL     string
}

// VenueConfig - учётные данные и режим подключения к бирже
type VenueConfig struct {
	APIKey     string
	APISecret  string
	Passphrase string // только OKX
	Sandbox    bool
}

// NotifyConfig - доставка уведомлений
type NotifyConfig struct {
	SMTPServer    string
	SMTPPort      int
	Email         string
	EmailPassword string
	Recipients    []string

	TelegramToken  string
	TelegramChatID string
}

// JournalConfig - журнал сделок в Postgres (опционален)
type JournalConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Name     string
	User     string
	Password string
	SSLMode  string
}

// MonitorConfig - HTTP endpoint для метрик и health check
type MonitorConfig struct {
	Host string
	Port int
}

// LoggingConfig - настройки логирования
type LoggingConfig struct {
	Level  string
	Format string
}

// Load загружает конфигурацию из переменных окружения
func Load() (*Config, error) {
	cfg := &Config{
		Trading: TradingConfig{
			Symbol:     getEnv("SYMBOL", "BTC/USDT"),
			BaseAsset:  getEnv("BASE_ASSET", "BTC"),
			QuoteAsset: getEnv("QUOTE_ASSET", "USDT"),

			Quantity:        getEnvAsFloat("QUANTITY", 0.001),
			SpreadThreshold: getEnvAsFloat("SPREAD_THRESHOLD", 10.0),
			MaxSlippage:     getEnvAsFloat("MAX_SLIPPAGE", 10.0),

			VerifyAttempts: getEnvAsInt("VERIFY_ATTEMPTS", 3),
			VerifyDelay:    getEnvAsDuration("VERIFY_DELAY", 1*time.Second),
			OrderTimeout:   getEnvAsDuration("ORDER_TIMEOUT", 5*time.Second),

			TradeCooldown: getEnvAsDuration("TRADE_COOLDOWN", 60*time.Second),
			MaxLoss:       getEnvAsFloat("MAX_LOSS", 100.0),
		},
		Feeds: FeedsConfig{
			BinanceWSURL: getEnv("BINANCE_WS_URL", "wss://stream.binance.com:9443/ws"),
			OKXWSURL:     getEnv("OKX_WS_URL", "wss://ws.okx.com:8443/ws/v5/public"),
		},
		Binance: VenueConfig{
			APIKey:    getEnv("BINANCE_API_KEY", ""),
			APISecret: getEnv("BINANCE_API_SECRET", ""),
			Sandbox:   getEnvAsBool("BINANCE_SANDBOX", true),
		},
		OKX: VenueConfig{
			APIKey:     getEnv("OKX_API_KEY", ""),
			APISecret:  getEnv("OKX_API_SECRET", ""),
			Passphrase: getEnv("OKX_PASSPHRASE", ""),
			Sandbox:    getEnvAsBool("OKX_SANDBOX", true),
		},
		Notify: NotifyConfig{
			SMTPServer:    getEnv("SMTP_SERVER", ""),
			SMTPPort:      getEnvAsInt("SMTP_PORT", 587),
			Email:         getEnv("EMAIL", ""),
			EmailPassword: getEnv("EMAIL_PASSWORD", ""),
			Recipients:    getEnvAsList("ALERT_RECIPIENTS"),

			TelegramToken:  getEnv("TELEGRAM_BOT_API_TOKEN", ""),
			TelegramChatID: getEnv("TELEGRAM_CHAT_ID", ""),
		},
		Journal: JournalConfig{
			Enabled:  getEnvAsBool("JOURNAL_ENABLED", false),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			Name:     getEnv("DB_NAME", "crossarb"),
			User:     getEnv("DB_USER", "user"),
			Password: getEnv("DB_PASSWORD", "password"),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		},
		Monitor: MonitorConfig{
			Host: getEnv("MONITOR_HOST", "0.0.0.0"),
			Port: getEnvAsInt("MONITOR_PORT", 9090),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate проверяет числовые диапазоны параметров
func (c *Config) validate() error {
	t := c.Trading

	if t.SpreadThreshold <= 0 {
		return fmt.Errorf("SPREAD_THRESHOLD must be positive, got %v", t.SpreadThreshold)
	}

	if t.Quantity <= 0 {
		return fmt.Errorf("QUANTITY must be positive, got %v", t.Quantity)
	}

	if t.MaxSlippage < 0 {
		return fmt.Errorf("MAX_SLIPPAGE cannot be negative, got %v", t.MaxSlippage)
	}

	if t.VerifyAttempts < 1 {
		return fmt.Errorf("VERIFY_ATTEMPTS must be at least 1, got %d", t.VerifyAttempts)
	}

	if t.VerifyAttempts > 10 {
		return fmt.Errorf("VERIFY_ATTEMPTS should not exceed 10, got %d", t.VerifyAttempts)
	}

	if t.VerifyDelay <= 0 {
		return fmt.Errorf("VERIFY_DELAY must be positive, got %v", t.VerifyDelay)
	}

	if t.OrderTimeout <= 0 {
		return fmt.Errorf("ORDER_TIMEOUT must be positive, got %v", t.OrderTimeout)
	}

	if t.TradeCooldown < 0 {
		return fmt.Errorf("TRADE_COOLDOWN cannot be negative, got %v", t.TradeCooldown)
	}

	if c.Monitor.Port < 1 || c.Monitor.Port > 65535 {
		return fmt.Errorf("MONITOR_PORT must be between 1 and 65535, got %d", c.Monitor.Port)
	}

	if c.Journal.Enabled {
		if c.Journal.Port < 1 || c.Journal.Port > 65535 {
			return fmt.Errorf("DB_PORT must be between 1 and 65535, got %d", c.Journal.Port)
		}
	}

	return nil
}

// DSN возвращает строку подключения к базе данных
func (j JournalConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		j.Host, j.Port, j.User, j.Password, j.Name, j.SSLMode)
}

// DSNWithoutPassword возвращает строку подключения без пароля (для логирования)
func (j JournalConfig) DSNWithoutPassword() string {
	return fmt.Sprintf("host=%s port=%d user=%s dbname=%s sslmode=%s",
		j.Host, j.Port, j.User, j.Name, j.SSLMode)
}

// Вспомогательные функции для чтения переменных окружения

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsList(key string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return nil
	}
	parts := strings.Split(valueStr, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
