package feed

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"crossarb/internal/exchange"
)

var feedJSON = jsoniter.ConfigCompatibleWithStandardLibrary

// BinanceSource - поток цен Binance через WebSocket stream
//
// Подписывается на канал <symbol>@ticker и публикует последнюю цену
// сделки (поле "c") для каждого обновления.
type BinanceSource struct {
	wsURL  string
	symbol string // формат stream: btcusdt
	logger *zap.Logger
}

// NewBinanceSource создает источник цен Binance
// symbol передаётся в унифицированном формате (BTC/USDT)
func NewBinanceSource(wsURL, symbol string, logger *zap.Logger) *BinanceSource {
	return &BinanceSource{
		wsURL:  wsURL,
		symbol: strings.ToLower(strings.ReplaceAll(symbol, "/", "")),
		logger: logger.With(zap.String("venue", exchange.VenueBinance)),
	}
}

func (s *BinanceSource) Venue() string {
	return exchange.VenueBinance
}

// binanceTicker - сообщение канала @ticker
// Интересуют только символ и последняя цена
type binanceTicker struct {
	Symbol    string `json:"s"`
	LastPrice string `json:"c"`
}

func (s *BinanceSource) Run(ctx context.Context, out chan<- Tick) {
	delay := reconnectDelay

	for {
		if ctx.Err() != nil {
			return
		}

		err := s.stream(ctx, out)
		if ctx.Err() != nil {
			return
		}

		s.logger.Warn("Поток прерван, переподключение",
			zap.Error(err),
			zap.Duration("delay", delay))

		if !sleepCtx(ctx, delay) {
			return
		}
		delay = nextDelay(delay)
	}
}

// stream держит одно соединение до первой ошибки чтения
func (s *BinanceSource) stream(ctx context.Context, out chan<- Tick) error {
	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}

	conn, _, err := dialer.DialContext(ctx, s.wsURL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	// Закрываем соединение при отмене контекста, чтобы разблокировать ReadMessage
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	subscribe := map[string]interface{}{
		"method": "SUBSCRIBE",
		"params": []string{s.symbol + "@ticker"},
		"id":     1,
	}
	if err := conn.WriteJSON(subscribe); err != nil {
		return err
	}

	s.logger.Info("Подключен к потоку цен", zap.String("url", s.wsURL))

	for {
		conn.SetReadDeadline(time.Now().Add(readTimeout))

		_, message, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var ticker binanceTicker
		if err := feedJSON.Unmarshal(message, &ticker); err != nil {
			// Служебные сообщения (ответ на подписку) пропускаем молча
			continue
		}

		if ticker.LastPrice == "" {
			continue
		}

		price, err := strconv.ParseFloat(ticker.LastPrice, 64)
		if err != nil || price <= 0 {
			s.logger.Debug("Некорректная цена в тике", zap.String("raw", ticker.LastPrice))
			continue
		}

		tick := Tick{
			Venue: exchange.VenueBinance,
			Price: price,
			At:    time.Now(),
		}

		select {
		case out <- tick:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
