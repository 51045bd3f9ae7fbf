package feed

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"crossarb/internal/exchange"
)

// OKXSource - поток цен OKX через публичный WebSocket
//
// Подписывается на канал tickers и публикует последнюю цену сделки
// (поле "last") для каждого обновления.
type OKXSource struct {
	wsURL  string
	instID string // формат OKX: BTC-USDT
	logger *zap.Logger
}

// NewOKXSource создает источник цен OKX
// symbol передаётся в унифицированном формате (BTC/USDT)
func NewOKXSource(wsURL, symbol string, logger *zap.Logger) *OKXSource {
	return &OKXSource{
		wsURL:  wsURL,
		instID: strings.ReplaceAll(symbol, "/", "-"),
		logger: logger.With(zap.String("venue", exchange.VenueOKX)),
	}
}

func (s *OKXSource) Venue() string {
	return exchange.VenueOKX
}

// okxTickerMsg - сообщение канала tickers
type okxTickerMsg struct {
	Event string `json:"event"`
	Data  []struct {
		InstID string `json:"instId"`
		Last   string `json:"last"`
	} `json:"data"`
}

func (s *OKXSource) Run(ctx context.Context, out chan<- Tick) {
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
func (s *OKXSource) stream(ctx context.Context, out chan<- Tick) error {
	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}

	conn, _, err := dialer.DialContext(ctx, s.wsURL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

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
		"op": "subscribe",
		"args": []map[string]string{
			{"channel": "tickers", "instId": s.instID},
		},
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

		// OKX отвечает "pong" как plain text на ping
		if string(message) == "pong" {
			continue
		}

		var msg okxTickerMsg
		if err := feedJSON.Unmarshal(message, &msg); err != nil {
			continue
		}

		if msg.Event == "error" {
			s.logger.Warn("Ошибка подписки", zap.ByteString("message", message))
			continue
		}

		if len(msg.Data) == 0 {
			continue
		}

		price, err := strconv.ParseFloat(msg.Data[0].Last, 64)
		if err != nil || price <= 0 {
			s.logger.Debug("Некорректная цена в тике", zap.String("raw", msg.Data[0].Last))
			continue
		}

		tick := Tick{
			Venue: exchange.VenueOKX,
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
