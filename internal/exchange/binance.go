package exchange

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"

	"crossarb/pkg/ratelimit"
)

const (
	binanceBaseURL        = "https://api.binance.com"
	binanceTestnetBaseURL = "https://testnet.binance.vision"
)

var binanceJSON = jsoniter.ConfigCompatibleWithStandardLibrary

// Binance реализует интерфейс Gateway для биржи Binance (spot)
type Binance struct {
	apiKey    string
	secretKey string
	baseURL   string

	httpClient *http.Client
	limiter    *ratelimit.RateLimiter
}

// NewBinance создает новый шлюз Binance
// sandbox=true переключает на testnet (testnet.binance.vision)
func NewBinance(sandbox bool) *Binance {
	baseURL := binanceBaseURL
	if sandbox {
		baseURL = binanceTestnetBaseURL
	}

	return &Binance{
		baseURL:    baseURL,
		httpClient: GetGlobalHTTPClient().GetClient(),
		limiter:    ratelimit.NewRateLimiter(20, 40),
	}
}

func (b *Binance) Name() string {
	return VenueBinance
}

// symbol конвертирует унифицированный символ в формат Binance
// BTC/USDT → BTCUSDT
func (b *Binance) symbol(unified string) string {
	return strings.ReplaceAll(unified, "/", "")
}

// sign создает HMAC-SHA256 подпись строки запроса
func (b *Binance) sign(query string) string {
	h := hmac.New(sha256.New, []byte(b.secretKey))
	h.Write([]byte(query))
	return hex.EncodeToString(h.Sum(nil))
}

// doRequest выполняет HTTP запрос к Binance API
// Для подписанных запросов добавляет timestamp и signature в query string
func (b *Binance) doRequest(ctx context.Context, method, endpoint string, params url.Values, signed bool) ([]byte, error) {
	if err := b.limiter.Wait(ctx); err != nil {
		return nil, &GatewayError{Venue: VenueBinance, Message: "rate limiter: " + err.Error(), Original: err}
	}

	if params == nil {
		params = url.Values{}
	}

	if signed {
		params.Set("timestamp", strconv.FormatInt(time.Now().UnixMilli(), 10))
		params.Set("recvWindow", "5000")
		params.Set("signature", b.sign(params.Encode()))
	}

	reqURL := b.baseURL + endpoint
	if encoded := params.Encode(); encoded != "" {
		reqURL += "?" + encoded
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, nil)
	if err != nil {
		return nil, &GatewayError{Venue: VenueBinance, Message: err.Error(), Original: err}
	}

	if signed {
		req.Header.Set("X-MBX-APIKEY", b.apiKey)
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, &GatewayError{Venue: VenueBinance, Message: err.Error(), Original: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &GatewayError{Venue: VenueBinance, Message: err.Error(), Original: err}
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Code int    `json:"code"`
			Msg  string `json:"msg"`
		}
		if err := binanceJSON.Unmarshal(body, &apiErr); err == nil && apiErr.Msg != "" {
			return nil, &GatewayError{
				Venue:   VenueBinance,
				Code:    strconv.Itoa(apiErr.Code),
				Message: apiErr.Msg,
			}
		}
		return nil, &GatewayError{
			Venue:   VenueBinance,
			Code:    strconv.Itoa(resp.StatusCode),
			Message: fmt.Sprintf("unexpected HTTP status %d", resp.StatusCode),
		}
	}

	return body, nil
}

func (b *Binance) Connect(ctx context.Context, apiKey, secret, passphrase string) error {
	b.apiKey = apiKey
	b.secretKey = secret

	// Проверяем доступность и валидность ключей запросом аккаунта
	if _, err := b.doRequest(ctx, http.MethodGet, "/api/v3/account", nil, true); err != nil {
		return fmt.Errorf("failed to connect to binance: %w", err)
	}

	return nil
}

func (b *Binance) GetBalance(ctx context.Context, asset string) (float64, error) {
	body, err := b.doRequest(ctx, http.MethodGet, "/api/v3/account", nil, true)
	if err != nil {
		return 0, err
	}

	var resp struct {
		Balances []struct {
			Asset string `json:"asset"`
			Free  string `json:"free"`
		} `json:"balances"`
	}

	if err := binanceJSON.Unmarshal(body, &resp); err != nil {
		return 0, &GatewayError{Venue: VenueBinance, Message: "decode account: " + err.Error(), Original: err}
	}

	for _, bal := range resp.Balances {
		if bal.Asset == asset {
			free, err := strconv.ParseFloat(bal.Free, 64)
			if err != nil {
				return 0, &GatewayError{Venue: VenueBinance, Message: "parse balance: " + err.Error(), Original: err}
			}
			return free, nil
		}
	}

	return 0, nil
}

func (b *Binance) GetBestAsk(ctx context.Context, symbol string) (float64, error) {
	params := url.Values{}
	params.Set("symbol", b.symbol(symbol))

	body, err := b.doRequest(ctx, http.MethodGet, "/api/v3/ticker/bookTicker", params, false)
	if err != nil {
		return 0, err
	}

	var resp struct {
		AskPrice string `json:"askPrice"`
	}

	if err := binanceJSON.Unmarshal(body, &resp); err != nil {
		return 0, &GatewayError{Venue: VenueBinance, Message: "decode ticker: " + err.Error(), Original: err}
	}

	ask, err := strconv.ParseFloat(resp.AskPrice, 64)
	if err != nil {
		return 0, &GatewayError{Venue: VenueBinance, Message: "parse ask price: " + err.Error(), Original: err}
	}

	return ask, nil
}

func (b *Binance) PlaceMarketOrder(ctx context.Context, symbol, side string, qty float64) (string, error) {
	params := url.Values{}
	params.Set("symbol", b.symbol(symbol))
	params.Set("side", strings.ToUpper(side))
	params.Set("type", "MARKET")
	params.Set("quantity", strconv.FormatFloat(qty, 'f', -1, 64))

	body, err := b.doRequest(ctx, http.MethodPost, "/api/v3/order", params, true)
	if err != nil {
		return "", err
	}

	var resp struct {
		OrderID int64 `json:"orderId"`
	}

	if err := binanceJSON.Unmarshal(body, &resp); err != nil {
		return "", &GatewayError{Venue: VenueBinance, Message: "decode order: " + err.Error(), Original: err}
	}

	if resp.OrderID == 0 {
		return "", &GatewayError{Venue: VenueBinance, Message: "order response without orderId"}
	}

	return strconv.FormatInt(resp.OrderID, 10), nil
}

func (b *Binance) GetOrderStatus(ctx context.Context, symbol, orderID string) (*OrderStatus, error) {
	params := url.Values{}
	params.Set("symbol", b.symbol(symbol))
	params.Set("orderId", orderID)

	body, err := b.doRequest(ctx, http.MethodGet, "/api/v3/order", params, true)
	if err != nil {
		return nil, err
	}

	var resp struct {
		OrderID             int64  `json:"orderId"`
		Status              string `json:"status"`
		ExecutedQty         string `json:"executedQty"`
		CummulativeQuoteQty string `json:"cummulativeQuoteQty"`
	}

	if err := binanceJSON.Unmarshal(body, &resp); err != nil {
		return nil, &GatewayError{Venue: VenueBinance, Message: "decode order status: " + err.Error(), Original: err}
	}

	executedQty, _ := strconv.ParseFloat(resp.ExecutedQty, 64)
	quoteQty, _ := strconv.ParseFloat(resp.CummulativeQuoteQty, 64)

	st := &OrderStatus{
		ID:        orderID,
		FilledQty: executedQty,
	}

	// Средняя цена исполнения: рыночный ордер может быть исполнен
	// несколькими сделками, Binance отдаёт только суммарные количества
	if executedQty > 0 {
		st.FilledPrice = quoteQty / executedQty
	}

	switch resp.Status {
	case "FILLED":
		st.Status = OrderStatusFilled
	case "CANCELED", "EXPIRED":
		st.Status = OrderStatusCancelled
	case "REJECTED":
		st.Status = OrderStatusRejected
	default: // NEW, PARTIALLY_FILLED
		st.Status = OrderStatusPending
	}

	return st, nil
}

func (b *Binance) Close() error {
	return nil
}
