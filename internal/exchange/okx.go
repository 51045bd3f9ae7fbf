package exchange

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"

	"crossarb/pkg/ratelimit"
)

const okxBaseURL = "https://www.okx.com"

var okxJSON = jsoniter.ConfigCompatibleWithStandardLibrary

// OKX реализует интерфейс Gateway для биржи OKX (spot)
type OKX struct {
	apiKey     string
	secretKey  string
	passphrase string
	sandbox    bool
	baseURL    string

	httpClient *http.Client
	limiter    *ratelimit.RateLimiter
}

// NewOKX создает новый шлюз OKX
// sandbox=true включает demo trading (заголовок x-simulated-trading)
func NewOKX(sandbox bool) *OKX {
	return &OKX{
		sandbox:    sandbox,
		baseURL:    okxBaseURL,
		httpClient: GetGlobalHTTPClient().GetClient(),
		limiter:    ratelimit.NewRateLimiter(10, 20),
	}
}

func (o *OKX) Name() string {
	return VenueOKX
}

// symbol конвертирует унифицированный символ в формат OKX
// BTC/USDT → BTC-USDT
func (o *OKX) symbol(unified string) string {
	return strings.ReplaceAll(unified, "/", "-")
}

// sign создаёт подпись запроса: base64(HMAC-SHA256(timestamp+method+path+body))
func (o *OKX) sign(timestamp, method, requestPath, body string) string {
	h := hmac.New(sha256.New, []byte(o.secretKey))
	h.Write([]byte(timestamp + method + requestPath + body))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

// okxResponse - общий конверт ответа OKX API
// code != "0" означает ошибку даже при HTTP 200
type okxResponse struct {
	Code string              `json:"code"`
	Msg  string              `json:"msg"`
	Data jsoniter.RawMessage `json:"data"`
}

// doRequest выполняет HTTP запрос к OKX API
// requestPath должен включать query string, она участвует в подписи
func (o *OKX) doRequest(ctx context.Context, method, requestPath, body string, signed bool) (jsoniter.RawMessage, error) {
	if err := o.limiter.Wait(ctx); err != nil {
		return nil, &GatewayError{Venue: VenueOKX, Message: "rate limiter: " + err.Error(), Original: err}
	}

	var bodyReader io.Reader
	if body != "" {
		bodyReader = bytes.NewBufferString(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, o.baseURL+requestPath, bodyReader)
	if err != nil {
		return nil, &GatewayError{Venue: VenueOKX, Message: err.Error(), Original: err}
	}

	req.Header.Set("Content-Type", "application/json")

	if signed {
		timestamp := time.Now().UTC().Format("2006-01-02T15:04:05.000Z")
		req.Header.Set("OK-ACCESS-KEY", o.apiKey)
		req.Header.Set("OK-ACCESS-SIGN", o.sign(timestamp, method, requestPath, body))
		req.Header.Set("OK-ACCESS-TIMESTAMP", timestamp)
		req.Header.Set("OK-ACCESS-PASSPHRASE", o.passphrase)
	}

	if o.sandbox {
		req.Header.Set("x-simulated-trading", "1")
	}

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, &GatewayError{Venue: VenueOKX, Message: err.Error(), Original: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &GatewayError{Venue: VenueOKX, Message: err.Error(), Original: err}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &GatewayError{
			Venue:   VenueOKX,
			Code:    strconv.Itoa(resp.StatusCode),
			Message: fmt.Sprintf("unexpected HTTP status %d: %s", resp.StatusCode, string(respBody)),
		}
	}

	var envelope okxResponse
	if err := okxJSON.Unmarshal(respBody, &envelope); err != nil {
		return nil, &GatewayError{Venue: VenueOKX, Message: "decode response: " + err.Error(), Original: err}
	}

	if envelope.Code != "0" {
		return nil, &GatewayError{
			Venue:   VenueOKX,
			Code:    envelope.Code,
			Message: envelope.Msg,
		}
	}

	return envelope.Data, nil
}

func (o *OKX) Connect(ctx context.Context, apiKey, secret, passphrase string) error {
	o.apiKey = apiKey
	o.secretKey = secret
	o.passphrase = passphrase

	// Проверяем валидность ключей запросом баланса аккаунта
	if _, err := o.doRequest(ctx, http.MethodGet, "/api/v5/account/balance", "", true); err != nil {
		return fmt.Errorf("failed to connect to okx: %w", err)
	}

	return nil
}

func (o *OKX) GetBalance(ctx context.Context, asset string) (float64, error) {
	data, err := o.doRequest(ctx, http.MethodGet, "/api/v5/account/balance?ccy="+asset, "", true)
	if err != nil {
		return 0, err
	}

	var accounts []struct {
		Details []struct {
			Ccy      string `json:"ccy"`
			AvailBal string `json:"availBal"`
		} `json:"details"`
	}

	if err := okxJSON.Unmarshal(data, &accounts); err != nil {
		return 0, &GatewayError{Venue: VenueOKX, Message: "decode balance: " + err.Error(), Original: err}
	}

	for _, acc := range accounts {
		for _, det := range acc.Details {
			if det.Ccy == asset {
				avail, err := strconv.ParseFloat(det.AvailBal, 64)
				if err != nil {
					return 0, &GatewayError{Venue: VenueOKX, Message: "parse balance: " + err.Error(), Original: err}
				}
				return avail, nil
			}
		}
	}

	return 0, nil
}

func (o *OKX) GetBestAsk(ctx context.Context, symbol string) (float64, error) {
	data, err := o.doRequest(ctx, http.MethodGet, "/api/v5/market/ticker?instId="+o.symbol(symbol), "", false)
	if err != nil {
		return 0, err
	}

	var tickers []struct {
		AskPx string `json:"askPx"`
	}

	if err := okxJSON.Unmarshal(data, &tickers); err != nil {
		return 0, &GatewayError{Venue: VenueOKX, Message: "decode ticker: " + err.Error(), Original: err}
	}

	if len(tickers) == 0 {
		return 0, &GatewayError{Venue: VenueOKX, Message: "empty ticker response for " + symbol}
	}

	ask, err := strconv.ParseFloat(tickers[0].AskPx, 64)
	if err != nil {
		return 0, &GatewayError{Venue: VenueOKX, Message: "parse ask price: " + err.Error(), Original: err}
	}

	return ask, nil
}

func (o *OKX) PlaceMarketOrder(ctx context.Context, symbol, side string, qty float64) (string, error) {
	// tgtCcy=base_ccy: размер рыночного ордера задаётся в базовой валюте
	// для обеих сторон, иначе OKX трактует sz покупки как сумму в quote
	orderReq := map[string]string{
		"instId":  o.symbol(symbol),
		"tdMode":  "cash",
		"side":    side,
		"ordType": "market",
		"sz":      strconv.FormatFloat(qty, 'f', -1, 64),
		"tgtCcy":  "base_ccy",
	}

	body, err := okxJSON.Marshal(orderReq)
	if err != nil {
		return "", &GatewayError{Venue: VenueOKX, Message: "encode order: " + err.Error(), Original: err}
	}

	data, err := o.doRequest(ctx, http.MethodPost, "/api/v5/trade/order", string(body), true)
	if err != nil {
		return "", err
	}

	var results []struct {
		OrdID string `json:"ordId"`
		SCode string `json:"sCode"`
		SMsg  string `json:"sMsg"`
	}

	if err := okxJSON.Unmarshal(data, &results); err != nil {
		return "", &GatewayError{Venue: VenueOKX, Message: "decode order: " + err.Error(), Original: err}
	}

	if len(results) == 0 {
		return "", &GatewayError{Venue: VenueOKX, Message: "empty order response"}
	}

	// Для batch-эндпоинтов общий code может быть "0" при ошибке
	// отдельного ордера, поэтому проверяем sCode каждого элемента
	if results[0].SCode != "" && results[0].SCode != "0" {
		return "", &GatewayError{
			Venue:   VenueOKX,
			Code:    results[0].SCode,
			Message: results[0].SMsg,
		}
	}

	if results[0].OrdID == "" {
		return "", &GatewayError{Venue: VenueOKX, Message: "order response without ordId"}
	}

	return results[0].OrdID, nil
}

func (o *OKX) GetOrderStatus(ctx context.Context, symbol, orderID string) (*OrderStatus, error) {
	path := "/api/v5/trade/order?instId=" + o.symbol(symbol) + "&ordId=" + orderID

	data, err := o.doRequest(ctx, http.MethodGet, path, "", true)
	if err != nil {
		return nil, err
	}

	var orders []struct {
		OrdID   string `json:"ordId"`
		State   string `json:"state"`
		AvgPx   string `json:"avgPx"`
		AccFill string `json:"accFillSz"`
	}

	if err := okxJSON.Unmarshal(data, &orders); err != nil {
		return nil, &GatewayError{Venue: VenueOKX, Message: "decode order status: " + err.Error(), Original: err}
	}

	if len(orders) == 0 {
		return nil, &GatewayError{Venue: VenueOKX, Message: "order not found: " + orderID}
	}

	avgPx, _ := strconv.ParseFloat(orders[0].AvgPx, 64)
	accFill, _ := strconv.ParseFloat(orders[0].AccFill, 64)

	st := &OrderStatus{
		ID:          orderID,
		FilledPrice: avgPx,
		FilledQty:   accFill,
	}

	switch orders[0].State {
	case "filled":
		st.Status = OrderStatusFilled
	case "canceled", "mmp_canceled":
		st.Status = OrderStatusCancelled
	default: // live, partially_filled
		st.Status = OrderStatusPending
	}

	return st, nil
}

func (o *OKX) Close() error {
	return nil
}
