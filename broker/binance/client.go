// Package binance implements the market-data and execution collaborators
// against the binance spot REST API.
package binance

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rustyeddy/cryptobot/broker"
	"github.com/rustyeddy/cryptobot/market"
)

const (
	// LiveURL is the production spot API.
	LiveURL = "https://api.binance.com"
	// TestnetURL is the spot testnet for paper trading.
	TestnetURL = "https://testnet.binance.vision"
)

// Config for the REST client.
type Config struct {
	APIKey    string
	APISecret string
	Testnet   bool
	Interval  string        // candle interval, e.g. "1h"
	Timeout   time.Duration // per-request bound; a stalled exchange must not stall the tick loop
}

// Client is a binance spot REST client implementing broker.MarketData and
// broker.Execution.
type Client struct {
	baseURL    string
	apiKey     string
	apiSecret  string
	interval   string
	httpClient *http.Client
}

// NewClient creates a client for the live or testnet environment.
func NewClient(cfg Config) *Client {
	baseURL := LiveURL
	if cfg.Testnet {
		baseURL = TestnetURL
	}
	if cfg.Interval == "" {
		cfg.Interval = "1h"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}

	return &Client{
		baseURL:   baseURL,
		apiKey:    cfg.APIKey,
		apiSecret: cfg.APISecret,
		interval:  cfg.Interval,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// apiSymbol converts "ADA/USDT" to the exchange's "ADAUSDT" form.
func apiSymbol(symbol string) string {
	return strings.ToUpper(strings.ReplaceAll(symbol, "/", ""))
}

// RecentCandles fetches the most recent closed klines for a symbol. Any
// transport or exchange failure wraps broker.ErrDataUnavailable.
func (c *Client) RecentCandles(ctx context.Context, symbol string, count int) ([]market.Candle, error) {
	q := url.Values{}
	q.Set("symbol", apiSymbol(symbol))
	q.Set("interval", c.interval)
	q.Set("limit", strconv.Itoa(count))

	reqURL := fmt.Sprintf("%s/api/v3/klines?%s", c.baseURL, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("binance: build klines request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("binance: fetch klines for %s: %v: %w",
			symbol, err, broker.ErrDataUnavailable)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("binance: read klines body: %v: %w", err, broker.ErrDataUnavailable)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("binance: klines %s status %d: %s: %w",
			symbol, resp.StatusCode, strings.TrimSpace(string(body)), broker.ErrDataUnavailable)
	}

	// Klines arrive as arrays of mixed numbers and strings:
	// [openTime, "open", "high", "low", "close", "volume", closeTime, ...]
	var rows [][]any
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("binance: decode klines: %v: %w", err, broker.ErrDataUnavailable)
	}

	candles := make([]market.Candle, 0, len(rows))
	for i, row := range rows {
		candle, err := parseKline(row)
		if err != nil {
			return nil, fmt.Errorf("binance: kline %d: %v: %w", i, err, broker.ErrDataUnavailable)
		}
		candles = append(candles, candle)
	}
	return candles, nil
}

func parseKline(row []any) (market.Candle, error) {
	if len(row) < 6 {
		return market.Candle{}, fmt.Errorf("short row (%d fields)", len(row))
	}

	openMillis, ok := row[0].(float64)
	if !ok {
		return market.Candle{}, fmt.Errorf("bad open time %v", row[0])
	}

	vals := make([]float64, 5)
	for i := 1; i <= 5; i++ {
		s, ok := row[i].(string)
		if !ok {
			return market.Candle{}, fmt.Errorf("field %d is not a string", i)
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return market.Candle{}, fmt.Errorf("field %d: %w", i, err)
		}
		vals[i-1] = v
	}

	return market.Candle{
		Time:   time.UnixMilli(int64(openMillis)).UTC(),
		Open:   vals[0],
		High:   vals[1],
		Low:    vals[2],
		Close:  vals[3],
		Volume: vals[4],
	}, nil
}

// orderResponse is the subset of the order endpoint's reply we use.
type orderResponse struct {
	OrderID      int64  `json:"orderId"`
	ExecutedQty  string `json:"executedQty"`
	QuoteQty     string `json:"cummulativeQuoteQty"`
	TransactTime int64  `json:"transactTime"`
	Fills        []struct {
		Price string `json:"price"`
		Qty   string `json:"qty"`
	} `json:"fills"`
}

type apiError struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

// PlaceMarketOrder submits a signed spot market order. Exchange rejections
// return *broker.OrderRejectedError; timeouts, where the order state is
// unknown, wrap broker.ErrOrderTimeout.
func (c *Client) PlaceMarketOrder(ctx context.Context, symbol string, side broker.Side, units float64) (broker.Fill, error) {
	q := url.Values{}
	q.Set("symbol", apiSymbol(symbol))
	q.Set("side", side.String())
	q.Set("type", "MARKET")
	q.Set("quantity", strconv.FormatFloat(units, 'f', 8, 64))
	q.Set("timestamp", strconv.FormatInt(time.Now().UnixMilli(), 10))

	query := q.Encode()
	query += "&signature=" + c.sign(query)

	reqURL := fmt.Sprintf("%s/api/v3/order?%s", c.baseURL, query)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, nil)
	if err != nil {
		return broker.Fill{}, fmt.Errorf("binance: build order request: %w", err)
	}
	req.Header.Set("X-MBX-APIKEY", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// The request may or may not have reached the exchange; never assume
		// it did not fill.
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return broker.Fill{}, fmt.Errorf("binance: order %s %s: %v: %w",
				side, symbol, err, broker.ErrOrderTimeout)
		}
		return broker.Fill{}, &broker.OrderRejectedError{
			Symbol: symbol, Side: side, Units: units, Reason: err.Error(),
		}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return broker.Fill{}, fmt.Errorf("binance: read order body: %v: %w", err, broker.ErrOrderTimeout)
	}

	if resp.StatusCode != http.StatusOK {
		reason := strings.TrimSpace(string(body))
		var apiErr apiError
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Msg != "" {
			reason = fmt.Sprintf("%s (code %d)", apiErr.Msg, apiErr.Code)
		}
		return broker.Fill{}, &broker.OrderRejectedError{
			Symbol: symbol, Side: side, Units: units, Reason: reason,
		}
	}

	var or orderResponse
	if err := json.Unmarshal(body, &or); err != nil {
		return broker.Fill{}, fmt.Errorf("binance: decode order response: %w", err)
	}

	fill := broker.Fill{
		OrderID: strconv.FormatInt(or.OrderID, 10),
		Symbol:  symbol,
		Side:    side,
		Units:   units,
		Time:    time.UnixMilli(or.TransactTime).UTC(),
	}
	fill.Price, err = avgFillPrice(or)
	if err != nil {
		return broker.Fill{}, fmt.Errorf("binance: order response: %w", err)
	}
	if qty, err := strconv.ParseFloat(or.ExecutedQty, 64); err == nil && qty > 0 {
		fill.Units = qty
	}
	return fill, nil
}

// avgFillPrice computes the quantity-weighted average price across partial
// fills, falling back to quote/base quantity when fills are omitted.
func avgFillPrice(or orderResponse) (float64, error) {
	var notional, qty float64
	for _, f := range or.Fills {
		p, err := strconv.ParseFloat(f.Price, 64)
		if err != nil {
			return 0, fmt.Errorf("fill price %q: %w", f.Price, err)
		}
		q, err := strconv.ParseFloat(f.Qty, 64)
		if err != nil {
			return 0, fmt.Errorf("fill qty %q: %w", f.Qty, err)
		}
		notional += p * q
		qty += q
	}
	if qty > 0 {
		return notional / qty, nil
	}

	quote, err1 := strconv.ParseFloat(or.QuoteQty, 64)
	base, err2 := strconv.ParseFloat(or.ExecutedQty, 64)
	if err1 == nil && err2 == nil && base > 0 {
		return quote / base, nil
	}
	return 0, fmt.Errorf("no fills and no executed quantity")
}

func (c *Client) sign(query string) string {
	mac := hmac.New(sha256.New, []byte(c.apiSecret))
	mac.Write([]byte(query))
	return hex.EncodeToString(mac.Sum(nil))
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}
