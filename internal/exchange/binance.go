package exchange

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

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Binance error codes that matter to classification.
const (
	codeInvalidSymbol    = -1121
	codeMinNotional      = -1013
	codeNewOrderRejected = -2010
	codeUnknownOrder     = -2011
	codeTooManyRequests  = -1003
)

type BinanceClient struct {
	baseURL   string
	symbol    string
	baseAsset string
	quote     string
	key       string
	secret    string
	http      *http.Client
	log       *zap.Logger
	now       func() time.Time
}

func NewBinance(baseURL, symbol, baseAsset, quoteAsset, key, secret string, timeout time.Duration, log *zap.Logger) *BinanceClient {
	return &BinanceClient{
		baseURL:   strings.TrimRight(baseURL, "/"),
		symbol:    symbol,
		baseAsset: baseAsset,
		quote:     quoteAsset,
		key:       key,
		secret:    secret,
		http:      &http.Client{Timeout: timeout},
		log:       log,
		now:       time.Now,
	}
}

func (c *BinanceClient) PlaceLimitOrder(ctx context.Context, order Order) (string, error) {
	params := url.Values{}
	params.Set("symbol", c.symbol)
	params.Set("side", string(order.Side))
	params.Set("type", "LIMIT")
	params.Set("timeInForce", "GTC")
	params.Set("quantity", order.Size.String())
	params.Set("price", order.Price.String())
	if order.ClientOrderID != "" {
		params.Set("newClientOrderId", order.ClientOrderID)
	}
	var resp struct {
		OrderID int64 `json:"orderId"`
	}
	if err := c.signedRequest(ctx, http.MethodPost, "/api/v3/order", params, &resp); err != nil {
		return "", err
	}
	if resp.OrderID == 0 {
		return "", NewError(KindTransient, "missing order id in response", nil)
	}
	return strconv.FormatInt(resp.OrderID, 10), nil
}

func (c *BinanceClient) CancelOrder(ctx context.Context, ref string) error {
	params := url.Values{}
	params.Set("symbol", c.symbol)
	params.Set("orderId", ref)
	err := c.signedRequest(ctx, http.MethodDelete, "/api/v3/order", params, nil)
	var ex *Error
	if errors.As(err, &ex) && ex.Reason == "unknown order" {
		// The venue no longer knows the order: it filled or already
		// expired. Reconciliation decides which.
		return fmt.Errorf("cancel %s: %w", ref, ErrOrderGone)
	}
	return err
}

func (c *BinanceClient) OpenOrders(ctx context.Context) ([]OpenOrder, error) {
	params := url.Values{}
	params.Set("symbol", c.symbol)
	var resp []struct {
		OrderID  int64  `json:"orderId"`
		Side     string `json:"side"`
		Price    string `json:"price"`
		OrigQty  string `json:"origQty"`
		Status   string `json:"status"`
		Executed string `json:"executedQty"`
	}
	if err := c.signedRequest(ctx, http.MethodGet, "/api/v3/openOrders", params, &resp); err != nil {
		return nil, err
	}
	out := make([]OpenOrder, 0, len(resp))
	for _, o := range resp {
		price, err := decimal.NewFromString(o.Price)
		if err != nil {
			return nil, fmt.Errorf("open order %d price: %w", o.OrderID, err)
		}
		size, err := decimal.NewFromString(o.OrigQty)
		if err != nil {
			return nil, fmt.Errorf("open order %d size: %w", o.OrderID, err)
		}
		out = append(out, OpenOrder{
			Ref:   strconv.FormatInt(o.OrderID, 10),
			Side:  Side(o.Side),
			Price: price,
			Size:  size,
		})
	}
	return out, nil
}

func (c *BinanceClient) RecentFills(ctx context.Context, since time.Time) ([]Fill, error) {
	params := url.Values{}
	params.Set("symbol", c.symbol)
	if !since.IsZero() {
		params.Set("startTime", strconv.FormatInt(since.UnixMilli(), 10))
	}
	var resp []struct {
		ID      int64  `json:"id"`
		OrderID int64  `json:"orderId"`
		Price   string `json:"price"`
		Qty     string `json:"qty"`
		IsBuyer bool   `json:"isBuyer"`
		Time    int64  `json:"time"`
	}
	if err := c.signedRequest(ctx, http.MethodGet, "/api/v3/myTrades", params, &resp); err != nil {
		return nil, err
	}
	out := make([]Fill, 0, len(resp))
	for _, f := range resp {
		price, err := decimal.NewFromString(f.Price)
		if err != nil {
			return nil, fmt.Errorf("fill %d price: %w", f.ID, err)
		}
		size, err := decimal.NewFromString(f.Qty)
		if err != nil {
			return nil, fmt.Errorf("fill %d size: %w", f.ID, err)
		}
		side := SideSell
		if f.IsBuyer {
			side = SideBuy
		}
		out = append(out, Fill{
			OrderRef: strconv.FormatInt(f.OrderID, 10),
			TradeID:  strconv.FormatInt(f.ID, 10),
			Side:     side,
			Price:    price,
			Size:     size,
			Time:     time.UnixMilli(f.Time),
		})
	}
	return out, nil
}

func (c *BinanceClient) Balances(ctx context.Context) (Balances, error) {
	var resp struct {
		Balances []struct {
			Asset string `json:"asset"`
			Free  string `json:"free"`
		} `json:"balances"`
	}
	if err := c.signedRequest(ctx, http.MethodGet, "/api/v3/account", url.Values{}, &resp); err != nil {
		return Balances{}, err
	}
	var out Balances
	for _, b := range resp.Balances {
		free, err := decimal.NewFromString(b.Free)
		if err != nil {
			return Balances{}, fmt.Errorf("balance %s: %w", b.Asset, err)
		}
		switch b.Asset {
		case c.baseAsset:
			out.Base = free
		case c.quote:
			out.Quote = free
		}
	}
	return out, nil
}

func (c *BinanceClient) signedRequest(ctx context.Context, method, path string, params url.Values, out interface{}) error {
	params.Set("timestamp", strconv.FormatInt(c.now().UnixMilli(), 10))
	query := params.Encode()
	query += "&signature=" + c.sign(query)

	var reqURL string
	var body io.Reader
	if method == http.MethodGet {
		reqURL = c.baseURL + path + "?" + query
	} else {
		reqURL = c.baseURL + path
		body = strings.NewReader(query)
	}
	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return err
	}
	req.Header.Set("X-MBX-APIKEY", c.key)
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return classifyHTTP(resp.StatusCode, raw)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *BinanceClient) sign(query string) string {
	mac := hmac.New(sha256.New, []byte(c.secret))
	mac.Write([]byte(query))
	return hex.EncodeToString(mac.Sum(nil))
}

func classifyHTTP(status int, body []byte) error {
	var apiErr struct {
		Code int    `json:"code"`
		Msg  string `json:"msg"`
	}
	_ = json.Unmarshal(body, &apiErr)
	msg := strings.TrimSpace(apiErr.Msg)
	if msg == "" {
		msg = strings.TrimSpace(string(body))
	}
	base := fmt.Errorf("http %d: %s", status, msg)

	switch {
	case status == http.StatusTooManyRequests || status == 418 || apiErr.Code == codeTooManyRequests:
		return NewError(KindRateLimited, msg, base)
	case status >= 500:
		return NewError(KindTransient, msg, base)
	}
	switch apiErr.Code {
	case codeInvalidSymbol:
		return NewError(KindPermanent, msg, base)
	case codeMinNotional:
		return NewError(KindMinimumNotMet, msg, base)
	case codeUnknownOrder:
		return NewError(KindRejected, "unknown order", base)
	case codeNewOrderRejected:
		if strings.Contains(strings.ToLower(msg), "notional") {
			return NewError(KindMinimumNotMet, msg, base)
		}
		return NewError(KindRejected, msg, base)
	}
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return NewError(KindPermanent, msg, base)
	}
	return NewError(KindRejected, msg, base)
}
