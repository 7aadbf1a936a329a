package bridge

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/tidwall/gjson"

	"aurum/internal/logger"
	"aurum/internal/market"
)

// 中文说明：
// 终端桥客户端：以 request/reply JSON 的方式向交易终端侧的桥接服务拉取
// 行情快照（GET_ALL_DATA）。客户端显式持有连接，支持 Reconnect，
// 不依赖包级全局状态，便于注入测试替身。

type Config struct {
	BaseURL string
	Timeout time.Duration
}

type Client struct {
	cfg Config

	mu   sync.Mutex
	http *http.Client
}

func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Second
	}
	c := &Client{cfg: cfg}
	c.http = newHTTPClient(cfg.Timeout)
	return c
}

func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:    2,
			IdleConnTimeout: 30 * time.Second,
		},
	}
}

// Reconnect drops the pooled connection and builds a fresh client. Called by
// the orchestrator after repeated fetch timeouts.
func (c *Client) Reconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if tr, ok := c.http.Transport.(*http.Transport); ok {
		tr.CloseIdleConnections()
	}
	c.http = newHTTPClient(c.cfg.Timeout)
	logger.Warnf("bridge: reconnected client base_url=%s", c.cfg.BaseURL)
}

// Fetch 拉取完整快照；任何传输或解析失败都返回 nil 快照。
func (c *Client) Fetch(ctx context.Context) (*market.Snapshot, error) {
	c.mu.Lock()
	httpc := c.http
	c.mu.Unlock()

	body := []byte(`{"action":"GET_ALL_DATA"}`)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("bridge request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("bridge status=%d", resp.StatusCode)
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("bridge read failed: %w", err)
	}
	return ParseSnapshot(raw)
}

// ParseSnapshot decodes the bridge reply. The bridge occasionally ships an
// {"error": ...} body with HTTP 200, treated as transient unavailability.
func ParseSnapshot(raw []byte) (*market.Snapshot, error) {
	if !gjson.ValidBytes(raw) {
		return nil, fmt.Errorf("bridge reply is not valid json")
	}
	doc := gjson.ParseBytes(raw)
	if errMsg := doc.Get("error"); errMsg.Exists() {
		return nil, fmt.Errorf("bridge error: %s", errMsg.String())
	}
	tick := doc.Get("tick")
	if !tick.Exists() {
		return nil, fmt.Errorf("bridge reply missing tick block")
	}

	snap := &market.Snapshot{
		Tick: market.Tick{
			Bid:         tick.Get("bid").Float(),
			Ask:         tick.Get("ask").Float(),
			Spread:      tick.Get("spread").Float(),
			Point:       tick.Get("point").Float(),
			Digits:      int(tick.Get("digits").Int()),
			StopLevel:   tick.Get("stop_level").Float(),
			FreezeLevel: tick.Get("freeze_level").Float(),
			FeedTimeSec: tick.Get("feed_time_s").Int(),
			FeedTimeMS:  tick.Get("feed_time_ms").Int(),
		},
		Short:  parseCandles(doc.Get("short_series")),
		Medium: parseCandles(doc.Get("medium_series")),
		Hist: market.History{
			PrevHigh: doc.Get("history.prior_period_high").Float(),
			PrevLow:  doc.Get("history.prior_period_low").Float(),
		},
	}
	if err := snap.Validate(); err != nil {
		return nil, fmt.Errorf("bridge snapshot invalid: %w", err)
	}
	return snap, nil
}

func parseCandles(node gjson.Result) []market.Candle {
	if !node.IsArray() {
		return nil
	}
	arr := node.Array()
	out := make([]market.Candle, 0, len(arr))
	var lastTime int64
	for _, item := range arr {
		c := market.Candle{
			Time:  item.Get("time").Int(),
			Open:  item.Get("open").Float(),
			High:  item.Get("high").Float(),
			Low:   item.Get("low").Float(),
			Close: item.Get("close").Float(),
		}
		// duplicate or out-of-order timestamps are dropped, the series
		// contract requires strictly increasing time
		if c.Time <= lastTime {
			continue
		}
		lastTime = c.Time
		out = append(out, c)
	}
	return out
}
