package exchange

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
)

// TickerStream maintains a websocket subscription to the symbol's
// miniTicker stream and hands raw close prices to a handler. It
// reconnects and resubscribes on read failures.
type TickerStream struct {
	url            string
	symbol         string
	reconnectDelay time.Duration
	pingInterval   time.Duration
	log            *zap.Logger

	mu   sync.Mutex
	conn *websocket.Conn
}

func NewTickerStream(url, symbol string, reconnectDelay, pingInterval time.Duration, log *zap.Logger) *TickerStream {
	return &TickerStream{
		url:            url,
		symbol:         strings.ToLower(symbol),
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
		log:            log,
	}
}

type tickerEvent struct {
	EventType string `json:"e"`
	Symbol    string `json:"s"`
	Close     string `json:"c"`
	EventTime int64  `json:"E"`
}

// Run blocks until ctx is cancelled, invoking handler with each close
// price observed on the stream.
func (s *TickerStream) Run(ctx context.Context, handler func(price string, at time.Time)) error {
	for {
		if err := s.connect(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.log.Warn("ticker stream connect failed", zap.Error(err))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(s.reconnectDelay):
			}
			continue
		}
		pingCtx, cancel := context.WithCancel(ctx)
		pingDone := make(chan struct{})
		go func() {
			defer close(pingDone)
			s.pingLoop(pingCtx)
		}()
		err := s.readLoop(ctx, handler)
		cancel()
		<-pingDone
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.logReadLoopError(err)
		s.resetConn()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.reconnectDelay):
		}
	}
}

func (s *TickerStream) connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		return nil
	}
	conn, _, err := websocket.Dial(ctx, s.url, nil)
	if err != nil {
		return err
	}
	sub := map[string]any{
		"method": "SUBSCRIBE",
		"params": []string{s.symbol + "@miniTicker"},
		"id":     1,
	}
	if err := writeJSON(ctx, conn, sub); err != nil {
		_ = conn.Close(websocket.StatusNormalClosure, "subscribe failed")
		return err
	}
	s.conn = conn
	return nil
}

func (s *TickerStream) readLoop(ctx context.Context, handler func(price string, at time.Time)) error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return errors.New("ws not connected")
	}
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}
		var ev tickerEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			continue
		}
		if ev.Close == "" {
			continue
		}
		at := time.UnixMilli(ev.EventTime)
		if ev.EventTime == 0 {
			at = time.Now()
		}
		handler(ev.Close, at)
	}
}

func (s *TickerStream) pingLoop(ctx context.Context) {
	s.mu.Lock()
	conn := s.conn
	interval := s.pingInterval
	s.mu.Unlock()
	if conn == nil || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.Ping(ctx); err != nil {
				return
			}
		}
	}
}

func (s *TickerStream) logReadLoopError(err error) {
	if s.log == nil {
		return
	}
	if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
		s.log.Info("ticker stream closed", zap.Error(err))
		return
	}
	s.log.Warn("ticker stream read failed", zap.Error(err))
}

func (s *TickerStream) resetConn() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		_ = s.conn.Close(websocket.StatusNormalClosure, "reset")
		s.conn = nil
	}
}

func writeJSON(ctx context.Context, conn *websocket.Conn, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, data)
}
