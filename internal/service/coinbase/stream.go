package coinbase

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"CoinFolio/internal/domain/models"
	drepo "CoinFolio/internal/domain/repository"
	applogger "CoinFolio/pkg/logger"
	"CoinFolio/pkg/util"

	"github.com/gorilla/websocket"
)

// DefaultFeedURL is the Coinbase Exchange WebSocket endpoint.
const DefaultFeedURL = "wss://ws-feed.exchange.coinbase.com"

// Stream implements a LiveFeed over the Coinbase ticker channel.
type Stream struct {
	feedURL        string
	quoteCcy       string
	reconnectDelay time.Duration
	pingInterval   time.Duration
	logger         *applogger.Logger

	mu        sync.Mutex
	conn      *websocket.Conn
	symbols   []string
	connected bool
}

// NewStream creates a Coinbase live ticker feed.
func NewStream(feedURL, quoteCcy string, reconnectDelay, pingInterval time.Duration, logger *applogger.Logger) drepo.LiveFeed {
	if feedURL == "" {
		feedURL = DefaultFeedURL
	}
	if quoteCcy == "" {
		quoteCcy = "USD"
	}
	if reconnectDelay <= 0 {
		reconnectDelay = 5 * time.Second
	}
	if pingInterval <= 0 {
		pingInterval = 20 * time.Second
	}
	return &Stream{
		feedURL:        feedURL,
		quoteCcy:       quoteCcy,
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
		logger:         logger,
	}
}

// Connect establishes the WebSocket connection.
func (s *Stream) Connect(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.feedURL, nil)
	if err != nil {
		return fmt.Errorf("coinbase feed connect: %w", err)
	}
	s.mu.Lock()
	s.conn = conn
	s.connected = true
	s.mu.Unlock()
	if s.logger != nil {
		s.logger.Info("coinbase feed connected")
	}
	return nil
}

// Subscribe subscribes the ticker channel for symbols; repeated calls extend
// the subscription.
func (s *Stream) Subscribe(ctx context.Context, symbols []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil || !s.connected {
		return fmt.Errorf("coinbase feed not connected")
	}
	products := make([]string, 0, len(symbols))
	for _, sym := range symbols {
		sym = util.NormalizeSymbol(sym)
		products = append(products, fmt.Sprintf("%s-%s", sym, s.quoteCcy))
		if !contains(s.symbols, sym) {
			s.symbols = append(s.symbols, sym)
		}
	}
	if len(products) == 0 {
		return nil
	}
	msg := map[string]interface{}{
		"type":        "subscribe",
		"product_ids": products,
		"channels":    []string{"ticker"},
	}
	if err := s.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("coinbase subscribe: %w", err)
	}
	if s.logger != nil {
		s.logger.Info("coinbase feed subscribed", applogger.Strings("products", products))
	}
	return nil
}

type tickerMessage struct {
	Type      string `json:"type"`
	ProductID string `json:"product_id"`
	Price     string `json:"price"`
	Time      string `json:"time"`
}

// Read streams live ticks and errors until ctx is done or the connection
// fails. Backpressure drops ticks rather than blocking the read loop.
func (s *Stream) Read(ctx context.Context) (<-chan models.LiveTick, <-chan error) {
	ticks := make(chan models.LiveTick, 1024)
	errs := make(chan error, 1)

	// ping loop
	go func() {
		ticker := time.NewTicker(s.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.mu.Lock()
				if s.conn != nil {
					_ = s.conn.WriteMessage(websocket.PingMessage, nil)
				}
				s.mu.Unlock()
			}
		}
	}()

	// read loop
	go func() {
		defer close(ticks)
		defer close(errs)
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}
			s.mu.Lock()
			conn := s.conn
			s.mu.Unlock()
			if conn == nil {
				errs <- fmt.Errorf("coinbase feed conn nil")
				return
			}
			_, b, err := conn.ReadMessage()
			if err != nil {
				errs <- fmt.Errorf("coinbase feed read: %w", err)
				return
			}
			var m tickerMessage
			if err := json.Unmarshal(b, &m); err != nil || m.Type != "ticker" {
				continue
			}
			tick, ok := s.toTick(m)
			if !ok {
				continue
			}
			select {
			case ticks <- tick:
			default:
				// drop on backpressure
			}
		}
	}()

	return ticks, errs
}

func (s *Stream) toTick(m tickerMessage) (models.LiveTick, bool) {
	price, err := strconv.ParseFloat(m.Price, 64)
	if err != nil {
		return models.LiveTick{}, false
	}
	symbol, _, found := strings.Cut(m.ProductID, "-")
	if !found {
		return models.LiveTick{}, false
	}
	at, err := time.Parse(time.RFC3339Nano, m.Time)
	if err != nil {
		at = time.Now().UTC()
	}
	return models.LiveTick{Symbol: symbol, Price: price, At: at}, true
}

// Reconnect closes, waits and re-establishes connection and subscriptions.
func (s *Stream) Reconnect(ctx context.Context) error {
	_ = s.Close()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(s.reconnectDelay):
	}
	if err := s.Connect(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	symbols := append([]string(nil), s.symbols...)
	s.mu.Unlock()
	return s.Subscribe(ctx, symbols)
}

// Close closes the WS connection.
func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = false
	if s.conn != nil {
		err := s.conn.Close()
		s.conn = nil
		return err
	}
	return nil
}

// IsConnected indicates status.
func (s *Stream) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
