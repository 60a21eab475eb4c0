package marketdata

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/web3guy0/tradecore/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// WEBSOCKET FEED - live push provider, grounded in the teacher's PolymarketFeed
// ═══════════════════════════════════════════════════════════════════════════════
//
// Maintains a reconnecting WebSocket connection to an upstream bar-tick feed
// and turns inbound ticks into types.Bar pushes. Real vendor wire formats
// vary; wireTick below is a minimal JSON shape a Gateway can consume through
// the same Provider.Subscribe contract as MemoryProvider.
// ═══════════════════════════════════════════════════════════════════════════════

const wsReconnectDelay = 5 * time.Second
const wsPingInterval = 30 * time.Second

type wireTick struct {
	Symbol string  `json:"symbol"`
	Open   string  `json:"open"`
	High   string  `json:"high"`
	Low    string  `json:"low"`
	Close  string  `json:"close"`
	Volume int64   `json:"volume"`
	TsUnix int64   `json:"ts"`
}

// WebSocketFeed is a Provider whose real-time bars arrive over a reconnecting
// WebSocket connection; historical reads and calendar lookups are delegated
// to an underlying reference provider (typically a MemoryProvider preloaded
// from the columnar bar archive in §6).
type WebSocketFeed struct {
	*MemoryProvider

	mu        sync.RWMutex
	wsURL     string
	conn      *websocket.Conn
	running   bool
	stopCh    chan struct{}
}

// NewWebSocketFeed wraps historical reference data (reference) with a live
// WebSocket push path dialed at wsURL.
func NewWebSocketFeed(wsURL string, reference *MemoryProvider) *WebSocketFeed {
	return &WebSocketFeed{
		MemoryProvider: reference,
		wsURL:          wsURL,
		stopCh:         make(chan struct{}),
	}
}

// Start dials the feed and begins forwarding ticks into the embedded
// MemoryProvider's Push path, which fans them out to subscribers.
func (f *WebSocketFeed) Start() {
	f.mu.Lock()
	if f.running {
		f.mu.Unlock()
		return
	}
	f.running = true
	f.mu.Unlock()

	go f.connectionLoop()
	log.Info().Str("url", f.wsURL).Msg("📡 marketdata websocket feed started")
}

// Stop closes the connection and halts reconnection attempts.
func (f *WebSocketFeed) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.running {
		return
	}
	f.running = false
	close(f.stopCh)
	if f.conn != nil {
		f.conn.Close()
	}
}

func (f *WebSocketFeed) connectionLoop() {
	for {
		select {
		case <-f.stopCh:
			return
		default:
		}

		if err := f.connect(); err != nil {
			log.Error().Err(err).Msg("marketdata websocket connect failed, retrying")
			time.Sleep(wsReconnectDelay)
			continue
		}

		f.readLoop()
		time.Sleep(wsReconnectDelay)
	}
}

func (f *WebSocketFeed) connect() error {
	conn, _, err := websocket.DefaultDialer.Dial(f.wsURL, nil)
	if err != nil {
		return err
	}

	f.mu.Lock()
	f.conn = conn
	f.mu.Unlock()

	log.Info().Msg("🔌 marketdata websocket connected")
	go f.pingLoop(conn)
	return nil
}

func (f *WebSocketFeed) pingLoop(conn *websocket.Conn) {
	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-f.stopCh:
			return
		case <-ticker.C:
			f.mu.RLock()
			current := f.conn
			f.mu.RUnlock()
			if current != conn {
				return
			}
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (f *WebSocketFeed) readLoop() {
	f.mu.RLock()
	conn := f.conn
	f.mu.RUnlock()
	if conn == nil {
		return
	}

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var tick wireTick
		if err := json.Unmarshal(raw, &tick); err != nil {
			continue
		}
		bar, err := tick.toBar()
		if err != nil {
			continue
		}
		f.MemoryProvider.Push(bar)
	}
}

func (t wireTick) toBar() (*types.Bar, error) {
	open, err := decimal.NewFromString(t.Open)
	if err != nil {
		return nil, err
	}
	high, err := decimal.NewFromString(t.High)
	if err != nil {
		return nil, err
	}
	low, err := decimal.NewFromString(t.Low)
	if err != nil {
		return nil, err
	}
	close, err := decimal.NewFromString(t.Close)
	if err != nil {
		return nil, err
	}
	return &types.Bar{
		Symbol:    t.Symbol,
		Timestamp: time.Unix(t.TsUnix, 0),
		Frequency: types.Freq1m,
		Open:      open,
		High:      high,
		Low:       low,
		Close:     close,
		Volume:    t.Volume,
	}, nil
}
