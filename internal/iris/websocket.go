package iris

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type MessageCallback func(message *Message)

type StateCallback func(state WebSocketState)

type callbackEntry struct {
	id       int
	callback MessageCallback
}

type stateCallbackEntry struct {
	id       int
	callback StateCallback
}

// WebSocket receives chat messages from the Iris bridge and reconnects on
// failure.
type WebSocket struct {
	wsURL                string
	state                WebSocketState
	stateMu              sync.RWMutex
	messageCallbacks     []callbackEntry
	stateCallbacks       []stateCallbackEntry
	nextCallbackID       int
	callbacksMu          sync.RWMutex
	maxReconnectAttempts int
	reconnectDelay       time.Duration
	logger               *zap.Logger
}

func NewWebSocket(wsURL string, maxReconnectAttempts int, reconnectDelay time.Duration, logger *zap.Logger) *WebSocket {
	return &WebSocket{
		wsURL:                wsURL,
		state:                WSStateDisconnected,
		maxReconnectAttempts: maxReconnectAttempts,
		reconnectDelay:       reconnectDelay,
		logger:               logger,
		nextCallbackID:       1,
	}
}

// Run keeps a connection open until ctx is cancelled. It returns nil on
// cancellation and an error once reconnect attempts are exhausted.
func (ws *WebSocket) Run(ctx context.Context) error {
	attempts := 0
	for {
		ws.setState(WSStateConnecting)
		connected, err := ws.session(ctx)
		if ctx.Err() != nil {
			ws.setState(WSStateDisconnected)
			return nil
		}
		if connected {
			attempts = 0
		}

		attempts++
		if attempts > ws.maxReconnectAttempts {
			ws.logger.Error("Max reconnect attempts reached", zap.Int("attempts", attempts-1))
			ws.setState(WSStateFailed)
			return fmt.Errorf("iris websocket: %d reconnect attempts failed: %w", attempts-1, err)
		}

		ws.setState(WSStateReconnecting)
		ws.logger.Info("Scheduling reconnect",
			zap.Int("attempt", attempts),
			zap.Int("max", ws.maxReconnectAttempts),
			zap.Duration("delay", ws.reconnectDelay),
			zap.Error(err),
		)

		select {
		case <-time.After(ws.reconnectDelay):
		case <-ctx.Done():
			ws.setState(WSStateDisconnected)
			return nil
		}
	}
}

// session dials once and reads until the connection breaks.
func (ws *WebSocket) session(ctx context.Context) (bool, error) {
	dialer := *websocket.DefaultDialer
	dialer.HandshakeTimeout = 10 * time.Second

	conn, _, err := dialer.DialContext(ctx, ws.wsURL, nil)
	if err != nil {
		ws.logger.Error("Failed to connect WebSocket", zap.Error(err))
		return false, err
	}
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer func() {
		stop()
		_ = conn.Close()
	}()

	ws.setState(WSStateConnected)
	ws.logger.Info("WebSocket connected", zap.String("url", ws.wsURL))

	for {
		_, msgBytes, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				ws.logger.Error("WebSocket read error", zap.Error(err))
			}
			return true, err
		}
		ws.handleMessage(msgBytes)
	}
}

func (ws *WebSocket) handleMessage(data []byte) {
	var message Message
	if err := json.Unmarshal(data, &message); err != nil {
		dataStr := string(data)
		if len(dataStr) > 200 {
			dataStr = dataStr[:200]
		}
		ws.logger.Error("Failed to parse message",
			zap.Error(err),
			zap.String("data", dataStr),
		)
		return
	}

	ws.callbacksMu.RLock()
	callbacks := make([]callbackEntry, len(ws.messageCallbacks))
	copy(callbacks, ws.messageCallbacks)
	ws.callbacksMu.RUnlock()

	for _, entry := range callbacks {
		entry.callback(&message)
	}
}

// OnMessage registers callback and returns a func that removes it.
func (ws *WebSocket) OnMessage(callback MessageCallback) func() {
	ws.callbacksMu.Lock()
	id := ws.nextCallbackID
	ws.nextCallbackID++
	ws.messageCallbacks = append(ws.messageCallbacks, callbackEntry{
		id:       id,
		callback: callback,
	})
	ws.callbacksMu.Unlock()

	return func() {
		ws.callbacksMu.Lock()
		defer ws.callbacksMu.Unlock()
		for i, entry := range ws.messageCallbacks {
			if entry.id == id {
				ws.messageCallbacks = append(ws.messageCallbacks[:i], ws.messageCallbacks[i+1:]...)
				break
			}
		}
	}
}

func (ws *WebSocket) OnStateChange(callback StateCallback) func() {
	ws.callbacksMu.Lock()
	id := ws.nextCallbackID
	ws.nextCallbackID++
	ws.stateCallbacks = append(ws.stateCallbacks, stateCallbackEntry{
		id:       id,
		callback: callback,
	})
	ws.callbacksMu.Unlock()

	return func() {
		ws.callbacksMu.Lock()
		defer ws.callbacksMu.Unlock()
		for i, entry := range ws.stateCallbacks {
			if entry.id == id {
				ws.stateCallbacks = append(ws.stateCallbacks[:i], ws.stateCallbacks[i+1:]...)
				break
			}
		}
	}
}

func (ws *WebSocket) setState(newState WebSocketState) {
	ws.stateMu.Lock()
	oldState := ws.state
	ws.state = newState
	ws.stateMu.Unlock()

	if oldState == newState {
		return
	}

	ws.logger.Debug("WebSocket state changed",
		zap.String("from", oldState.String()),
		zap.String("to", newState.String()),
	)

	ws.callbacksMu.RLock()
	callbacks := make([]stateCallbackEntry, len(ws.stateCallbacks))
	copy(callbacks, ws.stateCallbacks)
	ws.callbacksMu.RUnlock()

	for _, entry := range callbacks {
		entry.callback(newState)
	}
}

func (ws *WebSocket) GetState() WebSocketState {
	ws.stateMu.RLock()
	defer ws.stateMu.RUnlock()
	return ws.state
}

func (ws *WebSocket) IsConnected() bool {
	return ws.GetState() == WSStateConnected
}
