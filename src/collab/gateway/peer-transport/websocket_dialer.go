package peertransport

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/gorilla/websocket"
	"github.com/knowtis/knowtis-collab/src/collab/model"
	"go.uber.org/zap"
)

const _writeTimeout = 10 * time.Second

// WebSocketDialer joins rooms through a signaling hub. Each room uses its own connection, subscribed to the room
// topic, and reconnects with exponential backoff when the connection drops.
type WebSocketDialer struct {
	url          string
	pingInterval time.Duration
	logger       *zap.SugaredLogger
	dialer       *websocket.Dialer
}

// NewWebSocketDialer returns a Dialer for the hub at url, for example ws://localhost:4444/ws.
func NewWebSocketDialer(url string, pingInterval time.Duration, logger *zap.SugaredLogger) *WebSocketDialer {
	if pingInterval <= 0 {
		pingInterval = _defaultPingInterval
	}
	return &WebSocketDialer{
		url:          url,
		pingInterval: pingInterval,
		logger:       logger,
		dialer:       websocket.DefaultDialer,
	}
}

// Dial returns immediately; the connection is established in the background. Sends fail until it is up.
func (d *WebSocketDialer) Dial(_ context.Context, room string) (Conn, error) {
	ctx, cancel := context.WithCancel(context.Background())
	c := &wsConn{
		dialer:       d,
		room:         room,
		logger:       d.logger.With("room", room),
		handlers:     make(map[int]func([]byte)),
		ctx:          ctx,
		cancel:       cancel,
		stopped:      make(chan struct{}),
		connectedSig: make(chan struct{}),
	}
	go c.run()
	return c, nil
}

type wsConn struct {
	dialer *WebSocketDialer
	room   string
	logger *zap.SugaredLogger

	mu           sync.Mutex
	ws           *websocket.Conn
	handlers     map[int]func([]byte)
	nextHandler  int
	reconnectFns []func()
	connectedSig chan struct{}

	// writeMu serializes writes on ws.
	writeMu sync.Mutex

	ctx     context.Context
	cancel  context.CancelFunc
	stopped chan struct{}
	once    sync.Once
}

func (c *wsConn) Send(ctx context.Context, data []byte) error {
	c.mu.Lock()
	ws := c.ws
	c.mu.Unlock()
	if ws == nil {
		return fmt.Errorf("room %q is not connected", c.room)
	}
	return c.write(ws, model.SignalingMessage{
		Type:  model.SignalingPublish,
		Topic: c.room,
		Data:  json.RawMessage(data),
	})
}

func (c *wsConn) Subscribe(fn func(data []byte)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextHandler
	c.nextHandler++
	c.handlers[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.handlers, id)
	}
}

func (c *wsConn) OnReconnect(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reconnectFns = append(c.reconnectFns, fn)
}

// Connected returns a channel closed once the first connection has been established.
func (c *wsConn) Connected() <-chan struct{} {
	return c.connectedSig
}

func (c *wsConn) Close() error {
	c.once.Do(func() {
		c.cancel()
		c.mu.Lock()
		ws := c.ws
		c.mu.Unlock()
		if ws != nil {
			c.writeMu.Lock()
			ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
			c.writeMu.Unlock()
			ws.Close()
		}
		<-c.stopped
	})
	return nil
}

func (c *wsConn) write(ws *websocket.Conn, msg model.SignalingMessage) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	ws.SetWriteDeadline(time.Now().Add(_writeTimeout))
	if err := ws.WriteJSON(msg); err != nil {
		return fmt.Errorf("write to room %q: %w", c.room, err)
	}
	return nil
}

func (c *wsConn) connect() (*websocket.Conn, error) {
	var ws *websocket.Conn
	operation := func() error {
		conn, _, err := c.dialer.dialer.DialContext(c.ctx, c.dialer.url, nil)
		if err != nil {
			c.logger.Debugf("dialing signaling hub: %v", err)
			return err
		}
		ws = conn
		return nil
	}
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = 0
	if err := backoff.Retry(operation, backoff.WithContext(b, c.ctx)); err != nil {
		return nil, err
	}
	return ws, nil
}

func (c *wsConn) run() {
	defer close(c.stopped)
	first := true
	for {
		ws, err := c.connect()
		if err != nil {
			return
		}
		if err := c.write(ws, model.SignalingMessage{Type: model.SignalingSubscribe, Topics: []string{c.room}}); err != nil {
			ws.Close()
			continue
		}

		c.mu.Lock()
		if c.ctx.Err() != nil {
			c.mu.Unlock()
			ws.Close()
			return
		}
		c.ws = ws
		reconnectFns := append([]func(){}, c.reconnectFns...)
		c.mu.Unlock()

		if first {
			close(c.connectedSig)
			first = false
		}
		for _, fn := range reconnectFns {
			fn()
		}

		var pinger sync.WaitGroup
		pingDone := make(chan struct{})
		pinger.Add(1)
		go func() {
			defer pinger.Done()
			c.ping(ws, pingDone)
		}()
		c.read(ws)
		close(pingDone)
		pinger.Wait()

		c.mu.Lock()
		c.ws = nil
		c.mu.Unlock()
		ws.Close()

		if c.ctx.Err() != nil {
			return
		}
		c.logger.Infof("signaling connection lost, reconnecting")
	}
}

func (c *wsConn) ping(ws *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(c.dialer.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := c.write(ws, model.SignalingMessage{Type: model.SignalingPing}); err != nil {
				return
			}
		}
	}
}

func (c *wsConn) read(ws *websocket.Conn) {
	for {
		var msg model.SignalingMessage
		if err := ws.ReadJSON(&msg); err != nil {
			if c.ctx.Err() == nil {
				c.logger.Debugf("reading from signaling hub: %v", err)
			}
			return
		}
		if msg.Type != model.SignalingPublish || msg.Topic != c.room {
			continue
		}

		c.mu.Lock()
		handlers := make([]func([]byte), 0, len(c.handlers))
		for i := 0; i < c.nextHandler; i++ {
			if fn, ok := c.handlers[i]; ok {
				handlers = append(handlers, fn)
			}
		}
		c.mu.Unlock()

		for _, fn := range handlers {
			fn(msg.Data)
		}
	}
}
