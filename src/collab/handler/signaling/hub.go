// Package signaling serves the topic relay used by websocket room transports.
//
// Clients send JSON frames: subscribe and unsubscribe name topics, publish fans the frame out unchanged to every
// other subscriber of its topic, and ping is answered with pong.
package signaling

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/knowtis/knowtis-collab/src/collab/model"
	"github.com/uber-go/tally"
	"go.uber.org/zap"
)

const (
	_sendBuffer   = 256
	_writeTimeout = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Hub keeps the topic subscriptions of every connected client.
type Hub struct {
	logger *zap.SugaredLogger
	stats  tally.Scope

	mu      sync.Mutex
	clients map[*client]struct{}
	topics  map[string]map[*client]struct{}
	closed  bool
	wg      sync.WaitGroup
}

type client struct {
	conn   *websocket.Conn
	send   chan []byte
	topics map[string]struct{}
}

// NewHub creates an empty hub.
func NewHub(logger *zap.SugaredLogger, stats tally.Scope) *Hub {
	return &Hub{
		logger:  logger,
		stats:   stats,
		clients: make(map[*client]struct{}),
		topics:  make(map[string]map[*client]struct{}),
	}
}

// ServeHTTP upgrades the request and serves the client until it disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debugf("upgrading signaling connection: %v", err)
		return
	}

	c := &client{
		conn:   conn,
		send:   make(chan []byte, _sendBuffer),
		topics: make(map[string]struct{}),
	}
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.clients[c] = struct{}{}
	h.wg.Add(2)
	h.stats.Gauge("connections").Update(float64(len(h.clients)))
	h.mu.Unlock()
	h.logger.Debugw("client connected", "remote", r.RemoteAddr)

	go h.writePump(c)
	go h.readPump(c)
}

// Topics returns the number of subscribers per topic.
func (h *Hub) Topics() map[string]int {
	h.mu.Lock()
	defer h.mu.Unlock()
	result := make(map[string]int, len(h.topics))
	for topic, subscribers := range h.topics {
		result[topic] = len(subscribers)
	}
	return result
}

// Close disconnects every client and waits for their goroutines.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		c.conn.Close()
	}
	h.wg.Wait()
}

func (h *Hub) readPump(c *client) {
	defer func() {
		h.unregister(c)
		c.conn.Close()
		h.wg.Done()
	}()
	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var msg model.SignalingMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			h.stats.Counter("malformed_messages").Inc(1)
			continue
		}
		h.handle(c, msg, message)
	}
}

func (h *Hub) writePump(c *client) {
	defer func() {
		c.conn.Close()
		h.wg.Done()
	}()
	for message := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(_writeTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

func (h *Hub) handle(c *client, msg model.SignalingMessage, raw []byte) {
	switch msg.Type {
	case model.SignalingSubscribe:
		h.mu.Lock()
		for _, topic := range msg.Topics {
			if h.topics[topic] == nil {
				h.topics[topic] = make(map[*client]struct{})
			}
			h.topics[topic][c] = struct{}{}
			c.topics[topic] = struct{}{}
		}
		h.mu.Unlock()
		h.logger.Debugw("subscribed", "topics", msg.Topics)
	case model.SignalingUnsubscribe:
		h.mu.Lock()
		for _, topic := range msg.Topics {
			h.leaveLocked(c, topic)
		}
		h.mu.Unlock()
		h.logger.Debugw("unsubscribed", "topics", msg.Topics)
	case model.SignalingPublish:
		h.stats.Counter("published").Inc(1)
		h.logger.Debugw("published", "topic", msg.Topic, "bytes", len(msg.Data))
		h.mu.Lock()
		var slow []*client
		for subscriber := range h.topics[msg.Topic] {
			if subscriber == c {
				continue
			}
			select {
			case subscriber.send <- raw:
			default:
				slow = append(slow, subscriber)
			}
		}
		h.mu.Unlock()
		for _, s := range slow {
			h.logger.Warnf("dropping slow signaling client on topic %q", msg.Topic)
			s.conn.Close()
		}
	case model.SignalingPing:
		pong, _ := json.Marshal(model.SignalingMessage{Type: model.SignalingPong})
		h.mu.Lock()
		if _, ok := h.clients[c]; ok {
			select {
			case c.send <- pong:
			default:
			}
		}
		h.mu.Unlock()
	default:
		h.stats.Counter("malformed_messages").Inc(1)
	}
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	for topic := range c.topics {
		h.leaveLocked(c, topic)
	}
	delete(h.clients, c)
	close(c.send)
	h.stats.Gauge("connections").Update(float64(len(h.clients)))
}

func (h *Hub) leaveLocked(c *client, topic string) {
	delete(c.topics, topic)
	subscribers := h.topics[topic]
	delete(subscribers, c)
	if len(subscribers) == 0 {
		delete(h.topics, topic)
	}
}
