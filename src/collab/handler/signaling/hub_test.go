package signaling

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/knowtis/knowtis-collab/src/collab/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uber-go/tally"
	"go.uber.org/zap"
)

type testClient struct {
	t    *testing.T
	conn *websocket.Conn
}

func dial(t *testing.T, server *httptest.Server) *testClient {
	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return &testClient{t: t, conn: conn}
}

func (c *testClient) write(msg model.SignalingMessage) {
	require.NoError(c.t, c.conn.WriteJSON(msg))
}

func (c *testClient) read() model.SignalingMessage {
	c.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg model.SignalingMessage
	require.NoError(c.t, c.conn.ReadJSON(&msg))
	return msg
}

// sync waits until every frame sent before it was handled by the hub.
func (c *testClient) sync() {
	c.write(model.SignalingMessage{Type: model.SignalingPing})
	assert.Equal(c.t, model.SignalingPong, c.read().Type)
}

func newTestHub(t *testing.T) (*Hub, *httptest.Server, tally.TestScope) {
	stats := tally.NewTestScope("", nil)
	hub := NewHub(zap.NewNop().Sugar(), stats)
	server := httptest.NewServer(hub)
	t.Cleanup(func() {
		server.Close()
		hub.Close()
	})
	return hub, server, stats
}

func TestHubPublish(t *testing.T) {
	hub, server, stats := newTestHub(t)

	a := dial(t, server)
	b := dial(t, server)
	outsider := dial(t, server)

	a.write(model.SignalingMessage{Type: model.SignalingSubscribe, Topics: []string{"knowtis-n1"}})
	a.sync()
	b.write(model.SignalingMessage{Type: model.SignalingSubscribe, Topics: []string{"knowtis-n1"}})
	b.sync()
	outsider.write(model.SignalingMessage{Type: model.SignalingSubscribe, Topics: []string{"knowtis-n2"}})
	outsider.sync()

	assert.Equal(t, map[string]int{"knowtis-n1": 2, "knowtis-n2": 1}, hub.Topics())

	b.write(model.SignalingMessage{Type: model.SignalingPublish, Topic: "knowtis-n1", Data: json.RawMessage(`{"hello":1}`)})
	got := a.read()
	assert.Equal(t, model.SignalingPublish, got.Type)
	assert.Equal(t, "knowtis-n1", got.Topic)
	assert.JSONEq(t, `{"hello":1}`, string(got.Data))

	// The publisher does not receive its own frame and other topics are untouched.
	b.sync()
	outsider.sync()

	assert.EqualValues(t, 1, stats.Snapshot().Counters()["published+"].Value())
}

func TestHubUnsubscribe(t *testing.T) {
	hub, server, _ := newTestHub(t)

	a := dial(t, server)
	b := dial(t, server)
	a.write(model.SignalingMessage{Type: model.SignalingSubscribe, Topics: []string{"x", "y"}})
	a.write(model.SignalingMessage{Type: model.SignalingUnsubscribe, Topics: []string{"x"}})
	a.sync()
	assert.Equal(t, map[string]int{"y": 1}, hub.Topics())

	b.write(model.SignalingMessage{Type: model.SignalingPublish, Topic: "x", Data: json.RawMessage(`1`)})
	b.write(model.SignalingMessage{Type: model.SignalingPublish, Topic: "y", Data: json.RawMessage(`2`)})
	got := a.read()
	assert.Equal(t, "y", got.Topic)
}

func TestHubDisconnectDropsSubscriptions(t *testing.T) {
	hub, server, _ := newTestHub(t)

	a := dial(t, server)
	a.write(model.SignalingMessage{Type: model.SignalingSubscribe, Topics: []string{"x"}})
	a.sync()
	require.Equal(t, map[string]int{"x": 1}, hub.Topics())

	a.conn.Close()
	assert.Eventually(t, func() bool {
		return len(hub.Topics()) == 0
	}, 2*time.Second, 5*time.Millisecond)
}

func TestHubMalformedFrames(t *testing.T) {
	_, server, stats := newTestHub(t)

	a := dial(t, server)
	require.NoError(t, a.conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	a.write(model.SignalingMessage{Type: "bogus"})
	a.sync()

	assert.EqualValues(t, 2, stats.Snapshot().Counters()["malformed_messages+"].Value())
}
