package peertransport

import (
	"context"

	"github.com/knowtis/knowtis-collab/src/collab/internal/broadcast"
)

// ChannelDialer joins rooms over broadcast channels named after the room.
type ChannelDialer struct {
	opener broadcast.Opener
}

// NewChannelDialer returns a Dialer backed by opener.
func NewChannelDialer(opener broadcast.Opener) *ChannelDialer {
	return &ChannelDialer{opener: opener}
}

// Dial opens a channel endpoint for room.
func (d *ChannelDialer) Dial(ctx context.Context, room string) (Conn, error) {
	ch, err := d.opener.Open(ctx, room)
	if err != nil {
		return nil, err
	}
	return &channelConn{ch: ch}, nil
}

type channelConn struct {
	ch broadcast.Channel
}

func (c *channelConn) Send(ctx context.Context, data []byte) error {
	return c.ch.Post(ctx, data)
}

func (c *channelConn) Subscribe(fn func(data []byte)) func() {
	return c.ch.Subscribe(fn)
}

func (c *channelConn) Close() error {
	return c.ch.Close()
}
