package model

import "encoding/json"

// Peer message types exchanged inside a transport room.
const (
	PeerMessageSyncRequest = "sync-request"
	PeerMessageUpdate      = "update"
	PeerMessageAwareness   = "awareness"
)

// PeerMessage is a message published to every member of a transport room.
// Update is base64 encoded by encoding/json.
type PeerMessage struct {
	Type      string           `json:"type"`
	From      uint64           `json:"from"`
	Update    []byte           `json:"update,omitempty"`
	Awareness *AwarenessUpdate `json:"awareness,omitempty"`
}

// Signaling message types understood by the signaling hub.
const (
	SignalingSubscribe   = "subscribe"
	SignalingUnsubscribe = "unsubscribe"
	SignalingPublish     = "publish"
	SignalingPing        = "ping"
	SignalingPong        = "pong"
)

// SignalingMessage is a frame exchanged with the signaling hub.
type SignalingMessage struct {
	Type   string          `json:"type"`
	Topics []string        `json:"topics,omitempty"`
	Topic  string          `json:"topic,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
}
