// Package model holds the wire representations exchanged between tabs and peers.
package model

// RelayMessage is the JSON form of a cross-tab relay message.
type RelayMessage struct {
	Type    string     `json:"type"`
	NoteID  string     `json:"noteId"`
	User    *RelayUser `json:"user,omitempty"`
	Updates []int      `json:"updates,omitempty"`
}

// RelayUser is the JSON form of a collaborative user. LastSeen is epoch milliseconds.
type RelayUser struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Color    string `json:"color"`
	LastSeen *int64 `json:"lastSeen,omitempty"`
}

// BroadcastEnvelope wraps a payload posted to a shared broadcast backend so receivers can drop their own posts.
type BroadcastEnvelope struct {
	Sender string `json:"sender"`
	Data   []byte `json:"data"`
}
