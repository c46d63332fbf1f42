// Package entity contains the domain types shared by the collaboration core.
package entity

import (
	"strconv"
	"time"
)

// MessageType tags a cross-tab relay message.
type MessageType string

const (
	// MessageTypeAwareness is reserved on the relay channel and never produced.
	MessageTypeAwareness MessageType = "awareness"
	// MessageTypePresence announces that a user is viewing a note.
	MessageTypePresence MessageType = "presence"
	// MessageTypeUpdate carries an encoded document update for a note.
	MessageTypeUpdate MessageType = "update"
	// MessageTypeLeave announces that a user stopped viewing a note.
	MessageTypeLeave MessageType = "leave"
)

// CollaborativeUser identifies one tab taking part in collaborative editing.
// LastSeen is only set on records received from other tabs.
type CollaborativeUser struct {
	ID       string    `json:"id" zap:"id"`
	Name     string    `json:"name" zap:"name"`
	Color    string    `json:"color" zap:"color"`
	LastSeen time.Time `json:"-" zap:"-"`
}

// Info returns the subset of the user published into the awareness registry.
func (u CollaborativeUser) Info() UserInfo {
	return UserInfo{Name: u.Name, Color: u.Color}
}

// UserInfo is the identity a peer publishes in its awareness state.
type UserInfo struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

// CursorPosition is a selection expressed as offsets into the document's linear content.
// Offsets are not guaranteed to be inside the current document.
type CursorPosition struct {
	Anchor int `json:"anchor"`
	Head   int `json:"head"`
}

// AwarenessState is the ephemeral state a peer publishes. Either field may be missing.
type AwarenessState struct {
	User   *UserInfo       `json:"user,omitempty"`
	Cursor *CursorPosition `json:"cursor,omitempty"`
}

// IsReady reports whether both the identity and the cursor have been published.
func (s AwarenessState) IsReady() bool {
	return s.User != nil && s.Cursor != nil
}

// AwarenessEntry pairs a peer's client id with its state, preserving registry order.
type AwarenessEntry struct {
	ClientID uint64
	State    AwarenessState
}

// RemoteUserState is a peer that is ready to be rendered.
type RemoteUserState struct {
	ClientID uint64
	User     UserInfo
	Cursor   CursorPosition
}

// ClientIDString formats a transport client id the way collaborator lists expose it.
func ClientIDString(clientID uint64) string {
	return strconv.FormatUint(clientID, 10)
}

// BroadcastMessage is a decoded cross-tab relay message.
type BroadcastMessage struct {
	Type    MessageType
	NoteID  string
	User    *CollaborativeUser
	Updates []byte
}
