// Package client defines the messaging-client contract the session manager
// drives, and its whatsmeow implementation.
package client

import (
	"context"
	"time"
)

// EventKind names a lifecycle event emitted by a Client.
type EventKind string

const (
	EventQR            EventKind = "qr"
	EventAuthenticated EventKind = "authenticated"
	EventReady         EventKind = "ready"
	EventAuthFailure   EventKind = "auth_failure"
	EventDisconnected  EventKind = "disconnected"
)

// Event is a lifecycle notification. Payload carries the raw QR code for
// EventQR; Err carries the cause for failures and disconnects.
type Event struct {
	Kind    EventKind
	Payload string
	Err     error
}

// Chat summarizes one conversation.
type Chat struct {
	ID            string    `json:"id"`
	User          string    `json:"user"`
	Name          string    `json:"name,omitempty"`
	IsGroup       bool      `json:"isGroup"`
	LastMessageAt time.Time `json:"lastMessageAt"`
}

// Message is a chat message as exposed to API callers.
type Message struct {
	ID        string    `json:"id"`
	ChatID    string    `json:"chatId"`
	From      string    `json:"from"`
	FromMe    bool      `json:"fromMe"`
	Timestamp time.Time `json:"timestamp"`
	Type      string    `json:"type"`
	Body      string    `json:"body,omitempty"`
	HasMedia  bool      `json:"hasMedia"`
	MimeType  string    `json:"mimetype,omitempty"`
	FileName  string    `json:"filename,omitempty"`
}

// Media is a downloaded or to-be-sent attachment. Data is base64 in JSON.
type Media struct {
	MimeType string `json:"mimetype"`
	Data     []byte `json:"data"`
	FileName string `json:"filename,omitempty"`
}

// Client is one instance's connection to the chat network.
//
// Handlers registered with OnEvent are invoked synchronously, in emission
// order, from the client's internal goroutines; they must be registered
// before Initialize.
type Client interface {
	OnEvent(handler func(Event))
	Initialize(ctx context.Context) error
	SendText(ctx context.Context, to, body string) (string, error)
	SendMedia(ctx context.Context, to string, media *Media, caption string) (string, error)
	GetChats(ctx context.Context) ([]Chat, error)
	FetchMessages(ctx context.Context, chatID string, limit int) ([]Message, error)
	DownloadMedia(ctx context.Context, msg Message) (*Media, error)
	Close() error
}

// Factory builds the Client for an instance. Credentials must be isolated
// per instance ID so that re-creating an ID resumes its login.
type Factory func(ctx context.Context, instanceID string) (Client, error)
