// Package clienttest provides an in-memory client.Client for tests.
package clienttest

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/neekaru/whatsappgo-fleet/internal/client"
)

// Sent records one outgoing message.
type Sent struct {
	To      string
	Body    string
	Media   *client.Media
	Caption string
}

// Fake is a scriptable client. Events listed in InitEvents are emitted from
// Initialize; further events can be pushed with Emit.
type Fake struct {
	ID string

	mu          sync.Mutex
	handlers    []func(client.Event)
	initialized bool
	closed      bool
	sent        []Sent
	nextID      int

	InitErr    error
	InitEvents []client.Event
	SendErr    error
	ChatsErr   error
	Chats      []client.Chat
	Messages   map[string][]client.Message
	Media      map[string]*client.Media
}

func New(id string) *Fake {
	return &Fake{
		ID:       id,
		Messages: make(map[string][]client.Message),
		Media:    make(map[string]*client.Media),
	}
}

func (f *Fake) OnEvent(handler func(client.Event)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers = append(f.handlers, handler)
}

func (f *Fake) Initialize(ctx context.Context) error {
	if f.InitErr != nil {
		return f.InitErr
	}
	f.mu.Lock()
	f.initialized = true
	f.mu.Unlock()
	for _, evt := range f.InitEvents {
		f.Emit(evt)
	}
	return nil
}

// Initialized reports whether Initialize has succeeded.
func (f *Fake) Initialized() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.initialized
}

// Emit delivers evt to every registered handler.
func (f *Fake) Emit(evt client.Event) {
	f.mu.Lock()
	handlers := append([]func(client.Event){}, f.handlers...)
	f.mu.Unlock()
	for _, h := range handlers {
		h(evt)
	}
}

func (f *Fake) SendText(ctx context.Context, to, body string) (string, error) {
	return f.record(Sent{To: to, Body: body})
}

func (f *Fake) SendMedia(ctx context.Context, to string, media *client.Media, caption string) (string, error) {
	return f.record(Sent{To: to, Media: media, Caption: caption})
}

func (f *Fake) record(s Sent) (string, error) {
	if f.SendErr != nil {
		return "", f.SendErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.sent = append(f.sent, s)
	return fmt.Sprintf("%s-msg-%d", f.ID, f.nextID), nil
}

// Sent returns every message sent so far.
func (f *Fake) Sent() []Sent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Sent(nil), f.sent...)
}

func (f *Fake) GetChats(ctx context.Context) ([]client.Chat, error) {
	if f.ChatsErr != nil {
		return nil, f.ChatsErr
	}
	return f.Chats, nil
}

func (f *Fake) FetchMessages(ctx context.Context, chatID string, limit int) ([]client.Message, error) {
	msgs := f.Messages[chatID]
	if limit > 0 && limit < len(msgs) {
		msgs = msgs[:limit]
	}
	return msgs, nil
}

func (f *Fake) DownloadMedia(ctx context.Context, msg client.Message) (*client.Media, error) {
	m, ok := f.Media[msg.ID]
	if !ok {
		return nil, errors.New("download failed")
	}
	return m, nil
}

func (f *Fake) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *Fake) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// Factory hands out Fakes and remembers them by instance ID.
type Factory struct {
	mu      sync.Mutex
	clients map[string]*Fake
	errs    map[string]error

	// Configure, when set, prepares each Fake before it is returned.
	Configure func(*Fake)
}

func NewFactory() *Factory {
	return &Factory{clients: make(map[string]*Fake), errs: make(map[string]error)}
}

// FailFor makes construction for id fail with err.
func (f *Factory) FailFor(id string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[id] = err
}

// New implements client.Factory.
func (f *Factory) New(ctx context.Context, id string) (client.Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errs[id]; err != nil {
		return nil, err
	}
	fake := New(id)
	if f.Configure != nil {
		f.Configure(fake)
	}
	f.clients[id] = fake
	return fake, nil
}

// Client returns the latest Fake built for id, or nil.
func (f *Factory) Client(id string) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.clients[id]
}

// Ready returns the Fake for id once its Initialize has run.
func (f *Factory) Ready(id string) (*Fake, bool) {
	fake := f.Client(id)
	return fake, fake != nil && fake.Initialized()
}
