// Package chat exposes the chats and recent messages of ready instances.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/neekaru/whatsappgo-fleet/internal/app"
	"github.com/neekaru/whatsappgo-fleet/internal/client"
)

var (
	// ErrChatNotFound means no chat matches the requested user.
	ErrChatNotFound = errors.New("chat not found")
	// ErrInvalidLimit means the message limit is not a positive integer.
	ErrInvalidLimit = errors.New("limit must be a positive integer")
)

// Service handles chat-related business logic
type Service struct {
	app *app.App
}

// NewService creates a new chat service
func NewService(app *app.App) *Service {
	return &Service{app: app}
}

// ListChats returns every chat known to a READY instance.
func (s *Service) ListChats(ctx context.Context, instanceID string) ([]client.Chat, error) {
	sess, err := s.app.Registry.LookupReady(instanceID)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, s.app.Config.Session.ClientTimeout)
	defer cancel()

	chats, err := sess.Client().GetChats(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing chats: %w", err)
	}
	return chats, nil
}

// FetchMessages returns up to limit recent messages of the chat whose
// address user part is userID. A full address such as 555@c.us is accepted.
func (s *Service) FetchMessages(ctx context.Context, instanceID, userID string, limit int) ([]client.Message, error) {
	sess, err := s.app.Registry.LookupReady(instanceID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}
	cl := sess.Client()

	ctx, cancel := context.WithTimeout(ctx, s.app.Config.Session.ClientTimeout)
	defer cancel()

	chats, err := cl.GetChats(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing chats: %w", err)
	}
	user, _, _ := strings.Cut(userID, "@")
	for _, c := range chats {
		if c.User != user {
			continue
		}
		msgs, err := cl.FetchMessages(ctx, c.ID, limit)
		if err != nil {
			return nil, fmt.Errorf("fetching messages: %w", err)
		}
		return msgs, nil
	}
	return nil, ErrChatNotFound
}
