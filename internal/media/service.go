// Package media sends media fetched from URLs and retrieves media attached
// to recent messages.
package media

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/neekaru/whatsappgo-fleet/internal/app"
	"github.com/neekaru/whatsappgo-fleet/internal/client"
)

// ErrClientUnavailable means the instance exists but has no client yet.
var ErrClientUnavailable = errors.New("client not initialized")

// Service handles media-related business logic
type Service struct {
	app     *app.App
	fetcher *Fetcher
	logger  *slog.Logger
}

// NewService creates a new media service
func NewService(app *app.App) *Service {
	return &Service{
		app: app,
		fetcher: &Fetcher{
			HTTP:     &http.Client{},
			MaxBytes: app.Config.Media.MaxBytes,
			Timeout:  app.Config.Media.FetchTimeout,
		},
		logger: app.Logger.With("component", "media"),
	}
}

// SendMedia fetches mediaURL and sends it to recipient with an optional
// caption. Like text sends, it only requires the instance to exist.
func (s *Service) SendMedia(ctx context.Context, instanceID, recipient, mediaURL, caption string) (string, error) {
	sess, err := s.app.Registry.Lookup(instanceID)
	if err != nil {
		return "", err
	}
	cl := sess.Client()
	if cl == nil {
		return "", ErrClientUnavailable
	}

	m, err := s.fetcher.Fetch(ctx, mediaURL)
	if err != nil {
		return "", err
	}
	s.logger.Debug("media fetched", "instance", instanceID, "mimetype", m.MimeType, "bytes", len(m.Data), "filename", m.FileName)

	ctx, cancel := context.WithTimeout(ctx, s.app.Config.Session.ClientTimeout)
	defer cancel()
	id, err := cl.SendMedia(ctx, client.NormalizeAddress(recipient), m, caption)
	if err != nil {
		return "", fmt.Errorf("sending media: %w", err)
	}
	return id, nil
}

// FetchMedia looks for messageID among the most recent messages of every
// chat and downloads its media. Only the configured scan window per chat is
// searched; the first match wins.
func (s *Service) FetchMedia(ctx context.Context, instanceID, messageID string) (*client.Media, error) {
	sess, err := s.app.Registry.LookupReady(instanceID)
	if err != nil {
		return nil, err
	}
	cl := sess.Client()

	ctx, cancel := context.WithTimeout(ctx, s.app.Config.Session.ClientTimeout)
	defer cancel()

	chats, err := cl.GetChats(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing chats: %w", err)
	}
	for _, chat := range chats {
		msgs, err := cl.FetchMessages(ctx, chat.ID, s.app.Config.Media.ScanWindow)
		if err != nil {
			return nil, fmt.Errorf("fetching messages of %s: %w", chat.ID, err)
		}
		for _, m := range msgs {
			if m.ID != messageID || !m.HasMedia {
				continue
			}
			media, err := cl.DownloadMedia(ctx, m)
			if err != nil {
				return nil, fmt.Errorf("downloading media: %w", err)
			}
			return media, nil
		}
	}
	return nil, ErrMediaNotFound
}
