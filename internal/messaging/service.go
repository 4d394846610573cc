// Package messaging sends text messages through an instance's client.
package messaging

import (
	"context"

	"github.com/neekaru/whatsappgo-fleet/internal/app"
	"github.com/neekaru/whatsappgo-fleet/internal/client"
)

// Service handles messaging-related business logic
type Service struct {
	app *app.App
}

// NewService creates a new messaging service
func NewService(app *app.App) *Service {
	return &Service{app: app}
}

// SendText sends body to recipient from the given instance. Bare numbers
// and legacy @c.us addresses are normalized before dispatch. The instance
// does not have to be READY; the client reports its own failure.
func (s *Service) SendText(ctx context.Context, instanceID, recipient, body, refID string) (*SendResult, error) {
	sess, err := s.app.Registry.Lookup(instanceID)
	if err != nil {
		return nil, err
	}
	cl := sess.Client()
	if cl == nil {
		return nil, &SendError{Recipient: recipient, Err: ErrClientUnavailable}
	}

	ctx, cancel := context.WithTimeout(ctx, s.app.Config.Session.ClientTimeout)
	defer cancel()

	to := client.NormalizeAddress(recipient)
	id, err := cl.SendText(ctx, to, body)
	if err != nil {
		return nil, &SendError{Recipient: to, Err: err}
	}
	return &SendResult{MessageID: id, RefID: refID}, nil
}
