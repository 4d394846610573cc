package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/neekaru/whatsappgo-fleet/internal/store"
)

var instanceIDPattern = regexp.MustCompile(`^[A-Za-z0-9_.-]{1,64}$`)

// ValidateInstanceID rejects IDs that are not safe to use as file names.
func ValidateInstanceID(id string) error {
	if !instanceIDPattern.MatchString(id) || id == "." || id == ".." {
		return fmt.Errorf("%w: %q", ErrInvalidInstanceID, id)
	}
	return nil
}

// Service handles session-related business logic
type Service struct {
	ctrl   *Controller
	logger *slog.Logger
}

// NewService creates a new session service
func NewService(ctrl *Controller, logger *slog.Logger) *Service {
	return &Service{ctrl: ctrl, logger: logger}
}

// Create registers the instance and starts it asynchronously.
func (s *Service) Create(id string) error {
	if err := ValidateInstanceID(id); err != nil {
		return err
	}
	return s.ctrl.CreateAndStart(id)
}

// Status reports the live state of an instance along with its durable
// record, if any.
func (s *Service) Status(ctx context.Context, id string) (*StatusResponse, error) {
	sess, err := s.ctrl.Registry().Lookup(id)
	if err != nil {
		return nil, err
	}
	_, qrPending := s.ctrl.Registry().GetQR(id)
	resp := &StatusResponse{Snapshot: sess.Snapshot(), QRPending: qrPending}

	rec, err := s.ctrl.Store().Get(ctx, id)
	switch {
	case err == nil:
		resp.Stored = &StoredStatus{Status: rec.Status, UpdatedAt: rec.UpdatedAt}
	case !errors.Is(err, store.ErrNotFound):
		s.logger.Warn("reading session record", "instance", id, "error", err)
	}
	return resp, nil
}

// List returns a snapshot of every registered instance.
func (s *Service) List() []Snapshot {
	sessions := s.ctrl.Registry().All()
	out := make([]Snapshot, 0, len(sessions))
	for _, sess := range sessions {
		out = append(out, sess.Snapshot())
	}
	return out
}

func (s *Service) Remove(ctx context.Context, id string) error {
	return s.ctrl.Teardown(ctx, id)
}
