// Package auth serves the pairing QR codes of instances awaiting login.
package auth

import (
	"encoding/base64"
	"fmt"

	"github.com/skip2/go-qrcode"

	"github.com/neekaru/whatsappgo-fleet/internal/app"
	"github.com/neekaru/whatsappgo-fleet/internal/session"
)

const dataURLPrefix = "data:image/png;base64,"

// NewQREncoder returns an encoder rendering pairing codes as PNG data URLs
// of the given pixel size.
func NewQREncoder(size int) session.QREncoder {
	if size <= 0 {
		size = 256
	}
	return func(code string) (string, error) {
		qr, err := qrcode.New(code, qrcode.Medium)
		if err != nil {
			return "", fmt.Errorf("creating QR code: %w", err)
		}
		png, err := qr.PNG(size)
		if err != nil {
			return "", fmt.Errorf("rendering QR code: %w", err)
		}
		return dataURLPrefix + base64.StdEncoding.EncodeToString(png), nil
	}
}

// Service handles authentication-related business logic
type Service struct {
	app *app.App
}

// NewService creates a new authentication service
func NewService(app *app.App) *Service {
	return &Service{app: app}
}

// FetchQR returns the pending QR payload of an instance. Unknown instances
// yield ErrInstanceNotFound; known ones without a pending code yield
// ErrQRNotAvailable.
func (s *Service) FetchQR(instanceID string) (string, error) {
	if _, err := s.app.Registry.Lookup(instanceID); err != nil {
		return "", err
	}
	qr, ok := s.app.Registry.GetQR(instanceID)
	if !ok {
		return "", session.ErrQRNotAvailable
	}
	return qr, nil
}
