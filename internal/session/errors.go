package session

import "errors"

var (
	ErrInstanceAlreadyExists = errors.New("instance already exists")
	ErrInstanceNotFound      = errors.New("instance not found")
	ErrNotReady              = errors.New("client is not ready")
	ErrQRNotAvailable        = errors.New("QR code not available")
	ErrInvalidInstanceID     = errors.New("invalid instance id")
	ErrControllerClosed      = errors.New("session controller is shut down")
)
