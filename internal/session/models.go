package session

import (
	"time"

	"github.com/neekaru/whatsappgo-fleet/internal/store"
)

// StatusResponse is the polling view of one instance.
type StatusResponse struct {
	Snapshot
	QRPending bool          `json:"qrPending"`
	Stored    *StoredStatus `json:"stored,omitempty"`
}

// StoredStatus is the durable projection of an instance.
type StoredStatus struct {
	Status    store.Status `json:"status"`
	UpdatedAt time.Time    `json:"updatedAt"`
}
