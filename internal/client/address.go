package client

import (
	"fmt"
	"strings"

	"go.mau.fi/whatsmeow/types"
)

// LegacyUserSuffix is the user-address suffix used by web-based clients.
const LegacyUserSuffix = "@c.us"

// NormalizeAddress turns a recipient into a full user JID string. Bare
// numbers get the user server appended and the legacy @c.us suffix is
// rewritten, so "555", "+555" and "555@c.us" all become "555@s.whatsapp.net".
func NormalizeAddress(recipient string) string {
	addr := strings.TrimPrefix(strings.TrimSpace(recipient), "+")
	if strings.HasSuffix(addr, LegacyUserSuffix) {
		addr = strings.TrimSuffix(addr, LegacyUserSuffix)
	}
	if !strings.Contains(addr, "@") {
		addr += "@" + types.DefaultUserServer
	}
	return addr
}

// ParseAddress normalizes recipient and parses it as a JID.
func ParseAddress(recipient string) (types.JID, error) {
	addr := NormalizeAddress(recipient)
	if strings.HasPrefix(addr, "@") {
		return types.JID{}, fmt.Errorf("empty recipient")
	}
	jid, err := types.ParseJID(addr)
	if err != nil {
		return types.JID{}, fmt.Errorf("invalid recipient %q: %w", recipient, err)
	}
	return jid, nil
}
