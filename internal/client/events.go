package client

import (
	"errors"
	"fmt"

	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
)

// handleEvent translates whatsmeow events into lifecycle events and feeds
// message traffic into the chat history.
func (c *WhatsApp) handleEvent(evt interface{}) {
	switch e := evt.(type) {
	case *events.PairSuccess:
		c.logger.Info("paired", "jid", e.ID.String(), "platform", e.Platform)
		c.markAuthenticated()

	case *events.Connected:
		c.markAuthenticated()
		c.emit(Event{Kind: EventReady})

	case *events.LoggedOut:
		c.emit(Event{Kind: EventAuthFailure, Err: fmt.Errorf("logged out: %s", e.Reason.String())})

	case *events.ConnectFailure:
		c.emit(connectFailureEvent(e))

	case *events.TemporaryBan:
		c.emit(Event{Kind: EventAuthFailure, Err: errors.New(e.String())})

	case *events.ClientOutdated:
		c.emit(Event{Kind: EventAuthFailure, Err: errors.New("client outdated")})

	case *events.StreamReplaced:
		c.emit(Event{Kind: EventDisconnected, Err: errors.New("stream replaced by another connection")})

	case *events.Disconnected:
		c.emit(Event{Kind: EventDisconnected})

	case *events.Message:
		c.history.add(e.Info, e.Message)

	case *events.HistorySync:
		c.applyHistorySync(e)
	}
}

func (c *WhatsApp) applyHistorySync(e *events.HistorySync) {
	added := 0
	for _, conv := range e.Data.GetConversations() {
		chatJID, err := types.ParseJID(conv.GetID())
		if err != nil {
			continue
		}
		c.history.setChatName(chatJID, conv.GetName())
		for _, hm := range conv.GetMessages() {
			parsed, err := c.wa.ParseWebMessage(chatJID, hm.GetMessage())
			if err != nil {
				continue
			}
			c.history.add(parsed.Info, parsed.Message)
			added++
		}
	}
	c.logger.Debug("history sync applied",
		"type", e.Data.GetSyncType().String(),
		"conversations", len(e.Data.GetConversations()),
		"messages", added)
}

// connectFailureEvent reports credential problems as auth failures and
// server-side trouble as a plain disconnect.
func connectFailureEvent(e *events.ConnectFailure) Event {
	reason := e.Reason.String()
	if e.Message != "" {
		reason += ": " + e.Message
	}
	err := fmt.Errorf("connect failure: %s", reason)
	if e.Reason.IsLoggedOut() || e.Reason == events.ConnectFailureTempBanned || e.Reason == events.ConnectFailureClientOutdated {
		return Event{Kind: EventAuthFailure, Err: err}
	}
	return Event{Kind: EventDisconnected, Err: err}
}
