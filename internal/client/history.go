package client

import (
	"sort"
	"sync"

	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/types"
)

// history keeps the most recent messages of every chat seen by a client.
// whatsmeow does not serve chat history on demand, so chats and messages
// are assembled from history syncs and live message events.
type history struct {
	mu      sync.RWMutex
	perChat int
	chats   map[string]*chatLog
}

type chatLog struct {
	chat    Chat
	entries []entry // oldest first
}

type entry struct {
	msg Message
	raw *waE2E.Message
}

func newHistory(perChat int) *history {
	if perChat <= 0 {
		perChat = 500
	}
	return &history{perChat: perChat, chats: make(map[string]*chatLog)}
}

func (h *history) chatFor(jid types.JID) *chatLog {
	key := jid.ToNonAD().String()
	log, ok := h.chats[key]
	if !ok {
		log = &chatLog{chat: Chat{
			ID:      key,
			User:    jid.User,
			IsGroup: jid.Server == types.GroupServer,
		}}
		h.chats[key] = log
	}
	return log
}

func (h *history) setChatName(jid types.JID, name string) {
	if name == "" {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.chatFor(jid).chat.Name = name
}

// add records a message, ignoring duplicates by ID. Out-of-order messages
// from history syncs are inserted by timestamp; the oldest are evicted once
// the chat exceeds its capacity.
func (h *history) add(info types.MessageInfo, raw *waE2E.Message) {
	if raw == nil {
		return
	}
	msg := describe(info, raw)

	h.mu.Lock()
	defer h.mu.Unlock()

	log := h.chatFor(info.Chat)
	if log.chat.Name == "" && !info.IsFromMe && !info.IsGroup && info.PushName != "" {
		log.chat.Name = info.PushName
	}
	for _, e := range log.entries {
		if e.msg.ID == msg.ID {
			return
		}
	}

	i := sort.Search(len(log.entries), func(i int) bool {
		return log.entries[i].msg.Timestamp.After(msg.Timestamp)
	})
	log.entries = append(log.entries, entry{})
	copy(log.entries[i+1:], log.entries[i:])
	log.entries[i] = entry{msg: msg, raw: raw}

	if over := len(log.entries) - h.perChat; over > 0 {
		log.entries = append(log.entries[:0:0], log.entries[over:]...)
	}
	if last := log.entries[len(log.entries)-1].msg.Timestamp; last.After(log.chat.LastMessageAt) {
		log.chat.LastMessageAt = last
	}
}

// list returns all chats, most recently active first.
func (h *history) list() []Chat {
	h.mu.RLock()
	defer h.mu.RUnlock()

	chats := make([]Chat, 0, len(h.chats))
	for _, log := range h.chats {
		chats = append(chats, log.chat)
	}
	sort.Slice(chats, func(i, j int) bool {
		if chats[i].LastMessageAt.Equal(chats[j].LastMessageAt) {
			return chats[i].ID < chats[j].ID
		}
		return chats[i].LastMessageAt.After(chats[j].LastMessageAt)
	})
	return chats
}

// messages returns up to limit of the newest messages of a chat, newest
// first.
func (h *history) messages(chatID string, limit int) []Message {
	h.mu.RLock()
	defer h.mu.RUnlock()

	log, ok := h.chats[chatID]
	if !ok {
		return []Message{}
	}
	n := len(log.entries)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]Message, 0, n)
	for i := len(log.entries) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, log.entries[i].msg)
	}
	return out
}

func (h *history) raw(chatID, msgID string) (*waE2E.Message, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	log, ok := h.chats[chatID]
	if !ok {
		return nil, false
	}
	for _, e := range log.entries {
		if e.msg.ID == msgID {
			return e.raw, true
		}
	}
	return nil, false
}

// describe flattens a protocol message into its API shape.
func describe(info types.MessageInfo, raw *waE2E.Message) Message {
	msg := Message{
		ID:        info.ID,
		ChatID:    info.Chat.ToNonAD().String(),
		From:      info.Sender.ToNonAD().String(),
		FromMe:    info.IsFromMe,
		Timestamp: info.Timestamp,
		Type:      "unknown",
	}
	switch {
	case raw.GetConversation() != "":
		msg.Type, msg.Body = "text", raw.GetConversation()
	case raw.GetExtendedTextMessage() != nil:
		msg.Type, msg.Body = "text", raw.GetExtendedTextMessage().GetText()
	case raw.GetImageMessage() != nil:
		m := raw.GetImageMessage()
		msg.Type, msg.Body, msg.MimeType = "image", m.GetCaption(), m.GetMimetype()
	case raw.GetVideoMessage() != nil:
		m := raw.GetVideoMessage()
		msg.Type, msg.Body, msg.MimeType = "video", m.GetCaption(), m.GetMimetype()
	case raw.GetAudioMessage() != nil:
		msg.Type, msg.MimeType = "audio", raw.GetAudioMessage().GetMimetype()
	case raw.GetDocumentMessage() != nil:
		m := raw.GetDocumentMessage()
		msg.Type, msg.Body, msg.MimeType = "document", m.GetCaption(), m.GetMimetype()
		msg.FileName = m.GetFileName()
	case raw.GetStickerMessage() != nil:
		msg.Type, msg.MimeType = "sticker", raw.GetStickerMessage().GetMimetype()
	}
	msg.HasMedia = msg.MimeType != ""
	return msg
}
