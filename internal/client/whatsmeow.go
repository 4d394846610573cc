package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	_ "github.com/mattn/go-sqlite3"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waCompanionReg"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	waLog "go.mau.fi/whatsmeow/util/log"
	"google.golang.org/protobuf/proto"

	"github.com/neekaru/whatsappgo-fleet/internal/utils"
)

// ErrMessageNotFound is returned by DownloadMedia when the message is no
// longer held in the chat history.
var ErrMessageNotFound = errors.New("message not found in history")

// Options configures WhatsApp clients built by NewFactory.
type Options struct {
	// DataDir holds one device database per instance, named <id>.db.
	DataDir string
	// LogLevel is the whatsmeow log level (DEBUG, INFO, WARN, ERROR).
	LogLevel string
	// HistoryPerChat bounds the messages kept per chat.
	HistoryPerChat int
	Logger         *slog.Logger
}

var deviceProps sync.Once

// NewFactory returns a Factory producing whatsmeow-backed clients.
func NewFactory(opts Options) Factory {
	return func(ctx context.Context, instanceID string) (Client, error) {
		return NewWhatsApp(ctx, instanceID, opts)
	}
}

// WhatsApp is a Client backed by a whatsmeow multi-device connection.
type WhatsApp struct {
	id        string
	container *sqlstore.Container
	wa        *whatsmeow.Client
	history   *history
	logger    *slog.Logger

	mu       sync.Mutex
	handlers []func(Event)

	authenticated atomic.Bool
	closed        atomic.Bool
	cancel        context.CancelFunc
}

// NewWhatsApp opens the instance's device store and builds an unconnected
// client. A fresh device is created when the store has none.
func NewWhatsApp(ctx context.Context, instanceID string, opts Options) (*WhatsApp, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.LogLevel == "" {
		opts.LogLevel = "WARN"
	}
	if err := os.MkdirAll(opts.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}

	deviceProps.Do(func() {
		store.SetOSInfo("WhatsApp Fleet", [3]uint32{1, 0, 0})
		store.DeviceProps.PlatformType = waCompanionReg.DeviceProps_CHROME.Enum()
	})

	dbPath := filepath.Join(opts.DataDir, instanceID+".db")
	container, err := sqlstore.New(ctx, "sqlite3",
		"file:"+dbPath+"?_foreign_keys=on",
		waLog.Stdout("Database-"+instanceID, opts.LogLevel, true))
	if err != nil {
		return nil, fmt.Errorf("opening device store: %w", err)
	}

	device, err := container.GetFirstDevice(ctx)
	if err != nil {
		container.Close()
		return nil, fmt.Errorf("getting device: %w", err)
	}

	wa := whatsmeow.NewClient(device, waLog.Stdout("WhatsApp-"+instanceID, opts.LogLevel, true))
	// Reconnects are owned by the session manager.
	wa.EnableAutoReconnect = false

	c := &WhatsApp{
		id:        instanceID,
		container: container,
		wa:        wa,
		history:   newHistory(opts.HistoryPerChat),
		logger:    opts.Logger.With("component", "whatsapp", "instance", instanceID),
	}
	wa.AddEventHandler(c.handleEvent)
	return c, nil
}

func (c *WhatsApp) OnEvent(handler func(Event)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers = append(c.handlers, handler)
}

func (c *WhatsApp) emit(evt Event) {
	if c.closed.Load() {
		return
	}
	c.mu.Lock()
	handlers := append([]func(Event){}, c.handlers...)
	c.mu.Unlock()
	for _, h := range handlers {
		h(evt)
	}
}

// markAuthenticated emits EventAuthenticated at most once per client.
func (c *WhatsApp) markAuthenticated() {
	if c.authenticated.CompareAndSwap(false, true) {
		c.emit(Event{Kind: EventAuthenticated})
	}
}

// Initialize connects to WhatsApp. Unpaired devices get a QR channel whose
// codes are emitted as EventQR until pairing succeeds or times out.
func (c *WhatsApp) Initialize(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	c.cancel = cancel
	c.mu.Unlock()

	if c.wa.Store.ID == nil {
		qrChan, err := c.wa.GetQRChannel(ctx)
		if err != nil {
			return fmt.Errorf("getting QR channel: %w", err)
		}
		go c.pumpQR(qrChan)
	}

	if err := c.wa.Connect(); err != nil {
		return fmt.Errorf("connecting: %w", err)
	}
	return nil
}

func (c *WhatsApp) pumpQR(qrChan <-chan whatsmeow.QRChannelItem) {
	for item := range qrChan {
		switch item.Event {
		case "code":
			c.emit(Event{Kind: EventQR, Payload: item.Code})
		case "success":
			c.markAuthenticated()
		case "timeout":
			c.emit(Event{Kind: EventAuthFailure, Err: errors.New("QR code timed out")})
		default:
			err := item.Error
			if err == nil {
				err = fmt.Errorf("pairing failed: %s", item.Event)
			}
			c.emit(Event{Kind: EventAuthFailure, Err: err})
		}
	}
}

func (c *WhatsApp) SendText(ctx context.Context, to, body string) (string, error) {
	jid, err := ParseAddress(to)
	if err != nil {
		return "", err
	}
	msg := &waE2E.Message{Conversation: proto.String(body)}
	resp, err := c.wa.SendMessage(ctx, jid, msg)
	if err != nil {
		return "", fmt.Errorf("sending message: %w", err)
	}
	c.recordSent(jid, resp, msg)
	return resp.ID, nil
}

func (c *WhatsApp) SendMedia(ctx context.Context, to string, media *Media, caption string) (string, error) {
	jid, err := ParseAddress(to)
	if err != nil {
		return "", err
	}
	kind := mediaKind(media.MimeType)
	uploaded, err := c.wa.Upload(ctx, media.Data, kind.upload)
	if err != nil {
		return "", fmt.Errorf("uploading media: %w", err)
	}

	var thumb []byte
	if kind.name == "video" {
		thumb, err = utils.VideoThumbnail(media.Data, utils.DefaultThumbnail)
		if err != nil {
			c.logger.Debug("video thumbnail skipped", "error", err)
		}
	}

	msg := buildMediaMessage(media, caption, uploaded, thumb)
	resp, err := c.wa.SendMessage(ctx, jid, msg)
	if err != nil {
		return "", fmt.Errorf("sending media: %w", err)
	}
	c.recordSent(jid, resp, msg)
	return resp.ID, nil
}

func (c *WhatsApp) recordSent(to types.JID, resp whatsmeow.SendResponse, msg *waE2E.Message) {
	src := types.MessageSource{Chat: to, IsFromMe: true}
	if c.wa.Store.ID != nil {
		src.Sender = *c.wa.Store.ID
	}
	c.history.add(types.MessageInfo{MessageSource: src, ID: resp.ID, Timestamp: resp.Timestamp}, msg)
}

func (c *WhatsApp) GetChats(ctx context.Context) ([]Chat, error) {
	return c.history.list(), nil
}

func (c *WhatsApp) FetchMessages(ctx context.Context, chatID string, limit int) ([]Message, error) {
	return c.history.messages(chatID, limit), nil
}

func (c *WhatsApp) DownloadMedia(ctx context.Context, msg Message) (*Media, error) {
	raw, ok := c.history.raw(msg.ChatID, msg.ID)
	if !ok {
		return nil, ErrMessageNotFound
	}
	data, err := c.wa.DownloadAny(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("downloading media: %w", err)
	}
	return &Media{MimeType: msg.MimeType, Data: data, FileName: msg.FileName}, nil
}

// Close disconnects and releases the device store. No events are emitted
// afterwards.
func (c *WhatsApp) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	c.mu.Unlock()
	c.wa.Disconnect()
	return c.container.Close()
}

type mediaType struct {
	name   string
	upload whatsmeow.MediaType
}

func mediaKind(mimeType string) mediaType {
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return mediaType{"image", whatsmeow.MediaImage}
	case strings.HasPrefix(mimeType, "video/"):
		return mediaType{"video", whatsmeow.MediaVideo}
	case strings.HasPrefix(mimeType, "audio/"):
		return mediaType{"audio", whatsmeow.MediaAudio}
	default:
		return mediaType{"document", whatsmeow.MediaDocument}
	}
}

func buildMediaMessage(media *Media, caption string, up whatsmeow.UploadResponse, thumb []byte) *waE2E.Message {
	var optCaption *string
	if caption != "" {
		optCaption = proto.String(caption)
	}
	switch mediaKind(media.MimeType).name {
	case "image":
		return &waE2E.Message{ImageMessage: &waE2E.ImageMessage{
			Caption:       optCaption,
			URL:           proto.String(up.URL),
			DirectPath:    proto.String(up.DirectPath),
			MediaKey:      up.MediaKey,
			Mimetype:      proto.String(media.MimeType),
			FileEncSHA256: up.FileEncSHA256,
			FileSHA256:    up.FileSHA256,
			FileLength:    proto.Uint64(up.FileLength),
		}}
	case "video":
		return &waE2E.Message{VideoMessage: &waE2E.VideoMessage{
			Caption:       optCaption,
			URL:           proto.String(up.URL),
			DirectPath:    proto.String(up.DirectPath),
			MediaKey:      up.MediaKey,
			Mimetype:      proto.String(media.MimeType),
			FileEncSHA256: up.FileEncSHA256,
			FileSHA256:    up.FileSHA256,
			FileLength:    proto.Uint64(up.FileLength),
			JPEGThumbnail: thumb,
		}}
	case "audio":
		return &waE2E.Message{AudioMessage: &waE2E.AudioMessage{
			URL:           proto.String(up.URL),
			DirectPath:    proto.String(up.DirectPath),
			MediaKey:      up.MediaKey,
			Mimetype:      proto.String(media.MimeType),
			FileEncSHA256: up.FileEncSHA256,
			FileSHA256:    up.FileSHA256,
			FileLength:    proto.Uint64(up.FileLength),
		}}
	default:
		fileName := media.FileName
		if fileName == "" {
			fileName = "file"
		}
		return &waE2E.Message{DocumentMessage: &waE2E.DocumentMessage{
			Caption:       optCaption,
			FileName:      proto.String(fileName),
			Title:         proto.String(fileName),
			URL:           proto.String(up.URL),
			DirectPath:    proto.String(up.DirectPath),
			MediaKey:      up.MediaKey,
			Mimetype:      proto.String(media.MimeType),
			FileEncSHA256: up.FileEncSHA256,
			FileSHA256:    up.FileSHA256,
			FileLength:    proto.Uint64(up.FileLength),
		}}
	}
}
