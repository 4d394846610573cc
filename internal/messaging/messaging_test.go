package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neekaru/whatsappgo-fleet/internal/app"
	"github.com/neekaru/whatsappgo-fleet/internal/client/clienttest"
	"github.com/neekaru/whatsappgo-fleet/internal/config"
	"github.com/neekaru/whatsappgo-fleet/internal/session"
	"github.com/neekaru/whatsappgo-fleet/internal/store"
)

func newTestApp(t *testing.T) (*app.App, *clienttest.Factory, *store.MemoryStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	st := store.NewMemoryStore()
	factory := clienttest.NewFactory()
	a := app.NewApp(config.NewConfig(), nil, st, factory.New, nil)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		a.Controller.Shutdown(ctx)
	})
	return a, factory, st
}

func startInstance(t *testing.T, a *app.App, factory *clienttest.Factory, id string) *clienttest.Fake {
	t.Helper()
	require.NoError(t, a.Controller.CreateAndStart(id))
	var fake *clienttest.Fake
	require.Eventually(t, func() bool {
		var ok bool
		fake, ok = factory.Ready(id)
		return ok
	}, time.Second, 5*time.Millisecond)
	return fake
}

func TestSendTextNormalizesRecipients(t *testing.T) {
	a, factory, _ := newTestApp(t)
	fake := startInstance(t, a, factory, "A")
	svc := NewService(a)

	_, err := svc.SendText(context.Background(), "A", "555", "hi", "")
	require.NoError(t, err)
	_, err = svc.SendText(context.Background(), "A", "555@c.us", "hi", "")
	require.NoError(t, err)

	sent := fake.Sent()
	require.Len(t, sent, 2)
	assert.Equal(t, sent[0].To, sent[1].To)
	assert.Equal(t, "555@s.whatsapp.net", sent[0].To)
}

func TestSendTextUnknownInstanceHasNoSideEffects(t *testing.T) {
	a, _, st := newTestApp(t)

	_, err := NewService(a).SendText(context.Background(), "ghost", "555", "hi", "")
	assert.ErrorIs(t, err, session.ErrInstanceNotFound)
	assert.Equal(t, 0, a.Registry.Count())
	assert.Equal(t, 0, st.Writes())
}

func TestSendMessageHandler(t *testing.T) {
	a, factory, _ := newTestApp(t)
	fake := startInstance(t, a, factory, "A")

	r := gin.New()
	r.GET("/send-message/:instanceId", NewHandlers(a).SendMessageHandler)
	get := func(path string) (int, map[string]any) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		var body map[string]any
		_ = json.Unmarshal(w.Body.Bytes(), &body)
		return w.Code, body
	}

	code, body := get("/send-message/A?number=555&message=hello&refId=order-9")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "A-msg-1", body["messageId"])
	assert.Equal(t, "order-9", body["refId"])

	code, body = get("/send-message/A?number=555&message=hello")
	require.Equal(t, http.StatusOK, code)
	_, hasRef := body["refId"]
	assert.False(t, hasRef)

	code, _ = get("/send-message/ghost?number=555&message=hello")
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = get("/send-message/A?number=555")
	assert.Equal(t, http.StatusBadRequest, code)

	fake.SendErr = errors.New("not connected")
	code, body = get("/send-message/A?number=555&message=hello")
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, false, body["success"])
	assert.Contains(t, body["error"], "not connected")
}
