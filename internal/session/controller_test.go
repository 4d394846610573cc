package session

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neekaru/whatsappgo-fleet/internal/client"
	"github.com/neekaru/whatsappgo-fleet/internal/client/clienttest"
	"github.com/neekaru/whatsappgo-fleet/internal/store"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

func encodeTest(code string) (string, error) { return "png:" + code, nil }

func newTestController(t *testing.T, st store.Store) (*Controller, *clienttest.Factory) {
	t.Helper()
	factory := clienttest.NewFactory()
	ctrl := NewController(NewRegistry(), st, factory.New, encodeTest, Options{StoreTimeout: time.Second, ObserverWorkers: 2}, nil)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), waitFor)
		defer cancel()
		ctrl.Shutdown(ctx)
	})
	return ctrl, factory
}

func waitState(t *testing.T, ctrl *Controller, id string, want State) {
	t.Helper()
	require.Eventually(t, func() bool {
		sess, ok := ctrl.Registry().Get(id)
		return ok && sess.State() == want
	}, waitFor, tick, "instance %s never reached %s", id, want)
}

func waitClient(t *testing.T, factory *clienttest.Factory, id string) *clienttest.Fake {
	t.Helper()
	var fake *clienttest.Fake
	require.Eventually(t, func() bool {
		var ok bool
		fake, ok = factory.Ready(id)
		return ok
	}, waitFor, tick)
	return fake
}

func TestCreateAndStartRejectsConcurrentDuplicates(t *testing.T) {
	st := store.NewMemoryStore()
	ctrl, _ := newTestController(t, st)

	var wg sync.WaitGroup
	errs := make(chan error, 32)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- ctrl.CreateAndStart("A")
		}()
	}
	wg.Wait()
	close(errs)

	accepted := 0
	for err := range errs {
		if err == nil {
			accepted++
			continue
		}
		assert.ErrorIs(t, err, ErrInstanceAlreadyExists)
	}
	assert.Equal(t, 1, accepted)
	assert.Equal(t, 1, ctrl.Registry().Count())
}

func TestQRLifecycle(t *testing.T) {
	st := store.NewMemoryStore()
	ctrl, factory := newTestController(t, st)

	require.NoError(t, ctrl.CreateAndStart("A"))
	_, ok := ctrl.Registry().GetQR("A")
	assert.False(t, ok, "no QR before the client emits one")

	fake := waitClient(t, factory, "A")
	fake.Emit(client.Event{Kind: client.EventQR, Payload: "X1"})
	waitState(t, ctrl, "A", StateAwaitingQR)

	qr, ok := ctrl.Registry().GetQR("A")
	require.True(t, ok)
	assert.Equal(t, "png:X1", qr)

	fake.Emit(client.Event{Kind: client.EventQR, Payload: "X2"})
	require.Eventually(t, func() bool {
		qr, _ := ctrl.Registry().GetQR("A")
		return qr == "png:X2"
	}, waitFor, tick)

	fake.Emit(client.Event{Kind: client.EventAuthenticated})
	waitState(t, ctrl, "A", StateAuthenticated)

	_, ok = ctrl.Registry().GetQR("A")
	assert.False(t, ok, "QR must be cleared once authenticated")
	rec, err := st.Get(context.Background(), "A")
	require.NoError(t, err)
	assert.Equal(t, store.StatusAuthenticated, rec.Status)

	fake.Emit(client.Event{Kind: client.EventReady})
	waitState(t, ctrl, "A", StateReady)

	_, ok = ctrl.Registry().GetQR("A")
	assert.False(t, ok)
	rec, err = st.Get(context.Background(), "A")
	require.NoError(t, err)
	assert.Equal(t, store.StatusAuthenticated, rec.Status, "ready does not rewrite the record")
}

func TestAuthenticatedWithoutQR(t *testing.T) {
	st := store.NewMemoryStore()
	ctrl, factory := newTestController(t, st)
	factory.Configure = func(f *clienttest.Fake) {
		f.InitEvents = []client.Event{{Kind: client.EventAuthenticated}, {Kind: client.EventReady}}
	}

	require.NoError(t, ctrl.CreateAndStart("A"))
	waitState(t, ctrl, "A", StateReady)

	_, err := ctrl.Registry().LookupReady("A")
	assert.NoError(t, err)
}

func TestDisconnectFromEveryLiveState(t *testing.T) {
	scripts := map[State][]client.Event{
		StateCreating:      nil,
		StateAwaitingQR:    {{Kind: client.EventQR, Payload: "X1"}},
		StateAuthenticated: {{Kind: client.EventAuthenticated}},
		StateReady:         {{Kind: client.EventAuthenticated}, {Kind: client.EventReady}},
	}
	for from, script := range scripts {
		t.Run(from.String(), func(t *testing.T) {
			st := store.NewMemoryStore()
			ctrl, factory := newTestController(t, st)

			require.NoError(t, ctrl.CreateAndStart("A"))
			fake := waitClient(t, factory, "A")
			for _, evt := range script {
				fake.Emit(evt)
			}
			waitState(t, ctrl, "A", from)

			fake.Emit(client.Event{Kind: client.EventDisconnected, Err: errors.New("network lost")})
			waitState(t, ctrl, "A", StateDisconnected)

			sess, ok := ctrl.Registry().Get("A")
			require.True(t, ok, "disconnected sessions stay registered")
			assert.EqualError(t, sess.LastError(), "network lost")
			_, ok = ctrl.Registry().GetQR("A")
			assert.False(t, ok)

			require.Eventually(t, func() bool {
				rec, err := st.Get(context.Background(), "A")
				return err == nil && rec.Status == store.StatusInactive
			}, waitFor, tick)
		})
	}
}

func TestTerminalStateIgnoresEvents(t *testing.T) {
	st := store.NewMemoryStore()
	ctrl, factory := newTestController(t, st)

	require.NoError(t, ctrl.CreateAndStart("A"))
	fake := waitClient(t, factory, "A")
	fake.Emit(client.Event{Kind: client.EventAuthFailure, Err: errors.New("logged out")})
	waitState(t, ctrl, "A", StateAuthFailed)

	fake.Emit(client.Event{Kind: client.EventQR, Payload: "late"})
	fake.Emit(client.Event{Kind: client.EventAuthenticated})
	fake.Emit(client.Event{Kind: client.EventReady})
	time.Sleep(50 * time.Millisecond)

	sess, _ := ctrl.Registry().Get("A")
	assert.Equal(t, StateAuthFailed, sess.State())
	_, ok := ctrl.Registry().GetQR("A")
	assert.False(t, ok)
	_, err := st.Get(context.Background(), "A")
	assert.ErrorIs(t, err, store.ErrNotFound, "auth failures are not persisted")
}

func TestInitFailures(t *testing.T) {
	st := store.NewMemoryStore()
	ctrl, factory := newTestController(t, st)
	factory.FailFor("broken", errors.New("disk full"))
	factory.Configure = func(f *clienttest.Fake) {
		if f.ID == "refused" {
			f.InitErr = errors.New("connection refused")
		}
	}

	require.NoError(t, ctrl.CreateAndStart("broken"))
	require.NoError(t, ctrl.CreateAndStart("refused"))
	waitState(t, ctrl, "broken", StateAuthFailed)
	waitState(t, ctrl, "refused", StateAuthFailed)

	sess, _ := ctrl.Registry().Get("broken")
	assert.ErrorContains(t, sess.LastError(), "disk full")
	sess, _ = ctrl.Registry().Get("refused")
	assert.ErrorContains(t, sess.LastError(), "connection refused")
	assert.Equal(t, 0, st.Writes())
}

func TestStoreFailureDoesNotBlockTransitions(t *testing.T) {
	st := store.NewMemoryStore()
	st.Fail = errors.New("database is locked")
	ctrl, factory := newTestController(t, st)
	factory.Configure = func(f *clienttest.Fake) {
		f.InitEvents = []client.Event{{Kind: client.EventAuthenticated}, {Kind: client.EventReady}}
	}

	require.NoError(t, ctrl.CreateAndStart("A"))
	waitState(t, ctrl, "A", StateReady)
	assert.Equal(t, 1, st.Writes())
}

func TestRestoreReplaysStoredInstances(t *testing.T) {
	st := store.NewMemoryStore("A", "B")
	ctrl, factory := newTestController(t, st)
	factory.Configure = func(f *clienttest.Fake) {
		switch f.ID {
		case "A":
			f.InitErr = errors.New("credentials corrupt")
		case "B":
			f.InitEvents = []client.Event{{Kind: client.EventAuthenticated}, {Kind: client.EventReady}}
		}
	}

	require.NoError(t, ctrl.Restore(context.Background()))
	waitState(t, ctrl, "A", StateAuthFailed)
	waitState(t, ctrl, "B", StateReady)
	assert.Equal(t, 2, ctrl.Registry().Count())
}

func TestRestoreFailsWhenStoreUnavailable(t *testing.T) {
	st := store.NewMemoryStore()
	st.ListErr = store.ErrStoreUnavailable
	ctrl, _ := newTestController(t, st)

	err := ctrl.Restore(context.Background())
	assert.ErrorIs(t, err, store.ErrStoreUnavailable)
	assert.Equal(t, 0, ctrl.Registry().Count())
}

func TestTeardown(t *testing.T) {
	st := store.NewMemoryStore()
	ctrl, factory := newTestController(t, st)
	factory.Configure = func(f *clienttest.Fake) {
		f.InitEvents = []client.Event{{Kind: client.EventAuthenticated}}
	}

	var mu sync.Mutex
	var removed bool
	ctrl.Subscribe(ObserverFunc(func(e StatusEvent) {
		mu.Lock()
		defer mu.Unlock()
		removed = removed || e.Removed
	}))

	require.NoError(t, ctrl.CreateAndStart("A"))
	waitState(t, ctrl, "A", StateAuthenticated)
	fake := factory.Client("A")

	assert.ErrorIs(t, ctrl.Teardown(context.Background(), "missing"), ErrInstanceNotFound)
	require.NoError(t, ctrl.Teardown(context.Background(), "A"))

	assert.True(t, fake.Closed())
	_, ok := ctrl.Registry().Get("A")
	assert.False(t, ok)
	_, err := st.Get(context.Background(), "A")
	assert.ErrorIs(t, err, store.ErrNotFound)
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return removed
	}, waitFor, tick)

	// A late event from the old client must not resurrect anything.
	fake.Emit(client.Event{Kind: client.EventReady})
	assert.Equal(t, 0, ctrl.Registry().Count())

	require.NoError(t, ctrl.CreateAndStart("A"))
	waitState(t, ctrl, "A", StateAuthenticated)
}

func TestTeardownDeletesRecordWhenCallerGaveUp(t *testing.T) {
	dsn := "file:" + filepath.Join(t.TempDir(), "sessions.db") + "?_foreign_keys=on"
	st, err := store.Open(context.Background(), "sqlite3", dsn, nil)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	ctrl, factory := newTestController(t, st)
	factory.Configure = func(f *clienttest.Fake) {
		f.InitEvents = []client.Event{{Kind: client.EventAuthenticated}}
	}
	require.NoError(t, ctrl.CreateAndStart("A"))
	require.Eventually(t, func() bool {
		ids, err := st.ListInstanceIDs(context.Background())
		return err == nil && len(ids) == 1
	}, waitFor, tick)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, ctrl.Teardown(ctx, "A"))

	ids, err := st.ListInstanceIDs(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ids, "a removed instance must not come back on restore")
}

func TestTeardownReportsDeleteFailure(t *testing.T) {
	st := store.NewMemoryStore()
	ctrl, _ := newTestController(t, st)

	require.NoError(t, ctrl.CreateAndStart("A"))
	st.Fail = errors.New("database is locked")
	err := ctrl.Teardown(context.Background(), "A")
	assert.ErrorContains(t, err, "database is locked")
	assert.Equal(t, 0, ctrl.Registry().Count())
}

// slowCreateLog delays the "session created" record, widening the window in
// which a fast client could race its first transition ahead of CREATING.
type slowCreateLog struct{ delay time.Duration }

func (h slowCreateLog) Enabled(context.Context, slog.Level) bool { return true }

func (h slowCreateLog) Handle(_ context.Context, r slog.Record) error {
	if r.Message == "session created" {
		time.Sleep(h.delay)
	}
	return nil
}

func (h slowCreateLog) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h slowCreateLog) WithGroup(string) slog.Handler      { return h }

func TestCreatingIsObservedBeforeFirstTransition(t *testing.T) {
	factory := clienttest.NewFactory()
	factory.Configure = func(f *clienttest.Fake) {
		f.InitEvents = []client.Event{{Kind: client.EventQR, Payload: "X1"}}
	}
	logger := slog.New(slowCreateLog{delay: 50 * time.Millisecond})
	ctrl := NewController(NewRegistry(), store.NewMemoryStore(), factory.New, encodeTest, Options{ObserverWorkers: 2}, logger)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), waitFor)
		defer cancel()
		ctrl.Shutdown(ctx)
	})

	var mu sync.Mutex
	var states []State
	ctrl.Subscribe(ObserverFunc(func(e StatusEvent) {
		mu.Lock()
		defer mu.Unlock()
		states = append(states, e.State)
	}))

	require.NoError(t, ctrl.CreateAndStart("A"))
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(states) == 2
	}, waitFor, tick)
	assert.Equal(t, []State{StateCreating, StateAwaitingQR}, states)
}

func TestObserversSeeTransitionsInOrder(t *testing.T) {
	st := store.NewMemoryStore()
	ctrl, factory := newTestController(t, st)
	factory.Configure = func(f *clienttest.Fake) {
		f.InitEvents = []client.Event{
			{Kind: client.EventQR, Payload: "X1"},
			{Kind: client.EventAuthenticated},
			{Kind: client.EventReady},
		}
	}

	var mu sync.Mutex
	var states []State
	ctrl.Subscribe(InstanceObserver{InstanceID: "A", Observer: ObserverFunc(func(e StatusEvent) {
		mu.Lock()
		defer mu.Unlock()
		states = append(states, e.State)
	})})

	require.NoError(t, ctrl.CreateAndStart("A"))
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(states) == 4
	}, waitFor, tick)
	assert.Equal(t, []State{StateCreating, StateAwaitingQR, StateAuthenticated, StateReady}, states)
}

func TestShutdownClosesClients(t *testing.T) {
	st := store.NewMemoryStore()
	ctrl, factory := newTestController(t, st)

	require.NoError(t, ctrl.CreateAndStart("A"))
	fake := waitClient(t, factory, "A")

	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	defer cancel()
	require.NoError(t, ctrl.Shutdown(ctx))

	assert.True(t, fake.Closed())
	assert.ErrorIs(t, ctrl.CreateAndStart("B"), ErrControllerClosed)
	assert.Equal(t, 0, st.Writes(), "shutdown keeps durable records")
}
