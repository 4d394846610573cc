package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/neekaru/whatsappgo-fleet/internal/client"
	"github.com/neekaru/whatsappgo-fleet/internal/store"
)

// QREncoder turns a raw pairing code into the payload served to callers.
type QREncoder func(code string) (string, error)

// Options tunes the controller.
type Options struct {
	// StoreTimeout bounds each durable status write.
	StoreTimeout time.Duration
	// EventBuffer is the per-session event channel capacity.
	EventBuffer int
	// ObserverWorkers and ObserverQueue size the status dispatcher.
	ObserverWorkers int
	ObserverQueue   int
}

// Controller owns the lifecycle of every session: it creates them, feeds
// client events through their state machine and applies the resulting side
// effects on the Registry and the Store.
type Controller struct {
	registry *Registry
	store    store.Store
	factory  client.Factory
	encodeQR QREncoder
	opts     Options
	logger   *slog.Logger
	events   *Dispatcher
	now      func() time.Time

	mu     sync.Mutex
	closed bool
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewController(registry *Registry, st store.Store, factory client.Factory, encodeQR QREncoder, opts Options, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.StoreTimeout <= 0 {
		opts.StoreTimeout = 5 * time.Second
	}
	if opts.EventBuffer <= 0 {
		opts.EventBuffer = 64
	}
	if encodeQR == nil {
		encodeQR = func(code string) (string, error) { return code, nil }
	}
	ctx, cancel := context.WithCancel(context.Background())
	logger = logger.With("component", "session")
	return &Controller{
		registry: registry,
		store:    st,
		factory:  factory,
		encodeQR: encodeQR,
		opts:     opts,
		logger:   logger,
		events:   NewDispatcher(opts.ObserverWorkers, opts.ObserverQueue, logger),
		now:      time.Now,
		ctx:      ctx,
		cancel:   cancel,
	}
}

func (c *Controller) Registry() *Registry { return c.registry }

func (c *Controller) Store() store.Store { return c.store }

// Subscribe registers an observer of status events.
func (c *Controller) Subscribe(o Observer) (unsubscribe func()) {
	return c.events.Register(o)
}

// CreateAndStart registers a new session for id and initializes its client
// in the background. It returns as soon as the session is registered;
// initialization failures only show up in the session state.
func (c *Controller) CreateAndStart(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrControllerClosed
	}

	sess := newSession(id, c.now())
	if !c.registry.TryRegister(id, sess) {
		return ErrInstanceAlreadyExists
	}

	ctx, cancel := context.WithCancel(c.ctx)
	sess.cancel = cancel

	// CREATING is queued before the loop can queue any transition.
	c.events.Dispatch(StatusEvent{InstanceID: id, State: StateCreating, Previous: StateCreating, Timestamp: c.now()})
	c.logger.Info("session created", "instance", id)

	c.wg.Add(1)
	go c.run(ctx, sess)
	return nil
}

// run builds the client and then serializes all of its events through a
// single loop until the session is torn down.
func (c *Controller) run(ctx context.Context, sess *Session) {
	defer c.wg.Done()
	defer close(sess.done)

	cl, err := c.factory(ctx, sess.ID)
	if err != nil {
		c.apply(sess, client.Event{Kind: eventInitFailure, Err: fmt.Errorf("creating client: %w", err)})
		return
	}
	sess.setClient(cl)

	// The client is closed before waiting on Initialize so a pending
	// connect is interrupted.
	var initWG sync.WaitGroup
	defer initWG.Wait()
	defer func() {
		if err := cl.Close(); err != nil {
			c.logger.Warn("closing client", "instance", sess.ID, "error", err)
		}
	}()

	events := make(chan client.Event, c.opts.EventBuffer)
	push := func(evt client.Event) {
		select {
		case events <- evt:
		case <-ctx.Done():
		}
	}
	cl.OnEvent(push)

	initWG.Add(1)
	go func() {
		defer initWG.Done()
		if err := cl.Initialize(ctx); err != nil {
			push(client.Event{Kind: eventInitFailure, Err: fmt.Errorf("initializing client: %w", err)})
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case evt := <-events:
			c.apply(sess, evt)
		}
	}
}

// apply runs one event through the state machine. Events for a session no
// longer in the registry are ignored.
func (c *Controller) apply(sess *Session, evt client.Event) {
	if cur, ok := c.registry.Get(sess.ID); !ok || cur != sess {
		return
	}
	log := c.logger.With("instance", sess.ID)

	// Encode before transitioning so a failed encoding leaves the state as is.
	var qr string
	if evt.Kind == client.EventQR {
		encoded, err := c.encodeQR(evt.Payload)
		if err != nil {
			log.Error("encoding QR code", "error", err)
			return
		}
		qr = encoded
	}

	prev, next, ok := sess.advance(evt, c.now())
	if !ok {
		log.Debug("event ignored", "event", string(evt.Kind), "state", prev.String())
		return
	}

	switch next {
	case StateAwaitingQR:
		c.registry.SetQR(sess.ID, qr)
	case StateAuthenticated:
		c.registry.ClearQR(sess.ID)
		c.persist(sess.ID, store.StatusAuthenticated)
	case StateReady:
		c.registry.ClearQR(sess.ID)
	case StateDisconnected:
		c.registry.ClearQR(sess.ID)
		c.persist(sess.ID, store.StatusInactive)
	case StateAuthFailed:
		c.registry.ClearQR(sess.ID)
		log.Error("session failed", "event", string(evt.Kind), "error", evt.Err)
	}

	status := StatusEvent{InstanceID: sess.ID, State: next, Previous: prev, Timestamp: c.now()}
	if evt.Err != nil {
		status.Error = evt.Err.Error()
	}
	c.events.Dispatch(status)
}

func (c *Controller) persist(id string, status store.Status) {
	ctx, cancel := context.WithTimeout(context.Background(), c.opts.StoreTimeout)
	defer cancel()
	if err := c.store.UpsertStatus(ctx, id, status); err != nil {
		c.logger.Error("persisting session status", "instance", id, "status", string(status), "error", err)
	}
}

// Restore re-creates a session for every instance recorded in the Store.
// A Store failure is returned; per-instance failures are not.
func (c *Controller) Restore(ctx context.Context) error {
	ids, err := c.store.ListInstanceIDs(ctx)
	if err != nil {
		return fmt.Errorf("listing stored instances: %w", err)
	}
	for _, id := range ids {
		if err := c.CreateAndStart(id); err != nil {
			c.logger.Warn("restoring session", "instance", id, "error", err)
		}
	}
	c.logger.Info("sessions restored", "count", len(ids))
	return nil
}

// Teardown stops an instance, closes its client, forgets it and deletes its
// durable record.
func (c *Controller) Teardown(ctx context.Context, id string) error {
	sess, ok := c.registry.Get(id)
	if !ok {
		return ErrInstanceNotFound
	}
	if !c.registry.removeIf(id, sess) {
		return ErrInstanceNotFound
	}
	prev := sess.State()
	sess.cancel()

	select {
	case <-sess.done:
	case <-ctx.Done():
		c.logger.Warn("teardown did not wait for session loop", "instance", id, "error", ctx.Err())
	}

	c.events.Dispatch(StatusEvent{InstanceID: id, State: prev, Previous: prev, Removed: true, Timestamp: c.now()})

	// Detached from ctx: a cancelled request must still delete the record.
	storeCtx, cancel := context.WithTimeout(context.Background(), c.opts.StoreTimeout)
	defer cancel()
	if err := c.store.Delete(storeCtx, id); err != nil && !errors.Is(err, store.ErrNotFound) {
		c.logger.Error("deleting session record", "instance", id, "error", err)
		return fmt.Errorf("deleting session record: %w", err)
	}
	return nil
}

// Shutdown stops every session loop and closes every client without
// touching the Store, so the fleet is restored on the next start.
func (c *Controller) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.cancel()

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
	case <-ctx.Done():
		err = fmt.Errorf("waiting for sessions: %w", ctx.Err())
	}
	c.events.Close()
	return err
}
