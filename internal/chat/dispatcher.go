package chat

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// Dispatcher routes inbound chat messages to a handler, serializing
// messages from the same sender so conversation state is never
// read-modify-written out of order. Distinct senders proceed concurrently.
type Dispatcher struct {
	handler Handler
	sender  Sender
	logger  zerolog.Logger

	mu    sync.Mutex
	locks map[string]*senderLock
}

type senderLock struct {
	mu   sync.Mutex
	refs int
}

// NewDispatcher creates a dispatcher that feeds messages to handler and
// sends the handler's replies through sender.
func NewDispatcher(handler Handler, sender Sender, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		handler: handler,
		sender:  sender,
		logger:  logger.With().Str("component", "dispatcher").Logger(),
	}
}

// Dispatch processes one inbound message. It blocks until any in-flight
// message from the same sender has finished, runs the handler, and sends
// the reply. Send failures are logged and swallowed.
func (d *Dispatcher) Dispatch(ctx context.Context, senderID, text string) {
	lock := d.acquire(senderID)
	lock.mu.Lock()
	defer func() {
		lock.mu.Unlock()
		d.release(senderID)
	}()

	reply := d.handler.HandleMessage(ctx, senderID, text)
	if reply == "" {
		return
	}

	if err := d.sender.Send(ctx, senderID, reply); err != nil {
		d.logger.Warn().Err(err).Str("sender", senderID).Msg("Failed to send reply")
	}
}

// acquire returns the lock for a sender, creating it on first use. Locks
// are reference-counted so idle senders do not accumulate entries.
func (d *Dispatcher) acquire(senderID string) *senderLock {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.locks == nil {
		d.locks = make(map[string]*senderLock)
	}
	lock, ok := d.locks[senderID]
	if !ok {
		lock = &senderLock{}
		d.locks[senderID] = lock
	}
	lock.refs++
	return lock
}

func (d *Dispatcher) release(senderID string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	lock, ok := d.locks[senderID]
	if !ok {
		return
	}
	lock.refs--
	if lock.refs == 0 {
		delete(d.locks, senderID)
	}
}
