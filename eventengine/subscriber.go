package eventengine

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/web3guy0/tradecore/types"
)

// slowHandlerThreshold is the wall-clock duration after which a handler
// invocation is logged as slow. It is never killed — per §5, handlers may
// perform arbitrary blocking I/O at the cost of their own worker only.
const slowHandlerThreshold = 5 * time.Second

// drainDeadline bounds how long a worker will keep draining its inbox
// during shutdown before being abandoned (not force-killed — just no
// longer joined).
const drainDeadline = 5 * time.Second

// subscription is one (eventType, handler) pair: its own bounded inbox and
// dedicated worker goroutine, serialized against itself.
type subscription struct {
	eventType types.EventType
	handler   Handler

	inbox  chan *types.Event
	stopCh chan struct{}
	done   chan struct{}

	active    int32 // atomic bool
	processed int64
	failed    int64
	dropped   int64
}

func newSubscription(eventType types.EventType, handler Handler, inboxCap int) *subscription {
	if inboxCap < 1 {
		inboxCap = 1
	}
	return &subscription{
		eventType: eventType,
		handler:   handler,
		inbox:     make(chan *types.Event, inboxCap),
		stopCh:    make(chan struct{}),
		done:      make(chan struct{}),
	}
}

func (s *subscription) isActive() bool {
	return atomic.LoadInt32(&s.active) == 1
}

// offer attempts a non-blocking insertion into the inbox. On failure the
// caller (the dispatcher) logs-and-drops for this subscriber only.
func (s *subscription) offer(ev *types.Event) bool {
	select {
	case s.inbox <- ev:
		return true
	default:
		atomic.AddInt64(&s.dropped, 1)
		return false
	}
}

// run is the subscriber's dedicated worker loop. Invocations are strictly
// serialized: the handler never sees two events concurrently.
func (s *subscription) run(wg *sync.WaitGroup) {
	defer wg.Done()
	defer close(s.done)

	atomic.StoreInt32(&s.active, 1)
	defer atomic.StoreInt32(&s.active, 0)

	for {
		select {
		case ev := <-s.inbox:
			s.invoke(ev)
		case <-s.stopCh:
			s.drain()
			return
		}
	}
}

// drain best-effort processes whatever is already queued, bounded by
// drainDeadline, then returns so the worker can exit.
func (s *subscription) drain() {
	deadline := time.After(drainDeadline)
	for {
		select {
		case ev := <-s.inbox:
			s.invoke(ev)
		case <-deadline:
			return
		default:
			if len(s.inbox) == 0 {
				return
			}
		}
	}
}

func (s *subscription) invoke(ev *types.Event) {
	start := time.Now()
	func() {
		defer func() {
			if r := recover(); r != nil {
				atomic.AddInt64(&s.failed, 1)
				log.Error().
					Interface("panic", r).
					Str("handler", s.handler.Name()).
					Str("event", ev.String()).
					Msg("⚠️ handler panicked, isolated to this subscriber")
			}
		}()
		s.handler.HandleEvent(ev)
	}()

	atomic.AddInt64(&s.processed, 1)

	if elapsed := time.Since(start); elapsed > slowHandlerThreshold {
		log.Warn().
			Str("handler", s.handler.Name()).
			Dur("elapsed", elapsed).
			Msg("🐢 slow handler exceeded 5s budget")
	}
}

// Subscription is the public handle returned from Register.
type Subscription struct {
	sub *subscription
}

// SubscriberStats is a point-in-time snapshot of one subscriber's counters.
type SubscriberStats struct {
	EventType string
	Handler   string
	InboxSize int
	Processed int64
	Failed    int64
	Dropped   int64
	Active    bool
}

func (s *subscription) statsSnapshot() SubscriberStats {
	return SubscriberStats{
		EventType: string(s.eventType),
		Handler:   s.handler.Name(),
		InboxSize: len(s.inbox),
		Processed: atomic.LoadInt64(&s.processed),
		Failed:    atomic.LoadInt64(&s.failed),
		Dropped:   atomic.LoadInt64(&s.dropped),
		Active:    s.isActive(),
	}
}
