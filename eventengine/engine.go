package eventengine

import (
	"container/heap"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/web3guy0/tradecore/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// EVENT ENGINE — prioritized, multi-subscriber, non-blocking publish/dispatch
// ═══════════════════════════════════════════════════════════════════════════════
//
// Topology: one main priority queue fed by any number of publishers, drained
// by exactly one dispatcher goroutine, fanning out to per-(eventType,handler)
// inboxes each served by its own dedicated worker. A slow or stuck handler
// only ever starves its own inbox — never the main queue, never another
// subscriber.
//
// ═══════════════════════════════════════════════════════════════════════════════

// backPressurePriorityFloor is the priority above which (numerically
// greater, i.e. lower urgency) events are shed once the main queue is
// saturated.
const backPressurePriorityFloor = 5

// mainQueueSaturation is the fill ratio at which low-priority publishes
// start getting dropped.
const mainQueueSaturation = 0.9

// dispatcherPollInterval bounds how long the dispatcher can go without
// checking for shutdown when the main queue is empty.
const dispatcherPollInterval = 100 * time.Millisecond

type Engine struct {
	mu       sync.Mutex
	queue    priorityQueue
	capacity int

	running int32 // atomic bool
	stopCh  chan struct{}
	wakeCh  chan struct{}
	done    chan struct{}

	subMu       sync.RWMutex
	subscribers map[types.EventType][]*subscription
	workersWG   sync.WaitGroup

	published int64
	dispatched int64
	dropped    int64
	droppedMainFull int64
	droppedInboxFull int64
}

// Stats is a point-in-time snapshot of the engine's counters.
type Stats struct {
	Running         bool
	MainQueueSize   int
	Published       int64
	Dispatched      int64
	Dropped         int64
	DroppedMainFull int64
	DroppedInboxFull int64
	Subscribers     []SubscriberStats
}

// NewEngine creates an Engine with the given main-queue capacity.
func NewEngine(capacity int) *Engine {
	if capacity <= 0 {
		capacity = 10000
	}
	return &Engine{
		capacity:    capacity,
		stopCh:      make(chan struct{}),
		wakeCh:      make(chan struct{}, 1),
		done:        make(chan struct{}),
		subscribers: make(map[types.EventType][]*subscription),
	}
}

// Start activates the dispatcher loop. Idempotent.
func (e *Engine) Start() {
	if !atomic.CompareAndSwapInt32(&e.running, 0, 1) {
		return
	}
	e.stopCh = make(chan struct{})
	e.done = make(chan struct{})
	go e.dispatchLoop()
	log.Info().Int("capacity", e.capacity).Msg("⚡ event engine started")
}

// Stop signals the dispatcher and all subscriber workers, joins them with a
// bounded timeout, then returns final statistics. Idempotent.
func (e *Engine) Stop() Stats {
	if !atomic.CompareAndSwapInt32(&e.running, 1, 0) {
		return e.Statistics()
	}
	close(e.stopCh)
	<-e.done

	e.subMu.RLock()
	var subs []*subscription
	for _, list := range e.subscribers {
		subs = append(subs, list...)
	}
	e.subMu.RUnlock()

	for _, s := range subs {
		close(s.stopCh)
	}
	joinWithTimeout(&e.workersWG, drainDeadline)

	log.Info().Msg("event engine stopped")
	return e.Statistics()
}

func joinWithTimeout(wg *sync.WaitGroup, timeout time.Duration) {
	c := make(chan struct{})
	go func() {
		wg.Wait()
		close(c)
	}()
	select {
	case <-c:
	case <-time.After(timeout):
		log.Warn().Msg("timed out waiting for subscriber workers to join; abandoning stragglers")
	}
}

// IsRunning reports whether the dispatcher loop is active.
func (e *Engine) IsRunning() bool {
	return atomic.LoadInt32(&e.running) == 1
}

// Publish enqueues onto the main queue. Never blocks the caller. Returns
// false (and drops) if the engine is not running, the event is nil, or the
// main queue is >=90% full and the event's priority is a low-priority one
// (numerically > 5).
func (e *Engine) Publish(ev *types.Event) bool {
	if !e.IsRunning() || ev == nil {
		return false
	}

	e.mu.Lock()
	if len(e.queue) >= int(float64(e.capacity)*mainQueueSaturation) && ev.Priority > backPressurePriorityFloor {
		e.mu.Unlock()
		atomic.AddInt64(&e.dropped, 1)
		atomic.AddInt64(&e.droppedMainFull, 1)
		log.Warn().Str("event", ev.String()).Msg("🚨 main queue saturated, dropping low-priority event")
		return false
	}
	if len(e.queue) >= e.capacity {
		e.mu.Unlock()
		atomic.AddInt64(&e.dropped, 1)
		atomic.AddInt64(&e.droppedMainFull, 1)
		return false
	}
	heap.Push(&e.queue, ev)
	e.mu.Unlock()

	atomic.AddInt64(&e.published, 1)

	select {
	case e.wakeCh <- struct{}{}:
	default:
	}
	return true
}

// Register creates a subscriber with its own bounded inbox and dedicated
// worker, calling handler.Initialize() before activation. On initialization
// failure, registration is abandoned and an error is returned.
func (e *Engine) Register(eventType types.EventType, handler Handler) (*Subscription, error) {
	if err := handler.Initialize(); err != nil {
		return nil, err
	}

	inboxCap := e.capacity / 10
	sub := newSubscription(eventType, handler, inboxCap)

	e.subMu.Lock()
	e.subscribers[eventType] = append(e.subscribers[eventType], sub)
	e.subMu.Unlock()

	e.workersWG.Add(1)
	go sub.run(&e.workersWG)

	log.Info().Str("event_type", string(eventType)).Str("handler", handler.Name()).Msg("subscriber registered")
	return &Subscription{sub: sub}, nil
}

// Unregister stops the subscriber's worker, drains its inbox best-effort,
// and calls handler.Destroy().
func (e *Engine) Unregister(s *Subscription) {
	if s == nil || s.sub == nil {
		return
	}
	sub := s.sub

	e.subMu.Lock()
	list := e.subscribers[sub.eventType]
	for i, candidate := range list {
		if candidate == sub {
			e.subscribers[sub.eventType] = append(list[:i], list[i+1:]...)
			break
		}
	}
	e.subMu.Unlock()

	close(sub.stopCh)
	select {
	case <-sub.done:
	case <-time.After(drainDeadline):
		log.Warn().Str("handler", sub.handler.Name()).Msg("unregister timed out waiting for worker to drain")
	}
	sub.handler.Destroy()
}

// dispatchLoop is the single dispatcher goroutine: pull highest-priority
// event, fan out to subscribers of its type, repeat. Blocks with a short
// poll timeout so it can observe shutdown.
func (e *Engine) dispatchLoop() {
	defer close(e.done)
	ticker := time.NewTicker(dispatcherPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.stopCh:
			return
		case <-e.wakeCh:
		case <-ticker.C:
		}

		for {
			ev := e.popNext()
			if ev == nil {
				break
			}
			e.dispatchToSubscribers(ev)
		}
	}
}

func (e *Engine) popNext() *types.Event {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.queue) == 0 {
		return nil
	}
	return heap.Pop(&e.queue).(*types.Event)
}

func (e *Engine) dispatchToSubscribers(ev *types.Event) {
	e.subMu.RLock()
	subs := e.subscribers[ev.Type]
	// Copy the slice header under the lock; entries themselves are stable.
	list := make([]*subscription, len(subs))
	copy(list, subs)
	e.subMu.RUnlock()

	if len(list) == 0 {
		log.Debug().Str("event_type", string(ev.Type)).Msg("no subscribers for event type")
	}

	for _, sub := range list {
		if !sub.offer(ev) {
			atomic.AddInt64(&e.dropped, 1)
			atomic.AddInt64(&e.droppedInboxFull, 1)
			log.Warn().
				Str("handler", sub.handler.Name()).
				Str("event", ev.String()).
				Msg("subscriber inbox full, dropping for this subscriber only")
		}
	}

	atomic.AddInt64(&e.dispatched, 1)
}

// Statistics returns a point-in-time snapshot.
func (e *Engine) Statistics() Stats {
	e.mu.Lock()
	queueSize := len(e.queue)
	e.mu.Unlock()

	e.subMu.RLock()
	var subStats []SubscriberStats
	for _, list := range e.subscribers {
		for _, s := range list {
			subStats = append(subStats, s.statsSnapshot())
		}
	}
	e.subMu.RUnlock()

	return Stats{
		Running:          e.IsRunning(),
		MainQueueSize:    queueSize,
		Published:        atomic.LoadInt64(&e.published),
		Dispatched:       atomic.LoadInt64(&e.dispatched),
		Dropped:          atomic.LoadInt64(&e.dropped),
		DroppedMainFull:  atomic.LoadInt64(&e.droppedMainFull),
		DroppedInboxFull: atomic.LoadInt64(&e.droppedInboxFull),
		Subscribers:      subStats,
	}
}
