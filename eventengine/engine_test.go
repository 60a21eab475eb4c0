package eventengine

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/web3guy0/tradecore/types"
)

// recordingHandler appends every event it sees, in arrival order, under a
// mutex. Optionally panics on a configured symbol to exercise isolation.
type recordingHandler struct {
	mu        sync.Mutex
	name      string
	received  []*types.Event
	panicOn   string
	initErr   error
	destroyed int32
}

func (h *recordingHandler) Name() string { return h.name }

func (h *recordingHandler) Initialize() error { return h.initErr }

func (h *recordingHandler) HandleEvent(ev *types.Event) {
	if h.panicOn != "" && ev.Symbol == h.panicOn {
		panic("simulated handler panic for " + ev.Symbol)
	}
	h.mu.Lock()
	h.received = append(h.received, ev)
	h.mu.Unlock()
}

func (h *recordingHandler) Destroy() { atomic.StoreInt32(&h.destroyed, 1) }

func (h *recordingHandler) snapshot() []*types.Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]*types.Event, len(h.received))
	copy(out, h.received)
	return out
}

func waitUntil(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	require.True(t, cond(), "condition not met before timeout")
}

func TestPublishDispatchesInPriorityOrder(t *testing.T) {
	e := NewEngine(100)

	h := &recordingHandler{name: "recorder"}
	_, err := e.Register(types.EventMarket, h)
	require.NoError(t, err)

	// Queue all three events before the dispatcher starts, so the order they
	// are pulled in is decided by the heap alone.
	atomic.StoreInt32(&e.running, 1)
	// Publish out of priority order; lower Priority value means more urgent.
	require.True(t, e.Publish(types.NewEvent("e1", types.EventMarket, "AAA", 8, nil)))
	require.True(t, e.Publish(types.NewEvent("e2", types.EventMarket, "BBB", 1, nil)))
	require.True(t, e.Publish(types.NewEvent("e3", types.EventMarket, "CCC", 1, nil)))
	atomic.StoreInt32(&e.running, 0)

	e.Start()
	defer e.Stop()

	waitUntil(t, time.Second, func() bool { return len(h.snapshot()) == 3 })

	got := h.snapshot()
	assert.Equal(t, "BBB", got[0].Symbol, "priority 1 published first should dispatch first")
	assert.Equal(t, "CCC", got[1].Symbol, "priority 1 published second should dispatch second (FIFO tie-break)")
	assert.Equal(t, "AAA", got[2].Symbol, "priority 8 dispatches last")
}

func TestPublishRejectsNilAndStoppedEngine(t *testing.T) {
	e := NewEngine(10)
	assert.False(t, e.Publish(types.NewEvent("e1", types.EventMarket, "AAA", 5, nil)), "publish before Start should fail")

	e.Start()
	assert.False(t, e.Publish(nil), "publish(nil) should always return false")

	e.Stop()
	assert.False(t, e.Publish(types.NewEvent("e1", types.EventMarket, "AAA", 5, nil)), "publish after Stop should fail")
}

func TestBackPressureDropsLowPriorityWhenQueueSaturated(t *testing.T) {
	e := NewEngine(10) // 90% of 10 == 9
	// Do not Start the dispatcher, so nothing drains the queue while we fill it.
	atomic.StoreInt32(&e.running, 1)

	for i := 0; i < 9; i++ {
		ok := e.Publish(types.NewEvent("fill", types.EventMarket, "AAA", 1, nil))
		require.True(t, ok)
	}

	// Queue is now at the saturation line; a low-priority (numerically > 5)
	// event must be shed.
	lowPriority := types.NewEvent("low", types.EventMarket, "ZZZ", 9, nil)
	assert.False(t, e.Publish(lowPriority), "low-priority publish must be dropped once queue is saturated")

	// A high-priority (numerically <= 5) event still gets in.
	highPriority := types.NewEvent("high", types.EventMarket, "YYY", 1, nil)
	assert.True(t, e.Publish(highPriority), "high-priority publish should still be admitted under saturation")

	stats := e.Statistics()
	assert.Equal(t, int64(1), stats.DroppedMainFull)
}

func TestHandlerPanicIsolatedToItsOwnSubscriber(t *testing.T) {
	e := NewEngine(100)
	e.Start()
	defer e.Stop()

	panicky := &recordingHandler{name: "panicky", panicOn: "BOOM"}
	healthy := &recordingHandler{name: "healthy"}

	_, err := e.Register(types.EventMarket, panicky)
	require.NoError(t, err)
	_, err = e.Register(types.EventMarket, healthy)
	require.NoError(t, err)

	require.True(t, e.Publish(types.NewEvent("e1", types.EventMarket, "BOOM", 5, nil)))
	require.True(t, e.Publish(types.NewEvent("e2", types.EventMarket, "SAFE", 5, nil)))

	waitUntil(t, time.Second, func() bool { return len(healthy.snapshot()) == 2 })

	assert.Len(t, healthy.snapshot(), 2, "the non-panicking subscriber must still see both events")
}

func TestRegisterUnregisterRoundTrip(t *testing.T) {
	e := NewEngine(100)
	e.Start()
	defer e.Stop()

	h := &recordingHandler{name: "transient"}
	sub, err := e.Register(types.EventSignal, h)
	require.NoError(t, err)

	e.Unregister(sub)
	assert.Equal(t, int32(1), atomic.LoadInt32(&h.destroyed), "Destroy must be called on unregister")

	// After unregister, publishing the same event type should report no
	// subscribers without error — dispatched count still increments.
	before := e.Statistics().Dispatched
	require.True(t, e.Publish(types.NewEvent("e1", types.EventSignal, "AAA", 5, nil)))
	waitUntil(t, time.Second, func() bool { return e.Statistics().Dispatched > before })
}

func TestRegisterAbandonsOnInitializeError(t *testing.T) {
	e := NewEngine(10)
	e.Start()
	defer e.Stop()

	h := &recordingHandler{name: "broken", initErr: assert.AnError}
	sub, err := e.Register(types.EventMarket, h)
	assert.Error(t, err)
	assert.Nil(t, sub)
}

func TestZeroSubscribersStillCountsDispatch(t *testing.T) {
	e := NewEngine(10)
	e.Start()
	defer e.Stop()

	before := e.Statistics().Dispatched
	require.True(t, e.Publish(types.NewEvent("e1", types.EventOrder, "AAA", 5, nil)))
	waitUntil(t, time.Second, func() bool { return e.Statistics().Dispatched > before })
}
