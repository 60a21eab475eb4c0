package timer

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/web3guy0/tradecore/types"
)

type fakePublisher struct {
	mu        sync.Mutex
	published []*types.Event
}

func (p *fakePublisher) Publish(ev *types.Event) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = append(p.published, ev)
	return true
}

func (p *fakePublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.published)
}

func TestProducerFiresAtConfiguredPriority(t *testing.T) {
	pub := &fakePublisher{}
	p := NewProducer(types.TimerRiskCheck, 15*time.Millisecond, nil, pub)
	p.Start()
	defer p.Stop()

	require.Eventually(t, func() bool { return pub.count() >= 1 }, time.Second, 5*time.Millisecond)

	pub.mu.Lock()
	ev := pub.published[0]
	pub.mu.Unlock()

	assert.Equal(t, types.TimerPriority(types.TimerRiskCheck), ev.Priority)
	timer, ok := ev.Payload.(*types.Timer)
	require.True(t, ok)
	assert.Equal(t, types.TimerRiskCheck, timer.Type)
}

func TestStopHaltsFurtherFiring(t *testing.T) {
	pub := &fakePublisher{}
	p := NewProducer(types.TimerHeartbeat, 10*time.Millisecond, nil, pub)
	p.Start()
	require.Eventually(t, func() bool { return pub.count() >= 1 }, time.Second, 5*time.Millisecond)

	p.Stop()
	after := pub.count()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, after, pub.count(), "no further events should fire once stopped")
}

func TestRegistryStartsAndStopsAllProducers(t *testing.T) {
	pub := &fakePublisher{}
	reg := NewRegistry()
	reg.Add(NewProducer(types.TimerMarketDataUpdate, 10*time.Millisecond, nil, pub))
	reg.Add(NewProducer(types.TimerCleanup, 10*time.Millisecond, nil, pub))

	reg.StartAll()
	require.Eventually(t, func() bool { return pub.count() >= 2 }, time.Second, 5*time.Millisecond)
	reg.StopAll()
}
