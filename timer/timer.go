package timer

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/web3guy0/tradecore/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// TIMER SUBSYSTEM - periodic TimerEvent producers, self-rearming
// ═══════════════════════════════════════════════════════════════════════════════

// Publisher is the minimal surface a producer needs to emit TimerEvents.
type Publisher interface {
	Publish(ev *types.Event) bool
}

// Producer is one periodic TimerEvent source: fires at Interval, rearms
// itself to now+Interval after each fire, until stopped.
type Producer struct {
	timerType types.TimerType
	interval  time.Duration
	payload   any
	publisher Publisher

	stopCh chan struct{}
	doneCh chan struct{}
	once   sync.Once
}

// NewProducer creates a producer for timerType, firing every interval.
func NewProducer(timerType types.TimerType, interval time.Duration, payload any, publisher Publisher) *Producer {
	return &Producer{
		timerType: timerType,
		interval:  interval,
		payload:   payload,
		publisher: publisher,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// Start launches the producer's rearming loop in its own goroutine.
func (p *Producer) Start() {
	go p.run()
}

func (p *Producer) run() {
	defer close(p.doneCh)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopCh:
			return
		case <-ticker.C:
			p.fire()
		}
	}
}

func (p *Producer) fire() {
	timer := &types.Timer{
		Type:       p.timerType,
		IntervalMs: p.interval.Milliseconds(),
		Payload:    p.payload,
	}
	priority := types.TimerPriority(p.timerType)
	ev := types.NewEvent(string(p.timerType), types.EventTimer, "", priority, timer)
	if !p.publisher.Publish(ev) {
		log.Warn().Str("timer_type", string(p.timerType)).Msg("timer event dropped by publisher")
	}
}

// Stop signals the run loop to exit and waits for it to finish.
func (p *Producer) Stop() {
	p.once.Do(func() { close(p.stopCh) })
	<-p.doneCh
}

// Registry owns a set of Producers, one per timer type, started/stopped
// together by the composition root.
type Registry struct {
	producers []*Producer
}

func NewRegistry() *Registry { return &Registry{} }

// Add registers a producer with the registry; does not start it.
func (r *Registry) Add(p *Producer) {
	r.producers = append(r.producers, p)
}

// StartAll starts every registered producer.
func (r *Registry) StartAll() {
	for _, p := range r.producers {
		p.Start()
	}
	log.Info().Int("producers", len(r.producers)).Msg("⏱️ timer producers started")
}

// StopAll stops every registered producer, waiting for each to finish.
func (r *Registry) StopAll() {
	for _, p := range r.producers {
		p.Stop()
	}
}
