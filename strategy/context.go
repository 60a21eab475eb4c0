package strategy

import (
	"sync/atomic"
	"time"
)

// Context holds the per-strategy bookkeeping the Manager owns on behalf of
// a registered strategy: its config, registration time, and atomic
// instrumentation counters. Strategies themselves never see this type.
type Context struct {
	Strategy Strategy
	Config   Config

	RegisteredAt time.Time

	received  int64
	processed int64
	signals   int64
	errors    int64
}

func newContext(s Strategy, cfg Config) *Context {
	return &Context{
		Strategy:     s,
		Config:       cfg,
		RegisteredAt: time.Now(),
	}
}

func (c *Context) incReceived()  { atomic.AddInt64(&c.received, 1) }
func (c *Context) incProcessed() { atomic.AddInt64(&c.processed, 1) }
func (c *Context) addSignals(n int64) {
	if n > 0 {
		atomic.AddInt64(&c.signals, n)
	}
}
func (c *Context) incErrors() { atomic.AddInt64(&c.errors, 1) }

// Stats is a point-in-time snapshot of a strategy's counters.
type Stats struct {
	StrategyID string
	Type       Type
	Status     Status
	Received   int64
	Processed  int64
	Signals    int64
	Errors     int64
}

func (c *Context) statsSnapshot() Stats {
	return Stats{
		StrategyID: c.Strategy.StrategyID(),
		Type:       c.Strategy.StrategyType(),
		Status:     c.Strategy.Status(),
		Received:   atomic.LoadInt64(&c.received),
		Processed:  atomic.LoadInt64(&c.processed),
		Signals:    atomic.LoadInt64(&c.signals),
		Errors:     atomic.LoadInt64(&c.errors),
	}
}
