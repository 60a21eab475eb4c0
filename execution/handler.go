package execution

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/web3guy0/tradecore/eventengine"
	"github.com/web3guy0/tradecore/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// EXECUTION HANDLER - order lifecycle, fill generation, bus feedback
// ═══════════════════════════════════════════════════════════════════════════════
//
// Handler is the unified contract resolving the source's two separate
// ExecutionHandler hierarchies (one extending EventHandler, one stand-
// alone) into a single interface with Simulated and Live implementations
// sharing the base order-bookkeeping struct below.
//
// ═══════════════════════════════════════════════════════════════════════════════

// FillPublisher is the minimal surface a Handler needs to emit FillEvents.
type FillPublisher interface {
	Publish(ev *types.Event) bool
}

// Executor is the subtype-specific contract: Simulated and Live each
// implement doExecuteOrder/doCancelOrder; all lifecycle bookkeeping around
// them is shared in base.
type Executor interface {
	doExecuteOrder(base *base, order *types.Order) error
	doCancelOrder(base *base, order *types.Order) bool
}

// Handler is the capability set every execution implementation exposes.
type Handler interface {
	Name() string
	Initialize() error
	HandleEvent(event *types.Event)
	Destroy()
	CancelOrder(orderID string) bool
}

// base holds the order bookkeeping shared by Simulated and Live: the
// activeOrders map and the validate/submit/reject lifecycle, per §4.4.
type base struct {
	mu           sync.Mutex
	activeOrders map[string]*types.Order
	publisher    FillPublisher
	fees         types.FeeSchedule
	executor     Executor
	name         string
}

func newBase(name string, publisher FillPublisher, fees types.FeeSchedule, executor Executor) *base {
	return &base{
		activeOrders: make(map[string]*types.Order),
		publisher:    publisher,
		fees:         fees,
		executor:     executor,
		name:         name,
	}
}

func (b *base) Name() string    { return b.name }
func (b *base) Initialize() error { return nil }
func (b *base) Destroy()        {}

var _ eventengine.Handler = (*base)(nil)

// HandleEvent implements eventengine.Handler, processing ORDER events per
// the base contract's validate → activate → doExecuteOrder pipeline.
func (b *base) HandleEvent(event *types.Event) {
	if event.Type != types.EventOrder {
		return
	}
	order, ok := event.Payload.(*types.Order)
	if !ok || order == nil {
		return
	}

	if action, _ := event.Extra["action"].(types.OrderAction); action == types.OrderActionCancel {
		b.CancelOrder(order.ID)
		return
	}

	if err := validateOrder(order); err != nil {
		order.Reject(err.Error())
		log.Warn().Str("order", order.ID).Err(err).Msg("order rejected at validation")
		return
	}

	b.mu.Lock()
	b.activeOrders[order.ID] = order
	b.mu.Unlock()
	order.Submit()

	if err := b.executor.doExecuteOrder(b, order); err != nil {
		order.Reject(err.Error())
		b.mu.Lock()
		delete(b.activeOrders, order.ID)
		b.mu.Unlock()
		log.Warn().Str("order", order.ID).Err(err).Msg("order rejected during execution")
	}
}

func validateOrder(order *types.Order) error {
	if order == nil {
		return fmt.Errorf("nil order")
	}
	if order.Quantity <= 0 {
		return fmt.Errorf("quantity must be > 0")
	}
	if order.Type != types.OrderMarket && order.LimitPrice.IsNegative() {
		return fmt.Errorf("limit price must be >= 0")
	}
	return nil
}

// CancelOrder implements Handler. It only acts on orders still cancellable
// per §4.4; a successful doCancelOrder transitions the order to CANCELLED.
func (b *base) CancelOrder(orderID string) bool {
	b.mu.Lock()
	order, ok := b.activeOrders[orderID]
	b.mu.Unlock()
	if !ok || !order.IsCancellable() {
		return false
	}

	if !b.executor.doCancelOrder(b, order) {
		return false
	}

	order.Cancel("cancelled by operator")
	b.mu.Lock()
	delete(b.activeOrders, orderID)
	b.mu.Unlock()
	return true
}

// applyFill updates the order's fill bookkeeping, publishes the
// corresponding FillEvent, and removes the order from activeOrders once it
// reaches FILLED.
func (b *base) applyFill(order *types.Order, qty int64, price decimal.Decimal, simulated bool) {
	order.ApplyFill(qty, price)

	fill := types.NewFill(fmt.Sprintf("%s-fill-%d", order.ID, order.FilledQuantity), order.ID, order.Symbol, order.Side, qty, price, order.StrategyID, simulated, b.fees)

	ev := types.NewEvent(fill.ID, types.EventFill, fill.Symbol, 1, fill)
	b.publisher.Publish(ev)

	if order.Status == types.OrderFilled {
		b.mu.Lock()
		delete(b.activeOrders, order.ID)
		b.mu.Unlock()
	}
}

// ActiveOrderCount reports how many orders the handler currently tracks —
// used by operator status reporting.
func (b *base) ActiveOrderCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.activeOrders)
}
