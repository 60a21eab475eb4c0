package execution

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/web3guy0/tradecore/types"
)

// SimConfig is the enumerated simulation configuration from §4.4.
type SimConfig struct {
	BaseSlippage  decimal.Decimal
	MaxSlippage   decimal.Decimal
	EnableSlippage bool

	PartialFillProbability float64
	MinPartialFillRatio    float64
	EnablePartialFill      bool

	RejectionProbability float64

	MinExecutionDelayMs    int64
	MaxExecutionDelayMs    int64
	EnableDelayedExecution bool

	// Seed pins the RNG for reproducible backtests and tests; 0 seeds from
	// the current time.
	Seed int64
}

// Simulated is the backtest ExecutionHandler: fills are synthesized from the
// latest known Bar for the order's symbol, per §4.4's microstructure model.
type Simulated struct {
	*base

	mu     sync.Mutex
	cfg    SimConfig
	rng    *rand.Rand
	market map[string]*types.Bar
}

func NewSimulated(publisher FillPublisher, fees types.FeeSchedule, cfg SimConfig) *Simulated {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	s := &Simulated{
		cfg:    cfg,
		rng:    rand.New(rand.NewSource(seed)),
		market: make(map[string]*types.Bar),
	}
	s.base = newBase("execution-simulated", publisher, fees, s)
	return s
}

// UpdateMarketData records the latest bar for a symbol — called by the
// composition root's MarketEvent subscriber whenever a new Bar arrives.
func (s *Simulated) UpdateMarketData(bar *types.Bar) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.market[bar.Symbol] = bar
}

func (s *Simulated) latestBar(symbol string) *types.Bar {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.market[symbol]
}

func (s *Simulated) doExecuteOrder(b *base, order *types.Order) error {
	bar := s.latestBar(order.Symbol)
	if bar == nil {
		return fmt.Errorf("missing market data")
	}

	if s.sample() < s.cfg.RejectionProbability {
		return fmt.Errorf("simulated market rejection")
	}

	price, err := s.executionPrice(order, bar)
	if err != nil {
		return err
	}

	qty := s.fillQuantity(order.RemainingQty, bar.Volume)

	if s.cfg.EnableDelayedExecution {
		delay := s.randomDelay()
		time.AfterFunc(delay, func() {
			b.applyFill(order, qty, price, true)
		})
		return nil
	}

	b.applyFill(order, qty, price, true)
	return nil
}

func (s *Simulated) doCancelOrder(b *base, order *types.Order) bool {
	// Simulated cancel always succeeds per §4.4.
	return true
}

func (s *Simulated) sample() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64()
}

func (s *Simulated) normalSample(stddev float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.NormFloat64() * stddev
}

func (s *Simulated) randomDelay() time.Duration {
	lo, hi := s.cfg.MinExecutionDelayMs, s.cfg.MaxExecutionDelayMs
	if hi <= lo {
		return time.Duration(lo) * time.Millisecond
	}
	s.mu.Lock()
	span := s.rng.Int63n(hi - lo)
	s.mu.Unlock()
	return time.Duration(lo+span) * time.Millisecond
}

// executionPrice applies the order-type rule and, if enabled, slippage.
func (s *Simulated) executionPrice(order *types.Order, bar *types.Bar) (decimal.Decimal, error) {
	var price decimal.Decimal

	switch order.Type {
	case types.OrderMarket:
		if order.Side == types.SideBuy {
			price = bar.High
		} else {
			price = bar.Low
		}

	default: // LIMIT, STOP, STOP_LIMIT treated as LIMIT at order.LimitPrice per §4.4
		if order.Side == types.SideBuy {
			if order.LimitPrice.LessThan(bar.Low) {
				return decimal.Zero, fmt.Errorf("limit below market")
			}
			price = decimal.Min(order.LimitPrice, bar.High)
		} else {
			if order.LimitPrice.GreaterThan(bar.High) {
				return decimal.Zero, fmt.Errorf("limit above market")
			}
			price = decimal.Max(order.LimitPrice, bar.Low)
		}
	}

	if s.cfg.EnableSlippage {
		price = s.applySlippage(price, order, bar)
	}

	if price.LessThan(decimal.NewFromFloat(0.01)) {
		price = decimal.NewFromFloat(0.01)
	}
	return price, nil
}

// applySlippage: slip = baseSlippage + (qty/volume)*0.001 + N(0, 0.5*base),
// clamped to [0, maxSlippage]. BUY adjusts price upward, SELL downward.
func (s *Simulated) applySlippage(price decimal.Decimal, order *types.Order, bar *types.Bar) decimal.Decimal {
	volumeImpact := decimal.Zero
	if bar.Volume > 0 {
		volumeImpact = decimal.NewFromInt(order.Quantity).Div(decimal.NewFromInt(bar.Volume)).Mul(decimal.NewFromFloat(0.001))
	}

	noiseStddev := s.cfg.BaseSlippage.Mul(decimal.NewFromFloat(0.5))
	noise := decimal.NewFromFloat(s.normalSample(mustFloat64(noiseStddev)))

	slip := s.cfg.BaseSlippage.Add(volumeImpact).Add(noise)
	if slip.LessThan(decimal.Zero) {
		slip = decimal.Zero
	}
	if slip.GreaterThan(s.cfg.MaxSlippage) {
		slip = s.cfg.MaxSlippage
	}

	adjustment := price.Mul(slip)
	if order.Side == types.SideBuy {
		return price.Add(adjustment)
	}
	return price.Sub(adjustment)
}

func mustFloat64(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}

// fillQuantity implements the partial-fill sampling rule from §4.4.
func (s *Simulated) fillQuantity(remaining int64, barVolume int64) int64 {
	if s.cfg.EnablePartialFill && s.sample() < s.cfg.PartialFillProbability {
		random := s.sample()
		ratio := s.cfg.MinPartialFillRatio + random*(1-s.cfg.MinPartialFillRatio)
		qty := int64(float64(remaining) * ratio)
		if qty < 1 {
			qty = 1
		}
		if qty > remaining {
			qty = remaining
		}
		return qty
	}
	return remaining
}

var _ Handler = (*Simulated)(nil)
