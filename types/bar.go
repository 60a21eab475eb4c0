package types

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Frequency tags the bucket width of a Bar.
type Frequency string

const (
	Freq1m  Frequency = "1m"
	Freq5m  Frequency = "5m"
	Freq15m Frequency = "15m"
	Freq30m Frequency = "30m"
	Freq1h  Frequency = "1h"
	Freq4h  Frequency = "4h"
	Freq1d  Frequency = "1d"
	Freq1w  Frequency = "1w"
	Freq1mo Frequency = "1mo"
)

// Indicators holds precomputed technical indicators for a Bar. All fields
// are optional; a zero value means "not computed", not "computed as zero".
type Indicators struct {
	MA5, MA10, MA20, MA60 decimal.Decimal
	MACDDiff              decimal.Decimal
	MACDSignal            decimal.Decimal
	MACDHistogram         decimal.Decimal
	RSI14                 decimal.Decimal
	BollUpper             decimal.Decimal
	BollMiddle            decimal.Decimal
	BollLower             decimal.Decimal
}

// Bar is one time-bucketed OHLC price record, owned upstream of the core and
// consumed read-only here.
type Bar struct {
	Symbol    string
	Timestamp time.Time
	Frequency Frequency
	Open      decimal.Decimal
	High      decimal.Decimal
	Low       decimal.Decimal
	Close     decimal.Decimal
	Volume    int64
	Amount    decimal.Decimal
	Indicators
}

// Validate enforces low <= min(open,close) <= max(open,close) <= high and
// volume >= 0.
func (b *Bar) Validate() error {
	if b.Volume < 0 {
		return fmt.Errorf("bar %s@%s: negative volume %d", b.Symbol, b.Timestamp, b.Volume)
	}
	lo, hi := b.Open, b.Open
	if b.Close.LessThan(lo) {
		lo = b.Close
	}
	if b.Close.GreaterThan(hi) {
		hi = b.Close
	}
	if b.Low.GreaterThan(lo) {
		return fmt.Errorf("bar %s@%s: low %s above min(open,close) %s", b.Symbol, b.Timestamp, b.Low, lo)
	}
	if b.High.LessThan(hi) {
		return fmt.Errorf("bar %s@%s: high %s below max(open,close) %s", b.Symbol, b.Timestamp, b.High, hi)
	}
	return nil
}
