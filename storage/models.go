package storage

import (
	"time"

	"github.com/shopspring/decimal"
)

// ═══════════════════════════════════════════════════════════════════════════════
// PERSISTENCE MODELS - grounded in the teacher's internal/database GORM models
// ═══════════════════════════════════════════════════════════════════════════════

// Trade is the persisted record of a realized Fill, written for audit and
// crash recovery. Informational, like types.Trade — not read back for P&L.
type Trade struct {
	ID          string `gorm:"primaryKey"`
	OrderID     string `gorm:"index"`
	Symbol      string `gorm:"index"`
	StrategyID  string `gorm:"index"`
	Side        string
	Quantity    int64
	Price       decimal.Decimal `gorm:"type:decimal(20,6)"`
	GrossAmount decimal.Decimal `gorm:"type:decimal(20,6)"`
	TotalFee    decimal.Decimal `gorm:"type:decimal(20,6)"`
	NetAmount   decimal.Decimal `gorm:"type:decimal(20,6)"`
	IsSimulated bool
	FilledAt    time.Time `gorm:"index"`
	CreatedAt   time.Time
}

// PositionSnapshot is a point-in-time copy of one open position, written by
// Store.SavePositionSnapshot so a crashed process can reconcile its
// in-memory account against the last persisted state — grounded in the
// teacher's Reconciler.
type PositionSnapshot struct {
	ID           uint   `gorm:"primaryKey;autoIncrement"`
	AccountID    string `gorm:"index"`
	Symbol       string `gorm:"index"`
	StrategyID   string
	Quantity     int64
	AvgCost      decimal.Decimal `gorm:"type:decimal(20,6)"`
	RealizedPL   decimal.Decimal `gorm:"type:decimal(20,6)"`
	AsOf         time.Time       `gorm:"index"`
}

// DailyStat is one trading day's account-level rollup for reporting, written
// through Store.SaveDailyStat.
type DailyStat struct {
	ID             uint      `gorm:"primaryKey;autoIncrement"`
	AccountID      string    `gorm:"index"`
	Date           time.Time `gorm:"uniqueIndex:idx_account_date"`
	StartingEquity decimal.Decimal `gorm:"type:decimal(20,6)"`
	EndingEquity   decimal.Decimal `gorm:"type:decimal(20,6)"`
	RealizedPL     decimal.Decimal `gorm:"type:decimal(20,6)"`
	TradeCount     int
	CreatedAt      time.Time
}

// RiskState is the persisted mirror of one symbol's in-memory RiskStatus,
// written by the composition root once a minute and again at shutdown so a
// restart doesn't silently clear a block.
type RiskState struct {
	Symbol         string `gorm:"primaryKey"`
	IsBlocked      bool
	BlockReason    string
	DailyPnL       decimal.Decimal `gorm:"type:decimal(20,6)"`
	MaxDrawdown    decimal.Decimal `gorm:"type:decimal(10,6)"`
	PeakEquitySeen decimal.Decimal `gorm:"type:decimal(20,6)"`
	LastTradeTime  time.Time
	UpdatedAt      time.Time
}

// StockInfo is the read-only reference row for one tradeable symbol; the
// core never mutates it, only looks it up (§6 stock_info).
type StockInfo struct {
	Symbol         string `gorm:"primaryKey"`
	Name           string
	Exchange       string
	Industry       string
	MarketCap      decimal.Decimal `gorm:"type:decimal(24,2)"`
	CirculatingCap decimal.Decimal `gorm:"type:decimal(24,2)"`
	ListDate       time.Time
	UpdateTime     time.Time
}

func (StockInfo) TableName() string { return "stock_info" }

// TradingCalendarDay is the read-only reference row for one calendar date
// (§6 trading_calendar), consulted by the Marketdata Gateway and Timer
// subsystem and never written by the core.
type TradingCalendarDay struct {
	Date      time.Time `gorm:"primaryKey"`
	IsTrading bool
}

func (TradingCalendarDay) TableName() string { return "trading_calendar" }
