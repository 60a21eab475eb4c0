package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/web3guy0/tradecore/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// STORE - GORM-backed persistence, grounded in the teacher's internal/database
// ═══════════════════════════════════════════════════════════════════════════════

// Store wraps a gorm.DB and exposes the narrow set of operations the core
// needs: trade/position/daily-stat writes for audit and crash recovery, risk
// state persistence, and read-only stock_info/trading_calendar lookups.
type Store struct {
	db *gorm.DB
}

// Open dials dsn: driver "postgres" or a postgres:// / postgresql:// URL
// selects the postgres driver, anything else is treated as a sqlite file
// path (directories created as needed).
func Open(driver, dsn string) (*Store, error) {
	var db *gorm.DB
	var err error

	if driver == "postgres" || strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		if err != nil {
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		log.Info().Msg("💾 store connected (postgres)")
	} else {
		dir := filepath.Dir(dsn)
		if dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("create sqlite dir: %w", err)
			}
		}
		db, err = gorm.Open(sqlite.Open(dsn), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		log.Info().Str("path", dsn).Msg("💾 store initialized (sqlite)")
	}

	if err := db.AutoMigrate(
		&Trade{}, &PositionSnapshot{}, &DailyStat{}, &RiskState{},
		&StockInfo{}, &TradingCalendarDay{},
	); err != nil {
		return nil, fmt.Errorf("automigrate: %w", err)
	}

	return &Store{db: db}, nil
}

// SaveTrade writes one audit row for a realized Fill.
func (s *Store) SaveTrade(fill *types.Fill) error {
	return s.db.Create(&Trade{
		ID:          fill.ID,
		OrderID:     fill.OrderID,
		Symbol:      fill.Symbol,
		StrategyID:  fill.StrategyID,
		Side:        string(fill.Side),
		Quantity:    fill.Quantity,
		Price:       fill.Price,
		GrossAmount: fill.GrossAmount,
		TotalFee:    fill.TotalFee,
		NetAmount:   fill.NetAmount,
		IsSimulated: fill.IsSimulated,
		FilledAt:    fill.Timestamp,
		CreatedAt:   time.Now(),
	}).Error
}

// SavePositionSnapshot persists a recovery checkpoint for one position.
func (s *Store) SavePositionSnapshot(accountID string, pos *types.Position) error {
	return s.db.Create(&PositionSnapshot{
		AccountID:  accountID,
		Symbol:     pos.Symbol,
		StrategyID: pos.StrategyID,
		Quantity:   pos.Quantity,
		AvgCost:    pos.AvgCost,
		AsOf:       time.Now(),
	}).Error
}

// LatestPositionSnapshots returns the most recent persisted snapshot for
// every symbol held under accountID, used to reconcile after a restart.
func (s *Store) LatestPositionSnapshots(accountID string) ([]PositionSnapshot, error) {
	var all []PositionSnapshot
	if err := s.db.Where("account_id = ?", accountID).Order("as_of DESC").Find(&all).Error; err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var latest []PositionSnapshot
	for _, snap := range all {
		if seen[snap.Symbol] {
			continue
		}
		seen[snap.Symbol] = true
		latest = append(latest, snap)
	}
	return latest, nil
}

// SaveDailyStat upserts the rollup for one account/date pair.
func (s *Store) SaveDailyStat(stat *DailyStat) error {
	return s.db.Save(stat).Error
}

// SaveRiskState upserts the persisted mirror of one symbol's RiskStatus.
func (s *Store) SaveRiskState(state *RiskState) error {
	state.UpdatedAt = time.Now()
	return s.db.Save(state).Error
}

// LoadRiskStates returns every persisted risk state, consulted at startup to
// rebuild the in-memory block map before the engine starts dispatching.
func (s *Store) LoadRiskStates() ([]RiskState, error) {
	var states []RiskState
	err := s.db.Find(&states).Error
	return states, err
}

// StockInfo is a read-only lookup; the core never writes this table.
func (s *Store) StockInfo(symbol string) (*StockInfo, error) {
	var info StockInfo
	err := s.db.First(&info, "symbol = ?", symbol).Error
	if err != nil {
		return nil, err
	}
	return &info, nil
}

// IsTradingDay is a read-only lookup against trading_calendar; the core
// never writes this table (marketdata.Provider implementations own it).
func (s *Store) IsTradingDay(date time.Time) (bool, error) {
	var row TradingCalendarDay
	err := s.db.First(&row, "date = ?", date.Truncate(24*time.Hour)).Error
	if err != nil {
		return false, err
	}
	return row.IsTrading, nil
}

// TotalRealizedPL sums RealizedPL across every persisted daily stat for
// accountID, a convenience read used by operator tooling.
func (s *Store) TotalRealizedPL(accountID string) (decimal.Decimal, error) {
	var result struct {
		Total decimal.Decimal
	}
	err := s.db.Model(&DailyStat{}).
		Where("account_id = ?", accountID).
		Select("COALESCE(SUM(realized_pl), 0) as total").
		Scan(&result).Error
	return result.Total, err
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
