package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/web3guy0/tradecore/portfolio"
)

// ═══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION - typed, env-var driven, loaded once at startup
// ═══════════════════════════════════════════════════════════════════════════════

// Mode selects backtest vs live operation.
type Mode string

const (
	ModeBacktest Mode = "backtest"
	ModeLive     Mode = "live"
)

// ExecutionType selects the Execution Handler implementation.
type ExecutionType string

const (
	ExecutionSimulated ExecutionType = "simulated"
	ExecutionLive       ExecutionType = "live"
)

type EngineConfig struct {
	QueueCapacity int
	WorkerThreads int
	TimeoutMs     int
}

type AccountConfig struct {
	InitialCapital decimal.Decimal
	AccountID      string
}

type StrategyConfig struct {
	MaxStrategies       int
	SignalTimeoutSeconds int
}

type BacktestConfig struct {
	StartDate string
	EndDate   string
	Universe  string
	Frequency string
}

type DataConfig struct {
	RootPath          string
	PreloadDays       int
	StorageDriver     string // "postgres" | "sqlite"
	StorageDSN        string
}

type BrokerConfig struct {
	URL       string
	Account   string
	TimeoutMs int
}

type ExecutionConfig struct {
	Type          ExecutionType
	Slippage      decimal.Decimal
	MaxSlippage   decimal.Decimal
	EnableSlippage bool

	PartialFillProbability float64
	MinPartialFillRatio    float64
	EnablePartialFill      bool

	RejectionProbability float64

	CommissionRate  decimal.Decimal
	DelayMs         int64
	MaxDelayMs      int64
	EnableDelay     bool
	MaxRetryCount   int

	Broker BrokerConfig
}

// Config is the full typed configuration surface enumerated in §6.
type Config struct {
	Mode Mode

	Engine    EngineConfig
	Account   AccountConfig
	Portfolio portfolio.Config
	Execution ExecutionConfig
	Strategy  StrategyConfig
	Backtest  BacktestConfig
	Data      DataConfig
}

// Load reads .env (if present) then the process environment, applying the
// defaults below for every unset key. Unknown env vars are ignored to
// permit forward compatibility.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("no .env file found, relying on process environment")
	}

	cfg := &Config{
		Mode: Mode(getEnv("MODE", string(ModeBacktest))),

		Engine: EngineConfig{
			QueueCapacity: getEnvInt("ENGINE_QUEUE_CAPACITY", 10000),
			WorkerThreads: getEnvInt("ENGINE_WORKER_THREADS", 8),
			TimeoutMs:     getEnvInt("ENGINE_TIMEOUT_MS", 5000),
		},

		Account: AccountConfig{
			InitialCapital: getEnvDecimal("ACCOUNT_INITIAL_CAPITAL", decimal.NewFromInt(1000000)),
			AccountID:      getEnv("ACCOUNT_ID", "default"),
		},

		Portfolio: portfolio.Config{
			MaxPositionPercent:      getEnvDecimal("PORTFOLIO_MAX_POSITION_PERCENT", decimal.NewFromFloat(0.05)),
			MaxTotalPositionPercent: getEnvDecimal("PORTFOLIO_MAX_TOTAL_POSITION_PERCENT", decimal.NewFromFloat(0.8)),
			MinOrderAmount:          getEnvDecimal("PORTFOLIO_MIN_ORDER_AMOUNT", decimal.NewFromInt(1000)),
			DefaultPositionSize:     getEnvDecimal("PORTFOLIO_DEFAULT_POSITION_SIZE", decimal.NewFromInt(10000)),
			PositionSizeMethod:      portfolio.PositionSizeMethod(getEnv("PORTFOLIO_POSITION_SIZE_METHOD", string(portfolio.SizeFixedAmount))),
			MaxDailyLossPercent:     getEnvDecimal("RISK_MAX_DAILY_LOSS_PERCENT", decimal.NewFromFloat(0.05)),
			MaxDrawdownPercent:      getEnvDecimal("RISK_MAX_DRAWDOWN_PERCENT", decimal.NewFromFloat(0.2)),
			MaxCorrelation:          getEnvDecimal("RISK_MAX_CORRELATION", decimal.NewFromFloat(0.8)),
			CircuitBreakerCooldown:  getEnvDuration("RISK_CIRCUIT_BREAKER_COOLDOWN", 30*time.Minute),
			InitialCapital:          getEnvDecimal("ACCOUNT_INITIAL_CAPITAL", decimal.NewFromInt(1000000)),
			AccountID:               getEnv("ACCOUNT_ID", "default"),
		},

		Execution: ExecutionConfig{
			Type:                   ExecutionType(getEnv("EXECUTION_TYPE", string(ExecutionSimulated))),
			Slippage:               getEnvDecimal("EXECUTION_BASE_SLIPPAGE", decimal.NewFromFloat(0.001)),
			MaxSlippage:            getEnvDecimal("EXECUTION_MAX_SLIPPAGE", decimal.NewFromFloat(0.01)),
			EnableSlippage:         getEnvBool("EXECUTION_ENABLE_SLIPPAGE", true),
			PartialFillProbability: getEnvFloat("EXECUTION_PARTIAL_FILL_PROBABILITY", 0.1),
			MinPartialFillRatio:    getEnvFloat("EXECUTION_MIN_PARTIAL_FILL_RATIO", 0.3),
			EnablePartialFill:      getEnvBool("EXECUTION_ENABLE_PARTIAL_FILL", true),
			RejectionProbability:   getEnvFloat("EXECUTION_REJECTION_PROBABILITY", 0.01),
			CommissionRate:         getEnvDecimal("EXECUTION_COMMISSION_RATE", decimal.NewFromFloat(0.0003)),
			DelayMs:                getEnvInt64("EXECUTION_MIN_DELAY_MS", 0),
			MaxDelayMs:             getEnvInt64("EXECUTION_MAX_DELAY_MS", 0),
			EnableDelay:            getEnvBool("EXECUTION_ENABLE_DELAYED_EXECUTION", false),
			MaxRetryCount:          getEnvInt("EXECUTION_MAX_RETRY_COUNT", 3),
			Broker: BrokerConfig{
				URL:       getEnv("EXECUTION_BROKER_URL", ""),
				Account:   getEnv("EXECUTION_BROKER_ACCOUNT", ""),
				TimeoutMs: getEnvInt("EXECUTION_BROKER_TIMEOUT_MS", 5000),
			},
		},

		Strategy: StrategyConfig{
			MaxStrategies:        getEnvInt("STRATEGY_MAX_STRATEGIES", 50),
			SignalTimeoutSeconds: getEnvInt("STRATEGY_SIGNAL_TIMEOUT_SECONDS", 300),
		},

		Backtest: BacktestConfig{
			StartDate: getEnv("BACKTEST_START_DATE", ""),
			EndDate:   getEnv("BACKTEST_END_DATE", ""),
			Universe:  getEnv("BACKTEST_UNIVERSE", ""),
			Frequency: getEnv("BACKTEST_FREQUENCY", "1d"),
		},

		Data: DataConfig{
			RootPath:      getEnv("DATA_ROOT_PATH", "./data"),
			PreloadDays:   getEnvInt("DATA_PRELOAD_DAYS", 30),
			StorageDriver: getEnv("DATA_STORAGE_DRIVER", "sqlite"),
			StorageDSN:    getEnv("DATA_STORAGE_DSN", "tradecore.db"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Mode != ModeBacktest && c.Mode != ModeLive {
		return fmt.Errorf("invalid MODE %q: must be backtest or live", c.Mode)
	}
	if c.Execution.Type != ExecutionSimulated && c.Execution.Type != ExecutionLive {
		return fmt.Errorf("invalid EXECUTION_TYPE %q: must be simulated or live", c.Execution.Type)
	}
	if !c.Account.InitialCapital.IsPositive() {
		return fmt.Errorf("ACCOUNT_INITIAL_CAPITAL must be > 0")
	}
	if c.Engine.QueueCapacity <= 0 {
		return fmt.Errorf("ENGINE_QUEUE_CAPACITY must be > 0")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvDecimal(key string, defaultValue decimal.Decimal) decimal.Decimal {
	if value := os.Getenv(key); value != "" {
		if d, err := decimal.NewFromString(value); err == nil {
			return d
		}
	}
	return defaultValue
}
