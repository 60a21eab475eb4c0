package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/web3guy0/tradecore/config"
	"github.com/web3guy0/tradecore/eventengine"
	"github.com/web3guy0/tradecore/execution"
	"github.com/web3guy0/tradecore/marketdata"
	"github.com/web3guy0/tradecore/portfolio"
	"github.com/web3guy0/tradecore/storage"
	"github.com/web3guy0/tradecore/strategy"
	"github.com/web3guy0/tradecore/timer"
	"github.com/web3guy0/tradecore/types"
)

const version = "v1.0"

func main() {
	// ═══════════════════════════════════════════════════════════════════════════════
	// BOOTSTRAP
	// ═══════════════════════════════════════════════════════════════════════════════

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("configuration load failed")
	}

	if os.Getenv("DEBUG") == "true" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	log.Info().Msg("═══════════════════════════════════════════════════════════════")
	log.Info().Msgf("         TRADECORE %s - EVENT-DRIVEN TRADING ENGINE", version)
	log.Info().Msg("═══════════════════════════════════════════════════════════════")

	// ═══════════════════════════════════════════════════════════════════════════════
	// LAYER 1: STORAGE
	// ═══════════════════════════════════════════════════════════════════════════════

	store, err := storage.Open(cfg.Data.StorageDriver, cfg.Data.StorageDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("storage layer unavailable")
	}
	log.Info().Msg("✅ storage layer initialized")

	riskStates, err := store.LoadRiskStates()
	if err != nil {
		log.Warn().Err(err).Msg("risk state reload failed, starting clean")
	}

	// ═══════════════════════════════════════════════════════════════════════════════
	// LAYER 2: EVENT ENGINE
	// ═══════════════════════════════════════════════════════════════════════════════

	engine := eventengine.NewEngine(cfg.Engine.QueueCapacity)
	log.Info().Msg("✅ event engine initialized")

	// ═══════════════════════════════════════════════════════════════════════════════
	// LAYER 3: PORTFOLIO & RISK MANAGER
	// ═══════════════════════════════════════════════════════════════════════════════

	portfolioMgr := portfolio.NewManager(cfg.Portfolio, engine)
	restored := make([]portfolio.RiskStateRecord, 0, len(riskStates))
	for _, rs := range riskStates {
		if rs.IsBlocked {
			log.Warn().Str("symbol", rs.Symbol).Str("reason", rs.BlockReason).
				Msg("⚠️ restoring persisted risk block")
		}
		restored = append(restored, portfolio.RiskStateRecord{
			Symbol:         rs.Symbol,
			IsBlocked:      rs.IsBlocked,
			BlockReason:    rs.BlockReason,
			DailyPnL:       rs.DailyPnL,
			MaxDrawdown:    rs.MaxDrawdown,
			PeakEquitySeen: rs.PeakEquitySeen,
			LastTradeTime:  rs.LastTradeTime,
		})
	}
	portfolioMgr.RestoreRiskState(restored)
	if _, err := engine.Register(types.EventSignal, portfolioMgr); err != nil {
		log.Fatal().Err(err).Msg("portfolio manager registration failed")
	}
	if _, err := engine.Register(types.EventFill, portfolioMgr); err != nil {
		log.Fatal().Err(err).Msg("portfolio manager registration failed")
	}
	if _, err := engine.Register(types.EventMarket, portfolioMgr); err != nil {
		log.Fatal().Err(err).Msg("portfolio manager registration failed")
	}
	if _, err := engine.Register(types.EventTimer, portfolioMgr); err != nil {
		log.Fatal().Err(err).Msg("portfolio manager registration failed")
	}
	log.Info().Msg("✅ portfolio & risk manager wired")

	// ═══════════════════════════════════════════════════════════════════════════════
	// LAYER 4: EXECUTION HANDLER
	// ═══════════════════════════════════════════════════════════════════════════════

	fees := types.FeeSchedule{CommissionRate: cfg.Execution.CommissionRate}
	defaultFees := types.DefaultFeeSchedule()
	fees.CommissionFloor = defaultFees.CommissionFloor
	fees.StampTaxRate = defaultFees.StampTaxRate
	fees.TransferRate = defaultFees.TransferRate
	fees.TransferFloor = defaultFees.TransferFloor

	var execHandler execution.Handler
	var simExec *execution.Simulated
	switch cfg.Execution.Type {
	case config.ExecutionLive:
		log.Warn().Msg("live execution requested but no broker adapter wired in this build; falling back to simulated")
		fallthrough
	default:
		simExec = execution.NewSimulated(engine, fees, execution.SimConfig{
			BaseSlippage:           cfg.Execution.Slippage,
			MaxSlippage:            cfg.Execution.MaxSlippage,
			EnableSlippage:         cfg.Execution.EnableSlippage,
			PartialFillProbability: cfg.Execution.PartialFillProbability,
			MinPartialFillRatio:    cfg.Execution.MinPartialFillRatio,
			EnablePartialFill:      cfg.Execution.EnablePartialFill,
			RejectionProbability:   cfg.Execution.RejectionProbability,
			MinExecutionDelayMs:    cfg.Execution.DelayMs,
			MaxExecutionDelayMs:    cfg.Execution.MaxDelayMs,
			EnableDelayedExecution: cfg.Execution.EnableDelay,
		})
		execHandler = simExec
	}
	if _, err := engine.Register(types.EventOrder, execHandler); err != nil {
		log.Fatal().Err(err).Msg("execution handler registration failed")
	}
	log.Info().Msg("✅ execution handler wired")

	// ═══════════════════════════════════════════════════════════════════════════════
	// LAYER 5: MARKETDATA GATEWAY
	// ═══════════════════════════════════════════════════════════════════════════════

	provider := marketdata.NewMemoryProvider()
	gateway := marketdata.NewGateway(provider, types.Freq1d, time.Second, engine)
	universe := marketdata.NewUniverse(provider, portfolioMgr.Account())
	log.Info().Msg("✅ marketdata gateway initialized")

	if simExec != nil {
		if _, err := engine.Register(types.EventMarket, barFeederHandler{sim: simExec}); err != nil {
			log.Fatal().Err(err).Msg("simulated execution market feed registration failed")
		}
	}

	// ═══════════════════════════════════════════════════════════════════════════════
	// LAYER 6: STRATEGY MANAGER
	// ═══════════════════════════════════════════════════════════════════════════════

	strategyMgr := strategy.NewManager(cfg.Strategy.MaxStrategies, universe, engine)
	if _, err := engine.Register(types.EventMarket, strategyMgr); err != nil {
		log.Fatal().Err(err).Msg("strategy manager registration failed")
	}
	if _, err := engine.Register(types.EventFill, strategyMgr); err != nil {
		log.Fatal().Err(err).Msg("strategy manager registration failed")
	}
	if _, err := engine.Register(types.EventTimer, strategyMgr); err != nil {
		log.Fatal().Err(err).Msg("strategy manager registration failed")
	}
	log.Info().Msg("✅ strategy manager wired")

	// ═══════════════════════════════════════════════════════════════════════════════
	// LAYER 7: TIMER PRODUCERS
	// ═══════════════════════════════════════════════════════════════════════════════

	timerRegistry := timer.NewRegistry()
	timerRegistry.Add(timer.NewProducer(types.TimerRiskCheck, 30*time.Second, nil, engine))
	timerRegistry.Add(timer.NewProducer(types.TimerHeartbeat, time.Minute, nil, engine))
	timerRegistry.Add(timer.NewProducer(types.TimerCleanup, 10*time.Minute, nil, engine))

	// ═══════════════════════════════════════════════════════════════════════════════
	// START
	// ═══════════════════════════════════════════════════════════════════════════════

	engine.Start()
	ctx, cancel := context.WithCancel(context.Background())
	gateway.Start(ctx)
	timerRegistry.StartAll()

	log.Info().Msg("🚀 tradecore running")

	// Periodic risk-state persistence, grounded in the teacher's periodic
	// reconciler-save loop.
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			persistRiskState(store, portfolioMgr)
		}
	}()

	// ═══════════════════════════════════════════════════════════════════════════════
	// GRACEFUL SHUTDOWN
	// ═══════════════════════════════════════════════════════════════════════════════

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Warn().Msg("🛑 shutdown signal received")
	log.Info().Msg("═══════════════════════════════════════════════════════════════")
	log.Info().Msg("                    GRACEFUL SHUTDOWN")
	log.Info().Msg("═══════════════════════════════════════════════════════════════")

	log.Info().Msg("stopping timers and marketdata gateway...")
	timerRegistry.StopAll()
	cancel()
	gateway.Stop()

	log.Info().Msg("persisting final risk state...")
	persistRiskState(store, portfolioMgr)

	log.Info().Msg("stopping event engine (draining subscriber inboxes)...")
	stats := engine.Stop()
	log.Info().
		Int64("published", stats.Published).
		Int64("dispatched", stats.Dispatched).
		Int64("dropped", stats.Dropped).
		Msg("📊 final statistics")

	if err := store.Close(); err != nil {
		log.Warn().Err(err).Msg("store close failed")
	}

	log.Info().Msg("═══════════════════════════════════════════════════════════════")
	log.Info().Msg("                       SHUTDOWN COMPLETE")
	log.Info().Msg("═══════════════════════════════════════════════════════════════")
}

// barFeederHandler forwards MarketEvents into the simulated execution
// handler's latest-bar cache, since Simulated.UpdateMarketData is not part
// of the execution.Handler contract itself.
type barFeederHandler struct {
	sim *execution.Simulated
}

func (h barFeederHandler) Name() string    { return "sim-exec-market-feed" }
func (h barFeederHandler) Initialize() error { return nil }
func (h barFeederHandler) Destroy()        {}
func (h barFeederHandler) HandleEvent(event *types.Event) {
	bar, ok := event.Payload.(*types.Bar)
	if !ok {
		return
	}
	h.sim.UpdateMarketData(bar)
}

func persistRiskState(store *storage.Store, mgr *portfolio.Manager) {
	for symbol, status := range mgr.RiskStatusSnapshot() {
		if err := store.SaveRiskState(&storage.RiskState{
			Symbol:         symbol,
			IsBlocked:      status.IsBlocked,
			BlockReason:    status.BlockReason,
			DailyPnL:       status.DailyPnL,
			MaxDrawdown:    status.MaxDrawdown,
			PeakEquitySeen: status.PeakEquitySeen,
			LastTradeTime:  status.LastTradeTime,
		}); err != nil {
			log.Warn().Err(err).Str("symbol", symbol).Msg("risk state persistence failed")
		}
	}
}
