// Package engine runs the trading loop: refresh price windows, evaluate
// every strategy in turn, size entries against the shared capital pool, and
// manage open positions to closure.
package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/rustyeddy/cryptobot/broker"
	"github.com/rustyeddy/cryptobot/capital"
	"github.com/rustyeddy/cryptobot/config"
	"github.com/rustyeddy/cryptobot/journal"
	"github.com/rustyeddy/cryptobot/ledger"
	"github.com/rustyeddy/cryptobot/market"
	"github.com/rustyeddy/cryptobot/strategies"
)

// tickState tracks where the loop is within one tick.
type tickState int

const (
	stateIdle tickState = iota
	stateFetching
	stateEvaluating
	stateExecuting
)

func (s tickState) String() string {
	switch s {
	case stateFetching:
		return "fetching"
	case stateEvaluating:
		return "evaluating"
	case stateExecuting:
		return "executing"
	default:
		return "idle"
	}
}

// Deps are the external collaborators the engine consumes.
type Deps struct {
	Log       zerolog.Logger
	Data      broker.MarketData
	Exec      broker.Execution
	Scheduler Scheduler
	Journal   journal.Journal
}

// unit pairs a strategy with its configuration.
type unit struct {
	strat strategies.Strategy
	cfg   config.StrategyConfig
}

// Engine is the per-account trading loop. Strategies run sequentially within
// a tick so each one observes the capital effects of those before it, and
// tick N+1 never starts before tick N finishes.
type Engine struct {
	log   zerolog.Logger
	cfg   *config.Config
	data  broker.MarketData
	exec  broker.Execution
	sched Scheduler
	jrnl  journal.Journal

	book  *ledger.Ledger
	alloc *capital.Allocator

	units   []unit
	windows map[string]*market.Window

	state       tickState
	ticks       int
	now         time.Time // latest bar time observed
	peakEquity  float64
	day         time.Time // calendar day of `now`, for the daily-loss breaker
	dayRealized float64
	halted      bool
}

// New wires an engine from an immutable config. Changing strategy or capital
// settings means constructing a new engine, never mutating a running one.
func New(cfg *config.Config, deps Deps) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		log:        deps.Log,
		cfg:        cfg,
		data:       deps.Data,
		exec:       deps.Exec,
		sched:      deps.Scheduler,
		jrnl:       deps.Journal,
		book:       ledger.New(cfg.Capital.FeeRate),
		alloc:      capital.New(cfg.Capital.Initial, cfg.Capital.MinTradeNotional),
		windows:    make(map[string]*market.Window),
		peakEquity: cfg.Capital.Initial,
	}
	if e.jrnl == nil {
		e.jrnl = journal.Nop{}
	}

	for _, sc := range cfg.Strategies {
		strat, err := strategies.FromConfig(sc)
		if err != nil {
			return nil, err
		}
		e.units = append(e.units, unit{strat: strat, cfg: sc})
		if _, ok := e.windows[sc.Symbol]; !ok {
			e.windows[sc.Symbol] = market.NewWindow(sc.Symbol, cfg.Engine.WindowBars)
		}
	}
	return e, nil
}

// Ledger exposes the position book, e.g. for end-of-run reporting.
func (e *Engine) Ledger() *ledger.Ledger { return e.book }

// Allocator exposes the capital pool.
func (e *Engine) Allocator() *capital.Allocator { return e.alloc }

// Run executes ticks until the context is cancelled, the scheduler stops, or
// a fatal accounting error halts trading. It never exits on market or order
// errors; those are isolated per tick or per strategy.
func (e *Engine) Run(ctx context.Context) error {
	e.log.Info().
		Int("strategies", len(e.units)).
		Float64("capital", e.alloc.Total()).
		Msg("trading loop started")

	for {
		if err := e.sched.WaitForNextTick(ctx); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) ||
				errors.Is(err, ErrSchedulerStopped) {
				e.log.Info().Msg("trading loop stopped")
				return nil
			}
			return err
		}
		if err := e.Tick(ctx); err != nil {
			e.log.Error().Err(err).Stringer("state", e.state).Msg("fatal accounting error; halting trading")
			return err
		}
	}
}

// Tick runs one full cycle: fetch, evaluate, execute, snapshot. A data-source
// failure skips the tick (returns nil); only ledger-invariant violations
// return an error, which the caller must treat as fatal.
func (e *Engine) Tick(ctx context.Context) error {
	e.ticks++

	e.state = stateFetching
	if !e.refreshWindows(ctx) {
		e.state = stateIdle
		return nil
	}

	e.updateBreakers()

	// Sequential by design: strategy B's allocation request must observe
	// strategy A's allocation from this same tick.
	for i := range e.units {
		if err := e.runStrategy(ctx, &e.units[i]); err != nil {
			// Leave state as-is so the halt log shows where the tick died.
			return err
		}
	}
	e.state = stateIdle

	if err := e.reconcile(); err != nil {
		return err
	}
	e.snapshotEquity()

	if n := e.cfg.Engine.SummaryEvery; n > 0 && e.ticks%n == 0 {
		e.logSummary()
	}
	return nil
}

// refreshWindows fetches fresh candles for every symbol in play. Any failure
// abandons the whole tick: stale windows must not feed stale signals.
func (e *Engine) refreshWindows(ctx context.Context) bool {
	var latest time.Time

	for symbol, w := range e.windows {
		candles, err := e.data.RecentCandles(ctx, symbol, e.cfg.Engine.FetchBars)
		if err != nil {
			e.log.Warn().Err(err).Str("symbol", symbol).Msg("market data fetch failed; skipping tick")
			return false
		}
		if err := w.Replace(candles); err != nil {
			e.log.Warn().Err(err).Str("symbol", symbol).Msg("bad candle data; skipping tick")
			return false
		}
		if w.Len() > 0 && w.Last().Time.After(latest) {
			latest = w.Last().Time
		}
	}

	if !latest.IsZero() {
		e.now = latest
		day := latest.Truncate(24 * time.Hour)
		if !day.Equal(e.day) {
			e.day = day
			e.dayRealized = 0
		}
	}
	return true
}

// runStrategy evaluates one strategy and applies its decision. All order
// errors are contained here; only ledger corruption escapes.
func (e *Engine) runStrategy(ctx context.Context, u *unit) error {
	e.state = stateEvaluating

	w := e.windows[u.cfg.Symbol]
	if w.Len() == 0 {
		return nil
	}
	bar := w.Last()

	log := e.log.With().
		Str("strategy", u.cfg.ID).
		Str("symbol", u.cfg.Symbol).
		Time("bar", bar.Time).
		Logger()

	if _, open := e.book.Position(u.cfg.ID); open {
		marked, err := e.book.MarkToMarket(u.cfg.ID, bar.Close)
		if err != nil {
			return fmt.Errorf("engine: mark %s: %w", u.cfg.ID, err)
		}
		// A disabled strategy still manages its open position to closure;
		// disable only suppresses new entries.
		sig := u.strat.Evaluate(w, &marked)
		if sig.Kind == strategies.Exit {
			return e.closePosition(ctx, log, u, marked, sig, bar)
		}
		return nil
	}

	if !u.cfg.Enabled || e.halted {
		return nil
	}

	sig := u.strat.Evaluate(w, nil)
	if sig.Kind != strategies.Enter {
		return nil
	}
	return e.openPosition(ctx, log, u, sig, bar)
}

func (e *Engine) openPosition(ctx context.Context, log zerolog.Logger, u *unit, sig strategies.Signal, bar market.Candle) error {
	desired := u.cfg.MaxAllocationPct * e.alloc.Total()
	notional, err := e.alloc.Request(u.cfg.ID, desired, u.cfg.MaxAllocationPct)
	if err != nil {
		if errors.Is(err, capital.ErrInsufficientCapital) {
			log.Debug().Err(err).Msg("entry skipped: insufficient capital")
		} else {
			log.Error().Err(err).Msg("allocation request failed")
		}
		return nil
	}

	leverage := capital.ClampLeverage(u.cfg.Leverage)
	units := notional * leverage / bar.Close

	e.state = stateExecuting
	fill, err := e.exec.PlaceMarketOrder(ctx, u.cfg.Symbol, broker.Buy, units)
	if err != nil {
		// Hand the reservation back; the entry simply did not happen.
		e.alloc.Release(u.cfg.ID, notional)
		e.logOrderError(log, err, "entry order failed")
		return nil
	}
	if fill.Time.IsZero() {
		fill.Time = bar.Time
	}

	pos := ledger.Position{
		StrategyID:  u.cfg.ID,
		Symbol:      u.cfg.Symbol,
		Direction:   ledger.Long,
		EntryPrice:  fill.Price,
		EntryTime:   fill.Time,
		Units:       fill.Units,
		Notional:    notional,
		Leverage:    leverage,
		StopPrice:   fill.Price * (1 - u.cfg.StopLossPct),
		TargetPrice: fill.Price * (1 + u.cfg.TakeProfitPct),
		TrailingPct: u.cfg.TrailingStopPct,
	}
	opened, err := e.book.Open(pos)
	if err != nil {
		// An order is live but the book refused it: the ledger is corrupt
		// and trading must stop before anything else executes.
		return fmt.Errorf("engine: open %s after fill: %w", u.cfg.ID, err)
	}

	log.Info().
		Str("position", opened.ID).
		Float64("entry", fill.Price).
		Float64("units", fill.Units).
		Float64("notional", notional).
		Float64("leverage", leverage).
		Float64("stop", opened.StopPrice).
		Float64("target", opened.TargetPrice).
		Str("rule", sig.Comment).
		Msg("opened position")
	return nil
}

func (e *Engine) closePosition(ctx context.Context, log zerolog.Logger, u *unit, pos ledger.Position, sig strategies.Signal, bar market.Candle) error {
	e.state = stateExecuting

	fill, err := e.exec.PlaceMarketOrder(ctx, u.cfg.Symbol, broker.Sell, pos.Units)
	if err != nil {
		// Position stays open; the exit rule will fire again next tick.
		e.logOrderError(log, err, "exit order failed")
		return nil
	}
	if fill.Time.IsZero() {
		fill.Time = bar.Time
	}

	// Stops and targets settle at their trigger price even when the bar
	// gapped through them; other exits settle at the market fill.
	exitPrice := sig.Price
	if exitPrice <= 0 {
		exitPrice = fill.Price
	}

	rec, err := e.book.Close(u.cfg.ID, exitPrice, fill.Time, string(sig.Reason))
	if err != nil {
		return fmt.Errorf("engine: close %s after fill: %w", u.cfg.ID, err)
	}

	e.alloc.Release(u.cfg.ID, rec.Notional)
	e.alloc.ApplyPL(rec.RealizedPL)
	e.dayRealized += rec.RealizedPL

	if err := e.jrnl.RecordTrade(rec); err != nil {
		log.Error().Err(err).Str("trade", rec.TradeID).Msg("journal write failed")
	}

	log.Info().
		Str("trade", rec.TradeID).
		Str("reason", rec.Reason).
		Float64("exit", exitPrice).
		Float64("pl", rec.RealizedPL).
		Float64("fees", rec.Fees).
		Str("rule", sig.Comment).
		Msg("closed position")
	return nil
}

func (e *Engine) logOrderError(log zerolog.Logger, err error, msg string) {
	var rejected *broker.OrderRejectedError
	switch {
	case errors.Is(err, broker.ErrOrderTimeout):
		// Order state unknown: flag for the operator, never assume a fill.
		log.Error().Err(err).Bool("attention", true).Msg(msg + " (order state unknown)")
	case errors.As(err, &rejected):
		log.Warn().Err(err).Msg(msg)
	default:
		log.Error().Err(err).Msg(msg)
	}
}

// updateBreakers recomputes the entry circuit breakers from current equity.
// Tripped breakers suppress new entries only; open positions are still
// managed to closure.
func (e *Engine) updateBreakers() {
	equity := e.alloc.Total() + e.book.UnrealizedPL()
	if equity > e.peakEquity {
		e.peakEquity = equity
	}

	halted := false
	if pct := e.cfg.Capital.MaxDrawdownPct; pct > 0 && e.peakEquity > 0 {
		if (e.peakEquity-equity)/e.peakEquity >= pct {
			halted = true
		}
	}
	if pct := e.cfg.Capital.MaxDailyLossPct; pct > 0 && e.alloc.Total() > 0 {
		if e.dayRealized <= -pct*e.alloc.Total() {
			halted = true
		}
	}

	if halted != e.halted {
		e.halted = halted
		if halted {
			e.log.Warn().
				Float64("equity", equity).
				Float64("peak", e.peakEquity).
				Float64("day_realized", e.dayRealized).
				Msg("circuit breaker tripped; new entries halted")
		} else {
			e.log.Info().Msg("circuit breaker reset; entries resumed")
		}
	}
}

// reconcile asserts the capital conservation invariant: seed capital plus
// net realized P&L must equal the current pool. A mismatch means the books
// are corrupt and trading must halt.
func (e *Engine) reconcile() error {
	want := e.cfg.Capital.Initial + e.book.RealizedPL()
	got := e.alloc.Total()

	tolerance := 1e-6 * math.Max(1, e.cfg.Capital.Initial)
	if math.Abs(want-got) > tolerance {
		return fmt.Errorf("engine: capital reconciliation failed: pool %.6f, expected %.6f", got, want)
	}
	return nil
}

func (e *Engine) snapshotEquity() {
	snap := e.alloc.Snapshot()
	allocated := snap.Total - snap.Available
	unreal := e.book.UnrealizedPL()

	ts := e.now
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	if err := e.jrnl.RecordEquity(journal.EquitySnapshot{
		Time:         ts,
		Total:        snap.Total,
		Available:    snap.Available,
		Allocated:    allocated,
		UnrealizedPL: unreal,
		Equity:       snap.Total + unreal,
		OpenTrades:   len(e.book.OpenPositions()),
	}); err != nil {
		e.log.Error().Err(err).Msg("equity snapshot write failed")
	}
}

func (e *Engine) logSummary() {
	recs := e.book.Records()
	e.log.Info().
		Int("tick", e.ticks).
		Float64("capital", e.alloc.Total()).
		Float64("available", e.alloc.Available()).
		Float64("unrealized_pl", e.book.UnrealizedPL()).
		Float64("realized_pl", e.book.RealizedPL()).
		Int("open_positions", len(e.book.OpenPositions())).
		Int("closed_trades", len(recs)).
		Msg("performance summary")
}
