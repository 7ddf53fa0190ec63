// Package capital manages the shared pool of trading capital. All mutation
// of the pool goes through Request/Release/ApplyPL so the sum invariant
// (allocated never exceeds total, available never negative) holds for any
// sequence of calls.
package capital

import (
	"errors"
	"fmt"
	"math"
	"sync"
)

// RegulatoryMaxLeverage is the legal leverage ceiling. Configured leverage is
// clamped here no matter what the config says.
const RegulatoryMaxLeverage = 5.0

// ErrInsufficientCapital is the benign "pool is too thin for another entry"
// condition; callers skip the entry and try again another tick.
var ErrInsufficientCapital = errors.New("capital: insufficient available capital")

// State is a point-in-time view of the pool.
type State struct {
	Total     float64
	Available float64
	Allocated map[string]float64
}

// Allocator apportions one capital pool across strategies.
type Allocator struct {
	mu       sync.Mutex
	total    float64
	minTrade float64
	alloc    map[string]float64
}

// New creates an allocator over a pool of total capital. Requests that would
// grant less than minTrade fail with ErrInsufficientCapital.
func New(total, minTrade float64) *Allocator {
	return &Allocator{
		total:    total,
		minTrade: minTrade,
		alloc:    make(map[string]float64),
	}
}

// Request reserves capital for a strategy entry. The grant is the minimum of
// the desired notional, the strategy's allocation cap (maxAllocPct of the
// current total), and the available pool. A grant below the minimum trade
// size fails with ErrInsufficientCapital and reserves nothing.
func (a *Allocator) Request(strategyID string, desired, maxAllocPct float64) (float64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if desired <= 0 {
		return 0, fmt.Errorf("request %s: %w", strategyID, ErrInsufficientCapital)
	}
	if prev := a.alloc[strategyID]; prev > 0 {
		return 0, fmt.Errorf("request %s: %.2f already allocated", strategyID, prev)
	}

	grant := desired
	if cap := maxAllocPct * a.total; cap < grant {
		grant = cap
	}
	if avail := a.availableLocked(); avail < grant {
		grant = avail
	}
	if grant < a.minTrade {
		return 0, fmt.Errorf("request %s: grant %.2f below min trade %.2f: %w",
			strategyID, grant, a.minTrade, ErrInsufficientCapital)
	}

	a.alloc[strategyID] = grant
	return grant, nil
}

// Release returns a strategy's reserved capital to the pool. Releasing more
// than is reserved, or releasing twice for the same position, frees at most
// the reserved amount; the call is idempotent.
func (a *Allocator) Release(strategyID string, notional float64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	held := a.alloc[strategyID]
	if notional >= held {
		delete(a.alloc, strategyID)
		return
	}
	a.alloc[strategyID] = held - notional
}

// ApplyPL adjusts the total pool by a realized profit or loss. The total is
// kept exact so the reconciliation invariant (seed capital plus realized P&L
// equals the pool) holds to the cent.
func (a *Allocator) ApplyPL(pl float64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.total += pl
}

// Total returns the current pool size (seed capital plus realized P&L).
func (a *Allocator) Total() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.total
}

// Available returns the unreserved portion of the pool.
func (a *Allocator) Available() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.availableLocked()
}

// Allocated returns the capital currently reserved by a strategy.
func (a *Allocator) Allocated(strategyID string) float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.alloc[strategyID]
}

// Snapshot returns a copy of the current pool state.
func (a *Allocator) Snapshot() State {
	a.mu.Lock()
	defer a.mu.Unlock()

	alloc := make(map[string]float64, len(a.alloc))
	for k, v := range a.alloc {
		alloc[k] = v
	}
	return State{
		Total:     a.total,
		Available: a.availableLocked(),
		Allocated: alloc,
	}
}

func (a *Allocator) reservedLocked() float64 {
	sum := 0.0
	for _, v := range a.alloc {
		sum += v
	}
	return sum
}

func (a *Allocator) availableLocked() float64 {
	avail := a.total - a.reservedLocked()
	if avail < 0 {
		// Cannot happen through Request/Release, but never report negative.
		return 0
	}
	return avail
}

// ClampLeverage bounds a configured leverage multiplier to the regulatory
// ceiling. Values at or below zero fall back to 1x.
func ClampLeverage(leverage float64) float64 {
	if leverage <= 0 {
		return 1
	}
	return math.Min(leverage, RegulatoryMaxLeverage)
}
