package cache

import (
	"sync"

	"github.com/notably-app/ephemeral/internal/clock"
)

const dateLayout = "2006-01-02"

// requestBudget is the process-local daily call allowance. It is
// best-effort: multiple instances each carry their own budget.
type requestBudget struct {
	mu        sync.Mutex
	clk       clock.Clock
	limit     int
	count     int
	resetDate string
	exhausted bool
}

func newRequestBudget(limit int, clk clock.Clock) *requestBudget {
	return &requestBudget{
		clk:       clk,
		limit:     limit,
		resetDate: clk.Now().Format(dateLayout),
	}
}

// take consumes one unit. The second return reports the first refusal of
// the current day so callers can log the transition exactly once.
func (b *requestBudget) take() (ok, firstRefusal bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rollLocked()

	if b.count >= b.limit {
		first := !b.exhausted
		b.exhausted = true
		return false, first
	}
	b.count++
	return true, false
}

// rollLocked resets the counter when the calendar date changes. Date
// strings are compared, not elapsed time, so the reset lands on midnight
// regardless of process uptime.
func (b *requestBudget) rollLocked() {
	today := b.clk.Now().Format(dateLayout)
	if today != b.resetDate {
		b.resetDate = today
		b.count = 0
		b.exhausted = false
	}
}

func (b *requestBudget) snapshot() (count, remaining int, limitReached bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rollLocked()

	remaining = b.limit - b.count
	if remaining < 0 {
		remaining = 0
	}
	return b.count, remaining, b.count >= b.limit
}
