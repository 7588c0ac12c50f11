package inventory

import (
	"context"
	"sync"
)

// Ledger stores product code -> available quantity. Unknown codes read as 0.
type Ledger interface {
	// Get returns the current quantity of every code in codes.
	Get(ctx context.Context, codes []string) (map[string]int, error)
	// CompareAndDeduct subtracts requested from the stock only if every
	// requested code still holds the quantity in observed. It reports false,
	// and changes nothing, when another reservation got there first.
	CompareAndDeduct(ctx context.Context, observed, requested map[string]int) (bool, error)
	// Seed overwrites the quantities of the given codes.
	Seed(ctx context.Context, stock map[string]int) error
	Snapshot(ctx context.Context) (map[string]int, error)
}

// MemoryLedger keeps stock in process memory for the lifetime of the process.
type MemoryLedger struct {
	mu    sync.Mutex
	stock map[string]int
}

func NewMemoryLedger(seed map[string]int) *MemoryLedger {
	l := &MemoryLedger{stock: map[string]int{}}
	for code, qty := range seed {
		l.stock[code] = qty
	}
	return l
}

func (l *MemoryLedger) Get(_ context.Context, codes []string) (map[string]int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[string]int, len(codes))
	for _, c := range codes {
		out[c] = l.stock[c]
	}
	return out, nil
}

func (l *MemoryLedger) CompareAndDeduct(_ context.Context, observed, requested map[string]int) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for code := range requested {
		if l.stock[code] != observed[code] {
			return false, nil
		}
	}
	for code, qty := range requested {
		l.stock[code] -= qty
	}
	return true, nil
}

func (l *MemoryLedger) Seed(_ context.Context, stock map[string]int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for code, qty := range stock {
		l.stock[code] = qty
	}
	return nil
}

func (l *MemoryLedger) Snapshot(_ context.Context) (map[string]int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[string]int, len(l.stock))
	for code, qty := range l.stock {
		out[code] = qty
	}
	return out, nil
}
