package gate

import "sync"

// Ledger stores trade records in memory under a hard capacity: once full, the oldest
// record is evicted so memory stays bounded no matter how long the bot runs.
type Ledger struct {
	mu       sync.Mutex
	capacity int
	records  []TradeRecord
}

// NewLedger creates an empty ledger holding at most capacity records.
func NewLedger(capacity int) *Ledger {
	if capacity < 1 {
		capacity = 1
	}
	return &Ledger{capacity: capacity, records: make([]TradeRecord, 0, capacity)}
}

// Record appends a trade record, evicting the oldest when at capacity.
func (l *Ledger) Record(rec TradeRecord) {
	l.mu.Lock()
	if len(l.records) == l.capacity {
		copy(l.records, l.records[1:])
		l.records = l.records[:len(l.records)-1]
	}
	l.records = append(l.records, rec)
	l.mu.Unlock()
}

// Snapshot returns a copy of all retained records, oldest first.
func (l *Ledger) Snapshot() []TradeRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]TradeRecord, len(l.records))
	copy(out, l.records)
	return out
}

// Tail returns the most recent n records in chronological order.
func (l *Ledger) Tail(n int) []TradeRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	if n <= 0 || len(l.records) == 0 {
		return nil
	}
	if n > len(l.records) {
		n = len(l.records)
	}
	out := make([]TradeRecord, n)
	copy(out, l.records[len(l.records)-n:])
	return out
}

// Len reports how many records are retained.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}

// Reset clears all stored records.
func (l *Ledger) Reset() {
	l.mu.Lock()
	l.records = l.records[:0]
	l.mu.Unlock()
}
