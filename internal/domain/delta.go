package domain

import (
	"sort"
	"time"
)

// TransactionSet is an insertion-ordered map of transactions keyed by ID.
// Lookups are O(1); iteration follows first insertion so batch appends keep
// the order in which the aggregator reported the rows.
type TransactionSet struct {
	index map[string]int
	items []Transaction
}

// NewTransactionSet returns an empty set.
func NewTransactionSet() *TransactionSet {
	return &TransactionSet{index: make(map[string]int)}
}

// Put inserts tx, or replaces the stored value in place if the ID is present.
func (s *TransactionSet) Put(tx Transaction) {
	if s.index == nil {
		s.index = make(map[string]int)
	}
	if i, ok := s.index[tx.ID]; ok {
		s.items[i] = tx
		return
	}
	s.index[tx.ID] = len(s.items)
	s.items = append(s.items, tx)
}

// Get returns the transaction stored under id.
func (s *TransactionSet) Get(id string) (Transaction, bool) {
	i, ok := s.index[id]
	if !ok {
		return Transaction{}, false
	}
	return s.items[i], true
}

// Has reports whether id is present.
func (s *TransactionSet) Has(id string) bool {
	_, ok := s.index[id]
	return ok
}

// Delete removes id and reports whether it was present.
func (s *TransactionSet) Delete(id string) bool {
	i, ok := s.index[id]
	if !ok {
		return false
	}
	copy(s.items[i:], s.items[i+1:])
	s.items = s.items[:len(s.items)-1]
	delete(s.index, id)
	for j := i; j < len(s.items); j++ {
		s.index[s.items[j].ID] = j
	}
	return true
}

// Len returns the number of transactions.
func (s *TransactionSet) Len() int {
	return len(s.items)
}

// Values returns the transactions in insertion order. The slice is a copy.
func (s *TransactionSet) Values() []Transaction {
	out := make([]Transaction, len(s.items))
	copy(out, s.items)
	return out
}

// IDSet is a set of transaction IDs.
type IDSet map[string]struct{}

// Add inserts id.
func (s IDSet) Add(id string) { s[id] = struct{}{} }

// Has reports whether id is present.
func (s IDSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Remove deletes id.
func (s IDSet) Remove(id string) { delete(s, id) }

// Sorted returns the IDs in ascending order.
func (s IDSet) Sorted() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Delta collects the changes observed in one run across all credentials.
//
// Before reconciliation Added and Deleted may overlap and Modified may hold
// several entries for the same ID. Cursors maps a credential hash to the
// cursor reached once every page of that credential was consumed.
type Delta struct {
	Added    *TransactionSet
	Modified []Transaction
	Deleted  IDSet
	Cursors  map[string]string
}

// NewDelta returns an empty delta ready to be filled.
func NewDelta() *Delta {
	return &Delta{
		Added:   NewTransactionSet(),
		Deleted: make(IDSet),
		Cursors: make(map[string]string),
	}
}

// Size returns the total number of pending row operations.
func (d *Delta) Size() int {
	return d.Added.Len() + len(d.Modified) + len(d.Deleted)
}

// CursorState is the sync progress persisted in the destination between runs.
type CursorState struct {
	LastRun time.Time
	Cursors map[string]string
}
