// Package store provides billing.Store implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/warp/fee-engine/billing"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu       sync.RWMutex
	students map[billing.StudentID]billing.Student
	cycles   map[billing.StudentID][]billing.FeeCycle
	periods  map[billing.PeriodID]billing.BillingPeriod
	keys     map[string]billing.PeriodID // natural key -> period id
	bills    map[billing.BillID]billing.FeeBill
	payments map[billing.BillID][]billing.FeePayment

	// Clock drives the mark-overdue procedure; tests pin it.
	Clock func() billing.Date
}

func NewMemory() *Memory {
	return &Memory{
		students: make(map[billing.StudentID]billing.Student),
		cycles:   make(map[billing.StudentID][]billing.FeeCycle),
		periods:  make(map[billing.PeriodID]billing.BillingPeriod),
		keys:     make(map[string]billing.PeriodID),
		bills:    make(map[billing.BillID]billing.FeeBill),
		payments: make(map[billing.BillID][]billing.FeePayment),
		Clock:    billing.Today,
	}
}

// PutStudent seeds a student record.
func (m *Memory) PutStudent(s billing.Student) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.students[s.ID] = s
}

func (m *Memory) GetStudent(_ context.Context, id billing.StudentID) (*billing.Student, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.students[id]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (m *Memory) ActiveCycles(_ context.Context, id billing.StudentID) ([]billing.FeeCycle, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var active []billing.FeeCycle
	for _, c := range m.cycles[id] {
		if c.IsActive {
			active = append(active, c)
		}
	}
	return active, nil
}

func (m *Memory) InsertCycle(_ context.Context, c billing.FeeCycle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.cycles[c.StudentID] {
		if existing.CycleType == c.CycleType && existing.EffectiveFrom.Equal(c.EffectiveFrom) {
			return billing.ErrPersistenceConflict
		}
	}
	m.cycles[c.StudentID] = append(m.cycles[c.StudentID], c)
	return nil
}

func (m *Memory) UpsertPeriod(_ context.Context, p billing.BillingPeriod) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := p.NaturalKey()
	if _, exists := m.keys[k]; exists {
		return false, nil
	}
	if p.ID == "" {
		p.ID = billing.PeriodID(k)
	}
	m.keys[k] = p.ID
	m.periods[p.ID] = p
	return true, nil
}

func (m *Memory) PeriodsByStudent(_ context.Context, id billing.StudentID) ([]billing.BillingPeriod, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []billing.BillingPeriod
	for _, p := range m.periods {
		if p.StudentID == id {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].PeriodStart.Before(out[j].PeriodStart)
	})
	return out, nil
}

func (m *Memory) GetPeriod(_ context.Context, id billing.PeriodID) (*billing.BillingPeriod, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.periods[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (m *Memory) UpdatePeriodStatus(_ context.Context, id billing.PeriodID, status billing.PeriodStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.periods[id]
	if !ok {
		return billing.ErrPeriodNotFound
	}
	p.Status = status
	m.periods[id] = p
	return nil
}

func (m *Memory) UpdatePeriodAmounts(_ context.Context, id billing.PeriodID, expected, paid, balance *decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.periods[id]
	if !ok {
		return billing.ErrPeriodNotFound
	}
	if expected != nil {
		v := *expected
		p.ExpectedAmount = &v
	}
	if paid != nil {
		v := *paid
		p.PaidAmount = &v
	}
	if balance != nil {
		v := *balance
		p.BalanceAmount = &v
	}
	m.periods[id] = p
	return nil
}

func (m *Memory) InsertBill(_ context.Context, b billing.FeeBill) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.bills {
		if existing.PeriodID == b.PeriodID {
			return billing.ErrPersistenceConflict
		}
	}
	m.bills[b.ID] = b
	return nil
}

func (m *Memory) GetBill(_ context.Context, id billing.BillID) (*billing.FeeBill, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.bills[id]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

func (m *Memory) BillsByStudent(_ context.Context, id billing.StudentID) ([]billing.FeeBill, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []billing.FeeBill
	for _, b := range m.bills {
		if p, ok := m.periods[b.PeriodID]; ok && p.StudentID == id {
			out = append(out, b)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DueDate.Before(out[j].DueDate)
	})
	return out, nil
}

func (m *Memory) InsertPayment(_ context.Context, p billing.FeePayment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.bills[p.BillID]; !ok {
		return billing.ErrBillNotFound
	}
	m.payments[p.BillID] = append(m.payments[p.BillID], p)
	return nil
}

func (m *Memory) PaymentsByBill(_ context.Context, id billing.BillID) ([]billing.FeePayment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]billing.FeePayment(nil), m.payments[id]...), nil
}

// MarkOverduePeriods mirrors the server-side procedure: promote billed or
// partially-paid periods whose bill is past due with a positive live balance.
func (m *Memory) MarkOverduePeriods(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	today := m.Clock()

	marked := 0
	for _, b := range m.bills {
		p, ok := m.periods[b.PeriodID]
		if !ok || (p.Status != billing.StatusBilled && p.Status != billing.StatusPartiallyPaid) {
			continue
		}
		if !b.DueDate.Before(today) {
			continue
		}
		outstanding := b.NetAmount
		for _, pay := range m.payments[b.ID] {
			outstanding = outstanding.Sub(pay.AmountPaid)
		}
		if outstanding.GreaterThan(decimal.Zero) {
			p.Status = billing.StatusOverdue
			m.periods[p.ID] = p
			marked++
		}
	}
	return marked, nil
}

var _ billing.Store = (*Memory)(nil)
