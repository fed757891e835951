package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"InvestLogic/internal/model"
)

// MemoryStore is a process-local Store used when no database path is
// configured. Data is lost on restart.
type MemoryStore struct {
	mu         sync.RWMutex
	trades     map[string]model.TradeRecord
	seq        map[string]int64 // insertion order for stable sorting
	next       int64
	users      map[string]model.User
	portfolios map[string]PortfolioRecord
	settings   *model.GlobalSettings
	alerts     map[string]struct{}
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		trades:     map[string]model.TradeRecord{},
		seq:        map[string]int64{},
		users:      map[string]model.User{},
		portfolios: map[string]PortfolioRecord{},
		alerts:     map[string]struct{}{},
	}
}

func (m *MemoryStore) InsertTrade(_ context.Context, t *model.TradeRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	m.next++
	m.trades[t.ID] = *t
	m.seq[t.ID] = m.next
	return nil
}

func (m *MemoryStore) GetTrade(_ context.Context, id string) (*model.TradeRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.trades[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &t, nil
}

func (m *MemoryStore) UpdateTradeFill(_ context.Context, id string, price, qty float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.trades[id]
	if !ok {
		return ErrNotFound
	}
	t.Price, t.Qty = price, qty
	m.trades[id] = t
	return nil
}

func (m *MemoryStore) DeleteTrade(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.trades[id]; !ok {
		return ErrNotFound
	}
	delete(m.trades, id)
	delete(m.seq, id)
	return nil
}

func (m *MemoryStore) ListTrades(_ context.Context, userID, symbol string) ([]model.TradeRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []model.TradeRecord{}
	for _, t := range m.trades {
		if t.UserID != userID || (symbol != "" && t.Symbol != symbol) {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return m.seq[out[i].ID] > m.seq[out[j].ID]
	})
	return out, nil
}

func (m *MemoryStore) CreateUser(_ context.Context, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Username == u.Username {
			return ErrConflict
		}
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	m.users[u.ID] = *u
	return nil
}

func (m *MemoryStore) GetUser(_ context.Context, id string) (*model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (m *MemoryStore) GetUserByUsername(_ context.Context, username string) (*model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) ListUsers(_ context.Context) ([]model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].Username < out[j].Username
	})
	return out, nil
}

func (m *MemoryStore) UpdateUserTier(_ context.Context, id string, tier model.Tier) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return ErrNotFound
	}
	u.Tier = tier
	m.users[id] = u
	return nil
}

func (m *MemoryStore) TouchLogin(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return ErrNotFound
	}
	at = at.UTC()
	u.LastLoginAt = &at
	m.users[id] = u
	return nil
}

func copyRecord(r PortfolioRecord) PortfolioRecord {
	out := PortfolioRecord{UserID: r.UserID, Allocations: make(map[string]model.AllocationSetting, len(r.Allocations))}
	if r.Capital != nil {
		c := *r.Capital
		out.Capital = &c
	}
	for k, v := range r.Allocations {
		out.Allocations[k] = v
	}
	return out
}

func (m *MemoryStore) GetPortfolio(_ context.Context, userID string) (*PortfolioRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.portfolios[userID]
	if !ok {
		return nil, ErrNotFound
	}
	out := copyRecord(r)
	return &out, nil
}

func (m *MemoryStore) record(userID string) PortfolioRecord {
	r, ok := m.portfolios[userID]
	if !ok {
		r = PortfolioRecord{UserID: userID, Allocations: map[string]model.AllocationSetting{}}
	}
	return r
}

func (m *MemoryStore) SaveCapital(_ context.Context, userID string, capital float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.record(userID)
	r.Capital = &capital
	m.portfolios[userID] = r
	return nil
}

func (m *MemoryStore) SaveAllocation(_ context.Context, userID, symbol string, a model.AllocationSetting) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.record(userID)
	r.Allocations[symbol] = a
	m.portfolios[userID] = r
	return nil
}

func (m *MemoryStore) ListPortfolios(_ context.Context) ([]PortfolioRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]PortfolioRecord, 0, len(m.portfolios))
	for _, r := range m.portfolios {
		out = append(out, copyRecord(r))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (m *MemoryStore) GetSettings(_ context.Context) (*model.GlobalSettings, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.settings == nil {
		return nil, ErrNotFound
	}
	s := *m.settings
	return &s, nil
}

func (m *MemoryStore) SaveSettings(_ context.Context, s model.GlobalSettings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.UpdatedAt.IsZero() {
		s.UpdatedAt = time.Now().UTC()
	}
	m.settings = &s
	return nil
}

func (m *MemoryStore) MarkAlerted(_ context.Context, key, day string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := day + "|" + key
	if _, ok := m.alerts[k]; ok {
		return false, nil
	}
	m.alerts[k] = struct{}{}
	return true, nil
}

func (m *MemoryStore) UnmarkAlerted(_ context.Context, key, day string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.alerts, day+"|"+key)
	return nil
}

func (m *MemoryStore) Close() error { return nil }
