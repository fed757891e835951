package store

import (
	"context"
	"errors"
	"time"

	"InvestLogic/internal/model"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("already exists")
)

// PortfolioRecord is what a user has explicitly saved. A nil Capital means
// the user never set one.
type PortfolioRecord struct {
	UserID      string
	Capital     *float64
	Allocations map[string]model.AllocationSetting
}

// TradeStore persists tranche executions.
type TradeStore interface {
	// InsertTrade assigns an ID when the record has none.
	InsertTrade(ctx context.Context, t *model.TradeRecord) error
	GetTrade(ctx context.Context, id string) (*model.TradeRecord, error)
	UpdateTradeFill(ctx context.Context, id string, price, qty float64) error
	DeleteTrade(ctx context.Context, id string) error
	// ListTrades returns the user's trades newest first. An empty symbol
	// lists every symbol.
	ListTrades(ctx context.Context, userID, symbol string) ([]model.TradeRecord, error)
}

// UserStore persists accounts.
type UserStore interface {
	// CreateUser returns ErrConflict when the username is taken.
	CreateUser(ctx context.Context, u *model.User) error
	GetUser(ctx context.Context, id string) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	ListUsers(ctx context.Context) ([]model.User, error)
	UpdateUserTier(ctx context.Context, id string, tier model.Tier) error
	TouchLogin(ctx context.Context, id string, at time.Time) error
}

// PortfolioStore persists per-user capital and allocations.
type PortfolioStore interface {
	GetPortfolio(ctx context.Context, userID string) (*PortfolioRecord, error)
	SaveCapital(ctx context.Context, userID string, capital float64) error
	SaveAllocation(ctx context.Context, userID, symbol string, s model.AllocationSetting) error
	ListPortfolios(ctx context.Context) ([]PortfolioRecord, error)
}

// SettingsStore persists the single global settings document.
type SettingsStore interface {
	GetSettings(ctx context.Context) (*model.GlobalSettings, error)
	SaveSettings(ctx context.Context, s model.GlobalSettings) error
}

// AlertStore remembers which alerts were already sent.
type AlertStore interface {
	// MarkAlerted records key for day and reports whether it was new.
	MarkAlerted(ctx context.Context, key, day string) (bool, error)
	// UnmarkAlerted releases a mark whose alert could not be delivered.
	UnmarkAlerted(ctx context.Context, key, day string) error
}

// Store is the full persistence surface.
type Store interface {
	TradeStore
	UserStore
	PortfolioStore
	SettingsStore
	AlertStore
	Close() error
}
