package tracker

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"InvestLogic/internal/calculator"
	"InvestLogic/internal/model"
	"InvestLogic/internal/store"
	"InvestLogic/internal/strategy"
)

const autoMemo = "자동등록됨"

var (
	ErrAlreadyExecuted = errors.New("tranche already executed")
	ErrInvalidTurn     = errors.New("turn out of range")
	ErrInvalidPrice    = errors.New("price must be positive")
	ErrInvalidAmount   = errors.New("value must be a non-negative number")
	ErrInvalidSymbol   = errors.New("symbol is required")
)

// Defaults seed a portfolio the user has not configured yet.
type Defaults struct {
	TotalCapital float64
	Allocations  map[string]model.AllocationSetting
}

// StandardDefaults is 100,000,000 capital with SOXL and TQQQ fully allocated.
func StandardDefaults() Defaults {
	return Defaults{
		TotalCapital: 100_000_000,
		Allocations: map[string]model.AllocationSetting{
			"SOXL": {Percent: 100, BasePrice: 30},
			"TQQQ": {Percent: 100, BasePrice: 55},
		},
	}
}

// Store is the persistence the tracker needs.
type Store interface {
	store.TradeStore
	store.PortfolioStore
	store.SettingsStore
}

// Service owns portfolios, plans and trade execution records.
type Service struct {
	mu       sync.Mutex // serializes check-and-insert of executions
	store    Store
	registry *strategy.Registry
	defaults Defaults
	feed     *Feed
	log      *zap.Logger
	now      func() time.Time
}

func NewService(st Store, registry *strategy.Registry, defaults Defaults, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		store:    st,
		registry: registry,
		defaults: defaults,
		feed:     NewFeed(),
		log:      log,
		now:      time.Now,
	}
}

func (s *Service) Feed() *Feed { return s.feed }

// NormalizeSymbol trims and upper-cases a ticker.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

func validNumber(v float64) bool {
	return v >= 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
}

// MarketStatus returns the admin-selected status, or the default template's
// status when none was saved.
func (s *Service) MarketStatus(ctx context.Context) (string, error) {
	g, err := s.store.GetSettings(ctx)
	if errors.Is(err, store.ErrNotFound) || (err == nil && g.MarketStatus == "") {
		return s.registry.Default().Status, nil
	}
	if err != nil {
		return "", fmt.Errorf("load settings: %w", err)
	}
	return g.MarketStatus, nil
}

// Template returns the template for the current market status.
func (s *Service) Template(ctx context.Context) (model.StrategyTemplate, error) {
	status, err := s.MarketStatus(ctx)
	if err != nil {
		return model.StrategyTemplate{}, err
	}
	return s.registry.Lookup(status), nil
}

// Portfolio merges what the user saved over the configured defaults.
func (s *Service) Portfolio(ctx context.Context, userID string) (model.Portfolio, error) {
	p := model.Portfolio{
		UserID:       userID,
		TotalCapital: s.defaults.TotalCapital,
		Allocations:  make(map[string]model.AllocationSetting, len(s.defaults.Allocations)),
	}
	for sym, a := range s.defaults.Allocations {
		p.Allocations[sym] = a
	}

	rec, err := s.store.GetPortfolio(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return p, nil
	}
	if err != nil {
		return model.Portfolio{}, fmt.Errorf("load portfolio: %w", err)
	}
	if rec.Capital != nil {
		p.TotalCapital = *rec.Capital
	}
	for sym, a := range rec.Allocations {
		p.Allocations[sym] = a
	}
	return p, nil
}

func (s *Service) UpdateCapital(ctx context.Context, userID string, capital float64) (model.Portfolio, error) {
	if !validNumber(capital) {
		return model.Portfolio{}, ErrInvalidAmount
	}
	if err := s.store.SaveCapital(ctx, userID, capital); err != nil {
		return model.Portfolio{}, fmt.Errorf("save capital: %w", err)
	}
	return s.Portfolio(ctx, userID)
}

// UpdateAllocation changes percent and/or base price of one symbol. A nil
// field keeps its current value.
func (s *Service) UpdateAllocation(ctx context.Context, userID, symbol string, percent, basePrice *float64) (model.Portfolio, error) {
	symbol = NormalizeSymbol(symbol)
	if symbol == "" {
		return model.Portfolio{}, ErrInvalidSymbol
	}
	if (percent != nil && !validNumber(*percent)) || (basePrice != nil && !validNumber(*basePrice)) {
		return model.Portfolio{}, ErrInvalidAmount
	}

	p, err := s.Portfolio(ctx, userID)
	if err != nil {
		return model.Portfolio{}, err
	}
	a := p.Setting(symbol)
	if percent != nil {
		a.Percent = *percent
	}
	if basePrice != nil {
		a.BasePrice = *basePrice
	}
	if err := s.store.SaveAllocation(ctx, userID, symbol, a); err != nil {
		return model.Portfolio{}, fmt.Errorf("save allocation: %w", err)
	}
	p.Allocations[symbol] = a
	return p, nil
}

// Plan computes the user's plan for symbol against their recorded trades.
func (s *Service) Plan(ctx context.Context, userID, symbol string) (*model.Plan, error) {
	symbol = NormalizeSymbol(symbol)
	if symbol == "" {
		return nil, ErrInvalidSymbol
	}
	p, err := s.Portfolio(ctx, userID)
	if err != nil {
		return nil, err
	}
	tmpl, err := s.Template(ctx)
	if err != nil {
		return nil, err
	}
	trades, err := s.store.ListTrades(ctx, userID, symbol)
	if err != nil {
		return nil, fmt.Errorf("load trades: %w", err)
	}
	return calculator.Compute(calculator.PlanInput{
		Symbol:       symbol,
		TotalCapital: p.TotalCapital,
		Setting:      p.Setting(symbol),
		Template:     tmpl,
		Trades:       trades,
	}), nil
}

// PreviewInput is an anonymous what-if plan request.
type PreviewInput struct {
	Symbol       string              `json:"symbol"`
	TotalCapital float64             `json:"total_capital"`
	Percent      float64             `json:"percent"`
	BasePrice    float64             `json:"base_price"`
	Trades       []model.TradeRecord `json:"trades,omitempty"`
}

// Preview computes a plan from caller-supplied numbers without touching
// stored state.
func (s *Service) Preview(ctx context.Context, in PreviewInput) (*model.Plan, error) {
	if !validNumber(in.TotalCapital) || !validNumber(in.Percent) || !validNumber(in.BasePrice) {
		return nil, ErrInvalidAmount
	}
	symbol := NormalizeSymbol(in.Symbol)
	tmpl, err := s.Template(ctx)
	if err != nil {
		return nil, err
	}
	return calculator.Compute(calculator.PlanInput{
		Symbol:       symbol,
		TotalCapital: in.TotalCapital,
		Setting:      model.AllocationSetting{Percent: in.Percent, BasePrice: in.BasePrice},
		Template:     tmpl,
		Trades:       in.Trades,
	}), nil
}

// RegisterExecution records tranche turn of symbol as bought at its target
// price. A tranche can be registered once.
func (s *Service) RegisterExecution(ctx context.Context, userID, symbol string, turn int) (*model.TradeRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	plan, err := s.Plan(ctx, userID, symbol)
	if err != nil {
		return nil, err
	}
	if turn < 1 || turn > len(plan.Rows) {
		return nil, fmt.Errorf("%w: %d of %d", ErrInvalidTurn, turn, len(plan.Rows))
	}
	row := plan.Rows[turn-1]
	if row.IsExecuted {
		return nil, ErrAlreadyExecuted
	}

	amount, _ := decimal.NewFromFloat(row.Amount).Floor().Float64()
	price, _ := decimal.NewFromFloat(row.TargetPrice).Round(2).Float64()
	qty, _ := decimal.NewFromFloat(row.ExpectedQty).Round(4).Float64()

	rec := &model.TradeRecord{
		UserID: userID,
		Symbol: plan.Symbol,
		Type:   model.TradeBuy,
		Round:  turn,
		Amount: amount,
		Price:  price,
		Qty:    qty,
		Date:   s.now().UTC(),
		Memo:   autoMemo,
	}
	if err := s.store.InsertTrade(ctx, rec); err != nil {
		return nil, fmt.Errorf("insert trade: %w", err)
	}
	s.log.Info("tranche registered",
		zap.String("user", userID), zap.String("symbol", rec.Symbol),
		zap.Int("round", turn), zap.Float64("amount", amount), zap.Float64("price", price))
	s.publish(ctx, userID)
	return rec, nil
}

// owned loads a trade and hides trades of other users as not found.
func (s *Service) owned(ctx context.Context, userID, id string) (*model.TradeRecord, error) {
	t, err := s.store.GetTrade(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.UserID != userID {
		return nil, store.ErrNotFound
	}
	return t, nil
}

// UpdateFillPrice corrects the fill price of a trade; qty follows as
// amount / price.
func (s *Service) UpdateFillPrice(ctx context.Context, userID, id string, price float64) (*model.TradeRecord, error) {
	if price <= 0 || math.IsNaN(price) || math.IsInf(price, 0) {
		return nil, ErrInvalidPrice
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	qty := t.Amount / price
	if err := s.store.UpdateTradeFill(ctx, id, price, qty); err != nil {
		return nil, fmt.Errorf("update fill: %w", err)
	}
	t.Price, t.Qty = price, qty
	s.publish(ctx, userID)
	return t, nil
}

func (s *Service) DeleteTrade(ctx context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.owned(ctx, userID, id); err != nil {
		return err
	}
	if err := s.store.DeleteTrade(ctx, id); err != nil {
		return fmt.Errorf("delete trade: %w", err)
	}
	s.log.Info("trade deleted", zap.String("user", userID), zap.String("id", id))
	s.publish(ctx, userID)
	return nil
}

// Trades lists the user's trades newest first; an empty symbol lists all.
func (s *Service) Trades(ctx context.Context, userID, symbol string) ([]model.TradeRecord, error) {
	trades, err := s.store.ListTrades(ctx, userID, NormalizeSymbol(symbol))
	if err != nil {
		return nil, fmt.Errorf("list trades: %w", err)
	}
	return trades, nil
}

func (s *Service) publish(ctx context.Context, userID string) {
	if s.feed.Subscribers(userID) == 0 {
		return
	}
	trades, err := s.store.ListTrades(ctx, userID, "")
	if err != nil {
		s.log.Error("snapshot for feed failed", zap.String("user", userID), zap.Error(err))
		return
	}
	s.feed.Publish(Snapshot{UserID: userID, Trades: trades, At: s.now().UTC()})
}
