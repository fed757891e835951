package admin

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"InvestLogic/internal/model"
	"InvestLogic/internal/store"
	"InvestLogic/internal/strategy"
)

var (
	ErrInvalidCSVURL = errors.New("csv url must be a published sheet link containing pub?output=csv")
	ErrUnknownStatus = errors.New("unknown market status")
	ErrInvalidTier   = errors.New("tier must be FREE, PRO or ADMIN")
)

const csvMarker = "pub?output=csv"

// Store is the persistence the admin console needs.
type Store interface {
	store.SettingsStore
	store.UserStore
}

// Service backs the admin console: global market state and user tiers.
type Service struct {
	store    Store
	registry *strategy.Registry
	log      *zap.Logger
	now      func() time.Time
}

func NewService(st Store, registry *strategy.Registry, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: st, registry: registry, log: log, now: time.Now}
}

// Settings returns the saved settings, or the defaults when none exist.
func (s *Service) Settings(ctx context.Context) (model.GlobalSettings, error) {
	g, err := s.store.GetSettings(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return model.GlobalSettings{MarketStatus: s.registry.Default().Status}, nil
	}
	if err != nil {
		return model.GlobalSettings{}, fmt.Errorf("load settings: %w", err)
	}
	if g.MarketStatus == "" {
		g.MarketStatus = s.registry.Default().Status
	}
	return *g, nil
}

// SaveSettings validates and stores the global settings. An empty status
// selects the default template's status.
func (s *Service) SaveSettings(ctx context.Context, csvURL, marketStatus string) (model.GlobalSettings, error) {
	csvURL = strings.TrimSpace(csvURL)
	if csvURL != "" && !strings.Contains(csvURL, csvMarker) {
		return model.GlobalSettings{}, ErrInvalidCSVURL
	}
	marketStatus = strings.TrimSpace(marketStatus)
	if marketStatus == "" {
		marketStatus = s.registry.Default().Status
	}
	if !s.registry.Has(marketStatus) {
		return model.GlobalSettings{}, fmt.Errorf("%w: %q", ErrUnknownStatus, marketStatus)
	}

	g := model.GlobalSettings{CSVURL: csvURL, MarketStatus: marketStatus, UpdatedAt: s.now().UTC()}
	if err := s.store.SaveSettings(ctx, g); err != nil {
		return model.GlobalSettings{}, fmt.Errorf("save settings: %w", err)
	}
	s.log.Info("global settings saved", zap.String("market_status", marketStatus), zap.Bool("csv_url", csvURL != ""))
	return g, nil
}

// Statuses lists the statuses an admin may select.
func (s *Service) Statuses() []string {
	return s.registry.Statuses()
}

func (s *Service) Users(ctx context.Context) ([]model.User, error) {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// SetTier changes a user's tier and returns the updated user.
func (s *Service) SetTier(ctx context.Context, userID, tier string) (*model.User, error) {
	t, ok := model.ParseTier(tier)
	if !ok {
		return nil, ErrInvalidTier
	}
	if err := s.store.UpdateUserTier(ctx, userID, t); err != nil {
		return nil, err
	}
	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	s.log.Info("user tier changed", zap.String("user", userID), zap.String("tier", string(t)))
	return u, nil
}
