package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"InvestLogic/internal/model"
)

// backends runs fn against every Store implementation.
func backends(t *testing.T, fn func(t *testing.T, s Store)) {
	t.Helper()
	t.Run("memory", func(t *testing.T) {
		fn(t, NewMemoryStore())
	})
	t.Run("sqlite", func(t *testing.T) {
		s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"), zap.NewNop())
		if err != nil {
			t.Fatalf("NewSQLiteStore: %v", err)
		}
		t.Cleanup(func() { s.Close() })
		fn(t, s)
	})
}

func TestStore_Trades(t *testing.T) {
	backends(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		base := time.Date(2025, 1, 2, 9, 0, 0, 0, time.UTC)

		r1 := &model.TradeRecord{UserID: "u1", Symbol: "SOXL", Type: model.TradeBuy, Round: 1,
			Amount: 4000000, Price: 30, Qty: 133333.3333, Date: base, Memo: "자동등록됨"}
		r2 := &model.TradeRecord{UserID: "u1", Symbol: "SOXL", Type: model.TradeBuy, Round: 2,
			Amount: 4000000, Price: 28.5, Qty: 140350.8772, Date: base.Add(time.Hour)}
		r3 := &model.TradeRecord{UserID: "u1", Symbol: "TQQQ", Type: model.TradeBuy, Round: 1,
			Amount: 1000, Price: 55, Qty: 18.1818, Date: base.Add(2 * time.Hour)}
		other := &model.TradeRecord{UserID: "u2", Symbol: "SOXL", Type: model.TradeBuy, Round: 1,
			Amount: 1, Price: 1, Qty: 1, Date: base}
		for _, r := range []*model.TradeRecord{r1, r2, r3, other} {
			if err := s.InsertTrade(ctx, r); err != nil {
				t.Fatalf("InsertTrade: %v", err)
			}
			if r.ID == "" {
				t.Fatal("expected generated id")
			}
		}

		soxl, err := s.ListTrades(ctx, "u1", "SOXL")
		if err != nil {
			t.Fatalf("ListTrades: %v", err)
		}
		if len(soxl) != 2 || soxl[0].Round != 2 || soxl[1].Round != 1 {
			t.Fatalf("expected rounds [2 1] newest first, got %+v", soxl)
		}
		if soxl[1].Memo != "자동등록됨" || !soxl[1].Date.Equal(base) {
			t.Errorf("round trip lost fields: %+v", soxl[1])
		}

		all, _ := s.ListTrades(ctx, "u1", "")
		if len(all) != 3 || all[0].Symbol != "TQQQ" {
			t.Errorf("expected 3 trades with TQQQ first, got %+v", all)
		}

		if err := s.UpdateTradeFill(ctx, r1.ID, 29, 137931.0345); err != nil {
			t.Fatalf("UpdateTradeFill: %v", err)
		}
		got, err := s.GetTrade(ctx, r1.ID)
		if err != nil || got.Price != 29 || got.Qty != 137931.0345 {
			t.Errorf("expected updated fill, got %+v err=%v", got, err)
		}

		if err := s.DeleteTrade(ctx, r2.ID); err != nil {
			t.Fatalf("DeleteTrade: %v", err)
		}
		if _, err := s.GetTrade(ctx, r2.ID); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound after delete, got %v", err)
		}
		if err := s.DeleteTrade(ctx, r2.ID); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound on second delete, got %v", err)
		}
		if err := s.UpdateTradeFill(ctx, "missing", 1, 1); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound on update of missing trade, got %v", err)
		}
	})
}

func TestStore_Users(t *testing.T) {
	backends(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		u := &model.User{Username: "alice", PasswordHash: "h", Tier: model.TierFree}
		if err := s.CreateUser(ctx, u); err != nil {
			t.Fatalf("CreateUser: %v", err)
		}
		if err := s.CreateUser(ctx, &model.User{Username: "alice", PasswordHash: "x", Tier: model.TierFree}); !errors.Is(err, ErrConflict) {
			t.Fatalf("expected ErrConflict, got %v", err)
		}

		got, err := s.GetUserByUsername(ctx, "alice")
		if err != nil || got.ID != u.ID || got.PasswordHash != "h" {
			t.Fatalf("GetUserByUsername: %+v %v", got, err)
		}
		if got.LastLoginAt != nil {
			t.Error("expected no last login yet")
		}

		if err := s.UpdateUserTier(ctx, u.ID, model.TierPro); err != nil {
			t.Fatalf("UpdateUserTier: %v", err)
		}
		at := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
		if err := s.TouchLogin(ctx, u.ID, at); err != nil {
			t.Fatalf("TouchLogin: %v", err)
		}
		got, _ = s.GetUser(ctx, u.ID)
		if got.Tier != model.TierPro || got.LastLoginAt == nil || !got.LastLoginAt.Equal(at) {
			t.Errorf("unexpected user %+v", got)
		}

		if err := s.UpdateUserTier(ctx, "missing", model.TierPro); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
		if _, err := s.GetUser(ctx, "missing"); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}

		_ = s.CreateUser(ctx, &model.User{Username: "bob", PasswordHash: "h", Tier: model.TierFree})
		users, err := s.ListUsers(ctx)
		if err != nil || len(users) != 2 {
			t.Errorf("expected 2 users, got %d err=%v", len(users), err)
		}
	})
}

func TestStore_Portfolio(t *testing.T) {
	backends(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		if _, err := s.GetPortfolio(ctx, "u1"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound for new user, got %v", err)
		}

		if err := s.SaveAllocation(ctx, "u1", "SOXL", model.AllocationSetting{Percent: 50, BasePrice: 30}); err != nil {
			t.Fatalf("SaveAllocation: %v", err)
		}
		rec, err := s.GetPortfolio(ctx, "u1")
		if err != nil {
			t.Fatalf("GetPortfolio: %v", err)
		}
		if rec.Capital != nil {
			t.Errorf("expected unset capital, got %v", *rec.Capital)
		}
		if rec.Allocations["SOXL"].Percent != 50 {
			t.Errorf("unexpected allocations %+v", rec.Allocations)
		}

		_ = s.SaveCapital(ctx, "u1", 1000)
		_ = s.SaveCapital(ctx, "u1", 2000)
		_ = s.SaveAllocation(ctx, "u1", "SOXL", model.AllocationSetting{Percent: 60, BasePrice: 31})
		_ = s.SaveCapital(ctx, "u2", 5)

		rec, _ = s.GetPortfolio(ctx, "u1")
		if rec.Capital == nil || *rec.Capital != 2000 {
			t.Errorf("expected capital 2000, got %v", rec.Capital)
		}
		if a := rec.Allocations["SOXL"]; a.Percent != 60 || a.BasePrice != 31 {
			t.Errorf("expected upserted allocation, got %+v", a)
		}

		all, err := s.ListPortfolios(ctx)
		if err != nil || len(all) != 2 || all[0].UserID != "u1" {
			t.Errorf("expected 2 portfolios starting with u1, got %+v err=%v", all, err)
		}
	})
}

func TestStore_SettingsAndAlerts(t *testing.T) {
	backends(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		if _, err := s.GetSettings(ctx); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
		want := model.GlobalSettings{CSVURL: "https://x/pub?output=csv", MarketStatus: "공포 (Fear)"}
		if err := s.SaveSettings(ctx, want); err != nil {
			t.Fatalf("SaveSettings: %v", err)
		}
		want.MarketStatus = "주의 (Caution)"
		_ = s.SaveSettings(ctx, want)
		got, err := s.GetSettings(ctx)
		if err != nil || got.MarketStatus != "주의 (Caution)" || got.CSVURL != want.CSVURL || got.UpdatedAt.IsZero() {
			t.Errorf("unexpected settings %+v err=%v", got, err)
		}

		first, err := s.MarkAlerted(ctx, "u1|SOXL|3", "2025-01-02")
		if err != nil || !first {
			t.Fatalf("expected first alert, got %v err=%v", first, err)
		}
		again, _ := s.MarkAlerted(ctx, "u1|SOXL|3", "2025-01-02")
		if again {
			t.Error("expected duplicate alert to be suppressed")
		}
		nextDay, _ := s.MarkAlerted(ctx, "u1|SOXL|3", "2025-01-03")
		if !nextDay {
			t.Error("expected alert on the next day")
		}
		if err := s.UnmarkAlerted(ctx, "u1|SOXL|3", "2025-01-02"); err != nil {
			t.Fatalf("UnmarkAlerted: %v", err)
		}
		retry, _ := s.MarkAlerted(ctx, "u1|SOXL|3", "2025-01-02")
		if !retry {
			t.Error("expected alert to be markable again after unmark")
		}
	})
}
