package scheduler

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"InvestLogic/internal/calculator"
	"InvestLogic/internal/collector"
	"InvestLogic/internal/notifier"
	"InvestLogic/internal/store"
	"InvestLogic/internal/strategy"
	"InvestLogic/internal/tracker"
)

// Store is the persistence the alert scan needs.
type Store interface {
	store.PortfolioStore
	store.UserStore
	store.AlertStore
}

type retrySender interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// Scheduler manages all cron tasks.
type Scheduler struct {
	Cron      *cron.Cron
	Collector *collector.Collector
	Tracker   *tracker.Service
	Registry  *strategy.Registry
	Store     Store
	Notifier  notifier.Notifier
	Log       *zap.Logger
	Ctx       context.Context

	now func() time.Time
	loc *time.Location
}

// NewScheduler creates a new Scheduler. Alert days are counted in loc.
func NewScheduler(ctx context.Context, col *collector.Collector, tr *tracker.Service, reg *strategy.Registry,
	st Store, n notifier.Notifier, log *zap.Logger) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	loc, err := time.LoadLocation("Asia/Seoul")
	if err != nil {
		loc = time.FixedZone("KST", 9*60*60)
	}
	return &Scheduler{
		Cron:      cron.New(cron.WithSeconds(), cron.WithLocation(loc)),
		Collector: col,
		Tracker:   tr,
		Registry:  reg,
		Store:     st,
		Notifier:  n,
		Log:       log,
		Ctx:       ctx,
		now:       time.Now,
		loc:       loc,
	}
}

// RegisterAll registers the quote refresh and entry alert tasks.
func (s *Scheduler) RegisterAll(quoteCron, alertCron string) error {
	if _, err := s.Cron.AddFunc(quoteCron, s.refreshQuotes); err != nil {
		return fmt.Errorf("register quote task: %w", err)
	}
	if _, err := s.Cron.AddFunc(alertCron, func() {
		if _, err := s.ScanEntryAlerts(s.Ctx); err != nil {
			s.Log.Error("entry alert scan failed", zap.Error(err))
		}
	}); err != nil {
		return fmt.Errorf("register alert task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.Log.Info("scheduler started")
}

// Stop stops the cron scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.Log.Info("scheduler stopped")
}

func (s *Scheduler) refreshQuotes() {
	snap, err := s.Collector.RefreshSnapshot(s.Ctx)
	if err != nil {
		s.Log.Warn("quote refresh failed", zap.Error(err))
		return
	}
	s.Log.Debug("quotes refreshed", zap.Float64("main", snap.Main.Price))
}

// ScanEntryAlerts checks every stored allocation against the live price and
// sends one alert per user, symbol and round per day. It returns the number
// of alerts delivered; a failed delivery is retried on the next scan.
func (s *Scheduler) ScanEntryAlerts(ctx context.Context) (int, error) {
	records, err := s.Store.ListPortfolios(ctx)
	if err != nil {
		return 0, fmt.Errorf("list portfolios: %w", err)
	}
	day := s.now().In(s.loc).Format("2006-01-02")
	prices := map[string]float64{}
	sent := 0

	for _, rec := range records {
		symbols := make([]string, 0, len(rec.Allocations))
		for sym := range rec.Allocations {
			symbols = append(symbols, sym)
		}
		sort.Strings(symbols)

		for _, sym := range symbols {
			if rec.Allocations[sym].Percent <= 0 || rec.Allocations[sym].BasePrice <= 0 {
				continue
			}
			plan, err := s.Tracker.Plan(ctx, rec.UserID, sym)
			if err != nil {
				s.Log.Warn("plan for alert failed", zap.String("user", rec.UserID), zap.String("symbol", sym), zap.Error(err))
				continue
			}
			if plan.NextTargetPrice == nil || *plan.NextTargetPrice <= 0 {
				continue
			}
			price, ok := prices[sym]
			if !ok {
				q, err := s.Collector.Quote(ctx, sym)
				if err != nil {
					s.Log.Warn("quote for alert failed", zap.String("symbol", sym), zap.Error(err))
					prices[sym] = 0
					continue
				}
				price = q.Price
				prices[sym] = price
			}
			if price <= 0 || price > *plan.NextTargetPrice {
				continue
			}

			turn := plan.CurrentRound + 1
			key := fmt.Sprintf("%s|%s|%d", rec.UserID, sym, turn)
			first, err := s.Store.MarkAlerted(ctx, key, day)
			if err != nil {
				s.Log.Error("mark alert failed", zap.String("key", key), zap.Error(err))
				continue
			}
			if !first {
				continue
			}

			alert := notifier.EntryAlert{
				Symbol: sym,
				Turn:   turn,
				Target: *plan.NextTargetPrice,
				Price:  price,
				Amount: plan.Rows[turn-1].Amount,
			}
			if u, err := s.Store.GetUser(ctx, rec.UserID); err == nil {
				alert.Username = u.Username
			}
			if err := s.trySend(ctx, notifier.FormatEntryAlert(alert)); err != nil {
				// release the mark so the next scan retries today
				if err := s.Store.UnmarkAlerted(ctx, key, day); err != nil {
					s.Log.Error("unmark alert failed", zap.String("key", key), zap.Error(err))
				}
				continue
			}
			sent++
		}
	}
	if sent > 0 {
		s.Log.Info("entry alerts sent", zap.Int("count", sent))
	}
	return sent, nil
}

// HandleCommand processes a bot command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return notifier.HelpText()
	}
	switch strings.ToLower(fields[0]) {
	case "/status", "/start":
		return s.statusReport(ctx)
	case "/quote":
		snap, err := s.Collector.Snapshot(ctx)
		if err != nil {
			return fmt.Sprintf("❌ 시세 조회 실패: %v", err)
		}
		return notifier.FormatQuote(snap.Main)
	case "/zone":
		return s.zoneReport(ctx, fields[1:])
	default:
		return notifier.HelpText()
	}
}

func (s *Scheduler) statusReport(ctx context.Context) string {
	status, err := s.Tracker.MarketStatus(ctx)
	if err != nil {
		return fmt.Sprintf("❌ 설정 조회 실패: %v", err)
	}
	snap, err := s.Collector.Snapshot(ctx)
	if err != nil {
		s.Log.Warn("status snapshot failed", zap.Error(err))
		snap = nil
	}
	return notifier.FormatMarketStatus(snap, s.Registry.ReadGauge(status), s.now().In(s.loc))
}

// zoneReport computes the drawdown zone from explicit numbers, or from the
// index series when none are given.
func (s *Scheduler) zoneReport(ctx context.Context, args []string) string {
	var current, high float64
	switch len(args) {
	case 2:
		var err1, err2 error
		current, err1 = strconv.ParseFloat(args[0], 64)
		high, err2 = strconv.ParseFloat(args[1], 64)
		if err1 != nil || err2 != nil {
			return "사용법: /zone &lt;현재가&gt; &lt;고점&gt;"
		}
	case 0:
		series, err := s.Collector.IndexSeries(ctx, collector.DefaultSeriesDays)
		if err != nil {
			return fmt.Sprintf("❌ 지수 조회 실패: %v", err)
		}
		current = series.LastClose
		if high, err = calculator.PeakClose(series.Series); err != nil {
			return fmt.Sprintf("❌ 고점 계산 실패: %v", err)
		}
	default:
		return "사용법: /zone &lt;현재가&gt; &lt;고점&gt;"
	}
	z, err := calculator.DrawdownZone(current, high)
	if err != nil {
		return "❌ 가격은 0보다 커야 합니다"
	}
	return notifier.FormatZone(current, high, z)
}

func (s *Scheduler) trySend(ctx context.Context, text string) error {
	var err error
	if r, ok := s.Notifier.(retrySender); ok {
		err = r.SendWithRetry(ctx, text, 3)
	} else {
		err = s.Notifier.Send(ctx, text)
	}
	if err != nil {
		s.Log.Error("send notification failed", zap.Error(err))
	}
	return err
}
