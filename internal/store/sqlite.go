package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"InvestLogic/internal/model"
)

// SQLiteStore persists everything in a single SQLite database.
type SQLiteStore struct {
	db  *sql.DB
	mu  sync.Mutex
	log *zap.Logger
}

// NewSQLiteStore opens (or creates) the database and runs migrations.
func NewSQLiteStore(dbPath string, log *zap.Logger) (*SQLiteStore, error) {
	if log == nil {
		log = zap.NewNop()
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	s := &SQLiteStore{db: db, log: log}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Info("sqlite store opened", zap.String("path", dbPath))
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id            TEXT PRIMARY KEY,
			username      TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			tier          TEXT NOT NULL,
			created_at    INTEGER NOT NULL,
			last_login_at INTEGER
		)`,

		`CREATE TABLE IF NOT EXISTS trades (
			id      TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			symbol  TEXT NOT NULL,
			type    TEXT NOT NULL,
			round   INTEGER NOT NULL,
			amount  REAL NOT NULL,
			price   REAL NOT NULL,
			qty     REAL NOT NULL,
			date    INTEGER NOT NULL,
			memo    TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_trades_user ON trades(user_id, symbol, date)`,

		`CREATE TABLE IF NOT EXISTS portfolios (
			user_id       TEXT PRIMARY KEY,
			total_capital REAL
		)`,

		`CREATE TABLE IF NOT EXISTS allocations (
			user_id    TEXT NOT NULL,
			symbol     TEXT NOT NULL,
			percent    REAL NOT NULL,
			base_price REAL NOT NULL,
			PRIMARY KEY (user_id, symbol)
		)`,

		`CREATE TABLE IF NOT EXISTS settings (
			id            INTEGER PRIMARY KEY CHECK (id = 1),
			csv_url       TEXT NOT NULL,
			market_status TEXT NOT NULL,
			updated_at    INTEGER NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS alert_log (
			key     TEXT NOT NULL,
			day     TEXT NOT NULL,
			sent_at INTEGER NOT NULL,
			PRIMARY KEY (key, day)
		)`,
	}

	for _, st := range stmts {
		if _, err := s.db.Exec(st); err != nil {
			return fmt.Errorf("exec %q: %w", st[:40], err)
		}
	}
	return nil
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func checkAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ---------- trades ----------

func (s *SQLiteStore) InsertTrade(ctx context.Context, t *model.TradeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO trades
		(id, user_id, symbol, type, round, amount, price, qty, date, memo)
		VALUES (?,?,?,?,?,?,?,?,?,?)`,
		t.ID, t.UserID, t.Symbol, string(t.Type), t.Round,
		t.Amount, t.Price, t.Qty, t.Date.UnixMilli(), t.Memo,
	)
	if err != nil {
		return fmt.Errorf("insert trade: %w", err)
	}
	return nil
}

const tradeColumns = `id, user_id, symbol, type, round, amount, price, qty, date, memo`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTrade(r rowScanner) (*model.TradeRecord, error) {
	var (
		t    model.TradeRecord
		typ  string
		date int64
		memo sql.NullString
	)
	if err := r.Scan(&t.ID, &t.UserID, &t.Symbol, &typ, &t.Round,
		&t.Amount, &t.Price, &t.Qty, &date, &memo); err != nil {
		return nil, err
	}
	t.Type = model.TradeType(typ)
	t.Date = time.UnixMilli(date).UTC()
	t.Memo = memo.String
	return &t, nil
}

func (s *SQLiteStore) GetTrade(ctx context.Context, id string) (*model.TradeRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+tradeColumns+` FROM trades WHERE id = ?`, id)
	t, err := scanTrade(row)
	if err != nil {
		return nil, notFound(err)
	}
	return t, nil
}

func (s *SQLiteStore) UpdateTradeFill(ctx context.Context, id string, price, qty float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `UPDATE trades SET price = ?, qty = ? WHERE id = ?`, price, qty, id)
	if err != nil {
		return fmt.Errorf("update trade: %w", err)
	}
	return checkAffected(res)
}

func (s *SQLiteStore) DeleteTrade(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM trades WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete trade: %w", err)
	}
	return checkAffected(res)
}

func (s *SQLiteStore) ListTrades(ctx context.Context, userID, symbol string) ([]model.TradeRecord, error) {
	q := `SELECT ` + tradeColumns + ` FROM trades WHERE user_id = ?`
	args := []any{userID}
	if symbol != "" {
		q += ` AND symbol = ?`
		args = append(args, symbol)
	}
	q += ` ORDER BY date DESC, rowid DESC`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list trades: %w", err)
	}
	defer rows.Close()

	out := []model.TradeRecord{}
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("scan trade: %w", err)
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

// ---------- users ----------

func (s *SQLiteStore) CreateUser(ctx context.Context, u *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM users WHERE username = ?`, u.Username).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check username: %w", err)
	}
	if exists > 0 {
		return ErrConflict
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO users
		(id, username, password_hash, tier, created_at, last_login_at)
		VALUES (?,?,?,?,?,?)`,
		u.ID, u.Username, u.PasswordHash, string(u.Tier), u.CreatedAt.UnixMilli(), nullTime(u.LastLoginAt),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return ErrConflict
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

const userColumns = `id, username, password_hash, tier, created_at, last_login_at`

func scanUser(r rowScanner) (*model.User, error) {
	var (
		u       model.User
		tier    string
		created int64
		last    sql.NullInt64
	)
	if err := r.Scan(&u.ID, &u.Username, &u.PasswordHash, &tier, &created, &last); err != nil {
		return nil, err
	}
	u.Tier = model.Tier(tier)
	u.CreatedAt = time.UnixMilli(created).UTC()
	if last.Valid {
		t := time.UnixMilli(last.Int64).UTC()
		u.LastLoginAt = &t
	}
	return &u, nil
}

func nullTime(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixMilli(), Valid: true}
}

func (s *SQLiteStore) GetUser(ctx context.Context, id string) (*model.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return u, nil
}

func (s *SQLiteStore) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE username = ?`, username))
	if err != nil {
		return nil, notFound(err)
	}
	return u, nil
}

func (s *SQLiteStore) ListUsers(ctx context.Context) ([]model.User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at, username`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	out := []model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) UpdateUserTier(ctx context.Context, id string, tier model.Tier) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `UPDATE users SET tier = ? WHERE id = ?`, string(tier), id)
	if err != nil {
		return fmt.Errorf("update tier: %w", err)
	}
	return checkAffected(res)
}

func (s *SQLiteStore) TouchLogin(ctx context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `UPDATE users SET last_login_at = ? WHERE id = ?`, at.UnixMilli(), id)
	if err != nil {
		return fmt.Errorf("touch login: %w", err)
	}
	return checkAffected(res)
}

// ---------- portfolios ----------

func (s *SQLiteStore) GetPortfolio(ctx context.Context, userID string) (*PortfolioRecord, error) {
	rec := &PortfolioRecord{UserID: userID, Allocations: map[string]model.AllocationSetting{}}
	found := false

	var capital sql.NullFloat64
	err := s.db.QueryRowContext(ctx, `SELECT total_capital FROM portfolios WHERE user_id = ?`, userID).Scan(&capital)
	switch {
	case err == nil:
		found = true
		if capital.Valid {
			c := capital.Float64
			rec.Capital = &c
		}
	case !errors.Is(err, sql.ErrNoRows):
		return nil, fmt.Errorf("get portfolio: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT symbol, percent, base_price FROM allocations WHERE user_id = ?`, userID)
	if err != nil {
		return nil, fmt.Errorf("get allocations: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var sym string
		var a model.AllocationSetting
		if err := rows.Scan(&sym, &a.Percent, &a.BasePrice); err != nil {
			return nil, fmt.Errorf("scan allocation: %w", err)
		}
		rec.Allocations[sym] = a
		found = true
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNotFound
	}
	return rec, nil
}

func (s *SQLiteStore) SaveCapital(ctx context.Context, userID string, capital float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `INSERT INTO portfolios (user_id, total_capital) VALUES (?, ?)
		ON CONFLICT(user_id) DO UPDATE SET total_capital = excluded.total_capital`, userID, capital)
	if err != nil {
		return fmt.Errorf("save capital: %w", err)
	}
	return nil
}

func (s *SQLiteStore) SaveAllocation(ctx context.Context, userID, symbol string, a model.AllocationSetting) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `INSERT INTO allocations (user_id, symbol, percent, base_price) VALUES (?,?,?,?)
		ON CONFLICT(user_id, symbol) DO UPDATE SET percent = excluded.percent, base_price = excluded.base_price`,
		userID, symbol, a.Percent, a.BasePrice)
	if err != nil {
		return fmt.Errorf("save allocation: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListPortfolios(ctx context.Context) ([]PortfolioRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id FROM portfolios
		UNION
		SELECT DISTINCT user_id FROM allocations
		ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("list portfolio owners: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]PortfolioRecord, 0, len(ids))
	for _, id := range ids {
		rec, err := s.GetPortfolio(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, nil
}

// ---------- settings ----------

func (s *SQLiteStore) GetSettings(ctx context.Context) (*model.GlobalSettings, error) {
	var (
		g       model.GlobalSettings
		updated int64
	)
	err := s.db.QueryRowContext(ctx, `SELECT csv_url, market_status, updated_at FROM settings WHERE id = 1`).
		Scan(&g.CSVURL, &g.MarketStatus, &updated)
	if err != nil {
		return nil, notFound(err)
	}
	g.UpdatedAt = time.UnixMilli(updated).UTC()
	return &g, nil
}

func (s *SQLiteStore) SaveSettings(ctx context.Context, g model.GlobalSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if g.UpdatedAt.IsZero() {
		g.UpdatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO settings (id, csv_url, market_status, updated_at) VALUES (1,?,?,?)
		ON CONFLICT(id) DO UPDATE SET csv_url = excluded.csv_url,
			market_status = excluded.market_status, updated_at = excluded.updated_at`,
		g.CSVURL, g.MarketStatus, g.UpdatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

// ---------- alerts ----------

func (s *SQLiteStore) MarkAlerted(ctx context.Context, key, day string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `INSERT OR IGNORE INTO alert_log (key, day, sent_at) VALUES (?,?,?)`,
		key, day, time.Now().Unix())
	if err != nil {
		return false, fmt.Errorf("mark alert: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *SQLiteStore) UnmarkAlerted(ctx context.Context, key, day string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM alert_log WHERE key = ? AND day = ?`, key, day); err != nil {
		return fmt.Errorf("unmark alert: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	s.log.Info("closing sqlite store")
	return s.db.Close()
}
