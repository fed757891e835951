package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"InvestLogic/internal/model"
	"InvestLogic/internal/store"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrUsernameTaken      = errors.New("username already registered")
	ErrWeakPassword       = errors.New("password must be at least 6 characters")
	ErrInvalidUsername    = errors.New("username must be 3-64 characters")
	ErrPasswordTooLong    = errors.New("password must be at most 72 bytes")
)

const (
	minPasswordLen = 6
	maxPasswordLen = 72 // bcrypt input limit
)

// Session is an issued token for a user.
type Session struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      *model.User `json:"user"`
}

// Service registers users and issues and resolves tokens.
type Service struct {
	users          store.UserStore
	jwt            JWT
	bootstrapAdmin string
	cost           int
	log            *zap.Logger
	now            func() time.Time
}

// NewService creates an auth service. bootstrapAdmin names an account that
// is created as ADMIN instead of FREE.
func NewService(users store.UserStore, j JWT, bootstrapAdmin string, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		users:          users,
		jwt:            j,
		bootstrapAdmin: strings.TrimSpace(bootstrapAdmin),
		cost:           bcrypt.DefaultCost,
		log:            log,
		now:            time.Now,
	}
}

func normalizeUsername(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Register creates a FREE account and signs it in.
func (s *Service) Register(ctx context.Context, username, password string) (*Session, error) {
	username = normalizeUsername(username)
	if n := utf8.RuneCountInString(username); n < 3 || n > 64 {
		return nil, ErrInvalidUsername
	}
	if len(password) < minPasswordLen {
		return nil, ErrWeakPassword
	}
	if len(password) > maxPasswordLen {
		return nil, ErrPasswordTooLong
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &model.User{
		Username:     username,
		PasswordHash: string(hash),
		Tier:         model.TierFree,
		CreatedAt:    s.now().UTC(),
	}
	if s.bootstrapAdmin != "" && username == normalizeUsername(s.bootstrapAdmin) {
		u.Tier = model.TierAdmin
	}
	if err := s.users.CreateUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	s.log.Info("user registered", zap.String("user", u.ID), zap.String("tier", string(u.Tier)))
	return s.issue(ctx, u)
}

// Login checks the password and signs the user in.
func (s *Service) Login(ctx context.Context, username, password string) (*Session, error) {
	u, err := s.users.GetUserByUsername(ctx, normalizeUsername(username))
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return s.issue(ctx, u)
}

func (s *Service) issue(ctx context.Context, u *model.User) (*Session, error) {
	now := s.now().UTC()
	if err := s.users.TouchLogin(ctx, u.ID, now); err != nil {
		s.log.Warn("record login failed", zap.String("user", u.ID), zap.Error(err))
	} else {
		u.LastLoginAt = &now
	}
	tok, exp, err := s.jwt.Sign(Claims{UserID: u.ID, Tier: string(u.Tier)})
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &Session{Token: tok, ExpiresAt: exp, User: u}, nil
}

// Authenticate resolves a token to the current stored user. The tier comes
// from the store, not the token, so tier changes apply immediately.
func (s *Service) Authenticate(ctx context.Context, token string) (*model.User, error) {
	c, err := s.jwt.Verify(token)
	if err != nil {
		return nil, ErrInvalidToken
	}
	u, err := s.users.GetUser(ctx, c.UserID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	return u, nil
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return ""
	}
	parts := strings.SplitN(v, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
