package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"InvestLogic/internal/model"
	"InvestLogic/internal/store"
)

func newTestService(t *testing.T, admin string) (*Service, *store.MemoryStore) {
	t.Helper()
	st := store.NewMemoryStore()
	svc := NewService(st, JWT{Secret: []byte("test-secret"), TokenTTL: time.Hour, Issuer: "investlogic"}, admin, nil)
	svc.cost = bcrypt.MinCost
	return svc, st
}

func TestJWT_SignVerify(t *testing.T) {
	j := JWT{Secret: []byte("s"), TokenTTL: time.Minute}
	tok, exp, err := j.Sign(Claims{UserID: "u1", Tier: "PRO"})
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if time.Until(exp) > time.Minute || time.Until(exp) < 50*time.Second {
		t.Errorf("unexpected expiry %v", exp)
	}
	c, err := j.Verify(tok)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if c.UserID != "u1" || c.Tier != "PRO" || c.Subject != "u1" {
		t.Errorf("unexpected claims %+v", c)
	}

	if _, err := (JWT{Secret: []byte("other")}).Verify(tok); err == nil {
		t.Error("expected signature mismatch")
	}
	expired := JWT{Secret: []byte("s"), TokenTTL: -time.Minute}
	old, _, _ := expired.Sign(Claims{UserID: "u1"})
	if _, err := j.Verify(old); err == nil {
		t.Error("expected expired token to fail")
	}
}

func TestRegister_CreatesFreeUser(t *testing.T) {
	svc, st := newTestService(t, "")
	sess, err := svc.Register(context.Background(), "  Alice ", "secret1")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if sess.User.Tier != model.TierFree || sess.User.Username != "alice" {
		t.Errorf("unexpected user %+v", sess.User)
	}
	if sess.Token == "" {
		t.Error("expected token")
	}
	stored, _ := st.GetUserByUsername(context.Background(), "alice")
	if stored.PasswordHash == "secret1" || stored.LastLoginAt == nil {
		t.Errorf("expected hashed password and login time, got %+v", stored)
	}
}

func TestRegister_BootstrapAdmin(t *testing.T) {
	svc, _ := newTestService(t, "Root")
	sess, err := svc.Register(context.Background(), "root", "secret1")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if sess.User.Tier != model.TierAdmin {
		t.Errorf("expected ADMIN, got %s", sess.User.Tier)
	}
}

func TestRegister_Validation(t *testing.T) {
	svc, _ := newTestService(t, "")
	ctx := context.Background()
	tests := []struct {
		name, user, pass string
		want             error
	}{
		{"short username", "ab", "secret1", ErrInvalidUsername},
		{"weak password", "carol", "123", ErrWeakPassword},
		{"long password", "carol", strings.Repeat("p", 73), ErrPasswordTooLong},
	}
	for _, tt := range tests {
		if _, err := svc.Register(ctx, tt.user, tt.pass); !errors.Is(err, tt.want) {
			t.Errorf("%s: expected %v, got %v", tt.name, tt.want, err)
		}
	}
	_, _ = svc.Register(ctx, "dave", "secret1")
	if _, err := svc.Register(ctx, "DAVE", "secret2"); !errors.Is(err, ErrUsernameTaken) {
		t.Errorf("expected ErrUsernameTaken, got %v", err)
	}
}

func TestLogin(t *testing.T) {
	svc, _ := newTestService(t, "")
	ctx := context.Background()
	_, _ = svc.Register(ctx, "erin", "secret1")

	if _, err := svc.Login(ctx, "erin", "wrong!!"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password: expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Login(ctx, "nobody", "secret1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown user: expected ErrInvalidCredentials, got %v", err)
	}
	sess, err := svc.Login(ctx, "ERIN", "secret1")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	u, err := svc.Authenticate(ctx, sess.Token)
	if err != nil || u.Username != "erin" {
		t.Errorf("Authenticate: %+v %v", u, err)
	}
}

func TestAuthenticate_ReloadsTier(t *testing.T) {
	svc, st := newTestService(t, "")
	ctx := context.Background()
	sess, _ := svc.Register(ctx, "frank", "secret1")

	_ = st.UpdateUserTier(ctx, sess.User.ID, model.TierPro)
	u, err := svc.Authenticate(ctx, sess.Token)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if u.Tier != model.TierPro {
		t.Errorf("expected tier from store (PRO), got %s", u.Tier)
	}

	if _, err := svc.Authenticate(ctx, "garbage"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func TestBearerToken(t *testing.T) {
	tests := []struct{ in, want string }{
		{"Bearer abc", "abc"},
		{"bearer  abc ", "abc"},
		{"Basic abc", ""},
		{"abc", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := BearerToken(tt.in); got != tt.want {
			t.Errorf("BearerToken(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
