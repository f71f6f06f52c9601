package auth

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	pkgauth "github.com/kofiasante/kasuwa-backend/pkg/auth"
	"github.com/kofiasante/kasuwa-backend/pkg/config"
	"github.com/kofiasante/kasuwa-backend/pkg/enums"
	pkgerrors "github.com/kofiasante/kasuwa-backend/pkg/errors"
	"github.com/kofiasante/kasuwa-backend/pkg/logger"
)

type countingLimiter struct {
	mu      sync.Mutex
	counts  map[string]int64
	err     error
	blocked map[string]bool
}

func (c *countingLimiter) FixedWindowAllow(_ context.Context, scope string, limit int64, _ time.Duration) (bool, int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return false, 0, c.err
	}
	if c.blocked[scope] {
		return false, limit + 1, nil
	}
	if c.counts == nil {
		c.counts = map[string]int64{}
	}
	c.counts[scope]++
	return c.counts[scope] <= limit, c.counts[scope], nil
}

func newAuthTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:auth_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	ddl := `
CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL,
  first_name TEXT NOT NULL,
  last_name TEXT NOT NULL,
  phone TEXT,
  role TEXT NOT NULL DEFAULT 'buyer',
  location TEXT,
  is_active INTEGER NOT NULL DEFAULT 1,
  last_login_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	if err := db.Exec(ddl).Error; err != nil {
		t.Fatalf("create users table: %v", err)
	}
	return db
}

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "unit-test-secret",
		Issuer:            "kasuwa-test",
		ExpirationMinutes: 60,
	}
}

// light Argon parameters so the suite stays fast
func testPasswordConfig() config.PasswordConfig {
	return config.PasswordConfig{
		ArgonMemoryKB:    8 * 1024,
		ArgonTime:        1,
		ArgonParallelism: 1,
		ArgonSaltLen:     16,
		ArgonKeyLen:      32,
	}
}

func testRateLimitConfig() config.AuthRateLimitConfig {
	return config.AuthRateLimitConfig{
		LoginWindow:        time.Minute,
		LoginEmailLimit:    5,
		LoginIPLimit:       20,
		RegisterWindow:     5 * time.Minute,
		RegisterEmailLimit: 3,
		RegisterIPLimit:    20,
	}
}

type authFixture struct {
	svc     Service
	repo    *Repository
	limiter *countingLimiter
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	db := newAuthTestDB(t)
	repo := NewRepository(db)
	limiter := &countingLimiter{}
	logg := logger.New(logger.Options{ServiceName: "auth-test"})
	svc, err := NewService(repo, limiter, testJWTConfig(), testPasswordConfig(), testRateLimitConfig(), logg)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return &authFixture{svc: svc, repo: repo, limiter: limiter}
}

func TestRegisterIssuesTokenWithRoleClaims(t *testing.T) {
	f := newAuthFixture(t)

	result, err := f.svc.Register(context.Background(), RegisterInput{
		Email:     "  Kofi@Example.COM ",
		Password:  "correct-horse-battery",
		FirstName: "Kofi",
		LastName:  "Asante",
		Role:      "seller",
		Location:  "Kumasi",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if result.User.Email != "kofi@example.com" {
		t.Fatalf("email not normalized: %q", result.User.Email)
	}
	if result.User.Role != enums.UserRoleSeller {
		t.Fatalf("role = %s, want seller", result.User.Role)
	}

	claims, err := pkgauth.ParseAccessToken(testJWTConfig(), result.Token)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if claims.Role != enums.UserRoleSeller || claims.UserID != result.User.ID {
		t.Fatalf("unexpected claims %+v", claims)
	}
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	f := newAuthFixture(t)
	input := RegisterInput{
		Email:     "ama@example.com",
		Password:  "a-long-password",
		FirstName: "Ama",
		LastName:  "Mensah",
	}
	if _, err := f.svc.Register(context.Background(), input); err != nil {
		t.Fatalf("first register: %v", err)
	}
	_, err := f.svc.Register(context.Background(), input)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	f := newAuthFixture(t)
	cases := []struct {
		name  string
		input RegisterInput
	}{
		{"missing email", RegisterInput{Password: "a-long-password", FirstName: "A", LastName: "B"}},
		{"short password", RegisterInput{Email: "x@y.com", Password: "short", FirstName: "A", LastName: "B"}},
		{"missing name", RegisterInput{Email: "x@y.com", Password: "a-long-password"}},
		{"admin self-registration", RegisterInput{Email: "x@y.com", Password: "a-long-password", FirstName: "A", LastName: "B", Role: "admin"}},
		{"unknown role", RegisterInput{Email: "x@y.com", Password: "a-long-password", FirstName: "A", LastName: "B", Role: "superuser"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Register(context.Background(), tc.input)
			typed := pkgerrors.As(err)
			if typed == nil || typed.Code() != pkgerrors.CodeValidation {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestLoginVerifiesPasswordAndTouchesLastLogin(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	registered, err := f.svc.Register(ctx, RegisterInput{
		Email:     "kojo@example.com",
		Password:  "a-long-password",
		FirstName: "Kojo",
		LastName:  "Owusu",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	result, err := f.svc.Login(ctx, LoginInput{Email: "KOJO@example.com", Password: "a-long-password"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if result.User.ID != registered.User.ID {
		t.Fatal("login returned a different account")
	}
	if result.User.LastLoginAt == nil {
		t.Fatal("last login not recorded")
	}

	_, err = f.svc.Login(ctx, LoginInput{Email: "kojo@example.com", Password: "wrong-password"})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestLoginDoesNotRevealUnknownEmails(t *testing.T) {
	f := newAuthFixture(t)
	_, err := f.svc.Login(context.Background(), LoginInput{Email: "ghost@example.com", Password: "whatever-password"})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestLoginRateLimitedPerEmail(t *testing.T) {
	f := newAuthFixture(t)
	f.limiter.blocked = map[string]bool{"login:email:ama@example.com": true}

	_, err := f.svc.Login(context.Background(), LoginInput{Email: "ama@example.com", Password: "a-long-password"})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeRateLimit {
		t.Fatalf("expected rate limit, got %v", err)
	}
}

func TestLoginFailsOpenWhenLimiterDown(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	if _, err := f.svc.Register(ctx, RegisterInput{
		Email: "esi@example.com", Password: "a-long-password", FirstName: "Esi", LastName: "Boateng",
	}); err != nil {
		t.Fatalf("register: %v", err)
	}

	f.limiter.err = pkgerrors.New(pkgerrors.CodeDependency, "redis down")
	if _, err := f.svc.Login(ctx, LoginInput{Email: "esi@example.com", Password: "a-long-password"}); err != nil {
		t.Fatalf("login should fail open, got %v", err)
	}
}

func TestLoginRejectsDeactivatedAccount(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	registered, err := f.svc.Register(ctx, RegisterInput{
		Email: "yaw@example.com", Password: "a-long-password", FirstName: "Yaw", LastName: "Darko",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := f.repo.db.Table("users").
		Where("id = ?", registered.User.ID).
		Update("is_active", false).Error; err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	_, err = f.svc.Login(ctx, LoginInput{Email: "yaw@example.com", Password: "a-long-password"})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestProfileOmitsPasswordHash(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	registered, err := f.svc.Register(ctx, RegisterInput{
		Email: "afia@example.com", Password: "a-long-password", FirstName: "Afia", LastName: "Adjei", Phone: "+233201234567",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	profile, err := f.svc.Profile(ctx, registered.User.ID)
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if profile.Email != "afia@example.com" || profile.Phone == nil {
		t.Fatalf("unexpected profile %+v", profile)
	}

	_, err = f.svc.Profile(ctx, uuid.New())
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}
