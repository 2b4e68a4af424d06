package authcore

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/modernwms/authcore/password"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type stubUserStore struct {
	mu     sync.Mutex
	users  map[string]UserRecord
	nextID int
}

func newStubUserStore() *stubUserStore {
	return &stubUserStore{users: make(map[string]UserRecord)}
}

func (s *stubUserStore) GetByUsername(_ context.Context, username string) (UserRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.users[username]
	if !ok {
		return UserRecord{}, ErrUserNotFound
	}
	return rec, nil
}

func (s *stubUserStore) CreateUser(_ context.Context, input CreateUserInput) (UserRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[input.Username]; ok {
		return UserRecord{}, errors.New("duplicate username")
	}
	s.nextID++
	rec := UserRecord{
		UserID:       "u-" + strconv.Itoa(s.nextID),
		Username:     input.Username,
		PasswordHash: input.PasswordHash,
		Role:         input.Role,
		Active:       true,
		CreatedAt:    time.Now(),
	}
	s.users[input.Username] = rec
	return rec, nil
}

func (s *stubUserStore) UpdatePasswordHash(_ context.Context, userID, newHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for username, rec := range s.users {
		if rec.UserID == userID {
			rec.PasswordHash = newHash
			s.users[username] = rec
			return nil
		}
	}
	return ErrUserNotFound
}

func (s *stubUserStore) hashOf(t *testing.T, username string) string {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.users[username]
	if !ok {
		t.Fatalf("no user %q", username)
	}
	return rec.PasswordHash
}

func (s *stubUserStore) setActive(username string, active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.users[username]
	rec.Active = active
	s.users[username] = rec
}

// add seeds a user with a freshly computed argon2id hash. Light parameters
// keep the test suite fast; verification reads them back from the PHC string.
func (s *stubUserStore) add(t *testing.T, username, pass string, role Role) {
	t.Helper()
	argon, err := password.NewArgon2(password.Config{
		Memory: 8192, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 16,
	})
	if err != nil {
		t.Fatalf("argon init: %v", err)
	}
	hash, err := argon.Hash(pass)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if _, err := s.CreateUser(context.Background(), CreateUserInput{
		Username: username, PasswordHash: hash, Role: role,
	}); err != nil {
		t.Fatalf("seed user: %v", err)
	}
}

func newTestEngine(t *testing.T, mutate func(*Config)) (*Engine, *stubUserStore) {
	t.Helper()

	cfg := DefaultConfig()
	cfg.JWT.Secret = []byte(testSecret)
	cfg.Audit.Enabled = false
	if mutate != nil {
		mutate(&cfg)
	}

	store := newStubUserStore()
	engine, err := New().WithConfig(cfg).WithUserStore(store).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine, store
}

func TestLoginIssuesPair(t *testing.T) {
	engine, store := newTestEngine(t, nil)
	store.add(t, "carol", "correct-horse-battery", RoleManager)
	ctx := context.Background()

	pair, err := engine.Login(ctx, "carol", "correct-horse-battery")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatal("expected both tokens")
	}
	if pair.Role != RoleManager {
		t.Fatalf("role not carried through: %v", pair.Role)
	}

	res, err := engine.Authorize(ctx, pair.AccessToken, RoleUser)
	if err != nil {
		t.Fatalf("Authorize failed: %v", err)
	}
	if res.Username != "carol" || res.Role != RoleManager {
		t.Fatalf("unexpected claims: %+v", res)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	engine, store := newTestEngine(t, nil)
	store.add(t, "carol", "correct-horse-battery", RoleUser)
	ctx := context.Background()

	if _, err := engine.Login(ctx, "nobody", "whatever-pass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown user: expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := engine.Login(ctx, "carol", "wrong-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password: expected ErrInvalidCredentials, got %v", err)
	}

	store.setActive("carol", false)
	if _, err := engine.Login(ctx, "carol", "correct-horse-battery"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("inactive account: expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLegacyDigestLoginUpgradesHash(t *testing.T) {
	engine, store := newTestEngine(t, func(cfg *Config) {
		cfg.Password.AllowLegacyDigest = true
		cfg.Password.UpgradeOnLogin = true
	})
	ctx := context.Background()

	const pass = "supersecret99"
	if _, err := store.CreateUser(ctx, CreateUserInput{
		Username:     "legacyuser",
		PasswordHash: password.LegacyDigest(pass),
		Role:         RoleUser,
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	if _, err := engine.Login(ctx, "legacyuser", pass); err != nil {
		t.Fatalf("legacy login failed: %v", err)
	}

	upgraded := store.hashOf(t, "legacyuser")
	if !strings.HasPrefix(upgraded, "$argon2id$") {
		t.Fatalf("expected argon2id rehash, got %q", upgraded)
	}
	if got := engine.MetricsSnapshot().Counters[MetricLegacyHashUpgraded]; got != 1 {
		t.Fatalf("expected 1 upgrade recorded, got %d", got)
	}

	// Subsequent logins verify against the upgraded hash.
	if _, err := engine.Login(ctx, "legacyuser", pass); err != nil {
		t.Fatalf("post-upgrade login failed: %v", err)
	}
}

func TestLegacyDigestRejectedWhenDisabled(t *testing.T) {
	engine, store := newTestEngine(t, nil)
	ctx := context.Background()

	const pass = "supersecret99"
	if _, err := store.CreateUser(ctx, CreateUserInput{
		Username:     "legacyuser",
		PasswordHash: password.LegacyDigest(pass),
		Role:         RoleUser,
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	if _, err := engine.Login(ctx, "legacyuser", pass); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthorizeRoleOrdering(t *testing.T) {
	engine, store := newTestEngine(t, nil)
	store.add(t, "root", "admin-password-1", RoleAdmin)
	store.add(t, "worker", "worker-password-1", RoleUser)
	ctx := context.Background()

	adminPair, err := engine.Login(ctx, "root", "admin-password-1")
	if err != nil {
		t.Fatalf("admin login: %v", err)
	}
	workerPair, err := engine.Login(ctx, "worker", "worker-password-1")
	if err != nil {
		t.Fatalf("worker login: %v", err)
	}

	for _, min := range []Role{RoleUser, RoleManager, RoleAdmin} {
		if _, err := engine.Authorize(ctx, adminPair.AccessToken, min); err != nil {
			t.Fatalf("admin should satisfy %v: %v", min, err)
		}
	}

	if _, err := engine.Authorize(ctx, workerPair.AccessToken, RoleUser); err != nil {
		t.Fatalf("user should satisfy RoleUser: %v", err)
	}
	for _, min := range []Role{RoleManager, RoleAdmin} {
		if _, err := engine.Authorize(ctx, workerPair.AccessToken, min); !errors.Is(err, ErrInsufficientRole) {
			t.Fatalf("user vs %v: expected ErrInsufficientRole, got %v", min, err)
		}
	}
}

func TestAuthorizeRejectsGarbageAndExpiry(t *testing.T) {
	engine, store := newTestEngine(t, func(cfg *Config) {
		cfg.JWT.AccessTTL = 10 * time.Millisecond
		cfg.JWT.Leeway = 0
	})
	store.add(t, "carol", "correct-horse-battery", RoleUser)
	ctx := context.Background()

	if _, err := engine.Authorize(ctx, "not-a-token", RoleUser); !errors.Is(err, ErrTokenMalformed) {
		t.Fatalf("expected ErrTokenMalformed, got %v", err)
	}

	pair, err := engine.Login(ctx, "carol", "correct-horse-battery")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	time.Sleep(50 * time.Millisecond)
	if _, err := engine.Authorize(ctx, pair.AccessToken, RoleUser); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestRefreshRotatesPair(t *testing.T) {
	engine, store := newTestEngine(t, nil)
	store.add(t, "carol", "correct-horse-battery", RoleManager)
	ctx := context.Background()

	first, err := engine.Login(ctx, "carol", "correct-horse-battery")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	second, err := engine.Refresh(ctx, first.AccessToken, first.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if second.RefreshToken == first.RefreshToken {
		t.Fatal("refresh token was not rotated")
	}
	if second.Role != RoleManager {
		t.Fatalf("role not carried through rotation: %v", second.Role)
	}

	// The new access token is immediately usable.
	if _, err := engine.Authorize(ctx, second.AccessToken, RoleManager); err != nil {
		t.Fatalf("rotated access token rejected: %v", err)
	}

	// The consumed refresh token is dead.
	if _, err := engine.Refresh(ctx, first.AccessToken, first.RefreshToken); !errors.Is(err, ErrRefreshInvalid) {
		t.Fatalf("expected ErrRefreshInvalid for replayed token, got %v", err)
	}
}

func TestRefreshBeyondGrace(t *testing.T) {
	engine, store := newTestEngine(t, func(cfg *Config) {
		cfg.JWT.AccessTTL = 10 * time.Millisecond
		cfg.JWT.RefreshGrace = 20 * time.Millisecond
		cfg.JWT.Leeway = 0
	})
	store.add(t, "carol", "correct-horse-battery", RoleUser)
	ctx := context.Background()

	pair, err := engine.Login(ctx, "carol", "correct-horse-battery")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	time.Sleep(100 * time.Millisecond)
	if _, err := engine.Refresh(ctx, pair.AccessToken, pair.RefreshToken); !errors.Is(err, ErrRefreshBeyondGrace) {
		t.Fatalf("expected ErrRefreshBeyondGrace, got %v", err)
	}
}

func TestRefreshRejectsForeignAccessToken(t *testing.T) {
	engine, store := newTestEngine(t, nil)
	store.add(t, "carol", "correct-horse-battery", RoleUser)
	store.add(t, "dave", "another-password-1", RoleUser)
	ctx := context.Background()

	carol, err := engine.Login(ctx, "carol", "correct-horse-battery")
	if err != nil {
		t.Fatalf("carol login: %v", err)
	}
	dave, err := engine.Login(ctx, "dave", "another-password-1")
	if err != nil {
		t.Fatalf("dave login: %v", err)
	}

	// Dave's access token cannot redeem Carol's refresh token.
	if _, err := engine.Refresh(ctx, dave.AccessToken, carol.RefreshToken); !errors.Is(err, ErrRefreshInvalid) {
		t.Fatalf("expected ErrRefreshInvalid, got %v", err)
	}
}

func TestLogoutIdempotent(t *testing.T) {
	engine, store := newTestEngine(t, nil)
	store.add(t, "carol", "correct-horse-battery", RoleUser)
	ctx := context.Background()

	pair, err := engine.Login(ctx, "carol", "correct-horse-battery")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	if err := engine.Logout(ctx, pair.RefreshToken); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}
	if err := engine.Logout(ctx, pair.RefreshToken); err != nil {
		t.Fatalf("second Logout failed: %v", err)
	}
	if err := engine.Logout(ctx, "garbage"); err != nil {
		t.Fatalf("Logout of malformed token failed: %v", err)
	}

	if _, err := engine.Refresh(ctx, pair.AccessToken, pair.RefreshToken); !errors.Is(err, ErrRefreshInvalid) {
		t.Fatalf("expected ErrRefreshInvalid after logout, got %v", err)
	}
}

func TestLogoutAllRevokesEverySession(t *testing.T) {
	engine, store := newTestEngine(t, nil)
	store.add(t, "carol", "correct-horse-battery", RoleUser)
	ctx := context.Background()

	var pairs []TokenPair
	for i := 0; i < 3; i++ {
		pair, err := engine.Login(ctx, "carol", "correct-horse-battery")
		if err != nil {
			t.Fatalf("Login %d failed: %v", i, err)
		}
		pairs = append(pairs, pair)
	}

	dropped, err := engine.LogoutAll(ctx, "carol")
	if err != nil {
		t.Fatalf("LogoutAll failed: %v", err)
	}
	if dropped != 3 {
		t.Fatalf("expected 3 sessions dropped, got %d", dropped)
	}

	for i, pair := range pairs {
		if _, err := engine.Refresh(ctx, pair.AccessToken, pair.RefreshToken); !errors.Is(err, ErrRefreshInvalid) {
			t.Fatalf("session %d should be revoked, got %v", i, err)
		}
	}
}

func TestChangePasswordRevokesSessions(t *testing.T) {
	engine, store := newTestEngine(t, nil)
	store.add(t, "carol", "correct-horse-battery", RoleUser)
	ctx := context.Background()

	pair, err := engine.Login(ctx, "carol", "correct-horse-battery")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	if err := engine.ChangePassword(ctx, "carol", "wrong-old-pass", "new-password-123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for wrong old password, got %v", err)
	}

	if err := engine.ChangePassword(ctx, "carol", "correct-horse-battery", "new-password-123"); err != nil {
		t.Fatalf("ChangePassword failed: %v", err)
	}

	if _, err := engine.Login(ctx, "carol", "correct-horse-battery"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("old password should be dead, got %v", err)
	}
	if _, err := engine.Login(ctx, "carol", "new-password-123"); err != nil {
		t.Fatalf("new password login failed: %v", err)
	}
	if _, err := engine.Refresh(ctx, pair.AccessToken, pair.RefreshToken); !errors.Is(err, ErrRefreshInvalid) {
		t.Fatalf("pre-change session should be revoked, got %v", err)
	}
}

func TestBootstrapSeedsAdmin(t *testing.T) {
	// md5("1"), the digest the previous system shipped for its seed account.
	const seedDigest = "c4ca4238a0b923820dcc509a6f75849b"

	cfg := DefaultConfig()
	cfg.JWT.Secret = []byte(testSecret)
	cfg.Audit.Enabled = false
	cfg.Password.AllowLegacyDigest = true
	cfg.Bootstrap.Enabled = true
	cfg.Bootstrap.LegacyDigest = seedDigest

	store := newStubUserStore()
	engine, err := New().WithConfig(cfg).WithUserStore(store).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)
	ctx := context.Background()

	pair, err := engine.Login(ctx, "admin", "1")
	if err != nil {
		t.Fatalf("seed admin login failed: %v", err)
	}
	if pair.Role != RoleAdmin {
		t.Fatalf("seed admin role = %v, want RoleAdmin", pair.Role)
	}

	// A second build against the same store must not duplicate the account.
	second, err := New().WithConfig(cfg).WithUserStore(store).Build()
	if err != nil {
		t.Fatalf("second Build failed: %v", err)
	}
	second.Close()
	if len(store.users) != 1 {
		t.Fatalf("expected 1 seeded account, got %d", len(store.users))
	}
}

func TestAuditEventsEmitted(t *testing.T) {
	sink := NewChannelAuditSink(16)

	cfg := DefaultConfig()
	cfg.JWT.Secret = []byte(testSecret)

	store := newStubUserStore()
	store.add(t, "carol", "correct-horse-battery", RoleUser)

	engine, err := New().WithConfig(cfg).WithUserStore(store).WithAuditSink(sink).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	ctx := WithClientIP(context.Background(), "10.0.0.7")

	if _, err := engine.Login(ctx, "carol", "correct-horse-battery"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if _, err := engine.Login(ctx, "carol", "wrong-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	engine.Close() // drains the dispatcher

	var events []AuditEvent
	for len(sink.Events()) > 0 {
		events = append(events, <-sink.Events())
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 audit events, got %d", len(events))
	}
	if events[0].EventType != AuditEventLogin || !events[0].Success {
		t.Fatalf("unexpected first event: %+v", events[0])
	}
	if events[0].IP != "10.0.0.7" {
		t.Fatalf("client IP not recorded: %+v", events[0])
	}
	if events[1].Success {
		t.Fatalf("second event should be a failure: %+v", events[1])
	}
}

func TestMetricsSnapshotCountsOperations(t *testing.T) {
	engine, store := newTestEngine(t, nil)
	store.add(t, "carol", "correct-horse-battery", RoleUser)
	ctx := context.Background()

	pair, err := engine.Login(ctx, "carol", "correct-horse-battery")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if _, err := engine.Login(ctx, "carol", "wrong-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected failure, got %v", err)
	}
	if _, err := engine.Refresh(ctx, pair.AccessToken, pair.RefreshToken); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}

	snap := engine.MetricsSnapshot()
	for id, want := range map[MetricID]uint64{
		MetricLoginSuccess:   1,
		MetricLoginFailure:   1,
		MetricRefreshSuccess: 1,
		MetricSessionCreated: 1,
	} {
		if got := snap.Counters[id]; got != want {
			t.Fatalf("counter %d = %d, want %d", id, got, want)
		}
	}
}

func TestEngineNotReady(t *testing.T) {
	var engine Engine
	ctx := context.Background()

	if _, err := engine.Login(ctx, "a", "b"); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("expected ErrEngineNotReady, got %v", err)
	}
	if _, err := engine.Authorize(ctx, "token", RoleUser); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("expected ErrEngineNotReady, got %v", err)
	}
}

func TestBuildRejectsShortSecret(t *testing.T) {
	cfg := DefaultConfig()
	cfg.JWT.Secret = []byte("too-short")

	_, err := New().WithConfig(cfg).WithUserStore(newStubUserStore()).Build()
	if !errors.Is(err, ErrSigning) {
		t.Fatalf("expected ErrSigning, got %v", err)
	}
}
