package jwt

import (
	"errors"
	"strings"
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func newTestManager(t *testing.T, grace time.Duration) *Manager {
	t.Helper()
	m, err := NewManager(Config{
		AccessTTL:     time.Hour,
		RefreshGrace:  grace,
		SigningMethod: MethodHS256,
		Secret:        testSecret,
		Issuer:        "authcore-test",
	})
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	return m
}

func signExpired(t *testing.T, age time.Duration) string {
	t.Helper()
	claims := AccessClaims{
		Role: "Admin",
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   "admin",
			ID:        "pair-1",
			ExpiresAt: jwtlib.NewNumericDate(time.Now().Add(-age)),
			IssuedAt:  jwtlib.NewNumericDate(time.Now().Add(-age - time.Hour)),
			Issuer:    "authcore-test",
		},
	}
	signed, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(testSecret)
	if err != nil {
		t.Fatalf("sign expired token: %v", err)
	}
	return signed
}

func TestCreateParseRoundTrip(t *testing.T) {
	m := newTestManager(t, time.Minute)

	token, expiresAt, err := m.CreateAccess("alice", "Manager", "pair-42")
	if err != nil {
		t.Fatalf("CreateAccess failed: %v", err)
	}
	if time.Until(expiresAt) < 59*time.Minute {
		t.Fatalf("unexpected expiry %v", expiresAt)
	}

	claims, err := m.ParseAccess(token)
	if err != nil {
		t.Fatalf("ParseAccess failed: %v", err)
	}
	if claims.Subject != "alice" || claims.Role != "Manager" || claims.ID != "pair-42" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestParseAccessRejectsTamperedSignature(t *testing.T) {
	m := newTestManager(t, time.Minute)

	token, _, err := m.CreateAccess("alice", "User", "pair-1")
	if err != nil {
		t.Fatalf("CreateAccess failed: %v", err)
	}

	parts := strings.Split(token, ".")
	tampered := parts[0] + "." + parts[1] + "." + "AAAA" + parts[2][4:]

	if _, err := m.ParseAccess(tampered); err == nil {
		t.Fatal("expected tampered token to be rejected")
	}
}

func TestParseAccessRejectsWrongSecret(t *testing.T) {
	m := newTestManager(t, time.Minute)
	other, err := NewManager(Config{
		AccessTTL:     time.Hour,
		SigningMethod: MethodHS256,
		Secret:        []byte("ffffffffffffffffffffffffffffffff"),
		Issuer:        "authcore-test",
	})
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	token, _, err := other.CreateAccess("alice", "User", "pair-1")
	if err != nil {
		t.Fatalf("CreateAccess failed: %v", err)
	}
	if _, err := m.ParseAccess(token); err == nil {
		t.Fatal("expected token from different secret to be rejected")
	}
}

func TestParseAccessExpired(t *testing.T) {
	m := newTestManager(t, time.Minute)

	_, err := m.ParseAccess(signExpired(t, 10*time.Minute))
	if !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
}

func TestParseForRefreshWithinGrace(t *testing.T) {
	m := newTestManager(t, 15*time.Minute)

	claims, err := m.ParseForRefresh(signExpired(t, 10*time.Minute))
	if err != nil {
		t.Fatalf("expected token within grace to parse, got %v", err)
	}
	if claims.Subject != "admin" {
		t.Fatalf("unexpected subject %q", claims.Subject)
	}
}

func TestParseForRefreshBeyondGrace(t *testing.T) {
	m := newTestManager(t, 5*time.Minute)

	_, err := m.ParseForRefresh(signExpired(t, 10*time.Minute))
	if !errors.Is(err, ErrExpiredBeyondGrace) {
		t.Fatalf("expected ErrExpiredBeyondGrace, got %v", err)
	}
}

func TestParseForRefreshStillVerifiesSignature(t *testing.T) {
	m := newTestManager(t, time.Hour)

	token := signExpired(t, time.Minute)
	parts := strings.Split(token, ".")
	tampered := parts[0] + "." + parts[1] + "." + "BBBB" + parts[2][4:]

	if _, err := m.ParseForRefresh(tampered); err == nil {
		t.Fatal("expected tampered token to be rejected on refresh path")
	}
	if _, err := m.ParseForRefresh("not-a-token"); err == nil {
		t.Fatal("expected malformed token to be rejected on refresh path")
	}
}

func TestNewManagerRejectsShortSecret(t *testing.T) {
	_, err := NewManager(Config{
		AccessTTL:     time.Hour,
		SigningMethod: MethodHS256,
		Secret:        []byte("short"),
	})
	if err == nil {
		t.Fatal("expected short hs256 secret to be rejected")
	}
}

func TestNewManagerRejectsMissingKeys(t *testing.T) {
	_, err := NewManager(Config{
		AccessTTL:     time.Hour,
		SigningMethod: MethodEd25519,
	})
	if err == nil {
		t.Fatal("expected missing ed25519 keys to be rejected")
	}
}
