package security

import (
	"testing"
	"time"

	"github.com/LAZYDOINDIA/LazyUI/internal/session/domain"
)

func testIdentity() *domain.Identity {
	return &domain.Identity{
		ID:          "u1",
		Name:        "Test User",
		Email:       "a@x.com",
		Roles:       []domain.Role{domain.RoleTaker, domain.RoleGiver},
		PrimaryRole: domain.RoleTaker,
	}
}

func TestStaticIssuer_DefaultsToMockToken(t *testing.T) {
	tok, err := StaticIssuer{}.Issue(testIdentity())
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if tok != MockToken {
		t.Errorf("token = %q, want %q", tok, MockToken)
	}
	tok, _ = StaticIssuer{Token: "fixed"}.Issue(testIdentity())
	if tok != "fixed" {
		t.Errorf("token = %q, want fixed", tok)
	}
}

func TestStaticIssuer_NilIdentity(t *testing.T) {
	if _, err := (StaticIssuer{}).Issue(nil); err != ErrNoIdentity {
		t.Errorf("Issue(nil) err = %v, want ErrNoIdentity", err)
	}
}

func TestTokenProvider_IssueAndValidate(t *testing.T) {
	p, err := NewTestTokenProvider()
	if err != nil {
		t.Fatalf("NewTestTokenProvider: %v", err)
	}
	tok, err := p.Issue(testIdentity())
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	claims, err := p.Validate(tok)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if claims.Subject != "u1" || claims.Email != "a@x.com" {
		t.Errorf("claims subject=%q email=%q", claims.Subject, claims.Email)
	}
	if len(claims.Roles) != 2 || claims.Roles[0] != "TAKER" || claims.Roles[1] != "GIVER" {
		t.Errorf("claims roles = %v", claims.Roles)
	}
	if claims.ID == "" {
		t.Error("jti should be set")
	}
}

func TestTokenProvider_ValidateInvalid(t *testing.T) {
	p, err := NewTestTokenProvider()
	if err != nil {
		t.Fatalf("NewTestTokenProvider: %v", err)
	}
	if _, err := p.Validate("invalid-token"); err != ErrInvalidToken {
		t.Errorf("Validate invalid token: want ErrInvalidToken, got %v", err)
	}
	if _, err := p.Validate(MockToken); err != ErrInvalidToken {
		t.Errorf("Validate mock token: want ErrInvalidToken, got %v", err)
	}
}

func TestTokenProvider_ValidateExpired(t *testing.T) {
	p, err := NewTestTokenProvider()
	if err != nil {
		t.Fatalf("NewTestTokenProvider: %v", err)
	}
	tok, err := p.Issue(testIdentity())
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	p.now = func() time.Time { return time.Now().UTC().Add(time.Hour) }
	if _, err := p.Validate(tok); err != ErrInvalidToken {
		t.Errorf("Validate expired token: want ErrInvalidToken, got %v", err)
	}
}

func TestTokenProvider_ValidateWrongAudience(t *testing.T) {
	p, err := NewTestTokenProvider()
	if err != nil {
		t.Fatalf("NewTestTokenProvider: %v", err)
	}
	tok, err := p.Issue(testIdentity())
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	other := NewTokenProvider(p.privateKey, p.publicKey, "test-issuer", "other-audience", time.Minute)
	if _, err := other.Validate(tok); err != ErrInvalidToken {
		t.Errorf("Validate wrong audience: want ErrInvalidToken, got %v", err)
	}
}

func TestTokenProvider_IssueNilIdentity(t *testing.T) {
	p, err := NewTestTokenProvider()
	if err != nil {
		t.Fatalf("NewTestTokenProvider: %v", err)
	}
	if _, err := p.Issue(nil); err != ErrNoIdentity {
		t.Errorf("Issue(nil) err = %v, want ErrNoIdentity", err)
	}
}
