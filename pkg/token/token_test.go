package token

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestIssueAndParse(t *testing.T) {
	m := NewManager("secret")
	id := uuid.New()

	tok, exp, err := m.Issue(id, "student", TypeAccess, time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if time.Until(exp) < 59*time.Minute {
		t.Fatalf("unexpected expiry %v", exp)
	}

	claims, err := m.Parse(tok, TypeAccess)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if claims.Subject != id.String() || claims.Role != "student" {
		t.Fatalf("unexpected claims %+v", claims)
	}
}

func TestParseRejects(t *testing.T) {
	m := NewManager("secret")
	id := uuid.New()

	refresh, _, _ := m.Issue(id, "sponsor", TypeRefresh, time.Hour)
	if _, err := m.Parse(refresh, TypeAccess); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("refresh token accepted as access: %v", err)
	}

	expired, _, _ := m.Issue(id, "sponsor", TypeAccess, -time.Minute)
	if _, err := m.Parse(expired, TypeAccess); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expired token accepted: %v", err)
	}

	forged, _, _ := NewManager("other").Issue(id, "sponsor", TypeAccess, time.Hour)
	if _, err := m.Parse(forged, TypeAccess); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("token with wrong key accepted: %v", err)
	}

	if _, err := m.Parse("garbage", TypeAccess); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("garbage accepted: %v", err)
	}
}
