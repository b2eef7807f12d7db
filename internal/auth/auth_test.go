package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestDynamicCodeStableWithinWindow(t *testing.T) {
	base := time.Unix(1_700_000_010, 0)

	a := DynamicCode("salt", base)
	b := DynamicCode("salt", base.Add(5*time.Second))
	if a != b {
		t.Fatal("codes within one 30s window must match")
	}

	c := DynamicCode("salt", base.Add(60*time.Second))
	if a == c {
		t.Fatal("codes from different windows must differ")
	}

	if a == DynamicCode("other-salt", base) {
		t.Fatal("codes with different salts must differ")
	}

	if len(a) != 64 {
		t.Fatalf("expected a hex sha256 digest, got %d chars", len(a))
	}
}

func TestValidateRejectsMalformedToken(t *testing.T) {
	v := NewValidator("http://unused", "salt")

	_, err := v.Validate(context.Background(), "not-a-uuid")
	if !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestValidateSuccess(t *testing.T) {
	threadID := uuid.NewString()

	authority := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req validateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("authority received bad payload: %v", err)
		}
		if req.ThreadID != threadID {
			t.Fatalf("unexpected thread id %q", req.ThreadID)
		}
		if req.DynamicAuthCode != DynamicCode("salt", time.Now()) {
			t.Fatal("dynamic auth code mismatch")
		}

		json.NewEncoder(w).Encode(validateResponse{
			Data: Identity{AgentID: "agent-7", UserID: "user-9"},
		})
	}))
	defer authority.Close()

	v := NewValidator(authority.URL, "salt")
	identity, err := v.Validate(context.Background(), threadID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if identity.AgentID != "agent-7" || identity.UserID != "user-9" {
		t.Fatalf("unexpected identity %+v", identity)
	}
}

func TestValidateRejectedByAuthority(t *testing.T) {
	authority := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer authority.Close()

	v := NewValidator(authority.URL, "salt")
	_, err := v.Validate(context.Background(), uuid.NewString())
	if !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}
