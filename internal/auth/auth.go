// Package auth validates incoming connections against the remote admin
// authority using a time-windowed dynamic code.
package auth

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidToken reports a token that is not a well-formed thread id or that
// the authority rejected.
var ErrInvalidToken = errors.New("invalid connection token")

// codeWindow is the validity window of one dynamic auth code.
const codeWindow = 30 * time.Second

// DynamicCode derives the shared time-windowed code: sha256 of the current
// 30-second time step concatenated with the salt. Both sides compute it
// independently, so no code ever travels ahead of time.
func DynamicCode(salt string, now time.Time) string {
	step := now.Unix() / int64(codeWindow.Seconds())
	sum := sha256.Sum256([]byte(strconv.FormatInt(step, 10) + salt))
	return hex.EncodeToString(sum[:])
}

// Identity is what the authority hands back for a valid thread.
type Identity struct {
	AgentID string `json:"agent_id"`
	UserID  string `json:"user_id"`
}

// Validator checks connection tokens against the remote authority.
type Validator struct {
	endpoint string
	salt     string
	client   *http.Client
}

// NewValidator builds a validator for the given authority endpoint.
func NewValidator(endpoint, salt string) *Validator {
	return &Validator{
		endpoint: endpoint,
		salt:     salt,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

type validateRequest struct {
	ThreadID        string `json:"thread_id"`
	DynamicAuthCode string `json:"dynamic_auth_code"`
}

type validateResponse struct {
	Data Identity `json:"data"`
}

// Validate checks that token is a well-formed thread id and asks the
// authority to confirm it, returning the session identity on success.
func (v *Validator) Validate(ctx context.Context, token string) (Identity, error) {
	if _, err := uuid.Parse(token); err != nil {
		return Identity{}, fmt.Errorf("token is not a thread id: %w", ErrInvalidToken)
	}

	payload, err := json.Marshal(validateRequest{
		ThreadID:        token,
		DynamicAuthCode: DynamicCode(v.salt, time.Now()),
	})
	if err != nil {
		return Identity{}, fmt.Errorf("marshal validation request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.endpoint, bytes.NewReader(payload))
	if err != nil {
		return Identity{}, fmt.Errorf("build validation request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.client.Do(req)
	if err != nil {
		return Identity{}, fmt.Errorf("validate thread: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Identity{}, fmt.Errorf("authority rejected thread (status %d): %w", resp.StatusCode, ErrInvalidToken)
	}

	var parsed validateResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return Identity{}, fmt.Errorf("decode validation response: %w", err)
	}
	return parsed.Data, nil
}
