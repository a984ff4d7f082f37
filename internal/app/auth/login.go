/*
Package auth implements the REST credential exchange against the Howdies API.

It is the external collaborator that yields the transport token the
connection supervisor authenticates the wire session with. The supervisor
itself never talks to this API; bootstrap calls Login once and hands the
result to the engine.
*/
package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt"

	"howdybot/internal/pkg/logx"
)

// loginTimeout bounds the whole credential exchange.
const loginTimeout = 15 * time.Second

// LoginResult carries the transport credential and, when the platform
// reports it, the bot's own user identity.
type LoginResult struct {
	// Token is the transport token required to open the wire session.
	Token string

	// UserID is the bot's own identifier. May be empty: the wire login
	// acknowledgement then fills it in later.
	UserID string
}

type loginResponse struct {
	Token string `json:"token"`

	// The platform is inconsistent about the id field spelling.
	UserIDUpper string `json:"userID"`
	UserIDLower string `json:"userid"`
	ID          string `json:"id"`
}

// Login performs the REST login exchange and returns the session credential.
// When the response body does not carry the bot's user id, Login falls back
// to reading the id claim out of the session token. The token is issued and
// verified by the platform; this side only reads it, so the claim parse is
// unverified.
func Login(ctx context.Context, baseURL, username, password string) (*LoginResult, error) {
	body, err := json.Marshal(map[string]string{
		"username": username,
		"password": password,
	})
	if err != nil {
		return nil, fmt.Errorf("auth: encode login request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, loginTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/api/login", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("auth: build login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("auth: login request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("auth: login rejected with status %d", resp.StatusCode)
	}

	var decoded loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("auth: decode login response: %w", err)
	}

	if decoded.Token == "" {
		return nil, fmt.Errorf("auth: login succeeded but no session token received")
	}

	result := &LoginResult{Token: decoded.Token}

	switch {
	case decoded.UserIDUpper != "":
		result.UserID = decoded.UserIDUpper
	case decoded.UserIDLower != "":
		result.UserID = decoded.UserIDLower
	case decoded.ID != "":
		result.UserID = decoded.ID
	default:
		result.UserID = idFromToken(decoded.Token)
	}

	logx.Info("Authenticated with Howdies API.", "username", username, "own_id_known", result.UserID != "")
	return result, nil
}

// idFromToken extracts a user id claim from the session token, tolerating
// the platform's field spellings. Returns "" when the token is not a JWT or
// carries no id claim.
func idFromToken(token string) string {
	claims := jwt.MapClaims{}

	parser := jwt.Parser{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		logx.Warn("Session token is not a parseable JWT; own id stays unset until wire login.", "error", err.Error())
		return ""
	}

	for _, key := range []string{"userID", "userid", "id", "sub"} {
		if v, ok := claims[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}
