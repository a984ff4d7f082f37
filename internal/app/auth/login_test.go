package auth

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func loginServer(t *testing.T, status int, response string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/login" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}

		body, _ := io.ReadAll(r.Body)
		var creds map[string]string
		if err := json.Unmarshal(body, &creds); err != nil {
			t.Errorf("request body not JSON: %v", err)
		}
		if creds["username"] != "howdy" || creds["password"] != "secret" {
			t.Errorf("credentials not forwarded: %v", creds)
		}

		w.WriteHeader(status)
		_, _ = w.Write([]byte(response))
	}))
}

func TestLoginWithExplicitUserID(t *testing.T) {
	server := loginServer(t, http.StatusOK, `{"token":"tok-abc","userID":"u-77"}`)
	defer server.Close()

	result, err := Login(context.Background(), server.URL, "howdy", "secret")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if result.Token != "tok-abc" || result.UserID != "u-77" {
		t.Fatalf("result = %+v", result)
	}
}

func TestLoginUserIDSpellings(t *testing.T) {
	cases := []struct {
		response string
		want     string
	}{
		{`{"token":"t","userid":"u-lower"}`, "u-lower"},
		{`{"token":"t","id":"u-plain"}`, "u-plain"},
		{`{"token":"t","userID":"u-upper","id":"u-plain"}`, "u-upper"},
	}
	for _, tc := range cases {
		server := loginServer(t, http.StatusOK, tc.response)
		result, err := Login(context.Background(), server.URL, "howdy", "secret")
		server.Close()
		if err != nil {
			t.Fatalf("Login(%s): %v", tc.response, err)
		}
		if result.UserID != tc.want {
			t.Errorf("UserID for %s = %q, want %q", tc.response, result.UserID, tc.want)
		}
	}
}

// unsignedJWT builds an alg=none token carrying the given claims, which is
// enough for the unverified claim read.
func unsignedJWT(t *testing.T, claims map[string]any) string {
	t.Helper()
	encode := func(v any) string {
		raw, err := json.Marshal(v)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		return base64.RawURLEncoding.EncodeToString(raw)
	}
	header := encode(map[string]string{"alg": "none", "typ": "JWT"})
	return header + "." + encode(claims) + "."
}

func TestLoginFallsBackToTokenClaims(t *testing.T) {
	token := unsignedJWT(t, map[string]any{"userID": "u-from-claim"})
	response, _ := json.Marshal(map[string]string{"token": token})

	server := loginServer(t, http.StatusOK, string(response))
	defer server.Close()

	result, err := Login(context.Background(), server.URL, "howdy", "secret")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if result.UserID != "u-from-claim" {
		t.Fatalf("UserID = %q, want the token claim", result.UserID)
	}
}

func TestLoginOpaqueTokenLeavesIDEmpty(t *testing.T) {
	server := loginServer(t, http.StatusOK, `{"token":"not-a-jwt"}`)
	defer server.Close()

	result, err := Login(context.Background(), server.URL, "howdy", "secret")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if result.UserID != "" {
		t.Fatalf("UserID = %q, want empty for an opaque token", result.UserID)
	}
}

func TestLoginRejected(t *testing.T) {
	server := loginServer(t, http.StatusUnauthorized, `{"error":"bad credentials"}`)
	defer server.Close()

	if _, err := Login(context.Background(), server.URL, "howdy", "secret"); err == nil {
		t.Fatal("expected error for non-200 response")
	}
}

func TestLoginMissingToken(t *testing.T) {
	server := loginServer(t, http.StatusOK, `{"userID":"u-1"}`)
	defer server.Close()

	if _, err := Login(context.Background(), server.URL, "howdy", "secret"); err == nil {
		t.Fatal("expected error when no token is returned")
	}
}
