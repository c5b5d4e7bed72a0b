// Package session talks to the platform: sign-in, the profile query and the
// local cache that backs the dashboard.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidCredentials is returned when the platform rejects a sign-in.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAuthExpired is returned when the bearer token is missing, expired or
	// rejected. The session is logged out before it is returned.
	ErrAuthExpired = errors.New("authentication expired")
	// ErrNetwork wraps transport failures and timeouts.
	ErrNetwork = errors.New("network error")
	// ErrStaleFetch is returned by a refresh that completed after a newer one.
	ErrStaleFetch = errors.New("stale profile fetch discarded")
	// ErrEmptyProfile is returned when the query yields no user.
	ErrEmptyProfile = errors.New("profile query returned no user")
)

const maxErrorBody = 4 << 10

// signIn exchanges credentials for a bearer token.
func signIn(ctx context.Context, client *http.Client, url, login, password string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create sign-in request: %w", err)
	}
	req.SetBasicAuth(login, password)
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: sign-in: %w", ErrNetwork, err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			// Best-effort body close.
			_ = cerr
		}
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return "", fmt.Errorf("%w: read sign-in response: %w", ErrNetwork, err)
	}
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return "", fmt.Errorf("%w: %s", ErrInvalidCredentials, errorMessage(body, resp.Status))
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return "", fmt.Errorf("sign-in failed: %s", errorMessage(body, resp.Status))
	}

	token := parseToken(body)
	if token == "" {
		return "", fmt.Errorf("sign-in returned an empty token")
	}
	return token, nil
}

// parseToken accepts a JSON string or a bare token.
func parseToken(body []byte) string {
	var token string
	if err := json.Unmarshal(body, &token); err == nil {
		return strings.TrimSpace(token)
	}
	return strings.Trim(strings.TrimSpace(string(body)), `"`)
}

func errorMessage(body []byte, fallback string) string {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error != "" {
		return payload.Error
	}
	if text := strings.TrimSpace(string(body)); text != "" {
		return text
	}
	return fallback
}

// TokenExpiry reads the exp claim without verifying the signature; the
// platform is the only party that can verify it. ok is false when the token
// carries no expiry.
func TokenExpiry(token string) (exp time.Time, ok bool, err error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false, fmt.Errorf("parse token: %w", err)
	}
	date, err := claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, false, fmt.Errorf("read exp claim: %w", err)
	}
	if date == nil {
		return time.Time{}, false, nil
	}
	return date.Time, true, nil
}

// tokenExpired reports whether a token is known to be expired at now.
// Opaque tokens are treated as live and left to the server to reject.
func tokenExpired(token string, now time.Time) bool {
	exp, ok, err := TokenExpiry(token)
	if err != nil || !ok {
		return false
	}
	return !now.Before(exp)
}
