package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/verte-zerg/xpdash/internal/model"
)

// ProfileQuery fetches everything the dashboard derives its statistics from.
const ProfileQuery = `query {
  user {
    id
    login
    firstName
    lastName
    totalUp
    totalDown
    auditRatio
    transactions(order_by: { createdAt: asc }) {
      id
      type
      amount
      createdAt
      path
    }
    progresses(order_by: { updatedAt: desc }) {
      id
      grade
      path
      updatedAt
      object {
        name
        type
      }
      group {
        members {
          userLogin
        }
      }
    }
  }
}`

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type graphQLError struct {
	Message string `json:"message"`
}

type profileResponse struct {
	Data struct {
		User []model.UserProfile `json:"user"`
	} `json:"data"`
	Errors []graphQLError `json:"errors"`
}

// fetchProfile runs the profile query with a bearer token. Rejections of the
// token map to ErrAuthExpired.
func fetchProfile(ctx context.Context, client *http.Client, url, token string) (*model.UserProfile, string, error) {
	requestID := uuid.NewString()
	body, err := json.Marshal(graphQLRequest{Query: ProfileQuery, Variables: map[string]any{}})
	if err != nil {
		return nil, requestID, fmt.Errorf("failed to marshal query: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, requestID, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-Request-ID", requestID)

	resp, err := client.Do(req)
	if err != nil {
		return nil, requestID, fmt.Errorf("%w: graphql: %w", ErrNetwork, err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			// Best-effort body close.
			_ = cerr
		}
	}()

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, requestID, fmt.Errorf("%w: server returned %s", ErrAuthExpired, resp.Status)
	}
	if resp.StatusCode != http.StatusOK {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, requestID, fmt.Errorf("graphql request failed: %s: %s", resp.Status, strings.TrimSpace(string(text)))
	}

	var result profileResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, requestID, fmt.Errorf("failed to decode graphql response: %w", err)
	}
	if len(result.Errors) > 0 {
		messages := make([]string, len(result.Errors))
		expired := false
		for i, e := range result.Errors {
			messages[i] = e.Message
			if strings.Contains(e.Message, "JWT") || strings.Contains(e.Message, "token") {
				expired = true
			}
		}
		joined := strings.Join(messages, "; ")
		if expired {
			return nil, requestID, fmt.Errorf("%w: %s", ErrAuthExpired, joined)
		}
		return nil, requestID, fmt.Errorf("graphql errors: %s", joined)
	}
	if len(result.Data.User) == 0 {
		return nil, requestID, ErrEmptyProfile
	}
	profile := result.Data.User[0]
	return &profile, requestID, nil
}
