// Package account implements the HTTP client for the remote account
// service: registration, login, the authenticated user record, and the
// partial-update endpoints for avatar, preferences, and list fields.
package account

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// requestTimeout bounds every account call so a hung connection resolves to
// a failure instead of blocking its caller indefinitely.
const requestTimeout = 10 * time.Second

// PreferencesPayload is the wire shape of the preferences record. Pointers
// let the service omit fields; reshaping into a full record happens on the
// consumer side.
type PreferencesPayload struct {
	Theme         *string `json:"theme,omitempty"`
	Language      *string `json:"language,omitempty"`
	Notifications *bool   `json:"notifications,omitempty"`
}

// UserRecord is the account service's full user document.
type UserRecord struct {
	ID          string              `json:"id"`
	Username    string              `json:"username"`
	Email       string              `json:"email"`
	Avatar      string              `json:"avatar"`
	Role        string              `json:"role"`
	Preferences *PreferencesPayload `json:"preferences,omitempty"`
	Favorites   []string            `json:"favorites,omitempty"`
	Watchlist   []string            `json:"watchlist,omitempty"`
}

// AuthResponse is returned by the register and login endpoints.
type AuthResponse struct {
	AccessToken string     `json:"access_token"`
	User        UserRecord `json:"user"`
}

// ListsPatch is the partial payload for the list-fields endpoint. Only
// non-nil lists are sent.
type ListsPatch struct {
	Favorites *[]string `json:"favorites,omitempty"`
	Watchlist *[]string `json:"watchlist,omitempty"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// Client talks to the account service over JSON request/response calls.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates an account client for the given base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: requestTimeout},
	}
}

// Register creates an account and returns the issued credential plus the
// initial user record.
func (c *Client) Register(ctx context.Context, username, email, password string) (*AuthResponse, error) {
	payload := map[string]string{
		"username": username,
		"email":    email,
		"password": password,
	}
	var resp AuthResponse
	if err := c.do(ctx, http.MethodPost, "/auth/register", "", payload, &resp, "registration failed"); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Login exchanges credentials for a bearer token and the user record.
func (c *Client) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	payload := map[string]string{
		"email":    email,
		"password": password,
	}
	var resp AuthResponse
	if err := c.do(ctx, http.MethodPost, "/auth/login", "", payload, &resp, "login failed"); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CurrentUser fetches the authenticated user's full record.
func (c *Client) CurrentUser(ctx context.Context, token string) (*UserRecord, error) {
	var rec UserRecord
	if err := c.do(ctx, http.MethodGet, "/auth/user-data", token, nil, &rec, "failed to get user data"); err != nil {
		return nil, err
	}
	return &rec, nil
}

// UpdateAvatar replaces the stored avatar reference.
func (c *Client) UpdateAvatar(ctx context.Context, token, avatar string) error {
	payload := map[string]string{"avatar": avatar}
	return c.do(ctx, http.MethodPut, "/auth/avatar", token, payload, nil, "failed to update avatar")
}

// UpdatePreferences sends a partial preferences update.
func (c *Client) UpdatePreferences(ctx context.Context, token string, patch PreferencesPayload) error {
	return c.do(ctx, http.MethodPut, "/auth/preferences", token, patch, nil, "failed to update preferences")
}

// UpdateLists sends a partial update of the favorites and watchlist fields.
func (c *Client) UpdateLists(ctx context.Context, token string, patch ListsPatch) error {
	return c.do(ctx, http.MethodPut, "/auth/user-data", token, patch, nil, "failed to update user data")
}

// RequestPasswordReset asks the service to mail a reset token.
func (c *Client) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	payload := map[string]string{"email": email}
	var resp messageResponse
	if err := c.do(ctx, http.MethodPost, "/auth/request-reset-password", "", payload, &resp, "request failed"); err != nil {
		return "", err
	}
	return resp.Message, nil
}

// ResetPassword completes a password reset with the mailed token.
func (c *Client) ResetPassword(ctx context.Context, token, newPassword string) (string, error) {
	payload := map[string]string{
		"token":       token,
		"newPassword": newPassword,
	}
	var resp messageResponse
	if err := c.do(ctx, http.MethodPost, "/auth/reset-password", "", payload, &resp, "reset failed"); err != nil {
		return "", err
	}
	return resp.Message, nil
}

// do issues one JSON request. Non-success responses become an *APIError
// carrying the body's message when one is present; transport failures wrap
// ErrUnreachable. Payload contents are never included in errors.
func (c *Client) do(ctx context.Context, method, path, token string, payload, out any, fallback string) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return &APIError{
			Status:  resp.StatusCode,
			Message: extractMessage(resp.Body, fallback),
		}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func extractMessage(body io.Reader, fallback string) string {
	var msg messageResponse
	if err := json.NewDecoder(body).Decode(&msg); err == nil && msg.Message != "" {
		return msg.Message
	}
	return fallback
}
