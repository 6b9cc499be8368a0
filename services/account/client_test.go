package account_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"aniview/services/account"
)

func TestLoginDecodesAuthResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/login" || r.Method != http.MethodPost {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if body["email"] != "shiro@example.com" || body["password"] != "hunter2" {
			t.Fatalf("unexpected credentials payload: %v", body)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"tok-1","user":{"id":"u1","username":"shiro","email":"shiro@example.com","favorites":["1"]}}`))
	}))
	defer server.Close()

	client := account.NewClient(server.URL)
	resp, err := client.Login(context.Background(), "shiro@example.com", "hunter2")
	if err != nil {
		t.Fatalf("login returned error: %v", err)
	}
	if resp.AccessToken != "tok-1" {
		t.Fatalf("expected token tok-1, got %q", resp.AccessToken)
	}
	if resp.User.ID != "u1" || len(resp.User.Favorites) != 1 {
		t.Fatalf("unexpected user record: %+v", resp.User)
	}
}

func TestErrorMessageExtractedFromBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message":"invalid credentials"}`))
	}))
	defer server.Close()

	client := account.NewClient(server.URL)
	_, err := client.Login(context.Background(), "shiro@example.com", "wrong")

	var apiErr *account.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Status != http.StatusUnauthorized || apiErr.Message != "invalid credentials" {
		t.Fatalf("unexpected error: %+v", apiErr)
	}
}

func TestErrorMessageFallsBackWhenBodyUnparseable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`<html>boom</html>`))
	}))
	defer server.Close()

	client := account.NewClient(server.URL)
	_, err := client.Login(context.Background(), "shiro@example.com", "pw")

	var apiErr *account.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Message != "login failed" {
		t.Fatalf("expected generic fallback message, got %q", apiErr.Message)
	}
}

func TestBearerTokenAttachedToAuthenticatedCalls(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"u1","username":"shiro","email":"s@example.com"}`))
	}))
	defer server.Close()

	client := account.NewClient(server.URL)
	if _, err := client.CurrentUser(context.Background(), "tok-1"); err != nil {
		t.Fatalf("current user returned error: %v", err)
	}
	if gotAuth != "Bearer tok-1" {
		t.Fatalf("expected bearer header, got %q", gotAuth)
	}
}

func TestUpdateListsSendsOnlyChangedField(t *testing.T) {
	var body map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/auth/user-data" {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := account.NewClient(server.URL)
	favs := []string{"1", "2", "3"}
	if err := client.UpdateLists(context.Background(), "tok-1", account.ListsPatch{Favorites: &favs}); err != nil {
		t.Fatalf("update lists returned error: %v", err)
	}

	if _, ok := body["watchlist"]; ok {
		t.Fatalf("watchlist must be omitted, got body %v", body)
	}
	if got, ok := body["favorites"].([]any); !ok || len(got) != 3 {
		t.Fatalf("unexpected favorites payload: %v", body)
	}
}

func TestTransportFailureWrapsErrUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // refuse connections

	client := account.NewClient(server.URL)
	_, err := client.Login(context.Background(), "shiro@example.com", "pw")
	if !account.IsUnreachable(err) {
		t.Fatalf("expected unreachable error, got %v", err)
	}
}

func TestPasswordResetPair(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/auth/request-reset-password":
			w.Write([]byte(`{"message":"reset mail sent"}`))
		case "/auth/reset-password":
			w.Write([]byte(`{"message":"password updated"}`))
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	client := account.NewClient(server.URL)

	msg, err := client.RequestPasswordReset(context.Background(), "shiro@example.com")
	if err != nil || msg != "reset mail sent" {
		t.Fatalf("unexpected request-reset result: %q, %v", msg, err)
	}
	msg, err = client.ResetPassword(context.Background(), "reset-token", "newpw")
	if err != nil || msg != "password updated" {
		t.Fatalf("unexpected reset result: %q, %v", msg, err)
	}
}
