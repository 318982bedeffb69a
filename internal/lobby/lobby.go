// internal/lobby/lobby.go
package lobby

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Client talks to the platform's HTTP API: table management and accounts.
// It is independent of the push channel; callers usually fetch a table here
// first and then open the channel at the table's GameWSURL.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *logrus.Logger
}

// New builds a Client for the platform API at baseURL, e.g. "http://localhost:8000".
func New(baseURL string, logger *logrus.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    strings.TrimRight(baseURL, "/"),
		logger:     logger,
	}
}

// Table is the platform's view of one poker table.
type Table struct {
	TableID            string `json:"table_id"`
	Name               string `json:"name"`
	SmallBlind         int    `json:"small_blind"`
	BigBlind           int    `json:"big_blind"`
	MaxPlayers         int    `json:"max_players"`
	TurnTimeoutSeconds int    `json:"turn_timeout_seconds"`
	CreatedAt          string `json:"created_at"`
	GameWSURL          string `json:"game_ws_url"`
}

// CreateTableParams carries the table settings for CreateTable. Zero fields
// are filled with the platform defaults.
type CreateTableParams struct {
	Name               string `json:"name"`
	SmallBlind         int    `json:"small_blind,omitempty"`
	BigBlind           int    `json:"big_blind,omitempty"`
	MaxPlayers         int    `json:"max_players,omitempty"`
	TurnTimeoutSeconds int    `json:"turn_timeout_seconds,omitempty"`
}

// User mirrors the platform's account record, minus credentials.
type User struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	AvatarID string `json:"avatar_id"`
}

// Session is the result of a successful login or registration.
type Session struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	User        User   `json:"user"`
}

// APIError is a non-2xx platform response.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("platform returned %d: %s", e.StatusCode, e.Detail)
}

// CreateTable creates a new table and returns it, including its push
// channel URL.
func (c *Client) CreateTable(ctx context.Context, params CreateTableParams) (*Table, error) {
	var table Table
	if err := c.doJSON(ctx, http.MethodPost, "/api/tables", "", params, &table); err != nil {
		return nil, err
	}
	return &table, nil
}

// ListTables returns all active tables.
func (c *Client) ListTables(ctx context.Context) ([]Table, error) {
	var tables []Table
	if err := c.doJSON(ctx, http.MethodGet, "/api/tables", "", nil, &tables); err != nil {
		return nil, err
	}
	return tables, nil
}

// GetTable fetches one table by id.
func (c *Client) GetTable(ctx context.Context, tableID string) (*Table, error) {
	var table Table
	if err := c.doJSON(ctx, http.MethodGet, "/api/tables/"+url.PathEscape(tableID), "", nil, &table); err != nil {
		return nil, err
	}
	return &table, nil
}

// DeleteTable removes a table.
func (c *Client) DeleteTable(ctx context.Context, tableID string) error {
	return c.doJSON(ctx, http.MethodDelete, "/api/tables/"+url.PathEscape(tableID), "", nil, nil)
}

// Register creates a new account and returns a live session.
func (c *Client) Register(ctx context.Context, username, password, email string) (*Session, error) {
	body := map[string]string{"username": username, "password": password}
	if email != "" {
		body["email"] = email
	}
	var session Session
	if err := c.doJSON(ctx, http.MethodPost, "/api/auth/register", "", body, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// Login authenticates an existing account. The endpoint expects an OAuth2
// password form, not JSON.
func (c *Client) Login(ctx context.Context, username, password string) (*Session, error) {
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/auth/login", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to build login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var session Session
	if err := c.do(req, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// Me returns the account behind the token.
func (c *Client) Me(ctx context.Context, token string) (*User, error) {
	var user User
	if err := c.doJSON(ctx, http.MethodGet, "/api/auth/me", token, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Stack returns the account's banked chip balance.
func (c *Client) Stack(ctx context.Context, token string) (int, error) {
	var out struct {
		Stack int `json:"stack"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/auth/stack", token, nil, &out); err != nil {
		return 0, err
	}
	return out.Stack, nil
}

// AddChips tops up the account's balance and returns the new total.
func (c *Client) AddChips(ctx context.Context, token string, amount int) (int, error) {
	body := map[string]int{"amount": amount}
	var out struct {
		NewStack int `json:"new_stack"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/api/auth/add-chips", token, body, &out); err != nil {
		return 0, err
	}
	return out.NewStack, nil
}

// doJSON issues one request with an optional JSON body and bearer token,
// decoding a JSON response into out when out is non-nil.
func (c *Client) doJSON(ctx context.Context, method, path, token string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build %s %s: %w", method, path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", req.URL.Path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response from %s: %w", req.URL.Path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Debugf("%s %s -> %d", req.Method, req.URL.Path, resp.StatusCode)
		return &APIError{StatusCode: resp.StatusCode, Detail: errorDetail(data)}
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", req.URL.Path, err)
	}
	return nil
}

// errorDetail extracts the platform's {"detail": ...} message, falling back
// to the raw body.
func errorDetail(data []byte) string {
	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(data, &payload); err == nil && len(payload.Detail) > 0 {
		var s string
		if err := json.Unmarshal(payload.Detail, &s); err == nil {
			return s
		}
		return string(payload.Detail)
	}
	return strings.TrimSpace(string(data))
}
