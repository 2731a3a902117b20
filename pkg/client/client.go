package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/keylcop/keylcop-tui/pkg/domain"
)

// Client is the keylcop API client. It is a stateless wrapper over the
// REST endpoints plus a factory for the live push stream; no retries,
// no caching.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client

	// streamClient has no overall timeout: the push stream is a
	// long-lived response body. It shares the cookie jar.
	streamClient *http.Client
}

// New creates a new API client. baseURL includes the /api prefix,
// e.g. "http://localhost:6000/api". token may be empty for cookie-based
// sessions or before login.
func New(baseURL, token string) *Client {
	// The backend may run on cookie sessions; keep a jar so Set-Cookie
	// from login carries over to every later call and the stream.
	jar, _ := cookiejar.New(nil)
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			Jar:     jar,
		},
		streamClient: &http.Client{Jar: jar},
	}
}

// Token returns the current bearer token, empty for cookie sessions.
func (c *Client) Token() string { return c.token }

// SetToken replaces the bearer token used on subsequent calls.
func (c *Client) SetToken(token string) { c.token = token }

// Login authenticates with email and password. Failures are *AuthError.
// On success a returned token (if the backend issues one) is retained on
// the client for subsequent calls.
func (c *Client) Login(ctx context.Context, email, password string) (*domain.Session, error) {
	return c.authenticate(ctx, "/auth/login", email, password)
}

// Register creates an account and authenticates. Failures are *AuthError.
func (c *Client) Register(ctx context.Context, email, password string) (*domain.Session, error) {
	return c.authenticate(ctx, "/auth/register", email, password)
}

func (c *Client) authenticate(ctx context.Context, path, email, password string) (*domain.Session, error) {
	body := map[string]string{"email": email, "password": password}
	var session domain.Session
	if err := c.doRequest(ctx, http.MethodPost, path, body, &session); err != nil {
		return nil, fmt.Errorf("client.authenticate %s: %w", path, asAuthError(err))
	}
	if session.Token != "" {
		c.token = session.Token
	}
	return &session, nil
}

// Logout ends the server-side session. Callers treat failure as
// best-effort: log it and clear local state regardless.
func (c *Client) Logout(ctx context.Context) error {
	if err := c.doRequest(ctx, http.MethodPost, "/auth/logout", nil, nil); err != nil {
		return fmt.Errorf("client.Logout: %w", err)
	}
	c.token = ""
	return nil
}

// CurrentUser returns the authenticated viewer. Failures are *AuthError
// and mean "not authenticated", not a fatal condition.
func (c *Client) CurrentUser(ctx context.Context) (*domain.User, error) {
	var user domain.User
	if err := c.doRequest(ctx, http.MethodGet, "/auth/me", nil, &user); err != nil {
		return nil, fmt.Errorf("client.CurrentUser: %w", asAuthError(err))
	}
	return &user, nil
}

// SendNotification asks the backend to deliver a notification to the
// user with the given email.
func (c *Client) SendNotification(ctx context.Context, targetEmail, message, ntype string) error {
	body := map[string]string{
		"targetEmail": targetEmail,
		"message":     message,
		"type":        ntype,
	}
	if err := c.doRequest(ctx, http.MethodPost, "/notifications/send", body, nil); err != nil {
		return fmt.Errorf("client.SendNotification: %w", err)
	}
	return nil
}

// ConnectedUsers returns the emails of currently-connected users.
// UI convenience only, never authoritative.
func (c *Client) ConnectedUsers(ctx context.Context) ([]string, error) {
	var resp struct {
		ConnectedUsers []string `json:"connectedUsers"`
	}
	if err := c.doRequest(ctx, http.MethodGet, "/debug/connected-users", nil, &resp); err != nil {
		return nil, fmt.Errorf("client.ConnectedUsers: %w", err)
	}
	return resp.ConnectedUsers, nil
}

// UserNotifications returns the viewer's stored notification history.
func (c *Client) UserNotifications(ctx context.Context) ([]domain.Notification, error) {
	var resp struct {
		Notifications []domain.Notification `json:"notifications"`
	}
	if err := c.doRequest(ctx, http.MethodGet, "/notifications", nil, &resp); err != nil {
		return nil, fmt.Errorf("client.UserNotifications: %w", err)
	}
	return resp.Notifications, nil
}

// StoredNotifications returns every notification the backend has kept.
// Debug endpoint.
func (c *Client) StoredNotifications(ctx context.Context) ([]domain.Notification, error) {
	var resp struct {
		Notifications []domain.Notification `json:"notifications"`
	}
	if err := c.doRequest(ctx, http.MethodGet, "/debug/stored-notifications", nil, &resp); err != nil {
		return nil, fmt.Errorf("client.StoredNotifications: %w", err)
	}
	return resp.Notifications, nil
}

// MarkNotificationAsRead marks one notification read. Idempotent from
// the caller's perspective.
func (c *Client) MarkNotificationAsRead(ctx context.Context, id string) error {
	if err := c.doRequest(ctx, http.MethodPost, "/notifications/mark-read/"+url.PathEscape(id), nil, nil); err != nil {
		return fmt.Errorf("client.MarkNotificationAsRead: %w", err)
	}
	return nil
}

// MarkNotificationAsOpened marks one notification opened. Idempotent
// from the caller's perspective.
func (c *Client) MarkNotificationAsOpened(ctx context.Context, notificationID string) error {
	body := map[string]string{"notificationId": notificationID}
	if err := c.doRequest(ctx, http.MethodPost, "/notifications/mark-opened", body, nil); err != nil {
		return fmt.Errorf("client.MarkNotificationAsOpened: %w", err)
	}
	return nil
}

// TrackNotificationOpen fires the sender's open receipt. Call sites
// treat it as fire-and-forget: failures are logged, never surfaced,
// never retried.
func (c *Client) TrackNotificationOpen(ctx context.Context, notificationID string, userID int, email string) error {
	body := map[string]any{
		"notificationId": notificationID,
		"userId":         userID,
		"email":          email,
		"openedAt":       time.Now().UTC().Format(time.RFC3339),
	}
	if err := c.doRequest(ctx, http.MethodPost, "/notifications/track-open", body, nil); err != nil {
		return fmt.Errorf("client.TrackNotificationOpen: %w", err)
	}
	return nil
}

// asAuthError converts a RequestError into an AuthError with the same
// status and message, so auth endpoints surface the right taxonomy.
func asAuthError(err error) error {
	if reqErr, ok := err.(*RequestError); ok {
		return &AuthError{StatusCode: reqErr.StatusCode, Message: reqErr.Message}
	}
	return err
}

func (c *Client) doRequest(ctx context.Context, method, path string, body any, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // best-effort close

	if resp.StatusCode >= 400 {
		msg := errorMessage(resp)
		if resp.StatusCode == http.StatusUnauthorized {
			return &AuthError{StatusCode: resp.StatusCode, Message: msg}
		}
		return &RequestError{StatusCode: resp.StatusCode, Message: msg}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// errorMessage extracts the backend's {error} field from a failed
// response, falling back to the raw body, then the status text.
func errorMessage(resp *http.Response) string {
	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20)) // 1 MB max error body
	if err != nil {
		return http.StatusText(resp.StatusCode)
	}
	var apiErr struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error != "" {
		return apiErr.Error
	}
	if s := strings.TrimSpace(string(respBody)); s != "" {
		return s
	}
	return http.StatusText(resp.StatusCode)
}
