package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const maxResponseBytes = 1 << 20

// Client issues the coordinator's network calls. Cookies ride on the
// caller-supplied http.Client; the CSRF token rides in every state-changing
// request body.
type Client struct {
	base    string
	http    *http.Client
	timeout time.Duration
}

// NewClient creates a Client for baseURL. timeout bounds every call at the
// application level; deadline overrun is classified as transient.
func NewClient(baseURL string, hc *http.Client, timeout time.Duration) (*Client, error) {
	base := strings.TrimRight(baseURL, "/")
	if base == "" {
		return nil, errors.New("base URL required")
	}
	if hc == nil {
		hc = &http.Client{}
	}
	return &Client{base: base, http: hc, timeout: timeout}, nil
}

// Login performs POST /api/auth/login.
func (c *Client) Login(ctx context.Context, email, password, csrfToken string) (*AuthPayload, error) {
	body := map[string]string{
		"email":     email,
		"password":  password,
		"csrfToken": csrfToken,
	}
	resp, err := c.post(ctx, "/api/auth/login", body)
	if err != nil {
		return nil, err
	}
	if resp.User == nil {
		return nil, &TransientError{Cause: errors.New("login response missing user")}
	}
	return &AuthPayload{User: resp.User, CSRFToken: resp.CSRFToken}, nil
}

// Register performs POST /api/auth/register.
func (c *Client) Register(ctx context.Context, req RegisterRequest, csrfToken string) (*AuthPayload, error) {
	body := map[string]string{
		"email":     req.Email,
		"password":  req.Password,
		"csrfToken": csrfToken,
	}
	if req.GivenName != "" {
		body["givenName"] = req.GivenName
	}
	if req.FamilyName != "" {
		body["familyName"] = req.FamilyName
	}
	resp, err := c.post(ctx, "/api/auth/register", body)
	if err != nil {
		return nil, err
	}
	if resp.User == nil {
		return nil, &TransientError{Cause: errors.New("register response missing user")}
	}
	return &AuthPayload{User: resp.User, CSRFToken: resp.CSRFToken}, nil
}

// Logout performs POST /api/auth/logout. Callers proceed with local logout
// regardless of the returned error.
func (c *Client) Logout(ctx context.Context, csrfToken string) error {
	_, err := c.post(ctx, "/api/auth/logout", map[string]string{"csrfToken": csrfToken})
	return err
}

// Refresh performs POST /api/auth/refresh.
func (c *Client) Refresh(ctx context.Context, csrfToken string) (*RefreshPayload, error) {
	resp, err := c.post(ctx, "/api/auth/refresh", map[string]string{"csrfToken": csrfToken})
	if err != nil {
		return nil, err
	}

	payload := resp.Session
	if payload == nil {
		payload = resp.User
	}
	if payload == nil {
		return nil, &TransientError{Cause: errors.New("refresh response missing session")}
	}
	return &RefreshPayload{
		Session:     payload,
		CSRFToken:   resp.CSRFToken,
		AccessToken: resp.AccessToken,
	}, nil
}

// LinkAccount performs POST /api/auth/oauth/link.
func (c *Client) LinkAccount(ctx context.Context, provider, providerToken, csrfToken string) (*LinkedAccountPayload, error) {
	body := map[string]string{
		"provider":  provider,
		"token":     providerToken,
		"csrfToken": csrfToken,
	}
	resp, err := c.post(ctx, "/api/auth/oauth/link", body)
	if err != nil {
		return nil, err
	}
	if resp.LinkedAccount == nil {
		return nil, &TransientError{Cause: errors.New("link response missing linked account")}
	}
	return resp.LinkedAccount, nil
}

// Validate performs GET /api/auth/validate. A decoded valid:false or an HTTP
// 401/403 yields Valid=false with no error; transport problems yield a
// TransientError.
func (c *Client) Validate(ctx context.Context) (*ValidatePayload, error) {
	ctx, cancel := c.callContext(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/api/auth/validate", nil)
	if err != nil {
		return nil, &TransientError{Cause: err}
	}
	req.Header.Set("Accept", "application/json")

	httpResp, err := c.http.Do(req)
	if err != nil {
		return nil, transientFrom(err)
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBytes))
	if err != nil {
		return nil, transientFrom(err)
	}

	if httpResp.StatusCode == http.StatusUnauthorized || httpResp.StatusCode == http.StatusForbidden {
		reason := ""
		var decoded validateResponse
		if json.Unmarshal(data, &decoded) == nil && decoded.Error != nil {
			reason = decoded.Error.Message
		}
		return &ValidatePayload{Valid: false, Reason: reason}, nil
	}
	if httpResp.StatusCode != http.StatusOK {
		return nil, &TransientError{Cause: fmt.Errorf("validate: unexpected status %d", httpResp.StatusCode)}
	}

	var decoded validateResponse
	if err := json.Unmarshal(data, &decoded); err != nil {
		return nil, &TransientError{Cause: fmt.Errorf("validate: malformed response: %w", err)}
	}

	out := &ValidatePayload{
		Valid:     decoded.Valid,
		User:      decoded.User,
		ExpiresAt: decoded.ExpiresAt,
	}
	if decoded.Error != nil {
		out.Reason = decoded.Error.Message
	}
	return out, nil
}

func (c *Client) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.timeout)
}

func (c *Client) post(ctx context.Context, path string, body any) (*authResponse, error) {
	ctx, cancel := c.callContext(ctx)
	defer cancel()

	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, &TransientError{Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(encoded))
	if err != nil {
		return nil, &TransientError{Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	httpResp, err := c.http.Do(req)
	if err != nil {
		return nil, transientFrom(err)
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBytes))
	if err != nil {
		return nil, transientFrom(err)
	}

	if httpResp.StatusCode >= 500 {
		return nil, &TransientError{Cause: fmt.Errorf("%s: server status %d", path, httpResp.StatusCode)}
	}

	var decoded authResponse
	if err := json.Unmarshal(data, &decoded); err != nil {
		return nil, &TransientError{Cause: fmt.Errorf("%s: malformed response: %w", path, err)}
	}

	if !decoded.Success {
		serverErr := &ServerError{Status: httpResp.StatusCode}
		if decoded.Error != nil {
			serverErr.Type = decoded.Error.Type
			serverErr.Message = decoded.Error.Message
			serverErr.Code = decoded.Error.Code
		}
		return nil, serverErr
	}

	return &decoded, nil
}
