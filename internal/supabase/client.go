// Package supabase is a thin REST client for the hosted backend: PostgREST
// tables, RPC functions and the auth user endpoint.
package supabase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"resty.dev/v3"
)

// Config configures the backend client.
type Config struct {
	URL        string
	AnonKey    string
	ServiceKey string // optional; used instead of AnonKey for table and RPC calls
	Timeout    time.Duration
	Retries    int
}

// Client performs table, RPC and auth calls against the backend.
type Client struct {
	rest *resty.Client
	key  string
	anon string
}

// New creates a backend client.
func New(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("supabase url is required")
	}
	if cfg.AnonKey == "" && cfg.ServiceKey == "" {
		return nil, fmt.Errorf("supabase anon key or service key is required")
	}
	key := cfg.ServiceKey
	if key == "" {
		key = cfg.AnonKey
	}
	anon := cfg.AnonKey
	if anon == "" {
		anon = key
	}

	rc := resty.New().
		SetBaseURL(strings.TrimRight(cfg.URL, "/")).
		SetHeader("Accept", "application/json").
		SetHeader("Content-Type", "application/json")
	if cfg.Timeout > 0 {
		rc.SetTimeout(cfg.Timeout)
	}
	if cfg.Retries > 0 {
		rc.SetRetryCount(cfg.Retries)
	}

	return &Client{rest: rc, key: key, anon: anon}, nil
}

// Close releases idle connections held by the client.
func (c *Client) Close() error {
	return c.rest.Close()
}

// From starts a query against a table.
func (c *Client) From(table string) *Query {
	return &Query{client: c, table: table, params: map[string]string{}}
}

// RPC calls a database function and decodes its result into dst (may be nil).
func (c *Client) RPC(ctx context.Context, fn string, params any, dst any) error {
	if fn == "" {
		return fmt.Errorf("rpc function is required")
	}
	apiErr := &APIError{}
	req := c.request(ctx).SetBody(params).SetError(apiErr)
	if dst != nil {
		req.SetResult(dst)
	}
	res, err := req.Post("/rest/v1/rpc/" + fn)
	if err != nil {
		return fmt.Errorf("rpc %s: %w", fn, err)
	}
	return checkResponse(res, apiErr)
}

// UserAttributes are the fields the auth API lets a user change on itself.
type UserAttributes struct {
	Password string         `json:"password,omitempty"`
	Data     map[string]any `json:"data,omitempty"`
}

// AuthUser is the subset of the auth user object returned after an update.
type AuthUser struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	Role         string         `json:"role"`
	UserMetadata map[string]any `json:"user_metadata"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// UpdateAuthUser updates the user owning accessToken.
func (c *Client) UpdateAuthUser(ctx context.Context, accessToken string, attrs UserAttributes) (*AuthUser, error) {
	if accessToken == "" {
		return nil, &AuthError{Status: http.StatusUnauthorized, Code: "no_authorization", Message: "missing access token"}
	}
	var user AuthUser
	authErr := &AuthError{}
	res, err := c.rest.R().
		SetContext(ctx).
		SetHeader("apikey", c.anon).
		SetAuthToken(accessToken).
		SetBody(attrs).
		SetResult(&user).
		SetError(authErr).
		Put("/auth/v1/user")
	if err != nil {
		return nil, fmt.Errorf("update auth user: %w", err)
	}
	if res.IsError() {
		authErr.Status = res.StatusCode()
		if authErr.Message == "" {
			authErr.Message = http.StatusText(res.StatusCode())
		}
		return nil, authErr
	}
	return &user, nil
}

func (c *Client) request(ctx context.Context) *resty.Request {
	return c.rest.R().
		SetContext(ctx).
		SetHeader("apikey", c.key).
		SetAuthToken(c.key)
}

func checkResponse(res *resty.Response, apiErr *APIError) error {
	if !res.IsError() {
		return nil
	}
	apiErr.Status = res.StatusCode()
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(res.StatusCode())
	}
	return apiErr
}

// APIError is an error reported by the table/RPC API.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
	Hint    string `json:"hint"`
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("supabase: %s (%s)", e.Message, e.Code)
	}
	return "supabase: " + e.Message
}

// AuthError is an error reported by the auth API.
type AuthError struct {
	Status  int    `json:"code"`
	Code    string `json:"error_code"`
	Message string `json:"msg"`
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("supabase auth: %s (status %d)", e.Message, e.Status)
}

// IsAPIError reports whether the auth API rejected the request itself
// (as opposed to a transport or server failure).
func (e *AuthError) IsAPIError() bool {
	return e.Status >= 400 && e.Status < 500
}

// AsAPIError unwraps err into an *APIError.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	ok := errors.As(err, &apiErr)
	return apiErr, ok
}

// AsAuthError unwraps err into an *AuthError.
func AsAuthError(err error) (*AuthError, bool) {
	var authErr *AuthError
	ok := errors.As(err, &authErr)
	return authErr, ok
}
