// Package backend is an HTTP client for the dashboard API's admin sign-in endpoints.
// It implements both phases of [adminGate.Verifier].
package backend

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

	adminGate "github.com/MrEthical07/adminGate"
	"github.com/MrEthical07/adminGate/session"
	"github.com/google/uuid"
)

const (
	loginPath     = "/auth/admin/login"
	verifyOTPPath = "/auth/admin/verify-otp"

	// error bodies are read only for their message
	maxBodyBytes = 1 << 20
)

// Client calls the credential and code endpoints.
type Client struct {
	baseURL string
	client  *http.Client
	headers map[string]string
}

// Option configures Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client (default: 30s timeout).
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.client = c
		}
	}
}

// WithHeader sets a header sent on every request (e.g. X-API-Key).
func WithHeader(key, value string) Option {
	return func(cl *Client) {
		if cl.headers == nil {
			cl.headers = make(map[string]string)
		}
		cl.headers[key] = value
	}
}

// New returns a client for the API rooted at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Message    string `json:"message"`
	LoginToken string `json:"loginToken"`
}

type verifyRequest struct {
	Email      string `json:"email"`
	OTP        string `json:"otp"`
	LoginToken string `json:"loginToken"`
}

type verifyResponse struct {
	Message string `json:"message"`
	session.Payload
}

type errorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// VerifyCredentials posts email and password. The backend delivers the one-time code
// out of band and returns the login token binding phase 2 to this attempt.
func (c *Client) VerifyCredentials(ctx context.Context, email, password string) (*adminGate.CredentialResult, error) {
	var out loginResponse
	if err := c.post(ctx, loginPath, loginRequest{Email: email, Password: password}, &out); err != nil {
		return nil, err
	}
	if out.LoginToken == "" {
		return nil, fmt.Errorf("%w: login response without token", adminGate.ErrServiceUnavailable)
	}
	return &adminGate.CredentialResult{LoginToken: out.LoginToken, Message: out.Message}, nil
}

// VerifyCode posts the one-time code with the login token from phase 1.
func (c *Client) VerifyCode(ctx context.Context, email, code, loginToken string) (*session.Payload, error) {
	var out verifyResponse
	req := verifyRequest{Email: email, OTP: code, LoginToken: loginToken}
	if err := c.post(ctx, verifyOTPPath, req, &out); err != nil {
		return nil, err
	}
	p := out.Payload
	return &p, nil
}

func (c *Client) post(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", path, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build %s request: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", adminGate.ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(resp)
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s response: %v", adminGate.ErrServiceUnavailable, path, err)
	}
	return nil
}

// StatusError carries the HTTP status and the backend's message.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend returned %d", e.Status)
	}
	return fmt.Sprintf("backend returned %d: %s", e.Status, e.Message)
}

func statusError(resp *http.Response) error {
	se := &StatusError{Status: resp.StatusCode}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	var body errorResponse
	if json.Unmarshal(raw, &body) == nil {
		se.Message = body.Message
		if se.Message == "" {
			se.Message = body.Error
		}
	}

	// 408 and 429 are the server asking to retry, not a decision about the credentials.
	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusRequestTimeout || resp.StatusCode == http.StatusTooManyRequests {
		return errors.Join(adminGate.ErrServiceUnavailable, se)
	}
	return errors.Join(adminGate.ErrServiceRejected, se)
}

var _ adminGate.Verifier = (*Client)(nil)
