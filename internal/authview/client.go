package authview

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"authview/requestid"
)

// Identity API endpoints.
const (
	PathLogin             = "/api/v1/auth/login"
	PathSignupOTP         = "/api/v1/auth/otp"
	PathSignupOTPVerify   = "/api/v1/auth/otp/verify"
	PathSetPassword       = "/api/v1/auth/password"
	PathSocialSetPassword = "/api/v1/auth/social/password/set"
	PathValidatePassword  = "/api/v1/auth/validate-password"
	PathAccount           = "/api/v1/auth/account"
	PathChangePassword    = "/api/v1/users/password"
	PathResetRequest      = "/api/v1/users/password/reset"
	PathResetVerify       = "/api/v1/users/password/reset/verify"
	PathResetConfirm      = "/api/v1/users/password/reset/confirm"
)

// Client wraps the external identity REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *Logger
}

// NewClient creates an identity API client. An empty baseURL is allowed;
// every call then fails with ErrAPIURLMissing. A timeout of zero leaves calls
// bounded only by their context.
func NewClient(baseURL string, timeout time.Duration, logger *Logger) *Client {
	if timeout < 0 {
		timeout = 0
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// BaseURL returns the configured API base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// TokenResponse is the body of a successful login or set-password call.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	IDToken     string `json:"id_token,omitempty"`
	TokenType   string `json:"token_type,omitempty"`
	ExpiresIn   int    `json:"expires_in,omitempty"`
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type otpRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp,omitempty"`
}

type socialPasswordRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	IDToken  string `json:"id_token"`
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

type passwordRequest struct {
	Password string `json:"password"`
}

type validateResponse struct {
	Valid bool `json:"valid"`
}

// Login exchanges email and password for an access token.
func (c *Client) Login(ctx context.Context, email, password string) (*TokenResponse, error) {
	var tok TokenResponse
	if err := c.do(ctx, http.MethodPost, PathLogin, "", credentials{email, password}, &tok); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	return &tok, nil
}

// SendSignupOTP asks the API to email a signup verification code.
func (c *Client) SendSignupOTP(ctx context.Context, email string) error {
	if err := c.do(ctx, http.MethodPost, PathSignupOTP, "", otpRequest{Email: email}, nil); err != nil {
		return fmt.Errorf("send otp: %w", err)
	}
	return nil
}

// VerifySignupOTP checks a signup verification code.
func (c *Client) VerifySignupOTP(ctx context.Context, email, code string) error {
	if err := c.do(ctx, http.MethodPost, PathSignupOTPVerify, "", otpRequest{Email: email, OTP: code}, nil); err != nil {
		return fmt.Errorf("verify otp: %w", err)
	}
	return nil
}

// SetPassword sets the password of a newly verified account. When idToken is
// non-empty the account comes from a social sign-in and the social endpoint
// is used with the ID token as bearer.
func (c *Client) SetPassword(ctx context.Context, email, password, idToken string) (*TokenResponse, error) {
	var tok TokenResponse
	var err error
	if idToken != "" {
		err = c.do(ctx, http.MethodPost, PathSocialSetPassword, idToken,
			socialPasswordRequest{Email: email, Password: password, IDToken: idToken}, &tok)
	} else {
		err = c.do(ctx, http.MethodPost, PathSetPassword, "", credentials{email, password}, &tok)
	}
	if err != nil {
		return nil, fmt.Errorf("set password: %w", err)
	}
	return &tok, nil
}

// ChangePassword replaces the signed-in user's password.
func (c *Client) ChangePassword(ctx context.Context, bearer, oldPassword, newPassword string) error {
	body := changePasswordRequest{OldPassword: oldPassword, NewPassword: newPassword}
	if err := c.do(ctx, http.MethodPut, PathChangePassword, bearer, body, nil); err != nil {
		return fmt.Errorf("change password: %w", err)
	}
	return nil
}

// ValidatePassword reports whether password is the signed-in user's.
func (c *Client) ValidatePassword(ctx context.Context, bearer, password string) (bool, error) {
	var resp validateResponse
	if err := c.do(ctx, http.MethodPost, PathValidatePassword, bearer, passwordRequest{password}, &resp); err != nil {
		return false, fmt.Errorf("validate password: %w", err)
	}
	return resp.Valid, nil
}

// DeleteAccount permanently deletes the signed-in user's account.
func (c *Client) DeleteAccount(ctx context.Context, bearer, password string) error {
	if err := c.do(ctx, http.MethodDelete, PathAccount, bearer, passwordRequest{password}, nil); err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	return nil
}

// RequestPasswordReset asks the API to email a password reset code.
func (c *Client) RequestPasswordReset(ctx context.Context, email string) error {
	if err := c.do(ctx, http.MethodPost, PathResetRequest, "", otpRequest{Email: email}, nil); err != nil {
		return fmt.Errorf("request reset: %w", err)
	}
	return nil
}

// VerifyPasswordReset checks a password reset code.
func (c *Client) VerifyPasswordReset(ctx context.Context, email, code string) error {
	if err := c.do(ctx, http.MethodPost, PathResetVerify, "", otpRequest{Email: email, OTP: code}, nil); err != nil {
		return fmt.Errorf("verify reset: %w", err)
	}
	return nil
}

// ConfirmPasswordReset sets a new password after a verified reset.
func (c *Client) ConfirmPasswordReset(ctx context.Context, email, password string) error {
	if err := c.do(ctx, http.MethodPost, PathResetConfirm, "", credentials{email, password}, nil); err != nil {
		return fmt.Errorf("confirm reset: %w", err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path, bearer string, body, result interface{}) error {
	if c.baseURL == "" {
		return ErrAPIURLMissing
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	ctx, reqID := requestid.Ensure(ctx)
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(requestid.Header, reqID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.Warn("api: %s %s [%s] failed: %v", method, path, reqID, err)
		return &TransportError{Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Err: err}
	}
	c.logger.Info("api: %s %s [%s] -> %d in %s", method, path, reqID, resp.StatusCode, time.Since(start).Round(time.Millisecond))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{Status: resp.StatusCode, Message: extractMessage(respBody)}
	}

	if result != nil && len(bytes.TrimSpace(respBody)) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
