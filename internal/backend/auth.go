package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

var ErrNoToken = errors.New("login response carried no access token")

// LoginRequest carries exactly one of AdminID or DriverID, matching
// UserRole (1 admin, 2 driver). Ids travel as JSON numbers.
type LoginRequest struct {
	AdminID  *int64 `json:"adminId,omitempty"`
	DriverID *int64 `json:"driverId,omitempty"`
	Email    string `json:"email,omitempty"`
	Password string `json:"password"`
	UserRole int    `json:"userRole"`
}

type LoginResult struct {
	AccessToken string
	// Role is the numeric role echoed by the backend, zero when absent.
	Role     int
	FullName string
}

func (c *Client) Login(ctx context.Context, in LoginRequest) (LoginResult, error) {
	resp, err := c.doJSON(ctx, http.MethodPost, "/auth/login", "", in)
	if err != nil {
		return LoginResult{}, err
	}
	defer resp.Body.Close()
	if !ok(resp) {
		return LoginResult{}, decodeError(resp, "Invalid credentials. Please try again.")
	}

	var payload struct {
		AccessToken string `json:"accessToken"`
		User        struct {
			Role     text `json:"role"`
			FullName text `json:"fullName"`
		} `json:"user"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return LoginResult{}, fmt.Errorf("decode login: %w", err)
	}
	if payload.AccessToken == "" {
		return LoginResult{}, ErrNoToken
	}
	res := LoginResult{AccessToken: payload.AccessToken, FullName: string(payload.User.FullName)}
	switch payload.User.Role {
	case "1", "admin":
		res.Role = 1
	case "2", "driver":
		res.Role = 2
	}
	return res, nil
}

// RegisterRequest is the driver self-registration payload.
type RegisterRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	UserRole    int    `json:"userRole"`
	DriverID    int64  `json:"driverId"`
	FullName    string `json:"fullName"`
	PhoneNumber string `json:"phoneNumber"`
}

func (c *Client) Register(ctx context.Context, in RegisterRequest) error {
	resp, err := c.doJSON(ctx, http.MethodPost, "/auth/register", "", in)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if !ok(resp) {
		return decodeError(resp, "Registration failed. Please try again.")
	}
	return nil
}

// LookupRequest starts the password reset. Exactly one id is set.
type LookupRequest struct {
	UserRole int    `json:"userRole"`
	AdminID  *int64 `json:"adminId,omitempty"`
	DriverID *int64 `json:"driverId,omitempty"`
}

type LookupResult struct {
	UserID      int64  `json:"userId"`
	MaskedEmail string `json:"maskedEmail"`
}

func (c *Client) ForgotLookup(ctx context.Context, in LookupRequest) (LookupResult, error) {
	resp, err := c.doJSON(ctx, http.MethodPost, "/auth/forgot-lookup", "", in)
	if err != nil {
		return LookupResult{}, err
	}
	defer resp.Body.Close()
	if !ok(resp) {
		return LookupResult{}, decodeError(resp, "Lookup failed")
	}
	var out LookupResult
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return LookupResult{}, fmt.Errorf("decode lookup: %w", err)
	}
	return out, nil
}

func (c *Client) ForgotSendCode(ctx context.Context, userID int64) error {
	resp, err := c.doJSON(ctx, http.MethodPost, "/auth/forgot-send-code", "", map[string]int64{"userId": userID})
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if !ok(resp) {
		return decodeError(resp, "Failed to send code")
	}
	return nil
}

// ForgotVerifyCode exchanges the emailed code for a reset token.
func (c *Client) ForgotVerifyCode(ctx context.Context, userID int64, code string) (string, error) {
	resp, err := c.doJSON(ctx, http.MethodPost, "/auth/forgot-verify-code", "", map[string]any{"userId": userID, "code": code})
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if !ok(resp) {
		return "", decodeError(resp, "Invalid code")
	}
	var payload struct {
		ResetToken string `json:"resetToken"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode verify: %w", err)
	}
	if payload.ResetToken == "" {
		return "", &APIError{Status: resp.StatusCode, Message: "Verification failed"}
	}
	return payload.ResetToken, nil
}

func (c *Client) ForgotReset(ctx context.Context, resetToken, newPassword string) error {
	resp, err := c.doJSON(ctx, http.MethodPost, "/auth/forgot-reset", "", map[string]string{
		"resetToken":  resetToken,
		"newPassword": newPassword,
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if !ok(resp) {
		return decodeError(resp, "Reset failed")
	}
	return nil
}
