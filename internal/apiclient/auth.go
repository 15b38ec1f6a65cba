package apiclient

import (
	"context"
	"net/http"

	"github.com/nestfeed/client/internal/model/social"
)

// LoginResult is the body of a successful login.
type LoginResult struct {
	Token      string `json:"token"`
	Message    string `json:"message"`
	ProfilePic string `json:"profilePic"`
}

// Registration is the input to Register.
type Registration struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// Login exchanges credentials for a token.
func (c *Client) Login(ctx context.Context, email, password string) (LoginResult, error) {
	var out LoginResult
	err := c.doJSON(ctx, http.MethodPost, "/user/login", false, map[string]string{
		"email":    email,
		"password": password,
	}, &out)
	return out, err
}

// Register creates an account and returns the server's message.
func (c *Client) Register(ctx context.Context, reg Registration) (string, error) {
	var out messageResponse
	err := c.doJSON(ctx, http.MethodPost, "/user/register", false, reg, &out)
	return out.Message, err
}

// SendOTP asks the server to mail a password-reset code.
func (c *Client) SendOTP(ctx context.Context, email string) (string, error) {
	var out messageResponse
	err := c.doJSON(ctx, http.MethodPost, "/otp/otp", false, map[string]string{"email": email}, &out)
	return out.Message, err
}

// VerifyOTP resets the password using a mailed code.
func (c *Client) VerifyOTP(ctx context.Context, email, otp, newPassword string) (string, error) {
	var out messageResponse
	err := c.doJSON(ctx, http.MethodPost, "/otp/verify-otp", false, map[string]string{
		"email":       email,
		"otp":         otp,
		"newPassword": newPassword,
	}, &out)
	return out.Message, err
}

// Me fetches the current user.
func (c *Client) Me(ctx context.Context) (social.User, error) {
	var out struct {
		User social.User `json:"user"`
	}
	err := c.doJSON(ctx, http.MethodGet, "/user/me", true, nil, &out)
	return out.User, err
}
