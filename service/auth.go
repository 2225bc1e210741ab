package service

import (
	"context"
	"fmt"

	"github.com/c360studio/pgrooms/client"
	"github.com/c360studio/pgrooms/envelope"
)

// Role is the account role of a user.
type Role string

// Roles.
const (
	RoleAdmin  Role = "admin"
	RoleOwner  Role = "owner"
	RoleTenant Role = "tenant"
)

// User is an account as returned by the API.
type User struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone,omitempty"`
	Role      Role   `json:"role"`
	Status    Status `json:"status,omitempty"`
	CreatedAt string `json:"createdAt,omitempty"`
}

// Credentials is the login payload.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Registration is the sign-up payload.
type Registration struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone,omitempty"`
	Password string `json:"password"`
	Role     Role   `json:"role"`
}

// Session is the payload of a successful login or refresh.
type Session struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken,omitempty"`
	User         *User  `json:"user,omitempty"`
}

// PasswordReset completes a forgot-password flow.
type PasswordReset struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

// AuthService wraps the authentication endpoints.
type AuthService struct {
	c *client.Client
}

// Login authenticates and stores the returned token in the client's
// credential store. A wrong password arrives as a KindUnauthorized error
// without a notification; the caller shows it inline.
func (s *AuthService) Login(ctx context.Context, creds Credentials) (*envelope.Response[Session], error) {
	resp, err := client.Post[Session](ctx, s.c, PathAuthLogin, creds)
	if err != nil {
		return nil, err
	}
	if err := s.store(resp); err != nil {
		return resp, err
	}
	return resp, nil
}

// Register creates an account.
func (s *AuthService) Register(ctx context.Context, reg Registration) (*envelope.Response[User], error) {
	return client.Post[User](ctx, s.c, PathAuthRegister, reg)
}

// Logout ends the session. The stored token is cleared even when the
// server call fails.
func (s *AuthService) Logout(ctx context.Context) (*envelope.Response[struct{}], error) {
	resp, err := client.Post[struct{}](ctx, s.c, PathAuthLogout, nil)
	if store := s.c.Credentials(); store != nil {
		if cerr := store.Clear(); cerr != nil && err == nil {
			return resp, fmt.Errorf("clear credential: %w", cerr)
		}
	}
	return resp, err
}

// Refresh exchanges a refresh token for a new session token and stores it.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*envelope.Response[Session], error) {
	body := map[string]string{"refreshToken": refreshToken}
	resp, err := client.Post[Session](ctx, s.c, PathAuthRefresh, body)
	if err != nil {
		return nil, err
	}
	if err := s.store(resp); err != nil {
		return resp, err
	}
	return resp, nil
}

// ForgotPassword requests a reset link for email.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) (*envelope.Response[struct{}], error) {
	return client.Post[struct{}](ctx, s.c, PathAuthForgotPassword, map[string]string{"email": email})
}

// ResetPassword sets a new password using a reset token.
func (s *AuthService) ResetPassword(ctx context.Context, reset PasswordReset) (*envelope.Response[struct{}], error) {
	return client.Post[struct{}](ctx, s.c, PathAuthResetPassword, reset)
}

func (s *AuthService) store(resp *envelope.Response[Session]) error {
	store := s.c.Credentials()
	if store == nil || resp.Data.Token == "" {
		return nil
	}
	if err := store.Set(resp.Data.Token); err != nil {
		return fmt.Errorf("store credential: %w", err)
	}
	return nil
}
