package service

import (
	"context"

	"github.com/c360studio/pgrooms/client"
	"github.com/c360studio/pgrooms/envelope"
)

// ProfileUpdate is the editable subset of a user profile.
type ProfileUpdate struct {
	Name  string `json:"name,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// PasswordChange replaces the signed-in user's password.
type PasswordChange struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// UserService wraps the profile endpoints.
type UserService struct {
	c *client.Client
}

// Profile returns the signed-in user.
func (s *UserService) Profile(ctx context.Context) (*envelope.Response[User], error) {
	return client.Get[User](ctx, s.c, PathUserProfile)
}

// UpdateProfile edits the signed-in user.
func (s *UserService) UpdateProfile(ctx context.Context, u ProfileUpdate) (*envelope.Response[User], error) {
	return client.Put[User](ctx, s.c, PathUserProfile, u)
}

// ChangePassword sets a new password. An incorrect current password comes
// back as an unnotified error for the caller to show inline.
func (s *UserService) ChangePassword(ctx context.Context, p PasswordChange) (*envelope.Response[struct{}], error) {
	return client.Put[struct{}](ctx, s.c, PathUserChangePassword, p)
}
