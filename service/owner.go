package service

import (
	"context"

	"github.com/c360studio/pgrooms/client"
	"github.com/c360studio/pgrooms/envelope"
)

// Owner is a property owner account with listing counts.
type Owner struct {
	User
	Properties int `json:"properties"`
	Tenants    int `json:"tenants"`
}

// OwnerStatistics summarizes owner accounts.
type OwnerStatistics struct {
	Total    int `json:"total"`
	Active   int `json:"active"`
	Inactive int `json:"inactive"`
	NewToday int `json:"newToday"`
}

// OwnerStatusUpdate activates or suspends an owner.
type OwnerStatusUpdate struct {
	OwnerID int64  `json:"ownerId"`
	Status  Status `json:"status"`
	Reason  string `json:"reason,omitempty"`
}

// OwnerService wraps the administrator owner endpoints.
type OwnerService struct {
	c *client.Client
}

// AdminList returns all owners.
func (s *OwnerService) AdminList(ctx context.Context, q ListQuery) (*envelope.Response[Page[Owner]], error) {
	return client.Get[Page[Owner]](ctx, s.c, withQuery(PathAdminOwners, q.Values()))
}

// Statistics returns owner counts.
func (s *OwnerService) Statistics(ctx context.Context) (*envelope.Response[OwnerStatistics], error) {
	return client.Get[OwnerStatistics](ctx, s.c, PathAdminOwnerStats)
}

// UpdateStatus changes an owner's account status.
func (s *OwnerService) UpdateStatus(ctx context.Context, u OwnerStatusUpdate) (*envelope.Response[Owner], error) {
	return client.Put[Owner](ctx, s.c, PathAdminOwnerStatus, u)
}
