package service

import (
	"context"

	"github.com/c360studio/pgrooms/client"
	"github.com/c360studio/pgrooms/envelope"
)

// Tenant is a resident assigned, or awaiting assignment, to a room.
type Tenant struct {
	ID         int64  `json:"id"`
	UserID     int64  `json:"userId,omitempty"`
	Name       string `json:"name"`
	Email      string `json:"email,omitempty"`
	Phone      string `json:"phone"`
	PropertyID int64  `json:"propertyId,omitempty"`
	RoomID     int64  `json:"roomId,omitempty"`
	BedNumber  int    `json:"bedNumber,omitempty"`
	JoinDate   string `json:"joinDate,omitempty"`
	Status     Status `json:"status,omitempty"`
}

// TenantInput is the create payload.
type TenantInput struct {
	Name       string `json:"name"`
	Email      string `json:"email,omitempty"`
	Phone      string `json:"phone"`
	PropertyID int64  `json:"propertyId,omitempty"`
	RoomID     int64  `json:"roomId,omitempty"`
	JoinDate   string `json:"joinDate,omitempty"`
}

// RoomAssignment moves a tenant into a room.
type RoomAssignment struct {
	TenantID  int64 `json:"tenantId"`
	RoomID    int64 `json:"roomId"`
	BedNumber int   `json:"bedNumber,omitempty"`
}

// BulkTenantUpdate changes the status of several tenants at once.
type BulkTenantUpdate struct {
	TenantIDs []int64 `json:"tenantIds"`
	Status    Status  `json:"status"`
}

// BulkResult reports how many records a bulk operation touched.
type BulkResult struct {
	Updated int     `json:"updated"`
	Failed  []int64 `json:"failed,omitempty"`
}

// RoomDetails is the signed-in tenant's current room.
type RoomDetails struct {
	Tenant    *Tenant   `json:"tenant,omitempty"`
	Room      *Room     `json:"room,omitempty"`
	Property  *Property `json:"property,omitempty"`
	Roommates []Tenant  `json:"roommates,omitempty"`
}

// TenantService wraps the tenant endpoints.
type TenantService struct {
	c *client.Client
}

// List returns the owner's tenants.
func (s *TenantService) List(ctx context.Context, q ListQuery) (*envelope.Response[Page[Tenant]], error) {
	return client.Get[Page[Tenant]](ctx, s.c, withQuery(PathTenant, q.Values()))
}

// Create adds a tenant.
func (s *TenantService) Create(ctx context.Context, in TenantInput) (*envelope.Response[Tenant], error) {
	return client.Post[Tenant](ctx, s.c, PathTenant, in)
}

// AssignRoom places a tenant in a room.
func (s *TenantService) AssignRoom(ctx context.Context, a RoomAssignment) (*envelope.Response[Tenant], error) {
	return client.Post[Tenant](ctx, s.c, PathTenantAssignRoom, a)
}

// BulkUpdate changes the status of several tenants.
func (s *TenantService) BulkUpdate(ctx context.Context, u BulkTenantUpdate) (*envelope.Response[BulkResult], error) {
	return client.Put[BulkResult](ctx, s.c, PathTenantBulkUpdate, u)
}

// RoomDetails returns the signed-in tenant's room. Failures on this endpoint
// are never shown as notifications; a tenant without a room is a normal
// state the caller renders itself.
func (s *TenantService) RoomDetails(ctx context.Context) (*envelope.Response[RoomDetails], error) {
	return client.Get[RoomDetails](ctx, s.c, PathTenantRoomDetails)
}

// AdminList returns all tenants for administrators.
func (s *TenantService) AdminList(ctx context.Context, q ListQuery) (*envelope.Response[Page[Tenant]], error) {
	return client.Get[Page[Tenant]](ctx, s.c, withQuery(PathAdminTenants, q.Values()))
}
