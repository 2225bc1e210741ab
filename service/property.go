package service

import (
	"context"

	"github.com/c360studio/pgrooms/client"
	"github.com/c360studio/pgrooms/envelope"
)

// Property is a PG building listed by an owner.
type Property struct {
	ID          int64    `json:"id"`
	OwnerID     int64    `json:"ownerId,omitempty"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Address     string   `json:"address"`
	City        string   `json:"city"`
	State       string   `json:"state"`
	Pincode     string   `json:"pincode,omitempty"`
	Gender      string   `json:"gender,omitempty"`
	Amenities   []string `json:"amenities,omitempty"`
	TotalRooms  int      `json:"totalRooms,omitempty"`
	Status      Status   `json:"status,omitempty"`
}

// PropertyInput is the create/update payload.
type PropertyInput struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Address     string   `json:"address"`
	City        string   `json:"city"`
	State       string   `json:"state"`
	Pincode     string   `json:"pincode,omitempty"`
	Gender      string   `json:"gender,omitempty"`
	Amenities   []string `json:"amenities,omitempty"`
}

// PropertyStatistics summarizes properties platform-wide.
type PropertyStatistics struct {
	Total         int `json:"total"`
	Active        int `json:"active"`
	Inactive      int `json:"inactive"`
	TotalRooms    int `json:"totalRooms"`
	OccupiedBeds  int `json:"occupiedBeds"`
	AvailableBeds int `json:"availableBeds"`
}

// PropertyService wraps the property endpoints.
type PropertyService struct {
	c *client.Client
}

// List returns the caller's properties.
func (s *PropertyService) List(ctx context.Context, q ListQuery) (*envelope.Response[Page[Property]], error) {
	return client.Get[Page[Property]](ctx, s.c, withQuery(PathProperty, q.Values()))
}

// Get returns one property.
func (s *PropertyService) Get(ctx context.Context, id int64) (*envelope.Response[Property], error) {
	return client.Get[Property](ctx, s.c, idPath(PathProperty, id))
}

// Create adds a property.
func (s *PropertyService) Create(ctx context.Context, in PropertyInput) (*envelope.Response[Property], error) {
	return client.Post[Property](ctx, s.c, PathProperty, in)
}

// Update replaces a property's editable fields.
func (s *PropertyService) Update(ctx context.Context, id int64, in PropertyInput) (*envelope.Response[Property], error) {
	return client.Put[Property](ctx, s.c, idPath(PathProperty, id), in)
}

// Delete removes a property.
func (s *PropertyService) Delete(ctx context.Context, id int64) (*envelope.Response[struct{}], error) {
	return client.Delete[struct{}](ctx, s.c, idPath(PathProperty, id))
}

// SetStatus activates or deactivates a property.
func (s *PropertyService) SetStatus(ctx context.Context, id int64, status Status) (*envelope.Response[Property], error) {
	return client.Patch[Property](ctx, s.c, idPath(PathProperty, id)+"/status", statusBody{Status: status})
}

// AdminList returns all properties for administrators.
func (s *PropertyService) AdminList(ctx context.Context, q ListQuery) (*envelope.Response[Page[Property]], error) {
	return client.Get[Page[Property]](ctx, s.c, withQuery(PathAdminProperties, q.Values()))
}

// Statistics returns platform-wide property counts.
func (s *PropertyService) Statistics(ctx context.Context) (*envelope.Response[PropertyStatistics], error) {
	return client.Get[PropertyStatistics](ctx, s.c, PathAdminPropertyStats)
}
