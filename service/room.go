package service

import (
	"context"
	"strconv"

	"github.com/c360studio/pgrooms/client"
	"github.com/c360studio/pgrooms/envelope"
)

// Room is a rentable room within a property.
type Room struct {
	ID           int64   `json:"id"`
	PropertyID   int64   `json:"propertyId"`
	RoomNumber   string  `json:"roomNumber"`
	Floor        int     `json:"floor,omitempty"`
	SharingType  int     `json:"sharingType"`
	TotalBeds    int     `json:"totalBeds"`
	OccupiedBeds int     `json:"occupiedBeds"`
	Rent         float64 `json:"rent"`
	Deposit      float64 `json:"deposit,omitempty"`
	Status       Status  `json:"status,omitempty"`
}

// RoomInput is the create/update payload.
type RoomInput struct {
	PropertyID  int64   `json:"propertyId"`
	RoomNumber  string  `json:"roomNumber"`
	Floor       int     `json:"floor,omitempty"`
	SharingType int     `json:"sharingType"`
	TotalBeds   int     `json:"totalBeds"`
	Rent        float64 `json:"rent"`
	Deposit     float64 `json:"deposit,omitempty"`
}

// RoomService wraps the room endpoints.
type RoomService struct {
	c *client.Client
}

// List returns the rooms of a property.
func (s *RoomService) List(ctx context.Context, propertyID int64, q ListQuery) (*envelope.Response[Page[Room]], error) {
	v := q.Values()
	v.Set("propertyId", strconv.FormatInt(propertyID, 10))
	return client.Get[Page[Room]](ctx, s.c, withQuery(PathRoom, v))
}

// Get returns one room.
func (s *RoomService) Get(ctx context.Context, id int64) (*envelope.Response[Room], error) {
	return client.Get[Room](ctx, s.c, idPath(PathRoom, id))
}

// Create adds a room.
func (s *RoomService) Create(ctx context.Context, in RoomInput) (*envelope.Response[Room], error) {
	return client.Post[Room](ctx, s.c, PathRoom, in)
}

// Update replaces a room's editable fields.
func (s *RoomService) Update(ctx context.Context, id int64, in RoomInput) (*envelope.Response[Room], error) {
	return client.Put[Room](ctx, s.c, idPath(PathRoom, id), in)
}

// Delete removes a room.
func (s *RoomService) Delete(ctx context.Context, id int64) (*envelope.Response[struct{}], error) {
	return client.Delete[struct{}](ctx, s.c, idPath(PathRoom, id))
}

// SetStatus activates or deactivates a room.
func (s *RoomService) SetStatus(ctx context.Context, id int64, status Status) (*envelope.Response[Room], error) {
	return client.Patch[Room](ctx, s.c, idPath(PathRoom, id)+"/status", statusBody{Status: status})
}
