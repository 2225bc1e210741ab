// Package service provides typed wrappers for the pgrooms REST endpoints.
//
// Each method calls one pipeline verb with a fixed path and payload and
// returns the envelope unchanged; failures arrive as *client.Error after the
// pipeline has already notified the user where appropriate.
package service

import (
	"net/url"
	"strconv"

	"github.com/c360studio/pgrooms/client"
)

// Services groups the domain wrappers over one client.
type Services struct {
	Auth      *AuthService
	Property  *PropertyService
	Room      *RoomService
	Tenant    *TenantService
	Owner     *OwnerService
	Payment   *PaymentService
	Location  *LocationService
	User      *UserService
	Dashboard *DashboardService
}

// New creates all domain services sharing c.
func New(c *client.Client) *Services {
	return &Services{
		Auth:      &AuthService{c: c},
		Property:  &PropertyService{c: c},
		Room:      &RoomService{c: c},
		Tenant:    &TenantService{c: c},
		Owner:     &OwnerService{c: c},
		Payment:   &PaymentService{c: c},
		Location:  &LocationService{c: c},
		User:      &UserService{c: c},
		Dashboard: &DashboardService{c: c},
	}
}

// ListQuery holds the common pagination and filter parameters.
type ListQuery struct {
	Page   int
	Limit  int
	Search string
	Status string
}

// Values encodes the query, omitting zero fields.
func (q ListQuery) Values() url.Values {
	v := url.Values{}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	if q.Status != "" {
		v.Set("status", q.Status)
	}
	return v
}

// Page is a paginated list payload.
type Page[T any] struct {
	Items      []T `json:"items"`
	Total      int `json:"total"`
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalPages int `json:"totalPages"`
}

// withQuery appends encoded query values to path.
func withQuery(path string, v url.Values) string {
	if len(v) == 0 {
		return path
	}
	return path + "?" + v.Encode()
}

func idPath(base string, id int64) string {
	return base + "/" + strconv.FormatInt(id, 10)
}

// Status is an active/inactive toggle value.
type Status string

// Status values.
const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

type statusBody struct {
	Status Status `json:"status"`
}
