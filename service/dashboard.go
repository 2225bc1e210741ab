package service

import (
	"context"
	"net/url"
	"strconv"

	"github.com/c360studio/pgrooms/client"
	"github.com/c360studio/pgrooms/envelope"
)

// Overview is the administrator landing summary.
type Overview struct {
	Users        int     `json:"users"`
	Owners       int     `json:"owners"`
	Tenants      int     `json:"tenants"`
	Properties   int     `json:"properties"`
	Rooms        int     `json:"rooms"`
	OccupancyPct float64 `json:"occupancyPct"`
	Revenue      float64 `json:"revenue"`
}

// Activity is one entry of the recent activity feed.
type Activity struct {
	ID        int64  `json:"id"`
	Type      string `json:"type"`
	Message   string `json:"message"`
	UserID    int64  `json:"userId,omitempty"`
	CreatedAt string `json:"createdAt"`
}

// SystemHealth reports backend component status.
type SystemHealth struct {
	Status     string            `json:"status"`
	Uptime     float64           `json:"uptime,omitempty"`
	Components map[string]string `json:"components,omitempty"`
}

// DashboardService wraps the administrator dashboard endpoints.
type DashboardService struct {
	c *client.Client
}

// Overview returns platform totals.
func (s *DashboardService) Overview(ctx context.Context) (*envelope.Response[Overview], error) {
	return client.Get[Overview](ctx, s.c, PathAdminDashboardOverview)
}

// RecentActivity returns up to limit recent events; limit <= 0 uses the
// server default.
func (s *DashboardService) RecentActivity(ctx context.Context, limit int) (*envelope.Response[[]Activity], error) {
	v := url.Values{}
	if limit > 0 {
		v.Set("limit", strconv.Itoa(limit))
	}
	return client.Get[[]Activity](ctx, s.c, withQuery(PathAdminRecentActivity, v))
}

// SystemHealth returns backend health.
func (s *DashboardService) SystemHealth(ctx context.Context) (*envelope.Response[SystemHealth], error) {
	return client.Get[SystemHealth](ctx, s.c, PathAdminSystemHealth)
}
