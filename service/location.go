package service

import (
	"context"
	"net/url"

	"github.com/c360studio/pgrooms/client"
	"github.com/c360studio/pgrooms/envelope"
)

// State is an Indian state or union territory.
type State struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Code string `json:"code,omitempty"`
}

// City belongs to a state.
type City struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	StateID int64  `json:"stateId"`
}

// LocationService wraps the location lookup endpoints.
type LocationService struct {
	c *client.Client
}

// States lists all states.
func (s *LocationService) States(ctx context.Context) (*envelope.Response[[]State], error) {
	return client.Get[[]State](ctx, s.c, PathLocationStates)
}

// Cities lists the cities of a state.
func (s *LocationService) Cities(ctx context.Context, state string) (*envelope.Response[[]City], error) {
	return client.Get[[]City](ctx, s.c, PathLocationCities+"/"+url.PathEscape(state))
}
