// Package routeresolver fetches the stop sequence of a chosen service and
// derives its two travel directions. A resolution is dropped if another
// service has been chosen since it was requested.
package routeresolver

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
	"github.com/travigo/busdelay/pkg/generation"
	"github.com/travigo/busdelay/pkg/loop"
	"github.com/travigo/busdelay/pkg/model"
)

var ErrEmptyRoute = errors.New("route has no stops")

type StopsFetcher interface {
	GetStops(ctx context.Context, serviceID model.ServiceID) (model.Route, error)
}

// Resolution is delivered on the loop for the latest Resolve call only
type Resolution struct {
	ServiceID  model.ServiceID
	Route      model.Route
	Directions []model.DirectionOption
	Err        error
}

type Resolver struct {
	loop       *loop.Loop
	fetcher    StopsFetcher
	generation generation.Counter
}

func New(l *loop.Loop, fetcher StopsFetcher) *Resolver {
	return &Resolver{loop: l, fetcher: fetcher}
}

// Resolve fetches the route of serviceID and hands the outcome to deliver,
// unless Resolve or Invalidate has been called again in the meantime
func (r *Resolver) Resolve(serviceID model.ServiceID, deliver func(Resolution)) {
	ticket := r.generation.Next()

	loop.Spawn(r.loop, func(ctx context.Context) Resolution {
		route, err := r.fetcher.GetStops(ctx, serviceID)
		if err == nil && route.IsEmpty() {
			err = ErrEmptyRoute
		}

		if err != nil {
			return Resolution{ServiceID: serviceID, Err: err}
		}

		return Resolution{
			ServiceID:  serviceID,
			Route:      route,
			Directions: route.Directions(),
		}
	}, func(resolution Resolution) {
		if !r.generation.Current(ticket) {
			log.Debug().Str("service", serviceID.String()).Msg("Discarding stale route resolution")
			return
		}

		if resolution.Err != nil {
			log.Error().Err(resolution.Err).Str("stage", "stops").Str("service", serviceID.String()).Msg("Failed to resolve route")
		}

		deliver(resolution)
	})
}

// Invalidate drops any resolution still in flight
func (r *Resolver) Invalidate() {
	r.generation.Invalidate()
}
