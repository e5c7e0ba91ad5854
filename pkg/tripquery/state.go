// Package tripquery owns the selection state of one trip query and decides
// when a delay prediction has to be requested. State changes go through the
// pure Transition function; Controller runs the resulting side effects.
package tripquery

import (
	"errors"

	"github.com/travigo/busdelay/pkg/model"
)

var (
	ErrNoService        = errors.New("no service selected")
	ErrRouteNotResolved = errors.New("route of the selected service is not resolved")
	ErrStopNotOnRoute   = errors.New("stop is not on the route of the selected service")
	ErrInvalidDirection = errors.New("direction must be forward or reverse")
	ErrInvalidDate      = errors.New("date is required")
	ErrInvalidTime      = errors.New("time of day is out of range")
)

type RouteStatus int

const (
	RouteIdle RouteStatus = iota
	RouteLoading
	RouteResolved
	RouteFailed
)

func (s RouteStatus) String() string {
	switch s {
	case RouteLoading:
		return "loading"
	case RouteResolved:
		return "resolved"
	case RouteFailed:
		return "failed"
	default:
		return "idle"
	}
}

func (s RouteStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

type State struct {
	Service     *model.Service
	Route       model.Route
	Directions  []model.DirectionOption
	RouteStatus RouteStatus
	RouteError  string

	BoardingStop string
	Direction    model.Direction
	Date         model.Date
	Time         *model.TimeOfDay

	Prediction model.PredictionResult
	// Issued is the query the current Prediction belongs to
	Issued *model.TripQuery
}

// DestinationStop is the terminus in the chosen direction, if any
func (s State) DestinationStop() (string, bool) {
	if s.RouteStatus != RouteResolved {
		return "", false
	}

	return s.Route.DestinationFor(s.Direction)
}

// Query returns the trip query described by the state. It only succeeds when
// every input is set and mutually consistent.
func (s State) Query() (model.TripQuery, bool) {
	if s.Service == nil || s.RouteStatus != RouteResolved || s.Route.IsEmpty() {
		return model.TripQuery{}, false
	}

	if s.BoardingStop == "" || !s.Route.Contains(s.BoardingStop) {
		return model.TripQuery{}, false
	}

	destination, ok := s.Route.DestinationFor(s.Direction)
	if !ok {
		return model.TripQuery{}, false
	}

	if s.Date.IsZero() || s.Time == nil {
		return model.TripQuery{}, false
	}

	return model.TripQuery{
		ServiceID:       s.Service.ID,
		BoardingStop:    s.BoardingStop,
		DestinationStop: destination,
		Date:            s.Date,
		Time:            *s.Time,
	}, true
}

// ShouldIssuePrediction reports the query to send when the state describes a
// complete query that differs from the one last issued
func ShouldIssuePrediction(s State) (model.TripQuery, bool) {
	query, ok := s.Query()
	if !ok {
		return model.TripQuery{}, false
	}

	if s.Issued != nil && *s.Issued == query {
		return model.TripQuery{}, false
	}

	return query, true
}
