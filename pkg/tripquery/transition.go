package tripquery

import (
	"github.com/travigo/busdelay/pkg/model"
)

type Action interface {
	apply(s State) (State, error)
}

// Transition applies action to s. On error s is returned unchanged.
func Transition(s State, action Action) (State, error) {
	next, err := action.apply(s)
	if err != nil {
		return s, err
	}

	// An incomplete query never shows a result
	if _, ok := next.Query(); !ok {
		next.Prediction = model.PredictionResult{}
		next.Issued = nil
	}

	return next, nil
}

type SelectService struct {
	Service model.Service
}

func (a SelectService) apply(s State) (State, error) {
	if a.Service.ID == "" {
		return s, ErrNoService
	}

	if s.Service != nil && s.Service.ID == a.Service.ID &&
		(s.RouteStatus == RouteLoading || s.RouteStatus == RouteResolved) {
		return s, nil
	}

	service := a.Service

	return State{
		Service:     &service,
		RouteStatus: RouteLoading,
		Date:        s.Date,
		Time:        s.Time,
	}, nil
}

type SelectStop struct {
	Stop string
}

func (a SelectStop) apply(s State) (State, error) {
	if s.Service == nil {
		return s, ErrNoService
	}
	if s.RouteStatus != RouteResolved {
		return s, ErrRouteNotResolved
	}
	if !s.Route.Contains(a.Stop) {
		return s, ErrStopNotOnRoute
	}

	s.BoardingStop = a.Stop

	return s, nil
}

type SelectDirection struct {
	Direction model.Direction
}

func (a SelectDirection) apply(s State) (State, error) {
	if !a.Direction.IsSet() {
		return s, ErrInvalidDirection
	}
	if s.Service == nil {
		return s, ErrNoService
	}
	if s.RouteStatus != RouteResolved {
		return s, ErrRouteNotResolved
	}

	s.Direction = a.Direction

	return s, nil
}

type SetDate struct {
	Date model.Date
}

func (a SetDate) apply(s State) (State, error) {
	if a.Date.IsZero() {
		return s, ErrInvalidDate
	}

	s.Date = a.Date

	return s, nil
}

type SetTime struct {
	Time model.TimeOfDay
}

func (a SetTime) apply(s State) (State, error) {
	if !a.Time.Valid() {
		return s, ErrInvalidTime
	}

	timeOfDay := a.Time
	s.Time = &timeOfDay

	return s, nil
}

type Reset struct{}

func (Reset) apply(State) (State, error) {
	return State{}, nil
}

// Retry re-runs whichever fetch last failed
type Retry struct{}

func (Retry) apply(s State) (State, error) {
	if s.Service != nil && s.RouteStatus == RouteFailed {
		s.RouteStatus = RouteLoading
		s.RouteError = ""
		return s, nil
	}

	if s.Prediction.Status == model.PredictionFailed {
		s.Prediction = model.PredictionResult{}
		s.Issued = nil
	}

	return s, nil
}

type routeResolved struct {
	ServiceID  model.ServiceID
	Route      model.Route
	Directions []model.DirectionOption
}

func (a routeResolved) apply(s State) (State, error) {
	if s.Service == nil || s.Service.ID != a.ServiceID || s.RouteStatus != RouteLoading {
		return s, nil
	}

	s.Route = a.Route
	s.Directions = a.Directions
	s.RouteStatus = RouteResolved
	s.RouteError = ""
	s.BoardingStop = ""
	s.Direction = model.DirectionUnset

	return s, nil
}

type routeFailed struct {
	ServiceID model.ServiceID
	Reason    string
}

func (a routeFailed) apply(s State) (State, error) {
	if s.Service == nil || s.Service.ID != a.ServiceID || s.RouteStatus != RouteLoading {
		return s, nil
	}

	s.Route = nil
	s.Directions = nil
	s.RouteStatus = RouteFailed
	s.RouteError = a.Reason
	s.BoardingStop = ""
	s.Direction = model.DirectionUnset

	return s, nil
}

type predictionIssued struct {
	Query model.TripQuery
}

func (a predictionIssued) apply(s State) (State, error) {
	query := a.Query
	s.Issued = &query
	s.Prediction = model.PendingPrediction()

	return s, nil
}

type predictionSettled struct {
	Query  model.TripQuery
	Result model.PredictionResult
}

func (a predictionSettled) apply(s State) (State, error) {
	if s.Issued == nil || *s.Issued != a.Query {
		return s, nil
	}

	s.Prediction = a.Result

	return s, nil
}
