package tripquery

import (
	"context"

	"github.com/jinzhu/copier"
	"github.com/rs/zerolog/log"
	"github.com/travigo/busdelay/pkg/generation"
	"github.com/travigo/busdelay/pkg/loop"
	"github.com/travigo/busdelay/pkg/model"
	"github.com/travigo/busdelay/pkg/routeresolver"
)

type Predictor interface {
	Predict(ctx context.Context, query model.TripQuery) model.PredictionResult
}

// Controller holds a State on a loop and runs the fetches its transitions
// call for. Methods without a context must run on the loop.
type Controller struct {
	loop        *loop.Loop
	routes      *routeresolver.Resolver
	predictor   Predictor
	predictions generation.Counter

	state       State
	issued      int
	subscribers []func(State)
}

func NewController(l *loop.Loop, routes *routeresolver.Resolver, predictor Predictor) *Controller {
	return &Controller{
		loop:      l,
		routes:    routes,
		predictor: predictor,
	}
}

// Subscribe registers fn to be called on the loop after every state change
func (c *Controller) Subscribe(fn func(State)) {
	c.subscribers = append(c.subscribers, fn)
}

func (c *Controller) State() State {
	return c.state
}

// PredictionsIssued counts the prediction requests sent so far
func (c *Controller) PredictionsIssued() int {
	return c.issued
}

// Dispatch transitions the state and starts any fetch the new state needs
func (c *Controller) Dispatch(action Action) error {
	previous := c.state

	next, err := Transition(previous, action)
	if err != nil {
		return err
	}
	c.state = next

	c.runEffects(previous)

	for _, subscriber := range c.subscribers {
		subscriber(c.state)
	}

	return nil
}

func (c *Controller) runEffects(previous State) {
	current := c.state

	if current.RouteStatus == RouteLoading && !sameLoadingService(previous, current) {
		c.routes.Resolve(current.Service.ID, c.applyResolution)
	} else if current.Service == nil && previous.Service != nil {
		c.routes.Invalidate()
	}

	if previous.Issued != nil && (current.Issued == nil || *current.Issued != *previous.Issued) {
		c.predictions.Invalidate()
	}

	if query, ok := ShouldIssuePrediction(current); ok {
		c.issue(query)
	}
}

func sameLoadingService(previous State, current State) bool {
	return previous.RouteStatus == RouteLoading &&
		previous.Service != nil && current.Service != nil &&
		previous.Service.ID == current.Service.ID
}

func (c *Controller) applyResolution(resolution routeresolver.Resolution) {
	var err error
	if resolution.Err != nil {
		err = c.Dispatch(routeFailed{ServiceID: resolution.ServiceID, Reason: resolution.Err.Error()})
	} else {
		err = c.Dispatch(routeResolved{
			ServiceID:  resolution.ServiceID,
			Route:      resolution.Route,
			Directions: resolution.Directions,
		})
	}

	if err != nil {
		log.Error().Err(err).Str("service", resolution.ServiceID.String()).Msg("Failed to apply route resolution")
	}
}

func (c *Controller) issue(query model.TripQuery) {
	ticket := c.predictions.Next()
	c.state, _ = Transition(c.state, predictionIssued{Query: query})
	c.issued++

	log.Debug().Str("query", query.Fingerprint()).Msg("Requesting delay prediction")

	loop.Spawn(c.loop, func(ctx context.Context) model.PredictionResult {
		return c.predictor.Predict(ctx, query)
	}, func(result model.PredictionResult) {
		if !c.predictions.Current(ticket) {
			log.Debug().Str("query", query.Fingerprint()).Msg("Discarding stale delay prediction")
			return
		}

		if err := c.Dispatch(predictionSettled{Query: query, Result: result}); err != nil {
			log.Error().Err(err).Msg("Failed to apply delay prediction")
		}
	})
}

// Do dispatches action from outside the loop and waits for it to be applied
func (c *Controller) Do(ctx context.Context, action Action) error {
	var actionErr error

	if err := c.loop.Call(ctx, func() {
		actionErr = c.Dispatch(action)
	}); err != nil {
		return err
	}

	return actionErr
}

func (c *Controller) SelectService(ctx context.Context, service model.Service) error {
	return c.Do(ctx, SelectService{Service: service})
}

func (c *Controller) SelectStop(ctx context.Context, stop string) error {
	return c.Do(ctx, SelectStop{Stop: stop})
}

func (c *Controller) SelectDirection(ctx context.Context, direction model.Direction) error {
	return c.Do(ctx, SelectDirection{Direction: direction})
}

func (c *Controller) SetDate(ctx context.Context, date model.Date) error {
	return c.Do(ctx, SetDate{Date: date})
}

func (c *Controller) SetTime(ctx context.Context, timeOfDay model.TimeOfDay) error {
	return c.Do(ctx, SetTime{Time: timeOfDay})
}

func (c *Controller) Reset(ctx context.Context) error {
	return c.Do(ctx, Reset{})
}

func (c *Controller) Retry(ctx context.Context) error {
	return c.Do(ctx, Retry{})
}

// Snapshot returns a deep copy of the state taken on the loop
func (c *Controller) Snapshot(ctx context.Context) (State, error) {
	var snapshot State
	var copyErr error

	if err := c.loop.Call(ctx, func() {
		copyErr = copier.CopyWithOption(&snapshot, &c.state, copier.Option{DeepCopy: true})
	}); err != nil {
		return State{}, err
	}

	return snapshot, copyErr
}
