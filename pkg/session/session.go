// Package session wires the two selectors, the service lookup and the trip
// query controller of one rider's form onto a single loop.
package session

import (
	"context"
	"errors"

	"github.com/travigo/busdelay/pkg/loop"
	"github.com/travigo/busdelay/pkg/model"
	"github.com/travigo/busdelay/pkg/punctuality"
	"github.com/travigo/busdelay/pkg/routeresolver"
	"github.com/travigo/busdelay/pkg/selector"
	"github.com/travigo/busdelay/pkg/servicelookup"
	"github.com/travigo/busdelay/pkg/tripquery"
)

var ErrUnknownService = errors.New("service is not in the current search results")

type Dependencies struct {
	Directory servicelookup.Directory
	Stops     routeresolver.StopsFetcher
	Predictor tripquery.Predictor
	Renderer  *punctuality.Renderer
}

type watcher struct {
	until   func(tripquery.State) bool
	matched chan tripquery.State
}

type Session struct {
	loop       *loop.Loop
	lookup     *servicelookup.Lookup
	controller *tripquery.Controller
	renderer   *punctuality.Renderer

	services *selector.Selector
	stops    *selector.Selector

	syncedService model.ServiceID
	syncedStop    string
	syncedRoute   tripquery.RouteStatus

	searchSettled func(current bool)
	actionErr     error
	watchers      []watcher
}

func New(deps Dependencies) (*Session, error) {
	renderer := deps.Renderer
	if renderer == nil {
		var err error
		renderer, err = punctuality.NewRenderer(punctuality.DefaultRules)
		if err != nil {
			return nil, err
		}
	}

	l := loop.New()

	s := &Session{
		loop:       l,
		lookup:     servicelookup.New(l, deps.Directory),
		controller: tripquery.NewController(l, routeresolver.New(l, deps.Stops), deps.Predictor),
		renderer:   renderer,
	}

	s.services = selector.NewServerFiltered(s.searchServices, s.pickService)
	s.stops = selector.New(s.pickStop)

	s.lookup.OnResults = func(services []model.Service) {
		s.services.SetCandidates(model.ServiceLabels(services))
	}
	s.controller.Subscribe(s.sync)

	l.Start()

	return s, nil
}

func (s *Session) searchServices(query string) {
	notify := s.searchSettled
	s.searchSettled = nil

	s.lookup.SearchNotify(query, notify)
}

func (s *Session) pickService(label string) {
	service, ok := model.FindServiceByLabel(s.lookup.Results(), label)
	if !ok {
		s.actionErr = ErrUnknownService
		return
	}

	s.actionErr = s.controller.Dispatch(tripquery.SelectService{Service: service})
}

func (s *Session) pickStop(stop string) {
	s.actionErr = s.controller.Dispatch(tripquery.SelectStop{Stop: stop})
}

// sync pushes controller state into the selectors. Values are only written
// when the controller's value changed so that typed text is not clobbered.
func (s *Session) sync(state tripquery.State) {
	var serviceID model.ServiceID
	serviceLabel := ""
	if state.Service != nil {
		serviceID = state.Service.ID
		serviceLabel = state.Service.Label()
	}
	serviceChanged := serviceID != s.syncedService
	if serviceChanged {
		s.services.SetValue(serviceLabel)
		s.syncedService = serviceID
	}

	if state.RouteStatus != s.syncedRoute {
		if state.RouteStatus == tripquery.RouteResolved {
			s.stops.SetCandidates(state.Route)
		} else {
			s.stops.SetCandidates(nil)
		}
		s.syncedRoute = state.RouteStatus
	}

	if serviceChanged || state.BoardingStop != s.syncedStop {
		s.stops.SetValue(state.BoardingStop)
		s.syncedStop = state.BoardingStop
	}

	pending := s.watchers[:0]
	for _, w := range s.watchers {
		if w.until(state) {
			w.matched <- state
			continue
		}
		pending = append(pending, w)
	}
	s.watchers = pending
}

// searchAndWait runs input on the loop and waits for the service search it
// triggers to settle
func (s *Session) searchAndWait(ctx context.Context, input func()) error {
	settled := make(chan bool, 1)

	err := s.loop.Call(ctx, func() {
		s.searchSettled = func(current bool) {
			settled <- current
		}
		input()
		s.searchSettled = nil
	})
	if err != nil {
		return err
	}

	select {
	case <-settled:
		return nil
	case <-s.loop.Done():
		return loop.ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TypeService replaces the service search text and waits for the results
func (s *Session) TypeService(ctx context.Context, text string) error {
	return s.searchAndWait(ctx, func() {
		s.services.Type(text)
	})
}

// FocusService opens the service popover, refreshing results for the current text
func (s *Session) FocusService(ctx context.Context) error {
	return s.searchAndWait(ctx, func() {
		s.services.Focus()
	})
}

func (s *Session) PickService(ctx context.Context, label string) error {
	return s.act(ctx, func() error {
		if !s.services.Select(label) {
			return ErrUnknownService
		}
		return nil
	})
}

func (s *Session) TypeStop(ctx context.Context, text string) error {
	return s.loop.Call(ctx, func() {
		s.stops.Type(text)
	})
}

func (s *Session) FocusStop(ctx context.Context) error {
	return s.loop.Call(ctx, func() {
		s.stops.Focus()
	})
}

func (s *Session) PickStop(ctx context.Context, stop string) error {
	return s.act(ctx, func() error {
		if s.stops.Select(stop) {
			return nil
		}

		// Not a candidate; let the controller say why
		return s.controller.Dispatch(tripquery.SelectStop{Stop: stop})
	})
}

// Dismiss closes both popovers
func (s *Session) Dismiss(ctx context.Context) error {
	return s.loop.Call(ctx, func() {
		s.services.Dismiss()
		s.stops.Dismiss()
	})
}

func (s *Session) SetDirection(ctx context.Context, direction model.Direction) error {
	return s.controller.SelectDirection(ctx, direction)
}

func (s *Session) SetDate(ctx context.Context, date model.Date) error {
	return s.controller.SetDate(ctx, date)
}

func (s *Session) SetTime(ctx context.Context, timeOfDay model.TimeOfDay) error {
	return s.controller.SetTime(ctx, timeOfDay)
}

func (s *Session) Reset(ctx context.Context) error {
	return s.act(ctx, func() error {
		s.lookup.Invalidate()
		s.services.Dismiss()
		s.services.SetValue("")
		s.stops.Dismiss()
		s.stops.SetValue("")
		return s.controller.Dispatch(tripquery.Reset{})
	})
}

func (s *Session) Retry(ctx context.Context) error {
	return s.controller.Retry(ctx)
}

// act runs fn on the loop and reports its error or the error left by a
// selector callback it triggered
func (s *Session) act(ctx context.Context, fn func() error) error {
	var actionErr error

	err := s.loop.Call(ctx, func() {
		s.actionErr = nil
		if err := fn(); err != nil {
			actionErr = err
			return
		}
		actionErr = s.actionErr
	})
	if err != nil {
		return err
	}

	return actionErr
}

// ServiceResults are the services behind the current service options
func (s *Session) ServiceResults(ctx context.Context) ([]model.Service, error) {
	var services []model.Service
	err := s.loop.Call(ctx, func() {
		services = s.lookup.Results()
	})

	return services, err
}

// State returns a deep copy of the controller state
func (s *Session) State(ctx context.Context) (tripquery.State, error) {
	return s.controller.Snapshot(ctx)
}

// Await blocks until the controller state satisfies until and returns that
// state. The returned state must be treated as read only.
func (s *Session) Await(ctx context.Context, until func(tripquery.State) bool) (tripquery.State, error) {
	matched := make(chan tripquery.State, 1)

	err := s.loop.Call(ctx, func() {
		current := s.controller.State()
		if until(current) {
			matched <- current
			return
		}
		s.watchers = append(s.watchers, watcher{until: until, matched: matched})
	})
	if err != nil {
		return tripquery.State{}, err
	}

	select {
	case state := <-matched:
		return state, nil
	case <-s.loop.Done():
		return tripquery.State{}, loop.ErrClosed
	case <-ctx.Done():
		_ = s.loop.Post(func() {
			s.dropWatcher(matched)
		})
		return tripquery.State{}, ctx.Err()
	}
}

func (s *Session) dropWatcher(matched chan tripquery.State) {
	for i, w := range s.watchers {
		if w.matched == matched {
			s.watchers = append(s.watchers[:i], s.watchers[i+1:]...)
			return
		}
	}
}

func (s *Session) Close() {
	s.loop.Close()
}
