package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/kr/pretty"
	"github.com/rs/zerolog/log"
	"github.com/travigo/busdelay/pkg/model"
	"github.com/travigo/busdelay/pkg/session"
	"github.com/travigo/busdelay/pkg/tripquery"
)

var ErrServiceNotFound = errors.New("no service matches")

const departureLayout = "15:04 on Mon 2 Jan 2006"

type predictOptions struct {
	Service   string
	Stop      string
	Direction model.Direction
	Date      model.Date
	Time      model.TimeOfDay
	Debug     bool
}

// matchService finds a service by id, route number or label
func matchService(services []model.Service, wanted string) (model.Service, bool) {
	for _, service := range services {
		if service.ID.String() == wanted || service.Number == wanted || service.Label() == wanted {
			return service, true
		}
	}

	return model.Service{}, false
}

func findService(ctx context.Context, sess *session.Session, wanted string) (model.Service, error) {
	for _, query := range []string{wanted, ""} {
		if err := sess.TypeService(ctx, query); err != nil {
			return model.Service{}, err
		}

		results, err := sess.ServiceResults(ctx)
		if err != nil {
			return model.Service{}, err
		}

		if service, ok := matchService(results, wanted); ok {
			return service, nil
		}
	}

	return model.Service{}, fmt.Errorf("%w %q", ErrServiceNotFound, wanted)
}

func predictionSettled(state tripquery.State) bool {
	switch state.Prediction.Status {
	case model.PredictionResolved, model.PredictionNoMatch, model.PredictionFailed:
		return true
	}

	return false
}

func routeSettled(state tripquery.State) bool {
	return state.RouteStatus == tripquery.RouteResolved || state.RouteStatus == tripquery.RouteFailed
}

// runPredict fills in one session from the options and writes the result to out
func runPredict(ctx context.Context, deps session.Dependencies, options predictOptions, out io.Writer) (session.View, error) {
	sess, err := session.New(deps)
	if err != nil {
		return session.View{}, err
	}
	defer sess.Close()

	service, err := findService(ctx, sess, options.Service)
	if err != nil {
		return session.View{}, err
	}

	if err := sess.PickService(ctx, service.Label()); err != nil {
		return session.View{}, err
	}

	state, err := sess.Await(ctx, routeSettled)
	if err != nil {
		return session.View{}, err
	}
	if state.RouteStatus == tripquery.RouteFailed {
		return session.View{}, fmt.Errorf("could not load stops of %s: %s", service.Label(), state.RouteError)
	}

	if err := sess.PickStop(ctx, options.Stop); err != nil {
		return session.View{}, fmt.Errorf("stop %q: %w", options.Stop, err)
	}
	if err := sess.SetDirection(ctx, options.Direction); err != nil {
		return session.View{}, err
	}
	if err := sess.SetDate(ctx, options.Date); err != nil {
		return session.View{}, err
	}
	if err := sess.SetTime(ctx, options.Time); err != nil {
		return session.View{}, err
	}

	state, err = sess.Await(ctx, predictionSettled)
	if err != nil {
		return session.View{}, err
	}

	if options.Debug {
		fmt.Fprintf(out, "%# v\n", pretty.Formatter(state))
	}

	view, err := sess.View(ctx)
	if err != nil {
		return session.View{}, err
	}

	if state.Prediction.Status == model.PredictionFailed {
		return view, fmt.Errorf("prediction failed: %s", state.Prediction.Reason)
	}

	log.Debug().
		Str("service", service.Label()).
		Str("from", view.BoardingStop).
		Str("towards", view.DestinationStop).
		Str("result", state.Prediction.String()).
		Msg("Prediction settled")

	query, _ := state.Query()
	departure := query.Departure(time.Local)

	fmt.Fprintf(out, "%s from %s towards %s at %s\n", service.Label(), query.BoardingStop, query.DestinationStop, departure.Format(departureLayout))
	fmt.Fprintln(out, view.Punctuality.Message)
	if view.Punctuality.ScheduledDeparture != "" {
		fmt.Fprintf(out, "Scheduled departure %s\n", view.Punctuality.ScheduledDeparture)
	}

	return view, nil
}
