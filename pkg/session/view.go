package session

import (
	"context"

	"github.com/travigo/busdelay/pkg/model"
	"github.com/travigo/busdelay/pkg/punctuality"
	"github.com/travigo/busdelay/pkg/selector"
	"github.com/travigo/busdelay/pkg/tripquery"
)

// View is everything a client needs to draw the form
type View struct {
	Services selector.View `json:"services" groups:"basic"`
	Stops    selector.View `json:"stops" groups:"basic"`

	Service     *model.Service          `json:"service" groups:"basic"`
	RouteStatus tripquery.RouteStatus   `json:"route_status" groups:"basic"`
	RouteError  string                  `json:"route_error,omitempty" groups:"basic"`
	Directions  []model.DirectionOption `json:"directions" groups:"basic"`

	BoardingStop    string          `json:"boarding_stop" groups:"basic"`
	Direction       model.Direction `json:"direction" groups:"basic"`
	DestinationStop string          `json:"destination_stop" groups:"basic"`
	Date            string          `json:"date" groups:"basic"`
	Time            string          `json:"time" groups:"basic"`

	Punctuality punctuality.Display `json:"punctuality" groups:"basic"`

	Prediction        model.PredictionResult `json:"prediction" groups:"detailed"`
	Query             *model.TripQuery       `json:"query,omitempty" groups:"detailed"`
	PredictionsIssued int                    `json:"predictions_issued" groups:"detailed"`
}

func (s *Session) View(ctx context.Context) (View, error) {
	var view View

	err := s.loop.Call(ctx, func() {
		view = s.buildView()
	})

	return view, err
}

func (s *Session) buildView() View {
	state := s.controller.State()

	view := View{
		Services:          s.services.View(),
		Stops:             s.stops.View(),
		RouteStatus:       state.RouteStatus,
		RouteError:        state.RouteError,
		Directions:        append([]model.DirectionOption{}, state.Directions...),
		BoardingStop:      state.BoardingStop,
		Direction:         state.Direction,
		Date:              state.Date.String(),
		Punctuality:       s.renderer.Render(state.Prediction),
		Prediction:        state.Prediction,
		PredictionsIssued: s.controller.PredictionsIssued(),
	}

	if state.Service != nil {
		service := *state.Service
		view.Service = &service
	}

	if destination, ok := state.DestinationStop(); ok {
		view.DestinationStop = destination
	}

	if state.Time != nil {
		view.Time = state.Time.String()
	}

	if query, ok := state.Query(); ok {
		view.Query = &query
	}

	return view
}
