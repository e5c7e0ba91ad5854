package remote

import (
	"context"

	"github.com/travigo/busdelay/pkg/model"
)

const predictEndpoint = "/predict_delay"

type PredictRequest struct {
	ServiceID   model.ServiceID `json:"service_id"`
	StopName    string          `json:"stop_name"`
	Destination string          `json:"destination"`
	Date        string          `json:"date"`
	Time        string          `json:"time"`
}

func NewPredictRequest(q model.TripQuery) PredictRequest {
	return PredictRequest{
		ServiceID:   q.ServiceID,
		StopName:    q.BoardingStop,
		Destination: q.DestinationStop,
		Date:        q.Date.String(),
		Time:        q.Time.String(),
	}
}

// PredictResponse is the raw estimator reply. A null delay means no
// historical journey was found near the requested time.
type PredictResponse struct {
	PredictedDelayMins *float64 `json:"predicted_delay_mins"`
	ScheduledDep       string   `json:"scheduled_dep"`
}

func (c *Client) PredictDelay(ctx context.Context, request PredictRequest) (*PredictResponse, error) {
	var response PredictResponse

	if err := c.do(ctx, "POST", predictEndpoint, nil, request, &response); err != nil {
		return nil, err
	}

	return &response, nil
}
