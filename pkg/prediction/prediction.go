// Package prediction wraps the remote delay estimator. Every outcome,
// including transport failures and panics in the transport, is returned as
// a model.PredictionResult.
package prediction

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"

	"github.com/rs/zerolog/log"
	"github.com/travigo/busdelay/pkg/model"
	"github.com/travigo/busdelay/pkg/remote"
)

type Estimator interface {
	PredictDelay(ctx context.Context, request remote.PredictRequest) (*remote.PredictResponse, error)
}

type Client struct {
	Estimator Estimator
}

func NewClient(estimator Estimator) *Client {
	return &Client{Estimator: estimator}
}

func (c *Client) Predict(ctx context.Context, query model.TripQuery) (result model.PredictionResult) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("stage", "prediction").Interface("panic", r).Msg("Delay estimator panicked")
			result = model.FailedPrediction(fmt.Sprintf("estimator panic: %v", r))
		}
	}()

	response, err := c.Estimator.PredictDelay(ctx, remote.NewPredictRequest(query))
	if err != nil {
		var statusError *remote.StatusError
		if errors.As(err, &statusError) && statusError.StatusCode == http.StatusNotFound {
			log.Info().Str("query", query.Fingerprint()).Str("detail", statusError.Detail).Msg("No historical journey for query")
			return model.NoMatchPrediction()
		}

		log.Error().Err(err).Str("stage", "prediction").Str("query", query.Fingerprint()).Msg("Failed to get delay prediction")
		return model.FailedPrediction(err.Error())
	}

	result = Classify(response)
	if result.Status == model.PredictionNoMatch {
		log.Info().Str("query", query.Fingerprint()).Msg("No historical journey for query")
	}

	return result
}

// maxDelayMinutes bounds delays that are treated as usable
const maxDelayMinutes = math.MaxInt32

// Classify maps an estimator reply onto Resolved or NoMatch. Early
// departures are reported as on time.
func Classify(response *remote.PredictResponse) model.PredictionResult {
	if response == nil || response.PredictedDelayMins == nil {
		return model.NoMatchPrediction()
	}

	delay := *response.PredictedDelayMins
	if math.IsNaN(delay) || math.IsInf(delay, 0) || delay > maxDelayMinutes {
		log.Debug().Float64("delay", delay).Msg("Ignoring unusable predicted delay")
		return model.NoMatchPrediction()
	}

	minutes := 0
	if delay > 0 {
		minutes = int(math.Round(delay))
	}

	var scheduled *model.TimeOfDay
	if response.ScheduledDep != "" {
		if parsed, err := model.ParseTimeOfDay(response.ScheduledDep); err == nil {
			scheduled = &parsed
		} else {
			log.Debug().Str("scheduled_dep", response.ScheduledDep).Msg("Ignoring unparseable scheduled departure")
		}
	}

	return model.ResolvedPrediction(minutes, scheduled)
}
