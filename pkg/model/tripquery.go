package model

import (
	"strings"
	"time"
)

// TripQuery is a complete, consistent set of inputs for a delay prediction.
// It is only built by tripquery.State.Query once every field checks out.
type TripQuery struct {
	ServiceID       ServiceID `json:"service_id" groups:"basic"`
	BoardingStop    string    `json:"stop_name" groups:"basic"`
	DestinationStop string    `json:"destination" groups:"basic"`
	Date            Date      `json:"date" groups:"basic"`
	Time            TimeOfDay `json:"time" groups:"basic"`
}

// Fingerprint is a readable summary of the query for logs. Compare queries
// with == since stop names may contain the separator.
func (q TripQuery) Fingerprint() string {
	return strings.Join([]string{
		q.ServiceID.String(),
		q.BoardingStop,
		q.DestinationStop,
		q.Date.String(),
		q.Time.String(),
	}, "|")
}

func (q TripQuery) Departure(loc *time.Location) time.Time {
	return q.Time.On(q.Date, loc)
}
