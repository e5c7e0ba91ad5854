package model

import "fmt"

type PredictionStatus int

const (
	PredictionIdle PredictionStatus = iota
	PredictionPending
	PredictionResolved
	PredictionNoMatch
	PredictionFailed
)

func (s PredictionStatus) String() string {
	switch s {
	case PredictionPending:
		return "pending"
	case PredictionResolved:
		return "resolved"
	case PredictionNoMatch:
		return "no_match"
	case PredictionFailed:
		return "failed"
	default:
		return "idle"
	}
}

func (s PredictionStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// PredictionResult is exactly one of Idle, Pending, Resolved, NoMatch or Failed.
// DelayMinutes and ScheduledDeparture are only meaningful for Resolved, Reason
// only for Failed.
type PredictionResult struct {
	Status             PredictionStatus `json:"status" groups:"basic"`
	DelayMinutes       int              `json:"delay_minutes,omitempty" groups:"basic"`
	ScheduledDeparture *TimeOfDay       `json:"scheduled_departure,omitempty" groups:"basic"`
	Reason             string           `json:"reason,omitempty" groups:"detailed"`
}

func PendingPrediction() PredictionResult {
	return PredictionResult{Status: PredictionPending}
}

func ResolvedPrediction(delayMinutes int, scheduled *TimeOfDay) PredictionResult {
	return PredictionResult{Status: PredictionResolved, DelayMinutes: delayMinutes, ScheduledDeparture: scheduled}
}

func NoMatchPrediction() PredictionResult {
	return PredictionResult{Status: PredictionNoMatch}
}

func FailedPrediction(reason string) PredictionResult {
	return PredictionResult{Status: PredictionFailed, Reason: reason}
}

func (r PredictionResult) String() string {
	switch r.Status {
	case PredictionResolved:
		return fmt.Sprintf("resolved(%d)", r.DelayMinutes)
	case PredictionFailed:
		return fmt.Sprintf("failed(%s)", r.Reason)
	default:
		return r.Status.String()
	}
}
