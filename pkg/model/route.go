package model

import (
	"fmt"

	"golang.org/x/exp/slices"
)

// Route is the ordered stop sequence of one Service. The first stop is the
// nominal origin and the last the nominal destination.
type Route []string

func (r Route) IsEmpty() bool {
	return len(r) == 0
}

func (r Route) Origin() string {
	if r.IsEmpty() {
		return ""
	}
	return r[0]
}

func (r Route) Terminus() string {
	if r.IsEmpty() {
		return ""
	}
	return r[len(r)-1]
}

func (r Route) Contains(stop string) bool {
	return stop != "" && slices.Contains(r, stop)
}

// DestinationFor gives the stop a journey in direction d heads towards
func (r Route) DestinationFor(d Direction) (string, bool) {
	if r.IsEmpty() {
		return "", false
	}

	switch d {
	case DirectionForward:
		return r.Terminus(), true
	case DirectionReverse:
		return r.Origin(), true
	default:
		return "", false
	}
}

// Directions lists both travel directions derived from the route endpoints
func (r Route) Directions() []DirectionOption {
	if r.IsEmpty() {
		return nil
	}

	return []DirectionOption{
		{Direction: DirectionForward, From: r.Origin(), To: r.Terminus()},
		{Direction: DirectionReverse, From: r.Terminus(), To: r.Origin()},
	}
}

type DirectionOption struct {
	Direction Direction `json:"direction" groups:"basic"`
	From      string    `json:"from" groups:"basic"`
	To        string    `json:"to" groups:"basic"`
}

func (o DirectionOption) Label() string {
	return fmt.Sprintf("%s → %s", o.From, o.To)
}
