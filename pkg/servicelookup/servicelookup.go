// Package servicelookup resolves typed text to bus services through the
// remote directory. Responses can arrive out of order; only the response to
// the most recent search is applied.
package servicelookup

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/travigo/busdelay/pkg/generation"
	"github.com/travigo/busdelay/pkg/loop"
	"github.com/travigo/busdelay/pkg/model"
	"golang.org/x/exp/slices"
)

type Directory interface {
	GetServices(ctx context.Context, query string) ([]model.Service, error)
}

type Lookup struct {
	loop      *loop.Loop
	directory Directory
	sequence  generation.Counter

	results []model.Service
	query   string

	// OnResults runs on the loop whenever the applied result set changes
	OnResults func(services []model.Service)
}

type searchResult struct {
	services []model.Service
	err      error
}

func New(l *loop.Loop, directory Directory) *Lookup {
	return &Lookup{loop: l, directory: directory}
}

// Search requests services matching query. Safe to call from the loop.
func (l *Lookup) Search(query string) generation.Ticket {
	return l.SearchNotify(query, nil)
}

// SearchNotify is Search with a callback, run on the loop, once the response
// has either been applied (current) or discarded as stale
func (l *Lookup) SearchNotify(query string, settled func(current bool)) generation.Ticket {
	ticket := l.sequence.Next()

	loop.Spawn(l.loop, func(ctx context.Context) searchResult {
		services, err := l.directory.GetServices(ctx, query)
		return searchResult{services: services, err: err}
	}, func(result searchResult) {
		current := l.apply(ticket, query, result)
		if settled != nil {
			settled(current)
		}
	})

	return ticket
}

func (l *Lookup) apply(ticket generation.Ticket, query string, result searchResult) bool {
	if !l.sequence.Current(ticket) {
		log.Debug().Str("query", query).Msg("Discarding stale service search response")
		return false
	}

	l.query = query

	if result.err != nil {
		log.Error().Err(result.err).Str("stage", "services").Str("query", query).Msg("Failed to search services")
		l.results = nil
	} else {
		l.results = result.services
	}

	if l.OnResults != nil {
		l.OnResults(l.Results())
	}

	return true
}

// Invalidate discards any search still in flight and clears the applied
// results. Pending SearchNotify callbacks still run, reporting stale.
func (l *Lookup) Invalidate() {
	l.sequence.Invalidate()
	l.query = ""

	if l.results == nil {
		return
	}
	l.results = nil

	if l.OnResults != nil {
		l.OnResults(nil)
	}
}

// Results is the last applied result set. Must be read on the loop.
func (l *Lookup) Results() []model.Service {
	return slices.Clone(l.results)
}

// Query is the text behind the last applied result set
func (l *Lookup) Query() string {
	return l.query
}

// SearchWait runs a search from outside the loop and blocks until it settles.
// It returns the applied results and whether they belong to this search.
func (l *Lookup) SearchWait(ctx context.Context, query string) ([]model.Service, bool, error) {
	type outcome struct {
		services []model.Service
		current  bool
	}
	settled := make(chan outcome, 1)

	err := l.loop.Call(ctx, func() {
		l.SearchNotify(query, func(current bool) {
			settled <- outcome{services: l.Results(), current: current}
		})
	})
	if err != nil {
		return nil, false, err
	}

	select {
	case result := <-settled:
		return result.services, result.current, nil
	case <-l.loop.Done():
		return nil, false, loop.ErrClosed
	case <-ctx.Done():
		return nil, false, ctx.Err()
	}
}
