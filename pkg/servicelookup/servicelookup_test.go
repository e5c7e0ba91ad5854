package servicelookup

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/travigo/busdelay/pkg/loop"
	"github.com/travigo/busdelay/pkg/model"
)

// gatedDirectory holds every response until the test releases it
type gatedDirectory struct {
	mu    sync.Mutex
	gates map[string]chan struct{}
	fail  map[string]bool
}

func newGatedDirectory() *gatedDirectory {
	return &gatedDirectory{gates: map[string]chan struct{}{}, fail: map[string]bool{}}
}

func (d *gatedDirectory) gate(query string) chan struct{} {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.gates[query] == nil {
		d.gates[query] = make(chan struct{})
	}
	return d.gates[query]
}

func (d *gatedDirectory) release(query string) {
	close(d.gate(query))
}

func (d *gatedDirectory) GetServices(ctx context.Context, query string) ([]model.Service, error) {
	select {
	case <-d.gate(query):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fail[query] {
		return nil, errors.New("directory unavailable")
	}

	return []model.Service{{ID: model.ServiceID(query), Number: query}}, nil
}

func results(t *testing.T, l *loop.Loop, lookup *Lookup) []model.Service {
	var services []model.Service
	require.NoError(t, l.Call(context.Background(), func() { services = lookup.Results() }))
	return services
}

func TestLastRequestWins(t *testing.T) {
	l := loop.New().Start()
	defer l.Close()

	directory := newGatedDirectory()
	lookup := New(l, directory)

	applied := make(chan bool, 2)
	require.NoError(t, l.Call(context.Background(), func() {
		lookup.SearchNotify("4", func(current bool) { applied <- current })
		lookup.SearchNotify("42", func(current bool) { applied <- current })
	}))

	// newest response arrives first
	directory.release("42")
	assert.True(t, <-applied)

	directory.release("4")
	assert.False(t, <-applied)

	services := results(t, l, lookup)
	require.Len(t, services, 1)
	assert.Equal(t, "42", services[0].Number)
}

func TestStaleResponseAfterNewerIsIgnored(t *testing.T) {
	l := loop.New().Start()
	defer l.Close()

	directory := newGatedDirectory()
	lookup := New(l, directory)

	var applied []string
	lookup.OnResults = func(services []model.Service) {
		applied = append(applied, services[0].Number)
	}

	settled := make(chan bool, 2)
	require.NoError(t, l.Call(context.Background(), func() {
		lookup.SearchNotify("1", func(current bool) { settled <- current })
		lookup.SearchNotify("12", func(current bool) { settled <- current })
	}))

	directory.release("1")
	assert.False(t, <-settled)
	directory.release("12")
	assert.True(t, <-settled)

	var seen []string
	require.NoError(t, l.Call(context.Background(), func() { seen = append(seen, applied...) }))
	assert.Equal(t, []string{"12"}, seen)
}

func TestFailureEmptiesResults(t *testing.T) {
	l := loop.New().Start()
	defer l.Close()

	directory := newGatedDirectory()
	lookup := New(l, directory)

	directory.release("ok")
	services, current, err := lookup.SearchWait(context.Background(), "ok")
	require.NoError(t, err)
	assert.True(t, current)
	assert.Len(t, services, 1)

	directory.fail["bad"] = true
	directory.release("bad")
	services, current, err = lookup.SearchWait(context.Background(), "bad")
	require.NoError(t, err)
	assert.True(t, current)
	assert.Empty(t, services)
	assert.Empty(t, results(t, l, lookup))
}

func TestEmptyQueryIsLegal(t *testing.T) {
	l := loop.New().Start()
	defer l.Close()

	directory := newGatedDirectory()
	lookup := New(l, directory)
	directory.release("")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	services, current, err := lookup.SearchWait(ctx, "")
	require.NoError(t, err)
	assert.True(t, current)
	assert.Len(t, services, 1)
}

func TestInvalidateDropsSearchInFlight(t *testing.T) {
	l := loop.New().Start()
	defer l.Close()

	directory := newGatedDirectory()
	lookup := New(l, directory)

	directory.release("ok")
	_, _, err := lookup.SearchWait(context.Background(), "ok")
	require.NoError(t, err)

	cleared := false
	lookup.OnResults = func(services []model.Service) { cleared = len(services) == 0 }

	settled := make(chan bool, 1)
	require.NoError(t, l.Call(context.Background(), func() {
		lookup.SearchNotify("late", func(current bool) { settled <- current })
		lookup.Invalidate()
	}))

	directory.release("late")
	assert.False(t, <-settled)

	assert.Empty(t, results(t, l, lookup))
	require.NoError(t, l.Call(context.Background(), func() {
		assert.True(t, cleared)
		assert.Empty(t, lookup.Query())
	}))
}
