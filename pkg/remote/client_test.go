package remote

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/travigo/busdelay/pkg/model"
)

func newTestClient(server *httptest.Server) *Client {
	return &Client{
		BaseURL:         server.URL,
		HTTPClient:      server.Client(),
		UserAgent:       "busdelay-test",
		MaxRetries:      2,
		InitialInterval: time.Millisecond,
	}
}

func TestGetServices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/get_services", r.URL.Path)
		assert.Equal(t, "mill", r.URL.Query().Get("query"))
		assert.Equal(t, "busdelay-test", r.Header.Get("User-Agent"))

		w.Write([]byte(`[
			{"id": "A1", "number": "42", "description": "Town - Mill", "origin": "Town Centre", "destination": "Mill End"},
			{"_id": 2087, "number": 7, "description": "Bury - Bolton"}
		]`))
	}))
	defer server.Close()

	services, err := newTestClient(server).GetServices(context.Background(), "mill")
	require.NoError(t, err)
	require.Len(t, services, 2)

	assert.Equal(t, model.Service{ID: "A1", Number: "42", Description: "Town - Mill", Origin: "Town Centre", Destination: "Mill End"}, services[0])
	assert.Equal(t, model.ServiceID("2087"), services[1].ID)
	assert.Equal(t, "7", services[1].Number)
	assert.Equal(t, "Bury", services[1].Origin)
	assert.Equal(t, "Bolton", services[1].Destination)
}

func TestGetServicesSendsEmptyQuery(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		values := r.URL.Query()
		_, present := values["query"]
		assert.True(t, present)
		assert.Equal(t, "", values.Get("query"))
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	services, err := newTestClient(server).GetServices(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, services)
}

func TestGetStops(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/get_stops", r.URL.Path)
		assert.Equal(t, "A1", r.URL.Query().Get("service_id"))
		w.Write([]byte(`["Town Centre", "High St", "Mill End"]`))
	}))
	defer server.Close()

	route, err := newTestClient(server).GetStops(context.Background(), "A1")
	require.NoError(t, err)
	assert.Equal(t, model.Route{"Town Centre", "High St", "Mill End"}, route)
}

func TestParseStopsEnvelope(t *testing.T) {
	route, err := ParseStops([]byte(`{"stops": ["A", "B"]}`))
	require.NoError(t, err)
	assert.Equal(t, model.Route{"A", "B"}, route)

	_, err = ParseStops([]byte(`{"error": "spider timed out", "stops": []}`))
	assert.EqualError(t, err, "spider timed out")

	_, err = ParseStops([]byte(`"nope"`))
	assert.Error(t, err)
}

func TestPredictDelayBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "/predict_delay", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]any{
			"service_id":  "A1",
			"stop_name":   "High St",
			"destination": "Mill End",
			"date":        "2024-05-01",
			"time":        "08:15",
		}, body)

		w.Write([]byte(`{"predicted_delay_mins": 4, "scheduled_dep": "08:12"}`))
	}))
	defer server.Close()

	date, _ := model.ParseDate("2024-05-01")
	request := NewPredictRequest(model.TripQuery{
		ServiceID:       "A1",
		BoardingStop:    "High St",
		DestinationStop: "Mill End",
		Date:            date,
		Time:            model.TimeOfDay{Hour: 8, Minute: 15},
	})

	response, err := newTestClient(server).PredictDelay(context.Background(), request)
	require.NoError(t, err)
	require.NotNil(t, response.PredictedDelayMins)
	assert.Equal(t, 4.0, *response.PredictedDelayMins)
	assert.Equal(t, "08:12", response.ScheduledDep)
}

func TestPredictDelayNumericServiceID(t *testing.T) {
	encoded, err := json.Marshal(PredictRequest{ServiceID: "2087"})
	require.NoError(t, err)
	assert.Contains(t, string(encoded), `"service_id":2087`)

	encoded, err = json.Marshal(PredictRequest{ServiceID: "007"})
	require.NoError(t, err)
	assert.Contains(t, string(encoded), `"service_id":7,`)
	assert.True(t, json.Valid(encoded))

	encoded, err = json.Marshal(PredictRequest{ServiceID: "A1"})
	require.NoError(t, err)
	assert.Contains(t, string(encoded), `"service_id":"A1"`)
}

func TestRetriesTransientStatus(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`["A"]`))
	}))
	defer server.Close()

	route, err := newTestClient(server).GetStops(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, model.Route{"A"}, route)
	assert.Equal(t, int32(3), calls.Load())
}

func TestDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"detail": "No matching history found"}`))
	}))
	defer server.Close()

	_, err := newTestClient(server).PredictDelay(context.Background(), PredictRequest{})

	var statusError *StatusError
	require.True(t, errors.As(err, &statusError))
	assert.Equal(t, http.StatusNotFound, statusError.StatusCode)
	assert.Equal(t, "No matching history found", statusError.Detail)
	assert.Equal(t, int32(1), calls.Load())
}

func TestGivesUpAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := newTestClient(server).GetServices(context.Background(), "")
	assert.Error(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestDecodeFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{not json`))
	}))
	defer server.Close()

	_, err := newTestClient(server).GetServices(context.Background(), "")
	assert.ErrorContains(t, err, "decode /get_services response")
}
