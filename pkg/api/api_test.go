package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/travigo/busdelay/pkg/config"
	"github.com/travigo/busdelay/pkg/session"
)

type fakeBackend struct {
	t *testing.T

	mu       sync.Mutex
	predicts []map[string]any
}

func (b *fakeBackend) requests() []map[string]any {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]map[string]any(nil), b.predicts...)
}

func (b *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	switch r.URL.Path {
	case "/get_services":
		w.Write([]byte(`[
			{"id": "A1", "number": "1", "description": "Town Centre - Mill End"},
			{"id": 42, "number": "42", "description": "Station - Harbour"}
		]`))
	case "/get_stops":
		if r.URL.Query().Get("service_id") == "A1" {
			w.Write([]byte(`["Town Centre", "High St", "Park Rd", "Mill End"]`))
			return
		}
		w.Write([]byte(`{"stops": ["Station", "Market", "Harbour"]}`))
	case "/predict_delay":
		var body map[string]any
		assert.NoError(b.t, json.NewDecoder(r.Body).Decode(&body))

		b.mu.Lock()
		b.predicts = append(b.predicts, body)
		b.mu.Unlock()

		if body["time"] == "09:00" {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"detail": "No matching history found"}`))
			return
		}
		w.Write([]byte(`{"predicted_delay_mins": 4, "scheduled_dep": "08:12"}`))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func newTestApp(t *testing.T) (*fiber.App, *fakeBackend) {
	backend := &fakeBackend{t: t}
	server := httptest.NewServer(backend)
	t.Cleanup(server.Close)

	cfg := config.Default()
	cfg.Remote.BaseURL = server.URL
	cfg.Remote.MaxRetries = 0

	deps, err := session.NewDependencies(cfg)
	require.NoError(t, err)

	manager := session.NewManager(deps, time.Minute)
	t.Cleanup(manager.Close)

	return NewApp(manager), backend
}

func call(t *testing.T, app *fiber.App, method string, path string, body any) (int, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := app.Test(req, 5000)
	require.NoError(t, err)
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var decoded map[string]any
	if len(payload) > 0 {
		require.NoError(t, json.Unmarshal(payload, &decoded), string(payload))
	}

	return resp.StatusCode, decoded
}

func awaitView(t *testing.T, app *fiber.App, path string, until func(view map[string]any) bool) map[string]any {
	t.Helper()

	var view map[string]any
	require.Eventually(t, func() bool {
		status, decoded := call(t, app, "GET", path, nil)
		if status != fiber.StatusOK {
			return false
		}
		view = decoded
		return until(decoded)
	}, 3*time.Second, 10*time.Millisecond)

	return view
}

func punctualityOf(view map[string]any) map[string]any {
	display, _ := view["punctuality"].(map[string]any)
	return display
}

func TestSessionFlow(t *testing.T) {
	app, backend := newTestApp(t)

	status, created := call(t, app, "POST", "/sessions", nil)
	require.Equal(t, fiber.StatusCreated, status)
	id, _ := created["id"].(string)
	require.NotEmpty(t, id)
	base := "/sessions/" + id

	status, view := call(t, app, "POST", base+"/services/query", map[string]string{"text": "mill"})
	require.Equal(t, fiber.StatusOK, status)
	services := view["services"].(map[string]any)
	assert.Equal(t, true, services["open"])
	assert.Equal(t, []any{"1: Town Centre - Mill End", "42: Station - Harbour"}, services["options"])

	status, _ = call(t, app, "POST", base+"/services/select", map[string]string{"label": "1: Town Centre - Mill End"})
	require.Equal(t, fiber.StatusOK, status)

	view = awaitView(t, app, base, func(view map[string]any) bool {
		return view["route_status"] == "resolved"
	})
	assert.Len(t, view["directions"], 2)

	status, _ = call(t, app, "POST", base+"/stops/select", map[string]string{"stop": "Harbour"})
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)

	for path, body := range map[string]map[string]string{
		"/stops/select": {"stop": "High St"},
		"/direction":    {"direction": "forward"},
		"/date":         {"date": "2024-05-01"},
	} {
		status, _ = call(t, app, "POST", base+path, body)
		require.Equal(t, fiber.StatusOK, status, path)
	}
	assert.Empty(t, backend.requests())

	status, _ = call(t, app, "POST", base+"/time", map[string]string{"time": "08:15"})
	require.Equal(t, fiber.StatusOK, status)

	view = awaitView(t, app, base, func(view map[string]any) bool {
		return punctualityOf(view)["kind"] == "late"
	})
	assert.Equal(t, "4 minutes late", punctualityOf(view)["message"])
	assert.Equal(t, "08:12", punctualityOf(view)["scheduled_departure"])
	assert.Equal(t, "minor", punctualityOf(view)["severity"])
	assert.Equal(t, "Mill End", view["destination_stop"])
	assert.NotContains(t, view, "prediction")

	require.Len(t, backend.requests(), 1)
	assert.Equal(t, map[string]any{
		"service_id":  "A1",
		"stop_name":   "High St",
		"destination": "Mill End",
		"date":        "2024-05-01",
		"time":        "08:15",
	}, backend.requests()[0])

	status, _ = call(t, app, "POST", base+"/time", map[string]string{"time": "09:00"})
	require.Equal(t, fiber.StatusOK, status)
	view = awaitView(t, app, base, func(view map[string]any) bool {
		return punctualityOf(view)["kind"] == "no_match"
	})
	assert.Equal(t, "No journey at this time. Please try another time.", punctualityOf(view)["message"])

	status, detailed := call(t, app, "GET", base+"?detail=full", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Contains(t, detailed, "prediction")
	assert.Equal(t, float64(2), detailed["predictions_issued"])

	status, view = call(t, app, "POST", base+"/reset", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Nil(t, view["service"])
	assert.Equal(t, "hidden", punctualityOf(view)["kind"])

	status, _ = call(t, app, "DELETE", base, nil)
	assert.Equal(t, fiber.StatusNoContent, status)

	status, _ = call(t, app, "GET", base, nil)
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestSessionValidation(t *testing.T) {
	app, _ := newTestApp(t)

	status, body := call(t, app, "GET", "/sessions/missing", nil)
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Contains(t, body, "error")

	_, created := call(t, app, "POST", "/sessions", nil)
	base := "/sessions/" + created["id"].(string)

	status, _ = call(t, app, "POST", base+"/date", map[string]string{"date": "01/05/2024"})
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)

	status, _ = call(t, app, "POST", base+"/time", map[string]string{"time": "25:00"})
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)

	status, _ = call(t, app, "POST", base+"/direction", map[string]string{"direction": "forward"})
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)

	status, _ = call(t, app, "POST", base+"/services/select", map[string]string{"label": "7: Nowhere"})
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)

	status, _ = call(t, app, "POST", base+"/date", map[string]string{"date": "2024-05-01"})
	assert.Equal(t, fiber.StatusOK, status)
}

func TestVersion(t *testing.T) {
	app, _ := newTestApp(t)

	status, body := call(t, app, "GET", "/version", nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "busdelay", body["name"])
}

func TestJanitorInterval(t *testing.T) {
	assert.Equal(t, time.Second, janitorInterval(time.Second))
	assert.Equal(t, 5*time.Minute, janitorInterval(20*time.Minute))
}
