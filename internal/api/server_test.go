package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/homelink-bridge/internal/action"
	"github.com/nerrad567/homelink-bridge/internal/infrastructure/config"
	"github.com/nerrad567/homelink-bridge/internal/infrastructure/logging"
	"github.com/nerrad567/homelink-bridge/internal/reading"
)

// fakeReadings is a canned ReadingStore.
type fakeReadings struct {
	latest     *reading.SensorReading
	latestErr  error
	history    []reading.SensorReading
	historyErr error
	gotFilter  reading.Filter
}

func (f *fakeReadings) Latest(_ context.Context, _ string) (*reading.SensorReading, error) {
	return f.latest, f.latestErr
}

func (f *fakeReadings) History(_ context.Context, filter reading.Filter) ([]reading.SensorReading, error) {
	f.gotFilter = filter
	return f.history, f.historyErr
}

// fakeCache is a canned LatestCache.
type fakeCache struct {
	latest *reading.SensorReading
	err    error
}

func (f *fakeCache) Latest(_ context.Context, _ string) (*reading.SensorReading, error) {
	return f.latest, f.err
}

// fakeActions is a canned ActionStore.
type fakeActions struct {
	result    *action.ListResult
	err       error
	gotFilter action.Filter
}

func (f *fakeActions) List(_ context.Context, filter action.Filter) (*action.ListResult, error) {
	f.gotFilter = filter
	return f.result, f.err
}

// testServer creates a Server wired to fake stores.
func testServer(t *testing.T, readings ReadingStore, cache LatestCache, actions ActionStore) *Server {
	t.Helper()

	log := logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stdout"}, "test")

	srv, err := New(Deps{
		Config: config.APIConfig{
			Host: "127.0.0.1",
			Port: 0,
			Timeouts: config.APITimeoutConfig{
				Read:  5,
				Write: 5,
				Idle:  5,
			},
		},
		WS: config.WebSocketConfig{
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Logger:   log,
		Readings: readings,
		Cache:    cache,
		Actions:  actions,
		Version:  "test",
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	// Initialise hub for tests
	srv.hub = NewHub(srv.wsCfg, log)

	return srv
}

func doRequest(t *testing.T, srv *Server, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	srv.buildRouter().ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return env
}

func TestNew_RequiresDependencies(t *testing.T) {
	log := logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stdout"}, "test")

	if _, err := New(Deps{Readings: &fakeReadings{}, Actions: &fakeActions{}}); err == nil {
		t.Error("New() without logger should fail")
	}
	if _, err := New(Deps{Logger: log, Actions: &fakeActions{}}); err == nil {
		t.Error("New() without reading store should fail")
	}
	if _, err := New(Deps{Logger: log, Readings: &fakeReadings{}}); err == nil {
		t.Error("New() without action store should fail")
	}
}

func TestHandleHealth(t *testing.T) {
	srv := testServer(t, &fakeReadings{}, nil, &fakeActions{})
	rec := doRequest(t, srv, http.MethodGet, "/health")

	if rec.Code != http.StatusOK {
		t.Fatalf("GET /health status = %d, want 200", rec.Code)
	}
	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decoding health body: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("health status = %v, want ok", body["status"])
	}
	if body["version"] != "test" {
		t.Errorf("health version = %v, want test", body["version"])
	}
}

func TestHandleLatestReading_Found(t *testing.T) {
	temp := 21.5
	readings := &fakeReadings{
		latest: &reading.SensorReading{
			ID:          1,
			SensorID:    reading.StreamDHT22,
			Temperature: &temp,
			Timestamp:   time.Now().UTC(),
		},
	}
	srv := testServer(t, readings, nil, &fakeActions{})

	rec := doRequest(t, srv, http.MethodGet, "/sensor/latest")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	env := decodeEnvelope(t, rec)
	if !env.Success {
		t.Error("success = false, want true")
	}
	data, ok := env.Data.(map[string]any)
	if !ok {
		t.Fatalf("data type = %T", env.Data)
	}
	if data["sensorId"] != reading.StreamDHT22 {
		t.Errorf("sensorId = %v, want %v", data["sensorId"], reading.StreamDHT22)
	}
}

func TestHandleLatestReading_Empty(t *testing.T) {
	srv := testServer(t, &fakeReadings{latestErr: reading.ErrNotFound}, nil, &fakeActions{})

	rec := doRequest(t, srv, http.MethodGet, "/sensor/latest")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	env := decodeEnvelope(t, rec)
	if env.Success {
		t.Error("success = true, want false")
	}
	if env.Message != "No sensor data available" {
		t.Errorf("message = %q, want %q", env.Message, "No sensor data available")
	}
}

func TestHandleLatestReading_StorageError(t *testing.T) {
	srv := testServer(t, &fakeReadings{latestErr: reading.ErrStorage}, nil, &fakeActions{})

	rec := doRequest(t, srv, http.MethodGet, "/sensor/latest")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if decodeEnvelope(t, rec).Success {
		t.Error("success = true, want false")
	}
}

func TestHandleLatestReading_CacheHit(t *testing.T) {
	gas := 300.0
	cache := &fakeCache{latest: &reading.SensorReading{SensorID: reading.StreamMQ2, Gas: &gas}}
	// Repo errors: a cache hit must short-circuit before it.
	srv := testServer(t, &fakeReadings{latestErr: reading.ErrStorage}, cache, &fakeActions{})

	rec := doRequest(t, srv, http.MethodGet, "/sensor/latest")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 from cache", rec.Code)
	}
}

func TestHandleLatestReading_CacheMissFallsBack(t *testing.T) {
	motion := true
	cache := &fakeCache{err: reading.ErrCacheMiss}
	readings := &fakeReadings{latest: &reading.SensorReading{SensorID: reading.StreamMotion, Motion: &motion}}
	srv := testServer(t, readings, cache, &fakeActions{})

	rec := doRequest(t, srv, http.MethodGet, "/sensor/latest")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 from repository", rec.Code)
	}
}

func TestHandleReadingHistory(t *testing.T) {
	readings := &fakeReadings{history: []reading.SensorReading{{SensorID: reading.StreamDHT22}}}
	srv := testServer(t, readings, nil, &fakeActions{})

	rec := doRequest(t, srv, http.MethodGet, "/sensor/history?sensorId=DHT22&limit=10&offset=5")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if readings.gotFilter.SensorID != "DHT22" || readings.gotFilter.Limit != 10 || readings.gotFilter.Offset != 5 {
		t.Errorf("filter = %+v", readings.gotFilter)
	}
}

func TestHandleReadingHistory_BadLimit(t *testing.T) {
	srv := testServer(t, &fakeReadings{}, nil, &fakeActions{})

	rec := doRequest(t, srv, http.MethodGet, "/sensor/history?limit=lots")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHandleListActions(t *testing.T) {
	actions := &fakeActions{result: &action.ListResult{
		Actions: []action.Action{{ID: "act-1", ComponentID: "fan_lr", Action: "set_speed", UserID: "u1"}},
		Total:   1,
		Limit:   50,
	}}
	srv := testServer(t, &fakeReadings{}, nil, actions)

	rec := doRequest(t, srv, http.MethodGet, "/actions?componentId=fan_lr&userId=u1")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if actions.gotFilter.ComponentID != "fan_lr" || actions.gotFilter.UserID != "u1" {
		t.Errorf("filter = %+v", actions.gotFilter)
	}
	env := decodeEnvelope(t, rec)
	if !env.Success {
		t.Error("success = false, want true")
	}
}

func TestHandleListActions_StorageError(t *testing.T) {
	srv := testServer(t, &fakeReadings{}, nil, &fakeActions{err: errors.New("boom")})

	rec := doRequest(t, srv, http.MethodGet, "/actions")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
}

func TestRequestID_Propagated(t *testing.T) {
	srv := testServer(t, &fakeReadings{}, nil, &fakeActions{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "custom-id-123")
	rec := httptest.NewRecorder()
	srv.buildRouter().ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Request-ID"); got != "custom-id-123" {
		t.Errorf("X-Request-ID = %q, want custom-id-123", got)
	}
}

// dialWS connects a test WebSocket client to the server.
func dialWS(t *testing.T, srv *Server) (*websocket.Conn, func()) {
	t.Helper()

	ts := httptest.NewServer(srv.buildRouter())
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"

	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		ts.Close()
		t.Fatalf("websocket dial: %v", err)
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	return conn, func() {
		conn.Close()
		ts.Close()
	}
}

func TestWebSocket_BroadcastReachesClient(t *testing.T) {
	srv := testServer(t, &fakeReadings{}, nil, &fakeActions{})
	conn, cleanup := dialWS(t, srv)
	defer cleanup()

	// Wait for registration before broadcasting.
	deadline := time.Now().Add(2 * time.Second)
	for srv.hub.ClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if srv.hub.ClientCount() != 1 {
		t.Fatalf("ClientCount() = %d, want 1", srv.hub.ClientCount())
	}

	srv.hub.Broadcast("sensor:update", map[string]any{"sensorId": "DHT22"})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg WSMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("reading broadcast: %v", err)
	}
	if msg.Type != WSTypeEvent || msg.Event != "sensor:update" {
		t.Errorf("got %q/%q, want event/sensor:update", msg.Type, msg.Event)
	}
}

func TestWebSocket_ClientEventDispatch(t *testing.T) {
	srv := testServer(t, &fakeReadings{}, nil, &fakeActions{})

	received := make(chan json.RawMessage, 1)
	srv.hub.OnClientEvent("control/fan/speed", func(sessionID string, data json.RawMessage) {
		if sessionID == "" {
			t.Error("handler called with empty session id")
		}
		received <- data
	})

	conn, cleanup := dialWS(t, srv)
	defer cleanup()

	err := conn.WriteJSON(map[string]any{
		"type":    "event",
		"event":   "control/fan/speed",
		"payload": map[string]any{"componentId": "fan_lr", "userId": "u1", "speed": 50},
	})
	if err != nil {
		t.Fatalf("writing event: %v", err)
	}

	select {
	case data := <-received:
		var cmd struct {
			ComponentID string `json:"componentId"`
		}
		if err := json.Unmarshal(data, &cmd); err != nil {
			t.Fatalf("unmarshalling dispatched payload: %v", err)
		}
		if cmd.ComponentID != "fan_lr" {
			t.Errorf("componentId = %q, want fan_lr", cmd.ComponentID)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("handler not invoked within deadline")
	}
}

func TestWebSocket_UnknownEventReturnsError(t *testing.T) {
	srv := testServer(t, &fakeReadings{}, nil, &fakeActions{})
	conn, cleanup := dialWS(t, srv)
	defer cleanup()

	err := conn.WriteJSON(map[string]any{
		"type":  "event",
		"event": "control/unknown/thing",
	})
	if err != nil {
		t.Fatalf("writing event: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg WSMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("reading error frame: %v", err)
	}
	if msg.Type != WSTypeError {
		t.Errorf("type = %q, want %q", msg.Type, WSTypeError)
	}
}

func TestWebSocket_Ping(t *testing.T) {
	srv := testServer(t, &fakeReadings{}, nil, &fakeActions{})
	conn, cleanup := dialWS(t, srv)
	defer cleanup()

	if err := conn.WriteJSON(map[string]any{"type": "ping", "id": "42"}); err != nil {
		t.Fatalf("writing ping: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg WSMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("reading pong: %v", err)
	}
	if msg.Type != WSTypePong || msg.ID != "42" {
		t.Errorf("got %q/%q, want pong/42", msg.Type, msg.ID)
	}
}

func TestHub_SendToSession(t *testing.T) {
	log := logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stdout"}, "test")
	hub := NewHub(config.WebSocketConfig{MaxMessageSize: 8192, PingInterval: 30, PongTimeout: 10}, log)

	if hub.SendToSession("missing", "command:error", nil) {
		t.Error("SendToSession() = true for unknown session")
	}
}
