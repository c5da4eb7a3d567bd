package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/urmzd/hearth/pkg/actuator"
	"github.com/urmzd/hearth/pkg/api/types"
	"github.com/urmzd/hearth/pkg/automation"
	"github.com/urmzd/hearth/pkg/clock"
	"github.com/urmzd/hearth/pkg/config"
	"github.com/urmzd/hearth/pkg/db"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	ctx := context.Background()
	database, err := db.OpenAndMigrate(ctx, filepath.Join(t.TempDir(), "hearth.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	cfg := config.Default()
	cfg.Advisor.Enabled = false
	svc, err := automation.Build(ctx, cfg, database, actuator.NewLoopbackDriver(),
		clock.NewManual(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)))
	require.NoError(t, err)
	return NewRouter(svc).Handler()
}

func do(t *testing.T, h http.Handler, method, path, contentType, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	h := newTestRouter(t)
	w := do(t, h, http.MethodGet, "/health", "", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp types.HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "connected", resp.Driver)
	assert.NotEmpty(t, w.Header().Get(requestIDHeader))
}

func TestTelemetry_JSON(t *testing.T) {
	h := newTestRouter(t)
	body := `{"device_id":"kitchen_node","location":"kitchen","readings":[
		{"sensor_type":"temperature","value":36,"unit":"celsius"},
		{"sensor_type":"gas","value":600,"unit":"ppm"}
	]}`
	w := do(t, h, http.MethodPost, "/api/v1/telemetry", "application/json", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var res automation.Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	require.NotEmpty(t, res.Commands)
	last := res.Commands[len(res.Commands)-1].Command
	assert.Equal(t, "kitchen_exhaust", last.ActuatorID)
	assert.Equal(t, "high", last.State)
	assert.Contains(t, last.Reason, "temp=36.0")
}

func TestTelemetry_EnvelopeRejected(t *testing.T) {
	h := newTestRouter(t)
	w := do(t, h, http.MethodPost, "/api/v1/telemetry", "application/json",
		`{"device_id":"kitchen_node","readings":[{"sensor_type":"smoke","value":1}]}`)
	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp types.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "invalid_envelope", resp.Error)
}

func TestTelemetry_MalformedBody(t *testing.T) {
	h := newTestRouter(t)
	w := do(t, h, http.MethodPost, "/api/v1/telemetry", "application/json", `{"device_id":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTelemetry_XML(t *testing.T) {
	h := newTestRouter(t)
	body := `<sensor_data>
		<device_id>dust_cleaner</device_id>
		<location>mobile</location>
		<sensors>
			<sensor><type>distance</type><value>15</value><unit>cm</unit></sensor>
		</sensors>
	</sensor_data>`
	w := do(t, h, http.MethodPost, "/api/v1/telemetry/xml", "application/xml", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var res automation.Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	require.Len(t, res.Commands, 1)
	assert.Equal(t, "paused", res.Commands[0].Command.State)
}

func TestGateway_TelemetryAndStats(t *testing.T) {
	h := newTestRouter(t)
	w := do(t, h, http.MethodPost, "/api/v1/gateway/telemetry", "application/json",
		`{"device_id":"roof_station","location":"roof","readings":[{"sensor_type":"humidity","value":140}]}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var res automation.GatewayResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, 1, res.Filtered.Counts.Outliers)

	w = do(t, h, http.MethodGet, "/api/v1/gateway/stats", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	var stats map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.EqualValues(t, 1, stats["total_outliers"])
}

func TestActuators_ControlAndOverride(t *testing.T) {
	h := newTestRouter(t)

	w := do(t, h, http.MethodGet, "/api/v1/actuators", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	var list types.ListActuatorsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Equal(t, len(config.DefaultActuators()), list.Count)

	w = do(t, h, http.MethodPost, "/api/v1/actuators/hvac_system/state", "application/json", `{"state":"heating"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(t, h, http.MethodGet, "/api/v1/actuators/hvac_system", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	var one types.ActuatorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &one))
	assert.Equal(t, "heating", one.Actuator.State)
	assert.True(t, one.Actuator.Overridden)

	w = do(t, h, http.MethodDelete, "/api/v1/actuators/hvac_system/override", "", "")
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, h, http.MethodGet, "/api/v1/actuators/hvac_system", "", "")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &one))
	assert.False(t, one.Actuator.Overridden)
}

func TestActuators_Errors(t *testing.T) {
	h := newTestRouter(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
		code   string
	}{
		{"unknown actuator", http.MethodGet, "/api/v1/actuators/garage_door", "", http.StatusNotFound, "not_found"},
		{"invalid state", http.MethodPost, "/api/v1/actuators/hvac_system/state", `{"state":"turbo"}`, http.StatusBadRequest, "validation_error"},
		{"missing state", http.MethodPost, "/api/v1/actuators/hvac_system/state", `{}`, http.StatusBadRequest, "invalid_request"},
		{"unknown override", http.MethodDelete, "/api/v1/actuators/garage_door/override", "", http.StatusNotFound, "not_found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, h, tt.method, tt.path, "application/json", tt.body)
			require.Equal(t, tt.status, w.Code, w.Body.String())
			var resp types.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.code, resp.Error)
		})
	}
}

func TestDecisions(t *testing.T) {
	h := newTestRouter(t)
	do(t, h, http.MethodPost, "/api/v1/telemetry", "application/json",
		`{"device_id":"basement_node","location":"basement","readings":[{"sensor_type":"water_leak","value":1}]}`)

	w := do(t, h, http.MethodGet, "/api/v1/decisions?limit=5", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	var resp types.DecisionsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, 1, resp.Count)
	assert.Equal(t, "water_shutoff", resp.Decisions[0].Results[0].Command.ActuatorID)

	w = do(t, h, http.MethodGet, "/api/v1/decisions?limit=abc", "", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestRouter(t)
	w := do(t, h, http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
}
