package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikermcconnell/BusScheduler-sub001/app"
	"github.com/mikermcconnell/BusScheduler-sub001/core/model"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	svc := app.New(app.Options{})
	svc.SetSchedule(model.Schedule{
		TimePoints: []model.TimePoint{
			{ID: "a", Name: "Downtown", Sequence: 0},
			{ID: "b", Name: "Mall", Sequence: 1},
		},
		Trips: []model.Trip{
			{
				TripNumber:     1,
				BlockNumber:    1,
				ServiceBand:    model.BandStandard,
				ArrivalTimes:   map[string]string{"a": "06:00", "b": "06:30"},
				DepartureTimes: map[string]string{"a": "06:00", "b": "06:33"},
				RecoveryTimes:  map[string]int{"a": 0, "b": 3},
			},
			{
				TripNumber:     2,
				BlockNumber:    1,
				ServiceBand:    model.BandStandard,
				ArrivalTimes:   map[string]string{"a": "06:33", "b": "07:03"},
				DepartureTimes: map[string]string{"a": "06:33", "b": "07:03"},
				RecoveryTimes:  map[string]int{"a": 0, "b": 0},
			},
		},
	})
	return NewServer(svc, nil)
}

func doJSON(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestGetSchedule(t *testing.T) {
	srv := newTestServer(t)
	rec := doJSON(t, srv, http.MethodGet, "/schedule", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var got model.Schedule
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Len(t, got.Trips, 2)
}

func TestRecoveryEditEndpoint(t *testing.T) {
	srv := newTestServer(t)
	rec := doJSON(t, srv, http.MethodPost, "/schedule/trips/1/recovery",
		recoveryEditRequest{TimepointID: "b", Minutes: 5})
	require.Equal(t, http.StatusOK, rec.Code)

	var got model.Schedule
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	i := got.TripIndex(1)
	require.NotEqual(t, -1, i)
	assert.Equal(t, "06:35", got.Trips[i].DepartureTimes["b"])
}

func TestRecoveryEditValidation(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/schedule/trips/1/recovery",
		recoveryEditRequest{TimepointID: "b", Minutes: -1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, srv, http.MethodPost, "/schedule/trips/1/recovery",
		recoveryEditRequest{Minutes: 5})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, srv, http.MethodPost, "/schedule/trips/abc/recovery",
		recoveryEditRequest{TimepointID: "b", Minutes: 5})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEndAndRestoreEndpoints(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/schedule/trips/1/end", endTripRequest{TimepointIndex: 0})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, srv, http.MethodPost, "/schedule/trips/1/restore", struct{}{})
	require.Equal(t, http.StatusOK, rec.Code)

	var got model.Schedule
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	i := got.TripIndex(1)
	require.NotEqual(t, -1, i)
	assert.Nil(t, got.Trips[i].TripEndIndex)
}

func TestDeleteTripEndpoint(t *testing.T) {
	srv := newTestServer(t)
	rec := doJSON(t, srv, http.MethodDelete, "/schedule/trips/1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var got model.Schedule
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got.Trips, 1)
	assert.Equal(t, 1, got.Trips[0].TripNumber)
}

func TestAddTripEndpoint(t *testing.T) {
	srv := newTestServer(t)
	rec := doJSON(t, srv, http.MethodPost, "/schedule/trips",
		addTripRequest{Mode: "after_last", AnchorTripNumber: 2})
	require.Equal(t, http.StatusOK, rec.Code)

	var got model.Schedule
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Len(t, got.Trips, 3)
}

func TestAddTripUnknownMode(t *testing.T) {
	srv := newTestServer(t)
	rec := doJSON(t, srv, http.MethodPost, "/schedule/trips",
		addTripRequest{Mode: "sideways", AnchorTripNumber: 1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestApplyTemplateEndpoint(t *testing.T) {
	srv := newTestServer(t)
	rec := doJSON(t, srv, http.MethodPost, "/schedule/bands/Standard%20Service/template",
		templateRequest{Template: []int{0, 4}})
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestTargetPercentageUnknownBand(t *testing.T) {
	srv := newTestServer(t)
	rec := doJSON(t, srv, http.MethodPost, "/schedule/bands/Fastest%20Service/target-percentage",
		targetPercentageRequest{Percentage: 10})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestReassignEndpoint(t *testing.T) {
	srv := newTestServer(t)
	rec := doJSON(t, srv, http.MethodPost, "/schedule/blocks/reassign", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var got reassignResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.NotNil(t, got.Warnings)
}

func TestClassifyBandEndpoint(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodGet, "/schedule/band?departure=07:00", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "Fastest Service", got["service_band"])

	rec = doJSON(t, srv, http.MethodGet, "/schedule/band", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExportEndpoint(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodGet, "/schedule/export?format=csv", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "trip_number")

	rec = doJSON(t, srv, http.MethodGet, "/schedule/export?format=xml", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t)
	rec := doJSON(t, srv, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
