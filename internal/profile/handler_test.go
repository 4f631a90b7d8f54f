package profile_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/mvukovic/liftlog/internal/profile"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newProfileRouter(h *profile.Handler) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/profile", h.HandleUpsert).Methods("POST")
	r.HandleFunc("/profile/history", h.HandleAddHistory).Methods("POST")
	r.HandleFunc("/profile/{userId}", h.HandleGet).Methods("GET")
	r.HandleFunc("/profile/{userId}/history", h.HandleHistory).Methods("GET")
	return r
}

func TestHandler_HandleUpsert_DerivesBodyStats(t *testing.T) {
	h := profile.NewHandler(profile.NewMockProfileRepo())
	router := newProfileRouter(h)

	body := `{"userId":"u1","weight":80,"height":180,"fatMass":16}`
	req := httptest.NewRequest("POST", "/profile", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var saved profile.Profile
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &saved))
	require.NotNil(t, saved.BMI)
	assert.Equal(t, 24.7, *saved.BMI) // 80 / 1.8^2, rounded to one decimal
	require.NotNil(t, saved.BodyFatPercentage)
	assert.Equal(t, 20.0, *saved.BodyFatPercentage) // 16 / 80 * 100
}

func TestHandler_HandleUpsert_KeepsProvidedStats(t *testing.T) {
	h := profile.NewHandler(profile.NewMockProfileRepo())

	body := `{"userId":"u1","weight":80,"height":180,"bmi":25.5,"bodyFatPercentage":18.2}`
	req := httptest.NewRequest("POST", "/profile", strings.NewReader(body))
	rec := httptest.NewRecorder()
	newProfileRouter(h).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var saved profile.Profile
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &saved))
	require.NotNil(t, saved.BMI)
	assert.Equal(t, 25.5, *saved.BMI)
	require.NotNil(t, saved.BodyFatPercentage)
	assert.Equal(t, 18.2, *saved.BodyFatPercentage)
}

func TestHandler_HandleUpsert_MissingUserID(t *testing.T) {
	h := profile.NewHandler(profile.NewMockProfileRepo())

	req := httptest.NewRequest("POST", "/profile", strings.NewReader(`{"weight":80}`))
	rec := httptest.NewRecorder()
	newProfileRouter(h).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_HandleGet_UnknownUserIsEmptyProfile(t *testing.T) {
	h := profile.NewHandler(profile.NewMockProfileRepo())

	req := httptest.NewRequest("GET", "/profile/nobody", nil)
	rec := httptest.NewRecorder()
	newProfileRouter(h).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var p profile.Profile
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	assert.Equal(t, "nobody", p.UserID)
	assert.Nil(t, p.Weight)
	assert.NotNil(t, p.CustomFields)
	assert.Empty(t, p.CustomFields)
}

func TestHandler_History(t *testing.T) {
	h := profile.NewHandler(profile.NewMockProfileRepo())
	router := newProfileRouter(h)

	for _, body := range []string{
		`{"userId":"u1","weight":82,"fatMass":17}`,
		`{"userId":"u1","weight":81,"fatMass":16.5}`,
		`{"userId":"u2","weight":60}`,
	} {
		req := httptest.NewRequest("POST", "/profile/history", strings.NewReader(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	req := httptest.NewRequest("GET", "/profile/u1/history", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var history []profile.HistoryRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &history))
	require.Len(t, history, 2)
	for _, record := range history {
		assert.Equal(t, "u1", record.UserID)
	}
}
