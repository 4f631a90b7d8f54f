package analytics_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvukovic/liftlog/internal/cache"
	"github.com/mvukovic/liftlog/internal/telemetry/metrics"
	"github.com/mvukovic/liftlog/internal/workout/analytics"
	"github.com/mvukovic/liftlog/internal/workout/routines"
	"github.com/mvukovic/liftlog/internal/workout/sets"
)

func newAnalyticsRouter(h *analytics.Handler) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/analytics/{userId}/muscle-split", h.HandleMuscleSplit).Methods("GET")
	r.HandleFunc("/analytics/{userId}/consistency", h.HandleConsistency).Methods("GET")
	return r
}

func TestHandler_HandleMuscleSplit_CachesResponse(t *testing.T) {
	ctx := context.Background()

	routinesRepo := routines.NewMockRoutinesRepo()
	_, err := routinesRepo.AddExercise(ctx, "u1", "monday", routines.RoutineExercise{Name: "Squat", Muscle: "legs"})
	require.NoError(t, err)

	setsRepo := sets.NewMockSetsRepo()
	setsRepo.Now = func() time.Time { return testNow.Add(-time.Hour) }
	_, err = setsRepo.Add(ctx, sets.Set{ExerciseName: "Squat", Weight: 100, Reps: 5, UserID: "u1"})
	require.NoError(t, err)

	analyzer := analytics.NewAnalyzer(setsRepo, routinesRepo, fixedNow)
	responseCache := cache.NewTTLCache(fixedNow)
	h := analytics.NewHandler(analyzer, responseCache, time.Minute, metrics.NewTestManager())
	router := newAnalyticsRouter(h)

	req := httptest.NewRequest("GET", "/analytics/u1/muscle-split?days=30", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var split analytics.MuscleSplit
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &split))
	assert.Equal(t, 1, split.TotalSets)

	// the second read within the TTL is served from cache, so a new
	// set does not show up yet
	_, err = setsRepo.Add(ctx, sets.Set{ExerciseName: "Squat", Weight: 100, Reps: 5, UserID: "u1"})
	require.NoError(t, err)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/analytics/u1/muscle-split?days=30", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &split))
	assert.Equal(t, 1, split.TotalSets)

	// invalidation brings the next read back to the store
	responseCache.InvalidatePattern("analytics:u1:")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/analytics/u1/muscle-split?days=30", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &split))
	assert.Equal(t, 2, split.TotalSets)
}

func TestHandler_HandleConsistency(t *testing.T) {
	ctx := context.Background()

	setsRepo := sets.NewMockSetsRepo()
	setsRepo.Now = func() time.Time { return testNow.Add(-2 * time.Hour) }
	_, err := setsRepo.Add(ctx, sets.Set{ExerciseName: "Squat", Weight: 100, Reps: 5, UserID: "u1"})
	require.NoError(t, err)

	analyzer := analytics.NewAnalyzer(setsRepo, routines.NewMockRoutinesRepo(), fixedNow)
	h := analytics.NewHandler(analyzer, nil, 0, nil)

	req := httptest.NewRequest("GET", "/analytics/u1/consistency", nil)
	rec := httptest.NewRecorder()
	newAnalyticsRouter(h).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var report analytics.ConsistencyReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	require.Len(t, report.Days, 1)
	assert.Equal(t, 1, report.Days[0].SetCount)
	assert.Equal(t, 1, report.Streak)
}

func TestHandler_InvalidDays(t *testing.T) {
	analyzer := analytics.NewAnalyzer(sets.NewMockSetsRepo(), routines.NewMockRoutinesRepo(), fixedNow)
	h := analytics.NewHandler(analyzer, nil, 0, nil)
	router := newAnalyticsRouter(h)

	for _, target := range []string{
		"/analytics/u1/muscle-split?days=0",
		"/analytics/u1/muscle-split?days=abc",
		"/analytics/u1/consistency?days=-5",
	} {
		req := httptest.NewRequest("GET", target, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}
}
