package coach_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvukovic/liftlog/internal/coach"
	"github.com/mvukovic/liftlog/internal/profile"
	"github.com/mvukovic/liftlog/internal/workout/analytics"
	"github.com/mvukovic/liftlog/internal/workout/routines"
	"github.com/mvukovic/liftlog/internal/workout/sets"
)

type completerStub struct {
	gotPrompt string
	response  string
	err       error
}

func (c *completerStub) Complete(_ context.Context, prompt string) (string, error) {
	c.gotPrompt = prompt
	return c.response, c.err
}

func newCoachRouter(h *coach.Handler) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/ai/recommend", h.HandleRecommend).Methods("POST")
	r.HandleFunc("/ai/recommend/{userId}", h.HandleGetCached).Methods("GET")
	return r
}

func newCoachHandler(t *testing.T, completion *completerStub, recommendationsRepo interface {
	Upsert(ctx context.Context, cached coach.CachedRecommendation) error
	Get(ctx context.Context, userID string) (*coach.CachedRecommendation, error)
}) *coach.Handler {
	t.Helper()
	ctx := context.Background()

	profileRepo := profile.NewMockProfileRepo()
	weight := 80.0
	_, err := profileRepo.Upsert(ctx, profile.Profile{UserID: "u1", Weight: &weight})
	require.NoError(t, err)

	routinesRepo := routines.NewMockRoutinesRepo()
	_, err = routinesRepo.AddExercise(ctx, "u1", "monday", routines.RoutineExercise{Name: "Squat", Muscle: "legs"})
	require.NoError(t, err)

	setsRepo := sets.NewMockSetsRepo()
	_, err = setsRepo.Add(ctx, sets.Set{ExerciseName: "Squat", Weight: 100, Reps: 5, UserID: "u1"})
	require.NoError(t, err)

	analyzer := analytics.NewAnalyzer(setsRepo, routinesRepo, nil)

	return coach.NewHandler(profileRepo, routinesRepo, setsRepo, analyzer, completion, recommendationsRepo)
}

func TestHandler_HandleRecommend(t *testing.T) {
	completion := &completerStub{
		response: `{"summary":"keep squatting","recoveryTips":["sleep more"]}`,
	}
	recommendationsRepo := coach.NewMockRecommendationsRepo()
	h := newCoachHandler(t, completion, recommendationsRepo)
	router := newCoachRouter(h)

	req := httptest.NewRequest("POST", "/ai/recommend", strings.NewReader(`{"userId":"u1"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var response struct {
		Success        bool                 `json:"success"`
		Recommendation coach.Recommendation `json:"recommendations"`
		GeneratedAt    time.Time            `json:"generatedAt"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.True(t, response.Success)
	assert.Equal(t, "keep squatting", response.Recommendation.Summary)
	assert.Equal(t, []string{"sleep more"}, response.Recommendation.RecoveryTips)
	assert.False(t, response.GeneratedAt.IsZero())

	// the prompt carried the user's actual data
	assert.Contains(t, completion.gotPrompt, "- Weight: 80 kg")
	assert.Contains(t, completion.gotPrompt, "- Monday: Squat (legs)")
	assert.Contains(t, completion.gotPrompt, "100kg x 5")

	// and the recommendation was stored for the cached endpoint
	req = httptest.NewRequest("GET", "/ai/recommend/u1", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var cached struct {
		Cached         bool                  `json:"cached"`
		Recommendation *coach.Recommendation `json:"recommendations"`
		DataSnapshot   *coach.DataSnapshot   `json:"dataSnapshot"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cached))
	assert.True(t, cached.Cached)
	require.NotNil(t, cached.Recommendation)
	assert.Equal(t, "keep squatting", cached.Recommendation.Summary)
	require.NotNil(t, cached.DataSnapshot)
	assert.True(t, cached.DataSnapshot.HasProfile)
	assert.Equal(t, 1, cached.DataSnapshot.RoutineCount)
	assert.Equal(t, 1, cached.DataSnapshot.RecentSetCount)
}

func TestHandler_HandleRecommend_CompletionFailure(t *testing.T) {
	completion := &completerStub{err: assert.AnError}
	h := newCoachHandler(t, completion, coach.NewMockRecommendationsRepo())

	req := httptest.NewRequest("POST", "/ai/recommend", strings.NewReader(`{"userId":"u1"}`))
	rec := httptest.NewRecorder()
	newCoachRouter(h).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHandler_HandleRecommend_MissingUserID(t *testing.T) {
	h := newCoachHandler(t, &completerStub{}, coach.NewMockRecommendationsRepo())

	req := httptest.NewRequest("POST", "/ai/recommend", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	newCoachRouter(h).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_HandleGetCached_NothingStored(t *testing.T) {
	h := newCoachHandler(t, &completerStub{}, coach.NewMockRecommendationsRepo())

	req := httptest.NewRequest("GET", "/ai/recommend/u1", nil)
	rec := httptest.NewRecorder()
	newCoachRouter(h).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var response struct {
		Cached         bool                  `json:"cached"`
		Recommendation *coach.Recommendation `json:"recommendations"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.False(t, response.Cached)
	assert.Nil(t, response.Recommendation)
}
