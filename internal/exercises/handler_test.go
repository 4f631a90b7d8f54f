package exercises_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvukovic/liftlog/internal/exercises"
)

type catalogStub struct {
	searchResult []exercises.Exercise
	listResult   []exercises.Exercise
	filterResult []exercises.Exercise
	err          error
}

func (c *catalogStub) Search(_ context.Context, _ string, _ int) ([]exercises.Exercise, error) {
	return c.searchResult, c.err
}

func (c *catalogStub) List(_ context.Context) ([]exercises.Exercise, error) {
	return c.listResult, c.err
}

func (c *catalogStub) Filter(_ context.Context, _, _, _ string) ([]exercises.Exercise, error) {
	return c.filterResult, c.err
}

func newExercisesRouter(h *exercises.Handler) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/exercises/search/{query}", h.HandleSearch).Methods("GET")
	r.HandleFunc("/exercises/all", h.HandleAll).Methods("GET")
	r.HandleFunc("/exercises", h.HandleFilter).Methods("GET")
	r.HandleFunc("/exercises/{name}", h.HandleGetByName).Methods("GET")
	r.HandleFunc("/custom-exercises", h.HandleListCustom).Methods("GET")
	r.HandleFunc("/custom-exercises", h.HandleCreateCustom).Methods("POST")
	r.HandleFunc("/custom-exercises/{name}", h.HandleGetCustom).Methods("GET")
	r.HandleFunc("/custom-exercises/{id}", h.HandleUpdateCustom).Methods("PUT")
	r.HandleFunc("/custom-exercises/{id}", h.HandleDeleteCustom).Methods("DELETE")
	return r
}

func TestHandler_HandleSearch_MergesCustomFirst(t *testing.T) {
	repo := exercises.NewMockExercisesRepo()
	_, err := repo.Add(context.Background(), exercises.CustomExercise{
		Name: "Bench Press", Muscle: "chest",
	})
	require.NoError(t, err)

	catalog := &catalogStub{
		searchResult: []exercises.Exercise{
			{ID: "0025", Name: "bench press", Muscle: "pectorals"},
			{ID: "0026", Name: "Incline Bench Press", Muscle: "pectorals"},
		},
	}
	h := exercises.NewHandler(repo, catalog)

	req := httptest.NewRequest("GET", "/exercises/search/bench", nil)
	rec := httptest.NewRecorder()
	newExercisesRouter(h).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var found []exercises.Exercise
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &found))

	// the catalog "bench press" is dropped as a case-insensitive
	// duplicate of the custom exercise
	require.Len(t, found, 2)
	assert.Equal(t, "Bench Press", found[0].Name)
	assert.True(t, found[0].IsCustom)
	assert.Equal(t, "Incline Bench Press", found[1].Name)
	assert.False(t, found[1].IsCustom)
}

func TestHandler_HandleSearch_CatalogOutageDegradesToCustom(t *testing.T) {
	repo := exercises.NewMockExercisesRepo()
	_, err := repo.Add(context.Background(), exercises.CustomExercise{Name: "Bench Press", Muscle: "chest"})
	require.NoError(t, err)

	h := exercises.NewHandler(repo, &catalogStub{err: errors.New("catalog down")})

	req := httptest.NewRequest("GET", "/exercises/search/bench", nil)
	rec := httptest.NewRecorder()
	newExercisesRouter(h).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var found []exercises.Exercise
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &found))
	require.Len(t, found, 1)
	assert.Equal(t, "Bench Press", found[0].Name)
}

func TestHandler_HandleGetByName_FallsBackToCustom(t *testing.T) {
	repo := exercises.NewMockExercisesRepo()
	_, err := repo.Add(context.Background(), exercises.CustomExercise{Name: "Zercher Squat", Muscle: "legs"})
	require.NoError(t, err)

	h := exercises.NewHandler(repo, &catalogStub{})
	router := newExercisesRouter(h)

	req := httptest.NewRequest("GET", "/exercises/zercher%20squat", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var found exercises.Exercise
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &found))
	assert.Equal(t, "Zercher Squat", found.Name)
	assert.True(t, found.IsCustom)

	// partial custom match when there is no exact one
	req = httptest.NewRequest("GET", "/exercises/zercher", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	// nothing anywhere
	req = httptest.NewRequest("GET", "/exercises/nonexistent", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_HandleCreateCustom(t *testing.T) {
	h := exercises.NewHandler(exercises.NewMockExercisesRepo(), &catalogStub{})
	router := newExercisesRouter(h)

	body := `{"name":"Sissy Squat","muscle":"Legs"}`
	req := httptest.NewRequest("POST", "/custom-exercises", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var created exercises.Exercise
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "Sissy Squat", created.Name)
	assert.Equal(t, "legs", created.Muscle, "muscle should be stored lowercased")
	assert.Equal(t, "beginner", created.Difficulty)
	assert.Equal(t, "strength", created.Type)
	assert.True(t, created.IsCustom)

	// same name in a different casing is a conflict
	req = httptest.NewRequest("POST", "/custom-exercises", strings.NewReader(`{"name":"sissy squat","muscle":"legs"}`))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// name and muscle are required
	req = httptest.NewRequest("POST", "/custom-exercises", strings.NewReader(`{"name":"No Muscle"}`))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_HandleUpdateAndDeleteCustom(t *testing.T) {
	repo := exercises.NewMockExercisesRepo()
	added, err := repo.Add(context.Background(), exercises.CustomExercise{Name: "Row", Muscle: "back"})
	require.NoError(t, err)

	h := exercises.NewHandler(repo, &catalogStub{})
	router := newExercisesRouter(h)

	req := httptest.NewRequest("PUT", "/custom-exercises/1", strings.NewReader(`{"difficulty":"advanced"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var updated exercises.Exercise
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, "advanced", updated.Difficulty)
	assert.Equal(t, "Row", updated.Name)

	req = httptest.NewRequest("DELETE", "/custom-exercises/1", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	_, err = repo.GetByName(context.Background(), added.Name)
	assert.ErrorIs(t, err, exercises.ErrExerciseNotFound)

	// deleting again is a not found
	req = httptest.NewRequest("DELETE", "/custom-exercises/1", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
