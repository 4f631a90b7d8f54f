package exercises_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/mvukovic/liftlog/internal/exercises"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const catalogSearchResponse = `{
	"data": [
		{
			"exerciseId": "0025",
			"name": "Barbell Bench Press",
			"targetMuscles": ["pectorals"],
			"secondaryMuscles": ["triceps", "deltoids"],
			"equipments": ["barbell"],
			"bodyParts": ["chest"],
			"instructions": ["Lie on the bench.", "Press the bar up."],
			"gifUrl": "https://example.com/bench.gif"
		},
		{
			"name": "Incline Push Up",
			"targetMuscles": [],
			"bodyParts": []
		}
	]
}`

func TestCatalog_Search_TransformsResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/exercises/search", r.URL.Path)
		assert.Equal(t, "bench", r.URL.Query().Get("q"))
		assert.Equal(t, "25", r.URL.Query().Get("limit"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(catalogSearchResponse))
	}))
	defer server.Close()

	catalog := exercises.NewCatalog(server.URL, "", server.Client())

	found, err := catalog.Search(context.Background(), "bench", 0)
	require.NoError(t, err)
	require.Len(t, found, 2)

	bench := found[0]
	assert.Equal(t, "0025", bench.ID)
	assert.Equal(t, "Barbell Bench Press", bench.Name)
	assert.Equal(t, "pectorals", bench.Muscle)
	assert.Equal(t, []string{"barbell"}, bench.Equipments)
	assert.Equal(t, "Lie on the bench. Press the bar up.", bench.Instructions)
	assert.Equal(t, "chest", bench.Type)
	assert.Equal(t, "https://example.com/bench.gif", bench.GifURL)
	assert.False(t, bench.IsCustom)

	// entries without an id fall back to a name-derived one, entries
	// without body parts default to strength
	pushUp := found[1]
	assert.Equal(t, "incline_push_up", pushUp.ID)
	assert.Equal(t, "", pushUp.Muscle)
	assert.Equal(t, "strength", pushUp.Type)
}

func TestCatalog_Search_CachesResponse(t *testing.T) {
	upstreamCalls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upstreamCalls++
		_, _ = w.Write([]byte(catalogSearchResponse))
	}))
	defer server.Close()

	catalog := exercises.NewCatalog(server.URL, "", server.Client())

	for i := 0; i < 3; i++ {
		found, err := catalog.Search(context.Background(), "bench", 25)
		require.NoError(t, err)
		require.Len(t, found, 2)
	}
	assert.Equal(t, 1, upstreamCalls, "repeated searches should be served from cache")

	// a different query is a different cache entry
	_, err := catalog.Search(context.Background(), "squat", 25)
	require.NoError(t, err)
	assert.Equal(t, 2, upstreamCalls)
}

func TestCatalog_Search_UpstreamFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	catalog := exercises.NewCatalog(server.URL, "", server.Client())

	_, err := catalog.Search(context.Background(), "bench", 25)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "responded with status: 500")
}

func TestCatalog_Filter_BuildsQuery(t *testing.T) {
	var gotQuery map[string][]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/exercises/filter", r.URL.Path)
		gotQuery = r.URL.Query()
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer server.Close()

	catalog := exercises.NewCatalog(server.URL, "", server.Client())

	found, err := catalog.Filter(context.Background(), "press", "chest", "upper body")
	require.NoError(t, err)
	assert.Empty(t, found)

	assert.Equal(t, []string{"press"}, gotQuery["search"])
	assert.Equal(t, []string{"chest"}, gotQuery["muscles"])
	assert.Equal(t, []string{"upper body"}, gotQuery["bodyParts"])
}

func TestCatalog_SendsApiKeyHeader(t *testing.T) {
	var gotKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-Api-Key")
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer server.Close()

	catalog := exercises.NewCatalog(server.URL, "test-key", server.Client())

	_, err := catalog.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "test-key", gotKey)
}
