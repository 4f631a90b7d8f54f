package coach_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvukovic/liftlog/internal/coach"
)

func TestCompletionClient_Complete(t *testing.T) {
	var gotAuth, gotPath string
	var gotRequest map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotRequest))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"eat more protein"}}]}`))
	}))
	defer server.Close()

	client := coach.NewCompletionClient(server.URL, "test-key", "llama-3.3-70b-versatile", server.Client())

	response, err := client.Complete(context.Background(), "how do I get stronger?")
	require.NoError(t, err)
	assert.Equal(t, "eat more protein", response)

	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Equal(t, "/chat/completions", gotPath)
	assert.Equal(t, "llama-3.3-70b-versatile", gotRequest["model"])
	messages, ok := gotRequest["messages"].([]any)
	require.True(t, ok)
	require.Len(t, messages, 1)
	message := messages[0].(map[string]any)
	assert.Equal(t, "user", message["role"])
	assert.Equal(t, "how do I get stronger?", message["content"])
}

func TestCompletionClient_ApiError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limit reached"}}`))
	}))
	defer server.Close()

	client := coach.NewCompletionClient(server.URL, "test-key", "test-model", server.Client())

	_, err := client.Complete(context.Background(), "prompt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit reached")
}

func TestCompletionClient_NoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	client := coach.NewCompletionClient(server.URL, "test-key", "test-model", server.Client())

	_, err := client.Complete(context.Background(), "prompt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no choices")
}

func TestParseRecommendation(t *testing.T) {
	jsonBody := `{"summary":"solid progress","progressionTips":[{"exercise":"Squat","recommendation":"add 2.5kg"}]}`

	t.Run("plain json", func(t *testing.T) {
		recommendation := coach.ParseRecommendation(jsonBody)
		assert.Equal(t, "solid progress", recommendation.Summary)
		require.Len(t, recommendation.ProgressionTips, 1)
		assert.Equal(t, "Squat", recommendation.ProgressionTips[0].Exercise)
		assert.NotNil(t, recommendation.RecoveryTips)
	})

	t.Run("json in markdown fence", func(t *testing.T) {
		recommendation := coach.ParseRecommendation("```json\n" + jsonBody + "\n```")
		assert.Equal(t, "solid progress", recommendation.Summary)
		require.Len(t, recommendation.ProgressionTips, 1)
	})

	t.Run("unparseable text becomes the summary", func(t *testing.T) {
		recommendation := coach.ParseRecommendation("just train harder, mate")
		assert.Equal(t, "just train harder, mate", recommendation.Summary)
		assert.Empty(t, recommendation.ProgressionTips)
	})
}
