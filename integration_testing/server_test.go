package integration_testing

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Server(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	suite := newSuite(ctx)
	defer suite.cleanup()
	require.NotNil(t, suite.server)

	// give the listener a moment to come up
	time.Sleep(500 * time.Millisecond)

	client := &http.Client{Timeout: 10 * time.Second}

	t.Run("log a set and read it back", func(t *testing.T) {
		resp, err := client.Post(
			serverEndpoint+"/sets",
			"application/json",
			strings.NewReader(`{"exerciseName":"Bench Press","weight":80,"reps":5,"userId":"it-user"}`),
		)
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		resp, err = client.Get(serverEndpoint + "/user/it-user/sets")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("routine lifecycle", func(t *testing.T) {
		resp, err := client.Post(
			serverEndpoint+"/routines/it-user/monday/exercises",
			"application/json",
			strings.NewReader(`{"exercise":{"name":"Squat","muscle":"legs"}}`),
		)
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		resp, err = client.Get(serverEndpoint + "/routines/it-user")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("empty profile for unknown user", func(t *testing.T) {
		resp, err := client.Get(serverEndpoint + "/profile/nobody")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})
}
