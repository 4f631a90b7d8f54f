package coach

import (
	"context"
)

// repoMock is an in-memory recommendations repo used in tests.
type repoMock struct {
	recommendations map[string]CachedRecommendation
}

func NewMockRecommendationsRepo() *repoMock {
	return &repoMock{
		recommendations: make(map[string]CachedRecommendation),
	}
}

func (r *repoMock) Upsert(_ context.Context, cached CachedRecommendation) error {
	r.recommendations[cached.UserID] = cached
	return nil
}

func (r *repoMock) Get(_ context.Context, userID string) (*CachedRecommendation, error) {
	cached, ok := r.recommendations[userID]
	if !ok {
		return nil, ErrRecommendationNotFound
	}
	return &cached, nil
}
