package sets

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/mvukovic/liftlog/internal/workout/strength"
)

// repoMock is an in-memory sets repo used in tests.
type repoMock struct {
	sets   []Set
	nextID int64

	// Now is the clock used for stamping CreatedAt; tests may override it.
	Now func() time.Time
}

func NewMockSetsRepo() *repoMock {
	return &repoMock{
		nextID: 1,
		Now:    time.Now,
	}
}

func (r *repoMock) Add(_ context.Context, set Set) (*Set, error) {
	set.ID = r.nextID
	r.nextID++
	set.Volume = strength.Volume(set.Weight, set.Reps)
	set.Estimated1RM = strength.EstimatedOneRepMax(set.Weight, set.Reps)
	set.CreatedAt = r.Now().UTC()
	r.sets = append(r.sets, set)
	return &set, nil
}

func (r *repoMock) ListForExercise(_ context.Context, exerciseName string) ([]Set, error) {
	return r.filter(func(s Set) bool {
		return s.ExerciseName == exerciseName
	}, 0), nil
}

func (r *repoMock) ListForUser(_ context.Context, userID string) ([]Set, error) {
	return r.filter(func(s Set) bool {
		return s.UserID == userID
	}, 0), nil
}

func (r *repoMock) ListForUserSince(_ context.Context, userID string, since time.Time) ([]Set, error) {
	return r.filter(func(s Set) bool {
		return s.UserID == userID && !s.CreatedAt.Before(since)
	}, 0), nil
}

func (r *repoMock) ListForExerciseAndUser(_ context.Context, exerciseName, userID string, limit int) ([]Set, error) {
	if limit < 1 {
		return nil, errors.New("limit must be greater than 0")
	}
	return r.filter(func(s Set) bool {
		return strings.EqualFold(s.ExerciseName, exerciseName) && s.UserID == userID
	}, limit), nil
}

func (r *repoMock) filter(match func(Set) bool, limit int) []Set {
	result := make([]Set, 0)
	for _, s := range r.sets {
		if match(s) {
			result = append(result, s)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result
}
