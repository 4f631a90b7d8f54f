package routines

import (
	"context"
	"strings"
	"time"
)

// repoMock is an in-memory routines repo used in tests.
type repoMock struct {
	routines map[string]*DayRoutine
	nextID   int64

	// Now is the clock used for stamping timestamps; tests may override it.
	Now func() time.Time

	// GetAllErr, when set, is returned by every GetAll call.
	GetAllErr error
}

func NewMockRoutinesRepo() *repoMock {
	return &repoMock{
		routines: make(map[string]*DayRoutine),
		nextID:   1,
		Now:      time.Now,
	}
}

func (r *repoMock) key(userID, day string) string {
	return userID + "|" + day
}

func (r *repoMock) Get(_ context.Context, userID, day string) (*DayRoutine, error) {
	routine, ok := r.routines[r.key(userID, day)]
	if !ok {
		return nil, ErrRoutineNotFound
	}
	copied := *routine
	copied.Exercises = append([]RoutineExercise{}, routine.Exercises...)
	return &copied, nil
}

func (r *repoMock) GetOrEmpty(ctx context.Context, userID, day string) (*DayRoutine, error) {
	routine, err := r.Get(ctx, userID, day)
	if err != nil {
		return EmptyRoutine(userID, day), nil
	}
	return routine, nil
}

func (r *repoMock) GetAll(ctx context.Context, userID string) ([]DayRoutine, error) {
	if r.GetAllErr != nil {
		return nil, r.GetAllErr
	}
	result := make([]DayRoutine, 0)
	for _, day := range WeekDays {
		if routine, err := r.Get(ctx, userID, day); err == nil {
			result = append(result, *routine)
		}
	}
	return result, nil
}

func (r *repoMock) AddExercise(ctx context.Context, userID, day string, exercise RoutineExercise) (*DayRoutine, error) {
	r.push(userID, day, exercise)
	return r.Get(ctx, userID, day)
}

func (r *repoMock) RemoveExercise(ctx context.Context, userID, day, exerciseName string) (*DayRoutine, error) {
	r.pull(userID, day, exerciseName)
	return r.GetOrEmpty(ctx, userID, day)
}

func (r *repoMock) Reorder(ctx context.Context, userID, day string, exercises []RoutineExercise) (*DayRoutine, error) {
	routine, ok := r.routines[r.key(userID, day)]
	if !ok {
		return nil, ErrRoutineNotFound
	}
	routine.Exercises = append([]RoutineExercise{}, exercises...)
	routine.UpdatedAt = r.Now().UTC()
	return r.Get(ctx, userID, day)
}

func (r *repoMock) ApplyBatch(_ context.Context, ops []BatchOp) (BatchResult, error) {
	var result BatchResult
	for _, op := range ops {
		if op.PushExercise != nil {
			if r.push(op.UserID, op.Day, *op.PushExercise) {
				result.UpsertedCount++
			} else {
				result.ModifiedCount++
			}
		} else {
			if r.pull(op.UserID, op.Day, op.PullExerciseName) {
				result.ModifiedCount++
			}
		}
	}
	return result, nil
}

// push appends the exercise and reports whether a new routine was created.
func (r *repoMock) push(userID, day string, exercise RoutineExercise) (inserted bool) {
	now := r.Now().UTC()
	routine, ok := r.routines[r.key(userID, day)]
	if !ok {
		routine = &DayRoutine{
			ID:        r.nextID,
			UserID:    userID,
			Day:       day,
			Exercises: make([]RoutineExercise, 0),
			CreatedAt: now,
		}
		r.nextID++
		r.routines[r.key(userID, day)] = routine
		inserted = true
	}
	routine.Exercises = append(routine.Exercises, exercise)
	routine.UpdatedAt = now
	return inserted
}

// pull removes all case-insensitive name matches and reports whether the
// routine existed.
func (r *repoMock) pull(userID, day, exerciseName string) (existed bool) {
	routine, ok := r.routines[r.key(userID, day)]
	if !ok {
		return false
	}
	kept := make([]RoutineExercise, 0, len(routine.Exercises))
	for _, ex := range routine.Exercises {
		if !strings.EqualFold(ex.Name, exerciseName) {
			kept = append(kept, ex)
		}
	}
	routine.Exercises = kept
	routine.UpdatedAt = r.Now().UTC()
	return true
}
