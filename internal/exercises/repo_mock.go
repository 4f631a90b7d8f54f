package exercises

import (
	"context"
	"sort"
	"strings"
	"time"
)

// repoMock is an in-memory custom exercises repo used in tests.
type repoMock struct {
	exercises map[int64]CustomExercise
	nextID    int64
}

func NewMockExercisesRepo() *repoMock {
	return &repoMock{
		exercises: make(map[int64]CustomExercise),
		nextID:    1,
	}
}

func (r *repoMock) List(_ context.Context, filter ListFilter) ([]CustomExercise, error) {
	contains := func(value, substr string) bool {
		return substr == "" || strings.Contains(strings.ToLower(value), strings.ToLower(substr))
	}
	result := make([]CustomExercise, 0)
	for _, exercise := range r.exercises {
		if contains(exercise.Name, filter.Name) &&
			contains(exercise.Muscle, filter.Muscle) &&
			contains(exercise.Type, filter.Type) &&
			contains(exercise.Difficulty, filter.Difficulty) {
			result = append(result, exercise)
		}
	}
	sortByName(result)
	return result, nil
}

func (r *repoMock) SearchByQuery(_ context.Context, query string) ([]CustomExercise, error) {
	lowered := strings.ToLower(query)
	result := make([]CustomExercise, 0)
	for _, exercise := range r.exercises {
		if strings.Contains(strings.ToLower(exercise.Name), lowered) ||
			strings.Contains(strings.ToLower(exercise.Muscle), lowered) {
			result = append(result, exercise)
		}
	}
	sortByName(result)
	return result, nil
}

func (r *repoMock) GetByName(_ context.Context, name string) (*CustomExercise, error) {
	for _, exercise := range r.exercises {
		if strings.EqualFold(exercise.Name, name) {
			return &exercise, nil
		}
	}
	return nil, ErrExerciseNotFound
}

func (r *repoMock) Add(ctx context.Context, exercise CustomExercise) (*CustomExercise, error) {
	if _, err := r.GetByName(ctx, exercise.Name); err == nil {
		return nil, ErrExerciseExists
	}
	exercise.ID = r.nextID
	exercise.CreatedAt = time.Now().UTC()
	r.nextID++
	r.exercises[exercise.ID] = exercise
	return &exercise, nil
}

func (r *repoMock) Update(_ context.Context, id int64, update UpdateExercise) (*CustomExercise, error) {
	exercise, ok := r.exercises[id]
	if !ok {
		return nil, ErrExerciseNotFound
	}
	if update.Name != nil {
		exercise.Name = *update.Name
	}
	if update.Muscle != nil {
		exercise.Muscle = strings.ToLower(*update.Muscle)
	}
	if update.Equipments != nil {
		exercise.Equipments = update.Equipments
	}
	if update.Difficulty != nil {
		exercise.Difficulty = *update.Difficulty
	}
	if update.Instructions != nil {
		exercise.Instructions = *update.Instructions
	}
	if update.Type != nil {
		exercise.Type = *update.Type
	}
	exercise.UpdatedAt = time.Now().UTC()
	r.exercises[id] = exercise
	return &exercise, nil
}

func (r *repoMock) Delete(_ context.Context, id int64) error {
	if _, ok := r.exercises[id]; !ok {
		return ErrExerciseNotFound
	}
	delete(r.exercises, id)
	return nil
}

func sortByName(exercises []CustomExercise) {
	sort.Slice(exercises, func(i, j int) bool {
		return exercises[i].Name < exercises[j].Name
	})
}
