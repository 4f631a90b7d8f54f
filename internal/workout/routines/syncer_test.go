package routines_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/mvukovic/liftlog/internal/workout/routines"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestSyncer_MovesExerciseBetweenDays(t *testing.T) {
	ctx := context.Background()
	repo := routines.NewMockRoutinesRepo()
	syncer := routines.NewSyncer(repo)

	squat := routines.RoutineExercise{Name: "Squat", Muscle: "legs"}
	_, err := repo.AddExercise(ctx, "u1", "monday", squat)
	require.NoError(t, err)

	result, err := syncer.SyncExerciseDays(ctx, "u1", "Squat", []string{"tuesday"}, squat)
	require.NoError(t, err)

	assert.Equal(t, []string{"tuesday"}, result.Added)
	assert.Equal(t, []string{"monday"}, result.Removed)

	all, err := repo.GetAll(ctx, "u1")
	require.NoError(t, err)
	for _, routine := range all {
		if routine.Day == "tuesday" {
			assert.True(t, routine.ContainsExercise("Squat"))
		} else {
			assert.False(t, routine.ContainsExercise("Squat"), "squat should be gone from %s", routine.Day)
		}
	}
}

func TestSyncer_Idempotent(t *testing.T) {
	ctx := context.Background()
	repo := routines.NewMockRoutinesRepo()
	syncer := routines.NewSyncer(repo)

	bench := routines.RoutineExercise{Name: "Bench Press", Muscle: "chest"}
	desired := []string{"monday", "thursday"}

	first, err := syncer.SyncExerciseDays(ctx, "u1", "Bench Press", desired, bench)
	require.NoError(t, err)
	assert.Equal(t, []string{"monday", "thursday"}, first.Added)
	assert.Empty(t, first.Removed)
	assert.Equal(t, 2, first.UpsertedCount)

	second, err := syncer.SyncExerciseDays(ctx, "u1", "Bench Press", desired, bench)
	require.NoError(t, err)
	assert.Empty(t, second.Added)
	assert.Empty(t, second.Removed)
	assert.Zero(t, second.ModifiedCount)
	assert.Zero(t, second.UpsertedCount)
}

func TestSyncer_CaseInsensitivePresenceCheck(t *testing.T) {
	ctx := context.Background()
	repo := routines.NewMockRoutinesRepo()
	syncer := routines.NewSyncer(repo)

	_, err := repo.AddExercise(ctx, "u1", "friday", routines.RoutineExercise{Name: "Deadlift", Muscle: "back"})
	require.NoError(t, err)

	result, err := syncer.SyncExerciseDays(
		ctx, "u1", "deadlift", []string{"Friday"},
		routines.RoutineExercise{Name: "deadlift", Muscle: "back"},
	)
	require.NoError(t, err)
	assert.Empty(t, result.Added, "already scheduled under a different casing")
	assert.Empty(t, result.Removed)
}

func TestSyncer_EmptyDesiredDaysRemovesEverywhere(t *testing.T) {
	ctx := context.Background()
	repo := routines.NewMockRoutinesRepo()
	syncer := routines.NewSyncer(repo)

	row := routines.RoutineExercise{Name: "Row", Muscle: "back"}
	for _, day := range []string{"monday", "wednesday"} {
		_, err := repo.AddExercise(ctx, "u1", day, row)
		require.NoError(t, err)
	}

	result, err := syncer.SyncExerciseDays(ctx, "u1", "Row", nil, row)
	require.NoError(t, err)
	assert.Empty(t, result.Added)
	assert.Equal(t, []string{"monday", "wednesday"}, result.Removed)
	assert.Equal(t, 2, result.ModifiedCount)
}

func TestSyncer_InvalidDay(t *testing.T) {
	syncer := routines.NewSyncer(routines.NewMockRoutinesRepo())

	_, err := syncer.SyncExerciseDays(
		context.Background(), "u1", "Squat", []string{"funday"},
		routines.RoutineExercise{Name: "Squat"},
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid day")
}
