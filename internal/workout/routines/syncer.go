package routines

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/mvukovic/liftlog/internal/telemetry/tracing"
)

type syncerRepo interface {
	GetAll(ctx context.Context, userID string) ([]DayRoutine, error)
	ApplyBatch(ctx context.Context, ops []BatchOp) (BatchResult, error)
}

// Syncer reconciles the set of days an exercise should appear on against
// the user's current routines. It issues one batched read and one batched
// write, so the number of store round trips stays constant regardless of
// how many days change.
type Syncer struct {
	repo syncerRepo
}

func NewSyncer(repo syncerRepo) *Syncer {
	return &Syncer{
		repo: repo,
	}
}

type SyncResult struct {
	Added         []string     `json:"added"`
	Removed       []string     `json:"removed"`
	ModifiedCount int          `json:"modifiedCount"`
	UpsertedCount int          `json:"upsertedCount"`
	Routines      []DayRoutine `json:"routines"`
}

// SyncExerciseDays makes the exercise appear on exactly the desired days:
// it is added to desired days where it is missing and removed from days
// where it is present but no longer desired. Syncing the same desired set
// twice is a no-op the second time.
//
// A partially applied batch is not rolled back: the result carries the
// counts the store reported and the error describes the failed operations.
func (s *Syncer) SyncExerciseDays(
	ctx context.Context,
	userID, exerciseName string,
	desiredDays []string,
	exercise RoutineExercise,
) (_ *SyncResult, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "syncer.syncExerciseDays")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	desired := make(map[string]bool, len(desiredDays))
	for _, day := range desiredDays {
		day = NormalizeDay(day)
		if !IsValidDay(day) {
			return nil, fmt.Errorf("%w: %s", ErrInvalidDay, day)
		}
		desired[day] = true
	}

	routines, err := s.repo.GetAll(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get routines: %w", err)
	}
	day2routine := make(map[string]DayRoutine, len(routines))
	for _, routine := range routines {
		day2routine[routine.Day] = routine
	}

	result := &SyncResult{
		Added:   make([]string, 0),
		Removed: make([]string, 0),
	}

	var ops []BatchOp
	for _, day := range WeekDays {
		routine, scheduled := day2routine[day]
		present := scheduled && routine.ContainsExercise(exerciseName)

		switch {
		case desired[day] && !present:
			ex := exercise
			ops = append(ops, BatchOp{UserID: userID, Day: day, PushExercise: &ex})
			result.Added = append(result.Added, day)
		case !desired[day] && present:
			ops = append(ops, BatchOp{UserID: userID, Day: day, PullExerciseName: exerciseName})
			result.Removed = append(result.Removed, day)
		}
	}

	if len(ops) > 0 {
		batchResult, batchErr := s.repo.ApplyBatch(ctx, ops)
		result.ModifiedCount = batchResult.ModifiedCount
		result.UpsertedCount = batchResult.UpsertedCount
		if batchErr != nil {
			// partial failure is surfaced through the counts, callers
			// can inspect and retry the days that did not stick
			log.Warnf(
				"sync exercise [%s] days for user [%s] partially applied (%d modified, %d upserted): %s",
				exerciseName, userID, batchResult.ModifiedCount, batchResult.UpsertedCount, batchErr,
			)
		}
	}

	result.Routines, err = s.repo.GetAll(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("reread routines: %w", err)
	}

	return result, nil
}
