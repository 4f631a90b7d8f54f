package routines

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/multierr"

	"github.com/mvukovic/liftlog/internal/telemetry/tracing"
)

var ErrRoutineNotFound = errors.New("day routine not found")

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

// Get returns the stored routine for (userID, day),
// or ErrRoutineNotFound if that day was never scheduled.
func (r *Repo) Get(ctx context.Context, userID, day string) (_ *DayRoutine, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.routines.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("user_id", userID))
	span.SetAttributes(attribute.String("day", day))

	routine, err := r.scanRoutine(r.db.QueryRow(
		ctx,
		`SELECT id, user_id, day, exercises, created_at, updated_at
			FROM day_routine
			WHERE user_id = $1 AND day = $2;`,
		userID, day,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRoutineNotFound
	}
	if err != nil {
		return nil, err
	}
	return routine, nil
}

// GetOrEmpty is Get with the not-found case flattened to a synthetic
// empty routine, which is what the API boundary exposes.
func (r *Repo) GetOrEmpty(ctx context.Context, userID, day string) (*DayRoutine, error) {
	routine, err := r.Get(ctx, userID, day)
	if errors.Is(err, ErrRoutineNotFound) {
		return EmptyRoutine(userID, day), nil
	}
	if err != nil {
		return nil, err
	}
	return routine, nil
}

func (r *Repo) GetAll(ctx context.Context, userID string) (_ []DayRoutine, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.routines.getall")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("user_id", userID))

	rows, err := r.db.Query(
		ctx,
		`SELECT id, user_id, day, exercises, created_at, updated_at
			FROM day_routine
			WHERE user_id = $1;`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	result := make([]DayRoutine, 0)
	for rows.Next() {
		routine, err := r.scanRoutine(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *routine)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return result, nil
}

// AddExercise appends the exercise to the end of the day's exercise list,
// creating the routine document if the day was never scheduled (upsert).
// Duplicate names are not checked here; callers dedup before calling.
func (r *Repo) AddExercise(ctx context.Context, userID, day string, exercise RoutineExercise) (_ *DayRoutine, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.routines.addExercise")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("user_id", userID))
	span.SetAttributes(attribute.String("day", day))
	span.SetAttributes(attribute.String("exercise", exercise.Name))

	exerciseJson, err := json.Marshal(exercise)
	if err != nil {
		return nil, fmt.Errorf("marshal exercise: %w", err)
	}

	now := time.Now().UTC()
	if _, err := r.db.Exec(ctx, upsertPushExerciseSQL, userID, day, exerciseJson, now); err != nil {
		return nil, fmt.Errorf("upsert exercise: %w", err)
	}

	return r.Get(ctx, userID, day)
}

// RemoveExercise removes all entries matching the name case-insensitively.
// Removing from a day that was never scheduled is a no-op.
func (r *Repo) RemoveExercise(ctx context.Context, userID, day, exerciseName string) (_ *DayRoutine, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.routines.removeExercise")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("user_id", userID))
	span.SetAttributes(attribute.String("day", day))
	span.SetAttributes(attribute.String("exercise", exerciseName))

	now := time.Now().UTC()
	if _, err := r.db.Exec(ctx, pullExerciseSQL, userID, day, exerciseName, now); err != nil {
		return nil, fmt.Errorf("pull exercise: %w", err)
	}

	return r.GetOrEmpty(ctx, userID, day)
}

// Reorder replaces the day's exercise list wholesale with the given
// ordering. Unlike AddExercise it does not upsert: reordering a day that
// was never scheduled fails with ErrRoutineNotFound.
func (r *Repo) Reorder(ctx context.Context, userID, day string, exercises []RoutineExercise) (_ *DayRoutine, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.routines.reorder")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("user_id", userID))
	span.SetAttributes(attribute.String("day", day))

	if exercises == nil {
		exercises = make([]RoutineExercise, 0)
	}
	exercisesJson, err := json.Marshal(exercises)
	if err != nil {
		return nil, fmt.Errorf("marshal exercises: %w", err)
	}

	tag, err := r.db.Exec(
		ctx,
		`UPDATE day_routine
			SET exercises = $3::jsonb, updated_at = $4
			WHERE user_id = $1 AND day = $2;`,
		userID, day, exercisesJson, time.Now().UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("update exercises order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrRoutineNotFound
	}

	return r.Get(ctx, userID, day)
}

const upsertPushExerciseSQL = `
	INSERT INTO day_routine (user_id, day, exercises, created_at, updated_at)
		VALUES ($1, $2, jsonb_build_array($3::jsonb), $4, $4)
	ON CONFLICT (user_id, day) DO UPDATE
		SET exercises = day_routine.exercises || $3::jsonb,
			updated_at = $4;`

const pullExerciseSQL = `
	UPDATE day_routine
		SET exercises = COALESCE(
				(SELECT jsonb_agg(e)
					FROM jsonb_array_elements(day_routine.exercises) AS e
					WHERE LOWER(e->>'name') <> LOWER($3)),
				'[]'::jsonb),
			updated_at = $4
		WHERE user_id = $1 AND day = $2;`

// BatchOp is one add or remove operation within a schedule sync batch.
// Exactly one of PushExercise / PullExerciseName is set.
type BatchOp struct {
	UserID           string
	Day              string
	PushExercise     *RoutineExercise
	PullExerciseName string
}

type BatchResult struct {
	ModifiedCount int
	UpsertedCount int
}

// ApplyBatch executes all operations in one round trip via a pgx batch.
// Each statement is applied independently; the returned counts reflect
// what the store actually did, even if some operations failed.
func (r *Repo) ApplyBatch(ctx context.Context, ops []BatchOp) (_ BatchResult, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.routines.applyBatch")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("operations", len(ops)))

	var result BatchResult
	if len(ops) == 0 {
		return result, nil
	}

	now := time.Now().UTC()
	batch := &pgx.Batch{}
	for _, op := range ops {
		if op.PushExercise != nil {
			exerciseJson, err := json.Marshal(op.PushExercise)
			if err != nil {
				return result, fmt.Errorf("marshal exercise: %w", err)
			}
			// xmax = 0 marks a freshly inserted row, which is how
			// upserts are told apart from updates of existing routines
			batch.Queue(upsertPushReturningSQL, op.UserID, op.Day, exerciseJson, now)
		} else {
			batch.Queue(pullExerciseSQL, op.UserID, op.Day, op.PullExerciseName, now)
		}
	}

	results := r.db.SendBatch(ctx, batch)
	defer func() {
		err = multierr.Append(err, results.Close())
	}()

	var opErrs error
	for _, op := range ops {
		if op.PushExercise != nil {
			var inserted bool
			if scanErr := results.QueryRow().Scan(&inserted); scanErr != nil {
				opErrs = multierr.Append(opErrs, fmt.Errorf("push %s/%s: %w", op.Day, op.PushExercise.Name, scanErr))
				continue
			}
			if inserted {
				result.UpsertedCount++
			} else {
				result.ModifiedCount++
			}
		} else {
			tag, execErr := results.Exec()
			if execErr != nil {
				opErrs = multierr.Append(opErrs, fmt.Errorf("pull %s/%s: %w", op.Day, op.PullExerciseName, execErr))
				continue
			}
			result.ModifiedCount += int(tag.RowsAffected())
		}
	}

	return result, opErrs
}

const upsertPushReturningSQL = `
	INSERT INTO day_routine (user_id, day, exercises, created_at, updated_at)
		VALUES ($1, $2, jsonb_build_array($3::jsonb), $4, $4)
	ON CONFLICT (user_id, day) DO UPDATE
		SET exercises = day_routine.exercises || $3::jsonb,
			updated_at = $4
	RETURNING (xmax = 0);`

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *Repo) scanRoutine(row rowScanner) (*DayRoutine, error) {
	var routine DayRoutine
	var exercisesBytes []byte
	if err := row.Scan(
		&routine.ID, &routine.UserID, &routine.Day,
		&exercisesBytes, &routine.CreatedAt, &routine.UpdatedAt,
	); err != nil {
		return nil, err
	}

	if len(exercisesBytes) > 0 {
		if err := json.Unmarshal(exercisesBytes, &routine.Exercises); err != nil {
			return nil, fmt.Errorf("unmarshal exercises for routine %d: %w", routine.ID, err)
		}
	}
	if routine.Exercises == nil {
		routine.Exercises = make([]RoutineExercise, 0)
	}
	return &routine, nil
}
