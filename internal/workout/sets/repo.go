package sets

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"

	"github.com/mvukovic/liftlog/internal/telemetry/tracing"
	"github.com/mvukovic/liftlog/internal/workout/strength"
)

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

// Add appends one logged set. Volume, estimated 1RM and the creation
// timestamp are (re)computed here, regardless of what the caller set.
// Sets are append-only: there is no update or delete path.
func (r *Repo) Add(ctx context.Context, set Set) (_ *Set, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.sets.add")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	set.Volume = strength.Volume(set.Weight, set.Reps)
	set.Estimated1RM = strength.EstimatedOneRepMax(set.Weight, set.Reps)
	set.CreatedAt = time.Now().UTC()

	err = r.db.QueryRow(
		ctx,
		`INSERT INTO workout_set
				(exercise_name, weight, reps, rpe, notes, user_id, day, volume, estimated_1rm, created_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			RETURNING id;`,
		set.ExerciseName, set.Weight, set.Reps, set.RPE, set.Notes,
		set.UserID, set.Day, set.Volume, set.Estimated1RM, set.CreatedAt,
	).Scan(&set.ID)
	if err != nil {
		return nil, fmt.Errorf("insert workout set: %w", err)
	}

	span.SetAttributes(attribute.Int64("set.id", set.ID))

	return &set, nil
}

// ListForExercise returns all sets for an exercise, newest first.
// The lookup is global, not scoped by user.
func (r *Repo) ListForExercise(ctx context.Context, exerciseName string) (_ []Set, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.sets.listForExercise")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("exercise_name", exerciseName))

	rows, err := r.db.Query(
		ctx,
		`SELECT id, exercise_name, weight, reps, rpe, notes, user_id, day, volume, estimated_1rm, created_at
			FROM workout_set
			WHERE exercise_name = $1
			ORDER BY created_at DESC;`,
		exerciseName,
	)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	return r.rows2sets(rows)
}

// ListForUser returns all of the user's sets, newest first.
func (r *Repo) ListForUser(ctx context.Context, userID string) (_ []Set, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.sets.listForUser")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("user_id", userID))

	rows, err := r.db.Query(
		ctx,
		`SELECT id, exercise_name, weight, reps, rpe, notes, user_id, day, volume, estimated_1rm, created_at
			FROM workout_set
			WHERE user_id = $1
			ORDER BY created_at DESC;`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	return r.rows2sets(rows)
}

// ListForUserSince returns the user's sets created at or after the given time,
// newest first. Used by the analytics window queries.
func (r *Repo) ListForUserSince(ctx context.Context, userID string, since time.Time) (_ []Set, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.sets.listForUserSince")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("user_id", userID))
	span.SetAttributes(attribute.String("since", since.String()))

	rows, err := r.db.Query(
		ctx,
		`SELECT id, exercise_name, weight, reps, rpe, notes, user_id, day, volume, estimated_1rm, created_at
			FROM workout_set
			WHERE user_id = $1 AND created_at >= $2
			ORDER BY created_at DESC;`,
		userID, since,
	)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	return r.rows2sets(rows)
}

// ListForExerciseAndUser returns up to limit of the user's most recent sets
// whose exercise name matches case-insensitively.
func (r *Repo) ListForExerciseAndUser(ctx context.Context, exerciseName, userID string, limit int) (_ []Set, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.sets.listForExerciseAndUser")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("exercise_name", exerciseName))
	span.SetAttributes(attribute.String("user_id", userID))
	span.SetAttributes(attribute.Int("limit", limit))

	if limit < 1 {
		return nil, errors.New("limit must be greater than 0")
	}

	rows, err := r.db.Query(
		ctx,
		`SELECT id, exercise_name, weight, reps, rpe, notes, user_id, day, volume, estimated_1rm, created_at
			FROM workout_set
			WHERE LOWER(exercise_name) = LOWER($1) AND user_id = $2
			ORDER BY created_at DESC
			LIMIT $3;`,
		exerciseName, userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	return r.rows2sets(rows)
}

func (r *Repo) rows2sets(rows pgx.Rows) ([]Set, error) {
	var result []Set
	for rows.Next() {
		var s Set
		if err := rows.Scan(
			&s.ID, &s.ExerciseName, &s.Weight, &s.Reps, &s.RPE, &s.Notes,
			&s.UserID, &s.Day, &s.Volume, &s.Estimated1RM, &s.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("rows scan: %w", err)
		}
		result = append(result, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	if result == nil {
		result = make([]Set, 0)
	}
	return result, nil
}
