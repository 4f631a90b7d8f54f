package exercises

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"

	"github.com/mvukovic/liftlog/internal/telemetry/tracing"
	"github.com/mvukovic/liftlog/pkg"
)

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

const customExerciseColumns = `id, name, muscle, equipments, difficulty, instructions, type, created_at, updated_at`

func (r *Repo) List(ctx context.Context, filter ListFilter) (_ []CustomExercise, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.exercises.list")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	var conditions []string
	var args []any
	addCondition := func(column, value string) {
		if value == "" {
			return
		}
		args = append(args, "%"+escapeLikePattern(value)+"%")
		conditions = append(conditions, fmt.Sprintf("%s ILIKE $%d", column, len(args)))
	}
	addCondition("name", filter.Name)
	addCondition("muscle", filter.Muscle)
	addCondition("type", filter.Type)
	addCondition("difficulty", filter.Difficulty)

	query := `SELECT ` + customExerciseColumns + ` FROM custom_exercise`
	if len(conditions) > 0 {
		query += ` WHERE ` + strings.Join(conditions, " AND ")
	}
	query += ` ORDER BY name;`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	return rows2exercises(rows)
}

// SearchByQuery matches the query against name or muscle, the same two
// fields the catalog fuzzy search covers.
func (r *Repo) SearchByQuery(ctx context.Context, query string) (_ []CustomExercise, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.exercises.searchByQuery")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := r.db.Query(
		ctx,
		`SELECT `+customExerciseColumns+`
			FROM custom_exercise
			WHERE name ILIKE $1 OR muscle ILIKE $1
			ORDER BY name;`,
		"%"+escapeLikePattern(query)+"%",
	)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	return rows2exercises(rows)
}

func (r *Repo) GetByName(ctx context.Context, name string) (_ *CustomExercise, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.exercises.getByName")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("name", name))

	exercise, err := scanExercise(r.db.QueryRow(
		ctx,
		`SELECT `+customExerciseColumns+`
			FROM custom_exercise
			WHERE LOWER(name) = LOWER($1);`,
		name,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrExerciseNotFound
	}
	if err != nil {
		return nil, err
	}
	return exercise, nil
}

func (r *Repo) Add(ctx context.Context, exercise CustomExercise) (_ *CustomExercise, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.exercises.add")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("name", exercise.Name))

	exercise.CreatedAt = time.Now().UTC()
	err = r.db.QueryRow(
		ctx,
		`INSERT INTO custom_exercise (name, muscle, equipments, difficulty, instructions, type, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id;`,
		exercise.Name, exercise.Muscle, exercise.Equipments,
		exercise.Difficulty, exercise.Instructions, exercise.Type, exercise.CreatedAt,
	).Scan(&exercise.ID)
	if pkg.IsUniqueViolationError(err) {
		return nil, ErrExerciseExists
	}
	if err != nil {
		return nil, fmt.Errorf("insert: %w", err)
	}
	return &exercise, nil
}

func (r *Repo) Update(ctx context.Context, id int64, update UpdateExercise) (_ *CustomExercise, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.exercises.update")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int64("id", id))

	assignments := []string{"updated_at = $1"}
	args := []any{time.Now().UTC()}
	addAssignment := func(column string, value any) {
		args = append(args, value)
		assignments = append(assignments, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if update.Name != nil {
		addAssignment("name", *update.Name)
	}
	if update.Muscle != nil {
		addAssignment("muscle", strings.ToLower(*update.Muscle))
	}
	if update.Equipments != nil {
		addAssignment("equipments", update.Equipments)
	}
	if update.Difficulty != nil {
		addAssignment("difficulty", *update.Difficulty)
	}
	if update.Instructions != nil {
		addAssignment("instructions", *update.Instructions)
	}
	if update.Type != nil {
		addAssignment("type", *update.Type)
	}

	args = append(args, id)
	query := fmt.Sprintf(
		`UPDATE custom_exercise SET %s WHERE id = $%d RETURNING %s;`,
		strings.Join(assignments, ", "), len(args), customExerciseColumns,
	)

	exercise, err := scanExercise(r.db.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrExerciseNotFound
	}
	if pkg.IsUniqueViolationError(err) {
		return nil, ErrExerciseExists
	}
	if err != nil {
		return nil, err
	}
	return exercise, nil
}

func (r *Repo) Delete(ctx context.Context, id int64) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.exercises.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int64("id", id))

	tag, err := r.db.Exec(ctx, `DELETE FROM custom_exercise WHERE id = $1;`, id)
	if err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrExerciseNotFound
	}
	return nil
}

func rows2exercises(rows pgx.Rows) ([]CustomExercise, error) {
	result := make([]CustomExercise, 0)
	for rows.Next() {
		exercise, err := scanExercise(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *exercise)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return result, nil
}

// escapeLikePattern escapes LIKE/ILIKE wildcards so user-supplied filter
// values match literally instead of acting as patterns.
func escapeLikePattern(value string) string {
	value = strings.ReplaceAll(value, `\`, `\\`)
	value = strings.ReplaceAll(value, `%`, `\%`)
	value = strings.ReplaceAll(value, `_`, `\_`)
	return value
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExercise(row rowScanner) (*CustomExercise, error) {
	var exercise CustomExercise
	var updatedAt *time.Time
	if err := row.Scan(
		&exercise.ID, &exercise.Name, &exercise.Muscle, &exercise.Equipments,
		&exercise.Difficulty, &exercise.Instructions, &exercise.Type,
		&exercise.CreatedAt, &updatedAt,
	); err != nil {
		return nil, err
	}
	if updatedAt != nil {
		exercise.UpdatedAt = *updatedAt
	}
	if exercise.Equipments == nil {
		exercise.Equipments = make([]string, 0)
	}
	return &exercise, nil
}
