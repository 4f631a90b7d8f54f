package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"

	"github.com/mvukovic/liftlog/internal/telemetry/tracing"
)

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

const profileColumns = `user_id, weight, height, fat_mass, muscle_mass, body_fat_percentage,
	bmi, waist, chest, arms, thighs, age, gender, goal_weight, notes, custom_fields,
	created_at, updated_at`

// Upsert stores the profile wholesale for its user, creating it on first
// save. Derived stats are expected to be filled in by the caller.
func (r *Repo) Upsert(ctx context.Context, p Profile) (_ *Profile, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.profile.upsert")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("user_id", p.UserID))

	if p.CustomFields == nil {
		p.CustomFields = make([]CustomField, 0)
	}
	customFieldsJson, err := json.Marshal(p.CustomFields)
	if err != nil {
		return nil, fmt.Errorf("marshal custom fields: %w", err)
	}

	now := time.Now().UTC()
	row := r.db.QueryRow(
		ctx,
		`INSERT INTO profile (`+profileColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $17)
		ON CONFLICT (user_id) DO UPDATE SET
			weight = $2, height = $3, fat_mass = $4, muscle_mass = $5,
			body_fat_percentage = $6, bmi = $7, waist = $8, chest = $9,
			arms = $10, thighs = $11, age = $12, gender = $13,
			goal_weight = $14, notes = $15, custom_fields = $16, updated_at = $17
		RETURNING `+profileColumns+`;`,
		p.UserID, p.Weight, p.Height, p.FatMass, p.MuscleMass, p.BodyFatPercentage,
		p.BMI, p.Waist, p.Chest, p.Arms, p.Thighs, p.Age, p.Gender,
		p.GoalWeight, p.Notes, customFieldsJson, now,
	)
	return scanProfile(row)
}

// Get returns the stored profile, or an empty one if the user never saved
// a profile. Callers cannot tell the two apart, which is intentional.
func (r *Repo) Get(ctx context.Context, userID string) (_ *Profile, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.profile.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("user_id", userID))

	p, err := scanProfile(r.db.QueryRow(
		ctx,
		`SELECT `+profileColumns+` FROM profile WHERE user_id = $1;`,
		userID,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return EmptyProfile(userID), nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *Repo) AddHistoryRecord(ctx context.Context, record HistoryRecord) (_ *HistoryRecord, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.profile.addHistoryRecord")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("user_id", record.UserID))

	record.RecordedAt = time.Now().UTC()
	err = r.db.QueryRow(
		ctx,
		`INSERT INTO body_composition_record
			(user_id, weight, fat_mass, muscle_mass, body_fat_percentage, notes, recorded_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id;`,
		record.UserID, record.Weight, record.FatMass, record.MuscleMass,
		record.BodyFatPercentage, record.Notes, record.RecordedAt,
	).Scan(&record.ID)
	if err != nil {
		return nil, fmt.Errorf("insert history record: %w", err)
	}
	return &record, nil
}

func (r *Repo) History(ctx context.Context, userID string, limit int) (_ []HistoryRecord, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.profile.history")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("user_id", userID))

	rows, err := r.db.Query(
		ctx,
		`SELECT id, user_id, weight, fat_mass, muscle_mass, body_fat_percentage, notes, recorded_at
			FROM body_composition_record
			WHERE user_id = $1
			ORDER BY recorded_at DESC
			LIMIT $2;`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	result := make([]HistoryRecord, 0)
	for rows.Next() {
		var record HistoryRecord
		if err := rows.Scan(
			&record.ID, &record.UserID, &record.Weight, &record.FatMass,
			&record.MuscleMass, &record.BodyFatPercentage, &record.Notes, &record.RecordedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return result, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner) (*Profile, error) {
	var p Profile
	var customFieldsBytes []byte
	if err := row.Scan(
		&p.UserID, &p.Weight, &p.Height, &p.FatMass, &p.MuscleMass, &p.BodyFatPercentage,
		&p.BMI, &p.Waist, &p.Chest, &p.Arms, &p.Thighs, &p.Age, &p.Gender,
		&p.GoalWeight, &p.Notes, &customFieldsBytes, &p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if len(customFieldsBytes) > 0 {
		if err := json.Unmarshal(customFieldsBytes, &p.CustomFields); err != nil {
			return nil, fmt.Errorf("unmarshal custom fields: %w", err)
		}
	}
	if p.CustomFields == nil {
		p.CustomFields = make([]CustomField, 0)
	}
	return &p, nil
}
