package coach

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"

	"github.com/mvukovic/liftlog/internal/telemetry/tracing"
)

var ErrRecommendationNotFound = errors.New("recommendation not found")

// Repo keeps the last generated recommendation per user.
type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

func (r *Repo) Upsert(ctx context.Context, cached CachedRecommendation) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.coach.upsert")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("user_id", cached.UserID))

	recommendationJson, err := json.Marshal(cached.Recommendation)
	if err != nil {
		return fmt.Errorf("marshal recommendation: %w", err)
	}
	snapshotJson, err := json.Marshal(cached.DataSnapshot)
	if err != nil {
		return fmt.Errorf("marshal data snapshot: %w", err)
	}

	_, err = r.db.Exec(
		ctx,
		`INSERT INTO ai_recommendation (user_id, recommendation, data_snapshot, generated_at, created_at)
			VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (user_id) DO UPDATE SET
			recommendation = $2, data_snapshot = $3, generated_at = $4;`,
		cached.UserID, recommendationJson, snapshotJson, cached.GeneratedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert recommendation: %w", err)
	}
	return nil
}

func (r *Repo) Get(ctx context.Context, userID string) (_ *CachedRecommendation, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.coach.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("user_id", userID))

	var cached CachedRecommendation
	var recommendationBytes, snapshotBytes []byte
	err = r.db.QueryRow(
		ctx,
		`SELECT user_id, recommendation, data_snapshot, generated_at
			FROM ai_recommendation
			WHERE user_id = $1;`,
		userID,
	).Scan(&cached.UserID, &recommendationBytes, &snapshotBytes, &cached.GeneratedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRecommendationNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(recommendationBytes, &cached.Recommendation); err != nil {
		return nil, fmt.Errorf("unmarshal recommendation: %w", err)
	}
	if err := json.Unmarshal(snapshotBytes, &cached.DataSnapshot); err != nil {
		return nil, fmt.Errorf("unmarshal data snapshot: %w", err)
	}
	return &cached, nil
}
