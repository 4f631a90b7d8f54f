package sets

import (
	"context"
	"fmt"
	"sort"

	"go.opentelemetry.io/otel/attribute"

	"github.com/mvukovic/liftlog/internal/telemetry/tracing"
)

// sessionOverfetchFactor controls how many sets are fetched per requested
// session. Sessions usually hold a handful of sets, so fetching
// sessionLimit*10 sets keeps the query small while (almost always) covering
// sessionLimit full sessions.
const sessionOverfetchFactor = 10

type historyRepo interface {
	ListForExerciseAndUser(ctx context.Context, exerciseName, userID string, limit int) ([]Set, error)
}

type Analyzer struct {
	repo historyRepo
}

func NewAnalyzer(repo historyRepo) *Analyzer {
	return &Analyzer{
		repo: repo,
	}
}

// History groups the user's logged sets of one exercise into sessions,
// one session per UTC calendar day, newest day first.
func (a *Analyzer) History(ctx context.Context, exerciseName, userID string, sessionLimit int) (_ *History, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "analyzer.sets.history")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("exercise_name", exerciseName))
	span.SetAttributes(attribute.Int("session_limit", sessionLimit))

	if sessionLimit < 1 {
		sessionLimit = 10
	}

	allSets, err := a.repo.ListForExerciseAndUser(ctx, exerciseName, userID, sessionLimit*sessionOverfetchFactor)
	if err != nil {
		return nil, fmt.Errorf("list sets: %w", err)
	}

	day2session := make(map[string]*Session)
	day2rpe := make(map[string]struct {
		sum   int
		count int
	})
	for _, set := range allSets {
		day := set.CreatedAt.UTC().Format("2006-01-02")

		session, ok := day2session[day]
		if !ok {
			session = &Session{Date: set.CreatedAt}
			day2session[day] = session
		}

		session.Sets = append(session.Sets, set)
		if set.Weight > session.MaxWeight {
			session.MaxWeight = set.Weight
		}
		if set.Estimated1RM > session.Max1RM {
			session.Max1RM = set.Estimated1RM
		}
		session.TotalVolume += set.Volume

		if set.RPE != nil {
			rpe := day2rpe[day]
			rpe.sum += *set.RPE
			rpe.count++
			day2rpe[day] = rpe
			session.AvgRPE = float64(rpe.sum) / float64(rpe.count)
		}
	}

	sessions := make([]Session, 0, len(day2session))
	for _, session := range day2session {
		sessions = append(sessions, *session)
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].Date.After(sessions[j].Date)
	})
	if len(sessions) > sessionLimit {
		sessions = sessions[:sessionLimit]
	}

	return &History{
		ExerciseName:  exerciseName,
		Sessions:      sessions,
		TotalSessions: len(sessions),
	}, nil
}
