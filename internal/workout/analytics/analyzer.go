package analytics

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/mvukovic/liftlog/internal/telemetry/tracing"
	"github.com/mvukovic/liftlog/internal/workout/routines"
	"github.com/mvukovic/liftlog/internal/workout/sets"
)

const (
	// unknownMuscle is the bucket for sets logged for exercises that are
	// not present in any of the user's current routines.
	unknownMuscle = "Unknown"

	defaultWindowDays = 30

	dateLayout = "2006-01-02"
)

type setsRepo interface {
	ListForUserSince(ctx context.Context, userID string, since time.Time) ([]sets.Set, error)
}

type routinesRepo interface {
	GetAll(ctx context.Context, userID string) ([]routines.DayRoutine, error)
}

// Analyzer derives read-only summaries from the accumulated set log and
// the routines' exercise to muscle mapping. The clock is injected so tests
// can control the trailing window.
type Analyzer struct {
	sets     setsRepo
	routines routinesRepo
	now      func() time.Time
}

func NewAnalyzer(setsRepo setsRepo, routinesRepo routinesRepo, now func() time.Time) *Analyzer {
	if now == nil {
		now = time.Now
	}
	return &Analyzer{
		sets:     setsRepo,
		routines: routinesRepo,
		now:      now,
	}
}

type MuscleSplitEntry struct {
	Muscle     string `json:"muscle"`
	Sets       int    `json:"sets"`
	Percentage int    `json:"percentage"`
}

type MuscleSplit struct {
	Breakdown []MuscleSplitEntry `json:"breakdown"`
	TotalSets int                `json:"totalSets"`
}

// MuscleSplit counts the user's sets per muscle group over the trailing
// window. The exercise to muscle mapping comes from scanning all of the
// user's routines at query time, so sets for exercises no longer scheduled
// anywhere land in the Unknown bucket.
func (a *Analyzer) MuscleSplit(ctx context.Context, userID string, windowDays int) (_ *MuscleSplit, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "analyzer.muscleSplit")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if windowDays < 1 {
		windowDays = defaultWindowDays
	}

	userSets, err := a.sets.ListForUserSince(ctx, userID, a.windowStart(windowDays))
	if err != nil {
		return nil, fmt.Errorf("list sets: %w", err)
	}

	exercise2muscle, err := a.exerciseToMuscle(ctx, userID)
	if err != nil {
		return nil, err
	}

	muscle2count := make(map[string]int)
	for _, set := range userSets {
		muscle, ok := exercise2muscle[strings.ToLower(set.ExerciseName)]
		if !ok || muscle == "" {
			muscle = unknownMuscle
		}
		muscle2count[muscle]++
	}

	split := &MuscleSplit{
		Breakdown: make([]MuscleSplitEntry, 0, len(muscle2count)),
		TotalSets: len(userSets),
	}
	for muscle, count := range muscle2count {
		percentage := 0
		if split.TotalSets > 0 {
			percentage = int(math.Round(100 * float64(count) / float64(split.TotalSets)))
		}
		split.Breakdown = append(split.Breakdown, MuscleSplitEntry{
			Muscle:     muscle,
			Sets:       count,
			Percentage: percentage,
		})
	}

	sort.Slice(split.Breakdown, func(i, j int) bool {
		if split.Breakdown[i].Sets != split.Breakdown[j].Sets {
			return split.Breakdown[i].Sets > split.Breakdown[j].Sets
		}
		return split.Breakdown[i].Muscle < split.Breakdown[j].Muscle
	})

	return split, nil
}

type ConsistencyDay struct {
	Date          string `json:"date"`
	SetCount      int    `json:"setCount"`
	ExerciseCount int    `json:"exerciseCount"`
}

// Consistency emits one entry per distinct UTC calendar date on which the
// user logged at least one set within the trailing window, oldest first.
func (a *Analyzer) Consistency(ctx context.Context, userID string, windowDays int) (_ []ConsistencyDay, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "analyzer.consistency")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if windowDays < 1 {
		windowDays = defaultWindowDays
	}

	userSets, err := a.sets.ListForUserSince(ctx, userID, a.windowStart(windowDays))
	if err != nil {
		return nil, fmt.Errorf("list sets: %w", err)
	}

	type dayAgg struct {
		setCount  int
		exercises map[string]struct{}
	}
	date2agg := make(map[string]*dayAgg)
	for _, set := range userSets {
		date := set.CreatedAt.UTC().Format(dateLayout)
		agg, ok := date2agg[date]
		if !ok {
			agg = &dayAgg{exercises: make(map[string]struct{})}
			date2agg[date] = agg
		}
		agg.setCount++
		agg.exercises[strings.ToLower(set.ExerciseName)] = struct{}{}
	}

	days := make([]ConsistencyDay, 0, len(date2agg))
	for date, agg := range date2agg {
		days = append(days, ConsistencyDay{
			Date:          date,
			SetCount:      agg.setCount,
			ExerciseCount: len(agg.exercises),
		})
	}
	sort.Slice(days, func(i, j int) bool {
		return days[i].Date < days[j].Date
	})

	return days, nil
}

type ConsistencyReport struct {
	Days   []ConsistencyDay `json:"days"`
	Streak int              `json:"streak"`
}

// ConsistencyReport bundles the consistency days with the streak derived
// from them as of now.
func (a *Analyzer) ConsistencyReport(ctx context.Context, userID string, windowDays int) (*ConsistencyReport, error) {
	days, err := a.Consistency(ctx, userID, windowDays)
	if err != nil {
		return nil, err
	}
	return &ConsistencyReport{
		Days:   days,
		Streak: Streak(days, a.now()),
	}, nil
}

// Streak counts consecutive workout days walking back from today. A day
// without a workout breaks the streak, except for today itself: a streak
// that ran through yesterday still counts before today's workout is logged.
func Streak(days []ConsistencyDay, today time.Time) int {
	workoutDates := make(map[string]struct{}, len(days))
	for _, day := range days {
		workoutDates[day.Date] = struct{}{}
	}

	cursor := today.UTC().Truncate(24 * time.Hour)
	if _, ok := workoutDates[cursor.Format(dateLayout)]; !ok {
		cursor = cursor.AddDate(0, 0, -1)
	}

	streak := 0
	for {
		if _, ok := workoutDates[cursor.Format(dateLayout)]; !ok {
			break
		}
		streak++
		cursor = cursor.AddDate(0, 0, -1)
	}
	return streak
}

func (a *Analyzer) windowStart(windowDays int) time.Time {
	return a.now().UTC().AddDate(0, 0, -windowDays)
}

func (a *Analyzer) exerciseToMuscle(ctx context.Context, userID string) (map[string]string, error) {
	userRoutines, err := a.routines.GetAll(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get routines: %w", err)
	}

	exercise2muscle := make(map[string]string)
	for _, routine := range userRoutines {
		for _, exercise := range routine.Exercises {
			name := strings.ToLower(exercise.Name)
			if _, ok := exercise2muscle[name]; !ok {
				exercise2muscle[name] = exercise.Muscle
			}
		}
	}
	return exercise2muscle, nil
}
