package sets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/mvukovic/liftlog/internal/cache"
	"github.com/mvukovic/liftlog/internal/telemetry/metrics"
	"github.com/mvukovic/liftlog/internal/telemetry/tracing"
	"github.com/mvukovic/liftlog/pkg"
)

type setsRepo interface {
	Add(ctx context.Context, set Set) (*Set, error)
	ListForExercise(ctx context.Context, exerciseName string) ([]Set, error)
	ListForUser(ctx context.Context, userID string) ([]Set, error)
	ListForExerciseAndUser(ctx context.Context, exerciseName, userID string, limit int) ([]Set, error)
}

// numericValue accepts both JSON numbers and numeric strings, since the
// mobile client historically sent weight/reps as strings from text inputs.
type numericValue float64

func (n *numericValue) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		return errors.New("empty numeric value")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid numeric value %q", s)
	}
	*n = numericValue(v)
	return nil
}

type AddSetRequest struct {
	ExerciseName string        `json:"exerciseName"`
	Weight       *numericValue `json:"weight"`
	Reps         *numericValue `json:"reps"`
	RPE          *numericValue `json:"rpe"`
	Notes        string        `json:"notes"`
	UserID       string        `json:"userId"`
	Day          string        `json:"day"`
}

type Handler struct {
	repo           setsRepo
	analyzer       *Analyzer
	analyticsCache cache.Cache
	metrics        *metrics.Manager
}

func NewHandler(repo setsRepo, analyticsCache cache.Cache, metricsManager *metrics.Manager) *Handler {
	return &Handler{
		repo:           repo,
		analyzer:       NewAnalyzer(repo),
		analyticsCache: analyticsCache,
		metrics:        metricsManager,
	}
}

func (handler *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.sets.add")
	defer span.End()

	if r.Header.Get("Content-Type") != "application/json" {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return
	}

	var req AddSetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Tracef("log set, unmarshal json params: %s", err)
		http.Error(w, "invalid log set request", http.StatusBadRequest)
		return
	}

	if req.UserID == "" || req.ExerciseName == "" {
		http.Error(w, "error, user id or exercise name empty", http.StatusBadRequest)
		return
	}
	if req.Weight == nil || req.Reps == nil {
		http.Error(w, "error, weight or reps missing", http.StatusBadRequest)
		return
	}

	weight := float64(*req.Weight)
	reps := float64(*req.Reps)
	if weight < 0 {
		http.Error(w, "error, weight cannot be negative", http.StatusBadRequest)
		return
	}
	if reps < 0 || reps != math.Trunc(reps) {
		http.Error(w, "error, reps must be a whole non-negative number", http.StatusBadRequest)
		return
	}

	set := Set{
		ExerciseName: req.ExerciseName,
		Weight:       weight,
		Reps:         int(reps),
		Notes:        req.Notes,
		UserID:       req.UserID,
		Day:          req.Day,
	}
	if req.RPE != nil {
		rpe := int(*req.RPE)
		if rpe < 1 || rpe > 10 {
			http.Error(w, "error, rpe must be between 1 and 10", http.StatusBadRequest)
			return
		}
		set.RPE = &rpe
	}

	addedSet, err := handler.repo.Add(ctx, set)
	if err != nil {
		log.Errorf("failed to log set [%s] for user [%s]: %s", set.ExerciseName, set.UserID, err)
		http.Error(w, "error, failed to log set", http.StatusInternalServerError)
		return
	}

	if handler.metrics != nil {
		handler.metrics.CounterLoggedSets.Inc()
	}

	// derived analytics for this user are stale now
	if handler.analyticsCache != nil {
		handler.analyticsCache.InvalidatePattern("analytics:" + addedSet.UserID + ":")
	}

	addedSetJson, err := json.Marshal(addedSet)
	if err != nil {
		log.Errorf("failed to marshal logged set: %s", err)
		http.Error(w, "error, failed to log set", http.StatusInternalServerError)
		return
	}

	log.Debugf("new set logged: %s", addedSetJson)
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, addedSetJson, http.StatusCreated)
}

func (handler *Handler) HandleListForExercise(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.sets.listForExercise")
	defer span.End()

	vars := mux.Vars(r)
	exerciseName := vars["name"]
	if exerciseName == "" {
		http.Error(w, "error, exercise name empty", http.StatusBadRequest)
		return
	}

	exerciseSets, err := handler.repo.ListForExercise(ctx, exerciseName)
	if err != nil {
		log.Errorf("failed to list sets for exercise [%s]: %s", exerciseName, err)
		http.Error(w, "failed to list sets", http.StatusInternalServerError)
		return
	}

	setsJson, err := json.Marshal(exerciseSets)
	if err != nil {
		log.Errorf("failed to marshal sets: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, setsJson, http.StatusOK)
}

func (handler *Handler) HandleListForUser(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.sets.listForUser")
	defer span.End()

	vars := mux.Vars(r)
	userID := vars["userId"]
	if userID == "" {
		http.Error(w, "error, user id empty", http.StatusBadRequest)
		return
	}

	userSets, err := handler.repo.ListForUser(ctx, userID)
	if err != nil {
		log.Errorf("failed to list sets for user [%s]: %s", userID, err)
		http.Error(w, "failed to list sets", http.StatusInternalServerError)
		return
	}

	setsJson, err := json.Marshal(userSets)
	if err != nil {
		log.Errorf("failed to marshal sets: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, setsJson, http.StatusOK)
}

func (handler *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.sets.history")
	defer span.End()

	vars := mux.Vars(r)
	exerciseName := vars["name"]
	if exerciseName == "" {
		http.Error(w, "error, exercise name empty", http.StatusBadRequest)
		return
	}

	userID := r.URL.Query().Get("userId")
	if userID == "" {
		http.Error(w, "error, user id empty", http.StatusBadRequest)
		return
	}

	sessionLimit := 10
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 1 {
			http.Error(w, "invalid limit (has to be a positive number)", http.StatusBadRequest)
			return
		}
		sessionLimit = limit
	}

	history, err := handler.analyzer.History(ctx, exerciseName, userID, sessionLimit)
	if err != nil {
		log.Errorf("failed to get history for exercise [%s]: %s", exerciseName, err)
		http.Error(w, "failed to get exercise history", http.StatusInternalServerError)
		return
	}

	historyJson, err := json.Marshal(history)
	if err != nil {
		log.Errorf("failed to marshal exercise history: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, historyJson, http.StatusOK)
}
