package routines

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/mvukovic/liftlog/internal/cache"
	"github.com/mvukovic/liftlog/internal/telemetry/metrics"
	"github.com/mvukovic/liftlog/internal/telemetry/tracing"
	"github.com/mvukovic/liftlog/pkg"
)

type routinesRepo interface {
	GetOrEmpty(ctx context.Context, userID, day string) (*DayRoutine, error)
	GetAll(ctx context.Context, userID string) ([]DayRoutine, error)
	AddExercise(ctx context.Context, userID, day string, exercise RoutineExercise) (*DayRoutine, error)
	RemoveExercise(ctx context.Context, userID, day, exerciseName string) (*DayRoutine, error)
	Reorder(ctx context.Context, userID, day string, exercises []RoutineExercise) (*DayRoutine, error)
	ApplyBatch(ctx context.Context, ops []BatchOp) (BatchResult, error)
}

type Handler struct {
	repo           routinesRepo
	syncer         *Syncer
	analyticsCache cache.Cache
	metrics        *metrics.Manager
}

func NewHandler(repo routinesRepo, analyticsCache cache.Cache, metricsManager *metrics.Manager) *Handler {
	return &Handler{
		repo:           repo,
		syncer:         NewSyncer(repo),
		analyticsCache: analyticsCache,
		metrics:        metricsManager,
	}
}

func (handler *Handler) HandleGetAll(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.routines.getAll")
	defer span.End()

	userID := mux.Vars(r)["userId"]
	if userID == "" {
		http.Error(w, "error, user id empty", http.StatusBadRequest)
		return
	}

	userRoutines, err := handler.repo.GetAll(ctx, userID)
	if err != nil {
		log.Errorf("failed to get routines for user [%s]: %s", userID, err)
		http.Error(w, "failed to get routines", http.StatusInternalServerError)
		return
	}

	routinesJson, err := json.Marshal(userRoutines)
	if err != nil {
		log.Errorf("failed to marshal routines: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, routinesJson, http.StatusOK)
}

func (handler *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.routines.get")
	defer span.End()

	userID, day, ok := handler.userAndDay(w, r)
	if !ok {
		return
	}

	// days with no routine yet come back as an empty routine, the
	// mobile client treats both cases the same
	routine, err := handler.repo.GetOrEmpty(ctx, userID, day)
	if err != nil {
		log.Errorf("failed to get routine [%s/%s]: %s", userID, day, err)
		http.Error(w, "failed to get routine", http.StatusInternalServerError)
		return
	}

	handler.writeRoutine(w, routine, http.StatusOK)
}

type addExerciseRequest struct {
	Exercise RoutineExercise `json:"exercise"`
}

func (handler *Handler) HandleAddExercise(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.routines.addExercise")
	defer span.End()

	userID, day, ok := handler.userAndDay(w, r)
	if !ok {
		return
	}

	var req addExerciseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Tracef("add exercise, unmarshal json params: %s", err)
		http.Error(w, "invalid add exercise request", http.StatusBadRequest)
		return
	}
	if req.Exercise.Name == "" {
		http.Error(w, "error, exercise name empty", http.StatusBadRequest)
		return
	}

	routine, err := handler.repo.AddExercise(ctx, userID, day, req.Exercise)
	if err != nil {
		log.Errorf("failed to add exercise [%s] to routine [%s/%s]: %s", req.Exercise.Name, userID, day, err)
		http.Error(w, "failed to add exercise", http.StatusInternalServerError)
		return
	}

	handler.invalidateAnalytics(userID)
	handler.writeRoutine(w, routine, http.StatusCreated)
}

func (handler *Handler) HandleRemoveExercise(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.routines.removeExercise")
	defer span.End()

	userID, day, ok := handler.userAndDay(w, r)
	if !ok {
		return
	}
	exerciseName := mux.Vars(r)["name"]
	if exerciseName == "" {
		http.Error(w, "error, exercise name empty", http.StatusBadRequest)
		return
	}

	routine, err := handler.repo.RemoveExercise(ctx, userID, day, exerciseName)
	if err != nil {
		log.Errorf("failed to remove exercise [%s] from routine [%s/%s]: %s", exerciseName, userID, day, err)
		http.Error(w, "failed to remove exercise", http.StatusInternalServerError)
		return
	}

	handler.invalidateAnalytics(userID)
	handler.writeRoutine(w, routine, http.StatusOK)
}

type reorderRequest struct {
	Exercises []RoutineExercise `json:"exercises"`
}

func (handler *Handler) HandleReorder(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.routines.reorder")
	defer span.End()

	userID, day, ok := handler.userAndDay(w, r)
	if !ok {
		return
	}

	var req reorderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Tracef("reorder exercises, unmarshal json params: %s", err)
		http.Error(w, "invalid reorder request", http.StatusBadRequest)
		return
	}
	if req.Exercises == nil {
		http.Error(w, "error, exercises list missing", http.StatusBadRequest)
		return
	}

	routine, err := handler.repo.Reorder(ctx, userID, day, req.Exercises)
	if errors.Is(err, ErrRoutineNotFound) {
		http.Error(w, "routine not found", http.StatusNotFound)
		return
	}
	if err != nil {
		log.Errorf("failed to reorder exercises for routine [%s/%s]: %s", userID, day, err)
		http.Error(w, "failed to reorder exercises", http.StatusInternalServerError)
		return
	}

	handler.invalidateAnalytics(userID)
	handler.writeRoutine(w, routine, http.StatusOK)
}

type syncRequest struct {
	ExerciseName string          `json:"exerciseName"`
	Days         []string        `json:"days"`
	Exercise     RoutineExercise `json:"exercise"`
}

func (handler *Handler) HandleSync(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.routines.sync")
	defer span.End()

	userID := mux.Vars(r)["userId"]
	if userID == "" {
		http.Error(w, "error, user id empty", http.StatusBadRequest)
		return
	}

	var req syncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Tracef("sync exercise days, unmarshal json params: %s", err)
		http.Error(w, "invalid sync request", http.StatusBadRequest)
		return
	}
	if req.ExerciseName == "" {
		http.Error(w, "error, exercise name empty", http.StatusBadRequest)
		return
	}
	if req.Exercise.Name == "" {
		req.Exercise.Name = req.ExerciseName
	}

	result, err := handler.syncer.SyncExerciseDays(ctx, userID, req.ExerciseName, req.Days, req.Exercise)
	if err != nil {
		if errors.Is(err, ErrInvalidDay) {
			http.Error(w, "error, invalid day", http.StatusBadRequest)
			return
		}
		log.Errorf("failed to sync exercise [%s] days for user [%s]: %s", req.ExerciseName, userID, err)
		http.Error(w, "failed to sync exercise days", http.StatusInternalServerError)
		return
	}

	if handler.metrics != nil {
		handler.metrics.CounterScheduleSyncOps.Inc()
	}
	handler.invalidateAnalytics(userID)

	resultJson, err := json.Marshal(result)
	if err != nil {
		log.Errorf("failed to marshal sync result: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	log.Debugf(
		"exercise [%s] days synced for user [%s]: %d added, %d removed",
		req.ExerciseName, userID, len(result.Added), len(result.Removed),
	)
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, resultJson, http.StatusOK)
}

func (handler *Handler) userAndDay(w http.ResponseWriter, r *http.Request) (userID, day string, ok bool) {
	vars := mux.Vars(r)
	userID = vars["userId"]
	if userID == "" {
		http.Error(w, "error, user id empty", http.StatusBadRequest)
		return "", "", false
	}
	day = NormalizeDay(vars["day"])
	if !IsValidDay(day) {
		http.Error(w, "error, invalid day", http.StatusBadRequest)
		return "", "", false
	}
	return userID, day, true
}

func (handler *Handler) writeRoutine(w http.ResponseWriter, routine *DayRoutine, statusCode int) {
	routineJson, err := json.Marshal(routine)
	if err != nil {
		log.Errorf("failed to marshal routine: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, routineJson, statusCode)
}

// routine changes shift the exercise to muscle mapping that muscle split
// analytics are built from
func (handler *Handler) invalidateAnalytics(userID string) {
	if handler.analyticsCache != nil {
		handler.analyticsCache.InvalidatePattern("analytics:" + userID + ":")
	}
}
