package exercises

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/mvukovic/liftlog/internal/telemetry/tracing"
	"github.com/mvukovic/liftlog/pkg"
)

type customExercisesRepo interface {
	List(ctx context.Context, filter ListFilter) ([]CustomExercise, error)
	SearchByQuery(ctx context.Context, query string) ([]CustomExercise, error)
	GetByName(ctx context.Context, name string) (*CustomExercise, error)
	Add(ctx context.Context, exercise CustomExercise) (*CustomExercise, error)
	Update(ctx context.Context, id int64, update UpdateExercise) (*CustomExercise, error)
	Delete(ctx context.Context, id int64) error
}

type catalogClient interface {
	Search(ctx context.Context, query string, limit int) ([]Exercise, error)
	List(ctx context.Context) ([]Exercise, error)
	Filter(ctx context.Context, name, muscle, bodyPart string) ([]Exercise, error)
}

type Handler struct {
	repo    customExercisesRepo
	catalog catalogClient
}

func NewHandler(repo customExercisesRepo, catalog catalogClient) *Handler {
	return &Handler{
		repo:    repo,
		catalog: catalog,
	}
}

// HandleSearch merges catalog fuzzy search results with matching custom
// exercises, custom first, deduplicated by name. A catalog outage degrades
// to custom-only results instead of failing the request.
func (handler *Handler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.exercises.search")
	defer span.End()

	query := mux.Vars(r)["query"]
	if query == "" {
		http.Error(w, "error, search query empty", http.StatusBadRequest)
		return
	}

	catalogExercises, err := handler.catalog.Search(ctx, query, catalogPageLimit)
	if err != nil {
		log.Errorf("exercise catalog search for [%s] failed: %s", query, err)
		catalogExercises = nil
	}

	customExercises, err := handler.repo.SearchByQuery(ctx, query)
	if err != nil {
		log.Errorf("failed to search custom exercises for [%s]: %s", query, err)
		http.Error(w, "failed to search exercises", http.StatusInternalServerError)
		return
	}

	handler.writeExercises(w, mergeExercises(customExercises, catalogExercises))
}

// HandleAll returns the first catalog page combined with all custom
// exercises, custom first.
func (handler *Handler) HandleAll(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.exercises.all")
	defer span.End()

	catalogExercises, err := handler.catalog.List(ctx)
	if err != nil {
		log.Errorf("exercise catalog list failed: %s", err)
		catalogExercises = nil
	}

	customExercises, err := handler.repo.List(ctx, ListFilter{})
	if err != nil {
		log.Errorf("failed to list custom exercises: %s", err)
		http.Error(w, "failed to list exercises", http.StatusInternalServerError)
		return
	}

	handler.writeExercises(w, mergeExercises(customExercises, catalogExercises))
}

func (handler *Handler) HandleFilter(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.exercises.filter")
	defer span.End()

	query := r.URL.Query()
	filtered, err := handler.catalog.Filter(ctx, query.Get("name"), query.Get("muscle"), query.Get("type"))
	if err != nil {
		log.Errorf("exercise catalog filter failed: %s", err)
		http.Error(w, "failed to filter exercises", http.StatusInternalServerError)
		return
	}

	handler.writeExercises(w, filtered)
}

// HandleGetByName resolves one exercise: exact catalog match first, then
// the first catalog search hit, then exact custom match, then partial
// custom match.
func (handler *Handler) HandleGetByName(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.exercises.getByName")
	defer span.End()

	name := mux.Vars(r)["name"]
	if name == "" {
		http.Error(w, "error, exercise name empty", http.StatusBadRequest)
		return
	}

	catalogExercises, err := handler.catalog.Search(ctx, name, 5)
	if err != nil {
		log.Errorf("exercise catalog search for [%s] failed: %s", name, err)
	}
	if len(catalogExercises) > 0 {
		found := catalogExercises[0]
		for _, exercise := range catalogExercises {
			if strings.EqualFold(exercise.Name, name) {
				found = exercise
				break
			}
		}
		handler.writeExercise(w, found, http.StatusOK)
		return
	}

	customExercise, err := handler.repo.GetByName(ctx, name)
	if err == nil {
		handler.writeExercise(w, customExercise.AsExercise(), http.StatusOK)
		return
	}
	if !errors.Is(err, ErrExerciseNotFound) {
		log.Errorf("failed to get custom exercise [%s]: %s", name, err)
		http.Error(w, "failed to get exercise", http.StatusInternalServerError)
		return
	}

	partialMatches, err := handler.repo.List(ctx, ListFilter{Name: name})
	if err != nil {
		log.Errorf("failed to search custom exercises for [%s]: %s", name, err)
		http.Error(w, "failed to get exercise", http.StatusInternalServerError)
		return
	}
	if len(partialMatches) > 0 {
		handler.writeExercise(w, partialMatches[0].AsExercise(), http.StatusOK)
		return
	}

	http.Error(w, "exercise not found", http.StatusNotFound)
}

func (handler *Handler) HandleListCustom(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.exercises.listCustom")
	defer span.End()

	query := r.URL.Query()
	customExercises, err := handler.repo.List(ctx, ListFilter{
		Name:       query.Get("name"),
		Muscle:     query.Get("muscle"),
		Type:       query.Get("type"),
		Difficulty: query.Get("difficulty"),
	})
	if err != nil {
		log.Errorf("failed to list custom exercises: %s", err)
		http.Error(w, "failed to list custom exercises", http.StatusInternalServerError)
		return
	}

	result := make([]Exercise, 0, len(customExercises))
	for _, ce := range customExercises {
		result = append(result, ce.AsExercise())
	}
	handler.writeExercises(w, result)
}

func (handler *Handler) HandleGetCustom(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.exercises.getCustom")
	defer span.End()

	name := mux.Vars(r)["name"]
	customExercise, err := handler.repo.GetByName(ctx, name)
	if errors.Is(err, ErrExerciseNotFound) {
		http.Error(w, "custom exercise not found", http.StatusNotFound)
		return
	}
	if err != nil {
		log.Errorf("failed to get custom exercise [%s]: %s", name, err)
		http.Error(w, "failed to get custom exercise", http.StatusInternalServerError)
		return
	}

	handler.writeExercise(w, customExercise.AsExercise(), http.StatusOK)
}

type createCustomExerciseRequest struct {
	Name         string   `json:"name"`
	Muscle       string   `json:"muscle"`
	Equipments   []string `json:"equipments"`
	Difficulty   string   `json:"difficulty"`
	Instructions string   `json:"instructions"`
	Type         string   `json:"type"`
}

func (handler *Handler) HandleCreateCustom(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.exercises.createCustom")
	defer span.End()

	var req createCustomExerciseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Tracef("create custom exercise, unmarshal json params: %s", err)
		http.Error(w, "invalid create exercise request", http.StatusBadRequest)
		return
	}
	if req.Name == "" || req.Muscle == "" {
		http.Error(w, "error, name and muscle are required", http.StatusBadRequest)
		return
	}
	if req.Difficulty == "" {
		req.Difficulty = "beginner"
	}
	if req.Type == "" {
		req.Type = "strength"
	}

	added, err := handler.repo.Add(ctx, CustomExercise{
		Name:         req.Name,
		Muscle:       strings.ToLower(req.Muscle),
		Equipments:   req.Equipments,
		Difficulty:   req.Difficulty,
		Instructions: req.Instructions,
		Type:         req.Type,
	})
	if errors.Is(err, ErrExerciseExists) {
		http.Error(w, "exercise with this name already exists", http.StatusConflict)
		return
	}
	if err != nil {
		log.Errorf("failed to create custom exercise [%s]: %s", req.Name, err)
		http.Error(w, "failed to create custom exercise", http.StatusInternalServerError)
		return
	}

	log.Debugf("new custom exercise created: %s", added.Name)
	handler.writeExercise(w, added.AsExercise(), http.StatusCreated)
}

func (handler *Handler) HandleUpdateCustom(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.exercises.updateCustom")
	defer span.End()

	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		http.Error(w, "error, invalid exercise id", http.StatusBadRequest)
		return
	}

	var update UpdateExercise
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		log.Tracef("update custom exercise, unmarshal json params: %s", err)
		http.Error(w, "invalid update exercise request", http.StatusBadRequest)
		return
	}

	updated, err := handler.repo.Update(ctx, id, update)
	if errors.Is(err, ErrExerciseNotFound) {
		http.Error(w, "custom exercise not found", http.StatusNotFound)
		return
	}
	if errors.Is(err, ErrExerciseExists) {
		http.Error(w, "exercise with this name already exists", http.StatusConflict)
		return
	}
	if err != nil {
		log.Errorf("failed to update custom exercise [%d]: %s", id, err)
		http.Error(w, "failed to update custom exercise", http.StatusInternalServerError)
		return
	}

	handler.writeExercise(w, updated.AsExercise(), http.StatusOK)
}

func (handler *Handler) HandleDeleteCustom(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.exercises.deleteCustom")
	defer span.End()

	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		http.Error(w, "error, invalid exercise id", http.StatusBadRequest)
		return
	}

	err = handler.repo.Delete(ctx, id)
	if errors.Is(err, ErrExerciseNotFound) {
		http.Error(w, "custom exercise not found", http.StatusNotFound)
		return
	}
	if err != nil {
		log.Errorf("failed to delete custom exercise [%d]: %s", id, err)
		http.Error(w, "failed to delete custom exercise", http.StatusInternalServerError)
		return
	}

	pkg.WriteJSONResponseOK(w, `{"message":"custom exercise deleted"}`)
}

// mergeExercises puts custom exercises before catalog ones and drops
// catalog entries whose name collides with a custom exercise.
func mergeExercises(custom []CustomExercise, catalog []Exercise) []Exercise {
	merged := make([]Exercise, 0, len(custom)+len(catalog))
	seen := make(map[string]struct{}, len(custom)+len(catalog))

	for _, ce := range custom {
		name := strings.ToLower(ce.Name)
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		merged = append(merged, ce.AsExercise())
	}
	for _, exercise := range catalog {
		name := strings.ToLower(exercise.Name)
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		merged = append(merged, exercise)
	}
	return merged
}

func (handler *Handler) writeExercises(w http.ResponseWriter, result []Exercise) {
	resultJson, err := json.Marshal(result)
	if err != nil {
		log.Errorf("failed to marshal exercises: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, resultJson, http.StatusOK)
}

func (handler *Handler) writeExercise(w http.ResponseWriter, exercise Exercise, statusCode int) {
	exerciseJson, err := json.Marshal(exercise)
	if err != nil {
		log.Errorf("failed to marshal exercise: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, exerciseJson, statusCode)
}
