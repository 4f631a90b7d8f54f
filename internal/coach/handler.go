package coach

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/mvukovic/liftlog/internal/profile"
	"github.com/mvukovic/liftlog/internal/telemetry/tracing"
	"github.com/mvukovic/liftlog/internal/workout/analytics"
	"github.com/mvukovic/liftlog/internal/workout/routines"
	"github.com/mvukovic/liftlog/internal/workout/sets"
	"github.com/mvukovic/liftlog/pkg"
)

const (
	historyWindowDays = 7
	splitWindowDays   = 30
)

type profileGetter interface {
	Get(ctx context.Context, userID string) (*profile.Profile, error)
}

type routinesGetter interface {
	GetAll(ctx context.Context, userID string) ([]routines.DayRoutine, error)
}

type setsGetter interface {
	ListForUserSince(ctx context.Context, userID string, since time.Time) ([]sets.Set, error)
}

type muscleSplitter interface {
	MuscleSplit(ctx context.Context, userID string, windowDays int) (*analytics.MuscleSplit, error)
}

type completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

type recommendationsRepo interface {
	Upsert(ctx context.Context, cached CachedRecommendation) error
	Get(ctx context.Context, userID string) (*CachedRecommendation, error)
}

type Handler struct {
	profiles   profileGetter
	routines   routinesGetter
	sets       setsGetter
	analyzer   muscleSplitter
	completion completer
	repo       recommendationsRepo
}

func NewHandler(
	profiles profileGetter,
	routinesRepo routinesGetter,
	setsRepo setsGetter,
	analyzer muscleSplitter,
	completion completer,
	repo recommendationsRepo,
) *Handler {
	return &Handler{
		profiles:   profiles,
		routines:   routinesRepo,
		sets:       setsRepo,
		analyzer:   analyzer,
		completion: completion,
		repo:       repo,
	}
}

type recommendRequest struct {
	UserID string `json:"userId"`
}

type recommendResponse struct {
	Success        bool           `json:"success"`
	Recommendation Recommendation `json:"recommendations"`
	GeneratedAt    time.Time      `json:"generatedAt"`
}

func (handler *Handler) HandleRecommend(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.coach.recommend")
	defer span.End()

	var req recommendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Tracef("recommend, unmarshal json params: %s", err)
		http.Error(w, "invalid recommend request", http.StatusBadRequest)
		return
	}
	if req.UserID == "" {
		http.Error(w, "error, user id empty", http.StatusBadRequest)
		return
	}

	userProfile, err := handler.profiles.Get(ctx, req.UserID)
	if err != nil {
		log.Errorf("recommend: failed to get profile for user [%s]: %s", req.UserID, err)
		http.Error(w, "failed to generate recommendations", http.StatusInternalServerError)
		return
	}
	userRoutines, err := handler.routines.GetAll(ctx, req.UserID)
	if err != nil {
		log.Errorf("recommend: failed to get routines for user [%s]: %s", req.UserID, err)
		http.Error(w, "failed to generate recommendations", http.StatusInternalServerError)
		return
	}
	recentSets, err := handler.sets.ListForUserSince(
		ctx, req.UserID,
		time.Now().UTC().AddDate(0, 0, -historyWindowDays),
	)
	if err != nil {
		log.Errorf("recommend: failed to get recent sets for user [%s]: %s", req.UserID, err)
		http.Error(w, "failed to generate recommendations", http.StatusInternalServerError)
		return
	}
	split, err := handler.analyzer.MuscleSplit(ctx, req.UserID, splitWindowDays)
	if err != nil {
		log.Errorf("recommend: failed to get muscle split for user [%s]: %s", req.UserID, err)
		http.Error(w, "failed to generate recommendations", http.StatusInternalServerError)
		return
	}

	prompt := BuildPrompt(userProfile, userRoutines, recentSets, split)

	responseText, err := handler.completion.Complete(ctx, prompt)
	if err != nil {
		log.Errorf("recommend: completion for user [%s] failed: %s", req.UserID, err)
		http.Error(w, "failed to generate recommendations", http.StatusInternalServerError)
		return
	}

	recommendation := ParseRecommendation(responseText)
	generatedAt := time.Now().UTC()

	// a stored profile always carries timestamps, an empty synthetic
	// one does not
	cached := CachedRecommendation{
		UserID:         req.UserID,
		Recommendation: recommendation,
		DataSnapshot: DataSnapshot{
			HasProfile:     !userProfile.UpdatedAt.IsZero(),
			RoutineCount:   len(userRoutines),
			RecentSetCount: len(recentSets),
		},
		GeneratedAt: generatedAt,
	}
	if err := handler.repo.Upsert(ctx, cached); err != nil {
		// the user still gets the fresh recommendation, only the
		// cached copy is lost
		log.Errorf("recommend: failed to store recommendation for user [%s]: %s", req.UserID, err)
	}

	responseJson, err := json.Marshal(recommendResponse{
		Success:        true,
		Recommendation: recommendation,
		GeneratedAt:    generatedAt,
	})
	if err != nil {
		log.Errorf("failed to marshal recommend response: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	log.Debugf("recommendation generated for user: %s", req.UserID)
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, responseJson, http.StatusOK)
}

type cachedRecommendResponse struct {
	Cached         bool            `json:"cached"`
	Recommendation *Recommendation `json:"recommendations"`
	GeneratedAt    *time.Time      `json:"generatedAt,omitempty"`
	DataSnapshot   *DataSnapshot   `json:"dataSnapshot,omitempty"`
}

func (handler *Handler) HandleGetCached(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.coach.getCached")
	defer span.End()

	userID := mux.Vars(r)["userId"]
	if userID == "" {
		http.Error(w, "error, user id empty", http.StatusBadRequest)
		return
	}

	response := cachedRecommendResponse{}
	cached, err := handler.repo.Get(ctx, userID)
	switch {
	case errors.Is(err, ErrRecommendationNotFound):
		// cached stays false, recommendations null
	case err != nil:
		log.Errorf("failed to get cached recommendation for user [%s]: %s", userID, err)
		http.Error(w, "failed to get recommendations", http.StatusInternalServerError)
		return
	default:
		response.Cached = true
		response.Recommendation = &cached.Recommendation
		response.GeneratedAt = &cached.GeneratedAt
		response.DataSnapshot = &cached.DataSnapshot
	}

	responseJson, err := json.Marshal(response)
	if err != nil {
		log.Errorf("failed to marshal cached recommend response: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, responseJson, http.StatusOK)
}
