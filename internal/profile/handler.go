package profile

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/mvukovic/liftlog/internal/telemetry/tracing"
	"github.com/mvukovic/liftlog/pkg"
)

type profileRepo interface {
	Upsert(ctx context.Context, p Profile) (*Profile, error)
	Get(ctx context.Context, userID string) (*Profile, error)
	AddHistoryRecord(ctx context.Context, record HistoryRecord) (*HistoryRecord, error)
	History(ctx context.Context, userID string, limit int) ([]HistoryRecord, error)
}

type Handler struct {
	repo profileRepo
}

func NewHandler(repo profileRepo) *Handler {
	return &Handler{
		repo: repo,
	}
}

func (handler *Handler) HandleUpsert(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.profile.upsert")
	defer span.End()

	var p Profile
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		log.Tracef("save profile, unmarshal json params: %s", err)
		http.Error(w, "invalid profile request", http.StatusBadRequest)
		return
	}
	if p.UserID == "" {
		http.Error(w, "error, user id empty", http.StatusBadRequest)
		return
	}

	p.DeriveBodyStats()

	saved, err := handler.repo.Upsert(ctx, p)
	if err != nil {
		log.Errorf("failed to save profile for user [%s]: %s", p.UserID, err)
		http.Error(w, "failed to save profile", http.StatusInternalServerError)
		return
	}

	savedJson, err := json.Marshal(saved)
	if err != nil {
		log.Errorf("failed to marshal profile: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	log.Debugf("profile saved for user: %s", saved.UserID)
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, savedJson, http.StatusOK)
}

func (handler *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.profile.get")
	defer span.End()

	userID := mux.Vars(r)["userId"]
	if userID == "" {
		http.Error(w, "error, user id empty", http.StatusBadRequest)
		return
	}

	p, err := handler.repo.Get(ctx, userID)
	if err != nil {
		log.Errorf("failed to get profile for user [%s]: %s", userID, err)
		http.Error(w, "failed to get profile", http.StatusInternalServerError)
		return
	}

	profileJson, err := json.Marshal(p)
	if err != nil {
		log.Errorf("failed to marshal profile: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, profileJson, http.StatusOK)
}

func (handler *Handler) HandleAddHistory(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.profile.addHistory")
	defer span.End()

	var record HistoryRecord
	if err := json.NewDecoder(r.Body).Decode(&record); err != nil {
		log.Tracef("add history record, unmarshal json params: %s", err)
		http.Error(w, "invalid history record request", http.StatusBadRequest)
		return
	}
	if record.UserID == "" {
		http.Error(w, "error, user id empty", http.StatusBadRequest)
		return
	}

	added, err := handler.repo.AddHistoryRecord(ctx, record)
	if err != nil {
		log.Errorf("failed to add history record for user [%s]: %s", record.UserID, err)
		http.Error(w, "failed to add history record", http.StatusInternalServerError)
		return
	}

	addedJson, err := json.Marshal(added)
	if err != nil {
		log.Errorf("failed to marshal history record: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, addedJson, http.StatusCreated)
}

func (handler *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.profile.history")
	defer span.End()

	userID := mux.Vars(r)["userId"]
	if userID == "" {
		http.Error(w, "error, user id empty", http.StatusBadRequest)
		return
	}

	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 {
			http.Error(w, "invalid limit (has to be a positive number)", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	history, err := handler.repo.History(ctx, userID, limit)
	if err != nil {
		log.Errorf("failed to get history for user [%s]: %s", userID, err)
		http.Error(w, "failed to get history", http.StatusInternalServerError)
		return
	}

	historyJson, err := json.Marshal(history)
	if err != nil {
		log.Errorf("failed to marshal history: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, historyJson, http.StatusOK)
}
