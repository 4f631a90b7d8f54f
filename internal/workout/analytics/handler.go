package analytics

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/mvukovic/liftlog/internal/cache"
	"github.com/mvukovic/liftlog/internal/telemetry/metrics"
	"github.com/mvukovic/liftlog/internal/telemetry/tracing"
	"github.com/mvukovic/liftlog/pkg"
)

type Handler struct {
	analyzer      *Analyzer
	responseCache cache.Cache
	cacheTTL      time.Duration
	metrics       *metrics.Manager
}

func NewHandler(
	analyzer *Analyzer,
	responseCache cache.Cache,
	cacheTTL time.Duration,
	metricsManager *metrics.Manager,
) *Handler {
	return &Handler{
		analyzer:      analyzer,
		responseCache: responseCache,
		cacheTTL:      cacheTTL,
		metrics:       metricsManager,
	}
}

func (handler *Handler) HandleMuscleSplit(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.analytics.muscleSplit")
	defer span.End()

	userID, windowDays, ok := handler.userAndWindow(w, r)
	if !ok {
		return
	}

	cacheKey := fmt.Sprintf("analytics:%s:muscle-split:%d", userID, windowDays)
	if handler.serveCached(w, cacheKey) {
		return
	}

	split, err := handler.analyzer.MuscleSplit(ctx, userID, windowDays)
	if err != nil {
		log.Errorf("failed to get muscle split for user [%s]: %s", userID, err)
		http.Error(w, "failed to get muscle split", http.StatusInternalServerError)
		return
	}

	handler.writeAndCache(w, cacheKey, split)
}

func (handler *Handler) HandleConsistency(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.analytics.consistency")
	defer span.End()

	userID, windowDays, ok := handler.userAndWindow(w, r)
	if !ok {
		return
	}

	cacheKey := fmt.Sprintf("analytics:%s:consistency:%d", userID, windowDays)
	if handler.serveCached(w, cacheKey) {
		return
	}

	report, err := handler.analyzer.ConsistencyReport(ctx, userID, windowDays)
	if err != nil {
		log.Errorf("failed to get consistency for user [%s]: %s", userID, err)
		http.Error(w, "failed to get consistency", http.StatusInternalServerError)
		return
	}

	handler.writeAndCache(w, cacheKey, report)
}

func (handler *Handler) userAndWindow(w http.ResponseWriter, r *http.Request) (userID string, windowDays int, ok bool) {
	userID = mux.Vars(r)["userId"]
	if userID == "" {
		http.Error(w, "error, user id empty", http.StatusBadRequest)
		return "", 0, false
	}

	windowDays = defaultWindowDays
	if daysStr := r.URL.Query().Get("days"); daysStr != "" {
		days, err := strconv.Atoi(daysStr)
		if err != nil || days < 1 {
			http.Error(w, "invalid days (has to be a positive number)", http.StatusBadRequest)
			return "", 0, false
		}
		windowDays = days
	}
	return userID, windowDays, true
}

func (handler *Handler) serveCached(w http.ResponseWriter, cacheKey string) bool {
	if handler.responseCache == nil {
		return false
	}
	cached, found := handler.responseCache.Get(cacheKey)
	if !found {
		if handler.metrics != nil {
			handler.metrics.CounterCacheMisses.Inc()
		}
		return false
	}
	if handler.metrics != nil {
		handler.metrics.CounterCacheHits.Inc()
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, cached, http.StatusOK)
	return true
}

func (handler *Handler) writeAndCache(w http.ResponseWriter, cacheKey string, result any) {
	resultJson, err := json.Marshal(result)
	if err != nil {
		log.Errorf("failed to marshal analytics result: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	if handler.responseCache != nil && handler.cacheTTL > 0 {
		handler.responseCache.Set(cacheKey, resultJson, handler.cacheTTL)
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, resultJson, http.StatusOK)
}
