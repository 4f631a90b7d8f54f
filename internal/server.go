package internal

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	pgxpoolprometheus "github.com/IBM/pgxpoolprometheus"
	"github.com/getsentry/sentry-go"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/mvukovic/liftlog/internal/cache"
	"github.com/mvukovic/liftlog/internal/coach"
	"github.com/mvukovic/liftlog/internal/config"
	"github.com/mvukovic/liftlog/internal/db"
	"github.com/mvukovic/liftlog/internal/exercises"
	"github.com/mvukovic/liftlog/internal/middleware"
	"github.com/mvukovic/liftlog/internal/profile"
	"github.com/mvukovic/liftlog/internal/telemetry/metrics"
	"github.com/mvukovic/liftlog/internal/telemetry/tracing"
	"github.com/mvukovic/liftlog/internal/workout/analytics"
	"github.com/mvukovic/liftlog/internal/workout/routines"
	"github.com/mvukovic/liftlog/internal/workout/sets"
)

type Server struct {
	config            *config.Config
	httpServer        *http.Server
	metricsHttpServer *http.Server

	dbPool *pgxpool.Pool

	exerciseCatalog  *exercises.Catalog
	completionClient *coach.CompletionClient
	analyticsCache   cache.Cache

	// telemetry
	metricsManager *metrics.Manager
	promRegistry   *prometheus.Registry
	otelShutdown   func()
}

type NewServerParams struct {
	Config         *config.Config
	Secrets        *config.Secrets
	TracingEnabled bool
}

func NewServer(
	ctx context.Context,
	params NewServerParams,
) (*Server, error) {
	dbPool, err := db.NewDBPool(ctx, db.NewDBPoolParams{
		DBHost:         params.Config.PostgresHost,
		DBPort:         params.Config.PostgresPort,
		DBName:         params.Config.PostgresDBName,
		TracingEnabled: params.TracingEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("new db pool: %w", err)
	}

	if err := dbPool.Ping(ctx); err != nil {
		log.Warnf("failed to ping db: %s", err)
	}

	pgxpoolCollector := pgxpoolprometheus.NewCollector(
		dbPool,
		map[string]string{"db_name": params.Config.PostgresDBName},
	)
	promRegistry := metrics.SetupPrometheus(pgxpoolCollector)
	metricsManager := metrics.NewManager("liftlog", "main", promRegistry)
	metricsManager.GaugeLifeSignal.Set(0)

	otelShutdown, err := tracing.Setup(params.TracingEnabled, "liftlog-backend")
	if err != nil {
		return nil, fmt.Errorf("otel setup: %w", err)
	}

	tracedHttpClient := &http.Client{
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
	completionHttpClient := &http.Client{
		Transport: otelhttp.NewTransport(http.DefaultTransport),
		Timeout:   time.Duration(params.Config.CoachTimeoutSeconds) * time.Second,
	}

	return &Server{
		config: params.Config,
		dbPool: dbPool,

		exerciseCatalog: exercises.NewCatalog(
			params.Config.ExerciseCatalogBaseURL,
			params.Secrets.ExerciseCatalogKey,
			tracedHttpClient,
		),
		completionClient: coach.NewCompletionClient(
			params.Config.CoachBaseURL,
			params.Secrets.CoachAPIKey,
			params.Config.CoachModel,
			completionHttpClient,
		),
		analyticsCache: cache.NewTTLCache(nil),

		// telemetry
		metricsManager: metricsManager,
		promRegistry:   promRegistry,
		otelShutdown:   otelShutdown,
	}, nil
}

func (s *Server) routerSetup() *mux.Router {
	r := mux.NewRouter()
	r.Use(otelmux.Middleware("main-router"))

	setsRepo := sets.NewRepo(s.dbPool)
	setsHandler := sets.NewHandler(setsRepo, s.analyticsCache, s.metricsManager)
	r.HandleFunc("/sets", setsHandler.HandleAdd).Methods("POST", "OPTIONS").Name("new-set")
	r.HandleFunc("/sets/exercise/{name}", setsHandler.HandleListForExercise).Methods("GET", "OPTIONS").Name("list-sets")
	r.HandleFunc("/sets/exercise/{name}/history", setsHandler.HandleHistory).Methods("GET", "OPTIONS").Name("set-history")
	r.HandleFunc("/user/{userId}/sets", setsHandler.HandleListForUser).Methods("GET", "OPTIONS").Name("user-sets")

	routinesRepo := routines.NewRepo(s.dbPool)
	routinesHandler := routines.NewHandler(routinesRepo, s.analyticsCache, s.metricsManager)
	r.HandleFunc("/routines/{userId}", routinesHandler.HandleGetAll).Methods("GET", "OPTIONS").Name("all-routines")
	r.HandleFunc("/routines/{userId}/sync", routinesHandler.HandleSync).Methods("POST", "OPTIONS").Name("sync-routines")
	r.HandleFunc("/routines/{userId}/{day}", routinesHandler.HandleGet).Methods("GET", "OPTIONS").Name("get-routine")
	r.HandleFunc("/routines/{userId}/{day}/exercises", routinesHandler.HandleAddExercise).Methods("POST", "OPTIONS").Name("add-routine-exercise")
	r.HandleFunc("/routines/{userId}/{day}/exercises", routinesHandler.HandleReorder).Methods("PUT", "OPTIONS").Name("reorder-routine-exercises")
	r.HandleFunc("/routines/{userId}/{day}/exercises/{name}", routinesHandler.HandleRemoveExercise).Methods("DELETE", "OPTIONS").Name("remove-routine-exercise")

	analyzer := analytics.NewAnalyzer(setsRepo, routinesRepo, nil)
	analyticsHandler := analytics.NewHandler(
		analyzer,
		s.analyticsCache,
		time.Duration(s.config.AnalyticsCacheTTLSeconds)*time.Second,
		s.metricsManager,
	)
	r.HandleFunc("/analytics/{userId}/muscle-split", analyticsHandler.HandleMuscleSplit).Methods("GET", "OPTIONS").Name("muscle-split")
	r.HandleFunc("/analytics/{userId}/consistency", analyticsHandler.HandleConsistency).Methods("GET", "OPTIONS").Name("consistency")

	customExercisesRepo := exercises.NewRepo(s.dbPool)
	exercisesHandler := exercises.NewHandler(customExercisesRepo, s.exerciseCatalog)
	r.HandleFunc("/exercises/search/{query}", exercisesHandler.HandleSearch).Methods("GET", "OPTIONS").Name("search-exercises")
	r.HandleFunc("/exercises/all", exercisesHandler.HandleAll).Methods("GET", "OPTIONS").Name("all-exercises")
	r.HandleFunc("/exercises", exercisesHandler.HandleFilter).Methods("GET", "OPTIONS").Name("filter-exercises")
	r.HandleFunc("/exercises/{name}", exercisesHandler.HandleGetByName).Methods("GET", "OPTIONS").Name("get-exercise")
	r.HandleFunc("/custom-exercises", exercisesHandler.HandleListCustom).Methods("GET", "OPTIONS").Name("list-custom-exercises")
	r.HandleFunc("/custom-exercises", exercisesHandler.HandleCreateCustom).Methods("POST", "OPTIONS").Name("new-custom-exercise")
	r.HandleFunc("/custom-exercises/{name}", exercisesHandler.HandleGetCustom).Methods("GET", "OPTIONS").Name("get-custom-exercise")
	r.HandleFunc("/custom-exercises/{id}", exercisesHandler.HandleUpdateCustom).Methods("PUT", "OPTIONS").Name("update-custom-exercise")
	r.HandleFunc("/custom-exercises/{id}", exercisesHandler.HandleDeleteCustom).Methods("DELETE", "OPTIONS").Name("delete-custom-exercise")

	profileRepo := profile.NewRepo(s.dbPool)
	profileHandler := profile.NewHandler(profileRepo)
	r.HandleFunc("/profile", profileHandler.HandleUpsert).Methods("POST", "OPTIONS").Name("upsert-profile")
	r.HandleFunc("/profile/history", profileHandler.HandleAddHistory).Methods("POST", "OPTIONS").Name("new-body-composition-record")
	r.HandleFunc("/profile/{userId}", profileHandler.HandleGet).Methods("GET", "OPTIONS").Name("get-profile")
	r.HandleFunc("/profile/{userId}/history", profileHandler.HandleHistory).Methods("GET", "OPTIONS").Name("body-composition-history")

	coachHandler := coach.NewHandler(
		profileRepo,
		routinesRepo,
		setsRepo,
		analyzer,
		s.completionClient,
		coach.NewRepo(s.dbPool),
	)
	r.HandleFunc("/ai/recommend", coachHandler.HandleRecommend).Methods("POST", "OPTIONS").Name("new-recommendation")
	r.HandleFunc("/ai/recommend/{userId}", coachHandler.HandleGetCached).Methods("GET", "OPTIONS").Name("cached-recommendation")

	// all the rest - unhandled paths
	r.HandleFunc("/{unknown}", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}).Methods("GET", "POST", "PUT", "DELETE", "OPTIONS").Name("unknown")

	r.Use(middleware.PanicRecovery(s.metricsManager))
	r.Use(middleware.LogRequest())
	r.Use(middleware.RequestMetrics(s.metricsManager))
	r.Use(middleware.Cors())
	r.Use(middleware.DrainAndCloseRequest())

	return r
}

func (s *Server) Serve(host string, port int) {
	router := s.routerSetup()

	ipAndPort := net.JoinHostPort(host, strconv.Itoa(port))
	s.httpServer = &http.Server{
		Handler:      router,
		Addr:         ipAndPort,
		WriteTimeout: time.Minute,
		ReadTimeout:  time.Minute,
		ConnState:    s.connStateMetrics,
	}

	metricsRouter := mux.NewRouter()
	metricsRouter.Handle("/metrics", promhttp.HandlerFor(
		s.promRegistry,
		promhttp.HandlerOpts{},
	))
	metricsAddr := net.JoinHostPort(s.config.PrometheusMetricsHost, s.config.PrometheusMetricsPort)
	s.metricsHttpServer = &http.Server{
		Addr:    metricsAddr,
		Handler: metricsRouter,
	}

	go func() {
		log.Infof(" > server listening on: [%s]", ipAndPort)
		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("main service, listen and serve: %s", err)
		}
	}()

	go func() {
		log.Debugf(" > metrics listening on: [%s]", metricsAddr)
		err := s.metricsHttpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("metrics service, listen and serve: %s", err)
		}
	}()

	s.metricsManager.GaugeLifeSignal.Set(1)
}

func (s *Server) GracefulShutdown() {
	log.Debug("graceful shutdown initiated ...")

	s.metricsManager.GaugeLifeSignal.Set(0)

	s.otelShutdown()
	log.Trace("otel shut down ...")

	if s.dbPool != nil {
		log.Debugln("closing db pool ...")
		s.dbPool.Close() // blocking operation
		log.Debugln("db pool closed")
	}

	if ok := sentry.Flush(5 * time.Second); ok {
		log.Debugf("sentry flush ok: %t", ok)
	}

	maxWaitDuration := time.Second * 15
	ctx, timeoutCancel := context.WithTimeout(context.Background(), maxWaitDuration)
	defer timeoutCancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		log.Error(" >>> failed to gracefully shutdown http server")
	}
	log.Warnln("server shut down")

	if err := s.metricsHttpServer.Shutdown(ctx); err != nil {
		log.Error(" >>> failed to gracefully shutdown metrics http server")
	}
	log.Warnln("metrics server shut down")
}

func (s *Server) connStateMetrics(_ net.Conn, state http.ConnState) {
	switch state {
	case http.StateNew:
		s.metricsManager.GaugeRequests.Add(1)
	case http.StateClosed:
		s.metricsManager.GaugeRequests.Add(-1)
	default:
		// do nothing
	}
}
