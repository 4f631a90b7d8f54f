package integration_testing

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"github.com/mvukovic/liftlog/internal"
	"github.com/mvukovic/liftlog/internal/config"

	_ "github.com/lib/pq"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
)

const (
	serverPort = 9000
	serverHost = "localhost"
)

var serverEndpoint = fmt.Sprintf("http://%s:%d", serverHost, serverPort)

type Suite struct {
	DB         *sql.DB
	dockerPool *dockertest.Pool
	server     *internal.Server
	teardown   []func()
}

func newSuite(ctx context.Context) (_ *Suite) {
	var err error
	suite := &Suite{
		teardown: make([]func(), 0),
	}

	// uses a sensible default on windows (tcp/http) and linux/osx (socket)
	suite.dockerPool, err = dockertest.NewPool("")
	if err != nil {
		log.Fatalf("could not create new dockertest pool: %s", err)
	}

	// uses pool to try to connect to Docker
	if err = suite.dockerPool.Client.Ping(); err != nil {
		log.Fatalf("could not ping dockertest pool: %s", err)
	}

	pgPort, err := suite.postgresSetup()
	if err != nil {
		suite.cleanup()
		log.Fatalf("failed to setup postgres: %s", err)
	}

	cfg := getTestConfig(pgPort)
	suite.server, err = internal.NewServer(
		ctx,
		internal.NewServerParams{
			Config: cfg,
			Secrets: &config.Secrets{
				CoachAPIKey:        "test",
				ExerciseCatalogKey: "test",
			},
			TracingEnabled: false,
		},
	)
	if err != nil {
		suite.cleanup()
		log.Fatalf("new server: %s", err)
	}

	suite.server.Serve(cfg.Host, cfg.Port)

	return suite
}

func (s *Suite) cleanup() {
	if s.DB != nil {
		s.DB.Close()
	}
	for _, teardown := range s.teardown {
		teardown()
	}
	if s.server != nil {
		s.server.GracefulShutdown()
	}
}

func getTestConfig(postgresPort string) *config.Config {
	return &config.Config{
		Environment:              "development",
		Host:                     serverHost,
		Port:                     serverPort,
		LogLevel:                 "trace",
		LogToStdout:              true,
		PostgresHost:             "localhost",
		PostgresPort:             postgresPort,
		PostgresDBName:           "liftlog",
		PrometheusMetricsHost:    "localhost",
		PrometheusMetricsPort:    "9002",
		CoachModel:               "test-model",
		CoachTimeoutSeconds:      5,
		AnalyticsCacheTTLSeconds: 60,
	}
}

func (s *Suite) postgresSetup() (string, error) {
	pgResource, err := s.dockerPool.RunWithOptions(&dockertest.RunOptions{
		Repository: "postgres",
		Tag:        "15",
		Env: []string{
			"POSTGRES_USER=postgres",
			"POSTGRES_HOST_AUTH_METHOD=trust",
			"POSTGRES_DB=liftlog",
		},
	}, func(config *docker.HostConfig) {
		config.AutoRemove = true
		config.RestartPolicy = docker.RestartPolicy{
			Name: "no",
		}
	})
	if err != nil {
		return "", fmt.Errorf("dockerpool run postgres: %s", err)
	}

	s.teardown = append(s.teardown, func() {
		pgResource.Close()
	})

	pgPort := pgResource.GetPort("5432/tcp")
	dsn := fmt.Sprintf("postgres://postgres@localhost:%s/liftlog?sslmode=disable", pgPort)

	if err := s.dockerPool.Retry(func() error {
		db, err := sql.Open("postgres", dsn)
		if err != nil {
			return fmt.Errorf("open db conn: %s", err)
		}
		if err := db.Ping(); err != nil {
			db.Close()
			return fmt.Errorf("ping db: %s", err)
		}
		s.DB = db
		return nil
	}); err != nil {
		return "", fmt.Errorf("wait for postgres: %s", err)
	}

	res, err := s.DB.Exec(initSQL)
	if err != nil {
		return "", fmt.Errorf("run init script: %s", err)
	}

	numRows, err := res.RowsAffected()
	if err != nil {
		return "", fmt.Errorf("get rows affected: %s", err)
	}

	log.Printf("postgres setup result: %d\n", numRows)

	return pgPort, nil
}

const initSQL = `
CREATE TABLE public.workout_set
(
    id            SERIAL PRIMARY KEY,
    exercise_name VARCHAR          NOT NULL,
    weight        DOUBLE PRECISION NOT NULL,
    reps          INTEGER          NOT NULL,
    rpe           INTEGER,
    notes         VARCHAR,
    user_id       VARCHAR          NOT NULL,
    day           VARCHAR,
    volume        DOUBLE PRECISION NOT NULL,
    estimated_1rm DOUBLE PRECISION NOT NULL,
    created_at    TIMESTAMPTZ      NOT NULL
);

ALTER TABLE public.workout_set OWNER TO postgres;
CREATE INDEX ix_workout_set_exercise_name ON public.workout_set (exercise_name);
CREATE INDEX ix_workout_set_user_id ON public.workout_set (user_id);
CREATE INDEX ix_workout_set_created_at ON public.workout_set (created_at);

CREATE TABLE public.day_routine
(
    id         SERIAL PRIMARY KEY,
    user_id    VARCHAR     NOT NULL,
    day        VARCHAR     NOT NULL,
    exercises  JSONB       NOT NULL DEFAULT '[]',
    created_at TIMESTAMPTZ NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL,
    UNIQUE (user_id, day)
);

ALTER TABLE public.day_routine OWNER TO postgres;

CREATE TABLE public.custom_exercise
(
    id           SERIAL PRIMARY KEY,
    name         VARCHAR     NOT NULL,
    muscle       VARCHAR     NOT NULL,
    equipments   TEXT[]      NOT NULL DEFAULT '{}',
    difficulty   VARCHAR     NOT NULL,
    instructions VARCHAR,
    type         VARCHAR     NOT NULL,
    created_at   TIMESTAMPTZ NOT NULL,
    updated_at   TIMESTAMPTZ
);

ALTER TABLE public.custom_exercise OWNER TO postgres;
CREATE UNIQUE INDEX ux_custom_exercise_name ON public.custom_exercise (LOWER(name));

CREATE TABLE public.profile
(
    user_id             VARCHAR PRIMARY KEY,
    weight              DOUBLE PRECISION,
    height              DOUBLE PRECISION,
    fat_mass            DOUBLE PRECISION,
    muscle_mass         DOUBLE PRECISION,
    body_fat_percentage DOUBLE PRECISION,
    bmi                 DOUBLE PRECISION,
    waist               DOUBLE PRECISION,
    chest               DOUBLE PRECISION,
    arms                DOUBLE PRECISION,
    thighs              DOUBLE PRECISION,
    age                 INTEGER,
    gender              VARCHAR,
    goal_weight         DOUBLE PRECISION,
    notes               VARCHAR,
    custom_fields       JSONB       NOT NULL DEFAULT '[]',
    created_at          TIMESTAMPTZ NOT NULL,
    updated_at          TIMESTAMPTZ NOT NULL
);

ALTER TABLE public.profile OWNER TO postgres;

CREATE TABLE public.body_composition_record
(
    id                  SERIAL PRIMARY KEY,
    user_id             VARCHAR     NOT NULL,
    weight              DOUBLE PRECISION,
    fat_mass            DOUBLE PRECISION,
    muscle_mass         DOUBLE PRECISION,
    body_fat_percentage DOUBLE PRECISION,
    notes               VARCHAR,
    recorded_at         TIMESTAMPTZ NOT NULL
);

ALTER TABLE public.body_composition_record OWNER TO postgres;
CREATE INDEX ix_body_composition_record_user_id ON public.body_composition_record (user_id, recorded_at);

CREATE TABLE public.ai_recommendation
(
    id             SERIAL PRIMARY KEY,
    user_id        VARCHAR     NOT NULL UNIQUE,
    recommendation JSONB       NOT NULL,
    data_snapshot  JSONB       NOT NULL,
    generated_at   TIMESTAMPTZ NOT NULL,
    created_at     TIMESTAMPTZ NOT NULL
);

ALTER TABLE public.ai_recommendation OWNER TO postgres;
`
