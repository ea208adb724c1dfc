package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"live-quiz-service/internal/app"
	"live-quiz-service/internal/config"
	"live-quiz-service/internal/domain"
	amqpsink "live-quiz-service/internal/infra/amqp"
	"live-quiz-service/internal/infra/memory"
	pgstore "live-quiz-service/internal/infra/postgres"
	redisstore "live-quiz-service/internal/infra/redis"
	"live-quiz-service/internal/logging"
	"live-quiz-service/internal/security"
	transport "live-quiz-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg, logger); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return err
		}
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	loader, err := quizLoader(cfg, pool)
	if err != nil {
		return err
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	var quizRepo app.QuizRepository
	if redisClient != nil {
		quizRepo = redisstore.NewQuizRepository(redisClient, loader, quizTTL, logger)
	} else {
		quizRepo = memory.NewQuizRepository(loader, quizTTL)
	}

	var store app.SessionRepository
	if redisClient != nil {
		sessions := redisstore.NewSessionStore(redisClient, redisTTL)
		keepAliveCtx, stopKeepAlive := context.WithCancel(ctx)
		defer stopKeepAlive()
		go sessions.KeepAlive(keepAliveCtx)
		store = sessions
	} else {
		store = memory.NewSessionStore()
	}

	var sinks app.FanoutSink
	if pool != nil {
		sinks = append(sinks, pgstore.NewResultStore(pool))
	}
	if cfg.AMQP.URL != "" {
		exchange := cfg.AMQP.Exchange
		if exchange == "" {
			exchange = "quiz.events"
		}
		publisher, err := amqpsink.Dial(cfg.AMQP.URL, exchange, logger)
		if err != nil {
			return err
		}
		defer publisher.Close()
		sinks = append(sinks, publisher)
	}
	if len(sinks) == 0 {
		sinks = append(sinks, memory.NewResultRecorder())
	}

	hub := transport.NewHub(logger)
	service := app.NewGameService(store, quizRepo, sinks, hub, app.ServiceConfig{
		Logger:            logger,
		LeadIn:            config.TTLDuration(cfg.Game.LeadIn, 3*time.Second),
		FinishedRetention: config.TTLDuration(cfg.Game.FinishedRetention, 5*time.Minute),
		PersistTimeout:    config.TTLDuration(cfg.Game.PersistTimeout, 10*time.Second),
		PinAttempts:       cfg.Game.PinAttempts,
	})
	tokens := security.NewHostTokens(cfg.Host.TokenSecret, config.TTLDuration(cfg.Host.TokenTTL, 12*time.Hour))
	if !tokens.Enabled() {
		logger.Warn("host token secret not configured, host joins are not authenticated")
	}

	router := transport.NewRouter(
		transport.NewGamesHandler(service, tokens, logger),
		transport.NewWSHandler(service, hub, tokens, logger),
		logger,
	)

	server := &http.Server{
		Addr:              ":" + finalPort,
		Handler:           router,
		ReadHeaderTimeout: 15 * time.Second,
	}

	go func() {
		logger.Info("starting quiz service", zap.String("port", finalPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to start server", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		logger.Info("shutting down server")
	case <-ctx.Done():
		logger.Info("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := service.Shutdown(shutdownCtx); err != nil {
		logger.Warn("pending results not persisted before shutdown", zap.Error(err))
	}
	return server.Shutdown(shutdownCtx)
}

func quizLoader(cfg config.Config, pool *pgxpool.Pool) (memory.QuizLoader, error) {
	switch {
	case pool != nil:
		return pgstore.NewQuizLoader(pool), nil
	case cfg.Quiz.File != "":
		return memory.LoadQuizFile(cfg.Quiz.File)
	default:
		return memory.NewStaticQuizLoader(sampleQuizzes()), nil
	}
}

// sampleQuizzes is served when neither Postgres nor a quiz file is configured.
func sampleQuizzes() map[string]domain.QuizSnapshot {
	return map[string]domain.QuizSnapshot{
		"quiz-1": {
			ID:    "quiz-1",
			Title: "Warm-up",
			Questions: []domain.Question{
				{
					Text:      "What is 2 + 2?",
					TimeLimit: 20,
					Points:    1000,
					Kind: domain.ChoiceQuestion{Options: []domain.Option{
						{Text: "3"},
						{Text: "4", Correct: true},
						{Text: "5"},
					}},
				},
				{
					Text:      "Capital of France?",
					TimeLimit: 30,
					Points:    1000,
					Kind:      domain.PuzzleQuestion{CorrectAnswer: "Paris"},
				},
			},
		},
	}
}
