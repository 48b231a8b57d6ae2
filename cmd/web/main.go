package main

import (
	"context"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
	"github.com/myrjola/recoverfit/internal/coach"
	"github.com/myrjola/recoverfit/internal/envstruct"
	"github.com/myrjola/recoverfit/internal/errors"
	"github.com/myrjola/recoverfit/internal/flightrecorder"
	"github.com/myrjola/recoverfit/internal/health"
	"github.com/myrjola/recoverfit/internal/llm"
	"github.com/myrjola/recoverfit/internal/logging"
	"github.com/myrjola/recoverfit/internal/plan"
	"github.com/myrjola/recoverfit/internal/recovery"
	"github.com/myrjola/recoverfit/internal/sqlite"
	"github.com/myrjola/recoverfit/internal/workout"
	"github.com/yuin/goldmark"
)

type application struct {
	logger         *slog.Logger
	db             *sqlite.Database
	sessionManager *scs.SessionManager
	templateFS     fs.FS
	markdown       goldmark.Markdown
	coach          *coach.Service
	workouts       *workout.Service
	// aiTimeout bounds handlers that wait for the completion backend.
	aiTimeout time.Duration
	// flightRecorder is nil when trace capture is disabled.
	flightRecorder *flightrecorder.Recorder
}

type config struct {
	// Addr is the address to listen on. It's possible to choose the address dynamically with localhost:0.
	Addr string `env:"RECOVERFIT_ADDR" envDefault:"localhost:8081"`
	// SqliteURL is the URL to the SQLite database. You can use ":memory:" for an ethereal in-memory database.
	SqliteURL string `env:"RECOVERFIT_SQLITE_URL" envDefault:"./recoverfit.sqlite3"`
	// TemplatePath is the path to the directory containing the HTML templates.
	TemplatePath string `env:"RECOVERFIT_TEMPLATE_PATH" envDefault:""`
	// SecureCookies marks the session cookie Secure. Disable only for plain HTTP development.
	SecureCookies bool `env:"RECOVERFIT_SECURE_COOKIES" envDefault:"true"`

	LLMAPIKey      string  `env:"RECOVERFIT_LLM_API_KEY" envDefault:""`
	LLMBaseURL     string  `env:"RECOVERFIT_LLM_BASE_URL" envDefault:"https://api.keywordsai.co/api/"`
	LLMModel       string  `env:"RECOVERFIT_LLM_MODEL" envDefault:"groq/llama-3.3-70b-versatile"`
	LLMTemperature float64 `env:"RECOVERFIT_LLM_TEMPERATURE" envDefault:"0.7"`
	// LLMTimeout bounds a single completion including retries.
	LLMTimeout       time.Duration `env:"RECOVERFIT_LLM_TIMEOUT" envDefault:"20s"`
	LLMMaxRetries    int           `env:"RECOVERFIT_LLM_MAX_RETRIES" envDefault:"1"`
	LLMMaxConcurrent int           `env:"RECOVERFIT_LLM_MAX_CONCURRENT" envDefault:"4"`

	// HealthFile is an optional YAML snapshot. The synthetic generator is used when it's empty.
	HealthFile string `env:"RECOVERFIT_HEALTH_FILE" envDefault:""`
	// HealthSeed makes the synthetic generator reproducible. Zero picks a random seed.
	HealthSeed int64 `env:"RECOVERFIT_HEALTH_SEED" envDefault:"0"`

	// TracesDirectory enables the flight recorder. A trace is written there when a request times out.
	TracesDirectory string `env:"RECOVERFIT_TRACES_DIRECTORY" envDefault:""`
}

func run(ctx context.Context, logger *slog.Logger, lookupEnv func(string) (string, bool)) error {
	var (
		cancel context.CancelFunc
		err    error
	)

	ctx, cancel = signal.NotifyContext(ctx, os.Interrupt)
	defer cancel()

	var cfg config
	if err = envstruct.Populate(&cfg, lookupEnv); err != nil {
		return errors.Wrap(err, "populate config")
	}

	var htmlTemplatePath string
	if htmlTemplatePath, err = resolveAndVerifyTemplatePath(cfg.TemplatePath); err != nil {
		return errors.Wrap(err, "resolve template path")
	}

	db, err := sqlite.NewDatabase(ctx, cfg.SqliteURL, logger)
	if err != nil {
		return errors.Wrap(err, "open db", slog.String("url", cfg.SqliteURL))
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			logger.LogAttrs(ctx, slog.LevelError, "close db", errors.SlogError(closeErr))
		}
	}()
	logger.LogAttrs(ctx, slog.LevelInfo, "connected to db")

	var wg sync.WaitGroup
	defer wg.Wait()
	optimizerCtx, stopOptimizer := context.WithCancel(ctx)
	defer stopOptimizer()
	wg.Go(func() { db.StartOptimizer(optimizerCtx) })

	sessionStore := sqlite3store.NewWithCleanupInterval(db.ReadWrite, 24*time.Hour) //nolint:mnd // day
	defer sessionStore.StopCleanup()

	workouts := workout.NewService(db, logger)
	completer := llm.NewClient(llm.Config{
		APIKey:        cfg.LLMAPIKey,
		BaseURL:       cfg.LLMBaseURL,
		Model:         cfg.LLMModel,
		Temperature:   cfg.LLMTemperature,
		Timeout:       cfg.LLMTimeout,
		MaxRetries:    cfg.LLMMaxRetries,
		MaxConcurrent: int64(cfg.LLMMaxConcurrent),
	}, logger)

	app := application{
		logger:         logger,
		db:             db,
		sessionManager: initializeSessionManager(sessionStore, cfg.SecureCookies),
		templateFS:     os.DirFS(htmlTemplatePath),
		markdown:       goldmark.New(),
		coach: coach.NewService(
			newHealthSource(cfg, workouts),
			recovery.NewAnalyzer(completer, logger),
			plan.NewGenerator(completer, logger),
			workouts,
			logger,
		),
		workouts:       workouts,
		aiTimeout:      coachedTimeout(cfg.LLMTimeout),
		flightRecorder: nil,
	}

	if cfg.TracesDirectory != "" {
		//nolint:exhaustruct // defaults
		recorder, recorderErr := flightrecorder.New(flightrecorder.Config{TracesDirectory: cfg.TracesDirectory}, logger)
		if recorderErr != nil {
			return errors.Wrap(recorderErr, "new flight recorder")
		}
		if err = recorder.Start(ctx); err != nil {
			return errors.Wrap(err, "start flight recorder")
		}
		defer recorder.Stop(context.WithoutCancel(ctx))
		app.flightRecorder = recorder
	}

	var handler http.Handler
	if handler, err = app.routes(); err != nil {
		return errors.Wrap(err, "routes")
	}
	if err = app.configureAndStartServer(ctx, cfg.Addr, handler); err != nil {
		return errors.Wrap(err, "start server")
	}
	return nil
}

func newHealthSource(cfg config, history health.WorkoutHistory) health.Source {
	if cfg.HealthFile != "" {
		return health.NewFileSource(cfg.HealthFile, history, time.Now)
	}
	return health.NewSyntheticSource(uint64(cfg.HealthSeed), history, time.Now) //nolint:gosec // seed is not secret.
}

func initializeSessionManager(store scs.Store, secure bool) *scs.SessionManager {
	sessionManager := scs.New()
	sessionManager.Store = store
	sessionManager.Lifetime = 12 * time.Hour //nolint:mnd // half a day
	sessionManager.Cookie.Name = "recoverfit_session"
	sessionManager.Cookie.Persist = true
	sessionManager.Cookie.Secure = secure
	sessionManager.Cookie.HttpOnly = true
	sessionManager.Cookie.SameSite = http.SameSiteLaxMode
	return sessionManager
}

func main() {
	ctx := context.Background()
	level := slog.LevelDebug
	if v, ok := os.LookupEnv("RECOVERFIT_LOG_LEVEL"); ok {
		parsed, err := logging.ParseLevel(v)
		if err == nil {
			level = parsed
		}
	}
	logger := logging.NewLogger(os.Stdout, level)
	if err := run(ctx, logger, os.LookupEnv); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "failure starting application", errors.SlogError(err))
		os.Exit(1)
	}
}
