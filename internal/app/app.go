package app

import (
	"context"
	"time"

	"spendlens/config"
	"spendlens/internal/content"
	"spendlens/internal/controllers"
	"spendlens/internal/database"
	"spendlens/internal/events"
	"spendlens/internal/handlers/middleware"
	"spendlens/internal/jobs"
	"spendlens/internal/logger"
	"spendlens/internal/progress"
	"spendlens/internal/repositories"
	"spendlens/internal/services"
	"spendlens/internal/state"
	"spendlens/internal/storage"
	"spendlens/internal/websockets"
)

type App struct {
	Database   database.DB
	Middleware middleware.Middleware
	Websocket  *websockets.Manager
	EventBus   *events.EventBus
	Config     config.Config

	// Core engine
	Checklist      *content.Checklist
	StateStore     *storage.Store
	ProgressStore  *storage.Store
	StateContainer *state.Container
	ProgressEngine *progress.Engine

	// Services
	SessionService        *services.SessionService
	RecommendationService *services.RecommendationService
	SchedulerService      *services.SchedulerService

	// Repositories
	Repos repositories.Repository

	// Controllers
	Controllers controllers.Controllers
}

func New() (*App, error) {
	log := logger.New("app").Function("New")
	ctx := context.Background()

	config, err := config.InitConfig()
	if err != nil {
		return &App{}, log.Err("failed to initialize config", err)
	}

	db, err := database.New(config)
	if err != nil {
		return &App{}, log.Err("failed to create database", err)
	}

	checklist, err := content.Load(config.ChecklistPath)
	if err != nil {
		return &App{}, log.Err("failed to load checklist definition", err)
	}

	storageOpts := storage.Options{
		Namespace:     config.StorageNamespace,
		MaxValueBytes: config.StorageMaxValueBytes,
	}
	stateStore := storage.New(db.Cache.State, storageOpts)
	progressStore := storage.New(db.Cache.Progress, storageOpts)

	container := state.New(
		stateStore,
		state.NewClock(),
		time.Duration(config.StateDebounceMS)*time.Millisecond,
		state.DefaultState(),
	)
	container.Init(ctx)

	engine, err := progress.New(checklist.TrackerConfig(), progressStore, container)
	if err != nil {
		return &App{}, log.Err("failed to create progress engine", err)
	}
	engine.Load(ctx)
	engine.RegisterOrSync(ctx, checklist.ItemIDs())

	eventBus := events.New(db.Cache.Events)

	sessionService := services.NewSessionService(config)
	recommendationService, err := services.NewRecommendationService()
	if err != nil {
		return &App{}, log.Err("failed to create recommendation service", err)
	}
	schedulerService := services.NewSchedulerService()

	repos := repositories.New(db)

	appControllers := controllers.New(engine, container, repos, eventBus, config)

	websocket, err := websockets.New(eventBus, sessionService, config)
	if err != nil {
		return &App{}, log.Err("failed to create websocket manager", err)
	}

	appMiddleware := middleware.New(db, eventBus, config, sessionService)

	if config.SchedulerEnabled {
		snapshotJob := jobs.NewProgressSnapshotJob(engine, repos.Snapshot, services.Hourly)
		if err := schedulerService.AddJob(snapshotJob); err != nil {
			return &App{}, log.Err("failed to register progress snapshot job", err)
		}
		if err := schedulerService.Start(ctx); err != nil {
			return &App{}, log.Err("failed to start scheduler", err)
		}
	}

	app := &App{
		Database:              db,
		Config:                config,
		Middleware:            appMiddleware,
		Websocket:             websocket,
		EventBus:              eventBus,
		Checklist:             checklist,
		StateStore:            stateStore,
		ProgressStore:         progressStore,
		StateContainer:        container,
		ProgressEngine:        engine,
		SessionService:        sessionService,
		RecommendationService: recommendationService,
		SchedulerService:      schedulerService,
		Repos:                 repos,
		Controllers:           appControllers,
	}

	if err := app.validate(); err != nil {
		return &App{}, log.Err("failed to validate app", err)
	}

	return app, nil
}

func (a *App) validate() error {
	log := logger.New("app").Function("validate")

	if a.Database.SQL == nil {
		return log.ErrMsg("database is nil")
	}

	if a.Config == (config.Config{}) {
		return log.ErrMsg("config is nil")
	}

	nilChecks := []any{
		a.Websocket,
		a.EventBus,
		a.Checklist,
		a.StateStore,
		a.ProgressStore,
		a.StateContainer,
		a.ProgressEngine,
		a.SessionService,
		a.RecommendationService,
		a.SchedulerService,
		a.Controllers.Progress,
		a.Controllers.State,
	}

	for _, check := range nilChecks {
		if check == nil {
			return log.ErrMsg("nil check failed")
		}
	}

	return nil
}

func (a *App) Close() (err error) {
	ctx := context.Background()

	// Pending debounced state writes go out before anything shuts down
	a.StateContainer.Flush(ctx)

	if a.EventBus != nil {
		if closeErr := a.EventBus.Close(); closeErr != nil {
			err = closeErr
		}
	}

	if a.SchedulerService != nil {
		if closeErr := a.SchedulerService.Stop(ctx); closeErr != nil {
			err = closeErr
		}
	}

	if dbErr := a.Database.Close(); dbErr != nil {
		err = dbErr
	}

	return err
}
