package middleware

import (
	"spendlens/config"
	"spendlens/internal/database"
	"spendlens/internal/events"
	"spendlens/internal/logger"
	"spendlens/internal/services"
)

type Middleware struct {
	DB       database.DB
	Config   config.Config
	sessions *services.SessionService
	log      logger.Logger
	eventBus *events.EventBus
}

func New(
	db database.DB,
	eventBus *events.EventBus,
	config config.Config,
	sessions *services.SessionService,
) Middleware {
	return Middleware{
		DB:       db,
		Config:   config,
		sessions: sessions,
		log:      logger.New("middleware"),
		eventBus: eventBus,
	}
}
