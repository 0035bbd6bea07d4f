package controllers

import (
	"spendlens/config"
	"spendlens/internal/events"
	"spendlens/internal/progress"
	"spendlens/internal/repositories"
	"spendlens/internal/state"

	progressController "spendlens/internal/controllers/progress"
	stateController "spendlens/internal/controllers/state"
)

type Controllers struct {
	Progress progressController.ProgressControllerInterface
	State    stateController.StateControllerInterface
}

func New(
	engine *progress.Engine,
	container *state.Container,
	repos repositories.Repository,
	eventBus *events.EventBus,
	config config.Config,
) Controllers {
	return Controllers{
		Progress: progressController.New(engine, repos, eventBus, config),
		State:    stateController.New(container, eventBus),
	}
}
