package prompt

import (
	"gameplan-api/core/database"
	"gameplan-api/core/middleware"
	"gameplan-api/core/tasks"
	availabilityrepo "gameplan-api/modules/availability/repository"
	notificationservice "gameplan-api/modules/notification/service"
	"gameplan-api/modules/prompt/controller"
	"gameplan-api/modules/prompt/repository"
	"gameplan-api/modules/prompt/router"
	"gameplan-api/modules/prompt/service"
	suggestion "gameplan-api/modules/suggestion"
	suggestionrepo "gameplan-api/modules/suggestion/repository"
	tokenservice "gameplan-api/modules/token/service"

	"github.com/hibiken/asynq"
	"github.com/labstack/echo/v4"
)

// Init initializes the prompt module: HTTP routes plus the scheduled job
// handlers registered on the worker mux.
func Init(
	g *echo.Group,
	db database.IDatabase,
	mw *middleware.Middleware,
	taskClient tasks.TaskClient,
	mux *asynq.ServeMux,
	tokens tokenservice.TokenServiceInterface,
	notifications *notificationservice.NotificationService,
	suggestions *suggestion.Services,
) *service.PromptService {
	promptRepository := repository.NewPromptRepository(db)
	responseRepo := availabilityrepo.NewResponseRepository(db)
	suggestionRepository := suggestionrepo.NewSuggestionRepository(db)

	scheduler := service.NewSchedulerService(taskClient)
	svc := service.NewPromptService(promptRepository, tokens, notifications, scheduler)

	handler := service.NewJobHandler(
		promptRepository,
		responseRepo,
		suggestionRepository,
		tokens,
		notifications,
		suggestions.Aggregation,
		suggestions.Holds,
		suggestions.Conversion,
	)
	handler.Register(mux)

	ctrl := controller.NewPromptController(svc)
	router.NewPromptRouter(ctrl).Register(g, mw)

	return svc
}
