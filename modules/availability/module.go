package availability

import (
	"gameplan-api/core/database"
	"gameplan-api/modules/availability/controller"
	"gameplan-api/modules/availability/repository"
	"gameplan-api/modules/availability/router"
	"gameplan-api/modules/availability/service"
	promptrepo "gameplan-api/modules/prompt/repository"
	suggestionservice "gameplan-api/modules/suggestion/service"
	tokenservice "gameplan-api/modules/token/service"

	"github.com/labstack/echo/v4"
)

// Init initializes the availability module and returns the service so the
// prompt module can query response state.
func Init(
	g *echo.Group,
	db database.IDatabase,
	tokens tokenservice.TokenServiceInterface,
	aggregation *suggestionservice.AggregationService,
	holds *suggestionservice.HoldsService,
) *service.AvailabilityService {
	responseRepo := repository.NewResponseRepository(db)
	promptRepository := promptrepo.NewPromptRepository(db)

	svc := service.NewAvailabilityService(responseRepo, promptRepository, tokens, aggregation, holds)
	ctrl := controller.NewAvailabilityController(svc)

	router.NewAvailabilityRouter(ctrl).Register(g)

	return svc
}
