package suggestion

import (
	"gameplan-api/core/database"
	"gameplan-api/core/middleware"
	availabilityrepo "gameplan-api/modules/availability/repository"
	calendarservice "gameplan-api/modules/calendar/service"
	notificationservice "gameplan-api/modules/notification/service"
	promptrepo "gameplan-api/modules/prompt/repository"
	"gameplan-api/modules/suggestion/controller"
	"gameplan-api/modules/suggestion/repository"
	"gameplan-api/modules/suggestion/router"
	"gameplan-api/modules/suggestion/service"

	"github.com/labstack/echo/v4"
)

// Services bundles the suggestion services other modules depend on.
type Services struct {
	Aggregation *service.AggregationService
	Holds       *service.HoldsService
	Conversion  *service.ConversionService
}

// Init initializes the suggestion module and returns the services used by the
// availability and prompt modules.
func Init(
	g *echo.Group,
	db database.IDatabase,
	mw *middleware.Middleware,
	calendar calendarservice.CalendarService,
	notifications *notificationservice.NotificationService,
) *Services {
	suggestionRepo := repository.NewSuggestionRepository(db)
	promptRepository := promptrepo.NewPromptRepository(db)
	responseRepo := availabilityrepo.NewResponseRepository(db)

	aggregation := service.NewAggregationService(suggestionRepo, promptRepository, responseRepo)
	holds := service.NewHoldsService(suggestionRepo, promptRepository, calendar)
	conversion := service.NewConversionService(suggestionRepo, promptRepository, holds, notifications)
	query := service.NewSuggestionService(suggestionRepo, promptRepository, responseRepo)

	ctrl := controller.NewSuggestionController(query, aggregation, holds, conversion)
	router.NewSuggestionRouter(ctrl).Register(g, mw)

	return &Services{
		Aggregation: aggregation,
		Holds:       holds,
		Conversion:  conversion,
	}
}
