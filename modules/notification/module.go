package notification

import (
	"gameplan-api/core/database"
	"gameplan-api/core/middleware"
	"gameplan-api/modules/notification/controller"
	"gameplan-api/modules/notification/repository"
	"gameplan-api/modules/notification/router"
	"gameplan-api/modules/notification/service"

	"github.com/labstack/echo/v4"
)

// Init initializes the notification module and returns the service for use by other modules
func Init(g *echo.Group, db database.IDatabase, mw *middleware.Middleware) *service.NotificationService {
	repo := repository.NewNotificationRepository(db)
	svc := service.NewNotificationService(repo)
	ctrl := controller.NewNotificationController(svc)

	router.NewNotificationRouter(ctrl).Register(g, mw)

	return svc
}
