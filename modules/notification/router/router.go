package router

import (
	"gameplan-api/core/middleware"
	"gameplan-api/modules/notification/controller"

	"github.com/labstack/echo/v4"
)

type NotificationRouter struct {
	ctrl *controller.NotificationController
}

func NewNotificationRouter(ctrl *controller.NotificationController) *NotificationRouter {
	return &NotificationRouter{ctrl: ctrl}
}

func (r *NotificationRouter) Register(g *echo.Group, mw *middleware.Middleware) {
	routes := g.Group("/notifications", mw.AuthMiddleware())

	routes.GET("", r.ctrl.GetMyNotifications)
	routes.GET("/unread-count", r.ctrl.CountUnread)
	routes.POST("/read", r.ctrl.MarkAsRead)
	routes.POST("/read-all", r.ctrl.MarkAllAsRead)
}
