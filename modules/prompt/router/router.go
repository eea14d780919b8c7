package router

import (
	"gameplan-api/core/middleware"
	"gameplan-api/modules/prompt/controller"

	"github.com/labstack/echo/v4"
)

type PromptRouter struct {
	ctrl *controller.PromptController
}

func NewPromptRouter(ctrl *controller.PromptController) *PromptRouter {
	return &PromptRouter{ctrl: ctrl}
}

func (r *PromptRouter) Register(g *echo.Group, mw *middleware.Middleware) {
	routes := g.Group("/prompts", mw.AuthMiddleware())

	routes.POST("", r.ctrl.CreatePrompt, mw.AdminMiddleware())
	routes.GET("/:id", r.ctrl.GetPrompt)
	routes.PATCH("/:id/deadline", r.ctrl.UpdateDeadline, mw.AdminMiddleware())
	routes.POST("/:id/cancel", r.ctrl.CancelPrompt, mw.AdminMiddleware())
}
