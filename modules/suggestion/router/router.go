package router

import (
	"gameplan-api/core/middleware"
	"gameplan-api/modules/suggestion/controller"

	"github.com/labstack/echo/v4"
)

type SuggestionRouter struct {
	ctrl *controller.SuggestionController
}

func NewSuggestionRouter(ctrl *controller.SuggestionController) *SuggestionRouter {
	return &SuggestionRouter{ctrl: ctrl}
}

func (r *SuggestionRouter) Register(g *echo.Group, mw *middleware.Middleware) {
	prompts := g.Group("/prompts", mw.AuthMiddleware())
	prompts.GET("/:promptId/suggestions", r.ctrl.GetSuggestions)
	prompts.POST("/:promptId/aggregate", r.ctrl.Aggregate, mw.AdminMiddleware())

	suggestions := g.Group("/suggestions", mw.AuthMiddleware())
	suggestions.POST("/convert", r.ctrl.Convert, mw.AdminMiddleware())

	events := g.Group("/events", mw.AuthMiddleware())
	events.GET("/:id", r.ctrl.GetEvent)
}
