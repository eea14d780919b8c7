package router

import (
	"gameplan-api/modules/availability/controller"

	"github.com/labstack/echo/v4"
)

type AvailabilityRouter struct {
	ctrl *controller.AvailabilityController
}

func NewAvailabilityRouter(ctrl *controller.AvailabilityController) *AvailabilityRouter {
	return &AvailabilityRouter{ctrl: ctrl}
}

// Register mounts the token-gated public endpoints. No auth middleware here;
// the magic token is the credential.
func (r *AvailabilityRouter) Register(g *echo.Group) {
	public := g.Group("/public/availability")

	public.POST("/validate-token", r.ctrl.ValidateToken)
	public.POST("/respond", r.ctrl.SubmitResponse)
}
