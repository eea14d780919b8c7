package controller

import (
	"gameplan-api/core/controller"
	"gameplan-api/core/errors"
	"gameplan-api/modules/availability/dto"
	"gameplan-api/modules/availability/service"
	tokendto "gameplan-api/modules/token/dto"

	"github.com/labstack/echo/v4"
)

// genericLinkFailure is the only message a caller ever sees for a bad link.
// The real reason is recorded in the validation analytics.
const genericLinkFailure = "This link is no longer valid."

type AvailabilityController struct {
	controller.BaseController
	svc *service.AvailabilityService
}

func NewAvailabilityController(svc *service.AvailabilityService) *AvailabilityController {
	return &AvailabilityController{
		BaseController: controller.NewBaseController(),
		svc:            svc,
	}
}

func requestMeta(ctx echo.Context) tokendto.RequestMeta {
	return tokendto.RequestMeta{
		IPAddress: ctx.RealIP(),
		UserAgent: ctx.Request().UserAgent(),
	}
}

func (c *AvailabilityController) mapError(appErr *errors.AppError) *echo.HTTPError {
	switch appErr.Code {
	case errors.ErrMagicTokenInvalid, errors.ErrMagicTokenNotFound,
		errors.ErrMagicTokenRevoked, errors.ErrMagicTokenExpired:
		return c.Unauthorized(errors.ErrMagicTokenInvalid, genericLinkFailure)
	case errors.ErrInvalidInput:
		return c.BadRequest(appErr.Code, appErr.Message)
	default:
		return c.InternalServerError(errors.ErrInternalServer, "Something went wrong")
	}
}

// ValidateToken handles POST /public/availability/validate-token
func (c *AvailabilityController) ValidateToken(ctx echo.Context) error {
	var req dto.ValidateTokenRequest
	if err := ctx.Bind(&req); err != nil {
		return c.BadRequest(errors.ErrInvalidInput, "Invalid request body")
	}
	if req.Token == "" {
		return c.BadRequest(errors.ErrInvalidInput, "token is required")
	}

	resp, appErr := c.svc.ValidateToken(ctx.Request().Context(), &req, requestMeta(ctx))
	if appErr != nil {
		return c.mapError(appErr)
	}
	return c.SuccessResponse(ctx, resp, "Success")
}

// SubmitResponse handles POST /public/availability/respond
func (c *AvailabilityController) SubmitResponse(ctx echo.Context) error {
	var req dto.SubmitResponseRequest
	if err := ctx.Bind(&req); err != nil {
		return c.BadRequest(errors.ErrInvalidInput, "Invalid request body")
	}
	if req.MagicToken == "" {
		return c.BadRequest(errors.ErrInvalidInput, "magic_token is required")
	}

	result, appErr := c.svc.SubmitResponse(ctx.Request().Context(), &req, requestMeta(ctx))
	if appErr != nil {
		return c.mapError(appErr)
	}
	return c.SuccessResponse(ctx, result, "Response recorded")
}
