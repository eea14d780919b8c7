package controller

import (
	"gameplan-api/core/controller"
	"gameplan-api/core/errors"
	"gameplan-api/modules/prompt/dto"
	"gameplan-api/modules/prompt/service"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type PromptController struct {
	controller.BaseController
	svc *service.PromptService
}

func NewPromptController(svc *service.PromptService) *PromptController {
	return &PromptController{
		BaseController: controller.NewBaseController(),
		svc:            svc,
	}
}

func (c *PromptController) respondAppError(appErr *errors.AppError) *echo.HTTPError {
	switch appErr.Code {
	case errors.ErrNotFound:
		return c.NotFound(appErr.Code, appErr.Message)
	case errors.ErrAlreadyExists:
		return c.Conflict(appErr.Code, appErr.Message)
	case errors.ErrInvalidInput:
		return c.BadRequest(appErr.Code, appErr.Message)
	default:
		return c.InternalServerError(appErr.Code, appErr.Message)
	}
}

// CreatePrompt handles POST /prompts
func (c *PromptController) CreatePrompt(ctx echo.Context) error {
	var req dto.CreatePromptRequest
	if err := ctx.Bind(&req); err != nil {
		return c.BadRequest(errors.ErrInvalidInput, "Invalid request body")
	}
	if req.GroupID == uuid.Nil {
		return c.BadRequest(errors.ErrInvalidInput, "group_id is required")
	}
	if req.Deadline.IsZero() {
		return c.BadRequest(errors.ErrInvalidInput, "deadline is required")
	}

	result, appErr := c.svc.CreatePrompt(ctx.Request().Context(), &req)
	if appErr != nil {
		return c.respondAppError(appErr)
	}
	return c.SuccessResponse(ctx, result, "Prompt created")
}

// GetPrompt handles GET /prompts/:id
func (c *PromptController) GetPrompt(ctx echo.Context) error {
	id, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		return c.BadRequest(errors.ErrInvalidInput, "Invalid prompt id")
	}

	prompt, appErr := c.svc.GetPrompt(ctx.Request().Context(), id)
	if appErr != nil {
		return c.respondAppError(appErr)
	}
	return c.SuccessResponse(ctx, prompt, "Success")
}

// UpdateDeadline handles PATCH /prompts/:id/deadline
func (c *PromptController) UpdateDeadline(ctx echo.Context) error {
	id, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		return c.BadRequest(errors.ErrInvalidInput, "Invalid prompt id")
	}

	var req dto.UpdateDeadlineRequest
	if err := ctx.Bind(&req); err != nil {
		return c.BadRequest(errors.ErrInvalidInput, "Invalid request body")
	}
	if req.Deadline.IsZero() {
		return c.BadRequest(errors.ErrInvalidInput, "deadline is required")
	}

	if appErr := c.svc.UpdateDeadline(ctx.Request().Context(), id, req.Deadline); appErr != nil {
		return c.respondAppError(appErr)
	}
	return c.SuccessResponse(ctx, nil, "Deadline updated")
}

// CancelPrompt handles POST /prompts/:id/cancel
func (c *PromptController) CancelPrompt(ctx echo.Context) error {
	id, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		return c.BadRequest(errors.ErrInvalidInput, "Invalid prompt id")
	}

	if appErr := c.svc.CancelPrompt(ctx.Request().Context(), id); appErr != nil {
		return c.respondAppError(appErr)
	}
	return c.SuccessResponse(ctx, nil, "Prompt cancelled")
}
