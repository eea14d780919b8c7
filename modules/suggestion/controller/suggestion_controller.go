package controller

import (
	"context"
	"strconv"
	"time"

	"gameplan-api/core/constants"
	"gameplan-api/core/controller"
	"gameplan-api/core/errors"
	"gameplan-api/core/logger"
	"gameplan-api/core/params"
	"gameplan-api/core/utils"
	"gameplan-api/modules/suggestion/dto"
	"gameplan-api/modules/suggestion/service"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type SuggestionController struct {
	controller.BaseController
	suggestions *service.SuggestionService
	aggregation *service.AggregationService
	holds       *service.HoldsService
	conversion  *service.ConversionService
}

func NewSuggestionController(
	suggestions *service.SuggestionService,
	aggregation *service.AggregationService,
	holds *service.HoldsService,
	conversion *service.ConversionService,
) *SuggestionController {
	return &SuggestionController{
		BaseController: controller.NewBaseController(),
		suggestions:    suggestions,
		aggregation:    aggregation,
		holds:          holds,
		conversion:     conversion,
	}
}

func (c *SuggestionController) claimsFromContext(ctx echo.Context) (*utils.TokenClaims, error) {
	tokenData := ctx.Get(constants.ContextTokenData)
	if tokenData == nil {
		return nil, errors.NewAppError(errors.ErrUnauthorized, "User not authenticated", nil)
	}
	claims, ok := tokenData.(*utils.TokenClaims)
	if !ok {
		return nil, errors.NewAppError(errors.ErrUnauthorized, "Invalid token data", nil)
	}
	return claims, nil
}

// GetSuggestions handles GET /prompts/:promptId/suggestions
func (c *SuggestionController) GetSuggestions(ctx echo.Context) error {
	claims, err := c.claimsFromContext(ctx)
	if err != nil {
		return c.Unauthorized(errors.ErrUnauthorized, "User not authenticated")
	}

	promptID, err := uuid.Parse(ctx.Param("promptId"))
	if err != nil {
		return c.BadRequest(errors.ErrInvalidInput, "Invalid prompt id")
	}

	query := params.FromContext(ctx)
	filter := dto.SuggestionFilter{
		OrderBy:        query.OrderBy,
		OrderDirection: query.OrderDirection,
	}
	if n, err := strconv.Atoi(ctx.QueryParam("minParticipants")); err == nil && n > 0 {
		filter.MinParticipants = n
	}
	if raw := ctx.QueryParam("meetsMinimum"); raw != "" {
		if v, err := strconv.ParseBool(raw); err == nil {
			filter.MeetsMinimum = &v
		}
	}

	views, appErr := c.suggestions.GetSuggestionsForPrompt(ctx.Request().Context(), promptID, claims.UserID, claims.IsAdmin, filter)
	if appErr != nil {
		switch appErr.Code {
		case errors.ErrNotFound:
			return c.NotFound(appErr.Code, appErr.Message)
		case errors.ErrForbidden:
			return c.Forbidden(appErr.Code, appErr.Message)
		default:
			return c.InternalServerError(appErr.Code, "Failed to load suggestions")
		}
	}
	return c.SuccessResponse(ctx, views, "Success")
}

// Aggregate handles POST /prompts/:promptId/aggregate
func (c *SuggestionController) Aggregate(ctx echo.Context) error {
	promptID, err := uuid.Parse(ctx.Param("promptId"))
	if err != nil {
		return c.BadRequest(errors.ErrInvalidInput, "Invalid prompt id")
	}

	result, err := c.aggregation.AggregateResponses(ctx.Request().Context(), promptID)
	if err != nil {
		return c.InternalServerError(errors.ErrInternalServer, "Failed to aggregate responses")
	}
	if !result.Success {
		return c.NotFound(errors.ErrNotFound, result.Message)
	}

	go func() {
		bgCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		c.holds.ReleaseOrphanedHolds(bgCtx, result.OrphanedHolds)
		if _, err := c.holds.PlaceTentativeHolds(bgCtx, promptID); err != nil {
			logger.Error("SuggestionController:Aggregate", err)
		}
	}()

	return c.SuccessResponse(ctx, result, "Responses aggregated")
}

// Convert handles POST /suggestions/convert
func (c *SuggestionController) Convert(ctx echo.Context) error {
	claims, err := c.claimsFromContext(ctx)
	if err != nil {
		return c.Unauthorized(errors.ErrUnauthorized, "User not authenticated")
	}

	var req dto.ConvertSuggestionRequest
	if err := ctx.Bind(&req); err != nil {
		return c.BadRequest(errors.ErrInvalidInput, "Invalid request body")
	}
	if req.SuggestionID == uuid.Nil {
		return c.BadRequest(errors.ErrInvalidInput, "suggestion_id is required")
	}
	req.ActingUserID = claims.UserID

	result, err := c.conversion.ConvertSuggestionToEvent(ctx.Request().Context(), &req)
	if err != nil {
		return c.InternalServerError(errors.ErrInternalServer, "Failed to convert suggestion")
	}
	if !result.Success {
		return c.NotFound(errors.ErrNotFound, result.Message)
	}
	return c.SuccessResponse(ctx, result, "Success")
}

// GetEvent handles GET /events/:id
func (c *SuggestionController) GetEvent(ctx echo.Context) error {
	eventID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		return c.BadRequest(errors.ErrInvalidInput, "Invalid event id")
	}

	event, participants, err := c.conversion.GetEventWithParticipants(ctx.Request().Context(), eventID)
	if err != nil {
		return c.InternalServerError(errors.ErrInternalServer, "Failed to load event")
	}
	if event == nil {
		return c.NotFound(errors.ErrNotFound, "Event not found")
	}
	return c.SuccessResponse(ctx, map[string]interface{}{
		"event":           event,
		"participant_ids": participants,
	}, "Success")
}
