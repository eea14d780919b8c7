package service

import (
	"context"
	"time"

	"gameplan-api/core/errors"
	"gameplan-api/core/logger"
	"gameplan-api/modules/availability/dto"
	"gameplan-api/modules/availability/entity"
	"gameplan-api/modules/availability/repository"
	promptentity "gameplan-api/modules/prompt/entity"
	promptrepo "gameplan-api/modules/prompt/repository"
	suggestionservice "gameplan-api/modules/suggestion/service"
	tokendto "gameplan-api/modules/token/dto"
	tokenservice "gameplan-api/modules/token/service"

	"github.com/google/uuid"
)

const maxSlotsPerResponse = 50

// AvailabilityService handles the public, token-gated response flow. Callers
// are never told why a link failed; the detailed reason lives in the
// validation analytics.
type AvailabilityService struct {
	responseRepo repository.ResponseRepositoryInterface
	promptRepo   promptrepo.PromptRepositoryInterface
	tokens       tokenservice.TokenServiceInterface
	aggregation  *suggestionservice.AggregationService
	holds        *suggestionservice.HoldsService
}

func NewAvailabilityService(
	responseRepo repository.ResponseRepositoryInterface,
	promptRepo promptrepo.PromptRepositoryInterface,
	tokens tokenservice.TokenServiceInterface,
	aggregation *suggestionservice.AggregationService,
	holds *suggestionservice.HoldsService,
) *AvailabilityService {
	return &AvailabilityService{
		responseRepo: responseRepo,
		promptRepo:   promptRepo,
		tokens:       tokens,
		aggregation:  aggregation,
		holds:        holds,
	}
}

// ValidateToken checks a magic link and returns the context the response form
// needs. All failures collapse to a single generic AppError at this boundary.
func (s *AvailabilityService) ValidateToken(ctx context.Context, req *dto.ValidateTokenRequest, meta tokendto.RequestMeta) (*dto.ValidateTokenResponse, *errors.AppError) {
	validation, appErr := s.tokens.Validate(ctx, req.Token, req.FormLoadedAt, meta)
	if appErr != nil {
		return nil, appErr
	}

	prompt, err := s.promptRepo.GetPromptByID(ctx, validation.PromptID)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrMagicTokenServer, "failed to load prompt", err)
	}
	if prompt == nil || prompt.Status == promptentity.PromptStatusPending {
		return nil, errors.NewAppError(errors.ErrMagicTokenInvalid, "prompt unavailable", nil)
	}

	submitted, err := s.responseRepo.HasSubmitted(ctx, prompt.ID, validation.UserID)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrMagicTokenServer, "failed to check response", err)
	}

	resp := &dto.ValidateTokenResponse{
		Valid:            true,
		PromptID:         prompt.ID,
		Deadline:         prompt.Deadline,
		CustomMessage:    prompt.CustomMessage,
		AlreadySubmitted: submitted,
		GraceUsed:        validation.GraceUsed,
	}
	if prompt.ActivityID != nil {
		activity, err := s.promptRepo.GetActivityByID(ctx, *prompt.ActivityID)
		if err == nil && activity != nil {
			resp.ActivityName = activity.Name
		}
	}
	return resp, nil
}

// SubmitResponse validates the link, upserts the response, and kicks off
// re-aggregation in the background. Resubmission replaces the previous
// submission in place.
func (s *AvailabilityService) SubmitResponse(ctx context.Context, req *dto.SubmitResponseRequest, meta tokendto.RequestMeta) (*dto.SubmitResponseResult, *errors.AppError) {
	validation, appErr := s.tokens.Validate(ctx, req.MagicToken, req.FormLoadedAt, meta)
	if appErr != nil {
		return nil, appErr
	}

	prompt, err := s.promptRepo.GetPromptByID(ctx, validation.PromptID)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrMagicTokenServer, "failed to load prompt", err)
	}
	if prompt == nil {
		return nil, errors.NewAppError(errors.ErrMagicTokenInvalid, "prompt unavailable", nil)
	}
	if prompt.Status != promptentity.PromptStatusActive {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "this prompt is no longer accepting responses", nil)
	}

	if appErr := validateSlots(req); appErr != nil {
		return nil, appErr
	}

	timezone := req.UserTimezone
	if timezone == "" {
		timezone = "UTC"
	}

	resubmit, err := s.responseRepo.HasSubmitted(ctx, prompt.ID, validation.UserID)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrMagicTokenServer, "failed to check response", err)
	}

	now := time.Now().UTC()
	slots := dto.ToEntries(req.TimeSlots)
	if req.IsUnavailable {
		slots = entity.TimeSlotList{}
	}
	response := &entity.Response{
		PromptID:      prompt.ID,
		UserID:        validation.UserID,
		TimeSlots:     slots,
		UserTimezone:  timezone,
		IsUnavailable: req.IsUnavailable,
		SubmittedAt:   &now,
		TokenID:       &validation.TokenID,
	}
	if err := s.responseRepo.UpsertResponse(ctx, response); err != nil {
		return nil, errors.NewAppError(errors.ErrMagicTokenServer, "failed to save response", err)
	}

	s.refreshSuggestions(prompt.ID)

	return &dto.SubmitResponseResult{
		Success:   true,
		PromptID:  prompt.ID,
		SlotCount: len(slots),
		Resubmit:  resubmit,
	}, nil
}

// refreshSuggestions re-aggregates and refreshes holds off the request path.
// The submission has already committed; a failed refresh is repaired by the
// next one.
func (s *AvailabilityService) refreshSuggestions(promptID uuid.UUID) {
	go func() {
		bgCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		result, err := s.aggregation.AggregateResponses(bgCtx, promptID)
		if err != nil {
			logger.Error("AvailabilityService:refreshSuggestions", err)
			return
		}
		if !result.Success {
			return
		}
		s.holds.ReleaseOrphanedHolds(bgCtx, result.OrphanedHolds)
		if _, err := s.holds.PlaceTentativeHolds(bgCtx, promptID); err != nil {
			logger.Error("AvailabilityService:refreshSuggestions", err)
		}
	}()
}

func validateSlots(req *dto.SubmitResponseRequest) *errors.AppError {
	if req.IsUnavailable {
		return nil
	}
	if len(req.TimeSlots) == 0 {
		return errors.NewAppError(errors.ErrInvalidInput, "time_slots is required unless is_unavailable is set", nil)
	}
	if len(req.TimeSlots) > maxSlotsPerResponse {
		return errors.NewAppError(errors.ErrInvalidInput, "too many time slots", nil)
	}
	for _, slot := range req.TimeSlots {
		if slot.Start.IsZero() || slot.End.IsZero() {
			return errors.NewAppError(errors.ErrInvalidInput, "each slot needs a start and end", nil)
		}
		if !slot.End.After(slot.Start) {
			return errors.NewAppError(errors.ErrInvalidInput, "slot end must be after start", nil)
		}
		switch entity.SlotPreference(slot.Preference) {
		case entity.PreferencePreferred, entity.PreferenceAcceptable, "":
		default:
			return errors.NewAppError(errors.ErrInvalidInput, "unknown slot preference", nil)
		}
	}
	return nil
}
