package service

import (
	"context"

	"gameplan-api/core/config"
	"gameplan-api/core/constants"
	"gameplan-api/core/logger"
	calendardto "gameplan-api/modules/calendar/dto"
	calendarservice "gameplan-api/modules/calendar/service"
	promptrepo "gameplan-api/modules/prompt/repository"
	"gameplan-api/modules/suggestion/dto"
	"gameplan-api/modules/suggestion/entity"
	"gameplan-api/modules/suggestion/repository"

	"github.com/google/uuid"
)

// HoldsService places and releases tentative calendar holds on the strongest
// suggestions. Every calendar call is best effort; one participant's failure
// never blocks the rest.
type HoldsService struct {
	suggestionRepo repository.SuggestionRepositoryInterface
	promptRepo     promptrepo.PromptRepositoryInterface
	calendar       calendarservice.CalendarService
}

func NewHoldsService(
	suggestionRepo repository.SuggestionRepositoryInterface,
	promptRepo promptrepo.PromptRepositoryInterface,
	calendar calendarservice.CalendarService,
) *HoldsService {
	return &HoldsService{
		suggestionRepo: suggestionRepo,
		promptRepo:     promptRepo,
		calendar:       calendar,
	}
}

// PlaceTentativeHolds puts holds on the calendars of connected participants
// for the top qualifying suggestions. Participants who already carry a hold
// on a suggestion are skipped, so repeat runs after re-aggregation only fill
// gaps.
func (s *HoldsService) PlaceTentativeHolds(ctx context.Context, promptID uuid.UUID) (*dto.HoldPlacementResult, error) {
	limit := config.Get().Scheduler.TentativeHoldLimit
	if limit <= 0 {
		limit = constants.TentativeHoldLimit
	}
	suggestions, err := s.suggestionRepo.GetTopQualifying(ctx, promptID, limit)
	if err != nil {
		return nil, err
	}
	if len(suggestions) == 0 {
		return &dto.HoldPlacementResult{}, nil
	}

	title := s.holdTitle(ctx, promptID)

	allParticipants := map[uuid.UUID]bool{}
	for _, suggestion := range suggestions {
		for _, id := range suggestion.ParticipantIDs {
			allParticipants[id] = true
		}
	}
	ids := make([]uuid.UUID, 0, len(allParticipants))
	for id := range allParticipants {
		ids = append(ids, id)
	}
	connected, err := s.calendar.ConnectedUserIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	result := &dto.HoldPlacementResult{}
	for _, suggestion := range suggestions {
		holds := suggestion.CalendarHolds
		if holds == nil {
			holds = entity.HoldMap{}
		}
		changed := false
		for _, userID := range suggestion.ParticipantIDs {
			if !connected[userID] {
				continue
			}
			if _, ok := holds[userID.String()]; ok {
				result.Skipped++
				continue
			}
			holdID, err := s.calendar.CreateTentativeHold(ctx, userID, &calendardto.TentativeHoldRequest{
				Title:     title,
				StartTime: suggestion.WindowStart,
				EndTime:   suggestion.WindowEnd,
				Timezone:  "UTC",
			})
			if err != nil {
				logger.Error("HoldsService:PlaceTentativeHolds", err)
				result.Failed++
				continue
			}
			holds[userID.String()] = holdID
			changed = true
			result.Placed++
		}
		if changed {
			if err := s.suggestionRepo.UpdateHoldMap(ctx, suggestion.ID, holds); err != nil {
				logger.Error("HoldsService:PlaceTentativeHolds", err)
			}
		}
	}
	return result, nil
}

// ClearOtherHolds releases every hold on the prompt's suggestions except the
// one that was converted. Failures are logged and skipped; the hold map is
// cleared regardless so stale entries do not accumulate.
func (s *HoldsService) ClearOtherHolds(ctx context.Context, promptID uuid.UUID, keepSuggestionID uuid.UUID) {
	suggestions, err := s.suggestionRepo.GetSuggestionsWithHolds(ctx, promptID, &keepSuggestionID)
	if err != nil {
		logger.Error("HoldsService:ClearOtherHolds", err)
		return
	}
	for _, suggestion := range suggestions {
		for userID, holdID := range suggestion.CalendarHolds {
			parsed, err := uuid.Parse(userID)
			if err != nil {
				continue
			}
			if err := s.calendar.DeleteTentativeHold(ctx, parsed, holdID); err != nil {
				logger.Error("HoldsService:ClearOtherHolds", err)
			}
		}
		if err := s.suggestionRepo.UpdateHoldMap(ctx, suggestion.ID, entity.HoldMap{}); err != nil {
			logger.Error("HoldsService:ClearOtherHolds", err)
		}
	}
}

// ReleaseOrphanedHolds deletes holds whose windows vanished during
// re-aggregation.
func (s *HoldsService) ReleaseOrphanedHolds(ctx context.Context, orphans []dto.OrphanedHold) {
	for _, orphan := range orphans {
		if err := s.calendar.DeleteTentativeHold(ctx, orphan.UserID, orphan.HoldID); err != nil {
			logger.Error("HoldsService:ReleaseOrphanedHolds", err)
		}
	}
}

func (s *HoldsService) holdTitle(ctx context.Context, promptID uuid.UUID) string {
	title := "Tentative: game night"
	prompt, err := s.promptRepo.GetPromptByID(ctx, promptID)
	if err != nil || prompt == nil || prompt.ActivityID == nil {
		return title
	}
	activity, err := s.promptRepo.GetActivityByID(ctx, *prompt.ActivityID)
	if err != nil || activity == nil {
		return title
	}
	return "Tentative: " + activity.Name
}
