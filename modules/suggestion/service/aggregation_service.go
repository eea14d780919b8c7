package service

import (
	"context"
	"sort"
	"time"

	"gameplan-api/core/config"
	"gameplan-api/core/constants"
	"gameplan-api/core/logger"
	availabilityentity "gameplan-api/modules/availability/entity"
	availabilityrepo "gameplan-api/modules/availability/repository"
	promptrepo "gameplan-api/modules/prompt/repository"
	"gameplan-api/modules/suggestion/dto"
	"gameplan-api/modules/suggestion/entity"
	"gameplan-api/modules/suggestion/repository"

	"github.com/google/uuid"
)

// AggregationService rebuilds the suggestion set for a prompt from its
// submitted responses. Aggregation is a pure function of the responses, so
// concurrent runs converge on the same rows.
type AggregationService struct {
	suggestionRepo repository.SuggestionRepositoryInterface
	promptRepo     promptrepo.PromptRepositoryInterface
	responseRepo   availabilityrepo.ResponseRepositoryInterface
}

func NewAggregationService(
	suggestionRepo repository.SuggestionRepositoryInterface,
	promptRepo promptrepo.PromptRepositoryInterface,
	responseRepo availabilityrepo.ResponseRepositoryInterface,
) *AggregationService {
	return &AggregationService{
		suggestionRepo: suggestionRepo,
		promptRepo:     promptRepo,
		responseRepo:   responseRepo,
	}
}

type slotAccumulator struct {
	start     time.Time
	end       time.Time
	users     map[uuid.UUID]bool
	preferred map[uuid.UUID]bool
}

// AggregateResponses regenerates all suggestions for a prompt. Missing
// prompts and empty response sets are structured results, not errors; only
// storage failures propagate.
func (s *AggregationService) AggregateResponses(ctx context.Context, promptID uuid.UUID) (*dto.AggregateResult, error) {
	prompt, err := s.promptRepo.GetPromptByID(ctx, promptID)
	if err != nil {
		return nil, err
	}
	if prompt == nil {
		return &dto.AggregateResult{Success: false, PromptID: promptID, Message: "prompt not found"}, nil
	}

	threshold := s.minimumThreshold(ctx, prompt.ActivityID)

	responses, err := s.responseRepo.GetSubmittedResponses(ctx, promptID)
	if err != nil {
		return nil, err
	}

	// Carry existing calendar holds over to regenerated rows with the same
	// window. Holds on windows that disappear are reported back as orphans.
	existing, err := s.suggestionRepo.GetSuggestionsByPromptID(ctx, promptID)
	if err != nil {
		return nil, err
	}

	suggestions := buildSuggestions(promptID, responses, threshold)

	orphans := reconcileHolds(existing, suggestions)

	if err := s.suggestionRepo.ReplaceSuggestions(ctx, promptID, suggestions); err != nil {
		return nil, err
	}

	logger.Info("aggregated prompt responses",
		"promptId", promptID, "responses", len(responses), "suggestions", len(suggestions))

	return &dto.AggregateResult{
		Success:         true,
		PromptID:        promptID,
		SuggestionCount: len(suggestions),
		ResponseCount:   len(responses),
		Suggestions:     suggestions,
		OrphanedHolds:   orphans,
	}, nil
}

func (s *AggregationService) minimumThreshold(ctx context.Context, activityID *uuid.UUID) int {
	threshold := config.Get().Scheduler.MinParticipants
	if threshold <= 0 {
		threshold = constants.DefaultMinParticipants
	}
	if activityID == nil {
		return threshold
	}
	activity, err := s.promptRepo.GetActivityByID(ctx, *activityID)
	if err != nil {
		logger.Error("AggregationService:minimumThreshold", err)
		return threshold
	}
	if activity != nil && activity.MinPlayers > 0 {
		return activity.MinPlayers
	}
	return threshold
}

// buildSuggestions groups identical (start, end) windows across responses.
// Each user counts once per window; a window is preferred for a user if any
// of their entries for it is preferred.
func buildSuggestions(promptID uuid.UUID, responses []availabilityentity.Response, threshold int) []entity.Suggestion {
	slots := map[string]*slotAccumulator{}
	for _, response := range responses {
		if response.IsUnavailable {
			continue
		}
		for _, slot := range response.TimeSlots {
			start := slot.Start.UTC()
			end := slot.End.UTC()
			key := start.Format(time.RFC3339Nano) + "|" + end.Format(time.RFC3339Nano)
			acc, ok := slots[key]
			if !ok {
				acc = &slotAccumulator{
					start:     start,
					end:       end,
					users:     map[uuid.UUID]bool{},
					preferred: map[uuid.UUID]bool{},
				}
				slots[key] = acc
			}
			acc.users[response.UserID] = true
			if slot.Preference == availabilityentity.PreferencePreferred {
				acc.preferred[response.UserID] = true
			}
		}
	}

	suggestions := make([]entity.Suggestion, 0, len(slots))
	for _, acc := range slots {
		participantIDs := make(entity.UUIDList, 0, len(acc.users))
		for id := range acc.users {
			participantIDs = append(participantIDs, id)
		}
		sort.Slice(participantIDs, func(i, j int) bool {
			return participantIDs[i].String() < participantIDs[j].String()
		})
		count := len(acc.users)
		preferred := len(acc.preferred)
		suggestions = append(suggestions, entity.Suggestion{
			PromptID:         promptID,
			WindowStart:      acc.start,
			WindowEnd:        acc.end,
			ParticipantCount: count,
			ParticipantIDs:   participantIDs,
			PreferredCount:   preferred,
			MeetsMinimum:     count >= threshold,
			Score:            float64(count) + constants.PreferredSlotWeight*float64(preferred),
			CalendarHolds:    entity.HoldMap{},
		})
	}

	sort.Slice(suggestions, func(i, j int) bool {
		if suggestions[i].Score != suggestions[j].Score {
			return suggestions[i].Score > suggestions[j].Score
		}
		if !suggestions[i].WindowStart.Equal(suggestions[j].WindowStart) {
			return suggestions[i].WindowStart.Before(suggestions[j].WindowStart)
		}
		return suggestions[i].WindowEnd.Before(suggestions[j].WindowEnd)
	})
	return suggestions
}

func reconcileHolds(existing, regenerated []entity.Suggestion) []dto.OrphanedHold {
	windowKey := func(s entity.Suggestion) string {
		return s.WindowStart.UTC().Format(time.RFC3339Nano) + "|" + s.WindowEnd.UTC().Format(time.RFC3339Nano)
	}
	surviving := map[string]*entity.Suggestion{}
	for i := range regenerated {
		surviving[windowKey(regenerated[i])] = &regenerated[i]
	}

	var orphans []dto.OrphanedHold
	for _, old := range existing {
		if len(old.CalendarHolds) == 0 || old.ConvertedEventID != nil {
			continue
		}
		if replacement, ok := surviving[windowKey(old)]; ok {
			replacement.CalendarHolds = old.CalendarHolds
			continue
		}
		for userID, holdID := range old.CalendarHolds {
			parsed, err := uuid.Parse(userID)
			if err != nil {
				continue
			}
			orphans = append(orphans, dto.OrphanedHold{UserID: parsed, HoldID: holdID})
		}
	}
	return orphans
}
