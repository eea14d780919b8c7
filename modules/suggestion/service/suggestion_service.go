package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"gameplan-api/core/errors"
	availabilityrepo "gameplan-api/modules/availability/repository"
	promptrepo "gameplan-api/modules/prompt/repository"
	"gameplan-api/modules/suggestion/dto"
	"gameplan-api/modules/suggestion/repository"

	"github.com/google/uuid"
)

// SuggestionService serves read access to a prompt's suggestions. For
// blind-voting prompts, non-admin members see nothing until they have
// submitted their own response or the deadline has passed.
type SuggestionService struct {
	suggestionRepo repository.SuggestionRepositoryInterface
	promptRepo     promptrepo.PromptRepositoryInterface
	responseRepo   availabilityrepo.ResponseRepositoryInterface
}

func NewSuggestionService(
	suggestionRepo repository.SuggestionRepositoryInterface,
	promptRepo promptrepo.PromptRepositoryInterface,
	responseRepo availabilityrepo.ResponseRepositoryInterface,
) *SuggestionService {
	return &SuggestionService{
		suggestionRepo: suggestionRepo,
		promptRepo:     promptRepo,
		responseRepo:   responseRepo,
	}
}

func (s *SuggestionService) GetSuggestionsForPrompt(ctx context.Context, promptID, userID uuid.UUID, isAdmin bool, filter dto.SuggestionFilter) ([]dto.SuggestionView, *errors.AppError) {
	prompt, err := s.promptRepo.GetPromptByID(ctx, promptID)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "failed to load prompt", err)
	}
	if prompt == nil {
		return nil, errors.NewAppError(errors.ErrNotFound, "prompt not found", nil)
	}

	if prompt.BlindVoting && !isAdmin && time.Now().Before(prompt.Deadline) {
		submitted, err := s.responseRepo.HasSubmitted(ctx, promptID, userID)
		if err != nil {
			return nil, errors.NewAppError(errors.ErrInternalServer, "failed to check response", err)
		}
		if !submitted {
			return nil, errors.NewAppError(errors.ErrForbidden, "results are hidden until you respond", nil)
		}
	}

	suggestions, err := s.suggestionRepo.GetSuggestionsByPromptID(ctx, promptID)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "failed to load suggestions", err)
	}

	views := make([]dto.SuggestionView, 0, len(suggestions))
	for _, suggestion := range suggestions {
		if suggestion.ParticipantCount < filter.MinParticipants {
			continue
		}
		if filter.MeetsMinimum != nil && suggestion.MeetsMinimum != *filter.MeetsMinimum {
			continue
		}
		views = append(views, dto.SuggestionView{
			ID:               suggestion.ID,
			WindowStart:      suggestion.WindowStart,
			WindowEnd:        suggestion.WindowEnd,
			ParticipantCount: suggestion.ParticipantCount,
			ParticipantIDs:   suggestion.ParticipantIDs,
			PreferredCount:   suggestion.PreferredCount,
			MeetsMinimum:     suggestion.MeetsMinimum,
			Score:            suggestion.Score,
			ConvertedEventID: suggestion.ConvertedEventID,
		})
	}
	orderViews(views, filter.OrderBy, filter.OrderDirection)
	return views, nil
}

// orderViews re-sorts the listing when the caller asks for something other
// than the stored ranking (score DESC, earlier window first).
func orderViews(views []dto.SuggestionView, orderBy, direction string) {
	var less func(a, b dto.SuggestionView) bool
	switch orderBy {
	case "window_start":
		less = func(a, b dto.SuggestionView) bool { return a.WindowStart.Before(b.WindowStart) }
	case "participant_count":
		less = func(a, b dto.SuggestionView) bool { return a.ParticipantCount < b.ParticipantCount }
	case "", "score":
		if orderBy == "" || direction == "" || strings.EqualFold(direction, "desc") {
			return // stored ranking already matches
		}
		less = func(a, b dto.SuggestionView) bool { return a.Score < b.Score }
	default:
		return
	}
	if strings.EqualFold(direction, "desc") {
		asc := less
		less = func(a, b dto.SuggestionView) bool { return asc(b, a) }
	}
	sort.SliceStable(views, func(i, j int) bool { return less(views[i], views[j]) })
}
