package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gameplan-api/core/logger"
	"gameplan-api/core/utils"
	notificationdto "gameplan-api/modules/notification/dto"
	notificationservice "gameplan-api/modules/notification/service"
	promptrepo "gameplan-api/modules/prompt/repository"
	"gameplan-api/modules/suggestion/dto"
	"gameplan-api/modules/suggestion/entity"
	"gameplan-api/modules/suggestion/repository"

	"github.com/google/uuid"
)

// errConversionHalted aborts the conversion transaction after the outcome has
// already been captured, so nothing inside it commits.
var errConversionHalted = errors.New("conversion halted")

// ConversionService turns a winning suggestion into a confirmed event. The
// suggestion-to-event link is write-once: converting an already converted
// suggestion is a no-op that reports the existing event.
type ConversionService struct {
	suggestionRepo repository.SuggestionRepositoryInterface
	promptRepo     promptrepo.PromptRepositoryInterface
	holds          *HoldsService
	notifications  *notificationservice.NotificationService
}

func NewConversionService(
	suggestionRepo repository.SuggestionRepositoryInterface,
	promptRepo promptrepo.PromptRepositoryInterface,
	holds *HoldsService,
	notifications *notificationservice.NotificationService,
) *ConversionService {
	return &ConversionService{
		suggestionRepo: suggestionRepo,
		promptRepo:     promptRepo,
		holds:          holds,
		notifications:  notifications,
	}
}

// ConvertSuggestionToEvent runs the whole conversion in one transaction with
// the suggestion row locked: create the event, attach participants that still
// exist, stamp the suggestion, and flip the prompt to converted. Hold cleanup
// and notifications happen after commit and never affect the outcome.
func (s *ConversionService) ConvertSuggestionToEvent(ctx context.Context, req *dto.ConvertSuggestionRequest) (*dto.ConversionResult, error) {
	result := &dto.ConversionResult{}
	var promptID uuid.UUID

	err := s.suggestionRepo.WithConversionLock(ctx, req.SuggestionID, func(store repository.ConversionStore, suggestion *entity.Suggestion) error {
		if suggestion == nil {
			result.Message = "suggestion not found"
			return errConversionHalted
		}
		promptID = suggestion.PromptID

		if suggestion.ConvertedEventID != nil {
			result.Success = true
			result.AlreadyConverted = true
			result.EventID = suggestion.ConvertedEventID
			result.Message = "suggestion was already converted"
			return errConversionHalted
		}

		prompt, err := s.promptRepo.GetPromptByID(ctx, suggestion.PromptID)
		if err != nil {
			return err
		}
		if prompt == nil {
			result.Message = "prompt not found"
			return errConversionHalted
		}

		participantIDs, err := s.promptRepo.FilterExistingUserIDs(ctx, suggestion.ParticipantIDs)
		if err != nil {
			return err
		}
		if len(participantIDs) == 0 {
			logger.Info("converting suggestion with no remaining participants",
				"suggestionId", suggestion.ID, "promptId", prompt.ID)
		}

		event := &entity.Event{
			GroupID:         prompt.GroupID,
			ActivityID:      prompt.ActivityID,
			StartTime:       suggestion.WindowStart,
			DurationMinutes: int(suggestion.WindowEnd.Sub(suggestion.WindowStart) / time.Minute),
			Status:          entity.EventStatusScheduled,
			ShareCode:       utils.GenerateID(),
			Comments:        req.Comments,
		}
		if req.ActingUserID != uuid.Nil {
			actor := req.ActingUserID
			event.CreatedBy = &actor
		}
		if _, err := store.CreateEvent(ctx, event); err != nil {
			return err
		}
		if err := store.AddEventParticipants(ctx, event.ID, participantIDs); err != nil {
			return err
		}
		if err := store.StampConverted(ctx, suggestion.ID, event.ID); err != nil {
			return err
		}
		if err := store.MarkPromptConverted(ctx, prompt.ID); err != nil {
			return err
		}

		result.Success = true
		result.EventID = &event.ID
		result.Event = event
		result.ParticipantIDs = participantIDs
		return nil
	})
	if err != nil && !errors.Is(err, errConversionHalted) {
		return nil, err
	}

	if result.Success && !result.AlreadyConverted {
		go s.afterConversion(promptID, req.SuggestionID, result.Event, result.ParticipantIDs, req.SendEmails)
	}
	return result, nil
}

func (s *ConversionService) afterConversion(promptID, suggestionID uuid.UUID, event *entity.Event, participantIDs []uuid.UUID, sendEmails bool) {
	bgCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s.holds.ClearOtherHolds(bgCtx, promptID, suggestionID)

	if !sendEmails || len(participantIDs) == 0 {
		return
	}
	reqs := make([]*notificationdto.CreateNotificationRequest, 0, len(participantIDs))
	for _, userID := range participantIDs {
		reqs = append(reqs, &notificationdto.CreateNotificationRequest{
			UserID:  userID,
			Title:   "Game night is on",
			Message: fmt.Sprintf("Your group is confirmed for %s.", event.StartTime.Format("Mon, Jan 2 at 3:04 PM MST")),
			Type:    "event_scheduled",
			Data: map[string]interface{}{
				"event_id":   event.ID.String(),
				"share_code": event.ShareCode,
			},
		})
	}
	delivery := s.notifications.SendBatch(bgCtx, reqs)
	if delivery.Failed > 0 {
		logger.Info("event notifications partially delivered",
			"eventId", event.ID, "sent", delivery.Sent, "failed", delivery.Failed)
	}
}

// GetEventWithParticipants returns an event and its roster.
func (s *ConversionService) GetEventWithParticipants(ctx context.Context, eventID uuid.UUID) (*entity.Event, []uuid.UUID, error) {
	event, err := s.suggestionRepo.GetEventByID(ctx, eventID)
	if err != nil {
		return nil, nil, err
	}
	if event == nil {
		return nil, nil, nil
	}
	participants, err := s.suggestionRepo.GetEventParticipantIDs(ctx, eventID)
	if err != nil {
		return nil, nil, err
	}
	return event, participants, nil
}
