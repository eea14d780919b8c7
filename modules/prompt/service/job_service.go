package service

import (
	"context"
	"encoding/json"
	"time"

	"gameplan-api/core/constants"
	"gameplan-api/core/logger"
	availabilityrepo "gameplan-api/modules/availability/repository"
	notificationdto "gameplan-api/modules/notification/dto"
	notificationservice "gameplan-api/modules/notification/service"
	"gameplan-api/modules/prompt/dto"
	"gameplan-api/modules/prompt/entity"
	"gameplan-api/modules/prompt/repository"
	suggestiondto "gameplan-api/modules/suggestion/dto"
	suggestionrepo "gameplan-api/modules/suggestion/repository"
	suggestionservice "gameplan-api/modules/suggestion/service"
	tokenservice "gameplan-api/modules/token/service"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// JobHandler executes the scheduled prompt jobs. Handlers are idempotent;
// a job that fires after the prompt has moved on is a clean no-op.
type JobHandler struct {
	promptRepo     repository.PromptRepositoryInterface
	responseRepo   availabilityrepo.ResponseRepositoryInterface
	suggestionRepo suggestionrepo.SuggestionRepositoryInterface
	tokens         tokenservice.TokenServiceInterface
	notifications  *notificationservice.NotificationService
	aggregation    *suggestionservice.AggregationService
	holds          *suggestionservice.HoldsService
	conversion     *suggestionservice.ConversionService
}

func NewJobHandler(
	promptRepo repository.PromptRepositoryInterface,
	responseRepo availabilityrepo.ResponseRepositoryInterface,
	suggestionRepo suggestionrepo.SuggestionRepositoryInterface,
	tokens tokenservice.TokenServiceInterface,
	notifications *notificationservice.NotificationService,
	aggregation *suggestionservice.AggregationService,
	holds *suggestionservice.HoldsService,
	conversion *suggestionservice.ConversionService,
) *JobHandler {
	return &JobHandler{
		promptRepo:     promptRepo,
		responseRepo:   responseRepo,
		suggestionRepo: suggestionRepo,
		tokens:         tokens,
		notifications:  notifications,
		aggregation:    aggregation,
		holds:          holds,
		conversion:     conversion,
	}
}

// Register mounts the handlers on the worker mux.
func (h *JobHandler) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TypePromptReminder, h.HandleReminderTask)
	mux.HandleFunc(TypePromptDeadline, h.HandleDeadlineTask)
}

// HandleReminderTask nudges members who have not submitted yet. Members
// reminded within the cooldown window are left alone, so a 50% reminder
// followed closely by a 90% one does not double-ping anyone.
func (h *JobHandler) HandleReminderTask(ctx context.Context, t *asynq.Task) error {
	var payload dto.ReminderTaskPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return err
	}

	prompt, err := h.promptRepo.GetPromptByID(ctx, payload.PromptID)
	if err != nil {
		return err
	}
	if prompt == nil || prompt.Status != entity.PromptStatusActive {
		logger.Info("skipping reminder, prompt is not active", "promptId", payload.PromptID, "stage", payload.Stage)
		return nil
	}

	userIDs, err := h.responseRepo.GetUserIDsNeedingReminder(ctx, prompt.ID, prompt.GroupID, constants.ReminderCooldown)
	if err != nil {
		return err
	}
	if len(userIDs) == 0 {
		return nil
	}

	reqs := make([]*notificationdto.CreateNotificationRequest, 0, len(userIDs))
	reminded := make([]uuid.UUID, 0, len(userIDs))
	for _, userID := range userIDs {
		token, err := h.tokens.Issue(ctx, userID, prompt.ID, time.Until(prompt.Deadline))
		if err != nil {
			logger.Error("JobHandler:HandleReminderTask", err)
			continue
		}
		reqs = append(reqs, &notificationdto.CreateNotificationRequest{
			UserID:  userID,
			Title:   "Reminder: when can you play?",
			Message: "The group is still waiting on your availability.",
			Type:    "availability_reminder",
			Data: map[string]interface{}{
				"prompt_id": prompt.ID.String(),
				"form_url":  token.FormURL,
				"deadline":  prompt.Deadline.Format(time.RFC3339),
			},
		})
		reminded = append(reminded, userID)
	}
	h.notifications.SendBatch(ctx, reqs)

	if err := h.responseRepo.MarkReminded(ctx, prompt.ID, reminded, time.Now().UTC()); err != nil {
		return err
	}
	logger.Info("sent availability reminders", "promptId", prompt.ID, "stage", payload.Stage, "count", len(reminded))
	return nil
}

// HandleDeadlineTask settles the response window. An already-settled prompt
// is a clean no-op; any error before settling returns to asynq with the
// prompt still active, so a retry picks up the full job. Exactly-once for
// the conversion itself is the conversion service's row lock, not this
// handler, so a duplicate run at worst re-aggregates.
func (h *JobHandler) HandleDeadlineTask(ctx context.Context, t *asynq.Task) error {
	var payload dto.DeadlineTaskPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return err
	}

	prompt, err := h.promptRepo.GetPromptByID(ctx, payload.PromptID)
	if err != nil {
		return err
	}
	if prompt == nil {
		logger.Info("skipping deadline job, prompt missing", "promptId", payload.PromptID)
		return nil
	}
	if prompt.Status != entity.PromptStatusActive {
		logger.Info("skipping deadline job, prompt already settled", "promptId", prompt.ID, "status", prompt.Status)
		return nil
	}

	result, err := h.aggregation.AggregateResponses(ctx, prompt.ID)
	if err != nil {
		return err
	}
	h.holds.ReleaseOrphanedHolds(ctx, result.OrphanedHolds)

	if prompt.AutoScheduleEnabled {
		winners, err := h.suggestionRepo.GetTopQualifying(ctx, prompt.ID, 1)
		if err != nil {
			return err
		}
		if len(winners) > 0 {
			conversion, err := h.conversion.ConvertSuggestionToEvent(ctx, &suggestiondto.ConvertSuggestionRequest{
				SuggestionID: winners[0].ID,
				SendEmails:   true,
			})
			if err != nil {
				return err
			}
			logger.Info("auto-converted winning suggestion",
				"promptId", prompt.ID, "suggestionId", winners[0].ID,
				"eventId", conversion.EventID, "alreadyConverted", conversion.AlreadyConverted)
			return nil
		}
		logger.Info("no qualifying suggestion at deadline", "promptId", prompt.ID)
	}

	closed, err := h.promptRepo.TransitionStatus(ctx, prompt.ID,
		[]entity.PromptStatus{entity.PromptStatusActive}, entity.PromptStatusClosed)
	if err != nil {
		return err
	}
	if !closed {
		logger.Info("deadline close raced another run", "promptId", prompt.ID)
		return nil
	}
	logger.Info("prompt closed at deadline", "promptId", prompt.ID, "suggestions", result.SuggestionCount)
	return nil
}
