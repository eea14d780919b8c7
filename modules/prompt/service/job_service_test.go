package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	notificationservice "gameplan-api/modules/notification/service"
	"gameplan-api/modules/prompt/dto"
	"gameplan-api/modules/prompt/entity"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

func reminderTask(t *testing.T, promptID uuid.UUID, stage int) *asynq.Task {
	t.Helper()
	payload, err := json.Marshal(dto.ReminderTaskPayload{PromptID: promptID, Stage: stage})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return asynq.NewTask(TypePromptReminder, payload)
}

func deadlineTask(t *testing.T, promptID uuid.UUID) *asynq.Task {
	t.Helper()
	payload, err := json.Marshal(dto.DeadlineTaskPayload{PromptID: promptID})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return asynq.NewTask(TypePromptDeadline, payload)
}

func TestHandleReminderTaskNudgesMissingResponders(t *testing.T) {
	setPromptTestConfig(t)
	store := newFakePromptStore()
	tokens := &fakeTokens{}
	notifRepo := &recordingNotificationRepo{}
	responses := &reminderResponseRepo{}

	prompt, _ := store.CreatePrompt(context.Background(), &entity.Prompt{
		GroupID:  uuid.New(),
		Status:   entity.PromptStatusActive,
		Deadline: time.Now().Add(24 * time.Hour),
	})
	lagging := []uuid.UUID{uuid.New(), uuid.New()}
	responses.needing = lagging

	handler := NewJobHandler(store, responses, nil, tokens,
		notificationservice.NewNotificationService(notifRepo), nil, nil, nil)

	if err := handler.HandleReminderTask(context.Background(), reminderTask(t, prompt.ID, 50)); err != nil {
		t.Fatalf("HandleReminderTask failed: %v", err)
	}

	if len(tokens.issued) != 2 {
		t.Fatalf("issued %d fresh tokens, want 2", len(tokens.issued))
	}
	if len(notifRepo.created) != 2 {
		t.Fatalf("sent %d reminders, want 2", len(notifRepo.created))
	}
	if len(responses.reminded) != 2 {
		t.Fatalf("marked %d users reminded, want 2", len(responses.reminded))
	}
}

func TestHandleReminderTaskSkipsSettledPrompt(t *testing.T) {
	setPromptTestConfig(t)
	store := newFakePromptStore()
	tokens := &fakeTokens{}
	notifRepo := &recordingNotificationRepo{}
	responses := &reminderResponseRepo{needing: []uuid.UUID{uuid.New()}}

	prompt, _ := store.CreatePrompt(context.Background(), &entity.Prompt{
		GroupID:  uuid.New(),
		Status:   entity.PromptStatusClosed,
		Deadline: time.Now().Add(-time.Hour),
	})

	handler := NewJobHandler(store, responses, nil, tokens,
		notificationservice.NewNotificationService(notifRepo), nil, nil, nil)

	if err := handler.HandleReminderTask(context.Background(), reminderTask(t, prompt.ID, 90)); err != nil {
		t.Fatalf("HandleReminderTask failed: %v", err)
	}
	if len(tokens.issued) != 0 || len(notifRepo.created) != 0 {
		t.Fatal("settled prompts must not trigger reminders")
	}
}

func TestHandleReminderTaskMissingPrompt(t *testing.T) {
	setPromptTestConfig(t)
	handler := NewJobHandler(newFakePromptStore(), &reminderResponseRepo{}, nil, &fakeTokens{},
		notificationservice.NewNotificationService(&recordingNotificationRepo{}), nil, nil, nil)

	if err := handler.HandleReminderTask(context.Background(), reminderTask(t, uuid.New(), 50)); err != nil {
		t.Fatalf("a vanished prompt must be a clean no-op, got %v", err)
	}
}

func TestHandleDeadlineTaskIdempotentOnSettledPrompt(t *testing.T) {
	setPromptTestConfig(t)
	store := newFakePromptStore()

	for _, status := range []entity.PromptStatus{entity.PromptStatusClosed, entity.PromptStatusConverted} {
		prompt, _ := store.CreatePrompt(context.Background(), &entity.Prompt{
			GroupID:  uuid.New(),
			Status:   status,
			Deadline: time.Now().Add(-time.Minute),
		})
		handler := NewJobHandler(store, &reminderResponseRepo{}, nil, &fakeTokens{},
			notificationservice.NewNotificationService(&recordingNotificationRepo{}), nil, nil, nil)

		if err := handler.HandleDeadlineTask(context.Background(), deadlineTask(t, prompt.ID)); err != nil {
			t.Fatalf("deadline job on %s prompt must no-op, got %v", status, err)
		}
		if store.status(prompt.ID) != status {
			t.Fatalf("status changed from %s", status)
		}
	}
}

func TestHandleDeadlineTaskMissingPrompt(t *testing.T) {
	setPromptTestConfig(t)
	handler := NewJobHandler(newFakePromptStore(), &reminderResponseRepo{}, nil, &fakeTokens{},
		notificationservice.NewNotificationService(&recordingNotificationRepo{}), nil, nil, nil)

	if err := handler.HandleDeadlineTask(context.Background(), deadlineTask(t, uuid.New())); err != nil {
		t.Fatalf("a vanished prompt must be a clean no-op, got %v", err)
	}
}
