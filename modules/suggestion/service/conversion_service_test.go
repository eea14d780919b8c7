package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"gameplan-api/core/params"
	notificationentity "gameplan-api/modules/notification/entity"
	notificationservice "gameplan-api/modules/notification/service"
	promptentity "gameplan-api/modules/prompt/entity"
	"gameplan-api/modules/suggestion/dto"
	"gameplan-api/modules/suggestion/entity"

	"github.com/google/uuid"
)

type fakeNotificationRepo struct {
	mu      sync.Mutex
	created []notificationentity.Notification
}

func (f *fakeNotificationRepo) Create(ctx context.Context, notification *notificationentity.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, *notification)
	return nil
}

func (f *fakeNotificationRepo) GetByUserID(ctx context.Context, userID uuid.UUID, p params.QueryParams) (*notificationentity.PaginatedNotificationEntity, error) {
	return &notificationentity.PaginatedNotificationEntity{}, nil
}

func (f *fakeNotificationRepo) MarkAsRead(ctx context.Context, userID uuid.UUID, ids []string) error {
	return nil
}

func (f *fakeNotificationRepo) MarkAllAsRead(ctx context.Context, userID uuid.UUID) error {
	return nil
}

func (f *fakeNotificationRepo) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	return 0, nil
}

func newConversionFixture() (*ConversionService, *fakeSuggestionRepo, *fakePromptRepo) {
	suggestionRepo := newFakeSuggestionRepo()
	promptRepo := newFakePromptRepo()
	holds := NewHoldsService(suggestionRepo, promptRepo, newFakeCalendar())
	notifications := notificationservice.NewNotificationService(&fakeNotificationRepo{})
	svc := NewConversionService(suggestionRepo, promptRepo, holds, notifications)
	return svc, suggestionRepo, promptRepo
}

func TestConvertCreatesEventOnce(t *testing.T) {
	setTestConfig(t)
	svc, suggestionRepo, promptRepo := newConversionFixture()

	prompt, _ := promptRepo.CreatePrompt(context.Background(), &promptentity.Prompt{
		GroupID: uuid.New(),
		Status:  promptentity.PromptStatusActive,
	})
	existing, departed := uuid.New(), uuid.New()
	promptRepo.users[existing] = true

	suggID := seedSuggestion(suggestionRepo, prompt.ID, 3.0, true, existing, departed)

	admin := uuid.New()
	result, err := svc.ConvertSuggestionToEvent(context.Background(), &dto.ConvertSuggestionRequest{SuggestionID: suggID, ActingUserID: admin})
	if err != nil {
		t.Fatalf("ConvertSuggestionToEvent failed: %v", err)
	}
	if !result.Success || result.AlreadyConverted {
		t.Fatalf("unexpected result: %+v", result)
	}
	if result.Event == nil || result.Event.DurationMinutes != 180 {
		t.Fatalf("event duration = %+v, want 180 minutes", result.Event)
	}
	if result.Event.CreatedBy == nil || *result.Event.CreatedBy != admin {
		t.Fatalf("event created_by = %v, want the acting admin", result.Event.CreatedBy)
	}
	if result.Event.ShareCode == "" {
		t.Fatal("expected a share code")
	}
	if len(result.ParticipantIDs) != 1 || result.ParticipantIDs[0] != existing {
		t.Fatalf("participants = %v, want only the existing user", result.ParticipantIDs)
	}

	stamped, _ := suggestionRepo.GetSuggestionByID(context.Background(), suggID)
	if stamped.ConvertedEventID == nil || *stamped.ConvertedEventID != result.Event.ID {
		t.Fatal("suggestion must be stamped with the event id")
	}
	if len(suggestionRepo.promptConverted) != 1 || suggestionRepo.promptConverted[0] != prompt.ID {
		t.Fatal("prompt must be flipped to converted in the same transaction")
	}

	again, err := svc.ConvertSuggestionToEvent(context.Background(), &dto.ConvertSuggestionRequest{SuggestionID: suggID})
	if err != nil {
		t.Fatalf("second convert failed: %v", err)
	}
	if !again.Success || !again.AlreadyConverted {
		t.Fatalf("second convert should be an already-converted no-op: %+v", again)
	}
	if again.EventID == nil || *again.EventID != result.Event.ID {
		t.Fatal("repeat conversion must report the original event id")
	}
	if len(suggestionRepo.events) != 1 {
		t.Fatalf("events = %d, want exactly 1", len(suggestionRepo.events))
	}
}

func TestConvertMissingSuggestion(t *testing.T) {
	setTestConfig(t)
	svc, _, _ := newConversionFixture()

	result, err := svc.ConvertSuggestionToEvent(context.Background(), &dto.ConvertSuggestionRequest{SuggestionID: uuid.New()})
	if err != nil {
		t.Fatalf("ConvertSuggestionToEvent failed: %v", err)
	}
	if result.Success {
		t.Fatal("expected structured failure for a missing suggestion")
	}
}

func TestConvertZeroRemainingParticipants(t *testing.T) {
	setTestConfig(t)
	svc, suggestionRepo, promptRepo := newConversionFixture()

	prompt, _ := promptRepo.CreatePrompt(context.Background(), &promptentity.Prompt{
		GroupID: uuid.New(),
		Status:  promptentity.PromptStatusActive,
	})
	// Every original participant has since been deleted.
	suggID := seedSuggestion(suggestionRepo, prompt.ID, 2.0, true, uuid.New(), uuid.New())

	result, err := svc.ConvertSuggestionToEvent(context.Background(), &dto.ConvertSuggestionRequest{SuggestionID: suggID})
	if err != nil {
		t.Fatalf("ConvertSuggestionToEvent failed: %v", err)
	}
	if !result.Success {
		t.Fatal("conversion should still succeed with an empty roster")
	}
	if len(result.ParticipantIDs) != 0 {
		t.Fatalf("participants = %v, want none", result.ParticipantIDs)
	}
	if len(suggestionRepo.participants[result.Event.ID]) != 0 {
		t.Fatal("no participant rows should be written")
	}
	// No acting user on this request, so nobody is recorded as the creator.
	if result.Event.CreatedBy != nil {
		t.Fatalf("created_by = %v, want nil for a system conversion", result.Event.CreatedBy)
	}
}

func TestConvertWindowDuration(t *testing.T) {
	setTestConfig(t)
	svc, suggestionRepo, promptRepo := newConversionFixture()

	prompt, _ := promptRepo.CreatePrompt(context.Background(), &promptentity.Prompt{
		GroupID: uuid.New(),
		Status:  promptentity.PromptStatusActive,
	})
	user := uuid.New()
	promptRepo.users[user] = true

	id := uuid.New()
	start := time.Date(2026, 9, 4, 19, 30, 0, 0, time.UTC)
	suggestionRepo.suggestions[id] = &entity.Suggestion{
		PromptID:       prompt.ID,
		WindowStart:    start,
		WindowEnd:      start.Add(90 * time.Minute),
		ParticipantIDs: entity.UUIDList{user},
		MeetsMinimum:   true,
		CalendarHolds:  entity.HoldMap{},
	}
	suggestionRepo.suggestions[id].ID = id

	result, err := svc.ConvertSuggestionToEvent(context.Background(), &dto.ConvertSuggestionRequest{SuggestionID: id})
	if err != nil {
		t.Fatalf("ConvertSuggestionToEvent failed: %v", err)
	}
	if result.Event.DurationMinutes != 90 {
		t.Fatalf("duration = %d, want 90", result.Event.DurationMinutes)
	}
	if !result.Event.StartTime.Equal(start) {
		t.Fatalf("start = %v, want %v", result.Event.StartTime, start)
	}
}
