package service

import (
	"context"
	"sync"
	"testing"
	"time"

	availabilityentity "gameplan-api/modules/availability/entity"
	calendardto "gameplan-api/modules/calendar/dto"
	notificationservice "gameplan-api/modules/notification/service"
	"gameplan-api/modules/prompt/entity"
	suggestionentity "gameplan-api/modules/suggestion/entity"
	suggestionrepo "gameplan-api/modules/suggestion/repository"
	suggestionservice "gameplan-api/modules/suggestion/service"

	"github.com/google/uuid"
)

// deadlineSuggestionRepo backs the full deadline pipeline in memory. Its
// conversion store flips the prompt on the shared prompt store, the way the
// SQL store does inside one transaction.
type deadlineSuggestionRepo struct {
	mu           sync.Mutex
	promptStore  *fakePromptStore
	suggestions  map[uuid.UUID]*suggestionentity.Suggestion
	events       map[uuid.UUID]*suggestionentity.Event
	participants map[uuid.UUID][]uuid.UUID
}

func newDeadlineSuggestionRepo(promptStore *fakePromptStore) *deadlineSuggestionRepo {
	return &deadlineSuggestionRepo{
		promptStore:  promptStore,
		suggestions:  map[uuid.UUID]*suggestionentity.Suggestion{},
		events:       map[uuid.UUID]*suggestionentity.Event{},
		participants: map[uuid.UUID][]uuid.UUID{},
	}
}

func (f *deadlineSuggestionRepo) ReplaceSuggestions(ctx context.Context, promptID uuid.UUID, suggestions []suggestionentity.Suggestion) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, s := range f.suggestions {
		if s.PromptID == promptID && s.ConvertedEventID == nil {
			delete(f.suggestions, id)
		}
	}
	for i := range suggestions {
		copied := suggestions[i]
		copied.PromptID = promptID
		copied.ID = uuid.New()
		f.suggestions[copied.ID] = &copied
	}
	return nil
}

func (f *deadlineSuggestionRepo) byPrompt(promptID uuid.UUID) []suggestionentity.Suggestion {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []suggestionentity.Suggestion{}
	for _, s := range f.suggestions {
		if s.PromptID == promptID {
			out = append(out, *s)
		}
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].Score > out[j-1].Score; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

func (f *deadlineSuggestionRepo) GetSuggestionsByPromptID(ctx context.Context, promptID uuid.UUID) ([]suggestionentity.Suggestion, error) {
	return f.byPrompt(promptID), nil
}

func (f *deadlineSuggestionRepo) GetSuggestionByID(ctx context.Context, id uuid.UUID) (*suggestionentity.Suggestion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.suggestions[id]; ok {
		copied := *s
		return &copied, nil
	}
	return nil, nil
}

func (f *deadlineSuggestionRepo) GetTopQualifying(ctx context.Context, promptID uuid.UUID, limit int) ([]suggestionentity.Suggestion, error) {
	all := f.byPrompt(promptID)
	out := []suggestionentity.Suggestion{}
	for _, s := range all {
		if s.MeetsMinimum && s.ConvertedEventID == nil {
			out = append(out, s)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *deadlineSuggestionRepo) GetSuggestionsWithHolds(ctx context.Context, promptID uuid.UUID, excludeID *uuid.UUID) ([]suggestionentity.Suggestion, error) {
	all := f.byPrompt(promptID)
	out := []suggestionentity.Suggestion{}
	for _, s := range all {
		if len(s.CalendarHolds) == 0 {
			continue
		}
		if excludeID != nil && s.ID == *excludeID {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func (f *deadlineSuggestionRepo) UpdateHoldMap(ctx context.Context, suggestionID uuid.UUID, holds suggestionentity.HoldMap) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.suggestions[suggestionID]; ok {
		s.CalendarHolds = holds
	}
	return nil
}

func (f *deadlineSuggestionRepo) WithConversionLock(ctx context.Context, suggestionID uuid.UUID, fn func(store suggestionrepo.ConversionStore, suggestion *suggestionentity.Suggestion) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	store := &deadlineConversionStore{repo: f}
	s, ok := f.suggestions[suggestionID]
	if !ok {
		return fn(store, nil)
	}
	copied := *s
	return fn(store, &copied)
}

func (f *deadlineSuggestionRepo) GetEventByID(ctx context.Context, id uuid.UUID) (*suggestionentity.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if e, ok := f.events[id]; ok {
		copied := *e
		return &copied, nil
	}
	return nil, nil
}

func (f *deadlineSuggestionRepo) GetEventParticipantIDs(ctx context.Context, eventID uuid.UUID) ([]uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]uuid.UUID{}, f.participants[eventID]...), nil
}

type deadlineConversionStore struct {
	repo *deadlineSuggestionRepo
}

func (s *deadlineConversionStore) CreateEvent(ctx context.Context, event *suggestionentity.Event) (*suggestionentity.Event, error) {
	event.ID = uuid.New()
	event.CreatedAt = time.Now()
	copied := *event
	s.repo.events[event.ID] = &copied
	return event, nil
}

func (s *deadlineConversionStore) AddEventParticipants(ctx context.Context, eventID uuid.UUID, userIDs []uuid.UUID) error {
	s.repo.participants[eventID] = append(s.repo.participants[eventID], userIDs...)
	return nil
}

func (s *deadlineConversionStore) StampConverted(ctx context.Context, suggestionID, eventID uuid.UUID) error {
	if sugg, ok := s.repo.suggestions[suggestionID]; ok && sugg.ConvertedEventID == nil {
		sugg.ConvertedEventID = &eventID
	}
	return nil
}

func (s *deadlineConversionStore) MarkPromptConverted(ctx context.Context, promptID uuid.UUID) error {
	_, err := s.repo.promptStore.TransitionStatus(ctx, promptID,
		[]entity.PromptStatus{entity.PromptStatusActive, entity.PromptStatusClosed}, entity.PromptStatusConverted)
	return err
}

// offlineCalendar has no connected users, so the pipeline runs without holds.
type offlineCalendar struct{}

func (offlineCalendar) ConnectedUserIDs(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID]bool, error) {
	return map[uuid.UUID]bool{}, nil
}

func (offlineCalendar) CreateTentativeHold(ctx context.Context, userID uuid.UUID, req *calendardto.TentativeHoldRequest) (string, error) {
	return "", nil
}

func (offlineCalendar) DeleteTentativeHold(ctx context.Context, userID uuid.UUID, holdID string) error {
	return nil
}

func (offlineCalendar) GetBusyTimesForDateRange(ctx context.Context, userID uuid.UUID, start, end time.Time) ([]calendardto.TimeSlot, error) {
	return nil, nil
}

func newDeadlineFixture() (*JobHandler, *fakePromptStore, *deadlineSuggestionRepo, *reminderResponseRepo) {
	store := newFakePromptStore()
	responses := &reminderResponseRepo{}
	suggestions := newDeadlineSuggestionRepo(store)
	notifications := notificationservice.NewNotificationService(&recordingNotificationRepo{})
	aggregation := suggestionservice.NewAggregationService(suggestions, store, responses)
	holds := suggestionservice.NewHoldsService(suggestions, store, offlineCalendar{})
	conversion := suggestionservice.NewConversionService(suggestions, store, holds, notifications)
	handler := NewJobHandler(store, responses, suggestions, &fakeTokens{}, notifications, aggregation, holds, conversion)
	return handler, store, suggestions, responses
}

func availableAt(promptID, userID uuid.UUID, start time.Time) availabilityentity.Response {
	now := time.Now().UTC()
	return availabilityentity.Response{
		PromptID: promptID,
		UserID:   userID,
		TimeSlots: availabilityentity.TimeSlotList{{
			Start:      start,
			End:        start.Add(3 * time.Hour),
			Preference: availabilityentity.PreferenceAcceptable,
		}},
		SubmittedAt: &now,
	}
}

func TestHandleDeadlineTaskAutoConvertsWinner(t *testing.T) {
	setPromptTestConfig(t)
	handler, store, suggestions, responses := newDeadlineFixture()

	groupID := uuid.New()
	alice, bob := uuid.New(), uuid.New()
	store.members[groupID] = []uuid.UUID{alice, bob}
	prompt, _ := store.CreatePrompt(context.Background(), &entity.Prompt{
		GroupID:             groupID,
		Status:              entity.PromptStatusActive,
		Deadline:            time.Now().Add(-time.Minute),
		AutoScheduleEnabled: true,
	})

	friday := time.Date(2026, 9, 4, 19, 0, 0, 0, time.UTC)
	responses.submitted = []availabilityentity.Response{
		availableAt(prompt.ID, alice, friday),
		availableAt(prompt.ID, bob, friday),
	}

	if err := handler.HandleDeadlineTask(context.Background(), deadlineTask(t, prompt.ID)); err != nil {
		t.Fatalf("HandleDeadlineTask failed: %v", err)
	}

	if got := store.status(prompt.ID); got != entity.PromptStatusConverted {
		t.Fatalf("prompt status = %s, want converted", got)
	}
	if len(suggestions.events) != 1 {
		t.Fatalf("events = %d, want exactly one", len(suggestions.events))
	}
	for _, event := range suggestions.events {
		if !event.StartTime.Equal(friday) {
			t.Fatalf("event start = %v, want %v", event.StartTime, friday)
		}
		if event.CreatedBy != nil {
			t.Fatalf("created_by = %v, want nil for the deadline job", event.CreatedBy)
		}
		if len(suggestions.participants[event.ID]) != 2 {
			t.Fatalf("participants = %v, want both responders", suggestions.participants[event.ID])
		}
	}
	ranked, _ := suggestions.GetSuggestionsByPromptID(context.Background(), prompt.ID)
	if len(ranked) != 1 || ranked[0].ConvertedEventID == nil {
		t.Fatalf("winning suggestion must carry the event stamp: %+v", ranked)
	}

	// A late duplicate delivery is a clean no-op.
	if err := handler.HandleDeadlineTask(context.Background(), deadlineTask(t, prompt.ID)); err != nil {
		t.Fatalf("duplicate deadline job failed: %v", err)
	}
	if len(suggestions.events) != 1 {
		t.Fatal("duplicate delivery created a second event")
	}
}

func TestHandleDeadlineTaskClosesWhenNobodyCanPlay(t *testing.T) {
	setPromptTestConfig(t)
	handler, store, suggestions, responses := newDeadlineFixture()

	groupID := uuid.New()
	prompt, _ := store.CreatePrompt(context.Background(), &entity.Prompt{
		GroupID:             groupID,
		Status:              entity.PromptStatusActive,
		Deadline:            time.Now().Add(-time.Minute),
		AutoScheduleEnabled: true,
	})

	now := time.Now().UTC()
	responses.submitted = []availabilityentity.Response{
		{PromptID: prompt.ID, UserID: uuid.New(), IsUnavailable: true, SubmittedAt: &now},
		{PromptID: prompt.ID, UserID: uuid.New(), IsUnavailable: true, SubmittedAt: &now},
	}

	if err := handler.HandleDeadlineTask(context.Background(), deadlineTask(t, prompt.ID)); err != nil {
		t.Fatalf("HandleDeadlineTask failed: %v", err)
	}

	if got := store.status(prompt.ID); got != entity.PromptStatusClosed {
		t.Fatalf("prompt status = %s, want closed", got)
	}
	if len(suggestions.events) != 0 {
		t.Fatal("no event may be created when nobody is available")
	}
	if ranked, _ := suggestions.GetSuggestionsByPromptID(context.Background(), prompt.ID); len(ranked) != 0 {
		t.Fatalf("suggestions = %v, want none", ranked)
	}
}

func TestHandleDeadlineTaskClosesWithoutAutoSchedule(t *testing.T) {
	setPromptTestConfig(t)
	handler, store, suggestions, responses := newDeadlineFixture()

	groupID := uuid.New()
	alice, bob := uuid.New(), uuid.New()
	prompt, _ := store.CreatePrompt(context.Background(), &entity.Prompt{
		GroupID:  groupID,
		Status:   entity.PromptStatusActive,
		Deadline: time.Now().Add(-time.Minute),
	})

	friday := time.Date(2026, 9, 4, 19, 0, 0, 0, time.UTC)
	responses.submitted = []availabilityentity.Response{
		availableAt(prompt.ID, alice, friday),
		availableAt(prompt.ID, bob, friday),
	}

	if err := handler.HandleDeadlineTask(context.Background(), deadlineTask(t, prompt.ID)); err != nil {
		t.Fatalf("HandleDeadlineTask failed: %v", err)
	}

	// Aggregates are kept for the group to act on, but nothing is scheduled.
	if got := store.status(prompt.ID); got != entity.PromptStatusClosed {
		t.Fatalf("prompt status = %s, want closed", got)
	}
	if len(suggestions.events) != 0 {
		t.Fatal("auto-schedule is off, no event may be created")
	}
	if ranked, _ := suggestions.GetSuggestionsByPromptID(context.Background(), prompt.ID); len(ranked) != 1 {
		t.Fatalf("suggestions = %v, want the aggregated window", ranked)
	}
}
