package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"gameplan-api/core/config"
	"gameplan-api/core/errors"
	"gameplan-api/modules/availability/dto"
	"gameplan-api/modules/availability/entity"
	calendardto "gameplan-api/modules/calendar/dto"
	promptentity "gameplan-api/modules/prompt/entity"
	suggestionentity "gameplan-api/modules/suggestion/entity"
	suggestionrepo "gameplan-api/modules/suggestion/repository"
	suggestionservice "gameplan-api/modules/suggestion/service"
	tokendto "gameplan-api/modules/token/dto"

	"github.com/google/uuid"
)

type stubPromptRepo struct {
	mu         sync.Mutex
	prompts    map[uuid.UUID]*promptentity.Prompt
	activities map[uuid.UUID]*promptentity.Activity
}

func newStubPromptRepo() *stubPromptRepo {
	return &stubPromptRepo{
		prompts:    map[uuid.UUID]*promptentity.Prompt{},
		activities: map[uuid.UUID]*promptentity.Activity{},
	}
}

func (s *stubPromptRepo) CreatePrompt(ctx context.Context, prompt *promptentity.Prompt) (*promptentity.Prompt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prompt.ID = uuid.New()
	copied := *prompt
	s.prompts[prompt.ID] = &copied
	return prompt, nil
}

func (s *stubPromptRepo) GetPromptByID(ctx context.Context, id uuid.UUID) (*promptentity.Prompt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.prompts[id]; ok {
		copied := *p
		return &copied, nil
	}
	return nil, nil
}

func (s *stubPromptRepo) TransitionStatus(ctx context.Context, id uuid.UUID, from []promptentity.PromptStatus, to promptentity.PromptStatus) (bool, error) {
	return false, nil
}

func (s *stubPromptRepo) UpdateDeadline(ctx context.Context, id uuid.UUID, deadline time.Time) (bool, error) {
	return false, nil
}

func (s *stubPromptRepo) GetActivityByID(ctx context.Context, id uuid.UUID) (*promptentity.Activity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.activities[id]; ok {
		copied := *a
		return &copied, nil
	}
	return nil, nil
}

func (s *stubPromptRepo) GetGroupMemberIDs(ctx context.Context, groupID uuid.UUID) ([]uuid.UUID, error) {
	return nil, nil
}

func (s *stubPromptRepo) FilterExistingUserIDs(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error) {
	return ids, nil
}

type stubResponseRepo struct {
	mu        sync.Mutex
	responses map[string]*entity.Response
}

func newStubResponseRepo() *stubResponseRepo {
	return &stubResponseRepo{responses: map[string]*entity.Response{}}
}

func responseKey(promptID, userID uuid.UUID) string {
	return promptID.String() + "|" + userID.String()
}

func (s *stubResponseRepo) UpsertResponse(ctx context.Context, response *entity.Response) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *response
	s.responses[responseKey(response.PromptID, response.UserID)] = &copied
	return nil
}

func (s *stubResponseRepo) GetSubmittedResponses(ctx context.Context, promptID uuid.UUID) ([]entity.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []entity.Response{}
	for _, r := range s.responses {
		if r.PromptID == promptID && r.SubmittedAt != nil {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (s *stubResponseRepo) HasSubmitted(ctx context.Context, promptID, userID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.responses[responseKey(promptID, userID)]
	return ok && r.SubmittedAt != nil, nil
}

func (s *stubResponseRepo) GetUserIDsNeedingReminder(ctx context.Context, promptID, groupID uuid.UUID, cooldown time.Duration) ([]uuid.UUID, error) {
	return nil, nil
}

func (s *stubResponseRepo) MarkReminded(ctx context.Context, promptID uuid.UUID, userIDs []uuid.UUID, at time.Time) error {
	return nil
}

func (s *stubResponseRepo) get(promptID, userID uuid.UUID) *entity.Response {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.responses[responseKey(promptID, userID)]
}

type stubSuggestionRepo struct {
	mu       sync.Mutex
	replaced int
}

func (s *stubSuggestionRepo) ReplaceSuggestions(ctx context.Context, promptID uuid.UUID, suggestions []suggestionentity.Suggestion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replaced++
	return nil
}

func (s *stubSuggestionRepo) GetSuggestionsByPromptID(ctx context.Context, promptID uuid.UUID) ([]suggestionentity.Suggestion, error) {
	return nil, nil
}

func (s *stubSuggestionRepo) GetSuggestionByID(ctx context.Context, id uuid.UUID) (*suggestionentity.Suggestion, error) {
	return nil, nil
}

func (s *stubSuggestionRepo) GetTopQualifying(ctx context.Context, promptID uuid.UUID, limit int) ([]suggestionentity.Suggestion, error) {
	return nil, nil
}

func (s *stubSuggestionRepo) GetSuggestionsWithHolds(ctx context.Context, promptID uuid.UUID, excludeID *uuid.UUID) ([]suggestionentity.Suggestion, error) {
	return nil, nil
}

func (s *stubSuggestionRepo) UpdateHoldMap(ctx context.Context, suggestionID uuid.UUID, holds suggestionentity.HoldMap) error {
	return nil
}

func (s *stubSuggestionRepo) WithConversionLock(ctx context.Context, suggestionID uuid.UUID, fn func(store suggestionrepo.ConversionStore, suggestion *suggestionentity.Suggestion) error) error {
	return fn(nil, nil)
}

func (s *stubSuggestionRepo) GetEventByID(ctx context.Context, id uuid.UUID) (*suggestionentity.Event, error) {
	return nil, nil
}

func (s *stubSuggestionRepo) GetEventParticipantIDs(ctx context.Context, eventID uuid.UUID) ([]uuid.UUID, error) {
	return nil, nil
}

type stubCalendar struct{}

func (stubCalendar) ConnectedUserIDs(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID]bool, error) {
	return map[uuid.UUID]bool{}, nil
}

func (stubCalendar) CreateTentativeHold(ctx context.Context, userID uuid.UUID, req *calendardto.TentativeHoldRequest) (string, error) {
	return "", nil
}

func (stubCalendar) DeleteTentativeHold(ctx context.Context, userID uuid.UUID, holdID string) error {
	return nil
}

func (stubCalendar) GetBusyTimesForDateRange(ctx context.Context, userID uuid.UUID, start, end time.Time) ([]calendardto.TimeSlot, error) {
	return nil, nil
}

type stubTokens struct {
	result *tokendto.ValidationResult
	err    *errors.AppError
}

func (s *stubTokens) Issue(ctx context.Context, userID, promptID uuid.UUID, ttl time.Duration) (*tokendto.IssueTokenResult, error) {
	return &tokendto.IssueTokenResult{}, nil
}

func (s *stubTokens) Validate(ctx context.Context, signedToken string, formLoadedAt *time.Time, meta tokendto.RequestMeta) (*tokendto.ValidationResult, *errors.AppError) {
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func (s *stubTokens) Revoke(ctx context.Context, tokenID string) error { return nil }

func newAvailabilityFixture(tokens *stubTokens) (*AvailabilityService, *stubPromptRepo, *stubResponseRepo) {
	cfg := &config.Config{}
	cfg.Scheduler.MinParticipants = 2
	cfg.Scheduler.TentativeHoldLimit = 3
	config.SetForTesting(cfg)

	promptRepo := newStubPromptRepo()
	responseRepo := newStubResponseRepo()
	suggestionRepo := &stubSuggestionRepo{}
	aggregation := suggestionservice.NewAggregationService(suggestionRepo, promptRepo, responseRepo)
	holds := suggestionservice.NewHoldsService(suggestionRepo, promptRepo, stubCalendar{})
	svc := NewAvailabilityService(responseRepo, promptRepo, tokens, aggregation, holds)
	return svc, promptRepo, responseRepo
}

func activePrompt(promptRepo *stubPromptRepo) *promptentity.Prompt {
	prompt, _ := promptRepo.CreatePrompt(context.Background(), &promptentity.Prompt{
		GroupID:  uuid.New(),
		Status:   promptentity.PromptStatusActive,
		Deadline: time.Now().Add(48 * time.Hour),
	})
	return prompt
}

func TestSubmitResponseStoresSubmission(t *testing.T) {
	userID := uuid.New()
	tokens := &stubTokens{result: &tokendto.ValidationResult{TokenID: "tok-1", UserID: userID}}
	svc, promptRepo, responseRepo := newAvailabilityFixture(tokens)
	prompt := activePrompt(promptRepo)
	tokens.result.PromptID = prompt.ID

	start := time.Date(2026, 9, 4, 19, 0, 0, 0, time.UTC)
	result, appErr := svc.SubmitResponse(context.Background(), &dto.SubmitResponseRequest{
		MagicToken: "signed",
		TimeSlots: []dto.TimeSlotInput{
			{Start: start, End: start.Add(3 * time.Hour), Preference: "preferred"},
		},
	}, tokendto.RequestMeta{})
	if appErr != nil {
		t.Fatalf("SubmitResponse failed: %v", appErr)
	}
	if !result.Success || result.Resubmit {
		t.Fatalf("unexpected result: %+v", result)
	}

	stored := responseRepo.get(prompt.ID, userID)
	if stored == nil || stored.SubmittedAt == nil {
		t.Fatal("expected a submitted response row")
	}
	if stored.TokenID == nil || *stored.TokenID != "tok-1" {
		t.Fatal("response must record the validating token")
	}
	if stored.UserTimezone != "UTC" {
		t.Fatalf("timezone = %q, want default UTC", stored.UserTimezone)
	}
	if stored.TimeSlots[0].Preference != entity.PreferencePreferred {
		t.Fatal("preference lost on store")
	}
}

func TestSubmitResponseResubmitReplacesInPlace(t *testing.T) {
	userID := uuid.New()
	tokens := &stubTokens{result: &tokendto.ValidationResult{TokenID: "tok-1", UserID: userID}}
	svc, promptRepo, responseRepo := newAvailabilityFixture(tokens)
	prompt := activePrompt(promptRepo)
	tokens.result.PromptID = prompt.ID

	start := time.Date(2026, 9, 4, 19, 0, 0, 0, time.UTC)
	first := &dto.SubmitResponseRequest{
		MagicToken: "signed",
		TimeSlots:  []dto.TimeSlotInput{{Start: start, End: start.Add(2 * time.Hour)}},
	}
	if _, appErr := svc.SubmitResponse(context.Background(), first, tokendto.RequestMeta{}); appErr != nil {
		t.Fatalf("first submit failed: %v", appErr)
	}

	second := &dto.SubmitResponseRequest{
		MagicToken: "signed",
		TimeSlots: []dto.TimeSlotInput{
			{Start: start.Add(24 * time.Hour), End: start.Add(27 * time.Hour)},
		},
	}
	result, appErr := svc.SubmitResponse(context.Background(), second, tokendto.RequestMeta{})
	if appErr != nil {
		t.Fatalf("resubmit failed: %v", appErr)
	}
	if !result.Resubmit {
		t.Fatal("second submission must be flagged as a resubmit")
	}

	stored := responseRepo.get(prompt.ID, userID)
	if len(stored.TimeSlots) != 1 || !stored.TimeSlots[0].Start.Equal(start.Add(24*time.Hour)) {
		t.Fatal("resubmission must replace the earlier slots")
	}
}

func TestSubmitResponseUnavailable(t *testing.T) {
	userID := uuid.New()
	tokens := &stubTokens{result: &tokendto.ValidationResult{UserID: userID}}
	svc, promptRepo, responseRepo := newAvailabilityFixture(tokens)
	prompt := activePrompt(promptRepo)
	tokens.result.PromptID = prompt.ID

	result, appErr := svc.SubmitResponse(context.Background(), &dto.SubmitResponseRequest{
		MagicToken:    "signed",
		IsUnavailable: true,
	}, tokendto.RequestMeta{})
	if appErr != nil {
		t.Fatalf("SubmitResponse failed: %v", appErr)
	}
	if result.SlotCount != 0 {
		t.Fatal("an unavailable response carries no slots")
	}
	stored := responseRepo.get(prompt.ID, userID)
	if !stored.IsUnavailable || len(stored.TimeSlots) != 0 {
		t.Fatalf("stored = %+v, want unavailable with empty slots", stored)
	}
}

func TestSubmitResponseRejectsBadSlots(t *testing.T) {
	tokens := &stubTokens{result: &tokendto.ValidationResult{UserID: uuid.New()}}
	svc, promptRepo, _ := newAvailabilityFixture(tokens)
	prompt := activePrompt(promptRepo)
	tokens.result.PromptID = prompt.ID

	start := time.Date(2026, 9, 4, 19, 0, 0, 0, time.UTC)
	cases := []dto.SubmitResponseRequest{
		{MagicToken: "signed"},
		{MagicToken: "signed", TimeSlots: []dto.TimeSlotInput{{Start: start, End: start}}},
		{MagicToken: "signed", TimeSlots: []dto.TimeSlotInput{{Start: start, End: start.Add(-time.Hour)}}},
		{MagicToken: "signed", TimeSlots: []dto.TimeSlotInput{{Start: start, End: start.Add(time.Hour), Preference: "maybe"}}},
	}
	for i, req := range cases {
		if _, appErr := svc.SubmitResponse(context.Background(), &req, tokendto.RequestMeta{}); appErr == nil || appErr.Code != errors.ErrInvalidInput {
			t.Fatalf("case %d: expected invalid_input, got %v", i, appErr)
		}
	}
}

func TestSubmitResponseClosedPrompt(t *testing.T) {
	tokens := &stubTokens{result: &tokendto.ValidationResult{UserID: uuid.New()}}
	svc, promptRepo, _ := newAvailabilityFixture(tokens)
	prompt, _ := promptRepo.CreatePrompt(context.Background(), &promptentity.Prompt{
		Status:   promptentity.PromptStatusClosed,
		Deadline: time.Now().Add(-time.Hour),
	})
	tokens.result.PromptID = prompt.ID

	start := time.Now().Add(24 * time.Hour)
	_, appErr := svc.SubmitResponse(context.Background(), &dto.SubmitResponseRequest{
		MagicToken: "signed",
		TimeSlots:  []dto.TimeSlotInput{{Start: start, End: start.Add(time.Hour)}},
	}, tokendto.RequestMeta{})
	if appErr == nil || appErr.Code != errors.ErrInvalidInput {
		t.Fatalf("expected rejection for a closed prompt, got %v", appErr)
	}
}

func TestSubmitResponseTokenFailurePassesThrough(t *testing.T) {
	tokens := &stubTokens{err: errors.NewAppError(errors.ErrMagicTokenExpired, "Token has expired", nil)}
	svc, _, _ := newAvailabilityFixture(tokens)

	_, appErr := svc.SubmitResponse(context.Background(), &dto.SubmitResponseRequest{MagicToken: "signed"}, tokendto.RequestMeta{})
	if appErr == nil || appErr.Code != errors.ErrMagicTokenExpired {
		t.Fatalf("expected token_expired to pass through to the boundary, got %v", appErr)
	}
}

func TestValidateTokenReturnsFormContext(t *testing.T) {
	userID := uuid.New()
	tokens := &stubTokens{result: &tokendto.ValidationResult{UserID: userID, GraceUsed: true}}
	svc, promptRepo, responseRepo := newAvailabilityFixture(tokens)

	activityID := uuid.New()
	promptRepo.activities[activityID] = &promptentity.Activity{Name: "Catan night", MinPlayers: 3}
	message := "Bring snacks"
	prompt, _ := promptRepo.CreatePrompt(context.Background(), &promptentity.Prompt{
		Status:        promptentity.PromptStatusActive,
		Deadline:      time.Now().Add(48 * time.Hour),
		ActivityID:    &activityID,
		CustomMessage: &message,
	})
	tokens.result.PromptID = prompt.ID

	now := time.Now()
	responseRepo.UpsertResponse(context.Background(), &entity.Response{
		PromptID:    prompt.ID,
		UserID:      userID,
		SubmittedAt: &now,
	})

	resp, appErr := svc.ValidateToken(context.Background(), &dto.ValidateTokenRequest{Token: "signed"}, tokendto.RequestMeta{})
	if appErr != nil {
		t.Fatalf("ValidateToken failed: %v", appErr)
	}
	if !resp.Valid || !resp.AlreadySubmitted || !resp.GraceUsed {
		t.Fatalf("unexpected context: %+v", resp)
	}
	if resp.ActivityName != "Catan night" || resp.CustomMessage == nil || *resp.CustomMessage != message {
		t.Fatalf("form context incomplete: %+v", resp)
	}
}
