package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"gameplan-api/core/config"
	"gameplan-api/core/logger"
	"gameplan-api/modules/calendar/dto"
	"gameplan-api/modules/calendar/entity"
	"gameplan-api/modules/calendar/repository"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	googleCalendarAPIBase = "https://www.googleapis.com/calendar/v3"
	googleFreeBusyAPI     = googleCalendarAPIBase + "/freeBusy"
	googleEventsAPI       = googleCalendarAPIBase + "/calendars/primary/events"
)

// CalendarService is the external-calendar collaborator. Hold operations are
// best-effort building blocks; callers own the per-item error tolerance.
type CalendarService interface {
	ConnectedUserIDs(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID]bool, error)
	CreateTentativeHold(ctx context.Context, userID uuid.UUID, req *dto.TentativeHoldRequest) (string, error)
	DeleteTentativeHold(ctx context.Context, userID uuid.UUID, holdID string) error
	GetBusyTimesForDateRange(ctx context.Context, userID uuid.UUID, start, end time.Time) ([]dto.TimeSlot, error)
}

type calendarService struct {
	repo       repository.CalendarRepositoryInterface
	httpClient *http.Client
}

func NewCalendarService(repo repository.CalendarRepositoryInterface) CalendarService {
	return &calendarService{
		repo:       repo,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// ConnectedUserIDs reports which of the given users have an active calendar
// connection.
func (s *calendarService) ConnectedUserIDs(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID]bool, error) {
	connections, err := s.repo.GetActiveConnectionsByUserIDs(ctx, userIDs)
	if err != nil {
		return nil, err
	}

	connected := make(map[uuid.UUID]bool, len(connections))
	for _, conn := range connections {
		connected[conn.UserID] = true
	}
	return connected, nil
}

// CreateTentativeHold places a provisional non-notifying event on the user's
// primary calendar and returns its external identifier. The hold shows as
// tentative but still blocks availability.
func (s *calendarService) CreateTentativeHold(ctx context.Context, userID uuid.UUID, req *dto.TentativeHoldRequest) (string, error) {
	conn, err := s.connection(ctx, userID)
	if err != nil {
		return "", err
	}

	payload := map[string]interface{}{
		"summary": req.Title,
		"start": map[string]string{
			"dateTime": req.StartTime.Format(time.RFC3339),
			"timeZone": req.Timezone,
		},
		"end": map[string]string{
			"dateTime": req.EndTime.Format(time.RFC3339),
			"timeZone": req.Timezone,
		},
		"status":       "tentative",
		"transparency": "opaque",
	}

	body, _ := json.Marshal(payload)
	resp, err := s.doWithRefresh(ctx, conn, http.MethodPost, googleEventsAPI+"?sendUpdates=none", body)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		raw, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("google events insert returned %d: %s", resp.StatusCode, string(raw))
	}

	var result struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode event response: %w", err)
	}
	if result.ID == "" {
		return "", fmt.Errorf("google events insert returned empty id")
	}

	return result.ID, nil
}

// DeleteTentativeHold removes a previously placed hold. A hold that is
// already gone counts as removed.
func (s *calendarService) DeleteTentativeHold(ctx context.Context, userID uuid.UUID, holdID string) error {
	conn, err := s.connection(ctx, userID)
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/%s?sendUpdates=none", googleEventsAPI, holdID)
	resp, err := s.doWithRefresh(ctx, conn, http.MethodDelete, url, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNoContent, http.StatusOK, http.StatusNotFound, http.StatusGone:
		return nil
	default:
		raw, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("google events delete returned %d: %s", resp.StatusCode, string(raw))
	}
}

// GetBusyTimesForDateRange queries the freeBusy API for the user's busy
// intervals within [start, end).
func (s *calendarService) GetBusyTimesForDateRange(ctx context.Context, userID uuid.UUID, start, end time.Time) ([]dto.TimeSlot, error) {
	conn, err := s.connection(ctx, userID)
	if err != nil {
		return nil, err
	}

	payload := map[string]interface{}{
		"timeMin": start.Format(time.RFC3339),
		"timeMax": end.Format(time.RFC3339),
		"items": []map[string]string{
			{"id": conn.CalendarEmail},
		},
	}

	body, _ := json.Marshal(payload)
	resp, err := s.doWithRefresh(ctx, conn, http.MethodPost, googleFreeBusyAPI, body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("google freeBusy returned %d: %s", resp.StatusCode, string(raw))
	}

	var result struct {
		Calendars map[string]struct {
			Busy []struct {
				Start time.Time `json:"start"`
				End   time.Time `json:"end"`
			} `json:"busy"`
		} `json:"calendars"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode freeBusy response: %w", err)
	}

	var slots []dto.TimeSlot
	for _, cal := range result.Calendars {
		for _, busy := range cal.Busy {
			slots = append(slots, dto.TimeSlot{Start: busy.Start, End: busy.End})
		}
	}
	return slots, nil
}

func (s *calendarService) connection(ctx context.Context, userID uuid.UUID) (*entity.CalendarConnection, error) {
	conn, err := s.repo.GetConnectionByUserAndProvider(ctx, userID, entity.ProviderGoogle)
	if err != nil {
		return nil, err
	}
	if conn == nil {
		return nil, fmt.Errorf("no calendar connected for user %s", userID)
	}
	return conn, nil
}

// doWithRefresh performs an authenticated request. An expired token is
// refreshed up front; a 401 triggers one forced refresh and one retry.
func (s *calendarService) doWithRefresh(ctx context.Context, conn *entity.CalendarConnection, method, url string, body []byte) (*http.Response, error) {
	token, err := s.ensureValidToken(ctx, conn, false)
	if err != nil {
		return nil, err
	}

	resp, err := s.do(ctx, token, method, url, body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		resp.Body.Close()
		logger.Info("CalendarService:Retrying after 401", "user_id", conn.UserID)

		token, err = s.ensureValidToken(ctx, conn, true)
		if err != nil {
			return nil, err
		}
		return s.do(ctx, token, method, url, body)
	}

	return resp, nil
}

func (s *calendarService) do(ctx context.Context, token, method, url string, body []byte) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return s.httpClient.Do(req)
}

// ensureValidToken returns a usable access token, refreshing through the
// OAuth token endpoint when the stored one is expired or force is set.
func (s *calendarService) ensureValidToken(ctx context.Context, conn *entity.CalendarConnection, force bool) (string, error) {
	if !force && time.Now().Before(conn.TokenExpiresAt.Add(-5*time.Minute)) {
		return conn.AccessToken, nil
	}

	cfg, ok := config.GetSafe()
	if !ok {
		return "", fmt.Errorf("config not initialized")
	}

	oauthCfg := &oauth2.Config{
		ClientID:     cfg.GoogleAPI.ClientID,
		ClientSecret: cfg.GoogleAPI.ClientSecret,
		Endpoint:     google.Endpoint,
	}

	refreshed, err := oauthCfg.TokenSource(ctx, &oauth2.Token{
		RefreshToken: conn.RefreshToken,
	}).Token()
	if err != nil {
		logger.Error("CalendarService:ensureValidToken:Refresh", "user_id", conn.UserID, "error", err)
		return "", fmt.Errorf("failed to refresh calendar token: %w", err)
	}

	conn.AccessToken = refreshed.AccessToken
	conn.TokenExpiresAt = refreshed.Expiry

	if err := s.repo.UpdateConnectionToken(ctx, conn); err != nil {
		logger.Error("CalendarService:ensureValidToken:Persist", "user_id", conn.UserID, "error", err)
	}

	return refreshed.AccessToken, nil
}
