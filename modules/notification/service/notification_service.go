package service

import (
	"context"
	"time"

	coreEntity "gameplan-api/core/entity"
	"gameplan-api/core/logger"
	"gameplan-api/core/params"
	"gameplan-api/modules/notification/dto"
	"gameplan-api/modules/notification/entity"
	"gameplan-api/modules/notification/repository"

	"github.com/google/uuid"
)

type NotificationService struct {
	repo repository.NotificationRepositoryInterface
}

func NewNotificationService(repo repository.NotificationRepositoryInterface) *NotificationService {
	return &NotificationService{repo: repo}
}

// Send records a single notification. Delivery problems are reflected in the
// returned DeliveryResult, never as an error.
func (s *NotificationService) Send(ctx context.Context, req *dto.CreateNotificationRequest) *dto.DeliveryResult {
	return s.SendBatch(ctx, []*dto.CreateNotificationRequest{req})
}

// SendBatch records notifications for many users. Each item is attempted
// independently; one failure never aborts the rest.
func (s *NotificationService) SendBatch(ctx context.Context, reqs []*dto.CreateNotificationRequest) *dto.DeliveryResult {
	result := &dto.DeliveryResult{}

	for _, req := range reqs {
		notif := &entity.Notification{
			UserID:  req.UserID,
			Title:   req.Title,
			Message: req.Message,
			Type:    req.Type,
			Data:    entity.JSONB(req.Data),
			IsRead:  false,
			BaseEntity: coreEntity.BaseEntity{
				CreatedAt: time.Now(),
				UpdatedAt: time.Now(),
			},
		}

		if err := s.repo.Create(ctx, notif); err != nil {
			logger.Error("NotificationService:SendBatch:Create", "user_id", req.UserID, "error", err)
			result.Failed++
			result.Errors = append(result.Errors, err.Error())
			continue
		}
		result.Sent++
	}

	return result
}

func (s *NotificationService) GetMyNotifications(ctx context.Context, userID uuid.UUID, queryParams params.QueryParams) (*entity.PaginatedNotificationEntity, error) {
	return s.repo.GetByUserID(ctx, userID, queryParams)
}

func (s *NotificationService) MarkAsRead(ctx context.Context, userID uuid.UUID, ids []string) error {
	return s.repo.MarkAsRead(ctx, userID, ids)
}

func (s *NotificationService) MarkAllAsRead(ctx context.Context, userID uuid.UUID) error {
	return s.repo.MarkAllAsRead(ctx, userID)
}

func (s *NotificationService) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.repo.CountUnread(ctx, userID)
}
