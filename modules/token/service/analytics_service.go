package service

import (
	"context"
	"sync"
	"time"

	"gameplan-api/core/errors"
	"gameplan-api/core/logger"
	"gameplan-api/modules/token/dto"
	"gameplan-api/modules/token/entity"
	"gameplan-api/modules/token/repository"
)

// AnalyticsRecorder writes validation attempts off the request path. A
// failed write is logged and dropped; it never surfaces to the caller.
type AnalyticsRecorder struct {
	repo repository.TokenRepositoryInterface
	wg   sync.WaitGroup
}

func NewAnalyticsRecorder(repo repository.TokenRepositoryInterface) *AnalyticsRecorder {
	return &AnalyticsRecorder{repo: repo}
}

// Record captures one validation attempt fire-and-forget. The failure
// category is stored verbatim; the API boundary never exposes it.
func (r *AnalyticsRecorder) Record(tokenID *string, success bool, category errors.ErrorCode, meta dto.RequestMeta, graceUsed bool) {
	attempt := &entity.ValidationAttempt{
		TokenID:   tokenID,
		Success:   success,
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
		GraceUsed: graceUsed,
		CreatedAt: time.Now(),
	}
	if !success {
		cat := string(category)
		attempt.FailureCategory = &cat
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := r.repo.CreateValidationAttempt(ctx, attempt); err != nil {
			logger.Error("AnalyticsRecorder:Record", "token_id", tokenID, "error", err)
		}
	}()
}

// Flush blocks until all in-flight writes have finished. Used on shutdown
// and in tests.
func (r *AnalyticsRecorder) Flush() {
	r.wg.Wait()
}
