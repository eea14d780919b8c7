package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gameplan-api/core/constants"
	"gameplan-api/core/logger"
	"gameplan-api/core/tasks"
	"gameplan-api/modules/prompt/dto"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const (
	TypePromptReminder = "prompt:reminder"
	TypePromptDeadline = "prompt:deadline"
)

// reminderStages are percentages of the response window at which reminder
// jobs fire.
var reminderStages = []int{50, 90}

// SchedulerService owns the durable jobs attached to a prompt. All delays are
// computed as durations from now, so wall-clock shifts such as DST never move
// a job relative to the deadline. Task ids are deterministic per prompt,
// which makes rescheduling last-write-wins and cancellation exact.
type SchedulerService struct {
	taskClient tasks.TaskClient
}

func NewSchedulerService(taskClient tasks.TaskClient) *SchedulerService {
	return &SchedulerService{taskClient: taskClient}
}

func reminderTaskID(promptID uuid.UUID, stage int) string {
	return fmt.Sprintf("prompt:%s:reminder:%d", promptID, stage)
}

func deadlineTaskID(promptID uuid.UUID) string {
	return fmt.Sprintf("prompt:%s:deadline", promptID)
}

// ScheduleReminders enqueues the staged reminder jobs for a prompt. Stages
// whose delay falls under the minimum are skipped; a reminder that fires
// moments after the initial notification is noise. A skipped stage still
// cancels any task left under its ID by an earlier, longer schedule, so a
// deadline change never leaves a reminder computed from the old window.
func (s *SchedulerService) ScheduleReminders(ctx context.Context, promptID uuid.UUID, deadline time.Time) (*dto.ScheduleRemindersResult, error) {
	window := time.Until(deadline)
	result := &dto.ScheduleRemindersResult{}
	for _, stage := range reminderStages {
		delay := window * time.Duration(stage) / 100
		taskID := reminderTaskID(promptID, stage)
		if delay < constants.MinReminderDelay {
			logger.Info("skipping reminder stage, window too short",
				"promptId", promptID, "stage", stage, "delay", delay)
			if _, err := s.taskClient.Cancel(ctx, taskID, constants.SchedulerQueue); err != nil {
				logger.Error("SchedulerService:ScheduleReminders", err)
			}
			continue
		}
		payload, err := json.Marshal(dto.ReminderTaskPayload{PromptID: promptID, Stage: stage})
		if err != nil {
			return nil, err
		}
		task := asynq.NewTask(TypePromptReminder, payload)
		if err := s.taskClient.Schedule(ctx, task, taskID, constants.SchedulerQueue, delay); err != nil {
			return nil, err
		}
		result.Scheduled++
		result.Reminders = append(result.Reminders, dto.ScheduledReminder{
			Stage:  stage,
			TaskID: taskID,
			Delay:  delay,
		})
	}
	return result, nil
}

// ScheduleDeadlineJob enqueues the close-or-convert job at the deadline.
// Scheduling again with a new deadline replaces the previous job.
func (s *SchedulerService) ScheduleDeadlineJob(ctx context.Context, promptID uuid.UUID, deadline time.Time) (*dto.ScheduleDeadlineResult, error) {
	payload, err := json.Marshal(dto.DeadlineTaskPayload{PromptID: promptID})
	if err != nil {
		return nil, err
	}
	delay := time.Until(deadline)
	task := asynq.NewTask(TypePromptDeadline, payload)
	if err := s.taskClient.Schedule(ctx, task, deadlineTaskID(promptID), constants.SchedulerQueue, delay); err != nil {
		return nil, err
	}
	return &dto.ScheduleDeadlineResult{Scheduled: true, DelayMs: delay.Milliseconds()}, nil
}

// CancelPromptJobs removes every pending job for a prompt. Jobs that already
// ran or never existed are fine to miss.
func (s *SchedulerService) CancelPromptJobs(ctx context.Context, promptID uuid.UUID) *dto.CancelJobsResult {
	result := &dto.CancelJobsResult{}
	for _, stage := range reminderStages {
		cancelled, err := s.taskClient.Cancel(ctx, reminderTaskID(promptID, stage), constants.SchedulerQueue)
		if err != nil {
			logger.Error("SchedulerService:CancelPromptJobs", err)
		} else if cancelled {
			result.Cancelled++
		}
	}
	cancelled, err := s.taskClient.Cancel(ctx, deadlineTaskID(promptID), constants.SchedulerQueue)
	if err != nil {
		logger.Error("SchedulerService:CancelPromptJobs", err)
	} else if cancelled {
		result.Cancelled++
	}
	return result
}

// ReminderDelays reports the computed delay per stage for a window. Stages
// under the minimum delay come back as zero.
func ReminderDelays(window time.Duration) map[int]time.Duration {
	delays := make(map[int]time.Duration, len(reminderStages))
	for _, stage := range reminderStages {
		delay := window * time.Duration(stage) / 100
		if delay < constants.MinReminderDelay {
			delay = 0
		}
		delays[stage] = delay
	}
	return delays
}
