package token

import (
	"gameplan-api/core/cache"
	"gameplan-api/core/database"
	"gameplan-api/core/tasks"
	"gameplan-api/modules/token/repository"
	"gameplan-api/modules/token/service"
)

// Services bundles what the token module exposes to the rest of the system.
type Services struct {
	Tokens   service.TokenServiceInterface
	Recorder *service.AnalyticsRecorder
	Archive  *service.ArchiveService
}

// Init wires the token module. It registers no routes of its own; the public
// validation endpoint lives with the availability form.
func Init(db database.IDatabase, c cache.Cache, taskClient tasks.TaskClient) *Services {
	repo := repository.NewTokenRepository(db)
	recorder := service.NewAnalyticsRecorder(repo)
	tokenSvc := service.NewTokenService(repo, c, recorder)
	archiveSvc := service.NewArchiveService(repo, service.NewS3Uploader(), taskClient)

	return &Services{
		Tokens:   tokenSvc,
		Recorder: recorder,
		Archive:  archiveSvc,
	}
}
