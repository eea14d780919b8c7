package calendar

import (
	"gameplan-api/core/database"
	"gameplan-api/modules/calendar/repository"
	"gameplan-api/modules/calendar/service"
)

// Init wires the calendar collaborator and returns it for use by other
// modules. Connection acquisition (OAuth flow) lives upstream, so this
// module registers no routes.
func Init(db database.IDatabase) service.CalendarService {
	repo := repository.NewCalendarRepository(db)
	return service.NewCalendarService(repo)
}
