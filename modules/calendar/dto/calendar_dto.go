package dto

import "time"

// TimeSlot is a busy interval reported by the external calendar.
type TimeSlot struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// TentativeHoldRequest describes a provisional hold to place on one
// participant's calendar. The hold blocks availability but does not notify.
type TentativeHoldRequest struct {
	Title     string    `json:"title"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Timezone  string    `json:"timezone"`
}

// TentativeHoldResponse carries the external identifier of a placed hold.
type TentativeHoldResponse struct {
	HoldID string `json:"hold_id"`
}
