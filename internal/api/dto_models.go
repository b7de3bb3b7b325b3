package api

import (
	"github.com/cindy0891101/nordictrip.fi.sw/internal/models"
)

// ErrorResponse is a generic structure for returning errors via API.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// SuccessResponse is a generic structure for simple success messages.
type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// IdentityResponse is returned by POST /identity.
type IdentityResponse struct {
	UID       string `json:"uid"`
	Anonymous bool   `json:"anonymous"`
}

// FieldResponse carries one field value. Exists is false when the field has never been written.
type FieldResponse struct {
	Field  string      `json:"field"`
	Value  interface{} `json:"value"`
	Exists bool        `json:"exists"`
}

// ScheduleResponse is the schedule view: every day, the dates in order and the countdown banner.
type ScheduleResponse struct {
	Schedule  models.Schedule  `json:"schedule"`
	Dates     []string         `json:"dates"`
	Countdown models.Countdown `json:"countdown"`
}

// AvatarResponse is returned after an avatar upload.
type AvatarResponse struct {
	MemberID string `json:"memberId"`
	URL      string `json:"url"`
}

// DriveURLRequest sets the shared drive link.
type DriveURLRequest struct {
	DriveURL string `json:"driveUrl"`
}
