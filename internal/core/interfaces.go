package core

import (
	"context"
	"time"

	"github.com/cindy0891101/nordictrip.fi.sw/internal/imageutil"
	"github.com/cindy0891101/nordictrip.fi.sw/internal/models"
)

// Identity is the (possibly anonymous) principal the server writes as.
type Identity struct {
	UID       string `json:"uid"`
	Anonymous bool   `json:"anonymous"`
}

// IdentityProvider issues an anonymous identity.
type IdentityProvider interface {
	SignInAnonymously(ctx context.Context) (Identity, error)
}

// BlobStore stores an immutable payload at key and returns a durable download URL.
type BlobStore interface {
	Put(ctx context.Context, key, contentType string, data []byte) (string, error)
}

// FieldCache is the best-effort local copy of the last seen value of each field.
// Implementations log and swallow their own errors.
type FieldCache interface {
	PutField(ctx context.Context, field string, value interface{}, exists bool)
	GetField(ctx context.Context, field string) (value interface{}, exists bool, ok bool)
}

// ChangeNotifier is told about every successful field write.
type ChangeNotifier interface {
	FieldChanged(ctx context.Context, field string, writePath string)
}

// ImageCompressor prepares an avatar upload. imageutil.Compress is the default.
type ImageCompressor func(imageutil.File) (imageutil.File, error)

// TripSyncService is the field-level read/write contract every view uses.
type TripSyncService interface {
	EnsureIdentityReady(ctx context.Context) (Identity, error)
	SubscribeField(ctx context.Context, field models.Field) (*Subscription, error)
	GetField(ctx context.Context, field models.Field) (FieldValue, error)
	UpdateField(ctx context.Context, field models.Field, value interface{}) error
	UpdateMembers(ctx context.Context, members []models.Member) error
	UpdateSchedule(ctx context.Context, schedule models.Schedule) error
	UpdateScheduleDays(ctx context.Context, schedule models.Schedule, dates ...string) error
	UpdateDriveURL(ctx context.Context, driveURL string) error
	UploadMemberAvatar(ctx context.Context, memberID string, file imageutil.File, currentMembers []models.Member) (string, error)
}

// MemberService manages the members field.
type MemberService interface {
	List(ctx context.Context) ([]models.Member, error)
	Add(ctx context.Context, name string) (*models.Member, error)
	UpdateInfo(ctx context.Context, memberID, name, title string) (*models.Member, error)
	Delete(ctx context.Context, memberID string) error
	UploadAvatar(ctx context.Context, memberID string, file imageutil.File) (string, error)
	DriveURL(ctx context.Context) (string, error)
	SetDriveURL(ctx context.Context, driveURL string) error
}

// ScheduleService manages the schedule field.
type ScheduleService interface {
	Get(ctx context.Context) (models.Schedule, error)
	AddDate(ctx context.Context, date string) error
	RenameDate(ctx context.Context, from, to string) error
	DeleteDate(ctx context.Context, date string) error
	UpdateMetadata(ctx context.Context, date string, metadata models.DayMetadata) error
	UpsertItem(ctx context.Context, date string, item models.ScheduleItem) (*models.ScheduleItem, error)
	DeleteItem(ctx context.Context, date, itemID string) error
	ShiftTimes(ctx context.Context, date string, minutes int) (*models.DayData, error)
	Countdown(ctx context.Context, now time.Time) (models.Countdown, error)
}
