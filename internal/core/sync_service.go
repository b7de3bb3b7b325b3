package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/cindy0891101/nordictrip.fi.sw/internal/db"
	"github.com/cindy0891101/nordictrip.fi.sw/internal/imageutil"
	"github.com/cindy0891101/nordictrip.fi.sw/internal/metrics"
	"github.com/cindy0891101/nordictrip.fi.sw/internal/models"
)

// Write paths reported to metrics and change notifications.
const (
	WritePathUpdate      = "update"
	WritePathMergeCreate = "merge-create"
)

// SyncServiceConfig contains the collaborators of a SyncService.
// Store, Identity and Blobs are required; the rest are optional.
type SyncServiceConfig struct {
	Store      db.TripDocumentStore
	Identity   IdentityProvider
	Blobs      BlobStore
	Compressor ImageCompressor
	Cache      FieldCache
	Notifier   ChangeNotifier
	Metrics    *metrics.Metrics
	Logger     *zap.Logger
	Now        func() time.Time
}

// SyncService reads and writes fields of the shared trip document.
// It has no optimistic locking: the last full-field write wins.
type SyncService struct {
	store      db.TripDocumentStore
	identities IdentityProvider
	blobs      BlobStore
	compress   ImageCompressor
	cache      FieldCache
	notifier   ChangeNotifier
	metrics    *metrics.Metrics
	logger     *zap.Logger
	now        func() time.Time

	signIn     singleflight.Group
	identityMu sync.Mutex
	identity   *Identity
}

// signInTimeout bounds the shared sign-in, which outlives any single caller's context.
const signInTimeout = 30 * time.Second

var _ TripSyncService = (*SyncService)(nil)

// NewSyncService creates a SyncService from cfg.
func NewSyncService(cfg SyncServiceConfig) (*SyncService, error) {
	if cfg.Store == nil || cfg.Identity == nil || cfg.Blobs == nil {
		return nil, ErrServiceNotReady
	}
	s := &SyncService{
		store:      cfg.Store,
		identities: cfg.Identity,
		blobs:      cfg.Blobs,
		compress:   cfg.Compressor,
		cache:      cfg.Cache,
		notifier:   cfg.Notifier,
		metrics:    cfg.Metrics,
		logger:     cfg.Logger,
		now:        cfg.Now,
	}
	if s.compress == nil {
		s.compress = imageutil.Compress
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s, nil
}

// EnsureIdentityReady signs in anonymously the first time it is called and returns the
// cached identity afterwards. Concurrent callers share one sign-in, and each stops
// waiting when its own ctx is done. A failed sign-in is not cached; the next call tries again.
func (s *SyncService) EnsureIdentityReady(ctx context.Context) (Identity, error) {
	if id, ok := s.cachedIdentity(); ok {
		return id, nil
	}

	ch := s.signIn.DoChan("identity", func() (interface{}, error) {
		if id, ok := s.cachedIdentity(); ok {
			return id, nil
		}
		signInCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), signInTimeout)
		defer cancel()

		id, err := s.identities.SignInAnonymously(signInCtx)
		if err != nil {
			return Identity{}, err
		}
		s.identityMu.Lock()
		s.identity = &id
		s.identityMu.Unlock()
		s.logger.Info("Identity ready", zap.String("uid", id.UID), zap.Bool("anonymous", id.Anonymous))
		return id, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return Identity{}, fmt.Errorf("%w: %v", ErrIdentity, res.Err)
		}
		return res.Val.(Identity), nil
	case <-ctx.Done():
		return Identity{}, fmt.Errorf("%w: %w", ErrIdentity, ctx.Err())
	}
}

func (s *SyncService) cachedIdentity() (Identity, bool) {
	s.identityMu.Lock()
	defer s.identityMu.Unlock()
	if s.identity == nil {
		return Identity{}, false
	}
	return *s.identity, true
}

// SubscribeField opens a live subscription to one field. The first value is the
// current state; a missing document is delivered as an absent value, not an error.
// The subscription ends when Cancel is called or ctx is done.
func (s *SyncService) SubscribeField(ctx context.Context, field models.Field) (*Subscription, error) {
	if !field.Valid() {
		return nil, fmt.Errorf("%w: '%s'", ErrInvalidField, field)
	}
	subCtx, cancel := context.WithCancel(ctx)
	sub := &Subscription{
		field:  field,
		values: make(chan FieldValue, subscriptionBuffer),
		done:   make(chan struct{}),
		cancel: cancel,
	}
	it := s.store.Watch(subCtx)
	s.metrics.SubscriptionOpened()
	go sub.run(subCtx, it, s)
	return sub, nil
}

// GetField reads the field once. When the store cannot be reached, the last cached value
// is served instead.
func (s *SyncService) GetField(ctx context.Context, field models.Field) (FieldValue, error) {
	if !field.Valid() {
		return FieldValue{}, fmt.Errorf("%w: '%s'", ErrInvalidField, field)
	}
	snap, err := s.store.Get(ctx)
	if err != nil {
		if s.cache != nil {
			if value, exists, ok := s.cache.GetField(ctx, field.String()); ok {
				s.logger.Warn("Store unreachable, serving cached field",
					zap.String("field", field.String()), zap.Error(err))
				s.metrics.CacheFallback()
				return FieldValue{Field: field, Value: value, Exists: exists}, nil
			}
		}
		return FieldValue{}, fmt.Errorf("failed to read field '%s': %w", field, err)
	}
	fv := fieldFromSnapshot(field, snap)
	if s.cache != nil {
		s.cache.PutField(ctx, field.String(), fv.Value, fv.Exists)
	}
	return fv, nil
}

// UpdateField decodes value into the field's type and routes it through the typed update,
// so every field is validated the same way no matter how it arrives.
func (s *SyncService) UpdateField(ctx context.Context, field models.Field, value interface{}) error {
	switch field {
	case models.FieldMembers:
		var members []models.Member
		if err := models.Decode(value, &members); err != nil {
			return fmt.Errorf("%w: %v", ErrValidation, err)
		}
		return s.UpdateMembers(ctx, members)
	case models.FieldSchedule:
		var schedule models.Schedule
		if err := models.Decode(value, &schedule); err != nil {
			return fmt.Errorf("%w: %v", ErrValidation, err)
		}
		return s.UpdateSchedule(ctx, schedule)
	case models.FieldDriveURL:
		var driveURL string
		if err := models.Decode(value, &driveURL); err != nil {
			return fmt.Errorf("%w: %v", ErrValidation, err)
		}
		return s.UpdateDriveURL(ctx, driveURL)
	default:
		return fmt.Errorf("%w: '%s'", ErrInvalidField, field)
	}
}

// UpdateMembers replaces the whole members field.
func (s *SyncService) UpdateMembers(ctx context.Context, members []models.Member) error {
	if members == nil {
		members = []models.Member{}
	}
	if err := validateMembers(members); err != nil {
		return err
	}
	return s.writeField(ctx, models.FieldMembers, members)
}

// UpdateSchedule replaces the whole schedule field.
func (s *SyncService) UpdateSchedule(ctx context.Context, schedule models.Schedule) error {
	if schedule == nil {
		schedule = models.Schedule{}
	}
	if err := validateSchedule(schedule); err != nil {
		return err
	}
	return s.writeField(ctx, models.FieldSchedule, schedule)
}

// UpdateScheduleDays replaces the whole schedule field but validates only the listed days.
// Other days are written back as they were read, so one stored day this server would
// reject does not block edits elsewhere.
func (s *SyncService) UpdateScheduleDays(ctx context.Context, schedule models.Schedule, dates ...string) error {
	if schedule == nil {
		schedule = models.Schedule{}
	}
	if err := validateDays(schedule, dates...); err != nil {
		return err
	}
	return s.writeField(ctx, models.FieldSchedule, schedule)
}

// UpdateDriveURL replaces the shared drive link.
func (s *SyncService) UpdateDriveURL(ctx context.Context, driveURL string) error {
	if err := validateDriveURL(driveURL); err != nil {
		return err
	}
	return s.writeField(ctx, models.FieldDriveURL, driveURL)
}

// writeField tries a direct update first. Only a missing document falls back to a
// merge-create, which sets just this field and never clobbers fields written concurrently.
func (s *SyncService) writeField(ctx context.Context, field models.Field, value interface{}) error {
	if _, err := s.EnsureIdentityReady(ctx); err != nil {
		s.metrics.FieldWriteFailed(field.String())
		return err
	}

	path := WritePathUpdate
	err := s.store.UpdateField(ctx, field.String(), value)
	if errors.Is(err, db.ErrDocumentNotFound) {
		path = WritePathMergeCreate
		s.logger.Info("Trip document missing, creating it with a merge write", zap.String("field", field.String()))
		err = s.store.MergeField(ctx, field.String(), value)
	}
	if err != nil {
		s.metrics.FieldWriteFailed(field.String())
		return fmt.Errorf("failed to write field '%s': %w", field, err)
	}

	s.metrics.FieldWritten(field.String(), path)
	if s.notifier != nil {
		s.notifier.FieldChanged(ctx, field.String(), path)
	}
	return nil
}

// UploadMemberAvatar compresses file, uploads it under a fresh key, points the member's
// avatar at the new URL and writes the whole members array back. Concurrent uploads for
// different members race on the whole field; the last write wins. Old avatars are kept.
func (s *SyncService) UploadMemberAvatar(ctx context.Context, memberID string, file imageutil.File, currentMembers []models.Member) (string, error) {
	url, err := s.uploadMemberAvatar(ctx, memberID, file, currentMembers)
	s.metrics.AvatarUploaded(err == nil)
	return url, err
}

func (s *SyncService) uploadMemberAvatar(ctx context.Context, memberID string, file imageutil.File, currentMembers []models.Member) (string, error) {
	if memberID == "" {
		return "", ErrMissingMemberID
	}
	if models.FindMember(currentMembers, memberID) < 0 {
		return "", fmt.Errorf("%w: '%s'", ErrMemberNotFound, memberID)
	}
	if _, err := s.EnsureIdentityReady(ctx); err != nil {
		return "", err
	}

	safeFile, err := s.compress(file)
	if err != nil {
		return "", fmt.Errorf("failed to compress avatar for member '%s': %w", memberID, err)
	}
	s.logger.Info("Uploading avatar",
		zap.String("memberId", memberID),
		zap.String("originalSizeMB", fmt.Sprintf("%.2f", float64(file.Size())/1024/1024)),
		zap.String("compressedSizeMB", fmt.Sprintf("%.2f", float64(safeFile.Size())/1024/1024)),
		zap.String("type", safeFile.ContentType),
	)

	key := fmt.Sprintf("avatars/%s_%d.jpg", memberID, s.now().UnixMilli())
	url, err := s.blobs.Put(ctx, key, safeFile.ContentType, safeFile.Data)
	if err != nil {
		return "", fmt.Errorf("failed to upload avatar for member '%s': %w", memberID, err)
	}

	updated := models.CloneMembers(currentMembers)
	for i := range updated {
		if updated[i].ID == memberID {
			updated[i].Avatar = url
		}
	}
	if err := s.UpdateMembers(ctx, updated); err != nil {
		return "", err
	}
	return url, nil
}
