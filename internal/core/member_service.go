package core

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cindy0891101/nordictrip.fi.sw/internal/imageutil"
	"github.com/cindy0891101/nordictrip.fi.sw/internal/models"
)

// DefaultAvatarTemplate generates a placeholder avatar from the member's name.
const DefaultAvatarTemplate = "https://api.dicebear.com/7.x/avataaars/svg?seed={seed}"

// memberService implements the MemberService interface.
type memberService struct {
	sync           TripSyncService
	avatarTemplate string
	logger         *zap.Logger
}

// NewMemberService creates a new MemberService instance.
// avatarTemplate may contain "{seed}", which is replaced by the escaped member name.
func NewMemberService(sync TripSyncService, avatarTemplate string, logger *zap.Logger) MemberService {
	if avatarTemplate == "" {
		avatarTemplate = DefaultAvatarTemplate
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &memberService{
		sync:           sync,
		avatarTemplate: avatarTemplate,
		logger:         logger,
	}
}

func (s *memberService) defaultAvatar(name string) string {
	return strings.ReplaceAll(s.avatarTemplate, "{seed}", url.QueryEscape(name))
}

// List returns the current members. A missing document or field yields an empty list.
func (s *memberService) List(ctx context.Context) ([]models.Member, error) {
	fv, err := s.sync.GetField(ctx, models.FieldMembers)
	if err != nil {
		return nil, err
	}
	members := []models.Member{}
	if err := fv.Decode(&members); err != nil {
		return nil, fmt.Errorf("failed to decode members: %w", err)
	}
	if members == nil {
		members = []models.Member{}
	}
	return members, nil
}

// Add invites a new member with a generated id and a placeholder avatar.
func (s *memberService) Add(ctx context.Context, name string) (*models.Member, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: member name is required", ErrValidation)
	}
	members, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	member := models.Member{
		ID:     uuid.NewString(),
		Name:   name,
		Avatar: s.defaultAvatar(name),
	}
	members = append(members, member)
	if err := s.sync.UpdateMembers(ctx, members); err != nil {
		return nil, err
	}
	s.logger.Info("Member added", zap.String("memberId", member.ID))
	return &member, nil
}

// UpdateInfo edits a member's name and title.
func (s *memberService) UpdateInfo(ctx context.Context, memberID, name, title string) (*models.Member, error) {
	members, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	idx := models.FindMember(members, memberID)
	if idx < 0 {
		return nil, fmt.Errorf("%w: '%s'", ErrMemberNotFound, memberID)
	}
	members[idx].Name = strings.TrimSpace(name)
	members[idx].Title = strings.TrimSpace(title)
	if err := s.sync.UpdateMembers(ctx, members); err != nil {
		return nil, err
	}
	updated := members[idx]
	return &updated, nil
}

// Delete removes a member. Their uploaded avatars stay in blob storage.
func (s *memberService) Delete(ctx context.Context, memberID string) error {
	members, err := s.List(ctx)
	if err != nil {
		return err
	}
	idx := models.FindMember(members, memberID)
	if idx < 0 {
		return fmt.Errorf("%w: '%s'", ErrMemberNotFound, memberID)
	}
	members = append(members[:idx], members[idx+1:]...)
	if err := s.sync.UpdateMembers(ctx, members); err != nil {
		return err
	}
	s.logger.Info("Member removed", zap.String("memberId", memberID))
	return nil
}

// UploadAvatar reads the current members and replaces one member's avatar.
func (s *memberService) UploadAvatar(ctx context.Context, memberID string, file imageutil.File) (string, error) {
	if memberID == "" {
		return "", ErrMissingMemberID
	}
	members, err := s.List(ctx)
	if err != nil {
		return "", err
	}
	return s.sync.UploadMemberAvatar(ctx, memberID, file, members)
}

// DriveURL returns the shared drive link, or "" when none is set.
func (s *memberService) DriveURL(ctx context.Context) (string, error) {
	fv, err := s.sync.GetField(ctx, models.FieldDriveURL)
	if err != nil {
		return "", err
	}
	var driveURL string
	if err := fv.Decode(&driveURL); err != nil {
		return "", fmt.Errorf("failed to decode drive url: %w", err)
	}
	return driveURL, nil
}

// SetDriveURL replaces the shared drive link.
func (s *memberService) SetDriveURL(ctx context.Context, driveURL string) error {
	return s.sync.UpdateDriveURL(ctx, strings.TrimSpace(driveURL))
}
