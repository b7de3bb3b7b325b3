package core

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cindy0891101/nordictrip.fi.sw/internal/models"
)

func TestMemberService_AddListUpdateDelete(t *testing.T) {
	env := newTestEnv(t)
	svc := NewMemberService(env.sync, "https://avatars.test/{seed}.svg", nil)
	ctx := context.Background()

	members, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, members)
	assert.NotNil(t, members)

	aino, err := svc.Add(ctx, "  Aino Virtanen ")
	require.NoError(t, err)
	assert.NotEmpty(t, aino.ID)
	assert.Equal(t, "Aino Virtanen", aino.Name)
	assert.Equal(t, "https://avatars.test/Aino+Virtanen.svg", aino.Avatar)

	mikko, err := svc.Add(ctx, "Mikko")
	require.NoError(t, err)

	members, err = svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, aino.ID, members[0].ID)
	assert.Equal(t, mikko.ID, members[1].ID)

	updated, err := svc.UpdateInfo(ctx, mikko.ID, "Mikko K", "navigator")
	require.NoError(t, err)
	assert.Equal(t, "Mikko K", updated.Name)
	assert.Equal(t, "navigator", updated.Title)
	assert.Equal(t, mikko.Avatar, updated.Avatar)

	require.NoError(t, svc.Delete(ctx, aino.ID))
	members, err = svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, "Mikko K", members[0].Name)
}

func TestMemberService_Errors(t *testing.T) {
	env := newTestEnv(t)
	svc := NewMemberService(env.sync, "", nil)
	ctx := context.Background()

	_, err := svc.Add(ctx, "   ")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.UpdateInfo(ctx, "ghost", "Name", "")
	assert.ErrorIs(t, err, ErrMemberNotFound)

	assert.ErrorIs(t, svc.Delete(ctx, "ghost"), ErrMemberNotFound)

	_, err = svc.UploadAvatar(ctx, "", pngFile(t, 4, 4))
	assert.ErrorIs(t, err, ErrMissingMemberID)

	m, err := svc.Add(ctx, "Aino")
	require.NoError(t, err)
	_, err = svc.UpdateInfo(ctx, m.ID, " ", "")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestMemberService_DefaultAvatarTemplate(t *testing.T) {
	env := newTestEnv(t)
	svc := NewMemberService(env.sync, "", nil)

	m, err := svc.Add(context.Background(), "Liisa")
	require.NoError(t, err)
	assert.Equal(t, "https://api.dicebear.com/7.x/avataaars/svg?seed=Liisa", m.Avatar)
}

func TestMemberService_UploadAvatarUsesStoredMembers(t *testing.T) {
	env := newTestEnv(t)
	svc := NewMemberService(env.sync, "", nil)
	ctx := context.Background()

	require.NoError(t, env.sync.UpdateMembers(ctx, []models.Member{
		{ID: "m1", Name: "Aino", Avatar: "a"},
		{ID: "m2", Name: "Mikko", Avatar: "b"},
	}))

	url, err := svc.UploadAvatar(ctx, "m1", pngFile(t, 64, 64))
	require.NoError(t, err)

	members, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, url, members[0].Avatar)
	assert.Equal(t, "b", members[1].Avatar)
}

func TestMemberService_DriveURL(t *testing.T) {
	env := newTestEnv(t)
	svc := NewMemberService(env.sync, "", nil)
	ctx := context.Background()

	got, err := svc.DriveURL(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, svc.SetDriveURL(ctx, " https://drive.example.com/shared "))
	got, err = svc.DriveURL(ctx)
	require.NoError(t, err)
	assert.Equal(t, "https://drive.example.com/shared", got)

	assert.ErrorIs(t, svc.SetDriveURL(ctx, "not a url"), ErrValidation)
}
