package firebase

import (
	"context"
	"fmt"

	"firebase.google.com/go/v4/auth"
	"go.uber.org/zap"

	"github.com/cindy0891101/nordictrip.fi.sw/internal/core"
)

// UserManager is the subset of *auth.Client the identity provider needs.
type UserManager interface {
	GetUser(ctx context.Context, uid string) (*auth.UserRecord, error)
	CreateUser(ctx context.Context, user *auth.UserToCreate) (*auth.UserRecord, error)
}

// AnonymousIdentityProvider gives the server a stable anonymous Firebase user to write as.
// The user is created on first use and reused afterwards.
type AnonymousIdentityProvider struct {
	users      UserManager
	uid        string
	isNotFound func(error) bool
	logger     *zap.Logger
}

// NewAnonymousIdentityProvider creates an identity provider for uid.
func NewAnonymousIdentityProvider(users UserManager, uid string, logger *zap.Logger) *AnonymousIdentityProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnonymousIdentityProvider{users: users, uid: uid, isNotFound: auth.IsUserNotFound, logger: logger}
}

func (p *AnonymousIdentityProvider) SignInAnonymously(ctx context.Context) (core.Identity, error) {
	user, err := p.users.GetUser(ctx, p.uid)
	if err == nil {
		return identityFromRecord(user, p.uid), nil
	}
	if !p.isNotFound(err) {
		return core.Identity{}, fmt.Errorf("failed to look up identity '%s': %w", p.uid, err)
	}

	user, err = p.users.CreateUser(ctx, (&auth.UserToCreate{}).UID(p.uid))
	if err != nil {
		return core.Identity{}, fmt.Errorf("failed to create anonymous identity '%s': %w", p.uid, err)
	}
	p.logger.Info("Created anonymous identity", zap.String("uid", p.uid))
	return identityFromRecord(user, p.uid), nil
}

// identityFromRecord treats a user without any linked sign-in provider as anonymous.
func identityFromRecord(user *auth.UserRecord, uid string) core.Identity {
	if user == nil || user.UserInfo == nil {
		return core.Identity{UID: uid, Anonymous: true}
	}
	return core.Identity{UID: user.UID, Anonymous: len(user.ProviderUserInfo) == 0}
}

// LocalIdentityProvider returns a fixed anonymous identity without contacting Firebase.
// Used when the server runs entirely on the memory backends.
type LocalIdentityProvider struct {
	UID string
}

func (p LocalIdentityProvider) SignInAnonymously(context.Context) (core.Identity, error) {
	return core.Identity{UID: p.UID, Anonymous: true}, nil
}
