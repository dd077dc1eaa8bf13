package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/quickroom/room-service/internal/domain/model"
	"github.com/quickroom/room-service/internal/storage"
)

// Auther resolves bearer codes and answers membership questions. Both the
// WebSocket dispatcher and the REST middleware authenticate through it.
type Auther interface {
	// ResolveUserCode returns nil when the code is unknown.
	ResolveUserCode(ctx context.Context, code string) (*model.User, error)
	// ResolveOrCreate resolves the code, creating a fresh user under the
	// given username when the code is empty or unknown.
	ResolveOrCreate(ctx context.Context, code, username string) (model.User, bool, error)
	IsParticipant(ctx context.Context, userID, groupID int32) (bool, error)
	IsOwner(ctx context.Context, userID, groupID int32) (bool, error)
}

// AuthService fronts the store with a small expiring cache: a chatty socket
// re-checks membership on every mutation, but user rows rarely change.
type AuthService struct {
	store  storage.Store
	cache  *expirable.LRU[string, model.User]
	logger *slog.Logger
}

var _ Auther = (*AuthService)(nil)

const (
	userCacheSize = 1024
	userCacheTTL  = 5 * time.Minute
)

func NewAuthService(store storage.Store, logger *slog.Logger) *AuthService {
	return &AuthService{
		store:  store,
		cache:  expirable.NewLRU[string, model.User](userCacheSize, nil, userCacheTTL),
		logger: logger,
	}
}

func (a *AuthService) ResolveUserCode(ctx context.Context, code string) (*model.User, error) {
	if u, ok := a.cache.Get(code); ok {
		return &u, nil
	}
	u, err := a.store.GetUserByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if u == nil {
		// Unknown codes are not cached: a user created moments later
		// must be able to authenticate immediately.
		return nil, nil
	}
	a.cache.Add(code, *u)
	return u, nil
}

func (a *AuthService) ResolveOrCreate(ctx context.Context, code, username string) (model.User, bool, error) {
	if code != "" {
		u, err := a.ResolveUserCode(ctx, code)
		if err != nil {
			return model.User{}, false, err
		}
		if u != nil {
			return *u, false, nil
		}
	}
	secret, err := GenerateSecretCode(username)
	if err != nil {
		return model.User{}, false, err
	}
	u, err := a.store.CreateUser(ctx, username, secret)
	if err != nil {
		return model.User{}, false, err
	}
	a.logger.Debug("created user for unrecognized code", "user_id", u.ID, "username", username)
	a.cache.Add(u.UserCode, u)
	return u, true, nil
}

func (a *AuthService) IsParticipant(ctx context.Context, userID, groupID int32) (bool, error) {
	return a.store.IsParticipant(ctx, userID, groupID)
}

func (a *AuthService) IsOwner(ctx context.Context, userID, groupID int32) (bool, error) {
	return a.store.IsOwner(ctx, userID, groupID)
}
