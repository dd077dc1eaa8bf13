package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/quickroom/room-service/internal/domain/model"
	"github.com/quickroom/room-service/internal/storage"
)

// GroupService implements the group lifecycle: creation, joining (direct or
// via waiting list), membership management and deletion.
type GroupService struct {
	store  storage.Store
	auth   Auther
	bc     *Broadcaster
	logger *slog.Logger
}

func NewGroupService(store storage.Store, auth Auther, bc *Broadcaster, logger *slog.Logger) *GroupService {
	return &GroupService{store: store, auth: auth, bc: bc, logger: logger}
}

// AddUser registers a new user under a unique username and hands back the
// generated bearer code exactly once.
func (s *GroupService) AddUser(ctx context.Context, username string) (model.User, error) {
	taken, err := s.store.UsernameTaken(ctx, username)
	if err != nil {
		return model.User{}, err
	}
	if taken {
		return model.User{}, E(ErrAlreadyExists, "Username already exists")
	}
	secret, err := GenerateSecretCode(username)
	if err != nil {
		return model.User{}, err
	}
	return s.store.CreateUser(ctx, username, secret)
}

// CreateUserAndGroup creates the group owned by the caller, creating the
// caller itself when the supplied code resolves to nobody.
func (s *GroupService) CreateUserAndGroup(ctx context.Context, userCode, username string, ng model.NewGroup) (model.User, model.Group, error) {
	user, _, err := s.auth.ResolveOrCreate(ctx, userCode, username)
	if err != nil {
		return model.User{}, model.Group{}, err
	}
	groupCode, err := GenerateSecretCode(ng.Name)
	if err != nil {
		return model.User{}, model.Group{}, err
	}
	group, err := s.store.CreateGroup(ctx, user.ID, groupCode, ng)
	if err != nil {
		return model.User{}, model.Group{}, err
	}
	s.logger.Info("group created", "group_id", group.ID, "owner_id", user.ID)
	return user, group, nil
}

// JoinGroup enrolls the caller into the group named by its code, or queues a
// waiting list request when the group demands approval. The returned flag
// reports the waiting case.
func (s *GroupService) JoinGroup(ctx context.Context, userCode, username, groupCode string, message *string) (model.User, model.Group, bool, error) {
	user, _, err := s.auth.ResolveOrCreate(ctx, userCode, username)
	if err != nil {
		return model.User{}, model.Group{}, false, err
	}
	group, err := s.store.FindGroupByCode(ctx, groupCode)
	if err != nil {
		return model.User{}, model.Group{}, false, err
	}
	if group == nil {
		return model.User{}, model.Group{}, false,
			E(ErrNotFound, fmt.Sprintf("Not found group with group_code: %s", groupCode))
	}
	if group.Expired(time.Now().UTC()) {
		return model.User{}, model.Group{}, false, E(ErrGroupExpired, "Group does not exist or is expired")
	}
	joined, err := s.store.IsParticipant(ctx, user.ID, group.ID)
	if err != nil {
		return model.User{}, model.Group{}, false, err
	}
	if joined {
		return model.User{}, model.Group{}, false, E(ErrAlreadyExists, "User already joined the group")
	}
	if group.MaximumMembers != nil {
		n, err := s.store.CountParticipants(ctx, group.ID)
		if err != nil {
			return model.User{}, model.Group{}, false, err
		}
		if n >= int64(*group.MaximumMembers) {
			return model.User{}, model.Group{}, false, E(ErrGroupFull, "Group has reached its maximum members")
		}
	}

	if group.ApprovalRequired {
		if err := s.store.AddWaiting(ctx, user.ID, group.ID, message); err != nil {
			if storage.IsConstraint(err) {
				return model.User{}, model.Group{}, false, E(ErrAlreadyExists, "User was already in waiting list")
			}
			return model.User{}, model.Group{}, false, err
		}
		return user, *group, true, nil
	}

	if err := s.store.AddParticipant(ctx, user.ID, group.ID); err != nil {
		if storage.IsConstraint(err) {
			return model.User{}, model.Group{}, false, E(ErrAlreadyExists, "User already joined the group")
		}
		return model.User{}, model.Group{}, false, err
	}
	return user, *group, false, nil
}

// ListGroups returns the user and their groups with latest-message previews.
func (s *GroupService) ListGroups(ctx context.Context, userID int32) (model.User, []model.GroupPreview, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return model.User{}, nil, err
	}
	if user == nil {
		return model.User{}, nil, E(ErrNotFound, "User not found")
	}
	previews, err := s.store.ListGroupsOf(ctx, userID)
	if err != nil {
		return model.User{}, nil, err
	}
	return *user, previews, nil
}

// WaitingList pages pending join requests. Owner only.
func (s *GroupService) WaitingList(ctx context.Context, requester model.User, groupID int32, page model.PageRequest) ([]model.WaitingUser, int64, error) {
	owner, err := s.auth.IsOwner(ctx, requester.ID, groupID)
	if err != nil {
		return nil, 0, err
	}
	if !owner {
		return nil, 0, E(ErrForbidden, "User is not the owner of the group")
	}
	waiting, err := s.store.ListWaiting(ctx, groupID, page)
	if err != nil {
		return nil, 0, err
	}
	if len(waiting) == 0 {
		return nil, 0, E(ErrNotFound, "No waiting list items")
	}
	count, err := s.store.CountWaiting(ctx, groupID)
	if err != nil {
		return nil, 0, err
	}
	return waiting, count, nil
}

// DecideWaiting approves or rejects one pending request. Owner only; the
// entry is consumed either way.
func (s *GroupService) DecideWaiting(ctx context.Context, requester model.User, requestID int32, approved bool) error {
	entry, err := s.store.GetWaiting(ctx, requestID)
	if err != nil {
		return err
	}
	if entry == nil {
		return E(ErrNotFound, "Not found joining request")
	}
	owner, err := s.auth.IsOwner(ctx, requester.ID, entry.GroupID)
	if err != nil {
		return err
	}
	if !owner {
		return E(ErrForbidden, "User is not the owner of the group")
	}
	return s.store.DecideWaiting(ctx, requestID, approved)
}

// DeleteGroup tears the group down. Owner only. The broadcast topic is
// released so in-flight consumers stop fanning out.
func (s *GroupService) DeleteGroup(ctx context.Context, userID, groupID int32) (model.Group, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return model.Group{}, err
	}
	if user == nil {
		return model.Group{}, E(ErrNotFound, "User does not exist")
	}
	group, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return model.Group{}, err
	}
	if group == nil {
		return model.Group{}, E(ErrNotFound, "Group does not exist or is expired")
	}
	owner, err := s.auth.IsOwner(ctx, userID, groupID)
	if err != nil {
		return model.Group{}, err
	}
	if !owner {
		return model.Group{}, E(ErrUnauthorized, "User not authorized to delete this group")
	}
	if err := s.store.DeleteGroup(ctx, groupID); err != nil {
		return model.Group{}, err
	}
	s.bc.ReleaseGroup(groupID)
	s.logger.Info("group deleted", "group_id", groupID, "owner_id", userID)
	return *group, nil
}

// RemoveUser evicts a participant. Owner only.
func (s *GroupService) RemoveUser(ctx context.Context, ownerID, groupID, targetID int32) error {
	group, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return err
	}
	if group == nil {
		return E(ErrNotFound, "Group not found")
	}
	owner, err := s.auth.IsOwner(ctx, ownerID, groupID)
	if err != nil {
		return err
	}
	if !owner {
		return E(ErrUnauthorized, "User not authorized to modify this group")
	}
	removed, err := s.store.RemoveParticipant(ctx, targetID, groupID)
	if err != nil {
		return err
	}
	if !removed {
		return E(ErrNotFound, "User not found in the specified group")
	}
	return nil
}

// LeaveGroup removes the caller's own membership. The owner cannot leave;
// they delete the group instead.
func (s *GroupService) LeaveGroup(ctx context.Context, userID, groupID int32) error {
	group, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return err
	}
	if group == nil {
		return E(ErrNotFound, "Group not found")
	}
	if group.OwnerID == userID {
		return E(ErrForbidden, "Owner cannot leave their own group")
	}
	removed, err := s.store.RemoveParticipant(ctx, userID, groupID)
	if err != nil {
		return err
	}
	if !removed {
		return E(ErrNotFound, "User not found in the specified group")
	}
	return nil
}
