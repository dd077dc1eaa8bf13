// Package storagetest provides an in-memory Store for tests that exercise
// the layers above persistence.
package storagetest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/quickroom/room-service/internal/domain/model"
	"github.com/quickroom/room-service/internal/storage"
)

// Fake implements storage.Store over maps. Set Err to force every call to
// fail with it.
type Fake struct {
	mu sync.Mutex

	Err error

	users        map[int32]model.User
	groups       map[int32]model.Group
	participants map[[2]int32]bool
	waiting      map[int32]model.WaitingListEntry
	messages     map[int32]model.Message
	attachments  map[int32][]model.Attachment

	nextID int32
}

var _ storage.Store = (*Fake)(nil)

func New() *Fake {
	return &Fake{
		users:        map[int32]model.User{},
		groups:       map[int32]model.Group{},
		participants: map[[2]int32]bool{},
		waiting:      map[int32]model.WaitingListEntry{},
		messages:     map[int32]model.Message{},
		attachments:  map[int32][]model.Attachment{},
	}
}

func (f *Fake) id() int32 {
	f.nextID++
	return f.nextID
}

func (f *Fake) CreateUser(_ context.Context, username, userCode string) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return model.User{}, f.Err
	}
	u := model.User{ID: f.id(), Username: username, UserCode: userCode, CreatedAt: time.Now().UTC()}
	f.users[u.ID] = u
	return u, nil
}

func (f *Fake) UsernameTaken(_ context.Context, username string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return false, f.Err
	}
	for _, u := range f.users {
		if u.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (f *Fake) GetUser(_ context.Context, id int32) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	if u, ok := f.users[id]; ok {
		return &u, nil
	}
	return nil, nil
}

func (f *Fake) GetUserByCode(_ context.Context, code string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	for _, u := range f.users {
		if u.UserCode == code {
			u := u
			return &u, nil
		}
	}
	return nil, nil
}

func (f *Fake) CreateGroup(_ context.Context, ownerID int32, groupCode string, ng model.NewGroup) (model.Group, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return model.Group{}, f.Err
	}
	now := time.Now().UTC()
	g := model.Group{
		ID:               f.id(),
		Name:             ng.Name,
		GroupCode:        groupCode,
		OwnerID:          ownerID,
		ApprovalRequired: ng.ApprovalRequired,
		MaximumMembers:   ng.MaximumMembers,
		CreatedAt:        now,
		ExpiredAt:        now.Add(ng.Duration),
	}
	f.groups[g.ID] = g
	f.participants[[2]int32{ownerID, g.ID}] = true
	return g, nil
}

func (f *Fake) GetGroup(_ context.Context, id int32) (*model.Group, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	if g, ok := f.groups[id]; ok {
		return &g, nil
	}
	return nil, nil
}

func (f *Fake) FindGroupByCode(_ context.Context, code string) (*model.Group, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	for _, g := range f.groups {
		if g.GroupCode == code {
			g := g
			return &g, nil
		}
	}
	return nil, nil
}

func (f *Fake) DeleteGroup(_ context.Context, groupID int32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	for id, m := range f.messages {
		if m.GroupID == groupID {
			delete(f.messages, id)
			delete(f.attachments, id)
		}
	}
	for key := range f.participants {
		if key[1] == groupID {
			delete(f.participants, key)
		}
	}
	for id, w := range f.waiting {
		if w.GroupID == groupID {
			delete(f.waiting, id)
		}
	}
	delete(f.groups, groupID)
	return nil
}

func (f *Fake) ListGroupsOf(_ context.Context, userID int32) ([]model.GroupPreview, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	previews := []model.GroupPreview{}
	for _, g := range f.groups {
		if !f.participants[[2]int32{userID, g.ID}] {
			continue
		}
		previews = append(previews, model.GroupPreview{
			ID:        g.ID,
			Name:      g.Name,
			GroupCode: g.GroupCode,
			CreatedAt: g.CreatedAt,
			ExpiredAt: g.ExpiredAt,
		})
	}
	sort.Slice(previews, func(i, j int) bool { return previews[i].CreatedAt.After(previews[j].CreatedAt) })
	return previews, nil
}

func (f *Fake) IsParticipant(_ context.Context, userID, groupID int32) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return false, f.Err
	}
	return f.participants[[2]int32{userID, groupID}], nil
}

func (f *Fake) IsOwner(_ context.Context, userID, groupID int32) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return false, f.Err
	}
	g, ok := f.groups[groupID]
	return ok && g.OwnerID == userID, nil
}

func (f *Fake) AddParticipant(_ context.Context, userID, groupID int32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	f.participants[[2]int32{userID, groupID}] = true
	return nil
}

func (f *Fake) RemoveParticipant(_ context.Context, userID, groupID int32) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return false, f.Err
	}
	key := [2]int32{userID, groupID}
	if !f.participants[key] {
		return false, nil
	}
	delete(f.participants, key)
	return true, nil
}

func (f *Fake) ParticipantsOf(_ context.Context, groupID int32) ([]int32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	ids := []int32{}
	for key := range f.participants {
		if key[1] == groupID {
			ids = append(ids, key[0])
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (f *Fake) CountParticipants(_ context.Context, groupID int32) (int64, error) {
	ids, err := f.ParticipantsOf(context.Background(), groupID)
	return int64(len(ids)), err
}

func (f *Fake) AddWaiting(_ context.Context, userID, groupID int32, message *string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	for _, w := range f.waiting {
		if w.UserID == userID && w.GroupID == groupID {
			return &storage.Error{Kind: storage.KindConstraint, Op: "add_waiting"}
		}
	}
	e := model.WaitingListEntry{ID: f.id(), UserID: userID, GroupID: groupID, Message: message, CreatedAt: time.Now().UTC()}
	f.waiting[e.ID] = e
	return nil
}

func (f *Fake) GetWaiting(_ context.Context, requestID int32) (*model.WaitingListEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	if e, ok := f.waiting[requestID]; ok {
		return &e, nil
	}
	return nil, nil
}

func (f *Fake) ListWaiting(_ context.Context, groupID int32, page model.PageRequest) ([]model.WaitingUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	entries := []model.WaitingListEntry{}
	for _, e := range f.waiting {
		if e.GroupID == groupID {
			entries = append(entries, e)
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })
	page = page.Normalize()
	start := page.Offset()
	if start > len(entries) {
		start = len(entries)
	}
	end := start + page.Limit
	if end > len(entries) {
		end = len(entries)
	}
	out := []model.WaitingUser{}
	for _, e := range entries[start:end] {
		out = append(out, model.WaitingUser{
			ID:       e.ID,
			UserID:   e.UserID,
			Username: f.users[e.UserID].Username,
			Message:  e.Message,
		})
	}
	return out, nil
}

func (f *Fake) CountWaiting(_ context.Context, groupID int32) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return 0, f.Err
	}
	var n int64
	for _, e := range f.waiting {
		if e.GroupID == groupID {
			n++
		}
	}
	return n, nil
}

func (f *Fake) DecideWaiting(_ context.Context, requestID int32, accept bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	e, ok := f.waiting[requestID]
	if !ok {
		return &storage.Error{Kind: storage.KindNotFound, Op: "decide_waiting"}
	}
	delete(f.waiting, requestID)
	if accept {
		f.participants[[2]int32{e.UserID, e.GroupID}] = true
	}
	return nil
}

func (f *Fake) InsertMessage(_ context.Context, nm model.NewMessage, atts []model.NewAttachment) (model.Message, []model.Attachment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return model.Message{}, nil, f.Err
	}
	m := model.Message{
		ID:          f.id(),
		MessageUUID: nm.MessageUUID,
		Content:     nm.Content,
		MessageType: nm.MessageType,
		Status:      nm.Status,
		CreatedAt:   nm.CreatedAt,
		UserID:      nm.UserID,
		GroupID:     nm.GroupID,
	}
	f.messages[m.ID] = m
	inserted := []model.Attachment{}
	for _, a := range atts {
		row := model.Attachment{ID: f.id(), URL: a.URL, AttachmentType: a.AttachmentType, MessageID: m.ID}
		f.attachments[m.ID] = append(f.attachments[m.ID], row)
		inserted = append(inserted, row)
	}
	return m, inserted, nil
}

func (f *Fake) GetMessage(_ context.Context, id int32) (*model.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	if m, ok := f.messages[id]; ok {
		return &m, nil
	}
	return nil, nil
}

func (f *Fake) GetMessages(_ context.Context, ids []int32) ([]model.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	out := []model.Message{}
	for _, id := range ids {
		if m, ok := f.messages[id]; ok {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *Fake) ListMessages(_ context.Context, groupID int32, _ model.MessageFilter, sortOrder model.SortOrder, page model.PageRequest) ([]model.MessageWithAuthor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	msgs := []model.Message{}
	for _, m := range f.messages {
		if m.GroupID == groupID {
			msgs = append(msgs, m)
		}
	}
	asc := sortOrder.OrDefault() == model.SortAsc
	sort.Slice(msgs, func(i, j int) bool {
		if asc {
			return msgs[i].ID < msgs[j].ID
		}
		return msgs[i].ID > msgs[j].ID
	})
	page = page.Normalize()
	start := page.Offset()
	if start > len(msgs) {
		start = len(msgs)
	}
	end := start + page.Limit
	if end > len(msgs) {
		end = len(msgs)
	}
	out := []model.MessageWithAuthor{}
	for _, m := range msgs[start:end] {
		out = append(out, model.MessageWithAuthor{
			Message:     m,
			Username:    f.users[m.UserID].Username,
			Attachments: append([]model.Attachment{}, f.attachments[m.ID]...),
		})
	}
	return out, nil
}

func (f *Fake) CountMessages(_ context.Context, groupID int32, _ model.MessageFilter) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return 0, f.Err
	}
	var n int64
	for _, m := range f.messages {
		if m.GroupID == groupID {
			n++
		}
	}
	return n, nil
}

func (f *Fake) UpdateMessage(_ context.Context, id int32, u model.UpdateMessage) (model.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return model.Message{}, f.Err
	}
	m, ok := f.messages[id]
	if !ok {
		return model.Message{}, &storage.Error{Kind: storage.KindNotFound, Op: "update_message"}
	}
	if !u.Empty() {
		if u.Content != nil {
			m.Content = u.Content
		}
		if u.MessageType != nil {
			m.MessageType = *u.MessageType
		}
		now := time.Now().UTC()
		m.UpdatedAt = &now
		f.messages[id] = m
	}
	return m, nil
}

func (f *Fake) DeleteMessages(_ context.Context, ids []int32) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return false, f.Err
	}
	all := true
	for _, id := range ids {
		if _, ok := f.messages[id]; !ok {
			all = false
			continue
		}
		delete(f.messages, id)
		delete(f.attachments, id)
	}
	return all, nil
}

func (f *Fake) NotAuthoredBy(_ context.Context, userID int32, ids []int32) ([]int32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	var rejected []int32
	for _, id := range ids {
		m, ok := f.messages[id]
		if !ok || m.UserID != userID {
			rejected = append(rejected, id)
		}
	}
	return rejected, nil
}

func (f *Fake) SetStatus(_ context.Context, ids []int32, status model.MessageStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	for _, id := range ids {
		if m, ok := f.messages[id]; ok {
			m.Status = status
			f.messages[id] = m
		}
	}
	return nil
}

// Seed helpers used by tests.

func (f *Fake) SeedUser(username, code string) model.User {
	u, _ := f.CreateUser(context.Background(), username, code)
	return u
}

func (f *Fake) SeedGroup(ownerID int32, code string, ng model.NewGroup) model.Group {
	g, _ := f.CreateGroup(context.Background(), ownerID, code, ng)
	return g
}
