package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aawaaz/complaint-server/internal/models"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Memory implements every store interface in process. It applies the same
// guards as the database implementations and is used by tests and local
// runs without backing services.
type Memory struct {
	mu            sync.Mutex
	complaints    map[uuid.UUID]*models.Complaint
	users         map[uuid.UUID]*models.User
	admins        map[uuid.UUID]*models.Admin
	departments   map[uuid.UUID]*models.Department
	notifications map[uuid.UUID]*models.Notification
	rewards       map[uuid.UUID]*models.Reward
	redemptions   map[uuid.UUID]*models.UserRedemption
	activity      []models.ActivityLog
	chats         map[string]*models.Chat
}

// NewMemory creates an empty in-memory store
func NewMemory() *Memory {
	return &Memory{
		complaints:    make(map[uuid.UUID]*models.Complaint),
		users:         make(map[uuid.UUID]*models.User),
		admins:        make(map[uuid.UUID]*models.Admin),
		departments:   make(map[uuid.UUID]*models.Department),
		notifications: make(map[uuid.UUID]*models.Notification),
		rewards:       make(map[uuid.UUID]*models.Reward),
		redemptions:   make(map[uuid.UUID]*models.UserRedemption),
		chats:         make(map[string]*models.Chat),
	}
}

// Ping always succeeds
func (m *Memory) Ping(context.Context) error { return nil }

func copyComplaint(c *models.Complaint) *models.Complaint {
	cp := *c
	cp.Messages = append([]models.ComplaintMessage{}, c.Messages...)
	return &cp
}

func hasStatus(list []models.ComplaintStatus, s models.ComplaintStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func sameFold(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// CreateComplaint stores a copy of c
func (m *Memory) CreateComplaint(_ context.Context, c *models.Complaint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.complaints[c.ID]; ok {
		return ErrConflict
	}
	m.complaints[c.ID] = copyComplaint(c)
	return nil
}

// GetComplaint returns a copy of the stored complaint
func (m *Memory) GetComplaint(_ context.Context, id uuid.UUID) (*models.Complaint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.complaints[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyComplaint(c), nil
}

// ListComplaints filters and sorts newest first
func (m *Memory) ListComplaints(_ context.Context, f ComplaintFilter) ([]*models.Complaint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*models.Complaint
	for _, c := range m.complaints {
		if f.UserID != nil && c.UserID != *f.UserID {
			continue
		}
		if f.City != "" && !sameFold(c.AssignedCity, f.City) {
			continue
		}
		if f.State != "" && !sameFold(c.AssignedState, f.State) {
			continue
		}
		if f.DepartmentID != nil && (c.AssignedDepartment == nil || *c.AssignedDepartment != *f.DepartmentID) {
			continue
		}
		if len(f.Statuses) > 0 && !hasStatus(f.Statuses, c.Status) {
			continue
		}
		out = append(out, copyComplaint(c))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (g ComplaintGuard) holds(c *models.Complaint) bool {
	if len(g.Statuses) > 0 && !hasStatus(g.Statuses, c.Status) {
		return false
	}
	if g.City != "" && !sameFold(c.AssignedCity, g.City) {
		return false
	}
	if g.State != "" && !sameFold(c.AssignedState, g.State) {
		return false
	}
	if g.UserID != nil && c.UserID != *g.UserID {
		return false
	}
	if g.DepartmentID != nil && (c.AssignedDepartment == nil || *c.AssignedDepartment != *g.DepartmentID) {
		return false
	}
	if g.Unassigned && c.AssignedDepartment != nil {
		return false
	}
	return true
}

// UpdateComplaint checks the guard and applies upd under one lock
func (m *Memory) UpdateComplaint(_ context.Context, id uuid.UUID, guard ComplaintGuard, upd ComplaintUpdate) (*models.Complaint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.complaints[id]
	if !ok || !guard.holds(c) {
		return nil, ErrNotFound
	}

	if upd.Status != nil {
		c.Status = *upd.Status
	}
	if upd.AssignedAdmin != nil {
		v := *upd.AssignedAdmin
		c.AssignedAdmin = &v
	}
	if upd.AssignedDepartment != nil {
		v := *upd.AssignedDepartment
		c.AssignedDepartment = &v
	}
	if upd.AssignedAt != nil {
		v := *upd.AssignedAt
		c.AssignedAt = &v
	}
	if upd.Priority != nil {
		c.Priority = *upd.Priority
	}
	if upd.Reason != nil {
		c.Reason = *upd.Reason
	}
	if upd.RejectionReason != nil {
		c.RejectionReason = *upd.RejectionReason
	}
	if upd.DepartmentRejection != nil {
		v := *upd.DepartmentRejection
		c.DepartmentRejection = &v
	}
	if upd.PhoneVerificationStatus != nil {
		c.PhoneVerificationStatus = *upd.PhoneVerificationStatus
	}
	if upd.PhoneVerificationCallSid != nil {
		c.PhoneVerificationCallSid = *upd.PhoneVerificationCallSid
	}
	if upd.VerificationAttempts != nil {
		c.VerificationAttempts = *upd.VerificationAttempts
	}
	if upd.DetectedDepartmentInfo != nil {
		v := *upd.DetectedDepartmentInfo
		c.DetectedDepartmentInfo = &v
	}
	if upd.AutoRoutingData != nil {
		v := *upd.AutoRoutingData
		c.AutoRoutingData = &v
	}
	if upd.ResolvedAt != nil {
		v := *upd.ResolvedAt
		c.ResolvedAt = &v
	}
	if upd.AppendMessage != nil {
		c.Messages = append(c.Messages, *upd.AppendMessage)
	}
	c.UpdatedAt = time.Now().UTC()
	return copyComplaint(c), nil
}

func copyUser(u *models.User) *models.User {
	cp := *u
	cp.PointsHistory = append([]models.PointsEntry{}, u.PointsHistory...)
	cp.Warnings.History = append([]models.WarningEntry{}, u.Warnings.History...)
	return &cp
}

// CreateUser stores a copy of u, enforcing unique identifiers
func (m *Memory) CreateUser(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.ID == u.ID ||
			(u.Email != "" && strings.EqualFold(existing.Email, u.Email)) ||
			(u.Phone != "" && existing.Phone == u.Phone) ||
			(u.GoogleID != "" && existing.GoogleID == u.GoogleID) {
			return ErrConflict
		}
	}
	cp := copyUser(u)
	cp.Email = strings.ToLower(cp.Email)
	m.users[u.ID] = cp
	return nil
}

func (m *Memory) findUser(match func(*models.User) bool) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if match(u) {
			return copyUser(u), nil
		}
	}
	return nil, ErrNotFound
}

// GetUser returns a copy of the user
func (m *Memory) GetUser(_ context.Context, id uuid.UUID) (*models.User, error) {
	return m.findUser(func(u *models.User) bool { return u.ID == id })
}

// GetUserByEmail matches case-insensitively
func (m *Memory) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	email = strings.TrimSpace(email)
	return m.findUser(func(u *models.User) bool { return u.Email != "" && strings.EqualFold(u.Email, email) })
}

// GetUserByPhone matches exactly
func (m *Memory) GetUserByPhone(_ context.Context, phone string) (*models.User, error) {
	return m.findUser(func(u *models.User) bool { return u.Phone != "" && u.Phone == phone })
}

// GetUserByGoogleID matches exactly
func (m *Memory) GetUserByGoogleID(_ context.Context, googleID string) (*models.User, error) {
	return m.findUser(func(u *models.User) bool { return u.GoogleID != "" && u.GoogleID == googleID })
}

// LinkGoogleID sets the Google subject of a user
func (m *Memory) LinkGoogleID(_ context.Context, id uuid.UUID, googleID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return ErrNotFound
	}
	u.GoogleID = googleID
	return nil
}

func (m *Memory) adjustPointsLocked(userID uuid.UUID, entry models.PointsEntry) (*models.User, error) {
	u, ok := m.users[userID]
	if !ok {
		return nil, ErrNotFound
	}
	if u.Points+entry.Points < 0 {
		return nil, ErrInsufficientPoints
	}
	u.Points += entry.Points
	u.PointsHistory = append(u.PointsHistory, entry)
	return copyUser(u), nil
}

// AdjustPoints moves the balance and appends the ledger entry
func (m *Memory) AdjustPoints(_ context.Context, userID uuid.UUID, entry models.PointsEntry) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.adjustPointsLocked(userID, entry)
}

// AddWarning increments the warning count and escalates at the threshold
func (m *Memory) AddWarning(_ context.Context, userID uuid.UUID, w models.WarningEntry) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return nil, ErrNotFound
	}
	u.Warnings.Count++
	u.Warnings.History = append(u.Warnings.History, w)
	if u.AccountStatus != models.AccountBlacklisted && u.Warnings.Count >= models.WarningThreshold {
		u.AccountStatus = models.AccountWarned
	}
	return copyUser(u), nil
}

// Blacklist marks the user as blacklisted
func (m *Memory) Blacklist(_ context.Context, userID uuid.UUID, reason string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return nil, ErrNotFound
	}
	u.IsBlacklisted = true
	u.AccountStatus = models.AccountBlacklisted
	u.BlacklistReason = reason
	return copyUser(u), nil
}

// CreateAdmin stores a copy of a
func (m *Memory) CreateAdmin(_ context.Context, a *models.Admin) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.admins {
		if existing.ID == a.ID || existing.AdminID == a.AdminID {
			return ErrConflict
		}
	}
	cp := *a
	m.admins[a.ID] = &cp
	return nil
}

// GetAdmin returns a copy of the admin
func (m *Memory) GetAdmin(_ context.Context, id uuid.UUID) (*models.Admin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.admins[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *a
	return &cp, nil
}

// GetAdminByLogin finds an admin by login identifier
func (m *Memory) GetAdminByLogin(_ context.Context, adminID string) (*models.Admin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.admins {
		if a.AdminID == adminID {
			cp := *a
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

// FindAdminsByScope returns admins of city/state, oldest first
func (m *Memory) FindAdminsByScope(_ context.Context, city, state string) ([]*models.Admin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Admin
	for _, a := range m.admins {
		if sameFold(a.AssignedCity, city) && sameFold(a.AssignedState, state) {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// CreateDepartment stores a copy of d
func (m *Memory) CreateDepartment(_ context.Context, d *models.Department) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.departments {
		if existing.ID == d.ID || existing.DepartmentID == d.DepartmentID {
			return ErrConflict
		}
	}
	cp := *d
	m.departments[d.ID] = &cp
	return nil
}

// GetDepartment returns a copy of the department
func (m *Memory) GetDepartment(_ context.Context, id uuid.UUID) (*models.Department, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.departments[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *d
	return &cp, nil
}

// GetDepartmentByLogin finds a department by login identifier
func (m *Memory) GetDepartmentByLogin(_ context.Context, departmentID string) (*models.Department, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.departments {
		if d.DepartmentID == departmentID {
			cp := *d
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

// FindDepartments mirrors the SQL matching rules
func (m *Memory) FindDepartments(_ context.Context, q DepartmentQuery) ([]*models.Department, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	value := strings.TrimSpace(q.Value)
	var out []*models.Department
	for _, d := range m.departments {
		if q.Type != "" && d.DepartmentType != q.Type {
			continue
		}
		var ok bool
		switch q.Match {
		case MatchCityExact:
			ok = sameFold(d.AssignedCity, value)
		case MatchCityPartial:
			ok = strings.Contains(strings.ToLower(d.AssignedCity), strings.ToLower(value))
		case MatchDistrict:
			ok = sameFold(d.AssignedDistrict, value)
		case MatchState:
			ok = sameFold(d.AssignedState, value)
		}
		if ok {
			cp := *d
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// CreateNotification stores a copy of n
func (m *Memory) CreateNotification(_ context.Context, n *models.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *n
	m.notifications[n.ID] = &cp
	return nil
}

// ListNotifications returns a user's notifications, newest first
func (m *Memory) ListNotifications(_ context.Context, userID uuid.UUID, limit int) ([]*models.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Notification
	for _, n := range m.notifications {
		if n.UserID == userID {
			cp := *n
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// MarkNotificationRead flips a notification owned by userID to read
func (m *Memory) MarkNotificationRead(_ context.Context, id, userID uuid.UUID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.notifications[id]
	if !ok || n.UserID != userID {
		return ErrNotFound
	}
	n.Status = models.NotificationRead
	if n.ReadAt == nil {
		n.ReadAt = &at
	}
	return nil
}

// CreateReward stores a copy of r
func (m *Memory) CreateReward(_ context.Context, r *models.Reward) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *r
	m.rewards[r.ID] = &cp
	return nil
}

// GetReward returns a copy of the reward
func (m *Memory) GetReward(_ context.Context, id uuid.UUID) (*models.Reward, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rewards[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *r
	return &cp, nil
}

// ListRewards returns the catalog ordered by cost
func (m *Memory) ListRewards(_ context.Context, activeOnly bool) ([]*models.Reward, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Reward
	for _, r := range m.rewards {
		if activeOnly && !r.IsActive {
			continue
		}
		cp := *r
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].PointsRequired != out[j].PointsRequired {
			return out[i].PointsRequired < out[j].PointsRequired
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// Redeem performs every check and write under one lock
func (m *Memory) Redeem(_ context.Context, p RedeemParams) (*models.UserRedemption, *models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	reward, ok := m.rewards[p.RewardID]
	if !ok {
		return nil, nil, ErrNotFound
	}
	if !reward.IsActive || reward.Stock == 0 {
		return nil, nil, ErrRewardUnavailable
	}
	if reward.MaxRedemptionsPerUser > 0 {
		count := 0
		for _, r := range m.redemptions {
			if r.UserID == p.UserID && r.RewardID == p.RewardID && r.Status != models.RedemptionCancelled {
				count++
			}
		}
		if count >= reward.MaxRedemptionsPerUser {
			return nil, nil, ErrRedemptionLimit
		}
	}

	user, err := m.adjustPointsLocked(p.UserID, models.PointsEntry{
		Points:    -reward.PointsRequired,
		Reason:    "Redeemed reward: " + reward.Title,
		AwardedAt: p.At,
	})
	if err != nil {
		return nil, nil, err
	}
	if reward.Stock > 0 {
		reward.Stock--
	}

	red := &models.UserRedemption{
		ID:              uuid.New(),
		UserID:          p.UserID,
		RewardID:        p.RewardID,
		PointsSpent:     reward.PointsRequired,
		Status:          models.RedemptionPending,
		DeliveryAddress: p.DeliveryAddress,
		ContactPhone:    p.ContactPhone,
		Notes:           p.Notes,
		CreatedAt:       p.At,
		UpdatedAt:       p.At,
	}
	cp := *red
	m.redemptions[red.ID] = &cp
	return red, user, nil
}

// ListRedemptions returns a user's redemptions, newest first
func (m *Memory) ListRedemptions(_ context.Context, userID uuid.UUID) ([]*models.UserRedemption, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.UserRedemption
	for _, r := range m.redemptions {
		if r.UserID == userID {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// SetRedemptionStatus moves a redemption, refunding on cancellation
func (m *Memory) SetRedemptionStatus(_ context.Context, id uuid.UUID, next models.RedemptionStatus, at time.Time) (*models.UserRedemption, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	red, ok := m.redemptions[id]
	if !ok {
		return nil, ErrNotFound
	}
	if !red.Status.CanMoveTo(next) {
		return nil, ErrInvalidTransition
	}
	if next == models.RedemptionCancelled {
		title := ""
		if reward, ok := m.rewards[red.RewardID]; ok {
			title = reward.Title
			if reward.Stock >= 0 {
				reward.Stock++
			}
		}
		if _, err := m.adjustPointsLocked(red.UserID, models.PointsEntry{
			Points:    red.PointsSpent,
			Reason:    "Refund for cancelled redemption: " + title,
			AwardedAt: at,
		}); err != nil {
			return nil, err
		}
	}
	red.Status = next
	red.UpdatedAt = at
	cp := *red
	return &cp, nil
}

// LogActivity appends to the audit trail
func (m *Memory) LogActivity(_ context.Context, a *models.ActivityLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.activity = append(m.activity, *a)
	return nil
}

// ListActivity returns the audit trail of one complaint, newest first
func (m *Memory) ListActivity(_ context.Context, complaintID uuid.UUID, limit int) ([]models.ActivityLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.ActivityLog
	for i := len(m.activity) - 1; i >= 0; i-- {
		if m.activity[i].ComplaintID == complaintID {
			out = append(out, m.activity[i])
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func chatKey(complaintID string, chatType models.ChatType) string {
	return complaintID + "|" + string(chatType)
}

func copyChat(c *models.Chat) *models.Chat {
	cp := *c
	cp.Participants = append([]models.Participant{}, c.Participants...)
	cp.Messages = make([]models.ChatMessage, len(c.Messages))
	for i, msg := range c.Messages {
		msg.IsRead = append([]models.ReadReceipt{}, msg.IsRead...)
		cp.Messages[i] = msg
	}
	return &cp
}

// EnsureChat inserts chat unless its room exists
func (m *Memory) EnsureChat(_ context.Context, chat *models.Chat) (*models.Chat, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := chatKey(chat.ComplaintID, chat.ChatType)
	if existing, ok := m.chats[key]; ok {
		return copyChat(existing), false, nil
	}
	stored := copyChat(chat)
	stored.ID = primitive.NewObjectID()
	stored.Messages = []models.ChatMessage{}
	stored.Status = models.ChatStatusActive
	stored.UpdatedAt = stored.CreatedAt
	m.chats[key] = stored
	return copyChat(stored), true, nil
}

// GetChat returns a copy of the room
func (m *Memory) GetChat(_ context.Context, complaintID string, chatType models.ChatType) (*models.Chat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.chats[chatKey(complaintID, chatType)]
	if !ok {
		return nil, ErrNotFound
	}
	return copyChat(c), nil
}

// AddParticipant appends p if absent
func (m *Memory) AddParticipant(_ context.Context, complaintID string, chatType models.ChatType, p models.Participant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.chats[chatKey(complaintID, chatType)]
	if !ok || c.HasParticipant(p.ParticipantID) {
		return nil
	}
	c.Participants = append(c.Participants, p)
	c.UpdatedAt = p.JoinedAt
	return nil
}

// AppendChatMessage appends msg to the room
func (m *Memory) AppendChatMessage(_ context.Context, complaintID string, chatType models.ChatType, msg models.ChatMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.chats[chatKey(complaintID, chatType)]
	if !ok {
		return ErrNotFound
	}
	if msg.IsRead == nil {
		msg.IsRead = []models.ReadReceipt{}
	}
	c.Messages = append(c.Messages, msg)
	c.UpdatedAt = msg.Timestamp
	return nil
}

// MarkChatRead adds receipts for readerID on unread messages from others
func (m *Memory) MarkChatRead(_ context.Context, complaintID string, chatType models.ChatType, readerID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.chats[chatKey(complaintID, chatType)]
	if !ok {
		return ErrNotFound
	}
	for i := range c.Messages {
		msg := &c.Messages[i]
		if msg.SenderID == readerID || msg.ReadBy(readerID) {
			continue
		}
		msg.IsRead = append(msg.IsRead, models.ReadReceipt{UserID: readerID, ReadAt: at})
	}
	return nil
}

// TouchParticipant sets LastSeenAt for one participant
func (m *Memory) TouchParticipant(_ context.Context, complaintID string, chatType models.ChatType, participantID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.chats[chatKey(complaintID, chatType)]
	if !ok {
		return nil
	}
	for i := range c.Participants {
		if c.Participants[i].ParticipantID == participantID {
			t := at
			c.Participants[i].LastSeenAt = &t
		}
	}
	return nil
}

var (
	_ ComplaintStore    = (*Memory)(nil)
	_ UserStore         = (*Memory)(nil)
	_ AdminStore        = (*Memory)(nil)
	_ DepartmentStore   = (*Memory)(nil)
	_ NotificationStore = (*Memory)(nil)
	_ RewardStore       = (*Memory)(nil)
	_ ActivityStore     = (*Memory)(nil)
	_ ChatStore         = (*Memory)(nil)

	_ ComplaintStore    = (*Postgres)(nil)
	_ UserStore         = (*Postgres)(nil)
	_ AdminStore        = (*Postgres)(nil)
	_ DepartmentStore   = (*Postgres)(nil)
	_ NotificationStore = (*Postgres)(nil)
	_ RewardStore       = (*Postgres)(nil)
	_ ActivityStore     = (*Postgres)(nil)
	_ ChatStore         = (*MongoChats)(nil)
)
