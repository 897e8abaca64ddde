package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aawaaz/complaint-server/internal/cache"
	"github.com/aawaaz/complaint-server/internal/models"
	"github.com/aawaaz/complaint-server/internal/store"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// nameLookup resolves the display name of one participant kind
type nameLookup func(ctx context.Context, id uuid.UUID) (string, error)

// ChatView is a chat as returned to one reader
type ChatView struct {
	*models.Chat
	UnreadCount int  `json:"unread_count"`
	Created     bool `json:"created"`
}

// SendMessageRequest is the input of Send
type SendMessageRequest struct {
	Content     string `json:"content"`
	MessageType string `json:"messageType"`
	ImageURL    string `json:"imageUrl"`
	ChatWith    string `json:"chatWith"`
}

// ChatService manages the per-complaint chat rooms
type ChatService struct {
	complaints  store.ComplaintStore
	chats       store.ChatStore
	users       store.UserStore
	admins      store.AdminStore
	departments store.DepartmentStore
	unread      cache.Unread
	names       map[models.ParticipantKind]nameLookup
	logger      *zap.SugaredLogger
	now         func() time.Time
}

// NewChatService creates a chat service
func NewChatService(
	complaints store.ComplaintStore,
	chats store.ChatStore,
	users store.UserStore,
	admins store.AdminStore,
	departments store.DepartmentStore,
	unread cache.Unread,
	logger *zap.SugaredLogger,
) *ChatService {
	s := &ChatService{
		complaints:  complaints,
		chats:       chats,
		users:       users,
		admins:      admins,
		departments: departments,
		unread:      unread,
		logger:      logger,
		now:         time.Now,
	}
	s.names = map[models.ParticipantKind]nameLookup{
		models.KindUser: func(ctx context.Context, id uuid.UUID) (string, error) {
			u, err := users.GetUser(ctx, id)
			if err != nil {
				return "", err
			}
			return u.Name, nil
		},
		models.KindAdmin: func(ctx context.Context, id uuid.UUID) (string, error) {
			a, err := admins.GetAdmin(ctx, id)
			if err != nil {
				return "", err
			}
			return a.Name, nil
		},
		models.KindDepartment: func(ctx context.Context, id uuid.UUID) (string, error) {
			d, err := departments.GetDepartment(ctx, id)
			if err != nil {
				return "", err
			}
			return d.Name, nil
		},
	}
	return s
}

// chatTypeFor picks the room a caller addresses. Users always talk to the
// department and admins always to the department; only departments choose.
func chatTypeFor(role models.Role, chatWith string) (models.ChatType, error) {
	switch role {
	case models.RoleUser:
		return models.ChatUserDepartment, nil
	case models.RoleAdmin:
		return models.ChatAdminDepartment, nil
	case models.RoleDepartment:
		if strings.TrimSpace(chatWith) == "" {
			return models.ChatUserDepartment, nil
		}
		t, ok := models.ParseChatType(chatWith)
		if !ok {
			return "", invalid("Invalid chatWith value %q", chatWith)
		}
		return t, nil
	}
	return "", forbidden("Unknown role")
}

// departmentActs reports whether a department may act on c: the assigned
// department, or any department of the city while none is assigned
func departmentActs(a Actor, c *models.Complaint) bool {
	if a.Role != models.RoleDepartment {
		return false
	}
	if c.AssignedDepartment != nil {
		return *c.AssignedDepartment == a.ID
	}
	return a.InCity(c.AssignedCity)
}

// adminActs reports whether an admin may act on c
func adminActs(a Actor, c *models.Complaint) bool {
	if a.Role != models.RoleAdmin {
		return false
	}
	return a.Is(models.RoleAdmin, c.AssignedAdmin) || a.InScope(c.AssignedCity, c.AssignedState)
}

// chatAllowed is the chat permission rule. It depends only on the caller
// and the complaint.
func chatAllowed(a Actor, c *models.Complaint, t models.ChatType) bool {
	switch t {
	case models.ChatUserDepartment:
		return (a.Role == models.RoleUser && c.UserID == a.ID) || departmentActs(a, c)
	case models.ChatAdminDepartment:
		return adminActs(a, c) || departmentActs(a, c)
	}
	return false
}

func (s *ChatService) access(ctx context.Context, a Actor, complaintID uuid.UUID, chatWith string) (*models.Complaint, models.ChatType, error) {
	t, err := chatTypeFor(a.Role, chatWith)
	if err != nil {
		return nil, "", err
	}
	c, err := s.complaints.GetComplaint(ctx, complaintID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, "", notFound("Complaint not found")
	}
	if err != nil {
		return nil, "", fmt.Errorf("load complaint: %w", err)
	}
	if c.Status != models.StatusInProgress {
		return nil, "", newError(ErrChatUnavailable, "Chat is only available while the complaint is in progress")
	}
	if !chatAllowed(a, c, t) {
		return nil, "", forbidden("You do not have access to this chat")
	}
	return c, t, nil
}

func (s *ChatService) participant(kind models.ParticipantKind, role models.Role, id uuid.UUID) models.Participant {
	return models.Participant{
		ParticipantID:    id.String(),
		ParticipantModel: kind,
		ParticipantRole:  role,
		JoinedAt:         s.now().UTC(),
	}
}

func (s *ChatService) actorParticipant(a Actor) models.Participant {
	return s.participant(models.KindForRole(a.Role), a.Role, a.ID)
}

// counterparts resolves the two sides of a room, falling back to any
// admin or department of the complaint's city when none is assigned
func (s *ChatService) counterparts(ctx context.Context, c *models.Complaint, t models.ChatType) ([]models.Participant, error) {
	var out []models.Participant
	if t == models.ChatUserDepartment {
		out = append(out, s.participant(models.KindUser, models.RoleUser, c.UserID))
	} else {
		admin, err := s.adminFor(ctx, c)
		if err != nil {
			return nil, err
		}
		if admin != nil {
			out = append(out, s.participant(models.KindAdmin, models.RoleAdmin, admin.ID))
		}
	}

	dept, err := departmentFor(ctx, s.departments, c)
	if err != nil {
		return nil, fmt.Errorf("resolve department: %w", err)
	}
	if dept != nil {
		out = append(out, s.participant(models.KindDepartment, models.RoleDepartment, dept.ID))
	}
	return out, nil
}

func (s *ChatService) adminFor(ctx context.Context, c *models.Complaint) (*models.Admin, error) {
	if c.AssignedAdmin != nil {
		a, err := s.admins.GetAdmin(ctx, *c.AssignedAdmin)
		if err == nil {
			return a, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("resolve admin: %w", err)
		}
	}
	found, err := s.admins.FindAdminsByScope(ctx, c.AssignedCity, c.AssignedState)
	if err != nil {
		return nil, fmt.Errorf("resolve admin: %w", err)
	}
	if len(found) == 0 {
		return nil, nil
	}
	return found[0], nil
}

func withParticipant(list []models.Participant, p models.Participant) []models.Participant {
	for _, existing := range list {
		if existing.ParticipantID == p.ParticipantID {
			return list
		}
	}
	return append(list, p)
}

func (s *ChatService) ensure(ctx context.Context, c *models.Complaint, t models.ChatType, participants []models.Participant) (*models.Chat, bool, error) {
	chat, created, err := s.chats.EnsureChat(ctx, &models.Chat{
		ComplaintID:  c.ID.String(),
		ChatType:     t,
		Participants: participants,
		Messages:     []models.ChatMessage{},
		Status:       models.ChatStatusActive,
		CreatedAt:    s.now().UTC(),
	})
	if err != nil {
		return nil, false, fmt.Errorf("ensure chat: %w", err)
	}
	if created {
		s.logger.Infow("Chat created", "complaint_id", c.ID, "chat_type", t, "participants", len(participants))
	}
	return chat, created, nil
}

// join adds the caller to an existing room it is permitted to use
func (s *ChatService) join(ctx context.Context, chat *models.Chat, a Actor) error {
	if chat.HasParticipant(a.ID.String()) {
		return nil
	}
	p := s.actorParticipant(a)
	if err := s.chats.AddParticipant(ctx, chat.ComplaintID, chat.ChatType, p); err != nil {
		return fmt.Errorf("add participant: %w", err)
	}
	chat.Participants = append(chat.Participants, p)
	return nil
}

// EnsureRooms creates both rooms of c where two sides can be resolved. It
// runs as a side effect of approval and verification.
func (s *ChatService) EnsureRooms(ctx context.Context, c *models.Complaint) error {
	for _, t := range []models.ChatType{models.ChatUserDepartment, models.ChatAdminDepartment} {
		participants, err := s.counterparts(ctx, c, t)
		if err != nil {
			return err
		}
		if len(participants) < 2 {
			s.logger.Infow("Chat not created, counterpart missing", "complaint_id", c.ID, "chat_type", t)
			continue
		}
		if _, _, err := s.ensure(ctx, c, t, participants); err != nil {
			return err
		}
	}
	return nil
}

// Init creates the caller's room if it does not exist and joins the caller
func (s *ChatService) Init(ctx context.Context, a Actor, complaintID uuid.UUID, chatWith string) (*ChatView, error) {
	c, t, err := s.access(ctx, a, complaintID, chatWith)
	if err != nil {
		return nil, err
	}
	participants, err := s.counterparts(ctx, c, t)
	if err != nil {
		return nil, err
	}
	participants = withParticipant(participants, s.actorParticipant(a))

	chat, created, err := s.ensure(ctx, c, t, participants)
	if err != nil {
		return nil, err
	}
	if err := s.join(ctx, chat, a); err != nil {
		return nil, err
	}
	return s.view(ctx, chat, a, created), nil
}

// Get returns the caller's room, creating it when both sides resolve, and
// records the caller's last visit
func (s *ChatService) Get(ctx context.Context, a Actor, complaintID uuid.UUID, chatWith string) (*ChatView, error) {
	c, t, err := s.access(ctx, a, complaintID, chatWith)
	if err != nil {
		return nil, err
	}

	created := false
	chat, err := s.chats.GetChat(ctx, c.ID.String(), t)
	if errors.Is(err, store.ErrNotFound) {
		participants, cpErr := s.counterparts(ctx, c, t)
		if cpErr != nil {
			return nil, cpErr
		}
		participants = withParticipant(participants, s.actorParticipant(a))
		if len(participants) < 2 {
			return nil, notFound("Chat not initialized")
		}
		chat, created, err = s.ensure(ctx, c, t, participants)
	}
	if err != nil {
		return nil, fmt.Errorf("get chat: %w", err)
	}
	if err := s.join(ctx, chat, a); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	if err := s.chats.TouchParticipant(ctx, chat.ComplaintID, t, a.ID.String(), now); err != nil {
		s.logger.Warnw("Failed to update last seen", "complaint_id", c.ID, "error", err)
	}
	for i := range chat.Participants {
		if chat.Participants[i].ParticipantID == a.ID.String() {
			chat.Participants[i].LastSeenAt = &now
		}
	}

	view := s.view(ctx, chat, a, created)
	if err := s.unread.Set(ctx, chat.ComplaintID, t, a.ID.String(), view.UnreadCount); err != nil {
		s.logger.Debugw("Unread cache write failed", "error", err)
	}
	return view, nil
}

func (s *ChatService) view(ctx context.Context, chat *models.Chat, a Actor, created bool) *ChatView {
	for i := range chat.Participants {
		p := &chat.Participants[i]
		lookup, ok := s.names[p.ParticipantModel]
		if !ok {
			continue
		}
		id, err := uuid.Parse(p.ParticipantID)
		if err != nil {
			continue
		}
		name, err := lookup(ctx, id)
		if err != nil {
			s.logger.Debugw("Participant name lookup failed", "participant_id", p.ParticipantID, "error", err)
			continue
		}
		p.DisplayName = name
	}
	return &ChatView{Chat: chat, UnreadCount: chat.UnreadCount(a.ID.String()), Created: created}
}

// Send appends a message from the caller
func (s *ChatService) Send(ctx context.Context, a Actor, complaintID uuid.UUID, req SendMessageRequest) (*models.ChatMessage, error) {
	c, t, err := s.access(ctx, a, complaintID, req.ChatWith)
	if err != nil {
		return nil, err
	}

	content := strings.TrimSpace(req.Content)
	imageURL := strings.TrimSpace(req.ImageURL)
	msgType := models.MessageType(strings.ToLower(strings.TrimSpace(req.MessageType)))
	switch msgType {
	case "", models.MessageText:
		msgType = models.MessageText
		if content == "" {
			return nil, invalid("Message content is required")
		}
	case models.MessageImage:
		if imageURL == "" {
			return nil, invalid("Image URL is required for image messages")
		}
	default:
		return nil, invalid("Invalid message type %q", req.MessageType)
	}

	chat, err := s.chats.GetChat(ctx, c.ID.String(), t)
	if errors.Is(err, store.ErrNotFound) {
		return nil, notFound("Chat not found. Initialize the chat first")
	}
	if err != nil {
		return nil, fmt.Errorf("get chat: %w", err)
	}
	if err := s.join(ctx, chat, a); err != nil {
		return nil, err
	}

	msg := models.ChatMessage{
		ID:          primitive.NewObjectID(),
		SenderID:    a.ID.String(),
		SenderModel: models.KindForRole(a.Role),
		SenderRole:  a.Role,
		Content:     content,
		ImageURL:    imageURL,
		MessageType: msgType,
		Timestamp:   s.now().UTC(),
		IsRead:      []models.ReadReceipt{},
	}
	err = s.chats.AppendChatMessage(ctx, chat.ComplaintID, t, msg)
	if errors.Is(err, store.ErrNotFound) {
		return nil, notFound("Chat not found. Initialize the chat first")
	}
	if err != nil {
		return nil, fmt.Errorf("append message: %w", err)
	}

	if err := s.unread.Invalidate(ctx, chat.ComplaintID, t); err != nil {
		s.logger.Warnw("Unread cache invalidation failed", "complaint_id", c.ID, "error", err)
	}
	return &msg, nil
}

// MarkRead adds the caller's receipt to every message from someone else
func (s *ChatService) MarkRead(ctx context.Context, a Actor, complaintID uuid.UUID, chatWith string) error {
	c, t, err := s.access(ctx, a, complaintID, chatWith)
	if err != nil {
		return err
	}
	err = s.chats.MarkChatRead(ctx, c.ID.String(), t, a.ID.String(), s.now().UTC())
	if errors.Is(err, store.ErrNotFound) {
		return notFound("Chat not found")
	}
	if err != nil {
		return fmt.Errorf("mark read: %w", err)
	}
	if err := s.unread.Set(ctx, c.ID.String(), t, a.ID.String(), 0); err != nil {
		s.logger.Debugw("Unread cache write failed", "error", err)
	}
	return nil
}

// Unread returns the caller's unread count, served from the cache when fresh
func (s *ChatService) Unread(ctx context.Context, a Actor, complaintID uuid.UUID, chatWith string) (int, error) {
	c, t, err := s.access(ctx, a, complaintID, chatWith)
	if err != nil {
		return 0, err
	}
	reader := a.ID.String()
	if n, ok, err := s.unread.Get(ctx, c.ID.String(), t, reader); err == nil && ok {
		return n, nil
	} else if err != nil {
		s.logger.Debugw("Unread cache read failed", "error", err)
	}

	chat, err := s.chats.GetChat(ctx, c.ID.String(), t)
	if errors.Is(err, store.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get chat: %w", err)
	}
	n := chat.UnreadCount(reader)
	if err := s.unread.Set(ctx, c.ID.String(), t, reader, n); err != nil {
		s.logger.Debugw("Unread cache write failed", "error", err)
	}
	return n, nil
}
